package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tewou-sn/tewou/internal/knowledge"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Reconstruire l'index de connaissances depuis les données collectées",
	RunE:  runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Printf("Indexation des documents de %s...\n", a.Config.DataDir)

	stats, err := a.BuildIndex(ctx)
	if err != nil {
		if errors.Is(err, knowledge.ErrNoDocuments) {
			return fmt.Errorf("aucun document trouvé dans %s", a.Config.DataDir)
		}
		return fmt.Errorf("building index: %w", err)
	}

	fmt.Printf("Index reconstruit : %d documents, %d fragments en %s\n",
		stats.Documents, stats.Chunks, stats.Duration.Round(time.Millisecond))
	return nil
}
