package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/tewou-sn/tewou/internal/rag"
)

var (
	askSoil     string
	askLocation string
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Poser une question unique",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askSoil, "soil", "", "type de sol de l'exploitation")
	askCmd.Flags().StringVar(&askLocation, "location", "", "localisation de l'exploitation")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	question := strings.Join(args, " ")

	_, err = streamAnswer(ctx, a, rag.Request{
		Question: question,
		SoilType: askSoil,
		Location: askLocation,
	})
	return err
}
