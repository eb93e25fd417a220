package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/tewou-sn/tewou/internal/app"
	"github.com/tewou-sn/tewou/internal/config"
	"github.com/tewou-sn/tewou/internal/log"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "tewou",
	Short: "Tèwou Agro-Assistant - conseils agricoles pour le Sénégal",
	Long: `Tèwou est un assistant agricole pour le Sénégal. Il répond en
français aux questions sur les cultures, le sol, la météo et les
pratiques agricoles, en s'appuyant sur une base de connaissances locale.

Exécuté sans sous-commande, tewou démarre une conversation interactive.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		// No subcommand: enter chat mode.
		return runChat(cmd, args)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "activer les journaux de débogage")
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return log.New(log.Config{Level: level})
}

// newApp loads configuration and assembles the application.
func newApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	a, err := app.New(ctx, cfg, newLogger())
	if err != nil {
		return nil, fmt.Errorf("assembling application: %w", err)
	}
	return a, nil
}
