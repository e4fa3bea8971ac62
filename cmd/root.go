// Package cmd holds historyctl, the spin history maintenance tool.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ThomasByr/skyroulette/internal/gateways/database"
	"github.com/ThomasByr/skyroulette/internal/gateways/history"
	"github.com/ThomasByr/skyroulette/skyroulette"
	"github.com/ThomasByr/skyroulette/skyroulette/logger"
)

var (
	configPath string
	filePath   string
	cfg        *skyroulette.Config
)

var rootCmd = &cobra.Command{
	Use:           "historyctl",
	Short:         "inspect and move the skyroulette spin history",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		slog.SetDefault(slog.New(logger.NewHandler(logger.Options{Prefix: "historyctl", Color: true})))

		loaded, err := skyroulette.ReadConfig(configPath)
		if err != nil {
			return err
		}
		if filePath != "" {
			loaded.History.Path = filePath
		}
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.toml", "path to config")
	rootCmd.PersistentFlags().StringVar(&filePath, "file", "", "history log to use instead of the configured one")
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		slog.Error("Command failed", slog.String("type", "sys"), slog.Any("error", err))
		os.Exit(1)
	}
}

func fileStore() *history.FileStore {
	return history.NewFileStore(cfg.History.Path, cfg.Location())
}

// openPostgres connects and makes sure the spin table exists.
func openPostgres(ctx context.Context) (*database.DB, *history.PostgresStore, error) {
	db, err := database.New(ctx, cfg.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.InitializeSchema(ctx, history.SchemaModels, history.SchemaIndexes); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return db, history.NewPostgresStore(db.BunDB()), nil
}
