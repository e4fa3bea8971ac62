package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

var appendToExisting bool

var migrateCMD = &cobra.Command{
	Use:     "import",
	Aliases: []string{"migrate"},
	Short:   "copy the JSON lines history log into PostgreSQL",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		entries, err := fileStore().Load(ctx)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", cfg.History.Path, err)
		}

		db, store, err := openPostgres(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		existing, err := store.Load(ctx)
		if err != nil {
			return err
		}
		if len(existing) > 0 && !appendToExisting {
			return fmt.Errorf("roulette_spins already holds %d spins, pass --append to add to them", len(existing))
		}

		imported, err := store.Import(ctx, entries)
		if err != nil {
			slog.Error("Migration failed", slog.String("type", "db"), slog.Any("error", err))
			return err
		}

		slog.Info("Migration completed successfully",
			slog.String("type", "db"),
			slog.String("source", cfg.History.Path),
			slog.Int("spins", imported))
		return nil
	},
}

func init() {
	migrateCMD.Flags().BoolVar(&appendToExisting, "append", false, "import even when the table already holds spins")
	rootCmd.AddCommand(migrateCMD)
}
