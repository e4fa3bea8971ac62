package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var overwrite bool

var exportCMD = &cobra.Command{
	Use:   "export",
	Short: "write the PostgreSQL spin history to the JSON lines log",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if _, err := os.Stat(cfg.History.Path); err == nil && !overwrite {
			return fmt.Errorf("%s exists, pass --force to replace it", cfg.History.Path)
		} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}

		db, store, err := openPostgres(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		entries, err := store.Load(ctx)
		if err != nil {
			return err
		}
		if err := fileStore().ReplaceAll(ctx, entries); err != nil {
			return err
		}

		slog.Info("Export completed",
			slog.String("type", "db"),
			slog.String("target", cfg.History.Path),
			slog.Int("spins", len(entries)))
		return nil
	},
}

func init() {
	exportCMD.Flags().BoolVar(&overwrite, "force", false, "replace an existing history log")
	rootCmd.AddCommand(exportCMD)
}
