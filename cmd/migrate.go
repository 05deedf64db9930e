package cmd

import (
	"fmt"

	"github.com/lescriminels/guild/config"
	"github.com/lescriminels/guild/db"

	"github.com/spf13/cobra"
)

// migrateCmd prepares the configured record store: tables and indexes for
// postgres, the collections table for sqlite, the data directory for file.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Prepare the record store",
	RunE: func(cmd *cobra.Command, args []string) error {
		config.LoadEnv()
		cfg := config.Load()
		log := newLogger()

		backend, err := db.OpenBackend(cfg)
		if err != nil {
			return fmt.Errorf("open %s store: %w", cfg.StoreDriver, err)
		}
		defer backend.Close()

		snap, err := backend.Load(cmd.Context())
		if err != nil {
			return fmt.Errorf("load %s store: %w", cfg.StoreDriver, err)
		}
		log.Info("record store ready",
			"driver", cfg.StoreDriver,
			"users", len(snap.Users),
			"items", len(snap.Items),
			"borrows", len(snap.Borrows),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
