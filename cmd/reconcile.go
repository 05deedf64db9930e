package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/lescriminels/guild/config"
	"github.com/lescriminels/guild/db"
	"github.com/lescriminels/guild/lending"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// reconcileCmd recomputes item availability from the borrow records. Run it
// after editing the store by hand.
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Recompute item availability from borrow records",
	RunE: func(cmd *cobra.Command, args []string) error {
		config.LoadEnv()
		cfg := config.Load()
		log := newLogger()

		var rdb *redis.Client
		if cfg.LockDriver == "redis" {
			rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPwd})
			defer rdb.Close()
			pingCtx, cancel := context.WithTimeout(cmd.Context(), 3*time.Second)
			defer cancel()
			if err := rdb.Ping(pingCtx).Err(); err != nil {
				return fmt.Errorf("redis: %w", err)
			}
		}

		store, err := db.Open(cfg, rdb, log)
		if err != nil {
			return err
		}
		defer store.Close()

		svc := lending.NewService(store, nil, lending.WithLogger(log))
		fixed, err := svc.Reconcile(cmd.Context())
		if err != nil {
			return err
		}
		if len(fixed) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "inventory consistent")
			return nil
		}
		for _, id := range fixed {
			fmt.Fprintf(cmd.OutOrStdout(), "fixed %s\n", id)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
}
