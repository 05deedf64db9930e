package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/lescriminels/guild/app"
	"github.com/lescriminels/guild/config"
	"github.com/lescriminels/guild/routes"

	"github.com/spf13/cobra"
)

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Starts the guild HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		config.LoadEnv()
		cfg := config.Load()
		log := newLogger()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		application := app.MustNew(ctx, cfg, log)
		defer application.Close()

		app.BootstrapFirstAdmin(ctx, application)
		routes.RegisterRoutes(application.Router, application)

		srv := &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           application.Router,
			ReadHeaderTimeout: 10 * time.Second,
		}
		errCh := make(chan error, 1)
		go func() {
			log.Info("listening", "addr", srv.Addr, "store", cfg.StoreDriver, "uploads", cfg.UploadDriver)
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
		}

		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
