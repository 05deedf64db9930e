package app

import (
	"context"

	"github.com/lescriminels/guild/lending"
)

// BootstrapFirstAdmin registers the configured account when the store has
// no users yet. Registration makes the first user an administrator.
func BootstrapFirstAdmin(ctx context.Context, a *App) {
	cfg := a.Config
	if cfg.BootstrapUsername == "" || cfg.BootstrapPassword == "" {
		return
	}
	has, err := a.Lending.HasUsers(ctx)
	if err != nil {
		a.Log.Error("bootstrap administrator", "err", err)
		return
	}
	if has {
		return
	}
	u, err := a.Lending.Register(ctx, cfg.BootstrapUsername, cfg.BootstrapPassword)
	switch {
	case err == nil:
		a.Log.Info("bootstrap administrator created", "user_id", u.ID, "username", u.Username)
	case lending.IsCode(err, lending.CodeConflict):
		// lost a race with a real registration
	default:
		a.Log.Error("bootstrap administrator", "err", err)
	}
}
