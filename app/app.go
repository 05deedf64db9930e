package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lescriminels/guild/attachment"
	"github.com/lescriminels/guild/config"
	"github.com/lescriminels/guild/db"
	"github.com/lescriminels/guild/lending"
	"github.com/lescriminels/guild/notify"
	"github.com/lescriminels/guild/session"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// short aliases for handlers
type Ctx = gin.Context
type H = gin.H

// App holds every long-lived dependency of the server.
type App struct {
	Router   *gin.Engine
	Config   config.Config
	Log      *slog.Logger
	RDB      *redis.Client
	Store    *db.Store
	Files    *attachment.Manager
	Lending  *lending.Service
	Sessions *session.Store
	Metrics  *Metrics

	closers []func() error
}

func MustNew(ctx context.Context, cfg config.Config, log *slog.Logger) *App {
	a, err := New(ctx, cfg, log)
	if err != nil {
		log.Error("startup failed", "err", err)
		os.Exit(1)
	}
	return a
}

func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	a := &App{Config: cfg, Log: log, Metrics: NewMetrics()}

	// --- Redis: sessions, and the store lock when LOCK_DRIVER=redis ---
	a.RDB = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPwd, DB: 0})
	a.closers = append(a.closers, a.RDB.Close)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := a.RDB.Ping(pingCtx).Err(); err != nil {
		a.Close()
		return nil, fmt.Errorf("redis: %w", err)
	}
	a.Sessions = session.NewStore(a.RDB, cfg.SessionTTL)

	// --- Record store ---
	store, err := db.Open(cfg, a.RDB, log, db.WithCommitObserver(a.Metrics.ObserveCommit))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("record store: %w", err)
	}
	a.Store = store
	a.closers = append(a.closers, store.Close)

	// --- Attachments ---
	blobs, err := attachment.OpenStorage(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("attachments: %w", err)
	}
	a.Files = attachment.NewManager(blobs, cfg.UploadMaxBytes)

	// --- Events ---
	pub, err := notify.Open(cfg, log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("notify: %w", err)
	}
	a.closers = append(a.closers, pub.Close)

	a.Lending = lending.NewService(store, a.Files,
		lending.WithLogger(log),
		lending.WithPublisher(pub),
		lending.WithRecorder(a.Metrics),
		lending.WithAdminUsernames(cfg.AdminUsernames),
	)

	// --- Gin ---
	r := gin.Default()
	r.MaxMultipartMemory = cfg.UploadMaxBytes + 1<<20
	useCORS(r, cfg.WebOrigin)
	a.Router = r
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && a.Log != nil {
			a.Log.Warn("close", "err", err)
		}
	}
	a.closers = nil
}
