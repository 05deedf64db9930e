package db

import (
	"fmt"
	"log/slog"

	"github.com/lescriminels/guild/config"

	"github.com/redis/go-redis/v9"
)

const lockKey = "guild:store:lock"

// OpenBackend builds the backend named by cfg.StoreDriver.
func OpenBackend(cfg config.Config) (Backend, error) {
	switch cfg.StoreDriver {
	case "", "file":
		return NewFileBackend(cfg.DataDir)
	case "sqlite":
		return OpenSQLite(cfg.SQLitePath)
	case "postgres":
		conn, err := ConnectDB(cfg.Database)
		if err != nil {
			return nil, err
		}
		if err := Migrate(conn); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return NewGormBackend(conn), nil
	case "memory":
		return NewMemoryBackend(Snapshot{}), nil
	}
	return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
}

// NewLocker builds the locker named by cfg.LockDriver. rdb may be nil when
// the local locker is selected.
func NewLocker(cfg config.Config, rdb *redis.Client) (Locker, error) {
	switch cfg.LockDriver {
	case "", "local":
		return NewLocalLocker(), nil
	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("LOCK_DRIVER=redis needs a redis client")
		}
		return NewRedisLocker(rdb, lockKey, cfg.LockTTL), nil
	}
	return nil, fmt.Errorf("unknown LOCK_DRIVER %q", cfg.LockDriver)
}

// Open wires a Store from configuration.
func Open(cfg config.Config, rdb *redis.Client, log *slog.Logger, opts ...Option) (*Store, error) {
	backend, err := OpenBackend(cfg)
	if err != nil {
		return nil, err
	}
	lock, err := NewLocker(cfg, rdb)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	log.Info("record store ready", "driver", cfg.StoreDriver, "lock", cfg.LockDriver)
	return NewStore(backend, lock, append([]Option{WithLogger(log)}, opts...)...), nil
}
