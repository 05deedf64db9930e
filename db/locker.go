package db

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker guards the store's critical section. The returned unlock must be
// called exactly once.
type Locker interface {
	Lock(ctx context.Context) (unlock func() error, err error)
}

// LocalLocker serializes transactions inside one process.
type LocalLocker struct{ ch chan struct{} }

func NewLocalLocker() *LocalLocker { return &LocalLocker{ch: make(chan struct{}, 1)} }

func (l *LocalLocker) Lock(ctx context.Context) (func() error, error) {
	select {
	case l.ch <- struct{}{}:
		return func() error { <-l.ch; return nil }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ErrLockLost is returned on unlock when the redis key expired or was taken
// over before the holder released it.
var ErrLockLost = errors.New("store lock expired before release")

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker serializes transactions across every process sharing the
// same redis key. A token guards release so a holder never frees a lock it
// no longer owns.
type RedisLocker struct {
	rdb   *redis.Client
	key   string
	ttl   time.Duration
	retry time.Duration
	local *LocalLocker
}

func NewRedisLocker(rdb *redis.Client, key string, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 15 * time.Second
	}
	return &RedisLocker{rdb: rdb, key: key, ttl: ttl, retry: 25 * time.Millisecond, local: NewLocalLocker()}
}

func (l *RedisLocker) Lock(ctx context.Context) (func() error, error) {
	// queue in-process callers locally so only one of them polls redis
	unlockLocal, err := l.local.Lock(ctx)
	if err != nil {
		return nil, err
	}
	token := uuid.NewString()
	for {
		ok, err := l.rdb.SetNX(ctx, l.key, token, l.ttl).Result()
		if err != nil {
			_ = unlockLocal()
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}
		if ok {
			break
		}
		t := time.NewTimer(l.retry)
		select {
		case <-ctx.Done():
			t.Stop()
			_ = unlockLocal()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
	return func() error {
		defer unlockLocal()
		n, err := releaseScript.Run(context.Background(), l.rdb, []string{l.key}, token).Int()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrLockLost
		}
		return nil
	}, nil
}
