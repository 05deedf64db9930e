package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Store runs read-modify-write transactions over all collections. Every
// transaction holds the store lock from load to commit, so two
// transactions never interleave.
type Store struct {
	backend Backend
	lock    Locker
	log     *slog.Logger
	observe func(time.Duration)
}

type Option func(*Store)

func WithLogger(l *slog.Logger) Option { return func(s *Store) { s.log = l } }

// WithCommitObserver is called with the duration of every successful commit.
func WithCommitObserver(fn func(time.Duration)) Option {
	return func(s *Store) { s.observe = fn }
}

func NewStore(backend Backend, lock Locker, opts ...Option) *Store {
	s := &Store{backend: backend, lock: lock, log: slog.Default()}
	if lock == nil {
		s.lock = NewLocalLocker()
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Update loads a fresh snapshot, runs fn on it and commits the collections
// fn wrote. An error from fn discards every change.
func (s *Store) Update(ctx context.Context, fn func(tx *Tx) error) error {
	return s.run(ctx, true, fn)
}

// View runs fn on a consistent snapshot. Writes made by fn are dropped.
func (s *Store) View(ctx context.Context, fn func(tx *Tx) error) error {
	return s.run(ctx, false, fn)
}

func (s *Store) run(ctx context.Context, write bool, fn func(tx *Tx) error) error {
	unlock, err := s.lock.Lock(ctx)
	if err != nil {
		return fmt.Errorf("acquire store lock: %w", err)
	}
	defer func() {
		if err := unlock(); err != nil {
			s.log.Warn("release store lock", "err", err)
		}
	}()

	snap, err := s.backend.Load(ctx)
	if err != nil {
		return fmt.Errorf("load store: %w", err)
	}
	tx := newTx(snap)
	if err := fn(tx); err != nil {
		return err
	}
	if !write {
		return nil
	}
	changed := tx.changed()
	if len(changed) == 0 {
		return nil
	}
	start := time.Now()
	if err := s.backend.Commit(ctx, tx.snap, changed); err != nil {
		return fmt.Errorf("commit %v: %w", changed, err)
	}
	if s.observe != nil {
		s.observe(time.Since(start))
	}
	return nil
}

func (s *Store) Close() error { return s.backend.Close() }
