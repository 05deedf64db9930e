package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// SQLiteBackend stores each collection as one JSON payload row, so a
// commit of several collections is a single sql transaction.
type SQLiteBackend struct {
	db   *sql.DB
	path string
}

func OpenSQLite(path string) (*SQLiteBackend, error) {
	if path == "" {
		path = "guild.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer connection; the store lock already serializes callers
	db.SetMaxOpenConns(1)
	for _, stmt := range []string{
		`PRAGMA journal_mode=WAL`,
		`PRAGMA busy_timeout=5000`,
		`CREATE TABLE IF NOT EXISTS collections (
			name TEXT PRIMARY KEY,
			payload BLOB NOT NULL
		)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init sqlite: %w", err)
		}
	}
	return &SQLiteBackend{db: db, path: path}, nil
}

func (s *SQLiteBackend) Load(ctx context.Context) (Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, payload FROM collections`)
	if err != nil {
		return Snapshot{}, fmt.Errorf("select collections: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var snap Snapshot
	for rows.Next() {
		var name string
		var payload []byte
		if err := rows.Scan(&name, &payload); err != nil {
			return Snapshot{}, fmt.Errorf("scan: %w", err)
		}
		dst, err := snap.target(Collection(name))
		if err != nil {
			// rows written by a newer build; ignore
			continue
		}
		if err := json.Unmarshal(payload, dst); err != nil {
			return Snapshot{}, fmt.Errorf("decode %s: %w", name, err)
		}
	}
	return snap, rows.Err()
}

func (s *SQLiteBackend) Commit(ctx context.Context, next Snapshot, changed []Collection) (retErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, c := range changed {
		rows, err := next.payload(c)
		if err != nil {
			return err
		}
		data, err := json.Marshal(rows)
		if err != nil {
			return fmt.Errorf("encode %s: %w", c, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO collections(name, payload) VALUES(?, ?)
			 ON CONFLICT(name) DO UPDATE SET payload = excluded.payload`,
			string(c), data); err != nil {
			return fmt.Errorf("upsert %s: %w", c, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteBackend) Close() error { return s.db.Close() }

// Path returns the database file location.
func (s *SQLiteBackend) Path() string { return s.path }
