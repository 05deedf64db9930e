package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileBackend keeps each collection in <dir>/<collection>.json as a JSON
// array, the layout the service has always used on disk.
type FileBackend struct {
	dir string
}

func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileBackend{dir: dir}, nil
}

func (f *FileBackend) path(c Collection) string {
	return filepath.Join(f.dir, string(c)+".json")
}

func (f *FileBackend) Load(context.Context) (Snapshot, error) {
	var snap Snapshot
	for _, c := range Collections {
		b, err := os.ReadFile(f.path(c))
		if errors.Is(err, fs.ErrNotExist) || (err == nil && len(b) == 0) {
			continue
		}
		if err != nil {
			return Snapshot{}, fmt.Errorf("read %s: %w", c, err)
		}
		dst, _ := snap.target(c)
		if err := json.Unmarshal(b, dst); err != nil {
			return Snapshot{}, fmt.Errorf("decode %s: %w", c, err)
		}
	}
	return snap, nil
}

// Commit writes every changed collection to a temp file first and only
// then renames them into place. If a rename fails, collections already
// renamed are put back to their previous contents.
func (f *FileBackend) Commit(_ context.Context, next Snapshot, changed []Collection) (err error) {
	type staged struct {
		c    Collection
		tmp  string
		prev []byte
		had  bool
	}
	var files []staged
	defer func() {
		if err == nil {
			return
		}
		for _, s := range files {
			_ = os.Remove(s.tmp)
		}
	}()

	for _, c := range changed {
		rows, err := next.payload(c)
		if err != nil {
			return err
		}
		b, err := json.MarshalIndent(rows, "", "    ")
		if err != nil {
			return fmt.Errorf("encode %s: %w", c, err)
		}
		tmp, err := writeTemp(f.dir, string(c), b)
		if err != nil {
			return fmt.Errorf("stage %s: %w", c, err)
		}
		s := staged{c: c, tmp: tmp}
		if prev, err := os.ReadFile(f.path(c)); err == nil {
			s.prev, s.had = prev, true
		}
		files = append(files, s)
	}

	for i, s := range files {
		if err := os.Rename(s.tmp, f.path(s.c)); err != nil {
			for _, done := range files[:i] {
				if done.had {
					_ = os.WriteFile(f.path(done.c), done.prev, 0o640)
				} else {
					_ = os.Remove(f.path(done.c))
				}
			}
			return fmt.Errorf("install %s: %w", s.c, err)
		}
	}
	return nil
}

func (f *FileBackend) Close() error { return nil }

func writeTemp(dir, prefix string, b []byte) (string, error) {
	tmp, err := os.CreateTemp(dir, "."+prefix+"-*.tmp")
	if err != nil {
		return "", err
	}
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}
