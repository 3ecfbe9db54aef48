package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/okian/soarbridge/internal/domain/model"
)

// FileStore keeps one JSON file per key in a directory. Writes go to a
// temporary file that is renamed into place.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore creates the directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("%w: create %s: %w", ErrBackend, dir, err)
	}
	return &FileStore{dir: dir}, nil
}

// Load implements Store.
func (s *FileStore) Load(_ context.Context, key string) (cp model.Checkpoint, err error) {
	defer func(start time.Time) { observe("file", "load", start, err) }(time.Now())

	raw, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return model.Checkpoint{}, ErrNotFound
	}
	if err != nil {
		return model.Checkpoint{}, fmt.Errorf("%w: read %s: %w", ErrBackend, key, err)
	}
	if err := json.Unmarshal(raw, &cp); err != nil {
		return model.Checkpoint{}, fmt.Errorf("%w: %s: %w", ErrCorrupt, key, err)
	}
	return cp, nil
}

// Save implements Store.
func (s *FileStore) Save(_ context.Context, key string, cp model.Checkpoint) (err error) {
	defer func(start time.Time) { observe("file", "save", start, err) }(time.Now())

	raw, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %w", ErrBackend, key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, ".checkpoint-*")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBackend, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: write %s: %w", ErrBackend, key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrBackend, key, err)
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		return fmt.Errorf("%w: rename %s: %w", ErrBackend, key, err)
	}
	return nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, sanitize(key)+".json")
}

// sanitize keeps keys inside the directory.
func sanitize(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, strings.TrimLeft(key, "."))
}
