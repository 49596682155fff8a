// Package jsonfile persists an embedding cache as a single JSON object file.
//
// The file maps document id to vector in insertion order:
//
//	{"N0001": [0.12, -0.3, ...], "N0002": [...]}
//
// Saves go to a temporary file in the same directory, which is synced and
// renamed over the target, so readers never see a partial file.
package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/poiesic/oppmatch/storage"
)

// Store implements storage.Store on a JSON file.
type Store struct {
	path   string
	indent bool
	logger *slog.Logger
}

var _ storage.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithIndent controls whether saved files are indented. Default true.
func WithIndent(indent bool) Option {
	return func(s *Store) {
		s.indent = indent
	}
}

// NewStore returns a store for the file at path. The file need not exist.
func NewStore(path string, opts ...Option) (storage.Store, error) {
	if path == "" {
		return nil, errors.New("jsonfile: path is required")
	}
	s := &Store{
		path:   path,
		indent: true,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "jsonfile-store", "path", path)
	return s, nil
}

// Load reads the cache file. A missing, unreadable or malformed file yields
// an empty cache.
func (s *Store) Load(ctx context.Context) (*storage.Cache, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Info("no embedding cache found, starting empty")
		} else {
			s.logger.Warn("embedding cache unreadable, starting empty", "err", err)
		}
		return storage.NewCache(), nil
	}

	cache := storage.NewCache()
	if len(bytes.TrimSpace(data)) == 0 {
		s.logger.Warn("embedding cache file is empty, starting empty")
		return cache, nil
	}
	if err := json.Unmarshal(data, cache); err != nil {
		s.logger.Warn("embedding cache malformed, starting empty", "err", err)
		return storage.NewCache(), nil
	}

	s.logger.Info("loaded embedding cache", "entries", cache.Len(), "dimensions", cache.Dimensions())
	return cache, nil
}

// Save writes the cache atomically.
func (s *Store) Save(ctx context.Context, cache *storage.Cache) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var (
		data []byte
		err  error
	)
	if s.indent {
		data, err = json.MarshalIndent(cache, "", "  ")
	} else {
		data, err = json.Marshal(cache)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal cache: %w", err)
	}

	if err := writeAtomic(s.path, data); err != nil {
		return fmt.Errorf("failed to save cache: %w", err)
	}

	s.logger.Info("saved embedding cache", "entries", cache.Len())
	return nil
}

// Close is a no-op; the file is not held open between calls.
func (s *Store) Close() error {
	return nil
}

func writeAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmpName, 0644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
