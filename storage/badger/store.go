// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/oppmatch/storage"
)

// Store implements storage.Store for BadgerDB.
//
// Each Save writes the whole cache as a new generation of keys and then
// switches the current generation pointer in a single transaction. Loads only
// read the current generation, so an interrupted save is invisible. Stale
// generations are deleted after the switch and again before the next save.
type Store struct {
	backend     *Backend
	ownsBackend bool
	fingerprint string
	logger      *slog.Logger
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

// WithFingerprint records the embedding configuration fingerprint on save
// and warns on load when the stored one differs.
func WithFingerprint(fp string) Option {
	return func(s *Store) {
		s.fingerprint = fp
	}
}

// NewStore creates a store over an open backend. The caller keeps ownership
// of the backend.
func NewStore(backend *Backend, opts ...Option) (storage.Store, error) {
	return newStore(backend, false, opts...)
}

// OpenStore opens (creating if needed) a BadgerDB directory at path and
// returns a store that closes it on Close.
func OpenStore(path string, opts ...Option) (storage.Store, error) {
	backend, err := OpenBackend(path, false)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger at %s: %w", path, err)
	}
	return newStore(backend, true, opts...)
}

func newStore(backend *Backend, owns bool, opts ...Option) (*Store, error) {
	if backend == nil {
		return nil, errors.New("badger store: backend is required")
	}
	s := &Store{
		backend:     backend,
		ownsBackend: owns,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "badger-store")
	return s, nil
}

// Load reads the current generation. Undecodable entries make the whole
// generation unusable and yield an empty cache.
func (s *Store) Load(ctx context.Context) (*storage.Cache, error) {
	if s.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entries []storage.Entry
	var storedFingerprint string
	var found bool

	err := s.backend.WithTx(func(tx *badger.Txn) error {
		gen, ok, err := currentGeneration(tx)
		if err != nil || !ok {
			return err
		}
		found = true

		if item, err := tx.Get([]byte(fingerprintKey)); err == nil {
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			storedFingerprint = string(val)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeGenerationPrefix(gen)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			err := iter.Item().Value(func(val []byte) error {
				entry, err := storage.UnmarshalEntry(val)
				if err != nil {
					return err
				}
				entries = append(entries, entry)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.logger.Warn("embedding cache unreadable, starting empty", "err", err)
		return storage.NewCache(), nil
	}
	if !found {
		s.logger.Info("no embedding cache found, starting empty")
		return storage.NewCache(), nil
	}

	cache, err := storage.NewCacheFromEntries(entries)
	if err != nil {
		s.logger.Warn("embedding cache inconsistent, starting empty", "err", err)
		return storage.NewCache(), nil
	}

	if s.fingerprint != "" && storedFingerprint != "" && s.fingerprint != storedFingerprint {
		s.logger.Warn("embedding cache was built with a different model configuration; run reembed to recompute",
			"stored", storedFingerprint, "current", s.fingerprint)
	}

	s.logger.Info("loaded embedding cache", "entries", cache.Len(), "dimensions", cache.Dimensions())
	return cache, nil
}

// Save writes cache as a new generation and switches to it.
func (s *Store) Save(ctx context.Context, cache *storage.Cache) error {
	if s.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var current uint64
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		gen, _, err := currentGeneration(tx)
		current = gen
		return err
	}, false)
	if err != nil {
		return fmt.Errorf("failed to read generation: %w", err)
	}
	next := current + 1

	// Clear leftovers of an earlier interrupted save before reusing the range.
	if err := s.deleteGenerations(func(gen uint64) bool { return gen != current }); err != nil {
		return fmt.Errorf("failed to clear stale generations: %w", err)
	}

	wb := s.backend.NewWriteBatch()
	defer wb.Cancel()

	var seq uint64
	for id, vec := range cache.Entries() {
		if err := ctx.Err(); err != nil {
			return err
		}
		value := storage.MarshalEntry(storage.Entry{ID: id, Vector: vec})
		if err := wb.Set(makeVectorKey(next, seq), value); err != nil {
			return fmt.Errorf("failed to write entry %q: %w", id, err)
		}
		seq++
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("failed to flush entries: %w", err)
	}

	err = s.backend.WithTransaction(ctx, func(ctx context.Context, tx *badger.Txn) error {
		if err := tx.Set([]byte(generationKey), encodeGeneration(next)); err != nil {
			return err
		}
		if s.fingerprint != "" {
			return tx.Set([]byte(fingerprintKey), []byte(s.fingerprint))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to switch generation: %w", err)
	}

	if err := s.deleteGenerations(func(gen uint64) bool { return gen != next }); err != nil {
		// The new generation is live; leftovers are retried on the next save.
		s.logger.Warn("failed to delete old generation", "err", err)
	}

	s.logger.Info("saved embedding cache", "entries", cache.Len(), "generation", next)
	return nil
}

// Close closes the backend when the store opened it.
func (s *Store) Close() error {
	if s.ownsBackend && !s.backend.IsClosed() {
		return s.backend.Close()
	}
	return nil
}

// deleteGenerations removes every vector key whose generation matches drop.
func (s *Store) deleteGenerations(drop func(gen uint64) bool) error {
	var stale [][]byte
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(vectorPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			key := iter.Item().KeyCopy(nil)
			if gen, ok := generationOf(key); ok && drop(gen) {
				stale = append(stale, key)
			}
		}
		return nil
	}, false)
	if err != nil || len(stale) == 0 {
		return err
	}

	wb := s.backend.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range stale {
		if err := wb.Delete(key); err != nil {
			return err
		}
	}
	return wb.Flush()
}

func currentGeneration(tx *badger.Txn) (uint64, bool, error) {
	item, err := tx.Get([]byte(generationKey))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return 0, false, err
	}
	gen, ok := decodeGeneration(val)
	if !ok {
		return 0, false, fmt.Errorf("%w: generation pointer has %d bytes", storage.ErrSerializationFailed, len(val))
	}
	return gen, true, nil
}
