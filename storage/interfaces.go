package storage

import (
	"context"
)

// Store persists an embedding cache between runs.
//
// Load never fails because the persisted state is missing or unreadable: in
// those cases it returns an empty cache and logs what it skipped. It returns
// an error only when ctx is done or the backend itself is unusable.
//
// Save replaces the persisted state atomically. A crash mid-save leaves the
// previous state intact.
type Store interface {
	// Load reads the persisted cache.
	Load(ctx context.Context) (*Cache, error)

	// Save writes the full cache.
	Save(ctx context.Context, cache *Cache) error

	// Close releases resources held by the store.
	Close() error
}
