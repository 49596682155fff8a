package storage

import (
	"encoding/json"
	"fmt"
	"iter"

	"github.com/poiesic/oppmatch/core"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Entry is a single id -> vector association.
type Entry struct {
	ID     string
	Vector core.Vector
}

// Cache is the ordered in-memory embedding cache.
//
// Insertion order is kept explicitly and is the order of Matrix, Entries and
// the JSON encoding, so ranking ties resolve the same way on every run.
// All vectors share one width, fixed by the first vector stored.
//
// Cache is not safe for concurrent mutation. Only the coordinating goroutine
// of a run writes to it.
type Cache struct {
	entries *orderedmap.OrderedMap[string, core.Vector]
	dims    int
}

var _ json.Marshaler = (*Cache)(nil)
var _ json.Unmarshaler = (*Cache)(nil)

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: orderedmap.New[string, core.Vector]()}
}

// NewCacheFromEntries builds a cache from entries in order.
func NewCacheFromEntries(entries []Entry) (*Cache, error) {
	c := NewCache()
	if _, err := c.Merge(entries); err != nil {
		return nil, err
	}
	return c, nil
}

// Len returns the number of cached vectors.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// Dimensions returns the shared vector width, or 0 for an empty cache.
func (c *Cache) Dimensions() int {
	return c.dims
}

// Contains reports whether id has a cached vector.
func (c *Cache) Contains(id string) bool {
	_, ok := c.entries.Get(id)
	return ok
}

// Get returns the cached vector for id.
func (c *Cache) Get(id string) (core.Vector, bool) {
	return c.entries.Get(id)
}

// Entries iterates over the cache in insertion order.
func (c *Cache) Entries() iter.Seq2[string, core.Vector] {
	return func(yield func(string, core.Vector) bool) {
		for pair := c.entries.Oldest(); pair != nil; pair = pair.Next() {
			if !yield(pair.Key, pair.Value) {
				return
			}
		}
	}
}

// Matrix returns the ids and vectors in insertion order. Row i of the matrix
// belongs to ids[i].
func (c *Cache) Matrix() ([]string, []core.Vector) {
	ids := make([]string, 0, c.Len())
	rows := make([]core.Vector, 0, c.Len())
	for id, v := range c.Entries() {
		ids = append(ids, id)
		rows = append(rows, v)
	}
	return ids, rows
}

// Merge inserts entries whose ids are not yet cached and returns how many were
// added. Cached ids are left untouched; within entries the first occurrence
// of an id wins. If any vector has a different width than the cache, nothing
// is inserted and the error wraps core.ErrDimensionMismatch.
func (c *Cache) Merge(entries []Entry) (int, error) {
	dims, err := c.validate(entries)
	if err != nil {
		return 0, err
	}

	added := 0
	for _, e := range entries {
		if c.Contains(e.ID) {
			continue
		}
		c.entries.Set(e.ID, e.Vector)
		added++
	}
	if added > 0 {
		c.dims = dims
	}
	return added, nil
}

// Replace stores every entry, overwriting cached vectors in place. Existing
// ids keep their position; new ids are appended. Returns the number of
// overwritten entries. Width rules are the same as Merge.
func (c *Cache) Replace(entries []Entry) (int, error) {
	dims, err := c.validate(entries)
	if err != nil {
		return 0, err
	}

	replaced := 0
	for _, e := range entries {
		if _, present := c.entries.Set(e.ID, e.Vector); present {
			replaced++
		}
	}
	if len(entries) > 0 {
		c.dims = dims
	}
	return replaced, nil
}

// Subset returns a new cache holding only the given ids that are cached, in
// the order given. Vectors are shared with c.
func (c *Cache) Subset(ids []string) *Cache {
	out := NewCache()
	for _, id := range ids {
		if v, ok := c.entries.Get(id); ok {
			if _, dup := out.entries.Set(id, v); !dup {
				out.dims = len(v)
			}
		}
	}
	return out
}

// MarshalJSON encodes the cache as a single JSON object mapping id to vector,
// in insertion order.
func (c *Cache) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.entries)
}

// UnmarshalJSON replaces the cache contents with a decoded JSON object.
// Vectors of mixed width are rejected.
func (c *Cache) UnmarshalJSON(data []byte) error {
	decoded := orderedmap.New[string, core.Vector]()
	if err := json.Unmarshal(data, decoded); err != nil {
		return fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}

	dims := 0
	for pair := decoded.Oldest(); pair != nil; pair = pair.Next() {
		if dims == 0 {
			dims = len(pair.Value)
		}
		if err := core.ValidateVector(pair.Value, dims); err != nil {
			return fmt.Errorf("entry %q: %w", pair.Key, err)
		}
	}

	c.entries = decoded
	c.dims = dims
	return nil
}

func (c *Cache) validate(entries []Entry) (int, error) {
	vectors := make([]core.Vector, len(entries))
	for i, e := range entries {
		vectors[i] = e.Vector
	}
	dims, err := core.ValidateVectors(vectors, c.dims)
	if err != nil {
		return 0, fmt.Errorf("cache holds %d-dimensional vectors: %w", c.dims, err)
	}
	return dims, nil
}
