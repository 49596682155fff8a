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


package storage

import (
	"fmt"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/oppmatch/core"
)

// Binary entry layout: id (length-prefixed string), component count (varint),
// then each component as a fixed-width float32.

// EntrySize returns the encoded size of e.
func EntrySize(e Entry) int {
	size := ord.String.Size(e.ID) + varint.PositiveInt.Size(len(e.Vector))
	for _, f := range e.Vector {
		size += raw.Float32.Size(f)
	}
	return size
}

// MarshalEntry serializes an Entry to bytes.
func MarshalEntry(e Entry) []byte {
	buf := make([]byte, EntrySize(e))
	n := ord.String.Marshal(e.ID, buf)
	n += varint.PositiveInt.Marshal(len(e.Vector), buf[n:])
	for _, f := range e.Vector {
		n += raw.Float32.Marshal(f, buf[n:])
	}
	return buf
}

// UnmarshalEntry deserializes an Entry from bytes.
func UnmarshalEntry(data []byte) (Entry, error) {
	id, n, err := ord.String.Unmarshal(data)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: id: %w", ErrSerializationFailed, err)
	}

	count, m, err := varint.PositiveInt.Unmarshal(data[n:])
	if err != nil {
		return Entry{}, fmt.Errorf("%w: length: %w", ErrSerializationFailed, err)
	}
	n += m

	// Each component takes 4 bytes; reject before allocating.
	if count < 0 || count > (len(data)-n)/4 {
		return Entry{}, fmt.Errorf("%w: entry %q declares %d components", ErrTruncatedData, id, count)
	}

	vec := make(core.Vector, count)
	for i := range vec {
		f, m, err := raw.Float32.Unmarshal(data[n:])
		if err != nil {
			return Entry{}, fmt.Errorf("%w: component %d: %w", ErrSerializationFailed, i, err)
		}
		vec[i] = f
		n += m
	}
	return Entry{ID: id, Vector: vec}, nil
}
