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


// Package storage provides the embedding cache and its persistence abstraction.
//
// Cache is the ordered in-memory mapping from document id to vector. Store
// loads and saves a Cache; implementations live in sub-packages:
//
//   - storage/jsonfile: a single JSON object file, replaced atomically by rename
//   - storage/badger: a BadgerDB directory, replaced atomically by generation switch
//
// # Constructor Return Type Pattern
//
// Public store constructors return the storage.Store interface:
//
//	store, err := jsonfile.NewStore("embeddings.json")  // returns storage.Store
//
// # Usage
//
//	cache, err := store.Load(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	added, err := cache.Merge(entries)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = store.Save(ctx, cache)
//
// # Invariants
//
// Every vector in a Cache has the same width. Merge never overwrites a cached
// id; Replace is the explicit recomputation path. Neither mutates the cache
// when any entry has the wrong width.
//
// # Thread Safety
//
// Cache is not safe for concurrent mutation. There is exactly one writer per
// cache and per persisted file.
package storage
