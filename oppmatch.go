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


// Package oppmatch matches government contracting opportunities to
// organizational capabilities using text embeddings.
//
// A Workspace ties together a persisted embedding cache, an embedding
// provider and the components that read and extend the cache.
package oppmatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/poiesic/oppmatch/ai"
	"github.com/poiesic/oppmatch/ai/openai"
	"github.com/poiesic/oppmatch/core"
	"github.com/poiesic/oppmatch/ingestion"
	"github.com/poiesic/oppmatch/search"
	"github.com/poiesic/oppmatch/storage"
	"github.com/poiesic/oppmatch/storage/badger"
	"github.com/poiesic/oppmatch/storage/jsonfile"
)

// StoreFormat selects how the embedding cache is persisted.
type StoreFormat string

const (
	// FormatAuto uses JSON for paths ending in ".json" and BadgerDB otherwise.
	FormatAuto   StoreFormat = ""
	FormatJSON   StoreFormat = "json"
	FormatBadger StoreFormat = "badger"
)

// ErrUnknownStoreFormat is returned for an unsupported StoreFormat.
var ErrUnknownStoreFormat = errors.New("unknown cache store format")

// Workspace owns one embedding cache for the duration of a run.
type Workspace struct {
	store        storage.Store
	cache        *storage.Cache
	provider     ai.Provider
	ownsProvider bool
	logger       *slog.Logger
}

// WorkspaceOption configures a Workspace.
type WorkspaceOption func(*workspaceOptions)

type workspaceOptions struct {
	aiConfig *ai.Config
	provider ai.Provider
	format   StoreFormat
	logger   *slog.Logger
}

// WithAIConfig sets the embedding service configuration.
// Default is ai.DefaultConfig().
func WithAIConfig(config *ai.Config) WorkspaceOption {
	return func(o *workspaceOptions) {
		o.aiConfig = config
	}
}

// WithProvider uses provider instead of building one from the AI config.
// The workspace does not close it.
func WithProvider(provider ai.Provider) WorkspaceOption {
	return func(o *workspaceOptions) {
		o.provider = provider
	}
}

// WithStoreFormat forces the cache persistence format.
func WithStoreFormat(format StoreFormat) WorkspaceOption {
	return func(o *workspaceOptions) {
		o.format = format
	}
}

// WithLogger sets the logger passed to every component.
func WithLogger(logger *slog.Logger) WorkspaceOption {
	return func(o *workspaceOptions) {
		o.logger = logger
	}
}

// OpenWorkspace opens the cache at cachePath and loads it. A missing or
// unreadable cache starts empty.
func OpenWorkspace(ctx context.Context, cachePath string, opts ...WorkspaceOption) (*Workspace, error) {
	options := &workspaceOptions{
		aiConfig: ai.DefaultConfig(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	provider, owns := options.provider, false
	if provider == nil {
		var err error
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			return nil, err
		}
		owns = true
	}

	store, err := openStore(cachePath, options, provider.Fingerprint())
	if err != nil {
		if owns {
			provider.Close()
		}
		return nil, err
	}

	cache, err := store.Load(ctx)
	if err != nil {
		store.Close()
		if owns {
			provider.Close()
		}
		return nil, err
	}

	return &Workspace{
		store:        store,
		cache:        cache,
		provider:     provider,
		ownsProvider: owns,
		logger:       options.logger.With("component", "workspace"),
	}, nil
}

func openStore(path string, options *workspaceOptions, fingerprint string) (storage.Store, error) {
	format := options.format
	if format == FormatAuto {
		format = FormatBadger
		if strings.EqualFold(filepath.Ext(path), ".json") {
			format = FormatJSON
		}
	}

	switch format {
	case FormatJSON:
		return jsonfile.NewStore(path, jsonfile.WithLogger(options.logger))
	case FormatBadger:
		return badger.OpenStore(path,
			badger.WithLogger(options.logger),
			badger.WithFingerprint(fingerprint),
		)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStoreFormat, format)
	}
}

// Cache returns the loaded cache. Changes are persisted by Save.
func (w *Workspace) Cache() *storage.Cache {
	return w.cache
}

// Provider returns the embedding provider.
func (w *Workspace) Provider() ai.Provider {
	return w.provider
}

// Save persists the cache.
func (w *Workspace) Save(ctx context.Context) error {
	return w.store.Save(ctx, w.cache)
}

// Close releases the store and, when the workspace created it, the provider.
func (w *Workspace) Close() error {
	if w.ownsProvider {
		if err := w.provider.Close(); err != nil {
			w.logger.Error("error closing embedding provider", "err", err)
		}
	}
	if err := w.store.Close(); err != nil {
		w.logger.Error("error closing cache store", "err", err)
		return err
	}
	return nil
}

// NewPipeline creates an embedding pipeline over this workspace's provider.
func (w *Workspace) NewPipeline(normalizer ingestion.TextNormalizer, opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	return ingestion.NewPipeline(w.provider, normalizer, opts...)
}

// NewSearcher creates a searcher over this workspace's provider.
func (w *Workspace) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	return search.NewSearcher(w.provider, opts...)
}

// NewMatcher creates a capability matcher over this workspace's provider.
func (w *Workspace) NewMatcher(opts ...search.Option) (*search.Matcher, error) {
	return search.NewMatcher(w.provider, opts...)
}

// RunCache returns the cached vectors of docs, in document order.
// Matching and the filtered output are restricted to it.
func (w *Workspace) RunCache(docs []core.Document) *storage.Cache {
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	return w.cache.Subset(ids)
}

// WriteFilteredEmbeddings writes, as a JSON object, the cached vectors of
// docs followed by the capability pseudo points derived from matches.
func (w *Workspace) WriteFilteredEmbeddings(ctx context.Context, path string, docs []core.Document, matches []core.MatchResult) error {
	filtered := w.RunCache(docs)
	if _, err := filtered.Merge(search.PseudoPoints(matches, filtered)); err != nil {
		return err
	}

	out, err := jsonfile.NewStore(path, jsonfile.WithLogger(w.logger))
	if err != nil {
		return err
	}
	defer out.Close()
	if err := out.Save(ctx, filtered); err != nil {
		return err
	}
	w.logger.Info("wrote filtered embeddings", "path", path, "entries", filtered.Len())
	return nil
}
