package search

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/poiesic/oppmatch/ai"
	"github.com/poiesic/oppmatch/batch"
	"github.com/poiesic/oppmatch/core"
	"github.com/poiesic/oppmatch/storage"
)

// DefaultThreshold is the minimum cosine similarity kept by a query unless
// overridden.
const DefaultThreshold = 0.5

// Labeler returns a display label for a document id, such as its title.
type Labeler func(id string) string

// QueryOptions controls which ranked documents a query returns.
// The zero value keeps every document with non-negative similarity; start
// from DefaultQueryOptions for the usual 0.5 cutoff.
type QueryOptions struct {
	// Threshold is the inclusive minimum cosine similarity, in [-1, 1].
	Threshold float64
	// TopK limits the number of results when positive.
	TopK int
}

// DefaultQueryOptions returns options with DefaultThreshold and no limit.
func DefaultQueryOptions() QueryOptions {
	return QueryOptions{Threshold: DefaultThreshold}
}

// Validate checks the threshold range and the result limit.
func (o QueryOptions) Validate() error {
	if math.IsNaN(o.Threshold) || o.Threshold < -1 || o.Threshold > 1 {
		return fmt.Errorf("%w: threshold %v outside [-1, 1]", ErrInvalidQuery, o.Threshold)
	}
	if o.TopK < 0 {
		return fmt.Errorf("%w: negative result limit %d", ErrInvalidQuery, o.TopK)
	}
	return nil
}

type settings struct {
	labeler Labeler
	logger  *slog.Logger
}

// Option configures a Searcher or Matcher.
type Option func(*settings) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithLabeler sets how result labels are looked up. Without one, labels are
// empty. The Matcher ignores it.
func WithLabeler(labeler Labeler) Option {
	return func(s *settings) error {
		s.labeler = labeler
		return nil
	}
}

func newSettings(component string, opts []Option) (*settings, error) {
	s := &settings{logger: slog.Default()}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", component)
	return s, nil
}

func newProcessor(provider ai.Provider) (*batch.Processor, error) {
	return batch.NewProcessor(provider.Embedder(), batch.WithDimensions(provider.Dimensions()))
}

// Searcher answers free-text similarity queries over an embedding cache.
type Searcher struct {
	processor *batch.Processor
	labeler   Labeler
	logger    *slog.Logger
}

// NewSearcher creates a new searcher.
func NewSearcher(provider ai.Provider, opts ...Option) (*Searcher, error) {
	if provider == nil {
		return nil, ErrProviderRequired
	}
	s, err := newSettings("searcher", opts)
	if err != nil {
		return nil, err
	}
	processor, err := newProcessor(provider)
	if err != nil {
		return nil, err
	}
	return &Searcher{
		processor: processor,
		labeler:   s.labeler,
		logger:    s.logger,
	}, nil
}

// Query ranks every cached document against text.
// No document meeting the threshold is an empty result, not an error.
// opts is used as given; pass DefaultQueryOptions() for the default threshold.
func (s *Searcher) Query(ctx context.Context, cache *storage.Cache, text string, opts QueryOptions) ([]core.SearchResult, error) {
	return s.QueryWithMonitor(ctx, cache, text, opts, nil)
}

// QueryWithMonitor is Query with callbacks at each stage.
func (s *Searcher) QueryWithMonitor(ctx context.Context, cache *storage.Cache, text string, opts QueryOptions, monitor SearchMonitor) ([]core.SearchResult, error) {
	// Use noop monitor if none provided
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty query", ErrInvalidQuery)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	monitor.Start(text, opts)

	vectors, err := s.processor.Embed(ctx, []string{text})
	if err != nil {
		s.logger.Error("error generating embedding for query", "query", text, "err", err)
		return nil, err
	}
	query := vectors[0]
	monitor.AfterQueryEmbedding(query)

	if err := checkWidth(cache, query); err != nil {
		return nil, err
	}

	ids, matrix := cache.Matrix()
	ranked := Rank(ids, matrix, query, opts.Threshold, opts.TopK)
	monitor.AfterScoring(len(ids), len(ranked))

	results := make([]core.SearchResult, len(ranked))
	for i, hit := range ranked {
		results[i] = core.SearchResult{ScoredDocument: hit}
		if s.labeler != nil {
			results[i].Label = s.labeler(hit.DocumentID)
		}
	}

	if len(results) == 0 {
		s.logger.Info("no documents met the threshold", "threshold", opts.Threshold, "documents", len(ids))
	} else {
		s.logger.Debug("query ranked", "documents", len(ids), "results", len(results))
	}
	monitor.Finish(results)
	return results, nil
}

// checkWidth rejects a query vector whose width differs from a non-empty
// cache's.
func checkWidth(cache *storage.Cache, query core.Vector) error {
	if cache.Len() > 0 && len(query) != cache.Dimensions() {
		return fmt.Errorf("%w: query has %d dimensions, cache has %d",
			core.ErrDimensionMismatch, len(query), cache.Dimensions())
	}
	return nil
}
