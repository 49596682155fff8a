package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/oppmatch/ai"
	"github.com/poiesic/oppmatch/batch"
	"github.com/poiesic/oppmatch/core"
	"github.com/poiesic/oppmatch/storage"
)

const (
	DefaultBatchSize     = 16
	DefaultWorkers       = 4
	DefaultMinTextLength = 10
)

// Pipeline embeds documents that are missing from an embedding cache.
//
// Batches are embedded concurrently on a bounded worker pool. Workers only
// call the provider and hand vectors back; the cache is written once, by the
// calling goroutine, after every batch has finished.
type Pipeline struct {
	provider      ai.Provider
	normalizer    TextNormalizer
	pool          *ants.Pool
	processor     *batch.Processor
	batchSize     int
	workers       int
	minTextLength int
	retry         batch.RetryPolicy
	normalize     bool
	progress      io.Writer
	logger        *slog.Logger
}

// Report summarizes one EmbedMissing or Reembed call.
type Report struct {
	Documents     int // documents offered
	InvalidID     int // skipped: blank id
	Duplicates    int // skipped: id seen earlier in the same call
	TooShort      int // skipped: normalized text below the minimum length
	AlreadyCached int // skipped by EmbedMissing: id already cached
	NotCached     int // skipped by Reembed: id not cached
	Embedded      int // vectors written to the cache
	Batches       int // provider batches dispatched
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithBatchSize sets how many texts go to the provider per call.
// Default is 16.
func WithBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			return fmt.Errorf("%w: batch size %d", ErrInvalidOption, size)
		}
		p.batchSize = size
		return nil
	}
}

// WithWorkers sets the worker pool size. Values below 1 become 1.
// Default is 4.
func WithWorkers(n int) Option {
	return func(p *Pipeline) error {
		if n < 1 {
			n = 1
		}
		p.workers = n
		return nil
	}
}

// WithMinTextLength sets the normalized length below which a document is
// not embedded. Default is 10.
func WithMinTextLength(n int) Option {
	return func(p *Pipeline) error {
		if n < 0 {
			return fmt.Errorf("%w: min text length %d", ErrInvalidOption, n)
		}
		p.minTextLength = n
		return nil
	}
}

// WithRetry retries failed provider calls up to maxAttempts times in total,
// waiting baseDelay before the first retry and doubling after each.
// Default is a single attempt.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(p *Pipeline) error {
		if maxAttempts < 1 {
			return batch.ErrInvalidMaxAttempts
		}
		p.retry = batch.RetryPolicy{MaxAttempts: maxAttempts, BaseDelay: baseDelay}
		return nil
	}
}

// WithNormalizedVectors scales stored vectors to unit length.
func WithNormalizedVectors(normalize bool) Option {
	return func(p *Pipeline) error {
		p.normalize = normalize
		return nil
	}
}

// WithProgress writes batch progress to w (typically os.Stderr).
func WithProgress(w io.Writer) Option {
	return func(p *Pipeline) error {
		p.progress = w
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates an embedding pipeline. Call Release when done.
func NewPipeline(provider ai.Provider, normalizer TextNormalizer, opts ...Option) (*Pipeline, error) {
	if provider == nil {
		return nil, ErrProviderRequired
	}
	if normalizer == nil {
		return nil, ErrNormalizerRequired
	}

	p := &Pipeline{
		provider:      provider,
		normalizer:    normalizer,
		batchSize:     DefaultBatchSize,
		workers:       DefaultWorkers,
		minTextLength: DefaultMinTextLength,
		retry:         batch.NoRetry,
		logger:        slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	p.logger = p.logger.With("component", "ingestion-pipeline")
	p.retry.Logger = p.logger

	processor, err := batch.NewProcessor(provider.Embedder(),
		batch.WithDimensions(provider.Dimensions()),
		batch.WithRetryPolicy(p.retry),
		batch.WithNormalize(p.normalize),
	)
	if err != nil {
		return nil, err
	}
	p.processor = processor

	pool, err := ants.NewPool(p.workers)
	if err != nil {
		return nil, err
	}
	p.pool = pool

	return p, nil
}

// Pending normalizes docs and returns, in input order, the texts that
// EmbedMissing would send to the provider.
func (p *Pipeline) Pending(docs []core.Document, cache *storage.Cache) ([]core.NormalizedText, *Report) {
	return p.selectTexts(docs, cache, false)
}

// EmbedMissing embeds every document that is long enough and not yet cached,
// then merges the new vectors into cache.
//
// On any batch failure no vector is merged and the error is returned; the
// cache is exactly as before the call. Running it again skips what is cached,
// so rerunning is the retry path.
func (p *Pipeline) EmbedMissing(ctx context.Context, docs []core.Document, cache *storage.Cache) (*Report, error) {
	items, report := p.Pending(docs, cache)
	if len(items) == 0 {
		p.logger.Info("no new documents to embed", "documents", report.Documents, "cached", report.AlreadyCached)
		return report, nil
	}
	if err := p.checkWidth(cache); err != nil {
		return report, err
	}

	entries, batches, err := p.dispatch(ctx, items, cache.Dimensions(), "Embedding")
	report.Batches = batches
	if err != nil {
		return report, err
	}

	added, err := cache.Merge(entries)
	if err != nil {
		return report, fmt.Errorf("failed to merge embeddings: %w", err)
	}
	report.Embedded = added

	p.logger.Info("embedded documents",
		"embedded", added, "batches", batches, "tooShort", report.TooShort,
		"cached", report.AlreadyCached, "cacheSize", cache.Len())
	return report, nil
}

// Reembed recomputes vectors for documents that are already cached and
// overwrites them in place. It is the explicit invalidation path after a
// model or cleaning change. Failure semantics match EmbedMissing.
func (p *Pipeline) Reembed(ctx context.Context, docs []core.Document, cache *storage.Cache) (*Report, error) {
	items, report := p.selectTexts(docs, cache, true)
	if len(items) == 0 {
		p.logger.Info("no cached documents to recompute", "documents", report.Documents)
		return report, nil
	}
	if err := p.checkWidth(cache); err != nil {
		return report, err
	}

	entries, batches, err := p.dispatch(ctx, items, cache.Dimensions(), "Re-embedding")
	report.Batches = batches
	if err != nil {
		return report, err
	}

	if _, err := cache.Replace(entries); err != nil {
		return report, fmt.Errorf("failed to replace embeddings: %w", err)
	}
	report.Embedded = len(entries)

	p.logger.Info("recomputed documents", "embedded", report.Embedded, "batches", batches)
	return report, nil
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}

// selectTexts normalizes docs and keeps those with a valid, first-seen id
// and enough text. With cached set, only ids already in cache are kept;
// otherwise only ids missing from it.
func (p *Pipeline) selectTexts(docs []core.Document, cache *storage.Cache, cached bool) ([]core.NormalizedText, *Report) {
	report := &Report{Documents: len(docs)}
	seen := make(map[string]struct{}, len(docs))
	items := make([]core.NormalizedText, 0, len(docs))

	for _, doc := range docs {
		if err := core.ValidateDocument(&doc); err != nil {
			report.InvalidID++
			continue
		}
		if _, dup := seen[doc.ID]; dup {
			report.Duplicates++
			continue
		}
		seen[doc.ID] = struct{}{}

		inCache := cache.Contains(doc.ID)
		switch {
		case inCache && !cached:
			report.AlreadyCached++
			continue
		case !inCache && cached:
			report.NotCached++
			continue
		}

		normalized := p.normalizer.Normalize(doc)
		if normalized.Length < p.minTextLength {
			report.TooShort++
			continue
		}
		items = append(items, normalized)
	}
	return items, report
}

// checkWidth rejects a run whose declared provider width differs from the
// width of a non-empty cache, before any provider call.
func (p *Pipeline) checkWidth(cache *storage.Cache) error {
	declared, cached := p.provider.Dimensions(), cache.Dimensions()
	if declared > 0 && cached > 0 && declared != cached {
		p.logger.Error("embedding width does not match cache", "declared", declared, "cache", cached)
		return fmt.Errorf("%w: provider declares %d dimensions, cache has %d",
			core.ErrDimensionMismatch, declared, cached)
	}
	return nil
}

type batchResult struct {
	index   int
	vectors []core.Vector
	err     error
}

// dispatch embeds items on the worker pool and returns one entry per item,
// in item order, after every submitted batch has finished. When dims is
// positive every vector must have that width.
func (p *Pipeline) dispatch(ctx context.Context, items []core.NormalizedText, dims int, label string) ([]storage.Entry, int, error) {
	batches := batch.Partition(items, p.batchSize)
	processor := p.processor.ExpectDimensions(dims)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tracker := batch.NewProgressTracker(p.progress, len(batches), batch.WithLabel(label))
	tracker.Start()

	// Buffered so a worker never blocks on send, even after the collector
	// has seen a failure.
	results := make(chan batchResult, len(batches))

	var failures, canceled []error
	submitted := 0
	for i, b := range batches {
		err := p.pool.Submit(func() {
			r := p.runBatch(ctx, processor, i, b)
			if r.err != nil {
				// Batches not yet started skip the provider.
				cancel()
			}
			results <- r
		})
		if err != nil {
			failures = append(failures, fmt.Errorf("failed to submit batch %d: %w", i, err))
			cancel()
			break
		}
		submitted++
	}

	// Join barrier: every submitted batch reports exactly once.
	vectors := make([][]core.Vector, len(batches))
	for range submitted {
		r := <-results
		switch {
		case r.err == nil:
			vectors[r.index] = r.vectors
			tracker.Increment(1)
		case errors.Is(r.err, context.Canceled):
			canceled = append(canceled, fmt.Errorf("batch %d: %w", r.index, r.err))
		default:
			failures = append(failures, fmt.Errorf("batch %d: %w", r.index, r.err))
		}
	}

	// Batches aborted by another batch's failure only add noise.
	if len(failures) == 0 {
		failures = canceled
	}
	tracker.Finish(len(failures) == 0)

	if len(failures) > 0 {
		p.logger.Error("embedding run failed", "batches", len(batches), "failed", len(failures), "err", failures[0])
		return nil, len(batches), errors.Join(failures...)
	}

	entries := make([]storage.Entry, 0, len(items))
	for i, b := range batches {
		for j, item := range b {
			entries = append(entries, storage.Entry{ID: item.SourceID, Vector: vectors[i][j]})
		}
	}
	return entries, len(batches), nil
}

// runBatch embeds one batch. A panic in the provider is returned as an error
// so the join barrier always completes.
func (p *Pipeline) runBatch(ctx context.Context, processor *batch.Processor, index int, items []core.NormalizedText) (res batchResult) {
	res.index = index
	defer func() {
		if r := recover(); r != nil {
			res.vectors = nil
			res.err = fmt.Errorf("%w: %v", ErrWorkerPanic, r)
		}
	}()

	if err := ctx.Err(); err != nil {
		res.err = err
		return res
	}

	texts := make([]string, len(items))
	for i, item := range items {
		texts[i] = item.Text
	}
	res.vectors, res.err = processor.Embed(ctx, texts)
	return res
}
