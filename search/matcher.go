package search

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/poiesic/oppmatch/ai"
	"github.com/poiesic/oppmatch/batch"
	"github.com/poiesic/oppmatch/core"
	"github.com/poiesic/oppmatch/storage"
)

// DefaultMatchesPerCapability is how many documents Match picks per
// capability when topK is 0.
const DefaultMatchesPerCapability = 1

// Matcher finds the nearest cached documents for each capability.
type Matcher struct {
	processor *batch.Processor
	logger    *slog.Logger
}

// NewMatcher creates a new matcher.
func NewMatcher(provider ai.Provider, opts ...Option) (*Matcher, error) {
	if provider == nil {
		return nil, ErrProviderRequired
	}
	s, err := newSettings("matcher", opts)
	if err != nil {
		return nil, err
	}
	processor, err := newProcessor(provider)
	if err != nil {
		return nil, err
	}
	return &Matcher{processor: processor, logger: s.logger}, nil
}

// Match embeds all capabilities in one batch and returns, for each in input
// order, the topK most similar cached documents. Equal scores go to the
// document inserted into the cache first. No threshold applies.
func (m *Matcher) Match(ctx context.Context, capabilities []core.Capability, cache *storage.Cache, topK int) ([]core.MatchResult, error) {
	if topK < 0 {
		return nil, fmt.Errorf("%w: negative matches per capability %d", ErrInvalidQuery, topK)
	}
	if topK == 0 {
		topK = DefaultMatchesPerCapability
	}
	if len(capabilities) == 0 {
		m.logger.Info("no capabilities to match")
		return nil, nil
	}

	texts := make([]string, len(capabilities))
	for i, c := range capabilities {
		texts[i] = c.Text
	}
	vectors, err := m.processor.Embed(ctx, texts)
	if err != nil {
		m.logger.Error("error embedding capabilities", "count", len(texts), "err", err)
		return nil, err
	}
	if err := checkWidth(cache, vectors[0]); err != nil {
		return nil, err
	}

	ids, matrix := cache.Matrix()
	results := make([]core.MatchResult, len(capabilities))
	for i, c := range capabilities {
		results[i] = core.MatchResult{
			Query:  c.Text,
			Ranked: Rank(ids, matrix, vectors[i], math.Inf(-1), topK),
		}
	}

	m.logger.Info("matched capabilities", "capabilities", len(capabilities), "documents", len(ids), "perCapability", topK)
	return results, nil
}

// CapabilityMap returns, for each capability, the ids of its matched
// documents keyed by core.CapabilityKey of the capability text.
func CapabilityMap(results []core.MatchResult) map[string][]string {
	out := make(map[string][]string, len(results))
	for _, r := range results {
		key := core.CapabilityKey(r.Query)
		out[key] = append(out[key], r.DocumentIDs()...)
	}
	return out
}

// PseudoPoints returns one entry per distinct matched document, keyed by
// core.CapabilityKey of the document id and holding the document's cached
// vector. Entries follow match order. Matched ids missing from cache are
// skipped.
func PseudoPoints(results []core.MatchResult, cache *storage.Cache) []storage.Entry {
	seen := make(map[string]struct{})
	var entries []storage.Entry
	for _, r := range results {
		for _, hit := range r.Ranked {
			key := core.CapabilityKey(hit.DocumentID)
			if _, dup := seen[key]; dup {
				continue
			}
			vec, ok := cache.Get(hit.DocumentID)
			if !ok {
				continue
			}
			seen[key] = struct{}{}
			entries = append(entries, storage.Entry{ID: key, Vector: vec})
		}
	}
	return entries
}
