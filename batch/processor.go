package batch

import (
	"context"
	"fmt"

	"github.com/poiesic/oppmatch/ai"
	"github.com/poiesic/oppmatch/core"
)

// Processor embeds one batch of texts and checks the provider's answer.
// It holds no mutable state and is safe for concurrent use.
type Processor struct {
	embedder  ai.Embedder
	dims      int
	retry     RetryPolicy
	normalize bool
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithDimensions sets the width every returned vector must have.
// 0 only requires the vectors of one batch to agree with each other.
func WithDimensions(dims int) ProcessorOption {
	return func(p *Processor) {
		p.dims = dims
	}
}

// WithRetryPolicy sets how provider failures are retried. Default NoRetry.
func WithRetryPolicy(policy RetryPolicy) ProcessorOption {
	return func(p *Processor) {
		p.retry = policy
	}
}

// WithNormalize scales returned vectors to unit length.
func WithNormalize(normalize bool) ProcessorOption {
	return func(p *Processor) {
		p.normalize = normalize
	}
}

// NewProcessor creates a batch processor around embedder.
func NewProcessor(embedder ai.Embedder, opts ...ProcessorOption) (*Processor, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	p := &Processor{
		embedder: embedder,
		retry:    NoRetry,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.retry.MaxAttempts <= 0 {
		return nil, ErrInvalidMaxAttempts
	}
	return p, nil
}

// ExpectDimensions returns a copy of p that requires vectors of width dims.
// A dims of 0 returns p unchanged.
func (p *Processor) ExpectDimensions(dims int) *Processor {
	if dims <= 0 || dims == p.dims {
		return p
	}
	cp := *p
	cp.dims = dims
	return &cp
}

// Embed returns one vector per text, in input order.
//
// A provider answer with the wrong number of vectors fails with
// ErrCountMismatch; vectors of the wrong width fail with
// core.ErrDimensionMismatch. Neither is retried.
func (p *Processor) Embed(ctx context.Context, texts []string) ([]core.Vector, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var vectors []core.Vector
	err := RetryWithBackoff(ctx, func(ctx context.Context) error {
		raw, err := p.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return err
		}
		if len(raw) != len(texts) {
			return Permanent(fmt.Errorf("%w: expected %d, got %d", ErrCountMismatch, len(texts), len(raw)))
		}

		out := make([]core.Vector, len(raw))
		for i, v := range raw {
			out[i] = core.Vector(v)
		}
		if _, err := core.ValidateVectors(out, p.dims); err != nil {
			return Permanent(err)
		}
		vectors = out
		return nil
	}, p.retry)
	if err != nil {
		return nil, fmt.Errorf("failed to embed batch of %d: %w", len(texts), err)
	}

	if p.normalize {
		for i, v := range vectors {
			vectors[i] = core.NormalizeVector(v)
		}
	}
	return vectors, nil
}
