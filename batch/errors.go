package batch

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrCountMismatch is returned when the provider answers a batch with a
	// different number of vectors than texts sent.
	ErrCountMismatch = errors.New("embedding count mismatch")

	// ErrEmbedderRequired is returned when a Processor is built without an embedder.
	ErrEmbedderRequired = errors.New("embedder is required")
)
