package ingestion

import "errors"

var (
	// ErrProviderRequired is returned when an embedding provider is not provided.
	ErrProviderRequired = errors.New("embedding provider required")

	// ErrNormalizerRequired is returned when a text normalizer is not provided.
	ErrNormalizerRequired = errors.New("text normalizer required")

	// ErrInvalidOption is returned when a pipeline option has an invalid value.
	ErrInvalidOption = errors.New("invalid pipeline option")

	// ErrWorkerPanic is returned when a batch worker panics.
	ErrWorkerPanic = errors.New("embedding worker panicked")
)
