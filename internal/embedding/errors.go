package embedding

import "errors"

var (
	// ErrUnknownProvider is returned by New for a provider name it does not recognise.
	ErrUnknownProvider = errors.New("unknown embedding provider")
	// ErrEmptyEmbedding is returned when a backend answers without a vector.
	ErrEmptyEmbedding = errors.New("embedder returned no vector")
	// ErrUnexpectedDimensions is returned when a backend's vector length differs from the
	// configured dimensions.
	ErrUnexpectedDimensions = errors.New("embedder returned unexpected dimensions")
	// ErrInvalidAttempts is returned when a retry decorator is built with fewer than one attempt.
	ErrInvalidAttempts = errors.New("retry attempts must be at least 1")
)
