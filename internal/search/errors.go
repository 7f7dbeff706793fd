package search

import "errors"

var (
	// ErrNotInitialized is returned by Search before Initialize has completed.
	ErrNotInitialized = errors.New("search: orchestrator not initialized")
	// ErrEmptyQuery is returned when the normalized query is empty.
	ErrEmptyQuery = errors.New("search: empty query")
	// ErrSearchUnavailable is returned when the query vector could not be generated.
	// The underlying *embedding.GenerationError is wrapped alongside it.
	ErrSearchUnavailable = errors.New("search unavailable")
	// ErrMissingKeyFunc and ErrMissingTextFunc are returned by New for an incomplete Config.
	ErrMissingKeyFunc  = errors.New("search: Config.Key is required")
	ErrMissingTextFunc = errors.New("search: Config.Text is required")
)
