package search

import (
	"iter"
	"slices"
)

// ItemSource enumerates the corpus. Items may be called once per search pass and must be
// safe to call concurrently.
type ItemSource[T any] interface {
	Items() iter.Seq[T]
}

// SliceSource is a fixed in-memory corpus.
type SliceSource[T any] []T

// Items yields the slice in order.
func (s SliceSource[T]) Items() iter.Seq[T] {
	return slices.Values(s)
}

// Len returns the number of items.
func (s SliceSource[T]) Len() int {
	return len(s)
}
