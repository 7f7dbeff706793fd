package vector

import (
	"container/heap"
	"sort"
)

// NoLimit passed as maxResults keeps every candidate that meets the threshold.
const NoLimit = 0

// Candidate pairs an item with its embedding.
type Candidate[T any] struct {
	Item   T
	Vector []float32
}

// Scored is a ranked candidate. Index is the candidate's position in the input slice.
type Scored[T any] struct {
	Item  T
	Score float64
	Index int
}

// better orders by score descending, then input position ascending.
func better[T any](a, b Scored[T]) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Index < b.Index
}

// RankTopK scores every candidate against query, drops those scoring below threshold and
// returns the rest by descending score, ties kept in input order. maxResults <= 0 means no
// limit. The candidates slice is not modified. Any dimension mismatch fails the whole call.
func RankTopK[T any](query []float32, candidates []Candidate[T], threshold float64, maxResults int) ([]Scored[T], error) {
	if len(candidates) == 0 {
		return []Scored[T]{}, nil
	}
	// A bounded heap only pays off when K is much smaller than the candidate set.
	if maxResults > 0 && maxResults*4 < len(candidates) {
		return rankHeap(query, candidates, threshold, maxResults)
	}
	return rankSort(query, candidates, threshold, maxResults)
}

func rankSort[T any](query []float32, candidates []Candidate[T], threshold float64, maxResults int) ([]Scored[T], error) {
	scored := make([]Scored[T], 0, len(candidates))
	for i, c := range candidates {
		s, err := Cosine(query, c.Vector)
		if err != nil {
			return nil, err
		}
		if s < threshold {
			continue
		}
		scored = append(scored, Scored[T]{Item: c.Item, Score: s, Index: i})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if maxResults > 0 && len(scored) > maxResults {
		scored = scored[:maxResults]
	}
	return scored, nil
}

func rankHeap[T any](query []float32, candidates []Candidate[T], threshold float64, k int) ([]Scored[T], error) {
	h := &worstFirst[T]{items: make([]Scored[T], 0, k)}
	for i, c := range candidates {
		s, err := Cosine(query, c.Vector)
		if err != nil {
			return nil, err
		}
		if s < threshold {
			continue
		}
		cur := Scored[T]{Item: c.Item, Score: s, Index: i}
		if h.Len() < k {
			heap.Push(h, cur)
			continue
		}
		if better(cur, h.items[0]) {
			h.items[0] = cur
			heap.Fix(h, 0)
		}
	}
	out := h.items
	sort.Slice(out, func(i, j int) bool { return better(out[i], out[j]) })
	return out, nil
}

// worstFirst is a heap whose root is the lowest-ranked kept candidate.
type worstFirst[T any] struct {
	items []Scored[T]
}

func (h *worstFirst[T]) Len() int           { return len(h.items) }
func (h *worstFirst[T]) Less(i, j int) bool { return better(h.items[j], h.items[i]) }
func (h *worstFirst[T]) Swap(i, j int)      { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *worstFirst[T]) Push(x any)         { h.items = append(h.items, x.(Scored[T])) }
func (h *worstFirst[T]) Pop() any {
	n := len(h.items)
	x := h.items[n-1]
	h.items = h.items[:n-1]
	return x
}
