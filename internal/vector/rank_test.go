package vector

import (
	"errors"
	"math"
	"math/rand"
	"reflect"
	"testing"
)

func TestRankTopK_endToEndExample(t *testing.T) {
	candidates := []Candidate[string]{
		{Item: "east", Vector: []float32{1, 0}},
		{Item: "north", Vector: []float32{0, 1}},
		{Item: "mostly-east", Vector: []float32{0.9, 0.1}},
	}
	got, err := RankTopK([]float32{1, 0}, candidates, 0.5, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	if got[0].Item != "east" || math.Abs(got[0].Score-1) > 1e-9 {
		t.Errorf("first = %+v, want east with score 1", got[0])
	}
	if got[1].Item != "mostly-east" || math.Abs(got[1].Score-0.9939) > 1e-3 {
		t.Errorf("second = %+v, want mostly-east with score ~0.994", got[1])
	}
}

func TestRankTopK_thresholdFiltersEverything(t *testing.T) {
	candidates := []Candidate[int]{
		{Item: 1, Vector: []float32{1, 1}},
		{Item: 2, Vector: []float32{0, 1}},
	}
	// best similarity to {1,0} is ~0.707
	got, err := RankTopK([]float32{1, 0}, candidates, 0.9, NoLimit)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil result, got %#v", got)
	}
}

func TestRankTopK_thresholdIsInclusive(t *testing.T) {
	candidates := []Candidate[int]{{Item: 1, Vector: []float32{0, 1}}}
	got, err := RankTopK([]float32{1, 0}, candidates, 0, NoLimit)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Errorf("score equal to threshold must be kept, got %v", got)
	}
}

func TestRankTopK_nonFiniteVectorNeverOutranks(t *testing.T) {
	candidates := []Candidate[string]{
		{Item: "broken", Vector: []float32{float32(math.NaN()), 0}},
		{Item: "east", Vector: []float32{1, 0}},
		{Item: "overflow", Vector: []float32{float32(math.Inf(1)), 0}},
	}
	got, err := RankTopK([]float32{1, 0}, candidates, 0.5, NoLimit)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Item != "east" {
		t.Fatalf("expected only east, got %+v", got)
	}
	for _, s := range got {
		if math.IsNaN(s.Score) {
			t.Fatalf("NaN score for %v", s.Item)
		}
	}
}

func TestRankTopK_maxResults(t *testing.T) {
	// Distinct scores: angle grows with i.
	candidates := make([]Candidate[int], 5)
	for i := range candidates {
		candidates[i] = Candidate[int]{Item: i, Vector: []float32{1, float32(4 - i)}}
	}
	got, err := RankTopK([]float32{0, 1}, candidates, -1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	if got[0].Item != 0 || got[1].Item != 1 {
		t.Errorf("got items %d,%d want 0,1", got[0].Item, got[1].Item)
	}
	if got[0].Score <= got[1].Score {
		t.Errorf("results not descending: %v", got)
	}
}

func TestRankTopK_tiesKeepInputOrder(t *testing.T) {
	candidates := []Candidate[string]{
		{Item: "a", Vector: []float32{1, 1}},
		{Item: "b", Vector: []float32{2, 2}},
		{Item: "c", Vector: []float32{3, 3}},
		{Item: "d", Vector: []float32{1, 0}},
	}
	got, err := RankTopK([]float32{1, 1}, candidates, 0, NoLimit)
	if err != nil {
		t.Fatal(err)
	}
	var order []string
	for _, s := range got {
		order = append(order, s.Item)
	}
	if want := []string{"a", "b", "c", "d"}; !reflect.DeepEqual(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestRankTopK_emptyAndImmutable(t *testing.T) {
	got, err := RankTopK[int]([]float32{1}, nil, 0, 3)
	if err != nil || len(got) != 0 {
		t.Fatalf("empty candidates: got %v, %v", got, err)
	}

	candidates := []Candidate[int]{
		{Item: 0, Vector: []float32{0, 1}},
		{Item: 1, Vector: []float32{1, 0}},
	}
	before := append([]Candidate[int](nil), candidates...)
	if _, err := RankTopK([]float32{1, 0}, candidates, 0, NoLimit); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(before, candidates) {
		t.Error("RankTopK modified its input")
	}
}

func TestRankTopK_dimensionMismatch(t *testing.T) {
	candidates := []Candidate[int]{
		{Item: 0, Vector: []float32{1, 0}},
		{Item: 1, Vector: []float32{1, 0, 0}},
	}
	_, err := RankTopK([]float32{1, 0}, candidates, 0, NoLimit)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestRankTopK_heapMatchesSort(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	candidates := make([]Candidate[int], 500)
	for i := range candidates {
		v := make([]float32, 8)
		for j := range v {
			// coarse values so that exact ties occur
			v[j] = float32(rng.Intn(3) - 1)
		}
		candidates[i] = Candidate[int]{Item: i, Vector: v}
	}
	query := []float32{1, 0, -1, 1, 0, 1, 0, 0}

	for _, k := range []int{1, 5, 20, 100} {
		viaHeap, err := rankHeap(query, candidates, 0.1, k)
		if err != nil {
			t.Fatal(err)
		}
		viaSort, err := rankSort(query, candidates, 0.1, k)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(viaHeap, viaSort) {
			t.Errorf("k=%d: heap and sort disagree", k)
		}
	}
}

func BenchmarkRankTopK(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	const dims = 384
	candidates := make([]Candidate[int], 10000)
	for i := range candidates {
		v := make([]float32, dims)
		for j := range v {
			v[j] = rng.Float32()*2 - 1
		}
		candidates[i] = Candidate[int]{Item: i, Vector: v}
	}
	query := candidates[0].Vector
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := RankTopK(query, candidates, 0.1, 20); err != nil {
			b.Fatal(err)
		}
	}
}
