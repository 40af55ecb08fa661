package bvh

import (
	"math/rand"
	"slices"
	"testing"
)

func TestSortReferences(t *testing.T) {
	specs := []int{10, sortThreshold - 1, 3*sortThreshold + 17}

	for idx, n := range specs {
		rng := rand.New(rand.NewSource(int64(n)))
		refs, _ := randomReferences(rng, n)
		// Force center ties so the identity tie breakers are exercised.
		for i := 0; i < n; i += 3 {
			refs[i].Bounds.Min[1] = 0
			refs[i].Bounds.Max[1] = 1
		}

		expected := slices.Clone(refs)
		c := &referenceCompare{dim: 1}
		c.sortSequential(expected)

		sortReferences(refs, 0, n, 1, nil, nil)
		for i := 1; i < n; i++ {
			if c.compare(&refs[i-1], &refs[i]) > 0 {
				t.Fatalf("[spec %d] expected references %d and %d to be ordered", idx, i-1, i)
			}
		}
		for i := range refs {
			if refs[i] != expected[i] {
				t.Fatalf("[spec %d] expected parallel and sequential sort to agree at %d", idx, i)
			}
		}
	}
}

func TestSortReferencesSubrange(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	refs, _ := randomReferences(rng, 100)
	untouched := slices.Clone(refs)

	sortReferences(refs, 20, 60, 0, nil, nil)
	for i := 0; i < 100; i++ {
		if i >= 20 && i < 60 {
			continue
		}
		if refs[i] != untouched[i] {
			t.Fatalf("expected reference %d outside the sorted range to be untouched", i)
		}
	}
	c := &referenceCompare{dim: 0}
	for i := 21; i < 60; i++ {
		if c.compare(&refs[i-1], &refs[i]) > 0 {
			t.Fatalf("expected references %d and %d to be ordered", i-1, i)
		}
	}
}
