package bvh

import (
	"strings"
	"testing"

	"github.com/achilleasa/polaris-bvh/types"
)

func TestCollectStats(t *testing.T) {
	params := DefaultParams()
	params.MaxTriangleLeafSize = 1
	b := buildBVH(t, params, triangleObjects([]types.Vec3{{0, 0, 0}, {4, 0, 0}, {8, 0, 0}, {12, 0, 0}}, 1))

	stats := b.Stats()
	if stats.Nodes != 7 || stats.InnerNodes != 3 || stats.LeafNodes != 4 {
		t.Fatalf("expected 7 nodes (3 inner, 4 leaves); got %d (%d inner, %d leaves)", stats.Nodes, stats.InnerNodes, stats.LeafNodes)
	}
	if stats.MaxDepth != 2 {
		t.Fatalf("expected max depth 2; got %d", stats.MaxDepth)
	}
	if stats.UnalignedNodes != 0 {
		t.Fatalf("expected no unaligned nodes; got %d", stats.UnalignedNodes)
	}

	// Root traversal plus two visits to each half of the tree and one
	// primitive test per leaf, weighted by area.
	if stats.SAHCost <= params.Cost(2, 0) {
		t.Fatalf("expected SAH cost to exceed the root traversal cost; got %f", stats.SAHCost)
	}
}

func TestStatsTable(t *testing.T) {
	stats := Stats{
		Nodes:              12345,
		LeafNodes:          6173,
		InnerNodes:         6172,
		Primitives:         1200,
		OriginalPrimitives: 1000,
		Duplicates:         200,
	}

	table := stats.Table()
	for _, exp := range []string{"12,345", "6,173", "1,200", "(20.0%)", "Build time"} {
		if !strings.Contains(table, exp) {
			t.Fatalf("expected stats table to contain %q; got:\n%s", exp, table)
		}
	}
}
