package bvh

import (
	"github.com/achilleasa/polaris-bvh/types"
)

// mixedSplit compares the best object split, the best spatial split and
// the cost of keeping the range as a leaf.
type mixedSplit struct {
	object     objectSplit
	spatial    spatialSplit
	hasSpatial bool

	leafSAH float32
	nodeSAH float32
	minSAH  float32
	noSplit bool

	bounds types.BBox
}

// Evaluate split candidates for a range. When space is not nil, candidates
// are evaluated inside that oriented space and spatial splits are skipped.
func (b *builder) findMixedSplit(storage *buildStorage, r Range, refs []Reference, level int, space *types.Transform) mixedSplit {
	var m mixedSplit
	if space == nil {
		m.bounds = r.Bounds
	} else {
		m.bounds = b.unaligned.rangeBounds(refs, r.Start, r.End(), space)
	}

	area := m.bounds.SafeArea()
	m.leafSAH = area * b.params.PrimitiveCost(r.Size)
	m.nodeSAH = area * b.params.NodeCost(2)

	m.object = b.findObjectSplit(storage, r, refs, m.nodeSAH, space)

	if space == nil && b.params.UseSpatialSplit && level < b.params.MaxSpatialDepth {
		overlap := types.IntersectBBox(m.object.leftBounds, m.object.rightBounds)
		if overlap.SafeArea() >= b.spatialMinOverlap {
			m.spatial = b.findSpatialSplit(storage, r, refs, m.nodeSAH)
			m.hasSpatial = true
		}
	}

	m.minSAH = min(m.leafSAH, m.object.sah)
	if m.hasSpatial {
		m.minSAH = min(m.minSAH, m.spatial.sah)
	}
	m.noSplit = m.minSAH == m.leafSAH && b.rangeWithinMaxLeafSize(r, refs)
	return m
}

// Apply the cheapest split. A spatial split that leaves either side empty
// is replaced by the object split.
func (m *mixedSplit) split(b *builder, storage *buildStorage, refs *[]Reference, r Range) (left, right Range) {
	if m.hasSpatial && m.minSAH == m.spatial.sah {
		left, right = b.applySpatialSplit(&m.spatial, storage, refs, r)
	}
	if left.Size == 0 || right.Size == 0 {
		left, right = m.object.split(*refs, r)
	}
	return left, right
}
