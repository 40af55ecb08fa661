package bvh

import (
	"github.com/chewxy/math32"

	"github.com/achilleasa/polaris-bvh/types"
)

// objectSplit finds the best partition of a sorted range into two
// contiguous halves, evaluated with a full SAH sweep along each axis.
type objectSplit struct {
	sah     float32
	dim     int
	numLeft int

	leftBounds  types.BBox
	rightBounds types.BBox

	unaligned *unalignedHeuristic
	space     *types.Transform
}

func (b *builder) findObjectSplit(storage *buildStorage, r Range, refs []Reference, nodeSAH float32, space *types.Transform) objectSplit {
	split := objectSplit{
		sah:         math32.MaxFloat32,
		leftBounds:  types.EmptyBBox(),
		rightBounds: types.EmptyBBox(),
		unaligned:   b.unaligned,
		space:       space,
	}

	rightBounds := storage.rightBoundsBuffer(r.Size)
	rangeRefs := refs[r.Start:r.End()]
	for dim := 0; dim < 3; dim++ {
		sortReferences(refs, r.Start, r.End(), dim, b.unaligned, space)

		bounds := types.EmptyBBox()
		for i := r.Size - 1; i > 0; i-- {
			bounds.GrowBox(split.primBounds(&rangeRefs[i]))
			rightBounds[i-1] = bounds
		}

		leftBounds := types.EmptyBBox()
		for i := 1; i < r.Size; i++ {
			leftBounds.GrowBox(split.primBounds(&rangeRefs[i-1]))
			sah := nodeSAH +
				leftBounds.SafeArea()*b.params.PrimitiveCost(i) +
				rightBounds[i-1].SafeArea()*b.params.PrimitiveCost(r.Size-i)
			if sah < split.sah {
				split.sah = sah
				split.dim = dim
				split.numLeft = i
				split.leftBounds = leftBounds
				split.rightBounds = rightBounds[i-1]
			}
		}
	}
	return split
}

func (s *objectSplit) primBounds(ref *Reference) types.BBox {
	if s.space == nil {
		return ref.Bounds
	}
	return s.unaligned.primBounds(ref, s.space)
}

// Reorder the range along the selected axis and split it after numLeft
// references. The returned ranges are in world space.
func (s *objectSplit) split(refs []Reference, r Range) (left, right Range) {
	sortReferences(refs, r.Start, r.End(), s.dim, s.unaligned, s.space)

	numRight := r.Size - s.numLeft
	if s.space == nil && s.numLeft > 0 {
		left = Range{Bounds: s.leftBounds, CentBounds: s.leftBounds, Start: r.Start, Size: s.numLeft}
		right = Range{Bounds: s.rightBounds, CentBounds: s.rightBounds, Start: r.Start + s.numLeft, Size: numRight}
		return left, right
	}

	left = boundsOf(refs, r.Start, r.Start+s.numLeft)
	right = boundsOf(refs, r.Start+s.numLeft, r.End())
	return left, right
}
