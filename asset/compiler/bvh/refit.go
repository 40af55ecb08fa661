package bvh

import (
	"github.com/achilleasa/polaris-bvh/asset/compiler/input"
	"github.com/achilleasa/polaris-bvh/types"
)

// Refit recomputes the bounds and visibility stored in the packed nodes
// from the current primitive positions without changing the topology.
// Top-level BVHs cannot be refitted.
func (b *BVH) Refit(progress Progress) error {
	if b.Params.TopLevel {
		return ErrTopLevelRefit
	}
	if len(b.Pack.LeafNodes) == 0 {
		return ErrNotPacked
	}
	if progress == nil {
		progress = NopProgress()
	}

	progress.SetSubstatus("Packing BVH primitives")
	if err := b.checkPrimitives(); err != nil {
		return err
	}
	b.packPrimitives()
	if progress.GetCancel() {
		return ErrCancelled
	}

	progress.SetSubstatus("Refitting BVH nodes")
	b.refitNode(0, b.Pack.RootIndex == -1)
	return nil
}

// Make sure every primitive slot still addresses an existing primitive.
func (b *BVH) checkPrimitives() error {
	for i, primIndex := range b.Pack.PrimIndex {
		obj := int(b.Pack.PrimObject[i])
		if obj < 0 || obj >= len(b.Objects) || b.Objects[obj].Geometry == nil {
			return ErrTopologyMismatch
		}
		if primIndex == -1 {
			continue
		}
		geom := b.Objects[obj].Geometry
		if int(primIndex) >= geom.NumPrimitives() {
			return ErrTopologyMismatch
		}
		if hair, ok := geom.(*input.Hair); ok {
			segment := input.PrimitiveType(b.Pack.PrimType[i]).Segment()
			if !hair.HasSegment(int(primIndex), segment) {
				return ErrTopologyMismatch
			}
		}
	}
	return nil
}

type refitResult struct {
	bounds     types.BBox
	visibility uint32

	// Primitive slots covered by the subtree.
	lo, hi int
}

func (b *BVH) refitNode(idx int, leaf bool) refitResult {
	if leaf {
		data := &b.Pack.LeafNodes[idx]
		res := refitResult{bounds: types.EmptyBBox()}
		if data[0] < 0 {
			// Object leaves only appear in top-level BVHs.
			return res
		}

		res.lo, res.hi = int(data[0]), int(data[1])
		for slot := res.lo; slot < res.hi; slot++ {
			res.bounds.GrowBox(b.primitiveBounds(slot))
			res.visibility |= uint32(b.Objects[b.Pack.PrimObject[slot]].Visibility)
		}
		data[2] = int32(res.visibility)
		return res
	}

	data := b.Pack.Nodes[idx]
	unaligned := b.Pack.isUnalignedNode(idx)
	c0, c1 := data[2], data[3]

	r0 := b.refitNode(decodeChild(c0))
	r1 := b.refitNode(decodeChild(c1))

	if unaligned {
		space0 := nodeTransformSpace(b.Pack.unalignedNodeTransform(idx, 0))
		space1 := nodeTransformSpace(b.Pack.unalignedNodeTransform(idx, 1))
		b0 := b.slotBoundsInSpace(r0, space0)
		b1 := b.slotBoundsInSpace(r1, space1)
		b.Pack.packUnalignedNode(idx, space0, space1, b0, b1, c0, c1, r0.visibility, r1.visibility)
	} else {
		b.Pack.packAlignedNode(idx, r0.bounds, r1.bounds, c0, c1, r0.visibility, r1.visibility)
	}

	res := refitResult{
		bounds:     types.MergeBBox(r0.bounds, r1.bounds),
		visibility: r0.visibility | r1.visibility,
		lo:         min(r0.lo, r1.lo),
		hi:         max(r0.hi, r1.hi),
	}
	if r0.hi == r0.lo {
		res.lo, res.hi = r1.lo, r1.hi
	} else if r1.hi == r1.lo {
		res.lo, res.hi = r0.lo, r0.hi
	}
	return res
}

// Compute the bounds of the primitives in a subtree inside an oriented
// space. Axis-aligned children keep their world bounds.
func (b *BVH) slotBoundsInSpace(r refitResult, space types.Transform) types.BBox {
	if space.IsIdentity() {
		return r.bounds
	}

	u := &unalignedHeuristic{objects: b.Objects}
	bounds := types.EmptyBBox()
	for slot := r.lo; slot < r.hi; slot++ {
		ref := Reference{
			Bounds:     b.primitiveBounds(slot),
			PrimIndex:  b.Pack.PrimIndex[slot],
			PrimObject: b.Pack.PrimObject[slot],
			PrimType:   input.PrimitiveType(b.Pack.PrimType[slot]),
		}
		bounds.GrowBox(u.primBounds(&ref, &space))
	}
	return bounds
}

// Compute the current bounds of the primitive in a slot, including all of
// its motion steps.
func (b *BVH) primitiveBounds(slot int) types.BBox {
	bounds := types.EmptyBBox()
	obj := b.Objects[b.Pack.PrimObject[slot]]
	primIndex := int(b.Pack.PrimIndex[slot])
	if primIndex == -1 {
		return obj.BBox()
	}

	typ := input.PrimitiveType(b.Pack.PrimType[slot])
	switch geom := obj.Geometry.(type) {
	case *input.Mesh:
		geom.GrowTriangleBBox(primIndex, &bounds)
	case *input.Hair:
		geom.GrowSegmentBBox(primIndex, typ.Segment(), &bounds)
	case *input.PointCloud:
		geom.GrowPointBBox(primIndex, &bounds)
	}
	return bounds
}
