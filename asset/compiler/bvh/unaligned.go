package bvh

import (
	"github.com/chewxy/math32"

	"github.com/achilleasa/polaris-bvh/asset/compiler/input"
	"github.com/achilleasa/polaris-bvh/types"
)

// unalignedHeuristic computes oriented bounding spaces for curve segments.
type unalignedHeuristic struct {
	objects []*input.Object
}

// Compute the oriented space of a single reference. Only non-motion curve
// segments with a non-degenerate direction define a space.
func (u *unalignedHeuristic) referenceSpace(ref *Reference) (types.Transform, bool) {
	typ := ref.PrimType
	if !typ.IsCurve() || typ.IsMotion() || ref.IsObject() {
		return types.IdentityTransform(), false
	}

	hair, ok := u.objects[ref.PrimObject].Geometry.(*input.Hair)
	if !ok {
		return types.IdentityTransform(), false
	}

	keys := hair.CurveKeys(int(ref.PrimIndex), -1)
	segment := typ.Segment()
	axis, length := keys[segment+1].Sub(keys[segment]).NormalizeLen()
	if length <= 1e-6 {
		return types.IdentityTransform(), false
	}
	return types.TransformFrame(axis), true
}

// Compute the oriented space for a range using the first reference that
// defines one.
func (u *unalignedHeuristic) rangeSpace(refs []Reference, start, end int) (types.Transform, bool) {
	for i := start; i < end; i++ {
		if space, ok := u.referenceSpace(&refs[i]); ok {
			return space, true
		}
	}
	return types.IdentityTransform(), false
}

// Compute the bounds of a reference inside an oriented space.
func (u *unalignedHeuristic) primBounds(ref *Reference, space *types.Transform) types.BBox {
	if ref.PrimType.IsCurve() && !ref.IsObject() {
		if hair, ok := u.objects[ref.PrimObject].Geometry.(*input.Hair); ok {
			bounds := types.EmptyBBox()
			hair.GrowSegmentBBoxTransformed(int(ref.PrimIndex), ref.PrimType.Segment(), space, &bounds)
			return bounds
		}
	}
	return ref.Bounds.Transformed(*space)
}

// Compute the bounds of refs[start:end] inside an oriented space.
func (u *unalignedHeuristic) rangeBounds(refs []Reference, start, end int, space *types.Transform) types.BBox {
	bounds := types.EmptyBBox()
	for i := start; i < end; i++ {
		bounds.GrowBox(u.primBounds(&refs[i], space))
	}
	return bounds
}

// Build the transform that maps an oriented bounding box to the unit cube.
func computeNodeTransform(bounds types.BBox, space types.Transform) types.Transform {
	dim := bounds.Size()
	for axis := 0; axis < 3; axis++ {
		space.Set(axis, 3, space.At(axis, 3)-bounds.Min[axis])
	}
	var rows [3]types.Vec4
	for axis := 0; axis < 3; axis++ {
		scale := 1.0 / math32.Max(1e-18, dim[axis])
		row := space.Row(axis)
		rows[axis] = types.Vec4{row[0] * scale, row[1] * scale, row[2] * scale, row[3] * scale}
	}
	return types.TransformFromRows(rows[0], rows[1], rows[2])
}

// Recover the oriented space encoded by computeNodeTransform by
// normalizing its rows. Spaces that only differ from the identity by
// rounding are snapped to it.
func nodeTransformSpace(tfm types.Transform) types.Transform {
	var rows [3]types.Vec4
	for axis := 0; axis < 3; axis++ {
		dir := tfm.Row(axis).Vec3().Normalize()
		if dir == (types.Vec3{}) {
			return types.IdentityTransform()
		}
		rows[axis] = dir.Vec4(0)
	}
	space := types.TransformFromRows(rows[0], rows[1], rows[2])
	if space.ApproxIdentity(1e-5) {
		return types.IdentityTransform()
	}
	return space
}
