package bvh

import (
	"slices"

	"github.com/chewxy/math32"

	"github.com/achilleasa/polaris-bvh/asset/compiler/input"
	"github.com/achilleasa/polaris-bvh/types"
)

// spatialSplit partitions space with an axis-aligned plane. References
// straddling the plane may be clipped and duplicated into both children.
type spatialSplit struct {
	sah float32
	dim int
	pos float32
}

// The action taken for a reference that straddles the split plane.
type straddleAction uint8

const (
	unsplitLeft straddleAction = iota
	unsplitRight
	duplicate
)

// Pick the cheapest way to handle a straddling reference. Ties prefer
// moving the reference left, then right, then duplicating it.
func chooseStraddleAction(unsplitLeftSAH, unsplitRightSAH, duplicateSAH float32) straddleAction {
	minSAH := math32.Min(math32.Min(unsplitLeftSAH, unsplitRightSAH), duplicateSAH)
	switch minSAH {
	case unsplitLeftSAH:
		return unsplitLeft
	case unsplitRightSAH:
		return unsplitRight
	}
	return duplicate
}

// Evaluate spatial split candidates at evenly spaced planes along each
// axis. References are clipped against every plane they cross so that
// each bin only accounts for the part of the reference it contains.
func (b *builder) findSpatialSplit(storage *buildStorage, r Range, refs []Reference, nodeSAH float32) spatialSplit {
	split := spatialSplit{sah: math32.MaxFloat32}

	numBins := b.params.numSpatialBins()
	origin := r.Bounds.Min
	binSize := r.Bounds.Max.Sub(origin).Mul(1.0 / float32(numBins))
	invBinSize := types.Splat(1).SafeDiv(binSize)

	bins := storage.resetBins(numBins)
	for refIdx := r.Start; refIdx < r.End(); refIdx++ {
		ref := &refs[refIdx]
		firstBinf := ref.Bounds.Min.Sub(origin).MulVec(invBinSize)
		lastBinf := ref.Bounds.Max.Sub(origin).MulVec(invBinSize)

		for dim := 0; dim < 3; dim++ {
			firstBin := types.Clamp(int(firstBinf[dim]), 0, numBins-1)
			lastBin := types.Clamp(int(lastBinf[dim]), firstBin, numBins-1)

			curr := *ref
			for i := firstBin; i < lastBin; i++ {
				left, right := b.splitReference(&curr, dim, origin[dim]+binSize[dim]*float32(i+1))
				bins[dim][i].bounds.GrowBox(left.Bounds)
				curr = right
			}
			bins[dim][lastBin].bounds.GrowBox(curr.Bounds)
			bins[dim][firstBin].enter++
			bins[dim][lastBin].exit++
		}
	}

	rightBounds := storage.rightBoundsBuffer(numBins)
	for dim := 0; dim < 3; dim++ {
		bounds := types.EmptyBBox()
		for i := numBins - 1; i > 0; i-- {
			bounds.GrowBox(bins[dim][i].bounds)
			rightBounds[i-1] = bounds
		}

		leftBounds := types.EmptyBBox()
		leftNum, rightNum := 0, r.Size
		for i := 1; i < numBins; i++ {
			leftBounds.GrowBox(bins[dim][i-1].bounds)
			leftNum += bins[dim][i-1].enter
			rightNum -= bins[dim][i-1].exit

			sah := nodeSAH +
				leftBounds.SafeArea()*b.params.PrimitiveCost(leftNum) +
				rightBounds[i-1].SafeArea()*b.params.PrimitiveCost(rightNum)
			if sah < split.sah {
				split.sah = sah
				split.dim = dim
				split.pos = origin[dim] + binSize[dim]*float32(i)
			}
		}
	}
	return split
}

// Partition the range around the split plane. References fully on one side
// are moved to that side; straddling references are either moved or
// clipped and duplicated, whichever is cheaper. Duplicates are inserted
// into refs right after the range, shifting any references that follow.
func (b *builder) applySpatialSplit(split *spatialSplit, storage *buildStorage, refs *[]Reference, r Range) (left, right Range) {
	data := *refs
	leftStart, leftEnd := r.Start, r.Start
	rightStart, rightEnd := r.End(), r.End()
	leftBounds, rightBounds := types.EmptyBBox(), types.EmptyBBox()

	// [leftStart, leftEnd) holds left references, [leftEnd, rightStart)
	// is not yet categorized and [rightStart, rightEnd) holds right ones.
	for i := leftEnd; i < rightStart; i++ {
		bounds := data[i].Bounds
		if bounds.Max[split.dim] <= split.pos {
			leftBounds.GrowBox(bounds)
			data[i], data[leftEnd] = data[leftEnd], data[i]
			leftEnd++
		} else if bounds.Min[split.dim] >= split.pos {
			rightBounds.GrowBox(bounds)
			rightStart--
			data[i], data[rightStart] = data[rightStart], data[i]
			i--
		}
	}

	newRefs := storage.newReferences[:0]
	for leftEnd < rightStart {
		curr := data[leftEnd]
		lref, rref := b.splitReference(&curr, split.dim, split.pos)

		// Nothing of the reference lies on one side of the plane.
		if !rref.Bounds.Valid() {
			leftBounds.GrowBox(curr.Bounds)
			leftEnd++
			continue
		}
		if !lref.Bounds.Valid() {
			rightBounds.GrowBox(curr.Bounds)
			rightStart--
			data[leftEnd], data[rightStart] = data[rightStart], data[leftEnd]
			continue
		}

		lub := types.MergeBBox(leftBounds, curr.Bounds)
		rub := types.MergeBBox(rightBounds, curr.Bounds)
		ldb := types.MergeBBox(leftBounds, lref.Bounds)
		rdb := types.MergeBBox(rightBounds, rref.Bounds)

		lac := b.params.PrimitiveCost(leftEnd - leftStart)
		rac := b.params.PrimitiveCost(rightEnd - rightStart)
		lbc := b.params.PrimitiveCost(leftEnd - leftStart + 1)
		rbc := b.params.PrimitiveCost(rightEnd - rightStart + 1)

		unsplitLeftSAH := lub.SafeArea()*lbc + rightBounds.SafeArea()*rac
		unsplitRightSAH := leftBounds.SafeArea()*lac + rub.SafeArea()*rbc
		duplicateSAH := ldb.SafeArea()*lbc + rdb.SafeArea()*rbc

		switch chooseStraddleAction(unsplitLeftSAH, unsplitRightSAH, duplicateSAH) {
		case unsplitLeft:
			leftBounds = lub
			leftEnd++
		case unsplitRight:
			rightBounds = rub
			rightStart--
			data[leftEnd], data[rightStart] = data[rightStart], data[leftEnd]
		default:
			leftBounds = ldb
			rightBounds = rdb
			data[leftEnd] = lref
			leftEnd++
			newRefs = append(newRefs, rref)
			rightEnd++
		}
	}
	storage.newReferences = newRefs

	if len(newRefs) != 0 {
		*refs = slices.Insert(data, rightEnd-len(newRefs), newRefs...)
	}

	left = Range{Bounds: leftBounds, CentBounds: leftBounds, Start: leftStart, Size: leftEnd - leftStart}
	right = Range{Bounds: rightBounds, CentBounds: rightBounds, Start: rightStart, Size: rightEnd - rightStart}
	return left, right
}

// Clip a reference against the plane at pos along dim. The returned
// references keep the primitive identity of ref and are bounded by the
// original reference bounds.
func (b *builder) splitReference(ref *Reference, dim int, pos float32) (left, right Reference) {
	leftBounds, rightBounds := types.EmptyBBox(), types.EmptyBBox()

	obj := b.objects[ref.PrimObject]
	switch {
	case ref.IsObject():
		splitObject(obj, dim, pos, &leftBounds, &rightBounds)
	case ref.PrimType.Is(input.PrimitiveTriangle):
		splitTriangle(obj.Geometry.(*input.Mesh), nil, int(ref.PrimIndex), dim, pos, &leftBounds, &rightBounds)
	case ref.PrimType.IsCurve():
		splitCurve(obj.Geometry.(*input.Hair), nil, int(ref.PrimIndex), ref.PrimType.Segment(), dim, pos, &leftBounds, &rightBounds)
	case ref.PrimType.Is(input.PrimitivePoint):
		splitPoint(obj.Geometry.(*input.PointCloud), nil, int(ref.PrimIndex), dim, pos, &leftBounds, &rightBounds)
	}

	clipSide(&leftBounds, ref.Bounds, dim, pos, false)
	clipSide(&rightBounds, ref.Bounds, dim, pos, true)

	left, right = *ref, *ref
	left.Bounds = leftBounds
	right.Bounds = rightBounds
	return left, right
}

// Clamp one side of a split against the plane and the original reference
// bounds. A side that received no geometry stays empty.
func clipSide(side *types.BBox, refBounds types.BBox, dim int, pos float32, right bool) {
	if !side.Valid() {
		*side = types.EmptyBBox()
		return
	}
	if right {
		side.Min[dim] = pos
	} else {
		side.Max[dim] = pos
	}
	side.Intersect(refBounds)
	if !side.Valid() {
		*side = types.EmptyBBox()
	}
}

// Grow the left and right boxes with the parts of a polygon outline on
// either side of the plane.
func clipPolygon(verts []types.Vec3, dim int, pos float32, left, right *types.BBox) {
	v1 := verts[len(verts)-1]
	for _, v := range verts {
		v0 := v1
		v1 = v
		v0p, v1p := v0[dim], v1[dim]

		if v0p <= pos {
			left.Grow(v0)
		}
		if v0p >= pos {
			right.Grow(v0)
		}

		// The edge crosses the plane; the intersection belongs to both sides.
		if (v0p < pos && v1p > pos) || (v0p > pos && v1p < pos) {
			t := types.Mix(v0, v1, types.Clamp((pos-v0p)/(v1p-v0p), 0, 1))
			left.Grow(t)
			right.Grow(t)
		}
	}
}

func splitTriangle(mesh *input.Mesh, tfm *types.Transform, tri, dim int, pos float32, left, right *types.BBox) {
	for step := -1; step < mesh.MotionSteps(); step++ {
		verts := mesh.TriangleVertices(tri, step)
		if tfm != nil {
			for i := range verts {
				verts[i] = tfm.Point(verts[i])
			}
		}
		clipPolygon(verts[:], dim, pos, left, right)
	}
}

// Curve segments are clipped as a line between their keys, padded by the
// larger key radius.
func splitCurve(hair *input.Hair, tfm *types.Transform, curve, segment, dim int, pos float32, left, right *types.BBox) {
	radius := math32.Max(hair.KeyRadius(curve, segment), hair.KeyRadius(curve, segment+1))
	if tfm != nil {
		radius *= tfm.UniformScale()
	}
	for step := -1; step < hair.MotionSteps(); step++ {
		keys := hair.CurveKeys(curve, step)
		v0, v1 := keys[segment], keys[segment+1]
		if tfm != nil {
			v0, v1 = tfm.Point(v0), tfm.Point(v1)
		}

		var l, r = types.EmptyBBox(), types.EmptyBBox()
		v0p, v1p := v0[dim], v1[dim]
		if v0p <= pos {
			l.Grow(v0)
		}
		if v0p >= pos {
			r.Grow(v0)
		}
		if v1p <= pos {
			l.Grow(v1)
		}
		if v1p >= pos {
			r.Grow(v1)
		}
		if (v0p < pos && v1p > pos) || (v0p > pos && v1p < pos) {
			t := types.Mix(v0, v1, types.Clamp((pos-v0p)/(v1p-v0p), 0, 1))
			l.Grow(t)
			r.Grow(t)
		}
		if l.Valid() {
			left.GrowBox(types.BBox{Min: l.Min.Sub(types.Splat(radius)), Max: l.Max.Add(types.Splat(radius))})
		}
		if r.Valid() {
			right.GrowBox(types.BBox{Min: r.Min.Sub(types.Splat(radius)), Max: r.Max.Add(types.Splat(radius))})
		}
	}
}

// Points are not clipped; the whole sphere goes to each side its center
// touches.
func splitPoint(cloud *input.PointCloud, tfm *types.Transform, index, dim int, pos float32, left, right *types.BBox) {
	radius := cloud.Radius[index]
	if tfm != nil {
		radius *= tfm.UniformScale()
	}
	for step := -1; step < cloud.MotionSteps(); step++ {
		p := cloud.Point(index, step)
		if tfm != nil {
			p = tfm.Point(p)
		}
		if p[dim] <= pos {
			left.GrowRadius(p, radius)
		}
		if p[dim] >= pos {
			right.GrowRadius(p, radius)
		}
	}
}

// Object references are clipped by clipping every primitive of the
// object's geometry in world space.
func splitObject(obj *input.Object, dim int, pos float32, left, right *types.BBox) {
	tfm := &obj.Transform
	switch geom := obj.Geometry.(type) {
	case *input.Mesh:
		for tri := range geom.Triangles {
			splitTriangle(geom, tfm, tri, dim, pos, left, right)
		}
	case *input.Hair:
		for curve, c := range geom.Curves {
			for segment := 0; segment < c.NumSegments(); segment++ {
				splitCurve(geom, tfm, curve, segment, dim, pos, left, right)
			}
		}
	case *input.PointCloud:
		for index := range geom.Points {
			splitPoint(geom, tfm, index, dim, pos, left, right)
		}
	}
}
