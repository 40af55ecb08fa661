package bvh

import (
	"github.com/chewxy/math32"

	"github.com/achilleasa/polaris-bvh/types"
)

// objectBinning evaluates object splits by distributing reference centers
// into a small number of equally sized bins along each axis.
type objectBinning struct {
	Range

	// Bounds and center bounds used for binning. When an oriented space is
	// set these are expressed in that space; Range.Bounds always stays in
	// world space.
	bounds     types.BBox
	centBounds types.BBox

	leafSAH  float32
	splitSAH float32

	// Best split axis and the first bin that goes to the right child.
	dim int
	pos int

	numBins int
	scale   types.Vec3

	unaligned *unalignedHeuristic
	space     *types.Transform
}

// Bin the references in r and find the best split bin along each axis. If
// space is not nil, the references are binned inside that oriented space.
func newObjectBinning(r Range, refs []Reference, unaligned *unalignedHeuristic, space *types.Transform) *objectBinning {
	b := &objectBinning{
		Range:     r,
		unaligned: unaligned,
		space:     space,
	}

	if space == nil {
		b.bounds, b.centBounds = r.Bounds, r.CentBounds
	} else {
		b.bounds, b.centBounds = types.EmptyBBox(), types.EmptyBBox()
		for i := r.Start; i < r.End(); i++ {
			primBounds := b.primBounds(&refs[i])
			b.bounds.GrowBox(primBounds)
			b.centBounds.Grow(primBounds.Center2())
		}
	}

	b.numBins = min(maxBins, int(4.0+0.05*float32(r.Size)))
	b.scale = types.Splat(float32(b.numBins)).SafeDiv(b.centBounds.Size())

	var (
		binBounds [maxBins][3]types.BBox
		binCount  [maxBins][3]int
	)
	for i := 0; i < b.numBins; i++ {
		for axis := 0; axis < 3; axis++ {
			binBounds[i][axis] = types.EmptyBBox()
		}
	}

	for i := r.Start; i < r.End(); i++ {
		primBounds := b.primBounds(&refs[i])
		bin := b.binIndex(primBounds.Center2())
		for axis := 0; axis < 3; axis++ {
			binCount[bin[axis]][axis]++
			binBounds[bin[axis]][axis].GrowBox(primBounds)
		}
	}

	// Sweep from right to left computing the area and count of everything
	// to the right of each bin boundary.
	var (
		rightArea  [maxBins][3]float32
		rightCount [maxBins][3]int
		count      [3]int
		bx         = [3]types.BBox{types.EmptyBBox(), types.EmptyBBox(), types.EmptyBBox()}
	)
	for i := b.numBins - 1; i > 0; i-- {
		for axis := 0; axis < 3; axis++ {
			count[axis] += binCount[i][axis]
			rightCount[i][axis] = count[axis]
			bx[axis].GrowBox(binBounds[i][axis])
			rightArea[i][axis] = bx[axis].HalfArea()
		}
	}

	// Sweep from left to right and evaluate the SAH at each boundary.
	var (
		bestSAH   = [3]float32{math32.MaxFloat32, math32.MaxFloat32, math32.MaxFloat32}
		bestSplit = [3]int{-1, -1, -1}
	)
	count = [3]int{}
	bx = [3]types.BBox{types.EmptyBBox(), types.EmptyBBox(), types.EmptyBBox()}
	for i := 1; i < b.numBins; i++ {
		for axis := 0; axis < 3; axis++ {
			count[axis] += binCount[i-1][axis]
			bx[axis].GrowBox(binBounds[i-1][axis])

			// A boundary with an empty side is not a split.
			if count[axis] == 0 || rightCount[i][axis] == 0 {
				continue
			}
			sah := bx[axis].HalfArea()*float32(count[axis]) + rightArea[i][axis]*float32(rightCount[i][axis])
			if sah < bestSAH[axis] {
				bestSAH[axis] = sah
				bestSplit[axis] = i
			}
		}
	}

	// Axes without centroid extent cannot be split.
	centSize := b.centBounds.Size()
	for axis := 0; axis < 3; axis++ {
		if centSize[axis] <= 0 {
			bestSAH[axis] = math32.MaxFloat32
		}
	}

	b.dim = 0
	minSAH := float32(math32.MaxFloat32)
	for axis := 0; axis < 3; axis++ {
		if bestSAH[axis] < minSAH {
			b.dim = axis
			minSAH = bestSAH[axis]
		}
	}
	b.splitSAH = bestSAH[b.dim]
	b.pos = bestSplit[b.dim]
	b.leafSAH = b.bounds.HalfArea() * float32(r.Size)
	return b
}

func (b *objectBinning) primBounds(ref *Reference) types.BBox {
	if b.space == nil {
		return ref.Bounds
	}
	return b.unaligned.primBounds(ref, b.space)
}

// Map a doubled center to its bin along each axis.
func (b *objectBinning) binIndex(c types.Vec3) [3]int {
	var out [3]int
	for axis := 0; axis < 3; axis++ {
		bin := int((c[axis]-b.centBounds.Min[axis])*b.scale[axis] - 0.5)
		out[axis] = types.Clamp(bin, 0, b.numBins-1)
	}
	return out
}

// Partition the references so that references whose bin lies before the
// split bin come first. If either side ends up empty the range is split at
// its median instead. The returned ranges are in world space.
func (b *objectBinning) split(refs []Reference) (left, right Range) {
	n := b.Size
	start := b.Start
	lBounds, rBounds := types.EmptyBBox(), types.EmptyBBox()
	lCent, rCent := types.EmptyBBox(), types.EmptyBBox()

	l, r := 0, n-1
	for l <= r {
		prim := &refs[start+l]
		center := prim.Bounds.Center2()
		binCenter := center
		if b.space != nil {
			binCenter = b.primBounds(prim).Center2()
		}

		if b.binIndex(binCenter)[b.dim] < b.pos {
			lBounds.GrowBox(prim.Bounds)
			lCent.Grow(center)
			l++
		} else {
			rBounds.GrowBox(prim.Bounds)
			rCent.Grow(center)
			refs[start+l], refs[start+r] = refs[start+r], refs[start+l]
			r--
		}
	}

	if l != 0 && n-1-r != 0 {
		return Range{Bounds: lBounds, CentBounds: lCent, Start: start, Size: l},
			Range{Bounds: rBounds, CentBounds: rCent, Start: start + l, Size: n - 1 - r}
	}

	// No progress was made; this happens when all centers coincide.
	return medianSplit(refs, b.Range)
}

// Split a range into two halves without reordering.
func medianSplit(refs []Reference, r Range) (left, right Range) {
	half := r.Size / 2
	left = boundsOf(refs, r.Start, r.Start+half)
	right = boundsOf(refs, r.Start+half, r.End())
	return left, right
}

// Compute a range over refs[start:end].
func boundsOf(refs []Reference, start, end int) Range {
	out := Range{
		Bounds:     types.EmptyBBox(),
		CentBounds: types.EmptyBBox(),
		Start:      start,
		Size:       end - start,
	}
	for i := start; i < end; i++ {
		out.Bounds.GrowBox(refs[i].Bounds)
		out.CentBounds.Grow(refs[i].Bounds.Center2())
	}
	return out
}
