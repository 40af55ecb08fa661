package types

import "github.com/chewxy/math32"

// BBox is an axis-aligned bounding box. A box whose min is greater than its
// max along any axis is considered empty.
type BBox struct {
	Min Vec3
	Max Vec3
}

// Create an empty bounding box.
func EmptyBBox() BBox {
	return BBox{
		Min: Splat(math32.MaxFloat32),
		Max: Splat(-math32.MaxFloat32),
	}
}

// Create a bounding box enclosing a single point.
func PointBBox(p Vec3) BBox {
	return BBox{Min: p, Max: p}
}

// Grow box to include point p. NaN components are ignored.
func (b *BBox) Grow(p Vec3) {
	b.Min = MinVec3(b.Min, p)
	b.Max = MaxVec3(b.Max, p)
}

// Grow box to include a sphere of radius r centered at p.
func (b *BBox) GrowRadius(p Vec3, r float32) {
	b.Min = MinVec3(b.Min, p.Sub(Splat(r)))
	b.Max = MaxVec3(b.Max, p.Add(Splat(r)))
}

// Grow box to include another box. Growing by an empty box is a no-op.
func (b *BBox) GrowBox(o BBox) {
	b.Min = MinVec3(b.Min, o.Min)
	b.Max = MaxVec3(b.Max, o.Max)
}

// Grow box to include point p only if all of its components are finite.
func (b *BBox) GrowSafe(p Vec3) {
	if p.IsFinite() {
		b.Grow(p)
	}
}

// Grow box by a sphere only if both center and radius are finite.
func (b *BBox) GrowRadiusSafe(p Vec3, r float32) {
	if p.IsFinite() && !math32.IsNaN(r) && !math32.IsInf(r, 0) {
		b.GrowRadius(p, r)
	}
}

// Grow box by another box, skipping non-finite corners.
func (b *BBox) GrowBoxSafe(o BBox) {
	if o.Min.IsFinite() {
		b.Min = MinVec3(b.Min, o.Min)
	}
	if o.Max.IsFinite() {
		b.Max = MaxVec3(b.Max, o.Max)
	}
}

// Clip box against another box.
func (b *BBox) Intersect(o BBox) {
	for i := 0; i < 3; i++ {
		if o.Min[i] > b.Min[i] {
			b.Min[i] = o.Min[i]
		}
		if o.Max[i] < b.Max[i] {
			b.Max[i] = o.Max[i]
		}
	}
}

// Returns true if min <= max along all axes and all components are finite.
func (b BBox) Valid() bool {
	return b.Min[0] <= b.Max[0] && b.Min[1] <= b.Max[1] && b.Min[2] <= b.Max[2] &&
		b.Min.IsFinite() && b.Max.IsFinite()
}

func (b BBox) Size() Vec3 {
	return b.Max.Sub(b.Min)
}

func (b BBox) Center() Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Center2 returns twice the box center. It is cheaper to compute and
// preserves ordering.
func (b BBox) Center2() Vec3 {
	return b.Min.Add(b.Max)
}

// Surface area of the box.
func (b BBox) Area() float32 {
	return 2 * b.HalfArea()
}

func (b BBox) HalfArea() float32 {
	d := b.Size()
	return d[0]*d[1] + d[1]*d[2] + d[2]*d[0]
}

// Surface area of the box or 0 if the box is not valid.
func (b BBox) SafeArea() float32 {
	if !b.Valid() {
		return 0
	}
	return b.Area()
}

// Transform all 8 corners of the box and return their bounds. An invalid
// box maps to an empty box.
func (b BBox) Transformed(t Transform) BBox {
	out := EmptyBBox()
	if !b.Valid() {
		return out
	}
	for i := 0; i < 8; i++ {
		var p Vec3
		for axis := 0; axis < 3; axis++ {
			if i&(1<<uint(axis)) != 0 {
				p[axis] = b.Max[axis]
			} else {
				p[axis] = b.Min[axis]
			}
		}
		out.Grow(t.Point(p))
	}
	return out
}

// Merge two boxes.
func MergeBBox(a, b BBox) BBox {
	return BBox{
		Min: MinVec3(a.Min, b.Min),
		Max: MaxVec3(a.Max, b.Max),
	}
}

// Intersect two boxes.
func IntersectBBox(a, b BBox) BBox {
	a.Intersect(b)
	return a
}
