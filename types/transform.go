package types

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Transform is an affine 4x4 transformation matrix. Only the top three rows
// carry information; the bottom row is always (0, 0, 0, 1).
type Transform mgl32.Mat4

// Create an identity transform.
func IdentityTransform() Transform {
	return Transform(mgl32.Ident4())
}

// Create a transform from its top three rows.
func TransformFromRows(r0, r1, r2 Vec4) Transform {
	return Transform(mgl32.Mat4FromRows(
		mgl32.Vec4(r0),
		mgl32.Vec4(r1),
		mgl32.Vec4(r2),
		mgl32.Vec4{0, 0, 0, 1},
	))
}

// Create a translation transform.
func TranslateTransform(v Vec3) Transform {
	return Transform(mgl32.Translate3D(v[0], v[1], v[2]))
}

// Create a scale transform.
func ScaleTransform(v Vec3) Transform {
	return Transform(mgl32.Scale3D(v[0], v[1], v[2]))
}

// Create a rotation transform from an axis and an angle in radians.
func RotateTransform(angle float32, axis Vec3) Transform {
	return Transform(mgl32.HomogRotate3D(angle, mgl32.Vec3(axis.Normalize())))
}

// Build an orthonormal frame whose third row is the given axis. The first
// row is chosen perpendicular to the axis using whichever of the X or Y
// basis vectors yields the longer cross product.
func TransformFrame(axis Vec3) Transform {
	dx0 := Vec3{1, 0, 0}.Cross(axis)
	dx1 := Vec3{0, 1, 0}.Cross(axis)
	dx := dx0
	if dx1.Dot(dx1) > dx0.Dot(dx0) {
		dx = dx1
	}
	dx = dx.Normalize()
	dy := axis.Cross(dx).Normalize()
	return TransformFromRows(dx.Vec4(0), dy.Vec4(0), axis.Vec4(0))
}

// Get row i of the transform.
func (t Transform) Row(i int) Vec4 {
	return Vec4(mgl32.Mat4(t).Row(i))
}

// Get the element at the given row and column.
func (t Transform) At(row, col int) float32 {
	return mgl32.Mat4(t).At(row, col)
}

// Set the element at the given row and column.
func (t *Transform) Set(row, col int, v float32) {
	t[col*4+row] = v
}

// Apply transform to a point.
func (t Transform) Point(p Vec3) Vec3 {
	r := mgl32.Mat4(t).Mul4x1(mgl32.Vec4{p[0], p[1], p[2], 1})
	return Vec3{r[0], r[1], r[2]}
}

// Apply transform to a direction vector, ignoring translation.
func (t Transform) Direction(d Vec3) Vec3 {
	r := mgl32.Mat4(t).Mul4x1(mgl32.Vec4{d[0], d[1], d[2], 0})
	return Vec3{r[0], r[1], r[2]}
}

// Concatenate two transforms. The returned transform applies o first.
func (t Transform) Mul(o Transform) Transform {
	return Transform(mgl32.Mat4(t).Mul4(mgl32.Mat4(o)))
}

// Returns true if the transform is the identity.
func (t Transform) IsIdentity() bool {
	return mgl32.Mat4(t).ApproxEqual(mgl32.Ident4())
}

// Returns true if every element is within a relative threshold of the
// identity.
func (t Transform) ApproxIdentity(threshold float32) bool {
	return mgl32.Mat4(t).ApproxEqualThreshold(mgl32.Ident4(), threshold)
}

// Uniform scale factor of the transform, computed as the cube root of the
// absolute determinant of the upper 3x3 part.
func (t Transform) UniformScale() float32 {
	det := mgl32.Mat4(t).Mat3().Det()
	return math32.Cbrt(math32.Abs(det))
}

// Get the inverse of the transform.
func (t Transform) Inverse() Transform {
	return Transform(mgl32.Mat4(t).Inv())
}

// Create a rotation transform from Euler angles in radians. Yaw rotates
// around the X axis, pitch around Y and roll around Z; yaw is applied first.
func EulerTransform(yaw, pitch, roll float32) Transform {
	q := mgl32.QuatRotate(roll, mgl32.Vec3{0, 0, 1}).
		Mul(mgl32.QuatRotate(pitch, mgl32.Vec3{0, 1, 0})).
		Mul(mgl32.QuatRotate(yaw, mgl32.Vec3{1, 0, 0}))
	return Transform(q.Normalize().Mat4())
}
