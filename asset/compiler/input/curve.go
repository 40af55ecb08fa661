package input

import (
	"github.com/chewxy/math32"

	"github.com/achilleasa/polaris-bvh/types"
)

// Calculate the bounds of a Catmull-Rom curve segment spanning keys
// [segment, segment+1]. The neighboring keys act as tangent controls and
// are clamped at the curve ends. If tfm is not nil the control points are
// transformed before evaluating the bounds.
func segmentBounds(keys []types.Vec3, segment int, tfm *types.Transform) (lower, upper types.Vec3) {
	last := len(keys) - 1
	p := [4]types.Vec3{
		keys[max(segment-1, 0)],
		keys[segment],
		keys[segment+1],
		keys[min(segment+2, last)],
	}
	if tfm != nil {
		for i := range p {
			p[i] = tfm.Point(p[i])
		}
	}

	for axis := 0; axis < 3; axis++ {
		lower[axis], upper[axis] = cubicBounds(p[0][axis], p[1][axis], p[2][axis], p[3][axis])
	}
	return lower, upper
}

// Find the extrema of a 1D Catmull-Rom segment over t in [0, 1].
func cubicBounds(p0, p1, p2, p3 float32) (lo, hi float32) {
	a := 0.5 * (-p0 + 3*p1 - 3*p2 + p3)
	b := 0.5 * (2*p0 - 5*p1 + 4*p2 - p3)
	c := 0.5 * (-p0 + p2)
	d := p1

	eval := func(t float32) float32 {
		return ((a*t+b)*t+c)*t + d
	}

	lo, hi = math32.Min(p1, p2), math32.Max(p1, p2)
	check := func(t float32) {
		if t > 0 && t < 1 {
			v := eval(t)
			lo = math32.Min(lo, v)
			hi = math32.Max(hi, v)
		}
	}

	// Roots of the derivative 3at^2 + 2bt + c.
	qa, qb, qc := 3*a, 2*b, c
	switch {
	case math32.Abs(qa) < 1e-12:
		if math32.Abs(qb) > 1e-12 {
			check(-qc / qb)
		}
	default:
		disc := qb*qb - 4*qa*qc
		if disc >= 0 {
			sq := math32.Sqrt(disc)
			check((-qb + sq) / (2 * qa))
			check((-qb - sq) / (2 * qa))
		}
	}
	return lo, hi
}
