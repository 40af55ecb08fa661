package types

import "golang.org/x/exp/constraints"

// Clamp v to the [lo, hi] range.
func Clamp[T constraints.Integer | constraints.Float](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Divide a by b returning 0 if b is 0.
func SafeDivide(a, b float32) float32 {
	if b == 0 {
		return 0
	}
	return a / b
}
