package input

// PrimitiveType is a bit set describing a primitive. Curve primitives also
// carry their segment index in the bits above primitiveTypeBits.
type PrimitiveType uint32

const (
	PrimitiveNone        PrimitiveType = 0
	PrimitiveTriangle    PrimitiveType = 1 << 0
	PrimitiveCurveThick  PrimitiveType = 1 << 1
	PrimitiveCurveRibbon PrimitiveType = 1 << 2
	PrimitivePoint       PrimitiveType = 1 << 3
	PrimitiveMotion      PrimitiveType = 1 << 4

	PrimitiveMotionTriangle    = PrimitiveTriangle | PrimitiveMotion
	PrimitiveMotionCurveThick  = PrimitiveCurveThick | PrimitiveMotion
	PrimitiveMotionCurveRibbon = PrimitiveCurveRibbon | PrimitiveMotion
	PrimitiveMotionPoint       = PrimitivePoint | PrimitiveMotion

	PrimitiveCurve = PrimitiveCurveThick | PrimitiveCurveRibbon
	PrimitiveAll   = PrimitiveTriangle | PrimitiveCurve | PrimitivePoint | PrimitiveMotion

	primitiveTypeBits = 5

	// The number of distinct primitive types (with and without motion).
	NumPrimitiveTypes = 8
)

// Encode a curve segment index into a primitive type.
func PackSegment(typ PrimitiveType, segment int) PrimitiveType {
	return PrimitiveType(segment)<<primitiveTypeBits | typ
}

// Get the segment index encoded in a primitive type.
func (t PrimitiveType) Segment() int {
	return int(t >> primitiveTypeBits)
}

// Strip the segment index from a primitive type.
func (t PrimitiveType) Base() PrimitiveType {
	return t & PrimitiveAll
}

// Returns true if any of the bits in mask are set.
func (t PrimitiveType) Is(mask PrimitiveType) bool {
	return t&mask != 0
}

func (t PrimitiveType) IsCurve() bool {
	return t.Is(PrimitiveCurve)
}

func (t PrimitiveType) IsMotion() bool {
	return t.Is(PrimitiveMotion)
}

// Index maps a primitive type to a dense [0, NumPrimitiveTypes) index that
// is used for grouping primitives of the same kind. Returns -1 for
// PrimitiveNone.
func (t PrimitiveType) Index() int {
	var idx int
	switch {
	case t.Is(PrimitiveTriangle):
		idx = 0
	case t.Is(PrimitiveCurveThick):
		idx = 2
	case t.Is(PrimitiveCurveRibbon):
		idx = 4
	case t.Is(PrimitivePoint):
		idx = 6
	default:
		return -1
	}
	if t.IsMotion() {
		idx++
	}
	return idx
}

func (t PrimitiveType) String() string {
	var name string
	switch {
	case t.Is(PrimitiveTriangle):
		name = "triangle"
	case t.Is(PrimitiveCurveThick):
		name = "thick curve"
	case t.Is(PrimitiveCurveRibbon):
		name = "ribbon curve"
	case t.Is(PrimitivePoint):
		name = "point"
	default:
		return "none"
	}
	if t.IsMotion() {
		return "motion " + name
	}
	return name
}

// Visibility is a bit set of ray types for which an object is visible.
type Visibility uint32

const (
	VisibilityCamera Visibility = 1 << iota
	VisibilityDiffuse
	VisibilityGlossy
	VisibilityTransmit
	VisibilityScatter
	VisibilityShadow

	VisibilityNone Visibility = 0
	VisibilityAll  Visibility = VisibilityCamera | VisibilityDiffuse | VisibilityGlossy |
		VisibilityTransmit | VisibilityScatter | VisibilityShadow
)
