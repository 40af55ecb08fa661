package input

import (
	"testing"

	"github.com/achilleasa/polaris-bvh/types"
)

func TestPrimitiveTypeIndex(t *testing.T) {
	type spec struct {
		typ    PrimitiveType
		expIdx int
	}
	specs := []spec{
		{PrimitiveTriangle, 0},
		{PrimitiveMotionTriangle, 1},
		{PrimitiveCurveThick, 2},
		{PackSegment(PrimitiveMotionCurveThick, 7), 3},
		{PackSegment(PrimitiveCurveRibbon, 2), 4},
		{PrimitiveMotionCurveRibbon, 5},
		{PrimitivePoint, 6},
		{PrimitiveMotionPoint, 7},
		{PrimitiveNone, -1},
	}

	for idx, s := range specs {
		if got := s.typ.Index(); got != s.expIdx {
			t.Errorf("[spec %d] expected index %d for %s; got %d", idx, s.expIdx, s.typ, got)
		}
	}
}

func TestPackSegment(t *testing.T) {
	typ := PackSegment(PrimitiveCurveRibbon, 42)
	if typ.Segment() != 42 {
		t.Fatalf("expected segment 42; got %d", typ.Segment())
	}
	if typ.Base() != PrimitiveCurveRibbon {
		t.Fatalf("expected base type %s; got %s", PrimitiveCurveRibbon, typ.Base())
	}
}

func TestMeshMotionBBox(t *testing.T) {
	m := NewMesh("tri")
	m.Vertices = []types.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	m.Triangles = [][3]int{{0, 1, 2}}
	m.MotionVertices = [][]types.Vec3{
		{{0, 0, 5}, {1, 0, 5}, {0, 1, 5}},
	}

	var bbox = types.EmptyBBox()
	m.GrowTriangleBBox(0, &bbox)
	if bbox.Min != (types.Vec3{0, 0, 0}) || bbox.Max != (types.Vec3{1, 1, 5}) {
		t.Fatalf("expected motion bbox to span all steps; got [%v, %v]", bbox.Min, bbox.Max)
	}
	if m.PrimitiveType() != PrimitiveMotionTriangle {
		t.Fatalf("expected motion triangle type; got %s", m.PrimitiveType())
	}
}

func TestCurveSegmentBBox(t *testing.T) {
	h := NewHair("strand")
	h.Keys = []types.Vec3{{0, 0, 0}, {1, 0, 0}, {2, 0, 0}}
	h.Radius = []float32{0.1, 0.2, 0.1}
	h.Curves = []Curve{{FirstKey: 0, NumKeys: 3}}

	if h.NumSegments() != 2 {
		t.Fatalf("expected 2 segments; got %d", h.NumSegments())
	}

	bbox := types.EmptyBBox()
	h.GrowSegmentBBox(0, 0, &bbox)
	expMin := types.Vec3{-0.2, -0.2, -0.2}
	expMax := types.Vec3{1.2, 0.2, 0.2}
	if bbox.Min != expMin || bbox.Max != expMax {
		t.Fatalf("expected segment bbox [%v, %v]; got [%v, %v]", expMin, expMax, bbox.Min, bbox.Max)
	}
}

func TestCubicBoundsOvershoot(t *testing.T) {
	// A sharp turn makes the interpolated curve overshoot the segment keys.
	lo, hi := cubicBounds(0, 1, 1, 0)
	if lo != 1 || hi <= 1 {
		t.Fatalf("expected overshoot above 1; got [%f, %f]", lo, hi)
	}
}

func TestObjectBBox(t *testing.T) {
	p := NewPointCloud("points")
	p.Points = []types.Vec3{{0, 0, 0}}
	p.Radius = []float32{1}

	obj := NewObject("obj", p, types.TranslateTransform(types.Vec3{10, 0, 0}))
	bbox := obj.BBox()
	if bbox.Min != (types.Vec3{9, -1, -1}) || bbox.Max != (types.Vec3{11, 1, 1}) {
		t.Fatalf("unexpected object bbox [%v, %v]", bbox.Min, bbox.Max)
	}
	if !obj.IsTraceable() {
		t.Fatal("expected object to be traceable")
	}
}

func TestAssignPrimOffsets(t *testing.T) {
	m := NewMesh("m")
	m.Triangles = make([][3]int, 3)
	h := NewHair("h")
	h.Curves = make([]Curve, 2)

	sc := NewScene()
	sc.Geometry = append(sc.Geometry, m, h)
	if total := sc.AssignPrimOffsets(); total != 5 {
		t.Fatalf("expected 5 primitives; got %d", total)
	}
	if h.PrimOffset != 3 {
		t.Fatalf("expected hair prim offset 3; got %d", h.PrimOffset)
	}
}

func TestHairHasSegment(t *testing.T) {
	hair := NewHair("hair")
	hair.Keys = make([]types.Vec3, 7)
	hair.Radius = make([]float32, 7)
	hair.Curves = []Curve{{FirstKey: 0, NumKeys: 4}, {FirstKey: 4, NumKeys: 4}}

	type spec struct {
		curve, segment int
		exp            bool
	}
	specs := []spec{
		{0, 0, true},
		{0, 2, true},
		{0, 3, false},
		{0, -1, false},
		{2, 0, false},
		// The second curve runs past the end of the key list.
		{1, 0, false},
	}

	for idx, s := range specs {
		if got := hair.HasSegment(s.curve, s.segment); got != s.exp {
			t.Errorf("[spec %d] expected HasSegment(%d, %d) to be %t; got %t", idx, s.curve, s.segment, s.exp, got)
		}
	}

	hair.MotionKeys = [][]types.Vec3{make([]types.Vec3, 3)}
	if hair.HasSegment(0, 0) {
		t.Fatal("expected a curve with missing motion keys to be rejected")
	}
}
