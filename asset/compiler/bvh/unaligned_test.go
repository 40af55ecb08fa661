package bvh

import (
	"slices"
	"testing"

	"github.com/chewxy/math32"

	"github.com/achilleasa/polaris-bvh/asset/compiler/input"
	"github.com/achilleasa/polaris-bvh/types"
)

// Create a grid of straight diagonal curves with 4 keys each.
func diagonalHairObjects(numCurves int) []*input.Object {
	hair := input.NewHair("hair")
	dir := types.Vec3{1, 1, 1}.Normalize()
	for i := 0; i < numCurves; i++ {
		origin := types.Vec3{float32(i%4) * 3, float32(i/4) * 3, 0}
		first := len(hair.Keys)
		for k := 0; k < 4; k++ {
			hair.Keys = append(hair.Keys, origin.Add(dir.Mul(float32(k)*0.5)))
			hair.Radius = append(hair.Radius, 0.05)
		}
		hair.Curves = append(hair.Curves, input.Curve{FirstKey: first, NumKeys: 4})
	}
	return []*input.Object{input.NewObject("hair", hair, types.IdentityTransform())}
}

func TestReferenceSpace(t *testing.T) {
	objects := diagonalHairObjects(1)
	u := &unalignedHeuristic{objects: objects}

	type spec struct {
		ref   Reference
		expOk bool
	}
	specs := []spec{
		{Reference{PrimIndex: 0, PrimType: input.PackSegment(input.PrimitiveCurveThick, 1)}, true},
		{Reference{PrimIndex: 0, PrimType: input.PackSegment(input.PrimitiveMotionCurveThick, 1)}, false},
		{Reference{PrimIndex: -1, PrimType: input.PrimitiveNone}, false},
		{Reference{PrimIndex: 0, PrimType: input.PrimitiveTriangle}, false},
	}

	for idx, s := range specs {
		space, ok := u.referenceSpace(&s.ref)
		if ok != s.expOk {
			t.Errorf("[spec %d] expected ok to be %t; got %t", idx, s.expOk, ok)
			continue
		}
		if !ok {
			continue
		}

		// The segment direction maps to the z axis of the space.
		got := space.Direction(types.Vec3{1, 1, 1}.Normalize())
		if math32.Abs(got[2]-1) > 1e-5 || math32.Abs(got[0]) > 1e-5 || math32.Abs(got[1]) > 1e-5 {
			t.Errorf("[spec %d] expected segment direction to map to +z; got %v", idx, got)
		}
	}
}

func TestOrientedBoundsAreTighter(t *testing.T) {
	objects := diagonalHairObjects(1)
	u := &unalignedHeuristic{objects: objects}
	hair := objects[0].Geometry.(*input.Hair)

	ref := Reference{PrimIndex: 0, PrimType: input.PackSegment(hair.PrimitiveType(), 1), Bounds: types.EmptyBBox()}
	hair.GrowSegmentBBox(0, 1, &ref.Bounds)

	space, ok := u.referenceSpace(&ref)
	if !ok {
		t.Fatal("expected segment to define an oriented space")
	}
	oriented := u.primBounds(&ref, &space)
	if oriented.SafeArea() >= ref.Bounds.SafeArea() {
		t.Fatalf("expected oriented area %f to be smaller than aligned area %f", oriented.SafeArea(), ref.Bounds.SafeArea())
	}
}

func TestUnalignedBuild(t *testing.T) {
	params := DefaultParams()
	params.UseSpatialSplit = false
	params.UseUnalignedNodes = true
	b := buildBVH(t, params, diagonalHairObjects(16))

	stats := b.Stats()
	if stats.UnalignedLeafNodes == 0 {
		t.Fatal("expected curve leaves to be unaligned")
	}
	if stats.Primitives != 48 {
		t.Fatalf("expected 48 curve segment slots; got %d", stats.Primitives)
	}

	hair := b.Objects[0].Geometry.(*input.Hair)
	const eps = 1e-3
	var numUnaligned int

	// Every unaligned record must map the keys of the segments below each
	// child into the unit cube.
	var visit func(idx int, leaf bool) (lo, hi int)
	visit = func(idx int, leaf bool) (lo, hi int) {
		if leaf {
			return int(b.Pack.LeafNodes[idx][0]), int(b.Pack.LeafNodes[idx][1])
		}
		data := b.Pack.Nodes[idx]
		var ranges [2][2]int
		ranges[0][0], ranges[0][1] = visit(decodeChild(data[2]))
		ranges[1][0], ranges[1][1] = visit(decodeChild(data[3]))

		if b.Pack.isUnalignedNode(idx) {
			numUnaligned++
			for child := 0; child < 2; child++ {
				tfm := b.Pack.unalignedNodeTransform(idx, child)
				for slot := ranges[child][0]; slot < ranges[child][1]; slot++ {
					curve := int(b.Pack.PrimIndex[slot])
					segment := input.PrimitiveType(b.Pack.PrimType[slot]).Segment()
					keys := hair.CurveKeys(curve, -1)
					for _, key := range keys[segment : segment+2] {
						p := tfm.Point(key)
						for axis := 0; axis < 3; axis++ {
							if p[axis] < -eps || p[axis] > 1+eps {
								t.Fatalf("expected key of slot %d to map inside the unit cube of node %d; got %v", slot, idx, p)
							}
						}
					}
				}
			}
		}
		return min(ranges[0][0], ranges[1][0]), max(ranges[0][1], ranges[1][1])
	}
	visit(0, b.Pack.RootIndex == -1)

	if numUnaligned == 0 {
		t.Fatal("expected at least one unaligned node record")
	}
}

func TestUnalignedRefit(t *testing.T) {
	params := DefaultParams()
	params.UseSpatialSplit = false
	params.UseUnalignedNodes = true
	b := buildBVH(t, params, diagonalHairObjects(8))

	nodes := slices.Clone(b.Pack.Nodes)
	if err := b.Refit(nil); err != nil {
		t.Fatal(err)
	}

	for idx := 0; idx < len(nodes); idx += b.Pack.nodeSize(idx) {
		if nodes[idx] != b.Pack.Nodes[idx] {
			t.Fatalf("expected header of node %d to be %v after refit; got %v", idx, nodes[idx], b.Pack.Nodes[idx])
		}
		for i := idx + 1; i < idx+b.Pack.nodeSize(idx); i++ {
			for c := 0; c < 4; c++ {
				exp, got := bitsFloat(nodes[i][c]), bitsFloat(b.Pack.Nodes[i][c])
				if math32.Abs(exp-got) > 1e-3*math32.Max(1, math32.Abs(exp)) {
					t.Fatalf("expected node entry %d[%d] to be %f after refit; got %f", i, c, exp, got)
				}
			}
		}
	}
}
