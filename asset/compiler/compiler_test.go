package compiler

import (
	"errors"
	"slices"
	"testing"

	"github.com/achilleasa/polaris-bvh/asset/compiler/bvh"
	"github.com/achilleasa/polaris-bvh/asset/compiler/input"
	"github.com/achilleasa/polaris-bvh/log"
	"github.com/achilleasa/polaris-bvh/types"
)

func init() {
	log.Discard()
}

// Create a mesh with n unit triangles placed along the X axis, 2 units apart.
func rowMesh(name string, n int) *input.Mesh {
	mesh := input.NewMesh(name)
	for i := 0; i < n; i++ {
		o := types.Vec3{float32(2 * i), 0, 0}
		base := len(mesh.Vertices)
		mesh.Vertices = append(mesh.Vertices, o, o.Add(types.Vec3{1, 0, 0}), o.Add(types.Vec3{0, 1, 0}))
		mesh.Triangles = append(mesh.Triangles, [3]int{base, base + 1, base + 2})
	}
	return mesh
}

// Create a scene with a 4 triangle mesh used by objects "a" and "b" (moved
// by 100 units along X) and a second 4 triangle mesh used by object "c".
func instancedScene() *input.Scene {
	shared := rowMesh("shared", 4)
	single := rowMesh("single", 4)

	sc := input.NewScene()
	sc.Geometry = append(sc.Geometry, shared, single)
	sc.Objects = append(sc.Objects,
		input.NewObject("a", shared, types.IdentityTransform()),
		input.NewObject("b", shared, types.TranslateTransform(types.Vec3{100, 0, 0})),
		input.NewObject("c", single, types.IdentityTransform()),
	)
	return sc
}

func binnedOptions(twoLevel bool) Options {
	opts := DefaultOptions()
	opts.Params.UseSpatialSplit = false
	opts.TwoLevel = twoLevel
	return opts
}

func TestCompileEmptyScene(t *testing.T) {
	_, err := Compile(input.NewScene(), DefaultOptions(), nil)
	if err != ErrEmptyScene {
		t.Fatalf("expected to get ErrEmptyScene; got %v", err)
	}
}

func TestCompileUnknownGeometry(t *testing.T) {
	sc := input.NewScene()
	sc.Objects = append(sc.Objects, input.NewObject("orphan", rowMesh("orphan", 1), types.IdentityTransform()))

	_, err := Compile(sc, DefaultOptions(), nil)
	var geomErr *UnknownGeometryError
	if !errors.As(err, &geomErr) {
		t.Fatalf("expected to get an UnknownGeometryError; got %v", err)
	}
	if geomErr.Object != "orphan" {
		t.Fatalf("expected error to reference object %q; got %q", "orphan", geomErr.Object)
	}
}

func TestCompileFlat(t *testing.T) {
	in := instancedScene()
	out, err := Compile(in, binnedOptions(false), nil)
	if err != nil {
		t.Fatal(err)
	}

	if out.TwoLevel || out.Params.TopLevel {
		t.Fatal("expected a single level BVH")
	}
	if len(out.Geometry) != 2 || len(out.Objects) != 3 {
		t.Fatalf("expected 2 geometries and 3 objects; got %d and %d", len(out.Geometry), len(out.Objects))
	}
	if out.Geometry[1].PrimOffset != 4 {
		t.Fatalf("expected second geometry prim offset to be 4; got %d", out.Geometry[1].PrimOffset)
	}

	if len(out.BVH.PrimIndex) != 12 {
		t.Fatalf("expected 12 primitive slots; got %d", len(out.BVH.PrimIndex))
	}
	perObject := make([]int, 3)
	for _, obj := range out.BVH.PrimObject {
		perObject[obj]++
	}
	for obj, count := range perObject {
		if count != 4 {
			t.Errorf("expected object %d to own 4 slots; got %d", obj, count)
		}
	}

	bounds, ok := out.BVH.Bounds()
	if !ok {
		t.Fatal("expected root to be an inner node")
	}
	expMin, expMax := types.Vec3{0, 0, 0}, types.Vec3{107, 1, 0}
	if bounds.Min != expMin || bounds.Max != expMax {
		t.Fatalf("expected baked scene bounds [%v, %v]; got [%v, %v]", expMin, expMax, bounds.Min, bounds.Max)
	}

	if out.BVHStats.OriginalPrimitives != 12 {
		t.Fatalf("expected stats to count 12 primitives; got %d", out.BVHStats.OriginalPrimitives)
	}
}

func TestCompileFlatSkipsInvisibleObjects(t *testing.T) {
	in := instancedScene()
	in.Objects[1].Visibility = input.VisibilityNone

	out, err := Compile(in, binnedOptions(false), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.BVH.PrimIndex) != 8 {
		t.Fatalf("expected 8 primitive slots; got %d", len(out.BVH.PrimIndex))
	}
	if slices.Contains(out.BVH.PrimObject, 1) {
		t.Fatal("expected invisible object to be excluded from the BVH")
	}
}

func TestCompileTwoLevel(t *testing.T) {
	in := instancedScene()
	out, err := Compile(in, binnedOptions(true), nil)
	if err != nil {
		t.Fatal(err)
	}

	if !out.TwoLevel || !out.Params.TopLevel {
		t.Fatal("expected a two-level BVH")
	}
	if !out.Geometry[0].HasBVH {
		t.Error("expected shared geometry to get its own BVH")
	}
	if out.Geometry[1].HasBVH {
		t.Error("expected geometry used by a single untransformed object to be added to the top level")
	}

	if len(out.BVH.ObjectNode) != 3 {
		t.Fatalf("expected 3 object nodes; got %d", len(out.BVH.ObjectNode))
	}
	if out.BVH.ObjectNode[0] != out.BVH.ObjectNode[1] {
		t.Fatalf("expected instances of the same geometry to share a BVH root; got %d and %d", out.BVH.ObjectNode[0], out.BVH.ObjectNode[1])
	}

	var instanceSlots, directSlots int
	for i, primIndex := range out.BVH.PrimIndex {
		switch {
		case primIndex == -1:
			instanceSlots++
		case out.BVH.PrimObject[i] == 2:
			directSlots++
			if primIndex < 4 || primIndex >= 8 {
				t.Errorf("expected direct primitive index in [4, 8); got %d", primIndex)
			}
		}
	}
	if instanceSlots != 2 {
		t.Errorf("expected 2 instance slots; got %d", instanceSlots)
	}
	if directSlots != 4 {
		t.Errorf("expected 4 direct primitive slots; got %d", directSlots)
	}
	if exp := 2 + 4 + 4; len(out.BVH.PrimIndex) != exp {
		t.Errorf("expected %d primitive slots; got %d", exp, len(out.BVH.PrimIndex))
	}
}

func TestRefit(t *testing.T) {
	in := instancedScene()
	out, err := Compile(in, binnedOptions(false), nil)
	if err != nil {
		t.Fatal(err)
	}

	nodes := slices.Clone(out.BVH.Nodes)
	if err = Refit(in, out, nil); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(nodes, out.BVH.Nodes) {
		t.Fatal("expected refit of unchanged scene to leave nodes unchanged")
	}

	moved := types.TranslateTransform(types.Vec3{200, 0, 0})
	in.Objects[1].Transform = moved
	if err = Refit(in, out, nil); err != nil {
		t.Fatal(err)
	}

	bounds, _ := out.BVH.Bounds()
	if bounds.Max[0] != 207 {
		t.Fatalf("expected refitted bounds to reach x=207; got %f", bounds.Max[0])
	}
	if out.Objects[1].Transform != moved {
		t.Fatal("expected object transform to be updated")
	}
}

func TestRefitErrors(t *testing.T) {
	in := instancedScene()
	twoLevel, err := Compile(in, binnedOptions(true), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err = Refit(in, twoLevel, nil); err != bvh.ErrTopLevelRefit {
		t.Fatalf("expected to get ErrTopLevelRefit; got %v", err)
	}

	flat, err := Compile(in, binnedOptions(false), nil)
	if err != nil {
		t.Fatal(err)
	}
	in.Objects = in.Objects[:2]
	if err = Refit(in, flat, nil); err != bvh.ErrTopologyMismatch {
		t.Fatalf("expected to get ErrTopologyMismatch; got %v", err)
	}
}
