package reader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chewxy/math32"

	"github.com/achilleasa/polaris-bvh/asset"
	"github.com/achilleasa/polaris-bvh/asset/compiler/input"
	"github.com/achilleasa/polaris-bvh/log"
	"github.com/achilleasa/polaris-bvh/types"
)

func init() {
	log.Discard()
}

func parseWavefront(t *testing.T, payload string) *input.Scene {
	t.Helper()
	res := asset.NewResourceFromStream("test.obj", strings.NewReader(payload))
	sc, err := newWavefrontReader().Read(res)
	if err != nil {
		t.Fatal(err)
	}
	return sc
}

func approxEqualVec3(a, b types.Vec3) bool {
	for axis := 0; axis < 3; axis++ {
		if math32.Abs(a[axis]-b[axis]) > 1e-5 {
			return false
		}
	}
	return true
}

func TestParseFacesAndQuads(t *testing.T) {
	payload := `
# a unit quad and a triangle sharing its vertices
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
o quad
f 1 2 3 4
o tri
f -4/1 -3/2 -2/3
`
	sc := parseWavefront(t, payload)

	if len(sc.Geometry) != 2 || len(sc.Objects) != 2 {
		t.Fatalf("expected 2 geometries and 2 objects; got %d and %d", len(sc.Geometry), len(sc.Objects))
	}

	quad := sc.Geometry[0].(*input.Mesh)
	if quad.Name != "quad" {
		t.Fatalf("expected first mesh to be named quad; got %q", quad.Name)
	}
	if len(quad.Vertices) != 4 || len(quad.Triangles) != 2 {
		t.Fatalf("expected quad to have 4 vertices and 2 triangles; got %d and %d", len(quad.Vertices), len(quad.Triangles))
	}
	expTris := [][3]int{{0, 1, 2}, {0, 2, 3}}
	for idx, tri := range quad.Triangles {
		if tri != expTris[idx] {
			t.Errorf("[tri %d] expected %v; got %v", idx, expTris[idx], tri)
		}
	}

	tri := sc.Geometry[1].(*input.Mesh)
	if len(tri.Vertices) != 3 || len(tri.Triangles) != 1 {
		t.Fatalf("expected triangle mesh to have 3 vertices and 1 triangle; got %d and %d", len(tri.Vertices), len(tri.Triangles))
	}

	for idx, obj := range sc.Objects {
		if obj.Geometry != sc.Geometry[idx] {
			t.Errorf("[obj %d] expected default object to reference geometry %d", idx, idx)
		}
		if !obj.Transform.IsIdentity() {
			t.Errorf("[obj %d] expected identity transform", idx)
		}
		if obj.Visibility != input.VisibilityAll {
			t.Errorf("[obj %d] expected object to be fully visible", idx)
		}
	}
}

func TestDefaultObjectName(t *testing.T) {
	sc := parseWavefront(t, "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n")
	if len(sc.Geometry) != 1 {
		t.Fatalf("expected 1 geometry; got %d", len(sc.Geometry))
	}
	if name := sc.Geometry[0].Info().Name; name != "test" {
		t.Fatalf("expected geometry to be named after the file; got %q", name)
	}
}

func TestParseCurvesAndPoints(t *testing.T) {
	payload := `
v 0 0 0
v 0 1 0
v 0 2 0
v 0 3 0
o strands
curve_radius 0.5
curve_shape ribbon
l 1 2 3
l 3 4
point_radius 0.25
p 1 4
`
	sc := parseWavefront(t, payload)
	if len(sc.Geometry) != 2 {
		t.Fatalf("expected 2 geometries; got %d", len(sc.Geometry))
	}

	hair := sc.Geometry[0].(*input.Hair)
	if hair.Name != "strands" || !hair.Ribbon {
		t.Fatalf("expected ribbon hair named strands; got %q (ribbon: %t)", hair.Name, hair.Ribbon)
	}
	if len(hair.Curves) != 2 || hair.NumSegments() != 3 {
		t.Fatalf("expected 2 curves with 3 segments; got %d and %d", len(hair.Curves), hair.NumSegments())
	}
	if hair.Curves[1] != (input.Curve{FirstKey: 3, NumKeys: 2}) {
		t.Fatalf("unexpected second curve %+v", hair.Curves[1])
	}
	for idx, r := range hair.Radius {
		if r != 0.5 {
			t.Errorf("[key %d] expected radius 0.5; got %f", idx, r)
		}
	}

	cloud := sc.Geometry[1].(*input.PointCloud)
	if cloud.Name != "strands.points" {
		t.Fatalf("expected point cloud to be named strands.points; got %q", cloud.Name)
	}
	if len(cloud.Points) != 2 || cloud.Points[1] != (types.Vec3{0, 3, 0}) || cloud.Radius[0] != 0.25 {
		t.Fatalf("unexpected point cloud contents %v %v", cloud.Points, cloud.Radius)
	}

	if len(sc.Objects) != 2 || sc.Objects[0].Name != "strands" || sc.Objects[1].Name != "strands" {
		t.Fatalf("expected 2 objects named strands; got %d", len(sc.Objects))
	}
}

func TestParseInstances(t *testing.T) {
	payload := `
v 0 0 0
v 1 0 0
v 0 1 0
o box
f 1 2 3
instance box 10 0 0 0 0 0 1 1 1
visibility camera shadow
instance box 0 0 0 0 0 90 2 2 2
`
	sc := parseWavefront(t, payload)
	if len(sc.Geometry) != 1 || len(sc.Objects) != 2 {
		t.Fatalf("expected 1 geometry and 2 objects; got %d and %d", len(sc.Geometry), len(sc.Objects))
	}

	type spec struct {
		in     types.Vec3
		expOut types.Vec3
		expVis input.Visibility
	}
	specs := []spec{
		{types.Vec3{0, 0, 0}, types.Vec3{10, 0, 0}, input.VisibilityAll},
		{types.Vec3{1, 0, 0}, types.Vec3{0, 2, 0}, input.VisibilityCamera | input.VisibilityShadow},
	}

	for idx, s := range specs {
		obj := sc.Objects[idx]
		if obj.Geometry != sc.Geometry[0] {
			t.Errorf("[spec %d] expected instance to reference the box mesh", idx)
		}
		if got := obj.Transform.Point(s.in); !approxEqualVec3(got, s.expOut) {
			t.Errorf("[spec %d] expected transformed point %v; got %v", idx, s.expOut, got)
		}
		if obj.Visibility != s.expVis {
			t.Errorf("[spec %d] expected visibility %d; got %d", idx, s.expVis, obj.Visibility)
		}
	}
}

func TestParseMotionAndVisibility(t *testing.T) {
	payload := `
v 0 0 0
v 1 0 0
v 0 1 0
o moving
f 1 2 3
motion_offset 0 1 0
motion_offset 0 2 0
o hidden
visibility none
f 1 2 3
o empty
`
	sc := parseWavefront(t, payload)
	if len(sc.Geometry) != 2 {
		t.Fatalf("expected empty object to be dropped; got %d geometries", len(sc.Geometry))
	}

	moving := sc.Geometry[0].(*input.Mesh)
	if moving.MotionSteps() != 2 {
		t.Fatalf("expected 2 motion steps; got %d", moving.MotionSteps())
	}
	for step, offset := range []types.Vec3{{0, 1, 0}, {0, 2, 0}} {
		for idx, v := range moving.MotionVertices[step] {
			if exp := moving.Vertices[idx].Add(offset); v != exp {
				t.Errorf("[step %d] expected vertex %d to be %v; got %v", step, idx, exp, v)
			}
		}
	}
	if moving.PrimitiveType() != input.PrimitiveMotionTriangle {
		t.Fatalf("expected motion triangles; got %s", moving.PrimitiveType())
	}

	if sc.Objects[0].Visibility != input.VisibilityAll {
		t.Fatalf("expected moving object to be visible")
	}
	if sc.Objects[1].IsTraceable() {
		t.Fatalf("expected hidden object to be untraceable")
	}
}

func TestWavefrontErrors(t *testing.T) {
	type spec struct {
		payload string
		expErr  string
	}
	tri := "v 0 0 0\nv 1 0 0\nv 0 1 0\n"
	specs := []spec{
		{"f 1 2 3\n", "[test.obj: 1] error: could not parse vertex coord for \"f\" argument 0: index out of bounds"},
		{"v 0 0\n", `unsupported syntax for "v"; expected 3 arguments; got 2`},
		{tri + "f 1 2\n", `[test.obj: 4] error: unsupported syntax for "f"`},
		{tri + "f 1 2 3 1 2\n", `unsupported syntax for "f"`},
		{tri + "f 1/1 2 3\n", `contain 2 indices`},
		{tri + "l 1\n", `unsupported syntax for "l"; expected at least 2 arguments; got 1`},
		{"instance foo 0 0 0 0 0 0 1 1 1\n", `unknown object with name "foo"`},
		{tri + "o foo\nf 1 2 3\ninstance foo 0 0 0\n", `expected 10 arguments`},
		{"curve_shape round\n", `unknown curve shape "round"`},
		{"visibility sometimes\n", `unknown ray type "sometimes"`},
		{"curve_radius -1\n", `"curve_radius" must not be negative`},
		{"o\n", `expected 1 argument for object name`},
		{"call\n", `unsupported syntax for "call"`},
	}

	for idx, s := range specs {
		res := asset.NewResourceFromStream("test.obj", strings.NewReader(s.payload))
		_, err := newWavefrontReader().Read(res)
		if err == nil || !strings.Contains(err.Error(), s.expErr) {
			t.Errorf("[spec %d] expected error containing %q; got %v", idx, s.expErr, err)
		}
	}
}

func TestReadInputWithIncludes(t *testing.T) {
	dir := t.TempDir()
	writeFile := func(name, data string) string {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(data), 0644); err != nil {
			t.Fatal(err)
		}
		return path
	}

	// Indices inside the included file are relative to its own vertices.
	writeFile("parts/wheel.obj", "o wheel\nv 5 0 0\nv 6 0 0\nv 5 1 0\nf 1 2 3\n")
	mainFile := writeFile("car.obj", "v 0 0 0\nv 1 0 0\nv 0 1 0\no body\nf 1 2 3\ncall parts/wheel.obj\n")

	sc, err := ReadInput(mainFile)
	if err != nil {
		t.Fatal(err)
	}
	if len(sc.Geometry) != 2 {
		t.Fatalf("expected 2 geometries; got %d", len(sc.Geometry))
	}
	wheel := sc.Geometry[1].(*input.Mesh)
	if wheel.Name != "wheel" || wheel.Vertices[0] != (types.Vec3{5, 0, 0}) {
		t.Fatalf("expected wheel mesh to use the included vertices; got %q %v", wheel.Name, wheel.Vertices)
	}

	badFile := writeFile("bad.obj", "call parts/missing.obj\n")
	_, err = ReadInput(badFile)
	if err == nil || !strings.Contains(err.Error(), "bad.obj: 1]") {
		t.Fatalf("expected include error to reference the including file; got %v", err)
	}

	nestedFile := writeFile("nested.obj", "call parts/broken.obj\n")
	writeFile("parts/broken.obj", "v 0 0\n")
	_, err = ReadInput(nestedFile)
	if err == nil || !strings.Contains(err.Error(), "referenced from") {
		t.Fatalf("expected nested error to include the reference stack; got %v", err)
	}
}

func TestReadInputUnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.ply")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}
	_, err := ReadInput(path)
	if err == nil || !strings.Contains(err.Error(), "unsupported file format") {
		t.Fatalf("expected unsupported format error; got %v", err)
	}
}
