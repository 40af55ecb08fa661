package reader

import (
	"archive/zip"
	"bytes"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/achilleasa/polaris-bvh/asset"
	"github.com/achilleasa/polaris-bvh/asset/compiler"
	"github.com/achilleasa/polaris-bvh/asset/scene"
	"github.com/achilleasa/polaris-bvh/asset/scene/writer"
)

func compileWavefront(t *testing.T, payload string, opts compiler.Options) *scene.Scene {
	t.Helper()
	sc, err := compiler.Compile(parseWavefront(t, payload), opts, nil)
	if err != nil {
		t.Fatal(err)
	}
	return sc
}

const instancedPayload = `
v 0 0 0
v 1 0 0
v 0 1 0
v 1 1 0
o box
f 1 2 4 3
o strands
l 1 2 3 4
instance box 0 0 0 0 0 0 1 1 1
instance box 5 0 0 0 45 0 1 1 1
instance strands 0 0 3 0 0 0 1 1 1
`

func TestZipRoundTrip(t *testing.T) {
	opts := compiler.DefaultOptions()
	opts.TwoLevel = true
	sc := compileWavefront(t, instancedPayload, opts)

	var buf bytes.Buffer
	if err := writer.WriteSceneTo(sc, &buf); err != nil {
		t.Fatal(err)
	}

	got, err := newZipSceneReader().Read(asset.NewResourceFromStream("scene.zip", &buf))
	if err != nil {
		t.Fatal(err)
	}

	if got.Params != sc.Params || got.TwoLevel != sc.TwoLevel {
		t.Fatal("expected build parameters to survive the round trip")
	}
	if !slices.Equal(got.Geometry, sc.Geometry) || !slices.Equal(got.Objects, sc.Objects) {
		t.Fatal("expected geometry and objects to survive the round trip")
	}
	if !slices.Equal(got.BVH.Nodes, sc.BVH.Nodes) || !slices.Equal(got.BVH.LeafNodes, sc.BVH.LeafNodes) {
		t.Fatal("expected packed nodes to survive the round trip")
	}
	if !slices.Equal(got.BVH.PrimIndex, sc.BVH.PrimIndex) || !slices.Equal(got.BVH.ObjectNode, sc.BVH.ObjectNode) {
		t.Fatal("expected primitive data to survive the round trip")
	}
	if got.BVH.RootIndex != sc.BVH.RootIndex {
		t.Fatalf("expected root index %d; got %d", sc.BVH.RootIndex, got.BVH.RootIndex)
	}
	if got.BVHStats != sc.BVHStats {
		t.Fatal("expected BVH stats to survive the round trip")
	}
}

func TestReadSceneFromFile(t *testing.T) {
	sc := compileWavefront(t, instancedPayload, compiler.DefaultOptions())

	path := filepath.Join(t.TempDir(), "scene.zip")
	if err := writer.WriteScene(sc, path); err != nil {
		t.Fatal(err)
	}

	got, err := ReadScene(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Objects) != 3 || got.TwoLevel {
		t.Fatalf("expected a flat scene with 3 objects; got %d objects (two-level: %t)", len(got.Objects), got.TwoLevel)
	}
	if !strings.Contains(got.Stats(), "Inner nodes") {
		t.Fatal("expected scene stats to list inner nodes")
	}

	if _, err = ReadScene(strings.TrimSuffix(path, ".zip") + ".obj"); err == nil {
		t.Fatal("expected an error when reading a missing scene")
	}
}

func TestZipMissingSceneData(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(writer.StatsFile)
	if err != nil {
		t.Fatal(err)
	}
	w.Write([]byte("stats"))
	if err = zw.Close(); err != nil {
		t.Fatal(err)
	}

	_, err = newZipSceneReader().Read(asset.NewResourceFromStream("scene.zip", &buf))
	if err == nil || !strings.Contains(err.Error(), "missing "+writer.DataFile) {
		t.Fatalf("expected missing data error; got %v", err)
	}
}
