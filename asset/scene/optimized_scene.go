package scene

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"

	"github.com/achilleasa/polaris-bvh/asset/compiler/bvh"
	"github.com/achilleasa/polaris-bvh/asset/compiler/input"
	"github.com/achilleasa/polaris-bvh/types"
	"github.com/olekukonko/tablewriter"
)

// Geometry describes a scene geometry whose primitives are addressed by the
// packed BVH.
type Geometry struct {
	Name string
	Type input.GeometryType

	// Offset of the geometry primitives in the scene-wide primitive list.
	PrimOffset    int
	NumPrimitives int

	// Set if the geometry got its own BVH that is shared by all objects
	// instancing it.
	HasBVH bool
}

// Object places a geometry in the scene.
type Object struct {
	Name       string
	Geometry   int
	Transform  types.Transform
	Visibility input.Visibility
}

// Scene is the compiled representation of an input scene.
type Scene struct {
	// The parameters used for building the BVH. They are reused when
	// refitting.
	Params bvh.Params

	// Set if the BVH indexes object instances that point to per-geometry
	// BVHs.
	TwoLevel bool

	Geometry []Geometry
	Objects  []Object

	BVH      bvh.PackedBVH
	BVHStats bvh.Stats
}

// Build a tabular representation of scene statistics.
func (sc *Scene) Stats() string {
	p := &sc.BVH

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Asset Type", "Asset", "Size"})
	table.Append([]string{"Scene", "---", fmtSize(sc.Geometry, sc.Objects)})
	table.Append([]string{"", fmt.Sprintf("Geometry (%d)", len(sc.Geometry)), fmtSize(sc.Geometry)})
	table.Append([]string{"", fmt.Sprintf("Objects (%d)", len(sc.Objects)), fmtSize(sc.Objects)})
	table.Append([]string{" ", " ", " "})
	table.Append([]string{"BVH nodes", "---", fmtSize(p.Nodes, p.LeafNodes, p.ObjectNode)})
	table.Append([]string{"", "Inner nodes", fmtSize(p.Nodes)})
	table.Append([]string{"", "Leaf nodes", fmtSize(p.LeafNodes)})
	table.Append([]string{"", "Object nodes", fmtSize(p.ObjectNode)})
	table.Append([]string{" ", " ", " "})
	table.Append([]string{"BVH primitives", "---", fmtSize(p.PrimType, p.PrimVisibility, p.PrimIndex, p.PrimObject, p.PrimTime)})
	table.Append([]string{"", "Types", fmtSize(p.PrimType)})
	table.Append([]string{"", "Visibility", fmtSize(p.PrimVisibility)})
	table.Append([]string{"", "Indices", fmtSize(p.PrimIndex)})
	table.Append([]string{"", "Objects", fmtSize(p.PrimObject)})
	table.Append([]string{"", "Time", fmtSize(p.PrimTime)})
	table.SetFooter([]string{"Total", " ", strings.TrimLeft(fmtSize(sc.Geometry, sc.Objects, p.Nodes, p.LeafNodes, p.ObjectNode, p.PrimType, p.PrimVisibility, p.PrimIndex, p.PrimObject, p.PrimTime), " ")})

	table.Render()
	return buf.String()
}

// Sum the total space used by a set of slices and return back a formatted
// value with the appropriate byte/kb/mb unit.
func fmtSize(items ...interface{}) string {
	var totalBytes float32 = 0.0
	for _, item := range items {
		t := reflect.TypeOf(item)
		v := reflect.ValueOf(item)
		if v.Len() == 0 {
			continue
		}

		totalBytes += float32(int(t.Elem().Size()) * v.Len())
	}

	if totalBytes < 1e3 {
		return fmt.Sprintf("%3d bytes", int(totalBytes))
	} else if totalBytes < 1e6 {
		return fmt.Sprintf("%3.1f kb", totalBytes/1e3)
	}
	return fmt.Sprintf("%5.1f mb", totalBytes/1e6)
}
