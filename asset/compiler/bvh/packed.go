package bvh

import (
	"math"

	"github.com/achilleasa/polaris-bvh/types"
)

// Int4 is the unit of packed node storage.
type Int4 [4]int32

// PackedBVH is the flat, device-friendly encoding of a BVH.
//
// Inner nodes are stored in Nodes. An aligned inner node occupies NodeSize
// entries: child visibility and child indices followed by the child bounds
// with the x, y and z components of both children interleaved. Unaligned
// inner nodes occupy UnalignedNodeSize entries holding one transform per
// child that maps the child bounds to the unit cube.
//
// Leaves are stored in LeafNodes as {lo, hi, visibility, primitive type}.
// A leaf holding a single object instance stores {^lo, 0, ...}.
//
// Child indices >= 0 address Nodes while negative indices encode ^index
// into LeafNodes.
type PackedBVH struct {
	Nodes     []Int4
	LeafNodes []Int4

	// Root node of each object's BVH inside Nodes; see packInstances.
	ObjectNode []int32

	// Per primitive slot data.
	PrimType       []int32
	PrimVisibility []uint32
	PrimIndex      []int32
	PrimObject     []int32
	PrimTime       []types.Vec2

	// Index of the root inner node or -1 if the root is a leaf.
	RootIndex int32
}

func floatBits(f float32) int32 {
	return int32(math.Float32bits(f))
}

func bitsFloat(i int32) float32 {
	return math.Float32frombits(uint32(i))
}

// Write an aligned inner node record at idx.
func (p *PackedBVH) packAlignedNode(idx int, b0, b1 types.BBox, c0, c1 int32, vis0, vis1 uint32) {
	p.Nodes[idx] = Int4{
		int32(vis0 &^ VisibilityNodeUnaligned),
		int32(vis1 &^ VisibilityNodeUnaligned),
		c0,
		c1,
	}
	for axis := 0; axis < 3; axis++ {
		p.Nodes[idx+1+axis] = Int4{
			floatBits(b0.Min[axis]),
			floatBits(b1.Min[axis]),
			floatBits(b0.Max[axis]),
			floatBits(b1.Max[axis]),
		}
	}
}

// Write an unaligned inner node record at idx.
func (p *PackedBVH) packUnalignedNode(idx int, space0, space1 types.Transform, b0, b1 types.BBox, c0, c1 int32, vis0, vis1 uint32) {
	p.Nodes[idx] = Int4{
		int32(vis0 | VisibilityNodeUnaligned),
		int32(vis1 | VisibilityNodeUnaligned),
		c0,
		c1,
	}
	for child, tfm := range [2]types.Transform{
		computeNodeTransform(b0, space0),
		computeNodeTransform(b1, space1),
	} {
		for row := 0; row < 3; row++ {
			r := tfm.Row(row)
			p.Nodes[idx+1+child*3+row] = Int4{floatBits(r[0]), floatBits(r[1]), floatBits(r[2]), floatBits(r[3])}
		}
	}
}

// Read back the transform of an unaligned node child.
func (p *PackedBVH) unalignedNodeTransform(idx, child int) types.Transform {
	var rows [3]types.Vec4
	for row := 0; row < 3; row++ {
		data := p.Nodes[idx+1+child*3+row]
		rows[row] = types.Vec4{bitsFloat(data[0]), bitsFloat(data[1]), bitsFloat(data[2]), bitsFloat(data[3])}
	}
	return types.TransformFromRows(rows[0], rows[1], rows[2])
}

// Read back the child bounds of an aligned inner node.
func (p *PackedBVH) alignedNodeBounds(idx int) (b0, b1 types.BBox) {
	for axis := 0; axis < 3; axis++ {
		data := p.Nodes[idx+1+axis]
		b0.Min[axis], b1.Min[axis] = bitsFloat(data[0]), bitsFloat(data[1])
		b0.Max[axis], b1.Max[axis] = bitsFloat(data[2]), bitsFloat(data[3])
	}
	return b0, b1
}

// Returns true if the inner node record at idx is unaligned.
func (p *PackedBVH) isUnalignedNode(idx int) bool {
	return uint32(p.Nodes[idx][0])&VisibilityNodeUnaligned != 0
}

// Size of the inner node record at idx.
func (p *PackedBVH) nodeSize(idx int) int {
	if p.isUnalignedNode(idx) {
		return UnalignedNodeSize
	}
	return NodeSize
}

// Decode a child index into a node array offset and a leaf flag.
func decodeChild(c int32) (idx int, leaf bool) {
	if c < 0 {
		return int(^c), true
	}
	return int(c), false
}

// Get the bounds covered by the root node. Returns false if the root is a
// leaf since leaf records carry no bounds.
func (p *PackedBVH) Bounds() (types.BBox, bool) {
	bounds := types.EmptyBBox()
	if p.RootIndex == -1 || len(p.Nodes) == 0 {
		return bounds, false
	}

	idx := int(p.RootIndex)
	if !p.isUnalignedNode(idx) {
		b0, b1 := p.alignedNodeBounds(idx)
		return types.MergeBBox(b0, b1), true
	}

	unit := types.BBox{Max: types.Splat(1)}
	for child := 0; child < 2; child++ {
		bounds.GrowBox(unit.Transformed(p.unalignedNodeTransform(idx, child).Inverse()))
	}
	return bounds, true
}
