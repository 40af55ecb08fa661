package bvh

import (
	"time"

	"github.com/achilleasa/polaris-bvh/asset/compiler/input"
	"github.com/achilleasa/polaris-bvh/log"
	"github.com/achilleasa/polaris-bvh/types"
)

// BVH is a binary bounding volume hierarchy over a list of objects.
//
// A regular BVH indexes the primitives of its objects. A top-level BVH
// (Params.TopLevel) indexes object instances instead; the BVHs of the
// instanced geometry must be registered with SetInstanceBVH before
// building so they can be merged into the packed output.
type BVH struct {
	Params  Params
	Objects []*input.Object
	Pack    PackedBVH

	// Geometry referenced by Objects in order of first use.
	geometry  []input.Geometry
	instances map[input.Geometry]*BVH

	tree   *Tree
	stats  Stats
	logger log.Logger
}

// Create a new BVH for a list of objects.
func New(params Params, objects []*input.Object) *BVH {
	b := &BVH{
		Params:    params,
		Objects:   objects,
		instances: make(map[input.Geometry]*BVH),
		logger:    log.New("bvh"),
	}

	seen := make(map[input.Geometry]struct{})
	for _, obj := range objects {
		if obj.Geometry == nil {
			continue
		}
		if _, ok := seen[obj.Geometry]; !ok {
			seen[obj.Geometry] = struct{}{}
			b.geometry = append(b.geometry, obj.Geometry)
		}
	}
	return b
}

// Wrap previously packed node data so it can be refitted after the
// primitives of objects have moved. The objects must be the ones the pack
// was built from.
func FromPack(params Params, objects []*input.Object, pack PackedBVH) *BVH {
	b := New(params, objects)
	b.Pack = pack
	return b
}

// Register the BVH built for an instanced geometry.
func (b *BVH) SetInstanceBVH(geom input.Geometry, sub *BVH) {
	b.instances[geom] = sub
}

// Get the build tree. Returns nil if the BVH has not been built.
func (b *BVH) Tree() *Tree {
	return b.tree
}

// Get statistics collected during the last build.
func (b *BVH) Stats() Stats {
	return b.stats
}

// Build the BVH and pack it.
func (b *BVH) Build(progress Progress) error {
	if progress == nil {
		progress = NopProgress()
	}
	start := time.Now()

	progress.SetSubstatus("Building BVH")
	bld := newBuilder(b.Objects, b.Params, progress)
	bld.isInstanced = func(geom input.Geometry) bool {
		return b.instances[geom] != nil
	}
	tree, err := bld.run()
	if err != nil {
		return err
	}
	b.tree = tree

	b.Pack = PackedBVH{
		PrimType:   make([]int32, len(bld.primType)),
		PrimIndex:  bld.primIndex,
		PrimObject: bld.primObject,
		PrimTime:   bld.primTime,
	}
	for i, typ := range bld.primType {
		b.Pack.PrimType[i] = int32(typ)
	}

	root := b.widenChildren(tree.Root)
	if progress.GetCancel() {
		return ErrCancelled
	}

	progress.SetSubstatus("Packing BVH triangles and strands")
	b.packPrimitives()
	if progress.GetCancel() {
		return ErrCancelled
	}

	progress.SetSubstatus("Packing BVH nodes")
	if err := b.packNodes(root); err != nil {
		return err
	}

	b.stats = collectStats(&b.Params, tree, bld.numOriginalReferences, len(bld.primIndex))
	b.stats.BuildTime = time.Since(start)
	b.logger.Debugf("built BVH over %d objects in %d ms", len(b.Objects), b.stats.BuildTime.Nanoseconds()/1e6)
	return nil
}

// Collapse the binary tree to the node width of the output format. The
// packed format is binary, so the tree is returned unchanged.
func (b *BVH) widenChildren(root NodeID) NodeID {
	return root
}

// Fill in per-slot visibility from the owning objects. Object instance
// slots get zero visibility.
func (b *BVH) packPrimitives() {
	b.Pack.PrimVisibility = make([]uint32, len(b.Pack.PrimIndex))
	for i, primIndex := range b.Pack.PrimIndex {
		if primIndex == -1 {
			continue
		}
		b.Pack.PrimVisibility[i] = uint32(b.Objects[b.Pack.PrimObject[i]].Visibility)
	}
}

type stackEntry struct {
	id  NodeID
	idx int
}

func (t *Tree) encodeIndex(e stackEntry) int32 {
	if t.nodes[e.id].leaf {
		return ^int32(e.idx)
	}
	return int32(e.idx)
}

func (t *Tree) innerNodeSize(id NodeID) int {
	if t.HasUnaligned(id) {
		return UnalignedNodeSize
	}
	return NodeSize
}

// Encode the tree into Pack.Nodes and Pack.LeafNodes. The tree is walked
// with an explicit stack; children receive their record offsets before
// they are visited.
func (b *BVH) packNodes(root NodeID) error {
	t := b.tree

	var nodesSize, numLeaves int
	for id, n := range t.nodes {
		if n.leaf {
			numLeaves++
		} else {
			nodesSize += t.innerNodeSize(NodeID(id))
		}
	}

	if b.Params.TopLevel {
		if err := b.packInstances(nodesSize, numLeaves*NodeLeafSize); err != nil {
			return err
		}
	} else {
		b.Pack.Nodes = make([]Int4, nodesSize)
		b.Pack.LeafNodes = make([]Int4, numLeaves*NodeLeafSize)
	}

	var nextNodeIdx, nextLeafIdx int
	stack := make([]stackEntry, 0, max(2*b.Params.MaxDepth, 0))
	if t.nodes[root].leaf {
		stack = append(stack, stackEntry{root, nextLeafIdx})
		nextLeafIdx++
	} else {
		stack = append(stack, stackEntry{root, nextNodeIdx})
		nextNodeIdx += t.innerNodeSize(root)
	}

	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := t.nodes[e.id]
		if n.leaf {
			b.packLeaf(e.idx, n)
			continue
		}

		var children [2]stackEntry
		for i, childID := range n.Children {
			children[i].id = childID
			if t.nodes[childID].leaf {
				children[i].idx = nextLeafIdx
				nextLeafIdx++
			} else {
				children[i].idx = nextNodeIdx
				nextNodeIdx += t.innerNodeSize(childID)
			}
		}
		stack = append(stack, children[0], children[1])
		b.packInner(e.idx, children[0], children[1])
	}
	assert(nextNodeIdx == nodesSize, "packed %d node entries; reserved %d", nextNodeIdx, nodesSize)
	assert(nextLeafIdx == numLeaves, "packed %d leaf entries; reserved %d", nextLeafIdx, numLeaves)

	b.Pack.RootIndex = 0
	if t.nodes[root].leaf {
		b.Pack.RootIndex = -1
	}
	return nil
}

func (b *BVH) packLeaf(idx int, leaf *Node) {
	assert(leaf.Hi <= len(b.Pack.PrimIndex), "leaf range [%d, %d) exceeds %d primitive slots", leaf.Lo, leaf.Hi, len(b.Pack.PrimIndex))
	var data Int4
	if leaf.NumPrimitives() == 1 && b.Pack.PrimIndex[leaf.Lo] == -1 {
		data[0] = ^int32(leaf.Lo)
		data[1] = 0
	} else {
		data[0] = int32(leaf.Lo)
		data[1] = int32(leaf.Hi)
	}
	data[2] = int32(leaf.Visibility)
	if leaf.NumPrimitives() != 0 {
		data[3] = b.Pack.PrimType[leaf.Lo]
	}
	b.Pack.LeafNodes[idx] = data
}

func (b *BVH) packInner(idx int, e0, e1 stackEntry) {
	t := b.tree
	n0, n1 := t.nodes[e0.id], t.nodes[e1.id]
	c0, c1 := t.encodeIndex(e0), t.encodeIndex(e1)

	if !n0.IsUnaligned() && !n1.IsUnaligned() {
		b.Pack.packAlignedNode(idx, n0.Bounds, n1.Bounds, c0, c1, n0.Visibility, n1.Visibility)
		return
	}

	space0, space1 := types.IdentityTransform(), types.IdentityTransform()
	if n0.AlignedSpace != nil {
		space0 = *n0.AlignedSpace
	}
	if n1.AlignedSpace != nil {
		space1 = *n1.AlignedSpace
	}
	b.Pack.packUnalignedNode(idx, space0, space1, n0.Bounds, n1.Bounds, c0, c1, n0.Visibility, n1.Visibility)
}

// Merge the packed BVHs of instanced geometry into the top-level arrays.
// The top-level records occupy the first nodesSize node entries and
// leafNodesSize leaf entries; instance data is appended after them with
// its child indices and primitive ranges rebased.
func (b *BVH) packInstances(nodesSize, leafNodesSize int) error {
	// Primitives added directly to the top level point into the global
	// primitive arrays of their geometry.
	for i, primIndex := range b.Pack.PrimIndex {
		if primIndex != -1 {
			geom := b.Objects[b.Pack.PrimObject[i]].Geometry
			b.Pack.PrimIndex[i] += int32(geom.Info().PrimOffset)
		}
	}

	primOffset := len(b.Pack.PrimIndex)
	nodesOffset := nodesSize
	leafNodesOffset := leafNodesSize

	totalPrims, totalNodes, totalLeafNodes := primOffset, nodesSize, leafNodesSize
	for _, geom := range b.geometry {
		if sub := b.instances[geom]; sub != nil {
			totalPrims += len(sub.Pack.PrimIndex)
			totalNodes += len(sub.Pack.Nodes)
			totalLeafNodes += len(sub.Pack.LeafNodes)
		}
	}

	needPrimTime := b.Pack.PrimTime != nil
	for _, sub := range b.instances {
		if sub.Pack.PrimTime != nil {
			needPrimTime = true
		}
	}
	if needPrimTime && b.Pack.PrimTime == nil {
		b.Pack.PrimTime = make([]types.Vec2, primOffset)
		for i := range b.Pack.PrimTime {
			b.Pack.PrimTime[i] = types.Vec2{0, 1}
		}
	}

	b.Pack.Nodes = make([]Int4, nodesSize, totalNodes)
	b.Pack.LeafNodes = make([]Int4, leafNodesSize, totalLeafNodes)
	b.Pack.ObjectNode = make([]int32, len(b.Objects))

	geometryNode := make(map[input.Geometry]int32)
	for _, geom := range b.geometry {
		sub := b.instances[geom]
		if sub == nil {
			continue
		}
		if sub.Params.TopLevel {
			return ErrMissingInstanceBVH
		}

		if sub.Pack.RootIndex == -1 {
			geometryNode[geom] = int32(-leafNodesOffset - 1)
		} else {
			geometryNode[geom] = int32(nodesOffset)
		}

		geomPrimOffset := int32(geom.Info().PrimOffset)
		for i, primIndex := range sub.Pack.PrimIndex {
			b.Pack.PrimIndex = append(b.Pack.PrimIndex, primIndex+geomPrimOffset)
			b.Pack.PrimType = append(b.Pack.PrimType, sub.Pack.PrimType[i])
			b.Pack.PrimVisibility = append(b.Pack.PrimVisibility, sub.Pack.PrimVisibility[i])
			b.Pack.PrimObject = append(b.Pack.PrimObject, 0)
			if needPrimTime {
				primTime := types.Vec2{0, 1}
				if sub.Pack.PrimTime != nil {
					primTime = sub.Pack.PrimTime[i]
				}
				b.Pack.PrimTime = append(b.Pack.PrimTime, primTime)
			}
		}

		for _, data := range sub.Pack.LeafNodes {
			data[0] += int32(primOffset)
			data[1] += int32(primOffset)
			b.Pack.LeafNodes = append(b.Pack.LeafNodes, data)
		}

		for i := 0; i < len(sub.Pack.Nodes); {
			size := sub.Pack.nodeSize(i)
			data := sub.Pack.Nodes[i]
			for c := 2; c < 4; c++ {
				if data[c] < 0 {
					data[c] -= int32(leafNodesOffset)
				} else {
					data[c] += int32(nodesOffset)
				}
			}
			b.Pack.Nodes = append(b.Pack.Nodes, data)
			b.Pack.Nodes = append(b.Pack.Nodes, sub.Pack.Nodes[i+1:i+size]...)
			i += size
		}

		nodesOffset += len(sub.Pack.Nodes)
		leafNodesOffset += len(sub.Pack.LeafNodes)
		primOffset += len(sub.Pack.PrimIndex)
	}

	for i, obj := range b.Objects {
		if node, ok := geometryNode[obj.Geometry]; ok {
			b.Pack.ObjectNode[i] = node
		}
	}
	return nil
}
