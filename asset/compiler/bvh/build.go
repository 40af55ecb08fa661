package bvh

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chewxy/math32"

	"github.com/achilleasa/polaris-bvh/asset/compiler/input"
	"github.com/achilleasa/polaris-bvh/log"
	"github.com/achilleasa/polaris-bvh/types"
)

// Minimum interval between progress reports.
const progressInterval = time.Second

// builder constructs a binary BVH over the primitives (or object instances
// for top-level builds) of a list of objects.
type builder struct {
	logger   log.Logger
	objects  []*input.Object
	params   Params
	progress Progress

	references            []Reference
	numOriginalReferences int
	needPrimTime          bool
	spatialMinOverlap     float32

	// Reports whether a geometry has its own BVH. Only consulted for
	// top-level builds; objects with non-instanced geometry contribute
	// their primitives directly.
	isInstanced func(input.Geometry) bool

	unaligned *unalignedHeuristic
	storage   *storagePool
	pool      *taskPool
	tree      *Tree

	// Primitive slot arrays filled in once the tree is complete.
	primType   []input.PrimitiveType
	primIndex  []int32
	primObject []int32
	primTime   []types.Vec2

	// Guards the node arena and progress counters.
	mutex                 sync.Mutex
	progressCount         int
	progressTotal         int
	progressOriginalTotal int
	lastProgressUpdate    time.Time

	cancelled atomic.Bool
}

func newBuilder(objects []*input.Object, params Params, progress Progress) *builder {
	if progress == nil {
		progress = NopProgress()
	}
	numThreads := params.numThreads()
	return &builder{
		logger:       log.New("bvh builder"),
		objects:      objects,
		params:       params,
		progress:     progress,
		needPrimTime: params.needPrimTime(),
		isInstanced:  func(input.Geometry) bool { return true },
		unaligned:    &unalignedHeuristic{objects: objects},
		storage:      newStoragePool(numThreads),
		pool:         newTaskPool(numThreads),
		tree:         newTree(),
	}
}

// Build the tree and assign every leaf its primitive slots.
func (b *builder) run() (*Tree, error) {
	start := time.Now()

	root := b.addReferences()
	b.numOriginalReferences = len(b.references)
	b.spatialMinOverlap = root.Bounds.SafeArea() * b.params.SpatialSplitAlpha

	b.progressCount = 0
	b.progressTotal = len(b.references)
	b.progressOriginalTotal = len(b.references)
	b.lastProgressUpdate = time.Now()

	if b.params.UseSpatialSplit {
		refs := b.references
		b.tree.Root = b.buildSpatialNode(root, &refs, 0, -1)
	} else {
		b.tree.Root = b.buildBinnedNode(root, 0, -1)
	}
	b.pool.wait()

	if b.isCancelled() {
		return nil, ErrCancelled
	}

	b.tree.updateVisibility(b.tree.Root)
	b.tree.updateTime()
	b.assignPrimitiveSlots()

	b.logger.Debugf(
		"BVH build time: %d ms, references: %d, duplicates: %d, nodes: %d, depth: %d",
		time.Since(start).Nanoseconds()/1e6,
		b.numOriginalReferences, len(b.primIndex)-b.numOriginalReferences,
		len(b.tree.nodes), b.tree.SubtreeSize(b.tree.Root, StatDepth),
	)
	return b.tree, nil
}

// Collect references for all traceable objects and return the root range.
func (b *builder) addReferences() Range {
	numRefs := len(b.objects)
	if !b.params.TopLevel {
		numRefs = 0
		for _, obj := range b.objects {
			switch geom := obj.Geometry.(type) {
			case *input.Hair:
				numRefs += geom.NumSegments()
			case input.Geometry:
				numRefs += geom.NumPrimitives()
			}
		}
	}
	b.references = make([]Reference, 0, numRefs)

	root := Range{Bounds: types.EmptyBBox(), CentBounds: types.EmptyBBox()}
	for i, obj := range b.objects {
		if obj.Geometry == nil {
			continue
		}
		if b.params.TopLevel {
			if !obj.IsTraceable() {
				continue
			}
			if b.isInstanced(obj.Geometry) {
				b.addObjectReference(&root, obj, i)
				continue
			}
		}
		b.addGeometryReferences(&root, obj.Geometry, i)
	}
	root.Size = len(b.references)
	return root
}

func (b *builder) pushReference(root *Range, ref Reference) {
	if !ref.Bounds.Valid() {
		return
	}
	b.references = append(b.references, ref)
	root.Bounds.GrowBox(ref.Bounds)
	root.CentBounds.Grow(ref.Bounds.Center2())
}

func (b *builder) addObjectReference(root *Range, obj *input.Object, objIndex int) {
	b.pushReference(root, Reference{
		Bounds:     obj.BBox(),
		PrimIndex:  -1,
		PrimObject: int32(objIndex),
		PrimType:   input.PrimitiveNone,
		TimeTo:     1,
	})
}

func (b *builder) addGeometryReferences(root *Range, geom input.Geometry, objIndex int) {
	switch g := geom.(type) {
	case *input.Mesh:
		typ := g.PrimitiveType()
		for tri := range g.Triangles {
			bounds := types.EmptyBBox()
			g.GrowTriangleBBox(tri, &bounds)
			b.pushReference(root, Reference{
				Bounds:     bounds,
				PrimIndex:  int32(tri),
				PrimObject: int32(objIndex),
				PrimType:   typ,
				TimeTo:     1,
			})
		}
	case *input.Hair:
		typ := g.PrimitiveType()
		for curve, c := range g.Curves {
			for segment := 0; segment < c.NumSegments(); segment++ {
				bounds := types.EmptyBBox()
				g.GrowSegmentBBox(curve, segment, &bounds)
				b.pushReference(root, Reference{
					Bounds:     bounds,
					PrimIndex:  int32(curve),
					PrimObject: int32(objIndex),
					PrimType:   input.PackSegment(typ, segment),
					TimeTo:     1,
				})
			}
		}
	case *input.PointCloud:
		typ := g.PrimitiveType()
		for point := range g.Points {
			bounds := types.EmptyBBox()
			g.GrowPointBBox(point, &bounds)
			b.pushReference(root, Reference{
				Bounds:     bounds,
				PrimIndex:  int32(point),
				PrimObject: int32(objIndex),
				PrimType:   typ,
				TimeTo:     1,
			})
		}
	}
}

// Returns true if the build was cancelled. Once cancellation is observed
// it sticks for the remainder of the build.
func (b *builder) isCancelled() bool {
	if b.cancelled.Load() {
		return true
	}
	if b.progress.GetCancel() {
		b.cancelled.Store(true)
		return true
	}
	return false
}

// Account for finished references and report progress if enough time has
// elapsed since the last report.
func (b *builder) updateProgress(completed, duplicates int) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.progressCount += completed
	b.progressTotal += duplicates
	if completed == 0 || time.Since(b.lastProgressUpdate) < progressInterval {
		return
	}

	done := float64(b.progressCount) / float64(b.progressTotal)
	dups := float64(b.progressTotal-b.progressOriginalTotal) / float64(b.progressTotal)
	b.progress.SetSubstatus(fmt.Sprintf("Building BVH %.0f%%, duplicates %.0f%%", done*100, dups*100))
	b.lastProgressUpdate = time.Now()
}

func (b *builder) addNode(n *Node) NodeID {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.tree.add(n)
}

func (b *builder) newInner(bounds types.BBox, space *types.Transform) (NodeID, *Node) {
	n := &Node{
		Bounds:       bounds,
		AlignedSpace: space,
		Children:     [2]NodeID{invalidNode, invalidNode},
	}
	return b.addNode(n), n
}

// Returns true if the references in r fit within the per-type leaf limits.
func (b *builder) rangeWithinMaxLeafSize(r Range, refs []Reference) bool {
	if r.Size > b.params.maxLeafSize() {
		return false
	}

	var numTriangles, numMotionTriangles, numCurves, numMotionCurves, numPoints, numMotionPoints int
	for i := r.Start; i < r.End(); i++ {
		typ := refs[i].PrimType
		switch {
		case typ.IsCurve() && typ.IsMotion():
			numMotionCurves++
		case typ.IsCurve():
			numCurves++
		case typ.Is(input.PrimitiveTriangle) && typ.IsMotion():
			numMotionTriangles++
		case typ.Is(input.PrimitiveTriangle):
			numTriangles++
		case typ.Is(input.PrimitivePoint) && typ.IsMotion():
			numMotionPoints++
		case typ.Is(input.PrimitivePoint):
			numPoints++
		}
	}

	return numTriangles <= b.params.MaxTriangleLeafSize &&
		numMotionTriangles <= b.params.MaxMotionTriangleLeafSize &&
		numCurves <= b.params.MaxCurveLeafSize &&
		numMotionCurves <= b.params.MaxMotionCurveLeafSize &&
		numPoints <= b.params.MaxPointLeafSize &&
		numMotionPoints <= b.params.MaxMotionPointLeafSize
}

// Build a subtree using object binning. All subtrees share b.references
// and only ever reorder references inside their own range.
func (b *builder) buildBinnedNode(r Range, level, worker int) NodeID {
	if b.isCancelled() {
		return invalidNode
	}

	refs := b.references
	size := r.Size
	topLevelRoot := size > 0 && b.params.TopLevel && level == 0

	if !topLevelRoot && b.params.SmallEnoughForLeaf(size, level) {
		b.updateProgress(size, 0)
		return b.createLeafNode(r, refs)
	}

	binning := newObjectBinning(r, refs, nil, nil)
	leafSAH := b.params.SAHPrimitiveCost * binning.leafSAH
	splitSAH := b.params.SAHNodeCost*binning.bounds.HalfArea() + b.params.SAHPrimitiveCost*binning.splitSAH

	var (
		unalignedSplitSAH float32 = math32.MaxFloat32
		space             *types.Transform
	)
	if b.params.UseUnalignedNodes && splitSAH > b.params.UnalignedSplitThreshold*leafSAH {
		if s, ok := b.unaligned.rangeSpace(refs, r.Start, r.End()); ok {
			unalignedBinning := newObjectBinning(r, refs, b.unaligned, &s)
			unalignedSplitSAH = b.params.SAHNodeCost*unalignedBinning.bounds.HalfArea() + b.params.SAHPrimitiveCost*unalignedBinning.splitSAH
			unalignedLeafSAH := b.params.SAHPrimitiveCost * unalignedBinning.leafSAH

			if !topLevelRoot && unalignedLeafSAH < unalignedSplitSAH && unalignedSplitSAH < splitSAH &&
				b.rangeWithinMaxLeafSize(r, refs) {
				b.updateProgress(size, 0)
				return b.createLeafNode(r, refs)
			}
			if unalignedSplitSAH < splitSAH {
				binning = unalignedBinning
				space = &s
			}
		}
	}

	if !topLevelRoot && leafSAH < splitSAH && leafSAH < unalignedSplitSAH && b.rangeWithinMaxLeafSize(r, refs) {
		b.updateProgress(size, 0)
		return b.createLeafNode(r, refs)
	}

	bounds := r.Bounds
	if space != nil {
		bounds = binning.bounds
	}
	left, right := binning.split(refs)

	id, inner := b.newInner(bounds, space)
	if size < threadTaskSize {
		inner.Children[0] = b.buildBinnedNode(left, level+1, worker)
		inner.Children[1] = b.buildBinnedNode(right, level+1, worker)
		return id
	}

	b.pool.push(func(worker int) {
		inner.Children[1] = b.buildBinnedNode(right, level+1, worker)
	})
	inner.Children[0] = b.buildBinnedNode(left, level+1, worker)
	return id
}

// Build a subtree using mixed object and spatial splits. Spatial splits
// may insert duplicated references into *refs which shifts everything
// after the range; the right child therefore always works on its own copy
// of its references.
func (b *builder) buildSpatialNode(r Range, refs *[]Reference, level, worker int) NodeID {
	if b.isCancelled() {
		return invalidNode
	}

	storage := b.storage.get(worker)
	size := r.Size
	topLevelRoot := size > 0 && b.params.TopLevel && level == 0

	if !topLevelRoot && b.params.SmallEnoughForLeaf(size, level) {
		b.updateProgress(size, 0)
		return b.createLeafNode(r, *refs)
	}

	split := b.findMixedSplit(storage, r, *refs, level, nil)
	if !topLevelRoot && split.noSplit {
		b.updateProgress(size, 0)
		return b.createLeafNode(r, *refs)
	}

	var space *types.Transform
	splitSAH := min(split.nodeSAH, split.minSAH)
	if b.params.UseUnalignedNodes && splitSAH > b.params.UnalignedSplitThreshold*r.Bounds.SafeArea() {
		if s, ok := b.unaligned.rangeSpace(*refs, r.Start, r.End()); ok {
			unalignedSplit := b.findMixedSplit(storage, r, *refs, level, &s)
			if unalignedSplit.minSAH < splitSAH {
				split = unalignedSplit
				space = &s
			}
		}
	}

	bounds := r.Bounds
	if space != nil {
		bounds = split.bounds
	}
	left, right := split.split(b, storage, refs, r)
	b.updateProgress(0, left.Size+right.Size-size)

	// Copy the right references before the left subtree gets a chance to
	// insert duplicates in front of them.
	rightRefs := make([]Reference, right.Size)
	copy(rightRefs, (*refs)[right.Start:right.End()])
	right.Start = 0

	id, inner := b.newInner(bounds, space)
	if size < threadTaskSize {
		inner.Children[0] = b.buildSpatialNode(left, refs, level+1, worker)
		inner.Children[1] = b.buildSpatialNode(right, &rightRefs, level+1, worker)
		return id
	}

	b.pool.push(func(worker int) {
		inner.Children[1] = b.buildSpatialNode(right, &rightRefs, level+1, worker)
	})
	inner.Children[0] = b.buildSpatialNode(left, refs, level+1, worker)
	return id
}

// Turn a range into one leaf per primitive type plus a balanced subtree of
// single object leaves. Multiple leaves are joined by inner nodes.
func (b *builder) createLeafNode(r Range, refs []Reference) NodeID {
	var (
		groups     [input.NumPrimitiveTypes][]Reference
		objectRefs []Reference
	)
	for i := r.Start; i < r.End(); i++ {
		ref := refs[i]
		if ref.IsObject() {
			objectRefs = append(objectRefs, ref)
			continue
		}
		if idx := ref.PrimType.Index(); idx >= 0 {
			groups[idx] = append(groups[idx], ref)
		}
	}

	var (
		leaves      []NodeID
		worldBounds []types.BBox
	)
	for _, group := range groups {
		if len(group) == 0 {
			continue
		}

		leaf := &Node{
			leaf:     true,
			Bounds:   types.EmptyBBox(),
			TimeFrom: math32.MaxFloat32,
			TimeTo:   -math32.MaxFloat32,
			refs:     group,
		}
		for i := range group {
			leaf.Bounds.GrowBox(group[i].Bounds)
			leaf.Visibility |= uint32(b.objects[group[i].PrimObject].Visibility)
			leaf.TimeFrom = math32.Min(leaf.TimeFrom, group[i].TimeFrom)
			leaf.TimeTo = math32.Max(leaf.TimeTo, group[i].TimeTo)
		}
		bounds := leaf.Bounds

		if b.params.UseUnalignedNodes {
			for i := range group {
				if space, ok := b.unaligned.referenceSpace(&group[i]); ok {
					leaf.AlignedSpace = &space
					leaf.Bounds = b.unaligned.rangeBounds(group, 0, len(group), &space)
					break
				}
			}
		}

		leaves = append(leaves, b.addNode(leaf))
		worldBounds = append(worldBounds, bounds)
	}

	if len(objectRefs) != 0 || len(leaves) == 0 {
		id, bounds := b.createObjectLeafNodes(objectRefs)
		leaves = append(leaves, id)
		worldBounds = append(worldBounds, bounds)
	}

	id, _ := b.joinNodes(leaves, worldBounds)
	return id
}

// Build a balanced subtree with one leaf per object reference. An empty
// list yields a single empty leaf.
func (b *builder) createObjectLeafNodes(refs []Reference) (NodeID, types.BBox) {
	switch len(refs) {
	case 0:
		return b.addNode(&Node{leaf: true, Bounds: types.EmptyBBox(), TimeTo: 1}), types.EmptyBBox()
	case 1:
		ref := refs[0]
		leaf := &Node{
			leaf:       true,
			Bounds:     ref.Bounds,
			Visibility: uint32(b.objects[ref.PrimObject].Visibility),
			TimeFrom:   ref.TimeFrom,
			TimeTo:     ref.TimeTo,
			refs:       refs,
		}
		return b.addNode(leaf), ref.Bounds
	}

	mid := len(refs) / 2
	left, leftBounds := b.createObjectLeafNodes(refs[:mid])
	right, rightBounds := b.createObjectLeafNodes(refs[mid:])
	bounds := types.MergeBBox(leftBounds, rightBounds)
	id, inner := b.newInner(bounds, nil)
	inner.Children = [2]NodeID{left, right}
	return id, bounds
}

// Join a list of nodes with a balanced tree of inner nodes.
func (b *builder) joinNodes(nodes []NodeID, bounds []types.BBox) (NodeID, types.BBox) {
	if len(nodes) == 1 {
		return nodes[0], bounds[0]
	}

	mid := len(nodes) / 2
	left, leftBounds := b.joinNodes(nodes[:mid], bounds[:mid])
	right, rightBounds := b.joinNodes(nodes[mid:], bounds[mid:])
	merged := types.MergeBBox(leftBounds, rightBounds)
	id, inner := b.newInner(merged, nil)
	inner.Children = [2]NodeID{left, right}
	return id, merged
}

// Walk the finished tree depth-first and hand each leaf a contiguous run
// of primitive slots. Visiting order is fixed, so the slot layout does not
// depend on how build tasks were scheduled.
func (b *builder) assignPrimitiveSlots() {
	numSlots := 0
	for _, n := range b.tree.nodes {
		numSlots += len(n.refs)
	}
	b.primType = make([]input.PrimitiveType, 0, numSlots)
	b.primIndex = make([]int32, 0, numSlots)
	b.primObject = make([]int32, 0, numSlots)
	if b.needPrimTime {
		b.primTime = make([]types.Vec2, 0, numSlots)
	}

	stack := []NodeID{b.tree.Root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := b.tree.nodes[id]
		if !n.leaf {
			stack = append(stack, n.Children[1], n.Children[0])
			continue
		}

		n.Lo = len(b.primIndex)
		for _, ref := range n.refs {
			b.primType = append(b.primType, ref.PrimType)
			b.primIndex = append(b.primIndex, ref.PrimIndex)
			b.primObject = append(b.primObject, ref.PrimObject)
			if b.needPrimTime {
				b.primTime = append(b.primTime, types.Vec2{ref.TimeFrom, ref.TimeTo})
			}
		}
		n.Hi = len(b.primIndex)
		n.refs = nil
	}
}
