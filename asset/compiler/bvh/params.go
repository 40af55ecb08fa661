package bvh

import (
	"runtime"

	"github.com/achilleasa/polaris-bvh/asset/compiler/input"
	"github.com/achilleasa/polaris-bvh/types"
)

const (
	// Maximum number of bins used by object binning.
	maxBins = 32

	// Ranges with at least this many references are built asynchronously.
	threadTaskSize = 4096

	// Encoded sizes (in Int4 units) of packed node records.
	NodeSize          = 4
	UnalignedNodeSize = 7
	NodeLeafSize      = 1

	// Flag set on the visibility fields of unaligned inner node records.
	VisibilityNodeUnaligned uint32 = 1 << 31
)

// Params controls the BVH builder.
type Params struct {
	// Evaluate spatial splits. Spatial splits may duplicate references
	// that straddle a split plane.
	UseSpatialSplit bool

	// Number of bins used when evaluating spatial splits.
	NumSpatialBins int

	// Spatial splits are not evaluated below this depth.
	MaxSpatialDepth int

	// Spatial splits are only considered when the overlap of the best
	// object split children exceeds this fraction of the root area.
	SpatialSplitAlpha float32

	// Allow oriented nodes for curve primitives.
	UseUnalignedNodes bool

	// Unaligned splits are only evaluated when the best aligned split
	// cost exceeds this fraction of the node area.
	UnalignedSplitThreshold float32

	// SAH costs.
	SAHNodeCost      float32
	SAHPrimitiveCost float32

	// Maximum tree depth; deeper ranges are always turned into leaves.
	MaxDepth int

	// Leaf size limits.
	MinLeafSize               int
	MaxTriangleLeafSize       int
	MaxMotionTriangleLeafSize int
	MaxCurveLeafSize          int
	MaxMotionCurveLeafSize    int
	MaxPointLeafSize          int
	MaxMotionPointLeafSize    int

	// Build a BVH over object instances instead of primitives.
	TopLevel bool

	// Number of motion steps for each primitive kind. A non-zero value
	// makes the builder emit a per-primitive time range.
	NumMotionTriangleSteps int
	NumMotionCurveSteps    int
	NumMotionPointSteps    int

	// Maximum number of concurrent build tasks. Values <= 0 select the
	// number of logical CPUs.
	NumThreads int
}

// Get the default builder parameters.
func DefaultParams() Params {
	return Params{
		UseSpatialSplit:           true,
		NumSpatialBins:            32,
		MaxSpatialDepth:           48,
		SpatialSplitAlpha:         1e-5,
		UseUnalignedNodes:         false,
		UnalignedSplitThreshold:   0.7,
		SAHNodeCost:               1.0,
		SAHPrimitiveCost:          1.0,
		MaxDepth:                  64,
		MinLeafSize:               1,
		MaxTriangleLeafSize:       8,
		MaxMotionTriangleLeafSize: 8,
		MaxCurveLeafSize:          1,
		MaxMotionCurveLeafSize:    4,
		MaxPointLeafSize:          8,
		MaxMotionPointLeafSize:    8,
		NumThreads:                runtime.NumCPU(),
	}
}

// Cost of intersecting n primitives.
func (p *Params) PrimitiveCost(n int) float32 {
	return float32(n) * p.SAHPrimitiveCost
}

// Cost of traversing n nodes.
func (p *Params) NodeCost(n int) float32 {
	return float32(n) * p.SAHNodeCost
}

// Combined cost of a node with the given number of children and primitives.
func (p *Params) Cost(numNodes, numPrimitives int) float32 {
	return p.NodeCost(numNodes) + p.PrimitiveCost(numPrimitives)
}

// Returns true if a range must become a leaf.
func (p *Params) SmallEnoughForLeaf(size, level int) bool {
	return size <= p.MinLeafSize || level >= p.MaxDepth
}

// Largest per-type leaf size limit.
func (p *Params) maxLeafSize() int {
	return max(p.MaxTriangleLeafSize, p.MaxCurveLeafSize, p.MaxPointLeafSize)
}

func (p *Params) numThreads() int {
	if p.NumThreads <= 0 {
		return runtime.NumCPU()
	}
	return p.NumThreads
}

func (p *Params) numSpatialBins() int {
	return max(p.NumSpatialBins, 1)
}

func (p *Params) needPrimTime() bool {
	return p.NumMotionTriangleSteps > 0 || p.NumMotionCurveSteps > 0 || p.NumMotionPointSteps > 0
}

// Reference wraps a primitive (or an object instance in top-level builds)
// with the bounds used during construction.
type Reference struct {
	Bounds types.BBox

	// Primitive index within its geometry or -1 for object references.
	PrimIndex int32

	// Index of the object owning the primitive.
	PrimObject int32

	PrimType input.PrimitiveType

	// Time span covered by the reference.
	TimeFrom float32
	TimeTo   float32
}

// Returns true if the reference points to an object instance.
func (r *Reference) IsObject() bool {
	return r.PrimIndex == -1
}

// Range describes a contiguous run of references and their bounds.
type Range struct {
	// Union of the reference bounds.
	Bounds types.BBox

	// Bounds of the reference bounds centers. Centers are stored doubled.
	CentBounds types.BBox

	Start int
	Size  int
}

func (r Range) End() int {
	return r.Start + r.Size
}
