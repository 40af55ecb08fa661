package bvh

import (
	"github.com/chewxy/math32"

	"github.com/achilleasa/polaris-bvh/types"
)

// NodeID is the index of a node inside a Tree.
type NodeID int32

const invalidNode NodeID = -1

// Node is either an inner node with two children or a leaf that owns the
// primitive slots [Lo, Hi).
type Node struct {
	// Node bounds. For unaligned nodes the bounds are expressed in the
	// node's aligned space.
	Bounds types.BBox

	// OR of the visibility of all objects below this node.
	Visibility uint32

	// Time span covered by the primitives below this node.
	TimeFrom float32
	TimeTo   float32

	// Oriented space of the node bounds; nil for axis-aligned nodes.
	AlignedSpace *types.Transform

	// Inner node children.
	Children [2]NodeID

	// Leaf primitive slots.
	Lo int
	Hi int

	leaf bool

	// Leaf references waiting to be assigned to primitive slots.
	refs []Reference
}

func (n *Node) IsLeaf() bool {
	return n.leaf
}

func (n *Node) IsUnaligned() bool {
	return n.AlignedSpace != nil
}

// Get the number of primitive slots owned by a leaf.
func (n *Node) NumPrimitives() int {
	return n.Hi - n.Lo
}

// Stat selects a statistic for Tree.SubtreeSize.
type Stat uint8

const (
	StatNodeCount Stat = iota
	StatInnerCount
	StatLeafCount
	StatPrimitiveCount
	StatUnalignedCount
	StatUnalignedInnerCount
	StatUnalignedLeafCount
	StatDepth
)

// Tree is an arena of BVH nodes addressed by NodeID.
type Tree struct {
	nodes []*Node
	Root  NodeID
}

func newTree() *Tree {
	return &Tree{
		nodes: make([]*Node, 0),
		Root:  invalidNode,
	}
}

func (t *Tree) add(n *Node) NodeID {
	t.nodes = append(t.nodes, n)
	return NodeID(len(t.nodes) - 1)
}

// Get a node by its ID.
func (t *Tree) Node(id NodeID) *Node {
	return t.nodes[id]
}

// Returns true if any child of an inner node is unaligned.
func (t *Tree) HasUnaligned(id NodeID) bool {
	n := t.nodes[id]
	if n.leaf {
		return false
	}
	return t.nodes[n.Children[0]].IsUnaligned() || t.nodes[n.Children[1]].IsUnaligned()
}

// Evaluate a statistic over the subtree rooted at id.
func (t *Tree) SubtreeSize(id NodeID, stat Stat) int {
	n := t.nodes[id]

	var cnt int
	switch stat {
	case StatNodeCount:
		cnt = 1
	case StatInnerCount:
		if !n.leaf {
			cnt = 1
		}
	case StatLeafCount:
		if n.leaf {
			cnt = 1
		}
	case StatPrimitiveCount:
		if n.leaf {
			cnt = n.NumPrimitives()
		}
	case StatUnalignedCount:
		if n.IsUnaligned() {
			cnt = 1
		}
	case StatUnalignedInnerCount:
		if t.HasUnaligned(id) {
			cnt = 1
		}
	case StatUnalignedLeafCount:
		if n.leaf && n.IsUnaligned() {
			cnt = 1
		}
	case StatDepth:
		if n.leaf {
			return 0
		}
		return 1 + max(t.SubtreeSize(n.Children[0], stat), t.SubtreeSize(n.Children[1], stat))
	}

	if !n.leaf {
		cnt += t.SubtreeSize(n.Children[0], stat) + t.SubtreeSize(n.Children[1], stat)
	}
	return cnt
}

// Compute the expected SAH traversal cost of the subtree rooted at id.
// Each child contributes in proportion to its surface area relative to its
// parent.
func (t *Tree) SubtreeSAHCost(params *Params, id NodeID, probability float32) float32 {
	n := t.nodes[id]
	if n.leaf {
		return probability * params.Cost(0, n.NumPrimitives())
	}

	sah := probability * params.Cost(2, 0)
	area := n.Bounds.SafeArea()
	for _, childID := range n.Children {
		child := t.nodes[childID]
		childProbability := float32(0)
		if area > 0 {
			childProbability = probability * child.Bounds.SafeArea() / area
		}
		sah += t.SubtreeSAHCost(params, childID, childProbability)
	}
	return sah
}

// Propagate leaf visibility to inner nodes.
func (t *Tree) updateVisibility(id NodeID) uint32 {
	n := t.nodes[id]
	if !n.leaf {
		n.Visibility = t.updateVisibility(n.Children[0]) | t.updateVisibility(n.Children[1])
	}
	return n.Visibility
}

// Propagate leaf time spans to inner nodes.
func (t *Tree) updateTime() {
	t.updateSubtreeTime(t.Root)
}

func (t *Tree) updateSubtreeTime(id NodeID) (from, to float32) {
	n := t.nodes[id]
	if !n.leaf {
		f0, t0 := t.updateSubtreeTime(n.Children[0])
		f1, t1 := t.updateSubtreeTime(n.Children[1])
		n.TimeFrom = math32.Min(f0, f1)
		n.TimeTo = math32.Max(t0, t1)
	}
	return n.TimeFrom, n.TimeTo
}
