package bvh

import (
	"bytes"
	"fmt"
	"time"

	"github.com/olekukonko/tablewriter"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Stats summarizes the shape of a built BVH.
type Stats struct {
	Nodes               int
	InnerNodes          int
	LeafNodes           int
	UnalignedNodes      int
	UnalignedInnerNodes int
	UnalignedLeafNodes  int

	// Number of primitive slots and the number of references that existed
	// before spatial splits introduced duplicates.
	Primitives         int
	OriginalPrimitives int
	Duplicates         int

	MaxDepth  int
	SAHCost   float32
	BuildTime time.Duration
}

func collectStats(params *Params, tree *Tree, numOriginal, numPrims int) Stats {
	root := tree.Root
	return Stats{
		Nodes:               tree.SubtreeSize(root, StatNodeCount),
		InnerNodes:          tree.SubtreeSize(root, StatInnerCount),
		LeafNodes:           tree.SubtreeSize(root, StatLeafCount),
		UnalignedNodes:      tree.SubtreeSize(root, StatUnalignedCount),
		UnalignedInnerNodes: tree.SubtreeSize(root, StatUnalignedInnerCount),
		UnalignedLeafNodes:  tree.SubtreeSize(root, StatUnalignedLeafCount),
		Primitives:          numPrims,
		OriginalPrimitives:  numOriginal,
		Duplicates:          numPrims - numOriginal,
		MaxDepth:            tree.SubtreeSize(root, StatDepth),
		SAHCost:             tree.SubtreeSAHCost(params, root, 1),
	}
}

// Get the fraction of primitive slots occupied by spatial split duplicates.
func (s Stats) DuplicateRatio() float32 {
	if s.OriginalPrimitives == 0 {
		return 0
	}
	return float32(s.Duplicates) / float32(s.OriginalPrimitives)
}

// Build a tabular representation of the BVH statistics.
func (s Stats) Table() string {
	p := message.NewPrinter(language.English)

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Stat", "Value"})
	table.Append([]string{"Nodes", p.Sprintf("%d", s.Nodes)})
	table.Append([]string{"  inner", p.Sprintf("%d", s.InnerNodes)})
	table.Append([]string{"  leaf", p.Sprintf("%d", s.LeafNodes)})
	table.Append([]string{"  unaligned", p.Sprintf("%d", s.UnalignedNodes)})
	table.Append([]string{"  unaligned inner", p.Sprintf("%d", s.UnalignedInnerNodes)})
	table.Append([]string{"  unaligned leaf", p.Sprintf("%d", s.UnalignedLeafNodes)})
	table.Append([]string{" ", " "})
	table.Append([]string{"Primitives", p.Sprintf("%d", s.Primitives)})
	table.Append([]string{"  original", p.Sprintf("%d", s.OriginalPrimitives)})
	table.Append([]string{"  duplicates", p.Sprintf("%d (%.1f%%)", s.Duplicates, 100*s.DuplicateRatio())})
	table.Append([]string{" ", " "})
	table.Append([]string{"Max depth", p.Sprintf("%d", s.MaxDepth)})
	table.Append([]string{"SAH cost", fmt.Sprintf("%.3f", s.SAHCost)})
	table.SetFooter([]string{"Build time", fmt.Sprintf("%d ms", s.BuildTime.Nanoseconds()/1e6)})

	table.Render()
	return buf.String()
}
