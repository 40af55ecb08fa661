package cmd

import (
	"github.com/achilleasa/polaris-bvh/asset/compiler"
	"github.com/urfave/cli"
)

// Map the command line flags to scene compiler options.
func compileOptions(ctx *cli.Context) compiler.Options {
	opts := compiler.DefaultOptions()
	params := &opts.Params

	params.UseSpatialSplit = ctx.BoolT("spatial-split")
	params.UseUnalignedNodes = ctx.Bool("unaligned")
	params.NumSpatialBins = ctx.Int("bins")
	params.MaxSpatialDepth = ctx.Int("max-spatial-depth")
	params.MaxDepth = ctx.Int("max-depth")
	params.SAHNodeCost = float32(ctx.Float64("node-cost"))
	params.SAHPrimitiveCost = float32(ctx.Float64("prim-cost"))

	if leafSize := ctx.Int("max-leaf-size"); leafSize > 0 {
		params.MaxTriangleLeafSize = leafSize
		params.MaxMotionTriangleLeafSize = leafSize
		params.MaxPointLeafSize = leafSize
		params.MaxMotionPointLeafSize = leafSize
	}

	params.NumThreads = ctx.Int("threads")
	if params.NumThreads <= 0 {
		params.NumThreads = defaultThreads()
	}

	if steps := ctx.Int("motion-steps"); steps > 0 {
		params.NumMotionTriangleSteps = steps
		params.NumMotionCurveSteps = steps
		params.NumMotionPointSteps = steps
	}

	opts.TwoLevel = ctx.Bool("two-level")
	return opts
}

// Flags shared by the commands that build a BVH.
var BuildFlags = []cli.Flag{
	cli.BoolTFlag{
		Name:  "spatial-split",
		Usage: "evaluate spatial splits; straddling primitives may be duplicated",
	},
	cli.BoolFlag{
		Name:  "unaligned",
		Usage: "allow oriented nodes for curves",
	},
	cli.BoolFlag{
		Name:  "two-level",
		Usage: "build a BVH per instanced geometry and a top-level BVH over objects",
	},
	cli.IntFlag{
		Name:  "bins",
		Value: 32,
		Usage: "number of bins for spatial split evaluation",
	},
	cli.IntFlag{
		Name:  "max-spatial-depth",
		Value: 48,
		Usage: "do not evaluate spatial splits below this tree depth",
	},
	cli.IntFlag{
		Name:  "max-depth",
		Value: 64,
		Usage: "max tree depth; deeper ranges always become leaves",
	},
	cli.IntFlag{
		Name:  "max-leaf-size",
		Value: 8,
		Usage: "max number of triangles or points in a leaf",
	},
	cli.IntFlag{
		Name:  "motion-steps",
		Usage: "number of motion steps; emits per-primitive time ranges when > 0",
	},
	cli.IntFlag{
		Name:  "threads",
		Usage: "number of build workers (default: number of physical cores)",
	},
	cli.Float64Flag{
		Name:  "node-cost",
		Value: 1.0,
		Usage: "SAH cost of traversing a node",
	},
	cli.Float64Flag{
		Name:  "prim-cost",
		Value: 1.0,
		Usage: "SAH cost of intersecting a primitive",
	},
}
