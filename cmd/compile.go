package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"

	"github.com/achilleasa/polaris-bvh/asset/compiler"
	"github.com/achilleasa/polaris-bvh/asset/compiler/bvh"
	"github.com/achilleasa/polaris-bvh/asset/scene/reader"
	"github.com/achilleasa/polaris-bvh/asset/scene/writer"
	"github.com/urfave/cli"
)

// Compile scene to binary format.
func CompileScene(ctx *cli.Context) error {
	setupLogging(ctx)

	opts := compileOptions(ctx)
	logger.Infof("building with %d threads (spatial splits: %t, unaligned nodes: %t, two-level: %t)",
		opts.Params.NumThreads, opts.Params.UseSpatialSplit, opts.Params.UseUnalignedNodes, opts.TwoLevel)

	// Interrupting the process cancels the build in progress
	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	progress := bvh.NewContextProgress(sigCtx, logger)

	for idx := 0; idx < ctx.NArg(); idx++ {
		sceneFile := ctx.Args().Get(idx)
		if !strings.HasSuffix(sceneFile, ".obj") {
			logger.Warningf("skipping unsupported file %s", sceneFile)
			continue
		}

		logger.Noticef("parsing and compiling scene: %s", sceneFile)
		in, err := reader.ReadInput(sceneFile)
		if err != nil {
			return err
		}

		sc, err := compiler.Compile(in, opts, progress)
		if err != nil {
			return err
		}

		// Display compiled scene info
		logger.Noticef("scene information:\n%s", sc.Stats())
		logger.Noticef("BVH information:\n%s", sc.BVHStats.Table())

		zipFile := strings.TrimSuffix(sceneFile, ".obj") + ".zip"
		err = writer.WriteScene(sc, zipFile)
		if err != nil {
			return err
		}
	}

	return nil
}
