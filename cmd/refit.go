package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/achilleasa/polaris-bvh/asset/compiler"
	"github.com/achilleasa/polaris-bvh/asset/compiler/bvh"
	"github.com/achilleasa/polaris-bvh/asset/scene/reader"
	"github.com/achilleasa/polaris-bvh/asset/scene/writer"
	"github.com/urfave/cli"
)

// Refit the BVH of a compiled scene to updated geometry.
func RefitScene(ctx *cli.Context) error {
	setupLogging(ctx)

	if ctx.NArg() != 2 {
		return errors.New("expected a compiled scene zip file and a scene obj file")
	}

	sceneFile, inputFile := ctx.Args().Get(0), ctx.Args().Get(1)
	if !strings.HasSuffix(sceneFile, ".zip") {
		return errors.New("only compiled scene files with a .zip extension are supported")
	}

	sc, err := reader.ReadScene(sceneFile)
	if err != nil {
		return err
	}
	in, err := reader.ReadInput(inputFile)
	if err != nil {
		return err
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	if err = compiler.Refit(in, sc, bvh.NewContextProgress(sigCtx, logger)); err != nil {
		return err
	}
	logger.Noticef("refitted BVH in %d ms", time.Since(start).Nanoseconds()/1e6)

	outFile := ctx.String("out")
	if outFile == "" {
		outFile = sceneFile
	}
	return writer.WriteScene(sc, outFile)
}
