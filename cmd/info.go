package cmd

import (
	"errors"
	"strings"

	"github.com/achilleasa/polaris-bvh/asset/scene/reader"
	"github.com/urfave/cli"
)

// Display compiled scene info.
func ShowSceneInfo(ctx *cli.Context) error {
	setupLogging(ctx)

	if ctx.NArg() != 1 {
		return errors.New("missing compiled scene zip file")
	}

	sceneFile := ctx.Args().First()
	if !strings.HasSuffix(sceneFile, ".zip") {
		return errors.New("only compiled scene files with a .zip extension are supported")
	}

	sc, err := reader.ReadScene(sceneFile)
	if err != nil {
		return err
	}

	// Display compiled scene info
	logger.Noticef("scene information:\n%s", sc.Stats())
	logger.Noticef("BVH information:\n%s", sc.BVHStats.Table())

	if bounds, ok := sc.BVH.Bounds(); ok {
		logger.Noticef("scene bounds: %v - %v", bounds.Min, bounds.Max)
	}
	return nil
}
