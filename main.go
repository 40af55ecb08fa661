package main

import (
	"fmt"
	"os"

	"github.com/achilleasa/polaris-bvh/cmd"
	"github.com/urfave/cli"
)

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "polaris-bvh"
	app.Usage = "build bounding volume hierarchies for ray tracing"
	app.Version = "0.0.1"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "compile",
			Usage: "compile text scene representation into a binary compressed format",
			Description: `
Parse a scene definition from a wavefront obj file, build a BVH over its
triangles, curves and points and pack it in a traversal-friendly format.

The compiled scene is then written to a zip archive next to the input file.`,
			ArgsUsage: "scene_file1.obj scene_file2.obj ...",
			Flags:     cmd.BuildFlags,
			Action:    cmd.CompileScene,
		},
		{
			Name:      "info",
			Usage:     "print compiled scene statistics",
			ArgsUsage: "scene_file.zip",
			Action:    cmd.ShowSceneInfo,
		},
		{
			Name:  "refit",
			Usage: "refit a compiled scene BVH to updated geometry",
			Description: `
Update the node bounds of a compiled scene after its geometry has moved. The
obj file must define the same objects and primitive counts as the scene that
was compiled. Two-level scenes cannot be refitted.`,
			ArgsUsage: "scene_file.zip scene_file.obj",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "out, o",
					Usage: "write the refitted scene to this file instead of overwriting the input",
				},
			},
			Action: cmd.RefitScene,
		},
		{
			Name:   "host-info",
			Usage:  "list host resources available to the BVH builder",
			Action: cmd.ShowHostInfo,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
