package compiler

import (
	"time"

	"github.com/achilleasa/polaris-bvh/asset/compiler/bvh"
	"github.com/achilleasa/polaris-bvh/asset/compiler/input"
	"github.com/achilleasa/polaris-bvh/asset/scene"
	"github.com/achilleasa/polaris-bvh/log"
	"github.com/achilleasa/polaris-bvh/types"
)

// Options controls how a scene is compiled.
type Options struct {
	Params bvh.Params

	// Build a BVH per instanced geometry and a top-level BVH over the
	// scene objects. When false, object transforms are baked into their
	// primitives and a single BVH is built.
	TwoLevel bool
}

// Get the default compiler options.
func DefaultOptions() Options {
	return Options{
		Params: bvh.DefaultParams(),
	}
}

type sceneCompiler struct {
	parsedScene    *input.Scene
	optimizedScene *scene.Scene
	opts           Options
	progress       bvh.Progress
	logger         log.Logger

	geometryIndex map[input.Geometry]int
}

// Compile a scene representation parsed by a scene reader into a packed
// BVH ready for traversal.
func Compile(parsedScene *input.Scene, opts Options, progress bvh.Progress) (*scene.Scene, error) {
	if len(parsedScene.Objects) == 0 {
		return nil, ErrEmptyScene
	}
	if progress == nil {
		progress = bvh.NopProgress()
	}

	compiler := &sceneCompiler{
		parsedScene: parsedScene,
		optimizedScene: &scene.Scene{
			TwoLevel: opts.TwoLevel,
		},
		opts:          opts,
		progress:      progress,
		logger:        log.New("scene compiler"),
		geometryIndex: make(map[input.Geometry]int),
	}

	start := time.Now()
	compiler.logger.Noticef("compiling scene (%d geometries, %d objects)", len(parsedScene.Geometry), len(parsedScene.Objects))

	err := compiler.describeScene()
	if err != nil {
		return nil, err
	}

	if opts.TwoLevel {
		err = compiler.buildTwoLevel()
	} else {
		err = compiler.buildFlat()
	}
	if err != nil {
		return nil, err
	}

	compiler.logger.Noticef("compiled scene in %d ms", time.Since(start).Nanoseconds()/1e6)
	return compiler.optimizedScene, nil
}

// Assign primitive offsets and copy geometry and object descriptions to
// the compiled scene.
func (sc *sceneCompiler) describeScene() error {
	numPrims := sc.parsedScene.AssignPrimOffsets()
	sc.logger.Infof("scene contains %d primitives (%d references)", numPrims, sc.parsedScene.NumReferences())

	sc.optimizedScene.Geometry = make([]scene.Geometry, len(sc.parsedScene.Geometry))
	for index, geom := range sc.parsedScene.Geometry {
		sc.geometryIndex[geom] = index
		sc.optimizedScene.Geometry[index] = scene.Geometry{
			Name:          geom.Info().Name,
			Type:          geom.Type(),
			PrimOffset:    geom.Info().PrimOffset,
			NumPrimitives: geom.NumPrimitives(),
		}
	}

	sc.optimizedScene.Objects = make([]scene.Object, len(sc.parsedScene.Objects))
	for index, obj := range sc.parsedScene.Objects {
		geomIndex := -1
		if obj.Geometry != nil {
			var ok bool
			if geomIndex, ok = sc.geometryIndex[obj.Geometry]; !ok {
				return &UnknownGeometryError{Object: obj.Name}
			}
		}
		sc.optimizedScene.Objects[index] = scene.Object{
			Name:       obj.Name,
			Geometry:   geomIndex,
			Transform:  obj.Transform,
			Visibility: obj.Visibility,
		}
	}
	return nil
}

// Bake object transforms into the primitives and build a single BVH.
func (sc *sceneCompiler) buildFlat() error {
	params := sc.opts.Params
	params.TopLevel = false

	sc.logger.Infof("building scene BVH (%d objects)", len(sc.parsedScene.Objects))
	tree := bvh.New(params, bakeObjects(sc.parsedScene.Objects))
	if err := tree.Build(sc.progress); err != nil {
		return err
	}

	sc.optimizedScene.Params = params
	sc.optimizedScene.BVH = tree.Pack
	sc.optimizedScene.BVHStats = tree.Stats()
	return nil
}

// Build a BVH for each geometry that is instanced and a top-level BVH
// over the scene objects. Geometry used by a single object with an
// identity transform contributes its primitives to the top level directly.
func (sc *sceneCompiler) buildTwoLevel() error {
	useCount := make(map[input.Geometry]int)
	transformed := make(map[input.Geometry]bool)
	for _, obj := range sc.parsedScene.Objects {
		if obj.Geometry == nil || !obj.IsTraceable() {
			continue
		}
		useCount[obj.Geometry]++
		if !obj.Transform.IsIdentity() {
			transformed[obj.Geometry] = true
		}
	}

	params := sc.opts.Params
	params.TopLevel = false

	topParams := sc.opts.Params
	topParams.TopLevel = true
	top := bvh.New(topParams, sc.parsedScene.Objects)

	for index, geom := range sc.parsedScene.Geometry {
		if useCount[geom] == 0 || (useCount[geom] == 1 && !transformed[geom]) {
			continue
		}
		if sc.progress.GetCancel() {
			return bvh.ErrCancelled
		}

		sc.logger.Infof(`building BVH tree for "%s" (%d primitives, %d instances)`, geom.Info().Name, geom.NumPrimitives(), useCount[geom])
		instance := bvh.New(params, []*input.Object{
			input.NewObject(geom.Info().Name, geom, types.IdentityTransform()),
		})
		if err := instance.Build(sc.progress); err != nil {
			return err
		}
		top.SetInstanceBVH(geom, instance)
		sc.optimizedScene.Geometry[index].HasBVH = true
	}

	sc.logger.Infof("building top-level BVH (%d objects)", len(sc.parsedScene.Objects))
	if err := top.Build(sc.progress); err != nil {
		return err
	}

	sc.optimizedScene.Params = topParams
	sc.optimizedScene.BVH = top.Pack
	sc.optimizedScene.BVHStats = top.Stats()
	return nil
}

// Refit the BVH of a compiled scene after the primitives of the input scene
// have moved. The input must have the same objects and primitive counts as
// the scene that was compiled.
func Refit(parsedScene *input.Scene, sc *scene.Scene, progress bvh.Progress) error {
	if sc.TwoLevel {
		return bvh.ErrTopLevelRefit
	}
	if len(parsedScene.Objects) != len(sc.Objects) {
		return bvh.ErrTopologyMismatch
	}

	tree := bvh.FromPack(sc.Params, bakeObjects(parsedScene.Objects), sc.BVH)
	if err := tree.Refit(progress); err != nil {
		return err
	}
	sc.BVH = tree.Pack

	for index, obj := range parsedScene.Objects {
		sc.Objects[index].Transform = obj.Transform
		sc.Objects[index].Visibility = obj.Visibility
	}
	return nil
}

// Create world-space copies of objects. Objects that cannot be hit by any
// ray keep their slot but lose their geometry so object indices line up
// with the input.
func bakeObjects(objects []*input.Object) []*input.Object {
	baked := make([]*input.Object, len(objects))
	for index, obj := range objects {
		out := *obj
		out.Transform = types.IdentityTransform()
		switch {
		case obj.Geometry == nil || !obj.IsTraceable():
			out.Geometry = nil
		case !obj.Transform.IsIdentity():
			out.Geometry = obj.Geometry.Transformed(obj.Transform)
		}
		baked[index] = &out
	}
	return baked
}
