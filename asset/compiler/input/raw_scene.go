package input

import (
	"github.com/achilleasa/polaris-bvh/types"
)

// An object places a geometry in the scene.
type Object struct {
	Name       string
	Geometry   Geometry
	Transform  types.Transform
	Visibility Visibility
}

// Create a new fully visible object.
func NewObject(name string, geom Geometry, tfm types.Transform) *Object {
	return &Object{
		Name:       name,
		Geometry:   geom,
		Transform:  tfm,
		Visibility: VisibilityAll,
	}
}

// Objects that are invisible to all ray types are excluded from the BVH.
func (o *Object) IsTraceable() bool {
	return o.Visibility != VisibilityNone
}

// Get the world-space bounding box of the object.
func (o *Object) BBox() types.BBox {
	return o.Geometry.BBox().Transformed(o.Transform)
}

// The scene contains all elements that are processed and optimized by the
// scene compiler.
type Scene struct {
	Geometry []Geometry
	Objects  []*Object
}

// Create a new scene.
func NewScene() *Scene {
	return &Scene{
		Geometry: make([]Geometry, 0),
		Objects:  make([]*Object, 0),
	}
}

// Assign scene-wide primitive offsets to each geometry and return the total
// number of primitives.
func (s *Scene) AssignPrimOffsets() int {
	var offset int
	for _, g := range s.Geometry {
		g.Info().PrimOffset = offset
		offset += g.NumPrimitives()
	}
	return offset
}

// Count the number of primitive references a full build would produce.
// Curve segments are counted individually.
func (s *Scene) NumReferences() int {
	var count int
	for _, o := range s.Objects {
		switch g := o.Geometry.(type) {
		case nil:
		case *Hair:
			count += g.NumSegments()
		default:
			count += g.NumPrimitives()
		}
	}
	return count
}
