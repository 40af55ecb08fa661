package input

import (
	"github.com/achilleasa/polaris-bvh/types"
)

type GeometryType uint8

const (
	GeometryMesh GeometryType = iota
	GeometryHair
	GeometryPointCloud
)

func (t GeometryType) String() string {
	switch t {
	case GeometryMesh:
		return "mesh"
	case GeometryHair:
		return "hair"
	case GeometryPointCloud:
		return "point cloud"
	}
	return "unknown"
}

// GeometryInfo holds the attributes shared by all geometry types.
type GeometryInfo struct {
	Name string

	// Offset of this geometry's primitives in scene-wide primitive arrays.
	PrimOffset int

	bbox            types.BBox
	bboxNeedsUpdate bool
}

// Mark the bbox of this geometry as dirty.
func (g *GeometryInfo) MarkBBoxDirty() {
	g.bboxNeedsUpdate = true
}

// The Geometry interface is implemented by all primitive containers that
// can be referenced by scene objects.
type Geometry interface {
	Info() *GeometryInfo
	Type() GeometryType

	// Number of addressable primitives. Curves count as a single
	// primitive regardless of their segment count.
	NumPrimitives() int

	// Number of motion steps excluding the center step.
	MotionSteps() int

	// Bounding box over all primitives and motion steps.
	BBox() types.BBox

	// Return a copy of the geometry with tfm applied to its primitives.
	Transformed(tfm types.Transform) Geometry
}

// A triangle mesh.
type Mesh struct {
	GeometryInfo

	Vertices  []types.Vec3
	Triangles [][3]int

	// Vertex positions for each additional motion step. Every step has
	// the same length as Vertices.
	MotionVertices [][]types.Vec3
}

// Create a new mesh.
func NewMesh(name string) *Mesh {
	return &Mesh{
		GeometryInfo: GeometryInfo{Name: name, bboxNeedsUpdate: true},
	}
}

func (m *Mesh) Info() *GeometryInfo { return &m.GeometryInfo }
func (m *Mesh) Type() GeometryType  { return GeometryMesh }
func (m *Mesh) NumPrimitives() int  { return len(m.Triangles) }
func (m *Mesh) MotionSteps() int    { return len(m.MotionVertices) }

// Get the primitive type used for this mesh's triangles.
func (m *Mesh) PrimitiveType() PrimitiveType {
	if m.MotionSteps() > 0 {
		return PrimitiveMotionTriangle
	}
	return PrimitiveTriangle
}

// Grow bbox by a triangle's vertices at every motion step. Non-finite
// vertices are skipped.
func (m *Mesh) GrowTriangleBBox(tri int, bbox *types.BBox) {
	t := m.Triangles[tri]
	for _, vi := range t {
		bbox.GrowSafe(m.Vertices[vi])
	}
	for _, step := range m.MotionVertices {
		for _, vi := range t {
			bbox.GrowSafe(step[vi])
		}
	}
}

// Get the vertices of a triangle at a particular motion step. Step -1
// selects the center step.
func (m *Mesh) TriangleVertices(tri, step int) [3]types.Vec3 {
	verts := m.Vertices
	if step >= 0 {
		verts = m.MotionVertices[step]
	}
	t := m.Triangles[tri]
	return [3]types.Vec3{verts[t[0]], verts[t[1]], verts[t[2]]}
}

func (m *Mesh) BBox() types.BBox {
	if m.bboxNeedsUpdate {
		m.bbox = types.EmptyBBox()
		for _, v := range m.Vertices {
			m.bbox.GrowSafe(v)
		}
		for _, step := range m.MotionVertices {
			for _, v := range step {
				m.bbox.GrowSafe(v)
			}
		}
		m.bboxNeedsUpdate = false
	}
	return m.bbox
}

func (m *Mesh) Transformed(tfm types.Transform) Geometry {
	out := NewMesh(m.Name)
	out.PrimOffset = m.PrimOffset
	out.Triangles = m.Triangles
	out.Vertices = transformPoints(m.Vertices, tfm)
	for _, step := range m.MotionVertices {
		out.MotionVertices = append(out.MotionVertices, transformPoints(step, tfm))
	}
	return out
}

// A single curve is defined by a run of consecutive keys.
type Curve struct {
	FirstKey int
	NumKeys  int
}

// Number of segments between consecutive keys.
func (c Curve) NumSegments() int {
	if c.NumKeys < 2 {
		return 0
	}
	return c.NumKeys - 1
}

// A collection of curves.
type Hair struct {
	GeometryInfo

	Keys   []types.Vec3
	Radius []float32
	Curves []Curve

	// Key positions for each additional motion step.
	MotionKeys [][]types.Vec3

	// Render curves as flat ribbons instead of thick tubes.
	Ribbon bool
}

// Create a new hair geometry.
func NewHair(name string) *Hair {
	return &Hair{
		GeometryInfo: GeometryInfo{Name: name, bboxNeedsUpdate: true},
	}
}

func (h *Hair) Info() *GeometryInfo { return &h.GeometryInfo }
func (h *Hair) Type() GeometryType  { return GeometryHair }
func (h *Hair) NumPrimitives() int  { return len(h.Curves) }
func (h *Hair) MotionSteps() int    { return len(h.MotionKeys) }

// Get the total number of segments over all curves.
func (h *Hair) NumSegments() int {
	var count int
	for _, c := range h.Curves {
		count += c.NumSegments()
	}
	return count
}

// Get the primitive type used for this hair's segments.
func (h *Hair) PrimitiveType() PrimitiveType {
	typ := PrimitiveCurveThick
	if h.Ribbon {
		typ = PrimitiveCurveRibbon
	}
	if h.MotionSteps() > 0 {
		typ |= PrimitiveMotion
	}
	return typ
}

// Get the keys of a curve at a particular motion step. Step -1 selects the
// center step.
func (h *Hair) CurveKeys(curve, step int) []types.Vec3 {
	keys := h.Keys
	if step >= 0 {
		keys = h.MotionKeys[step]
	}
	c := h.Curves[curve]
	return keys[c.FirstKey : c.FirstKey+c.NumKeys]
}

// Get the radius of a key belonging to a curve.
func (h *Hair) KeyRadius(curve, key int) float32 {
	return h.Radius[h.Curves[curve].FirstKey+key]
}

// Returns true if the curve and segment exist and all of the curve keys
// are present in every motion step.
func (h *Hair) HasSegment(curve, segment int) bool {
	if curve < 0 || curve >= len(h.Curves) {
		return false
	}
	c := h.Curves[curve]
	if segment < 0 || segment+1 >= c.NumKeys || c.FirstKey < 0 {
		return false
	}
	end := c.FirstKey + c.NumKeys
	if end > len(h.Keys) || end > len(h.Radius) {
		return false
	}
	for _, step := range h.MotionKeys {
		if end > len(step) {
			return false
		}
	}
	return true
}

// Grow bbox by a curve segment at every motion step.
func (h *Hair) GrowSegmentBBox(curve, segment int, bbox *types.BBox) {
	h.GrowSegmentBBoxTransformed(curve, segment, nil, bbox)
}

// Grow bbox by a curve segment at every motion step, after mapping its
// control points through tfm. A nil tfm leaves the keys unchanged.
func (h *Hair) GrowSegmentBBoxTransformed(curve, segment int, tfm *types.Transform, bbox *types.BBox) {
	r := h.KeyRadius(curve, segment)
	if r1 := h.KeyRadius(curve, segment+1); r1 > r {
		r = r1
	}
	for step := -1; step < h.MotionSteps(); step++ {
		keys := h.CurveKeys(curve, step)
		lower, upper := segmentBounds(keys, segment, tfm)
		bbox.GrowRadiusSafe(lower, r)
		bbox.GrowRadiusSafe(upper, r)
	}
}

func (h *Hair) BBox() types.BBox {
	if h.bboxNeedsUpdate {
		h.bbox = types.EmptyBBox()
		for ci, c := range h.Curves {
			for s := 0; s < c.NumSegments(); s++ {
				h.GrowSegmentBBox(ci, s, &h.bbox)
			}
		}
		h.bboxNeedsUpdate = false
	}
	return h.bbox
}

func (h *Hair) Transformed(tfm types.Transform) Geometry {
	out := NewHair(h.Name)
	out.PrimOffset = h.PrimOffset
	out.Curves = h.Curves
	out.Ribbon = h.Ribbon
	out.Keys = transformPoints(h.Keys, tfm)
	for _, step := range h.MotionKeys {
		out.MotionKeys = append(out.MotionKeys, transformPoints(step, tfm))
	}
	scale := tfm.UniformScale()
	out.Radius = make([]float32, len(h.Radius))
	for i, r := range h.Radius {
		out.Radius[i] = r * scale
	}
	return out
}

// A cloud of spheres.
type PointCloud struct {
	GeometryInfo

	Points []types.Vec3
	Radius []float32

	// Point positions for each additional motion step.
	MotionPoints [][]types.Vec3
}

// Create a new point cloud.
func NewPointCloud(name string) *PointCloud {
	return &PointCloud{
		GeometryInfo: GeometryInfo{Name: name, bboxNeedsUpdate: true},
	}
}

func (p *PointCloud) Info() *GeometryInfo { return &p.GeometryInfo }
func (p *PointCloud) Type() GeometryType  { return GeometryPointCloud }
func (p *PointCloud) NumPrimitives() int  { return len(p.Points) }
func (p *PointCloud) MotionSteps() int    { return len(p.MotionPoints) }

// Get the primitive type used for this cloud's points.
func (p *PointCloud) PrimitiveType() PrimitiveType {
	if p.MotionSteps() > 0 {
		return PrimitiveMotionPoint
	}
	return PrimitivePoint
}

// Get a point center at a particular motion step. Step -1 selects the
// center step.
func (p *PointCloud) Point(index, step int) types.Vec3 {
	if step >= 0 {
		return p.MotionPoints[step][index]
	}
	return p.Points[index]
}

// Grow bbox by a point sphere at every motion step.
func (p *PointCloud) GrowPointBBox(index int, bbox *types.BBox) {
	r := p.Radius[index]
	bbox.GrowRadiusSafe(p.Points[index], r)
	for _, step := range p.MotionPoints {
		bbox.GrowRadiusSafe(step[index], r)
	}
}

func (p *PointCloud) BBox() types.BBox {
	if p.bboxNeedsUpdate {
		p.bbox = types.EmptyBBox()
		for i := range p.Points {
			p.GrowPointBBox(i, &p.bbox)
		}
		p.bboxNeedsUpdate = false
	}
	return p.bbox
}

func (p *PointCloud) Transformed(tfm types.Transform) Geometry {
	out := NewPointCloud(p.Name)
	out.PrimOffset = p.PrimOffset
	out.Points = transformPoints(p.Points, tfm)
	for _, step := range p.MotionPoints {
		out.MotionPoints = append(out.MotionPoints, transformPoints(step, tfm))
	}
	scale := tfm.UniformScale()
	out.Radius = make([]float32, len(p.Radius))
	for i, r := range p.Radius {
		out.Radius[i] = r * scale
	}
	return out
}

func transformPoints(points []types.Vec3, tfm types.Transform) []types.Vec3 {
	out := make([]types.Vec3, len(points))
	for i, p := range points {
		out[i] = tfm.Point(p)
	}
	return out
}
