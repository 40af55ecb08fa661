package reader

import (
	"bufio"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/achilleasa/polaris-bvh/asset"
	"github.com/achilleasa/polaris-bvh/asset/compiler/input"
	"github.com/achilleasa/polaris-bvh/log"
	"github.com/achilleasa/polaris-bvh/types"
)

const (
	defaultCurveRadius float32 = 0.01
	defaultPointRadius float32 = 0.01
)

// A named object group and the geometry defined inside it. Each group
// holds at most one geometry of each type.
type wavefrontObject struct {
	name       string
	visibility input.Visibility

	mesh  *input.Mesh
	hair  *input.Hair
	cloud *input.PointCloud

	// Maps global vertex indices to mesh vertex indices.
	meshVertices map[int]int

	// Offsets of each additional motion step.
	motion []types.Vec3
}

// Get the non-empty geometry of the object.
func (o *wavefrontObject) geometry() []input.Geometry {
	geometry := make([]input.Geometry, 0, 3)
	if o.mesh != nil {
		geometry = append(geometry, o.mesh)
	}
	if o.hair != nil {
		geometry = append(geometry, o.hair)
	}
	if o.cloud != nil {
		geometry = append(geometry, o.cloud)
	}
	return geometry
}

type wavefrontInstance struct {
	object     *wavefrontObject
	transform  types.Transform
	visibility input.Visibility
}

type wavefrontSceneReader struct {
	logger log.Logger

	// The parsed scene.
	rawScene *input.Scene

	// Global vertex list shared by all parsed files.
	vertexList []types.Vec3

	// Object groups in definition order and the currently selected one.
	objects      []*wavefrontObject
	objectByName map[string]*wavefrontObject
	curObject    *wavefrontObject

	instances []wavefrontInstance

	// Parser state applied to the primitives and objects that follow.
	curveRadius float32
	pointRadius float32
	ribbon      bool
	visibility  input.Visibility

	// Keywords that are recognized but not used for building the BVH.
	ignored map[string]bool

	// An error stack that provides additional error information when
	// scene files include other files.
	errStack []string
}

// Create a new wavefront scene reader.
func newWavefrontReader() *wavefrontSceneReader {
	return &wavefrontSceneReader{
		logger:       log.New("wavefront scene reader"),
		rawScene:     input.NewScene(),
		vertexList:   make([]types.Vec3, 0),
		objectByName: make(map[string]*wavefrontObject),
		curveRadius:  defaultCurveRadius,
		pointRadius:  defaultPointRadius,
		visibility:   input.VisibilityAll,
		ignored:      make(map[string]bool),
		errStack:     make([]string, 0),
	}
}

// Read scene definition.
func (r *wavefrontSceneReader) Read(sceneRes *asset.Resource) (*input.Scene, error) {
	r.logger.Noticef(`parsing scene from "%s"`, sceneRes.Path())
	start := time.Now()

	err := r.parse(sceneRes)
	if err != nil {
		return nil, err
	}

	objGeometry := r.collectGeometry()

	// If no instances are defined, place each object at the origin
	if len(r.instances) == 0 {
		for _, obj := range r.objects {
			for _, geom := range objGeometry[obj] {
				inst := input.NewObject(obj.name, geom, types.IdentityTransform())
				inst.Visibility = obj.visibility
				r.rawScene.Objects = append(r.rawScene.Objects, inst)
			}
		}
	}
	for _, wi := range r.instances {
		for _, geom := range objGeometry[wi.object] {
			inst := input.NewObject(wi.object.name, geom, wi.transform)
			inst.Visibility = wi.visibility
			r.rawScene.Objects = append(r.rawScene.Objects, inst)
		}
	}

	r.logger.Noticef(
		"parsed scene in %d ms (%d geometries, %d objects)",
		time.Since(start).Nanoseconds()/1e6, len(r.rawScene.Geometry), len(r.rawScene.Objects),
	)
	return r.rawScene, nil
}

// Name the geometry of each object, generate its motion steps and append it
// to the scene. Objects without any primitives are dropped.
func (r *wavefrontSceneReader) collectGeometry() map[*wavefrontObject][]input.Geometry {
	objGeometry := make(map[*wavefrontObject][]input.Geometry, len(r.objects))
	for _, obj := range r.objects {
		geometry := obj.geometry()
		if len(geometry) == 0 {
			r.logger.Warningf(`dropping object "%s" as it contains no primitives`, obj.name)
			continue
		}

		for index, geom := range geometry {
			if index > 0 {
				geom.Info().Name = obj.name + geometrySuffix(geom.Type())
			}
		}
		for _, offset := range obj.motion {
			if obj.mesh != nil {
				obj.mesh.MotionVertices = append(obj.mesh.MotionVertices, offsetPoints(obj.mesh.Vertices, offset))
			}
			if obj.hair != nil {
				obj.hair.MotionKeys = append(obj.hair.MotionKeys, offsetPoints(obj.hair.Keys, offset))
			}
			if obj.cloud != nil {
				obj.cloud.MotionPoints = append(obj.cloud.MotionPoints, offsetPoints(obj.cloud.Points, offset))
			}
		}

		objGeometry[obj] = geometry
		r.rawScene.Geometry = append(r.rawScene.Geometry, geometry...)
	}
	return objGeometry
}

func geometrySuffix(typ input.GeometryType) string {
	switch typ {
	case input.GeometryHair:
		return ".hair"
	case input.GeometryPointCloud:
		return ".points"
	}
	return ".mesh"
}

func offsetPoints(points []types.Vec3, offset types.Vec3) []types.Vec3 {
	out := make([]types.Vec3, len(points))
	for i, p := range points {
		out[i] = p.Add(offset)
	}
	return out
}

// Generate an error message that also includes any data in the error stack.
func (r *wavefrontSceneReader) emitError(file string, line int, msgFormat string, args ...interface{}) error {
	msg := fmt.Sprintf(msgFormat, args...)

	var errMsg string
	if file != "" {
		errMsg = strings.Trim(
			fmt.Sprintf("[%s: %d] error: %s\n%s", file, line, msg, strings.Join(r.errStack, "\n")),
			"\n",
		)
	} else {
		errMsg = strings.Trim(
			fmt.Sprintf("error: %s\n%s", msg, strings.Join(r.errStack, "\n")),
			"\n",
		)
	}

	return fmt.Errorf("%s", errMsg)
}

// Push a frame to the error stack.
func (r *wavefrontSceneReader) pushFrame(msg string) {
	r.errStack = append([]string{msg}, r.errStack...)
}

// Pop a frame from the error stack.
func (r *wavefrontSceneReader) popFrame() {
	r.errStack = r.errStack[1:]
}

// Select the object with the given name, creating it if needed.
func (r *wavefrontSceneReader) selectObject(name string) *wavefrontObject {
	obj, exists := r.objectByName[name]
	if !exists {
		obj = &wavefrontObject{
			name:         name,
			visibility:   r.visibility,
			meshVertices: make(map[int]int),
		}
		r.objects = append(r.objects, obj)
		r.objectByName[name] = obj
	}
	r.curObject = obj
	return obj
}

// Get the current object. Primitives that appear before any object
// definition are assigned to an object named after the file.
func (r *wavefrontSceneReader) currentObject(res *asset.Resource) *wavefrontObject {
	if r.curObject == nil {
		return r.selectObject(res.Name())
	}
	return r.curObject
}

// Parse wavefront object scene format.
func (r *wavefrontSceneReader) parse(res *asset.Resource) error {
	var lineNum int = 0
	var err error

	// The main obj file may include (call) several other object files. Each
	// object file contains 1-based indices (when they are positive). By
	// tracking the current vertex offset we can apply it while parsing
	// primitives to select the correct vertices.
	relVertexOffset := len(r.vertexList)

	scanner := bufio.NewScanner(res)
	for scanner.Scan() {
		lineNum++
		lineTokens := strings.Fields(scanner.Text())
		if len(lineTokens) == 0 || strings.HasPrefix(lineTokens[0], "#") {
			continue
		}

		switch lineTokens[0] {
		case "call", "include":
			if len(lineTokens) != 2 {
				return r.emitError(res.Path(), lineNum, `unsupported syntax for "%s"; expected 1 argument; got %d`, lineTokens[0], len(lineTokens)-1)
			}

			r.pushFrame(fmt.Sprintf("referenced from %s:%d [%s]", res.Path(), lineNum, lineTokens[0]))

			incRes, err := asset.NewResource(lineTokens[1], res)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err.Error())
			}

			err = r.parse(incRes)
			incRes.Close()
			if err != nil {
				return err
			}
			r.popFrame()
		case "v":
			v, err := parseVec3(lineTokens)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err.Error())
			}
			r.vertexList = append(r.vertexList, v)
		case "g", "o":
			if len(lineTokens) < 2 {
				return r.emitError(res.Path(), lineNum, `unsupported syntax for "%s"; expected 1 argument for object name; got %d`, lineTokens[0], len(lineTokens)-1)
			}
			r.selectObject(lineTokens[1])
		case "f":
			err = r.parseFace(r.currentObject(res), lineTokens, relVertexOffset)
		case "l":
			err = r.parseCurve(r.currentObject(res), lineTokens, relVertexOffset)
		case "p":
			err = r.parsePoints(r.currentObject(res), lineTokens, relVertexOffset)
		case "curve_radius":
			r.curveRadius, err = parseRadius(lineTokens)
		case "point_radius":
			r.pointRadius, err = parseRadius(lineTokens)
		case "curve_shape":
			if len(lineTokens) != 2 {
				return r.emitError(res.Path(), lineNum, `unsupported syntax for "curve_shape"; expected 1 argument; got %d`, len(lineTokens)-1)
			}
			switch lineTokens[1] {
			case "ribbon":
				r.ribbon = true
			case "thick":
				r.ribbon = false
			default:
				return r.emitError(res.Path(), lineNum, `unknown curve shape "%s"; expected "ribbon" or "thick"`, lineTokens[1])
			}
		case "visibility":
			r.visibility, err = parseVisibility(lineTokens)
			if err == nil && r.curObject != nil {
				r.curObject.visibility = r.visibility
			}
		case "motion_offset":
			var offset types.Vec3
			if offset, err = parseVec3(lineTokens); err == nil {
				obj := r.currentObject(res)
				obj.motion = append(obj.motion, offset)
			}
		case "instance":
			var inst wavefrontInstance
			if inst, err = r.parseInstance(lineTokens); err == nil {
				r.instances = append(r.instances, inst)
			}
		case "vn", "vt", "s", "mtllib", "usemtl":
			if !r.ignored[lineTokens[0]] {
				r.logger.Debugf(`ignoring "%s" statements`, lineTokens[0])
				r.ignored[lineTokens[0]] = true
			}
		}

		if err != nil {
			return r.emitError(res.Path(), lineNum, "%s", err.Error())
		}
	}

	return scanner.Err()
}

// Parse instance definition. Definitions use the following format:
// instance object_name tX tY tZ yaw pitch roll sX sY sZ
// where:
// - tX, tY, tZ       : translation vector
// - yaw, pitch, roll : rotation angles in degrees
// - sX, sY, sZ	      : scale
func (r *wavefrontSceneReader) parseInstance(lineTokens []string) (wavefrontInstance, error) {
	if len(lineTokens) != 11 {
		return wavefrontInstance{}, fmt.Errorf(`unsupported syntax for "instance"; expected 10 arguments: object_name tX tY tZ yaw pitch roll sX sY sZ; got %d`, len(lineTokens)-1)
	}

	obj, exists := r.objectByName[lineTokens[1]]
	if !exists {
		return wavefrontInstance{}, fmt.Errorf(`unknown object with name "%s"`, lineTokens[1])
	}

	var args [9]float32
	for index := range args {
		v, err := strconv.ParseFloat(lineTokens[index+2], 32)
		if err != nil {
			return wavefrontInstance{}, err
		}
		args[index] = float32(v)
	}

	// Generate final matrix: M = T * R * S
	translation := types.TranslateTransform(types.Vec3{args[0], args[1], args[2]})
	rotation := types.EulerTransform(
		args[3]*math.Pi/180.0,
		args[4]*math.Pi/180.0,
		args[5]*math.Pi/180.0,
	)
	scale := types.ScaleTransform(types.Vec3{args[6], args[7], args[8]})

	return wavefrontInstance{
		object:     obj,
		transform:  translation.Mul(rotation.Mul(scale)),
		visibility: r.visibility,
	}, nil
}

// Parse face definition. Each face definitions consists of 3 or 4
// arguments, one for each vertex. Each one of the vertex arguments is
// comprised of 1, 2 or 3 args separated by a slash character:
// - vertexIndex
// - vertexIndex/uvIndex
// - vertexIndex//normalIndex
// - vertexIndex/uvIndex/normalIndex
//
// Only the vertex index is used. Indices start from 1 and may be negative to
// indicate an offset off the end of the vertex list. Quad faces are split
// into two triangles.
func (r *wavefrontSceneReader) parseFace(obj *wavefrontObject, lineTokens []string, relVertexOffset int) error {
	if len(lineTokens) < 4 || len(lineTokens) > 5 {
		return fmt.Errorf(`unsupported syntax for "f"; expected 3 arguments for triangular face or 4 arguments for a quad face; got %d. Select the triangulation option in your exporter`, len(lineTokens)-1)
	}

	vertices, err := r.parseVertexRefs(lineTokens, relVertexOffset)
	if err != nil {
		return err
	}

	if obj.mesh == nil {
		obj.mesh = input.NewMesh(obj.name)
	}
	mesh := obj.mesh

	var local [4]int
	for arg, vIndex := range vertices {
		mIndex, exists := obj.meshVertices[vIndex]
		if !exists {
			mIndex = len(mesh.Vertices)
			mesh.Vertices = append(mesh.Vertices, r.vertexList[vIndex])
			obj.meshVertices[vIndex] = mIndex
		}
		local[arg] = mIndex
	}

	mesh.Triangles = append(mesh.Triangles, [3]int{local[0], local[1], local[2]})
	if len(vertices) == 4 {
		mesh.Triangles = append(mesh.Triangles, [3]int{local[0], local[2], local[3]})
	}
	mesh.MarkBBoxDirty()
	return nil
}

// Parse a curve through two or more vertices. Each key gets the current
// curve radius.
func (r *wavefrontSceneReader) parseCurve(obj *wavefrontObject, lineTokens []string, relVertexOffset int) error {
	if len(lineTokens) < 3 {
		return fmt.Errorf(`unsupported syntax for "l"; expected at least 2 arguments; got %d`, len(lineTokens)-1)
	}

	vertices, err := r.parseVertexRefs(lineTokens, relVertexOffset)
	if err != nil {
		return err
	}

	if obj.hair == nil {
		obj.hair = input.NewHair(obj.name)
		obj.hair.Ribbon = r.ribbon
	}
	hair := obj.hair

	hair.Curves = append(hair.Curves, input.Curve{FirstKey: len(hair.Keys), NumKeys: len(vertices)})
	for _, vIndex := range vertices {
		hair.Keys = append(hair.Keys, r.vertexList[vIndex])
		hair.Radius = append(hair.Radius, r.curveRadius)
	}
	hair.MarkBBoxDirty()
	return nil
}

// Parse a list of point primitives. Each point gets the current point
// radius.
func (r *wavefrontSceneReader) parsePoints(obj *wavefrontObject, lineTokens []string, relVertexOffset int) error {
	if len(lineTokens) < 2 {
		return fmt.Errorf(`unsupported syntax for "p"; expected at least 1 argument; got %d`, len(lineTokens)-1)
	}

	vertices, err := r.parseVertexRefs(lineTokens, relVertexOffset)
	if err != nil {
		return err
	}

	if obj.cloud == nil {
		obj.cloud = input.NewPointCloud(obj.name)
	}
	cloud := obj.cloud

	for _, vIndex := range vertices {
		cloud.Points = append(cloud.Points, r.vertexList[vIndex])
		cloud.Radius = append(cloud.Radius, r.pointRadius)
	}
	cloud.MarkBBoxDirty()
	return nil
}

// Resolve the vertex index of each primitive argument. All arguments must
// use the same slash-separated format.
func (r *wavefrontSceneReader) parseVertexRefs(lineTokens []string, relVertexOffset int) ([]int, error) {
	vertices := make([]int, len(lineTokens)-1)
	expIndices := 0
	for arg := range vertices {
		vTokens := strings.Split(lineTokens[arg+1], "/")

		// The first arg defines the format for the following args
		if arg == 0 {
			expIndices = len(vTokens)
		} else if len(vTokens) != expIndices {
			return nil, fmt.Errorf("expected each %q argument to contain %d indices; arg %d contains %d indices", lineTokens[0], expIndices, arg, len(vTokens))
		}

		if vTokens[0] == "" {
			return nil, fmt.Errorf("%q argument %d does not include a vertex index", lineTokens[0], arg)
		}

		vOffset, err := selectFaceCoordIndex(vTokens[0], len(r.vertexList), relVertexOffset)
		if err != nil {
			return nil, fmt.Errorf("could not parse vertex coord for %q argument %d: %s", lineTokens[0], arg, err.Error())
		}
		vertices[arg] = vOffset
	}
	return vertices, nil
}

// Given a vertex index calculate the proper offset into the vertex list.
// Wavefront format can also use negative indices to reference elements
// from the end of the list.
func selectFaceCoordIndex(indexToken string, coordListLen int, relOffset int) (int, error) {
	index, err := strconv.ParseInt(indexToken, 10, 32)
	if err != nil {
		return -1, err
	}

	var vOffset int = 0
	if index < 0 {
		vOffset = coordListLen + int(index)
	} else {
		vOffset = relOffset + int(index-1)
	}
	if vOffset < 0 || vOffset >= coordListLen {
		return -1, fmt.Errorf("index out of bounds")
	}
	return vOffset, nil
}

// Parse a visibility mask from a list of ray type names.
func parseVisibility(lineTokens []string) (input.Visibility, error) {
	if len(lineTokens) < 2 {
		return 0, fmt.Errorf(`unsupported syntax for "%s"; expected at least 1 argument; got %d`, lineTokens[0], len(lineTokens)-1)
	}

	var vis input.Visibility
	for _, token := range lineTokens[1:] {
		switch token {
		case "all":
			vis |= input.VisibilityAll
		case "none":
		case "camera":
			vis |= input.VisibilityCamera
		case "diffuse":
			vis |= input.VisibilityDiffuse
		case "glossy":
			vis |= input.VisibilityGlossy
		case "transmit":
			vis |= input.VisibilityTransmit
		case "scatter":
			vis |= input.VisibilityScatter
		case "shadow":
			vis |= input.VisibilityShadow
		default:
			return 0, fmt.Errorf(`unknown ray type "%s"`, token)
		}
	}
	return vis, nil
}

// Parse a non-negative radius.
func parseRadius(lineTokens []string) (float32, error) {
	radius, err := parseFloat32(lineTokens)
	if err != nil {
		return 0, err
	}
	if radius < 0 {
		return 0, fmt.Errorf(`"%s" must not be negative; got %v`, lineTokens[0], radius)
	}
	return radius, nil
}

// Parse a float scalar value.
func parseFloat32(lineTokens []string) (float32, error) {
	if len(lineTokens) < 2 {
		return 0, fmt.Errorf(`unsupported syntax for "%s"; expected 1 argument; got %d`, lineTokens[0], len(lineTokens)-1)
	}

	val, err := strconv.ParseFloat(lineTokens[1], 32)
	if err != nil {
		return 0, err
	}

	return float32(val), nil
}

// Parse a Vec3 row.
func parseVec3(lineTokens []string) (types.Vec3, error) {
	if len(lineTokens) < 4 {
		return types.Vec3{}, fmt.Errorf(`unsupported syntax for "%s"; expected 3 arguments; got %d`, lineTokens[0], len(lineTokens)-1)
	}

	v := types.Vec3{}
	for tokIdx := 1; tokIdx <= 3; tokIdx++ {
		coord, err := strconv.ParseFloat(lineTokens[tokIdx], 32)
		if err != nil {
			return v, err
		}
		v[tokIdx-1] = float32(coord)
	}
	return v, nil
}
