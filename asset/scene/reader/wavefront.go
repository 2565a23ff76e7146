package reader

import (
	"bufio"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/achilleasa/wavetrace/asset"
	"github.com/achilleasa/wavetrace/asset/scene"
	"github.com/achilleasa/wavetrace/log"
	"github.com/achilleasa/wavetrace/types"
)

type wavefrontMaterial struct {
	Name string

	// Diffuse/Albedo color.
	Kd types.Vec3

	// Specular color.
	Ks types.Vec3

	// Emissive color and scaler.
	Ke       types.Vec3
	KeScaler float32
}

// Map the wavefront material properties to a scene material. Emission takes
// precedence over specular reflection which takes precedence over diffuse.
func (wf *wavefrontMaterial) toMaterial() scene.Material {
	switch {
	case wf.Ke.MaxComponent() > 0:
		scaler := wf.KeScaler
		if scaler == 0 {
			scaler = 1
		}
		return scene.Material{Name: wf.Name, Type: scene.Emissive, Emission: wf.Ke.Mul(scaler)}
	case wf.Ks.MaxComponent() > 0:
		return scene.Material{Name: wf.Name, Type: scene.Specular, Albedo: wf.Ks}
	}
	return scene.Material{Name: wf.Name, Type: scene.Diffuse, Albedo: wf.Kd}
}

type wavefrontSceneReader struct {
	logger log.Logger

	sc *scene.Scene

	// A map of material names to material indices
	matNameToIndex map[string]int32

	// Currently selected material (-1 selects the default material).
	curMaterial int32

	// Camera settings
	cameraEye, cameraLook, cameraUp types.Vec3
	cameraFOV                        float32
	hasCamera                        bool

	// List of vertices and normals.
	vertexList []types.Vec3
	normalList []types.Vec3

	// An error stack that provides additional error information when
	// scene files include other files (models, mat libs e.t.c)
	errStack []string
}

// Create a new wavefront scene reader.
func newWavefrontReader() *wavefrontSceneReader {
	return &wavefrontSceneReader{
		logger: log.New("wavefront scene reader"),
		sc: &scene.Scene{
			Environment: scene.DefaultEnvironment,
		},
		matNameToIndex: make(map[string]int32),
		curMaterial:    -1,
		cameraUp:       types.XYZ(0, 1, 0),
		cameraFOV:      defaultFOV,
	}
}

// Read scene definition.
func (r *wavefrontSceneReader) Read(sceneRes *asset.Resource) (*scene.Scene, error) {
	r.logger.Noticef(`parsing scene from "%s"`, sceneRes.Path())
	start := time.Now()

	if err := r.parse(sceneRes); err != nil {
		return nil, err
	}

	if r.hasCamera {
		r.sc.Camera = scene.NewCamera(r.cameraEye, r.cameraLook, r.cameraUp, r.cameraFOV)
	}

	// Primitives referencing the default material point past the material list
	if r.usesDefaultMaterial() {
		r.sc.Materials = append(r.sc.Materials, scene.DefaultMaterial)
		defaultIndex := int32(len(r.sc.Materials) - 1)
		for i := range r.sc.Primitives {
			if r.sc.Primitives[i].MaterialIndex < 0 {
				r.sc.Primitives[i].MaterialIndex = defaultIndex
			}
		}
	}

	r.logger.Noticef(
		"parsed scene in %d ms (%d primitives, %d materials, %d lights)",
		time.Since(start).Nanoseconds()/1e6, len(r.sc.Primitives), len(r.sc.Materials), len(r.sc.Lights),
	)
	return r.sc, nil
}

func (r *wavefrontSceneReader) usesDefaultMaterial() bool {
	for i := range r.sc.Primitives {
		if r.sc.Primitives[i].MaterialIndex < 0 {
			return true
		}
	}
	return false
}

// Generate an error message that also includes any data in the error stack.
func (r *wavefrontSceneReader) emitError(file string, line int, msgFormat string, args ...interface{}) error {
	msg := fmt.Sprintf(msgFormat, args...)

	var errMsg string
	if file != "" {
		errMsg = fmt.Sprintf("[%s: %d] error: %s\n%s", file, line, msg, strings.Join(r.errStack, "\n"))
	} else {
		errMsg = fmt.Sprintf("error: %s\n%s", msg, strings.Join(r.errStack, "\n"))
	}

	return errors.New(strings.Trim(errMsg, "\n"))
}

// Push a frame to the error stack.
func (r *wavefrontSceneReader) pushFrame(msg string) {
	r.errStack = append([]string{msg}, r.errStack...)
}

// Pop a frame from the error stack.
func (r *wavefrontSceneReader) popFrame() {
	r.errStack = r.errStack[1:]
}

// Parse wavefront object scene format.
func (r *wavefrontSceneReader) parse(res *asset.Resource) error {
	var lineNum int
	var err error

	// The main obj file may include (call) several other object files. Each
	// object file contains 1-based indices (when they are positive). By
	// tracking the current vertex/normal offsets we can apply them
	// while parsing faces to select the correct coordinates.
	relVertexOffset := len(r.vertexList)
	relNormalOffset := len(r.normalList)

	scanner := bufio.NewScanner(res)
	for scanner.Scan() {
		lineNum++
		lineTokens := strings.Fields(scanner.Text())
		if len(lineTokens) == 0 || strings.HasPrefix(lineTokens[0], "#") {
			continue
		}

		switch lineTokens[0] {
		case "call", "mtllib":
			if len(lineTokens) != 2 {
				return r.emitError(res.Path(), lineNum, `unsupported syntax for "%s"; expected 1 argument; got %d`, lineTokens[0], len(lineTokens)-1)
			}

			r.pushFrame(fmt.Sprintf("referenced from %s:%d [%s]", res.Path(), lineNum, lineTokens[0]))
			if err = r.parseInclude(lineTokens[0], lineTokens[1], res); err != nil {
				return err
			}
			r.popFrame()
		case "usemtl":
			if len(lineTokens) != 2 {
				return r.emitError(res.Path(), lineNum, `unsupported syntax for "usemtl"; expected 1 argument; got %d`, len(lineTokens)-1)
			}

			matIndex, exists := r.matNameToIndex[lineTokens[1]]
			if !exists {
				return r.emitError(res.Path(), lineNum, `undefined material with name "%s"`, lineTokens[1])
			}
			r.curMaterial = matIndex
		case "v":
			v, err := parseVec3(lineTokens)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err)
			}
			r.vertexList = append(r.vertexList, v)
		case "vn":
			v, err := parseVec3(lineTokens)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err)
			}
			r.normalList = append(r.normalList, v)
		case "f":
			primList, err := r.parseFace(lineTokens, relVertexOffset, relNormalOffset)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err)
			}
			r.sc.Primitives = append(r.sc.Primitives, primList...)
		case "sphere":
			args, err := parseFloats(lineTokens, 4)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err)
			}
			if args[3] <= 0 {
				return r.emitError(res.Path(), lineNum, "sphere radius must be positive; got %v", args[3])
			}
			r.sc.Primitives = append(r.sc.Primitives, scene.NewSphere(types.XYZ(args[0], args[1], args[2]), args[3], r.curMaterial))
		case "light_point", "light_dir":
			args, err := parseFloats(lineTokens, 6)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err)
			}
			light := scene.Light{Color: types.XYZ(args[3], args[4], args[5])}
			if lineTokens[0] == "light_point" {
				light.Type = scene.PointLight
				light.Position = types.XYZ(args[0], args[1], args[2])
			} else {
				light.Type = scene.DirectionalLight
				light.Direction = types.XYZ(args[0], args[1], args[2]).Normalize()
				if light.Direction == (types.Vec3{}) {
					return r.emitError(res.Path(), lineNum, "directional light requires a non-zero direction")
				}
			}
			r.sc.Lights = append(r.sc.Lights, light)
		case "sky":
			args, err := parseFloats(lineTokens, 6)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err)
			}
			r.sc.Environment.Zenith = types.XYZ(args[0], args[1], args[2])
			r.sc.Environment.Horizon = types.XYZ(args[3], args[4], args[5])
		case "sun":
			args, err := parseFloats(lineTokens, 4)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err)
			}
			r.sc.Environment.SunColor = types.XYZ(args[0], args[1], args[2])
			r.sc.Environment.SunAngularRadius = args[3]
		case "camera_fov":
			r.cameraFOV, err = parseFloat32(lineTokens)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err)
			}
			r.hasCamera = true
		case "camera_eye", "camera_look", "camera_up":
			v, err := parseVec3(lineTokens)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err)
			}
			switch lineTokens[0] {
			case "camera_eye":
				r.cameraEye = v
			case "camera_look":
				r.cameraLook = v
			default:
				r.cameraUp = v
			}
			r.hasCamera = true
		case "g", "o", "s", "vt":
			// Groups, smoothing groups and texture coordinates are not used
		default:
			r.logger.Debugf("[%s: %d] skipping unsupported statement %q", res.Path(), lineNum, lineTokens[0])
		}
	}

	if err = scanner.Err(); err != nil {
		return r.emitError(res.Path(), lineNum, "%s", err)
	}
	return nil
}

// Open and parse an included object file or material library.
func (r *wavefrontSceneReader) parseInclude(kind, location string, parent *asset.Resource) error {
	incRes, err := asset.Open(location, parent)
	if err != nil {
		return r.emitError("", 0, "%s", err)
	}
	defer incRes.Close()

	if kind == "call" {
		return r.parse(incRes)
	}
	return r.parseMaterials(incRes)
}

// Parse face definition. Each face definition consists of 3 or more
// arguments, one for each vertex. Each one of the vertex arguments is
// comprised of 1, 2 or 3 args separated by a slash character:
// - vertexIndex
// - vertexIndex/uvIndex
// - vertexIndex//normalIndex
// - vertexIndex/uvIndex/normalIndex
//
// Indices start from 1 and may be negative to indicate an offset off the
// end of the vertex list. Polygons are triangulated as a fan around the
// first vertex. UV indices are validated but ignored.
func (r *wavefrontSceneReader) parseFace(lineTokens []string, relVertexOffset, relNormalOffset int) ([]scene.Primitive, error) {
	if len(lineTokens) < 4 {
		return nil, fmt.Errorf(`unsupported syntax for "f"; expected at least 3 arguments; got %d`, len(lineTokens)-1)
	}

	argCount := len(lineTokens) - 1
	vertices := make([]types.Vec3, argCount)
	normals := make([]types.Vec3, argCount)
	expIndices := 0
	hasNormals := false
	for arg := 0; arg < argCount; arg++ {
		vTokens := strings.Split(lineTokens[arg+1], "/")

		// The first arg defines the format for the following args
		if arg == 0 {
			expIndices = len(vTokens)
		} else if len(vTokens) != expIndices {
			return nil, fmt.Errorf("expected each face argument to contain %d indices; arg %d contains %d indices", expIndices, arg, len(vTokens))
		}

		// Faces must at least define a vertex coord
		if vTokens[0] == "" {
			return nil, fmt.Errorf("face argument %d does not include a vertex index", arg)
		}

		vOffset, err := selectFaceCoordIndex(vTokens[0], len(r.vertexList), relVertexOffset)
		if err != nil {
			return nil, fmt.Errorf("could not parse vertex coord for face argument %d: %s", arg, err.Error())
		}
		vertices[arg] = r.vertexList[vOffset]

		if expIndices > 2 && vTokens[2] != "" {
			vOffset, err = selectFaceCoordIndex(vTokens[2], len(r.normalList), relNormalOffset)
			if err != nil {
				return nil, fmt.Errorf("could not parse normal coord for face argument %d: %s", arg, err.Error())
			}
			normals[arg] = r.normalList[vOffset]
			hasNormals = true
		}
	}

	primitives := make([]scene.Primitive, 0, argCount-2)
	for i := 1; i+1 < argCount; i++ {
		if hasNormals {
			primitives = append(primitives, scene.NewTriangle(vertices[0], vertices[i], vertices[i+1], r.curMaterial, normals[0], normals[i], normals[i+1]))
		} else {
			primitives = append(primitives, scene.NewTriangle(vertices[0], vertices[i], vertices[i+1], r.curMaterial))
		}
	}

	return primitives, nil
}

// Parse a wavefront material library.
func (r *wavefrontSceneReader) parseMaterials(res *asset.Resource) error {
	var lineNum int
	var err error

	r.logger.Infof(`parsing material library "%s"`, res.Path())

	var curMaterial *wavefrontMaterial
	flush := func() {
		if curMaterial != nil {
			r.sc.Materials[r.matNameToIndex[curMaterial.Name]] = curMaterial.toMaterial()
		}
	}

	scanner := bufio.NewScanner(res)
	for scanner.Scan() {
		lineNum++
		lineTokens := strings.Fields(scanner.Text())
		if len(lineTokens) == 0 || strings.HasPrefix(lineTokens[0], "#") {
			continue
		}

		if lineTokens[0] == "newmtl" {
			if len(lineTokens) != 2 {
				return r.emitError(res.Path(), lineNum, `unsupported syntax for "newmtl"; expected 1 argument; got %d`, len(lineTokens)-1)
			}
			if _, exists := r.matNameToIndex[lineTokens[1]]; exists {
				return r.emitError(res.Path(), lineNum, `material "%s" already defined`, lineTokens[1])
			}

			flush()
			curMaterial = &wavefrontMaterial{Name: lineTokens[1]}
			r.sc.Materials = append(r.sc.Materials, scene.Material{})
			r.matNameToIndex[curMaterial.Name] = int32(len(r.sc.Materials) - 1)
			continue
		}

		if curMaterial == nil {
			return r.emitError(res.Path(), lineNum, `got "%s" without a "newmtl"`, lineTokens[0])
		}

		switch lineTokens[0] {
		case "Kd":
			curMaterial.Kd, err = parseVec3(lineTokens)
		case "Ks":
			curMaterial.Ks, err = parseVec3(lineTokens)
		case "Ke":
			curMaterial.Ke, err = parseVec3(lineTokens)
		case "KeScaler":
			curMaterial.KeScaler, err = parseFloat32(lineTokens)
		}

		if err != nil {
			return r.emitError(res.Path(), lineNum, "%s", err)
		}
	}
	flush()

	if err = scanner.Err(); err != nil {
		return r.emitError(res.Path(), lineNum, "%s", err)
	}
	return nil
}

// Given an index for a face coord type (vertex, normal) calculate the
// proper offset into the coord list. Wavefront format can also use negative
// indices to reference elements from the end of the coord list.
func selectFaceCoordIndex(indexToken string, coordListLen int, relOffset int) (int, error) {
	index, err := strconv.ParseInt(indexToken, 10, 32)
	if err != nil {
		return -1, err
	}

	var vOffset int
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
	args, err := parseFloats(lineTokens, 3)
	if err != nil {
		return types.Vec3{}, err
	}
	return types.XYZ(args[0], args[1], args[2]), nil
}

// Parse exactly count float arguments following the statement keyword.
func parseFloats(lineTokens []string, count int) ([]float32, error) {
	if len(lineTokens) < count+1 {
		return nil, fmt.Errorf(`unsupported syntax for "%s"; expected %d arguments; got %d`, lineTokens[0], count, len(lineTokens)-1)
	}

	out := make([]float32, count)
	for tokIdx := 1; tokIdx <= count; tokIdx++ {
		val, err := strconv.ParseFloat(lineTokens[tokIdx], 32)
		if err != nil {
			return nil, err
		}
		out[tokIdx-1] = float32(val)
	}
	return out, nil
}
