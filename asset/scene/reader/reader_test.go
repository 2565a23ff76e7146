package reader

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/achilleasa/wavetrace/asset"
	"github.com/achilleasa/wavetrace/asset/compiler"
	"github.com/achilleasa/wavetrace/asset/scene"
	"github.com/achilleasa/wavetrace/asset/scene/writer"
	"github.com/achilleasa/wavetrace/types"
)

func writeFiles(t *testing.T, files map[string]string) string {
	dir := t.TempDir()
	for name, contents := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestFloatParsers(t *testing.T) {
	expError := `unsupported syntax for "v"; expected 1 argument; got 0`
	_, err := parseFloat32([]string{"v"})
	if err == nil || err.Error() != expError {
		t.Fatalf("expected to get %s; got %v", expError, err)
	}

	if _, err = parseFloat32([]string{"v", "not-a-float"}); err == nil {
		t.Fatal("expected to get a parse error")
	}

	expError = `unsupported syntax for "v"; expected 3 arguments; got 0`
	_, err = parseVec3([]string{"v"})
	if err == nil || err.Error() != expError {
		t.Fatalf("expected to get %s; got %v", expError, err)
	}

	v, err := parseVec3([]string{"v", "3.14", "0", "0.4"})
	if err != nil {
		t.Fatal(err)
	}
	expVal := types.Vec3{3.14, 0, 0.4}
	if !reflect.DeepEqual(v, expVal) {
		t.Fatalf("expected parsed value to be %v; got %v", expVal, v)
	}
}

func TestSelectFaceCoordIndex(t *testing.T) {
	specs := []struct {
		token  string
		listLen, relOffset int
		exp    int
		expErr bool
	}{
		{"1", 3, 0, 0, false},
		{"3", 5, 2, 4, false},
		{"-1", 3, 0, 2, false},
		{"4", 3, 0, -1, true},
		{"-4", 3, 0, -1, true},
		{"x", 3, 0, -1, true},
	}

	for index, spec := range specs {
		got, err := selectFaceCoordIndex(spec.token, spec.listLen, spec.relOffset)
		if spec.expErr != (err != nil) {
			t.Fatalf("[spec %d] expected error: %t; got %v", index, spec.expErr, err)
		}
		if got != spec.exp {
			t.Fatalf("[spec %d] expected index %d; got %d", index, spec.exp, got)
		}
	}
}

func TestReadWavefrontScene(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"scene.obj": `# test scene
mtllib scene.mtl
camera_eye 0 1 5
camera_look 0 1 0
camera_fov 45
light_point 0 4 0 10 10 10
light_dir 0 -1 0 1 1 1
sky 0 0 1 1 1 1
sun 5 5 5 0.05
v -1 0 -1
v 1 0 -1
v 1 0 1
v -1 0 1
vn 0 1 0
usemtl floor
f 1//1 2//1 3//1 4//1
usemtl lamp
sphere 0 3 0 0.5
`,
		"scene.mtl": `newmtl floor
Kd 0.5 0.6 0.7
newmtl lamp
Ke 1 1 1
KeScaler 4
newmtl mirror
Ks 0.9 0.9 0.9
`,
	})

	sc, err := ReadScene(filepath.Join(dir, "scene.obj"))
	if err != nil {
		t.Fatal(err)
	}

	if len(sc.Primitives) != 3 {
		t.Fatalf("expected quad to be triangulated plus a sphere (3 primitives); got %d", len(sc.Primitives))
	}
	if sc.Primitives[2].Type != scene.SphereGeometry || sc.Primitives[2].Radius != 0.5 {
		t.Fatalf("expected third primitive to be a sphere of radius 0.5; got %+v", sc.Primitives[2])
	}

	floor := sc.Material(sc.Primitives[0].MaterialIndex)
	if floor.Type != scene.Diffuse || floor.Albedo != types.XYZ(0.5, 0.6, 0.7) {
		t.Fatalf("unexpected floor material %+v", floor)
	}
	lamp := sc.Material(sc.Primitives[2].MaterialIndex)
	if lamp.Type != scene.Emissive || lamp.Emission != types.XYZ(4, 4, 4) {
		t.Fatalf("unexpected lamp material %+v", lamp)
	}
	if sc.Materials[2].Type != scene.Specular {
		t.Fatalf("expected mirror material to be specular; got %v", sc.Materials[2].Type)
	}

	if len(sc.Lights) != 2 || sc.Lights[0].Type != scene.PointLight || sc.Lights[1].Type != scene.DirectionalLight {
		t.Fatalf("unexpected lights %+v", sc.Lights)
	}
	if sc.Environment.Zenith != types.XYZ(0, 0, 1) || sc.Environment.SunAngularRadius != 0.05 {
		t.Fatalf("unexpected environment %+v", sc.Environment)
	}
	if sc.Camera == nil || sc.Camera.FOV != 45 || !types.ApproxEqual(sc.Camera.Direction, types.XYZ(0, 0, -1), 1e-6) {
		t.Fatalf("unexpected camera %+v", sc.Camera)
	}
}

func TestReadWavefrontDefaults(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"tri.obj": "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n",
	})

	sc, err := ReadScene(filepath.Join(dir, "tri.obj"))
	if err != nil {
		t.Fatal(err)
	}
	if sc.Camera == nil || len(sc.Lights) != 1 || len(sc.Materials) != 1 {
		t.Fatalf("expected default camera, light and material; got camera=%v lights=%d materials=%d", sc.Camera, len(sc.Lights), len(sc.Materials))
	}
	if sc.Primitives[0].MaterialIndex != 0 {
		t.Fatalf("expected primitive to reference the default material; got %d", sc.Primitives[0].MaterialIndex)
	}
}

func TestReadWavefrontErrors(t *testing.T) {
	specs := []struct {
		obj    string
		expErr string
	}{
		{"v 0 0\n", "[%s: 1] error: unsupported syntax"},
		{"v 0 0 0\nf 1 2 3\n", "[%s: 2] error: could not parse vertex coord"},
		{"usemtl missing\n", `[%s: 1] error: undefined material with name "missing"`},
		{"mtllib missing.mtl\n", "referenced from %s:1 [mtllib]"},
		{"sphere 0 0 0 -1\n", "[%s: 1] error: sphere radius must be positive"},
	}

	for index, spec := range specs {
		dir := writeFiles(t, map[string]string{"bad.obj": spec.obj})
		path := filepath.Join(dir, "bad.obj")
		_, err := ReadScene(path)
		expErr := strings.Replace(spec.expErr, "%s", path, 1)
		if err == nil || !strings.Contains(err.Error(), expErr) {
			t.Fatalf("[spec %d] expected error containing %q; got %v", index, expErr, err)
		}
	}
}

func TestReadEmptyScene(t *testing.T) {
	dir := writeFiles(t, map[string]string{"empty.obj": "# nothing here\nv 0 0 0\n"})
	_, err := ReadScene(filepath.Join(dir, "empty.obj"))
	if !errors.Is(err, scene.ErrDegenerateScene) {
		t.Fatalf("expected ErrDegenerateScene; got %v", err)
	}
}

func TestUnsupportedFormat(t *testing.T) {
	dir := writeFiles(t, map[string]string{"scene.fbx": "binary"})
	_, err := ReadScene(filepath.Join(dir, "scene.fbx"))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat; got %v", err)
	}

	if _, err = ReadScene(filepath.Join(dir, "missing.obj")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestReadASCIIPly(t *testing.T) {
	ply := `ply
format ascii 1.0
comment a quad
element vertex 4
property float x
property float y
property float z
property float nx
property float ny
property float nz
element face 1
property list uchar int vertex_indices
element edge 1
property int vertex1
property int vertex2
end_header
0 0 0 0 0 1
1 0 0 0 0 1
1 1 0 0 0 1
0 1 0 0 0 1
4 0 1 2 3
0 1
`
	res := asset.FromStream("quad.ply", strings.NewReader(ply))
	sc, err := Read(res)
	if err != nil {
		t.Fatal(err)
	}
	if len(sc.Primitives) != 2 {
		t.Fatalf("expected 2 triangles; got %d", len(sc.Primitives))
	}
	if sc.Primitives[1].Vertices[2] != types.XYZ(0, 1, 0) {
		t.Fatalf("unexpected fan triangulation %v", sc.Primitives[1].Vertices)
	}
	if sc.Primitives[0].Normals[0] != types.XYZ(0, 0, 1) {
		t.Fatalf("expected vertex normals to be loaded; got %v", sc.Primitives[0].Normals[0])
	}
}

func TestReadBinaryPly(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("ply\nformat binary_little_endian 1.0\nelement vertex 3\nproperty float x\nproperty float y\nproperty float z\nproperty uchar red\nelement face 1\nproperty list uchar uint vertex_index\nend_header\n")
	for _, v := range [][3]float32{{0, 0, 0}, {2, 0, 0}, {0, 2, 0}} {
		for _, c := range v {
			binary.Write(&buf, binary.LittleEndian, math.Float32bits(c))
		}
		buf.WriteByte(255)
	}
	buf.WriteByte(3)
	for _, idx := range []uint32{0, 1, 2} {
		binary.Write(&buf, binary.LittleEndian, idx)
	}

	sc, err := Read(asset.FromStream("tri.ply", &buf))
	if err != nil {
		t.Fatal(err)
	}
	if len(sc.Primitives) != 1 || sc.Primitives[0].Vertices[1] != types.XYZ(2, 0, 0) {
		t.Fatalf("unexpected primitives %+v", sc.Primitives)
	}
	if sc.Primitives[0].Normals[0] != types.XYZ(0, 0, 1) {
		t.Fatalf("expected generated flat normal; got %v", sc.Primitives[0].Normals[0])
	}
}

func TestReadPlyErrors(t *testing.T) {
	specs := []struct {
		ply    string
		expErr string
	}{
		{"obj\n", "missing ply magic"},
		{"ply\nformat binary_big_endian 1.0\nend_header\n", "unsupported format"},
		{"ply\nformat ascii 1.0\nelement vertex 1\nproperty float x\nproperty float y\nproperty float z\nelement face 1\nproperty list uchar int vertex_indices\nend_header\n0 0 0\n3 0 1 2\n", "out of bounds"},
		{"ply\nformat ascii 1.0\nelement vertex 2\nproperty float x\nproperty float y\nproperty float z\nend_header\n0 0 0\n", "unexpected EOF"},
	}

	for index, spec := range specs {
		_, err := Read(asset.FromStream("bad.ply", strings.NewReader(spec.ply)))
		if err == nil || !strings.Contains(err.Error(), spec.expErr) {
			t.Fatalf("[spec %d] expected error containing %q; got %v", index, spec.expErr, err)
		}
	}
}

func TestCompiledSceneRoundTrip(t *testing.T) {
	sc := &scene.Scene{
		Primitives: []scene.Primitive{
			scene.NewTriangle(types.XYZ(0, 0, 0), types.XYZ(1, 0, 0), types.XYZ(0, 1, 0), 0),
			scene.NewSphere(types.XYZ(3, 0, 0), 1, 0),
		},
		Materials:   []scene.Material{scene.DefaultMaterial},
		Lights:      []scene.Light{scene.DefaultSun},
		Environment: scene.DefaultEnvironment,
		Camera:      scene.NewCamera(types.XYZ(0, 0, 5), types.XYZ(0, 0, 0), types.XYZ(0, 1, 0), 60),
	}
	if err := compiler.Compile(sc); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "scene.zip")
	if err := writer.WriteScene(sc, path); err != nil {
		t.Fatal(err)
	}

	loaded, err := ReadScene(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(loaded.Accel, sc.Accel) {
		t.Fatal("expected cached bvh to survive the round trip")
	}
	if !reflect.DeepEqual(loaded.Camera, sc.Camera) || !reflect.DeepEqual(loaded.Lights, sc.Lights) {
		t.Fatal("expected camera and lights to survive the round trip")
	}
}

func TestZipWithoutSceneData(t *testing.T) {
	_, err := Read(asset.FromStream("broken.zip", strings.NewReader("not a zip")))
	if err == nil {
		t.Fatal("expected an error for a corrupt zip file")
	}
}
