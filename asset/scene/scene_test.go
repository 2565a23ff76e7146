package scene

import (
	"errors"
	"strings"
	"testing"

	"github.com/achilleasa/wavetrace/types"
	"github.com/chewxy/math32"
)

func TestPrimitiveBBox(t *testing.T) {
	tri := NewTriangle(types.XYZ(0, 0, 0), types.XYZ(1, 0, 0), types.XYZ(0, 1, 0), 0)
	bbox := tri.BBox()
	if bbox[0][2] >= 0 || bbox[1][2] <= 0 {
		t.Fatalf("expected flat triangle box to be padded along Z; got %v", bbox)
	}
	if !types.ApproxEqual(tri.Normals[0], types.XYZ(0, 0, 1), 1e-6) {
		t.Fatalf("expected generated flat normal (0, 0, 1); got %v", tri.Normals[0])
	}

	sphere := NewSphere(types.XYZ(1, 2, 3), -2, 1)
	bbox = sphere.BBox()
	if !types.ApproxEqual(bbox[0], types.XYZ(-1, 0, 1), 1e-3) || !types.ApproxEqual(bbox[1], types.XYZ(3, 4, 5), 1e-3) {
		t.Fatalf("unexpected sphere bbox %v", bbox)
	}
	if sphere.Centroid() != types.XYZ(1, 2, 3) {
		t.Fatalf("unexpected sphere centroid %v", sphere.Centroid())
	}
}

func TestCameraAngles(t *testing.T) {
	cam := NewCamera(types.XYZ(0, 0, 0), types.XYZ(0, 0, -1), types.XYZ(0, 1, 0), 60)
	if !types.ApproxEqual(cam.Direction, types.XYZ(0, 0, -1), 1e-6) {
		t.Fatalf("expected initial direction (0, 0, -1); got %v", cam.Direction)
	}

	cam.Turn(math32.Pi/2, 0)
	if !types.ApproxEqual(cam.Direction, types.XYZ(-1, 0, 0), 1e-5) {
		t.Fatalf("expected yawed direction (-1, 0, 0); got %v", cam.Direction)
	}

	cam.HorizontalAngle = 0
	cam.VerticalAngle = 10
	cam.Update()
	if cam.VerticalAngle != maxVerticalAngle {
		t.Fatalf("expected vertical angle to be clamped to %f; got %f", maxVerticalAngle, cam.VerticalAngle)
	}
	if cam.Direction[1] <= 0.99 {
		t.Fatalf("expected camera to look almost straight up; got %v", cam.Direction)
	}

	right, up, dir := cam.Basis()
	if math32.Abs(right.Dot(up)) > 1e-5 || math32.Abs(right.Dot(dir)) > 1e-5 || math32.Abs(up.Dot(dir)) > 1e-5 {
		t.Fatal("expected an orthogonal camera basis")
	}
}

func TestCameraMove(t *testing.T) {
	cam := NewCamera(types.XYZ(0, 0, 0), types.XYZ(0, 0, -1), types.XYZ(0, 1, 0), 60)
	cam.Move(Forward, 2)
	cam.Move(Right, 1)
	cam.Move(Up, 3)
	if !types.ApproxEqual(cam.Position, types.XYZ(1, 3, -2), 1e-5) {
		t.Fatalf("expected camera at (1, 3, -2); got %v", cam.Position)
	}
}

func TestSunDirection(t *testing.T) {
	light := Light{Type: DirectionalLight, Direction: types.XYZ(0, -1, -1)}
	base := light.SunDirection(types.Vec2{})
	if !types.ApproxEqual(base, types.XYZ(0, 1, 1).Normalize(), 1e-6) {
		t.Fatalf("unexpected sun direction %v", base)
	}

	rotated := light.SunDirection(types.XY(math32.Pi, 0))
	if !types.ApproxEqual(rotated, types.XYZ(0, 1, -1).Normalize(), 1e-5) {
		t.Fatalf("expected azimuth offset to mirror the sun; got %v", rotated)
	}

	raised := light.SunDirection(types.XY(0, math32.Pi))
	if raised[1] < 0.99 {
		t.Fatalf("expected elevation to be clamped near the zenith; got %v", raised)
	}
}

func TestEnvironmentRadiance(t *testing.T) {
	env := Environment{
		Zenith:           types.XYZ(0, 0, 1),
		Horizon:          types.XYZ(1, 0, 0),
		SunColor:         types.XYZ(10, 10, 10),
		SunAngularRadius: 0.1,
	}
	sunDir := types.XYZ(0, 1, 0)

	if got := env.Radiance(types.XYZ(1, 0, 0), sunDir, true, true); got != types.XYZ(1, 0, 0) {
		t.Fatalf("expected horizon color; got %v", got)
	}
	if got := env.Radiance(types.XYZ(0, 1, 0), sunDir, true, false); got != types.XYZ(0, 0, 1) {
		t.Fatalf("expected zenith color without sun; got %v", got)
	}
	if got := env.Radiance(types.XYZ(0, 1, 0), sunDir, true, true); got != types.XYZ(10, 10, 11) {
		t.Fatalf("expected zenith color plus sun; got %v", got)
	}
}

func TestAccelStructureValidate(t *testing.T) {
	prims := []Primitive{
		NewTriangle(types.XYZ(0, 0, 0), types.XYZ(1, 0, 0), types.XYZ(0, 1, 0), 0),
		NewSphere(types.XYZ(5, 0, 0), 1, 0),
	}

	accel := &AccelStructure{Primitives: prims, Nodes: make([]BvhNode, 3), MaxDepth: 1}
	accel.Nodes[1].SetBBox(prims[0].BBox())
	accel.Nodes[1].SetPrimitives(0, 1)
	accel.Nodes[2].SetBBox(prims[1].BBox())
	accel.Nodes[2].SetPrimitives(1, 1)
	accel.Nodes[0].SetBBox([2]types.Vec3{types.XYZ(-1, -2, -2), types.XYZ(7, 2, 2)})
	accel.Nodes[0].SetChildNodes(1, 2)

	if err := accel.Validate(); err != nil {
		t.Fatalf("expected valid structure; got %v", err)
	}

	accel.Nodes[0].Max = types.XYZ(5, 2, 2)
	if err := accel.Validate(); err == nil || !strings.Contains(err.Error(), "does not contain child 2") {
		t.Fatalf("expected containment error; got %v", err)
	}

	if err := (&AccelStructure{}).Validate(); !errors.Is(err, ErrDegenerateScene) {
		t.Fatalf("expected ErrDegenerateScene; got %v", err)
	}
}

func TestSceneStats(t *testing.T) {
	sc := &Scene{
		Primitives: []Primitive{NewSphere(types.XYZ(0, 0, 0), 1, 0)},
		Materials:  []Material{DefaultMaterial},
	}
	stats := sc.Stats()
	for _, exp := range []string{"Geometry", "Spheres", "Materials", "Total"} {
		if !strings.Contains(stats, exp) {
			t.Fatalf("expected stats table to contain %q; got\n%s", exp, stats)
		}
	}

	if got := sc.Material(7); got.Name != DefaultMaterial.Name {
		t.Fatalf("expected out of range material lookup to return the default material; got %q", got.Name)
	}
}
