package benchmark

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/achilleasa/wavetrace/asset/scene"
	"github.com/achilleasa/wavetrace/types"
)

func TestParseWaypoints(t *testing.T) {
	src := `# benchmark path
0 1 2 0.5 -0.1

  3.5 -1 0 0 0
`
	waypoints, err := ParseWaypoints(strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	if len(waypoints) != 2 {
		t.Fatalf("expected 2 waypoints; got %d", len(waypoints))
	}

	exp := Waypoint{Position: types.XYZ(0, 1, 2), HorizontalAngle: 0.5, VerticalAngle: -0.1}
	if waypoints[0] != exp {
		t.Fatalf("expected first waypoint to be %+v; got %+v", exp, waypoints[0])
	}
	if waypoints[1].Position != types.XYZ(3.5, -1, 0) {
		t.Fatalf("unexpected second waypoint position %v", waypoints[1].Position)
	}
}

func TestParseWaypointErrors(t *testing.T) {
	specs := []struct {
		src    string
		expErr string
	}{
		{"0 0 0 0 0\n1 2 3\n", "line 2"},
		{"0 0 zero 0 0\n", "line 1"},
		{"# nothing here\n", ErrNoWaypoints.Error()},
	}

	for index, spec := range specs {
		_, err := ParseWaypoints(strings.NewReader(spec.src))
		if err == nil || !strings.Contains(err.Error(), spec.expErr) {
			t.Fatalf("[spec %d] expected error containing %q; got %v", index, spec.expErr, err)
		}
	}
}

func TestLoadWaypoints(t *testing.T) {
	path := filepath.Join(t.TempDir(), "path.txt")
	if err := os.WriteFile(path, []byte("1 1 1 0 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	waypoints, err := LoadWaypoints(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(waypoints) != 1 {
		t.Fatalf("expected 1 waypoint; got %d", len(waypoints))
	}

	_, err = LoadWaypoints(filepath.Join(t.TempDir(), "missing.txt"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected a not-exist error; got %v", err)
	}
}

func TestOrbitLooksAtCenter(t *testing.T) {
	bounds := [2]types.Vec3{types.XYZ(-1, 0, -2), types.XYZ(3, 2, 2)}
	center := types.XYZ(1, 1, 0)

	forwards := []types.Vec3{
		types.XYZ(0, 0, -1),
		types.XYZ(0, -0.3, -1),
		types.XYZ(1, 0.2, 0),
	}

	for index, forward := range forwards {
		waypoints := Orbit(bounds, forward, 8)
		if len(waypoints) != 8 {
			t.Fatalf("[spec %d] expected 8 waypoints; got %d", index, len(waypoints))
		}

		for wpIndex, wp := range waypoints {
			cam := scene.NewCamera(types.XYZ(0, 0, 0), forward, types.XYZ(0, 1, 0), 45)
			wp.Apply(cam)

			exp := center.Sub(wp.Position).Normalize()
			if !types.ApproxEqual(cam.Direction, exp, 1e-3) {
				t.Fatalf("[spec %d] waypoint %d: expected camera direction %v; got %v", index, wpIndex, exp, cam.Direction)
			}
		}
	}
}
