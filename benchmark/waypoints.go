package benchmark

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/achilleasa/wavetrace/types"
	"github.com/chewxy/math32"
)

// ParseWaypoints reads one waypoint per line in the form "x y z h v" where
// h and v are the horizontal and vertical camera angles in radians. Blank
// lines and lines starting with '#' are ignored.
func ParseWaypoints(r io.Reader) ([]Waypoint, error) {
	var waypoints []Waypoint

	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 5 {
			return nil, fmt.Errorf("benchmark: line %d: expected 5 values (x y z h v); got %d", lineNum, len(fields))
		}

		var values [5]float32
		for index, field := range fields {
			v, err := strconv.ParseFloat(field, 32)
			if err != nil {
				return nil, fmt.Errorf("benchmark: line %d: %w", lineNum, err)
			}
			values[index] = float32(v)
		}
		waypoints = append(waypoints, Waypoint{
			Position:        types.XYZ(values[0], values[1], values[2]),
			HorizontalAngle: values[3],
			VerticalAngle:   values[4],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("benchmark: %w", err)
	}
	if len(waypoints) == 0 {
		return nil, ErrNoWaypoints
	}
	return waypoints, nil
}

// LoadWaypoints parses a waypoint file.
func LoadWaypoints(filename string) ([]Waypoint, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("benchmark: %w", err)
	}
	defer f.Close()

	return ParseWaypoints(f)
}

// Orbit returns count waypoints on a horizontal circle around the center of
// bounds, each looking at the center. Angles are relative to the forward
// direction of a camera with +Y as its up axis.
func Orbit(bounds [2]types.Vec3, forward types.Vec3, count int) []Waypoint {
	if count < 1 {
		count = 1
	}

	center := bounds[0].Add(bounds[1]).Mul(0.5)
	radius := bounds[1].Sub(bounds[0]).Len()
	if radius <= 0 {
		radius = 1
	}

	forward = forward.Normalize()
	fwdYaw := math32.Atan2(-forward[0], -forward[2])
	fwdPitch := math32.Asin(forward[1])

	waypoints := make([]Waypoint, count)
	for i := range waypoints {
		theta := 2 * math32.Pi * float32(i) / float32(count)
		sinT, cosT := math32.Sin(theta), math32.Cos(theta)
		pos := center.Add(types.XYZ(sinT*radius, 0, cosT*radius))

		// Looking from pos towards center
		toCenter := center.Sub(pos).Normalize()
		yaw := math32.Atan2(-toCenter[0], -toCenter[2])
		waypoints[i] = Waypoint{
			Position:        pos,
			HorizontalAngle: wrapAngle(yaw - fwdYaw),
			VerticalAngle:   -fwdPitch,
		}
	}
	return waypoints
}

// Wrap angle into the [-pi, pi] range.
func wrapAngle(a float32) float32 {
	for a > math32.Pi {
		a -= 2 * math32.Pi
	}
	for a < -math32.Pi {
		a += 2 * math32.Pi
	}
	return a
}
