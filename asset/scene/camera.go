package scene

import (
	"github.com/achilleasa/wavetrace/types"
	"github.com/chewxy/math32"
)

// Pitch is clamped to avoid flipping over the up axis.
const maxVerticalAngle float32 = 89 * math32.Pi / 180

// Movement directions accepted by Camera.Move.
type CameraDirection uint8

const (
	Forward CameraDirection = iota
	Backward
	Left
	Right
	Up
	Down
)

// A pinhole camera. Direction is derived from Forward (the view direction at
// zero angles) rotated by HorizontalAngle (yaw around Up) and VerticalAngle
// (pitch around the right axis); both angles are in radians. FOV is the
// vertical field of view in degrees.
type Camera struct {
	Position  types.Vec3
	Direction types.Vec3
	Forward   types.Vec3
	Up        types.Vec3

	FOV    float32
	Aspect float32

	HorizontalAngle float32
	VerticalAngle   float32
}

// Create a camera at position looking towards lookAt.
func NewCamera(position, lookAt, up types.Vec3, fov float32) *Camera {
	c := &Camera{
		Position: position,
		Forward:  lookAt.Sub(position).Normalize(),
		Up:       up.Normalize(),
		FOV:      fov,
		Aspect:   1,
	}
	if c.Forward == (types.Vec3{}) {
		c.Forward = types.XYZ(0, 0, -1)
	}
	if c.Up == (types.Vec3{}) {
		c.Up = types.XYZ(0, 1, 0)
	}
	c.Update()
	return c
}

// Set the aspect ratio (width / height) and refresh the derived state.
func (c *Camera) SetupProjection(aspect float32) {
	if aspect > 0 {
		c.Aspect = aspect
	}
	c.Update()
}

// Update recalculates Direction from the view angles.
func (c *Camera) Update() {
	c.VerticalAngle = clamp(c.VerticalAngle, -maxVerticalAngle, maxVerticalAngle)

	right := c.Forward.Cross(c.Up).Normalize()
	if right == (types.Vec3{}) {
		// forward is parallel to up; pick any perpendicular axis
		right, _ = types.OrthoBasis(c.Up)
	}
	yaw := types.QuatFromAxisAngle(c.Up, c.HorizontalAngle)
	pitch := types.QuatFromAxisAngle(right, c.VerticalAngle)
	c.Direction = yaw.Mul(pitch).Normalize().Rotate(c.Forward).Normalize()
}

// Basis returns the orthonormal (right, up, direction) camera frame.
func (c *Camera) Basis() (right, up, dir types.Vec3) {
	dir = c.Direction
	right = dir.Cross(c.Up).Normalize()
	if right == (types.Vec3{}) {
		right, _ = types.OrthoBasis(dir)
	}
	up = right.Cross(dir)
	return right, up, dir
}

// TanHalfFOV returns tan(fov/2) for the vertical field of view.
func (c *Camera) TanHalfFOV() float32 {
	return math32.Tan(c.FOV * math32.Pi / 360)
}

// Move the camera along dir by amount world units.
func (c *Camera) Move(dir CameraDirection, amount float32) {
	right, up, forward := c.Basis()
	switch dir {
	case Forward:
		c.Position = c.Position.Add(forward.Mul(amount))
	case Backward:
		c.Position = c.Position.Sub(forward.Mul(amount))
	case Left:
		c.Position = c.Position.Sub(right.Mul(amount))
	case Right:
		c.Position = c.Position.Add(right.Mul(amount))
	case Up:
		c.Position = c.Position.Add(up.Mul(amount))
	case Down:
		c.Position = c.Position.Sub(up.Mul(amount))
	}
}

// Turn adjusts the view angles by the given deltas (radians).
func (c *Camera) Turn(horizontal, vertical float32) {
	c.HorizontalAngle += horizontal
	c.VerticalAngle += vertical
	c.Update()
}

// FramingCamera returns a camera placed in front of (+Z) the given bounds so
// that the whole box fits in the vertical field of view.
func FramingCamera(bounds [2]types.Vec3, fov float32) *Camera {
	center := bounds[0].Add(bounds[1]).Mul(0.5)
	radius := bounds[1].Sub(bounds[0]).Len() * 0.5
	if radius <= 0 {
		radius = 1
	}
	dist := radius / math32.Tan(fov*math32.Pi/360)
	return NewCamera(center.Add(types.XYZ(0, 0, dist)), center, types.XYZ(0, 1, 0), fov)
}
