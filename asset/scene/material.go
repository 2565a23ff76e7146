package scene

import (
	"github.com/achilleasa/wavetrace/types"
	"github.com/chewxy/math32"
)

// The surface response type of a material.
type MaterialType int32

const (
	Diffuse MaterialType = iota
	Specular
	Emissive
)

func (m MaterialType) String() string {
	switch m {
	case Diffuse:
		return "diffuse"
	case Specular:
		return "specular"
	case Emissive:
		return "emissive"
	}
	return "unknown"
}

// A surface material.
type Material struct {
	Name     string
	Type     MaterialType
	Albedo   types.Vec3
	Emission types.Vec3
}

// DefaultMaterial is assigned to primitives that do not reference a material.
var DefaultMaterial = Material{
	Name:   "default",
	Type:   Diffuse,
	Albedo: types.XYZ(0.75, 0.75, 0.75),
}

type LightType int32

const (
	PointLight LightType = iota
	DirectionalLight
)

func (l LightType) String() string {
	if l == PointLight {
		return "point"
	}
	return "directional"
}

// A light source. Point lights use Position and fall off with the inverse
// square of the distance. Directional lights use Direction which points
// along the direction the light travels.
type Light struct {
	Type      LightType
	Position  types.Vec3
	Direction types.Vec3
	Color     types.Vec3
}

// Elevations are clamped this far away from the poles.
const poleMargin float32 = 1e-3

// SunDirection returns the unit direction from a surface towards a directional
// light after rotating it by offset (azimuth, elevation) in radians.
func (l *Light) SunDirection(offset types.Vec2) types.Vec3 {
	toSun := l.Direction.Mul(-1).Normalize()
	if offset[0] == 0 && offset[1] == 0 {
		return toSun
	}

	azimuth := math32.Atan2(toSun[0], toSun[2]) + offset[0]
	elevation := math32.Asin(clamp(toSun[1], -1, 1)) + offset[1]
	elevation = clamp(elevation, -math32.Pi/2+poleMargin, math32.Pi/2-poleMargin)

	sinEl, cosEl := math32.Sincos(elevation)
	sinAz, cosAz := math32.Sincos(azimuth)
	return types.XYZ(cosEl*sinAz, sinEl, cosEl*cosAz)
}

// The environment is a sky gradient from Horizon to Zenith (Y is up) plus an
// optional sun disk placed at the first directional light.
type Environment struct {
	Zenith  types.Vec3
	Horizon types.Vec3

	SunColor         types.Vec3
	SunAngularRadius float32
}

// DefaultEnvironment is used by scenes that do not define a sky.
var DefaultEnvironment = Environment{
	Zenith:           types.XYZ(0.3, 0.5, 0.9),
	Horizon:          types.XYZ(0.9, 0.9, 1.0),
	SunColor:         types.XYZ(20, 18, 15),
	SunAngularRadius: 0.02,
}

// Radiance returns the environment radiance along the unit direction dir.
// The sun disk is added when includeSun is set and hasSun is true.
func (e *Environment) Radiance(dir, sunDir types.Vec3, hasSun, includeSun bool) types.Vec3 {
	t := clamp(dir[1], 0, 1)
	out := e.Horizon.Mul(1 - t).Add(e.Zenith.Mul(t))

	if hasSun && includeSun && e.SunAngularRadius > 0 && dir.Dot(sunDir) >= math32.Cos(e.SunAngularRadius) {
		out = out.Add(e.SunColor)
	}
	return out
}

func clamp(v, min, max float32) float32 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// DefaultSun is added to scenes that do not define any lights.
var DefaultSun = Light{
	Type:      DirectionalLight,
	Direction: types.XYZ(-0.3, -1, -0.5).Normalize(),
	Color:     types.XYZ(3, 3, 3),
}
