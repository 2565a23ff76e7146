package queue

import (
	"github.com/achilleasa/wavetrace/asset/scene"
	"github.com/achilleasa/wavetrace/types"
)

// PrimitiveIndex value of a record whose ray escaped the scene.
const MissSentinel int32 = -1

// A Ray record tracks one in-flight path segment.
type Ray struct {
	Origin    types.Vec3
	Direction types.Vec3

	// Path throughput accumulated so far.
	Throughput types.Vec3

	// Max distance before traversal; closest hit distance after traversal.
	Distance float32

	PathID     int32
	Bounces    int32
	PixelIndex int32

	// Hit information written by the intersection stage.
	GeometryType   scene.GeometryType
	PrimitiveIndex int32
	U, V           float32

	// Set when the previous scattering event was specular (or for camera rays).
	LastSpecular bool
}

// Hit returns true if the intersection stage found a hit for this ray.
func (r *Ray) Hit() bool {
	return r.PrimitiveIndex != MissSentinel
}

// Position along the ray at distance t.
func (r *Ray) At(t float32) types.Vec3 {
	return r.Origin.Add(r.Direction.Mul(t))
}

// A ShadowRay carries the unoccluded light contribution for a shading point.
type ShadowRay struct {
	Origin    types.Vec3
	Direction types.Vec3

	// Distance to the light; occluders must be closer than this.
	Distance float32

	Contribution types.Vec3

	// Index of the pixel that receives the contribution.
	PixelIndex int32
}
