package wavefront

import (
	"github.com/achilleasa/wavetrace/types"
	"github.com/chewxy/math32"
)

// A small counter-based generator. Each work item seeds its own instance from
// the frame seed, its path id and the bounce number so results do not depend
// on the order in which work items are executed.
type rng struct {
	state uint32
}

func newRNG(seed, pathID, bounce uint32) rng {
	return rng{state: pcgHash(seed ^ pcgHash(pathID^pcgHash(bounce+0x9e3779b9)))}
}

// Return a uniformly distributed value in [0, 1).
func (r *rng) Float32() float32 {
	r.state = pcgHash(r.state)
	return float32(r.state>>8) / (1 << 24)
}

func pcgHash(v uint32) uint32 {
	state := v*747796405 + 2891336453
	word := ((state >> ((state >> 28) + 4)) ^ state) * 277803737
	return (word >> 22) ^ word
}

// Sample a cosine-weighted direction in the hemisphere around n.
func cosineSampleHemisphere(n types.Vec3, u1, u2 float32) types.Vec3 {
	r := math32.Sqrt(u1)
	sinPhi, cosPhi := math32.Sincos(2 * math32.Pi * u2)
	x := r * cosPhi
	y := r * sinPhi
	z := math32.Sqrt(math32.Max(0, 1-u1))

	tangent, bitangent := types.OrthoBasis(n)
	return tangent.Mul(x).Add(bitangent.Mul(y)).Add(n.Mul(z)).Normalize()
}
