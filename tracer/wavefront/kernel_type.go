package wavefront

type kernelType uint8

// The list of kernels that implement the tracer.
const (
	// camera kernels
	generatePrimaryRays kernelType = iota
	// intersection kernels
	rayIntersectionQuery
	resolveShadowRays
	// pt kernels
	shadeMisses
	shadeHits
	// utils
	clearAccumulator
	blendAccumulator
	//
	numKernels
)

// Implements Stringer; map kernel type to the kernel name reported in device stats.
func (kt kernelType) String() string {
	switch kt {
	case generatePrimaryRays:
		return "generatePrimaryRays"
	case rayIntersectionQuery:
		return "rayIntersectionQuery"
	case resolveShadowRays:
		return "resolveShadowRays"
	case shadeMisses:
		return "shadeMisses"
	case shadeHits:
		return "shadeHits"
	case clearAccumulator:
		return "clearAccumulator"
	case blendAccumulator:
		return "blendAccumulator"
	}

	panic("unsupported kernel type")
}
