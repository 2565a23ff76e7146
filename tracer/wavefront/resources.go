package wavefront

import (
	"fmt"
	"math"
	"time"

	"github.com/achilleasa/wavetrace/asset/scene"
	"github.com/achilleasa/wavetrace/tracer"
	"github.com/achilleasa/wavetrace/tracer/device"
	"github.com/achilleasa/wavetrace/tracer/queue"
	"github.com/achilleasa/wavetrace/types"
	"github.com/chewxy/math32"
)

// Scalar arguments shared by the kernel bodies. They are populated by the
// launch wrappers right before each launch and remain constant while the
// launch executes. Only buffers are bound through Kernel.SetArgs so launches
// can be refused while a buffer is mapped or released.
type launchParams struct {
	frame          *tracer.FrameState
	frameW, frameH int

	jitter bool

	// Camera frame
	camPos, camRight, camUp, camDir types.Vec3
	tanHalfFOV, aspect              float32

	sunDir types.Vec3
	hasSun bool

	bounce          int32
	maxBounces      int32
	minBouncesForRR int32

	cur, next *queue.Queue[queue.Ray]

	blendWeight float32
}

// A container that stores handles to the tracer kernels and any allocated device buffers.
type deviceResources struct {
	// The allocated device buffers.
	buffers *bufferSet

	// The uploaded scene.
	scene *SceneHandle

	// The set of kernels.
	kernels []*device.Kernel

	params launchParams
}

// Using the supplied device as a target, allocate the frame buffers and create all kernels.
func newDeviceResources(frameW, frameH uint32, queueCapacity int, dev *device.Device) (*deviceResources, error) {
	var err error

	if dev == nil {
		return nil, fmt.Errorf("device_resources: invalid device handle")
	}

	dr := &deviceResources{
		params: launchParams{frameW: int(frameW), frameH: int(frameH)},
	}
	dr.buffers, err = newBufferSet(frameW, frameH, queueCapacity, dev)
	if err != nil {
		return nil, err
	}

	bodies := map[kernelType]device.KernelFunc{
		generatePrimaryRays:  dr.generatePrimaryRaysKernel,
		rayIntersectionQuery: dr.rayIntersectionQueryKernel,
		resolveShadowRays:    dr.resolveShadowRaysKernel,
		shadeMisses:          dr.shadeMissesKernel,
		shadeHits:            dr.shadeHitsKernel,
		clearAccumulator:     dr.clearAccumulatorKernel,
		blendAccumulator:     dr.blendAccumulatorKernel,
	}

	dr.kernels = make([]*device.Kernel, numKernels)
	var kType kernelType
	for kType = 0; kType < numKernels; kType++ {
		dr.kernels[kType] = dev.Kernel(kType.String(), bodies[kType])
	}

	return dr, nil
}

// Release all allocated resources.
func (dr *deviceResources) Close() {
	if dr.buffers != nil {
		dr.buffers.Release()
		dr.buffers = nil
	}
	dr.setScene(nil)
}

// Replace the uploaded scene, releasing the previous one.
func (dr *deviceResources) setScene(h *SceneHandle) {
	if dr.scene != nil {
		dr.scene.Release()
	}
	dr.scene = h
}

// Clear the frame accumulator.
func (dr *deviceResources) ClearAccumulator() (time.Duration, error) {
	kernel := dr.kernels[clearAccumulator]
	err := kernel.SetArgs(dr.buffers.Accumulator)
	if err != nil {
		return 0, err
	}

	return kernel.Exec2D(0, 0, dr.params.frameW, dr.params.frameH, 0, 0)
}

// Generate one primary ray per pixel into the current ray queue.
func (dr *deviceResources) GeneratePrimaryRays(state *tracer.FrameState, jitter bool) (time.Duration, error) {
	cam := state.Camera
	p := &dr.params
	p.frame = state
	p.jitter = jitter
	p.camPos = cam.Position
	p.camRight, p.camUp, p.camDir = cam.Basis()
	p.tanHalfFOV = cam.TanHalfFOV()
	p.aspect = cam.Aspect
	if p.aspect <= 0 {
		p.aspect = float32(p.frameW) / float32(p.frameH)
	}

	rays := dr.buffers.Rays.Current()
	rays.Reset()

	kernel := dr.kernels[generatePrimaryRays]
	err := kernel.SetArgs(rays.Buffer())
	if err != nil {
		return 0, err
	}

	return kernel.Exec2D(0, 0, p.frameW, p.frameH, 0, 0)
}

// Find the closest hit for every ray in the queue.
func (dr *deviceResources) RayIntersectionQuery(rays *queue.Queue[queue.Ray]) (time.Duration, error) {
	if dr.scene == nil {
		return 0, ErrNoSceneData
	}
	dr.params.cur = rays

	kernel := dr.kernels[rayIntersectionQuery]
	err := kernel.SetArgs(
		dr.scene.Nodes,
		dr.scene.Primitives,
		rays.Buffer(),
	)
	if err != nil {
		return 0, err
	}

	return kernel.Exec1D(0, rays.Len(), 0)
}

// Add the environment contribution for rays that escaped the scene.
func (dr *deviceResources) ShadeMisses(rays *queue.Queue[queue.Ray], state *tracer.FrameState) (time.Duration, error) {
	if dr.scene == nil {
		return 0, ErrNoSceneData
	}
	p := &dr.params
	p.frame = state
	p.cur = rays
	p.sunDir, p.hasSun = dr.scene.sunDirection(state.SunOffset)

	kernel := dr.kernels[shadeMisses]
	err := kernel.SetArgs(
		dr.scene.Lights,
		rays.Buffer(),
		dr.buffers.Accumulator,
	)
	if err != nil {
		return 0, err
	}

	return kernel.Exec1D(0, rays.Len(), 0)
}

// Shade ray hits. Each hit emits at most one shadow ray into the shadow queue
// and one continuation ray into next.
func (dr *deviceResources) ShadeHits(bounce, maxBounces, minBouncesForRR uint32, rays, next *queue.Queue[queue.Ray], state *tracer.FrameState) (time.Duration, error) {
	if dr.scene == nil {
		return 0, ErrNoSceneData
	}
	p := &dr.params
	p.frame = state
	p.cur = rays
	p.next = next
	p.bounce = int32(bounce)
	p.maxBounces = int32(maxBounces)
	p.minBouncesForRR = int32(minBouncesForRR)

	next.Reset()
	dr.buffers.Shadow.Reset()

	kernel := dr.kernels[shadeHits]
	err := kernel.SetArgs(
		dr.scene.Primitives,
		dr.scene.Materials,
		dr.scene.Lights,
		rays.Buffer(),
		next.Buffer(),
		dr.buffers.Shadow.Buffer(),
		dr.buffers.Accumulator,
	)
	if err != nil {
		return 0, err
	}

	return kernel.Exec1D(0, rays.Len(), 0)
}

// Test the queued shadow rays for occlusion and accumulate the contribution
// of unoccluded rays.
func (dr *deviceResources) ResolveShadowRays() (time.Duration, error) {
	if dr.scene == nil {
		return 0, ErrNoSceneData
	}
	shadow := dr.buffers.Shadow

	kernel := dr.kernels[resolveShadowRays]
	err := kernel.SetArgs(
		dr.scene.Nodes,
		dr.scene.Primitives,
		shadow.Buffer(),
		dr.buffers.Accumulator,
	)
	if err != nil {
		return 0, err
	}

	return kernel.Exec1D(0, shadow.Len(), 0)
}

// Blend the frame accumulator into the progressive average.
func (dr *deviceResources) BlendAccumulator(state *tracer.FrameState) (time.Duration, error) {
	weight := float32(1)
	if state.Progressive && state.FrameIndex > 0 {
		weight = 1 / float32(state.FrameIndex+1)
	}
	dr.params.blendWeight = weight

	kernel := dr.kernels[blendAccumulator]
	err := kernel.SetArgs(
		dr.buffers.Accumulator,
		dr.buffers.Average,
	)
	if err != nil {
		return 0, err
	}

	return kernel.Exec2D(0, 0, dr.params.frameW, dr.params.frameH, 0, 0)
}

func (dr *deviceResources) clearAccumulatorKernel(x, y int) {
	dr.buffers.Accumulator.Data()[y*dr.params.frameW+x] = types.XYZW(0, 0, 0, 1)
}

func (dr *deviceResources) blendAccumulatorKernel(x, y int) {
	pixel := y*dr.params.frameW + x
	src := dr.buffers.Accumulator.Data()[pixel]
	dst := &dr.buffers.Average.Data()[pixel]

	weight := dr.params.blendWeight
	if weight >= 1 {
		*dst = types.XYZW(src[0], src[1], src[2], 1)
		return
	}
	for i := 0; i < 3; i++ {
		dst[i] += (src[i] - dst[i]) * weight
	}
	dst[3] = 1
}

func (dr *deviceResources) generatePrimaryRaysKernel(x, y int) {
	p := &dr.params
	pixel := int32(y*p.frameW + x)

	jx, jy := float32(0.5), float32(0.5)
	if p.jitter {
		r := newRNG(p.frame.Seed, uint32(pixel), math.MaxUint32)
		jx, jy = r.Float32(), r.Float32()
	}

	u := (2*(float32(x)+jx)/float32(p.frameW) - 1) * p.aspect * p.tanHalfFOV
	v := (1 - 2*(float32(y)+jy)/float32(p.frameH)) * p.tanHalfFOV
	dir := p.camDir.Add(p.camRight.Mul(u)).Add(p.camUp.Mul(v)).Normalize()

	// The queue holds one slot per pixel unless its capacity was overridden;
	// overflowing records are counted by the queue.
	dr.buffers.Rays.Current().Append(queue.Ray{
		Origin:         p.camPos,
		Direction:      dir,
		Throughput:     types.XYZ(1, 1, 1),
		Distance:       math32.MaxFloat32,
		PathID:         pixel,
		PixelIndex:     pixel,
		PrimitiveIndex: queue.MissSentinel,
		LastSpecular:   true,
	})
}

func (dr *deviceResources) rayIntersectionQueryKernel(x, _ int) {
	dr.scene.closestHit(dr.params.cur.At(x))
}

func (dr *deviceResources) shadeMissesKernel(x, _ int) {
	p := &dr.params
	ray := p.cur.At(x)
	if ray.Hit() {
		return
	}

	radiance := dr.scene.Environment.Radiance(ray.Direction, p.sunDir, p.hasSun, ray.LastSpecular)
	device.AtomicAddVec3(&dr.buffers.Accumulator.Data()[ray.PixelIndex], ray.Throughput.MulVec(radiance))
}

func (dr *deviceResources) shadeHitsKernel(x, _ int) {
	p := &dr.params
	ray := p.cur.At(x)
	if !ray.Hit() {
		return
	}

	prim := &dr.scene.Primitives.Data()[ray.PrimitiveIndex]
	mat := dr.scene.material(prim)
	hitPoint := ray.At(ray.Distance)
	ng, n := surfaceNormals(prim, hitPoint, ray.Direction, ray.U, ray.V)

	if mat.Type == scene.Emissive {
		device.AtomicAddVec3(&dr.buffers.Accumulator.Data()[ray.PixelIndex], ray.Throughput.MulVec(mat.Emission))
		return
	}

	r := newRNG(p.frame.Seed, uint32(ray.PathID), uint32(ray.Bounces))
	throughput := ray.Throughput.MulVec(mat.Albedo)

	var wo types.Vec3
	lastSpecular := mat.Type == scene.Specular
	if lastSpecular {
		wo = ray.Direction.Reflect(n).Normalize()
	} else {
		dr.sampleLight(ray, &r, hitPoint, ng, n, mat)
		wo = cosineSampleHemisphere(n, r.Float32(), r.Float32())
	}

	if ray.Bounces+1 >= p.maxBounces || throughput.MaxComponent() <= 0 {
		return
	}
	if ray.Bounces >= p.minBouncesForRR {
		survival := throughput.Luminance()
		if survival < 0.05 {
			survival = 0.05
		} else if survival > 1 {
			survival = 1
		}
		if r.Float32() >= survival {
			return
		}
		throughput = throughput.Mul(1 / survival)
	}

	offset := ng.Mul(intersectEpsilon)
	if wo.Dot(ng) < 0 {
		offset = offset.Mul(-1)
	}

	p.next.Append(queue.Ray{
		Origin:         hitPoint.Add(offset),
		Direction:      wo,
		Throughput:     throughput,
		Distance:       math32.MaxFloat32,
		PathID:         ray.PathID,
		Bounces:        ray.Bounces + 1,
		PixelIndex:     ray.PixelIndex,
		PrimitiveIndex: queue.MissSentinel,
		LastSpecular:   lastSpecular,
	})
}

// Pick one light uniformly and queue a shadow ray carrying its direct
// lighting contribution at hitPoint.
func (dr *deviceResources) sampleLight(ray *queue.Ray, r *rng, hitPoint, ng, n types.Vec3, mat *deviceMaterial) {
	lights := dr.scene.Lights.Data()
	numLights := len(lights)
	if numLights == 0 {
		return
	}

	lightIndex := int(r.Float32() * float32(numLights))
	if lightIndex >= numLights {
		lightIndex = numLights - 1
	}
	light := &lights[lightIndex]

	origin := hitPoint.Add(ng.Mul(intersectEpsilon))
	var (
		wi       types.Vec3
		maxDist  float32
		radiance types.Vec3
	)
	switch light.Type {
	case scene.PointLight:
		toLight := light.Position.Sub(origin)
		dist := toLight.Len()
		if dist <= intersectEpsilon {
			return
		}
		wi = toLight.Mul(1 / dist)
		maxDist = dist - intersectEpsilon
		radiance = light.Color.Mul(1 / (dist * dist))
	default:
		var offset types.Vec2
		if lightIndex == dr.scene.SunLight {
			offset = dr.params.frame.SunOffset
		}
		wi = light.SunDirection(offset)
		maxDist = math32.MaxFloat32
		radiance = light.Color
	}

	cosTheta := n.Dot(wi)
	if cosTheta <= 0 || ng.Dot(wi) <= 0 {
		return
	}

	contribution := ray.Throughput.MulVec(mat.Albedo.Mul(1 / math32.Pi)).MulVec(radiance).Mul(cosTheta * float32(numLights))

	// Shadow rays that do not fit are dropped and counted by the queue.
	dr.buffers.Shadow.Append(queue.ShadowRay{
		Origin:       origin,
		Direction:    wi,
		Distance:     maxDist,
		Contribution: contribution,
		PixelIndex:   ray.PixelIndex,
	})
}

func (dr *deviceResources) resolveShadowRaysKernel(x, _ int) {
	shadowRay := dr.buffers.Shadow.At(x)
	if Occluded(dr.scene, shadowRay) {
		return
	}
	device.AtomicAddVec3(&dr.buffers.Accumulator.Data()[shadowRay.PixelIndex], shadowRay.Contribution)
}
