package wavefront

import (
	"context"
	"time"

	"github.com/achilleasa/wavetrace/tracer"
)

// An alias for functions that can be used as part of the rendering pipeline.
type PipelineStage func(ctx context.Context, tr *Tracer, state *tracer.FrameState) (time.Duration, error)

// The list of pluggable stages that are used to render a frame.
type Pipeline struct {
	// Reset the per-frame tracer state. This stage is executed at the
	// beginning of each frame.
	Reset PipelineStage

	// This stage generates the primary rays for the frame.
	PrimaryRayGenerator PipelineStage

	// This stage implements an integrator function to trace the primary
	// rays and add their contribution into the accumulation buffer.
	Integrator PipelineStage

	// A set of stages executed after the integrator has finished.
	PostProcess []PipelineStage
}

// DefaultPipeline traces up to maxBounces path segments per pixel and starts
// applying Russian roulette after minBouncesForRR bounces (0 disables it).
func DefaultPipeline(maxBounces, minBouncesForRR uint32, jitter bool) *Pipeline {
	return &Pipeline{
		Reset:               ClearAccumulator(),
		PrimaryRayGenerator: PerspectiveCamera(jitter),
		Integrator:          WavefrontIntegrator(maxBounces, minBouncesForRR),
		PostProcess: []PipelineStage{
			BlendAccumulator(),
		},
	}
}

// Clear the accumulator buffer.
func ClearAccumulator() PipelineStage {
	return func(_ context.Context, tr *Tracer, _ *tracer.FrameState) (time.Duration, error) {
		return tr.resources.ClearAccumulator()
	}
}

// Use a perspective camera for the primary ray generation stage. When jitter
// is set, ray positions are randomized within each pixel.
func PerspectiveCamera(jitter bool) PipelineStage {
	return func(_ context.Context, tr *Tracer, state *tracer.FrameState) (time.Duration, error) {
		elapsed, err := tr.resources.GeneratePrimaryRays(state, jitter)
		rays := tr.resources.buffers.Rays.Current()
		tr.stats.PrimaryRays = rays.Len()
		tr.stats.DroppedRays += rays.Dropped()
		return elapsed, err
	}
}

// Blend the frame into the progressive average.
func BlendAccumulator() PipelineStage {
	return func(_ context.Context, tr *Tracer, state *tracer.FrameState) (time.Duration, error) {
		return tr.resources.BlendAccumulator(state)
	}
}

// Use a wavefront path tracer. Each bounce runs the traversal, shading and
// shadow kernels over the current ray queue and then swaps the ray queues.
// The frame is abandoned between bounces if ctx is done. Russian roulette is
// disabled when minBouncesForRR is 0 or not smaller than maxBounces.
func WavefrontIntegrator(maxBounces, minBouncesForRR uint32) PipelineStage {
	if minBouncesForRR == 0 || minBouncesForRR >= maxBounces {
		minBouncesForRR = maxBounces + 1
	}

	return func(ctx context.Context, tr *Tracer, state *tracer.FrameState) (time.Duration, error) {
		var err error

		start := time.Now()
		res := tr.resources
		rays := res.buffers.Rays
		shadow := res.buffers.Shadow

		var bounce uint32
		for bounce = 0; bounce < maxBounces; bounce++ {
			if err = ctx.Err(); err != nil {
				return time.Since(start), err
			}

			cur := rays.Current()
			if cur.Len() == 0 {
				break
			}
			tr.stats.Bounces++
			tr.stats.Rays += cur.Len()

			_, err = res.RayIntersectionQuery(cur)
			if err != nil {
				return time.Since(start), err
			}

			_, err = res.ShadeMisses(cur, state)
			if err != nil {
				return time.Since(start), err
			}

			_, err = res.ShadeHits(bounce, maxBounces, minBouncesForRR, cur, rays.Next(), state)
			if err != nil {
				return time.Since(start), err
			}

			_, err = res.ResolveShadowRays()
			if err != nil {
				return time.Since(start), err
			}

			tr.stats.ShadowRays += shadow.Len()
			tr.stats.DroppedRays += rays.Next().Dropped() + shadow.Dropped()
			rays.Swap()
		}

		if tr.stats.DroppedRays > 0 {
			tr.logger.Warningf("frame %d: dropped %d rays due to queue overflow", state.FrameIndex, tr.stats.DroppedRays)
		}

		return time.Since(start), nil
	}
}
