package renderer

import (
	"context"
	"fmt"
	"time"

	"github.com/achilleasa/wavetrace/asset/scene"
	"github.com/achilleasa/wavetrace/interop"
	"github.com/achilleasa/wavetrace/log"
	"github.com/achilleasa/wavetrace/tracer"
	"github.com/achilleasa/wavetrace/tracer/device"
	"github.com/achilleasa/wavetrace/tracer/wavefront"
	"github.com/achilleasa/wavetrace/types"
)

// Create a wavefront tracer on a new compute device configured by opts.
func NewWavefrontTracer(opts Options) tracer.Tracer {
	dev := device.New(device.Config{
		Workers:      opts.Workers,
		MemoryBudget: opts.MemoryBudget,
	})

	return wavefront.NewTracer(dev.Name, dev, wavefront.Config{
		Pipeline:      wavefront.DefaultPipeline(opts.NumBounces, opts.MinBouncesForRR, opts.Jitter),
		QueueCapacity: opts.QueueCapacity,
	})
}

// A Default renderer renders frames with a single tracer and presents them
// on an interop surface. Frames are rendered sequentially; a new frame is
// only started after the previous one has been presented.
type Default struct {
	logger log.Logger

	tracer tracer.Tracer
	bridge *interop.Bridge

	options Options
	scene   *scene.Scene
	camera  *scene.Camera

	sunOffset types.Vec2

	accumulatedSamples uint32
	frameCount         uint32

	observer FrameObserver
	stopped  bool

	stats FrameStats
}

// Create a new default renderer. The renderer takes ownership of tr and
// closes it when the renderer is closed.
func NewDefault(sc *scene.Scene, tr tracer.Tracer, surface interop.Surface, opts Options) (*Default, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if tr == nil {
		return nil, ErrNoTracer
	}
	if sc == nil {
		return nil, ErrSceneNotDefined
	}
	if sc.Camera == nil {
		return nil, ErrCameraNotDefined
	}

	r := &Default{
		logger:  log.New("renderer"),
		tracer:  tr,
		bridge:  interop.NewBridge(surface, opts.Exposure),
		options: opts,
		scene:   sc,
		camera:  sc.Camera,
	}

	r.camera.SetupProjection(float32(opts.FrameW) / float32(opts.FrameH))

	if err := tr.Init(opts.FrameW, opts.FrameH); err != nil {
		r.Close()
		return nil, err
	}
	if err := tr.UploadScene(sc); err != nil {
		r.Close()
		return nil, err
	}

	return r, nil
}

// Render frames until the sample limit is reached, the observer requests a
// stop or ctx is done.
func (r *Default) Render(ctx context.Context) error {
	for !r.Done() {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrInterrupted, err)
		}
		if err := r.RenderFrame(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Done returns true when the sample limit has been reached or the observer
// requested a stop.
func (r *Default) Done() bool {
	return r.stopped || (r.options.SamplesPerPixel != 0 && r.accumulatedSamples >= r.options.SamplesPerPixel)
}

// Stopped returns true if the observer requested a stop.
func (r *Default) Stopped() bool {
	return r.stopped
}

// Render and present a single frame.
func (r *Default) RenderFrame(ctx context.Context) error {
	start := time.Now()
	state := &tracer.FrameState{
		Camera:      *r.camera,
		SunOffset:   r.sunOffset,
		Seed:        frameSeed(r.frameCount),
		FrameIndex:  r.accumulatedSamples,
		Progressive: r.options.Progressive,
	}
	if err := r.tracer.Render(ctx, state); err != nil {
		return err
	}
	renderTime := time.Since(start)

	blitStart := time.Now()
	if err := r.bridge.Blit(r.tracer.Output(), int(r.options.FrameW), int(r.options.FrameH)); err != nil {
		return err
	}

	r.accumulatedSamples++
	r.frameCount++
	r.stats = FrameStats{
		TracerId:           r.tracer.Id(),
		Frames:             r.frameCount,
		AccumulatedSamples: r.accumulatedSamples,
		RenderTime:         renderTime,
		BlitTime:           time.Since(blitStart),
		FrameTime:          time.Since(start),
		Tracer:             *r.tracer.Stats(),
	}

	if r.observer != nil {
		prev := *r.camera
		if r.observer(r.stats.FrameTime, r.camera) {
			r.stopped = true
		}
		if *r.camera != prev {
			r.camera.Update()
			r.ResetAccumulation()
		}
	}
	return nil
}

// Attach a frame observer.
func (r *Default) SetObserver(observer FrameObserver) {
	r.observer = observer
}

// The renderer camera. Callers that modify the camera must call
// ResetAccumulation.
func (r *Default) Camera() *scene.Camera {
	return r.camera
}

// The active options.
func (r *Default) Options() Options {
	return r.options
}

// The interop bridge used to present frames.
func (r *Default) Bridge() *interop.Bridge {
	return r.bridge
}

// Restart progressive accumulation with the next frame.
func (r *Default) ResetAccumulation() {
	r.accumulatedSamples = 0
	r.stopped = false
}

// The offset (azimuth, elevation) applied to the sun direction.
func (r *Default) SunOffset() types.Vec2 {
	return r.sunOffset
}

// Set the sun offset and restart accumulation.
func (r *Default) SetSunOffset(offset types.Vec2) {
	r.sunOffset = offset
	r.ResetAccumulation()
}

// Get render statistics.
func (r *Default) Stats() FrameStats {
	return r.stats
}

// Shutdown renderer and the attached tracer.
func (r *Default) Close() {
	if r.tracer != nil {
		r.tracer.Close()
		r.tracer = nil
	}
}

func frameSeed(frame uint32) uint32 {
	return (frame+1)*0x9e3779b9 ^ 0x85ebca6b
}
