package tracer

import (
	"context"
	"time"

	"github.com/achilleasa/wavetrace/asset/scene"
	"github.com/achilleasa/wavetrace/tracer/device"
	"github.com/achilleasa/wavetrace/types"
)

type UpdateType uint8

const (
	// Replace the scene; data is a *scene.Scene.
	UpdateScene UpdateType = iota

	// Replace the sky/sun environment; data is a scene.Environment.
	UpdateEnvironment
)

// FrameState holds the per-frame simulation parameters passed to the
// pipeline stages.
type FrameState struct {
	// A snapshot of the camera for this frame.
	Camera scene.Camera

	// Offset (azimuth, elevation in radians) applied to the sun direction.
	SunOffset types.Vec2

	// A random seed for the frame.
	Seed uint32

	// Number of frames already accumulated from the current camera position.
	FrameIndex uint32

	// Blend this frame with the previous ones.
	Progressive bool
}

// Tracer statistics for the last rendered frame.
type Stats struct {
	FrameTime time.Duration

	// Time spent in each pipeline stage.
	StageTimes map[string]time.Duration

	Bounces     int
	PrimaryRays int
	Rays        int
	ShadowRays  int

	// Records dropped because a queue was full.
	DroppedRays int64
}

type Tracer interface {
	// Get tracer id.
	Id() string

	// Allocate frame resources and start the tracer.
	Init(frameW, frameH uint32) error

	// Compile (if needed) and upload scene data to the device.
	UploadScene(*scene.Scene) error

	// Append a change to the tracer's update buffer. Changes are applied
	// before the next frame is rendered.
	Update(UpdateType, interface{})

	// Render a frame. Render blocks until the frame has been accumulated or
	// ctx is done.
	Render(ctx context.Context, state *FrameState) error

	// The blended frame output (one rgb + weight value per pixel).
	Output() *device.Buffer[types.Vec4]

	// Retrieve last frame statistics.
	Stats() *Stats

	// Shutdown and release all device resources.
	Close()
}
