package renderer

import (
	"context"
	"time"

	"github.com/achilleasa/wavetrace/asset/scene"
)

// A FrameObserver is invoked after each presented frame with the frame time
// and the renderer camera. Observers may move the camera; returning true
// stops the renderer.
type FrameObserver func(frameTime time.Duration, cam *scene.Camera) bool

type Renderer interface {
	// Render frames until the sample limit is reached, the observer
	// requests a stop or ctx is done.
	Render(ctx context.Context) error

	// Attach a frame observer.
	SetObserver(FrameObserver)

	// Shutdown renderer and the attached tracer.
	Close()

	// Get render statistics.
	Stats() FrameStats
}
