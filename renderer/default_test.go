package renderer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/achilleasa/wavetrace/asset/scene"
	"github.com/achilleasa/wavetrace/interop"
	"github.com/achilleasa/wavetrace/types"
)

func testScene() *scene.Scene {
	return &scene.Scene{
		Primitives: []scene.Primitive{
			scene.NewTriangle(types.XYZ(-50, 0, 50), types.XYZ(50, 0, 50), types.XYZ(0, 0, -50), 0),
			scene.NewSphere(types.XYZ(0, 1, 0), 1, 0),
		},
		Materials:   []scene.Material{scene.DefaultMaterial},
		Lights:      []scene.Light{scene.DefaultSun},
		Environment: scene.DefaultEnvironment,
		Camera:      scene.NewCamera(types.XYZ(0, 3, 8), types.XYZ(0, 0, 0), types.XYZ(0, 1, 0), 60),
	}
}

func testOptions(spp uint32) Options {
	opts := Options{
		FrameW:          8,
		FrameH:          6,
		NumBounces:      3,
		MinBouncesForRR: 1,
		SamplesPerPixel: spp,
		Exposure:        1,
		Progressive:     true,
		Jitter:          true,
		Workers:         2,
	}
	if err := opts.Validate(); err != nil {
		panic(err)
	}
	return opts
}

func newTestRenderer(t *testing.T, spp uint32) (*Default, *interop.ImageSurface) {
	t.Helper()
	opts := testOptions(spp)
	surface := interop.NewImageSurface()
	r, err := NewDefault(testScene(), NewWavefrontTracer(opts), surface, opts)
	if err != nil {
		t.Fatal(err)
	}
	return r, surface
}

func TestRenderAccumulatesSamples(t *testing.T) {
	r, surface := newTestRenderer(t, 3)
	defer r.Close()

	if err := r.Render(context.Background()); err != nil {
		t.Fatal(err)
	}

	if surface.Frames() != 3 {
		t.Fatalf("expected 3 presented frames; got %d", surface.Frames())
	}
	stats := r.Stats()
	if stats.Frames != 3 || stats.AccumulatedSamples != 3 {
		t.Fatalf("expected 3 rendered and accumulated frames; got %d and %d", stats.Frames, stats.AccumulatedSamples)
	}
	if stats.Tracer.PrimaryRays != 8*6 {
		t.Fatalf("expected %d primary rays; got %d", 8*6, stats.Tracer.PrimaryRays)
	}
	if !r.Done() {
		t.Fatal("expected renderer to be done")
	}

	img := surface.Image()
	if img.Bounds().Dx() != 8 || img.Bounds().Dy() != 6 {
		t.Fatalf("unexpected image bounds %v", img.Bounds())
	}
	if stats.Table() == "" {
		t.Fatal("expected a non-empty stats table")
	}
}

func TestObserverStopsRenderer(t *testing.T) {
	r, surface := newTestRenderer(t, 0)
	defer r.Close()

	var frames int
	r.SetObserver(func(frameTime time.Duration, cam *scene.Camera) bool {
		frames++
		if frameTime <= 0 {
			t.Fatalf("expected a positive frame time; got %v", frameTime)
		}
		return frames == 2
	})

	if err := r.Render(context.Background()); err != nil {
		t.Fatal(err)
	}
	if surface.Frames() != 2 || !r.Stopped() {
		t.Fatalf("expected the renderer to stop after 2 frames; got %d", surface.Frames())
	}
}

func TestCameraChangeResetsAccumulation(t *testing.T) {
	r, _ := newTestRenderer(t, 0)
	defer r.Close()

	var frames int
	r.SetObserver(func(_ time.Duration, cam *scene.Camera) bool {
		frames++
		if frames == 1 {
			cam.Move(scene.Left, 0.5)
			return false
		}
		return true
	})

	if err := r.Render(context.Background()); err != nil {
		t.Fatal(err)
	}

	stats := r.Stats()
	if stats.Frames != 2 || stats.AccumulatedSamples != 1 {
		t.Fatalf("expected accumulation to restart after the camera moved; got %d frames and %d accumulated", stats.Frames, stats.AccumulatedSamples)
	}

	r.SetSunOffset(types.XY(0.1, 0.1))
	if r.SunOffset() != types.XY(0.1, 0.1) || r.Stopped() {
		t.Fatal("expected sun offset change to restart rendering")
	}
}

func TestRenderInterrupted(t *testing.T) {
	r, _ := newTestRenderer(t, 0)
	defer r.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := r.Render(ctx); !errors.Is(err, ErrInterrupted) {
		t.Fatalf("expected ErrInterrupted; got %v", err)
	}
}

func TestNewDefaultErrors(t *testing.T) {
	opts := testOptions(1)

	noCamera := testScene()
	noCamera.Camera = nil

	specs := []struct {
		sc     *scene.Scene
		opts   Options
		expErr error
	}{
		{nil, opts, ErrSceneNotDefined},
		{noCamera, opts, ErrCameraNotDefined},
		{testScene(), Options{}, ErrInvalidOptions},
		{&scene.Scene{Camera: testScene().Camera}, opts, scene.ErrDegenerateScene},
	}

	for index, spec := range specs {
		tr := NewWavefrontTracer(opts)
		r, err := NewDefault(spec.sc, tr, interop.NewImageSurface(), spec.opts)
		if !errors.Is(err, spec.expErr) {
			t.Fatalf("[spec %d] expected error %v; got %v", index, spec.expErr, err)
		}
		if r != nil {
			t.Fatalf("[spec %d] expected a nil renderer", index)
		}
		tr.Close()
	}
}
