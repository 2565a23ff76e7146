package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/achilleasa/wavetrace/asset/scene"
	"github.com/achilleasa/wavetrace/benchmark"
	"github.com/achilleasa/wavetrace/interop"
	"github.com/achilleasa/wavetrace/renderer"
	"github.com/achilleasa/wavetrace/renderer/opengl"
	"github.com/urfave/cli"
)

// The subset of renderer functionality needed to drive a benchmark.
type benchmarkRenderer interface {
	renderer.Renderer
	Camera() *scene.Camera
}

// Replay a camera path and report frame time statistics for each waypoint.
func RunBenchmark(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	opts := renderOptions(ctx)
	opts.SamplesPerPixel = 0

	sc, err := sceneArg(ctx)
	if err != nil {
		return err
	}

	var waypoints []benchmark.Waypoint
	if wpFile := ctx.String("waypoints"); wpFile != "" {
		if waypoints, err = benchmark.LoadWaypoints(wpFile); err != nil {
			return err
		}
	} else {
		waypoints = benchmark.Orbit(sc.Bounds(), sc.Camera.Forward, ctx.Int("orbit"))
	}

	var report io.Writer = os.Stdout
	if reportFile := ctx.String("report"); reportFile != "" {
		f, err := os.Create(reportFile)
		if err != nil {
			return fmt.Errorf("could not create benchmark report: %w", err)
		}
		defer f.Close()
		report = f
	}

	harness, err := benchmark.NewHarness(waypoints, ctx.Duration("interval"), report)
	if err != nil {
		return err
	}

	var r benchmarkRenderer
	tr := renderer.NewWavefrontTracer(opts)
	if ctx.Bool("headless") {
		r, err = renderer.NewDefault(sc, tr, interop.NewImageSurface(), opts)
	} else {
		r, err = opengl.NewInteractive(sc, tr, opts)
	}
	if err != nil {
		return err
	}
	defer r.Close()

	harness.Begin(r.Camera())
	r.SetObserver(func(frameTime time.Duration, cam *scene.Camera) bool {
		return harness.Measure(frameTime, cam)
	})

	logger.Noticef("benchmarking %d waypoint(s) for %s each", len(waypoints), ctx.Duration("interval"))

	renderCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err = r.Render(renderCtx); err != nil {
		return err
	}
	if !harness.Done() {
		logger.Warningf("benchmark aborted after %d of %d waypoint(s)", len(harness.Results()), len(waypoints))
	}

	return nil
}
