package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"time"

	"github.com/achilleasa/wavetrace/asset/scene"
	"github.com/achilleasa/wavetrace/interop"
	"github.com/achilleasa/wavetrace/renderer"
	"github.com/achilleasa/wavetrace/renderer/opengl"
	"github.com/urfave/cli"
)

// Render a still frame.
func RenderFrame(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	opts := renderOptions(ctx)
	opts.Progressive = true

	sc, err := sceneArg(ctx)
	if err != nil {
		return err
	}

	surface := interop.NewImageSurface()
	r, err := renderer.NewDefault(sc, renderer.NewWavefrontTracer(opts), surface, opts)
	if err != nil {
		return err
	}
	defer r.Close()

	renderCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	logger.Noticef("rendering %dx%d frame with %d spp", opts.FrameW, opts.FrameH, opts.SamplesPerPixel)
	start := time.Now()
	if err = r.Render(renderCtx); err != nil {
		return err
	}
	logger.Noticef("rendered frame in %d ms", time.Since(start).Nanoseconds()/1e6)

	imgFile := ctx.String("out")
	if err = surface.SavePNG(imgFile); err != nil {
		return err
	}
	logger.Noticef("wrote frame to %s", imgFile)

	// Display stats
	displayFrameStats(r.Stats())
	return nil
}

// Use opengl to render a continuously updating view of the scene.
func RenderInteractive(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	opts := renderOptions(ctx)
	sc, err := sceneArg(ctx)
	if err != nil {
		return err
	}

	r, err := opengl.NewInteractive(sc, renderer.NewWavefrontTracer(opts), opts)
	if err != nil {
		return err
	}
	defer r.Close()

	renderCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	err = r.Render(renderCtx)
	displayFrameStats(r.Stats())
	return ignoreInterrupt(err)
}

// Build renderer options from the command flags.
func renderOptions(ctx *cli.Context) renderer.Options {
	opts := renderer.Options{
		FrameW:          uint32(ctx.Int("width")),
		FrameH:          uint32(ctx.Int("height")),
		SamplesPerPixel: uint32(ctx.Int("spp")),
		Exposure:        float32(ctx.Float64("exposure")),
		NumBounces:      uint32(ctx.Int("num-bounces")),
		MinBouncesForRR: uint32(ctx.Int("rr-bounces")),
		Progressive:     ctx.Bool("progressive"),
		Jitter:          ctx.Bool("jitter"),
		Workers:         ctx.Int("workers"),
		MemoryBudget:    ctx.Int64("mem-budget"),
		QueueCapacity:   ctx.Int("queue-capacity"),
	}

	if opts.MinBouncesForRR == 0 || opts.MinBouncesForRR >= opts.NumBounces {
		logger.Notice("disabling RR for path elimination")
	}

	return opts
}

func sceneArg(ctx *cli.Context) (*scene.Scene, error) {
	if ctx.NArg() != 1 {
		return nil, errors.New("missing scene file argument")
	}
	return loadScene(ctx.Args().First())
}

// A user interrupt is a normal way to end an interactive session.
func ignoreInterrupt(err error) error {
	if errors.Is(err, renderer.ErrInterrupted) {
		return nil
	}
	return err
}

func displayFrameStats(stats renderer.FrameStats) {
	logger.Noticef("frame statistics\n%s", stats.Table())
}
