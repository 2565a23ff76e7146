package cmd

import (
	"context"
	"fmt"

	"github.com/achilleasa/wavetrace/interop"
	"github.com/achilleasa/wavetrace/renderer"
	"github.com/achilleasa/wavetrace/tracer/wavefront"
	"github.com/urfave/cli"
)

// Render a single sample and dump per-kernel device statistics.
func Debug(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	opts := renderOptions(ctx)
	opts.SamplesPerPixel = 1

	sc, err := sceneArg(ctx)
	if err != nil {
		return err
	}

	tr, ok := renderer.NewWavefrontTracer(opts).(*wavefront.Tracer)
	if !ok {
		return fmt.Errorf("debug: unexpected tracer type")
	}
	logger.Noticef("using device:\n%s", tr.Device())

	r, err := renderer.NewDefault(sc, tr, interop.NewImageSurface(), opts)
	if err != nil {
		return err
	}
	defer r.Close()

	if err = r.Render(context.Background()); err != nil {
		return err
	}

	displayFrameStats(r.Stats())
	logger.Noticef("kernel statistics\n%s", tr.Device().StatsTable())
	return nil
}
