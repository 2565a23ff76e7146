package main

import (
	"os"

	"github.com/achilleasa/wavetrace/benchmark"
	"github.com/achilleasa/wavetrace/cmd"
	"github.com/urfave/cli"
)

// Flags shared by all commands that render frames.
var renderFlags = []cli.Flag{
	cli.IntFlag{
		Name:  "width",
		Value: 512,
		Usage: "frame width",
	},
	cli.IntFlag{
		Name:  "height",
		Value: 512,
		Usage: "frame height",
	},
	cli.Float64Flag{
		Name:  "exposure",
		Value: 1.0,
		Usage: "camera exposure for tone-mapping",
	},
	cli.IntFlag{
		Name:  "num-bounces",
		Value: 5,
		Usage: "max number of bounces for each path",
	},
	cli.IntFlag{
		Name:  "rr-bounces",
		Value: 3,
		Usage: "min number of bounces before applying russian roulette for path elimination; 0 disables RR",
	},
	cli.BoolFlag{
		Name:  "jitter",
		Usage: "randomize primary ray positions inside each pixel",
	},
	cli.IntFlag{
		Name:  "workers",
		Value: 0,
		Usage: "number of compute device workers; 0 uses one worker per CPU",
	},
	cli.Int64Flag{
		Name:  "mem-budget",
		Value: 0,
		Usage: "compute device memory budget in bytes; 0 disables the limit",
	},
	cli.IntFlag{
		Name:  "queue-capacity",
		Value: 0,
		Usage: "ray queue capacity; 0 allocates one slot per pixel",
	},
}

func withFlags(flags ...cli.Flag) []cli.Flag {
	return append(append([]cli.Flag{}, renderFlags...), flags...)
}

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "wavetrace"
	app.Usage = "render scenes using wavefront path tracing"
	app.Version = "0.0.1"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
		cli.StringFlag{
			Name:  "log-level",
			Usage: "set log level (debug, info, notice, warning, error)",
		},
		cli.StringSliceFlag{
			Name:  "log-module",
			Value: &cli.StringSlice{},
			Usage: "override the log level of a single module (module=level); may be repeated",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "compile",
			Usage: "compile text scene representation into a binary compressed format",
			Description: `
Parse a scene definition from a wavefront obj or ply file, build a BVH tree to
optimize ray intersection tests and package scene elements in a flat format.

The optimized scene data is then written to a zip archive which can be supplied
as an argument to the render commands.`,
			ArgsUsage: "scene_file1.obj scene_file2.ply ...",
			Action:    cmd.CompileScene,
		},
		{
			Name:      "scene-info",
			Usage:     "print scene statistics",
			ArgsUsage: "scene_file",
			Action:    cmd.ShowSceneInfo,
		},
		{
			Name:   "list-devices",
			Usage:  "list available compute devices",
			Action: cmd.ListDevices,
		},
		{
			Name:  "render",
			Usage: "render scene",
			Subcommands: []cli.Command{
				{
					Name:        "frame",
					Usage:       "render single frame",
					Description: `Render a single frame by accumulating the requested number of samples and save it as a png image.`,
					ArgsUsage:   "scene_file",
					Flags: withFlags(
						cli.IntFlag{
							Name:  "spp",
							Value: 16,
							Usage: "samples per pixel",
						},
						cli.StringFlag{
							Name:  "out, o",
							Value: "frame.png",
							Usage: "image filename for the rendered frame",
						},
					),
					Action: cmd.RenderFrame,
				},
				{
					Name:  "interactive",
					Usage: "render interactive view of the scene",
					Description: `
Display a continuously updating view of the scene. Use the arrow keys or WASD
to move, drag with the left mouse button to look around and -/= to move the
sun. Tab toggles the frame time overlay.`,
					ArgsUsage: "scene_file",
					Flags: withFlags(
						cli.IntFlag{
							Name:  "spp",
							Value: 0,
							Usage: "stop accumulating after this many samples per pixel; 0 accumulates forever",
						},
						cli.BoolTFlag{
							Name:  "progressive",
							Usage: "blend consecutive frames while the camera is not moving",
						},
					),
					Action: cmd.RenderInteractive,
				},
				{
					Name:  "benchmark",
					Usage: "replay a camera path and report frame times",
					Description: `
Visit each waypoint and render frames until the accumulated frame time exceeds
the interval. A report block with the average, min and max frame time is
written for each waypoint. Waypoint files contain one "x y z h v" entry per
line; if no file is specified, an orbit around the scene is used.`,
					ArgsUsage: "scene_file",
					Flags: withFlags(
						cli.StringFlag{
							Name:  "waypoints",
							Usage: "waypoint file",
						},
						cli.IntFlag{
							Name:  "orbit",
							Value: 4,
							Usage: "number of orbit waypoints when no waypoint file is specified",
						},
						cli.DurationFlag{
							Name:  "interval",
							Value: benchmark.DefaultInterval,
							Usage: "time spent at each waypoint",
						},
						cli.StringFlag{
							Name:  "report",
							Usage: "write report to file instead of stdout",
						},
						cli.BoolFlag{
							Name:  "headless",
							Usage: "render off-screen",
						},
						cli.BoolFlag{
							Name:  "progressive",
							Usage: "blend consecutive frames at each waypoint",
						},
					),
					Action: cmd.RunBenchmark,
				},
			},
		},
		{
			Name:      "debug",
			Usage:     "render a single sample and dump kernel statistics",
			ArgsUsage: "scene_file",
			Flags:     renderFlags,
			Action:    cmd.Debug,
		},
	}

	if err := app.Run(os.Args); err != nil {
		cmd.Fatal(err)
	}
}

