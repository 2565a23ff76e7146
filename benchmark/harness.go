package benchmark

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/achilleasa/wavetrace/asset/scene"
	"github.com/achilleasa/wavetrace/log"
	"github.com/achilleasa/wavetrace/types"
	"github.com/olekukonko/tablewriter"
)

// DefaultInterval is the time spent measuring each waypoint.
const DefaultInterval = 10 * time.Second

// ErrNoWaypoints is returned when a harness is created without waypoints.
var ErrNoWaypoints = errors.New("benchmark: at least one waypoint is required")

// A Waypoint is a camera placement visited by the benchmark.
type Waypoint struct {
	Position        types.Vec3
	HorizontalAngle float32
	VerticalAngle   float32
}

// Apply the waypoint to a camera.
func (w Waypoint) Apply(cam *scene.Camera) {
	cam.Position = w.Position
	cam.HorizontalAngle = w.HorizontalAngle
	cam.VerticalAngle = w.VerticalAngle
	cam.Update()
}

// Frame time statistics for a single waypoint.
type Result struct {
	Waypoint int
	Frames   int
	Average  time.Duration
	Min      time.Duration
	Max      time.Duration
}

// Average frames per second.
func (r Result) FPS() float64 {
	if r.Average <= 0 {
		return 0
	}
	return 1 / r.Average.Seconds()
}

// A Harness replays a sequence of camera waypoints, spending a fixed amount
// of frame time on each one, and writes a performance report block for each
// visited waypoint.
type Harness struct {
	logger log.Logger

	waypoints []Waypoint
	interval  time.Duration
	report    io.Writer

	current int
	elapsed time.Duration
	frames  int
	total   time.Duration
	min     time.Duration
	max     time.Duration

	results []Result
	done    bool
}

// Create a harness for the given waypoints. If interval is <= 0, the
// DefaultInterval is used.
func NewHarness(waypoints []Waypoint, interval time.Duration, report io.Writer) (*Harness, error) {
	if len(waypoints) == 0 {
		return nil, ErrNoWaypoints
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	if report == nil {
		report = io.Discard
	}

	h := &Harness{
		logger:    log.New("benchmark"),
		waypoints: waypoints,
		interval:  interval,
		report:    report,
	}
	h.resetWindow()
	return h, nil
}

// Begin positions cam at the first waypoint.
func (h *Harness) Begin(cam *scene.Camera) {
	h.waypoints[h.current].Apply(cam)
}

// Measure records the time taken by the last frame and positions cam at
// the active waypoint. Once the frame times recorded for a waypoint exceed
// the interval, a report block is written and the harness moves to the next
// waypoint. Measure returns true when all waypoints have been measured.
func (h *Harness) Measure(delta time.Duration, cam *scene.Camera) bool {
	if h.done {
		return true
	}

	h.frames++
	h.total += delta
	h.elapsed += delta
	if delta < h.min {
		h.min = delta
	}
	if delta > h.max {
		h.max = delta
	}

	if h.elapsed > h.interval {
		if err := h.writeResult(); err != nil {
			h.logger.Errorf("could not write report: %v", err)
		}

		if h.current < len(h.waypoints)-1 {
			h.current++
		} else {
			h.done = true
			h.logger.Noticef("benchmark complete\n%s", h.SummaryTable())
			return true
		}
	}

	h.waypoints[h.current].Apply(cam)
	return false
}

// Done returns true when all waypoints have been measured.
func (h *Harness) Done() bool {
	return h.done
}

// Results returns the results recorded so far.
func (h *Harness) Results() []Result {
	return h.results
}

func (h *Harness) writeResult() error {
	res := Result{
		Waypoint: h.current,
		Frames:   h.frames,
		Average:  h.total / time.Duration(h.frames),
		Min:      h.min,
		Max:      h.max,
	}
	h.results = append(h.results, res)
	h.resetWindow()

	_, err := fmt.Fprintf(h.report,
		"Average ms: %.3f\nAverage fps: %.2f\nMin ms: %.3f\nMax ms: %.3f\n\n",
		ms(res.Average), res.FPS(), ms(res.Min), ms(res.Max),
	)
	return err
}

func (h *Harness) resetWindow() {
	h.elapsed = 0
	h.frames = 0
	h.total = 0
	h.min = time.Duration(1<<63 - 1)
	h.max = 0
}

// SummaryTable renders the recorded results as a table.
func (h *Harness) SummaryTable() string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Waypoint", "Position", "Frames", "Average ms", "Average fps", "Min ms", "Max ms"})
	for _, res := range h.results {
		pos := h.waypoints[res.Waypoint].Position
		table.Append([]string{
			fmt.Sprint(res.Waypoint),
			fmt.Sprintf("(%.2f, %.2f, %.2f)", pos[0], pos[1], pos[2]),
			fmt.Sprint(res.Frames),
			fmt.Sprintf("%.3f", ms(res.Average)),
			fmt.Sprintf("%.2f", res.FPS()),
			fmt.Sprintf("%.3f", ms(res.Min)),
			fmt.Sprintf("%.3f", ms(res.Max)),
		})
	}
	table.Render()
	return buf.String()
}

func ms(d time.Duration) float64 {
	return d.Seconds() * 1000
}
