package renderer

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/achilleasa/wavetrace/tracer"
	"github.com/olekukonko/tablewriter"
)

type FrameStats struct {
	// The tracer id.
	TracerId string

	// Total frames rendered and frames accumulated for the current camera.
	Frames             uint32
	AccumulatedSamples uint32

	// Time spent by the tracer and by the interop bridge.
	RenderTime time.Duration
	BlitTime   time.Duration

	// Total time for the frame.
	FrameTime time.Duration

	// Tracer statistics for the last frame.
	Tracer tracer.Stats
}

// Table renders the statistics as a table.
func (s FrameStats) Table() string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Stage", "Time"})

	stages := make([]string, 0, len(s.Tracer.StageTimes))
	for name := range s.Tracer.StageTimes {
		stages = append(stages, name)
	}
	sort.Strings(stages)
	for _, name := range stages {
		table.Append([]string{name, s.Tracer.StageTimes[name].String()})
	}
	table.Append([]string{"blit", s.BlitTime.String()})
	table.Append([]string{" ", " "})
	table.Append([]string{"bounces", fmt.Sprint(s.Tracer.Bounces)})
	table.Append([]string{"primary rays", fmt.Sprint(s.Tracer.PrimaryRays)})
	table.Append([]string{"rays", fmt.Sprint(s.Tracer.Rays)})
	table.Append([]string{"shadow rays", fmt.Sprint(s.Tracer.ShadowRays)})
	table.Append([]string{"dropped rays", fmt.Sprint(s.Tracer.DroppedRays)})
	table.Append([]string{"accumulated frames", fmt.Sprint(s.AccumulatedSamples)})
	table.SetFooter([]string{s.TracerId, s.FrameTime.String()})

	table.Render()
	return buf.String()
}
