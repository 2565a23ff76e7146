package renderer

import "time"

// A FrameTimeSeries keeps the most recent frame times in a fixed-size
// history for the telemetry overlay.
type FrameTimeSeries struct {
	values []float32
	count  int
}

// Create a series holding up to histCount values.
func NewFrameTimeSeries(histCount int) *FrameTimeSeries {
	if histCount < 1 {
		histCount = 1
	}
	return &FrameTimeSeries{values: make([]float32, histCount)}
}

// Shift series values and append the frame time (in ms) at the end.
func (s *FrameTimeSeries) Append(frameTime time.Duration) {
	s.values = append(s.values[1:], float32(frameTime.Seconds()*1000))
	if s.count < len(s.values) {
		s.count++
	}
}

// Clear series.
func (s *FrameTimeSeries) Clear() {
	for i := range s.values {
		s.values[i] = 0
	}
	s.count = 0
}

// Values returns the full history, oldest first. Slots that have not been
// filled yet are zero.
func (s *FrameTimeSeries) Values() []float32 {
	return s.values
}

// Average frame time in ms over the recorded values.
func (s *FrameTimeSeries) Average() float32 {
	if s.count == 0 {
		return 0
	}
	var sum float32
	for _, v := range s.values[len(s.values)-s.count:] {
		sum += v
	}
	return sum / float32(s.count)
}

// Max frame time in ms over the history.
func (s *FrameTimeSeries) Max() float32 {
	var max float32
	for _, v := range s.values {
		if v > max {
			max = v
		}
	}
	return max
}
