package renderer

import (
	"testing"
	"time"
)

func TestFrameTimeSeries(t *testing.T) {
	s := NewFrameTimeSeries(3)
	if s.Average() != 0 || s.Max() != 0 {
		t.Fatal("expected an empty series to report zero values")
	}

	for _, ms := range []int{10, 20, 30, 40} {
		s.Append(time.Duration(ms) * time.Millisecond)
	}

	values := s.Values()
	if len(values) != 3 || values[0] != 20 || values[2] != 40 {
		t.Fatalf("expected the oldest value to be shifted out; got %v", values)
	}
	if s.Average() != 30 {
		t.Fatalf("expected average 30; got %f", s.Average())
	}
	if s.Max() != 40 {
		t.Fatalf("expected max 40; got %f", s.Max())
	}

	s.Clear()
	s.Append(5 * time.Millisecond)
	if s.Average() != 5 {
		t.Fatalf("expected average over recorded values only; got %f", s.Average())
	}
}
