package renderer

import (
	"errors"
	"testing"
)

func TestOptionsValidate(t *testing.T) {
	specs := []struct {
		opts   Options
		expErr bool
		expRR  uint32
	}{
		{Options{FrameW: 4, FrameH: 4, NumBounces: 5, MinBouncesForRR: 3, Exposure: 1}, false, 3},
		// RR is disabled when it would never or always apply
		{Options{FrameW: 4, FrameH: 4, NumBounces: 5, MinBouncesForRR: 0, Exposure: 1}, false, 6},
		{Options{FrameW: 4, FrameH: 4, NumBounces: 5, MinBouncesForRR: 5, Exposure: 1}, false, 6},
		{Options{FrameW: 0, FrameH: 4, NumBounces: 5, Exposure: 1}, true, 0},
		{Options{FrameW: 4, FrameH: 4, NumBounces: 0, Exposure: 1}, true, 0},
		{Options{FrameW: 4, FrameH: 4, NumBounces: 2, Exposure: 0}, true, 0},
		{Options{FrameW: 4, FrameH: 4, NumBounces: 2, Exposure: 1, QueueCapacity: -1}, true, 0},
	}

	for index, spec := range specs {
		opts := spec.opts
		err := opts.Validate()
		if spec.expErr {
			if !errors.Is(err, ErrInvalidOptions) {
				t.Fatalf("[spec %d] expected ErrInvalidOptions; got %v", index, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("[spec %d] unexpected error: %v", index, err)
		}
		if opts.MinBouncesForRR != spec.expRR {
			t.Fatalf("[spec %d] expected MinBouncesForRR %d; got %d", index, spec.expRR, opts.MinBouncesForRR)
		}
	}
}
