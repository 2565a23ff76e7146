package renderer

import "fmt"

type Options struct {
	// Frame dims.
	FrameW uint32
	FrameH uint32

	// Max number of path segments traced per pixel.
	NumBounces uint32

	// Min bounces before applying russian roulette for path elimination.
	MinBouncesForRR uint32

	// Number of frames to accumulate; 0 renders until stopped.
	SamplesPerPixel uint32

	// Exposure for tonemapping.
	Exposure float32

	// Blend consecutive frames into a progressive average.
	Progressive bool

	// Randomize primary ray positions inside each pixel.
	Jitter bool

	// Device configuration.
	Workers      int
	MemoryBudget int64

	// Ray/shadow queue capacity override (0 = one slot per pixel).
	QueueCapacity int
}

// Validate checks the options and fills in derived values. Russian roulette
// is disabled when MinBouncesForRR is 0 or not smaller than NumBounces.
func (o *Options) Validate() error {
	if o.FrameW == 0 || o.FrameH == 0 {
		return fmt.Errorf("%w: frame size %dx%d", ErrInvalidOptions, o.FrameW, o.FrameH)
	}
	if o.NumBounces == 0 {
		return fmt.Errorf("%w: at least one bounce is required", ErrInvalidOptions)
	}
	if !(o.Exposure > 0) {
		return fmt.Errorf("%w: exposure must be positive; got %f", ErrInvalidOptions, o.Exposure)
	}
	if o.MemoryBudget < 0 || o.QueueCapacity < 0 || o.Workers < 0 {
		return fmt.Errorf("%w: device settings must not be negative", ErrInvalidOptions)
	}

	if o.MinBouncesForRR == 0 || o.MinBouncesForRR >= o.NumBounces {
		o.MinBouncesForRR = o.NumBounces + 1
	}
	return nil
}
