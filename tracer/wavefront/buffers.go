package wavefront

import (
	"github.com/achilleasa/wavetrace/tracer/device"
	"github.com/achilleasa/wavetrace/tracer/queue"
	"github.com/achilleasa/wavetrace/types"
)

type bufferSet struct {
	// Current/next ray queues.
	Rays *queue.Pair[queue.Ray]

	// Shadow rays emitted by the shading stage.
	Shadow *queue.Queue[queue.ShadowRay]

	// Per-frame radiance accumulator (rgb + sample weight).
	Accumulator *device.Buffer[types.Vec4]

	// Blended output across progressive frames.
	Average *device.Buffer[types.Vec4]
}

// Allocate a new buffer set for a frameW x frameH frame. If queueCapacity is
// <= 0 each queue gets room for one record per pixel.
func newBufferSet(frameW, frameH uint32, queueCapacity int, dev *device.Device) (*bufferSet, error) {
	var err error

	numPixels := int(frameW * frameH)
	if queueCapacity <= 0 {
		queueCapacity = numPixels
	}

	bs := &bufferSet{}
	if bs.Rays, err = queue.NewPair[queue.Ray](dev, "rays", queueCapacity); err != nil {
		bs.Release()
		return nil, err
	}
	if bs.Shadow, err = queue.New[queue.ShadowRay](dev, "shadowRays", queueCapacity); err != nil {
		bs.Release()
		return nil, err
	}
	if bs.Accumulator, err = device.NewBuffer[types.Vec4](dev, "accumulator", numPixels); err != nil {
		bs.Release()
		return nil, err
	}
	if bs.Average, err = device.NewBuffer[types.Vec4](dev, "average", numPixels); err != nil {
		bs.Release()
		return nil, err
	}
	return bs, nil
}

// Release all allocated buffers.
func (bs *bufferSet) Release() {
	if bs.Rays != nil {
		bs.Rays.Release()
	}
	if bs.Shadow != nil {
		bs.Shadow.Release()
	}
	if bs.Accumulator != nil {
		bs.Accumulator.Release()
	}
	if bs.Average != nil {
		bs.Average.Release()
	}
}
