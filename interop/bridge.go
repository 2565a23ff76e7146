package interop

import (
	"fmt"

	"github.com/achilleasa/wavetrace/log"
	"github.com/achilleasa/wavetrace/tracer/device"
	"github.com/achilleasa/wavetrace/types"
	"github.com/chewxy/math32"
	"golang.org/x/sync/errgroup"
)

// The default gamma used when converting tonemapped values to 8-bit colors.
const DefaultGamma float32 = 2.2

// Rows handed to each tonemapping worker.
const rowsPerBand = 16

// A Surface receives tonemapped RGBA8 frames for presentation.
type Surface interface {
	// Upload a w x h frame of tightly packed RGBA8 pixels (top row first).
	Upload(w, h int, pix []uint8) error

	// Present the last uploaded frame.
	Present() error
}

// A Bridge hands a device accumulation buffer to a display surface. The
// buffer is mapped for the duration of the tonemapping pass only; the
// surface is updated after the mapping has been released.
type Bridge struct {
	logger  log.Logger
	surface Surface

	// Exposure applied before tonemapping.
	Exposure float32

	// Display gamma.
	Gamma float32

	pixels []uint8
}

// Create a new bridge presenting frames on surface.
func NewBridge(surface Surface, exposure float32) *Bridge {
	return &Bridge{
		logger:   log.New("interop"),
		surface:  surface,
		Exposure: exposure,
		Gamma:    DefaultGamma,
	}
}

// The surface frames are presented on.
func (b *Bridge) Surface() Surface {
	return b.surface
}

// Blit tonemaps the w x h frame stored in src and presents it on the
// surface.
func (b *Bridge) Blit(src *device.Buffer[types.Vec4], w, h int) error {
	if w <= 0 || h <= 0 || src.Len() < w*h {
		return fmt.Errorf("interop: buffer %s with %d elements cannot hold a %dx%d frame", src.Name(), src.Len(), w, h)
	}

	if err := b.tonemap(src, w, h); err != nil {
		return err
	}

	if err := b.surface.Upload(w, h, b.pixels); err != nil {
		return fmt.Errorf("interop: surface upload failed: %w", err)
	}
	return b.surface.Present()
}

// Map src and tonemap its contents into the bridge pixel buffer. The buffer
// is always unmapped before returning.
func (b *Bridge) tonemap(src *device.Buffer[types.Vec4], w, h int) error {
	data, err := src.Map()
	if err != nil {
		return err
	}
	defer src.Unmap()

	if len(b.pixels) != w*h*4 {
		b.pixels = make([]uint8, w*h*4)
	}

	invGamma := float32(1)
	if b.Gamma > 0 {
		invGamma = 1 / b.Gamma
	}

	var group errgroup.Group
	for band := 0; band < h; band += rowsPerBand {
		startRow, endRow := band, band+rowsPerBand
		if endRow > h {
			endRow = h
		}
		group.Go(func() error {
			for pixel := startRow * w; pixel < endRow*w; pixel++ {
				sample := data[pixel]
				offset := pixel * 4
				for c := 0; c < 3; c++ {
					b.pixels[offset+c] = Tonemap(sample[c], b.Exposure, invGamma)
				}
				b.pixels[offset+3] = 255
			}
			return nil
		})
	}
	return group.Wait()
}

// Tonemap maps an HDR channel value into an 8-bit value using exposure, the
// simple Reinhard operator and gamma correction (invGamma = 1/gamma).
func Tonemap(v, exposure, invGamma float32) uint8 {
	v *= exposure
	if !(v > 0) {
		return 0
	}
	v = v / (1 + v)
	v = math32.Pow(v, invGamma)
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}
