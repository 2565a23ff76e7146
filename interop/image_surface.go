package interop

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
)

// An ImageSurface keeps presented frames in memory.
type ImageSurface struct {
	staging *image.RGBA
	front   *image.RGBA

	presented int
}

// Create an empty in-memory surface.
func NewImageSurface() *ImageSurface {
	return &ImageSurface{}
}

// Upload a frame to the staging image.
func (s *ImageSurface) Upload(w, h int, pix []uint8) error {
	if len(pix) != w*h*4 {
		return fmt.Errorf("image surface: expected %d bytes for a %dx%d frame; got %d", w*h*4, w, h, len(pix))
	}
	if s.staging == nil || s.staging.Rect.Dx() != w || s.staging.Rect.Dy() != h {
		s.staging = image.NewRGBA(image.Rect(0, 0, w, h))
	}
	copy(s.staging.Pix, pix)
	return nil
}

// Present swaps the staging image to the front.
func (s *ImageSurface) Present() error {
	if s.staging == nil {
		return fmt.Errorf("image surface: no frame uploaded")
	}
	s.front, s.staging = s.staging, s.front
	s.presented++
	return nil
}

// The last presented frame or nil.
func (s *ImageSurface) Image() *image.RGBA {
	return s.front
}

// Number of presented frames.
func (s *ImageSurface) Frames() int {
	return s.presented
}

// Encode the last presented frame as a PNG.
func (s *ImageSurface) WritePNG(w io.Writer) error {
	if s.front == nil {
		return fmt.Errorf("image surface: no frame presented")
	}
	return png.Encode(w, s.front)
}

// Save the last presented frame as a PNG file.
func (s *ImageSurface) SavePNG(imgFile string) error {
	f, err := os.Create(imgFile)
	if err != nil {
		return err
	}
	defer f.Close()

	return s.WritePNG(f)
}
