package interop

import (
	"bytes"
	"errors"
	"image/png"
	"testing"

	"github.com/achilleasa/wavetrace/tracer/device"
	"github.com/achilleasa/wavetrace/types"
	"github.com/chewxy/math32"
)

type recordingSurface struct {
	t      *testing.T
	src    *device.Buffer[types.Vec4]
	kernel *device.Kernel
	calls  []string
	pix    []uint8
}

func (s *recordingSurface) Upload(w, h int, pix []uint8) error {
	if s.src.IsMapped() {
		s.t.Fatal("expected source buffer to be unmapped before the surface upload")
	}
	// The device must accept launches using the buffer again
	if err := s.kernel.SetArgs(s.src); err != nil {
		return err
	}
	if _, err := s.kernel.Exec1D(0, s.src.Len(), 0); err != nil {
		return err
	}
	s.pix = append([]uint8(nil), pix...)
	s.calls = append(s.calls, "upload")
	return nil
}

func (s *recordingSurface) Present() error {
	s.calls = append(s.calls, "present")
	return nil
}

func newFrame(t *testing.T, dev *device.Device, w, h int, v float32) *device.Buffer[types.Vec4] {
	t.Helper()
	buf, err := device.NewBuffer[types.Vec4](dev, "frame", w*h)
	if err != nil {
		t.Fatal(err)
	}
	if err = buf.Fill(types.XYZW(v, v, v, 1)); err != nil {
		t.Fatal(err)
	}
	return buf
}

func TestBlitPresentsAfterUnmap(t *testing.T) {
	dev := device.New(device.Config{Workers: 2})
	defer dev.Close()

	src := newFrame(t, dev, 4, 3, 1)
	surface := &recordingSurface{
		t:      t,
		src:    src,
		kernel: dev.Kernel("noop", func(int, int) {}),
	}

	bridge := NewBridge(surface, 1)
	if err := bridge.Blit(src, 4, 3); err != nil {
		t.Fatal(err)
	}

	if len(surface.calls) != 2 || surface.calls[0] != "upload" || surface.calls[1] != "present" {
		t.Fatalf("expected upload followed by present; got %v", surface.calls)
	}
	if len(surface.pix) != 4*3*4 {
		t.Fatalf("expected %d bytes; got %d", 4*3*4, len(surface.pix))
	}
	if surface.pix[0] != 186 || surface.pix[3] != 255 {
		t.Fatalf("unexpected tonemapped pixel %v", surface.pix[:4])
	}
}

func TestBlitRefusesMappedBuffer(t *testing.T) {
	dev := device.New(device.Config{Workers: 1})
	defer dev.Close()

	src := newFrame(t, dev, 2, 2, 1)
	if _, err := src.Map(); err != nil {
		t.Fatal(err)
	}

	surface := NewImageSurface()
	err := NewBridge(surface, 1).Blit(src, 2, 2)
	if !errors.Is(err, device.ErrBufferMapped) {
		t.Fatalf("expected ErrBufferMapped; got %v", err)
	}
	if surface.Frames() != 0 {
		t.Fatal("expected no frame to be presented")
	}

	src.Unmap()
	if err = NewBridge(surface, 1).Blit(src, 2, 3); err == nil {
		t.Fatal("expected an error when the buffer is too small for the frame")
	}
}

func TestTonemap(t *testing.T) {
	invGamma := 1 / DefaultGamma
	specs := []struct {
		v, exposure float32
		exp         uint8
	}{
		{0, 1, 0},
		{-5, 1, 0},
		{math32.NaN(), 1, 0},
		{1, 1, 186},
		{0.5, 2, 186},
		{1e30, 1, 255},
	}

	for index, spec := range specs {
		if got := Tonemap(spec.v, spec.exposure, invGamma); got != spec.exp {
			t.Fatalf("[spec %d] expected %d; got %d", index, spec.exp, got)
		}
	}
}

func TestImageSurfacePNG(t *testing.T) {
	dev := device.New(device.Config{Workers: 2})
	defer dev.Close()

	w, h := 40, 20
	src := newFrame(t, dev, w, h, 1)
	src.Data()[w*h-1] = types.XYZW(0, 0, 0, 1)

	surface := NewImageSurface()
	if err := surface.WritePNG(&bytes.Buffer{}); err == nil {
		t.Fatal("expected an error when no frame has been presented")
	}

	if err := NewBridge(surface, 1).Blit(src, w, h); err != nil {
		t.Fatal(err)
	}
	if surface.Frames() != 1 {
		t.Fatalf("expected 1 presented frame; got %d", surface.Frames())
	}

	var buf bytes.Buffer
	if err := surface.WritePNG(&buf); err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != w || img.Bounds().Dy() != h {
		t.Fatalf("expected a %dx%d image; got %v", w, h, img.Bounds())
	}
	if r, _, _, _ := img.At(0, 0).RGBA(); r>>8 != 186 {
		t.Fatalf("expected top-left red channel 186; got %d", r>>8)
	}
	if r, _, _, _ := img.At(w-1, h-1).RGBA(); r != 0 {
		t.Fatalf("expected bottom-right pixel to be black; got %d", r)
	}
}
