package opengl

import (
	"fmt"

	"github.com/go-gl/gl/v2.1/gl"
)

// A glSurface uploads frames into a texture and draws it as a full window
// quad.
type glSurface struct {
	texture uint32

	// Texture dims.
	w, h int

	// Viewport dims.
	viewW, viewH float32
}

func newGLSurface(viewW, viewH int) *glSurface {
	s := &glSurface{
		viewW: float32(viewW),
		viewH: float32(viewH),
	}

	gl.GenTextures(1, &s.texture)
	gl.BindTexture(gl.TEXTURE_2D, s.texture)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return s
}

// Upload frame data to the texture.
func (s *glSurface) Upload(w, h int, pix []uint8) error {
	if len(pix) < w*h*4 {
		return fmt.Errorf("gl surface: expected %d bytes for a %dx%d frame; got %d", w*h*4, w, h, len(pix))
	}

	gl.BindTexture(gl.TEXTURE_2D, s.texture)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	if w != s.w || h != s.h {
		gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(w), int32(h), 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pix))
		s.w, s.h = w, h
	} else {
		gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, int32(w), int32(h), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pix))
	}
	gl.BindTexture(gl.TEXTURE_2D, 0)

	if errCode := gl.GetError(); errCode != gl.NO_ERROR {
		return fmt.Errorf("gl surface: texture upload failed with error 0x%x", errCode)
	}
	return nil
}

// Draw the texture over the whole viewport. The first texture row is drawn
// at the top of the window.
func (s *glSurface) Present() error {
	gl.Clear(gl.COLOR_BUFFER_BIT)
	gl.Enable(gl.TEXTURE_2D)
	gl.BindTexture(gl.TEXTURE_2D, s.texture)
	gl.Color3f(1, 1, 1)

	gl.Begin(gl.QUADS)
	gl.TexCoord2f(0, 0)
	gl.Vertex2f(0, 0)
	gl.TexCoord2f(1, 0)
	gl.Vertex2f(s.viewW, 0)
	gl.TexCoord2f(1, 1)
	gl.Vertex2f(s.viewW, s.viewH)
	gl.TexCoord2f(0, 1)
	gl.Vertex2f(0, s.viewH)
	gl.End()

	gl.BindTexture(gl.TEXTURE_2D, 0)
	gl.Disable(gl.TEXTURE_2D)
	return nil
}

func (s *glSurface) release() {
	if s.texture != 0 {
		gl.DeleteTextures(1, &s.texture)
		s.texture = 0
	}
}
