package renderer

import "errors"

var (
	ErrNoTracer         = errors.New("renderer: no tracer attached")
	ErrSceneNotDefined  = errors.New("renderer: no scene defined")
	ErrCameraNotDefined = errors.New("renderer: no camera defined")
	ErrInterrupted      = errors.New("renderer: interrupted while rendering")
	ErrInvalidOptions   = errors.New("renderer: invalid options")
)
