package wavefront

import "errors"

var (
	ErrNoSceneData    = errors.New("wavefront tracer: no scene data uploaded")
	ErrNotInitialized = errors.New("wavefront tracer: tracer not initialized")
	ErrTracerClosed   = errors.New("wavefront tracer: tracer closed")
)
