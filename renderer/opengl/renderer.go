package opengl

import (
	"context"
	"fmt"
	"runtime"

	"github.com/achilleasa/wavetrace/asset/scene"
	"github.com/achilleasa/wavetrace/renderer"
	"github.com/achilleasa/wavetrace/tracer"
	"github.com/achilleasa/wavetrace/types"
	"github.com/go-gl/gl/v2.1/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
)

const (
	// Coefficients for converting delta cursor movements to yaw/pitch camera angles.
	mouseSensitivityX float32 = 0.005
	mouseSensitivityY float32 = 0.005

	// Camera movement speed as a fraction of the scene size.
	cameraMoveSpeed float32 = 0.01

	// Sun offset change (radians) per key press.
	sunOffsetStep float32 = 0.02

	// Height in pixels for the frame time series widget.
	seriesHeight float32 = 40
)

const (
	leftMouseButton  = 0
	rightMouseButton = 1
)

func init() {
	// GLFW event handling must run on the main thread.
	runtime.LockOSThread()
}

// An interactive opengl-based renderer.
type Renderer struct {
	*renderer.Default

	// opengl handles
	window  *glfw.Window
	surface *glSurface

	// state
	lastCursorPos types.Vec2
	mousePressed  [2]bool
	moveSpeed     float32

	// Display options
	showUI     bool
	frameTimes *renderer.FrameTimeSeries
}

// Create a new interactive opengl renderer using the specified tracer.
func NewInteractive(sc *scene.Scene, tr tracer.Tracer, opts renderer.Options) (*Renderer, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	r := &Renderer{
		frameTimes: renderer.NewFrameTimeSeries(int(opts.FrameW)),
		moveSpeed:  cameraMoveSpeed,
	}

	err := r.initGL(opts)
	if err != nil {
		r.Close()
		return nil, err
	}

	r.Default, err = renderer.NewDefault(sc, tr, r.surface, opts)
	if err != nil {
		r.Close()
		return nil, err
	}

	bounds := sc.Bounds()
	if size := bounds[1].Sub(bounds[0]).Len(); size > 0 {
		r.moveSpeed = cameraMoveSpeed * size
	}

	r.initUI(opts)
	return r, nil
}

// Shutdown the renderer, the attached tracer and the window.
func (r *Renderer) Close() {
	if r.Default != nil {
		r.Default.Close()
	}
	if r.surface != nil {
		r.surface.release()
		r.surface = nil
	}
	if r.window != nil {
		r.window.Destroy()
		r.window = nil
		glfw.Terminate()
	}
}

func (r *Renderer) initGL(opts renderer.Options) error {
	var err error
	if err = glfw.Init(); err != nil {
		return fmt.Errorf("failed to initialize glfw: %w", err)
	}

	glfw.WindowHint(glfw.Resizable, glfw.False)
	glfw.WindowHint(glfw.ContextVersionMajor, 2)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	r.window, err = glfw.CreateWindow(int(opts.FrameW), int(opts.FrameH), "wavetrace", nil, nil)
	if err != nil {
		glfw.Terminate()
		return fmt.Errorf("could not create opengl window: %w", err)
	}
	r.window.MakeContextCurrent()
	glfw.SwapInterval(0)

	if err = gl.Init(); err != nil {
		return fmt.Errorf("could not init opengl: %w", err)
	}

	r.surface = newGLSurface(int(opts.FrameW), int(opts.FrameH))

	// Bind event callbacks
	r.window.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
	r.window.SetKeyCallback(r.onKeyEvent)
	r.window.SetMouseButtonCallback(r.onMouseEvent)
	r.window.SetCursorPosCallback(r.onCursorPosEvent)

	return nil
}

func (r *Renderer) initUI(opts renderer.Options) {
	// Use an ortho projection with the origin at the top-left corner
	fbW, fbH := r.window.GetFramebufferSize()
	gl.Viewport(0, 0, int32(fbW), int32(fbH))
	gl.Disable(gl.DEPTH_TEST)
	gl.MatrixMode(gl.PROJECTION)
	gl.LoadIdentity()
	gl.Ortho(0, float64(opts.FrameW), float64(opts.FrameH), 0, -1, 1)
	gl.MatrixMode(gl.MODELVIEW)
	gl.LoadIdentity()
}

// Render frames until the window is closed, the observer requests a stop or
// ctx is done. Once the sample limit is reached the renderer only processes
// window events.
func (r *Renderer) Render(ctx context.Context) error {
	for !r.window.ShouldClose() {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %v", renderer.ErrInterrupted, err)
		}

		glfw.PollEvents()

		if r.Stopped() {
			r.window.SetShouldClose(true)
			continue
		}

		// Don't do anything if we don't require additional samples
		if r.Done() {
			glfw.WaitEventsTimeout(0.1)
			continue
		}

		if err := r.RenderFrame(ctx); err != nil {
			return err
		}
		r.frameTimes.Append(r.Stats().FrameTime)

		// Display telemetry
		if r.showUI {
			r.renderUI()
		}
		r.window.SwapBuffers()
		r.updateTitle()
	}
	return nil
}

func (r *Renderer) updateTitle() {
	cam := r.Camera()
	avgMs := r.frameTimes.Average()
	var fps float32
	if avgMs > 0 {
		fps = 1000 / avgMs
	}
	r.window.SetTitle(fmt.Sprintf(
		"wavetrace | %.2f ms | %.1f fps | pos (%.2f, %.2f, %.2f) | h %.2f v %.2f | frames %d",
		avgMs, fps,
		cam.Position[0], cam.Position[1], cam.Position[2],
		cam.HorizontalAngle, cam.VerticalAngle,
		r.Stats().AccumulatedSamples,
	))
}

// Draw the frame time history at the bottom of the window.
func (r *Renderer) renderUI() {
	opts := r.Options()
	values := r.frameTimes.Values()
	maxMs := r.frameTimes.Max()
	scale := float32(1)
	if maxMs > 0 {
		scale = seriesHeight / maxMs
	}

	bottom := float32(opts.FrameH)
	gl.LineWidth(1.0)
	gl.Begin(gl.LINES)
	for x, v := range values {
		gl.Color3f(0.2, 1, 0.2)
		gl.Vertex2f(float32(x), bottom)
		gl.Vertex2f(float32(x), bottom-v*scale)
	}

	// Average frame time marker
	avgY := bottom - r.frameTimes.Average()*scale
	gl.Color3f(1, 0.3, 0.3)
	gl.Vertex2f(0, avgY)
	gl.Vertex2f(float32(opts.FrameW), avgY)
	gl.End()
}

func (r *Renderer) onKeyEvent(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if action != glfw.Press && action != glfw.Repeat {
		return
	}

	var moveDir scene.CameraDirection
	switch key {
	case glfw.KeyEscape:
		r.window.SetShouldClose(true)
		return
	case glfw.KeyUp, glfw.KeyW:
		moveDir = scene.Forward
	case glfw.KeyDown, glfw.KeyS:
		moveDir = scene.Backward
	case glfw.KeyLeft, glfw.KeyA:
		moveDir = scene.Left
	case glfw.KeyRight, glfw.KeyD:
		moveDir = scene.Right
	case glfw.KeyPageUp, glfw.KeyE:
		moveDir = scene.Up
	case glfw.KeyPageDown, glfw.KeyQ:
		moveDir = scene.Down
	case glfw.KeyMinus:
		r.SetSunOffset(r.SunOffset().Add(types.XY(sunOffsetStep, sunOffsetStep)))
		return
	case glfw.KeyEqual:
		r.SetSunOffset(r.SunOffset().Sub(types.XY(sunOffsetStep, sunOffsetStep)))
		return
	case glfw.KeyR:
		r.ResetAccumulation()
		return
	case glfw.KeyTab:
		r.showUI = !r.showUI
		if r.showUI {
			r.frameTimes.Clear()
		}
		return
	default:
		return
	}

	// Double speed if shift is pressed
	var speedScaler float32 = 1.0
	if (mods & glfw.ModShift) == glfw.ModShift {
		speedScaler = 2.0
	}
	r.Camera().Move(moveDir, speedScaler*r.moveSpeed)
	r.ResetAccumulation()
}

func (r *Renderer) onMouseEvent(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mod glfw.ModifierKey) {
	if button != glfw.MouseButtonLeft && button != glfw.MouseButtonRight {
		return
	}

	r.mousePressed[leftMouseButton] = false
	r.mousePressed[rightMouseButton] = false

	if action == glfw.Press {
		xPos, yPos := w.GetCursorPos()
		r.lastCursorPos[0], r.lastCursorPos[1] = float32(xPos), float32(yPos)

		buttonIndex := leftMouseButton
		if button == glfw.MouseButtonRight {
			buttonIndex = rightMouseButton
		}

		r.mousePressed[buttonIndex] = true
	}
}

func (r *Renderer) onCursorPosEvent(w *glfw.Window, xPos, yPos float64) {
	if !r.mousePressed[leftMouseButton] && !r.mousePressed[rightMouseButton] {
		return
	}

	// Calculate delta movement and apply mouse sensitivity
	newPos := types.XY(float32(xPos), float32(yPos))
	delta := r.lastCursorPos.Sub(newPos)
	delta[0] *= mouseSensitivityX
	delta[1] *= mouseSensitivityY
	r.lastCursorPos = newPos

	if r.mousePressed[leftMouseButton] {
		// The left mouse button rotates the view direction
		r.Camera().Turn(delta[0], delta[1])
		r.ResetAccumulation()
	}
}
