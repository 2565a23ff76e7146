package wavefront

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/achilleasa/wavetrace/asset/compiler"
	"github.com/achilleasa/wavetrace/asset/scene"
	"github.com/achilleasa/wavetrace/log"
	"github.com/achilleasa/wavetrace/tracer"
	"github.com/achilleasa/wavetrace/tracer/device"
	"github.com/achilleasa/wavetrace/types"
)

// Tracer configuration.
type Config struct {
	// The stages used to render each frame. If nil, DefaultPipeline(4, 3, false)
	// is used.
	Pipeline *Pipeline

	// Ray and shadow queue capacity override. If <= 0, queues are sized to
	// the number of frame pixels.
	QueueCapacity int
}

type frameRequest struct {
	ctx     context.Context
	state   *tracer.FrameState
	errChan chan error
}

// A Tracer renders frames by running a pipeline of data-parallel kernels on
// a compute device. Frames are rendered by a worker goroutine; Render blocks
// until the worker has finished the frame.
type Tracer struct {
	logger log.Logger

	sync.Mutex
	wg sync.WaitGroup

	// The device associated with this tracer instance.
	device *device.Device

	// The allocated device resources.
	resources *deviceResources

	// The tracer id.
	id string

	// A buffer for queuing updates. Updates are grouped by type and
	// latest updates always overwrite the previous ones.
	updateMu     sync.Mutex
	updateBuffer map[tracer.UpdateType]interface{}

	// A channel for receiving frame requests.
	frameReqChan chan *frameRequest

	// A channel closed to signal the worker to exit.
	closeChan chan struct{}

	// Statistics for last rendered frame.
	stats *tracer.Stats

	// The tracer rendering pipeline.
	pipeline *Pipeline

	queueCapacity int

	// The uploaded scene.
	sceneData *scene.Scene
}

// Create a new wavefront tracer on dev. The tracer takes ownership of the
// device and closes it when the tracer is closed.
func NewTracer(id string, dev *device.Device, cfg Config) *Tracer {
	if cfg.Pipeline == nil {
		cfg.Pipeline = DefaultPipeline(4, 3, false)
	}

	return &Tracer{
		logger:        log.New(fmt.Sprintf("wavefront tracer (%s)", dev.Name)),
		device:        dev,
		id:            id,
		updateBuffer:  make(map[tracer.UpdateType]interface{}),
		frameReqChan:  make(chan *frameRequest),
		stats:         &tracer.Stats{},
		pipeline:      cfg.Pipeline,
		queueCapacity: cfg.QueueCapacity,
	}
}

// Get tracer id.
func (tr *Tracer) Id() string {
	return tr.id
}

// Get the device used by this tracer.
func (tr *Tracer) Device() *device.Device {
	return tr.device
}

// Allocate the frame buffers and start the worker.
func (tr *Tracer) Init(frameW, frameH uint32) error {
	var err error
	tr.Lock()
	defer tr.Unlock()

	if frameW == 0 || frameH == 0 {
		return fmt.Errorf("wavefront tracer: invalid frame size %dx%d", frameW, frameH)
	}

	if tr.resources != nil {
		tr.resources.Close()
		tr.resources = nil
	}
	tr.resources, err = newDeviceResources(frameW, frameH, tr.queueCapacity, tr.device)
	if err != nil {
		return err
	}

	if tr.sceneData != nil {
		if err = tr.uploadScene(tr.sceneData); err != nil {
			return err
		}
	}

	if tr.closeChan == nil {
		tr.startWorker()
	}

	return nil
}

// Shutdown the worker, release all device resources and close the device.
func (tr *Tracer) Close() {
	tr.Lock()
	closeChan := tr.closeChan
	tr.closeChan = nil
	tr.Unlock()

	if closeChan != nil {
		close(closeChan)
		tr.wg.Wait()
	}

	tr.Lock()
	defer tr.Unlock()
	if tr.resources != nil {
		tr.resources.Close()
		tr.resources = nil
	}
	if tr.device != nil {
		tr.device.Close()
	}
	tr.sceneData = nil
}

// Append a change to the tracer's update buffer.
func (tr *Tracer) Update(updateType tracer.UpdateType, data interface{}) {
	tr.updateMu.Lock()
	tr.updateBuffer[updateType] = data
	tr.updateMu.Unlock()
}

// Retrieve last frame statistics.
func (tr *Tracer) Stats() *tracer.Stats {
	return tr.stats
}

// The blended frame output.
func (tr *Tracer) Output() *device.Buffer[types.Vec4] {
	if tr.resources == nil {
		return nil
	}
	return tr.resources.buffers.Average
}

// The uploaded scene handle or nil if no scene has been uploaded.
func (tr *Tracer) Scene() *SceneHandle {
	if tr.resources == nil {
		return nil
	}
	return tr.resources.scene
}

// Compile the scene if it has no cached acceleration structure and upload it
// to the device.
func (tr *Tracer) UploadScene(sc *scene.Scene) error {
	tr.Lock()
	defer tr.Unlock()

	return tr.uploadScene(sc)
}

// Upload scene. This method is meant to be called while holding tr.Lock().
func (tr *Tracer) uploadScene(sc *scene.Scene) error {
	if tr.resources == nil {
		return ErrNotInitialized
	}

	if sc.Accel == nil {
		if err := compiler.Compile(sc); err != nil {
			return err
		}
	}

	handle, err := Upload(tr.device, sc, sc.Accel)
	if err != nil {
		return err
	}
	tr.resources.setScene(handle)
	tr.sceneData = sc

	tr.logger.Infof("uploaded scene with %d primitives and %d BVH nodes (depth %d)", len(sc.Accel.Primitives), len(sc.Accel.Nodes), sc.Accel.MaxDepth)
	return nil
}

// Render a frame and wait for it to complete.
func (tr *Tracer) Render(ctx context.Context, state *tracer.FrameState) error {
	tr.Lock()
	closeChan := tr.closeChan
	tr.Unlock()
	if closeChan == nil {
		return ErrNotInitialized
	}

	req := &frameRequest{
		ctx:     ctx,
		state:   state,
		errChan: make(chan error, 1),
	}

	select {
	case tr.frameReqChan <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-closeChan:
		return ErrTracerClosed
	}

	return <-req.errChan
}

// Commit queued changes. This method is meant to be called while holding tr.Lock().
func (tr *Tracer) commitUpdates() error {
	tr.updateMu.Lock()
	updates := tr.updateBuffer
	tr.updateBuffer = make(map[tracer.UpdateType]interface{})
	tr.updateMu.Unlock()

	// Scene updates are applied before any environment change
	if data, ok := updates[tracer.UpdateScene]; ok {
		if err := tr.uploadScene(data.(*scene.Scene)); err != nil {
			return err
		}
	}
	if data, ok := updates[tracer.UpdateEnvironment]; ok {
		if tr.resources.scene == nil {
			return ErrNoSceneData
		}
		env := data.(scene.Environment)
		tr.resources.scene.Environment = env
		tr.sceneData.Environment = env
	}
	for updateType := range updates {
		if updateType != tracer.UpdateScene && updateType != tracer.UpdateEnvironment {
			return fmt.Errorf("wavefront tracer: unsupported update type %d", updateType)
		}
	}

	return nil
}

// Spawn a go-routine to process frame render requests.
func (tr *Tracer) startWorker() {
	closeChan := make(chan struct{})
	tr.closeChan = closeChan

	readyChan := make(chan struct{})
	tr.wg.Add(1)
	go func() {
		defer tr.wg.Done()
		close(readyChan)
		for {
			select {
			case req := <-tr.frameReqChan:
				req.errChan <- tr.renderFrame(req.ctx, req.state)
			case <-closeChan:
				return
			}
		}
	}()

	// Wait for go-routine to start
	<-readyChan
}

// Run the pipeline stages for a single frame.
func (tr *Tracer) renderFrame(ctx context.Context, state *tracer.FrameState) error {
	tr.Lock()
	defer tr.Unlock()

	if tr.resources == nil {
		return ErrNotInitialized
	}

	tr.updateMu.Lock()
	pending := len(tr.updateBuffer)
	tr.updateMu.Unlock()
	if pending != 0 {
		if err := tr.commitUpdates(); err != nil {
			return err
		}
	}

	if tr.resources.scene == nil {
		return ErrNoSceneData
	}

	start := time.Now()
	tr.stats = &tracer.Stats{StageTimes: make(map[string]time.Duration)}

	type namedStage struct {
		name  string
		stage PipelineStage
	}
	stages := []namedStage{
		{"reset", tr.pipeline.Reset},
		{"primary rays", tr.pipeline.PrimaryRayGenerator},
		{"integrator", tr.pipeline.Integrator},
	}
	for _, stage := range tr.pipeline.PostProcess {
		stages = append(stages, namedStage{"post-process", stage})
	}

	for _, s := range stages {
		if s.stage == nil {
			continue
		}
		elapsed, err := s.stage(ctx, tr, state)
		if err != nil {
			return err
		}
		tr.stats.StageTimes[s.name] += elapsed
	}

	tr.stats.FrameTime = time.Since(start)
	return nil
}
