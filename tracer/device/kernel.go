package device

import (
	"fmt"
	"reflect"
	"sync/atomic"
	"time"

	"github.com/achilleasa/wavetrace/types"
	"golang.org/x/sync/errgroup"
)

// A KernelFunc processes a single work item. For 1D launches y is always 0.
type KernelFunc func(x, y int)

// A buffer argument that can be validated before a launch.
type bufferArg interface {
	Name() string
	IsMapped() bool
	IsReleased() bool
}

// A Kernel wraps a work item function. Arguments are declared with SetArgs so
// that launches can be rejected when a buffer argument is mapped or released.
type Kernel struct {
	device *Device
	name   string
	body   KernelFunc
	args   []interface{}
}

// Create a kernel running body for each work item.
func (d *Device) Kernel(name string, body KernelFunc) *Kernel {
	return &Kernel{
		device: d,
		name:   name,
		body:   body,
	}
}

// Get kernel name.
func (k *Kernel) Name() string {
	return k.name
}

// Bind arguments to the kernel. Supported argument types are device buffers
// and scalar/vector values.
func (k *Kernel) SetArgs(args ...interface{}) error {
	for argIndex, arg := range args {
		switch arg.(type) {
		case bufferArg, int, int32, uint32, float32, bool, types.Vec2, types.Vec3, types.Vec4:
		default:
			return fmt.Errorf(
				"device (%s): could not set arg %d for kernel %s; unsupported arg type: %s",
				k.device.Name,
				argIndex,
				k.name,
				reflect.TypeOf(arg),
			)
		}
	}
	k.args = args
	return nil
}

// Execute a 1D kernel over [offset, offset+globalWorkSize). If localWorkSize
// is 0 the device picks the number of work items claimed by each worker at a
// time.
func (k *Kernel) Exec1D(offset, globalWorkSize, localWorkSize int) (time.Duration, error) {
	return k.exec(offset, 0, globalWorkSize, 1, localWorkSize)
}

// Execute a 2D kernel over a globalWorkSizeX x globalWorkSizeY grid. Work
// items are claimed in row-major chunks of localWorkSizeX*localWorkSizeY
// items (or a device-selected size when both are 0).
func (k *Kernel) Exec2D(offsetX, offsetY, globalWorkSizeX, globalWorkSizeY, localWorkSizeX, localWorkSizeY int) (time.Duration, error) {
	return k.exec(offsetX, offsetY, globalWorkSizeX, globalWorkSizeY, localWorkSizeX*localWorkSizeY)
}

func (k *Kernel) exec(offsetX, offsetY, sizeX, sizeY, chunk int) (time.Duration, error) {
	if err := k.validateLaunch(); err != nil {
		return 0, err
	}

	total := sizeX * sizeY
	if total <= 0 {
		k.device.recordLaunch(k.name, 0, 0)
		return 0, nil
	}

	workers := k.device.Workers
	if workers > total {
		workers = total
	}
	if chunk <= 0 {
		chunk = total / (workers * 8)
		if chunk < 64 {
			chunk = 64
		}
	}

	var (
		cursor atomic.Int64
		failed atomic.Bool
		group  errgroup.Group
	)

	tick := time.Now()
	for w := 0; w < workers; w++ {
		group.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					failed.Store(true)
					err = &KernelError{Device: k.device.Name, Kernel: k.name, Err: fmt.Errorf("work item panic: %v", r)}
				}
			}()

			for !failed.Load() {
				start := int(cursor.Add(int64(chunk))) - chunk
				if start >= total {
					return nil
				}
				end := start + chunk
				if end > total {
					end = total
				}
				for i := start; i < end; i++ {
					k.body(offsetX+i%sizeX, offsetY+i/sizeX)
				}
			}
			return nil
		})
	}

	err := group.Wait()
	elapsed := time.Since(tick)
	k.device.recordLaunch(k.name, int64(total), elapsed)
	return elapsed, err
}

func (k *Kernel) validateLaunch() error {
	if k.device.isClosed() {
		return &KernelError{Device: k.device.Name, Kernel: k.name, Err: ErrReleased}
	}
	for _, arg := range k.args {
		buf, ok := arg.(bufferArg)
		if !ok {
			continue
		}
		if buf.IsReleased() {
			return &KernelError{Device: k.device.Name, Kernel: k.name, Err: fmt.Errorf("argument %s: %w", buf.Name(), ErrReleased)}
		}
		if buf.IsMapped() {
			return &KernelError{Device: k.device.Name, Kernel: k.name, Err: fmt.Errorf("argument %s: %w", buf.Name(), ErrBufferMapped)}
		}
	}
	return nil
}
