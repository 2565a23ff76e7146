package device

import (
	"errors"
	"fmt"
)

var (
	// ErrBufferMapped is returned when a kernel is launched with a buffer
	// argument that is currently mapped by the host or when a mapped buffer
	// is mapped again.
	ErrBufferMapped = errors.New("device: buffer is mapped")

	// ErrReleased is returned when a released buffer or a closed device is used.
	ErrReleased = errors.New("device: resource released")
)

// A MemoryError is returned when an allocation would exceed the device
// memory budget.
type MemoryError struct {
	Device    string
	Buffer    string
	Requested int64
	Available int64
}

func (e *MemoryError) Error() string {
	return fmt.Sprintf(
		"device (%s): could not allocate buffer %s of size %d bytes (%d bytes available)",
		e.Device, e.Buffer, e.Requested, e.Available,
	)
}

// A KernelError is returned when a kernel launch is rejected or a work item
// fails.
type KernelError struct {
	Device string
	Kernel string
	Err    error
}

func (e *KernelError) Error() string {
	return fmt.Sprintf("device (%s): kernel %s failed: %v", e.Device, e.Kernel, e.Err)
}

func (e *KernelError) Unwrap() error {
	return e.Err
}
