package device

import (
	"fmt"
	"sync"
	"unsafe"
)

// A Buffer is a typed, fixed-size device allocation. Kernel bodies access the
// contents through Data. The host may only access the contents through
// Map/Unmap or Read/Write; kernels refuse to launch while a buffer argument
// is mapped.
type Buffer[T any] struct {
	device *Device
	name   string
	data   []T
	size   int64

	mu       sync.Mutex
	mapped   bool
	released bool
}

// NewBuffer allocates a zeroed buffer with room for count elements. It fails
// with a *MemoryError if the allocation exceeds the device memory budget.
func NewBuffer[T any](d *Device, name string, count int) (*Buffer[T], error) {
	if count < 0 {
		return nil, fmt.Errorf("device (%s): invalid element count %d for buffer %s", d.Name, count, name)
	}

	var zero T
	size := int64(count) * int64(unsafe.Sizeof(zero))
	if err := d.reserve(name, size); err != nil {
		return nil, err
	}

	b := &Buffer[T]{
		device: d,
		name:   name,
		data:   make([]T, count),
		size:   size,
	}
	d.track(b)
	return b, nil
}

// UploadBuffer allocates a buffer large enough for data and copies data into it.
func UploadBuffer[T any](d *Device, name string, data []T) (*Buffer[T], error) {
	b, err := NewBuffer[T](d, name, len(data))
	if err != nil {
		return nil, err
	}
	copy(b.data, data)
	return b, nil
}

// Get buffer name.
func (b *Buffer[T]) Name() string {
	return b.name
}

// Get number of buffer elements.
func (b *Buffer[T]) Len() int {
	return len(b.data)
}

// Get buffer size in bytes.
func (b *Buffer[T]) Size() int64 {
	return b.size
}

// Data returns the device view of the buffer contents. It must only be
// accessed by kernel bodies.
func (b *Buffer[T]) Data() []T {
	return b.data
}

// Write data to the buffer starting at element offset.
func (b *Buffer[T]) Write(data []T, offset int) error {
	if err := b.checkHostAccess(); err != nil {
		return err
	}
	if offset < 0 || offset+len(data) > len(b.data) {
		return fmt.Errorf("device (%s): insufficient buffer space (%d) in %s for copying %d elements at offset %d", b.device.Name, len(b.data), b.name, len(data), offset)
	}
	copy(b.data[offset:], data)
	return nil
}

// Read buffer contents starting at element offset into dst.
func (b *Buffer[T]) Read(dst []T, offset int) error {
	if err := b.checkHostAccess(); err != nil {
		return err
	}
	if offset < 0 || offset > len(b.data) {
		return fmt.Errorf("device (%s): invalid read offset %d for buffer %s", b.device.Name, offset, b.name)
	}
	copy(dst, b.data[offset:])
	return nil
}

// Fill sets every element of the buffer to v.
func (b *Buffer[T]) Fill(v T) error {
	if err := b.checkHostAccess(); err != nil {
		return err
	}
	for i := range b.data {
		b.data[i] = v
	}
	return nil
}

func (b *Buffer[T]) checkHostAccess() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.released {
		return fmt.Errorf("device (%s): buffer %s: %w", b.device.Name, b.name, ErrReleased)
	}
	if b.mapped {
		return fmt.Errorf("device (%s): buffer %s: %w", b.device.Name, b.name, ErrBufferMapped)
	}
	return nil
}

// Map the buffer for host access. The returned slice aliases the buffer
// contents and must not be used after Unmap.
func (b *Buffer[T]) Map() ([]T, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.released {
		return nil, fmt.Errorf("device (%s): buffer %s: %w", b.device.Name, b.name, ErrReleased)
	}
	if b.mapped {
		return nil, fmt.Errorf("device (%s): buffer %s: %w", b.device.Name, b.name, ErrBufferMapped)
	}
	b.mapped = true
	return b.data, nil
}

// Unmap releases a host mapping.
func (b *Buffer[T]) Unmap() {
	b.mu.Lock()
	b.mapped = false
	b.mu.Unlock()
}

// IsMapped returns true while the buffer is mapped by the host.
func (b *Buffer[T]) IsMapped() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mapped
}

// IsReleased returns true once the buffer has been released.
func (b *Buffer[T]) IsReleased() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.released
}

// Release the buffer and return its memory to the device budget. Calling
// Release more than once is a no-op.
func (b *Buffer[T]) Release() {
	b.mu.Lock()
	if b.released {
		b.mu.Unlock()
		return
	}
	b.released = true
	b.mapped = false
	b.data = nil
	b.mu.Unlock()

	b.device.untrack(b, b.size)
}
