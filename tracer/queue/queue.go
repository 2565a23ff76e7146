package queue

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/achilleasa/wavetrace/tracer/device"
)

// ErrQueueFull is returned by Append when the queue has no free slots. The
// record is dropped and the queue count is left unchanged.
var ErrQueueFull = errors.New("queue: queue is full")

// A Queue is a fixed-capacity device buffer of records plus an atomic count
// of valid entries. Records past Len() are unused. Append is safe for
// concurrent use by kernel work items; all other methods must be called
// between kernel launches.
type Queue[T any] struct {
	records *device.Buffer[T]
	count   atomic.Int32
	dropped atomic.Int64
}

// Allocate a queue with the given capacity on dev.
func New[T any](dev *device.Device, name string, capacity int) (*Queue[T], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("queue: invalid capacity %d for %s", capacity, name)
	}
	records, err := device.NewBuffer[T](dev, name, capacity)
	if err != nil {
		return nil, err
	}
	return &Queue[T]{records: records}, nil
}

// Reset zeroes the record count. The dropped counter is also cleared.
func (q *Queue[T]) Reset() {
	q.count.Store(0)
	q.dropped.Store(0)
}

// Append atomically reserves the next free slot and writes rec into it. The
// count never exceeds the capacity: when the queue is full the record is
// dropped, the dropped counter is incremented and ErrQueueFull is returned.
func (q *Queue[T]) Append(rec T) (int, error) {
	capacity := int32(q.records.Len())
	for {
		cur := q.count.Load()
		if cur >= capacity {
			q.dropped.Add(1)
			return -1, ErrQueueFull
		}
		if q.count.CompareAndSwap(cur, cur+1) {
			q.records.Data()[cur] = rec
			return int(cur), nil
		}
	}
}

// Len returns the number of valid records.
func (q *Queue[T]) Len() int {
	return int(q.count.Load())
}

// Cap returns the queue capacity.
func (q *Queue[T]) Cap() int {
	return q.records.Len()
}

// Dropped returns the number of records dropped since the last Reset.
func (q *Queue[T]) Dropped() int64 {
	return q.dropped.Load()
}

// At returns a pointer to the record in slot i. Kernels use it to update
// records in place.
func (q *Queue[T]) At(i int) *T {
	return &q.records.Data()[i]
}

// Records returns the valid records.
func (q *Queue[T]) Records() []T {
	return q.records.Data()[:q.Len()]
}

// Buffer returns the backing device buffer (for kernel argument binding).
func (q *Queue[T]) Buffer() *device.Buffer[T] {
	return q.records
}

// Release the backing device buffer.
func (q *Queue[T]) Release() {
	q.records.Release()
}

// A Pair of equally sized queues used for double buffering across bounces.
// The Current queue is consumed while continuation records are appended to
// the Next queue; Swap exchanges the two roles without copying.
type Pair[T any] struct {
	queues [2]*Queue[T]
	cur    int
}

// Allocate a queue pair on dev.
func NewPair[T any](dev *device.Device, name string, capacity int) (*Pair[T], error) {
	a, err := New[T](dev, name+"A", capacity)
	if err != nil {
		return nil, err
	}
	b, err := New[T](dev, name+"B", capacity)
	if err != nil {
		a.Release()
		return nil, err
	}
	return &Pair[T]{queues: [2]*Queue[T]{a, b}}, nil
}

// Current returns the queue consumed by this bounce.
func (p *Pair[T]) Current() *Queue[T] {
	return p.queues[p.cur]
}

// Next returns the queue that receives continuation records.
func (p *Pair[T]) Next() *Queue[T] {
	return p.queues[1-p.cur]
}

// Swap exchanges the Current and Next roles.
func (p *Pair[T]) Swap() {
	p.cur = 1 - p.cur
}

// Release both queues.
func (p *Pair[T]) Release() {
	p.queues[0].Release()
	p.queues[1].Release()
}
