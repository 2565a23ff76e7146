package device

import (
	"bytes"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/olekukonko/tablewriter"
)

// Configuration for a compute device.
type Config struct {
	// Device name used in logs and errors.
	Name string

	// Number of worker goroutines that execute kernel work items. If <= 0,
	// runtime.NumCPU() workers are used.
	Workers int

	// Device memory budget in bytes. If <= 0 allocations are not limited.
	MemoryBudget int64
}

// Information about an available compute device.
type Info struct {
	Name    string
	Workers int
	Arch    string
}

// List returns the compute devices available on this system. Work is always
// executed by a single goroutine-backed device that spans all CPUs.
func List() []Info {
	return []Info{
		{
			Name:    defaultName,
			Workers: runtime.NumCPU(),
			Arch:    runtime.GOOS + "/" + runtime.GOARCH,
		},
	}
}

const defaultName = "cpu0"

// Statistics for a single kernel.
type KernelStats struct {
	Name      string
	Launches  int
	WorkItems int64
	Time      time.Duration
}

// A Device executes data-parallel kernels on a pool of goroutines and owns a
// set of budgeted buffers. Each kernel launch returns only after every work
// item has completed so consecutive launches are separated by a barrier.
type Device struct {
	Name    string
	Workers int

	budget    int64
	allocated atomic.Int64

	mu      sync.Mutex
	closed  bool
	buffers map[releaser]struct{}
	stats   map[string]*KernelStats
}

type releaser interface {
	Release()
}

// Create a new device.
func New(cfg Config) *Device {
	if cfg.Name == "" {
		cfg.Name = defaultName
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	return &Device{
		Name:    cfg.Name,
		Workers: cfg.Workers,
		budget:  cfg.MemoryBudget,
		buffers: make(map[releaser]struct{}),
		stats:   make(map[string]*KernelStats),
	}
}

// Implements Stringer.
func (d *Device) String() string {
	budget := "unlimited"
	if d.budget > 0 {
		budget = fmt.Sprintf("%d bytes", d.budget)
	}
	return fmt.Sprintf("Name: %s\nWorkers: %d\nMemory budget: %s", d.Name, d.Workers, budget)
}

// Allocated returns the number of bytes currently allocated by buffers.
func (d *Device) Allocated() int64 {
	return d.allocated.Load()
}

// Budget returns the device memory budget (0 if unlimited).
func (d *Device) Budget() int64 {
	if d.budget < 0 {
		return 0
	}
	return d.budget
}

// Reserve size bytes from the device budget.
func (d *Device) reserve(name string, size int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return fmt.Errorf("device (%s): could not allocate buffer %s: %w", d.Name, name, ErrReleased)
	}

	allocated := d.allocated.Load()
	if d.budget > 0 && allocated+size > d.budget {
		return &MemoryError{
			Device:    d.Name,
			Buffer:    name,
			Requested: size,
			Available: d.budget - allocated,
		}
	}
	d.allocated.Add(size)
	return nil
}

func (d *Device) track(buf releaser) {
	d.mu.Lock()
	d.buffers[buf] = struct{}{}
	d.mu.Unlock()
}

func (d *Device) untrack(buf releaser, size int64) {
	d.mu.Lock()
	delete(d.buffers, buf)
	d.mu.Unlock()
	d.allocated.Add(-size)
}

// Close releases all buffers still allocated by the device. Kernels and
// allocations fail with ErrReleased afterwards.
func (d *Device) Close() {
	d.mu.Lock()
	d.closed = true
	pending := make([]releaser, 0, len(d.buffers))
	for buf := range d.buffers {
		pending = append(pending, buf)
	}
	d.mu.Unlock()

	for _, buf := range pending {
		buf.Release()
	}
}

func (d *Device) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func (d *Device) recordLaunch(kernel string, items int64, elapsed time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	st, ok := d.stats[kernel]
	if !ok {
		st = &KernelStats{Name: kernel}
		d.stats[kernel] = st
	}
	st.Launches++
	st.WorkItems += items
	st.Time += elapsed
}

// Stats returns per-kernel launch statistics sorted by kernel name.
func (d *Device) Stats() []KernelStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]KernelStats, 0, len(d.stats))
	for _, st := range d.stats {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// StatsTable renders kernel statistics as a table.
func (d *Device) StatsTable() string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Kernel", "Launches", "Work items", "Total time", "Avg time"})
	for _, st := range d.Stats() {
		avg := time.Duration(0)
		if st.Launches > 0 {
			avg = st.Time / time.Duration(st.Launches)
		}
		table.Append([]string{
			st.Name,
			fmt.Sprint(st.Launches),
			fmt.Sprint(st.WorkItems),
			st.Time.String(),
			avg.String(),
		})
	}
	table.Render()
	return buf.String()
}
