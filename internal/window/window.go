// Package window provides a fixed-capacity FIFO sample window shared by the
// rolling indicators. Pushing beyond capacity evicts the oldest sample,
// preserving arrival order for index-based access (index 0 = oldest).
package window

import (
	"errors"

	"regime-systemv1/internal/model"
)

// ErrBadCapacity is returned when a window is constructed with capacity < 1.
var ErrBadCapacity = errors.New("window: capacity must be >= 1")

// Window is a fixed-capacity FIFO of float64 samples backed by a
// preallocated circular buffer. Zero allocations after construction.
type Window struct {
	buf   []float64
	idx   int // next write position
	count int // total samples pushed (capped arithmetic via Size)
}

// New creates a Window. capacity must be >= 1.
func New(capacity int) (*Window, error) {
	if capacity < 1 {
		return nil, ErrBadCapacity
	}
	return &Window{buf: make([]float64, capacity)}, nil
}

// MustNew is New for capacities known valid at compile time (tests, defaults).
// Panics on invalid capacity.
func MustNew(capacity int) *Window {
	w, err := New(capacity)
	if err != nil {
		panic("window: invalid capacity " + model.Itoa(capacity))
	}
	return w
}

// Push appends a sample, evicting the oldest when at capacity.
func (w *Window) Push(v float64) {
	w.buf[w.idx] = v
	w.idx = (w.idx + 1) % len(w.buf)
	if w.count < len(w.buf) {
		w.count++
	}
}

// Size returns the current number of samples (<= Capacity).
func (w *Window) Size() int { return w.count }

// Capacity returns the configured capacity.
func (w *Window) Capacity() int { return len(w.buf) }

// Full reports whether the window holds Capacity samples.
func (w *Window) Full() bool { return w.count == len(w.buf) }

// At returns the sample at position i in arrival order (0 = oldest).
// i must be in [0, Size()).
func (w *Window) At(i int) float64 {
	if w.count < len(w.buf) {
		// Buffer not yet wrapped: oldest is at index 0.
		return w.buf[i]
	}
	return w.buf[(w.idx+i)%len(w.buf)]
}

// Values copies the current contents in arrival order into a fresh slice.
// Used by snapshotting; hot paths should prefer At.
func (w *Window) Values() []float64 {
	out := make([]float64, w.count)
	for i := 0; i < w.count; i++ {
		out[i] = w.At(i)
	}
	return out
}

// Reset clears the window for reuse.
func (w *Window) Reset() {
	w.idx = 0
	w.count = 0
	for i := range w.buf {
		w.buf[i] = 0
	}
}

// Load replaces the window contents with the given samples in arrival order.
// Samples beyond capacity are dropped from the oldest end. Used by
// snapshot restore.
func (w *Window) Load(values []float64) {
	w.Reset()
	start := 0
	if len(values) > len(w.buf) {
		start = len(values) - len(w.buf)
	}
	for _, v := range values[start:] {
		w.Push(v)
	}
}
