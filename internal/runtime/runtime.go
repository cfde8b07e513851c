// Package runtime provides a minimal growable byte store shared by the
// region backends. It intentionally has no dependency on internal/region or
// internal/heap so that either can embed it without an import cycle.
package runtime

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Runtime is a mutex-guarded growable byte slice with basic usage counters
// and a cleanup-function list, in the shape of a host-side memory arena.
type Runtime struct {
	mu sync.RWMutex // protects memory and cleanup

	memory []byte
	max    uint32 // 0 means unbounded

	bytesGrown   atomic.Uint64
	growCalls    atomic.Uint64
	failedGrows  atomic.Uint64
	cleanup      []func() error
}

// New creates a Runtime with no upper bound on growth.
func New() *Runtime { return &Runtime{memory: make([]byte, 0)} }

// NewBounded creates a Runtime that refuses to grow past max bytes. Used by
// tests that need to reach the out-of-region sentinel deterministically.
func NewBounded(max uint32) *Runtime { return &Runtime{memory: make([]byte, 0), max: max} }

// AddCleanup registers a func that runs when Close is invoked.
func (r *Runtime) AddCleanup(f func() error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleanup = append(r.cleanup, f)
}

// Close executes all registered cleanup funcs, in reverse registration order.
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var last error
	for i := len(r.cleanup) - 1; i >= 0; i-- {
		if err := r.cleanup[i](); err != nil {
			last = err
		}
	}
	return last
}

// Stats summarizes growth activity.
type Stats struct {
	Size        uint32
	BytesGrown  uint64
	GrowCalls   uint64
	FailedGrows uint64
}

func (r *Runtime) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Stats{
		Size:        uint32(len(r.memory)),
		BytesGrown:  r.bytesGrown.Load(),
		GrowCalls:   r.growCalls.Load(),
		FailedGrows: r.failedGrows.Load(),
	}
}

// Size returns the current length of the managed slice.
func (r *Runtime) Size() uint32 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return uint32(len(r.memory))
}

// Grow appends n zeroed bytes and returns the offset of the first new byte.
// ok is false (and memory is unchanged) if the bound configured via
// NewBounded would be exceeded.
func (r *Runtime) Grow(n uint32) (addr uint32, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := uint32(len(r.memory))
	if r.max != 0 && uint64(cur)+uint64(n) > uint64(r.max) {
		r.failedGrows.Add(1)
		return 0, false
	}

	r.memory = append(r.memory, make([]byte, n)...)
	r.bytesGrown.Add(uint64(n))
	r.growCalls.Add(1)
	return cur, true
}

// ReadAt copies n bytes starting at ptr into a freshly allocated slice.
func (r *Runtime) ReadAt(ptr, n uint32) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if uint64(ptr)+uint64(n) > uint64(len(r.memory)) {
		return nil, fmt.Errorf("runtime: read out of bounds: ptr=%d n=%d size=%d", ptr, n, len(r.memory))
	}
	out := make([]byte, n)
	copy(out, r.memory[ptr:ptr+n])
	return out, nil
}

// WriteAt writes data starting at ptr, which must already be in bounds.
func (r *Runtime) WriteAt(ptr uint32, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if uint64(ptr)+uint64(len(data)) > uint64(len(r.memory)) {
		return fmt.Errorf("runtime: write out of bounds: ptr=%d n=%d size=%d", ptr, len(data), len(r.memory))
	}
	copy(r.memory[ptr:], data)
	return nil
}
