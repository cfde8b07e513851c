// Package sbrkheap is the public façade over internal/heap: a
// single-threaded, general-purpose dynamic memory allocator managing one
// contiguous region supplied by a pluggable backend.
package sbrkheap

import (
	"context"
	"fmt"

	internalerrors "github.com/edgeruntime/sbrkheap/internal/errors"
	"github.com/edgeruntime/sbrkheap/internal/heap"
	"github.com/edgeruntime/sbrkheap/internal/region"
)

// Backend selects which region.Region implementation backs a Heap.
type Backend int

const (
	// BackendArena uses a plain growable Go byte slice. The default; no
	// external dependency is exercised.
	BackendArena Backend = iota
	// BackendWazero uses the linear memory of a wazero-hosted WASM module.
	BackendWazero
	// BackendMmap uses an anonymous mmap'd mapping (linux/darwin only).
	BackendMmap
)

func (b Backend) String() string {
	switch b {
	case BackendArena:
		return "arena"
	case BackendWazero:
		return "wazero"
	case BackendMmap:
		return "mmap"
	default:
		return "unknown"
	}
}

// Config holds configuration options for a Heap.
type Config struct {
	// Backend selects the region provider. Defaults to BackendArena.
	Backend Backend
	// DebugLevel controls how much CheckInvariants does on every call.
	// Defaults to heap.DebugOff.
	DebugLevel heap.DebugLevel
	// MaxBytes bounds how far the region may grow. Zero means unbounded
	// for BackendArena, the module's declared WASM maximum for
	// BackendWazero, and is required (non-zero) for BackendMmap since an
	// mmap reservation must be sized up front.
	MaxBytes uint32
	// InitialChunkWords overrides the initial heap extension size in
	// bytes. Zero uses the default of 512; a test forcing early extension
	// would lower it.
	InitialChunkWords uint32
}

// Heap is a ready-to-use allocator bound to one region backend.
type Heap struct {
	h       *heap.Heap
	r       region.Region
	closer  func() error
	backend Backend
}

// New creates a Heap using the backend and limits described by cfg.
func New(ctx context.Context, cfg Config) (*Heap, error) {
	var (
		r      region.Region
		closer func() error
	)

	switch cfg.Backend {
	case BackendArena:
		if cfg.MaxBytes > 0 {
			r = region.NewBoundedArena(cfg.MaxBytes)
		} else {
			r = region.NewArena()
		}

	case BackendWazero:
		maxPages := uint32(0)
		if cfg.MaxBytes > 0 {
			maxPages = (cfg.MaxBytes + 65535) / 65536
		}
		wr, err := region.NewWazeroRegion(ctx, maxPages)
		if err != nil {
			return nil, fmt.Errorf("sbrkheap: %w", err)
		}
		r = wr
		closer = func() error { return wr.Close(ctx) }

	case BackendMmap:
		if cfg.MaxBytes == 0 {
			return nil, fmt.Errorf("sbrkheap: BackendMmap requires a non-zero MaxBytes reservation")
		}
		mr, err := region.NewMmapRegion(cfg.MaxBytes)
		if err != nil {
			return nil, fmt.Errorf("sbrkheap: %w", err)
		}
		r = mr
		closer = mr.Close

	default:
		return nil, fmt.Errorf("sbrkheap: unknown backend %v", cfg.Backend)
	}

	h, err := heap.New(r, cfg.InitialChunkWords, cfg.DebugLevel)
	if err != nil {
		if closer != nil {
			_ = closer()
		}
		return nil, fmt.Errorf("sbrkheap: %w", err)
	}

	return &Heap{h: h, r: r, closer: closer, backend: cfg.Backend}, nil
}

// Close releases the region backend's host resources, if any. Arena
// backends need no teardown; wazero and mmap backends do.
func (hp *Heap) Close() error {
	if hp.closer == nil {
		return nil
	}
	return hp.closer()
}

// Backend reports which region provider this Heap was built on.
func (hp *Heap) Backend() Backend { return hp.backend }

// Allocate reserves size bytes and returns its payload address, or
// (0, false) on zero size or region exhaustion.
func (hp *Heap) Allocate(size uint32) (uint32, bool) { return hp.h.Allocate(size) }

// Release returns ptr's block to the free list. Releasing 0 is a no-op.
func (hp *Heap) Release(ptr uint32) { hp.h.Release(ptr) }

// Reallocate resizes ptr's block to size bytes, per the same semantics as
// the underlying heap.Heap.Reallocate.
func (hp *Heap) Reallocate(ptr, size uint32) (uint32, bool) { return hp.h.Reallocate(ptr, size) }

// Calloc allocates space for n elements of size bytes each, zeroed.
func (hp *Heap) Calloc(n, size uint32) (uint32, bool) { return hp.h.Calloc(n, size) }

// Read copies n bytes out of the region starting at ptr.
func (hp *Heap) Read(ptr, n uint32) []byte { return hp.r.Bytes(ptr, n) }

// Write copies data into the region starting at ptr.
func (hp *Heap) Write(ptr uint32, data []byte) { hp.r.SetBytes(ptr, data) }

// PayloadSize returns the usable size of the block at ptr.
func (hp *Heap) PayloadSize(ptr uint32) uint32 { return hp.h.PayloadSize(ptr) }

// CheckInvariants runs the debug harness's structural checks, returning a
// stable Errno alongside the detailed error for callers that need a code
// rather than a Go error value.
func (hp *Heap) CheckInvariants(line int) (error, internalerrors.Errno) {
	err := hp.h.CheckInvariants(line)
	return err, internalerrors.FromHeapError(err)
}

// Stats summarizes the region's bounds and the current block layout.
type Stats struct {
	Backend    Backend
	RegionLow  uint32
	RegionHigh uint32
	heap.HeapStats
}

// Stats reports the current region bounds, backend, and block counts.
func (hp *Heap) Stats() Stats {
	return Stats{
		Backend:    hp.backend,
		RegionLow:  hp.r.Low(),
		RegionHigh: hp.r.High(),
		HeapStats:  hp.h.Stats(),
	}
}

// Dump renders a block-by-block snapshot of the heap for diagnostics.
func (hp *Heap) Dump() string { return hp.h.Dump() }
