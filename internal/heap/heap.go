package heap

import "github.com/edgeruntime/sbrkheap/internal/region"

// InitChunkWords is the initial extension requested at Init, in bytes. The
// name preserves a historical "words" naming even though the value is a
// byte count.
const InitChunkWords = 512

// Heap is the allocator proper, bound to one Region for its entire
// lifetime. It is not safe for concurrent use: callers must serialize
// every Allocate/Release/Reallocate/Calloc/CheckInvariants call.
type Heap struct {
	r      region.Region
	ring   *ring
	anchor uint32
	debug  DebugLevel
}

// New bootstraps a Heap over r: writes the prologue/epilogue sentinels,
// sets the ring to empty, and extends by initChunkBytes, falling back to
// InitChunkWords when initChunkBytes is 0. debug controls how much
// CheckInvariants (and Release's pointer validation) does.
func New(r region.Region, initChunkBytes uint32, debug DebugLevel) (*Heap, error) {
	if initChunkBytes == 0 {
		initChunkBytes = InitChunkWords
	}

	bootstrapSize := uint32(32)
	low, ok := r.Grow(bootstrapSize)
	if !ok {
		return nil, newError(KindOutOfRegion, 0, "could not reserve %d bootstrap bytes", bootstrapSize)
	}

	r.SetUint64(low, 0)                     // alignment pad
	r.SetUint64(low+Word, pack(16, true))   // prologue header
	r.SetUint64(low+2*Word, pack(16, true)) // prologue footer
	r.SetUint64(low+3*Word, pack(0, true))  // epilogue header

	anchor := low + 2*Word // payload address of the prologue

	h := &Heap{r: r, ring: newRing(anchor), anchor: anchor, debug: debug}

	if _, ok := extend(h.r, h.ring, initChunkBytes); !ok {
		return nil, newError(KindOutOfRegion, 0, "could not extend heap by initial chunk of %d bytes", initChunkBytes)
	}

	return h, h.CheckInvariants(0)
}

// SetDebugLevel changes how much work CheckInvariants does. Safe to call
// between operations, never mid-operation.
func (h *Heap) SetDebugLevel(level DebugLevel) { h.debug = level }

// CheckInvariants is the debug-only diagnostic entry point. It is a
// complete no-op when the heap's debug level is DebugOff. At DebugVerbose a
// violation's message also carries a block-by-block Dump of the heap.
func (h *Heap) CheckInvariants(line int) error {
	err := checkInvariants(h.r, h.ring, h.anchor, h.debug, line)
	if e, ok := err.(*Error); ok && h.debug >= DebugVerbose {
		e.Message += "\n" + h.Dump()
	}
	return err
}

// Dump renders the current block layout; intended for debug output and
// failing-test diagnostics, never for production logging.
func (h *Heap) Dump() string { return dump(h.r, h.anchor) }

// Allocate reserves a payload of at least size bytes and returns its
// 16-aligned address, or (0, false) if size is zero or the region could
// not be extended far enough.
func (h *Heap) Allocate(size uint32) (uint32, bool) {
	if size == 0 {
		return 0, false
	}

	need := blockSizeFor(size)

	if p, ok := findFit(h.r, h.ring, need); ok {
		h.ring.remove(h.r, p)
		place(h.r, h.ring, p, need)
		return p, true
	}

	p, ok := extend(h.r, h.ring, need)
	if !ok {
		return 0, false
	}
	h.ring.remove(h.r, p)
	place(h.r, h.ring, p, need)
	return p, true
}

// Release returns the block at ptr to the free list, coalescing with any
// free neighbors. Releasing the zero address is a no-op, mirroring
// release(nil). Passing a pointer the allocator never handed out is a
// programmer error; when the heap's debug level is non-zero, Release
// catches the obviously-wrong cases (out of region, misaligned, already
// free) by panicking with an *Error instead of corrupting the region.
// With debugging off, behavior on such a call is unchecked.
func (h *Heap) Release(ptr uint32) {
	if ptr == 0 {
		return
	}

	if h.debug != DebugOff {
		if ptr < h.r.Low()+Alignment || ptr >= h.r.High() || ptr%Alignment != 0 {
			panic(newError(KindProgrammerError, ptr, "release: pointer is not a live allocation"))
		}
		if _, alloc := readHeader(h.r, ptr); !alloc {
			panic(newError(KindProgrammerError, ptr, "release: block is already free"))
		}
	}

	size, _ := readHeader(h.r, ptr)
	writeTags(h.r, ptr, size, false)
	coalesce(h.r, h.ring, ptr)
}

// Reallocate resizes the block at ptr to hold size bytes: size==0 behaves
// as Release; ptr==0 behaves as Allocate; a request that already fits is
// returned unchanged (no shrink-in-place); otherwise a new block is
// allocated, the lesser of the old and new payload sizes is copied, and
// the old block is released.
func (h *Heap) Reallocate(ptr uint32, size uint32) (uint32, bool) {
	if size == 0 {
		h.Release(ptr)
		return 0, false
	}
	if ptr == 0 {
		return h.Allocate(size)
	}

	newBlockSize := blockSizeFor(size)
	oldBlockSize, _ := readHeader(h.r, ptr)
	if oldBlockSize >= newBlockSize {
		return ptr, true
	}

	newPtr, ok := h.Allocate(size)
	if !ok {
		return 0, false
	}

	oldPayload := oldBlockSize - 2*Word
	newPayload := newBlockSize - 2*Word
	n := oldPayload
	if newPayload < n {
		n = newPayload
	}
	h.r.CopyBytes(newPtr, ptr, n)

	h.Release(ptr)
	return newPtr, true
}

// Calloc allocates space for n elements of size bytes each and zeroes it.
// It returns (0, false) on overflow of n*size or if the underlying
// Allocate fails.
func (h *Heap) Calloc(n, size uint32) (uint32, bool) {
	if n == 0 || size == 0 {
		return 0, false
	}
	total := uint64(n) * uint64(size)
	if total > uint64(^uint32(0)) {
		return 0, false
	}

	p, ok := h.Allocate(uint32(total))
	if !ok {
		return 0, false
	}

	h.r.SetBytes(p, make([]byte, total))
	return p, true
}

// PayloadSize returns the usable payload size of the block at ptr, i.e.
// the number of bytes a client may safely read or write starting at ptr.
func (h *Heap) PayloadSize(ptr uint32) uint32 {
	size, _ := readHeader(h.r, ptr)
	return size - 2*Word
}

// HeapStats summarizes the current block layout for observability.
type HeapStats struct {
	AllocatedBlocks uint32
	FreeBlocks      uint32
	AllocatedBytes  uint32
	FreeBytes       uint32
}

// Stats walks every block between the prologue and the epilogue and tallies
// allocated vs. free block counts and byte totals. The sentinels themselves
// are not counted.
func (h *Heap) Stats() HeapStats {
	var s HeapStats
	prologueSize, _ := readHeader(h.r, h.anchor)
	p := nextBlockPayload(h.anchor, prologueSize)
	for {
		size, alloc := readHeader(h.r, p)
		if size == 0 {
			break
		}
		if alloc {
			s.AllocatedBlocks++
			s.AllocatedBytes += size
		} else {
			s.FreeBlocks++
			s.FreeBytes += size
		}
		p = nextBlockPayload(p, size)
	}
	return s
}
