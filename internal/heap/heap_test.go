package heap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgeruntime/sbrkheap/internal/region"
)

func newTestHeap(t *testing.T) *Heap {
	t.Helper()
	h, err := New(region.NewArena(), 0, DebugInvariants)
	require.NoError(t, err)
	return h
}

// Releasing a block and then allocating the same size again reuses it.
func TestScenarioReuseAfterRelease(t *testing.T) {
	h := newTestHeap(t)

	p1, ok := h.Allocate(1)
	require.True(t, ok)
	assert.NotZero(t, p1)
	assert.Zero(t, p1%Alignment)

	size, alloc := readHeader(h.r, p1)
	assert.Equal(t, uint32(32), size)
	assert.True(t, alloc)

	h.Release(p1)
	require.NoError(t, h.CheckInvariants(0))

	p2, ok := h.Allocate(1)
	require.True(t, ok)
	assert.Equal(t, p1, p2)
}

// Three successive allocations land at ascending, distinct, 16-aligned
// addresses with the expected block sizes.
func TestScenarioAscendingAllocations(t *testing.T) {
	h := newTestHeap(t)

	p1, ok := h.Allocate(8)
	require.True(t, ok)
	p2, ok := h.Allocate(16)
	require.True(t, ok)
	p3, ok := h.Allocate(24)
	require.True(t, ok)

	assert.Less(t, p1, p2)
	assert.Less(t, p2, p3)
	for _, p := range []uint32{p1, p2, p3} {
		assert.Zero(t, p%Alignment)
	}

	s1, _ := readHeader(h.r, p1)
	s2, _ := readHeader(h.r, p2)
	s3, _ := readHeader(h.r, p3)
	assert.Equal(t, uint32(32), s1)
	assert.Equal(t, uint32(32), s2)
	assert.Equal(t, uint32(48), s3)
}

// Releasing two adjacent allocations coalesces them into a single ring node.
func TestScenarioReleaseBothCoalesces(t *testing.T) {
	h := newTestHeap(t)

	p1, ok := h.Allocate(100)
	require.True(t, ok)
	p2, ok := h.Allocate(100)
	require.True(t, ok)

	h.Release(p1)
	h.Release(p2)
	require.NoError(t, h.CheckInvariants(0))

	nodes := h.ring.nodes(h.r)
	require.Len(t, nodes, 1)
	n := nodes[0]
	assert.Equal(t, n, ringNext(h.r, n))
	assert.Equal(t, n, ringPrev(h.r, n))
}

// Reallocating to a larger size moves the block and preserves its bytes.
func TestScenarioReallocateGrowsAndCopies(t *testing.T) {
	h := newTestHeap(t)

	p, ok := h.Allocate(48)
	require.True(t, ok)

	data := h.r.Bytes(p, 48)
	for i := range data {
		data[i] = byte(i)
	}
	h.r.SetBytes(p, data)

	p2, ok := h.Reallocate(p, 200)
	require.True(t, ok)
	assert.NotEqual(t, p, p2)

	got := h.r.Bytes(p2, 48)
	for i := 0; i < 48; i++ {
		assert.Equal(t, byte(i), got[i])
	}

	require.NoError(t, h.CheckInvariants(0))
}

// Exhausting a bounded region fails further allocations, then releasing
// makes that space reusable.
func TestScenarioExhaustionThenReuse(t *testing.T) {
	h, err := New(region.NewBoundedArena(600), 0, DebugInvariants)
	require.NoError(t, err)

	lastOK := true
	var allocated []uint32
	for lastOK {
		var p uint32
		p, lastOK = h.Allocate(16)
		if lastOK {
			allocated = append(allocated, p)
		}
	}
	assert.NotEmpty(t, allocated)

	h.Release(allocated[0])
	require.NoError(t, h.CheckInvariants(0))

	p, ok := h.Allocate(16)
	require.True(t, ok)
	assert.Equal(t, allocated[0], p)
}

// Shrinking via reallocate is a no-op that returns the same pointer.
func TestScenarioReallocateShrinkIsNoop(t *testing.T) {
	h := newTestHeap(t)

	p, ok := h.Allocate(32)
	require.True(t, ok)

	p2, ok := h.Reallocate(p, 16)
	require.True(t, ok)
	assert.Equal(t, p, p2)
}

// Reallocating to the current payload size returns the same pointer.
func TestLawReallocateSameSizeNoCopy(t *testing.T) {
	h := newTestHeap(t)

	p, ok := h.Allocate(40)
	require.True(t, ok)
	payload := h.PayloadSize(p)

	p2, ok := h.Reallocate(p, payload)
	require.True(t, ok)
	assert.Equal(t, p, p2)
}

// Writing into a live allocation survives unrelated allocate/release churn.
func TestLawWritesSurviveUnrelatedChurn(t *testing.T) {
	h := newTestHeap(t)

	p, ok := h.Allocate(64)
	require.True(t, ok)
	payload := []byte("the quick brown fox")
	h.r.SetBytes(p, payload)

	for i := 0; i < 20; i++ {
		q, ok := h.Allocate(uint32(16 + i*8))
		require.True(t, ok)
		if i%3 == 0 {
			h.Release(q)
		}
	}

	got := h.r.Bytes(p, uint32(len(payload)))
	assert.Equal(t, payload, got)
}

func TestAllocateZeroReturnsFalse(t *testing.T) {
	h := newTestHeap(t)
	p, ok := h.Allocate(0)
	assert.False(t, ok)
	assert.Zero(t, p)
}

func TestReleaseZeroIsNoop(t *testing.T) {
	h := newTestHeap(t)
	h.Release(0) // must not panic
	require.NoError(t, h.CheckInvariants(0))
}

func TestCallocZeroesMemory(t *testing.T) {
	h := newTestHeap(t)

	p, ok := h.Allocate(64)
	require.True(t, ok)
	h.r.SetBytes(p, []byte{1, 2, 3, 4})
	h.Release(p)

	q, ok := h.Calloc(8, 8)
	require.True(t, ok)
	assert.Equal(t, p, q) // reused the just-freed block

	got := h.r.Bytes(q, 64)
	for _, b := range got {
		assert.Zero(t, b)
	}
}

func TestCallocOverflowRejected(t *testing.T) {
	h := newTestHeap(t)
	_, ok := h.Calloc(1<<20, 1<<20)
	assert.False(t, ok)
}

func TestReleaseInvalidPointerPanicsWhenDebugging(t *testing.T) {
	h := newTestHeap(t)

	assert.Panics(t, func() {
		h.Release(h.anchor + 7) // misaligned, never handed out
	})

	var allocErr *Error
	func() {
		defer func() {
			if r := recover(); r != nil {
				if e, ok := r.(*Error); ok {
					allocErr = e
				}
			}
		}()
		h.Release(h.anchor + 7)
	}()
	require.NotNil(t, allocErr)
	assert.Equal(t, KindProgrammerError, allocErr.Kind)
}

func TestReleaseAlreadyFreePanicsWhenDebugging(t *testing.T) {
	h := newTestHeap(t)

	p, ok := h.Allocate(16)
	require.True(t, ok)
	h.Release(p)

	assert.Panics(t, func() { h.Release(p) })
}

func TestReleaseInvalidPointerUncheckedWhenDebugOff(t *testing.T) {
	h, err := New(region.NewArena(), 0, DebugOff)
	require.NoError(t, err)

	p, ok := h.Allocate(16)
	require.True(t, ok)
	h.Release(p)

	// With debugging off, a double-release is not caught; it must not panic.
	assert.NotPanics(t, func() { h.Release(p) })
}

// InitialChunkWords lets a test force an early heap extension by requesting
// a chunk far smaller than the default: the 64-byte chunk holds exactly two
// 32-byte blocks, so the third Allocate call crosses into extend() well
// before the region would otherwise need to grow.
func TestInitialChunkWordsForcesEarlyExtension(t *testing.T) {
	h, err := New(region.NewArena(), 64, DebugInvariants)
	require.NoError(t, err)

	p1, ok := h.Allocate(16)
	require.True(t, ok)
	p2, ok := h.Allocate(16)
	require.True(t, ok)
	p3, ok := h.Allocate(16)
	require.True(t, ok)

	assert.NotEqual(t, p1, p2)
	assert.NotEqual(t, p2, p3)
	require.NoError(t, h.CheckInvariants(0))
}

func TestStatsReportsBlockAndByteCounts(t *testing.T) {
	h := newTestHeap(t)

	p1, ok := h.Allocate(16) // block size 32
	require.True(t, ok)
	_, ok = h.Allocate(40) // block size 64
	require.True(t, ok)

	h.Release(p1)

	stats := h.Stats()
	assert.Equal(t, uint32(1), stats.AllocatedBlocks)
	assert.Equal(t, uint32(64), stats.AllocatedBytes)
	assert.GreaterOrEqual(t, stats.FreeBlocks, uint32(1))
	assert.Greater(t, stats.FreeBytes, uint32(0))
}

func TestInvariantsHoldAcrossRandomizedOperations(t *testing.T) {
	h := newTestHeap(t)

	live := map[uint32]uint32{} // ptr -> requested size
	seq := []uint32{8, 24, 1, 100, 16, 256, 7, 48, 9, 500, 32, 64}

	for i, size := range seq {
		p, ok := h.Allocate(size)
		require.True(t, ok)
		live[p] = size
		require.NoError(t, h.CheckInvariants(i))

		if i%2 == 0 {
			for ptr := range live {
				h.Release(ptr)
				delete(live, ptr)
				break
			}
			require.NoError(t, h.CheckInvariants(i))
		}
	}

	for ptr := range live {
		h.Release(ptr)
	}
	require.NoError(t, h.CheckInvariants(len(seq)))
}
