package heap

import "github.com/edgeruntime/sbrkheap/internal/region"

// coalesce merges the free block at p with whichever physically adjacent
// neighbors are also free, inserts the resulting block into the ring, and
// returns its (possibly new) payload address. The caller must have already
// written p's own free tags before calling; p must not yet be linked into
// the ring.
//
// The prologue and epilogue sentinels are permanently marked allocated, so
// they never trigger a merge at either end of the heap — no boundary
// special-casing is needed here.
func coalesce(r region.Region, rg *ring, p uint32) uint32 {
	size, _ := readHeader(r, p)

	prevP := prevBlockPayload(r, p)
	prevSize, prevAlloc := readHeader(r, prevP)

	nextP := nextBlockPayload(p, size)
	nextSize, nextAlloc := readHeader(r, nextP)

	switch {
	case prevAlloc && nextAlloc:
		rg.insert(r, p)
		return p

	case prevAlloc && !nextAlloc:
		rg.remove(r, nextP)
		writeTags(r, p, size+nextSize, false)
		rg.insert(r, p)
		return p

	case !prevAlloc && nextAlloc:
		rg.remove(r, prevP)
		writeTags(r, prevP, prevSize+size, false)
		rg.insert(r, prevP)
		return prevP

	default: // both neighbors free
		rg.remove(r, prevP)
		rg.remove(r, nextP)
		writeTags(r, prevP, prevSize+size+nextSize, false)
		rg.insert(r, prevP)
		return prevP
	}
}
