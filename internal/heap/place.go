package heap

import "github.com/edgeruntime/sbrkheap/internal/region"

// place carves a block of exactly need bytes out of the free block at p.
// If the leftover is large enough to host a minimum block it is split off
// and reinserted into the free-list ring; otherwise the whole block is
// handed out, absorbing the internal fragmentation.
//
// p must already have been removed from the ring by the caller.
func place(r region.Region, rg *ring, p, need uint32) {
	size, _ := readHeader(r, p)
	remainder := size - need

	if remainder < MinBlockSize {
		writeTags(r, p, size, true)
		return
	}

	writeTags(r, p, need, true)
	rest := nextBlockPayload(p, need)
	writeTags(r, rest, remainder, false)
	rg.insert(r, rest)
}
