package heap

import "github.com/edgeruntime/sbrkheap/internal/region"

// extend grows the region by b bytes (a multiple of 16, >= MinBlockSize),
// turns the new span into a free block, rewrites the epilogue past it, and
// coalesces with whatever free block used to border the old epilogue. It
// returns the payload address of the resulting free block, which has
// already been inserted into rg by the coalescer.
func extend(r region.Region, rg *ring, b uint32) (uint32, bool) {
	newPayload, ok := r.Grow(b)
	if !ok {
		return 0, false
	}

	// Region.Grow returns the address that used to be the old epilogue's
	// virtual payload position (one past its header), which is exactly
	// where the new block's payload starts: the new block's header lands
	// on top of the old epilogue header, by construction.
	writeTags(r, newPayload, b, false)

	epilogueHeader := newPayload + b - Word
	r.SetUint64(epilogueHeader, pack(0, true))

	return coalesce(r, rg, newPayload), true
}
