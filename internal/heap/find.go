package heap

import "github.com/edgeruntime/sbrkheap/internal/region"

// findFit walks the free-list ring starting at head and returns the payload
// address of the first free block whose size is >= need (first-fit
// placement). The second return is false if no free block is large enough.
func findFit(r region.Region, rg *ring, need uint32) (uint32, bool) {
	if rg.empty() {
		return 0, false
	}

	n := rg.head
	for {
		size, alloc := readHeader(r, n)
		if !alloc && size >= need {
			return n, true
		}
		n = ringNext(r, n)
		if n == rg.head {
			return 0, false
		}
	}
}
