package heap

import "github.com/edgeruntime/sbrkheap/internal/region"

// The free-list ring stores its prev/next links inside the first 16 bytes
// of a free block's payload: prev at payload+0, next at payload+8. Both
// slots hold the *payload* address of the neighboring ring node, never a
// header address.

func ringPrev(r region.Region, node uint32) uint32 { return uint32(r.Uint64(node)) }
func ringNext(r region.Region, node uint32) uint32 { return uint32(r.Uint64(node + Word)) }

func setRingPrev(r region.Region, node, prev uint32) { r.SetUint64(node, uint64(prev)) }
func setRingNext(r region.Region, node, next uint32) { r.SetUint64(node+Word, uint64(next)) }

func setRingLinks(r region.Region, node, prev, next uint32) {
	setRingPrev(r, node, prev)
	setRingNext(r, node, next)
}

// ring is the process-scoped free-list state: two addresses identifying the
// oldest (head) and newest (tail) free node. When empty, both equal anchor.
type ring struct {
	anchor uint32
	head   uint32
	tail   uint32
}

func newRing(anchor uint32) *ring {
	return &ring{anchor: anchor, head: anchor, tail: anchor}
}

func (rg *ring) empty() bool { return rg.head == rg.anchor && rg.tail == rg.anchor }

// insert adds the free block whose payload starts at n to the tail of the
// ring. n's tags must already mark it free.
func (rg *ring) insert(r region.Region, n uint32) {
	if rg.empty() {
		rg.head, rg.tail = n, n
		setRingLinks(r, n, n, n)
		return
	}

	setRingPrev(r, n, rg.tail)
	setRingNext(r, n, rg.head)

	if rg.head == rg.tail {
		// Single existing node: both its prev and next now point to n.
		setRingLinks(r, rg.head, n, n)
	} else {
		setRingNext(r, rg.tail, n)
		setRingPrev(r, rg.head, n)
	}

	rg.tail = n
}

// remove splices n out of the ring. n must currently be a ring member.
func (rg *ring) remove(r region.Region, n uint32) {
	switch {
	case rg.empty():
		// Programmer error: removing from an empty ring. Defensive no-op;
		// the debug harness (invariants.go) is responsible for catching
		// this case when enabled.
		return

	case rg.head == rg.tail:
		// Single node.
		rg.head, rg.tail = rg.anchor, rg.anchor

	case ringPrev(r, ringPrev(r, n)) == n:
		// Exactly two nodes: prev(prev(n)) == n detects the two-node cycle.
		other := ringPrev(r, n)
		setRingLinks(r, other, other, other)
		rg.head, rg.tail = other, other

	default:
		prev, next := ringPrev(r, n), ringNext(r, n)
		setRingNext(r, prev, next)
		setRingPrev(r, next, prev)
		if n == rg.tail {
			rg.tail = prev
		}
		if n == rg.head {
			rg.head = next
		}
	}
}

// nodes returns every free-list member starting at head, for invariant
// checking and tests. It never loops indefinitely: traversal stops as soon
// as it returns to head.
func (rg *ring) nodes(r region.Region) []uint32 {
	if rg.empty() {
		return nil
	}
	out := []uint32{rg.head}
	for n := ringNext(r, rg.head); n != rg.head; n = ringNext(r, n) {
		out = append(out, n)
	}
	return out
}
