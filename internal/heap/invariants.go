package heap

import (
	"fmt"
	"strings"

	"github.com/edgeruntime/sbrkheap/internal/region"
)

// DebugLevel controls how much the invariant checker does. It must be a
// true no-op at DebugOff: CheckInvariants short-circuits before touching
// the region at all.
type DebugLevel int

const (
	// DebugOff disables invariant checking entirely.
	DebugOff DebugLevel = iota
	// DebugInvariants walks the heap and ring on every call, returning an
	// error on the first violation found.
	DebugInvariants
	// DebugVerbose additionally renders a block-by-block dump alongside
	// any violation, for use in failing test output.
	DebugVerbose
)

func (dl DebugLevel) String() string {
	switch dl {
	case DebugOff:
		return "off"
	case DebugInvariants:
		return "invariants"
	case DebugVerbose:
		return "verbose"
	default:
		return "unknown"
	}
}

// checkInvariants walks every block between the prologue and the epilogue and the
// full free-list ring, verifying the structural properties that must hold
// after every public call returns: matching header/footer tags, correctly
// aligned and sized blocks, no two adjacent free blocks, and a well-formed
// ring whose membership matches the free blocks found by the block walk.
// line identifies the call site for the returned error's context.
func checkInvariants(r region.Region, rg *ring, anchor uint32, level DebugLevel, line int) error {
	if level == DebugOff {
		return nil
	}

	freeBlocks := make(map[uint32]bool)
	prevAlloc := true // prologue is always allocated

	// The walk starts at the first block after the prologue sentinel, whose
	// 16-byte size is exempt from the minimum-size rule.
	prologueSize, _ := readHeader(r, anchor)
	p := nextBlockPayload(anchor, prologueSize)
	for {
		size, alloc := readHeader(r, p)

		if size == 0 {
			// Epilogue reached; must be allocated. It is a header-only
			// sentinel, so there is no footer to compare.
			if !alloc {
				return newError(KindInvariantViolation, p, "line %d: epilogue is not marked allocated", line)
			}
			break
		}

		headerWord := r.Uint64(headerAddr(p))
		footerVal := r.Uint64(footerAddr(p, size))
		if headerWord != footerVal {
			return newError(KindInvariantViolation, p, "line %d: header/footer mismatch (header=%#x footer=%#x)", line, headerWord, footerVal)
		}

		if size%Alignment != 0 || size < MinBlockSize {
			return newError(KindInvariantViolation, p, "line %d: block size %d violates alignment/minimum", line, size)
		}

		if p%Alignment != 0 {
			return newError(KindInvariantViolation, p, "line %d: payload address is not 16-aligned", line)
		}

		if !alloc && !prevAlloc {
			return newError(KindInvariantViolation, p, "line %d: two adjacent free blocks were not coalesced", line)
		}

		if !alloc {
			freeBlocks[p] = true
		}

		prevAlloc = alloc
		p = nextBlockPayload(p, size)
	}

	ringNodes := rg.nodes(r)
	if len(ringNodes) != len(freeBlocks) {
		return newError(KindInvariantViolation, anchor, "line %d: ring has %d nodes but heap has %d free blocks", line, len(ringNodes), len(freeBlocks))
	}
	seen := make(map[uint32]bool, len(ringNodes))
	for _, n := range ringNodes {
		if seen[n] {
			return newError(KindInvariantViolation, n, "line %d: ring node %d appears twice", line, n)
		}
		seen[n] = true
		if !freeBlocks[n] {
			return newError(KindInvariantViolation, n, "line %d: ring node %d is not a free block", line, n)
		}
		if ringPrev(r, ringNext(r, n)) != n {
			return newError(KindInvariantViolation, n, "line %d: prev(next(%d)) != %d", line, n, n)
		}
	}

	if !rg.empty() {
		if ringNext(r, rg.tail) != rg.head {
			return newError(KindInvariantViolation, rg.tail, "line %d: tail.next does not point to head", line)
		}
		if ringPrev(r, rg.head) != rg.tail {
			return newError(KindInvariantViolation, rg.head, "line %d: head.prev does not point to tail", line)
		}
	}

	return nil
}

// dump renders a line-per-block summary of the heap, for DebugVerbose
// output and for tests that want a human-readable snapshot on failure.
func dump(r region.Region, anchor uint32) string {
	var b strings.Builder
	p := anchor
	for {
		size, alloc := readHeader(r, p)
		fmt.Fprintf(&b, "block@%d size=%d alloc=%t\n", p, size, alloc)
		if size == 0 {
			break
		}
		p = nextBlockPayload(p, size)
	}
	return b.String()
}
