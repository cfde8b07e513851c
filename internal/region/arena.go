package region

import "github.com/edgeruntime/sbrkheap/internal/runtime"

// ArenaRegion is a Region backed by an ordinary growable Go byte slice. It
// has no OS or VM involvement and is the backend used by the bulk of the
// internal/heap test suite, since it can be bounded to make the
// out-of-region sentinel reachable deterministically.
type ArenaRegion struct {
	rt *runtime.Runtime
}

// NewArena creates an unbounded ArenaRegion.
func NewArena() *ArenaRegion {
	return &ArenaRegion{rt: runtime.New()}
}

// NewBoundedArena creates an ArenaRegion that refuses to grow past maxBytes.
func NewBoundedArena(maxBytes uint32) *ArenaRegion {
	return &ArenaRegion{rt: runtime.NewBounded(maxBytes)}
}

func (a *ArenaRegion) Low() uint32  { return 0 }
func (a *ArenaRegion) High() uint32 { return a.rt.Size() }

func (a *ArenaRegion) Grow(n uint32) (uint32, bool) {
	return a.rt.Grow(n)
}

func (a *ArenaRegion) Uint64(addr uint32) uint64 {
	b, err := a.rt.ReadAt(addr, 8)
	if err != nil {
		panic(err)
	}
	return decodeUint64(b)
}

func (a *ArenaRegion) SetUint64(addr uint32, v uint64) {
	b := encodeUint64(v)
	if err := a.rt.WriteAt(addr, b[:]); err != nil {
		panic(err)
	}
}

func (a *ArenaRegion) Bytes(addr, n uint32) []byte {
	b, err := a.rt.ReadAt(addr, n)
	if err != nil {
		panic(err)
	}
	return b
}

func (a *ArenaRegion) SetBytes(addr uint32, data []byte) {
	if err := a.rt.WriteAt(addr, data); err != nil {
		panic(err)
	}
}

func (a *ArenaRegion) CopyBytes(dst, src, n uint32) {
	data := a.Bytes(src, n)
	a.SetBytes(dst, data)
}

// Stats exposes the underlying runtime's growth counters for diagnostics.
func (a *ArenaRegion) Stats() runtime.Stats { return a.rt.Stats() }
