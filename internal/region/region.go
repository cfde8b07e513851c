// Package region provides the concrete region-provider and byte-move
// backends consumed by internal/heap. The allocator core only ever depends
// on the Region interface defined here; it never knows which backend is
// underneath.
package region

import "encoding/binary"

// Region is the host-provided contiguous byte range the allocator manages,
// plus the raw tag-word and byte access the allocator needs to read and
// write block headers, footers, and free-list links directly.
//
// A Region also serves as its own byte-move primitive (CopyBytes) since
// copying within one flat address space never needs a second handle.
type Region interface {
	// Low returns the address of the first byte of the region.
	Low() uint32
	// High returns the address one past the last byte currently in the
	// region (i.e. the current size).
	High() uint32
	// Grow extends the region by n bytes and returns the address of the
	// first new byte. ok is false if the host refused to grow further.
	Grow(n uint32) (addr uint32, ok bool)

	// Uint64 reads an 8-byte little-endian word at addr.
	Uint64(addr uint32) uint64
	// SetUint64 writes an 8-byte little-endian word at addr.
	SetUint64(addr uint32, v uint64)
	// Bytes returns a copy of n bytes starting at addr.
	Bytes(addr, n uint32) []byte
	// SetBytes writes data starting at addr.
	SetBytes(addr uint32, data []byte)

	// CopyBytes copies n bytes from src to dst within the region. Ranges
	// may overlap; the copy behaves like Go's builtin copy (handles
	// overlap correctly when copying backward-to-forward is unsafe).
	CopyBytes(dst, src, n uint32)
}

// Mover is the byte-move primitive split out as its own interface so
// callers that only need to copy bytes within a region don't have to
// depend on the rest of Region; every Region in this package implements
// it directly.
type Mover interface {
	CopyBytes(dst, src, n uint32)
}

// encodeUint64 / decodeUint64 are shared little-endian helpers for backends
// that store raw []byte and need to pack/unpack tag words.
func encodeUint64(v uint64) [8]byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return b
}

func decodeUint64(b []byte) uint64 {
	return binary.LittleEndian.Uint64(b)
}
