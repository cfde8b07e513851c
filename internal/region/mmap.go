//go:build linux || darwin

package region

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/unix"
)

// MmapRegion is a Region backed by an anonymous mmap'd mapping, the actual
// host-OS analogue of a sbrk-style growable region. The mapping is reserved
// at its maximum size up front (mmap over-commits address space cheaply)
// and Grow simply advances a high-water mark within it, the way a real
// brk()-based allocator advances the program break within a reserved
// address range.
type MmapRegion struct {
	data []byte // full reservation, length == cap
	used uint32 // bytes currently "grown" into
}

// NewMmapRegion reserves capacity bytes of anonymous, read-write memory.
func NewMmapRegion(capacity uint32) (*MmapRegion, error) {
	data, err := unix.Mmap(-1, 0, int(capacity), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("region: mmap %d bytes: %w", capacity, err)
	}
	return &MmapRegion{data: data}, nil
}

// Close unmaps the reservation.
func (m *MmapRegion) Close() error {
	return unix.Munmap(m.data)
}

func (m *MmapRegion) Low() uint32  { return 0 }
func (m *MmapRegion) High() uint32 { return m.used }

func (m *MmapRegion) Grow(n uint32) (uint32, bool) {
	if uint64(m.used)+uint64(n) > uint64(len(m.data)) {
		return 0, false
	}
	addr := m.used
	m.used += n
	return addr, true
}

func (m *MmapRegion) Uint64(addr uint32) uint64 {
	m.checkBounds(addr, 8)
	return binary.LittleEndian.Uint64(m.data[addr : addr+8])
}

func (m *MmapRegion) SetUint64(addr uint32, v uint64) {
	m.checkBounds(addr, 8)
	binary.LittleEndian.PutUint64(m.data[addr:addr+8], v)
}

func (m *MmapRegion) Bytes(addr, n uint32) []byte {
	m.checkBounds(addr, n)
	out := make([]byte, n)
	copy(out, m.data[addr:addr+n])
	return out
}

func (m *MmapRegion) SetBytes(addr uint32, data []byte) {
	m.checkBounds(addr, uint32(len(data)))
	copy(m.data[addr:], data)
}

func (m *MmapRegion) CopyBytes(dst, src, n uint32) {
	m.checkBounds(src, n)
	m.checkBounds(dst, n)
	data := make([]byte, n)
	copy(data, m.data[src:src+n])
	copy(m.data[dst:], data)
}

func (m *MmapRegion) checkBounds(addr, n uint32) {
	if uint64(addr)+uint64(n) > uint64(m.used) {
		panic(fmt.Sprintf("region: access out of bounds at %d len %d (grown=%d)", addr, n, m.used))
	}
}
