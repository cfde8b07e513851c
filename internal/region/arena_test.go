package region

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArenaGrowReturnsSequentialAddresses(t *testing.T) {
	a := NewArena()
	assert.Equal(t, uint32(0), a.Low())
	assert.Equal(t, uint32(0), a.High())

	addr1, ok := a.Grow(16)
	require.True(t, ok)
	assert.Equal(t, uint32(0), addr1)

	addr2, ok := a.Grow(16)
	require.True(t, ok)
	assert.Equal(t, uint32(16), addr2)

	assert.Equal(t, uint32(32), a.High())
}

func TestArenaUint64RoundTrip(t *testing.T) {
	a := NewArena()
	_, _ = a.Grow(64)

	a.SetUint64(8, 0xDEADBEEFCAFEBABE)
	assert.Equal(t, uint64(0xDEADBEEFCAFEBABE), a.Uint64(8))
}

func TestArenaBytesRoundTrip(t *testing.T) {
	a := NewArena()
	_, _ = a.Grow(64)

	a.SetBytes(4, []byte("hello"))
	assert.Equal(t, []byte("hello"), a.Bytes(4, 5))
}

func TestArenaCopyBytesHandlesOverlap(t *testing.T) {
	a := NewArena()
	_, _ = a.Grow(64)

	a.SetBytes(0, []byte("abcdefgh"))
	a.CopyBytes(2, 0, 8) // dst overlaps src forward

	assert.Equal(t, []byte("abcdefgh"), a.Bytes(2, 8))
}

func TestBoundedArenaRefusesGrowthPastMax(t *testing.T) {
	a := NewBoundedArena(32)

	_, ok := a.Grow(16)
	require.True(t, ok)

	_, ok = a.Grow(16)
	require.True(t, ok)

	_, ok = a.Grow(1)
	assert.False(t, ok)

	assert.Equal(t, uint64(1), a.Stats().FailedGrows)
}
