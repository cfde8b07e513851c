package region

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// wasmPageSize is the fixed page granularity of WebAssembly linear memory.
const wasmPageSize = 65536

// bareMemoryModule is a hand-assembled, function-free WASM binary that
// declares and exports a single growable memory:
//
//	(module (memory (export "memory") 1 65536))
//
// WazeroRegion only needs an address space to grow into; it has no guest
// code to run, so there is nothing to compile from source for.
var bareMemoryModule = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00, // magic, version
	0x05, 0x06, 0x01, 0x01, 0x01, 0x80, 0x80, 0x04, // memory section: 1 memory, min=1, max=65536 pages
	0x07, 0x0a, 0x01, 0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00, // export section: "memory" -> mem 0
}

// WazeroRegion is a Region backed by the linear memory of a wazero-hosted
// WASM module. Growth happens in 64KiB pages, the way a real WASM guest
// extends its own heap; this is the closest Go analogue to the original
// mem_sbrk-backed region.
type WazeroRegion struct {
	runtime  wazero.Runtime
	module   api.Module
	memory   api.Memory
	maxPages uint32
	low      uint32
}

// NewWazeroRegion instantiates a bare memory-only module and wraps its
// linear memory as a Region. maxPages bounds how far Grow can extend the
// region (0 means the module's own declared maximum, 65536 pages / 4GiB).
func NewWazeroRegion(ctx context.Context, maxPages uint32) (*WazeroRegion, error) {
	cfg := wazero.NewRuntimeConfig()
	if maxPages > 0 {
		cfg = cfg.WithMemoryLimitPages(maxPages)
	}
	rt := wazero.NewRuntimeWithConfig(ctx, cfg)

	compiled, err := rt.CompileModule(ctx, bareMemoryModule)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("region: compile bare memory module: %w", err)
	}

	instance, err := rt.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName("sbrkheap-region"))
	if err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("region: instantiate bare memory module: %w", err)
	}

	mem := instance.Memory()
	if mem == nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("region: instantiated module does not export memory")
	}

	// The module's declared memory already carries its minimum of 1 page
	// (65536 bytes) the instant it's instantiated, before Grow is ever
	// called. That pre-existing page isn't part of the allocator-managed
	// region, so Low reports where it ends rather than 0.
	return &WazeroRegion{runtime: rt, module: instance, memory: mem, maxPages: maxPages, low: mem.Size()}, nil
}

// Close tears down the underlying wazero runtime.
func (w *WazeroRegion) Close(ctx context.Context) error {
	return w.runtime.Close(ctx)
}

func (w *WazeroRegion) Low() uint32  { return w.low }
func (w *WazeroRegion) High() uint32 { return w.memory.Size() }

// Grow extends the region by at least n bytes, rounding up to whole WASM
// pages, and returns the address of the first new byte: the caller asks
// for n bytes and gets back a pointer to them, even though the underlying
// host grows in coarser units.
func (w *WazeroRegion) Grow(n uint32) (uint32, bool) {
	cur := w.memory.Size()
	deltaPages := (n + wasmPageSize - 1) / wasmPageSize
	if deltaPages == 0 {
		return cur, true
	}
	if _, ok := w.memory.Grow(deltaPages); !ok {
		return 0, false
	}
	return cur, true
}

func (w *WazeroRegion) Uint64(addr uint32) uint64 {
	v, ok := w.memory.ReadUint64Le(addr)
	if !ok {
		panic(fmt.Sprintf("region: read uint64 out of bounds at %d", addr))
	}
	return v
}

func (w *WazeroRegion) SetUint64(addr uint32, v uint64) {
	if !w.memory.WriteUint64Le(addr, v) {
		panic(fmt.Sprintf("region: write uint64 out of bounds at %d", addr))
	}
}

func (w *WazeroRegion) Bytes(addr, n uint32) []byte {
	data, ok := w.memory.Read(addr, n)
	if !ok {
		panic(fmt.Sprintf("region: read out of bounds at %d len %d", addr, n))
	}
	out := make([]byte, n)
	copy(out, data)
	return out
}

func (w *WazeroRegion) SetBytes(addr uint32, data []byte) {
	if !w.memory.Write(addr, data) {
		panic(fmt.Sprintf("region: write out of bounds at %d len %d", addr, len(data)))
	}
}

func (w *WazeroRegion) CopyBytes(dst, src, n uint32) {
	data := w.Bytes(src, n)
	w.SetBytes(dst, data)
}
