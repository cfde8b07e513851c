package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/edgeruntime/sbrkheap/internal/heap"
	"github.com/edgeruntime/sbrkheap/pkg/sbrkheap"
)

func main() {
	backend := flag.String("backend", "arena", "region backend: arena, wazero, or mmap")
	maxBytes := flag.Uint("max-bytes", 0, "maximum region size in bytes (required for mmap)")
	verbose := flag.Bool("verbose", false, "enable the invariant checker (run at startup and after the demo)")
	flag.Parse()

	cfg := sbrkheap.Config{MaxBytes: uint32(*maxBytes)}
	if *verbose {
		cfg.DebugLevel = heap.DebugInvariants
	}

	switch *backend {
	case "arena":
		cfg.Backend = sbrkheap.BackendArena
	case "wazero":
		cfg.Backend = sbrkheap.BackendWazero
	case "mmap":
		cfg.Backend = sbrkheap.BackendMmap
	default:
		fmt.Fprintf(os.Stderr, "unknown backend %q\n", *backend)
		os.Exit(1)
	}

	h, err := sbrkheap.New(context.Background(), cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize heap: %v\n", err)
		os.Exit(1)
	}
	defer h.Close()

	fmt.Printf("sbrkheap initialized on %s backend\n", h.Backend())

	// A short demo allocation pattern: grab a handful of blocks, write
	// through them, release half, then grow one via reallocate.
	var ptrs []uint32
	for _, size := range []uint32{16, 64, 256, 8, 1024} {
		p, ok := h.Allocate(size)
		if !ok {
			fmt.Fprintf(os.Stderr, "allocate(%d) failed\n", size)
			os.Exit(1)
		}
		h.Write(p, []byte(fmt.Sprintf("block-%d", size)))
		ptrs = append(ptrs, p)
	}

	for i, p := range ptrs {
		if i%2 == 1 {
			h.Release(p)
		}
	}

	grown, ok := h.Reallocate(ptrs[len(ptrs)-1], 4096)
	if !ok {
		fmt.Fprintln(os.Stderr, "reallocate failed")
		os.Exit(1)
	}

	if err, code := h.CheckInvariants(0); err != nil {
		fmt.Fprintf(os.Stderr, "invariant check failed (errno=%d): %v\n", code, err)
		os.Exit(1)
	}

	stats := h.Stats()
	fmt.Printf("region now spans [%d, %d); last block grown and moved to address %d\n", stats.RegionLow, stats.RegionHigh, grown)
}
