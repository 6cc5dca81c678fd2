package buffer_test

import (
	"errors"
	"testing"
	"unsafe"

	"github.com/visiona/gencam/internal/buffer"
	"github.com/visiona/gencam/internal/transport"
)

// TestAllocAlignment validates that every allocation honors the requested
// byte alignment and never truncates the requested size.
//
// Scenario:
//  1. Allocate across a grid of (size, alignment) pairs, including
//     alignments stricter than the page size
//  2. Assert: window address divisible by alignment
//  3. Assert: usable size >= requested, rounded up to the alignment
func TestAllocAlignment(t *testing.T) {
	sizes := []int64{1, 63, 64, 4096, 100_000}
	aligns := []int64{1, 8, 64, 512, 4096, 8192}

	for _, size := range sizes {
		for _, align := range aligns {
			blk, err := buffer.Alloc(size, align)
			if err != nil {
				t.Fatalf("Alloc(%d, %d) failed: %v", size, align, err)
			}

			mem := blk.Bytes()
			addr := uintptr(unsafe.Pointer(&mem[0]))
			if addr%uintptr(align) != 0 {
				t.Errorf("Alloc(%d, %d): address %#x not aligned", size, align, addr)
			}
			if blk.Size() < size {
				t.Errorf("Alloc(%d, %d): usable size %d < requested", size, align, blk.Size())
			}
			if blk.Size()%align != 0 {
				t.Errorf("Alloc(%d, %d): size %d not a multiple of alignment", size, align, blk.Size())
			}
			if blk.Alignment() != align {
				t.Errorf("Alloc(%d, %d): Alignment() = %d", size, align, blk.Alignment())
			}

			if err := blk.Free(); err != nil {
				t.Fatalf("Free after Alloc(%d, %d) failed: %v", size, align, err)
			}
		}
	}
}

func TestAllocRejectsBadSize(t *testing.T) {
	for _, size := range []int64{0, -1} {
		if _, err := buffer.Alloc(size, 64); !errors.Is(err, transport.ErrBadParameter) {
			t.Errorf("Alloc(%d, 64): got %v, want ErrBadParameter", size, err)
		}
	}
}

// TestFreeIdempotent validates the block release contract: freeing twice is
// a no-op, and a freed block reports itself empty.
func TestFreeIdempotent(t *testing.T) {
	blk, err := buffer.Alloc(4096, 64)
	if err != nil {
		t.Fatalf("Alloc failed: %v", err)
	}

	if err := blk.Free(); err != nil {
		t.Fatalf("first Free failed: %v", err)
	}
	if err := blk.Free(); err != nil {
		t.Errorf("second Free: got %v, want nil", err)
	}

	if !blk.Freed() {
		t.Error("Freed() = false after Free")
	}
	if blk.Bytes() != nil {
		t.Error("Bytes() non-nil after Free")
	}
	if blk.Size() != 0 {
		t.Errorf("Size() = %d after Free, want 0", blk.Size())
	}

	var nilBlk *buffer.Block
	if err := nilBlk.Free(); err != nil {
		t.Errorf("nil Free: got %v, want nil", err)
	}
	if !nilBlk.Freed() {
		t.Error("nil Freed() = false")
	}
}
