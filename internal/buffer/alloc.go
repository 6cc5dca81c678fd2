// Package buffer owns the frame buffer memory of a capture handle: one
// aligned DMA-capable slab per buffer set, sliced into frame-sized regions,
// plus the side table that associates per-session bookkeeping with each
// frame descriptor.
package buffer

import (
	"fmt"
	"unsafe"

	"github.com/visiona/gencam/internal/transport"
)

// Block is one slab holding the backing store for a buffer set. The slab is
// over-sized by up to alignment-1 bytes so an aligned window can always be
// carved out of it; Bytes returns that window. On unix the slab is an
// anonymous private mapping, elsewhere a heap allocation.
type Block struct {
	raw   []byte // full slab
	data  []byte // aligned window handed to descriptors
	align int64
	freed bool
}

// Alloc obtains size bytes honoring the given byte alignment. size is
// rounded up to the alignment boundary, never truncated. Fails with
// ErrResources when the system cannot satisfy the request.
func Alloc(size, align int64) (*Block, error) {
	if size <= 0 {
		return nil, fmt.Errorf("buffer: alloc %d bytes: %w", size, transport.ErrBadParameter)
	}
	if align < 1 {
		align = 1
	}
	size = roundUp(size, align)

	// Slack so stricter-than-page alignments can be honored by offsetting
	// the window.
	mapLen := size + align - 1
	raw, err := mapSlab(mapLen)
	if err != nil {
		return nil, err
	}

	addr := int64(uintptr(unsafe.Pointer(&raw[0])))
	off := int64(0)
	if rem := addr % align; rem != 0 {
		off = align - rem
	}

	return &Block{
		raw:   raw,
		data:  raw[off : off+size],
		align: align,
	}, nil
}

// Bytes returns the aligned window of the block.
func (b *Block) Bytes() []byte {
	if b == nil || b.freed {
		return nil
	}
	return b.data
}

// Size returns the usable (aligned) size in bytes.
func (b *Block) Size() int64 {
	if b == nil || b.freed {
		return 0
	}
	return int64(len(b.data))
}

// Alignment returns the byte alignment the block was allocated with.
func (b *Block) Alignment() int64 {
	if b == nil {
		return 0
	}
	return b.align
}

// Free releases the slab. Idempotent: freeing a nil or already-freed block
// is a no-op.
func (b *Block) Free() error {
	if b == nil || b.freed {
		return nil
	}
	b.freed = true
	b.data = nil
	raw := b.raw
	b.raw = nil
	return unmapSlab(raw)
}

// Freed reports whether the block has been released.
func (b *Block) Freed() bool {
	return b == nil || b.freed
}

func roundUp(n, align int64) int64 {
	if align <= 1 {
		return n
	}
	rem := n % align
	if rem == 0 {
		return n
	}
	return n + align - rem
}
