package buffer

import (
	"fmt"
	"sync/atomic"

	"github.com/visiona/gencam/internal/transport"
)

// Handler is the per-frame callback stored in a slot's context for the
// duration of a capture session.
type Handler func(stream transport.StreamRef, frame *transport.FrameDescriptor, userData any)

// SlotContext is the bookkeeping attached to one frame slot. It replaces the
// classic trick of smuggling raw pointers through the descriptor's context
// words: the descriptor carries only its slot index, and the set owns the
// association.
type SlotContext struct {
	// Owner is the capture handle the slot belongs to.
	Owner any
	// UserData is the caller-supplied context passed through to Handler.
	UserData any
	// Handler is the callback invoked on frame completion.
	Handler Handler
}

// Action is the outcome of reconciling a buffer set against the currently
// required payload size, alignment and frame count.
type Action int

const (
	// ActionNone: the existing allocation and descriptors still fit.
	ActionNone Action = iota
	// ActionReplaceFrames: re-slice descriptors over the existing memory
	// (payload or count changed but the slab is reusable).
	ActionReplaceFrames
	// ActionReplaceAll: free the memory and allocate fresh (alignment or
	// total size changed).
	ActionReplaceAll
)

// String returns a human-readable string representation of the action.
func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionReplaceFrames:
		return "replace-frames"
	case ActionReplaceAll:
		return "replace-all"
	default:
		return "unknown"
	}
}

// Set is the fixed-size collection of frame descriptors the transport fills
// during capture, together with the slab backing them and the side table of
// slot contexts. A Set is owned exclusively by one capture handle; it is
// created empty at device-open time and rebuilt whenever the payload size,
// alignment or slot count changes.
//
// Set performs no locking and no busy checks: the capture engine guarantees
// it is never rebuilt while streaming or acquiring. The announce flag alone
// is atomic, so state snapshots can read it concurrently with a stop.
type Set struct {
	block     *Block
	frames    []transport.FrameDescriptor
	slots     []SlotContext
	payload   uint32
	stride    int64
	alignment int64
	announced atomic.Bool
}

// NewSet returns an empty set with no allocation.
func NewSet() *Set {
	return &Set{}
}

// frameStride returns the per-slot spacing: payload rounded up to alignment
// so every slice start stays aligned.
func frameStride(payload uint32, align int64) int64 {
	return roundUp(int64(payload), align)
}

// Plan reconciles the set against the required payload size, alignment and
// frame count, and reports which rebuild action is needed. It never mutates
// the set.
func (s *Set) Plan(payload uint32, alignment int64, count uint32) Action {
	if alignment < 1 {
		alignment = 1
	}
	if s.block == nil || s.block.Freed() {
		return ActionReplaceAll
	}
	required := frameStride(payload, alignment) * int64(count)
	if alignment != s.alignment || required > s.block.Size() {
		return ActionReplaceAll
	}
	if payload != s.payload || count != s.FrameCount() {
		return ActionReplaceFrames
	}
	return ActionNone
}

// Build allocates a fresh slab and slices it into count descriptors of at
// least payload bytes each, every slice aligned. Any previous allocation
// must have been torn down first.
func (s *Set) Build(payload uint32, alignment int64, count uint32) error {
	if payload == 0 || count == 0 {
		return fmt.Errorf("buffer: build %d frames of %d bytes: %w", count, payload, transport.ErrBadParameter)
	}
	if alignment < 1 {
		alignment = 1
	}
	if s.block != nil && !s.block.Freed() {
		return fmt.Errorf("buffer: build over live allocation: %w", transport.ErrInternalFault)
	}

	stride := frameStride(payload, alignment)
	block, err := Alloc(stride*int64(count), alignment)
	if err != nil {
		return err
	}

	s.block = block
	s.payload = payload
	s.stride = stride
	s.alignment = alignment
	s.sliceFrames(count)
	return nil
}

// RebuildFrames re-slices the descriptors over the existing slab for a new
// payload size or count. The slab must be large enough; Plan decides that.
func (s *Set) RebuildFrames(payload uint32, count uint32) error {
	if payload == 0 || count == 0 {
		return fmt.Errorf("buffer: rebuild %d frames of %d bytes: %w", count, payload, transport.ErrBadParameter)
	}
	if s.block == nil || s.block.Freed() {
		return fmt.Errorf("buffer: rebuild without allocation: %w", transport.ErrResources)
	}
	stride := frameStride(payload, s.alignment)
	if stride*int64(count) > s.block.Size() {
		return fmt.Errorf("buffer: rebuild needs %d bytes, slab holds %d: %w",
			stride*int64(count), s.block.Size(), transport.ErrResources)
	}
	s.payload = payload
	s.stride = stride
	s.sliceFrames(count)
	return nil
}

func (s *Set) sliceFrames(count uint32) {
	mem := s.block.Bytes()
	s.frames = make([]transport.FrameDescriptor, count)
	s.slots = make([]SlotContext, count)
	for i := range s.frames {
		off := int64(i) * s.stride
		s.frames[i] = transport.FrameDescriptor{
			Buffer: mem[off : off+int64(s.payload)],
			Index:  i,
		}
	}
}

// Teardown clears descriptors and slot contexts. With freeMemory it also
// releases the slab; without it the slab stays for reuse by RebuildFrames.
func (s *Set) Teardown(freeMemory bool) error {
	s.frames = nil
	s.slots = nil
	s.payload = 0
	s.stride = 0
	s.announced.Store(false)
	if !freeMemory {
		return nil
	}
	block := s.block
	s.block = nil
	s.alignment = 0
	return block.Free()
}

// BindSession populates every slot's context for a new capture session.
func (s *Set) BindSession(owner any, handler Handler, userData any) {
	for i := range s.slots {
		s.slots[i] = SlotContext{Owner: owner, UserData: userData, Handler: handler}
	}
}

// ClearSession wipes the slot contexts after capture stops.
func (s *Set) ClearSession() {
	for i := range s.slots {
		s.slots[i] = SlotContext{}
	}
}

// Frame returns the descriptor at slot i. The pointer stays valid until the
// next rebuild or teardown.
func (s *Set) Frame(i int) *transport.FrameDescriptor {
	return &s.frames[i]
}

// Slot returns the side-table context at slot i.
func (s *Set) Slot(i int) *SlotContext {
	return &s.slots[i]
}

// FrameCount returns the number of descriptors.
func (s *Set) FrameCount() uint32 {
	return uint32(len(s.frames))
}

// Payload returns the per-frame payload size the set was built for.
func (s *Set) Payload() uint32 {
	return s.payload
}

// AllocationSize returns the slab size in bytes, 0 when unallocated.
func (s *Set) AllocationSize() int64 {
	return s.block.Size()
}

// Alignment returns the alignment of the current allocation.
func (s *Set) Alignment() int64 {
	return s.alignment
}

// Allocated reports whether the set has live descriptors over live memory.
func (s *Set) Allocated() bool {
	return s.block != nil && !s.block.Freed() && len(s.frames) > 0
}

// Announced reports whether the descriptors are registered with the
// transport.
func (s *Set) Announced() bool {
	return s.announced.Load()
}

// SetAnnounced records the announce state. Invariant: true only while every
// descriptor holds a live aligned buffer of at least payload bytes.
func (s *Set) SetAnnounced(v bool) {
	s.announced.Store(v)
}
