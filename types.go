package gencam

import (
	"fmt"
	"time"
)

// CaptureCallback is invoked once per completed frame, on a transport-owned
// goroutine. frame.Buffer is only valid until the callback returns; copy the
// pixels out if they are needed afterwards. The callback must not mutate the
// descriptor's bookkeeping and must not call back into the camera's
// lifecycle methods.
type CaptureCallback func(cam *Camera, stream StreamRef, frame *FrameDescriptor, userData any)

// PacketSizePolicy decides how a failed packet-size negotiation during Open
// is treated.
type PacketSizePolicy int

const (
	// PacketSizeBestEffort logs a warning and continues. Default.
	PacketSizeBestEffort PacketSizePolicy = iota
	// PacketSizeRequired aborts Open when the negotiation fails.
	PacketSizeRequired
	// PacketSizeSkip runs no negotiation at all.
	PacketSizeSkip
)

// String returns a human-readable string representation of the policy.
func (p PacketSizePolicy) String() string {
	switch p {
	case PacketSizeBestEffort:
		return "best-effort"
	case PacketSizeRequired:
		return "required"
	case PacketSizeSkip:
		return "skip"
	default:
		return "unknown"
	}
}

// DefaultFrameCount is the number of frame buffers provisioned when
// OpenConfig leaves FrameCount zero.
const DefaultFrameCount = 4

// OpenConfig configures Open. The zero value is usable: exclusive access,
// DefaultFrameCount buffers, best-effort packet-size negotiation.
type OpenConfig struct {
	// FrameCount is the number of frame buffers to provision. 0 means
	// DefaultFrameCount.
	FrameCount uint32
	// AccessMode is the device access mode.
	AccessMode AccessMode
	// PacketSize is the packet-size negotiation policy.
	PacketSize PacketSizePolicy
}

func (c *OpenConfig) validate() error {
	if c.PacketSize < PacketSizeBestEffort || c.PacketSize > PacketSizeSkip {
		return fmt.Errorf("gencam: unknown packet size policy %d: %w", c.PacketSize, ErrBadParameter)
	}
	return nil
}

func (c *OpenConfig) applyDefaults() {
	if c.FrameCount == 0 {
		c.FrameCount = DefaultFrameCount
	}
}

// CameraStats is a snapshot of a camera's capture counters and buffer
// provisioning.
type CameraStats struct {
	// ID is the camera's identifying string.
	ID string
	// SessionID identifies the current (or last) capture session; empty
	// before the first Start.
	SessionID string
	// State is the capture state at snapshot time.
	State CaptureState
	// FramesCompleted counts frames relayed to the capture callback in the
	// current session.
	FramesCompleted uint64
	// RequeueFailures counts descriptors that could not be re-queued after
	// completion, typically because a stop raced the relay.
	RequeueFailures uint64
	// Uptime is the time since the session started.
	Uptime time.Duration
	// FrameCount is the number of provisioned frame buffers.
	FrameCount uint32
	// PayloadBytes is the per-frame payload the buffers were built for.
	PayloadBytes uint32
	// AllocationBytes is the total buffer memory held.
	AllocationBytes int64
	// Alignment is the byte alignment of the allocation.
	Alignment int64
}
