package gencam

import "github.com/visiona/gencam/internal/transport"

// Transport is the collaborator contract gencam requires from the
// underlying GenTL-style camera runtime: enumeration, device open/close,
// payload and alignment queries, buffer announce/queue/revoke, capture
// engine control, command execution and scalar feature access by name.
//
// Bindings to a vendor SDK implement this interface.
type Transport = transport.Transport

// DeviceInfo describes one enumerated camera.
type DeviceInfo = transport.DeviceInfo

// DeviceRef is an opaque per-device reference issued by the transport.
type DeviceRef = transport.DeviceRef

// StreamRef is an opaque reference to the stream delivering completions.
type StreamRef = transport.StreamRef

// FrameDescriptor is the transport-facing buffer handle filled during
// capture.
type FrameDescriptor = transport.FrameDescriptor

// AccessMode controls how a device is opened.
type AccessMode = transport.AccessMode

const (
	// AccessExclusive opens the device for exclusive read/write use.
	AccessExclusive = transport.AccessExclusive
	// AccessRead opens the device read-only.
	AccessRead = transport.AccessRead
	// AccessFull opens the device with full shared access.
	AccessFull = transport.AccessFull
)
