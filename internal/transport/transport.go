// Package transport defines the contract gencam requires from a GenTL-style
// camera transport runtime, plus the error taxonomy shared across the module.
//
// This package is INTERNAL - clients use the aliases re-exported by the parent
// package. Reason: allows internal refactoring without breaking changes.
package transport

import "time"

// AccessMode controls how a device is opened.
type AccessMode int

const (
	// AccessExclusive opens the device for exclusive read/write use.
	AccessExclusive AccessMode = iota
	// AccessRead opens the device read-only (monitoring).
	AccessRead
	// AccessFull opens the device with full shared access.
	AccessFull
)

// String returns a human-readable string representation of the access mode.
func (m AccessMode) String() string {
	switch m {
	case AccessExclusive:
		return "exclusive"
	case AccessRead:
		return "read"
	case AccessFull:
		return "full"
	default:
		return "unknown"
	}
}

// Module selects which feature module a command or feature access targets.
// Most features live on the device module; buffer alignment and packet-size
// tuning live on the stream module.
type Module int

const (
	// ModuleDevice targets the remote device's feature tree.
	ModuleDevice Module = iota
	// ModuleStream targets the transport stream's feature tree.
	ModuleStream
)

// DeviceInfo describes one enumerated camera.
type DeviceInfo struct {
	// ID is the transport-unique identifying string.
	ID string
	// Model is the device model name.
	Model string
	// Serial is the device serial number.
	Serial string
	// Streams is the number of stream channels the device exposes.
	Streams int
}

// DeviceRef is an opaque per-device reference issued by OpenDevice.
type DeviceRef interface {
	// DeviceID returns the identifying string of the opened device.
	DeviceID() string
}

// StreamRef is an opaque reference to the stream delivering completions.
type StreamRef interface {
	// StreamID returns the identifying string of the stream channel.
	StreamID() string
}

// FrameDescriptor is the transport-facing buffer handle announced to and
// filled by the transport. It deliberately carries no bookkeeping beyond the
// slot index: the per-session context lives in a side table owned by the
// frame buffer set, never inside the descriptor.
type FrameDescriptor struct {
	// Buffer is the aligned backing region the transport writes into.
	Buffer []byte
	// Index is the descriptor's slot in the owning buffer set.
	Index int

	// Fields below are written by the transport on completion.

	// FrameID is the transport-assigned monotonic frame identifier.
	FrameID uint64
	// Timestamp is when the transport completed the frame.
	Timestamp time.Time
	// Payload is the number of valid bytes written into Buffer.
	Payload uint32
	// Complete reports whether the frame was delivered without error.
	Complete bool
}

// CompletionFunc is invoked by the transport, on a transport-owned goroutine,
// once per completed frame descriptor.
type CompletionFunc func(dev DeviceRef, stream StreamRef, frame *FrameDescriptor)

// Transport is the collaborator contract required from the underlying camera
// transport runtime (GenTL-style SDK).
//
// Implementations must guarantee:
//   - Startup is safe to call once per process; Shutdown reverses it.
//   - AnnounceBuffer registers a descriptor for frame delivery; the memory
//     behind FrameDescriptor.Buffer stays owned by the caller.
//   - QueueBuffer submits an announced descriptor; the completion callback
//     runs on a transport goroutine, potentially concurrent with callers.
//   - RevokeAllBuffers may fail transiently while frames are in flight and
//     is expected to be retried by the caller.
//   - FlushQueue discards pending submissions without delivering them.
type Transport interface {
	// Startup initializes the transport runtime. configPath optionally points
	// at transport-layer search paths or a configuration file; empty means
	// environment defaults.
	Startup(configPath string) error
	// Shutdown tears the runtime down. Best effort; errors are not reported.
	Shutdown()

	// EnumerateDevices lists the cameras currently reachable.
	EnumerateDevices() ([]DeviceInfo, error)
	// OpenDevice opens a device by identifying string.
	OpenDevice(id string, mode AccessMode) (DeviceRef, error)
	// CloseDevice releases a device reference.
	CloseDevice(dev DeviceRef) error

	// PayloadSize reports the bytes needed for one complete frame at the
	// device's current resolution and pixel format.
	PayloadSize(dev DeviceRef) (uint32, error)
	// BufferAlignment reports the byte alignment announced buffers must honor.
	// Implementations return 1 when the stream does not constrain alignment.
	BufferAlignment(dev DeviceRef) (int64, error)

	// AnnounceBuffer registers a frame descriptor with the transport.
	AnnounceBuffer(dev DeviceRef, frame *FrameDescriptor) error
	// RevokeAllBuffers unregisters every announced descriptor.
	RevokeAllBuffers(dev DeviceRef) error
	// QueueBuffer submits an announced descriptor for the next frame.
	QueueBuffer(dev DeviceRef, frame *FrameDescriptor, onComplete CompletionFunc) error

	// StartCaptureEngine makes the stream willing to deliver frames.
	StartCaptureEngine(dev DeviceRef) error
	// EndCaptureEngine stops frame delivery.
	EndCaptureEngine(dev DeviceRef) error
	// FlushQueue discards descriptors submitted but not yet completed.
	FlushQueue(dev DeviceRef)

	// RunCommand executes a named command feature on the given module.
	RunCommand(dev DeviceRef, mod Module, name string) error
	// CommandDone polls whether a previously run command has finished.
	CommandDone(dev DeviceRef, mod Module, name string) (bool, error)

	// Scalar feature accessors by string name.

	GetInt(dev DeviceRef, mod Module, name string) (int64, error)
	SetInt(dev DeviceRef, mod Module, name string, value int64) error
	IntRange(dev DeviceRef, mod Module, name string) (min, max, step int64, err error)

	GetFloat(dev DeviceRef, mod Module, name string) (float64, error)
	SetFloat(dev DeviceRef, mod Module, name string, value float64) error
	FloatRange(dev DeviceRef, mod Module, name string) (min, max, step float64, err error)

	GetEnum(dev DeviceRef, mod Module, name string) (string, error)
	SetEnum(dev DeviceRef, mod Module, name string, value string) error
	// EnumRange returns the enumerated options of a feature and, for each
	// option, whether it is currently available.
	EnumRange(dev DeviceRef, mod Module, name string) (options []string, available []bool, err error)

	GetBool(dev DeviceRef, mod Module, name string) (bool, error)
	SetBool(dev DeviceRef, mod Module, name string, value bool) error
}
