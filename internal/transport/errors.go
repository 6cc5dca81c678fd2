package transport

import "errors"

// Error taxonomy shared by gencam and transport implementations. These are
// kinds, not transport-specific codes: a concrete transport wraps its native
// errors around one of these sentinels so callers can match with errors.Is
// while still reading the native description.
var (
	// ErrNotInitialized indicates the transport runtime has not been started,
	// or a handle has already been closed.
	ErrNotInitialized = errors.New("runtime not initialized")
	// ErrNotFound indicates no matching device exists.
	ErrNotFound = errors.New("device not found")
	// ErrBadParameter indicates a zero or otherwise invalid numeric input,
	// rejected before any transport call.
	ErrBadParameter = errors.New("bad parameter")
	// ErrBusy indicates the operation is forbidden while the capture engine
	// is streaming or acquiring.
	ErrBusy = errors.New("busy: capture active")
	// ErrResources indicates a buffer or handle allocation failure.
	ErrResources = errors.New("resources unavailable")
	// ErrInternalFault indicates an invariant violation, e.g. binning axes
	// that should always move together reporting divergent values.
	ErrInternalFault = errors.New("internal fault")
	// ErrInvalidValue indicates a value outside the feature's valid range.
	ErrInvalidValue = errors.New("invalid value")
	// ErrNotSupported indicates the device does not implement the feature.
	ErrNotSupported = errors.New("not supported")
	// ErrTimeout indicates the transport gave up waiting on the device.
	ErrTimeout = errors.New("timeout")
)

// ErrorKind is the classification of an error for telemetry and retry
// decisions.
type ErrorKind int

const (
	// KindUsage covers caller mistakes: bad parameters, invalid values,
	// calls against an uninitialized runtime.
	KindUsage ErrorKind = iota
	// KindState covers sequencing violations: busy, not found.
	KindState
	// KindResource covers allocation and exhaustion failures.
	KindResource
	// KindTransient covers failures worth retrying: timeouts, busy revokes.
	KindTransient
	// KindFault covers invariant violations and unclassified errors.
	KindFault
)

// String returns a human-readable string representation of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindUsage:
		return "usage"
	case KindState:
		return "state"
	case KindResource:
		return "resource"
	case KindTransient:
		return "transient"
	case KindFault:
		return "fault"
	default:
		return "fault"
	}
}

// Classify maps an error onto its kind. Unknown and wrapped foreign transport
// errors classify as KindFault unless they match a taxonomy sentinel.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return KindUsage
	case errors.Is(err, ErrBadParameter), errors.Is(err, ErrInvalidValue),
		errors.Is(err, ErrNotInitialized), errors.Is(err, ErrNotSupported):
		return KindUsage
	case errors.Is(err, ErrBusy), errors.Is(err, ErrNotFound):
		return KindState
	case errors.Is(err, ErrResources):
		return KindResource
	case errors.Is(err, ErrTimeout):
		return KindTransient
	default:
		return KindFault
	}
}
