package gencam

import (
	"github.com/visiona/gencam/internal/acquire"
	"github.com/visiona/gencam/internal/transport"
)

// Public API - re-export internal types and errors as the stable contract.

// CaptureState tracks the capture-loop state machine of a camera.
type CaptureState = acquire.State

const (
	// StateIdle: no buffers announced, no capture running.
	StateIdle = acquire.Idle
	// StateAnnounced: every frame buffer is registered with the transport.
	StateAnnounced = acquire.Announced
	// StateStreaming: the capture engine is delivering into announced buffers.
	StateStreaming = acquire.Streaming
	// StateAcquiring: the device is actively exposing and producing frames.
	StateAcquiring = acquire.Acquiring
)

// SessionStats is a snapshot of one capture session's counters.
type SessionStats = acquire.SessionStats

// Error taxonomy. Errors returned by this module wrap one of these
// sentinels; match with errors.Is.
var (
	ErrNotInitialized = transport.ErrNotInitialized
	ErrNotFound       = transport.ErrNotFound
	ErrBadParameter   = transport.ErrBadParameter
	ErrBusy           = transport.ErrBusy
	ErrResources      = transport.ErrResources
	ErrInternalFault  = transport.ErrInternalFault
	ErrInvalidValue   = transport.ErrInvalidValue
	ErrNotSupported   = transport.ErrNotSupported
	ErrTimeout        = transport.ErrTimeout
)
