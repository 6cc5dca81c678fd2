// Package acquire implements the capture-loop state machine: announce,
// queue, start, the completion relay that re-queues filled frames, and the
// stop sequence that revokes everything.
//
// This package is INTERNAL - clients use the Camera façade in the parent
// package.
package acquire

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/visiona/gencam/internal/buffer"
	"github.com/visiona/gencam/internal/transport"
)

// State is the capture-loop state attached to a device handle.
type State int

const (
	// Idle: no buffers announced, no capture running.
	Idle State = iota
	// Announced: every descriptor is registered with the transport.
	Announced
	// Streaming: the capture engine is willing to deliver frames.
	Streaming
	// Acquiring: the device is actively exposing and producing frames.
	Acquiring
)

// String returns a human-readable string representation of the state.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Announced:
		return "announced"
	case Streaming:
		return "streaming"
	case Acquiring:
		return "acquiring"
	default:
		return "unknown"
	}
}

// Command names run against the device module.
const (
	cmdAcquisitionStart = "AcquisitionStart"
	cmdAcquisitionStop  = "AcquisitionStop"
)

// Revoke retry pacing. Revocation is retried indefinitely: failure means
// frames are still in flight, and the stop sequence blocks until the
// transport confirms none are.
const (
	revokeRetryDelay    = time.Millisecond
	revokeRetryMaxDelay = 100 * time.Millisecond
)

// Engine drives the capture state machine for one device. It owns no
// locking: the caller must never reconfigure, start or stop concurrently
// with itself. The single concurrency boundary designed in is the
// completion relay, which runs on transport goroutines and may race a stop
// in progress; see onComplete. The lifecycle flags are atomic so state and
// stats snapshots can be read from any goroutine, including concurrent with
// a Stop.
//
// Goroutine topology:
//   - 0 owned: Start and Stop run entirely on the caller's goroutine.
//   - N foreign: the transport's completion threads invoke onComplete.
type Engine struct {
	tr    transport.Transport
	dev   transport.DeviceRef
	set   *buffer.Set
	owner any // capture handle exposed to slot contexts

	streaming atomic.Bool
	acquiring atomic.Bool

	session atomic.Pointer[session]
}

// session is the per-capture-session state: created fresh on every Start so
// sessions stay independent and concurrent devices never share bookkeeping.
type session struct {
	id        string
	startedAt time.Time

	completed       atomic.Uint64
	requeueFailures atomic.Uint64
}

// SessionStats is a snapshot of the current (or last) capture session.
type SessionStats struct {
	// SessionID identifies the capture session.
	SessionID string
	// StartedAt is when the session started.
	StartedAt time.Time
	// FramesCompleted counts completions relayed to the user callback.
	FramesCompleted uint64
	// RequeueFailures counts descriptors that could not be re-queued after a
	// completion, typically because a stop flushed the queue concurrently.
	RequeueFailures uint64
}

// New returns an engine for the given device and buffer set. owner is the
// opaque handle stored in every slot context for the session's duration.
func New(tr transport.Transport, dev transport.DeviceRef, set *buffer.Set, owner any) *Engine {
	return &Engine{tr: tr, dev: dev, set: set, owner: owner}
}

// Streaming reports whether the capture engine is started.
func (e *Engine) Streaming() bool { return e.streaming.Load() }

// Acquiring reports whether the device is actively producing frames.
// Invariant: Acquiring implies Streaming.
func (e *Engine) Acquiring() bool { return e.acquiring.Load() }

// State derives the capture state from the streaming/acquiring flags and the
// announce state of the buffer set.
func (e *Engine) State() State {
	switch {
	case e.acquiring.Load():
		return Acquiring
	case e.streaming.Load():
		return Streaming
	case e.set.Announced():
		return Announced
	default:
		return Idle
	}
}

// Stats returns a snapshot of the current session's counters. Zero value
// when no session has ever run.
func (e *Engine) Stats() SessionStats {
	sess := e.session.Load()
	if sess == nil {
		return SessionStats{}
	}
	return SessionStats{
		SessionID:       sess.id,
		StartedAt:       sess.startedAt,
		FramesCompleted: sess.completed.Load(),
		RequeueFailures: sess.requeueFailures.Load(),
	}
}

// Start walks the forward transitions Idle -> Announced -> Streaming ->
// Acquiring: reconcile the buffer set against the device's current payload
// and alignment, announce every descriptor, start the capture engine, bind
// the session contexts, queue every descriptor, then run the
// acquisition-start command. Any failure partway unwinds through Stop and
// surfaces the triggering error, including a failing acquisition-start
// command (the transport's error is passed through, not collapsed to a
// generic fault).
func (e *Engine) Start(handler buffer.Handler, userData any) error {
	if e.streaming.Load() || e.acquiring.Load() {
		return fmt.Errorf("acquire: start: %w", transport.ErrBusy)
	}
	if handler == nil {
		return fmt.Errorf("acquire: start: nil callback: %w", transport.ErrBadParameter)
	}
	if !e.set.Allocated() || e.set.FrameCount() == 0 {
		return fmt.Errorf("acquire: start without frame buffers: %w", transport.ErrResources)
	}

	// The stream's alignment may have changed since the buffers were built
	// (stream features are writable between sessions), so every start
	// re-derives it and rebuilds only when the reconciliation says so.
	if err := e.Reconfigure(e.set.FrameCount()); err != nil {
		return err
	}

	sess := &session{id: uuid.New().String(), startedAt: time.Now()}
	e.session.Store(sess)

	slog.Info("acquire: starting capture",
		"session", sess.id,
		"frames", e.set.FrameCount(),
		"payload_bytes", e.set.Payload(),
	)

	count := int(e.set.FrameCount())
	for i := 0; i < count; i++ {
		if err := e.tr.AnnounceBuffer(e.dev, e.set.Frame(i)); err != nil {
			// Descriptors 0..i-1 are out; revoke them before surfacing.
			e.set.SetAnnounced(i > 0)
			e.unwind("announce", err)
			return fmt.Errorf("acquire: announce slot %d: %w", i, err)
		}
	}
	e.set.SetAnnounced(true)

	if err := e.tr.StartCaptureEngine(e.dev); err != nil {
		e.unwind("capture engine start", err)
		return fmt.Errorf("acquire: capture engine start: %w", err)
	}
	e.streaming.Store(true)

	e.set.BindSession(e.owner, handler, userData)

	for i := 0; i < count; i++ {
		if err := e.tr.QueueBuffer(e.dev, e.set.Frame(i), e.onComplete); err != nil {
			e.unwind("queue", err)
			return fmt.Errorf("acquire: queue slot %d: %w", i, err)
		}
	}

	if err := e.tr.RunCommand(e.dev, transport.ModuleDevice, cmdAcquisitionStart); err != nil {
		e.unwind(cmdAcquisitionStart, err)
		return fmt.Errorf("acquire: %s: %w", cmdAcquisitionStart, err)
	}
	e.acquiring.Store(true)

	slog.Info("acquire: capture running", "session", sess.id)
	return nil
}

func (e *Engine) unwind(stage string, cause error) {
	slog.Error("acquire: start failed, unwinding",
		"stage", stage,
		"error", cause,
	)
	if err := e.Stop(); err != nil {
		slog.Error("acquire: unwind stop failed", "stage", stage, "error", err)
	}
}

// Stop reverses whatever forward transitions have happened and is tolerant
// of any starting state; stopping an idle engine is a no-op. An acquisition
// -stop or capture-engine-end failure is propagated with the state left as
// it was, so the caller can retry. Past those two, the queue is flushed and
// revoke-all is retried until the transport confirms no frame is in flight.
func (e *Engine) Stop() error {
	if !e.streaming.Load() && !e.acquiring.Load() && !e.set.Announced() {
		return nil
	}

	if e.acquiring.Load() {
		if err := e.tr.RunCommand(e.dev, transport.ModuleDevice, cmdAcquisitionStop); err != nil {
			return fmt.Errorf("acquire: %s: %w", cmdAcquisitionStop, err)
		}
		e.acquiring.Store(false)
	}

	if e.streaming.Load() {
		if err := e.tr.EndCaptureEngine(e.dev); err != nil {
			return fmt.Errorf("acquire: capture engine end: %w", err)
		}
		e.streaming.Store(false)
	}

	e.tr.FlushQueue(e.dev)
	e.revokeAll()
	e.set.SetAnnounced(false)
	e.set.ClearSession()

	if sess := e.session.Load(); sess != nil {
		slog.Info("acquire: capture stopped",
			"session", sess.id,
			"frames_completed", sess.completed.Load(),
			"requeue_failures", sess.requeueFailures.Load(),
			"uptime", time.Since(sess.startedAt),
		)
	}
	return nil
}

// revokeAll spin-retries buffer revocation with bounded backoff. No timeout
// and no cancellation: a transport that never lets go of its frames hangs
// the caller here, an accepted risk of the stop contract.
func (e *Engine) revokeAll() {
	delay := revokeRetryDelay
	for attempt := 1; ; attempt++ {
		err := e.tr.RevokeAllBuffers(e.dev)
		if err == nil {
			if attempt > 1 {
				slog.Info("acquire: buffers revoked", "attempts", attempt)
			}
			return
		}
		slog.Warn("acquire: buffer revoke failed, retrying",
			"attempt", attempt,
			"retry_in", delay,
			"error", err,
		)
		time.Sleep(delay)
		if delay < revokeRetryMaxDelay {
			delay *= 2
		}
	}
}

// onComplete is the relay the transport invokes once per completed frame,
// on a transport-owned goroutine. It reads the slot context, hands the frame
// to the user callback, restores the context regardless of what the callback
// did to it, and re-submits the descriptor so capture continues without
// gaps.
//
// The relay may race a Stop in progress on another goroutine: once the stop
// has flushed the queue, the re-queue here fails and is deliberately
// swallowed at debug level rather than surfaced.
func (e *Engine) onComplete(dev transport.DeviceRef, stream transport.StreamRef, frame *transport.FrameDescriptor) {
	slot := e.set.Slot(frame.Index)
	saved := *slot

	if saved.Handler != nil {
		saved.Handler(stream, frame, saved.UserData)
	}

	// Callers are forbidden from mutating the slot context; restore it so a
	// misbehaving callback cannot corrupt the re-queue bookkeeping.
	*slot = saved

	sess := e.session.Load()
	if sess != nil {
		sess.completed.Add(1)
	}

	if err := e.tr.QueueBuffer(e.dev, frame, e.onComplete); err != nil {
		if sess != nil {
			sess.requeueFailures.Add(1)
		}
		slog.Debug("acquire: requeue after completion failed",
			"slot", frame.Index,
			"error", err,
		)
	}
}

// Reconfigure reconciles the buffer set against the device's current payload
// size and alignment for the requested slot count, reallocating only when
// something relevant changed. Refused while capture is active.
func (e *Engine) Reconfigure(count uint32) error {
	if e.streaming.Load() || e.acquiring.Load() {
		return fmt.Errorf("acquire: reconfigure: %w", transport.ErrBusy)
	}
	if count == 0 {
		return fmt.Errorf("acquire: reconfigure with zero frames: %w", transport.ErrBadParameter)
	}
	// Defensive: clears a leftover announce from a partially failed start.
	if err := e.Stop(); err != nil {
		return err
	}

	payload, err := e.tr.PayloadSize(e.dev)
	if err != nil {
		return fmt.Errorf("acquire: payload size query: %w", err)
	}
	if payload == 0 {
		return fmt.Errorf("acquire: device reports zero payload: %w", transport.ErrInternalFault)
	}

	// Alignment is a property of the active stream configuration, so it is
	// re-derived on every reconfigure; fallback 1 when unreported.
	align, err := e.tr.BufferAlignment(e.dev)
	if err != nil || align < 1 {
		if err != nil {
			slog.Warn("acquire: alignment query failed, assuming 1", "error", err)
		}
		align = 1
	}

	plan := e.set.Plan(payload, align, count)
	switch plan {
	case buffer.ActionNone:
		slog.Debug("acquire: buffers already match",
			"payload_bytes", payload,
			"alignment", align,
			"frames", count,
		)
		return nil
	case buffer.ActionReplaceFrames:
		if err := e.set.RebuildFrames(payload, count); err != nil {
			return err
		}
	case buffer.ActionReplaceAll:
		if err := e.set.Teardown(true); err != nil {
			return err
		}
		if err := e.set.Build(payload, align, count); err != nil {
			return err
		}
	}

	slog.Info("acquire: buffers reconfigured",
		"action", plan.String(),
		"payload_bytes", payload,
		"alignment", align,
		"frames", count,
		"allocation_bytes", e.set.AllocationSize(),
	)
	return nil
}
