package gencam

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/visiona/gencam/internal/acquire"
	"github.com/visiona/gencam/internal/buffer"
	"github.com/visiona/gencam/internal/transport"
)

const (
	adjustPacketSizeCommand = "GVSPAdjustPacketSize"
	deviceResetCommand      = "DeviceReset"
)

// Camera is the handle to one opened device. It owns the frame buffer set
// and the capture engine, and is exclusively owned by the caller: none of
// its methods may be called concurrently with each other, except that the
// capture callback runs on transport goroutines while Stop is permitted on
// the caller's goroutine.
type Camera struct {
	rt     *Runtime
	tr     transport.Transport
	dev    transport.DeviceRef
	id     string
	frames uint32

	set    *buffer.Set
	engine *acquire.Engine

	closed bool
}

// Open opens a camera by identifying string and provisions its initial frame
// buffer set sized to the current payload. An empty id enumerates devices
// and picks the first. The runtime must already be initialized.
func Open(rt *Runtime, id string, cfg OpenConfig) (*Camera, error) {
	if rt == nil || !rt.Ready() {
		return nil, fmt.Errorf("gencam: open: %w", ErrNotInitialized)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if id == "" {
		infos, err := rt.ListCameras()
		if err != nil {
			return nil, err
		}
		id = infos[0].ID
	}

	dev, err := rt.tr.OpenDevice(id, cfg.AccessMode)
	if err != nil {
		return nil, fmt.Errorf("gencam: open %q: %w", id, err)
	}

	cam := &Camera{
		rt:     rt,
		tr:     rt.tr,
		dev:    dev,
		id:     id,
		frames: cfg.FrameCount,
		set:    buffer.NewSet(),
	}
	cam.engine = acquire.New(rt.tr, dev, cam.set, cam)

	if err := cam.tunePacketSize(cfg.PacketSize); err != nil {
		_ = rt.tr.CloseDevice(dev)
		return nil, err
	}

	if err := cam.engine.Reconfigure(cfg.FrameCount); err != nil {
		_ = rt.tr.CloseDevice(dev)
		return nil, fmt.Errorf("gencam: open %q: %w", id, err)
	}

	slog.Info("gencam: camera opened",
		"id", id,
		"access", cfg.AccessMode.String(),
		"frames", cfg.FrameCount,
		"payload_bytes", cam.set.Payload(),
		"alignment", cam.set.Alignment(),
	)
	return cam, nil
}

// tunePacketSize runs the stream's packet-size negotiation command and polls
// until it reports done, giving up on the first poll failure. How a tuning
// failure is treated is a configured policy, not a hard-coded choice.
func (c *Camera) tunePacketSize(policy PacketSizePolicy) error {
	if policy == PacketSizeSkip {
		return nil
	}

	err := c.tr.RunCommand(c.dev, transport.ModuleStream, adjustPacketSizeCommand)
	if err == nil {
		for {
			done, pollErr := c.tr.CommandDone(c.dev, transport.ModuleStream, adjustPacketSizeCommand)
			if pollErr != nil {
				err = pollErr
				break
			}
			if done {
				break
			}
			time.Sleep(time.Millisecond)
		}
	}

	if err == nil {
		return nil
	}
	if policy == PacketSizeRequired {
		return fmt.Errorf("gencam: packet size tuning: %w", err)
	}
	slog.Warn("gencam: packet size tuning failed, continuing",
		"id", c.id,
		"error", err,
	)
	return nil
}

func (c *Camera) ensureOpen() error {
	if c == nil || c.closed {
		return fmt.Errorf("gencam: camera closed: %w", ErrNotInitialized)
	}
	return nil
}

// ID returns the identifying string the camera was opened with.
func (c *Camera) ID() string { return c.id }

// State returns the current capture state.
func (c *Camera) State() CaptureState { return c.engine.State() }

// Streaming reports whether the capture engine is active.
func (c *Camera) Streaming() bool { return c.engine.Streaming() }

// Acquiring reports whether the device is actively producing frames.
func (c *Camera) Acquiring() bool { return c.engine.Acquiring() }

// PayloadSize queries the bytes needed for one complete frame at the current
// configuration.
func (c *Camera) PayloadSize() (uint32, error) {
	if err := c.ensureOpen(); err != nil {
		return 0, err
	}
	return c.tr.PayloadSize(c.dev)
}

// FrameCount returns the number of frame buffers provisioned.
func (c *Camera) FrameCount() uint32 { return c.frames }

// SetFrameCount changes the number of frame buffers and rebuilds the set.
// Refused with ErrBusy while capture is active.
func (c *Camera) SetFrameCount(count uint32) error {
	if err := c.ensureOpen(); err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("gencam: frame count 0: %w", ErrBadParameter)
	}
	if err := c.engine.Reconfigure(count); err != nil {
		return err
	}
	c.frames = count
	return nil
}

// Start begins continuous capture: every filled buffer is handed to cb and
// then automatically re-queued until Stop. userData is passed through to cb
// unchanged. The callback runs on transport goroutines and must not block
// longer than a frame period, must not retain frame.Buffer past its return,
// and must not call Start, Stop or Close.
func (c *Camera) Start(cb CaptureCallback, userData any) error {
	if err := c.ensureOpen(); err != nil {
		return err
	}
	if cb == nil {
		return fmt.Errorf("gencam: start: nil callback: %w", ErrBadParameter)
	}
	handler := func(stream transport.StreamRef, frame *transport.FrameDescriptor, user any) {
		cb(c, stream, frame, user)
	}
	return c.engine.Start(handler, userData)
}

// Stop halts capture and revokes all buffers. Idempotent; stopping an idle
// camera succeeds immediately.
func (c *Camera) Stop() error {
	if err := c.ensureOpen(); err != nil {
		return err
	}
	return c.engine.Stop()
}

// Close stops capture, frees the frame buffers and closes the device. A
// failure at any stage is surfaced without completing the later stages, so
// the camera can be closed again after the cause clears. Closing an already
// closed camera is a no-op.
func (c *Camera) Close() error {
	if c == nil || c.closed {
		return nil
	}
	if err := c.engine.Stop(); err != nil {
		return err
	}
	if err := c.set.Teardown(true); err != nil {
		return err
	}
	if err := c.tr.CloseDevice(c.dev); err != nil {
		return fmt.Errorf("gencam: close %q: %w", c.id, err)
	}
	c.closed = true
	slog.Info("gencam: camera closed", "id", c.id)
	return nil
}

// Reset issues a device reset. The handle is unusable afterwards regardless
// of the command's outcome, so the camera is unconditionally torn down and
// the command's error, if any, is returned.
func (c *Camera) Reset() error {
	if err := c.ensureOpen(); err != nil {
		return err
	}
	cmdErr := c.tr.RunCommand(c.dev, transport.ModuleDevice, deviceResetCommand)

	if err := c.engine.Stop(); err != nil {
		slog.Warn("gencam: stop during reset failed", "id", c.id, "error", err)
	}
	if err := c.set.Teardown(true); err != nil {
		slog.Warn("gencam: buffer teardown during reset failed", "id", c.id, "error", err)
	}
	if err := c.tr.CloseDevice(c.dev); err != nil {
		slog.Warn("gencam: device close during reset failed", "id", c.id, "error", err)
	}
	c.closed = true

	if cmdErr != nil {
		return fmt.Errorf("gencam: %s: %w", deviceResetCommand, cmdErr)
	}
	return nil
}

// Stats returns a snapshot of the camera's capture counters and buffer
// provisioning. Safe to call from any goroutine while capture runs.
func (c *Camera) Stats() CameraStats {
	sess := c.engine.Stats()
	stats := CameraStats{
		ID:              c.id,
		SessionID:       sess.SessionID,
		State:           c.engine.State(),
		FramesCompleted: sess.FramesCompleted,
		RequeueFailures: sess.RequeueFailures,
		FrameCount:      c.set.FrameCount(),
		PayloadBytes:    c.set.Payload(),
		AllocationBytes: c.set.AllocationSize(),
		Alignment:       c.set.Alignment(),
	}
	if !sess.StartedAt.IsZero() {
		stats.Uptime = time.Since(sess.StartedAt)
	}
	return stats
}

// reconfigure rebuilds the buffer set after a payload-affecting parameter
// change, keeping the provisioned frame count.
func (c *Camera) reconfigure() error {
	return c.engine.Reconfigure(c.frames)
}

// busyGuard rejects configuration changes while capture is active, before
// any transport write happens.
func (c *Camera) busyGuard() error {
	if c.engine.Streaming() || c.engine.Acquiring() {
		return fmt.Errorf("gencam: capture active: %w", ErrBusy)
	}
	return nil
}
