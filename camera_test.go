package gencam_test

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/visiona/gencam"
	"github.com/visiona/gencam/internal/transport"
)

func newTestRuntime(t *testing.T) (*transport.Sim, *gencam.Runtime) {
	t.Helper()
	sim := transport.NewSim()
	rt := gencam.NewRuntime(sim, "")
	if err := rt.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(rt.Shutdown)
	return sim, rt
}

func openTestCamera(t *testing.T, rt *gencam.Runtime, cfg gencam.OpenConfig) *gencam.Camera {
	t.Helper()
	cam, err := gencam.Open(rt, "", cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = cam.Close() })
	return cam
}

func hasCommand(sim *transport.Sim, name string) bool {
	for _, c := range sim.Commands {
		if c == name {
			return true
		}
	}
	return false
}

func TestRuntimeLifecycle(t *testing.T) {
	sim := transport.NewSim()
	rt := gencam.NewRuntime(sim, "")

	if _, err := rt.ListCameras(); !errors.Is(err, gencam.ErrNotInitialized) {
		t.Errorf("ListCameras before Init: got %v, want ErrNotInitialized", err)
	}
	if _, err := gencam.Open(rt, "", gencam.OpenConfig{}); !errors.Is(err, gencam.ErrNotInitialized) {
		t.Errorf("Open before Init: got %v, want ErrNotInitialized", err)
	}

	if err := rt.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if err := rt.Init(); err != nil {
		t.Errorf("repeated Init: got %v, want nil", err)
	}
	if !rt.Ready() {
		t.Error("Ready() = false after Init")
	}

	infos, err := rt.ListCameras()
	if err != nil {
		t.Fatalf("ListCameras failed: %v", err)
	}
	if len(infos) != 1 || infos[0].ID != "SIM-0" {
		t.Errorf("ListCameras = %+v, want one SIM-0", infos)
	}

	rt.Shutdown()
	rt.Shutdown()
	if rt.Ready() {
		t.Error("Ready() = true after Shutdown")
	}
}

func TestRuntimeInitFailureSticks(t *testing.T) {
	sim := transport.NewSim()
	injected := errors.New("driver missing")
	sim.FailStartup = injected
	rt := gencam.NewRuntime(sim, "")

	if err := rt.Init(); !errors.Is(err, injected) {
		t.Fatalf("Init: got %v, want injected error", err)
	}
	// Once guards the result: clearing the injection does not help.
	sim.FailStartup = nil
	if err := rt.Init(); !errors.Is(err, injected) {
		t.Errorf("repeated Init: got %v, want first result", err)
	}
}

// TestOpenDefaults validates the zero-config open path: first enumerated
// device, default frame count, buffers sized to the device payload, packet
// size negotiated best-effort.
func TestOpenDefaults(t *testing.T) {
	sim, rt := newTestRuntime(t)
	cam := openTestCamera(t, rt, gencam.OpenConfig{})

	if cam.ID() != "SIM-0" {
		t.Errorf("ID() = %q, want SIM-0", cam.ID())
	}
	if cam.FrameCount() != gencam.DefaultFrameCount {
		t.Errorf("FrameCount() = %d, want %d", cam.FrameCount(), gencam.DefaultFrameCount)
	}

	payload, err := cam.PayloadSize()
	if err != nil {
		t.Fatalf("PayloadSize failed: %v", err)
	}
	if payload != 64*64 {
		t.Errorf("PayloadSize() = %d, want %d", payload, 64*64)
	}

	stats := cam.Stats()
	if stats.PayloadBytes != payload {
		t.Errorf("buffers sized for %d bytes, device payload %d", stats.PayloadBytes, payload)
	}
	if stats.Alignment != 64 {
		t.Errorf("Alignment = %d, want 64", stats.Alignment)
	}
	if stats.AllocationBytes != 4*4096 {
		t.Errorf("AllocationBytes = %d, want %d", stats.AllocationBytes, 4*4096)
	}
	if stats.State != gencam.StateIdle {
		t.Errorf("State = %v, want StateIdle", stats.State)
	}

	if !hasCommand(sim, "GVSPAdjustPacketSize") {
		t.Error("packet size negotiation not run")
	}
}

func TestOpenPacketSizePolicies(t *testing.T) {
	t.Run("skip runs no command", func(t *testing.T) {
		sim, rt := newTestRuntime(t)
		openTestCamera(t, rt, gencam.OpenConfig{PacketSize: gencam.PacketSizeSkip})
		if hasCommand(sim, "GVSPAdjustPacketSize") {
			t.Error("negotiation ran despite PacketSizeSkip")
		}
	})

	t.Run("best effort tolerates failure", func(t *testing.T) {
		sim, rt := newTestRuntime(t)
		sim.FailCommand = map[string]error{"GVSPAdjustPacketSize": errors.New("unreachable")}
		openTestCamera(t, rt, gencam.OpenConfig{PacketSize: gencam.PacketSizeBestEffort})
	})

	t.Run("required aborts open", func(t *testing.T) {
		sim, rt := newTestRuntime(t)
		injected := errors.New("unreachable")
		sim.FailCommand = map[string]error{"GVSPAdjustPacketSize": injected}

		_, err := gencam.Open(rt, "", gencam.OpenConfig{PacketSize: gencam.PacketSizeRequired})
		if !errors.Is(err, injected) {
			t.Fatalf("Open: got %v, want injected error", err)
		}

		// The device must have been released on the failure path.
		sim.FailCommand = nil
		openTestCamera(t, rt, gencam.OpenConfig{})
	})

	t.Run("unknown policy rejected", func(t *testing.T) {
		_, rt := newTestRuntime(t)
		_, err := gencam.Open(rt, "", gencam.OpenConfig{PacketSize: gencam.PacketSizePolicy(99)})
		if !errors.Is(err, gencam.ErrBadParameter) {
			t.Errorf("Open: got %v, want ErrBadParameter", err)
		}
	})
}

func TestOpenUnknownDevice(t *testing.T) {
	_, rt := newTestRuntime(t)
	if _, err := gencam.Open(rt, "NOPE-1", gencam.OpenConfig{}); !errors.Is(err, gencam.ErrNotFound) {
		t.Errorf("Open unknown id: got %v, want ErrNotFound", err)
	}
}

// TestCaptureSession validates the end-to-end capture path through the
// public API.
//
// Scenario:
//  1. Open with 3 buffers, Start with a counting callback
//  2. Deliver 50 completions
//  3. Assert: 50 callbacks with the camera handle and user data intact,
//     Stats reflects the session
//  4. Stop, then Stop again (idempotent), Close
func TestCaptureSession(t *testing.T) {
	sim, rt := newTestRuntime(t)
	cam := openTestCamera(t, rt, gencam.OpenConfig{FrameCount: 3})

	var frames atomic.Uint64
	cb := func(got *gencam.Camera, stream gencam.StreamRef, frame *gencam.FrameDescriptor, user any) {
		frames.Add(1)
		if got != cam {
			t.Error("callback received a different camera handle")
		}
		if user != 42 {
			t.Errorf("userData = %v, want 42", user)
		}
		if len(frame.Buffer) != 64*64 {
			t.Errorf("frame buffer %d bytes, want %d", len(frame.Buffer), 64*64)
		}
	}

	if err := cam.Start(cb, 42); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if cam.State() != gencam.StateAcquiring {
		t.Errorf("State = %v, want StateAcquiring", cam.State())
	}
	if !cam.Streaming() || !cam.Acquiring() {
		t.Error("Streaming/Acquiring flags not set during capture")
	}

	if n := sim.Deliver(50); n != 50 {
		t.Fatalf("Deliver = %d, want 50", n)
	}
	if got := frames.Load(); got != 50 {
		t.Errorf("callbacks = %d, want 50", got)
	}

	stats := cam.Stats()
	if stats.FramesCompleted != 50 {
		t.Errorf("FramesCompleted = %d, want 50", stats.FramesCompleted)
	}
	if stats.SessionID == "" {
		t.Error("SessionID empty during capture")
	}

	if err := cam.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := cam.Stop(); err != nil {
		t.Errorf("repeated Stop: got %v, want nil", err)
	}
	if cam.State() != gencam.StateIdle {
		t.Errorf("State after Stop = %v, want StateIdle", cam.State())
	}
	// The buffers stay provisioned across a stop, ready for the next start.
	if got := cam.Stats().FrameCount; got != 3 {
		t.Errorf("FrameCount after Stop = %d, want 3", got)
	}

	if err := cam.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

// TestStatsConcurrentWithStop polls Stats and State from another goroutine
// while the owning goroutine stops capture. Passes trivially; exists for the
// race detector.
func TestStatsConcurrentWithStop(t *testing.T) {
	sim, rt := newTestRuntime(t)
	cam := openTestCamera(t, rt, gencam.OpenConfig{})

	if err := cam.Start(func(*gencam.Camera, gencam.StreamRef, *gencam.FrameDescriptor, any) {}, nil); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			_ = cam.Stats()
			_ = cam.State()
		}
	}()

	sim.Deliver(10)
	if err := cam.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	<-done

	if got := cam.Stats().FramesCompleted; got != 10 {
		t.Errorf("FramesCompleted = %d, want 10", got)
	}
}

func TestStartRejectsNilCallback(t *testing.T) {
	_, rt := newTestRuntime(t)
	cam := openTestCamera(t, rt, gencam.OpenConfig{})
	if err := cam.Start(nil, nil); !errors.Is(err, gencam.ErrBadParameter) {
		t.Errorf("Start(nil): got %v, want ErrBadParameter", err)
	}
}

// TestReconfigureOnImageSize validates that growing the image reallocates
// the buffers for the new payload, with the alignment re-derived from the
// stream.
func TestReconfigureOnImageSize(t *testing.T) {
	sim, rt := newTestRuntime(t)
	cam := openTestCamera(t, rt, gencam.OpenConfig{})
	queries := sim.AlignmentQueries

	if err := cam.SetImageSize(512, 256); err != nil {
		t.Fatalf("SetImageSize failed: %v", err)
	}

	payload, err := cam.PayloadSize()
	if err != nil {
		t.Fatalf("PayloadSize failed: %v", err)
	}
	if payload != 512*256 {
		t.Fatalf("PayloadSize() = %d, want %d", payload, 512*256)
	}

	stats := cam.Stats()
	if stats.PayloadBytes != payload {
		t.Errorf("buffers sized for %d bytes, device payload %d", stats.PayloadBytes, payload)
	}
	if stats.AllocationBytes != 4*512*256 {
		t.Errorf("AllocationBytes = %d, want %d", stats.AllocationBytes, 4*512*256)
	}
	if sim.AlignmentQueries <= queries {
		t.Error("alignment not re-derived on reconfigure")
	}
}

func TestSetFrameCount(t *testing.T) {
	_, rt := newTestRuntime(t)
	cam := openTestCamera(t, rt, gencam.OpenConfig{})
	slab := cam.Stats().AllocationBytes

	if err := cam.SetFrameCount(2); err != nil {
		t.Fatalf("SetFrameCount(2) failed: %v", err)
	}
	if cam.FrameCount() != 2 {
		t.Errorf("FrameCount() = %d, want 2", cam.FrameCount())
	}
	// Shrinking fits the existing slab; no reallocation.
	if got := cam.Stats().AllocationBytes; got != slab {
		t.Errorf("AllocationBytes = %d after shrink, want %d", got, slab)
	}

	if err := cam.SetFrameCount(0); !errors.Is(err, gencam.ErrBadParameter) {
		t.Errorf("SetFrameCount(0): got %v, want ErrBadParameter", err)
	}
}

func TestCloseIdempotent(t *testing.T) {
	_, rt := newTestRuntime(t)
	cam := openTestCamera(t, rt, gencam.OpenConfig{})

	if err := cam.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := cam.Close(); err != nil {
		t.Errorf("repeated Close: got %v, want nil", err)
	}

	if err := cam.Stop(); !errors.Is(err, gencam.ErrNotInitialized) {
		t.Errorf("Stop after Close: got %v, want ErrNotInitialized", err)
	}
	if _, err := cam.GetExposure(); !errors.Is(err, gencam.ErrNotInitialized) {
		t.Errorf("GetExposure after Close: got %v, want ErrNotInitialized", err)
	}
}

func TestCloseStopsCapture(t *testing.T) {
	sim, rt := newTestRuntime(t)
	cam := openTestCamera(t, rt, gencam.OpenConfig{})

	if err := cam.Start(func(*gencam.Camera, gencam.StreamRef, *gencam.FrameDescriptor, any) {}, nil); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := cam.Close(); err != nil {
		t.Fatalf("Close during capture failed: %v", err)
	}
	if sim.EngineRunning() {
		t.Error("capture engine still running after Close")
	}
	if got := len(sim.Announced()); got != 0 {
		t.Errorf("announced buffers after Close = %d, want 0", got)
	}

	// Device released: the camera can be opened again.
	openTestCamera(t, rt, gencam.OpenConfig{})
}

// TestReset validates that a reset issues the device command and tears the
// handle down unconditionally, surfacing the command's error if any.
func TestReset(t *testing.T) {
	t.Run("clean reset", func(t *testing.T) {
		sim, rt := newTestRuntime(t)
		cam := openTestCamera(t, rt, gencam.OpenConfig{})

		if err := cam.Reset(); err != nil {
			t.Fatalf("Reset failed: %v", err)
		}
		if !hasCommand(sim, "DeviceReset") {
			t.Error("DeviceReset not issued")
		}
		if err := cam.Stop(); !errors.Is(err, gencam.ErrNotInitialized) {
			t.Errorf("Stop after Reset: got %v, want ErrNotInitialized", err)
		}
		// Teardown released the device even though the handle is dead.
		openTestCamera(t, rt, gencam.OpenConfig{})
	})

	t.Run("command failure still tears down", func(t *testing.T) {
		sim, rt := newTestRuntime(t)
		cam := openTestCamera(t, rt, gencam.OpenConfig{})
		injected := errors.New("no answer")
		sim.FailCommand = map[string]error{"DeviceReset": injected}

		if err := cam.Reset(); !errors.Is(err, injected) {
			t.Fatalf("Reset: got %v, want injected error", err)
		}
		if err := cam.Stop(); !errors.Is(err, gencam.ErrNotInitialized) {
			t.Errorf("Stop after failed Reset: got %v, want ErrNotInitialized", err)
		}
	})
}
