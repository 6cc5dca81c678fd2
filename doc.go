// Package gencam is a synchronous-feeling camera control and capture library
// over an asynchronous GenTL-style transport. It handles device discovery,
// aligned frame buffer provisioning, the announce/queue/revoke buffer
// lifecycle, continuous capture with automatic buffer re-queueing, and a
// wide feature accessor surface (exposure, gain, geometry, binning,
// triggering, link throughput).
//
// # Quick Start
//
// Open the first camera, capture frames for a while, shut down:
//
//	rt := gencam.NewRuntime(tr, "") // tr: a Transport binding
//	if err := rt.Init(); err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Shutdown()
//
//	cam, err := gencam.Open(rt, "", gencam.OpenConfig{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer cam.Close()
//
//	err = cam.Start(func(cam *gencam.Camera, stream gencam.StreamRef, frame *gencam.FrameDescriptor, _ any) {
//	    // frame.Buffer holds the pixels; valid only until this returns.
//	    process(frame.Buffer, frame.FrameID)
//	}, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	time.Sleep(10 * time.Second)
//	if err := cam.Stop(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Capture Model
//
// The camera owns a fixed set of frame buffers carved out of one aligned
// allocation. Start announces every buffer to the transport, starts the
// capture engine, queues every buffer and issues the acquisition-start
// command. Each completed frame is handed to the callback and immediately
// re-queued, so capture runs gapless until Stop. Stop reverses everything
// and blocks until the transport has released every buffer.
//
// The capture state is observable via State:
//
//	StateIdle -> StateAnnounced -> StateStreaming -> StateAcquiring
//
// Failures during Start unwind to StateIdle automatically and surface the
// triggering error.
//
// # Reconfiguration
//
// Setters that change the frame payload (SetImageSize, SetBinningFactor,
// SetPixelFormat) and SetFrameCount rebuild the buffer set. They are refused
// with ErrBusy while capture is active. Rebuilds reuse the existing
// allocation whenever the new geometry still fits it and the alignment is
// unchanged; only growth or an alignment change reallocates.
//
// # Thread Safety
//
// A Camera is exclusively owned by the goroutine driving it: configuration,
// Start, Stop and Close must not be called concurrently with each other.
// The capture callback runs on transport-owned goroutines; it must not
// block for longer than a frame period, must not retain frame.Buffer past
// its return, and must not call back into the camera's lifecycle methods.
// Stats is the one method safe from any goroutine while capture runs.
//
// # Error Handling
//
// Every error wraps one of the package sentinels (ErrBusy, ErrResources,
// ErrInvalidValue, ...); match with errors.Is:
//
//	if err := cam.SetExposure(-1); errors.Is(err, gencam.ErrInvalidValue) {
//	    // rejected before touching the device
//	}
package gencam
