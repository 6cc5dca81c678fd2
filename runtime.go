package gencam

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/visiona/gencam/internal/transport"
)

// Runtime is the process-wide lifecycle of a transport runtime. Exactly one
// Runtime should exist per Transport; it is injected into Open rather than
// consulted through ambient global state, and its Init/Shutdown are meant to
// be called by the top-level application.
//
// Init is guarded by sync.Once, so concurrent first calls from independent
// goroutines are safe and the transport starts at most once.
type Runtime struct {
	tr         transport.Transport
	configPath string

	initOnce     sync.Once
	initErr      error
	ready        atomic.Bool
	shutdownOnce sync.Once
}

// NewRuntime wraps a transport in a lifecycle object. configPath is passed
// through to the transport's startup; empty means environment defaults.
func NewRuntime(tr Transport, configPath string) *Runtime {
	return &Runtime{tr: tr, configPath: configPath}
}

// Init starts the transport runtime. Idempotent: subsequent calls return the
// first call's result.
func (r *Runtime) Init() error {
	r.initOnce.Do(func() {
		if r.tr == nil {
			r.initErr = fmt.Errorf("gencam: runtime has no transport: %w", ErrBadParameter)
			return
		}
		if err := r.tr.Startup(r.configPath); err != nil {
			r.initErr = fmt.Errorf("gencam: transport startup: %w", err)
			return
		}
		r.ready.Store(true)
		slog.Info("gencam: transport runtime started", "config_path", r.configPath)
	})
	return r.initErr
}

// Shutdown stops the transport runtime. Best effort and idempotent; cameras
// opened through this runtime must be closed first.
func (r *Runtime) Shutdown() {
	r.shutdownOnce.Do(func() {
		if !r.ready.Swap(false) {
			return
		}
		r.tr.Shutdown()
		slog.Info("gencam: transport runtime stopped")
	})
}

// Ready reports whether Init has completed successfully.
func (r *Runtime) Ready() bool {
	return r.ready.Load()
}

// ListCameras enumerates the devices currently reachable through the
// transport. Fails with ErrNotInitialized before Init and with ErrNotFound
// when no device answers.
func (r *Runtime) ListCameras() ([]DeviceInfo, error) {
	if !r.Ready() {
		return nil, fmt.Errorf("gencam: list cameras: %w", ErrNotInitialized)
	}
	infos, err := r.tr.EnumerateDevices()
	if err != nil {
		return nil, fmt.Errorf("gencam: list cameras: %w", err)
	}
	if len(infos) == 0 {
		return nil, fmt.Errorf("gencam: no cameras found: %w", ErrNotFound)
	}
	return infos, nil
}
