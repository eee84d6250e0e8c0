// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"
	"fmt"
	"image/color"
	"sync"
	"time"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/molview/internal/logging"
)

// Common surface errors.
var (
	// ErrSurfaceUnavailable is returned when surface creation fails in the
	// preferred profile and in the degraded retry. 3D rendering is
	// unavailable; the host should fall back to a non-GPU placeholder.
	ErrSurfaceUnavailable = errors.New("render: surface unavailable in preferred and degraded profiles")

	// ErrRecoveryExhausted is returned after the bounded number of manual
	// recovery attempts failed. The only way forward is a full reload.
	ErrRecoveryExhausted = errors.New("render: context recovery attempts exhausted, reload required")

	// ErrDisposed is returned for operations on a disposed manager.
	ErrDisposed = errors.New("render: surface manager disposed")

	// ErrNotCreated is returned when lifecycle operations run before
	// Create succeeded.
	ErrNotCreated = errors.New("render: surface not created")
)

// maxRecoveryAttempts bounds manual recovery nudges after a context loss
// that never delivers an automatic restoration signal.
const maxRecoveryAttempts = 3

// recoveryBaseDelay is the delay before the first manual nudge; each
// further nudge doubles it.
const recoveryBaseDelay = 500 * time.Millisecond

// State is the lifecycle state of the drawing surface.
type State uint8

const (
	// StateUninitialized is the state before Create.
	StateUninitialized State = iota

	// StateActive means the surface holds valid GPU state and rendering
	// may proceed.
	StateActive

	// StateLost means the driver invalidated all GPU state; rendering and
	// resource creation are suspended.
	StateLost

	// StateRecovering means a restoration attempt is in flight.
	StateRecovering

	// StateDisposed is terminal: the manager was shut down deliberately.
	StateDisposed

	// StateFailed is terminal: recovery attempts were exhausted.
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateActive:
		return "active"
	case StateLost:
		return "lost"
	case StateRecovering:
		return "recovering"
	case StateDisposed:
		return "disposed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// PowerPreference selects the GPU power profile requested at creation.
type PowerPreference uint8

const (
	// PowerDefault lets the platform choose.
	PowerDefault PowerPreference = iota

	// PowerLowPower prefers the integrated GPU.
	PowerLowPower

	// PowerHighPerformance prefers the discrete GPU.
	PowerHighPerformance
)

// Config describes the requested surface parameters. The manager keeps the
// last-known configuration and reapplies it after a restore.
type Config struct {
	// Width and Height are the drawing-buffer dimensions in pixels.
	Width, Height int

	// PixelRatio scales CSS-style logical pixels to device pixels.
	PixelRatio float64

	// ClearColor is the background color.
	ClearColor color.RGBA

	// Antialias requests a multisampled surface.
	Antialias bool

	// Alpha requests an alpha channel in the drawing buffer.
	Alpha bool

	// Power is the requested power profile.
	Power PowerPreference

	// Format is the surface texture format; undefined lets the host pick.
	Format gputypes.TextureFormat
}

// DefaultConfig returns the preferred capability profile.
func DefaultConfig(width, height int) Config {
	return Config{
		Width:      width,
		Height:     height,
		PixelRatio: 1,
		ClearColor: color.RGBA{A: 0xff},
		Antialias:  true,
		Alpha:      true,
		Power:      PowerHighPerformance,
	}
}

// degraded returns the minimal profile used for the single creation retry.
func (c Config) degraded() Config {
	c.Antialias = false
	c.Alpha = false
	c.Power = PowerLowPower
	return c
}

// SurfaceDevice is the host-side platform surface. Implementations wrap
// the real thing (a wgpu surface, a browser canvas bridge).
type SurfaceDevice interface {
	// Configure applies surface parameters. Called at creation, after
	// every restore, and on resize. Must be idempotent.
	Configure(cfg Config) error

	// Restore is an explicit recovery nudge after a context loss. It must
	// be idempotent; actual restoration is still reported asynchronously
	// through Manager.HandleContextRestored.
	Restore() error

	// Capabilities reports what the surface supports.
	Capabilities() DeviceCapabilities

	// Release frees platform resources. Called once from Dispose.
	Release()
}

// Factory creates a platform surface for a capability profile. Returning
// an error makes the manager retry once with the degraded profile.
type Factory func(handle DeviceHandle, cfg Config) (SurfaceDevice, error)

// Observer receives surface lifecycle signals. Register once at
// construction, deregister on disposal.
type Observer interface {
	// SurfaceLost is delivered when GPU state became invalid. The
	// observer must suspend GPU-touching operations and drop references
	// to GPU resources.
	SurfaceLost()

	// SurfaceRestored is delivered after the surface came back. epoch is
	// the new generation counter; resources tagged with older epochs must
	// not be used.
	SurfaceRestored(epoch uint64)
}

// LossEvent carries an externally delivered context-loss notification.
//
// The manager must call AllowRestoration before returning, mirroring the
// browser contract where the default behavior of the loss event prevents
// any later restore.
type LossEvent struct {
	// Reason is free-text diagnostic detail from the host.
	Reason string

	allowRestore bool
}

// AllowRestoration opts in to a later context restore.
func (e *LossEvent) AllowRestoration() { e.allowRestore = true }

// RestorationAllowed reports whether AllowRestoration was called.
func (e *LossEvent) RestorationAllowed() bool { return e.allowRestore }

// Manager owns the drawing surface lifecycle. The zero value is not usable;
// call NewManager.
//
// The Manager handle outlives individual GPU contexts: a lost and restored
// context keeps the same Manager, with the epoch counter separating
// resources created before and after.
type Manager struct {
	mu       sync.Mutex
	handle   DeviceHandle
	device   SurfaceDevice
	cfg      Config
	state    State
	epoch    uint64
	attempts int

	observers []Observer
}

// NewManager returns a Manager in the Uninitialized state.
func NewManager() *Manager {
	return &Manager{state: StateUninitialized}
}

// Create attempts surface creation with the preferred profile, retrying
// once with a degraded profile. On success the manager is Active with
// epoch 1. Both failures produce ErrSurfaceUnavailable wrapping the
// degraded attempt's error; this is fatal for 3D rendering but the manager
// stays reusable for a later Create.
func (m *Manager) Create(handle DeviceHandle, factory Factory, cfg Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case StateDisposed:
		return ErrDisposed
	case StateUninitialized:
		// proceed
	default:
		return fmt.Errorf("render: Create called in state %s", m.state)
	}
	if factory == nil {
		return errors.New("render: nil surface factory")
	}

	device, err := factory(handle, cfg)
	if err != nil {
		logging.Logger().Warn("render: preferred surface profile failed, retrying degraded",
			"err", err)
		cfg = cfg.degraded()
		device, err = factory(handle, cfg)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSurfaceUnavailable, err)
		}
	}
	if err := device.Configure(cfg); err != nil {
		device.Release()
		return fmt.Errorf("%w: %v", ErrSurfaceUnavailable, err)
	}

	m.handle = handle
	m.device = device
	m.cfg = cfg
	m.state = StateActive
	m.epoch = 1
	m.attempts = 0
	logging.Logger().Info("render: surface created",
		"width", cfg.Width, "height", cfg.Height, "antialias", cfg.Antialias)
	return nil
}

// Device returns the live surface device, or nil outside the Active
// state. Callers must not retain it across a context loss.
func (m *Manager) Device() SurfaceDevice {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateActive {
		return nil
	}
	return m.device
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Active reports whether rendering may proceed this frame.
func (m *Manager) Active() bool { return m.State() == StateActive }

// Epoch returns the current GPU context generation. It starts at 1 after a
// successful Create and increases by one on every restore.
func (m *Manager) Epoch() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.epoch
}

// Config returns the last-known surface configuration.
func (m *Manager) Config() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}

// Capabilities reports the host surface capabilities; the zero value when
// no surface exists.
func (m *Manager) Capabilities() DeviceCapabilities {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.device == nil {
		return DeviceCapabilities{}
	}
	return m.device.Capabilities()
}

// Subscribe registers an observer for loss/restore signals.
func (m *Manager) Subscribe(o Observer) {
	if o == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, o)
}

// Unsubscribe removes a previously registered observer.
func (m *Manager) Unsubscribe(o Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.observers {
		if existing == o {
			m.observers = append(m.observers[:i], m.observers[i+1:]...)
			return
		}
	}
}

// snapshotObservers copies the observer list under the lock so callbacks
// run without holding it.
func (m *Manager) snapshotObservers() []Observer {
	out := make([]Observer, len(m.observers))
	copy(out, m.observers)
	return out
}

// HandleContextLost processes an externally delivered loss notification.
//
// It acknowledges the event (AllowRestoration) so a restore can follow,
// moves to Lost, and broadcasts SurfaceLost. Calls outside the Active
// state are ignored; the event is still acknowledged so a stray duplicate
// notification cannot block restoration.
func (m *Manager) HandleContextLost(e *LossEvent) {
	if e != nil {
		e.AllowRestoration()
	}

	m.mu.Lock()
	if m.state != StateActive {
		m.mu.Unlock()
		return
	}
	m.state = StateLost
	m.attempts = 0
	obs := m.snapshotObservers()
	reason := ""
	if e != nil {
		reason = e.Reason
	}
	m.mu.Unlock()

	logging.Logger().Warn("render: GPU context lost", "reason", reason)
	for _, o := range obs {
		o.SurfaceLost()
	}
}

// HandleContextRestored processes an externally delivered restoration
// notification. The epoch is incremented, the last-known configuration is
// reapplied, and SurfaceRestored is broadcast with the new epoch.
func (m *Manager) HandleContextRestored() error {
	m.mu.Lock()
	switch m.state {
	case StateLost, StateRecovering:
		// proceed
	case StateDisposed:
		m.mu.Unlock()
		return ErrDisposed
	default:
		m.mu.Unlock()
		return nil
	}
	if m.device == nil {
		m.mu.Unlock()
		return ErrNotCreated
	}

	m.epoch++
	epoch := m.epoch
	cfg := m.cfg
	device := m.device
	m.state = StateActive
	m.attempts = 0
	obs := m.snapshotObservers()
	m.mu.Unlock()

	if err := device.Configure(cfg); err != nil {
		// The surface came back but rejected its old configuration.
		// Treat as still lost; a manual recovery nudge may follow.
		m.mu.Lock()
		m.state = StateLost
		m.mu.Unlock()
		return fmt.Errorf("render: reconfigure after restore: %w", err)
	}

	logging.Logger().Info("render: GPU context restored", "epoch", epoch)
	for _, o := range obs {
		o.SurfaceRestored(epoch)
	}
	return nil
}

// AttemptRecovery issues one manual recovery nudge. The host calls it when
// no automatic restoration signal arrived within its retry window.
//
// Nudges are idempotent and bounded: after maxRecoveryAttempts the manager
// enters the terminal Failed state and returns ErrRecoveryExhausted, which
// the host surfaces as a user-visible "please reload" condition. Calls in
// any state other than Lost or Recovering are no-ops.
func (m *Manager) AttemptRecovery() error {
	m.mu.Lock()
	switch m.state {
	case StateLost, StateRecovering:
		// proceed
	default:
		m.mu.Unlock()
		return nil
	}
	if m.device == nil {
		m.mu.Unlock()
		return ErrNotCreated
	}
	if m.attempts >= maxRecoveryAttempts {
		m.state = StateFailed
		m.mu.Unlock()
		logging.Logger().Error("render: recovery attempts exhausted")
		return ErrRecoveryExhausted
	}
	m.attempts++
	attempt := m.attempts
	m.state = StateRecovering
	device := m.device
	m.mu.Unlock()

	logging.Logger().Info("render: manual recovery nudge", "attempt", attempt)
	if err := device.Restore(); err != nil {
		m.mu.Lock()
		if m.state == StateRecovering {
			m.state = StateLost
		}
		m.mu.Unlock()
		return fmt.Errorf("render: recovery nudge %d: %w", attempt, err)
	}
	return nil
}

// RecoveryDelay returns how long the host should wait before the next
// manual nudge: the base delay doubled per attempt already made.
func (m *Manager) RecoveryDelay() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return recoveryBaseDelay << uint(m.attempts)
}

// Resize routes a size change through the manager so the drawing-buffer
// size and camera aspect stay consistent. It is idempotent and cheap when
// nothing changed, safe to call every frame; callers should debounce real
// window-resize events themselves.
func (m *Manager) Resize(width, height int, pixelRatio float64) error {
	m.mu.Lock()
	if width <= 0 || height <= 0 {
		m.mu.Unlock()
		return fmt.Errorf("render: invalid dimensions %dx%d", width, height)
	}
	if pixelRatio <= 0 {
		pixelRatio = 1
	}
	if m.cfg.Width == width && m.cfg.Height == height && m.cfg.PixelRatio == pixelRatio {
		m.mu.Unlock()
		return nil
	}
	m.cfg.Width = width
	m.cfg.Height = height
	m.cfg.PixelRatio = pixelRatio
	cfg := m.cfg
	device := m.device
	active := m.state == StateActive
	m.mu.Unlock()

	// While Lost/Recovering only the stored configuration changes; it is
	// reapplied wholesale on restore.
	if active && device != nil {
		return device.Configure(cfg)
	}
	return nil
}

// SetClearColor updates the background color in the stored configuration
// and applies it when the surface is active.
func (m *Manager) SetClearColor(c color.RGBA) error {
	m.mu.Lock()
	m.cfg.ClearColor = c
	cfg := m.cfg
	device := m.device
	active := m.state == StateActive
	m.mu.Unlock()

	if active && device != nil {
		return device.Configure(cfg)
	}
	return nil
}

// Dispose releases the platform surface and moves to the terminal Disposed
// state. It is idempotent.
func (m *Manager) Dispose() {
	m.mu.Lock()
	if m.state == StateDisposed {
		m.mu.Unlock()
		return
	}
	device := m.device
	m.device = nil
	m.handle = nil
	m.state = StateDisposed
	m.observers = nil
	m.mu.Unlock()

	if device != nil {
		device.Release()
	}
}
