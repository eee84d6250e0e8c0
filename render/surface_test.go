// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"
	"testing"
)

// fakeDevice records lifecycle calls for assertions.
type fakeDevice struct {
	configures int
	restores   int
	releases   int
	lastCfg    Config
	configErr  error
	restoreErr error
	caps       DeviceCapabilities
}

func (d *fakeDevice) Configure(cfg Config) error {
	d.configures++
	d.lastCfg = cfg
	return d.configErr
}

func (d *fakeDevice) Restore() error {
	d.restores++
	return d.restoreErr
}

func (d *fakeDevice) Capabilities() DeviceCapabilities { return d.caps }

func (d *fakeDevice) Release() { d.releases++ }

// recordingObserver captures lifecycle signals.
type recordingObserver struct {
	lost     int
	restored int
	epochs   []uint64
}

func (o *recordingObserver) SurfaceLost()                 { o.lost++ }
func (o *recordingObserver) SurfaceRestored(epoch uint64) { o.restored++; o.epochs = append(o.epochs, epoch) }

func okFactory(device *fakeDevice) Factory {
	return func(DeviceHandle, Config) (SurfaceDevice, error) {
		return device, nil
	}
}

func TestManager_CreatePreferredProfile(t *testing.T) {
	device := &fakeDevice{}
	m := NewManager()

	err := m.Create(NullDeviceHandle{}, okFactory(device), DefaultConfig(800, 600))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if m.State() != StateActive {
		t.Errorf("State() = %v, want active", m.State())
	}
	if m.Epoch() != 1 {
		t.Errorf("Epoch() = %d, want 1", m.Epoch())
	}
	if !device.lastCfg.Antialias {
		t.Errorf("preferred profile lost antialiasing")
	}
}

func TestManager_CreateDegradedRetry(t *testing.T) {
	device := &fakeDevice{}
	calls := 0
	factory := func(_ DeviceHandle, cfg Config) (SurfaceDevice, error) {
		calls++
		if cfg.Antialias {
			return nil, errors.New("no multisample support")
		}
		return device, nil
	}

	m := NewManager()
	if err := m.Create(NullDeviceHandle{}, factory, DefaultConfig(640, 480)); err != nil {
		t.Fatalf("Create() error = %v, want degraded retry to succeed", err)
	}
	if calls != 2 {
		t.Errorf("factory calls = %d, want 2 (preferred then degraded)", calls)
	}
	cfg := m.Config()
	if cfg.Antialias || cfg.Alpha {
		t.Errorf("degraded config = %+v, want antialias and alpha off", cfg)
	}
	if m.State() != StateActive {
		t.Errorf("State() = %v, want active", m.State())
	}
}

func TestManager_CreateUnavailable(t *testing.T) {
	factory := func(DeviceHandle, Config) (SurfaceDevice, error) {
		return nil, errors.New("no adapter")
	}

	m := NewManager()
	err := m.Create(NullDeviceHandle{}, factory, DefaultConfig(640, 480))
	if !errors.Is(err, ErrSurfaceUnavailable) {
		t.Fatalf("Create() error = %v, want ErrSurfaceUnavailable", err)
	}
	if m.State() != StateUninitialized {
		t.Errorf("State() = %v, want uninitialized (manager reusable)", m.State())
	}
}

func TestManager_LossRestoreCycle(t *testing.T) {
	device := &fakeDevice{}
	obs := &recordingObserver{}
	m := NewManager()
	if err := m.Create(NullDeviceHandle{}, okFactory(device), DefaultConfig(800, 600)); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	m.Subscribe(obs)

	before := m.Epoch()
	e := &LossEvent{Reason: "driver reset"}
	m.HandleContextLost(e)

	if !e.RestorationAllowed() {
		t.Errorf("loss event not acknowledged; restore would be impossible")
	}
	if m.State() != StateLost {
		t.Errorf("State() after loss = %v, want lost", m.State())
	}
	if m.Active() {
		t.Errorf("Active() = true while lost")
	}
	if obs.lost != 1 {
		t.Errorf("SurfaceLost deliveries = %d, want 1", obs.lost)
	}

	if err := m.HandleContextRestored(); err != nil {
		t.Fatalf("HandleContextRestored() error = %v", err)
	}
	if m.State() != StateActive {
		t.Errorf("State() after restore = %v, want active", m.State())
	}
	if m.Epoch() <= before {
		t.Errorf("Epoch() = %d, want strictly greater than %d", m.Epoch(), before)
	}
	if obs.restored != 1 || obs.epochs[0] != m.Epoch() {
		t.Errorf("SurfaceRestored deliveries = %d epochs = %v, want 1 delivery with epoch %d",
			obs.restored, obs.epochs, m.Epoch())
	}
	// Configure runs at creation and again at restore.
	if device.configures < 2 {
		t.Errorf("Configure calls = %d, want reapply after restore", device.configures)
	}
}

func TestManager_DuplicateLossIgnoredButAcknowledged(t *testing.T) {
	device := &fakeDevice{}
	obs := &recordingObserver{}
	m := NewManager()
	if err := m.Create(NullDeviceHandle{}, okFactory(device), DefaultConfig(800, 600)); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	m.Subscribe(obs)

	m.HandleContextLost(&LossEvent{})
	dup := &LossEvent{}
	m.HandleContextLost(dup)

	if obs.lost != 1 {
		t.Errorf("SurfaceLost deliveries = %d, want 1 for duplicate loss", obs.lost)
	}
	if !dup.RestorationAllowed() {
		t.Errorf("duplicate loss event not acknowledged")
	}
}

func TestManager_RestoreWithoutLossIsNoOp(t *testing.T) {
	device := &fakeDevice{}
	m := NewManager()
	if err := m.Create(NullDeviceHandle{}, okFactory(device), DefaultConfig(800, 600)); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := m.HandleContextRestored(); err != nil {
		t.Errorf("HandleContextRestored() in active state = %v, want nil no-op", err)
	}
	if m.Epoch() != 1 {
		t.Errorf("Epoch() = %d, want unchanged 1", m.Epoch())
	}
}

func TestManager_RecoveryExhausted(t *testing.T) {
	device := &fakeDevice{restoreErr: errors.New("still lost")}
	m := NewManager()
	if err := m.Create(NullDeviceHandle{}, okFactory(device), DefaultConfig(800, 600)); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	m.HandleContextLost(&LossEvent{})

	for i := 0; i < maxRecoveryAttempts; i++ {
		if err := m.AttemptRecovery(); err == nil {
			t.Fatalf("nudge %d succeeded, fake always fails", i+1)
		}
	}
	err := m.AttemptRecovery()
	if !errors.Is(err, ErrRecoveryExhausted) {
		t.Fatalf("AttemptRecovery() after %d nudges = %v, want ErrRecoveryExhausted",
			maxRecoveryAttempts, err)
	}
	if m.State() != StateFailed {
		t.Errorf("State() = %v, want failed (terminal)", m.State())
	}
	// Terminal state: further nudges are no-ops.
	if err := m.AttemptRecovery(); err != nil {
		t.Errorf("AttemptRecovery() in failed state = %v, want nil no-op", err)
	}
	if device.restores != maxRecoveryAttempts {
		t.Errorf("Restore calls = %d, want %d", device.restores, maxRecoveryAttempts)
	}
}

func TestManager_RecoveryDelayGrows(t *testing.T) {
	device := &fakeDevice{restoreErr: errors.New("still lost")}
	m := NewManager()
	if err := m.Create(NullDeviceHandle{}, okFactory(device), DefaultConfig(800, 600)); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	m.HandleContextLost(&LossEvent{})

	d0 := m.RecoveryDelay()
	_ = m.AttemptRecovery()
	d1 := m.RecoveryDelay()
	if d1 <= d0 {
		t.Errorf("delay after first nudge = %v, want > %v", d1, d0)
	}
}

func TestManager_ResizeIdempotent(t *testing.T) {
	device := &fakeDevice{}
	m := NewManager()
	if err := m.Create(NullDeviceHandle{}, okFactory(device), DefaultConfig(800, 600)); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	base := device.configures

	if err := m.Resize(1024, 768, 2); err != nil {
		t.Fatalf("Resize() error = %v", err)
	}
	if device.configures != base+1 {
		t.Errorf("Configure calls = %d, want %d", device.configures, base+1)
	}
	// Same size again: must be cheap, no reconfigure.
	for i := 0; i < 10; i++ {
		if err := m.Resize(1024, 768, 2); err != nil {
			t.Fatalf("repeat Resize() error = %v", err)
		}
	}
	if device.configures != base+1 {
		t.Errorf("repeat resize reconfigured %d times, want 0", device.configures-base-1)
	}

	if err := m.Resize(0, 100, 1); err == nil {
		t.Errorf("Resize(0, 100) succeeded, want error")
	}
}

func TestManager_ResizeWhileLostDefersConfigure(t *testing.T) {
	device := &fakeDevice{}
	m := NewManager()
	if err := m.Create(NullDeviceHandle{}, okFactory(device), DefaultConfig(800, 600)); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	m.HandleContextLost(&LossEvent{})
	base := device.configures

	if err := m.Resize(1920, 1080, 1); err != nil {
		t.Fatalf("Resize() while lost error = %v", err)
	}
	if device.configures != base {
		t.Errorf("Configure called while lost")
	}

	if err := m.HandleContextRestored(); err != nil {
		t.Fatalf("HandleContextRestored() error = %v", err)
	}
	if device.lastCfg.Width != 1920 || device.lastCfg.Height != 1080 {
		t.Errorf("restored config = %dx%d, want deferred 1920x1080",
			device.lastCfg.Width, device.lastCfg.Height)
	}
}

func TestManager_DisposeIdempotent(t *testing.T) {
	device := &fakeDevice{}
	m := NewManager()
	if err := m.Create(NullDeviceHandle{}, okFactory(device), DefaultConfig(800, 600)); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	m.Dispose()
	m.Dispose()

	if device.releases != 1 {
		t.Errorf("Release calls = %d, want 1", device.releases)
	}
	if m.State() != StateDisposed {
		t.Errorf("State() = %v, want disposed", m.State())
	}
	if err := m.Create(NullDeviceHandle{}, okFactory(device), DefaultConfig(1, 1)); !errors.Is(err, ErrDisposed) {
		t.Errorf("Create() after dispose = %v, want ErrDisposed", err)
	}
}
