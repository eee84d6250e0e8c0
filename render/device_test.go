// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"testing"

	"github.com/gogpu/gputypes"
)

func TestNullDeviceHandle(t *testing.T) {
	var handle DeviceHandle = NullDeviceHandle{}

	if handle.Device() != nil {
		t.Error("NullDeviceHandle.Device() should return nil")
	}
	if handle.Queue() != nil {
		t.Error("NullDeviceHandle.Queue() should return nil")
	}
	if handle.Adapter() != nil {
		t.Error("NullDeviceHandle.Adapter() should return nil")
	}
	if handle.SurfaceFormat() != gputypes.TextureFormatUndefined {
		t.Errorf("NullDeviceHandle.SurfaceFormat() = %v, want undefined", handle.SurfaceFormat())
	}
}

func TestDeviceCapabilities_ZeroValue(t *testing.T) {
	var caps DeviceCapabilities

	// The zero value must read as the most conservative device: no
	// instancing, nothing to batch.
	if caps.SupportsInstancing {
		t.Error("zero-value capabilities claim instancing support")
	}
	if caps.MaxInstanceCount != 0 {
		t.Errorf("MaxInstanceCount = %d, want 0", caps.MaxInstanceCount)
	}
}
