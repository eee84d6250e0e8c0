// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// DeviceHandle provides GPU device access from the host application.
//
// The host (e.g. gogpu.App, or a WebGPU canvas bridge) implements
// DeviceHandle and passes it to the surface Manager, allowing molview to
// use the shared GPU device. molview never creates a device of its own.
//
// DeviceHandle is an alias for gpucontext.DeviceProvider, providing a
// molview-specific name while staying compatible with the gpucontext
// ecosystem.
type DeviceHandle = gpucontext.DeviceProvider

// DeviceCapabilities describes what the host surface can do. Geometry
// builders consult it to choose between instanced batching and one mesh
// per atom.
type DeviceCapabilities struct {
	// MaxTextureSize is the maximum texture dimension supported.
	MaxTextureSize uint32

	// SupportsInstancing reports whether instanced draws are available.
	SupportsInstancing bool

	// MaxInstanceCount caps instances per draw; 0 means unlimited.
	MaxInstanceCount int

	// VendorName is the GPU vendor name.
	VendorName string

	// DeviceName is the GPU device name.
	DeviceName string
}

// NullDeviceHandle is a DeviceHandle with nil implementations. Used where
// no GPU is available and geometry is built for the software fallback path.
type NullDeviceHandle struct{}

// Device returns nil for the null device.
func (NullDeviceHandle) Device() gpucontext.Device { return nil }

// Queue returns nil for the null device.
func (NullDeviceHandle) Queue() gpucontext.Queue { return nil }

// Adapter returns nil for the null device.
func (NullDeviceHandle) Adapter() gpucontext.Adapter { return nil }

// AdapterInfo returns zero adapter info for the null device.
func (NullDeviceHandle) AdapterInfo() gpucontext.AdapterInfo { return gpucontext.AdapterInfo{} }

// SurfaceFormat returns undefined format for the null device.
func (NullDeviceHandle) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatUndefined
}

// Ensure NullDeviceHandle implements DeviceHandle.
var _ DeviceHandle = NullDeviceHandle{}
