// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package render manages the GPU drawing surface that molecular geometry is
// rendered into, across an unreliable hardware boundary.
//
// # Key Principle
//
// molview RECEIVES a GPU device from the host application, it does NOT
// create its own. The host (a gogpu.App, a browser canvas bridge) implements
// DeviceHandle and SurfaceDevice; the Manager here owns only the lifecycle:
// creation with a preferred capability profile and one degraded retry,
// loss/restore bookkeeping, bounded manual recovery, and resize routing.
//
// # Context loss
//
// A GPU driver or browser can unilaterally invalidate all GPU state at any
// time. The Manager models this as a state machine:
//
//	Uninitialized → Active → Lost → Recovering → Active … → Disposed
//
// with Failed as the terminal state after recovery attempts are exhausted.
// Every restore increments an epoch counter. All cached GPU resources
// (materials, geometries) are tagged with the epoch they were created
// under; a resource whose tag does not match the current epoch must not be
// used. Subscribers (the material cache, geometry builders, the viewer)
// receive SurfaceLost/SurfaceRestored callbacks and invalidate or rebuild
// their caches accordingly.
//
// # Thread Safety
//
// Manager methods are safe for concurrent use; observer callbacks are
// delivered outside the manager lock, one goroutine at a time.
package render
