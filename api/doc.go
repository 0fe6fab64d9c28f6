// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package api defines the contract between gogpu/xr and an XR runtime.
//
// The runtime provides tracking, reference spaces, swapchains and a
// compositor. This package does not implement any of that; it describes the
// calls xr makes and the values exchanged, so that a native binding or the
// in-process [github.com/gogpu/xr/api/simulated] runtime can be plugged in.
//
// # Handles
//
// Runtime objects are referred to by opaque integer handles ([Instance],
// [Session], [Space], [Swapchain], [ActionSet], [Action], [Path]). The zero
// value of every handle type is the null handle.
//
// # Results
//
// Runtime methods return an error. Failures carry a [Result] code; wrap a
// call with [Check] to obtain a [CallError] naming the operation and the
// call site, which is how the rest of xr reports runtime faults.
//
// # Backends
//
// Backends register themselves with [RegisterBackend] and are opened with
// [OpenBackend] or, by priority, [OpenBest].
//
// # Graphics binding
//
// A session is bound to the host's GPU device through
// [gpucontext.DeviceProvider]; xr never creates a device itself.
// [NullDevice] is used for headless sessions.
package api
