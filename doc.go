// Package xr connects a host renderer to an XR runtime.
//
// # Overview
//
// xr drives the three protocols an XR application owes its runtime: the
// session lifecycle, the per-eye swapchain acquire/wait/release cycle, and
// input actions bound to controller profiles. The runtime itself (tracking,
// compositing, distortion) sits behind the [api.Runtime] interface; the
// in-process [simulated] runtime implements it without hardware.
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/xr"
//	    _ "github.com/gogpu/xr/api/simulated"
//	)
//
//	rt, err := xr.Open("", api.BackendOptions{})
//	c, err := xr.New(ctx, rt, xr.WithDevice(provider))
//	defer c.Close()
//
//	for {
//	    res, _ := c.Update()
//	    if res.Signal.ExitRenderLoop {
//	        break
//	    }
//	    c.BeginFrame(ctx)
//	    for _, eye := range []swapchain.Eye{swapchain.Left, swapchain.Right} {
//	        target, _ := c.AcquireForEye(eye)
//	        render(target, c.Views()[eye])
//	        c.ReleaseForEye(eye)
//	    }
//	    c.EndFrame()
//	}
//
// # Architecture
//
// The module is organized into:
//   - xr: the Context and frame loop
//   - api: runtime contract, result codes, backend registry
//   - api/simulated: in-process runtime for tests and tools
//   - session: lifecycle state machine
//   - swapchain: per-eye image rings
//   - input: actions, binding tables, haptics
//   - geometry: Euler angles, rotation matrices, stereo projection
//   - telemetry: Prometheus metrics and fault reporting
//   - config: YAML configuration for tools
//
// # Errors
//
// Failed runtime calls become [api.CallError] values naming the runtime
// function and call site. Setup failures are returned from [New]. Failures
// inside the frame loop are reported to the Context's [telemetry.Sink] and
// also returned, and the loop can keep going.
//
// # Coordinate System
//
// Runtime conventions: meters, right-handed, Y up, -Z forward. Angles are
// radians except [geometry.Projection.FovDegrees].
//
// [simulated]: https://pkg.go.dev/github.com/gogpu/xr/api/simulated
package xr

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0-alpha.1"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0

	// VersionPrerelease is the prerelease identifier
	VersionPrerelease = "alpha.1"
)
