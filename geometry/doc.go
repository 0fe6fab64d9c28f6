// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package geometry holds the pure math used to turn runtime poses and view
// frusta into values the host engine can consume.
//
// # Orientation
//
// Head orientation arrives as a unit quaternion. Two Euler conventions are
// provided because the engine uses both: [ToEulerZYX] feeds camera control and
// [ToEulerXYZ] feeds the tilt display, which needs well-defined output at the
// poles. [RotationMatrix] produces the 4x4 matrix used when the engine wants
// the full rotation rather than angles.
//
// # Stereo projection
//
// [StereoProjection] merges the two per-eye frusta into a single virtual
// frustum, reports its aspect ratio and vertical field of view, and computes
// per-eye [TextureBounds] describing where each eye samples from that merged
// frame.
//
// All functions are stateless and safe for concurrent use.
package geometry
