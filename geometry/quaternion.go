// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package geometry

import (
	"math"

	"golang.org/x/image/math/f32"
)

// GimbalEpsilon is the distance from ±π/2 at which [ToEulerXYZ] switches to
// its pole branch.
const GimbalEpsilon = 1e-10

// Quaternion is an orientation in the runtime's x, y, z, w layout.
type Quaternion struct {
	X, Y, Z, W float32
}

// IdentityQuaternion returns the quaternion for no rotation.
func IdentityQuaternion() Quaternion {
	return Quaternion{W: 1}
}

// Normalize returns q scaled to unit length.
// A zero quaternion normalizes to the identity.
func (q Quaternion) Normalize() Quaternion {
	n := math.Sqrt(float64(q.X)*float64(q.X) + float64(q.Y)*float64(q.Y) +
		float64(q.Z)*float64(q.Z) + float64(q.W)*float64(q.W))
	if n == 0 {
		return IdentityQuaternion()
	}
	return Quaternion{
		X: float32(float64(q.X) / n),
		Y: float32(float64(q.Y) / n),
		Z: float32(float64(q.Z) / n),
		W: float32(float64(q.W) / n),
	}
}

// Angle returns the rotation angle encoded by a unit quaternion, in [0, π].
func (q Quaternion) Angle() float64 {
	w := math.Abs(float64(q.W))
	if w > 1 {
		w = 1
	}
	return 2 * math.Acos(w)
}

// EulerAngles is a 3-2-1 (Z, Y, X) Tait-Bryan decomposition.
// Pitch rotates about X, Yaw about Y and Roll about Z, all in radians.
type EulerAngles struct {
	Roll, Pitch, Yaw float32
}

// EulerXYZ holds rotations about each axis in radians.
type EulerXYZ struct {
	X, Y, Z float32
}

// ToEulerZYX converts a unit quaternion to 3-2-1 Euler angles.
//
// The input is assumed normalized; other inputs produce undefined values
// rather than an error.
func ToEulerZYX(q Quaternion) EulerAngles {
	x, y, z, w := float64(q.X), float64(q.Y), float64(q.Z), float64(q.W)

	sinrCosp := 2 * (w*x + y*z)
	cosrCosp := 1 - 2*(x*x+y*y)
	pitch := math.Atan2(sinrCosp, cosrCosp)

	// Half-angle form avoids the asin domain edge at ±1.
	s := clampUnit(2 * (w*y - x*z))
	sinp := math.Sqrt(1 + s)
	cosp := math.Sqrt(1 - s)
	yaw := 2*math.Atan2(sinp, cosp) - math.Pi/2

	sinyCosp := 2 * (w*z + x*y)
	cosyCosp := 1 - 2*(y*y+z*z)
	roll := math.Atan2(sinyCosp, cosyCosp)

	return EulerAngles{
		Roll:  float32(roll),
		Pitch: float32(pitch),
		Yaw:   float32(yaw),
	}
}

// ToEulerXYZ converts a quaternion to per-axis angles.
//
// Near the poles (|Y| within [GimbalEpsilon] of π/2) X and Z are not
// separable. Z is then taken from the local down vector, X is forced to zero,
// and when facing down (Y < 0) Z is reflected as π - Z.
func ToEulerXYZ(q Quaternion) EulerXYZ {
	x, y, z, w := float64(q.X), float64(q.Y), float64(q.Z), float64(q.W)
	sqw, sqx, sqy, sqz := w*w, x*x, y*y, z*z

	var out EulerXYZ
	ey := math.Asin(clampUnit(2 * (w*y - x*z)))
	out.Y = float32(ey)

	if math.Pi/2-math.Abs(ey) > GimbalEpsilon {
		out.Z = float32(math.Atan2(2*(x*y+w*z), sqx-sqy-sqz+sqw))
		out.X = float32(math.Atan2(2*(w*x+y*z), sqw-sqx-sqy+sqz))
		return out
	}

	ez := math.Atan2(2*y*z-2*x*w, 2*x*z+2*y*w)
	if ey < 0 {
		ez = math.Pi - ez
	}
	out.Z = float32(ez)
	out.X = 0
	return out
}

// RotationMatrix expands a unit quaternion into a 4x4 rotation matrix.
//
// Storage is row-major for row vectors (v' = v·M): elements 0-2 hold the
// image of the X axis, 4-6 the Y axis and 8-10 the Z axis. The translation
// terms are zero and the homogeneous row is 0 0 0 1.
func RotationMatrix(q Quaternion) f32.Mat4 {
	x2 := q.X + q.X
	y2 := q.Y + q.Y
	z2 := q.Z + q.Z

	xx2 := q.X * x2
	yy2 := q.Y * y2
	zz2 := q.Z * z2

	yz2 := q.Y * z2
	wx2 := q.W * x2
	xy2 := q.X * y2
	wz2 := q.W * z2
	xz2 := q.X * z2
	wy2 := q.W * y2

	return f32.Mat4{
		1 - yy2 - zz2, xy2 + wz2, xz2 - wy2, 0,
		xy2 - wz2, 1 - xx2 - zz2, yz2 + wx2, 0,
		xz2 + wy2, yz2 - wx2, 1 - xx2 - yy2, 0,
		0, 0, 0, 1,
	}
}

func clampUnit(v float64) float64 {
	switch {
	case v > 1:
		return 1
	case v < -1:
		return -1
	}
	return v
}
