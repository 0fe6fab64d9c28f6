// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package geometry

import (
	"image"
	"math"
)

// Fov is an asymmetric view frustum as four angles in radians.
// AngleLeft and AngleDown are normally negative.
type Fov struct {
	AngleLeft  float32
	AngleRight float32
	AngleUp    float32
	AngleDown  float32
}

// SymmetricFov returns a frustum spanning ±half radians on both axes.
func SymmetricFov(half float32) Fov {
	return Fov{AngleLeft: -half, AngleRight: half, AngleUp: half, AngleDown: -half}
}

// tangents holds tan of each frustum angle.
type tangents struct {
	left, right, up, down float64
}

func (f Fov) tangents() tangents {
	return tangents{
		left:  math.Tan(float64(f.AngleLeft)),
		right: math.Tan(float64(f.AngleRight)),
		up:    math.Tan(float64(f.AngleUp)),
		down:  math.Tan(float64(f.AngleDown)),
	}
}

// TextureBounds is the normalized region of the merged stereo frame an eye
// samples from. V grows downward.
type TextureBounds struct {
	UMin, VMin float32
	UMax, VMax float32
}

// FullBounds covers the whole texture.
func FullBounds() TextureBounds {
	return TextureBounds{UMin: 0, VMin: 0, UMax: 1, VMax: 1}
}

// PixelRect scales the bounds to a width x height image. Coordinates are
// truncated toward zero.
func (b TextureBounds) PixelRect(width, height int) image.Rectangle {
	x0 := int(b.UMin * float32(width))
	y0 := int(b.VMin * float32(height))
	x1 := int(b.UMax * float32(width))
	y1 := int(b.VMax * float32(height))
	return image.Rect(x0, y0, x1, y1)
}

// Projection is the merged stereo frustum shared by both eyes.
type Projection struct {
	// Aspect is the combined half-width over half-height tangent ratio.
	Aspect float32

	// FovDegrees is the vertical field of view of the merged frustum.
	FovDegrees float32

	// Bounds holds the left (0) and right (1) eye sample regions.
	Bounds [2]TextureBounds
}

// StereoProjection merges two per-eye frusta.
//
// The combined half extents are the largest tangent reached by either eye in
// each direction. Each eye's bounds are normalized against those combined
// extents rather than its own, so both eyes address one virtual frame.
func StereoProjection(left, right Fov) Projection {
	l := left.tangents()
	r := right.tangents()

	halfW := max(-l.left, l.right, -r.left, r.right)
	halfH := max(l.up, -l.down, r.up, -r.down)

	return Projection{
		Aspect:     float32(halfW / halfH),
		FovDegrees: float32(2 * math.Atan(halfH) * 180 / math.Pi),
		Bounds: [2]TextureBounds{
			eyeBounds(l, halfW, halfH),
			eyeBounds(r, halfW, halfH),
		},
	}
}

func eyeBounds(t tangents, halfW, halfH float64) TextureBounds {
	return TextureBounds{
		UMin: float32(0.5 + 0.5*t.left/halfW),
		UMax: float32(0.5 + 0.5*t.right/halfW),
		VMin: float32(0.5 - 0.5*t.up/halfH),
		VMax: float32(0.5 - 0.5*t.down/halfH),
	}
}
