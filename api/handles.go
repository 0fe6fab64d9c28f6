// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package api

import (
	"math"
	"time"
)

// Opaque runtime handles. The zero value is the null handle.
type (
	Instance  uint64
	SystemID  uint64
	Session   uint64
	Space     uint64
	Swapchain uint64
	ActionSet uint64
	Action    uint64
	Path      uint64
)

// NullPath selects no subaction path.
const NullPath Path = 0

// Time is a runtime timestamp in nanoseconds.
type Time int64

// Add returns t advanced by d.
func (t Time) Add(d time.Duration) Time {
	return t + Time(d)
}

// InfiniteDuration waits without a timeout.
const InfiniteDuration = time.Duration(math.MaxInt64)

// MinHapticDuration requests the shortest pulse the device supports.
const MinHapticDuration = time.Duration(-1)

// FrequencyUnspecified lets the runtime pick the haptic frequency.
const FrequencyUnspecified float32 = 0
