// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package api

import (
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// NullDevice is a gpucontext.DeviceProvider with no device behind it.
// It binds headless sessions, where the runtime hands out images that no
// GPU will ever write to.
type NullDevice struct{}

// Device returns nil.
func (NullDevice) Device() gpucontext.Device { return nil }

// Queue returns nil.
func (NullDevice) Queue() gpucontext.Queue { return nil }

// Adapter returns nil.
func (NullDevice) Adapter() gpucontext.Adapter { return nil }

// SurfaceFormat returns TextureFormatUndefined.
func (NullDevice) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatUndefined
}

// AdapterInfo returns the zero AdapterInfo.
func (NullDevice) AdapterInfo() gpucontext.AdapterInfo { return gpucontext.AdapterInfo{} }

// Headless reports whether d provides no GPU device.
func Headless(d gpucontext.DeviceProvider) bool {
	return d == nil || d.Device() == nil
}

var _ gpucontext.DeviceProvider = NullDevice{}
