// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package simulated

import (
	"slices"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/xr/api"
)

type swapchain struct {
	session api.Session
	info    api.SwapchainCreateInfo
	images  []api.SwapchainImage

	next     uint32
	acquired int // index of the held image, or -1
	waited   bool
	released bool // an image has been released since the last EndFrame
}

// texture stands in for the GPU texture behind a swapchain image.
type texture struct {
	id            uint32
	width, height int
}

func (t texture) Width() int  { return t.width }
func (t texture) Height() int { return t.height }

var _ gpucontext.Texture = texture{}

// EnumerateSwapchainFormats implements api.SwapchainAPI.
func (r *Runtime) EnumerateSwapchainFormats(s api.Session) ([]gputypes.TextureFormat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("xrEnumerateSwapchainFormats"); err != nil {
		return nil, err
	}
	if _, ok := r.sessions[s]; !ok {
		return nil, api.ErrorHandleInvalid
	}
	return slices.Clone(r.cfg.Formats), nil
}

// CreateSwapchain implements api.SwapchainAPI. Sessions bound to a GPU
// device get GPU textures; headless sessions get GL texture names. Either
// way texture ids are unique across the runtime.
func (r *Runtime) CreateSwapchain(s api.Session, info api.SwapchainCreateInfo) (api.Swapchain, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("xrCreateSwapchain"); err != nil {
		return 0, err
	}
	sess, ok := r.sessions[s]
	if !ok {
		return 0, api.ErrorHandleInvalid
	}
	if !slices.Contains(r.cfg.Formats, info.Format) {
		return 0, api.ErrorSwapchainFormatUnsupported
	}
	limit := r.cfg.Views[0]
	if info.Width == 0 || info.Height == 0 ||
		info.Width > limit.MaxImageRectWidth || info.Height > limit.MaxImageRectHeight ||
		info.SampleCount == 0 || info.SampleCount > limit.MaxSwapchainSampleCount ||
		info.ArraySize == 0 || info.MipCount == 0 || info.FaceCount == 0 {
		return 0, api.ErrorValidationFailure
	}

	sc := &swapchain{session: s, info: info, acquired: -1}
	sc.images = make([]api.SwapchainImage, r.cfg.ImageCount)
	for i := range sc.images {
		r.textures++
		if sess.gpu {
			sc.images[i] = api.GPUImage{Texture: texture{
				id:     r.textures,
				width:  int(info.Width),
				height: int(info.Height),
			}}
		} else {
			sc.images[i] = api.OpenGLImage{Texture: r.textures}
		}
	}
	h := api.Swapchain(r.handles.alloc(kindSwapchain))
	r.swapchains[h] = sc
	return h, nil
}

// DestroySwapchain implements api.SwapchainAPI.
func (r *Runtime) DestroySwapchain(h api.Swapchain) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("xrDestroySwapchain"); err != nil {
		return err
	}
	if _, ok := r.swapchains[h]; !ok {
		return api.ErrorHandleInvalid
	}
	delete(r.swapchains, h)
	r.handles.free(uint64(h))
	return nil
}

// EnumerateSwapchainImages implements api.SwapchainAPI.
func (r *Runtime) EnumerateSwapchainImages(h api.Swapchain, images []api.SwapchainImage) (uint32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("xrEnumerateSwapchainImages"); err != nil {
		return 0, err
	}
	sc, ok := r.swapchains[h]
	if !ok {
		return 0, api.ErrorHandleInvalid
	}
	n := uint32(len(sc.images))
	if images == nil {
		return n, nil
	}
	if uint32(len(images)) < n {
		return n, api.ErrorValidationFailure
	}
	copy(images, sc.images)
	return n, nil
}

// AcquireSwapchainImage implements api.SwapchainAPI. Images are handed out
// round-robin. Only one image may be held at a time.
func (r *Runtime) AcquireSwapchainImage(h api.Swapchain) (uint32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("xrAcquireSwapchainImage"); err != nil {
		return 0, err
	}
	sc, ok := r.swapchains[h]
	if !ok {
		return 0, api.ErrorHandleInvalid
	}
	if sc.acquired >= 0 {
		return 0, api.ErrorCallOrderInvalid
	}
	idx := sc.next
	sc.next = (sc.next + 1) % uint32(len(sc.images))
	sc.acquired = int(idx)
	sc.waited = false
	return idx, nil
}

// WaitSwapchainImage implements api.SwapchainAPI. The simulated compositor
// never holds an image, so the wait returns at once.
func (r *Runtime) WaitSwapchainImage(h api.Swapchain, timeout time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("xrWaitSwapchainImage"); err != nil {
		return err
	}
	sc, ok := r.swapchains[h]
	if !ok {
		return api.ErrorHandleInvalid
	}
	if timeout <= 0 {
		return api.ErrorValidationFailure
	}
	if sc.acquired < 0 || sc.waited {
		return api.ErrorCallOrderInvalid
	}
	sc.waited = true
	return nil
}

// ReleaseSwapchainImage implements api.SwapchainAPI.
func (r *Runtime) ReleaseSwapchainImage(h api.Swapchain) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("xrReleaseSwapchainImage"); err != nil {
		return err
	}
	sc, ok := r.swapchains[h]
	if !ok {
		return api.ErrorHandleInvalid
	}
	if sc.acquired < 0 || !sc.waited {
		return api.ErrorCallOrderInvalid
	}
	sc.acquired = -1
	sc.waited = false
	sc.released = true
	return nil
}

// Acquired reports whether an image of the swapchain is currently held.
func (r *Runtime) Acquired(h api.Swapchain) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	sc, ok := r.swapchains[h]
	return ok && sc.acquired >= 0
}

// SwapchainInfo returns the creation parameters of a swapchain.
func (r *Runtime) SwapchainInfo(h api.Swapchain) (api.SwapchainCreateInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sc, ok := r.swapchains[h]
	if !ok {
		return api.SwapchainCreateInfo{}, false
	}
	return sc.info, true
}
