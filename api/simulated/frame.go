// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package simulated

import (
	"context"
	"time"

	"github.com/gogpu/xr/api"
)

// WaitFrame implements api.FrameAPI. The predicted display time advances by
// one frame period per call. With Config.Pace set it also sleeps for that
// period, returning early if ctx is done.
func (r *Runtime) WaitFrame(ctx context.Context, h api.Session) (api.FrameState, error) {
	if err := ctx.Err(); err != nil {
		return api.FrameState{}, err
	}
	if r.cfg.Pace {
		timer := time.NewTimer(r.cfg.FramePeriod)
		select {
		case <-ctx.Done():
			timer.Stop()
			return api.FrameState{}, ctx.Err()
		case <-timer.C:
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("xrWaitFrame"); err != nil {
		return api.FrameState{}, err
	}
	s, ok := r.sessions[h]
	if !ok {
		return api.FrameState{}, api.ErrorHandleInvalid
	}
	if !s.running {
		return api.FrameState{}, api.ErrorSessionNotRunning
	}
	if s.displayTime == 0 {
		s.displayTime = api.Time(time.Second)
	}
	s.displayTime = s.displayTime.Add(r.cfg.FramePeriod)
	s.waited = true
	return api.FrameState{
		PredictedDisplayTime:   s.displayTime,
		PredictedDisplayPeriod: r.cfg.FramePeriod,
		ShouldRender:           s.state == api.SessionStateVisible || s.state == api.SessionStateFocused,
	}, nil
}

// BeginFrame implements api.FrameAPI. It must follow a WaitFrame. Beginning
// a frame while another is open silently discards the open one.
func (r *Runtime) BeginFrame(h api.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("xrBeginFrame"); err != nil {
		return err
	}
	s, ok := r.sessions[h]
	if !ok {
		return api.ErrorHandleInvalid
	}
	if !s.running {
		return api.ErrorSessionNotRunning
	}
	if !s.waited {
		return api.ErrorCallOrderInvalid
	}
	s.waited = false
	s.begun = true
	return nil
}

// EndFrame implements api.FrameAPI. Every swapchain referenced by a layer
// must have had an image released during the frame and hold none now.
func (r *Runtime) EndFrame(h api.Session, info api.FrameEndInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("xrEndFrame"); err != nil {
		return err
	}
	s, ok := r.sessions[h]
	if !ok {
		return api.ErrorHandleInvalid
	}
	if !s.running {
		return api.ErrorSessionNotRunning
	}
	if !s.begun {
		return api.ErrorCallOrderInvalid
	}
	if info.DisplayTime <= 0 || info.EnvironmentBlendMode != api.EnvironmentBlendOpaque {
		return api.ErrorValidationFailure
	}
	for _, l := range info.Layers {
		proj, ok := l.(*api.CompositionLayerProjection)
		if !ok || proj == nil {
			return api.ErrorValidationFailure
		}
		if _, ok := r.spaces[proj.Space]; !ok {
			return api.ErrorHandleInvalid
		}
		if len(proj.Views) != api.StereoViewCount {
			return api.ErrorValidationFailure
		}
		for _, v := range proj.Views {
			sc, ok := r.swapchains[v.SubImage.Swapchain]
			if !ok {
				return api.ErrorHandleInvalid
			}
			if sc.acquired >= 0 || !sc.released {
				return api.ErrorCallOrderInvalid
			}
			if v.SubImage.ImageRect.Empty() ||
				v.SubImage.ImageRect.Max.X > int(sc.info.Width) ||
				v.SubImage.ImageRect.Max.Y > int(sc.info.Height) ||
				v.SubImage.ImageRect.Min.X < 0 || v.SubImage.ImageRect.Min.Y < 0 {
				return api.ErrorValidationFailure
			}
		}
	}
	for _, sc := range r.swapchains {
		if sc.session == h {
			sc.released = false
		}
	}
	s.begun = false
	s.frameIndex++
	r.frames = append(r.frames, info)
	return nil
}

// Frames returns every FrameEndInfo accepted by EndFrame, oldest first.
func (r *Runtime) Frames() []api.FrameEndInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]api.FrameEndInfo, len(r.frames))
	copy(out, r.frames)
	return out
}
