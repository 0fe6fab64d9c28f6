package xr

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gogpu/xr/api"
	"github.com/gogpu/xr/geometry"
	"github.com/gogpu/xr/input"
	"github.com/gogpu/xr/session"
	"github.com/gogpu/xr/swapchain"
)

// phase tracks where the Context is within a frame.
type phase uint8

const (
	phaseIdle    phase = iota // between EndFrame and BeginFrame
	phaseSkipped              // BeginFrame ran but the runtime frame did not begin
	phaseBegun                // runtime frame begun; EndFrame submits
)

// Frame describes the frame between BeginFrame and EndFrame.
type Frame struct {
	// State is the runtime's timing for this frame. ShouldRender false
	// means the eyes are not acquired and no layer is submitted.
	State api.FrameState

	// Index counts frames begun on the runtime, from 1.
	Index uint64

	// LayerValid is false when the views lacked a valid position or
	// orientation. The frame is still ended, without a layer.
	LayerValid bool
}

// HeadPose is the head located at the frame's display time.
type HeadPose struct {
	// Local is the head in the Local space, where layers are submitted.
	Local api.SpaceLocation

	// Stage is the head in the Stage space.
	Stage api.SpaceLocation

	// Orientation is the raw Stage orientation.
	Orientation geometry.Quaternion

	// EulerZYX and EulerXYZ decompose Orientation.
	EulerZYX geometry.EulerAngles
	EulerXYZ geometry.EulerXYZ
}

// UpdateResult is returned by Update.
type UpdateResult struct {
	// Signal tells the caller to stop its loop and whether to reconnect.
	Signal session.Signal

	// Input is the action state of this tick.
	Input input.State

	// ProfileChanged reports a controller change since the last Update.
	ProfileChanged bool
}

// Update drains runtime events, running the session lifecycle, then polls
// actions. It is safe in every session state. Runtime faults are reported
// to the sink and returned joined; the tick's results are valid regardless.
func (c *Context) Update() (UpdateResult, error) {
	if c.closed {
		return UpdateResult{}, ErrClosed
	}
	sig, perr := c.machine.Pump()
	st, ierr := c.input.Poll()
	c.inputState = st
	if c.metrics != nil {
		for _, h := range []input.Hand{input.Left, input.Right} {
			if st.Haptic[h] {
				c.metrics.HapticPulse(h.String())
			}
		}
	}
	err := errors.Join(perr, ierr)
	c.report(err)
	return UpdateResult{
		Signal:         sig,
		Input:          st,
		ProfileChanged: c.machine.ProfileChanged(),
	}, err
}

// BeginFrame waits for the runtime's frame timing, begins the frame and
// locates the head and views. WaitFrame is the only call that blocks; ctx
// cancels it.
//
// Outside a running session BeginFrame does nothing and the frame is not
// rendered. If the wait or begin fails the frame is not rendered either;
// the failure is reported and returned, and EndFrame must still be called.
func (c *Context) BeginFrame(ctx context.Context) error {
	if c.closed {
		return ErrClosed
	}
	if c.phase != phaseIdle {
		return ErrFrameInProgress
	}
	c.phase = phaseSkipped
	c.rendered = [2]bool{}
	c.frame.State.ShouldRender = false
	c.frame.LayerValid = false
	if !c.machine.Running() {
		return nil
	}

	start := time.Now()
	fs, err := c.rt.WaitFrame(ctx, c.session)
	if c.metrics != nil {
		c.metrics.FrameWait(time.Since(start))
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return err
		}
		err = api.Check("xrWaitFrame", err)
		c.report(err)
		return err
	}
	if err := api.Check("xrBeginFrame", c.rt.BeginFrame(c.session)); err != nil {
		c.report(err)
		return err
	}
	c.phase = phaseBegun
	c.frame.State = fs
	c.frame.Index++

	var errs []error
	if err := c.locateHead(fs.PredictedDisplayTime); err != nil {
		errs = append(errs, err)
	}
	if fs.ShouldRender {
		if err := c.locateViews(fs.PredictedDisplayTime); err != nil {
			errs = append(errs, err)
		}
	}
	c.log.Debug("xr: frame begun",
		slog.Uint64("frame", c.frame.Index),
		slog.Int64("display_time", int64(fs.PredictedDisplayTime)),
		slog.Bool("should_render", fs.ShouldRender),
		slog.Bool("layer_valid", c.frame.LayerValid))
	err = errors.Join(errs...)
	c.report(err)
	return err
}

// locateHead locates the view space in Local and Stage.
func (c *Context) locateHead(t api.Time) error {
	local, err := c.rt.LocateSpace(c.viewSpace, c.localSpace, t)
	if err != nil {
		return api.Check("xrLocateSpace", err)
	}
	stage, err := c.rt.LocateSpace(c.viewSpace, c.stageSpace, t)
	if err != nil {
		return api.Check("xrLocateSpace", err)
	}
	q := stage.Pose.Orientation
	c.head = HeadPose{
		Local:       local,
		Stage:       stage,
		Orientation: q,
		EulerZYX:    geometry.ToEulerZYX(q),
		EulerXYZ:    geometry.ToEulerXYZ(q),
	}
	return nil
}

// locateViews locates both eyes in Stage and decides whether the layer can
// be submitted.
func (c *Context) locateViews(t api.Time) error {
	vs, views, err := c.rt.LocateViews(c.session, api.ViewLocateInfo{
		ViewConfiguration: api.ViewConfigurationPrimaryStereo,
		DisplayTime:       t,
		Space:             c.stageSpace,
	})
	if err != nil {
		return api.Check("xrLocateViews", err)
	}
	if len(views) != api.StereoViewCount {
		return ErrViewCount
	}
	copy(c.views[:], views)
	c.frame.LayerValid = vs.PoseValid()
	if !c.frame.LayerValid {
		c.log.Warn("xr: view pose not valid, layer omitted", slog.Uint64("frame", c.frame.Index))
		if c.metrics != nil {
			c.metrics.LayerDropped()
		}
		return nil
	}
	if c.opts.dynamicBounds {
		c.projection = geometry.StereoProjection(views[0].Fov, views[1].Fov)
	}
	return nil
}

// rendering reports whether eyes are acquired this frame.
func (c *Context) rendering() bool {
	return c.phase == phaseBegun && c.frame.State.ShouldRender
}

// AcquireForEye acquires the eye's next swapchain image and returns where
// to render it. When the frame is not rendered it returns a zero Target
// and no error.
func (c *Context) AcquireForEye(eye swapchain.Eye) (swapchain.Target, error) {
	if !c.rendering() {
		return swapchain.Target{}, nil
	}
	target, err := c.swapchains.Acquire(eye, c.views[eye], c.projection.Bounds[eye])
	if err != nil {
		c.report(err)
		return swapchain.Target{}, err
	}
	return target, nil
}

// ReleaseForEye hands the eye's image back to the runtime. It does nothing
// when the eye holds no image.
func (c *Context) ReleaseForEye(eye swapchain.Eye) error {
	if !c.rendering() {
		return nil
	}
	acquired := c.swapchains.Acquired(eye)
	if err := c.swapchains.Release(eye); err != nil {
		c.report(err)
		return err
	}
	if acquired {
		c.rendered[eye] = true
	}
	return nil
}

// EndFrame submits the frame. The projection layer, in Local space, is
// included only when both eyes were rendered and the views were valid.
// Every BeginFrame needs exactly one EndFrame.
func (c *Context) EndFrame() error {
	if c.closed {
		return ErrClosed
	}
	switch c.phase {
	case phaseIdle:
		return ErrFrameNotBegun
	case phaseSkipped:
		c.phase = phaseIdle
		return nil
	}
	c.phase = phaseIdle

	var errs []error
	for _, eye := range []swapchain.Eye{swapchain.Left, swapchain.Right} {
		if c.swapchains.Acquired(eye) {
			c.log.Warn("xr: eye still held at end of frame", slog.String("eye", eye.String()))
			if err := c.swapchains.Release(eye); err != nil {
				errs = append(errs, err)
				continue
			}
			c.rendered[eye] = true
		} else if c.swapchains.Held(eye) {
			// The image was never waited for; give it back unrendered.
			if err := c.swapchains.Release(eye); err != nil {
				errs = append(errs, err)
			}
		}
	}

	info := api.FrameEndInfo{
		DisplayTime:          c.frame.State.PredictedDisplayTime,
		EnvironmentBlendMode: api.EnvironmentBlendOpaque,
	}
	if c.frame.State.ShouldRender && c.frame.LayerValid && c.rendered[swapchain.Left] && c.rendered[swapchain.Right] {
		info.Layers = []api.CompositionLayer{&api.CompositionLayerProjection{
			Space: c.localSpace,
			Views: c.swapchains.ProjectionViews(),
		}}
	}
	if err := api.Check("xrEndFrame", c.rt.EndFrame(c.session, info)); err != nil {
		errs = append(errs, err)
	} else if c.metrics != nil {
		c.metrics.FrameSubmitted(len(info.Layers) > 0)
	}
	err := errors.Join(errs...)
	c.report(err)
	return err
}
