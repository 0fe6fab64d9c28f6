package xr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/gogpu/xr/api"
	"github.com/gogpu/xr/geometry"
	"github.com/gogpu/xr/input"
	"github.com/gogpu/xr/session"
	"github.com/gogpu/xr/swapchain"
	"github.com/gogpu/xr/telemetry"
)

// EngineName is reported to the runtime at instance creation.
const EngineName = "gogpu/xr"

// Errors returned by Context methods.
var (
	// ErrFrameNotBegun is returned by EndFrame without a matching BeginFrame.
	ErrFrameNotBegun = errors.New("xr: frame not begun")

	// ErrFrameInProgress is returned by BeginFrame before the previous
	// frame has ended.
	ErrFrameInProgress = errors.New("xr: frame already in progress")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("xr: context closed")

	// ErrViewCount is returned when the runtime does not offer two views.
	ErrViewCount = errors.New("xr: runtime does not offer a stereo view configuration")
)

// Context is one connection to an XR runtime: an instance, a session bound
// to the host device, its action set, reference spaces and per-eye
// swapchains. It is owned by a single goroutine.
//
// A typical loop:
//
//	for {
//	    res, _ := c.Update()
//	    if res.Signal.ExitRenderLoop {
//	        break
//	    }
//	    if err := c.BeginFrame(ctx); err != nil {
//	        return err
//	    }
//	    for _, eye := range []swapchain.Eye{swapchain.Left, swapchain.Right} {
//	        target, _ := c.AcquireForEye(eye)
//	        render(target)
//	        c.ReleaseForEye(eye)
//	    }
//	    c.EndFrame()
//	}
type Context struct {
	rt      api.Runtime
	opts    options
	log     *slog.Logger
	sink    telemetry.Sink
	metrics *telemetry.Metrics
	id      uuid.UUID

	instance api.Instance
	system   api.SystemID
	session  api.Session

	viewSpace  api.Space
	localSpace api.Space
	stageSpace api.Space

	viewConfigs []api.ViewConfigurationView
	machine     *session.Machine
	input       *input.System
	swapchains  *swapchain.Manager

	projection geometry.Projection
	views      [2]api.View
	head       HeadPose
	inputState input.State

	frame    Frame
	phase    phase
	rendered [2]bool
	closed   bool
}

// New connects to rt and prepares everything a frame loop needs. The
// session starts idle; it begins once the runtime reports it ready, from
// within Update. Any failure here is fatal: New releases what it created
// and returns the error.
func New(ctx context.Context, rt api.Runtime, opts ...Option) (*Context, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	c := &Context{
		rt:      rt,
		opts:    o,
		metrics: o.metrics,
		id:      uuid.New(),
	}
	base := o.logger
	if base == nil {
		base = Logger()
	}
	c.log = base.With(slog.String("session_id", c.id.String()))
	c.sink = o.sink
	if c.sink == nil {
		ropts := []telemetry.ReporterOption{}
		if c.metrics != nil {
			ropts = append(ropts, telemetry.WithMetrics(c.metrics))
		}
		c.sink = telemetry.NewReporter(c.log, ropts...)
	}

	if err := c.open(); err != nil {
		return nil, errors.Join(err, c.Close())
	}
	c.log.InfoContext(ctx, "xr: context ready",
		slog.String("application", o.appName),
		slog.Bool("headless", api.Headless(o.device)),
		slog.String("format", fmt.Sprint(c.swapchains.Format())),
		slog.Float64("aspect", float64(c.projection.Aspect)),
		slog.Float64("fov_degrees", float64(c.projection.FovDegrees)))
	return c, nil
}

// open creates the runtime objects in dependency order.
func (c *Context) open() error {
	var err error
	c.instance, err = c.rt.CreateInstance(api.InstanceCreateInfo{
		ApplicationName:    c.opts.appName,
		ApplicationVersion: c.opts.appVersion,
		EngineName:         EngineName,
	})
	if err = api.Check("xrCreateInstance", err); err != nil {
		return err
	}
	c.system, err = c.rt.GetSystem(c.instance, api.FormFactorHeadMountedDisplay)
	if err = api.Check("xrGetSystem", err); err != nil {
		return err
	}
	c.viewConfigs, err = c.rt.EnumerateViewConfigurationViews(c.instance, c.system, api.ViewConfigurationPrimaryStereo)
	if err = api.Check("xrEnumerateViewConfigurationViews", err); err != nil {
		return err
	}
	if len(c.viewConfigs) != api.StereoViewCount {
		return fmt.Errorf("%w: got %d views", ErrViewCount, len(c.viewConfigs))
	}
	c.session, err = c.rt.CreateSession(c.instance, api.SessionCreateInfo{System: c.system, Device: c.opts.device})
	if err = api.Check("xrCreateSession", err); err != nil {
		return err
	}

	inputOpts := append([]input.Option{
		input.WithLogger(c.log),
		input.WithFaultHandler(c.sink.Fault),
	}, c.opts.inputOpts...)
	c.input = input.New(c.rt, c.instance, c.session, inputOpts...)
	if err := c.input.Initialize(); err != nil {
		return err
	}

	for _, sp := range []struct {
		typ api.ReferenceSpaceType
		dst *api.Space
	}{
		{api.ReferenceSpaceView, &c.viewSpace},
		{api.ReferenceSpaceLocal, &c.localSpace},
		{api.ReferenceSpaceStage, &c.stageSpace},
	} {
		h, err := c.rt.CreateReferenceSpace(c.session, sp.typ, api.IdentityPose())
		if err = api.Check("xrCreateReferenceSpace", err); err != nil {
			return fmt.Errorf("xr: %s space: %w", sp.typ, err)
		}
		*sp.dst = h
	}

	swopts := []swapchain.Option{swapchain.WithLogger(c.log)}
	if len(c.opts.formats) > 0 {
		swopts = append(swopts, swapchain.WithFormats(c.opts.formats...))
	}
	c.swapchains, err = swapchain.Create(c.rt, c.session, c.viewConfigs, swopts...)
	if err != nil {
		return err
	}

	// The runtime reports view frustums before the session runs; display
	// time 1 is the earliest valid time.
	_, views, err := c.rt.LocateViews(c.session, api.ViewLocateInfo{
		ViewConfiguration: api.ViewConfigurationPrimaryStereo,
		DisplayTime:       1,
		Space:             c.localSpace,
	})
	if err = api.Check("xrLocateViews", err); err != nil {
		return err
	}
	if len(views) != api.StereoViewCount {
		return fmt.Errorf("%w: located %d views", ErrViewCount, len(views))
	}
	copy(c.views[:], views)
	c.projection = geometry.StereoProjection(views[0].Fov, views[1].Fov)

	mopts := []session.Option{session.WithLogger(c.log)}
	if c.metrics != nil {
		mopts = append(mopts, session.WithListener(c.metrics))
	}
	for _, l := range c.opts.listeners {
		mopts = append(mopts, session.WithListener(l))
	}
	c.machine = session.New(c.rt, c.instance, c.session, mopts...)

	propagateLogger(c.rt, c.log)
	return nil
}

// ID returns the random identifier attached to every log line of this
// Context as session_id.
func (c *Context) ID() uuid.UUID { return c.id }

// Instance returns the runtime instance.
func (c *Context) Instance() api.Instance { return c.instance }

// Session returns the runtime session.
func (c *Context) Session() api.Session { return c.session }

// State returns the session state last seen by Update.
func (c *Context) State() api.SessionState { return c.machine.State() }

// Running reports whether the session has begun and not ended.
func (c *Context) Running() bool { return c.machine.Running() }

// Projection returns the combined stereo aspect, vertical field of view in
// degrees and per-eye texture bounds.
func (c *Context) Projection() geometry.Projection { return c.projection }

// Views returns the per-eye views of the current frame, or the startup
// views before the first rendered frame.
func (c *Context) Views() [2]api.View { return c.views }

// HeadPose returns the head pose located in the current frame.
func (c *Context) HeadPose() HeadPose { return c.head }

// Input returns the action state of the last Update.
func (c *Context) Input() input.State { return c.inputState }

// Frame returns the current frame's timing and render decision.
func (c *Context) Frame() Frame { return c.frame }

// ViewConfigurations returns the runtime's recommended per-eye render
// target parameters.
func (c *Context) ViewConfigurations() []api.ViewConfigurationView { return c.viewConfigs }

// Swapchains returns the swapchain manager.
func (c *Context) Swapchains() *swapchain.Manager { return c.swapchains }

// Actions returns the action system.
func (c *Context) Actions() *input.System { return c.input }

// LocateHands returns both controller poses in Stage space at the current
// frame's display time.
func (c *Context) LocateHands() ([2]api.SpaceLocation, error) {
	t := c.frame.State.PredictedDisplayTime
	if t == 0 {
		t = 1
	}
	locs, err := c.input.LocateHands(c.stageSpace, t)
	c.report(err)
	return locs, err
}

// report forwards a non-fatal fault to the sink.
func (c *Context) report(err error) {
	if err != nil {
		c.sink.Fault(err)
	}
}

// Close destroys the swapchains, action set, spaces, session and instance,
// in that order. It is safe to call more than once.
func (c *Context) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true

	var errs []error
	if c.swapchains != nil {
		errs = append(errs, c.swapchains.Destroy())
	}
	if c.input != nil {
		errs = append(errs, c.input.Destroy())
	}
	for _, sp := range []api.Space{c.viewSpace, c.localSpace, c.stageSpace} {
		if sp != 0 {
			errs = append(errs, api.Check("xrDestroySpace", c.rt.DestroySpace(sp)))
		}
	}
	if c.session != 0 {
		errs = append(errs, api.Check("xrDestroySession", c.rt.DestroySession(c.session)))
	}
	if c.instance != 0 {
		errs = append(errs, api.Check("xrDestroyInstance", c.rt.DestroyInstance(c.instance)))
	}
	err := errors.Join(errs...)
	if err != nil {
		c.log.Warn("xr: close", slog.String("err", err.Error()))
	} else {
		c.log.Info("xr: context closed")
	}
	return err
}
