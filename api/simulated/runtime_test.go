// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package simulated

import (
	"context"
	"errors"
	"image"
	"math"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"golang.org/x/image/math/f32"

	"github.com/gogpu/xr/api"
	"github.com/gogpu/xr/geometry"
)

// fixture opens an instance, system and session on a runtime.
type fixture struct {
	rt   *Runtime
	inst api.Instance
	sys  api.SystemID
	s    api.Session
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	rt := New(cfg)
	inst, err := rt.CreateInstance(api.InstanceCreateInfo{ApplicationName: "test"})
	if err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	sys, err := rt.GetSystem(inst, api.FormFactorHeadMountedDisplay)
	if err != nil {
		t.Fatalf("GetSystem: %v", err)
	}
	s, err := rt.CreateSession(inst, api.SessionCreateInfo{System: sys, Device: api.NullDevice{}})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	return &fixture{rt: rt, inst: inst, sys: sys, s: s}
}

// drain polls until the queue is empty and returns the events.
func (f *fixture) drain(t *testing.T) []api.Event {
	t.Helper()
	var out []api.Event
	for {
		ev, err := f.rt.PollEvent(f.inst)
		if err != nil {
			t.Fatalf("PollEvent: %v", err)
		}
		if ev == nil {
			return out
		}
		out = append(out, ev)
	}
}

func (f *fixture) path(t *testing.T, s string) api.Path {
	t.Helper()
	p, err := f.rt.StringToPath(f.inst, s)
	if err != nil {
		t.Fatalf("StringToPath(%q): %v", s, err)
	}
	return p
}

func manual() Config {
	cfg := DefaultConfig()
	cfg.AutoLifecycle = false
	return cfg
}

func TestHandleKinds(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	if _, err := f.rt.GetSystem(api.Instance(f.s), api.FormFactorHeadMountedDisplay); !errors.Is(err, api.ErrorHandleInvalid) {
		t.Errorf("GetSystem(session handle) error = %v, want %v", err, api.ErrorHandleInvalid)
	}
	if _, err := f.rt.GetSystem(f.inst, api.FormFactorHandheldDisplay); !errors.Is(err, api.ErrorFormFactorUnavailable) {
		t.Errorf("GetSystem(handheld) error = %v, want %v", err, api.ErrorFormFactorUnavailable)
	}
	if _, err := f.rt.CreateInstance(api.InstanceCreateInfo{ApplicationName: "second"}); err == nil {
		t.Error("second CreateInstance succeeded, want error")
	}
	if err := f.rt.DestroyInstance(f.inst); err != nil {
		t.Fatalf("DestroyInstance: %v", err)
	}
	if n := f.rt.Live(); n != 0 {
		t.Errorf("Live() = %d after DestroyInstance, want 0", n)
	}
}

func TestStringToPath(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	a := f.path(t, "/user/hand/left")
	b := f.path(t, "/user/hand/left")
	if a != b {
		t.Errorf("interned paths differ: %d != %d", a, b)
	}
	if got := f.rt.PathString(a); got != "/user/hand/left" {
		t.Errorf("PathString = %q, want /user/hand/left", got)
	}
	for _, bad := range []string{"", "/", "user/hand", "/user//hand", "/user/hand/", "/User/Hand"} {
		if _, err := f.rt.StringToPath(f.inst, bad); !errors.Is(err, api.ErrorPathInvalid) {
			t.Errorf("StringToPath(%q) error = %v, want %v", bad, err, api.ErrorPathInvalid)
		}
	}
}

func TestAutoLifecycle(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	evs := f.drain(t)
	if len(evs) != 2 {
		t.Fatalf("got %d events, want idle and ready: %v", len(evs), evs)
	}
	if sc := evs[1].(api.SessionStateChanged); sc.State != api.SessionStateReady {
		t.Fatalf("second event state = %v, want ready", sc.State)
	}
	if err := f.rt.BeginSession(f.s, api.ViewConfigurationPrimaryStereo); err != nil {
		t.Fatalf("BeginSession: %v", err)
	}
	f.drain(t)
	if got := f.rt.State(); got != api.SessionStateFocused {
		t.Errorf("State() = %v, want focused", got)
	}

	f.rt.RequestExit()
	f.drain(t)
	if got := f.rt.State(); got != api.SessionStateStopping {
		t.Fatalf("State() after RequestExit = %v, want stopping", got)
	}
	if err := f.rt.EndSession(f.s); err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	f.drain(t)
	if got := f.rt.State(); got != api.SessionStateExiting {
		t.Errorf("State() after EndSession = %v, want exiting", got)
	}
}

func TestBeginSessionRequiresReady(t *testing.T) {
	f := newFixture(t, manual())
	f.drain(t)

	if err := f.rt.BeginSession(f.s, api.ViewConfigurationPrimaryStereo); !errors.Is(err, api.ErrorSessionNotReady) {
		t.Fatalf("BeginSession(idle) error = %v, want %v", err, api.ErrorSessionNotReady)
	}
	f.rt.QueueSessionState(api.SessionStateReady)
	f.drain(t)
	if err := f.rt.BeginSession(f.s, api.ViewConfigurationPrimaryMono); !errors.Is(err, api.ErrorViewConfigurationTypeUnsupported) {
		t.Errorf("BeginSession(mono) error = %v, want %v", err, api.ErrorViewConfigurationTypeUnsupported)
	}
	if err := f.rt.BeginSession(f.s, api.ViewConfigurationPrimaryStereo); err != nil {
		t.Fatalf("BeginSession(ready): %v", err)
	}
	if err := f.rt.BeginSession(f.s, api.ViewConfigurationPrimaryStereo); !errors.Is(err, api.ErrorSessionRunning) {
		t.Errorf("second BeginSession error = %v, want %v", err, api.ErrorSessionRunning)
	}
	if err := f.rt.EndSession(f.s); !errors.Is(err, api.ErrorSessionNotStopping) {
		t.Errorf("EndSession(ready) error = %v, want %v", err, api.ErrorSessionNotStopping)
	}
}

func TestEventOverflow(t *testing.T) {
	cfg := manual()
	cfg.EventCapacity = 2
	f := newFixture(t, cfg) // queues idle

	f.rt.QueueSessionState(api.SessionStateReady, api.SessionStateSynchronized, api.SessionStateVisible)

	evs := f.drain(t)
	lost, ok := evs[0].(api.EventsLost)
	if !ok {
		t.Fatalf("first event = %T, want EventsLost", evs[0])
	}
	if lost.LostEventCount != 2 {
		t.Errorf("LostEventCount = %d, want 2", lost.LostEventCount)
	}
	if len(evs) != 3 {
		t.Errorf("got %d events, want 3", len(evs))
	}
}

func TestForeignSessionEventLeavesStateAlone(t *testing.T) {
	f := newFixture(t, manual())
	f.drain(t)

	f.rt.QueueEvent(api.SessionStateChanged{Session: f.s + 100, State: api.SessionStateReady})
	f.drain(t)
	if got := f.rt.State(); got != api.SessionStateIdle {
		t.Errorf("State() = %v, want idle", got)
	}
}

// begin drives the session to focused and running.
func (f *fixture) begin(t *testing.T) {
	t.Helper()
	f.drain(t)
	if f.rt.State() != api.SessionStateReady {
		f.rt.QueueSessionState(api.SessionStateReady)
		f.drain(t)
	}
	if err := f.rt.BeginSession(f.s, api.ViewConfigurationPrimaryStereo); err != nil {
		t.Fatalf("BeginSession: %v", err)
	}
	if !f.rt.Config().AutoLifecycle {
		f.rt.QueueSessionState(api.SessionStateSynchronized, api.SessionStateVisible, api.SessionStateFocused)
	}
	f.drain(t)
}

func (f *fixture) swapchain(t *testing.T) api.Swapchain {
	t.Helper()
	sc, err := f.rt.CreateSwapchain(f.s, api.SwapchainCreateInfo{
		Format:      gputypes.TextureFormatRGBA8Unorm,
		Usage:       gputypes.TextureUsageTextureBinding | gputypes.TextureUsageRenderAttachment,
		Width:       64,
		Height:      32,
		SampleCount: 1,
		ArraySize:   1,
		MipCount:    1,
		FaceCount:   1,
	})
	if err != nil {
		t.Fatalf("CreateSwapchain: %v", err)
	}
	return sc
}

func TestSwapchainProtocol(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	sc := f.swapchain(t)

	n, err := f.rt.EnumerateSwapchainImages(sc, nil)
	if err != nil || n != 3 {
		t.Fatalf("EnumerateSwapchainImages(nil) = %d, %v; want 3, nil", n, err)
	}
	if _, err := f.rt.EnumerateSwapchainImages(sc, make([]api.SwapchainImage, 1)); !errors.Is(err, api.ErrorValidationFailure) {
		t.Errorf("short slice error = %v, want %v", err, api.ErrorValidationFailure)
	}
	images := make([]api.SwapchainImage, n)
	if _, err := f.rt.EnumerateSwapchainImages(sc, images); err != nil {
		t.Fatalf("EnumerateSwapchainImages: %v", err)
	}
	if img, ok := images[0].(api.OpenGLImage); !ok || img.Texture == 0 {
		t.Errorf("images[0] = %#v, want non-zero OpenGLImage", images[0])
	}

	if err := f.rt.WaitSwapchainImage(sc, api.InfiniteDuration); !errors.Is(err, api.ErrorCallOrderInvalid) {
		t.Errorf("wait before acquire error = %v, want %v", err, api.ErrorCallOrderInvalid)
	}
	if err := f.rt.ReleaseSwapchainImage(sc); !errors.Is(err, api.ErrorCallOrderInvalid) {
		t.Errorf("release before acquire error = %v, want %v", err, api.ErrorCallOrderInvalid)
	}

	for want := range uint32(4) {
		idx, err := f.rt.AcquireSwapchainImage(sc)
		if err != nil {
			t.Fatalf("Acquire: %v", err)
		}
		if idx != want%n {
			t.Errorf("Acquire index = %d, want %d", idx, want%n)
		}
		if _, err := f.rt.AcquireSwapchainImage(sc); !errors.Is(err, api.ErrorCallOrderInvalid) {
			t.Errorf("double acquire error = %v, want %v", err, api.ErrorCallOrderInvalid)
		}
		if err := f.rt.ReleaseSwapchainImage(sc); !errors.Is(err, api.ErrorCallOrderInvalid) {
			t.Errorf("release before wait error = %v, want %v", err, api.ErrorCallOrderInvalid)
		}
		if err := f.rt.WaitSwapchainImage(sc, api.InfiniteDuration); err != nil {
			t.Fatalf("Wait: %v", err)
		}
		if err := f.rt.ReleaseSwapchainImage(sc); err != nil {
			t.Fatalf("Release: %v", err)
		}
	}
}

// gpuDevice is a DeviceProvider with a device behind it.
type gpuDevice struct{ api.NullDevice }

func (gpuDevice) Device() gpucontext.Device { return struct{}{} }

func TestSwapchainImagesFollowDevice(t *testing.T) {
	rt := New(DefaultConfig())
	inst, err := rt.CreateInstance(api.InstanceCreateInfo{ApplicationName: "test"})
	if err != nil {
		t.Fatal(err)
	}
	sys, err := rt.GetSystem(inst, api.FormFactorHeadMountedDisplay)
	if err != nil {
		t.Fatal(err)
	}
	s, err := rt.CreateSession(inst, api.SessionCreateInfo{System: sys, Device: gpuDevice{}})
	if err != nil {
		t.Fatal(err)
	}
	f := &fixture{rt: rt, inst: inst, sys: sys, s: s}
	sc := f.swapchain(t)

	images := make([]api.SwapchainImage, 3)
	if _, err := rt.EnumerateSwapchainImages(sc, images); err != nil {
		t.Fatal(err)
	}
	info, _ := rt.SwapchainInfo(sc)
	for i, si := range images {
		img, ok := si.(api.GPUImage)
		if !ok {
			t.Fatalf("images[%d] = %#v, want GPUImage", i, si)
		}
		if img.Texture.Width() != int(info.Width) || img.Texture.Height() != int(info.Height) {
			t.Errorf("images[%d] = %dx%d, want %dx%d", i, img.Texture.Width(), img.Texture.Height(), info.Width, info.Height)
		}
	}
}

func TestCreateSwapchainValidation(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	info := api.SwapchainCreateInfo{
		Format: gputypes.TextureFormatRGBA8Unorm, Width: 16, Height: 16,
		SampleCount: 1, ArraySize: 1, MipCount: 1, FaceCount: 1,
	}
	bad := info
	bad.Format = gputypes.TextureFormatUndefined
	if _, err := f.rt.CreateSwapchain(f.s, bad); !errors.Is(err, api.ErrorSwapchainFormatUnsupported) {
		t.Errorf("unsupported format error = %v, want %v", err, api.ErrorSwapchainFormatUnsupported)
	}
	bad = info
	bad.Width = 1 << 20
	if _, err := f.rt.CreateSwapchain(f.s, bad); !errors.Is(err, api.ErrorValidationFailure) {
		t.Errorf("oversized error = %v, want %v", err, api.ErrorValidationFailure)
	}
	if _, err := f.rt.CreateSwapchain(f.s, info); err != nil {
		t.Errorf("valid CreateSwapchain: %v", err)
	}
}

func TestFrameLoop(t *testing.T) {
	f := newFixture(t, manual())
	f.drain(t)
	ctx := context.Background()

	if _, err := f.rt.WaitFrame(ctx, f.s); !errors.Is(err, api.ErrorSessionNotRunning) {
		t.Fatalf("WaitFrame(not running) error = %v, want %v", err, api.ErrorSessionNotRunning)
	}

	f.rt.QueueSessionState(api.SessionStateReady)
	f.drain(t)
	if err := f.rt.BeginSession(f.s, api.ViewConfigurationPrimaryStereo); err != nil {
		t.Fatal(err)
	}
	fs, err := f.rt.WaitFrame(ctx, f.s)
	if err != nil {
		t.Fatal(err)
	}
	if fs.ShouldRender {
		t.Error("ShouldRender = true in ready, want false")
	}

	f.rt.QueueSessionState(api.SessionStateSynchronized, api.SessionStateVisible)
	f.drain(t)
	if err := f.rt.EndFrame(f.s, api.FrameEndInfo{DisplayTime: fs.PredictedDisplayTime, EnvironmentBlendMode: api.EnvironmentBlendOpaque}); !errors.Is(err, api.ErrorCallOrderInvalid) {
		t.Errorf("EndFrame before BeginFrame error = %v, want %v", err, api.ErrorCallOrderInvalid)
	}
	if err := f.rt.BeginFrame(f.s); err != nil {
		t.Fatal(err)
	}
	if err := f.rt.EndFrame(f.s, api.FrameEndInfo{DisplayTime: fs.PredictedDisplayTime, EnvironmentBlendMode: api.EnvironmentBlendOpaque}); err != nil {
		t.Fatalf("EndFrame(no layers): %v", err)
	}
	if err := f.rt.BeginFrame(f.s); !errors.Is(err, api.ErrorCallOrderInvalid) {
		t.Errorf("BeginFrame without WaitFrame error = %v, want %v", err, api.ErrorCallOrderInvalid)
	}

	next, err := f.rt.WaitFrame(ctx, f.s)
	if err != nil {
		t.Fatal(err)
	}
	if !next.ShouldRender {
		t.Error("ShouldRender = false in visible, want true")
	}
	if next.PredictedDisplayTime <= fs.PredictedDisplayTime {
		t.Errorf("display time %d did not advance past %d", next.PredictedDisplayTime, fs.PredictedDisplayTime)
	}
}

func TestEndFrameRequiresReleasedImages(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.begin(t)
	sc := f.swapchain(t)
	local, err := f.rt.CreateReferenceSpace(f.s, api.ReferenceSpaceLocal, api.IdentityPose())
	if err != nil {
		t.Fatal(err)
	}

	fs, err := f.rt.WaitFrame(context.Background(), f.s)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.rt.BeginFrame(f.s); err != nil {
		t.Fatal(err)
	}
	view := api.CompositionLayerProjectionView{
		Pose:     api.IdentityPose(),
		SubImage: api.SwapchainSubImage{Swapchain: sc, ImageRect: image.Rect(0, 0, 64, 32)},
	}
	end := api.FrameEndInfo{
		DisplayTime:          fs.PredictedDisplayTime,
		EnvironmentBlendMode: api.EnvironmentBlendOpaque,
		Layers: []api.CompositionLayer{&api.CompositionLayerProjection{
			Space: local,
			Views: []api.CompositionLayerProjectionView{view, view},
		}},
	}
	if err := f.rt.EndFrame(f.s, end); !errors.Is(err, api.ErrorCallOrderInvalid) {
		t.Fatalf("EndFrame with unreleased swapchain error = %v, want %v", err, api.ErrorCallOrderInvalid)
	}

	if _, err := f.rt.AcquireSwapchainImage(sc); err != nil {
		t.Fatal(err)
	}
	if err := f.rt.WaitSwapchainImage(sc, api.InfiniteDuration); err != nil {
		t.Fatal(err)
	}
	if err := f.rt.ReleaseSwapchainImage(sc); err != nil {
		t.Fatal(err)
	}
	if err := f.rt.EndFrame(f.s, end); err != nil {
		t.Fatalf("EndFrame: %v", err)
	}
	if got := len(f.rt.Frames()); got != 1 {
		t.Errorf("Frames() = %d, want 1", got)
	}
}

func TestWaitFrameHonorsContext(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Pace = true
	f := newFixture(t, cfg)
	f.begin(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.rt.WaitFrame(ctx, f.s); !errors.Is(err, context.Canceled) {
		t.Errorf("WaitFrame(canceled) error = %v, want context.Canceled", err)
	}
}

func TestLocateViews(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	local, err := f.rt.CreateReferenceSpace(f.s, api.ReferenceSpaceLocal, api.IdentityPose())
	if err != nil {
		t.Fatal(err)
	}
	stage, err := f.rt.CreateReferenceSpace(f.s, api.ReferenceSpaceStage, api.IdentityPose())
	if err != nil {
		t.Fatal(err)
	}

	if _, _, err := f.rt.LocateViews(f.s, api.ViewLocateInfo{ViewConfiguration: api.ViewConfigurationPrimaryStereo, Space: local}); !errors.Is(err, api.ErrorValidationFailure) {
		t.Errorf("LocateViews(time 0) error = %v, want %v", err, api.ErrorValidationFailure)
	}

	state, views, err := f.rt.LocateViews(f.s, api.ViewLocateInfo{
		ViewConfiguration: api.ViewConfigurationPrimaryStereo,
		DisplayTime:       1,
		Space:             local,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !state.PoseValid() {
		t.Error("PoseValid() = false, want true")
	}
	if len(views) != 2 {
		t.Fatalf("got %d views, want 2", len(views))
	}
	sep := views[1].Pose.Position[0] - views[0].Pose.Position[0]
	if math.Abs(float64(sep-0.064)) > 1e-6 {
		t.Errorf("eye separation = %v, want 0.064", sep)
	}
	if math.Abs(float64(views[0].Pose.Position[1])) > 1e-6 {
		t.Errorf("eye height in local = %v, want 0", views[0].Pose.Position[1])
	}

	_, views, err = f.rt.LocateViews(f.s, api.ViewLocateInfo{
		ViewConfiguration: api.ViewConfigurationPrimaryStereo,
		DisplayTime:       1,
		Space:             stage,
	})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(float64(views[0].Pose.Position[1]-standingHeight)) > 1e-6 {
		t.Errorf("eye height in stage = %v, want %v", views[0].Pose.Position[1], standingHeight)
	}

	f.rt.SetViewTracking(api.ViewStateOrientationValid)
	state, _, _ = f.rt.LocateViews(f.s, api.ViewLocateInfo{
		ViewConfiguration: api.ViewConfigurationPrimaryStereo,
		DisplayTime:       1,
		Space:             stage,
	})
	if state.PoseValid() {
		t.Error("PoseValid() = true with position invalid, want false")
	}
}

func TestSetFov(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	local, err := f.rt.CreateReferenceSpace(f.s, api.ReferenceSpaceLocal, api.IdentityPose())
	if err != nil {
		t.Fatal(err)
	}
	narrow := geometry.SymmetricFov(0.5)
	f.rt.SetFov(1, narrow)

	_, views, err := f.rt.LocateViews(f.s, api.ViewLocateInfo{
		ViewConfiguration: api.ViewConfigurationPrimaryStereo,
		DisplayTime:       1,
		Space:             local,
	})
	if err != nil {
		t.Fatal(err)
	}
	if views[1].Fov != narrow {
		t.Errorf("right Fov = %+v, want %+v", views[1].Fov, narrow)
	}
	if views[0].Fov != DefaultConfig().Fov[0] {
		t.Errorf("left Fov = %+v, want the configured one", views[0].Fov)
	}
}

func TestLocateSpaceRotatedHead(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	view, _ := f.rt.CreateReferenceSpace(f.s, api.ReferenceSpaceView, api.IdentityPose())
	stage, _ := f.rt.CreateReferenceSpace(f.s, api.ReferenceSpaceStage, api.IdentityPose())

	// 90 degrees about Y.
	s := float32(math.Sqrt(0.5))
	q := geometry.Quaternion{Y: s, W: s}
	f.rt.SetHeadPose(api.Pose{Orientation: q, Position: f32.Vec3{1, 2, 3}})

	loc, err := f.rt.LocateSpace(view, stage, 1)
	if err != nil {
		t.Fatal(err)
	}
	if loc.Pose.Position != (f32.Vec3{1, 2, 3}) {
		t.Errorf("Position = %v, want [1 2 3]", loc.Pose.Position)
	}
	if loc.Pose.Orientation != q {
		t.Errorf("Orientation = %v, want %v", loc.Pose.Orientation, q)
	}

	back, err := f.rt.LocateSpace(stage, view, 1)
	if err != nil {
		t.Fatal(err)
	}
	round := compose(loc.Pose, back.Pose)
	for i, v := range round.Position {
		if math.Abs(float64(v)) > 1e-5 {
			t.Errorf("round-trip Position[%d] = %v, want 0", i, v)
		}
	}
}

// actionFixture declares one action of each kind used by the tests and
// suggests Touch bindings for them.
type actionFixture struct {
	*fixture
	set                 api.ActionSet
	grab, quit, vibrate api.Action
	pose, move          api.Action
	left, right         api.Path
}

func newActionFixture(t *testing.T, cfg Config) *actionFixture {
	t.Helper()
	f := &actionFixture{fixture: newFixture(t, cfg)}
	f.left = f.path(t, "/user/hand/left")
	f.right = f.path(t, "/user/hand/right")
	hands := []api.Path{f.left, f.right}

	var err error
	f.set, err = f.rt.CreateActionSet(f.inst, api.ActionSetCreateInfo{Name: "gameplay", LocalizedName: "Gameplay"})
	if err != nil {
		t.Fatal(err)
	}
	mk := func(name string, typ api.ActionType, subs []api.Path) api.Action {
		a, err := f.rt.CreateAction(f.set, api.ActionCreateInfo{Name: name, LocalizedName: name, Type: typ, SubactionPaths: subs})
		if err != nil {
			t.Fatalf("CreateAction(%s): %v", name, err)
		}
		return a
	}
	f.grab = mk("grab_object", api.ActionTypeFloatInput, hands)
	f.pose = mk("hand_pose", api.ActionTypePoseInput, hands)
	f.vibrate = mk("vibrate_hand", api.ActionTypeVibrationOutput, hands)
	f.quit = mk("quit_session", api.ActionTypeBooleanInput, nil)
	f.move = mk("move", api.ActionTypeVector2fInput, nil)

	bind := []struct {
		a    api.Action
		path string
	}{
		{f.grab, "/user/hand/left/input/squeeze/value"},
		{f.grab, "/user/hand/right/input/squeeze/value"},
		{f.pose, "/user/hand/left/input/grip/pose"},
		{f.pose, "/user/hand/right/input/grip/pose"},
		{f.vibrate, "/user/hand/left/output/haptic"},
		{f.vibrate, "/user/hand/right/output/haptic"},
		{f.quit, "/user/hand/left/input/menu/click"},
		{f.move, "/user/hand/right/input/thumbstick"},
	}
	suggested := api.InteractionProfileSuggestedBinding{
		InteractionProfile: f.path(t, "/interaction_profiles/oculus/touch_controller"),
	}
	for _, b := range bind {
		suggested.Bindings = append(suggested.Bindings, api.ActionSuggestedBinding{Action: b.a, Binding: f.path(t, b.path)})
	}
	if err := f.rt.SuggestInteractionProfileBindings(f.inst, suggested); err != nil {
		t.Fatalf("SuggestInteractionProfileBindings: %v", err)
	}
	return f
}

func (f *actionFixture) attach(t *testing.T) {
	t.Helper()
	if err := f.rt.AttachSessionActionSets(f.s, []api.ActionSet{f.set}); err != nil {
		t.Fatalf("AttachSessionActionSets: %v", err)
	}
}

func (f *actionFixture) sync(t *testing.T) {
	t.Helper()
	if err := f.rt.SyncActions(f.s, []api.ActiveActionSet{{ActionSet: f.set}}); err != nil {
		t.Fatalf("SyncActions: %v", err)
	}
}

func TestAttachFreezes(t *testing.T) {
	f := newActionFixture(t, DefaultConfig())

	if err := f.rt.SyncActions(f.s, []api.ActiveActionSet{{ActionSet: f.set}}); !errors.Is(err, api.ErrorActionSetNotAttached) {
		t.Errorf("SyncActions before attach error = %v, want %v", err, api.ErrorActionSetNotAttached)
	}
	f.attach(t)
	if err := f.rt.AttachSessionActionSets(f.s, []api.ActionSet{f.set}); !errors.Is(err, api.ErrorActionSetsAlreadyAttached) {
		t.Errorf("second attach error = %v, want %v", err, api.ErrorActionSetsAlreadyAttached)
	}
	if _, err := f.rt.CreateAction(f.set, api.ActionCreateInfo{Name: "late", LocalizedName: "Late", Type: api.ActionTypeBooleanInput}); !errors.Is(err, api.ErrorActionSetsAlreadyAttached) {
		t.Errorf("CreateAction after attach error = %v, want %v", err, api.ErrorActionSetsAlreadyAttached)
	}
	err := f.rt.SuggestInteractionProfileBindings(f.inst, api.InteractionProfileSuggestedBinding{
		InteractionProfile: f.path(t, "/interaction_profiles/khr/simple_controller"),
		Bindings:           []api.ActionSuggestedBinding{{Action: f.quit, Binding: f.path(t, "/user/hand/left/input/menu/click")}},
	})
	if !errors.Is(err, api.ErrorActionSetsAlreadyAttached) {
		t.Errorf("suggest after attach error = %v, want %v", err, api.ErrorActionSetsAlreadyAttached)
	}
}

func TestSyncActionsRequiresFocus(t *testing.T) {
	f := newActionFixture(t, DefaultConfig())
	f.attach(t)
	f.rt.SetFloat("/user/hand/left/input/squeeze/value", 0.7)

	f.sync(t)
	st, err := f.rt.GetActionStateFloat(f.s, api.ActionStateGetInfo{Action: f.grab, SubactionPath: f.left})
	if err != nil {
		t.Fatal(err)
	}
	if st.IsActive {
		t.Error("IsActive = true before focus, want false")
	}

	f.begin(t)
	f.sync(t)
	st, _ = f.rt.GetActionStateFloat(f.s, api.ActionStateGetInfo{Action: f.grab, SubactionPath: f.left})
	if !st.IsActive || st.CurrentState != 0.7 || !st.ChangedSinceLastSync {
		t.Errorf("left grab = %+v, want active 0.7 changed", st)
	}
	st, _ = f.rt.GetActionStateFloat(f.s, api.ActionStateGetInfo{Action: f.grab, SubactionPath: f.right})
	if !st.IsActive || st.CurrentState != 0 {
		t.Errorf("right grab = %+v, want active 0", st)
	}
	st, _ = f.rt.GetActionStateFloat(f.s, api.ActionStateGetInfo{Action: f.grab})
	if st.CurrentState != 0.7 {
		t.Errorf("grab without subaction = %v, want 0.7", st.CurrentState)
	}
}

func TestBooleanEdge(t *testing.T) {
	f := newActionFixture(t, DefaultConfig())
	f.attach(t)
	f.begin(t)

	get := func() api.ActionStateBoolean {
		st, err := f.rt.GetActionStateBoolean(f.s, api.ActionStateGetInfo{Action: f.quit})
		if err != nil {
			t.Fatal(err)
		}
		return st
	}

	f.rt.SetBool("/user/hand/left/input/menu/click", true)
	f.sync(t)
	if st := get(); !st.CurrentState || !st.ChangedSinceLastSync {
		t.Errorf("first sync = %+v, want pressed and changed", st)
	}
	f.sync(t)
	if st := get(); !st.CurrentState || st.ChangedSinceLastSync {
		t.Errorf("second sync = %+v, want pressed and unchanged", st)
	}
	f.rt.SetBool("/user/hand/left/input/menu/click", false)
	f.sync(t)
	if st := get(); st.CurrentState || !st.ChangedSinceLastSync {
		t.Errorf("release sync = %+v, want released and changed", st)
	}
}

func TestActionStateErrors(t *testing.T) {
	f := newActionFixture(t, DefaultConfig())

	if _, err := f.rt.GetActionStateBoolean(f.s, api.ActionStateGetInfo{Action: f.quit}); !errors.Is(err, api.ErrorActionSetNotAttached) {
		t.Errorf("state before attach error = %v, want %v", err, api.ErrorActionSetNotAttached)
	}
	f.attach(t)
	if _, err := f.rt.GetActionStateBoolean(f.s, api.ActionStateGetInfo{Action: f.grab}); !errors.Is(err, api.ErrorActionTypeMismatch) {
		t.Errorf("type mismatch error = %v, want %v", err, api.ErrorActionTypeMismatch)
	}
	if _, err := f.rt.GetActionStateBoolean(f.s, api.ActionStateGetInfo{Action: f.quit, SubactionPath: f.left}); !errors.Is(err, api.ErrorPathUnsupported) {
		t.Errorf("undeclared subaction error = %v, want %v", err, api.ErrorPathUnsupported)
	}
	if _, err := f.rt.CreateActionSpace(f.s, api.ActionSpaceCreateInfo{Action: f.grab, PoseInActionSpace: api.IdentityPose()}); !errors.Is(err, api.ErrorActionTypeMismatch) {
		t.Errorf("CreateActionSpace(float) error = %v, want %v", err, api.ErrorActionTypeMismatch)
	}
}

func TestVector2AndProfileSwitch(t *testing.T) {
	f := newActionFixture(t, DefaultConfig())
	f.attach(t)
	f.begin(t)

	f.rt.SetVector2("/user/hand/right/input/thumbstick", f32.Vec2{0.5, -1})
	f.sync(t)
	st, err := f.rt.GetActionStateVector2f(f.s, api.ActionStateGetInfo{Action: f.move})
	if err != nil {
		t.Fatal(err)
	}
	if !st.IsActive || st.CurrentState != (f32.Vec2{0.5, -1}) {
		t.Errorf("move = %+v, want active [0.5 -1]", st)
	}

	f.rt.SetActiveProfile("/interaction_profiles/htc/vive_controller")
	f.sync(t)
	st, _ = f.rt.GetActionStateVector2f(f.s, api.ActionStateGetInfo{Action: f.move})
	if st.IsActive {
		t.Error("move active under a profile with no suggestion, want inactive")
	}
}

func TestHaptics(t *testing.T) {
	f := newActionFixture(t, DefaultConfig())
	f.attach(t)

	pulse := api.HapticVibration{Duration: api.MinHapticDuration, Frequency: api.FrequencyUnspecified, Amplitude: 0.5}
	if err := f.rt.ApplyHapticFeedback(f.s, api.HapticActionInfo{Action: f.vibrate, SubactionPath: f.left}, pulse); err != nil {
		t.Fatal(err)
	}
	if n := len(f.rt.Haptics()); n != 0 {
		t.Errorf("Haptics() = %d before focus, want 0", n)
	}

	f.begin(t)
	if err := f.rt.ApplyHapticFeedback(f.s, api.HapticActionInfo{Action: f.vibrate, SubactionPath: f.left}, pulse); err != nil {
		t.Fatal(err)
	}
	h := f.rt.Haptics()
	if len(h) != 1 || h[0].Hand != "/user/hand/left" || h[0].Vibration != pulse {
		t.Errorf("Haptics() = %+v, want one left pulse", h)
	}
	if err := f.rt.ApplyHapticFeedback(f.s, api.HapticActionInfo{Action: f.quit}, pulse); !errors.Is(err, api.ErrorActionTypeMismatch) {
		t.Errorf("haptic on boolean error = %v, want %v", err, api.ErrorActionTypeMismatch)
	}
}

func TestActionSpaceTracking(t *testing.T) {
	f := newActionFixture(t, DefaultConfig())
	leftSpace, err := f.rt.CreateActionSpace(f.s, api.ActionSpaceCreateInfo{Action: f.pose, SubactionPath: f.left, PoseInActionSpace: api.IdentityPose()})
	if err != nil {
		t.Fatal(err)
	}
	stage, _ := f.rt.CreateReferenceSpace(f.s, api.ReferenceSpaceStage, api.IdentityPose())

	loc, err := f.rt.LocateSpace(leftSpace, stage, 1)
	if err != nil {
		t.Fatal(err)
	}
	if loc.Flags != 0 {
		t.Errorf("Flags before attach = %b, want 0", loc.Flags)
	}

	f.attach(t)
	want := f32.Vec3{-0.4, 1.0, -0.5}
	f.rt.SetHandPose(0, api.Pose{Orientation: geometry.IdentityQuaternion(), Position: want})
	loc, err = f.rt.LocateSpace(leftSpace, stage, 1)
	if err != nil {
		t.Fatal(err)
	}
	if loc.Flags&api.SpaceLocationPositionValid == 0 {
		t.Errorf("Flags = %b, want position valid", loc.Flags)
	}
	if loc.Pose.Position != want {
		t.Errorf("Position = %v, want %v", loc.Pose.Position, want)
	}
}

func TestFailNext(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.rt.FailNext("xrEnumerateSwapchainFormats", api.ErrorRuntimeFailure)

	if _, err := f.rt.EnumerateSwapchainFormats(f.s); !errors.Is(err, api.ErrorRuntimeFailure) {
		t.Errorf("first call error = %v, want %v", err, api.ErrorRuntimeFailure)
	}
	if _, err := f.rt.EnumerateSwapchainFormats(f.s); err != nil {
		t.Errorf("second call error = %v, want nil", err)
	}
	if n := f.rt.CallCount("xrEnumerateSwapchainFormats"); n != 2 {
		t.Errorf("CallCount = %d, want 2", n)
	}
}

func TestRegistered(t *testing.T) {
	rt, err := api.OpenBackend(BackendName, api.BackendOptions{Params: map[string]string{
		"lifecycle": "manual",
		"images":    "2",
	}})
	if err != nil {
		t.Fatalf("OpenBackend: %v", err)
	}
	sim, ok := rt.(*Runtime)
	if !ok {
		t.Fatalf("OpenBackend returned %T, want *Runtime", rt)
	}
	if sim.Config().AutoLifecycle || sim.Config().ImageCount != 2 {
		t.Errorf("Config() = %+v, want manual lifecycle with 2 images", sim.Config())
	}
}
