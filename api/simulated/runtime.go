// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package simulated is an in-process XR runtime.
//
// It implements [api.Runtime] without hardware: handles live in a resource
// table, lifecycle events are queued by the embedding program or by the
// runtime itself, poses and controller inputs are set directly, and every
// ordering rule of the swapchain, frame and action protocols is enforced and
// reported with the same result codes a conformant runtime would use.
//
// The backend registers itself as "simulated":
//
//	import _ "github.com/gogpu/xr/api/simulated"
//
//	rt, err := api.OpenBackend("simulated", api.BackendOptions{})
//
// Tests usually construct it directly to reach the scripting helpers:
//
//	rt := simulated.New(simulated.DefaultConfig())
//	rt.QueueSessionState(api.SessionStateReady)
//	rt.SetBool("/user/hand/right/input/a/click", true)
package simulated

import (
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/gogpu/gputypes"
	"golang.org/x/image/math/f32"

	"github.com/gogpu/xr/api"
	"github.com/gogpu/xr/geometry"
	"github.com/gogpu/xr/internal/xrlog"
)

// BackendName is the registry name of this runtime.
const BackendName = "simulated"

func init() {
	api.RegisterBackend(BackendName, 10, func(opts api.BackendOptions) (api.Runtime, error) {
		cfg := DefaultConfig()
		if opts.Params["lifecycle"] == "manual" {
			cfg.AutoLifecycle = false
		}
		if opts.Params["pace"] == "true" {
			cfg.Pace = true
		}
		if p, ok := opts.Params["profile"]; ok {
			cfg.ActiveProfile = p
		}
		if v, ok := opts.Params["images"]; ok {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				cfg.ImageCount = uint32(n)
			}
		}
		return New(cfg), nil
	}, nil)
}

// Config describes the simulated headset.
type Config struct {
	// Views holds the recommended render target per eye.
	Views [api.StereoViewCount]api.ViewConfigurationView

	// Fov holds each eye's frustum.
	Fov [api.StereoViewCount]api.Fov

	// IPD is the distance between the eyes in meters.
	IPD float32

	// ImageCount is the number of images in each swapchain ring.
	ImageCount uint32

	// Formats lists supported swapchain formats in runtime preference order.
	Formats []gputypes.TextureFormat

	// FramePeriod is the display refresh interval.
	FramePeriod time.Duration

	// Pace makes WaitFrame sleep for FramePeriod between frames.
	Pace bool

	// AutoLifecycle drives the session through idle, ready, synchronized,
	// visible and focused on its own, and through stopping and exiting after
	// RequestExit. When false, state changes come only from QueueSessionState.
	AutoLifecycle bool

	// ActiveProfile is the interaction profile of the "connected"
	// controllers. Bindings suggested for other profiles are ignored.
	ActiveProfile string

	// EventCapacity bounds the event queue. Overflow is reported with an
	// EventsLost event.
	EventCapacity int
}

// DefaultConfig returns a Touch-style headset: 1440x1584 per eye, 90 Hz,
// three images per swapchain.
func DefaultConfig() Config {
	view := api.ViewConfigurationView{
		RecommendedImageRectWidth:       1440,
		MaxImageRectWidth:               4096,
		RecommendedImageRectHeight:      1584,
		MaxImageRectHeight:              4096,
		RecommendedSwapchainSampleCount: 1,
		MaxSwapchainSampleCount:         4,
	}
	const deg = 3.14159265358979 / 180
	return Config{
		Views: [2]api.ViewConfigurationView{view, view},
		Fov: [2]api.Fov{
			{AngleLeft: -52 * deg, AngleRight: 44 * deg, AngleUp: 48 * deg, AngleDown: -52 * deg},
			{AngleLeft: -44 * deg, AngleRight: 52 * deg, AngleUp: 48 * deg, AngleDown: -52 * deg},
		},
		IPD:           0.064,
		ImageCount:    3,
		Formats:       []gputypes.TextureFormat{gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatBGRA8Unorm},
		FramePeriod:   time.Second / 90,
		AutoLifecycle: true,
		ActiveProfile: "/interaction_profiles/oculus/touch_controller",
		EventCapacity: 16,
	}
}

// Runtime is the simulated runtime. It is safe for concurrent use so that a
// test can script input from another goroutine, but the protocol it models
// is single-threaded.
type Runtime struct {
	cfg Config

	mu      sync.Mutex
	log     *slog.Logger
	handles table
	calls   map[string]int
	faults  map[string]api.Result

	instance api.Instance
	system   api.SystemID
	paths    map[string]api.Path
	names    map[api.Path]string

	events     []api.Event
	lostEvents uint32

	sessions   map[api.Session]*session
	spaces     map[api.Space]*space
	swapchains map[api.Swapchain]*swapchain
	actionSets map[api.ActionSet]*actionSet
	actions    map[api.Action]*action
	suggested  map[string][]binding

	inputs    map[string]any
	headPose  api.Pose
	hands     [2]api.Pose
	viewFlags api.ViewStateFlags
	fov       [api.StereoViewCount]api.Fov
	haptics   []Haptic
	frames    []api.FrameEndInfo
	textures  uint32
}

// New creates a runtime with the given configuration.
func New(cfg Config) *Runtime {
	if cfg.ImageCount == 0 {
		cfg.ImageCount = 3
	}
	if cfg.EventCapacity <= 0 {
		cfg.EventCapacity = 16
	}
	if cfg.FramePeriod <= 0 {
		cfg.FramePeriod = time.Second / 90
	}
	return &Runtime{
		cfg:        cfg,
		log:        xrlog.Nop(),
		handles:    table{kinds: make(map[uint64]kind)},
		calls:      make(map[string]int),
		faults:     make(map[string]api.Result),
		paths:      make(map[string]api.Path),
		names:      make(map[api.Path]string),
		sessions:   make(map[api.Session]*session),
		spaces:     make(map[api.Space]*space),
		swapchains: make(map[api.Swapchain]*swapchain),
		actionSets: make(map[api.ActionSet]*actionSet),
		actions:    make(map[api.Action]*action),
		suggested:  make(map[string][]binding),
		inputs:     make(map[string]any),
		headPose: api.Pose{
			Orientation: geometry.IdentityQuaternion(),
			Position:    f32.Vec3{0, standingHeight, 0},
		},
		hands: [2]api.Pose{
			{Orientation: geometry.IdentityQuaternion(), Position: f32.Vec3{-0.2, 1.2, -0.3}},
			{Orientation: geometry.IdentityQuaternion(), Position: f32.Vec3{0.2, 1.2, -0.3}},
		},
		viewFlags: api.ViewStateOrientationValid | api.ViewStatePositionValid |
			api.ViewStateOrientationTracked | api.ViewStatePositionTracked,
		fov: cfg.Fov,
	}
}

// Config returns the runtime configuration.
func (r *Runtime) Config() Config {
	return r.cfg
}

// enter counts a call and returns an injected failure, if any.
// Must be called with r.mu held.
func (r *Runtime) enter(op string) error {
	r.calls[op]++
	if res, ok := r.faults[op]; ok {
		delete(r.faults, op)
		r.log.Debug("simulated: injected fault", slog.String("op", op), slog.String("result", res.String()))
		return res
	}
	return nil
}

// SetLogger sets the logger. Nil restores the silent default.
func (r *Runtime) SetLogger(l *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.log = xrlog.Or(l)
}

// FailNext makes the next call of op (e.g. "xrWaitFrame") fail with res.
func (r *Runtime) FailNext(op string, res api.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.faults[op] = res
}

// CallCount returns how many times op has been called, including failures.
func (r *Runtime) CallCount(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[op]
}

// kind tags a handle in the resource table.
type kind uint8

const (
	kindInstance kind = iota + 1
	kindSystem
	kindSession
	kindSpace
	kindSwapchain
	kindActionSet
	kindAction
)

// table allocates handles from one counter and remembers their kind, so a
// handle of one type passed where another is expected is rejected.
type table struct {
	next  uint64
	kinds map[uint64]kind
}

func (t *table) alloc(k kind) uint64 {
	t.next++
	t.kinds[t.next] = k
	return t.next
}

func (t *table) valid(h uint64, k kind) bool {
	return h != 0 && t.kinds[h] == k
}

func (t *table) free(h uint64) {
	delete(t.kinds, h)
}

// Live returns the number of live handles.
func (r *Runtime) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles.kinds)
}

var _ api.Runtime = (*Runtime)(nil)
