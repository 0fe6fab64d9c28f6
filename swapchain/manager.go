// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package swapchain manages the per-eye swapchains of a stereo session.
//
// A [Manager] creates one runtime swapchain per eye, enumerates each image
// ring into a contiguous slice it owns, and enforces the per-eye protocol:
//
//	acquire → wait → render → release
//
// Between [Manager.Acquire] and [Manager.Release] the renderer reads the
// eye's [Target] to find the image and pixel rectangle to draw into.
package swapchain

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"slices"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/xr/api"
	"github.com/gogpu/xr/geometry"
	"github.com/gogpu/xr/internal/xrlog"
)

// Eye selects a stereo view.
type Eye int

const (
	Left  Eye = 0
	Right Eye = 1
)

// Count is the number of eyes.
const Count = api.StereoViewCount

// String returns "left" or "right".
func (e Eye) String() string {
	switch e {
	case Left:
		return "left"
	case Right:
		return "right"
	}
	return fmt.Sprintf("Eye(%d)", int(e))
}

func (e Eye) valid() bool {
	return e >= 0 && int(e) < Count
}

// DefaultFormats is the preferred format list used when none is given.
var DefaultFormats = []gputypes.TextureFormat{
	gputypes.TextureFormatRGBA8Unorm,
	gputypes.TextureFormatBGRA8Unorm,
}

// DefaultUsage is the usage requested for every swapchain: the compositor
// samples the image and the renderer draws into it.
const DefaultUsage = gputypes.TextureUsageTextureBinding | gputypes.TextureUsageRenderAttachment

// Errors returned by the Manager.
var (
	// ErrAlreadyAcquired is returned when an eye is acquired twice without
	// a release in between.
	ErrAlreadyAcquired = errors.New("swapchain: eye already acquired")

	// ErrInvalidEye is returned for an eye outside [Left, Right].
	ErrInvalidEye = errors.New("swapchain: invalid eye")

	// ErrNoFormat is returned when the runtime supports none of the
	// preferred formats.
	ErrNoFormat = errors.New("swapchain: no supported format")

	// ErrViewCount is returned when the view configuration is not stereo.
	ErrViewCount = errors.New("swapchain: view configuration is not stereo")

	// ErrDestroyed is returned by operations on a destroyed Manager.
	ErrDestroyed = errors.New("swapchain: manager destroyed")

	// ErrImageIndex is returned when the runtime acquires an image index
	// outside the enumerated ring.
	ErrImageIndex = errors.New("swapchain: image index out of range")
)

// Option configures a Manager.
type Option func(*options)

type options struct {
	formats []gputypes.TextureFormat
	usage   gputypes.TextureUsage
	logger  *slog.Logger
}

func defaultOptions() options {
	return options{
		formats: DefaultFormats,
		usage:   DefaultUsage,
		logger:  xrlog.Nop(),
	}
}

// WithFormats sets the preferred formats, most preferred first.
func WithFormats(formats ...gputypes.TextureFormat) Option {
	return func(o *options) {
		if len(formats) > 0 {
			o.formats = formats
		}
	}
}

// WithUsage overrides the swapchain usage flags.
func WithUsage(usage gputypes.TextureUsage) Option {
	return func(o *options) {
		o.usage = usage
	}
}

// WithLogger sets the logger. Nil restores the silent default.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = xrlog.Or(l)
	}
}

// Target is the render target handoff for an acquired eye.
type Target struct {
	Eye   Eye
	Index uint32
	Image api.SwapchainImage

	// Rect is the region of Image the eye's view is composited from.
	Rect image.Rectangle

	Width  uint32
	Height uint32
}

// eyeChain is the state of one eye's swapchain.
type eyeChain struct {
	handle api.Swapchain
	width  uint32
	height uint32
	images []api.SwapchainImage

	// held is set from a successful runtime acquire until the image is
	// released, including while its wait has not yet succeeded.
	held  bool
	index uint32

	acquired bool
	target   Target
	view     api.CompositionLayerProjectionView
}

// Manager owns both eyes' swapchains. It is not safe for concurrent use.
type Manager struct {
	rt     api.SwapchainAPI
	format gputypes.TextureFormat
	eyes   [Count]eyeChain
	log    *slog.Logger

	// buffers holds every enumerated image slice. It only grows, so slices
	// handed to the runtime stay valid for the Manager's lifetime.
	buffers [][]api.SwapchainImage
	images  map[api.Swapchain][]api.SwapchainImage

	destroyed bool
}

// Create creates one swapchain per view. Views must hold exactly the stereo
// view count. On failure every swapchain created so far is destroyed.
func Create(rt api.SwapchainAPI, s api.Session, views []api.ViewConfigurationView, opts ...Option) (*Manager, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if len(views) != Count {
		return nil, fmt.Errorf("%w: got %d views", ErrViewCount, len(views))
	}

	supported, err := rt.EnumerateSwapchainFormats(s)
	if err = api.Check("xrEnumerateSwapchainFormats", err); err != nil {
		return nil, err
	}
	format, ok := pickFormat(o.formats, supported)
	if !ok {
		return nil, fmt.Errorf("%w: runtime offers %v", ErrNoFormat, supported)
	}

	m := &Manager{
		rt:     rt,
		format: format,
		log:    o.logger,
		images: make(map[api.Swapchain][]api.SwapchainImage, Count),
	}
	for i, v := range views {
		if err := m.createEye(s, Eye(i), v, o.usage); err != nil {
			return nil, errors.Join(err, m.Destroy())
		}
	}
	m.log.Info("swapchain: created",
		slog.Any("format", format),
		slog.Int("width", int(m.eyes[Left].width)),
		slog.Int("height", int(m.eyes[Left].height)),
		slog.Int("images", len(m.eyes[Left].images)))
	return m, nil
}

// pickFormat returns the first preferred format the runtime supports.
func pickFormat(preferred, supported []gputypes.TextureFormat) (gputypes.TextureFormat, bool) {
	for _, f := range preferred {
		if slices.Contains(supported, f) {
			return f, true
		}
	}
	return gputypes.TextureFormatUndefined, false
}

func (m *Manager) createEye(s api.Session, eye Eye, v api.ViewConfigurationView, usage gputypes.TextureUsage) error {
	h, err := m.rt.CreateSwapchain(s, api.SwapchainCreateInfo{
		Format:      m.format,
		Usage:       usage,
		Width:       v.RecommendedImageRectWidth,
		Height:      v.RecommendedImageRectHeight,
		SampleCount: v.RecommendedSwapchainSampleCount,
		ArraySize:   1,
		MipCount:    1,
		FaceCount:   1,
	})
	if err = api.Check("xrCreateSwapchain", err); err != nil {
		return fmt.Errorf("swapchain: %s eye: %w", eye, err)
	}
	ec := &m.eyes[eye]
	ec.handle = h
	ec.width = v.RecommendedImageRectWidth
	ec.height = v.RecommendedImageRectHeight

	n, err := m.rt.EnumerateSwapchainImages(h, nil)
	if err = api.Check("xrEnumerateSwapchainImages", err); err != nil {
		return fmt.Errorf("swapchain: %s eye: %w", eye, err)
	}
	buf := make([]api.SwapchainImage, n)
	if _, err := m.rt.EnumerateSwapchainImages(h, buf); err != nil {
		return fmt.Errorf("swapchain: %s eye: %w", eye, api.Check("xrEnumerateSwapchainImages", err))
	}
	m.buffers = append(m.buffers, buf)
	m.images[h] = buf
	ec.images = buf
	m.log.Debug("swapchain: eye ready",
		slog.String("eye", eye.String()),
		slog.Uint64("handle", uint64(h)),
		slog.Int("images", len(buf)))
	return nil
}

// Acquire takes the next image of the eye's swapchain, waits for it, and
// records the eye's projection view: view's pose and fov and the sub-image
// rectangle bounds selects.
//
// If the wait fails the runtime still holds the image. The eye keeps it:
// the next Acquire retries the wait on the same image and Release hands it
// back.
func (m *Manager) Acquire(eye Eye, view api.View, bounds geometry.TextureBounds) (Target, error) {
	if m.destroyed {
		return Target{}, ErrDestroyed
	}
	if !eye.valid() {
		return Target{}, ErrInvalidEye
	}
	ec := &m.eyes[eye]
	if ec.acquired {
		return Target{}, fmt.Errorf("%w: %s", ErrAlreadyAcquired, eye)
	}

	if !ec.held {
		idx, err := m.rt.AcquireSwapchainImage(ec.handle)
		if err = api.Check("xrAcquireSwapchainImage", err); err != nil {
			return Target{}, err
		}
		ec.held = true
		ec.index = idx
		if int(idx) >= len(ec.images) {
			err := fmt.Errorf("%w: %s eye got %d of %d", ErrImageIndex, eye, idx, len(ec.images))
			return Target{}, errors.Join(err, m.giveBack(ec))
		}
	}
	if err := api.Check("xrWaitSwapchainImage", m.rt.WaitSwapchainImage(ec.handle, api.InfiniteDuration)); err != nil {
		m.log.Warn("swapchain: image wait failed, image kept for retry",
			slog.String("eye", eye.String()),
			slog.Uint64("index", uint64(ec.index)))
		return Target{}, err
	}

	rect := bounds.PixelRect(int(ec.width), int(ec.height))
	ec.view = api.CompositionLayerProjectionView{
		Pose: view.Pose,
		Fov:  view.Fov,
		SubImage: api.SwapchainSubImage{
			Swapchain: ec.handle,
			ImageRect: rect,
		},
	}
	ec.target = Target{
		Eye:    eye,
		Index:  ec.index,
		Image:  ec.images[ec.index],
		Rect:   rect,
		Width:  ec.width,
		Height: ec.height,
	}
	ec.acquired = true
	return ec.target, nil
}

// giveBack waits for and releases an image the eye holds but never handed
// to the renderer. The eye stays held if the wait fails again.
func (m *Manager) giveBack(ec *eyeChain) error {
	if err := m.rt.WaitSwapchainImage(ec.handle, api.InfiniteDuration); err != nil {
		return api.Check("xrWaitSwapchainImage", err)
	}
	ec.held = false
	return api.Check("xrReleaseSwapchainImage", m.rt.ReleaseSwapchainImage(ec.handle))
}

// Release returns the eye's image to the runtime. Releasing an eye that
// holds nothing does nothing. An acquired eye is marked released even if
// the runtime call fails; an image whose wait failed is waited for again
// and released.
func (m *Manager) Release(eye Eye) error {
	if !eye.valid() {
		return ErrInvalidEye
	}
	ec := &m.eyes[eye]
	if m.destroyed || !ec.held {
		return nil
	}
	if !ec.acquired {
		return m.giveBack(ec)
	}
	ec.acquired = false
	ec.held = false
	ec.target = Target{}
	return api.Check("xrReleaseSwapchainImage", m.rt.ReleaseSwapchainImage(ec.handle))
}

// Held reports whether the runtime holds an image for the eye, acquired
// for rendering or still waiting.
func (m *Manager) Held(eye Eye) bool {
	return eye.valid() && m.eyes[eye].held
}

// Acquired reports whether the eye holds a waited image ready for rendering.
func (m *Manager) Acquired(eye Eye) bool {
	return eye.valid() && m.eyes[eye].acquired
}

// Target returns the eye's render target while it is acquired.
func (m *Manager) Target(eye Eye) (Target, bool) {
	if !m.Acquired(eye) {
		return Target{}, false
	}
	return m.eyes[eye].target, true
}

// ProjectionViews returns both eyes' projection views as recorded by the
// latest Acquire.
func (m *Manager) ProjectionViews() []api.CompositionLayerProjectionView {
	views := make([]api.CompositionLayerProjectionView, Count)
	for i := range m.eyes {
		views[i] = m.eyes[i].view
	}
	return views
}

// Swapchains returns the per-eye swapchain handles.
func (m *Manager) Swapchains() []api.Swapchain {
	out := make([]api.Swapchain, Count)
	for i := range m.eyes {
		out[i] = m.eyes[i].handle
	}
	return out
}

// Images returns the image ring of a swapchain created by this Manager.
func (m *Manager) Images(h api.Swapchain) []api.SwapchainImage {
	return m.images[h]
}

// Size returns the eye's swapchain size in pixels.
func (m *Manager) Size(eye Eye) (width, height uint32) {
	if !eye.valid() {
		return 0, 0
	}
	return m.eyes[eye].width, m.eyes[eye].height
}

// Format returns the chosen swapchain format.
func (m *Manager) Format() gputypes.TextureFormat {
	return m.format
}

// Destroy destroys both swapchains. It is safe to call more than once.
func (m *Manager) Destroy() error {
	if m.destroyed {
		return nil
	}
	m.destroyed = true
	var errs []error
	for i := range m.eyes {
		ec := &m.eyes[i]
		if ec.handle == 0 {
			continue
		}
		if err := m.rt.DestroySwapchain(ec.handle); err != nil {
			errs = append(errs, api.Check("xrDestroySwapchain", err))
		}
		ec.acquired = false
		ec.held = false
	}
	m.buffers = nil
	clear(m.images)
	return errors.Join(errs...)
}
