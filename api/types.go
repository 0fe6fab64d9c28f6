// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package api

import (
	"image"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"golang.org/x/image/math/f32"

	"github.com/gogpu/xr/geometry"
)

// Quaternion and Fov share their layout with the geometry package.
type (
	Quaternion = geometry.Quaternion
	Fov        = geometry.Fov
)

// Pose is a rigid transform: orientation then position in meters.
type Pose struct {
	Orientation Quaternion
	Position    f32.Vec3
}

// IdentityPose returns the pose at the origin with no rotation.
func IdentityPose() Pose {
	return Pose{Orientation: geometry.IdentityQuaternion()}
}

// FormFactor selects the kind of XR system.
type FormFactor int

const (
	FormFactorHeadMountedDisplay FormFactor = 1
	FormFactorHandheldDisplay    FormFactor = 2
)

// ViewConfigurationType selects how many views the runtime renders.
type ViewConfigurationType int

const (
	ViewConfigurationPrimaryMono   ViewConfigurationType = 1
	ViewConfigurationPrimaryStereo ViewConfigurationType = 2
)

// StereoViewCount is the number of views in the stereo configuration.
const StereoViewCount = 2

// ReferenceSpaceType names a coordinate anchor.
type ReferenceSpaceType int

const (
	ReferenceSpaceView  ReferenceSpaceType = 1
	ReferenceSpaceLocal ReferenceSpaceType = 2
	ReferenceSpaceStage ReferenceSpaceType = 3
)

// String returns the space name.
func (t ReferenceSpaceType) String() string {
	switch t {
	case ReferenceSpaceView:
		return "view"
	case ReferenceSpaceLocal:
		return "local"
	case ReferenceSpaceStage:
		return "stage"
	}
	return "unknown"
}

// EnvironmentBlendMode controls how the composited frame mixes with the
// physical environment.
type EnvironmentBlendMode int

const (
	EnvironmentBlendOpaque     EnvironmentBlendMode = 1
	EnvironmentBlendAdditive   EnvironmentBlendMode = 2
	EnvironmentBlendAlphaBlend EnvironmentBlendMode = 3
)

// InstanceCreateInfo describes the application to the runtime.
type InstanceCreateInfo struct {
	ApplicationName    string
	ApplicationVersion uint32
	EngineName         string
	Extensions         []string
}

// SessionCreateInfo binds a session to a system and the host GPU device.
type SessionCreateInfo struct {
	System SystemID

	// Device is the host's GPU device. The runtime composites from textures
	// created on it.
	Device gpucontext.DeviceProvider
}

// ViewConfigurationView holds the runtime's recommended render target
// parameters for one view.
type ViewConfigurationView struct {
	RecommendedImageRectWidth       uint32
	MaxImageRectWidth               uint32
	RecommendedImageRectHeight      uint32
	MaxImageRectHeight              uint32
	RecommendedSwapchainSampleCount uint32
	MaxSwapchainSampleCount         uint32
}

// View is one eye's pose and frustum at a display time.
type View struct {
	Pose Pose
	Fov  Fov
}

// ViewStateFlags reports tracking validity for located views.
type ViewStateFlags uint32

const (
	ViewStateOrientationValid ViewStateFlags = 1 << iota
	ViewStatePositionValid
	ViewStateOrientationTracked
	ViewStatePositionTracked
)

// ViewState accompanies located views.
type ViewState struct {
	Flags ViewStateFlags
}

// PoseValid reports whether both position and orientation are valid.
func (s ViewState) PoseValid() bool {
	const both = ViewStateOrientationValid | ViewStatePositionValid
	return s.Flags&both == both
}

// ViewLocateInfo selects which views to locate and against which space.
type ViewLocateInfo struct {
	ViewConfiguration ViewConfigurationType
	DisplayTime       Time
	Space             Space
}

// SpaceLocationFlags reports tracking validity for a located space.
type SpaceLocationFlags uint32

const (
	SpaceLocationOrientationValid SpaceLocationFlags = 1 << iota
	SpaceLocationPositionValid
	SpaceLocationOrientationTracked
	SpaceLocationPositionTracked
)

// Valid reports whether both orientation and position are valid.
func (f SpaceLocationFlags) Valid() bool {
	const both = SpaceLocationOrientationValid | SpaceLocationPositionValid
	return f&both == both
}

// SpaceLocation is a space's pose relative to a base space.
type SpaceLocation struct {
	Flags SpaceLocationFlags
	Pose  Pose
}

// FrameState is returned by WaitFrame.
type FrameState struct {
	PredictedDisplayTime   Time
	PredictedDisplayPeriod time.Duration
	ShouldRender           bool
}

// SwapchainCreateInfo describes a swapchain. Formats and usage use the
// gputypes vocabulary so they line up with the host device.
type SwapchainCreateInfo struct {
	Format      gputypes.TextureFormat
	Usage       gputypes.TextureUsage
	Width       uint32
	Height      uint32
	SampleCount uint32
	ArraySize   uint32
	MipCount    uint32
	FaceCount   uint32
}

// ImageKind tags a SwapchainImage variant.
type ImageKind uint8

const (
	ImageKindOpenGL ImageKind = iota + 1
	ImageKindGPU
)

// SwapchainImage is one image of a swapchain ring. It is a closed set of
// variants; switch on the concrete type or on Kind.
type SwapchainImage interface {
	Kind() ImageKind
}

// OpenGLImage is a GL texture name.
type OpenGLImage struct {
	Texture uint32
}

// Kind returns ImageKindOpenGL.
func (OpenGLImage) Kind() ImageKind { return ImageKindOpenGL }

// GPUImage is a texture on the host gpucontext device.
type GPUImage struct {
	Texture gpucontext.Texture
}

// Kind returns ImageKindGPU.
func (GPUImage) Kind() ImageKind { return ImageKindGPU }

var (
	_ SwapchainImage = OpenGLImage{}
	_ SwapchainImage = GPUImage{}
)

// SwapchainSubImage is the region of a swapchain image a layer view reads.
type SwapchainSubImage struct {
	Swapchain       Swapchain
	ImageRect       image.Rectangle
	ImageArrayIndex uint32
}

// CompositionLayerProjectionView is one eye of a projection layer.
type CompositionLayerProjectionView struct {
	Pose     Pose
	Fov      Fov
	SubImage SwapchainSubImage
}

// CompositionLayerFlags modify layer blending.
type CompositionLayerFlags uint32

const (
	CompositionLayerBlendTextureSourceAlpha CompositionLayerFlags = 1 << iota
	CompositionLayerUnpremultipliedAlpha
)

// CompositionLayer is a layer submitted with EndFrame.
type CompositionLayer interface {
	layer()
}

// CompositionLayerProjection is a stereo projection layer.
type CompositionLayerProjection struct {
	Flags CompositionLayerFlags
	Space Space
	Views []CompositionLayerProjectionView
}

func (*CompositionLayerProjection) layer() {}

// FrameEndInfo is passed to EndFrame.
type FrameEndInfo struct {
	DisplayTime          Time
	EnvironmentBlendMode EnvironmentBlendMode
	Layers               []CompositionLayer
}
