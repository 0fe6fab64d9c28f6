// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package api

import (
	"context"
	"time"

	"github.com/gogpu/gputypes"
)

// InstanceAPI covers instance-level calls.
type InstanceAPI interface {
	CreateInstance(info InstanceCreateInfo) (Instance, error)
	DestroyInstance(instance Instance) error
	GetSystem(instance Instance, formFactor FormFactor) (SystemID, error)
	EnumerateViewConfigurationViews(instance Instance, system SystemID, config ViewConfigurationType) ([]ViewConfigurationView, error)
	StringToPath(instance Instance, path string) (Path, error)

	// PollEvent returns the next queued event, or nil when the queue is
	// empty. It never blocks.
	PollEvent(instance Instance) (Event, error)
}

// SessionAPI covers session lifetime calls.
type SessionAPI interface {
	CreateSession(instance Instance, info SessionCreateInfo) (Session, error)
	DestroySession(session Session) error
	BeginSession(session Session, config ViewConfigurationType) error
	EndSession(session Session) error
}

// SpaceAPI covers reference spaces and pose queries.
type SpaceAPI interface {
	CreateReferenceSpace(session Session, spaceType ReferenceSpaceType, poseInReferenceSpace Pose) (Space, error)
	DestroySpace(space Space) error
	LocateSpace(space, baseSpace Space, t Time) (SpaceLocation, error)
	LocateViews(session Session, info ViewLocateInfo) (ViewState, []View, error)
}

// SwapchainAPI covers swapchain creation and the per-image protocol.
type SwapchainAPI interface {
	EnumerateSwapchainFormats(session Session) ([]gputypes.TextureFormat, error)
	CreateSwapchain(session Session, info SwapchainCreateInfo) (Swapchain, error)
	DestroySwapchain(swapchain Swapchain) error

	// EnumerateSwapchainImages follows the two-call idiom: with a nil slice
	// it returns the image count; otherwise it fills images, which must hold
	// at least that many entries, and returns the count written.
	EnumerateSwapchainImages(swapchain Swapchain, images []SwapchainImage) (uint32, error)

	AcquireSwapchainImage(swapchain Swapchain) (uint32, error)
	WaitSwapchainImage(swapchain Swapchain, timeout time.Duration) error
	ReleaseSwapchainImage(swapchain Swapchain) error
}

// FrameAPI covers frame pacing and submission.
type FrameAPI interface {
	// WaitFrame blocks until the runtime wants the next frame. It is the
	// runtime's pacing handshake.
	WaitFrame(ctx context.Context, session Session) (FrameState, error)
	BeginFrame(session Session) error
	EndFrame(session Session, info FrameEndInfo) error
}

// ActionAPI covers action sets, bindings, state queries and haptics.
type ActionAPI interface {
	CreateActionSet(instance Instance, info ActionSetCreateInfo) (ActionSet, error)
	DestroyActionSet(set ActionSet) error
	CreateAction(set ActionSet, info ActionCreateInfo) (Action, error)
	SuggestInteractionProfileBindings(instance Instance, suggested InteractionProfileSuggestedBinding) error
	CreateActionSpace(session Session, info ActionSpaceCreateInfo) (Space, error)
	AttachSessionActionSets(session Session, sets []ActionSet) error
	SyncActions(session Session, active []ActiveActionSet) error
	GetActionStateBoolean(session Session, info ActionStateGetInfo) (ActionStateBoolean, error)
	GetActionStateFloat(session Session, info ActionStateGetInfo) (ActionStateFloat, error)
	GetActionStateVector2f(session Session, info ActionStateGetInfo) (ActionStateVector2f, error)
	GetActionStatePose(session Session, info ActionStateGetInfo) (ActionStatePose, error)
	ApplyHapticFeedback(session Session, info HapticActionInfo, vibration HapticVibration) error
}

// Runtime is the full runtime contract.
type Runtime interface {
	InstanceAPI
	SessionAPI
	SpaceAPI
	SwapchainAPI
	FrameAPI
	ActionAPI
}
