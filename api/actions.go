// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package api

import (
	"time"

	"golang.org/x/image/math/f32"
)

// ActionType is the value type of an action.
type ActionType int

const (
	ActionTypeBooleanInput    ActionType = 1
	ActionTypeFloatInput      ActionType = 2
	ActionTypeVector2fInput   ActionType = 3
	ActionTypePoseInput       ActionType = 4
	ActionTypeVibrationOutput ActionType = 100
)

// String returns the type name.
func (t ActionType) String() string {
	switch t {
	case ActionTypeBooleanInput:
		return "boolean"
	case ActionTypeFloatInput:
		return "float"
	case ActionTypeVector2fInput:
		return "vector2f"
	case ActionTypePoseInput:
		return "pose"
	case ActionTypeVibrationOutput:
		return "vibration"
	}
	return "invalid"
}

// ActionSetCreateInfo names an action set.
type ActionSetCreateInfo struct {
	Name          string
	LocalizedName string
	Priority      uint32
}

// ActionCreateInfo declares an action. SubactionPaths may be empty when the
// action does not distinguish hands.
type ActionCreateInfo struct {
	Name           string
	LocalizedName  string
	Type           ActionType
	SubactionPaths []Path
}

// ActionSuggestedBinding pairs an action with a physical input path.
type ActionSuggestedBinding struct {
	Action  Action
	Binding Path
}

// InteractionProfileSuggestedBinding is one binding table.
type InteractionProfileSuggestedBinding struct {
	InteractionProfile Path
	Bindings           []ActionSuggestedBinding
}

// ActionSpaceCreateInfo creates a space that follows a pose action.
type ActionSpaceCreateInfo struct {
	Action            Action
	SubactionPath     Path
	PoseInActionSpace Pose
}

// ActiveActionSet selects an action set for SyncActions.
type ActiveActionSet struct {
	ActionSet     ActionSet
	SubactionPath Path
}

// ActionStateGetInfo selects an action and optional subaction path.
type ActionStateGetInfo struct {
	Action        Action
	SubactionPath Path
}

// ActionStateBoolean is the synced state of a boolean action.
type ActionStateBoolean struct {
	CurrentState         bool
	ChangedSinceLastSync bool
	LastChangeTime       Time
	IsActive             bool
}

// ActionStateFloat is the synced state of a float action.
type ActionStateFloat struct {
	CurrentState         float32
	ChangedSinceLastSync bool
	LastChangeTime       Time
	IsActive             bool
}

// ActionStateVector2f is the synced state of a 2D vector action.
type ActionStateVector2f struct {
	CurrentState         f32.Vec2
	ChangedSinceLastSync bool
	LastChangeTime       Time
	IsActive             bool
}

// ActionStatePose reports whether a pose action is bound and tracked.
type ActionStatePose struct {
	IsActive bool
}

// HapticActionInfo targets a vibration action.
type HapticActionInfo struct {
	Action        Action
	SubactionPath Path
}

// HapticVibration describes one pulse.
type HapticVibration struct {
	Duration  time.Duration
	Frequency float32
	Amplitude float32
}
