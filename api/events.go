// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package api

// SessionState is the runtime-driven session lifecycle state.
type SessionState int

const (
	SessionStateUnknown SessionState = iota
	SessionStateIdle
	SessionStateReady
	SessionStateSynchronized
	SessionStateVisible
	SessionStateFocused
	SessionStateStopping
	SessionStateLossPending
	SessionStateExiting
)

// String returns the state name.
func (s SessionState) String() string {
	switch s {
	case SessionStateUnknown:
		return "unknown"
	case SessionStateIdle:
		return "idle"
	case SessionStateReady:
		return "ready"
	case SessionStateSynchronized:
		return "synchronized"
	case SessionStateVisible:
		return "visible"
	case SessionStateFocused:
		return "focused"
	case SessionStateStopping:
		return "stopping"
	case SessionStateLossPending:
		return "loss_pending"
	case SessionStateExiting:
		return "exiting"
	}
	return "invalid"
}

// EventType identifies an Event variant.
type EventType int

const (
	EventTypeSessionStateChanged EventType = iota + 1
	EventTypeEventsLost
	EventTypeInstanceLossPending
	EventTypeInteractionProfileChanged
	EventTypeReferenceSpaceChangePending
)

// Event is a runtime notification returned by PollEvent.
type Event interface {
	EventType() EventType
}

// SessionStateChanged reports a lifecycle transition.
type SessionStateChanged struct {
	Session Session
	State   SessionState
	Time    Time
}

// EventType returns EventTypeSessionStateChanged.
func (SessionStateChanged) EventType() EventType { return EventTypeSessionStateChanged }

// EventsLost reports that the runtime's queue overflowed.
type EventsLost struct {
	LostEventCount uint32
}

// EventType returns EventTypeEventsLost.
func (EventsLost) EventType() EventType { return EventTypeEventsLost }

// InstanceLossPending warns that the instance is about to become unusable.
type InstanceLossPending struct {
	LossTime Time
}

// EventType returns EventTypeInstanceLossPending.
func (InstanceLossPending) EventType() EventType { return EventTypeInstanceLossPending }

// InteractionProfileChanged reports that the active controller profile
// for a session changed.
type InteractionProfileChanged struct {
	Session Session
}

// EventType returns EventTypeInteractionProfileChanged.
func (InteractionProfileChanged) EventType() EventType { return EventTypeInteractionProfileChanged }

// ReferenceSpaceChangePending reports a recenter or boundary change.
type ReferenceSpaceChangePending struct {
	Session             Session
	SpaceType           ReferenceSpaceType
	ChangeTime          Time
	PoseValid           bool
	PoseInPreviousSpace Pose
}

// EventType returns EventTypeReferenceSpaceChangePending.
func (ReferenceSpaceChangePending) EventType() EventType {
	return EventTypeReferenceSpaceChangePending
}
