// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package input declares the gameplay actions and resolves them onto
// controllers.
//
// [System.Initialize] creates the action set, suggests a binding table per
// interaction profile, creates a pose space per hand and attaches the set
// to the session. The runtime picks the table matching the connected
// hardware. After attach the binding graph is frozen.
//
// [System.Poll] runs once per tick: it syncs actions and reduces them to a
// [State] the game reads (hand scale and activity, quit and jump edges, the
// move vector) and fires a haptic pulse on a hard squeeze.
package input

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/gogpu/xr/api"
)

// Action names.
const (
	GrabObject  = "grab_object"
	HandPose    = "hand_pose"
	VibrateHand = "vibrate_hand"
	QuitSession = "quit_session"
	Jump        = "jump"
	Move        = "move"
)

// ActionSetName is the name of the single action set.
const ActionSetName = "gameplay"

// Declaration describes one action.
type Declaration struct {
	Name string
	Type api.ActionType

	// Hands scopes the action to the left and right hand subaction paths.
	Hands bool
}

// Declarations lists every action in creation order.
var Declarations = []Declaration{
	{Name: GrabObject, Type: api.ActionTypeFloatInput, Hands: true},
	{Name: HandPose, Type: api.ActionTypePoseInput, Hands: true},
	{Name: VibrateHand, Type: api.ActionTypeVibrationOutput, Hands: true},
	{Name: QuitSession, Type: api.ActionTypeBooleanInput},
	{Name: Jump, Type: api.ActionTypeBooleanInput},
	{Name: Move, Type: api.ActionTypeVector2fInput},
}

// LocalizedName derives the display name of an action or set name:
// "grab_object" becomes "Grab Object".
func LocalizedName(name string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(name, "_", " "))
}
