// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package input

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Binding maps an action to one physical input or output path.
type Binding struct {
	Action string `yaml:"action" validate:"required,oneof=grab_object hand_pose vibrate_hand quit_session jump move"`
	Path   string `yaml:"path" validate:"required,startswith=/user/"`
}

// Profile is the binding table of one interaction profile.
type Profile struct {
	Path     string    `yaml:"profile" validate:"required,startswith=/interaction_profiles/"`
	Bindings []Binding `yaml:"bindings" validate:"required,min=1,dive"`
}

// Interaction profile paths of the built-in tables.
const (
	ProfileSimple    = "/interaction_profiles/khr/simple_controller"
	ProfileTouch     = "/interaction_profiles/oculus/touch_controller"
	ProfileVive      = "/interaction_profiles/htc/vive_controller"
	ProfileIndex     = "/interaction_profiles/valve/index_controller"
	ProfileMotion    = "/interaction_profiles/microsoft/motion_controller"
	leftHand         = "/user/hand/left"
	rightHand        = "/user/hand/right"
	hapticOutputPath = "/output/haptic"
	gripPosePath     = "/input/grip/pose"
)

// both binds action to the same component on each hand.
func both(action, component string) []Binding {
	return []Binding{
		{Action: action, Path: leftHand + component},
		{Action: action, Path: rightHand + component},
	}
}

// handBindings returns the grab, pose and haptic bindings shared by every
// profile. Controllers without an analog squeeze bind grab to whatever
// input comes closest.
func handBindings(grab string) []Binding {
	var b []Binding
	b = append(b, both(GrabObject, grab)...)
	b = append(b, both(HandPose, gripPosePath)...)
	b = append(b, both(VibrateHand, hapticOutputPath)...)
	return b
}

// DefaultProfiles returns the built-in binding tables for the five
// supported controller families.
func DefaultProfiles() []Profile {
	touch := handBindings("/input/squeeze/value")
	touch = append(touch,
		Binding{Action: QuitSession, Path: leftHand + "/input/menu/click"},
		Binding{Action: Jump, Path: rightHand + "/input/a/click"},
		Binding{Action: Move, Path: rightHand + "/input/thumbstick"},
	)
	return []Profile{
		{Path: ProfileSimple, Bindings: append(handBindings("/input/select/click"), both(QuitSession, "/input/menu/click")...)},
		{Path: ProfileTouch, Bindings: touch},
		{Path: ProfileVive, Bindings: append(handBindings("/input/trigger/value"), both(QuitSession, "/input/menu/click")...)},
		{Path: ProfileIndex, Bindings: append(handBindings("/input/squeeze/force"), both(QuitSession, "/input/b/click")...)},
		{Path: ProfileMotion, Bindings: append(handBindings("/input/squeeze/click"), both(QuitSession, "/input/menu/click")...)},
	}
}

// profileFile is the YAML layout read by LoadProfiles.
//
//	profiles:
//	  - profile: /interaction_profiles/khr/simple_controller
//	    bindings:
//	      - {action: grab_object, path: /user/hand/left/input/select/click}
type profileFile struct {
	Profiles []Profile `yaml:"profiles" validate:"required,min=1,dive"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ErrDuplicateProfile is returned when a profile appears twice in a file.
var ErrDuplicateProfile = errors.New("input: duplicate profile")

// LoadProfiles reads binding tables from YAML. Unknown fields, unknown
// action names and malformed paths are rejected.
func LoadProfiles(r io.Reader) ([]Profile, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f profileFile
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("input: decode profiles: %w", err)
	}
	if err := validate.Struct(&f); err != nil {
		return nil, fmt.Errorf("input: invalid profiles: %w", err)
	}
	seen := make(map[string]bool, len(f.Profiles))
	for _, p := range f.Profiles {
		if seen[p.Path] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateProfile, p.Path)
		}
		seen[p.Path] = true
	}
	return f.Profiles, nil
}

// WriteProfiles writes binding tables in the format LoadProfiles reads.
func WriteProfiles(w io.Writer, profiles []Profile) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(profileFile{Profiles: profiles}); err != nil {
		return fmt.Errorf("input: encode profiles: %w", err)
	}
	return enc.Close()
}

// ActionsBound returns the action names a profile binds, sorted.
func (p Profile) ActionsBound() []string {
	set := make(map[string]bool)
	for _, b := range p.Bindings {
		set[b.Action] = true
	}
	out := make([]string, 0, len(set))
	for a := range set {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}
