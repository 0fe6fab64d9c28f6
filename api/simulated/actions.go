// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package simulated

import (
	"slices"
	"strings"

	"golang.org/x/image/math/f32"

	"github.com/gogpu/xr/api"
)

type actionSet struct {
	name     string
	priority uint32
	actions  []api.Action
	attached bool
}

type action struct {
	handle     api.Action
	set        api.ActionSet
	name       string
	typ        api.ActionType
	subactions []api.Path
	states     map[api.Path]*actionState
}

// actionState is the last synced value of one action/subaction pair.
type actionState struct {
	active     bool
	b          bool
	f          float32
	v          f32.Vec2
	changed    bool
	lastChange api.Time
}

type binding struct {
	action api.Action
	path   string
}

// Haptic is a vibration delivered to a bound output.
type Haptic struct {
	// Hand is the subaction path, e.g. "/user/hand/left", or "" for none.
	Hand      string
	Vibration api.HapticVibration
	Time      api.Time
}

// CreateActionSet implements api.ActionAPI.
func (r *Runtime) CreateActionSet(instance api.Instance, info api.ActionSetCreateInfo) (api.ActionSet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("xrCreateActionSet"); err != nil {
		return 0, err
	}
	if !r.handles.valid(uint64(instance), kindInstance) {
		return 0, api.ErrorHandleInvalid
	}
	if !validName(info.Name) || info.LocalizedName == "" {
		return 0, api.ErrorValidationFailure
	}
	for _, set := range r.actionSets {
		if set.name == info.Name {
			return 0, api.ErrorValidationFailure
		}
	}
	h := api.ActionSet(r.handles.alloc(kindActionSet))
	r.actionSets[h] = &actionSet{name: info.Name, priority: info.Priority}
	return h, nil
}

// DestroyActionSet implements api.ActionAPI. Its actions go with it.
func (r *Runtime) DestroyActionSet(h api.ActionSet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("xrDestroyActionSet"); err != nil {
		return err
	}
	set, ok := r.actionSets[h]
	if !ok {
		return api.ErrorHandleInvalid
	}
	for _, a := range set.actions {
		delete(r.actions, a)
		r.handles.free(uint64(a))
	}
	delete(r.actionSets, h)
	r.handles.free(uint64(h))
	return nil
}

// CreateAction implements api.ActionAPI.
func (r *Runtime) CreateAction(h api.ActionSet, info api.ActionCreateInfo) (api.Action, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("xrCreateAction"); err != nil {
		return 0, err
	}
	set, ok := r.actionSets[h]
	if !ok {
		return 0, api.ErrorHandleInvalid
	}
	if set.attached {
		return 0, api.ErrorActionSetsAlreadyAttached
	}
	if !validName(info.Name) || info.LocalizedName == "" {
		return 0, api.ErrorValidationFailure
	}
	switch info.Type {
	case api.ActionTypeBooleanInput, api.ActionTypeFloatInput, api.ActionTypeVector2fInput,
		api.ActionTypePoseInput, api.ActionTypeVibrationOutput:
	default:
		return 0, api.ErrorValidationFailure
	}
	for _, a := range set.actions {
		if r.actions[a].name == info.Name {
			return 0, api.ErrorValidationFailure
		}
	}
	for _, p := range info.SubactionPaths {
		if _, ok := r.names[p]; !ok {
			return 0, api.ErrorPathInvalid
		}
	}

	ah := api.Action(r.handles.alloc(kindAction))
	a := &action{
		handle:     ah,
		set:        h,
		name:       info.Name,
		typ:        info.Type,
		subactions: slices.Clone(info.SubactionPaths),
		states:     make(map[api.Path]*actionState),
	}
	a.states[api.NullPath] = &actionState{}
	for _, p := range a.subactions {
		a.states[p] = &actionState{}
	}
	r.actions[ah] = a
	set.actions = append(set.actions, ah)
	return ah, nil
}

// validName accepts the lowercase identifiers used for set and action names.
func validName(name string) bool {
	if name == "" {
		return false
	}
	for _, c := range name {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') && c != '_' && c != '-' && c != '.' {
			return false
		}
	}
	return true
}

// SuggestInteractionProfileBindings implements api.ActionAPI. A later
// suggestion for the same profile replaces the earlier one.
func (r *Runtime) SuggestInteractionProfileBindings(instance api.Instance, suggested api.InteractionProfileSuggestedBinding) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("xrSuggestInteractionProfileBindings"); err != nil {
		return err
	}
	if !r.handles.valid(uint64(instance), kindInstance) {
		return api.ErrorHandleInvalid
	}
	profile, ok := r.names[suggested.InteractionProfile]
	if !ok {
		return api.ErrorPathInvalid
	}
	if !strings.HasPrefix(profile, "/interaction_profiles/") {
		return api.ErrorPathUnsupported
	}
	bindings := make([]binding, 0, len(suggested.Bindings))
	for _, b := range suggested.Bindings {
		a, ok := r.actions[b.Action]
		if !ok {
			return api.ErrorHandleInvalid
		}
		if r.actionSets[a.set].attached {
			return api.ErrorActionSetsAlreadyAttached
		}
		path, ok := r.names[b.Binding]
		if !ok {
			return api.ErrorPathInvalid
		}
		if !strings.HasPrefix(path, "/user/") {
			return api.ErrorPathUnsupported
		}
		bindings = append(bindings, binding{action: b.Action, path: path})
	}
	r.suggested[profile] = bindings
	return nil
}

// CreateActionSpace implements api.ActionAPI.
func (r *Runtime) CreateActionSpace(s api.Session, info api.ActionSpaceCreateInfo) (api.Space, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("xrCreateActionSpace"); err != nil {
		return 0, err
	}
	if _, ok := r.sessions[s]; !ok {
		return 0, api.ErrorHandleInvalid
	}
	a, ok := r.actions[info.Action]
	if !ok {
		return 0, api.ErrorHandleInvalid
	}
	if a.typ != api.ActionTypePoseInput {
		return 0, api.ErrorActionTypeMismatch
	}
	if _, ok := a.states[info.SubactionPath]; !ok {
		return 0, api.ErrorPathUnsupported
	}
	h := api.Space(r.handles.alloc(kindSpace))
	r.spaces[h] = &space{
		session:   s,
		offset:    info.PoseInActionSpace,
		action:    info.Action,
		subaction: info.SubactionPath,
	}
	return h, nil
}

// AttachSessionActionSets implements api.ActionAPI. Attaching freezes the
// sets and their bindings, and selects the active interaction profile.
func (r *Runtime) AttachSessionActionSets(h api.Session, sets []api.ActionSet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("xrAttachSessionActionSets"); err != nil {
		return err
	}
	s, ok := r.sessions[h]
	if !ok {
		return api.ErrorHandleInvalid
	}
	if len(s.attached) > 0 {
		return api.ErrorActionSetsAlreadyAttached
	}
	if len(sets) == 0 {
		return api.ErrorValidationFailure
	}
	for _, set := range sets {
		if _, ok := r.actionSets[set]; !ok {
			return api.ErrorHandleInvalid
		}
	}
	for _, set := range sets {
		r.actionSets[set].attached = true
	}
	s.attached = slices.Clone(sets)
	r.queue(api.InteractionProfileChanged{Session: h})
	return nil
}

// SyncActions implements api.ActionAPI. Actions are only active while the
// session has input focus.
func (r *Runtime) SyncActions(h api.Session, active []api.ActiveActionSet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("xrSyncActions"); err != nil {
		return err
	}
	s, ok := r.sessions[h]
	if !ok {
		return api.ErrorHandleInvalid
	}
	if len(s.attached) == 0 {
		return api.ErrorActionSetNotAttached
	}
	for _, as := range active {
		if !slices.Contains(s.attached, as.ActionSet) {
			return api.ErrorActionSetNotAttached
		}
	}
	focused := s.state == api.SessionStateFocused
	for _, as := range active {
		for _, ah := range r.actionSets[as.ActionSet].actions {
			r.syncAction(r.actions[ah], focused, s.displayTime)
		}
	}
	return nil
}

// syncAction must be called with r.mu held.
func (r *Runtime) syncAction(a *action, focused bool, now api.Time) {
	for sub, st := range a.states {
		var next actionState
		bound := r.bindingsFor(a, sub)
		next.active = focused && len(bound) > 0
		if next.active {
			for _, path := range bound {
				accumulate(a.typ, &next, r.inputs[path])
			}
		}
		next.changed = next.active && (next.b != st.b || next.f != st.f || next.v != st.v)
		next.lastChange = st.lastChange
		if next.changed {
			next.lastChange = now
		}
		*st = next
	}
}

// bindingsFor returns the input paths bound to a in the active profile,
// restricted to the subaction's subtree. Must be called with r.mu held.
func (r *Runtime) bindingsFor(a *action, sub api.Path) []string {
	var prefix string
	if sub != api.NullPath {
		prefix = r.names[sub] + "/"
	}
	var paths []string
	for _, b := range r.suggested[r.cfg.ActiveProfile] {
		if b.action != a.handle {
			continue
		}
		if prefix != "" && !strings.HasPrefix(b.path, prefix) {
			continue
		}
		paths = append(paths, b.path)
	}
	return paths
}

// accumulate folds one physical input into an action value: booleans are
// ORed, floats take the maximum, vectors keep the longest.
func accumulate(typ api.ActionType, st *actionState, in any) {
	var (
		b bool
		f float32
		v f32.Vec2
	)
	switch x := in.(type) {
	case bool:
		b = x
		if x {
			f = 1
		}
	case float32:
		f = x
		b = x > 0.5
	case f32.Vec2:
		v = x
	}
	switch typ {
	case api.ActionTypeBooleanInput:
		st.b = st.b || b
	case api.ActionTypeFloatInput:
		st.f = max(st.f, f)
	case api.ActionTypeVector2fInput:
		if v[0]*v[0]+v[1]*v[1] > st.v[0]*st.v[0]+st.v[1]*st.v[1] {
			st.v = v
		}
	}
}

// poseActive reports whether a pose action is bound for the subaction in
// the active profile. Must be called with r.mu held.
func (r *Runtime) poseActive(s api.Session, ah api.Action, sub api.Path) bool {
	a, ok := r.actions[ah]
	if !ok {
		return false
	}
	sess, ok := r.sessions[s]
	if !ok || !slices.Contains(sess.attached, a.set) {
		return false
	}
	return len(r.bindingsFor(a, sub)) > 0
}

// state validates a state query and returns the synced state. Must be
// called with r.mu held.
func (r *Runtime) state(h api.Session, info api.ActionStateGetInfo, typ api.ActionType) (*actionState, error) {
	s, ok := r.sessions[h]
	if !ok {
		return nil, api.ErrorHandleInvalid
	}
	a, ok := r.actions[info.Action]
	if !ok {
		return nil, api.ErrorHandleInvalid
	}
	if !slices.Contains(s.attached, a.set) {
		return nil, api.ErrorActionSetNotAttached
	}
	if a.typ != typ {
		return nil, api.ErrorActionTypeMismatch
	}
	st, ok := a.states[info.SubactionPath]
	if !ok {
		return nil, api.ErrorPathUnsupported
	}
	return st, nil
}

// GetActionStateBoolean implements api.ActionAPI.
func (r *Runtime) GetActionStateBoolean(h api.Session, info api.ActionStateGetInfo) (api.ActionStateBoolean, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("xrGetActionStateBoolean"); err != nil {
		return api.ActionStateBoolean{}, err
	}
	st, err := r.state(h, info, api.ActionTypeBooleanInput)
	if err != nil {
		return api.ActionStateBoolean{}, err
	}
	return api.ActionStateBoolean{
		CurrentState:         st.b,
		ChangedSinceLastSync: st.changed,
		LastChangeTime:       st.lastChange,
		IsActive:             st.active,
	}, nil
}

// GetActionStateFloat implements api.ActionAPI.
func (r *Runtime) GetActionStateFloat(h api.Session, info api.ActionStateGetInfo) (api.ActionStateFloat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("xrGetActionStateFloat"); err != nil {
		return api.ActionStateFloat{}, err
	}
	st, err := r.state(h, info, api.ActionTypeFloatInput)
	if err != nil {
		return api.ActionStateFloat{}, err
	}
	return api.ActionStateFloat{
		CurrentState:         st.f,
		ChangedSinceLastSync: st.changed,
		LastChangeTime:       st.lastChange,
		IsActive:             st.active,
	}, nil
}

// GetActionStateVector2f implements api.ActionAPI.
func (r *Runtime) GetActionStateVector2f(h api.Session, info api.ActionStateGetInfo) (api.ActionStateVector2f, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("xrGetActionStateVector2f"); err != nil {
		return api.ActionStateVector2f{}, err
	}
	st, err := r.state(h, info, api.ActionTypeVector2fInput)
	if err != nil {
		return api.ActionStateVector2f{}, err
	}
	return api.ActionStateVector2f{
		CurrentState:         st.v,
		ChangedSinceLastSync: st.changed,
		LastChangeTime:       st.lastChange,
		IsActive:             st.active,
	}, nil
}

// GetActionStatePose implements api.ActionAPI.
func (r *Runtime) GetActionStatePose(h api.Session, info api.ActionStateGetInfo) (api.ActionStatePose, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("xrGetActionStatePose"); err != nil {
		return api.ActionStatePose{}, err
	}
	st, err := r.state(h, info, api.ActionTypePoseInput)
	if err != nil {
		return api.ActionStatePose{}, err
	}
	return api.ActionStatePose{IsActive: st.active}, nil
}

// ApplyHapticFeedback implements api.ActionAPI. Pulses reach the device only
// while focused and when the action is bound to an output for the hand.
func (r *Runtime) ApplyHapticFeedback(h api.Session, info api.HapticActionInfo, vibration api.HapticVibration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("xrApplyHapticFeedback"); err != nil {
		return err
	}
	s, ok := r.sessions[h]
	if !ok {
		return api.ErrorHandleInvalid
	}
	a, ok := r.actions[info.Action]
	if !ok {
		return api.ErrorHandleInvalid
	}
	if !slices.Contains(s.attached, a.set) {
		return api.ErrorActionSetNotAttached
	}
	if a.typ != api.ActionTypeVibrationOutput {
		return api.ErrorActionTypeMismatch
	}
	if _, ok := a.states[info.SubactionPath]; !ok {
		return api.ErrorPathUnsupported
	}
	if s.state != api.SessionStateFocused || len(r.bindingsFor(a, info.SubactionPath)) == 0 {
		return nil
	}
	r.haptics = append(r.haptics, Haptic{
		Hand:      r.names[info.SubactionPath],
		Vibration: vibration,
		Time:      s.displayTime,
	})
	return nil
}

// Haptics returns every delivered pulse, oldest first.
func (r *Runtime) Haptics() []Haptic {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.haptics)
}

// SetBool sets a physical boolean input, e.g. "/user/hand/right/input/a/click".
func (r *Runtime) SetBool(path string, v bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inputs[path] = v
}

// SetFloat sets a physical analog input, e.g. "/user/hand/left/input/squeeze/value".
func (r *Runtime) SetFloat(path string, v float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inputs[path] = v
}

// SetVector2 sets a physical two-axis input, e.g. a thumbstick.
func (r *Runtime) SetVector2(path string, v f32.Vec2) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inputs[path] = v
}

// SetActiveProfile switches the connected controllers. Under an attached
// session this queues an InteractionProfileChanged event.
func (r *Runtime) SetActiveProfile(profile string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfg.ActiveProfile = profile
	for h, s := range r.sessions {
		if len(s.attached) > 0 {
			r.queue(api.InteractionProfileChanged{Session: h})
		}
	}
}

// Suggested returns the input paths suggested for action name under profile.
func (r *Runtime) Suggested(profile, name string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, b := range r.suggested[profile] {
		if a, ok := r.actions[b.action]; ok && a.name == name {
			out = append(out, b.path)
		}
	}
	return out
}
