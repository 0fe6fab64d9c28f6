// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package simulated

import (
	"log/slog"
	"strings"

	"github.com/gogpu/xr/api"
)

// session is the runtime side of a session.
type session struct {
	gpu      bool // bound to a real device; swapchains hand out GPU textures
	state    api.SessionState
	running  bool
	exitReq  bool
	attached []api.ActionSet

	displayTime api.Time
	waited      bool
	begun       bool
	frameIndex  uint64
}

// CreateInstance implements api.InstanceAPI.
func (r *Runtime) CreateInstance(info api.InstanceCreateInfo) (api.Instance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("xrCreateInstance"); err != nil {
		return 0, err
	}
	if info.ApplicationName == "" {
		return 0, api.ErrorValidationFailure
	}
	if r.instance != 0 {
		return 0, api.ErrorRuntimeFailure
	}
	r.instance = api.Instance(r.handles.alloc(kindInstance))
	return r.instance, nil
}

// DestroyInstance implements api.InstanceAPI. Every object created from the
// instance goes with it.
func (r *Runtime) DestroyInstance(instance api.Instance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("xrDestroyInstance"); err != nil {
		return err
	}
	if !r.handles.valid(uint64(instance), kindInstance) {
		return api.ErrorHandleInvalid
	}
	for s := range r.sessions {
		r.destroySession(s)
	}
	for a := range r.actions {
		r.handles.free(uint64(a))
	}
	for set := range r.actionSets {
		r.handles.free(uint64(set))
	}
	clear(r.actions)
	clear(r.actionSets)
	clear(r.suggested)
	if r.system != 0 {
		r.handles.free(uint64(r.system))
		r.system = 0
	}
	r.handles.free(uint64(instance))
	r.instance = 0
	r.events = nil
	r.lostEvents = 0
	return nil
}

// GetSystem implements api.InstanceAPI. Only head-mounted displays exist.
func (r *Runtime) GetSystem(instance api.Instance, formFactor api.FormFactor) (api.SystemID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("xrGetSystem"); err != nil {
		return 0, err
	}
	if !r.handles.valid(uint64(instance), kindInstance) {
		return 0, api.ErrorHandleInvalid
	}
	if formFactor != api.FormFactorHeadMountedDisplay {
		return 0, api.ErrorFormFactorUnavailable
	}
	if r.system == 0 {
		r.system = api.SystemID(r.handles.alloc(kindSystem))
	}
	return r.system, nil
}

// EnumerateViewConfigurationViews implements api.InstanceAPI.
func (r *Runtime) EnumerateViewConfigurationViews(instance api.Instance, system api.SystemID, config api.ViewConfigurationType) ([]api.ViewConfigurationView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("xrEnumerateViewConfigurationViews"); err != nil {
		return nil, err
	}
	if !r.handles.valid(uint64(instance), kindInstance) {
		return nil, api.ErrorHandleInvalid
	}
	if !r.handles.valid(uint64(system), kindSystem) {
		return nil, api.ErrorSystemInvalid
	}
	if config != api.ViewConfigurationPrimaryStereo {
		return nil, api.ErrorViewConfigurationTypeUnsupported
	}
	views := r.cfg.Views
	return views[:], nil
}

// StringToPath implements api.InstanceAPI. Paths are interned: the same
// string always yields the same handle.
func (r *Runtime) StringToPath(instance api.Instance, path string) (api.Path, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("xrStringToPath"); err != nil {
		return 0, err
	}
	if !r.handles.valid(uint64(instance), kindInstance) {
		return 0, api.ErrorHandleInvalid
	}
	if !wellFormed(path) {
		return 0, api.ErrorPathInvalid
	}
	return r.intern(path), nil
}

// intern must be called with r.mu held.
func (r *Runtime) intern(path string) api.Path {
	if p, ok := r.paths[path]; ok {
		return p
	}
	p := api.Path(len(r.paths) + 1)
	r.paths[path] = p
	r.names[p] = path
	return p
}

// PathString returns the string form of an interned path.
func (r *Runtime) PathString(p api.Path) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.names[p]
}

// wellFormed accepts absolute paths of lowercase segments.
func wellFormed(path string) bool {
	if len(path) < 2 || path[0] != '/' || strings.HasSuffix(path, "/") || strings.Contains(path, "//") {
		return false
	}
	for _, c := range path[1:] {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		case c == '/', c == '_', c == '-', c == '.':
		default:
			return false
		}
	}
	return true
}

// PollEvent implements api.InstanceAPI. A lost-event notice precedes the
// remaining queue. Session state changes take effect when they are polled,
// so the runtime and the application agree on the current state.
func (r *Runtime) PollEvent(instance api.Instance) (api.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("xrPollEvent"); err != nil {
		return nil, err
	}
	if !r.handles.valid(uint64(instance), kindInstance) {
		return nil, api.ErrorHandleInvalid
	}
	if r.lostEvents > 0 {
		ev := api.EventsLost{LostEventCount: r.lostEvents}
		r.lostEvents = 0
		return ev, nil
	}
	if len(r.events) == 0 {
		return nil, nil
	}
	ev := r.events[0]
	r.events = r.events[1:]
	if sc, ok := ev.(api.SessionStateChanged); ok {
		if s, ok := r.sessions[sc.Session]; ok {
			s.state = sc.State
		}
	}
	return ev, nil
}

// QueueEvent appends an event to the queue. When the queue is full the event
// is dropped and counted in the next EventsLost notice.
func (r *Runtime) QueueEvent(ev api.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queue(ev)
}

// queue must be called with r.mu held.
func (r *Runtime) queue(ev api.Event) {
	if len(r.events) >= r.cfg.EventCapacity {
		r.lostEvents++
		r.log.Warn("simulated: event queue full", slog.Int("type", int(ev.EventType())), slog.Uint64("lost", uint64(r.lostEvents)))
		return
	}
	r.events = append(r.events, ev)
}

// QueueSessionState queues state changes for the current session, in order.
// It does nothing when no session exists.
func (r *Runtime) QueueSessionState(states ...api.SessionState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, _ := r.current()
	if s == 0 {
		return
	}
	for _, st := range states {
		r.queueState(s, st)
	}
}

// queueState must be called with r.mu held.
func (r *Runtime) queueState(s api.Session, st api.SessionState) {
	var t api.Time
	if sess := r.sessions[s]; sess != nil {
		t = sess.displayTime
	}
	r.queue(api.SessionStateChanged{Session: s, State: st, Time: t})
}

// PendingEvents returns the number of queued events.
func (r *Runtime) PendingEvents() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// current returns the live session, if any. Must be called with r.mu held.
func (r *Runtime) current() (api.Session, *session) {
	for h, s := range r.sessions {
		return h, s
	}
	return 0, nil
}

// Session returns the handle of the live session, or 0.
func (r *Runtime) Session() api.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, _ := r.current()
	return h
}

// State returns the runtime's view of the current session state.
func (r *Runtime) State() api.SessionState {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, s := r.current(); s != nil {
		return s.state
	}
	return api.SessionStateUnknown
}

// Running reports whether the current session has begun and not ended.
func (r *Runtime) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, s := r.current(); s != nil {
		return s.running
	}
	return false
}

// RequestExit asks the session to wind down. Under AutoLifecycle a running
// session moves to stopping; after EndSession it moves to idle and exiting.
func (r *Runtime) RequestExit() {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, s := r.current()
	if s == nil {
		return
	}
	s.exitReq = true
	if !r.cfg.AutoLifecycle {
		return
	}
	if s.running {
		r.queueState(h, api.SessionStateStopping)
		return
	}
	r.queueState(h, api.SessionStateExiting)
}

// LoseInstance queues the notices a runtime sends before it goes away.
func (r *Runtime) LoseInstance() {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, s := r.current()
	var t api.Time
	if s != nil {
		t = s.displayTime
		r.queueState(h, api.SessionStateLossPending)
	}
	r.queue(api.InstanceLossPending{LossTime: t.Add(r.cfg.FramePeriod)})
}

// CreateSession implements api.SessionAPI. One session may exist at a time.
func (r *Runtime) CreateSession(instance api.Instance, info api.SessionCreateInfo) (api.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("xrCreateSession"); err != nil {
		return 0, err
	}
	if !r.handles.valid(uint64(instance), kindInstance) {
		return 0, api.ErrorHandleInvalid
	}
	if !r.handles.valid(uint64(info.System), kindSystem) {
		return 0, api.ErrorSystemInvalid
	}
	if info.Device == nil {
		return 0, api.ErrorValidationFailure
	}
	if len(r.sessions) > 0 {
		return 0, api.ErrorRuntimeFailure
	}
	h := api.Session(r.handles.alloc(kindSession))
	r.sessions[h] = &session{state: api.SessionStateUnknown, gpu: !api.Headless(info.Device)}
	r.queueState(h, api.SessionStateIdle)
	if r.cfg.AutoLifecycle {
		r.queueState(h, api.SessionStateReady)
	}
	return h, nil
}

// DestroySession implements api.SessionAPI.
func (r *Runtime) DestroySession(s api.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("xrDestroySession"); err != nil {
		return err
	}
	if _, ok := r.sessions[s]; !ok {
		return api.ErrorHandleInvalid
	}
	r.destroySession(s)
	return nil
}

// destroySession frees a session and its children. Must be called with r.mu held.
func (r *Runtime) destroySession(h api.Session) {
	for sp, v := range r.spaces {
		if v.session == h {
			delete(r.spaces, sp)
			r.handles.free(uint64(sp))
		}
	}
	for sc, v := range r.swapchains {
		if v.session == h {
			delete(r.swapchains, sc)
			r.handles.free(uint64(sc))
		}
	}
	delete(r.sessions, h)
	r.handles.free(uint64(h))
}

// BeginSession implements api.SessionAPI.
func (r *Runtime) BeginSession(h api.Session, config api.ViewConfigurationType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("xrBeginSession"); err != nil {
		return err
	}
	s, ok := r.sessions[h]
	if !ok {
		return api.ErrorHandleInvalid
	}
	if config != api.ViewConfigurationPrimaryStereo {
		return api.ErrorViewConfigurationTypeUnsupported
	}
	if s.running {
		return api.ErrorSessionRunning
	}
	if s.state != api.SessionStateReady {
		return api.ErrorSessionNotReady
	}
	s.running = true
	if r.cfg.AutoLifecycle {
		r.queueState(h, api.SessionStateSynchronized)
		r.queueState(h, api.SessionStateVisible)
		r.queueState(h, api.SessionStateFocused)
		if s.exitReq {
			r.queueState(h, api.SessionStateStopping)
		}
	}
	return nil
}

// EndSession implements api.SessionAPI.
func (r *Runtime) EndSession(h api.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("xrEndSession"); err != nil {
		return err
	}
	s, ok := r.sessions[h]
	if !ok {
		return api.ErrorHandleInvalid
	}
	if !s.running {
		return api.ErrorSessionNotRunning
	}
	if s.state != api.SessionStateStopping {
		return api.ErrorSessionNotStopping
	}
	s.running = false
	s.waited = false
	s.begun = false
	if r.cfg.AutoLifecycle {
		r.queueState(h, api.SessionStateIdle)
		if s.exitReq {
			r.queueState(h, api.SessionStateExiting)
		}
	}
	return nil
}
