// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package session tracks the runtime-driven session lifecycle.
//
// The runtime moves a session through its states by queuing events; the
// [Machine] drains that queue once per tick with [Machine.Pump] and performs
// the calls each state requires of the application:
//
//	ready    → BeginSession (running from then on)
//	stopping → EndSession (not running)
//	exiting  → stop the render loop
//	loss     → stop the render loop and reconnect
//
// Side effects fire on entry to a state, never on a repeated event for the
// state the Machine is already in.
package session

import (
	"errors"
	"log/slog"

	"github.com/gogpu/xr/api"
	"github.com/gogpu/xr/internal/xrlog"
)

// Runtime is the part of api.Runtime the Machine calls.
type Runtime interface {
	PollEvent(instance api.Instance) (api.Event, error)
	BeginSession(session api.Session, config api.ViewConfigurationType) error
	EndSession(session api.Session) error
}

// Signal tells the caller what to do with its render loop.
type Signal struct {
	// ExitRenderLoop asks the caller to stop its loop.
	ExitRenderLoop bool

	// RequestRestart asks the caller to reconnect to a new runtime
	// instance after stopping.
	RequestRestart bool
}

// Listener observes the Machine. Methods are called synchronously from Pump.
type Listener interface {
	// Transition is called once per state change.
	Transition(from, to api.SessionState)

	// EventsLost is called when the runtime's event queue overflowed.
	EventsLost(count uint32)
}

// Option configures a Machine.
type Option func(*Machine)

// WithLogger sets the logger. Nil restores the silent default.
func WithLogger(l *slog.Logger) Option {
	return func(m *Machine) {
		m.log = xrlog.Or(l)
	}
}

// WithListener adds a listener.
func WithListener(l Listener) Option {
	return func(m *Machine) {
		if l != nil {
			m.listeners = append(m.listeners, l)
		}
	}
}

// WithViewConfiguration sets the configuration passed to BeginSession.
// The default is stereo.
func WithViewConfiguration(c api.ViewConfigurationType) Option {
	return func(m *Machine) {
		m.config = c
	}
}

// Machine is the session state machine. It is not safe for concurrent use.
type Machine struct {
	rt       Runtime
	instance api.Instance
	session  api.Session
	config   api.ViewConfigurationType

	state   api.SessionState
	running bool
	signal  Signal

	profileChanged bool

	log       *slog.Logger
	listeners []Listener
}

// New creates a Machine for session. It starts in the unknown state.
func New(rt Runtime, instance api.Instance, session api.Session, opts ...Option) *Machine {
	m := &Machine{
		rt:       rt,
		instance: instance,
		session:  session,
		config:   api.ViewConfigurationPrimaryStereo,
		log:      xrlog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the last state entered.
func (m *Machine) State() api.SessionState { return m.state }

// Running reports whether the session has begun and not yet ended.
func (m *Machine) Running() bool { return m.running }

// Signal returns the accumulated loop signal. Once set, a flag stays set.
func (m *Machine) Signal() Signal { return m.signal }

// ProfileChanged reports whether an interaction-profile change was seen
// since the last call, and clears the flag.
func (m *Machine) ProfileChanged() bool {
	changed := m.profileChanged
	m.profileChanged = false
	return changed
}

// Pump drains the runtime event queue until it is empty. Failed side
// effects do not stop the drain; they are joined into the returned error.
// A failed poll ends the drain.
func (m *Machine) Pump() (Signal, error) {
	var errs []error
	for {
		ev, err := m.rt.PollEvent(m.instance)
		if err != nil {
			errs = append(errs, api.Check("xrPollEvent", err))
			break
		}
		if ev == nil {
			break
		}
		if err := m.Handle(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return m.signal, errors.Join(errs...)
}

// Handle applies one event.
func (m *Machine) Handle(ev api.Event) error {
	switch e := ev.(type) {
	case api.SessionStateChanged:
		if e.Session != 0 && e.Session != m.session {
			m.log.Warn("session: event for foreign session ignored",
				slog.Uint64("session", uint64(e.Session)),
				slog.Uint64("own", uint64(m.session)),
				slog.String("state", e.State.String()))
			return nil
		}
		return m.enter(e.State)

	case api.EventsLost:
		m.log.Warn("session: runtime events lost", slog.Uint64("count", uint64(e.LostEventCount)))
		for _, l := range m.listeners {
			l.EventsLost(e.LostEventCount)
		}

	case api.InstanceLossPending:
		m.log.Warn("session: instance loss pending", slog.Int64("loss_time", int64(e.LossTime)))
		m.signal.ExitRenderLoop = true
		m.signal.RequestRestart = true

	case api.InteractionProfileChanged:
		if e.Session == m.session {
			m.log.Info("session: interaction profile changed")
			m.profileChanged = true
		}

	case api.ReferenceSpaceChangePending:
		m.log.Debug("session: reference space change pending",
			slog.String("space", e.SpaceType.String()),
			slog.Int64("change_time", int64(e.ChangeTime)))

	default:
		m.log.Debug("session: unhandled event", slog.Int("type", int(ev.EventType())))
	}
	return nil
}

// enter moves to state and fires its side effects if the state changed.
func (m *Machine) enter(state api.SessionState) error {
	if state == m.state {
		return nil
	}
	from := m.state
	m.state = state
	m.log.Info("session: state changed",
		slog.String("from", from.String()),
		slog.String("to", state.String()))
	for _, l := range m.listeners {
		l.Transition(from, state)
	}

	switch state {
	case api.SessionStateReady:
		if err := m.rt.BeginSession(m.session, m.config); err != nil {
			return api.Check("xrBeginSession", err)
		}
		m.running = true

	case api.SessionStateStopping:
		m.running = false
		if err := m.rt.EndSession(m.session); err != nil {
			return api.Check("xrEndSession", err)
		}

	case api.SessionStateExiting:
		m.signal.ExitRenderLoop = true

	case api.SessionStateLossPending:
		m.signal.ExitRenderLoop = true
		m.signal.RequestRestart = true
	}
	return nil
}
