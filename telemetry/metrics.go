// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package telemetry exports session and frame counters to Prometheus and
// reports non-fatal runtime faults as throttled log lines.
//
// A [Metrics] value doubles as a session listener: pass it to the session
// machine and every state change and lost-event notice is counted.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gogpu/xr/api"
)

const namespace = "xr"

// Layer label values of xr_frames_total.
const (
	LayerProjection = "projection"
	LayerNone       = "none"
)

// Metrics holds the collectors of one Context.
type Metrics struct {
	frames        *prometheus.CounterVec
	layersDropped prometheus.Counter
	callFailures  *prometheus.CounterVec
	transitions   *prometheus.CounterVec
	state         prometheus.Gauge
	eventsLost    prometheus.Counter
	frameWait     prometheus.Histogram
	haptics       *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg. A nil reg
// leaves them unregistered, which is useful in tests.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		frames: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "frames_total",
				Help:      "Frames submitted to the compositor, by submitted layer",
			},
			[]string{"layer"}, // projection, none
		),
		layersDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "layers_dropped_total",
			Help:      "Projection layers omitted because the view pose was not valid",
		}),
		callFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runtime_call_failures_total",
				Help:      "Failed runtime calls, by runtime function",
			},
			[]string{"op"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "session_transitions_total",
				Help:      "Session state changes, by entered state",
			},
			[]string{"state"},
		),
		state: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_state",
			Help:      "Current session state as its numeric value",
		}),
		eventsLost: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_lost_total",
			Help:      "Runtime events dropped because the runtime queue overflowed",
		}),
		frameWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "frame_wait_seconds",
			Help:      "Time spent blocked in WaitFrame",
			Buckets:   []float64{.001, .0025, .005, .008, .011, .014, .02, .05, .1},
		}),
		haptics: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "haptic_pulses_total",
				Help:      "Haptic pulses sent, by hand",
			},
			[]string{"hand"},
		),
	}
	if reg != nil {
		for _, c := range m.Collectors() {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

// Collectors returns every collector for registration.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.frames,
		m.layersDropped,
		m.callFailures,
		m.transitions,
		m.state,
		m.eventsLost,
		m.frameWait,
		m.haptics,
	}
}

// Transition counts a session state change.
func (m *Metrics) Transition(_, to api.SessionState) {
	m.transitions.WithLabelValues(to.String()).Inc()
	m.state.Set(float64(to))
}

// EventsLost counts events the runtime dropped.
func (m *Metrics) EventsLost(count uint32) {
	m.eventsLost.Add(float64(count))
}

// FrameSubmitted counts an EndFrame. withLayer is false when no layer was
// submitted.
func (m *Metrics) FrameSubmitted(withLayer bool) {
	if withLayer {
		m.frames.WithLabelValues(LayerProjection).Inc()
		return
	}
	m.frames.WithLabelValues(LayerNone).Inc()
}

// LayerDropped counts a projection layer omitted for invalid tracking.
func (m *Metrics) LayerDropped() {
	m.layersDropped.Inc()
}

// CallFailed counts a failed runtime call.
func (m *Metrics) CallFailed(op string) {
	m.callFailures.WithLabelValues(op).Inc()
}

// FrameWait records the time spent in WaitFrame.
func (m *Metrics) FrameWait(d time.Duration) {
	m.frameWait.Observe(d.Seconds())
}

// HapticPulse counts a pulse sent to hand ("left" or "right").
func (m *Metrics) HapticPulse(hand string) {
	m.haptics.WithLabelValues(hand).Inc()
}
