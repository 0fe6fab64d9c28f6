// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"golang.org/x/time/rate"

	"github.com/gogpu/xr/api"
	"github.com/gogpu/xr/internal/xrlog"
)

// Sink receives non-fatal failures. The frame that hit the failure goes on.
type Sink interface {
	Fault(err error)
}

// Discard is a Sink that drops every fault.
var Discard Sink = discard{}

type discard struct{}

func (discard) Fault(error) {}

// Default throttle of a Reporter.
const (
	DefaultFaultRate  = rate.Limit(5)
	DefaultFaultBurst = 10
)

// ReporterOption configures a Reporter.
type ReporterOption func(*Reporter)

// WithRate sets how many fault lines per second are logged, with burst.
func WithRate(limit rate.Limit, burst int) ReporterOption {
	return func(r *Reporter) {
		r.limiter = rate.NewLimiter(limit, burst)
	}
}

// WithMetrics counts every fault, logged or not, in m.
func WithMetrics(m *Metrics) ReporterOption {
	return func(r *Reporter) {
		r.metrics = m
	}
}

// Reporter is the standard Sink. Each fault becomes one Warn line naming
// the runtime function, call site and result; lines beyond the rate limit
// are counted and summarized on the next line that gets through. A Reporter
// is safe for concurrent use.
type Reporter struct {
	log        *slog.Logger
	limiter    *rate.Limiter
	metrics    *Metrics
	suppressed atomic.Uint64
}

// NewReporter creates a Reporter logging to l.
func NewReporter(l *slog.Logger, opts ...ReporterOption) *Reporter {
	r := &Reporter{
		log:     xrlog.Or(l),
		limiter: rate.NewLimiter(DefaultFaultRate, DefaultFaultBurst),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Fault reports err. Joined errors are reported one by one.
func (r *Reporter) Fault(err error) {
	if err == nil {
		return
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			r.Fault(e)
		}
		return
	}

	op := "unknown"
	attrs := make([]slog.Attr, 0, 5)
	var ce *api.CallError
	if errors.As(err, &ce) {
		op = ce.Op
		attrs = append(attrs,
			slog.String("op", ce.Op),
			slog.String("location", ce.Location),
			slog.String("result", ce.Result.String()))
	}
	if r.metrics != nil {
		r.metrics.CallFailed(op)
	}

	if !r.limiter.Allow() {
		r.suppressed.Add(1)
		return
	}
	if n := r.suppressed.Swap(0); n > 0 {
		attrs = append(attrs, slog.Uint64("suppressed", n))
	}
	attrs = append(attrs, slog.String("err", err.Error()))
	r.log.LogAttrs(context.Background(), slog.LevelWarn, "xr: runtime fault", attrs...)
}

// Suppressed returns the number of faults dropped by the rate limit since
// the last logged line.
func (r *Reporter) Suppressed() uint64 {
	return r.suppressed.Load()
}
