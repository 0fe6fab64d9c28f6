package xr

import (
	"log/slog"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/xr/api"
	"github.com/gogpu/xr/input"
	"github.com/gogpu/xr/session"
	"github.com/gogpu/xr/telemetry"
)

// Option configures a Context during creation.
//
// Example:
//
//	// Headless session on the default runtime
//	c, err := xr.New(ctx, rt)
//
//	// Bound to the host GPU, with metrics
//	c, err := xr.New(ctx, rt, xr.WithDevice(provider), xr.WithMetrics(m))
type Option func(*options)

// options holds optional configuration for Context creation.
type options struct {
	appName       string
	appVersion    uint32
	device        gpucontext.DeviceProvider
	logger        *slog.Logger
	metrics       *telemetry.Metrics
	sink          telemetry.Sink
	formats       []gputypes.TextureFormat
	dynamicBounds bool
	inputOpts     []input.Option
	listeners     []session.Listener
}

// defaultOptions returns the default context options.
func defaultOptions() options {
	return options{
		appName: "xr",
		device:  api.NullDevice{},
	}
}

// WithApplicationName sets the name the runtime shows for this application.
func WithApplicationName(name string, version uint32) Option {
	return func(o *options) {
		o.appName = name
		o.appVersion = version
	}
}

// WithDevice binds the session to the host's GPU device. Without it the
// session is headless.
func WithDevice(d gpucontext.DeviceProvider) Option {
	return func(o *options) {
		if d != nil {
			o.device = d
		}
	}
}

// WithLogger sets the Context logger. The default is [Logger] at the time
// New runs.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMetrics records frames, session transitions, lost events, haptic
// pulses and runtime faults in m.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithSink replaces the fault reporter. The default logs each fault at
// Warn through the Context logger, rate limited.
func WithSink(s telemetry.Sink) Option {
	return func(o *options) {
		o.sink = s
	}
}

// WithFormats sets the preferred swapchain formats, best first.
func WithFormats(formats ...gputypes.TextureFormat) Option {
	return func(o *options) {
		o.formats = formats
	}
}

// WithDynamicBounds recomputes the projection and texture bounds from
// every frame's located views instead of only at startup.
func WithDynamicBounds(on bool) Option {
	return func(o *options) {
		o.dynamicBounds = on
	}
}

// WithInput passes options to the action system, such as binding tables
// and haptic thresholds.
//
//	xr.New(ctx, rt, xr.WithInput(input.WithProfiles(tables), input.WithHapticThreshold(0.8)))
func WithInput(opts ...input.Option) Option {
	return func(o *options) {
		o.inputOpts = append(o.inputOpts, opts...)
	}
}

// WithSessionListener observes session state changes.
func WithSessionListener(l session.Listener) Option {
	return func(o *options) {
		if l != nil {
			o.listeners = append(o.listeners, l)
		}
	}
}
