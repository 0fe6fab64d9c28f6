package xr

import (
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/xr/internal/xrlog"
)

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(xrlog.Nop())
}

// SetLogger configures the default logger for xr and its sub-packages.
// By default, xr produces no log output. Call SetLogger to enable logging.
// A Context created with [WithLogger] uses that logger instead.
//
// SetLogger is safe for concurrent use. Pass nil to restore silence.
//
// Log levels used by xr:
//   - [slog.LevelDebug]: per-frame detail (display times, haptic pulses)
//   - [slog.LevelInfo]: lifecycle (session state changes, actions attached)
//   - [slog.LevelWarn]: non-fatal runtime faults, lost events, dropped layers
//
// Example:
//
//	xr.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	loggerPtr.Store(xrlog.Or(l))
}

// Logger returns the current default logger.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// loggerSetter is implemented by runtimes that accept a logger.
type loggerSetter interface {
	SetLogger(*slog.Logger)
}

// propagateLogger passes l to rt if the runtime logs.
func propagateLogger(rt any, l *slog.Logger) {
	if ls, ok := rt.(loggerSetter); ok {
		ls.SetLogger(l)
	}
}
