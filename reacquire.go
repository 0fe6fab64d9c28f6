package xr

import (
	"context"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/gogpu/xr/api"
)

// Open opens the named runtime backend, or the best available one when
// name is empty.
func Open(name string, opts api.BackendOptions) (api.Runtime, error) {
	var (
		rt  api.Runtime
		err error
	)
	if name == "" {
		rt, err = api.OpenBest(opts)
	} else {
		rt, err = api.OpenBackend(name, opts)
	}
	if err != nil {
		return nil, err
	}
	propagateLogger(rt, Logger())
	return rt, nil
}

// Backoff controls how Reacquire retries.
type Backoff struct {
	// Attempts is the total number of tries, including the first.
	Attempts uint

	// Delay is the wait before the first retry. It doubles on each retry
	// up to MaxDelay.
	Delay    time.Duration
	MaxDelay time.Duration
}

// DefaultBackoff retries for roughly half a minute.
var DefaultBackoff = Backoff{
	Attempts: 8,
	Delay:    250 * time.Millisecond,
	MaxDelay: 8 * time.Second,
}

// Reacquire builds a new Context after the previous one signalled
// RequestRestart, typically after an instance or session loss. It calls
// open for a runtime and then New, retrying both with exponential backoff
// until one succeeds, the attempts run out or ctx is done. The caller must
// Close the old Context first.
func Reacquire(ctx context.Context, open func(context.Context) (api.Runtime, error), b Backoff, opts ...Option) (*Context, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	log := o.logger
	if log == nil {
		log = Logger()
	}

	return retry.DoWithData(
		func() (*Context, error) {
			rt, err := open(ctx)
			if err != nil {
				return nil, err
			}
			return New(ctx, rt, opts...)
		},
		retry.Context(ctx),
		retry.Attempts(b.Attempts),
		retry.Delay(b.Delay),
		retry.MaxDelay(b.MaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Warn("xr: reconnect failed",
				slog.Uint64("attempt", uint64(n+1)),
				slog.String("err", err.Error()))
		}),
	)
}
