package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/gogpu/xr"
	"github.com/gogpu/xr/api"
	"github.com/gogpu/xr/api/simulated"
	"github.com/gogpu/xr/config"
	"github.com/gogpu/xr/geometry"
	"github.com/gogpu/xr/input"
	"github.com/gogpu/xr/session"
	"github.com/gogpu/xr/swapchain"
	"github.com/gogpu/xr/telemetry"
)

// exitGrace is how many ticks past the requested exit the session may take
// to reach exiting.
const exitGrace = 64

// grabPeriod is the length in ticks of one right-hand squeeze sweep.
const grabPeriod = 60

type runFlags struct {
	frames      int
	backend     string
	profile     string
	metricsAddr string
	loseAt      int
	pace        bool
	trace       bool
}

func newRunCmd(g *globalFlags) *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a scripted session for a number of frames",
		Long: `Run opens a runtime, begins a session once it is ready and renders both
eyes every frame. The right-hand squeeze sweeps from released to fully
pressed, so haptic pulses fire near the top of each sweep. After --frames
frames the runtime is asked to exit and the session winds down through
stopping and exiting.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(g.configFile)
			if err != nil {
				return err
			}
			if f.backend != "" {
				cfg.Backend = f.backend
			}
			if f.metricsAddr != "" {
				cfg.Metrics.Address = f.metricsAddr
			}
			sum, err := simulate(cmd.Context(), cfg, f, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			sum.print(cmd.OutOrStdout())
			return nil
		},
	}
	cmd.Flags().IntVarP(&f.frames, "frames", "n", 90, "frames to render before requesting exit")
	cmd.Flags().StringVar(&f.backend, "backend", "", "runtime backend (default from config, else simulated)")
	cmd.Flags().StringVar(&f.profile, "profile", "", "interaction profile of the simulated controllers")
	cmd.Flags().StringVar(&f.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	cmd.Flags().IntVar(&f.loseAt, "lose-at", 0, "simulate instance loss at this tick and reconnect")
	cmd.Flags().BoolVar(&f.pace, "pace", false, "wait for the display period between frames")
	cmd.Flags().BoolVar(&f.trace, "trace", false, "print session state transitions")
	return cmd
}

// summary is what run prints when the session ends.
type summary struct {
	Backend    string
	State      api.SessionState
	Ticks      int
	Frames     int
	Layers     int
	Dropped    int
	Haptics    [2]int
	Faults     uint64
	Restarts   int
	Projection geometry.Projection
	Format     string
}

// countingSink counts faults before handing them on.
type countingSink struct {
	next telemetry.Sink
	n    atomic.Uint64
}

func (s *countingSink) Fault(err error) {
	s.n.Add(1)
	s.next.Fault(err)
}

// tracer prints session transitions.
type tracer struct{ w io.Writer }

func (t tracer) Transition(from, to api.SessionState) {
	fmt.Fprintf(t.w, "  %-14s -> %s\n", from, stateColor(to).Sprint(to))
}

func (t tracer) EventsLost(count uint32) {
	warnLabel.Fprintf(t.w, "  %d events lost\n", count)
}

var _ session.Listener = tracer{}

// driver runs the loop over one Context at a time.
type driver struct {
	c         *xr.Context
	sim       *simulated.Runtime
	grab      string
	lastIndex uint64
	sum       summary
}

// simulate runs a session to completion and returns what happened. Logs go
// to logOut; --trace output goes to out.
func simulate(ctx context.Context, cfg config.Config, f runFlags, out, logOut io.Writer) (summary, error) {
	log := cfg.Log.NewLogger(logOut)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	metrics, err := telemetry.NewMetrics(reg)
	if err != nil {
		return summary{}, err
	}
	if cfg.Metrics.Address != "" {
		exp, err := startExporter(cfg.Metrics.Address, reg, log)
		if err != nil {
			return summary{}, fmt.Errorf("metrics: %w", err)
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = exp.Shutdown(sctx)
		}()
	}

	profiles, err := loadProfiles(cfg.Input.ProfilesFile)
	if err != nil {
		return summary{}, err
	}
	sink := &countingSink{next: telemetry.NewReporter(log, telemetry.WithMetrics(metrics))}

	inputOpts := []input.Option{
		input.WithHapticThreshold(cfg.Input.HapticThreshold),
		input.WithHapticAmplitude(cfg.Input.HapticAmplitude),
		input.WithMinHandScale(cfg.Input.MinHandScale),
	}
	if profiles != nil {
		inputOpts = append(inputOpts, input.WithProfiles(profiles))
	} else {
		profiles = input.DefaultProfiles()
	}
	opts := []xr.Option{
		xr.WithApplicationName(cfg.ApplicationName, 1),
		xr.WithLogger(log),
		xr.WithMetrics(metrics),
		xr.WithSink(sink),
		xr.WithFormats(cfg.Swapchain.TextureFormats()...),
		xr.WithDynamicBounds(cfg.Swapchain.DynamicBounds),
		xr.WithInput(inputOpts...),
	}
	if f.trace {
		opts = append(opts, xr.WithSessionListener(tracer{w: out}))
	}

	backend := cfg.Backend
	if backend == "" {
		backend = simulated.BackendName
	}
	params := maps.Clone(cfg.BackendParams)
	if params == nil {
		params = make(map[string]string)
	}
	if f.profile != "" {
		params["profile"] = f.profile
	}
	if f.pace {
		params["pace"] = "true"
	}
	var opened api.Runtime
	open := func(context.Context) (api.Runtime, error) {
		rt, err := xr.Open(backend, api.BackendOptions{ApplicationName: cfg.ApplicationName, Params: params})
		opened = rt
		return rt, err
	}

	rt, err := open(ctx)
	if err != nil {
		return summary{}, err
	}
	c, err := xr.New(ctx, rt, opts...)
	if err != nil {
		return summary{}, err
	}
	d := &driver{sum: summary{Backend: backend}}
	d.bind(c, rt, profiles)
	defer func() { d.c.Close() }()

	exitRequested := false
	lost := false
	for tick := 0; ; tick++ {
		if d.sim == nil && tick >= f.frames {
			break
		}
		if tick >= f.frames+exitGrace {
			return d.finish(sink), fmt.Errorf("xrsim: session still %s %d ticks after exit was requested", d.c.State(), exitGrace)
		}
		if d.sim != nil {
			if f.loseAt > 0 && tick == f.loseAt && !lost {
				d.sim.LoseInstance()
				lost = true
			}
			if tick >= f.frames && !exitRequested {
				d.sim.RequestExit()
				exitRequested = true
			}
			d.script(tick)
		}

		d.sum.Ticks++
		res, _ := d.c.Update()
		for h := range res.Input.Haptic {
			if res.Input.Haptic[h] {
				d.sum.Haptics[h]++
			}
		}
		if res.Signal.ExitRenderLoop {
			if !res.Signal.RequestRestart {
				break
			}
			log.Warn("xrsim: runtime lost, reconnecting", slog.Int("tick", tick))
			_ = d.c.Close()
			next, err := xr.Reacquire(ctx, open, xr.DefaultBackoff, opts...)
			if err != nil {
				return d.finish(sink), err
			}
			d.sum.Restarts++
			d.bind(next, opened, profiles)
			exitRequested = false
			continue
		}
		if err := d.frame(ctx); err != nil {
			return d.finish(sink), err
		}
	}
	return d.finish(sink), nil
}

// bind switches the driver to c, opened on rt. Scripting is enabled only
// for the simulated runtime.
func (d *driver) bind(c *xr.Context, rt api.Runtime, profiles []input.Profile) {
	d.c = c
	d.lastIndex = 0
	d.grab = ""
	d.sim, _ = rt.(*simulated.Runtime)
	if d.sim != nil {
		d.grab = grabPath(profiles, d.sim.Config().ActiveProfile)
	}
}

// script moves the simulated controllers for tick.
func (d *driver) script(tick int) {
	if d.grab == "" {
		return
	}
	d.sim.SetFloat(d.grab, float32(tick%grabPeriod)/float32(grabPeriod-1))
}

// frame renders both eyes. Runtime faults are already reported to the sink,
// so only cancellation stops the loop.
func (d *driver) frame(ctx context.Context) error {
	if err := d.c.BeginFrame(ctx); err != nil && ctx.Err() != nil {
		_ = d.c.EndFrame()
		return err
	}
	fr := d.c.Frame()
	rendered := 0
	for _, eye := range []swapchain.Eye{swapchain.Left, swapchain.Right} {
		if _, err := d.c.AcquireForEye(eye); err != nil {
			continue
		}
		if err := d.c.ReleaseForEye(eye); err == nil {
			rendered++
		}
	}
	if err := d.c.EndFrame(); err != nil {
		return nil
	}
	if fr.Index <= d.lastIndex {
		return nil
	}
	d.lastIndex = fr.Index
	d.sum.Frames++
	switch {
	case !fr.State.ShouldRender:
	case !fr.LayerValid:
		d.sum.Dropped++
	case rendered == api.StereoViewCount:
		d.sum.Layers++
	}
	return nil
}

// finish fills in the final state.
func (d *driver) finish(sink *countingSink) summary {
	d.sum.State = d.c.State()
	d.sum.Faults = sink.n.Load()
	d.sum.Projection = d.c.Projection()
	d.sum.Format = config.FormatName(d.c.Swapchains().Format())
	return d.sum
}

// grabPath returns the right-hand grab input of profile, or "" when the
// profile has no such binding.
func grabPath(profiles []input.Profile, profile string) string {
	for _, p := range profiles {
		if p.Path != profile {
			continue
		}
		for _, b := range p.Bindings {
			if b.Action == input.GrabObject && strings.HasPrefix(b.Path, "/user/hand/right/") {
				return b.Path
			}
		}
	}
	return ""
}

var (
	headerLabel = color.New(color.Bold)
	okLabel     = color.New(color.FgGreen)
	warnLabel   = color.New(color.FgYellow)
)

// stateColor picks a color for a session state.
func stateColor(s api.SessionState) *color.Color {
	switch s {
	case api.SessionStateFocused, api.SessionStateVisible, api.SessionStateSynchronized:
		return okLabel
	case api.SessionStateLossPending, api.SessionStateExiting, api.SessionStateStopping:
		return warnLabel
	}
	return color.New(color.Reset)
}

func (s summary) print(w io.Writer) {
	headerLabel.Fprintf(w, "xrsim: %s runtime\n", s.Backend)
	row := func(name, format string, args ...any) {
		fmt.Fprintf(w, "  %-12s "+format+"\n", append([]any{name}, args...)...)
	}
	row("state", "%s", stateColor(s.State).Sprint(s.State))
	row("ticks", "%d", s.Ticks)
	row("frames", "%d", s.Frames)
	row("layers", "%s", okLabel.Sprint(s.Layers))
	if s.Dropped > 0 {
		row("dropped", "%s", warnLabel.Sprint(s.Dropped))
	} else {
		row("dropped", "0")
	}
	row("haptics", "left %d, right %d", s.Haptics[input.Left], s.Haptics[input.Right])
	if s.Faults > 0 {
		row("faults", "%s", errorLabel.Sprint(s.Faults))
	} else {
		row("faults", "0")
	}
	if s.Restarts > 0 {
		row("restarts", "%s", warnLabel.Sprint(s.Restarts))
	}
	row("projection", "aspect %.3f, fov %.1f deg", s.Projection.Aspect, s.Projection.FovDegrees)
	row("format", "%s", s.Format)
}
