// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package input

import (
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/image/math/f32"

	"github.com/gogpu/xr/api"
	"github.com/gogpu/xr/internal/xrlog"
)

// Runtime is the part of api.Runtime the input system calls.
type Runtime interface {
	api.ActionAPI
	StringToPath(instance api.Instance, path string) (api.Path, error)
	LocateSpace(space, baseSpace api.Space, t api.Time) (api.SpaceLocation, error)
	DestroySpace(space api.Space) error
}

// Hand selects a controller.
type Hand int

const (
	Left  Hand = 0
	Right Hand = 1
)

// String returns "left" or "right".
func (h Hand) String() string {
	if h == Left {
		return "left"
	}
	return "right"
}

var hands = [2]Hand{Left, Right}

// Errors returned by the System.
var (
	// ErrFrozen is returned when actions or bindings are changed after the
	// action set has been attached to the session.
	ErrFrozen = errors.New("input: action set already attached")

	// ErrNotInitialized is returned by Poll and LocateHands before Initialize.
	ErrNotInitialized = errors.New("input: not initialized")
)

// Default poll parameters.
const (
	DefaultHapticThreshold = 0.9
	DefaultHapticAmplitude = 0.5
	DefaultMinHandScale    = 0.5
)

// Option configures a System.
type Option func(*options)

type options struct {
	profiles        []Profile
	hapticThreshold float32
	hapticAmplitude float32
	minHandScale    float32
	logger          *slog.Logger
	onFault         func(error)
}

func defaultOptions() options {
	return options{
		profiles:        DefaultProfiles(),
		hapticThreshold: DefaultHapticThreshold,
		hapticAmplitude: DefaultHapticAmplitude,
		minHandScale:    DefaultMinHandScale,
		logger:          xrlog.Nop(),
		onFault:         func(error) {},
	}
}

// WithProfiles replaces the built-in binding tables.
func WithProfiles(profiles []Profile) Option {
	return func(o *options) {
		o.profiles = profiles
	}
}

// WithHapticThreshold sets the squeeze value above which a pulse fires.
func WithHapticThreshold(v float32) Option {
	return func(o *options) {
		o.hapticThreshold = v
	}
}

// WithHapticAmplitude sets the pulse amplitude in [0, 1].
func WithHapticAmplitude(v float32) Option {
	return func(o *options) {
		o.hapticAmplitude = v
	}
}

// WithMinHandScale sets the hand scale at full squeeze. The scale at rest
// is always 1.
func WithMinHandScale(v float32) Option {
	return func(o *options) {
		o.minHandScale = v
	}
}

// WithLogger sets the logger. Nil restores the silent default.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = xrlog.Or(l)
	}
}

// WithFaultHandler receives non-fatal setup failures, such as a binding
// table the runtime rejected.
func WithFaultHandler(fn func(error)) Option {
	return func(o *options) {
		if fn != nil {
			o.onFault = fn
		}
	}
}

// State is the reduced action state of one tick.
type State struct {
	// HandScale is 1 for an open hand down to the minimum scale at full
	// squeeze. It keeps its last value while the grab action is inactive.
	HandScale [2]float32

	// HandActive reports whether each hand's pose is tracked and bound.
	HandActive [2]bool

	Grab       [2]float32
	GrabActive [2]bool

	// Haptic reports a pulse sent to the hand this tick.
	Haptic [2]bool

	// Quit and Jump are true only on the tick the button goes down.
	Quit bool
	Jump bool

	Move       f32.Vec2
	MoveActive bool
}

// System owns the action set and its per-tick sync. It is not safe for
// concurrent use.
type System struct {
	rt       Runtime
	instance api.Instance
	session  api.Session
	opts     options

	set      api.ActionSet
	actions  map[string]api.Action
	hands    [2]api.Path
	spaces   [2]api.Space
	attached bool

	scale [2]float32
}

// New creates an uninitialized System for session.
func New(rt Runtime, instance api.Instance, session api.Session, opts ...Option) *System {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &System{
		rt:       rt,
		instance: instance,
		session:  session,
		opts:     o,
		actions:  make(map[string]api.Action, len(Declarations)),
		scale:    [2]float32{1, 1},
	}
}

// SuggestProfile adds a binding table. It must be called before Initialize.
func (s *System) SuggestProfile(p Profile) error {
	if s.attached {
		return ErrFrozen
	}
	s.opts.profiles = append(s.opts.profiles, p)
	return nil
}

// Profiles returns the binding tables that are or will be suggested.
func (s *System) Profiles() []Profile {
	return s.opts.profiles
}

// Initialize declares the actions, suggests every binding table, creates
// the hand spaces and attaches the action set. It succeeds once; later calls
// return ErrFrozen. A rejected binding table is reported to the fault
// handler and skipped.
func (s *System) Initialize() error {
	if s.attached {
		return ErrFrozen
	}
	for i, p := range []string{leftHand, rightHand} {
		path, err := s.rt.StringToPath(s.instance, p)
		if err = api.Check("xrStringToPath", err); err != nil {
			return err
		}
		s.hands[i] = path
	}

	set, err := s.rt.CreateActionSet(s.instance, api.ActionSetCreateInfo{
		Name:          ActionSetName,
		LocalizedName: LocalizedName(ActionSetName),
		Priority:      0,
	})
	if err = api.Check("xrCreateActionSet", err); err != nil {
		return err
	}
	s.set = set

	for _, d := range Declarations {
		info := api.ActionCreateInfo{
			Name:          d.Name,
			LocalizedName: LocalizedName(d.Name),
			Type:          d.Type,
		}
		if d.Hands {
			info.SubactionPaths = s.hands[:]
		}
		a, err := s.rt.CreateAction(set, info)
		if err = api.Check("xrCreateAction", err); err != nil {
			return fmt.Errorf("input: action %s: %w", d.Name, err)
		}
		s.actions[d.Name] = a
	}

	for _, p := range s.opts.profiles {
		if err := s.suggest(p); err != nil {
			s.opts.logger.Warn("input: binding table rejected",
				slog.String("profile", p.Path),
				slog.String("err", err.Error()))
			s.opts.onFault(err)
			continue
		}
		s.opts.logger.Debug("input: binding table suggested",
			slog.String("profile", p.Path),
			slog.Int("bindings", len(p.Bindings)))
	}

	for i, h := range s.hands {
		sp, err := s.rt.CreateActionSpace(s.session, api.ActionSpaceCreateInfo{
			Action:            s.actions[HandPose],
			SubactionPath:     h,
			PoseInActionSpace: api.IdentityPose(),
		})
		if err = api.Check("xrCreateActionSpace", err); err != nil {
			return err
		}
		s.spaces[i] = sp
	}

	if err := api.Check("xrAttachSessionActionSets", s.rt.AttachSessionActionSets(s.session, []api.ActionSet{set})); err != nil {
		return err
	}
	s.attached = true
	s.opts.logger.Info("input: actions attached",
		slog.Int("actions", len(s.actions)),
		slog.Int("profiles", len(s.opts.profiles)))
	return nil
}

// suggest submits one binding table.
func (s *System) suggest(p Profile) error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("input: profile %s: %w", p.Path, err)
	}
	profile, err := s.rt.StringToPath(s.instance, p.Path)
	if err = api.Check("xrStringToPath", err); err != nil {
		return fmt.Errorf("input: profile %s: %w", p.Path, err)
	}
	suggested := api.InteractionProfileSuggestedBinding{
		InteractionProfile: profile,
		Bindings:           make([]api.ActionSuggestedBinding, 0, len(p.Bindings)),
	}
	for _, b := range p.Bindings {
		path, err := s.rt.StringToPath(s.instance, b.Path)
		if err = api.Check("xrStringToPath", err); err != nil {
			return fmt.Errorf("input: profile %s: binding %s: %w", p.Path, b.Path, err)
		}
		suggested.Bindings = append(suggested.Bindings, api.ActionSuggestedBinding{
			Action:  s.actions[b.Action],
			Binding: path,
		})
	}
	if err := api.Check("xrSuggestInteractionProfileBindings", s.rt.SuggestInteractionProfileBindings(s.instance, suggested)); err != nil {
		return fmt.Errorf("input: profile %s: %w", p.Path, err)
	}
	return nil
}

// Poll syncs the action set and reduces it to a State. It is safe to call
// in any session state once Initialize has succeeded; outside focus every
// action is simply inactive. Failed queries leave their part of the State
// at its zero value and are joined into the returned error.
func (s *System) Poll() (State, error) {
	st := State{HandScale: s.scale}
	if !s.attached {
		return st, ErrNotInitialized
	}

	var errs []error
	check := func(op string, err error) bool {
		if err != nil {
			errs = append(errs, api.Check(op, err))
			return false
		}
		return true
	}

	err := s.rt.SyncActions(s.session, []api.ActiveActionSet{{ActionSet: s.set, SubactionPath: api.NullPath}})
	check("xrSyncActions", err)

	for _, h := range hands {
		grab, err := s.rt.GetActionStateFloat(s.session, api.ActionStateGetInfo{
			Action:        s.actions[GrabObject],
			SubactionPath: s.hands[h],
		})
		if check("xrGetActionStateFloat", err) && grab.IsActive {
			st.GrabActive[h] = true
			st.Grab[h] = grab.CurrentState
			s.scale[h] = 1 - (1-s.opts.minHandScale)*grab.CurrentState
			if grab.CurrentState > s.opts.hapticThreshold {
				st.Haptic[h] = s.pulse(h, check)
			}
		}

		pose, err := s.rt.GetActionStatePose(s.session, api.ActionStateGetInfo{
			Action:        s.actions[HandPose],
			SubactionPath: s.hands[h],
		})
		if check("xrGetActionStatePose", err) {
			st.HandActive[h] = pose.IsActive
		}
	}
	st.HandScale = s.scale

	quit, err := s.rt.GetActionStateBoolean(s.session, api.ActionStateGetInfo{Action: s.actions[QuitSession]})
	if check("xrGetActionStateBoolean", err) {
		st.Quit = edge(quit)
	}
	jump, err := s.rt.GetActionStateBoolean(s.session, api.ActionStateGetInfo{Action: s.actions[Jump]})
	if check("xrGetActionStateBoolean", err) {
		st.Jump = edge(jump)
	}
	move, err := s.rt.GetActionStateVector2f(s.session, api.ActionStateGetInfo{Action: s.actions[Move]})
	if check("xrGetActionStateVector2f", err) && move.IsActive {
		st.Move = move.CurrentState
		st.MoveActive = true
	}

	return st, errors.Join(errs...)
}

// edge reports a button press on this sync.
func edge(b api.ActionStateBoolean) bool {
	return b.IsActive && b.ChangedSinceLastSync && b.CurrentState
}

func (s *System) pulse(h Hand, check func(string, error) bool) bool {
	err := s.rt.ApplyHapticFeedback(s.session,
		api.HapticActionInfo{Action: s.actions[VibrateHand], SubactionPath: s.hands[h]},
		api.HapticVibration{
			Duration:  api.MinHapticDuration,
			Frequency: api.FrequencyUnspecified,
			Amplitude: s.opts.hapticAmplitude,
		})
	if !check("xrApplyHapticFeedback", err) {
		return false
	}
	s.opts.logger.Debug("input: haptic pulse", slog.String("hand", h.String()))
	return true
}

// LocateHands returns both hands' poses in base at time t.
func (s *System) LocateHands(base api.Space, t api.Time) ([2]api.SpaceLocation, error) {
	var out [2]api.SpaceLocation
	if !s.attached {
		return out, ErrNotInitialized
	}
	var errs []error
	for _, h := range hands {
		loc, err := s.rt.LocateSpace(s.spaces[h], base, t)
		if err != nil {
			errs = append(errs, api.Check("xrLocateSpace", err))
			continue
		}
		out[h] = loc
	}
	return out, errors.Join(errs...)
}

// Action returns the handle of a declared action, or 0.
func (s *System) Action(name string) api.Action {
	return s.actions[name]
}

// HandPath returns the subaction path of a hand.
func (s *System) HandPath(h Hand) api.Path {
	return s.hands[h]
}

// Destroy releases the hand spaces and the action set.
func (s *System) Destroy() error {
	var errs []error
	for i, sp := range s.spaces {
		if sp == 0 {
			continue
		}
		if err := s.rt.DestroySpace(sp); err != nil {
			errs = append(errs, api.Check("xrDestroySpace", err))
		}
		s.spaces[i] = 0
	}
	if s.set != 0 {
		if err := s.rt.DestroyActionSet(s.set); err != nil {
			errs = append(errs, api.Check("xrDestroyActionSet", err))
		}
		s.set = 0
	}
	return errors.Join(errs...)
}
