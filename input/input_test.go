// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package input

import (
	"bytes"
	"errors"
	"math"
	"slices"
	"strings"
	"testing"

	"golang.org/x/image/math/f32"

	"github.com/gogpu/xr/api"
	"github.com/gogpu/xr/api/simulated"
)

type harness struct {
	rt   *simulated.Runtime
	inst api.Instance
	s    api.Session
	sys  *System
}

// newHarness opens a session on the simulated runtime and initializes a
// System on it. The session is left idle.
func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	rt := simulated.New(simulated.DefaultConfig())
	inst, err := rt.CreateInstance(api.InstanceCreateInfo{ApplicationName: "input-test"})
	if err != nil {
		t.Fatal(err)
	}
	sysID, err := rt.GetSystem(inst, api.FormFactorHeadMountedDisplay)
	if err != nil {
		t.Fatal(err)
	}
	s, err := rt.CreateSession(inst, api.SessionCreateInfo{System: sysID, Device: api.NullDevice{}})
	if err != nil {
		t.Fatal(err)
	}
	h := &harness{rt: rt, inst: inst, s: s, sys: New(rt, inst, s, opts...)}
	if err := h.sys.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return h
}

func (h *harness) drain(t *testing.T) {
	t.Helper()
	for {
		ev, err := h.rt.PollEvent(h.inst)
		if err != nil {
			t.Fatal(err)
		}
		if ev == nil {
			return
		}
	}
}

// focus drives the session to focused.
func (h *harness) focus(t *testing.T) {
	t.Helper()
	h.drain(t)
	if err := h.rt.BeginSession(h.s, api.ViewConfigurationPrimaryStereo); err != nil {
		t.Fatalf("BeginSession: %v", err)
	}
	h.drain(t)
	if h.rt.State() != api.SessionStateFocused {
		t.Fatalf("State() = %v, want focused", h.rt.State())
	}
}

func (h *harness) poll(t *testing.T) State {
	t.Helper()
	st, err := h.sys.Poll()
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	return st
}

func near(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-5
}

func TestInitializeSuggestsEveryProfile(t *testing.T) {
	h := newHarness(t)

	for _, p := range DefaultProfiles() {
		if got := h.rt.Suggested(p.Path, GrabObject); len(got) != 2 {
			t.Errorf("%s: grab bindings = %v, want both hands", p.Path, got)
		}
	}
	if got := h.rt.Suggested(ProfileTouch, QuitSession); !slices.Equal(got, []string{"/user/hand/left/input/menu/click"}) {
		t.Errorf("touch quit = %v, want left menu only", got)
	}
	if got := h.rt.Suggested(ProfileIndex, QuitSession); len(got) != 2 || !strings.HasSuffix(got[0], "/input/b/click") {
		t.Errorf("index quit = %v, want b/click on both hands", got)
	}
	for _, name := range []string{GrabObject, HandPose, VibrateHand, QuitSession, Jump, Move} {
		if h.sys.Action(name) == 0 {
			t.Errorf("Action(%q) = 0, want a handle", name)
		}
	}
}

func TestInitializeFreezes(t *testing.T) {
	h := newHarness(t)

	if err := h.sys.Initialize(); !errors.Is(err, ErrFrozen) {
		t.Errorf("second Initialize error = %v, want %v", err, ErrFrozen)
	}
	if err := h.sys.SuggestProfile(Profile{Path: ProfileSimple}); !errors.Is(err, ErrFrozen) {
		t.Errorf("SuggestProfile after attach error = %v, want %v", err, ErrFrozen)
	}
}

func TestRejectedProfileIsSkipped(t *testing.T) {
	var faults []error
	profiles := append(DefaultProfiles(), Profile{
		Path:     "/interaction_profiles/acme/broken",
		Bindings: []Binding{{Action: Jump, Path: "/user/hand/right/input//a"}},
	})
	h := newHarness(t, WithProfiles(profiles), WithFaultHandler(func(err error) {
		faults = append(faults, err)
	}))

	if len(faults) != 1 {
		t.Fatalf("faults = %v, want one", faults)
	}
	if !errors.Is(faults[0], api.ErrorPathInvalid) {
		t.Errorf("fault = %v, want %v", faults[0], api.ErrorPathInvalid)
	}
	if len(h.rt.Suggested(ProfileTouch, Jump)) != 1 {
		t.Error("touch table missing after a rejected sibling")
	}
}

func TestPollBeforeInitialize(t *testing.T) {
	sys := New(simulated.New(simulated.DefaultConfig()), 1, 1)
	st, err := sys.Poll()
	if !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Poll error = %v, want %v", err, ErrNotInitialized)
	}
	if st.HandScale != [2]float32{1, 1} {
		t.Errorf("HandScale = %v, want [1 1]", st.HandScale)
	}
}

func TestPollOutsideFocusIsInactive(t *testing.T) {
	h := newHarness(t)
	h.rt.SetFloat("/user/hand/left/input/squeeze/value", 1)
	h.rt.SetBool("/user/hand/left/input/menu/click", true)

	st := h.poll(t)
	if st.GrabActive[Left] || st.HandActive[Left] || st.Quit || st.MoveActive {
		t.Errorf("Poll() = %+v before focus, want every action inactive", st)
	}
	if st.HandScale != [2]float32{1, 1} {
		t.Errorf("HandScale = %v, want [1 1]", st.HandScale)
	}
	if n := len(h.rt.Haptics()); n != 0 {
		t.Errorf("Haptics() = %d, want 0", n)
	}
}

func TestHandScale(t *testing.T) {
	tests := []struct {
		squeeze float32
		want    float32
	}{
		{0, 1},
		{0.5, 0.75},
		{1, 0.5},
	}
	h := newHarness(t)
	h.focus(t)
	for _, tt := range tests {
		h.rt.SetFloat("/user/hand/right/input/squeeze/value", tt.squeeze)
		st := h.poll(t)
		if !st.GrabActive[Right] {
			t.Fatal("grab inactive while focused")
		}
		if !near(st.HandScale[Right], tt.want) {
			t.Errorf("squeeze %v: HandScale = %v, want %v", tt.squeeze, st.HandScale[Right], tt.want)
		}
		if st.HandScale[Left] != 1 {
			t.Errorf("left HandScale = %v, want 1", st.HandScale[Left])
		}
	}
}

func TestHandScaleOption(t *testing.T) {
	h := newHarness(t, WithMinHandScale(0.25))
	h.focus(t)
	h.rt.SetFloat("/user/hand/left/input/squeeze/value", 1)
	if st := h.poll(t); !near(st.HandScale[Left], 0.25) {
		t.Errorf("HandScale = %v, want 0.25", st.HandScale[Left])
	}
}

func TestHapticOnHardSqueeze(t *testing.T) {
	h := newHarness(t)
	h.focus(t)

	h.rt.SetFloat("/user/hand/left/input/squeeze/value", 0.9)
	if st := h.poll(t); st.Haptic[Left] {
		t.Error("pulse at 0.9, want none at the threshold")
	}

	h.rt.SetFloat("/user/hand/left/input/squeeze/value", 0.95)
	st := h.poll(t)
	if !st.Haptic[Left] || st.Haptic[Right] {
		t.Errorf("Haptic = %v, want left only", st.Haptic)
	}
	got := h.rt.Haptics()
	if len(got) != 1 {
		t.Fatalf("Haptics() = %d pulses, want 1", len(got))
	}
	want := api.HapticVibration{Duration: api.MinHapticDuration, Frequency: api.FrequencyUnspecified, Amplitude: 0.5}
	if got[0].Hand != "/user/hand/left" || got[0].Vibration != want {
		t.Errorf("pulse = %+v, want %+v on the left hand", got[0], want)
	}

	// Held squeeze pulses every tick.
	h.poll(t)
	if n := len(h.rt.Haptics()); n != 2 {
		t.Errorf("Haptics() = %d after a held squeeze, want 2", n)
	}
}

func TestQuitEdgeFiresOnce(t *testing.T) {
	h := newHarness(t)
	h.focus(t)

	h.rt.SetBool("/user/hand/left/input/menu/click", true)
	if st := h.poll(t); !st.Quit {
		t.Error("Quit = false on press")
	}
	if st := h.poll(t); st.Quit {
		t.Error("Quit = true while held")
	}
	h.rt.SetBool("/user/hand/left/input/menu/click", false)
	if st := h.poll(t); st.Quit {
		t.Error("Quit = true on release")
	}
	h.rt.SetBool("/user/hand/left/input/menu/click", true)
	if st := h.poll(t); !st.Quit {
		t.Error("Quit = false on second press")
	}
}

func TestJumpAndMove(t *testing.T) {
	h := newHarness(t)
	h.focus(t)

	h.rt.SetBool("/user/hand/right/input/a/click", true)
	h.rt.SetVector2("/user/hand/right/input/thumbstick", f32.Vec2{0.25, -1})
	st := h.poll(t)
	if !st.Jump {
		t.Error("Jump = false on press")
	}
	if !st.MoveActive || st.Move != (f32.Vec2{0.25, -1}) {
		t.Errorf("Move = %v active=%v, want [0.25 -1] active", st.Move, st.MoveActive)
	}

	// The simple controller binds neither.
	h.rt.SetActiveProfile(ProfileSimple)
	st = h.poll(t)
	if st.Jump || st.MoveActive {
		t.Errorf("Poll() = %+v under the simple profile, want jump and move inactive", st)
	}
}

func TestPollReportsFailures(t *testing.T) {
	h := newHarness(t)
	h.focus(t)
	h.rt.FailNext("xrSyncActions", api.ErrorSessionNotRunning)

	_, err := h.sys.Poll()
	var ce *api.CallError
	if !errors.As(err, &ce) || ce.Op != "xrSyncActions" {
		t.Errorf("Poll error = %v, want CallError for xrSyncActions", err)
	}
}

func TestLocateHands(t *testing.T) {
	h := newHarness(t)
	h.focus(t)
	stage, err := h.rt.CreateReferenceSpace(h.s, api.ReferenceSpaceStage, api.IdentityPose())
	if err != nil {
		t.Fatal(err)
	}

	locs, err := h.sys.LocateHands(stage, 1)
	if err != nil {
		t.Fatal(err)
	}
	if locs[Left].Pose.Position[0] >= 0 || locs[Right].Pose.Position[0] <= 0 {
		t.Errorf("hands at %v and %v, want left at negative x", locs[Left].Pose.Position, locs[Right].Pose.Position)
	}
	if !locs[Left].Flags.Valid() {
		t.Errorf("left flags = %v, want valid", locs[Left].Flags)
	}

	if err := h.sys.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
}

func TestLoadProfiles(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{
			name: "valid",
			in: `profiles:
  - profile: /interaction_profiles/khr/simple_controller
    bindings:
      - {action: grab_object, path: /user/hand/left/input/select/click}
      - {action: quit_session, path: /user/hand/left/input/menu/click}
`,
		},
		{
			name: "unknown field",
			in: `profiles:
  - profile: /interaction_profiles/khr/simple_controller
    colour: red
    bindings:
      - {action: grab_object, path: /user/hand/left/input/select/click}
`,
			wantErr: true,
		},
		{
			name: "unknown action",
			in: `profiles:
  - profile: /interaction_profiles/khr/simple_controller
    bindings:
      - {action: fly, path: /user/hand/left/input/select/click}
`,
			wantErr: true,
		},
		{
			name: "bad profile path",
			in: `profiles:
  - profile: /khr/simple_controller
    bindings:
      - {action: jump, path: /user/hand/left/input/select/click}
`,
			wantErr: true,
		},
		{
			name:    "empty",
			in:      "profiles: []\n",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LoadProfiles(strings.NewReader(tt.in))
			if (err != nil) != tt.wantErr {
				t.Fatalf("LoadProfiles() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && (len(got) != 1 || len(got[0].Bindings) != 2) {
				t.Errorf("LoadProfiles() = %+v, want one profile with two bindings", got)
			}
		})
	}
}

func TestLoadProfilesDuplicate(t *testing.T) {
	in := `profiles:
  - profile: /interaction_profiles/khr/simple_controller
    bindings:
      - {action: jump, path: /user/hand/left/input/select/click}
  - profile: /interaction_profiles/khr/simple_controller
    bindings:
      - {action: jump, path: /user/hand/right/input/select/click}
`
	if _, err := LoadProfiles(strings.NewReader(in)); !errors.Is(err, ErrDuplicateProfile) {
		t.Errorf("LoadProfiles() error = %v, want %v", err, ErrDuplicateProfile)
	}
}

func TestWriteProfilesRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteProfiles(&buf, DefaultProfiles()); err != nil {
		t.Fatal(err)
	}
	got, err := LoadProfiles(&buf)
	if err != nil {
		t.Fatalf("LoadProfiles(WriteProfiles(DefaultProfiles())): %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("got %d profiles, want 5", len(got))
	}
	if a := got[1].ActionsBound(); !slices.Equal(a, []string{GrabObject, HandPose, Jump, Move, QuitSession, VibrateHand}) {
		t.Errorf("touch ActionsBound() = %v", a)
	}
}

func TestLocalizedName(t *testing.T) {
	tests := map[string]string{
		GrabObject:    "Grab Object",
		ActionSetName: "Gameplay",
		Move:          "Move",
		"quit_session": "Quit Session",
	}
	for in, want := range tests {
		if got := LocalizedName(in); got != want {
			t.Errorf("LocalizedName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestHandString(t *testing.T) {
	if Left.String() != "left" || Right.String() != "right" {
		t.Errorf("Hand strings = %q %q", Left, Right)
	}
}
