// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package simulated

import (
	"golang.org/x/image/math/f32"

	"github.com/gogpu/xr/api"
	"github.com/gogpu/xr/geometry"
)

// standingHeight is the eye height of the simulated user above the stage
// floor. The local space origin sits at the head's starting position.
const standingHeight = 1.6

const allLocationFlags = api.SpaceLocationOrientationValid | api.SpaceLocationPositionValid |
	api.SpaceLocationOrientationTracked | api.SpaceLocationPositionTracked

type space struct {
	session api.Session
	ref     api.ReferenceSpaceType
	offset  api.Pose

	// action is set for spaces created from a pose action.
	action    api.Action
	subaction api.Path
}

// CreateReferenceSpace implements api.SpaceAPI.
func (r *Runtime) CreateReferenceSpace(s api.Session, spaceType api.ReferenceSpaceType, poseInReferenceSpace api.Pose) (api.Space, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("xrCreateReferenceSpace"); err != nil {
		return 0, err
	}
	if _, ok := r.sessions[s]; !ok {
		return 0, api.ErrorHandleInvalid
	}
	switch spaceType {
	case api.ReferenceSpaceView, api.ReferenceSpaceLocal, api.ReferenceSpaceStage:
	default:
		return 0, api.ErrorValidationFailure
	}
	h := api.Space(r.handles.alloc(kindSpace))
	r.spaces[h] = &space{session: s, ref: spaceType, offset: poseInReferenceSpace}
	return h, nil
}

// DestroySpace implements api.SpaceAPI.
func (r *Runtime) DestroySpace(sp api.Space) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("xrDestroySpace"); err != nil {
		return err
	}
	if _, ok := r.spaces[sp]; !ok {
		return api.ErrorHandleInvalid
	}
	delete(r.spaces, sp)
	r.handles.free(uint64(sp))
	return nil
}

// LocateSpace implements api.SpaceAPI.
func (r *Runtime) LocateSpace(sp, base api.Space, t api.Time) (api.SpaceLocation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("xrLocateSpace"); err != nil {
		return api.SpaceLocation{}, err
	}
	a, ok := r.spaces[sp]
	if !ok {
		return api.SpaceLocation{}, api.ErrorHandleInvalid
	}
	b, ok := r.spaces[base]
	if !ok {
		return api.SpaceLocation{}, api.ErrorHandleInvalid
	}
	if t <= 0 {
		return api.SpaceLocation{}, api.ErrorValidationFailure
	}
	pa, fa := r.worldPose(a)
	pb, fb := r.worldPose(b)
	return api.SpaceLocation{
		Flags: fa & fb,
		Pose:  compose(inverse(pb), pa),
	}, nil
}

// LocateViews implements api.SpaceAPI. Views may be located before the
// session is running.
func (r *Runtime) LocateViews(s api.Session, info api.ViewLocateInfo) (api.ViewState, []api.View, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("xrLocateViews"); err != nil {
		return api.ViewState{}, nil, err
	}
	if _, ok := r.sessions[s]; !ok {
		return api.ViewState{}, nil, api.ErrorHandleInvalid
	}
	if info.ViewConfiguration != api.ViewConfigurationPrimaryStereo {
		return api.ViewState{}, nil, api.ErrorViewConfigurationTypeUnsupported
	}
	if info.DisplayTime <= 0 {
		return api.ViewState{}, nil, api.ErrorValidationFailure
	}
	base, ok := r.spaces[info.Space]
	if !ok || base.session != s {
		return api.ViewState{}, nil, api.ErrorHandleInvalid
	}

	toBase := inverse(r.mustWorld(base))
	half := r.cfg.IPD / 2
	views := make([]api.View, api.StereoViewCount)
	for i, dx := range [api.StereoViewCount]float32{-half, half} {
		eye := compose(r.headPose, api.Pose{
			Orientation: geometry.IdentityQuaternion(),
			Position:    f32.Vec3{dx, 0, 0},
		})
		views[i] = api.View{Pose: compose(toBase, eye), Fov: r.fov[i]}
	}
	return api.ViewState{Flags: r.viewFlags}, views, nil
}

func (r *Runtime) mustWorld(sp *space) api.Pose {
	p, _ := r.worldPose(sp)
	return p
}

// worldPose returns a space's pose in stage coordinates. Must be called with
// r.mu held.
func (r *Runtime) worldPose(sp *space) (api.Pose, api.SpaceLocationFlags) {
	if sp.action != 0 {
		hand := r.hands[r.handIndex(sp.subaction)]
		if !r.poseActive(sp.session, sp.action, sp.subaction) {
			return compose(hand, sp.offset), 0
		}
		return compose(hand, sp.offset), allLocationFlags
	}
	switch sp.ref {
	case api.ReferenceSpaceView:
		return compose(r.headPose, sp.offset), api.SpaceLocationFlags(r.viewFlags)
	case api.ReferenceSpaceLocal:
		origin := api.Pose{
			Orientation: geometry.IdentityQuaternion(),
			Position:    f32.Vec3{0, standingHeight, 0},
		}
		return compose(origin, sp.offset), allLocationFlags
	}
	return sp.offset, allLocationFlags
}

// handIndex maps a subaction path to 0 (left) or 1 (right). Actions without
// a subaction follow the right hand.
func (r *Runtime) handIndex(p api.Path) int {
	if r.names[p] == "/user/hand/left" {
		return 0
	}
	return 1
}

// SetHeadPose moves the head in stage coordinates.
func (r *Runtime) SetHeadPose(p api.Pose) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.headPose = p
}

// SetHandPose moves a controller in stage coordinates. Hand 0 is left.
func (r *Runtime) SetHandPose(hand int, p api.Pose) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hands[hand&1] = p
}

// SetViewTracking sets the flags returned with located views.
func (r *Runtime) SetViewTracking(flags api.ViewStateFlags) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.viewFlags = flags
}

// SetFov changes the frustum located views report for an eye, as a headset
// does when its lens distance is adjusted. Eye 0 is left.
func (r *Runtime) SetFov(eye int, fov api.Fov) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fov[eye&1] = fov
}

// compose returns the transform applying b first, then a.
func compose(a, b api.Pose) api.Pose {
	return api.Pose{
		Orientation: mul(a.Orientation, b.Orientation),
		Position:    add(a.Position, rotate(a.Orientation, b.Position)),
	}
}

func inverse(p api.Pose) api.Pose {
	q := conjugate(p.Orientation)
	v := rotate(q, p.Position)
	return api.Pose{Orientation: q, Position: f32.Vec3{-v[0], -v[1], -v[2]}}
}

func mul(a, b geometry.Quaternion) geometry.Quaternion {
	return geometry.Quaternion{
		X: a.W*b.X + a.X*b.W + a.Y*b.Z - a.Z*b.Y,
		Y: a.W*b.Y - a.X*b.Z + a.Y*b.W + a.Z*b.X,
		Z: a.W*b.Z + a.X*b.Y - a.Y*b.X + a.Z*b.W,
		W: a.W*b.W - a.X*b.X - a.Y*b.Y - a.Z*b.Z,
	}
}

func conjugate(q geometry.Quaternion) geometry.Quaternion {
	return geometry.Quaternion{X: -q.X, Y: -q.Y, Z: -q.Z, W: q.W}
}

// rotate applies a unit quaternion to v.
func rotate(q geometry.Quaternion, v f32.Vec3) f32.Vec3 {
	u := f32.Vec3{q.X, q.Y, q.Z}
	t := cross(u, v)
	t = f32.Vec3{2 * t[0], 2 * t[1], 2 * t[2]}
	c := cross(u, t)
	return f32.Vec3{
		v[0] + q.W*t[0] + c[0],
		v[1] + q.W*t[1] + c[1],
		v[2] + q.W*t[2] + c[2],
	}
}

func cross(a, b f32.Vec3) f32.Vec3 {
	return f32.Vec3{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func add(a, b f32.Vec3) f32.Vec3 {
	return f32.Vec3{a[0] + b[0], a[1] + b[1], a[2] + b[2]}
}
