// Package drift maps the device's small physical rotation range onto a
// larger virtual range.
//
// Rotation that would pile up at the device's mechanical limit is drained
// into a slowly rotating reference frame, the virtual workspace. The avatar
// orientation is the device tilt, amplified by a position-dependent scale
// factor, expressed in that frame. A feedback torque opposes the tilt
// velocity in proportion to the injected drift so the operator feels the
// frame moving.
package drift

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/teleop/internal/device"
	"github.com/san-kum/teleop/internal/params"
	"github.com/san-kum/teleop/internal/vecmath"
)

// State persists across cycles.
type State struct {
	// VirtualWorkspace is the orientation of the virtual workspace frame.
	VirtualWorkspace mgl64.Mat3
	// CenterAxis is the drifted reference axis.
	CenterAxis mgl64.Vec3
	// PrevAxis is the last non-degenerate frame rotation axis.
	PrevAxis mgl64.Vec3
}

// NewState returns the start-of-session state for a device whose reference
// pointing axis is ref.
func NewState(ref mgl64.Vec3) State {
	return State{
		VirtualWorkspace: mgl64.Ident3(),
		CenterAxis:       ref,
		PrevAxis:         vecmath.UnitX,
	}
}

// Output is everything one cycle produces. Next must be committed by the
// caller once the whole cycle has succeeded.
type Output struct {
	Next State

	DeviceRot     mgl64.Vec3 // current pointing axis
	TiltVelocity  mgl64.Vec3
	RotCross      mgl64.Vec3
	AngleTheta    float64 // device tilt from the reference axis, rad
	DriftVelocity mgl64.Vec3
	Scale         float64
	AvatarAngVel  mgl64.Vec3
	Axis          mgl64.Vec3 // frame rotation axis used this cycle
	AngleCenter   float64    // frame increment this cycle, rad
	AvatarRotVect mgl64.Vec3 // telemetry only
	AvatarRot     mgl64.Mat3
	DriftTorque   mgl64.Vec3 // device-local frame
}

// Controller holds the constants of the drift scheme.
type Controller struct {
	// Ref is the device reference pointing axis in the handle frame.
	Ref mgl64.Vec3
	// SampleRateHz converts the drift rate into a per-cycle increment.
	SampleRateHz float64
	// MaxAngularTorque scales the drift feedback torque.
	MaxAngularTorque float64
}

func New(specs device.Specs) *Controller {
	return &Controller{
		Ref:              vecmath.UnitZ,
		SampleRateHz:     specs.SampleRateHz,
		MaxAngularTorque: specs.MaxAngularTorque,
	}
}

// Step runs one cycle. s is read, never written.
func (c *Controller) Step(pose device.Pose, s State, p params.Params) Output {
	var out Output
	w := pose.AngularVelocity

	out.DeviceRot = pose.Rotation.Mul3x1(c.Ref)
	out.TiltVelocity = w.Sub(out.DeviceRot.Mul(out.DeviceRot.Dot(w)))

	out.RotCross = out.DeviceRot.Cross(c.Ref)
	rotDot := out.DeviceRot.Dot(c.Ref)
	crossLen := out.RotCross.Len()
	out.AngleTheta = math.Atan2(crossLen, rotDot)

	sinMax := p.SinThetaMax()
	out.DriftVelocity = out.RotCross.Mul(p.Kd * out.TiltVelocity.Len() / sinMax)
	out.Scale = 1 + crossLen*(p.RangeRatio()-1)/sinMax
	out.AvatarAngVel = w.Sub(out.DriftVelocity).Mul(out.Scale)

	axis, ok := vecmath.Normalize(s.VirtualWorkspace.Mul3x1(out.RotCross))
	if !ok {
		axis = s.PrevAxis
	}
	out.Axis = axis
	out.AngleCenter = out.Scale * out.DriftVelocity.Len() / c.SampleRateHz

	next := s
	next.PrevAxis = axis
	if out.AngleCenter != 0 {
		inc := vecmath.AxisAngle(axis.Mul(-1), out.AngleCenter)
		next.VirtualWorkspace = vecmath.Orthonormalize(s.VirtualWorkspace.Mul3(inc))
		if center, ok := vecmath.Normalize(inc.Mul3x1(s.CenterAxis)); ok {
			next.CenterAxis = center
		}
	}
	out.Next = next

	avatar := vecmath.AxisAngle(axis.Mul(-1), out.Scale*out.AngleTheta)
	out.AvatarRotVect = avatar.Mul3x1(next.CenterAxis)
	out.AvatarRot = next.VirtualWorkspace.Mul3(avatar)

	out.DriftTorque = out.DriftVelocity.Sub(out.TiltVelocity).Mul(p.Kv * c.MaxAngularTorque)
	return out
}
