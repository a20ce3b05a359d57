// Package limiter adds corrective torque when the device leaves its
// physical range or the avatar leaves its virtual range.
package limiter

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/teleop/internal/params"
	"github.com/san-kum/teleop/internal/vecmath"
)

// Torques are this cycle's limit contributions, device-local frame.
type Torques struct {
	Physical mgl64.Vec3
	Virtual  mgl64.Vec3
	// AngleAvatar is the avatar's angle from identity, rad.
	AngleAvatar float64
}

// Sum is the total limit torque.
func (t Torques) Sum() mgl64.Vec3 { return t.Physical.Add(t.Virtual) }

// Active reports whether either limit is engaged.
func (t Torques) Active() bool {
	return t.Physical != (mgl64.Vec3{}) || t.Virtual != (mgl64.Vec3{})
}

// Limiter scales both penalties by the device's angular stiffness.
type Limiter struct {
	MaxAngularStiffness float64
}

// Torques evaluates both checks from scratch. Below a threshold the
// contribution is exactly zero; at the threshold it is zero; past it it
// grows linearly with the overshoot along rotCross.
func (l Limiter) Torques(angleTheta float64, avatar mgl64.Mat3, rotCross mgl64.Vec3, p params.Params) Torques {
	var t Torques

	if limit := p.ThetaMaxRad(); angleTheta >= limit {
		t.Physical = rotCross.Mul(p.KVirtual * (angleTheta - limit) * l.MaxAngularStiffness)
	}

	_, t.AngleAvatar = vecmath.ToAxisAngle(avatar)
	if limit := p.ThetaERad(); t.AngleAvatar >= limit {
		t.Virtual = rotCross.Mul(p.KVirtual * (t.AngleAvatar - limit) * l.MaxAngularStiffness)
	}
	return t
}
