// Package coupling connects the avatar to the simulated tool with a
// virtual spring and turns the spring's reaction into device feedback.
package coupling

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/teleop/internal/vecmath"
)

// Frame is a position and orientation in world coordinates.
type Frame struct {
	Position mgl64.Vec3
	Rotation mgl64.Mat3
}

// Wrench is the spring's pull on the tool, world frame.
type Wrench struct {
	Force  mgl64.Vec3
	Torque mgl64.Vec3

	// Stretch and Twist are the spring deflections behind the wrench.
	Stretch mgl64.Vec3
	Twist   float64
}

// Energy is the elastic energy stored in the spring for the given
// stiffnesses.
func (w Wrench) Energy(linK, angK float64) float64 {
	return 0.5*linK*w.Stretch.Dot(w.Stretch) + 0.5*angK*w.Twist*w.Twist
}

// Spring is a linear plus torsional spring from avatar to tool.
type Spring struct{}

// Wrench evaluates the spring. The torsional deflection is measured in the
// tool frame and the resulting torque is rotated back to world.
func (Spring) Wrench(avatar, tool Frame, linK, angK float64) Wrench {
	stretch := avatar.Position.Sub(tool.Position)
	axis, angle := vecmath.ToAxisAngle(tool.Rotation.Transpose().Mul3(avatar.Rotation))

	return Wrench{
		Force:   stretch.Mul(linK),
		Torque:  tool.Rotation.Mul3x1(axis.Mul(angK * angle)),
		Stretch: stretch,
		Twist:   angle,
	}
}
