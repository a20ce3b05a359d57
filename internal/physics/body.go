package physics

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/teleop/internal/dynamo"
	"github.com/san-kum/teleop/internal/vecmath"
)

const (
	iPos = 0
	iRot = 3
	iVel = 6
	iAng = 9

	stateDim   = 12
	controlDim = 6
)

// Body is the view of a rigid body the control loop needs.
type Body interface {
	Position() mgl64.Vec3
	Orientation() mgl64.Mat3
	AddExternalForce(f mgl64.Vec3)
	AddExternalTorque(t mgl64.Vec3)
}

// RigidBody is a single body with isotropic inertia. Forces and torques
// accumulate between steps and are cleared by each step.
type RigidBody struct {
	mass    float64
	inertia float64
	gravity mgl64.Vec3

	x   dynamo.State
	rot mgl64.Mat3

	force  mgl64.Vec3
	torque mgl64.Vec3
}

func newRigidBody(mass, inertia float64) *RigidBody {
	return &RigidBody{
		mass:    mass,
		inertia: inertia,
		x:       make(dynamo.State, stateDim),
		rot:     mgl64.Ident3(),
	}
}

func (b *RigidBody) StateDim() int   { return stateDim }
func (b *RigidBody) ControlDim() int { return controlDim }

// Derive implements dynamo.System. u carries the applied force and torque.
func (b *RigidBody) Derive(x dynamo.State, u dynamo.Control, _ float64) dynamo.State {
	dx := make(dynamo.State, stateDim)
	copy(dx[iPos:iPos+3], x[iVel:iVel+3])
	copy(dx[iRot:iRot+3], x[iAng:iAng+3])
	for i := 0; i < 3; i++ {
		dx[iVel+i] = u[i]/b.mass + b.gravity[i]
		dx[iAng+i] = u[3+i] / b.inertia
	}
	return dx
}

func (b *RigidBody) Position() mgl64.Vec3 { return mgl64.Vec3(b.x.Vec3At(iPos)) }

func (b *RigidBody) Orientation() mgl64.Mat3 { return b.rot }

func (b *RigidBody) Velocity() mgl64.Vec3 { return mgl64.Vec3(b.x.Vec3At(iVel)) }

func (b *RigidBody) AngularVelocity() mgl64.Vec3 { return mgl64.Vec3(b.x.Vec3At(iAng)) }

func (b *RigidBody) AddExternalForce(f mgl64.Vec3) { b.force = b.force.Add(f) }

func (b *RigidBody) AddExternalTorque(t mgl64.Vec3) { b.torque = b.torque.Add(t) }

// SetPose teleports the body and zeroes its velocities.
func (b *RigidBody) SetPose(pos mgl64.Vec3, rot mgl64.Mat3) {
	for i := range b.x {
		b.x[i] = 0
	}
	b.x.SetVec3At(iPos, pos)
	b.rot = vecmath.Orthonormalize(rot)
}

// KineticEnergy is the translational plus rotational kinetic energy.
func (b *RigidBody) KineticEnergy() float64 {
	v, w := b.Velocity(), b.AngularVelocity()
	return 0.5*b.mass*v.Dot(v) + 0.5*b.inertia*w.Dot(w)
}

func (b *RigidBody) control() dynamo.Control {
	return dynamo.Control{b.force[0], b.force[1], b.force[2], b.torque[0], b.torque[1], b.torque[2]}
}

func (b *RigidBody) clearAccumulators() {
	b.force = mgl64.Vec3{}
	b.torque = mgl64.Vec3{}
}
