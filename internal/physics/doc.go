// Package physics is the rigid body world the tool lives in.
//
// A [World] owns one [RigidBody], the tool, and advances it with a fixed
// step using any integrator from the integrators package. The body state is
// a [dynamo.State] laid out as
//
//	[position(3), rotation increment(3), velocity(3), angular velocity(3)]
//
// The rotation increment is reset to zero before every step and folded into
// the orientation matrix afterwards, so orientation never leaves SO(3)
// through the integrator. Damping is applied per step as a velocity scale,
// the way ODE-style engines do it.
package physics
