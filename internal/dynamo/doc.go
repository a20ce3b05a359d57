// Package dynamo holds the primitives shared by the rigid body engine and
// its integrators:
//
//   - [State]: flat state vector, positions first and velocities second
//   - [System]: an ODE dX/dt = f(X, u, t)
//   - [Integrator]: advances a System by one fixed step
//
// Integrators that split the state in half (Verlet, Leapfrog) rely on the
// positions-then-velocities layout.
package dynamo
