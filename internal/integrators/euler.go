package integrators

import "github.com/san-kum/teleop/internal/dynamo"

// Euler is the explicit first-order step. It matches what a plain rigid
// body engine does per step and is the cheapest option.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	return x.Axpy(dt, dyn.Derive(x, u, t))
}
