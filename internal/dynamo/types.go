package dynamo

import (
	"fmt"
	"math"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// Axpy returns s + k·other. Missing entries in other count as zero.
func (s State) Axpy(k float64, other State) State {
	out := make(State, len(s))
	for i := range s {
		out[i] = s[i]
		if i < len(other) {
			out[i] += k * other[i]
		}
	}
	return out
}

// Vec3At reads three consecutive entries starting at i.
func (s State) Vec3At(i int) [3]float64 {
	return [3]float64{s[i], s[i+1], s[i+2]}
}

// SetVec3At writes three consecutive entries starting at i.
func (s State) SetVec3At(i int, v [3]float64) {
	s[i], s[i+1], s[i+2] = v[0], v[1], v[2]
}

// Control is the external input held constant over a step.
type Control []float64

type System interface {
	Derive(x State, u Control, t float64) State
	StateDim() int
	ControlDim() int
}

type Integrator interface {
	Step(dyn System, x State, u Control, t float64, dt float64) State
}

// CheckDims reports ErrDimensionMismatch when x or u does not fit dyn.
func CheckDims(dyn System, x State, u Control) error {
	if len(x) != dyn.StateDim() {
		return fmt.Errorf("%w: state has %d entries, want %d", ErrDimensionMismatch, len(x), dyn.StateDim())
	}
	if len(u) != dyn.ControlDim() {
		return fmt.Errorf("%w: control has %d entries, want %d", ErrDimensionMismatch, len(u), dyn.ControlDim())
	}
	return nil
}
