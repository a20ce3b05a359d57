package coupling

import "math"

// rampRate is the fraction of the target gained per second.
const rampRate = 0.1

// Ramp brings a gain up from zero so the operator is not kicked when the
// coupling engages.
type Ramp struct {
	current float64
}

// Current is the gain to use this cycle.
func (r *Ramp) Current() float64 { return r.current }

// Advance moves the gain towards target by rampRate·dt·target and never
// past it. A target below the current gain takes effect at once.
func (r *Ramp) Advance(target, dt float64) float64 {
	if dt < 0 {
		dt = 0
	}
	if r.current >= target {
		r.current = target
		return r.current
	}
	r.current = math.Min(r.current+rampRate*dt*target, target)
	return r.current
}

// Reset drops the gain back to zero.
func (r *Ramp) Reset() { r.current = 0 }
