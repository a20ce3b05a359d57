package metrics

import "github.com/san-kum/teleop/internal/sim"

// Fraction is the share of cycles for which a condition held.
type Fraction struct {
	name    string
	cond    func(t *sim.Telemetry) bool
	hits    int
	samples int
}

// NewLimitEngagement counts cycles with a workspace limit torque applied.
func NewLimitEngagement() *Fraction {
	return &Fraction{name: "limit_engagement", cond: func(t *sim.Telemetry) bool { return t.LimitActive }}
}

// NewSaturation counts cycles clipped to the device maximum.
func NewSaturation() *Fraction {
	return &Fraction{name: "saturation", cond: func(t *sim.Telemetry) bool { return t.Saturated }}
}

func (f *Fraction) Name() string { return f.name }

func (f *Fraction) Observe(t *sim.Telemetry) {
	f.samples++
	if f.cond(t) {
		f.hits++
	}
}

func (f *Fraction) Value() float64 {
	if f.samples == 0 {
		return 0
	}
	return float64(f.hits) / float64(f.samples)
}

func (f *Fraction) Reset() {
	f.hits = 0
	f.samples = 0
}
