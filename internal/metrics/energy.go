package metrics

import (
	"math"

	"github.com/san-kum/teleop/internal/sim"
)

// SpringEnergy is the mean elastic energy in the avatar-tool spring, J.
type SpringEnergy struct {
	total   float64
	peak    float64
	samples int
}

func NewSpringEnergy() *SpringEnergy { return &SpringEnergy{} }

func (e *SpringEnergy) Name() string { return "spring_energy" }

func (e *SpringEnergy) Observe(t *sim.Telemetry) {
	e.total += t.SpringEnergy
	e.peak = math.Max(e.peak, t.SpringEnergy)
	e.samples++
}

func (e *SpringEnergy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.total / float64(e.samples)
}

// Peak is the largest energy seen.
func (e *SpringEnergy) Peak() float64 { return e.peak }

func (e *SpringEnergy) Reset() {
	e.total = 0
	e.peak = 0
	e.samples = 0
}
