package metrics

import (
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/teleop/internal/sim"
)

// jitterWindow is how many recent cycle intervals are kept.
const jitterWindow = 8192

// CycleJitter is the standard deviation of the measured cycle interval
// over the most recent cycles, in milliseconds.
type CycleJitter struct {
	dts  []float64
	next int
	full bool
}

func NewCycleJitter() *CycleJitter {
	return &CycleJitter{dts: make([]float64, 0, jitterWindow)}
}

func (c *CycleJitter) Name() string { return "cycle_jitter_ms" }

func (c *CycleJitter) Observe(t *sim.Telemetry) {
	if t.Dt <= 0 {
		return
	}
	ms := t.Dt * 1000
	if !c.full {
		c.dts = append(c.dts, ms)
		c.full = len(c.dts) == jitterWindow
		return
	}
	c.dts[c.next] = ms
	c.next = (c.next + 1) % jitterWindow
}

func (c *CycleJitter) Value() float64 {
	_, std := c.MeanStdDev()
	return std
}

// MeanStdDev returns the mean interval and its standard deviation, ms.
func (c *CycleJitter) MeanStdDev() (mean, std float64) {
	if len(c.dts) < 2 {
		if len(c.dts) == 1 {
			return c.dts[0], 0
		}
		return 0, 0
	}
	return stat.MeanStdDev(c.dts, nil)
}

func (c *CycleJitter) Reset() {
	c.dts = c.dts[:0]
	c.next = 0
	c.full = false
}
