package metrics

import "github.com/san-kum/teleop/internal/sim"

// ControlEffort is the mean magnitude of one output channel.
type ControlEffort struct {
	name    string
	pick    func(t *sim.Telemetry) float64
	sum     float64
	samples int
}

// NewForceEffort tracks the mean rendered force, N.
func NewForceEffort() *ControlEffort {
	return &ControlEffort{
		name: "force_effort",
		pick: func(t *sim.Telemetry) float64 { return t.Force.Len() },
	}
}

// NewTorqueEffort tracks the mean rendered torque, N·m.
func NewTorqueEffort() *ControlEffort {
	return &ControlEffort{
		name: "torque_effort",
		pick: func(t *sim.Telemetry) float64 { return t.Torque.Len() },
	}
}

func (c *ControlEffort) Name() string { return c.name }

func (c *ControlEffort) Observe(t *sim.Telemetry) {
	c.sum += c.pick(t)
	c.samples++
}

func (c *ControlEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *ControlEffort) Reset() {
	c.sum = 0
	c.samples = 0
}
