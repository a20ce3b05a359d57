package coupling

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/teleop/internal/params"
)

// Feedback is what the device should render this cycle, before
// saturation.
type Feedback struct {
	Force   mgl64.Vec3
	Torque  mgl64.Vec3
	LinGain float64
	AngGain float64
	Spring  Wrench
}

// Coupler runs the spring twice per cycle. The first pass uses the avatar
// pose from before drift compensation and produces device feedback. The
// second uses the compensated pose and drives the tool body. The zero value
// is ready to use with both ramps at zero.
type Coupler struct {
	spring Spring
	lin    Ramp
	ang    Ramp
}

// FeedbackPass computes the device force and torque with the current
// ramped gains, then advances the ramps by dt.
func (c *Coupler) FeedbackPass(avatar, tool Frame, p params.Params, dt float64) Feedback {
	w := c.spring.Wrench(avatar, tool, p.LinStiffness, p.AngStiffness)
	fb := Feedback{
		Force:   w.Force.Mul(-c.lin.Current()),
		Torque:  w.Torque.Mul(-c.ang.Current()),
		LinGain: c.lin.Current(),
		AngGain: c.ang.Current(),
		Spring:  w,
	}
	c.lin.Advance(p.LinGain, dt)
	c.ang.Advance(p.AngGain, dt)
	return fb
}

// ToolPass returns the wrench to apply to the tool body.
func (c *Coupler) ToolPass(avatar, tool Frame, p params.Params) Wrench {
	return c.spring.Wrench(avatar, tool, p.LinStiffness, p.AngStiffness)
}

// Gains reports the current ramped linear and angular gains.
func (c *Coupler) Gains() (lin, ang float64) {
	return c.lin.Current(), c.ang.Current()
}

// Reset restarts both ramps from zero.
func (c *Coupler) Reset() {
	c.lin.Reset()
	c.ang.Reset()
}
