package coupling

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/teleop/internal/params"
	"github.com/san-kum/teleop/internal/vecmath"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(pos mgl64.Vec3, rot mgl64.Mat3) Frame { return Frame{Position: pos, Rotation: rot} }

func TestSpringAtRestIsZero(t *testing.T) {
	f := at(mgl64.Vec3{0.1, 0.2, 0.3}, vecmath.AxisAngle(mgl64.Vec3{1, 1, 0}, 0.7))
	w := Spring{}.Wrench(f, f, 800, 30)

	assert.Equal(t, mgl64.Vec3{}, w.Force)
	assert.InDelta(t, 0, w.Torque.Len(), 1e-12)
	assert.InDelta(t, 0, w.Energy(800, 30), 1e-12)
}

func TestSpringForcePullsToolToAvatar(t *testing.T) {
	tool := at(mgl64.Vec3{}, mgl64.Ident3())
	avatar := at(mgl64.Vec3{0.01, 0, -0.02}, mgl64.Ident3())
	w := Spring{}.Wrench(avatar, tool, 800, 30)

	assert.True(t, w.Force.ApproxEqualThreshold(mgl64.Vec3{8, 0, -16}, 1e-12))
	assert.InDelta(t, 0.5*800*(0.0001+0.0004), w.Energy(800, 30), 1e-12)
}

func TestSpringTorqueIsInWorldFrame(t *testing.T) {
	// Tool yawed 90 degrees; avatar a further 0.1 rad about the tool's own x,
	// which is world y.
	toolRot := vecmath.AxisAngle(vecmath.UnitZ, math.Pi/2)
	avatarRot := toolRot.Mul3(vecmath.AxisAngle(vecmath.UnitX, 0.1))

	w := Spring{}.Wrench(at(mgl64.Vec3{}, avatarRot), at(mgl64.Vec3{}, toolRot), 800, 30)

	assert.InDelta(t, 0.1, w.Twist, 1e-12)
	assert.InDelta(t, 0, w.Torque[0], 1e-9, "got %v", w.Torque)
	assert.InDelta(t, 3, w.Torque[1], 1e-9, "got %v", w.Torque)
	assert.InDelta(t, 0, w.Torque[2], 1e-9, "got %v", w.Torque)
}

func TestRampReachesTargetAndStays(t *testing.T) {
	for _, dt := range []float64{0.3, 0.07, 0.013} {
		target := 0.2
		n := int(math.Ceil(1 / (rampRate * dt)))

		var r Ramp
		for i := 0; i < n-1; i++ {
			r.Advance(target, dt)
		}
		assert.Less(t, r.Current(), target, "dt %v: reached target early", dt)

		r.Advance(target, dt)
		assert.Equal(t, target, r.Current(), "dt %v", dt)

		for i := 0; i < 100; i++ {
			r.Advance(target, dt)
		}
		assert.Equal(t, target, r.Current(), "dt %v: left target", dt)
	}
}

func TestRampLoweredTargetClampsImmediately(t *testing.T) {
	var r Ramp
	for i := 0; i < 100; i++ {
		r.Advance(1, 0.5)
	}
	require.Equal(t, 1.0, r.Current())

	r.Advance(0.4, 0.5)
	assert.Equal(t, 0.4, r.Current())

	r.Reset()
	assert.Equal(t, 0.0, r.Current())
}

func TestRampIgnoresNegativeDt(t *testing.T) {
	var r Ramp
	r.Advance(1, -3)
	assert.Equal(t, 0.0, r.Current())
}

func TestFeedbackPassUsesGainsBeforeAdvancing(t *testing.T) {
	p := params.Defaults()
	c := &Coupler{}
	tool := at(mgl64.Vec3{}, mgl64.Ident3())
	avatar := at(mgl64.Vec3{0.01, 0, 0}, vecmath.AxisAngle(vecmath.UnitZ, 0.05))

	first := c.FeedbackPass(avatar, tool, p, 0.3)
	assert.Equal(t, mgl64.Vec3{}, first.Force, "ramps start at zero")
	assert.Equal(t, mgl64.Vec3{}, first.Torque)

	lin, ang := c.Gains()
	assert.InDelta(t, 0.03*p.LinGain, lin, 1e-15)
	assert.InDelta(t, 0.03*p.AngGain, ang, 1e-15)

	second := c.FeedbackPass(avatar, tool, p, 0.3)
	wantForce := second.Spring.Force.Mul(-lin)
	assert.True(t, second.Force.ApproxEqualThreshold(wantForce, 1e-12))
	assert.True(t, second.Torque.ApproxEqualThreshold(second.Spring.Torque.Mul(-ang), 1e-12))
	assert.Equal(t, lin, second.LinGain)
}

func TestToolPassMatchesSpring(t *testing.T) {
	p := params.Defaults()
	c := &Coupler{}
	tool := at(mgl64.Vec3{0, 0, 0.1}, mgl64.Ident3())
	avatar := at(mgl64.Vec3{0.02, 0, 0.1}, vecmath.AxisAngle(vecmath.UnitX, 0.2))

	w := c.ToolPass(avatar, tool, p)
	assert.True(t, w.Force.ApproxEqualThreshold(mgl64.Vec3{0.02 * p.LinStiffness, 0, 0}, 1e-9))
	assert.True(t, w.Torque.ApproxEqualThreshold(mgl64.Vec3{0.2 * p.AngStiffness, 0, 0}, 1e-9))

	lin, ang := c.Gains()
	assert.Zero(t, lin, "tool pass must not advance the ramps")
	assert.Zero(t, ang)
}

func TestCouplerResetRestartsRamps(t *testing.T) {
	p := params.Defaults()
	var c Coupler
	f := at(mgl64.Vec3{}, mgl64.Ident3())
	for i := 0; i < 25; i++ {
		c.FeedbackPass(f, f, p, 0.5)
	}
	lin, ang := c.Gains()
	require.Equal(t, p.LinGain, lin)
	require.Equal(t, p.AngGain, ang)

	c.Reset()
	lin, ang = c.Gains()
	assert.Zero(t, lin)
	assert.Zero(t, ang)

	fb := c.FeedbackPass(f, at(mgl64.Vec3{0.01, 0, 0}, mgl64.Ident3()), p, 0.5)
	assert.Equal(t, mgl64.Vec3{}, fb.Force, "first pass after reset renders nothing")
}
