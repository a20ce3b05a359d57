package sim

import "github.com/go-gl/mathgl/mgl64"

// Telemetry is a read-only snapshot of one cycle, published after the
// cycle completes. Renderers must not modify it.
type Telemetry struct {
	Cycle   uint64
	Elapsed float64 // s since the first cycle
	Dt      float64 // measured cycle interval, s
	RateHz  float64 // cycles per second over the last second

	TiltDeg       float64
	AvatarDeg     float64
	Scale         float64
	TiltVelocity  mgl64.Vec3
	DriftVelocity mgl64.Vec3
	CenterAxis    mgl64.Vec3
	AvatarRotVect mgl64.Vec3
	DriftTorque   mgl64.Vec3

	PhysicalLimit mgl64.Vec3
	VirtualLimit  mgl64.Vec3
	LimitActive   bool

	LinGain      float64
	AngGain      float64
	SpringEnergy float64
	AvatarPos    mgl64.Vec3
	ToolPos      mgl64.Vec3

	// Force and Torque are what was sent to the device.
	Force     mgl64.Vec3
	Torque    mgl64.Vec3
	Saturated bool
	Engaged   bool
	Gravity   bool

	// Held is set when this cycle re-sent the previous output.
	Held                bool
	ConsecutiveFailures int
	TotalFailures       uint64
}

// LimitTorque is the total workspace limit torque.
func (t *Telemetry) LimitTorque() mgl64.Vec3 {
	return t.PhysicalLimit.Add(t.VirtualLimit)
}

// Metric accumulates a figure over the committed cycles of a run.
type Metric interface {
	Name() string
	Observe(t *Telemetry)
	Value() float64
	Reset()
}

// Observer sees every published snapshot, held cycles included.
type Observer interface {
	OnCycle(t *Telemetry)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(t *Telemetry)

func (f ObserverFunc) OnCycle(t *Telemetry) { f(t) }
