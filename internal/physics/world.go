package physics

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/teleop/internal/dynamo"
	"github.com/san-kum/teleop/internal/integrators"
	"github.com/san-kum/teleop/internal/vecmath"
)

// Engine is what the control loop drives.
type Engine interface {
	Tool() Body
	Step(dt float64) error
	SetGravity(on bool)
}

// World is a fixed-step world holding the tool body. Not safe for
// concurrent use; the control loop is its only caller.
type World struct {
	cfg        Config
	integrator dynamo.Integrator
	tool       *RigidBody
	gravityOn  bool

	t     float64
	steps int
}

func NewWorld(cfg Config) (*World, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	integ, err := integrators.New(cfg.Integrator)
	if err != nil {
		return nil, fmt.Errorf("physics: %w", err)
	}
	w := &World{
		cfg:        cfg,
		integrator: integ,
		tool:       newRigidBody(cfg.Mass, cfg.Inertia),
	}
	w.SetGravity(true)
	return w, nil
}

func (w *World) Tool() Body { return w.tool }

// Body returns the tool with its full API.
func (w *World) Body() *RigidBody { return w.tool }

func (w *World) Config() Config { return w.cfg }

func (w *World) Time() float64 { return w.t }

func (w *World) Steps() int { return w.steps }

func (w *World) SetGravity(on bool) {
	w.gravityOn = on
	if on {
		w.tool.gravity = mgl64.Vec3{0, 0, w.cfg.Gravity}
	} else {
		w.tool.gravity = mgl64.Vec3{}
	}
}

func (w *World) GravityOn() bool { return w.gravityOn }

// Step advances the world by dt and clears the accumulated force and
// torque. A step that produces a non-finite state is discarded and
// reported as dynamo.ErrInvalidState; the body keeps its previous state.
func (w *World) Step(dt float64) error {
	b := w.tool
	u := b.control()
	b.clearAccumulators()

	x := b.x.Clone()
	x.SetVec3At(iRot, [3]float64{})
	if err := dynamo.CheckDims(b, x, u); err != nil {
		return &dynamo.StepError{Step: w.steps, Time: w.t, State: x, Wrapped: err}
	}
	next := w.integrator.Step(b, x, u, w.t, dt)

	if !next.IsValid() {
		return &dynamo.StepError{Step: w.steps, Time: w.t, State: next, Wrapped: dynamo.ErrInvalidState}
	}

	phi := mgl64.Vec3(next.Vec3At(iRot))
	b.rot = vecmath.Orthonormalize(vecmath.AxisAngle(phi, phi.Len()).Mul3(b.rot))
	next.SetVec3At(iRot, [3]float64{})

	lin, ang := 1-w.cfg.LinearDamping, 1-w.cfg.AngularDamping
	for i := 0; i < 3; i++ {
		next[iVel+i] *= lin
		next[iAng+i] *= ang
	}

	b.x = next
	w.t += dt
	w.steps++
	return nil
}
