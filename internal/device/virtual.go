package device

import (
	"errors"
	"math/rand"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/teleop/internal/vecmath"
)

var (
	errNotOpen  = errors.New("not open")
	errDropout  = errors.New("simulated transport dropout")
	errOpenFail = errors.New("simulated open failure")
)

// Motion drives the virtual handle. At returns the handle angular velocity
// (device frame, rad/s) and position (m) at time t.
type Motion interface {
	At(t float64) (angVel, pos mgl64.Vec3)
}

// Virtual is an in-process device. Each Poll advances it by one sample
// period, integrating the Motion if one is set.
type Virtual struct {
	mu sync.Mutex

	specs  Specs
	motion Motion
	open   bool
	failOp bool

	t      float64
	polls  int
	rot    mgl64.Mat3
	angVel mgl64.Vec3
	pos    mgl64.Vec3

	drops    [][2]int
	failRate float64
	rng      *rand.Rand

	force, torque mgl64.Vec3
	sent          int
}

type VirtualOption func(*Virtual)

// WithMotion attaches a scripted operator.
func WithMotion(m Motion) VirtualOption {
	return func(v *Virtual) { v.motion = m }
}

// WithDropout makes polls start..start+count-1 (zero-based) fail. It may
// be given more than once.
func WithDropout(start, count int) VirtualOption {
	return func(v *Virtual) { v.drops = append(v.drops, [2]int{start, count}) }
}

// WithFailureRate makes each poll fail with probability p.
func WithFailureRate(p float64, seed int64) VirtualOption {
	return func(v *Virtual) {
		v.failRate = p
		v.rng = rand.New(rand.NewSource(seed))
	}
}

// WithOpenFailure makes Open fail.
func WithOpenFailure() VirtualOption {
	return func(v *Virtual) { v.failOp = true }
}

func NewVirtual(specs Specs, opts ...VirtualOption) *Virtual {
	if specs.SampleRateHz <= 0 {
		specs.SampleRateHz = DefaultSpecs().SampleRateHz
	}
	v := &Virtual{
		specs: specs,
		rot:   mgl64.Ident3(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *Virtual) Open() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.failOp {
		return errOpenFail
	}
	v.open = true
	return nil
}

func (v *Virtual) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.open = false
	return nil
}

func (v *Virtual) IsOpen() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.open
}

// Poll latches the next sample.
func (v *Virtual) Poll() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.open {
		return errNotOpen
	}

	n := v.polls
	v.polls++

	dt := 1 / v.specs.SampleRateHz
	if v.motion != nil {
		v.angVel, v.pos = v.motion.At(v.t)
		v.rot = vecmath.Orthonormalize(v.rot.Mul3(vecmath.AxisAngle(v.angVel, v.angVel.Len()*dt)))
	}
	v.t += dt

	for _, d := range v.drops {
		if n >= d[0] && n < d[0]+d[1] {
			return errDropout
		}
	}
	if v.rng != nil && v.rng.Float64() < v.failRate {
		return errDropout
	}
	return nil
}

func (v *Virtual) Rotation() (mgl64.Mat3, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.open {
		return mgl64.Mat3{}, errNotOpen
	}
	return v.rot, nil
}

func (v *Virtual) AngularVelocity() (mgl64.Vec3, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.open {
		return mgl64.Vec3{}, errNotOpen
	}
	return v.angVel, nil
}

func (v *Virtual) Position() (mgl64.Vec3, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.open {
		return mgl64.Vec3{}, errNotOpen
	}
	return v.pos, nil
}

func (v *Virtual) SendForce(force, torque mgl64.Vec3) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.open {
		return errNotOpen
	}
	v.force, v.torque = force, torque
	v.sent++
	return nil
}

func (v *Virtual) Specs() Specs { return v.specs }

// SetRotation places the handle. Used without a Motion.
func (v *Virtual) SetRotation(r mgl64.Mat3) {
	v.mu.Lock()
	v.rot = r
	v.mu.Unlock()
}

func (v *Virtual) SetAngularVelocity(w mgl64.Vec3) {
	v.mu.Lock()
	v.angVel = w
	v.mu.Unlock()
}

func (v *Virtual) SetPosition(p mgl64.Vec3) {
	v.mu.Lock()
	v.pos = p
	v.mu.Unlock()
}

// LastOutput returns the most recent force and torque sent, and how many
// outputs have been sent in total.
func (v *Virtual) LastOutput() (force, torque mgl64.Vec3, sent int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.force, v.torque, v.sent
}

// Polls returns how many samples have been latched.
func (v *Virtual) Polls() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.polls
}
