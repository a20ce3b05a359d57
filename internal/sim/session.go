// Package sim runs the haptic control loop.
//
// A Session owns the device, the physics world and the controller state.
// One goroutine runs it; renderers read Telemetry snapshots and operators
// change parameters through the params.Store, neither of which takes a
// lock the loop also holds.
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/san-kum/teleop/internal/coupling"
	"github.com/san-kum/teleop/internal/device"
	"github.com/san-kum/teleop/internal/drift"
	"github.com/san-kum/teleop/internal/dynamo"
	"github.com/san-kum/teleop/internal/limiter"
	"github.com/san-kum/teleop/internal/log"
	"github.com/san-kum/teleop/internal/params"
	"github.com/san-kum/teleop/internal/physics"
	"github.com/san-kum/teleop/internal/vecmath"
)

const (
	// warnInterval bounds how often repeated transport errors are logged.
	warnInterval = 5 * time.Second
	// rotationTol is how far the virtual workspace may drift from SO(3)
	// before a cycle is rejected.
	rotationTol = 1e-6
)

type State int32

const (
	Stopped State = iota
	Running
	Stopping
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

type Option func(*Session)

func WithClock(c Clock) Option {
	return func(s *Session) { s.clock = c }
}

func WithMetrics(m ...Metric) Option {
	return func(s *Session) { s.metrics = append(s.metrics, m...) }
}

func WithObserver(o Observer) Option {
	return func(s *Session) { s.observers = append(s.observers, o) }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.log = l }
}

// ForceOutput is what the device was last told to render: force in the
// world frame, torque in the device-local frame.
type ForceOutput struct {
	Force, Torque mgl64.Vec3
}

type Session struct {
	id    uuid.UUID
	cfg   Config
	dev   device.Device
	world physics.Engine
	store *params.Store
	clock Clock
	log   *slog.Logger

	specs   device.Specs
	sampler *device.Sampler
	drift   *drift.Controller
	limiter limiter.Limiter

	metrics   []Metric
	observers []Observer

	state     atomic.Int32
	stop      chan struct{}
	stopOnce  sync.Once
	done      chan struct{}
	used      atomic.Bool
	runErr    error
	telemetry atomic.Pointer[Telemetry]

	// Owned by the goroutine running cycles.
	ds            drift.State
	avatarRot     mgl64.Mat3
	coupler       coupling.Coupler
	gate          forceGate
	last          ForceOutput
	cycle         uint64
	failures      int
	totalFailures uint64
	start         time.Time
	lastTick      time.Time
	lastWarn      time.Time
	suppressed    int
	rateStart     time.Time
	rateCount     int
	rateHz        float64
}

// New checks the configuration and wires a session. The parameter store
// gets the device's stiffness limit installed.
func New(cfg Config, dev device.Device, world physics.Engine, store *params.Store, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if dev == nil || world == nil || store == nil {
		return nil, fmt.Errorf("%w: device, world and parameter store are required", params.ErrInvalidConfiguration)
	}
	if err := store.Load().Validate(); err != nil {
		return nil, err
	}

	specs := dev.Specs()
	if !(specs.SampleRateHz > 0) {
		return nil, fmt.Errorf("%w: device sample rate must be positive, got %v", params.ErrInvalidConfiguration, specs.SampleRateHz)
	}

	s := &Session{
		id:      uuid.New(),
		cfg:     cfg,
		dev:     dev,
		world:   world,
		store:   store,
		clock:   RealClock{},
		specs:   specs,
		sampler: device.NewSampler(specs, cfg.WorkspaceRadius),
		drift:   drift.New(specs),
		limiter: limiter.Limiter{MaxAngularStiffness: specs.MaxAngularStiffness},
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = log.L()
	}
	s.log = s.log.With("session_id", s.id.String())

	store.SetStiffnessLimit(specs.MaxLinearStiffness / s.sampler.WorkspaceScale)
	s.reset()
	return s, nil
}

// reset puts the controller back to its start-of-session state.
func (s *Session) reset() {
	s.ds = drift.NewState(s.drift.Ref)
	s.avatarRot = mgl64.Ident3()
	s.coupler.Reset()
	s.gate = newForceGate(s.cfg.SmallForce)
	s.last = ForceOutput{}
	s.cycle = 0
	s.failures = 0
	s.start = time.Time{}
	s.lastTick = time.Time{}
	for _, m := range s.metrics {
		m.Reset()
	}
}

func (s *Session) ID() uuid.UUID { return s.id }

func (s *Session) State() State { return State(s.state.Load()) }

// Telemetry returns the latest snapshot, or the zero value before the
// first cycle.
func (s *Session) Telemetry() Telemetry {
	if t := s.telemetry.Load(); t != nil {
		return *t
	}
	return Telemetry{}
}

// Done is closed when Run returns.
func (s *Session) Done() <-chan struct{} { return s.done }

// Wait blocks until Run returns and reports its error.
func (s *Session) Wait() error {
	<-s.done
	return s.runErr
}

// Stop asks the session to finish its current cycle and stop. It returns
// immediately. A session stopped before Run starts exits without cycling.
func (s *Session) Stop() {
	s.state.CompareAndSwap(int32(Running), int32(Stopping))
	s.stopOnce.Do(func() { close(s.stop) })
}

// Run opens the device, runs cycles until Stop, ctx cancellation, the
// cycle limit or device loss, then zeroes the output and closes the
// device. A session runs once.
func (s *Session) Run(ctx context.Context) error {
	if !s.used.CompareAndSwap(false, true) {
		return ErrSessionUsed
	}
	defer close(s.done)

	s.runErr = s.run(ctx)
	return s.runErr
}

func (s *Session) run(ctx context.Context) error {
	if err := s.dev.Open(); err != nil {
		return fmt.Errorf("%w: %w: open: %w", ErrDeviceLost, device.ErrUnavailable, err)
	}
	s.state.Store(int32(Running))
	defer s.state.Store(int32(Stopped))
	defer s.release()

	s.seed()
	s.log.Info("session started",
		"device", s.specs.Name,
		"workspace_scale", s.sampler.WorkspaceScale,
		"retry_budget", s.cfg.RetryBudget)

	period := time.Duration(float64(time.Second) / s.specs.SampleRateHz)
	var runErr error
loop:
	for s.cfg.MaxCycles == 0 || s.cycle < s.cfg.MaxCycles {
		select {
		case <-ctx.Done():
			runErr = ctx.Err()
			break loop
		case <-s.stop:
			break loop
		default:
		}

		if err := s.Cycle(); err != nil {
			if errors.Is(err, ErrDeviceLost) {
				s.log.Error("device lost", "error", err, "cycle", s.cycle)
				runErr = err
				break loop
			}
			s.warn(err)
		}

		if s.cfg.Pace {
			s.pace(period)
		}
	}

	t := s.Telemetry()
	s.log.Info("session stopped",
		"cycles", s.cycle,
		"elapsed", t.Elapsed,
		"failures", s.totalFailures)
	return runErr
}

// seed starts the avatar and the tool at the handle's first pose so the
// spring is relaxed on the first cycle. The drift state is not advanced.
func (s *Session) seed() {
	pose, err := s.sampler.Sample(s.dev)
	if err != nil {
		return
	}
	out := s.drift.Step(pose, s.ds, s.store.Load())
	s.avatarRot = out.AvatarRot
	if b, ok := s.world.Tool().(interface {
		SetPose(mgl64.Vec3, mgl64.Mat3)
	}); ok {
		b.SetPose(pose.Proxy, out.AvatarRot)
	}
}

func (s *Session) release() {
	if err := s.dev.SendForce(mgl64.Vec3{}, mgl64.Vec3{}); err != nil {
		s.log.Warn("zeroing device output", "error", err)
	}
	if err := s.dev.Close(); err != nil {
		s.log.Warn("closing device", "error", err)
	}
}

func (s *Session) pace(period time.Duration) {
	target := s.start.Add(time.Duration(s.cycle) * period)
	if ahead := target.Sub(s.clock.Now()); ahead > time.Millisecond {
		s.clock.Sleep(ahead)
	}
}

func (s *Session) warn(err error) {
	now := s.clock.Now()
	if !s.lastWarn.IsZero() && now.Sub(s.lastWarn) < warnInterval {
		s.suppressed++
		return
	}
	s.log.Warn("cycle failed, holding output",
		"error", err,
		"consecutive", s.failures,
		"total", s.totalFailures,
		"suppressed", s.suppressed)
	s.lastWarn = now
	s.suppressed = 0
}

// Cycle runs one control cycle: sample, drift compensation, limits, both
// spring passes, one physics step, device output. On any failure the
// previous output is re-sent and no controller state is committed. The
// tool body is the exception: the physics step runs before the send, so a
// cycle whose send fails has still advanced the tool. Cycle must not be
// called concurrently with Run.
func (s *Session) Cycle() (err error) {
	now := s.clock.Now()
	if s.start.IsZero() {
		s.start, s.rateStart = now, now
	}
	dt := 0.0
	if !s.lastTick.IsZero() {
		dt = now.Sub(s.lastTick).Seconds()
	}
	s.lastTick = now

	defer func() {
		if r := recover(); r != nil {
			err = s.fail(now, fmt.Errorf("%w: %v", ErrCyclePanic, r))
		}
	}()

	p := s.store.Load()
	s.world.SetGravity(p.Gravity)

	pose, err := s.sampler.Sample(s.dev)
	if err != nil {
		return s.transportFailure(now, err)
	}

	out := s.drift.Step(pose, s.ds, p)
	if !vecmath.IsRotation(out.Next.VirtualWorkspace, rotationTol) {
		return s.fail(now, fmt.Errorf("%w: virtual workspace left SO(3)", dynamo.ErrInvalidState))
	}
	lim := s.limiter.Torques(out.AngleTheta, out.AvatarRot, out.RotCross, p)

	tool := s.world.Tool()
	toolFrame := coupling.Frame{Position: tool.Position(), Rotation: tool.Orientation()}

	coupler := s.coupler
	fb := coupler.FeedbackPass(coupling.Frame{Position: pose.Proxy, Rotation: s.avatarRot}, toolFrame, p, dt)
	wrench := coupler.ToolPass(coupling.Frame{Position: pose.Proxy, Rotation: out.AvatarRot}, toolFrame, p)

	tool.AddExternalForce(wrench.Force)
	tool.AddExternalTorque(wrench.Torque)
	if err := s.world.Step(s.cfg.PhysicsDt); err != nil {
		return s.fail(now, err)
	}

	force := fb.Force
	torque := fb.Torque.Add(out.DriftTorque).Add(lim.Sum())

	// The gate sees the force the spring would render at full gain, so the
	// ramp cannot open it while the tool is still far from the avatar.
	gate := s.gate
	engaged := gate.admit(p.LinGain * fb.Spring.Force.Len())
	clampedForce := vecmath.ClampLength(force, s.specs.MaxLinearForce)
	clampedTorque := vecmath.ClampLength(torque, s.specs.MaxAngularTorque)
	saturated := clampedForce != force || clampedTorque != torque
	force, torque = clampedForce, clampedTorque
	if !engaged {
		force, torque = mgl64.Vec3{}, mgl64.Vec3{}
	}

	if err := s.dev.SendForce(force, torque); err != nil {
		return s.transportFailure(now, fmt.Errorf("%w: send: %w", device.ErrUnavailable, err))
	}

	// Commit.
	s.ds = out.Next
	s.avatarRot = out.AvatarRot
	s.coupler = coupler
	s.gate = gate
	s.last = ForceOutput{Force: force, Torque: torque}
	s.failures = 0
	s.cycle++
	s.tickRate(now)

	t := &Telemetry{
		Cycle:         s.cycle,
		Elapsed:       now.Sub(s.start).Seconds(),
		Dt:            dt,
		RateHz:        s.rateHz,
		TiltDeg:       mgl64.RadToDeg(out.AngleTheta),
		AvatarDeg:     mgl64.RadToDeg(lim.AngleAvatar),
		Scale:         out.Scale,
		TiltVelocity:  out.TiltVelocity,
		DriftVelocity: out.DriftVelocity,
		CenterAxis:    out.Next.CenterAxis,
		AvatarRotVect: out.AvatarRotVect,
		DriftTorque:   out.DriftTorque,
		PhysicalLimit: lim.Physical,
		VirtualLimit:  lim.Virtual,
		LimitActive:   lim.Active(),
		LinGain:       fb.LinGain,
		AngGain:       fb.AngGain,
		SpringEnergy:  wrench.Energy(p.LinStiffness, p.AngStiffness),
		AvatarPos:     pose.Proxy,
		ToolPos:       tool.Position(),
		Force:         force,
		Torque:        torque,
		Saturated:     saturated && engaged,
		Engaged:       engaged,
		Gravity:       p.Gravity,
		TotalFailures: s.totalFailures,
	}
	for _, m := range s.metrics {
		m.Observe(t)
	}
	s.publish(t)
	return nil
}

// transportFailure handles a device read or write error. Past the retry
// budget the error wraps ErrDeviceLost.
func (s *Session) transportFailure(now time.Time, err error) error {
	s.failures++
	s.totalFailures++
	if s.failures > s.cfg.RetryBudget {
		s.hold(now)
		return fmt.Errorf("%w after %d consecutive failures: %w", ErrDeviceLost, s.failures, err)
	}
	return s.fail(now, err)
}

func (s *Session) fail(now time.Time, err error) error {
	s.hold(now)
	return &CycleError{Cycle: s.cycle, Time: now.Sub(s.start).Seconds(), Err: err}
}

// hold re-sends the last good output and republishes the last snapshot
// marked as held.
func (s *Session) hold(now time.Time) {
	if err := s.dev.SendForce(s.last.Force, s.last.Torque); err != nil {
		s.log.Debug("re-sending held output", "error", err, "cycle", s.cycle)
	}

	t := s.Telemetry()
	t.Elapsed = now.Sub(s.start).Seconds()
	t.Held = true
	t.ConsecutiveFailures = s.failures
	t.TotalFailures = s.totalFailures
	s.publish(&t)
}

func (s *Session) publish(t *Telemetry) {
	s.telemetry.Store(t)
	for _, o := range s.observers {
		o.OnCycle(t)
	}
}

func (s *Session) tickRate(now time.Time) {
	s.rateCount++
	if span := now.Sub(s.rateStart); span >= time.Second {
		s.rateHz = float64(s.rateCount) / span.Seconds()
		s.rateStart = now
		s.rateCount = 0
	}
}
