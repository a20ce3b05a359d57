package sim_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/teleop/internal/device"
	"github.com/san-kum/teleop/internal/params"
	"github.com/san-kum/teleop/internal/physics"
	"github.com/san-kum/teleop/internal/sim"
	"github.com/san-kum/teleop/internal/vecmath"
)

// flakyWorld panics inside Step while armed.
type flakyWorld struct {
	*physics.World
	armed bool
}

func (w *flakyWorld) Step(dt float64) error {
	if w.armed {
		panic("solver blew up")
	}
	return w.World.Step(dt)
}

// sendFailDevice rejects every output while armed.
type sendFailDevice struct {
	*device.Virtual
	armed bool
}

func (d *sendFailDevice) SendForce(force, torque mgl64.Vec3) error {
	if d.armed {
		return errors.New("usb write stalled")
	}
	return d.Virtual.SendForce(force, torque)
}

type fixture struct {
	cfg   sim.Config
	dev   *device.Virtual
	world *physics.World
	store *params.Store
	clock *sim.TickingClock
}

func newFixture(p params.Params, opts ...device.VirtualOption) *fixture {
	world, err := physics.NewWorld(physics.DefaultConfig())
	Expect(err).NotTo(HaveOccurred())
	store, err := params.NewStore(p)
	Expect(err).NotTo(HaveOccurred())

	return &fixture{
		cfg:   sim.DefaultConfig(),
		dev:   device.NewVirtual(device.DefaultSpecs(), opts...),
		world: world,
		store: store,
		clock: sim.NewTickingClock(time.Unix(0, 0), 250*time.Microsecond),
	}
}

func (f *fixture) session(opts ...sim.Option) *sim.Session {
	opts = append([]sim.Option{sim.WithClock(f.clock)}, opts...)
	s, err := sim.New(f.cfg, f.dev, f.world, f.store, opts...)
	Expect(err).NotTo(HaveOccurred())
	return s
}

func noGravity() params.Params {
	p := params.Defaults()
	p.Gravity = false
	return p
}

func cycles(s *sim.Session, n int) {
	for i := 0; i < n; i++ {
		Expect(s.Cycle()).To(Succeed())
	}
}

var _ = Describe("Session", func() {
	Describe("construction", func() {
		It("rejects invalid loop configuration", func() {
			f := newFixture(params.Defaults())
			f.cfg.RetryBudget = -1
			_, err := sim.New(f.cfg, f.dev, f.world, f.store)
			Expect(errors.Is(err, params.ErrInvalidConfiguration)).To(BeTrue())
		})

		It("rejects a missing parameter store", func() {
			f := newFixture(params.Defaults())
			_, err := sim.New(f.cfg, f.dev, f.world, nil)
			Expect(errors.Is(err, params.ErrInvalidConfiguration)).To(BeTrue())
		})

		It("installs the device stiffness limit on the store", func() {
			p := params.Defaults()
			p.LinGain = 5
			f := newFixture(p)
			f.session()

			specs := device.DefaultSpecs()
			scale := f.cfg.WorkspaceRadius / specs.WorkspaceRadius
			Expect(f.store.Load().LinGain).To(BeNumerically("~", specs.MaxLinearStiffness/scale/p.LinStiffness, 1e-9))
		})

		It("starts stopped with a unique id", func() {
			f := newFixture(params.Defaults())
			a, b := f.session(), f.session()
			Expect(a.State()).To(Equal(sim.Stopped))
			Expect(a.ID()).NotTo(Equal(b.ID()))
			Expect(a.Telemetry().Cycle).To(BeZero())
		})
	})

	Describe("a handle at rest", func() {
		It("renders no force, no torque and no limit torque", func() {
			f := newFixture(noGravity())
			Expect(f.dev.Open()).To(Succeed())
			s := f.session()

			cycles(s, 2000)

			t := s.Telemetry()
			Expect(t.Cycle).To(BeEquivalentTo(2000))
			Expect(t.Force.Len()).To(BeZero())
			Expect(t.Torque.Len()).To(BeZero())
			Expect(t.LimitTorque().Len()).To(BeZero())
			Expect(t.DriftTorque.Len()).To(BeZero())
			Expect(t.LimitActive).To(BeFalse())

			force, torque, sent := f.dev.LastOutput()
			Expect(force.Len()).To(BeZero())
			Expect(torque.Len()).To(BeZero())
			Expect(sent).To(Equal(2000))
		})
	})

	Describe("force gate", func() {
		It("stays closed until the full-gain spring force drops below the threshold", func() {
			f := newFixture(noGravity())
			Expect(f.dev.Open()).To(Succeed())
			f.dev.SetPosition(mgl64.Vec3{0.05, 0, 0})
			s := f.session()

			Expect(s.Cycle()).To(Succeed())
			Expect(s.Telemetry().Engaged).To(BeFalse(), "tool starts far from the avatar")

			engagedAt := uint64(0)
			for i := 0; i < 20000 && engagedAt == 0; i++ {
				Expect(s.Cycle()).To(Succeed())
				t := s.Telemetry()
				if t.Engaged {
					engagedAt = t.Cycle
					break
				}
				Expect(t.Force.Len()).To(BeZero(), "cycle %d", t.Cycle)
				Expect(t.Torque.Len()).To(BeZero(), "cycle %d", t.Cycle)
				force, torque, _ := f.dev.LastOutput()
				Expect(force.Len()).To(BeZero())
				Expect(torque.Len()).To(BeZero())
			}
			Expect(engagedAt).To(BeNumerically(">", 1))

			for i := 0; i < 200; i++ {
				Expect(s.Cycle()).To(Succeed())
				Expect(s.Telemetry().Engaged).To(BeTrue())
			}
		})

		It("opens on the first cycle when the tool sits on the avatar", func() {
			f := newFixture(noGravity())
			Expect(f.dev.Open()).To(Succeed())
			s := f.session()

			cycles(s, 1)
			Expect(s.Telemetry().Engaged).To(BeTrue())
		})
	})

	Describe("seeding", func() {
		It("starts the avatar and the tool at the handle's orientation", func() {
			f := newFixture(noGravity())
			f.dev.SetRotation(vecmath.AxisAngle(vecmath.UnitX, 0.2))
			f.dev.SetPosition(mgl64.Vec3{0.01, -0.02, 0.03})
			f.cfg.MaxCycles = 1
			s := f.session()

			Expect(s.Run(context.Background())).To(Succeed())
			t := s.Telemetry()
			Expect(t.SpringEnergy).To(BeNumerically("<", 1e-12))
			Expect(t.Engaged).To(BeTrue())
			Expect(t.Torque.Len()).To(BeNumerically("<", 1e-9))
			Expect(vecmath.IsRotation(f.world.Tool().Orientation(), 1e-9)).To(BeTrue())
		})
	})

	Describe("gain ramp", func() {
		It("reaches the target after ceil(1/(0.1*dt)) advances and stays there", func() {
			f := newFixture(noGravity())
			f.clock = sim.NewTickingClock(time.Unix(0, 0), 300*time.Millisecond)
			Expect(f.dev.Open()).To(Succeed())
			s := f.session()
			target := f.store.Load().LinGain

			// The first cycle has no measured interval, and each cycle reports
			// the gain it used before advancing, so cycle k shows the gain
			// after k-2 effective advances.
			cycles(s, 35)
			Expect(s.Telemetry().LinGain).To(BeNumerically("<", target))

			cycles(s, 1)
			Expect(s.Telemetry().LinGain).To(Equal(target))

			cycles(s, 50)
			Expect(s.Telemetry().LinGain).To(Equal(target))
			Expect(s.Telemetry().AngGain).To(Equal(f.store.Load().AngGain))
		})
	})

	Describe("device failures", func() {
		It("holds the previous output through a dropout", func() {
			f := newFixture(noGravity(), device.WithDropout(100, 3))
			Expect(f.dev.Open()).To(Succeed())
			f.dev.SetRotation(vecmath.AxisAngle(vecmath.UnitX, 0.2))
			f.dev.SetAngularVelocity(mgl64.Vec3{0.5, 0, 0})
			s := f.session()

			cycles(s, 100)
			before, beforeTorque, sent := f.dev.LastOutput()
			Expect(beforeTorque.Len()).To(BeNumerically(">", 0))
			committed := s.Telemetry().Cycle

			for i := 0; i < 3; i++ {
				err := s.Cycle()
				var ce *sim.CycleError
				Expect(errors.As(err, &ce)).To(BeTrue())
				Expect(errors.Is(err, device.ErrUnavailable)).To(BeTrue())

				force, torque, n := f.dev.LastOutput()
				Expect(force).To(Equal(before))
				Expect(torque).To(Equal(beforeTorque))
				Expect(n).To(Equal(sent + i + 1))

				t := s.Telemetry()
				Expect(t.Held).To(BeTrue())
				Expect(t.ConsecutiveFailures).To(Equal(i + 1))
				Expect(t.Cycle).To(Equal(committed))
			}

			Expect(s.Cycle()).To(Succeed())
			t := s.Telemetry()
			Expect(t.Held).To(BeFalse())
			Expect(t.TotalFailures).To(BeEquivalentTo(3))
			Expect(t.Cycle).To(Equal(committed + 1))
		})

		It("stops the run once the retry budget is spent", func() {
			f := newFixture(noGravity(), device.WithDropout(10, 1_000_000))
			f.cfg.RetryBudget = 3
			s := f.session()

			err := s.Run(context.Background())
			Expect(errors.Is(err, sim.ErrDeviceLost)).To(BeTrue())
			Expect(errors.Is(err, device.ErrUnavailable)).To(BeTrue())
			Expect(s.Done()).To(BeClosed())
			Expect(s.Wait()).To(MatchError(err))
			Expect(s.State()).To(Equal(sim.Stopped))
			Expect(f.dev.IsOpen()).To(BeFalse())
		})

		It("reports an open failure as device loss", func() {
			f := newFixture(noGravity(), device.WithOpenFailure())
			s := f.session()

			err := s.Run(context.Background())
			Expect(errors.Is(err, sim.ErrDeviceLost)).To(BeTrue())
			Expect(errors.Is(err, device.ErrUnavailable)).To(BeTrue())
			Expect(s.Done()).To(BeClosed())
		})
	})

	Describe("output failures", func() {
		It("logs the failed re-send and still advances the tool", func() {
			f := newFixture(noGravity())
			dev := &sendFailDevice{Virtual: f.dev}
			Expect(dev.Open()).To(Succeed())

			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
			s, err := sim.New(f.cfg, dev, f.world, f.store, sim.WithClock(f.clock), sim.WithLogger(logger))
			Expect(err).NotTo(HaveOccurred())

			cycles(s, 5)
			steps := f.world.Steps()

			dev.armed = true
			err = s.Cycle()
			Expect(errors.Is(err, device.ErrUnavailable)).To(BeTrue())
			Expect(s.Telemetry().Held).To(BeTrue())
			Expect(s.Telemetry().Cycle).To(BeEquivalentTo(5))
			Expect(f.world.Steps()).To(Equal(steps + 1))
			Expect(buf.String()).To(ContainSubstring("re-sending held output"))
			Expect(buf.String()).To(ContainSubstring("usb write stalled"))
		})
	})

	Describe("panics", func() {
		It("recovers at the cycle boundary without committing", func() {
			f := newFixture(noGravity())
			Expect(f.dev.Open()).To(Succeed())
			world := &flakyWorld{World: f.world}
			s, err := sim.New(f.cfg, f.dev, world, f.store, sim.WithClock(f.clock))
			Expect(err).NotTo(HaveOccurred())

			cycles(s, 10)
			_, _, sent := f.dev.LastOutput()

			world.armed = true
			err = s.Cycle()
			Expect(errors.Is(err, sim.ErrCyclePanic)).To(BeTrue())
			Expect(s.Telemetry().Cycle).To(BeEquivalentTo(10))
			Expect(s.Telemetry().Held).To(BeTrue())
			_, _, n := f.dev.LastOutput()
			Expect(n).To(Equal(sent + 1))

			world.armed = false
			Expect(s.Cycle()).To(Succeed())
			Expect(s.Telemetry().Cycle).To(BeEquivalentTo(11))
		})
	})

	Describe("output shaping", func() {
		It("saturates torque at the device maximum", func() {
			p := noGravity()
			p.KVirtual = 1000
			f := newFixture(p)
			Expect(f.dev.Open()).To(Succeed())
			f.dev.SetRotation(vecmath.AxisAngle(vecmath.UnitX, p.ThetaMaxRad()+0.2))
			s := f.session()

			cycles(s, 5)
			t := s.Telemetry()
			Expect(t.LimitActive).To(BeTrue())
			Expect(t.Saturated).To(BeTrue())
			Expect(t.Torque.Len()).To(BeNumerically("~", device.DefaultSpecs().MaxAngularTorque, 1e-12))
		})

		It("follows gravity toggles from the store", func() {
			f := newFixture(params.Defaults())
			Expect(f.dev.Open()).To(Succeed())
			s := f.session()

			cycles(s, 1)
			Expect(s.Telemetry().Gravity).To(BeTrue())
			Expect(f.world.GravityOn()).To(BeTrue())

			_, err := f.store.Apply(params.GravityOff)
			Expect(err).NotTo(HaveOccurred())
			cycles(s, 1)
			Expect(s.Telemetry().Gravity).To(BeFalse())
			Expect(f.world.GravityOn()).To(BeFalse())
		})
	})

	Describe("lifecycle", func() {
		It("runs a fixed number of cycles and releases the device", func() {
			f := newFixture(params.Defaults())
			f.cfg.MaxCycles = 500
			s := f.session()

			Expect(s.Run(context.Background())).To(Succeed())
			Expect(s.Telemetry().Cycle).To(BeEquivalentTo(500))
			Expect(f.dev.IsOpen()).To(BeFalse())

			force, torque, _ := f.dev.LastOutput()
			Expect(force).To(Equal(mgl64.Vec3{}))
			Expect(torque).To(Equal(mgl64.Vec3{}))
		})

		It("runs only once", func() {
			f := newFixture(params.Defaults())
			f.cfg.MaxCycles = 1
			s := f.session()
			Expect(s.Run(context.Background())).To(Succeed())
			Expect(s.Run(context.Background())).To(MatchError(sim.ErrSessionUsed))
		})

		It("stops at a cycle boundary", func() {
			f := newFixture(params.Defaults())
			var s *sim.Session
			s = f.session(sim.WithObserver(sim.ObserverFunc(func(t *sim.Telemetry) {
				if t.Cycle == 10 {
					s.Stop()
					Expect(s.State()).To(Equal(sim.Stopping))
				}
			})))

			Expect(s.Run(context.Background())).To(Succeed())
			Expect(s.Telemetry().Cycle).To(BeEquivalentTo(10))
			Expect(s.State()).To(Equal(sim.Stopped))
		})

		It("stops when asked from another goroutine", func() {
			f := newFixture(params.Defaults())
			s := f.session()

			go func() {
				defer GinkgoRecover()
				_ = s.Run(context.Background())
			}()

			Eventually(func() uint64 { return s.Telemetry().Cycle }).Should(BeNumerically(">", 100))
			Expect(s.State()).To(Equal(sim.Running))
			s.Stop()
			Eventually(s.Done()).Should(BeClosed())
			Expect(s.Wait()).To(Succeed())
		})

		It("returns the context error on cancellation", func() {
			f := newFixture(params.Defaults())
			s := f.session()
			ctx, cancel := context.WithCancel(context.Background())

			go func() {
				defer GinkgoRecover()
				Eventually(func() uint64 { return s.Telemetry().Cycle }).Should(BeNumerically(">", 10))
				cancel()
			}()

			Expect(s.Run(ctx)).To(MatchError(context.Canceled))
		})

		It("exits without cycling when stopped before Run", func() {
			f := newFixture(params.Defaults())
			s := f.session()
			s.Stop()
			Expect(s.Run(context.Background())).To(Succeed())
			Expect(s.Telemetry().Cycle).To(BeZero())
		})
	})

	Describe("parameter updates", func() {
		It("never sees a torn parameter set while running", func() {
			f := newFixture(params.Defaults())
			seen := make(chan bool, 1)
			var s *sim.Session
			s = f.session(sim.WithObserver(sim.ObserverFunc(func(t *sim.Telemetry) {
				if !t.Gravity {
					select {
					case seen <- true:
					default:
					}
					s.Stop()
				}
			})))

			go func() {
				defer GinkgoRecover()
				_ = s.Run(context.Background())
			}()

			Eventually(func() uint64 { return s.Telemetry().Cycle }).Should(BeNumerically(">", 10))
			_, err := f.store.Apply(params.GravityOff)
			Expect(err).NotTo(HaveOccurred())

			Eventually(seen).Should(Receive())
			Eventually(s.Done()).Should(BeClosed())
		})
	})
})
