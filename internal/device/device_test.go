package device

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/teleop/internal/vecmath"
)

type constantSpin struct {
	w   mgl64.Vec3
	pos mgl64.Vec3
}

func (c constantSpin) At(float64) (mgl64.Vec3, mgl64.Vec3) { return c.w, c.pos }

func TestSamplerMapsProxyIntoWorld(t *testing.T) {
	specs := DefaultSpecs()
	dev := NewVirtual(specs)
	if err := dev.Open(); err != nil {
		t.Fatalf("open: %v", err)
	}
	dev.SetPosition(mgl64.Vec3{0.01, -0.02, 0.03})
	dev.SetAngularVelocity(mgl64.Vec3{0, 0.5, 0})

	s := NewSampler(specs, 1.3)
	pose, err := s.Sample(dev)
	if err != nil {
		t.Fatalf("sample: %v", err)
	}

	scale := 1.3 / specs.WorkspaceRadius
	if math.Abs(s.WorkspaceScale-scale) > 1e-12 {
		t.Errorf("expected scale %f, got %f", scale, s.WorkspaceScale)
	}
	want := mgl64.Vec3{0.01, -0.02, 0.03}.Mul(scale)
	if !pose.Proxy.ApproxEqualThreshold(want, 1e-12) {
		t.Errorf("expected proxy %v, got %v", want, pose.Proxy)
	}
	if pose.AngularVelocity != (mgl64.Vec3{0, 0.5, 0}) {
		t.Errorf("unexpected angular velocity %v", pose.AngularVelocity)
	}
	if !pose.Rotation.ApproxEqualThreshold(mgl64.Ident3(), 1e-12) {
		t.Errorf("expected identity rotation, got %v", pose.Rotation)
	}
}

func TestSamplerUnitScaleWithoutRadius(t *testing.T) {
	s := NewSampler(Specs{}, 1.3)
	if s.WorkspaceScale != 1 {
		t.Errorf("expected unit scale, got %f", s.WorkspaceScale)
	}
}

func TestSamplerWrapsTransportErrors(t *testing.T) {
	dev := NewVirtual(DefaultSpecs(), WithDropout(1, 2))
	if err := dev.Open(); err != nil {
		t.Fatalf("open: %v", err)
	}
	s := NewSampler(dev.Specs(), 1.3)

	want := []bool{true, false, false, true}
	for i, ok := range want {
		_, err := s.Sample(dev)
		if ok && err != nil {
			t.Errorf("poll %d: unexpected error %v", i, err)
		}
		if !ok {
			if err == nil {
				t.Errorf("poll %d: expected dropout", i)
			} else if !errors.Is(err, ErrUnavailable) {
				t.Errorf("poll %d: expected ErrUnavailable, got %v", i, err)
			}
		}
	}
}

func TestSampleClosedDevice(t *testing.T) {
	dev := NewVirtual(DefaultSpecs())
	_, err := NewSampler(dev.Specs(), 1).Sample(dev)
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable for closed device, got %v", err)
	}
}

func TestOpenFailure(t *testing.T) {
	dev := NewVirtual(DefaultSpecs(), WithOpenFailure())
	if err := dev.Open(); err == nil {
		t.Error("expected open failure")
	}
	if dev.IsOpen() {
		t.Error("device should stay closed")
	}
}

func TestVirtualIntegratesMotion(t *testing.T) {
	specs := DefaultSpecs()
	w := mgl64.Vec3{0.2, 0, 0}
	dev := NewVirtual(specs, WithMotion(constantSpin{w: w}))
	if err := dev.Open(); err != nil {
		t.Fatalf("open: %v", err)
	}

	n := int(specs.SampleRateHz)
	for i := 0; i < n; i++ {
		if err := dev.Poll(); err != nil {
			t.Fatalf("poll %d: %v", i, err)
		}
	}

	rot, _ := dev.Rotation()
	axis, angle := vecmath.ToAxisAngle(rot)
	if math.Abs(angle-0.2) > 1e-9 {
		t.Errorf("expected 0.2 rad after one second, got %f", angle)
	}
	if math.Abs(axis[0]-1) > 1e-9 {
		t.Errorf("expected rotation about x, got %v", axis)
	}
	if !vecmath.IsRotation(rot, 1e-9) {
		t.Error("virtual rotation left SO(3)")
	}
	if dev.Polls() != n {
		t.Errorf("expected %d polls, got %d", n, dev.Polls())
	}
}

func TestVirtualFailureRateIsSeeded(t *testing.T) {
	count := func() int {
		dev := NewVirtual(DefaultSpecs(), WithFailureRate(0.3, 7))
		_ = dev.Open()
		fails := 0
		for i := 0; i < 1000; i++ {
			if dev.Poll() != nil {
				fails++
			}
		}
		return fails
	}
	a, b := count(), count()
	if a != b {
		t.Errorf("expected deterministic failures, got %d and %d", a, b)
	}
	if a < 200 || a > 400 {
		t.Errorf("expected roughly 300 failures, got %d", a)
	}
}

func TestSendForceRecordsOutput(t *testing.T) {
	dev := NewVirtual(DefaultSpecs())
	if err := dev.SendForce(mgl64.Vec3{1, 0, 0}, mgl64.Vec3{}); err == nil {
		t.Error("expected error sending to closed device")
	}
	_ = dev.Open()
	if err := dev.SendForce(mgl64.Vec3{1, 2, 3}, mgl64.Vec3{0, 0, 0.1}); err != nil {
		t.Fatalf("send: %v", err)
	}
	f, tq, n := dev.LastOutput()
	if f != (mgl64.Vec3{1, 2, 3}) || tq != (mgl64.Vec3{0, 0, 0.1}) || n != 1 {
		t.Errorf("unexpected output %v %v %d", f, tq, n)
	}
}
