// Package device defines the haptic device interface the control loop talks
// to, the per-cycle sampler, and an in-process virtual device.
package device

import (
	"errors"

	"github.com/go-gl/mathgl/mgl64"
)

// ErrUnavailable is returned (wrapped) for any open, read or write failure.
// It is recoverable: the loop holds its previous output and retries.
var ErrUnavailable = errors.New("device: unavailable")

// Device is a 6-DoF haptic interface with force and torque output.
type Device interface {
	Open() error
	Close() error

	// Rotation returns the handle orientation in the device base frame.
	Rotation() (mgl64.Mat3, error)
	// AngularVelocity returns the handle angular velocity in rad/s.
	AngularVelocity() (mgl64.Vec3, error)
	// Position returns the handle position in metres, device frame.
	Position() (mgl64.Vec3, error)

	SendForce(force, torque mgl64.Vec3) error
	Specs() Specs
}

// Poller is implemented by devices that latch a new sample before the
// getters are called, once per cycle.
type Poller interface {
	Poll() error
}

// Specs are the device capabilities the controller scales against.
type Specs struct {
	Name                string  `yaml:"name"`
	MaxLinearForce      float64 `yaml:"max_linear_force"`      // N
	MaxAngularTorque    float64 `yaml:"max_angular_torque"`    // N·m
	MaxLinearStiffness  float64 `yaml:"max_linear_stiffness"`  // N/m
	MaxAngularStiffness float64 `yaml:"max_angular_stiffness"` // N·m/rad
	WorkspaceRadius     float64 `yaml:"workspace_radius"`      // m
	SampleRateHz        float64 `yaml:"sample_rate_hz"`
}

// DefaultSpecs describes a 7-DoF desktop device of the Omega.7 class.
func DefaultSpecs() Specs {
	return Specs{
		Name:                "omega.7",
		MaxLinearForce:      12.0,
		MaxAngularTorque:    0.4,
		MaxLinearStiffness:  14500.0,
		MaxAngularStiffness: 1.5,
		WorkspaceRadius:     0.075,
		SampleRateHz:        4000.0,
	}
}

// Pose is one sample of the device handle.
type Pose struct {
	Rotation        mgl64.Mat3
	AngularVelocity mgl64.Vec3
	// Position is the raw handle position in the device frame.
	Position mgl64.Vec3
	// Proxy is Position mapped into the world workspace.
	Proxy mgl64.Vec3
}
