// Package params holds the operator-tunable control parameters and the
// lock-free store the control loop reads them from.
package params

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidConfiguration marks parameter sets the control loop must never run with.
var ErrInvalidConfiguration = errors.New("params: invalid configuration")

const (
	DefaultLinStiffness = 800.0
	DefaultAngStiffness = 30.0
	DefaultLinGain      = 0.2
	DefaultAngGain      = 0.03
	DefaultKd           = 0.1
	DefaultKv           = 0.1
	DefaultThetaMax     = 20.0
	DefaultThetaE       = 85.0
	DefaultKVirtual     = 1.0
)

// minSinThetaMax keeps the drift denominator sin(ThetaMax) away from zero.
const minSinThetaMax = 1e-6

// Params is one consistent snapshot of the control parameters. Angles are
// in degrees, as the operator enters them.
type Params struct {
	LinStiffness float64 `yaml:"lin_stiffness"`
	AngStiffness float64 `yaml:"ang_stiffness"`
	LinGain      float64 `yaml:"lin_gain"`
	AngGain      float64 `yaml:"ang_gain"`
	Kd           float64 `yaml:"kd"`
	Kv           float64 `yaml:"kv"`
	ThetaMax     float64 `yaml:"theta_max"`
	ThetaE       float64 `yaml:"theta_e"`
	KVirtual     float64 `yaml:"k_virtual"`
	Gravity      bool    `yaml:"gravity"`
}

func Defaults() Params {
	return Params{
		LinStiffness: DefaultLinStiffness,
		AngStiffness: DefaultAngStiffness,
		LinGain:      DefaultLinGain,
		AngGain:      DefaultAngGain,
		Kd:           DefaultKd,
		Kv:           DefaultKv,
		ThetaMax:     DefaultThetaMax,
		ThetaE:       DefaultThetaE,
		KVirtual:     DefaultKVirtual,
		Gravity:      true,
	}
}

// Validate rejects parameter sets that would make the drift formula
// singular or produce non-finite output.
func (p Params) Validate() error {
	fields := []struct {
		name string
		v    float64
	}{
		{"lin_stiffness", p.LinStiffness},
		{"ang_stiffness", p.AngStiffness},
		{"lin_gain", p.LinGain},
		{"ang_gain", p.AngGain},
		{"kd", p.Kd},
		{"kv", p.Kv},
		{"k_virtual", p.KVirtual},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) || f.v < 0 {
			return fmt.Errorf("%w: %s must be finite and non-negative, got %v", ErrInvalidConfiguration, f.name, f.v)
		}
	}

	if err := checkRange("theta_max", p.ThetaMax); err != nil {
		return err
	}
	if err := checkRange("theta_e", p.ThetaE); err != nil {
		return err
	}
	if math.Abs(math.Sin(p.ThetaMaxRad())) < minSinThetaMax {
		return fmt.Errorf("%w: sin(theta_max) is zero for %v deg", ErrInvalidConfiguration, p.ThetaMax)
	}
	return nil
}

func checkRange(name string, deg float64) error {
	if math.IsNaN(deg) || deg <= 0 || deg >= 180 {
		return fmt.Errorf("%w: %s must lie in (0, 180) deg, got %v", ErrInvalidConfiguration, name, deg)
	}
	return nil
}

func (p Params) ThetaMaxRad() float64 { return p.ThetaMax * math.Pi / 180 }
func (p Params) ThetaERad() float64   { return p.ThetaE * math.Pi / 180 }

// SinThetaMax is the drift and scale denominator.
func (p Params) SinThetaMax() float64 { return math.Sin(p.ThetaMaxRad()) }

// RangeRatio is ThetaE/ThetaMax, the angular gain at the device limit.
func (p Params) RangeRatio() float64 { return p.ThetaE / p.ThetaMax }

// ClampLinGain limits the linear haptic gain so the stiffness rendered on
// the device (gain · LinStiffness) does not exceed maxStiffness.
func (p Params) ClampLinGain(maxStiffness float64) Params {
	if maxStiffness > 0 && p.LinStiffness > 0 {
		p.LinGain = math.Min(p.LinGain, maxStiffness/p.LinStiffness)
	}
	return p
}
