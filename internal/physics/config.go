package physics

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidConfig = errors.New("physics: invalid config")

// Config describes the world and its tool body.
type Config struct {
	Dt              float64 `yaml:"dt"`
	Integrator      string  `yaml:"integrator"`
	Mass            float64 `yaml:"mass"`
	Inertia         float64 `yaml:"inertia"`
	LinearDamping   float64 `yaml:"linear_damping"`
	AngularDamping  float64 `yaml:"angular_damping"`
	Gravity         float64 `yaml:"gravity"`
	WorkspaceRadius float64 `yaml:"workspace_radius"`
}

func DefaultConfig() Config {
	return Config{
		Dt:              0.00025,
		Integrator:      "euler",
		Mass:            0.01,
		Inertia:         1e-5,
		LinearDamping:   0.06,
		AngularDamping:  0.06,
		Gravity:         -9.81,
		WorkspaceRadius: 1.3,
	}
}

func (c Config) Validate() error {
	switch {
	case !(c.Dt > 0) || math.IsInf(c.Dt, 0):
		return fmt.Errorf("%w: dt must be positive, got %v", ErrInvalidConfig, c.Dt)
	case !(c.Mass > 0):
		return fmt.Errorf("%w: mass must be positive, got %v", ErrInvalidConfig, c.Mass)
	case !(c.Inertia > 0):
		return fmt.Errorf("%w: inertia must be positive, got %v", ErrInvalidConfig, c.Inertia)
	case c.LinearDamping < 0 || c.LinearDamping >= 1:
		return fmt.Errorf("%w: linear damping must be in [0,1), got %v", ErrInvalidConfig, c.LinearDamping)
	case c.AngularDamping < 0 || c.AngularDamping >= 1:
		return fmt.Errorf("%w: angular damping must be in [0,1), got %v", ErrInvalidConfig, c.AngularDamping)
	case math.IsNaN(c.Gravity) || math.IsInf(c.Gravity, 0):
		return fmt.Errorf("%w: gravity must be finite", ErrInvalidConfig)
	case !(c.WorkspaceRadius > 0):
		return fmt.Errorf("%w: workspace radius must be positive, got %v", ErrInvalidConfig, c.WorkspaceRadius)
	}
	return nil
}
