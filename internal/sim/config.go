package sim

import (
	"fmt"
	"math"

	"github.com/san-kum/teleop/internal/params"
)

// Config holds the loop settings. PhysicsDt and WorkspaceRadius come from
// the physics section and are filled in by the caller.
type Config struct {
	// RetryBudget is the number of consecutive failed device cycles
	// tolerated before the run ends with ErrDeviceLost.
	RetryBudget int `yaml:"retry_budget"`
	// SmallForce is the commanded force, N, below which output engages.
	// Zero engages output from the first cycle.
	SmallForce float64 `yaml:"small_force"`
	// MaxCycles stops the run after that many cycles; zero runs until
	// stopped.
	MaxCycles uint64 `yaml:"max_cycles"`
	// Pace holds the loop to the device sample rate instead of running
	// flat out.
	Pace bool `yaml:"pace"`

	PhysicsDt       float64 `yaml:"-"`
	WorkspaceRadius float64 `yaml:"-"`
}

func DefaultConfig() Config {
	return Config{
		RetryBudget:     50,
		SmallForce:      0.2,
		PhysicsDt:       0.00025,
		WorkspaceRadius: 1.3,
	}
}

func (c Config) Validate() error {
	switch {
	case c.RetryBudget < 0:
		return fmt.Errorf("%w: retry budget must be non-negative, got %d", params.ErrInvalidConfiguration, c.RetryBudget)
	case c.SmallForce < 0 || math.IsNaN(c.SmallForce):
		return fmt.Errorf("%w: small force must be non-negative, got %v", params.ErrInvalidConfiguration, c.SmallForce)
	case !(c.PhysicsDt > 0) || math.IsInf(c.PhysicsDt, 0):
		return fmt.Errorf("%w: physics dt must be positive, got %v", params.ErrInvalidConfiguration, c.PhysicsDt)
	case !(c.WorkspaceRadius > 0) || math.IsInf(c.WorkspaceRadius, 0):
		return fmt.Errorf("%w: workspace radius must be positive, got %v", params.ErrInvalidConfiguration, c.WorkspaceRadius)
	}
	return nil
}
