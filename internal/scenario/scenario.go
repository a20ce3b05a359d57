// Package scenario scripts the operator's hand for the virtual device.
//
// A scenario is a sequence of timed steps loaded from YAML. Each step
// prescribes the handle's angular velocity and position; positions are
// continuous across steps. A scenario can also inject transport failures.
package scenario

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/teleop/internal/device"
	"github.com/san-kum/teleop/internal/vecmath"
)

var ErrInvalidScenario = errors.New("scenario: invalid")

type Kind string

const (
	// Hold keeps the handle still.
	Hold Kind = "hold"
	// Rotate spins the handle at a constant rate about Axis.
	Rotate Kind = "rotate"
	// Wave swings the handle about Axis: angle = Amplitude·sin(2π·Frequency·τ).
	Wave Kind = "wave"
	// Move slides the handle in a straight line to Position.
	Move Kind = "move"
	// Circle traces a horizontal circle of Radius, starting where the
	// handle is.
	Circle Kind = "circle"
)

type Step struct {
	Kind      Kind       `yaml:"kind"`
	Duration  float64    `yaml:"duration"`
	Axis      mgl64.Vec3 `yaml:"axis,omitempty,flow"`
	Rate      float64    `yaml:"rate,omitempty"`      // rad/s
	Amplitude float64    `yaml:"amplitude,omitempty"` // rad
	Frequency float64    `yaml:"frequency,omitempty"` // Hz
	Position  mgl64.Vec3 `yaml:"position,omitempty,flow"`
	Radius    float64    `yaml:"radius,omitempty"` // m
}

type Dropout struct {
	Start int `yaml:"start"`
	Count int `yaml:"count"`
}

type Scenario struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Steps       []Step    `yaml:"steps"`
	FailureRate float64   `yaml:"failure_rate,omitempty"`
	Seed        int64     `yaml:"seed,omitempty"`
	Dropouts    []Dropout `yaml:"dropouts,omitempty"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scenario: %w", err)
	}
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("scenario: parse %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &s, nil
}

func (s *Scenario) Validate() error {
	if len(s.Steps) == 0 {
		return fmt.Errorf("%w: no steps", ErrInvalidScenario)
	}
	if s.FailureRate < 0 || s.FailureRate >= 1 {
		return fmt.Errorf("%w: failure rate must be in [0,1), got %v", ErrInvalidScenario, s.FailureRate)
	}
	for i, d := range s.Dropouts {
		if d.Start < 0 || d.Count < 0 {
			return fmt.Errorf("%w: dropout %d: start and count must be non-negative", ErrInvalidScenario, i+1)
		}
	}
	for i, st := range s.Steps {
		if err := st.validate(); err != nil {
			return fmt.Errorf("%w: step %d (%s): %v", ErrInvalidScenario, i+1, st.Kind, err)
		}
	}
	return nil
}

func (st Step) validate() error {
	if !(st.Duration > 0) || math.IsInf(st.Duration, 0) {
		return fmt.Errorf("duration must be positive, got %v", st.Duration)
	}
	switch st.Kind {
	case Hold, Move:
	case Rotate:
		if _, ok := vecmath.Normalize(st.Axis); !ok {
			return errors.New("axis is required")
		}
	case Wave:
		if _, ok := vecmath.Normalize(st.Axis); !ok {
			return errors.New("axis is required")
		}
		if st.Frequency <= 0 {
			return fmt.Errorf("frequency must be positive, got %v", st.Frequency)
		}
	case Circle:
		if st.Radius <= 0 || st.Frequency <= 0 {
			return errors.New("radius and frequency must be positive")
		}
	default:
		return fmt.Errorf("unknown kind %q", st.Kind)
	}
	return nil
}

// Duration is the total scripted time in seconds.
func (s *Scenario) Duration() float64 {
	total := 0.0
	for _, st := range s.Steps {
		total += st.Duration
	}
	return total
}

// At implements device.Motion. Past the last step the handle holds still
// where it ended.
func (s *Scenario) At(t float64) (angVel, pos mgl64.Vec3) {
	start := 0.0
	for _, st := range s.Steps {
		if t < start+st.Duration {
			return st.at(t-start, pos)
		}
		_, pos = st.at(st.Duration, pos)
		start += st.Duration
	}
	return mgl64.Vec3{}, pos
}

// at evaluates the step tau seconds in, starting from position from.
func (st Step) at(tau float64, from mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3) {
	axis, _ := vecmath.Normalize(st.Axis)
	switch st.Kind {
	case Rotate:
		return axis.Mul(st.Rate), from
	case Wave:
		w := 2 * math.Pi * st.Frequency
		return axis.Mul(st.Amplitude * w * math.Cos(w*tau)), from
	case Move:
		k := math.Min(tau/st.Duration, 1)
		return mgl64.Vec3{}, from.Add(st.Position.Sub(from).Mul(k))
	case Circle:
		ph := 2 * math.Pi * st.Frequency * tau
		return mgl64.Vec3{}, from.Add(mgl64.Vec3{st.Radius * (math.Cos(ph) - 1), st.Radius * math.Sin(ph), 0})
	}
	return mgl64.Vec3{}, from
}

// DeviceOptions configures a virtual device to play this scenario.
func (s *Scenario) DeviceOptions() []device.VirtualOption {
	opts := []device.VirtualOption{device.WithMotion(s)}
	if s.FailureRate > 0 {
		opts = append(opts, device.WithFailureRate(s.FailureRate, s.Seed))
	}
	for _, d := range s.Dropouts {
		opts = append(opts, device.WithDropout(d.Start, d.Count))
	}
	return opts
}
