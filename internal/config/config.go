// Package config loads and saves the YAML configuration of a teleoperation
// session and provides named presets.
package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/teleop/internal/device"
	"github.com/san-kum/teleop/internal/params"
	"github.com/san-kum/teleop/internal/physics"
	"github.com/san-kum/teleop/internal/sim"
)

const (
	DefaultDuration = 10.0
	DefaultLogLevel = "info"
)

type Config struct {
	// Duration is the length of a headless run in seconds; zero runs until
	// interrupted.
	Duration float64 `yaml:"duration"`
	// Scenario is an optional operator script for the virtual device.
	Scenario string `yaml:"scenario,omitempty"`
	LogLevel string `yaml:"log_level"`

	Params  params.Params  `yaml:"params"`
	Device  device.Specs   `yaml:"device"`
	Physics physics.Config `yaml:"physics"`
	Loop    sim.Config     `yaml:"loop"`
}

func DefaultConfig() *Config {
	return &Config{
		Duration: DefaultDuration,
		LogLevel: DefaultLogLevel,
		Params:   params.Defaults(),
		Device:   device.DefaultSpecs(),
		Physics:  physics.DefaultConfig(),
		Loop:     sim.DefaultConfig(),
	}
}

// Load reads path over the defaults, so a file only needs the fields it
// changes. The result is validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Marshal renders cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("config: marshal: %w", err)
	}
	return data, nil
}

// Validate checks every section. All failures wrap
// params.ErrInvalidConfiguration.
func (c *Config) Validate() error {
	if math.IsNaN(c.Duration) || c.Duration < 0 {
		return fmt.Errorf("%w: duration must be non-negative, got %v", params.ErrInvalidConfiguration, c.Duration)
	}
	if err := c.Params.Validate(); err != nil {
		return err
	}
	if err := validateSpecs(c.Device); err != nil {
		return err
	}
	if err := c.Physics.Validate(); err != nil {
		return fmt.Errorf("%w: %w", params.ErrInvalidConfiguration, err)
	}
	return c.Session().Validate()
}

func validateSpecs(s device.Specs) error {
	fields := []struct {
		name string
		v    float64
	}{
		{"max_linear_force", s.MaxLinearForce},
		{"max_angular_torque", s.MaxAngularTorque},
		{"max_linear_stiffness", s.MaxLinearStiffness},
		{"max_angular_stiffness", s.MaxAngularStiffness},
		{"workspace_radius", s.WorkspaceRadius},
		{"sample_rate_hz", s.SampleRateHz},
	}
	for _, f := range fields {
		if !(f.v > 0) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%w: device %s must be positive, got %v", params.ErrInvalidConfiguration, f.name, f.v)
		}
	}
	return nil
}

// Session returns the loop settings with the physics step and workspace
// filled in, and the cycle limit derived from Duration when the loop does
// not set one.
func (c *Config) Session() sim.Config {
	s := c.Loop
	s.PhysicsDt = c.Physics.Dt
	s.WorkspaceRadius = c.Physics.WorkspaceRadius
	if s.MaxCycles == 0 && c.Duration > 0 {
		s.MaxCycles = uint64(math.Round(c.Duration * c.Device.SampleRateHz))
	}
	return s
}
