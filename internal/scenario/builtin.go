package scenario

import (
	"fmt"
	"os"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
)

// builtins are scripts that ship with the binary.
var builtins = map[string]func() *Scenario{
	"idle": func() *Scenario {
		return &Scenario{
			Name:        "idle",
			Description: "hand on the handle, not moving",
			Steps:       []Step{{Kind: Hold, Duration: 1}},
		}
	},
	"polish": func() *Scenario {
		return &Scenario{
			Name:        "polish",
			Description: "small wiping circles while tilting the wrist back and forth",
			Steps: []Step{
				{Kind: Hold, Duration: 0.5},
				{Kind: Move, Duration: 0.5, Position: mgl64.Vec3{0, 0, -0.02}},
				{Kind: Circle, Duration: 2, Radius: 0.015, Frequency: 1},
				{Kind: Wave, Duration: 3, Axis: mgl64.Vec3{1, 0, 0}, Amplitude: 0.3, Frequency: 0.5},
				{Kind: Hold, Duration: 0.5},
			},
		}
	},
	"overreach": func() *Scenario {
		return &Scenario{
			Name:        "overreach",
			Description: "tilts past the mechanical limit and holds against it",
			Steps: []Step{
				{Kind: Rotate, Duration: 1.5, Axis: mgl64.Vec3{1, 0, 0}, Rate: 0.4},
				{Kind: Hold, Duration: 1},
				{Kind: Rotate, Duration: 1.5, Axis: mgl64.Vec3{1, 0, 0}, Rate: -0.4},
			},
		}
	},
	"flaky": func() *Scenario {
		return &Scenario{
			Name:        "flaky",
			Description: "gentle motion over a lossy link",
			Steps: []Step{
				{Kind: Wave, Duration: 4, Axis: mgl64.Vec3{0, 1, 0}, Amplitude: 0.2, Frequency: 0.25},
			},
			FailureRate: 0.002,
			Seed:        7,
			Dropouts:    []Dropout{{Start: 2000, Count: 20}},
		}
	},
}

// Builtin returns a fresh copy of a shipped script.
func Builtin(name string) (*Scenario, bool) {
	fn, ok := builtins[name]
	if !ok {
		return nil, false
	}
	return fn(), true
}

func Names() []string {
	names := make([]string, 0, len(builtins))
	for n := range builtins {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Resolve accepts either a builtin name or a path to a YAML script.
func Resolve(ref string) (*Scenario, error) {
	if s, ok := Builtin(ref); ok {
		return s, nil
	}
	if _, err := os.Stat(ref); err != nil {
		return nil, fmt.Errorf("%w: %q is neither a builtin (%v) nor a readable file", ErrInvalidScenario, ref, Names())
	}
	return Load(ref)
}
