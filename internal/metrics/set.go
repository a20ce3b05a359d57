package metrics

import (
	"sort"

	"github.com/san-kum/teleop/internal/sim"
)

// Default is the set reported at the end of a run.
func Default() []sim.Metric {
	return []sim.Metric{
		NewForceEffort(),
		NewTorqueEffort(),
		NewLimitEngagement(),
		NewSaturation(),
		NewSpringEnergy(),
		NewCycleJitter(),
	}
}

// Collect reads every metric into a map keyed by name.
func Collect(ms []sim.Metric) map[string]float64 {
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		out[m.Name()] = m.Value()
	}
	return out
}

// Names returns the keys of a collected map in sorted order.
func Names(values map[string]float64) []string {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
