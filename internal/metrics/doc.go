// Package metrics accumulates run figures from session telemetry: output
// effort, limit engagement, saturation, spring energy and cycle timing.
package metrics
