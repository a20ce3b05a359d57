package analysis

import (
	"slices"
	"sync/atomic"

	"github.com/san-kum/teleop/internal/sim"
)

// Recorder keeps the last n values of one telemetry signal, taking every
// every-th committed cycle. Held cycles are skipped.
//
// The window belongs to the goroutine calling OnCycle. Readers see an
// immutable copy published through an atomic pointer, so a slow render loop
// never holds up the control loop.
type Recorder struct {
	name    string
	pick    func(t *sim.Telemetry) float64
	every   uint64
	publish int

	buf     []float64
	next    int
	full    bool
	pending int

	snap atomic.Pointer[[]float64]
}

type RecorderOption func(*Recorder)

// WithPublishEvery publishes a new snapshot once every k accepted samples
// instead of after each one. Long windows sampled every cycle use it to keep
// copying off the control loop; call Flush after the run for the tail.
func WithPublishEvery(k int) RecorderOption {
	return func(r *Recorder) {
		if k > 0 {
			r.publish = k
		}
	}
}

func NewRecorder(name string, n int, every int, pick func(t *sim.Telemetry) float64, opts ...RecorderOption) *Recorder {
	if n < 1 {
		n = 1
	}
	if every < 1 {
		every = 1
	}
	r := &Recorder{name: name, pick: pick, every: uint64(every), publish: 1, buf: make([]float64, 0, n)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ForceMagnitude is the rendered force, N.
func ForceMagnitude(t *sim.Telemetry) float64 { return t.Force.Len() }

// TiltDegrees is the device tilt from its reference axis.
func TiltDegrees(t *sim.Telemetry) float64 { return t.TiltDeg }

// AvatarDegrees is the avatar angle from identity.
func AvatarDegrees(t *sim.Telemetry) float64 { return t.AvatarDeg }

func (r *Recorder) Name() string { return r.name }

func (r *Recorder) OnCycle(t *sim.Telemetry) {
	if t.Held || t.Cycle%r.every != 0 {
		return
	}
	v := r.pick(t)

	if !r.full {
		r.buf = append(r.buf, v)
		r.full = len(r.buf) == cap(r.buf)
	} else {
		r.buf[r.next] = v
		r.next = (r.next + 1) % len(r.buf)
	}

	r.pending++
	if r.pending >= r.publish {
		r.Flush()
	}
}

// Flush publishes the current window. Call it from the OnCycle goroutine or
// once the session has stopped.
func (r *Recorder) Flush() {
	out := make([]float64, 0, len(r.buf))
	out = append(out, r.buf[r.next:]...)
	out = append(out, r.buf[:r.next]...)
	r.pending = 0
	r.snap.Store(&out)
}

// Values returns the last published window, oldest first.
func (r *Recorder) Values() []float64 {
	p := r.snap.Load()
	if p == nil {
		return nil
	}
	return slices.Clone(*p)
}

// Len is the number of values in the last published window.
func (r *Recorder) Len() int {
	p := r.snap.Load()
	if p == nil {
		return 0
	}
	return len(*p)
}
