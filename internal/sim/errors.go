package sim

import (
	"errors"
	"fmt"
)

var (
	// ErrDeviceLost ends a run: the device failed more consecutive cycles
	// than the retry budget allows. It is returned together with the
	// device error that caused it.
	ErrDeviceLost = errors.New("sim: device lost")

	// ErrCyclePanic marks a cycle that panicked and was rolled back.
	ErrCyclePanic = errors.New("sim: cycle panicked")

	// ErrSessionUsed is returned by Run on a session that already ran.
	ErrSessionUsed = errors.New("sim: session already used")
)

// CycleError is a recoverable failure of a single cycle. The session held
// its previous output and did not commit any state for that cycle.
type CycleError struct {
	Cycle uint64
	Time  float64
	Err   error
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle %d (t=%.4f): %v", e.Cycle, e.Time, e.Err)
}

func (e *CycleError) Unwrap() error {
	return e.Err
}
