package sim

// forceGate keeps device output at zero until the spring force at full
// gain first drops below a threshold, then stays open for the rest of the
// run.
type forceGate struct {
	threshold float64
	open      bool
}

func newForceGate(threshold float64) forceGate {
	return forceGate{threshold: threshold, open: threshold <= 0}
}

func (g *forceGate) admit(force float64) bool {
	if !g.open && force < g.threshold {
		g.open = true
	}
	return g.open
}
