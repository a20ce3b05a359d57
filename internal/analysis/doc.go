// Package analysis looks at what the operator felt over a run.
//
//   - [Recorder]: a sim.Observer keeping a rolling window of one signal
//   - [PowerSpectrum]: magnitude spectrum of a real signal
//   - [DetectChatter]: dominant oscillation in the rendered force
//
// # Chatter
//
// A stiff spring against a light tool can ring. The ringing shows up as a
// narrow peak in the force spectrum well above hand-motion frequencies:
//
//	rep := analysis.DetectChatter(rec.Values(), 4000, 30)
//	if rep.Chatter {
//	    // lower lin_stiffness or lin_gain
//	}
package analysis
