package analysis

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// chatterShare is the fraction of spectral power the dominant peak must
// carry to count as chatter.
const chatterShare = 0.25

type ChatterReport struct {
	// Frequency of the dominant non-DC component, Hz.
	Frequency float64
	// Share of the total AC power in the dominant bin and its neighbours.
	Share float64
	// RMS of the signal around its mean.
	RMS     float64
	Chatter bool
}

// DetectChatter finds the dominant oscillation in samples taken at
// sampleRate. It reports chatter when that oscillation is above minHz and
// dominates the spectrum.
func DetectChatter(samples []float64, sampleRate, minHz float64) ChatterReport {
	var rep ChatterReport
	if len(samples) < 4 || sampleRate <= 0 {
		return rep
	}

	mean, std := stat.MeanStdDev(samples, nil)
	rep.RMS = std
	if std == 0 {
		return rep
	}

	// Remove the mean and apply a Hann window against leakage.
	n := len(samples)
	w := make([]float64, n)
	for i, v := range samples {
		hann := 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
		w[i] = (v - mean) * hann
	}

	ps := PowerSpectrum(w)
	for i := range ps {
		ps[i] *= ps[i]
	}
	ps[0] = 0

	total := floats.Sum(ps)
	if total == 0 {
		return rep
	}
	peak := floats.MaxIdx(ps)

	band := ps[peak]
	if peak > 1 {
		band += ps[peak-1]
	}
	if peak+1 < len(ps) {
		band += ps[peak+1]
	}

	binHz := sampleRate / float64(n)
	rep.Frequency = float64(peak) * binHz
	rep.Share = band / total
	rep.Chatter = rep.Frequency >= minHz && rep.Share >= chatterShare
	return rep
}
