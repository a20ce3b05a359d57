package analysis

import (
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// PowerSpectrum returns the unnormalised magnitudes of the non-negative
// frequency bins of data, len(data)/2+1 of them. Bin k is at
// k·sampleRate/len(data).
func PowerSpectrum(data []float64) []float64 {
	if len(data) == 0 {
		return nil
	}
	coeff := fourier.NewFFT(len(data)).Coefficients(nil, data)
	ps := make([]float64, len(coeff))
	for i, c := range coeff {
		ps[i] = cmplx.Abs(c)
	}
	return ps
}
