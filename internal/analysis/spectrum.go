package analysis

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/floats"
)

// PowerSpectrum returns the one-sided power spectrum of a uniformly
// sampled signal, DC through Nyquist inclusive. Signals shorter than
// two samples yield nil.
func PowerSpectrum(signal []float64) []float64 {
	if len(signal) < 2 {
		return nil
	}
	coeffs := fft.FFTReal(signal)
	ps := make([]float64, len(signal)/2+1)
	for i := range ps {
		m := cmplx.Abs(coeffs[i])
		ps[i] = m * m
	}
	return ps
}

// SpectralEntropy is the Shannon entropy of the normalized power
// spectrum, scaled to [0, 1]. Narrowband signals score near 0,
// broadband noise near 1.
func SpectralEntropy(signal []float64) float64 {
	ps := PowerSpectrum(signal)
	if len(ps) < 2 {
		return 0
	}
	total := floats.Sum(ps)
	if total <= 0 {
		return 0
	}
	h := 0.0
	for _, p := range ps {
		if p <= 0 {
			continue
		}
		q := p / total
		h -= q * math.Log(q)
	}
	return h / math.Log(float64(len(ps)))
}

// HighBandFraction is the fraction of spectral power at or above the
// given fraction of the Nyquist frequency. The DC bin is never counted
// as high band.
func HighBandFraction(signal []float64, cutoff float64) float64 {
	ps := PowerSpectrum(signal)
	if len(ps) == 0 {
		return 0
	}
	total := floats.Sum(ps)
	if total <= 0 {
		return 0
	}
	idx := int(math.Ceil(cutoff * float64(len(ps)-1)))
	if idx < 1 {
		idx = 1
	}
	if idx >= len(ps) {
		return 0
	}
	return floats.Sum(ps[idx:]) / total
}

// Smoothness scores a control sequence in [0, 1] as one minus the
// fraction of spectral power above half the Nyquist frequency. Slowly
// varying controls score near 1, bang-bang switching near 0.
func Smoothness(signal []float64) float64 {
	return 1 - HighBandFraction(signal, 0.5)
}
