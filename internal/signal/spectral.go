package signal

import (
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// MaxWelchSegment bounds the Welch segment length.
const MaxWelchSegment = 256

// Spectrum pairs a frequency axis with magnitudes.
type Spectrum struct {
	Freqs []float64 `json:"freqs"`
	Mags  []float64 `json:"mags"`
}

// Len returns the number of bins.
func (s Spectrum) Len() int {
	return len(s.Mags)
}

// SpectrumFFT returns the DFT magnitudes of sig, truncated to the first N/2
// bins, on a frequency axis of linspace(0, sampleRate/2, N/2).
func SpectrumFFT(sig []float64, sampleRate float64) Spectrum {
	n := len(sig)
	half := n / 2
	if half < 1 {
		return Spectrum{}
	}

	fft := fourier.NewFFT(n)
	coeffs := fft.Coefficients(nil, sig)

	spec := Spectrum{
		Freqs: linspace(0, sampleRate/2, half),
		Mags:  make([]float64, half),
	}
	for k := 0; k < half; k++ {
		spec.Mags[k] = cmplx.Abs(coeffs[k])
	}
	return spec
}

// WelchSegment is the default segment length min(256, n/2).
func WelchSegment(n int) int {
	seg := n / 2
	if seg > MaxWelchSegment {
		seg = MaxWelchSegment
	}
	return seg
}

// SpectrumWelch estimates the one-sided power spectral density of sig by
// averaging periodic-Hann-windowed periodograms over segments with 50% overlap.
// A non-positive segmentLength selects WelchSegment(len(sig)).
func SpectrumWelch(sig []float64, sampleRate float64, segmentLength int) Spectrum {
	n := len(sig)
	if segmentLength <= 0 || segmentLength > n {
		segmentLength = WelchSegment(n)
	}
	if segmentLength < 2 || sampleRate <= 0 {
		return Spectrum{}
	}

	win := PeriodicHann(segmentLength)
	var winPower float64
	for _, w := range win {
		winPower += w * w
	}
	if winPower == 0 {
		return Spectrum{}
	}
	scale := 1 / (sampleRate * winPower)

	step := segmentLength - segmentLength/2
	bins := segmentLength/2 + 1
	psd := make([]float64, bins)
	fft := fourier.NewFFT(segmentLength)
	seg := make([]float64, segmentLength)
	var coeffs []complex128

	segments := 0
	for start := 0; start+segmentLength <= n; start += step {
		copy(seg, sig[start:start+segmentLength])
		m := Mean(seg)
		for i := range seg {
			seg[i] = (seg[i] - m) * win[i]
		}
		coeffs = fft.Coefficients(coeffs, seg)
		for k := 0; k < bins; k++ {
			a := cmplx.Abs(coeffs[k])
			psd[k] += a * a * scale
		}
		segments++
	}
	if segments == 0 {
		return Spectrum{}
	}

	last := bins - 1
	if segmentLength%2 == 1 {
		last = bins
	}
	for k := range psd {
		psd[k] /= float64(segments)
		if k > 0 && k < last {
			psd[k] *= 2
		}
	}

	freqs := make([]float64, bins)
	for k := range freqs {
		freqs[k] = float64(k) * sampleRate / float64(segmentLength)
	}
	return Spectrum{Freqs: freqs, Mags: psd}
}

func linspace(start, stop float64, n int) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = start
		return out
	}
	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}
