package signal

import "math"

// Normalized cutoff limits relative to Nyquist.
const (
	minCutoff = 0.01
	maxCutoff = 0.99
	minBand   = 0.01
)

// section is one second-order (or first-order, with b2 = a2 = 0) stage in
// transposed direct form II with a0 normalized to 1.
type section struct {
	b0, b1, b2 float64
	a1, a2     float64
}

// Bandpass applies a zero-phase Butterworth bandpass of the given order.
// Cutoffs are clamped into [0.01, 0.99] of Nyquist and the band is kept at
// least 0.01 wide. Input shorter than three samples, or a filter that
// produces non-finite output, yields an unfiltered copy.
func Bandpass(series []float64, lowHz, highHz, sampleRate float64, order int) []float64 {
	out := make([]float64, len(series))
	copy(out, series)
	if len(series) < 3 || sampleRate <= 0 || order < 1 {
		return out
	}

	low, high := bandEdges(lowHz, highHz, sampleRate)

	sections := append(butterworth(order, low, true), butterworth(order, high, false)...)
	padlen := 3 * (2*order + 1)
	filtered := filtfilt(sections, series, padlen)
	for _, v := range filtered {
		if !Finite(v) {
			return out
		}
	}
	return filtered
}

// bandEdges converts Hz cutoffs into clamped Nyquist-relative edges.
func bandEdges(lowHz, highHz, sampleRate float64) (float64, float64) {
	nyq := sampleRate / 2
	low := Clamp(lowHz/nyq, minCutoff, maxCutoff)
	high := Clamp(highHz/nyq, minCutoff, maxCutoff)
	if high < low+minBand {
		high = low + minBand
		if high > maxCutoff {
			high = maxCutoff
			low = maxCutoff - minBand
		}
	}
	return low, high
}

// butterworth designs an order-n Butterworth low- or highpass at the
// normalized cutoff wc (fraction of Nyquist) as cascaded bilinear sections.
func butterworth(n int, wc float64, highpass bool) []section {
	w0 := math.Pi * wc
	cosw, sinw := math.Cos(w0), math.Sin(w0)

	var out []section
	for k := 0; k < n; k++ {
		phi := math.Pi * float64(2*k+n+1) / float64(2*n)
		if math.Sin(phi) <= 1e-9 {
			continue
		}
		q := -1 / (2 * math.Cos(phi))
		alpha := sinw / (2 * q)
		a0 := 1 + alpha

		var s section
		if highpass {
			s.b0 = (1 + cosw) / 2 / a0
			s.b1 = -(1 + cosw) / a0
			s.b2 = (1 + cosw) / 2 / a0
		} else {
			s.b0 = (1 - cosw) / 2 / a0
			s.b1 = (1 - cosw) / a0
			s.b2 = (1 - cosw) / 2 / a0
		}
		s.a1 = -2 * cosw / a0
		s.a2 = (1 - alpha) / a0
		out = append(out, s)
	}

	if n%2 == 1 {
		kk := math.Tan(w0 / 2)
		s := section{a1: (kk - 1) / (kk + 1)}
		if highpass {
			s.b0 = 1 / (1 + kk)
			s.b1 = -1 / (1 + kk)
		} else {
			s.b0 = kk / (1 + kk)
			s.b1 = kk / (1 + kk)
		}
		out = append(out, s)
	}
	return out
}

// filtfilt runs the cascade forward and backward over an odd-reflected
// extension of x, starting each stage in its steady state.
func filtfilt(sections []section, x []float64, padlen int) []float64 {
	n := len(x)
	if padlen > n-1 {
		padlen = n - 1
	}

	ext := make([]float64, 0, n+2*padlen)
	for i := padlen; i >= 1; i-- {
		ext = append(ext, 2*x[0]-x[i])
	}
	ext = append(ext, x...)
	for i := n - 2; i >= n-1-padlen; i-- {
		ext = append(ext, 2*x[n-1]-x[i])
	}

	y := cascade(sections, ext)
	reverse(y)
	y = cascade(sections, y)
	reverse(y)

	return y[padlen : padlen+n]
}

func cascade(sections []section, x []float64) []float64 {
	y := make([]float64, len(x))
	copy(y, x)
	for _, s := range sections {
		y = s.apply(y)
	}
	return y
}

func (s section) apply(x []float64) []float64 {
	y := make([]float64, len(x))
	if len(x) == 0 {
		return y
	}

	// Steady state for a constant input equal to x[0].
	x0 := x[0]
	var g float64
	if den := 1 + s.a1 + s.a2; math.Abs(den) > 1e-12 {
		g = (s.b0 + s.b1 + s.b2) / den
	}
	y0 := g * x0
	z2 := s.b2*x0 - s.a2*y0
	z1 := s.b1*x0 - s.a1*y0 + z2

	for i, v := range x {
		out := s.b0*v + z1
		z1 = s.b1*v - s.a1*out + z2
		z2 = s.b2*v - s.a2*out
		y[i] = out
	}
	return y
}

func reverse(x []float64) {
	for i, j := 0, len(x)-1; i < j; i, j = i+1, j-1 {
		x[i], x[j] = x[j], x[i]
	}
}
