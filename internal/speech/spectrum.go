package speech

import (
	"context"
	"math"
	"math/cmplx"
	"sort"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

const (
	amin     = 1e-10
	ampFloor = 1e-5
)

// frames holds the per-frame representations shared by the extractors.
// Frames are centered: frame i covers y[i*hop-n/2 : i*hop+n/2] with zero
// padding at the edges.
type frames struct {
	cfg    Config
	y      []float64
	sr     float64
	padded []float64
	count  int

	rms []float64

	// Filled by spectrogram.
	mag   [][]float64 // [frame][bin] STFT magnitude
	freqs []float64
	melDB [][]float64 // [frame][band]
	mfcc  [][]float64 // [coefficient][frame]

	// Filled by periodicity. lag is 0 for unvoiced frames.
	lag      []float64
	strength []float64
}

func newFrames(y []float64, sr float64, cfg Config) *frames {
	n := cfg.FrameLength
	padded := make([]float64, len(y)+n)
	copy(padded[n/2:], y)

	f := &frames{
		cfg:    cfg,
		y:      y,
		sr:     sr,
		padded: padded,
		count:  1 + len(y)/cfg.HopLength,
	}
	f.rms = make([]float64, f.count)
	for i := range f.rms {
		var sum float64
		for _, v := range f.frame(i) {
			sum += v * v
		}
		f.rms[i] = math.Sqrt(sum / float64(n))
	}
	return f
}

func (f *frames) frame(i int) []float64 {
	start := i * f.cfg.HopLength
	return f.padded[start : start+f.cfg.FrameLength]
}

func (f *frames) duration() float64 {
	return float64(len(f.y)) / f.sr
}

func (f *frames) frameTime(i int) float64 {
	return float64(i*f.cfg.HopLength) / f.sr
}

// spectrogram computes the Hann-windowed STFT magnitudes, the log-mel
// spectrogram and its MFCCs.
func (f *frames) spectrogram(ctx context.Context) error {
	n := f.cfg.FrameLength
	bins := n/2 + 1
	fft := fourier.NewFFT(n)
	buf := make([]float64, n)
	coeffs := make([]complex128, bins)

	f.freqs = make([]float64, bins)
	for k := range f.freqs {
		f.freqs[k] = float64(k) * f.sr / float64(n)
	}

	f.mag = make([][]float64, f.count)
	for i := range f.mag {
		if i%64 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		copy(buf, f.frame(i))
		window.Hann(buf)
		coeffs = fft.Coefficients(coeffs, buf)
		row := make([]float64, bins)
		for k, c := range coeffs {
			row[k] = cmplx.Abs(c)
		}
		f.mag[i] = row
	}

	bank := melFilterbank(f.cfg.NumMels, n, f.sr)
	f.melDB = make([][]float64, f.count)
	peak := math.Inf(-1)
	for i, row := range f.mag {
		mel := make([]float64, len(bank))
		for b, w := range bank {
			var e float64
			for k, wk := range w {
				if wk != 0 {
					e += wk * row[k] * row[k]
				}
			}
			mel[b] = 10 * math.Log10(math.Max(amin, e))
			peak = math.Max(peak, mel[b])
		}
		f.melDB[i] = mel
	}
	floor := peak - f.cfg.TopDB
	for _, mel := range f.melDB {
		for b := range mel {
			mel[b] = math.Max(mel[b], floor)
		}
	}

	dct := dctMatrix(f.cfg.NumMFCC, f.cfg.NumMels)
	f.mfcc = make([][]float64, len(dct))
	for c, basis := range dct {
		series := make([]float64, f.count)
		for i, mel := range f.melDB {
			var s float64
			for b, v := range mel {
				s += basis[b] * v
			}
			series[i] = s
		}
		f.mfcc[c] = series
	}
	return nil
}

// periodicity finds the strongest autocorrelation peak of each frame within
// the pitch lag range. Frames quieter than 5% of the loudest frame, or whose
// normalized peak is below the voicing threshold, are unvoiced.
func (f *frames) periodicity(ctx context.Context) error {
	n := f.cfg.FrameLength
	size := 2 * n
	fft := fourier.NewFFT(size)
	buf := make([]float64, size)
	spec := make([]complex128, size/2+1)
	ac := make([]float64, size)

	lo := max(1, int(math.Floor(f.sr/f.cfg.PitchMaxHz)))
	hi := min(n-2, int(math.Ceil(f.sr/f.cfg.PitchMinHz)))

	var loudest float64
	for _, v := range f.rms {
		loudest = math.Max(loudest, v)
	}

	f.lag = make([]float64, f.count)
	f.strength = make([]float64, f.count)
	if lo >= hi {
		return nil
	}
	for i := 0; i < f.count; i++ {
		if i%64 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if f.rms[i] < 0.05*loudest || f.rms[i] < ampFloor {
			continue
		}
		fr := f.frame(i)
		var mean float64
		for _, v := range fr {
			mean += v
		}
		mean /= float64(n)
		for j := range buf {
			buf[j] = 0
		}
		for j, v := range fr {
			buf[j] = v - mean
		}

		spec = fft.Coefficients(spec, buf)
		for k, c := range spec {
			spec[k] = complex(real(c)*real(c)+imag(c)*imag(c), 0)
		}
		ac = fft.Sequence(ac, spec)
		if ac[0] <= 0 {
			continue
		}

		best, bestVal := -1, math.Inf(-1)
		for k := lo; k <= hi; k++ {
			if ac[k] >= ac[k-1] && ac[k] >= ac[k+1] && ac[k] > bestVal {
				best, bestVal = k, ac[k]
			}
		}
		if best < 0 {
			continue
		}
		r := bestVal / ac[0]
		f.strength[i] = r
		if r < f.cfg.VoicingThreshold {
			continue
		}
		lag := float64(best)
		if den := ac[best-1] - 2*ac[best] + ac[best+1]; den != 0 {
			lag += 0.5 * (ac[best-1] - ac[best+1]) / den
		}
		f.lag[i] = lag
	}
	return nil
}

// melFilterbank builds area-normalized triangular filters equally spaced on
// the mel scale between 0 Hz and Nyquist.
func melFilterbank(nMels, nfft int, sr float64) [][]float64 {
	bins := nfft/2 + 1
	top := hzToMel(sr / 2)
	edges := make([]float64, nMels+2)
	for i := range edges {
		edges[i] = melToHz(top * float64(i) / float64(nMels+1))
	}

	bank := make([][]float64, nMels)
	for m := range bank {
		lo, c, hi := edges[m], edges[m+1], edges[m+2]
		norm := 2 / (hi - lo)
		w := make([]float64, bins)
		for k := range w {
			hz := float64(k) * sr / float64(nfft)
			switch {
			case hz > lo && hz <= c:
				w[k] = norm * (hz - lo) / (c - lo)
			case hz > c && hz < hi:
				w[k] = norm * (hi - hz) / (hi - c)
			}
		}
		bank[m] = w
	}
	return bank
}

func hzToMel(hz float64) float64 { return 2595 * math.Log10(1+hz/700) }
func melToHz(mel float64) float64 { return 700 * (math.Pow(10, mel/2595) - 1) }

// dctMatrix returns the first rows of the orthonormal DCT-II basis.
func dctMatrix(rows, n int) [][]float64 {
	out := make([][]float64, rows)
	for k := range out {
		scale := math.Sqrt(2 / float64(n))
		if k == 0 {
			scale = math.Sqrt(1 / float64(n))
		}
		row := make([]float64, n)
		for j := range row {
			row[j] = scale * math.Cos(math.Pi*float64(k)*(2*float64(j)+1)/(2*float64(n)))
		}
		out[k] = row
	}
	return out
}

// onsetEnvelope is the mean positive log-mel flux per frame, rescaled to
// [0, 1].
func (f *frames) onsetEnvelope() []float64 {
	env := make([]float64, len(f.melDB))
	for i := 1; i < len(f.melDB); i++ {
		var s float64
		for b, v := range f.melDB[i] {
			s += math.Max(0, v-f.melDB[i-1][b])
		}
		env[i] = s / float64(len(f.melDB[i]))
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range env {
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	if hi-lo <= 0 {
		return make([]float64, len(env))
	}
	for i := range env {
		env[i] = (env[i] - lo) / (hi - lo)
	}
	return env
}

// pickPeaks keeps samples that are the maximum of [i-preMax, i+postMax),
// exceed the mean of [i-preAvg, i+postAvg) by delta, and lie more than wait
// samples after the previous pick.
func pickPeaks(x []float64, preMax, postMax, preAvg, postAvg, wait int, delta float64) []int {
	var peaks []int
	last := -wait - 1
	for i, v := range x {
		lo, hi := max(0, i-preMax), min(len(x), i+postMax)
		isMax := true
		for j := lo; j < hi; j++ {
			if x[j] > v {
				isMax = false
				break
			}
		}
		if !isMax {
			continue
		}
		lo, hi = max(0, i-preAvg), min(len(x), i+postAvg)
		var sum float64
		for j := lo; j < hi; j++ {
			sum += x[j]
		}
		if v < sum/float64(hi-lo)+delta {
			continue
		}
		if i-last > wait {
			peaks = append(peaks, i)
			last = i
		}
	}
	return peaks
}

// onsets returns onset times in seconds.
func (f *frames) onsets() []float64 {
	env := f.onsetEnvelope()
	fps := f.sr / float64(f.cfg.HopLength)
	span := func(sec float64) int { return int(sec * fps) }

	peaks := pickPeaks(env,
		max(1, span(0.03)), span(0)+1,
		span(0.10), span(0.10)+1,
		max(1, span(0.03)), 0.07)

	times := make([]float64, len(peaks))
	for i, p := range peaks {
		times[i] = f.frameTime(p)
	}
	return times
}

func spectralCentroid(mag, freqs []float64) float64 {
	var num, den float64
	for k, m := range mag {
		num += freqs[k] * m
		den += m
	}
	if den <= 0 {
		return 0
	}
	return num / den
}

func spectralRolloff(mag, freqs []float64, pct float64) float64 {
	var total float64
	for _, m := range mag {
		total += m
	}
	var cum float64
	for k, m := range mag {
		cum += m
		if cum >= pct*total {
			return freqs[k]
		}
	}
	return freqs[len(freqs)-1]
}

// spectralFlatness is the ratio of the geometric to the arithmetic mean of
// the power spectrum.
func spectralFlatness(mag []float64) float64 {
	var logSum, sum float64
	for _, m := range mag {
		p := math.Max(amin, m*m)
		logSum += math.Log(p)
		sum += p
	}
	n := float64(len(mag))
	return math.Exp(logSum/n) / (sum / n)
}

// spectralContrast averages the peak-to-valley dB difference over octave
// bands starting at 200 Hz.
func spectralContrast(mag, freqs []float64, nyquist float64) float64 {
	edges := []float64{0, 200, 400, 800, 1600, 3200, 6400, nyquist + 1}
	var total float64
	var bands int
	band := make([]float64, 0, len(mag))
	for b := 0; b+1 < len(edges); b++ {
		lo, hi := edges[b], edges[b+1]
		if lo >= nyquist {
			break
		}
		band = band[:0]
		for k, hz := range freqs {
			if hz >= lo && hz < hi {
				band = append(band, mag[k])
			}
		}
		if len(band) == 0 {
			continue
		}
		sort.Float64s(band)
		q := max(1, int(math.Round(0.02*float64(len(band)))))
		var valley, peak float64
		for _, v := range band[:q] {
			valley += v
		}
		for _, v := range band[len(band)-q:] {
			peak += v
		}
		valley /= float64(q)
		peak /= float64(q)
		total += 10*math.Log10(math.Max(amin, peak)) - 10*math.Log10(math.Max(amin, valley))
		bands++
	}
	if bands == 0 {
		return 0
	}
	return total / float64(bands)
}

func zeroCrossingRate(x []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	var n int
	for i := 1; i < len(x); i++ {
		if (x[i] >= 0) != (x[i-1] >= 0) {
			n++
		}
	}
	return float64(n) / float64(len(x))
}

// autocorrelation returns the mean-removed autocorrelation of x normalized
// by its zero-lag value.
func autocorrelation(x []float64) []float64 {
	n := len(x)
	if n == 0 {
		return nil
	}
	var mean, energy float64
	for _, v := range x {
		mean += v
		energy += v * v
	}
	mean /= float64(n)

	size := 1
	for size < 2*n {
		size <<= 1
	}
	buf := make([]float64, size)
	for i, v := range x {
		buf[i] = v - mean
	}
	fft := fourier.NewFFT(size)
	spec := fft.Coefficients(nil, buf)
	for k, c := range spec {
		spec[k] = complex(real(c)*real(c)+imag(c)*imag(c), 0)
	}
	ac := fft.Sequence(nil, spec)[:n]
	if ac[0] <= 1e-12*float64(size)*energy {
		return make([]float64, n)
	}
	z := ac[0]
	for i := range ac {
		ac[i] /= z
	}
	return ac
}
