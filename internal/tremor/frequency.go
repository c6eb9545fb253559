package tremor

import (
	"math"

	"github.com/ayusman/samarth/internal/signal"
)

// FrequencyStrategy names how the dominant frequency was chosen.
type FrequencyStrategy string

// Strategies in priority order.
const (
	StrategySpectralFFT      FrequencyStrategy = "spectral_fft"
	StrategySpectralWelch    FrequencyStrategy = "spectral_welch"
	StrategyStatisticalProxy FrequencyStrategy = "statistical_proxy"
	StrategyNoTremor         FrequencyStrategy = "no_tremor"
)

// features carries everything the strategies look at.
type features struct {
	fft        signal.Spectrum
	welch      signal.Spectrum
	fftPeaks   []int
	welchPeaks []int
	meanVel    float64 // px/frame
	meanAcc    float64 // px/frame²
	frameRate  float64
}

type estimator struct {
	strategy FrequencyStrategy
	estimate func(f *features) (float64, bool)
}

// strategies returns the estimators in the order they are tried.
func (a *Analyzer) strategies() []estimator {
	return []estimator{
		{StrategySpectralFFT, a.fromFFT},
		{StrategySpectralWelch, a.fromWelch},
		{StrategyStatisticalProxy, a.fromKinematics},
		{StrategyNoTremor, func(*features) (float64, bool) { return 0, true }},
	}
}

func (a *Analyzer) selectFrequency(f *features) (float64, FrequencyStrategy) {
	for _, e := range a.strategies() {
		if freq, ok := e.estimate(f); ok {
			return freq, e.strategy
		}
	}
	return 0, StrategyNoTremor
}

// fromFFT takes the strongest FFT peak inside the clinical band. When the
// overall top peak is out of band this is the best in-band runner-up.
func (a *Analyzer) fromFFT(f *features) (float64, bool) {
	i := signal.StrongestIn(f.fft, f.fftPeaks, a.cfg.BandLowHz, a.cfg.BandHighHz)
	if i < 0 || f.fft.Freqs[i] <= 0 {
		return 0, false
	}
	return f.fft.Freqs[i], true
}

func (a *Analyzer) fromWelch(f *features) (float64, bool) {
	i := signal.StrongestIn(f.welch, f.welchPeaks, a.cfg.BandLowHz, a.cfg.BandHighHz)
	if i < 0 || f.welch.Freqs[i] <= 0 {
		return 0, false
	}
	return f.welch.Freqs[i], true
}

// fromKinematics estimates frequency from the ratio of mean acceleration to
// mean velocity: for a sinusoid at ω rad/frame the ratio approaches ω.
func (a *Analyzer) fromKinematics(f *features) (float64, bool) {
	if f.meanVel <= a.cfg.MinMovement || f.meanVel <= 0 {
		return 0, false
	}
	freq := f.frameRate * f.meanAcc / (2 * math.Pi * f.meanVel)
	hi := a.cfg.BandHighHz
	if nyq := f.frameRate / 2; nyq < hi {
		hi = nyq
	}
	return signal.Clamp(freq, a.cfg.BandLowHz, hi), true
}
