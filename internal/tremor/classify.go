package tremor

import (
	"math"
	"sort"

	"github.com/ayusman/samarth/internal/signal"
)

// ClassifyType maps a dominant frequency onto the configured type bands.
func (a *Analyzer) ClassifyType(freq float64) string {
	if freq <= 0 {
		return TypeNone
	}
	for _, b := range a.cfg.TypeBands {
		if freq >= b.Min && freq < b.Max {
			return b.Name
		}
	}
	return TypeNone
}

// ClassifySeverity bands the amplitude after applying the type multiplier.
// Values past the last band take the last label. A movement outside every
// type band has no severity.
func (a *Analyzer) ClassifySeverity(amplitude float64, tremorType string) string {
	bands := a.cfg.SeverityBands
	if len(bands) == 0 || tremorType == TypeNone {
		return SeverityNone
	}
	if m, ok := a.cfg.SeverityMultipliers[tremorType]; ok {
		amplitude *= m
	}
	for _, b := range bands {
		if amplitude < b.Max {
			return b.Name
		}
	}
	return bands[len(bands)-1].Name
}

// Confidence blends frame-count adequacy, closeness of the movement to the
// ideal magnitude, peak-detection adequacy and pattern consistency.
func (a *Analyzer) Confidence(frames int, meanVel float64, peaks int, regularity, stability float64) float64 {
	frameScore := 1.0
	if a.cfg.IdealFrames > 0 {
		frameScore = math.Min(1, float64(frames)/float64(a.cfg.IdealFrames))
	}

	movementScore := 0.0
	if a.cfg.IdealVelocity > 0 {
		movementScore = 1 - math.Min(1, math.Abs(meanVel-a.cfg.IdealVelocity)/a.cfg.IdealVelocity)
	}

	var peakScore float64
	switch {
	case peaks <= 0:
		peakScore = 0
	case peaks <= a.cfg.MaxAdequatePeaks:
		peakScore = 1
	default:
		peakScore = float64(a.cfg.MaxAdequatePeaks) / float64(peaks)
	}

	w := a.cfg.Confidence
	c := w.Frames*frameScore + w.Movement*movementScore + w.Peaks*peakScore +
		w.Pattern*(regularity+stability)/2
	return signal.Clamp(c, 0, 1)
}

// Regularity is 1 minus the coefficient of variation of the spacing between
// detected peak frequencies; 0.5 when fewer than two peaks exist.
func Regularity(spec signal.Spectrum, peaks []int) float64 {
	if len(peaks) < 2 {
		return 0.5
	}
	freqs := make([]float64, 0, len(peaks))
	for _, p := range peaks {
		if p >= 0 && p < spec.Len() {
			freqs = append(freqs, spec.Freqs[p])
		}
	}
	if len(freqs) < 2 {
		return 0.5
	}
	sort.Float64s(freqs)
	return 1 - math.Min(1, signal.CV(signal.Diff(freqs)))
}

// Stability is 1 minus the coefficient of variation of the standard
// deviations of quarter-length windows with 50% overlap; 0.5 when the
// signal is too short to split.
func Stability(disp []float64) float64 {
	win := len(disp) / 4
	if win < 4 {
		return 0.5
	}
	step := win / 2
	var stds []float64
	for start := 0; start+win <= len(disp); start += step {
		stds = append(stds, signal.Std(disp[start:start+win]))
	}
	if len(stds) < 2 {
		return 0.5
	}
	return 1 - math.Min(1, signal.CV(stds))
}

var insights = map[string]string{
	TypeVerySlow: "Very slow oscillation, more consistent with voluntary drift than with a neurological tremor.",
	TypeSlow:     "Slow tremor pattern, which can accompany cerebellar or midbrain involvement.",
	TypeResting:  "Tremor in the resting frequency range, a pattern commonly associated with Parkinson's disease.",
	TypePostural: "Tremor in the postural frequency range, a pattern commonly associated with essential tremor.",
	TypeAction:   "Fast action tremor, consistent with enhanced physiological or intention tremor.",
}

// NoTremorInsight is reported when no tremor type or severity applies.
const NoTremorInsight = "No significant tremor detected."

// ClinicalInsight returns the fixed sentence for a tremor type.
func ClinicalInsight(freq float64, tremorType string, amplitude float64, severity string) string {
	if tremorType == TypeNone || severity == SeverityNone || freq <= 0 || amplitude <= 0 {
		return NoTremorInsight
	}
	if s, ok := insights[tremorType]; ok {
		return s
	}
	return NoTremorInsight
}

// Score is the headline 0-100 tremor score: frequency contributes 40% and
// amplitude 60%.
func Score(m Metrics) float64 {
	freqScore := math.Min(100, m.Frequency*8.33)
	ampScore := math.Min(100, m.Amplitude)
	return freqScore*0.4 + ampScore*0.6
}
