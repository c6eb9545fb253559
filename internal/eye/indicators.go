package eye

import (
	"math"

	"github.com/ayusman/samarth/internal/signal"
)

// RiskFactor is one triggered neurological flag.
type RiskFactor struct {
	Type      string `json:"type"`
	Severity  string `json:"severity"`
	Relevance string `json:"relevance"`
}

// Indicators holds the three oculomotor flags and the values behind them.
type Indicators struct {
	SaccadicDysfunction bool         `json:"saccadic_dysfunction"`
	PursuitImpairment   bool         `json:"pursuit_impairment"`
	NystagmusDetected   bool         `json:"nystagmus_detected"`
	SaccadicLatencyMs   float64      `json:"saccadic_latency_ms"`
	PursuitSmoothness   float64      `json:"pursuit_smoothness"`
	NystagmusScore      float64      `json:"nystagmus_score"`
	RiskFactors         []RiskFactor `json:"risk_factors"`
}

// DefaultIndicators is the all-clear result.
func DefaultIndicators() Indicators {
	return Indicators{PursuitSmoothness: 1, RiskFactors: []RiskFactor{}}
}

// NeurologicalIndicators evaluates saccadic latency, pursuit smoothness and
// nystagmus independently.
func (a *Analyzer) NeurologicalIndicators(t *Temporal) (ind Indicators) {
	ind = DefaultIndicators()
	if t == nil || t.Len() == 0 {
		return ind
	}
	defer func() {
		if r := recover(); r != nil {
			a.logger.Warn("neurological indicators fell back to default", "panic", r)
			ind = DefaultIndicators()
		}
	}()

	saccades := a.ClassifySaccades(t.Velocities)
	fixations := a.fixationFrames(t)

	ind.SaccadicLatencyMs = saccadicLatency(saccades, t.Timestamps)
	if ind.SaccadicLatencyMs > a.cfg.SaccadicLatencyMs {
		ind.SaccadicDysfunction = true
		ind.RiskFactors = append(ind.RiskFactors, RiskFactor{
			Type:      "saccadic dysfunction",
			Severity:  severity(ind.SaccadicLatencyMs / a.cfg.SaccadicLatencyMs),
			Relevance: "Prolonged saccadic latency is reported in Parkinson's disease and progressive supranuclear palsy.",
		})
	}

	ind.PursuitSmoothness = pursuitSmoothness(t, saccades, fixations)
	if ind.PursuitSmoothness < a.cfg.PursuitSmoothnessMin {
		ind.PursuitImpairment = true
		ind.RiskFactors = append(ind.RiskFactors, RiskFactor{
			Type:      "pursuit impairment",
			Severity:  severity(a.cfg.PursuitSmoothnessMin / math.Max(ind.PursuitSmoothness, signal.Epsilon)),
			Relevance: "Broken smooth pursuit is associated with cerebellar and basal ganglia disorders.",
		})
	}

	ind.NystagmusScore = a.nystagmusScore(t)
	if ind.NystagmusScore > a.cfg.NystagmusThreshold {
		ind.NystagmusDetected = true
		ind.RiskFactors = append(ind.RiskFactors, RiskFactor{
			Type:      "nystagmus detected",
			Severity:  severity(ind.NystagmusScore / a.cfg.NystagmusThreshold),
			Relevance: "Involuntary oscillation can indicate vestibular or cerebellar involvement, including multiple sclerosis.",
		})
	}
	return ind
}

// severity grades how far past its threshold a value lies.
func severity(ratio float64) string {
	switch {
	case ratio >= 2:
		return "high"
	case ratio >= 1.5:
		return "moderate"
	default:
		return "mild"
	}
}

// saccadicLatency is the mean interval in ms between saccade onsets; 0 with
// fewer than two onsets.
func saccadicLatency(saccades []bool, timestamps []float64) float64 {
	var onsets []float64
	prev := false
	for i, s := range saccades {
		if s && !prev {
			onsets = append(onsets, timestamps[i])
		}
		prev = s
	}
	if len(onsets) < 2 {
		return 0
	}
	return signal.Mean(signal.Diff(onsets)) * 1000
}

// pursuitSmoothness is 1/(1+CV) of the velocities of frames that are
// neither saccade, fixation nor blink; 1 when there is no pursuit.
func pursuitSmoothness(t *Temporal, saccades, fixations []bool) float64 {
	var vel []float64
	for i, v := range t.Velocities {
		if !saccades[i] && !fixations[i] && !t.Blinks[i] {
			vel = append(vel, v)
		}
	}
	if len(vel) < 2 {
		return 1
	}
	return 1 / (1 + signal.CV(vel))
}

// nystagmusScore is the direction-reversal rate of horizontal eye-centre
// motion, ignoring steps smaller than the jitter threshold.
func (a *Analyzer) nystagmusScore(t *Temporal) float64 {
	var dx []float64
	for i := 1; i < len(t.Centers); i++ {
		if t.Blinks[i] || t.Blinks[i-1] {
			continue
		}
		d := t.Centers[i].X - t.Centers[i-1].X
		if math.Abs(d) > a.cfg.NystagmusJitter {
			dx = append(dx, d)
		}
	}
	if len(dx) < 3 {
		return 0
	}
	reversals := 0
	for i := 1; i < len(dx); i++ {
		if (dx[i] > 0) != (dx[i-1] > 0) {
			reversals++
		}
	}
	return float64(reversals) / float64(len(dx)-1)
}
