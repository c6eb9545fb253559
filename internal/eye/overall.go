package eye

// Task phases of the eye assessment.
const (
	PhaseCalibration = "CALIBRATION"
	PhaseSaccadic    = "SACCADIC_TEST"
	PhasePursuit     = "PURSUIT_TEST"
	PhaseFixation    = "FIXATION_TEST"
)

// Phases lists every phase in presentation order.
var Phases = []string{PhaseCalibration, PhaseSaccadic, PhasePursuit, PhaseFixation}

// OverallScore is the composite across task phases.
type OverallScore struct {
	VelocityScore   float64 `json:"velocity_score"`
	AccuracyScore   float64 `json:"accuracy_score"`
	SmoothnessScore float64 `json:"smoothness_score"`
	CompositeScore  float64 `json:"composite_score"`
}

// Overall averages the positive per-phase values of velocity, accuracy and
// smoothness and blends them 0.3/0.4/0.3. Missing phases are ignored;
// accuracy defaults to the baseline when no phase reports it.
func (a *Analyzer) Overall(phases map[string]Summary) OverallScore {
	avg := func(get func(Summary) float64, fallback float64) float64 {
		var sum float64
		n := 0
		for _, p := range Phases {
			s, ok := phases[p]
			if !ok {
				continue
			}
			if v := get(s); v > 0 {
				sum += v
				n++
			}
		}
		if n == 0 {
			return fallback
		}
		return sum / float64(n)
	}

	o := OverallScore{
		VelocityScore:   avg(func(s Summary) float64 { return s.MeanVelocity }, 0),
		AccuracyScore:   avg(func(s Summary) float64 { return s.Accuracy }, a.cfg.BaselineAccuracy),
		SmoothnessScore: avg(func(s Summary) float64 { return s.MovementSmoothness }, 0),
	}
	o.CompositeScore = o.VelocityScore*0.3 + o.AccuracyScore*0.4 + o.SmoothnessScore*0.3
	return o
}
