package face

import (
	"math"

	"github.com/ayusman/samarth/internal/signal"
)

// Risk tiers.
const (
	RiskLow      = "low"
	RiskModerate = "moderate"
	RiskHigh     = "high"
)

// RiskScore is a heuristic pattern score and its tier.
type RiskScore struct {
	Score float64 `json:"score"`
	Risk  string  `json:"risk"`
}

// Indicators holds the three asymmetry patterns and the overall risk.
type Indicators struct {
	BellsPalsy RiskScore `json:"bells_palsy"`
	Stroke     RiskScore `json:"stroke"`
	Parkinsons RiskScore `json:"parkinsons"`
	Overall    RiskScore `json:"overall"`
}

// Tier maps a pattern score to low, moderate or high.
func (a *Analyzer) Tier(score float64) string {
	switch {
	case score >= a.cfg.RiskHigh:
		return RiskHigh
	case score >= a.cfg.RiskModerate:
		return RiskModerate
	default:
		return RiskLow
	}
}

func (a *Analyzer) risk(score float64) RiskScore {
	return RiskScore{Score: score, Risk: a.Tier(score)}
}

// NeurologicalIndicators derives the pattern scores from the component
// metrics. The Parkinson's-like score is the overall asymmetry that the
// palsy and stroke patterns do not explain.
func (a *Analyzer) NeurologicalIndicators(symmetryScore float64, eye EyeMetrics, mouth MouthMetrics, brow EyebrowMetrics) Indicators {
	droop := mouth.DroopRatio
	eyeSize := 1 - eye.AreaRatio
	mouthDev := math.Min(1, mouth.CenterDeviation)
	browHeight := 1 - brow.HeightRatio

	bells := signal.Clamp(0.6*droop+0.4*eyeSize, 0, 1)
	stroke := signal.Clamp(0.4*mouthDev+0.3*browHeight+0.3*eyeSize, 0, 1)

	asymmetry := 1 - symmetryScore/100
	parkinsons := signal.Clamp(asymmetry-(bells+stroke)/2, 0, a.cfg.ParkinsonsCap)

	return Indicators{
		BellsPalsy: a.risk(bells),
		Stroke:     a.risk(stroke),
		Parkinsons: a.risk(parkinsons),
		Overall:    a.risk(math.Max(bells, math.Max(stroke, parkinsons))),
	}
}
