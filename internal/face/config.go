package face

// EyeWeights weights the eye symmetry factors.
type EyeWeights struct {
	VerticalAlignment float64 `toml:"vertical_alignment"`
	AreaRatio         float64 `toml:"area_ratio"`
	MidlineDistance   float64 `toml:"midline_distance"`
}

// MouthWeights weights the mouth symmetry factors.
type MouthWeights struct {
	CenterDeviation float64 `toml:"center_deviation"`
	CornerAlignment float64 `toml:"corner_alignment"`
	Droop           float64 `toml:"droop"`
}

// JawWeights weights the jaw symmetry factors.
type JawWeights struct {
	ChinDeviation float64 `toml:"chin_deviation"`
	AngleDiff     float64 `toml:"angle_difference"`
	ContourRatio  float64 `toml:"contour_ratio"`
}

// EyebrowWeights weights the eyebrow symmetry factors.
type EyebrowWeights struct {
	VerticalAlignment float64 `toml:"vertical_alignment"`
	MidlineDistance   float64 `toml:"midline_distance"`
	HeightRatio       float64 `toml:"height_ratio"`
}

// CompositeWeights weights the four components in the headline score.
type CompositeWeights struct {
	Eye     float64 `toml:"eye"`
	Mouth   float64 `toml:"mouth"`
	Jaw     float64 `toml:"jaw"`
	Eyebrow float64 `toml:"eyebrow"`
}

// Config holds the facial symmetry weights and risk tiers.
type Config struct {
	Eye       EyeWeights       `toml:"eye"`
	Mouth     MouthWeights     `toml:"mouth"`
	Jaw       JawWeights       `toml:"jaw"`
	Eyebrow   EyebrowWeights   `toml:"eyebrow"`
	Composite CompositeWeights `toml:"composite"`

	// JawAngleToleranceDeg is the left/right jaw angle difference that
	// scores zero.
	JawAngleToleranceDeg float64 `toml:"jaw_angle_tolerance_deg"`

	RiskModerate  float64 `toml:"risk_moderate"`
	RiskHigh      float64 `toml:"risk_high"`
	ParkinsonsCap float64 `toml:"parkinsons_cap"`
}

// DefaultConfig returns the clinical defaults.
func DefaultConfig() Config {
	return Config{
		Eye:       EyeWeights{VerticalAlignment: 0.4, AreaRatio: 0.3, MidlineDistance: 0.3},
		Mouth:     MouthWeights{CenterDeviation: 0.4, CornerAlignment: 0.4, Droop: 0.2},
		Jaw:       JawWeights{ChinDeviation: 0.3, AngleDiff: 0.4, ContourRatio: 0.3},
		Eyebrow:   EyebrowWeights{VerticalAlignment: 0.4, MidlineDistance: 0.4, HeightRatio: 0.2},
		Composite: CompositeWeights{Eye: 0.35, Mouth: 0.25, Jaw: 0.2, Eyebrow: 0.2},

		JawAngleToleranceDeg: 45,

		RiskModerate:  0.25,
		RiskHigh:      0.4,
		ParkinsonsCap: 0.6,
	}
}
