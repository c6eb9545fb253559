package speech

// ClarityWeights weights the five clarity components.
type ClarityWeights struct {
	MFCC     float64 `toml:"mfcc"`
	Contrast float64 `toml:"contrast"`
	ZCR      float64 `toml:"zcr"`
	Rolloff  float64 `toml:"rolloff"`
	Envelope float64 `toml:"envelope"`
}

// Config holds the framing parameters and every speech threshold.
type Config struct {
	HopLength   int `toml:"hop_length"`
	FrameLength int `toml:"frame_length"`

	PitchMinHz       float64 `toml:"pitch_min_hz"`
	PitchMaxHz       float64 `toml:"pitch_max_hz"`
	VoicingThreshold float64 `toml:"voicing_threshold"`

	VolumeMinDB float64 `toml:"volume_min_db"`
	VolumeMaxDB float64 `toml:"volume_max_db"`
	TopDB       float64 `toml:"top_db"`

	MinPause   float64 `toml:"min_pause"`
	MaxPause   float64 `toml:"max_pause"`
	TargetRate float64 `toml:"target_rate"`

	NumMFCC int `toml:"num_mfcc"`
	NumMels int `toml:"num_mels"`

	Clarity         ClarityWeights `toml:"clarity"`
	ClarityExponent float64        `toml:"clarity_exponent"`

	// IndicatorThresholds flag an indicator once its score reaches the value.
	IndicatorThresholds map[string]float64 `toml:"indicator_thresholds"`

	// MaxContourPoints bounds the time series contours in the result.
	MaxContourPoints int `toml:"max_contour_points"`
}

// Neurological indicator names.
const (
	IndicatorDysprosody             = "dysprosody"
	IndicatorArticulationDifficulty = "articulation_difficulty"
	IndicatorAbnormalRhythm         = "abnormal_rhythm"
	IndicatorVoiceQualityIssues     = "voice_quality_issues"
	IndicatorBreathingPatterns      = "breathing_patterns"
)

// DefaultConfig returns the defaults tuned for speech at 16-48 kHz.
func DefaultConfig() Config {
	return Config{
		HopLength:        512,
		FrameLength:      2048,
		PitchMinHz:       50,
		PitchMaxHz:       500,
		VoicingThreshold: 0.3,
		VolumeMinDB:      -90,
		VolumeMaxDB:      -10,
		TopDB:            80,
		MinPause:         0.2,
		MaxPause:         2.0,
		TargetRate:       150,
		NumMFCC:          13,
		NumMels:          40,
		Clarity: ClarityWeights{
			MFCC:     0.3,
			Contrast: 0.25,
			ZCR:      0.2,
			Rolloff:  0.15,
			Envelope: 0.1,
		},
		ClarityExponent: 1.2,
		IndicatorThresholds: map[string]float64{
			IndicatorDysprosody:             0.7,
			IndicatorArticulationDifficulty: 0.65,
			IndicatorAbnormalRhythm:         0.6,
			IndicatorVoiceQualityIssues:     0.7,
			IndicatorBreathingPatterns:      0.65,
		},
		MaxContourPoints: 500,
	}
}
