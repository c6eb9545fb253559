package eye

// Config holds the eye-movement thresholds.
type Config struct {
	FrameRate float64 `toml:"frame_rate"`

	BlinkThreshold   float64 `toml:"blink_threshold"`
	SaccadeVelocity  float64 `toml:"saccade_velocity"`
	FixationFraction float64 `toml:"fixation_fraction"`

	SmoothingWindow int `toml:"smoothing_window"`
	SmoothingOrder  int `toml:"smoothing_order"`

	BaselineAccuracy float64 `toml:"baseline_accuracy"`
	AccuracyMin      float64 `toml:"accuracy_min"`
	AccuracyMax      float64 `toml:"accuracy_max"`
	// DispersionScale is the fixation dispersion (px) at which positional
	// stability drops to one half.
	DispersionScale float64 `toml:"dispersion_scale"`

	SaccadicLatencyMs    float64 `toml:"saccadic_latency_ms"`
	PursuitSmoothnessMin float64 `toml:"pursuit_smoothness_min"`
	NystagmusThreshold   float64 `toml:"nystagmus_threshold"`
	NystagmusJitter      float64 `toml:"nystagmus_jitter"`

	MaxBlinkRate         float64 `toml:"max_blink_rate"`
	MaxPlausibleVelocity float64 `toml:"max_plausible_velocity"`
}

// DefaultConfig returns the clinical defaults.
func DefaultConfig() Config {
	return Config{
		FrameRate:            30,
		BlinkThreshold:       0.25,
		SaccadeVelocity:      100,
		FixationFraction:     0.1,
		SmoothingWindow:      5,
		SmoothingOrder:       2,
		BaselineAccuracy:     75,
		AccuracyMin:          50,
		AccuracyMax:          99,
		DispersionScale:      20,
		SaccadicLatencyMs:    200,
		PursuitSmoothnessMin: 0.85,
		NystagmusThreshold:   0.3,
		NystagmusJitter:      0.5,
		MaxBlinkRate:         0.3,
		MaxPlausibleVelocity: 1000,
	}
}

// FixationVelocity is the velocity below which a frame counts as fixation.
func (c Config) FixationVelocity() float64 {
	return c.SaccadeVelocity * c.FixationFraction
}
