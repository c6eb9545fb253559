package tremor

// Band maps a half-open value range [Min, Max) to a label.
type Band struct {
	Name string  `toml:"name"`
	Min  float64 `toml:"min"`
	Max  float64 `toml:"max"`
}

// Blend weights and scales the three amplitude components.
type Blend struct {
	DisplacementWeight float64 `toml:"displacement_weight"`
	DisplacementScale  float64 `toml:"displacement_scale"`
	VelocityWeight     float64 `toml:"velocity_weight"`
	VelocityScale      float64 `toml:"velocity_scale"`
	AccelerationWeight float64 `toml:"acceleration_weight"`
	AccelerationScale  float64 `toml:"acceleration_scale"`
}

// ConfidenceWeights weights the four confidence factors.
type ConfidenceWeights struct {
	Frames   float64 `toml:"frames"`
	Movement float64 `toml:"movement"`
	Peaks    float64 `toml:"peaks"`
	Pattern  float64 `toml:"pattern"`
}

// Config holds every tremor threshold.
type Config struct {
	MinFrames    int     `toml:"min_frames"`
	MaxPositions int     `toml:"max_positions"`
	FrameRate    float64 `toml:"frame_rate"`

	BandLowHz   float64 `toml:"band_low_hz"`
	BandHighHz  float64 `toml:"band_high_hz"`
	FilterOrder int     `toml:"filter_order"`

	PeakHeightRatio     float64 `toml:"peak_height_ratio"`
	PeakProminenceRatio float64 `toml:"peak_prominence_ratio"`
	PeakMinDistance     int     `toml:"peak_min_distance"`
	MaxAdequatePeaks    int     `toml:"max_adequate_peaks"`

	// MinMovement is the mean velocity (px/frame) below which a hand is still.
	MinMovement float64 `toml:"min_movement"`

	Amplitude             Blend   `toml:"amplitude"`
	AmplitudeCap          float64 `toml:"amplitude_cap"`
	AmplitudeFloor        float64 `toml:"amplitude_floor"`
	LargeMovementVelocity float64 `toml:"large_movement_velocity"`

	IdealFrames   int               `toml:"ideal_frames"`
	IdealVelocity float64           `toml:"ideal_velocity"`
	Confidence    ConfidenceWeights `toml:"confidence"`

	TypeBands           []Band             `toml:"type_bands"`
	SeverityBands       []Band             `toml:"severity_bands"`
	SeverityMultipliers map[string]float64 `toml:"severity_multipliers"`
}

// Tremor types.
const (
	TypeNone     = "None"
	TypeVerySlow = "Very Slow"
	TypeSlow     = "Slow"
	TypeResting  = "Resting"
	TypePostural = "Postural"
	TypeAction   = "Action/Intention"
)

// Severity labels.
const (
	SeverityNone       = "None"
	SeverityMild       = "Mild"
	SeverityModerate   = "Moderate"
	SeveritySevere     = "Severe"
	SeverityVerySevere = "Very Severe"
)

// DefaultConfig returns the clinical defaults.
func DefaultConfig() Config {
	return Config{
		MinFrames:    30,
		MaxPositions: 300,
		FrameRate:    30,

		BandLowHz:   0.5,
		BandHighHz:  20,
		FilterOrder: 4,

		PeakHeightRatio:     0.1,
		PeakProminenceRatio: 0.05,
		PeakMinDistance:     2,
		MaxAdequatePeaks:    3,

		MinMovement: 0.5,

		Amplitude: Blend{
			DisplacementWeight: 0.5, DisplacementScale: 100,
			VelocityWeight: 0.3, VelocityScale: 1.2,
			AccelerationWeight: 0.2, AccelerationScale: 0.8,
		},
		AmplitudeCap:          80,
		AmplitudeFloor:        15,
		LargeMovementVelocity: 15,

		IdealFrames:   90,
		IdealVelocity: 5,
		Confidence:    ConfidenceWeights{Frames: 0.2, Movement: 0.3, Peaks: 0.3, Pattern: 0.2},

		TypeBands: []Band{
			{Name: TypeVerySlow, Min: 0, Max: 2},
			{Name: TypeSlow, Min: 2, Max: 4},
			{Name: TypeResting, Min: 4, Max: 7},
			{Name: TypePostural, Min: 7, Max: 12},
			{Name: TypeAction, Min: 12, Max: 20},
		},
		SeverityBands: []Band{
			{Name: SeverityNone, Min: 0, Max: 5},
			{Name: SeverityMild, Min: 5, Max: 20},
			{Name: SeverityModerate, Min: 20, Max: 40},
			{Name: SeveritySevere, Min: 40, Max: 60},
			{Name: SeverityVerySevere, Min: 60, Max: 100},
		},
		SeverityMultipliers: map[string]float64{
			TypeResting:  1.2,
			TypeVerySlow: 0.9,
		},
	}
}
