// Package tremor turns a sequence of fingertip positions into a dominant
// tremor frequency, amplitude and clinical classification.
package tremor

import (
	"fmt"
	"log/slog"
	"math"

	"gocv.io/x/gocv"
	"golang.org/x/sync/errgroup"

	"github.com/ayusman/samarth/internal/detector"
	"github.com/ayusman/samarth/internal/geom"
	"github.com/ayusman/samarth/internal/signal"
)

// NoHandError is reported when no frame contained a hand.
const NoHandError = "No hand detected"

// HandPosition holds the tracked points of one hand in one frame.
type HandPosition struct {
	IndexTip   geom.Point2D `json:"index_tip"`
	Wrist      geom.Point2D `json:"wrist"`
	Palm       geom.Point2D `json:"palm"`
	Handedness string       `json:"handedness"`
}

// Session accumulates positions across calls. It is a plain value so it
// can be stored between requests; callers serialize access per session.
type Session struct {
	Positions []geom.Point2D `json:"positions"`
	FrameRate float64        `json:"frame_rate,omitempty"`
}

// AddPosition appends one tracked position.
func (s *Session) AddPosition(p geom.Point2D) {
	s.Positions = append(s.Positions, p)
}

// Clear drops every recorded position.
func (s *Session) Clear() {
	s.Positions = nil
}

// Len returns the number of recorded positions.
func (s *Session) Len() int {
	return len(s.Positions)
}

// Metrics is the tremor analysis output.
type Metrics struct {
	Frequency       float64           `json:"tremor_frequency"`
	Amplitude       float64           `json:"tremor_amplitude"`
	Type            string            `json:"tremor_type"`
	Severity        string            `json:"severity"`
	Confidence      float64           `json:"confidence"`
	FrequencyMethod FrequencyStrategy `json:"frequency_method"`
	Regularity      float64           `json:"regularity"`
	Stability       float64           `json:"stability"`
	PeakCount       int               `json:"peak_count"`
	FrameCount      int               `json:"frame_count"`
	MeanVelocity    float64           `json:"mean_velocity"`
	Score           float64           `json:"tremor_score"`
	ClinicalInsight string            `json:"clinical_insight"`
}

// DefaultMetrics is returned when there are too few positions to analyze.
func DefaultMetrics() Metrics {
	return Metrics{
		Type:            TypeNone,
		Severity:        SeverityNone,
		FrequencyMethod: StrategyNoTremor,
		ClinicalInsight: NoTremorInsight,
	}
}

// Result wraps Metrics for the serialization boundary.
type Result struct {
	Success bool     `json:"success"`
	Error   string   `json:"error,omitempty"`
	Metrics *Metrics `json:"metrics,omitempty"`
}

// Analyzer holds configuration and the hand detector; it keeps no
// per-session state.
type Analyzer struct {
	cfg    Config
	hands  detector.HandDetector
	logger *slog.Logger
}

// NewAnalyzer creates a tremor analyzer. hands may be nil when only
// pre-tracked positions are analyzed.
func NewAnalyzer(cfg Config, hands detector.HandDetector, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{cfg: cfg, hands: hands, logger: logger}
}

// Config returns the analyzer configuration.
func (a *Analyzer) Config() Config {
	return a.cfg
}

// ProcessFrame detects the first hand in frame. Returns nil if no hand is found.
func (a *Analyzer) ProcessFrame(frame *gocv.Mat) (*HandPosition, error) {
	if a.hands == nil {
		return nil, fmt.Errorf("no hand detector configured")
	}
	hands, err := a.hands.DetectHands(frame)
	if err != nil {
		return nil, fmt.Errorf("detect hands: %w", err)
	}
	if len(hands) == 0 {
		return nil, nil
	}
	h := hands[0]
	return &HandPosition{
		IndexTip:   h.Points[detector.IndexTip].XY(),
		Wrist:      h.Points[detector.Wrist].XY(),
		Palm:       h.PalmCenter(),
		Handedness: h.Handedness,
	}, nil
}

// Track processes one frame and records the index fingertip in s.
// It reports whether a hand was found.
func (a *Analyzer) Track(s *Session, frame *gocv.Mat) (bool, error) {
	pos, err := a.ProcessFrame(frame)
	if err != nil || pos == nil {
		return false, err
	}
	a.Record(s, pos.IndexTip)
	return true, nil
}

// Record appends p to s, keeping at most MaxPositions of the newest points.
func (a *Analyzer) Record(s *Session, p geom.Point2D) {
	s.AddPosition(p)
	if limit := a.cfg.MaxPositions; limit > 0 && len(s.Positions) > limit {
		s.Positions = s.Positions[len(s.Positions)-limit:]
	}
}

// AnalyzeFrames tracks a whole clip in a fresh session and analyzes it.
func (a *Analyzer) AnalyzeFrames(frames []*gocv.Mat, frameRate float64) Result {
	s := &Session{FrameRate: frameRate}
	detected := 0
	for i, frame := range frames {
		ok, err := a.Track(s, frame)
		if err != nil {
			a.logger.Warn("tremor frame skipped", "frame", i, "error", err)
			continue
		}
		if ok {
			detected++
		}
	}
	if detected == 0 {
		return Result{Success: false, Error: NoHandError}
	}
	return a.AnalyzeSession(s)
}

// AnalyzeSession analyzes the recorded positions and clears the session.
func (a *Analyzer) AnalyzeSession(s *Session) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("tremor analysis failed", "panic", r)
			res = Result{Success: false, Error: fmt.Sprint(r)}
		}
		if s != nil {
			s.Clear()
		}
	}()

	m := a.AnalyzeAt(s.Positions, s.FrameRate)
	return Result{Success: true, Metrics: &m}
}

// Analyze runs the tremor pipeline at the configured frame rate.
func (a *Analyzer) Analyze(positions []geom.Point2D) Metrics {
	return a.AnalyzeAt(positions, a.cfg.FrameRate)
}

// AnalyzeAt runs the tremor pipeline on positions sampled at frameRate.
// It does not modify positions and returns DefaultMetrics when fewer than
// MinFrames positions are given.
func (a *Analyzer) AnalyzeAt(positions []geom.Point2D, frameRate float64) Metrics {
	if len(positions) < a.cfg.MinFrames || len(positions) < 3 {
		return DefaultMetrics()
	}
	if frameRate <= 0 {
		frameRate = a.cfg.FrameRate
	}

	x := make([]float64, len(positions))
	y := make([]float64, len(positions))
	for i, p := range positions {
		x[i], y[i] = p.X, p.Y
	}
	x, y = signal.RejectOutliers(x, y, a.cfg.MinFrames)

	fx := signal.Bandpass(signal.Normalize(x), a.cfg.BandLowHz, a.cfg.BandHighHz, frameRate, a.cfg.FilterOrder)
	fy := signal.Bandpass(signal.Normalize(y), a.cfg.BandLowHz, a.cfg.BandHighHz, frameRate, a.cfg.FilterOrder)
	disp := dominantAxis(fx, fy)
	vel, acc := kinematics(x, y)

	f := &features{
		meanVel:   signal.Mean(vel),
		meanAcc:   signal.Mean(acc),
		frameRate: frameRate,
	}

	var g errgroup.Group
	g.Go(func() error {
		f.fft = signal.SpectrumFFT(signal.Hann(disp), frameRate)
		f.fftPeaks = signal.FindPeaks(f.fft.Mags, a.cfg.PeakHeightRatio, a.cfg.PeakProminenceRatio, a.cfg.PeakMinDistance)
		return nil
	})
	g.Go(func() error {
		f.welch = signal.SpectrumWelch(disp, frameRate, signal.WelchSegment(len(disp)))
		f.welchPeaks = signal.FindPeaks(f.welch.Mags, a.cfg.PeakHeightRatio, a.cfg.PeakProminenceRatio, a.cfg.PeakMinDistance)
		return nil
	})
	_ = g.Wait()

	freq, method := a.selectFrequency(f)

	m := Metrics{
		Frequency:       freq,
		FrequencyMethod: method,
		FrameCount:      len(x),
		MeanVelocity:    f.meanVel,
		PeakCount:       len(f.fftPeaks),
		Regularity:      Regularity(f.fft, f.fftPeaks),
		Stability:       Stability(disp),
		Type:            TypeNone,
	}
	if method != StrategyNoTremor {
		m.Amplitude = a.amplitude(disp, vel, f.meanAcc, f.meanVel)
		m.Type = a.ClassifyType(freq)
	}
	m.Severity = a.ClassifySeverity(m.Amplitude, m.Type)
	m.Confidence = a.Confidence(m.FrameCount, m.MeanVelocity, m.PeakCount, m.Regularity, m.Stability)
	m.ClinicalInsight = ClinicalInsight(m.Frequency, m.Type, m.Amplitude, m.Severity)
	m.Score = Score(m)
	return m
}

// amplitude blends displacement spread, velocity spread and mean
// acceleration, with a velocity-scaled floor for large movements.
func (a *Analyzer) amplitude(disp, vel []float64, meanAcc, meanVel float64) float64 {
	b := a.cfg.Amplitude
	amp := b.DisplacementWeight*signal.Std(disp)*b.DisplacementScale +
		b.VelocityWeight*signal.Std(vel)*b.VelocityScale +
		b.AccelerationWeight*meanAcc*b.AccelerationScale
	amp = math.Min(amp, a.cfg.AmplitudeCap)

	if a.cfg.LargeMovementVelocity > 0 && meanVel > a.cfg.LargeMovementVelocity {
		floor := a.cfg.AmplitudeFloor * meanVel / a.cfg.LargeMovementVelocity
		amp = math.Max(amp, math.Min(floor, a.cfg.AmplitudeCap))
	}
	if !signal.Finite(amp) || amp < 0 {
		return 0
	}
	return amp
}

// dominantAxis projects the filtered displacement onto its principal
// direction, keeping the sign so the oscillation frequency is preserved.
func dominantAxis(x, y []float64) []float64 {
	var cxx, cyy, cxy float64
	mx, my := signal.Mean(x), signal.Mean(y)
	for i := range x {
		dx, dy := x[i]-mx, y[i]-my
		cxx += dx * dx
		cyy += dy * dy
		cxy += dx * dy
	}
	theta := 0.5 * math.Atan2(2*cxy, cxx-cyy)
	c, s := math.Cos(theta), math.Sin(theta)

	out := make([]float64, len(x))
	for i := range x {
		out[i] = (x[i]-mx)*c + (y[i]-my)*s
	}
	return out
}

// kinematics returns per-frame speed |Δp| and acceleration |Δ²p| in pixels.
func kinematics(x, y []float64) ([]float64, []float64) {
	n := len(x)
	if n < 2 {
		return nil, nil
	}
	vel := make([]float64, n-1)
	for i := 1; i < n; i++ {
		vel[i-1] = math.Hypot(x[i]-x[i-1], y[i]-y[i-1])
	}
	if n < 3 {
		return vel, nil
	}
	acc := make([]float64, n-2)
	for i := 1; i < n-1; i++ {
		acc[i-1] = math.Hypot(x[i+1]-2*x[i]+x[i-1], y[i+1]-2*y[i]+y[i-1])
	}
	return vel, acc
}
