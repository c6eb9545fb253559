// Package neck measures cervical range of motion from pose landmarks across
// a calibrate-then-measure session.
package neck

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"gocv.io/x/gocv"

	"github.com/ayusman/samarth/internal/detector"
	"github.com/ayusman/samarth/internal/geom"
	"github.com/ayusman/samarth/internal/signal"
)

// Errors reported by the session operations.
var (
	ErrNotCalibrated = errors.New("Neutral position not set")
	ErrNoPose        = errors.New("No pose detected")
	ErrUnknownKind   = errors.New("unknown measurement type")
)

// Config holds the population-normal ranges.
type Config struct {
	NormalFlexion   float64 `toml:"normal_flexion"`
	NormalExtension float64 `toml:"normal_extension"`
	NormalRotation  float64 `toml:"normal_rotation"`
	MaxAngle        float64 `toml:"max_angle"`
	// ExcessFactor caps flexion and extension maxima at this multiple of
	// the normal range.
	ExcessFactor float64 `toml:"excess_factor"`
}

// DefaultConfig returns the clinical defaults.
func DefaultConfig() Config {
	return Config{
		NormalFlexion:   40,
		NormalExtension: 50,
		NormalRotation:  70,
		MaxAngle:        90,
		ExcessFactor:    1.5,
	}
}

// State is the calibration state of a session.
type State string

const (
	Uncalibrated State = "uncalibrated"
	Calibrated   State = "calibrated"
)

// Kind names a measurement.
type Kind string

const (
	Flexion   Kind = "flexion"
	Extension Kind = "extension"
	Rotation  Kind = "rotation"
)

// Session carries the neutral angle and the running maxima. Nil fields have
// not been observed yet.
type Session struct {
	NeutralAngle     *float64 `json:"neutral_angle,omitempty"`
	MaxFlexion       *float64 `json:"max_flexion,omitempty"`
	MaxExtension     *float64 `json:"max_extension,omitempty"`
	MaxLeftRotation  *float64 `json:"max_left_rotation,omitempty"`
	MaxRightRotation *float64 `json:"max_right_rotation,omitempty"`
}

// State reports whether the session has a neutral angle.
func (s *Session) State() State {
	if s == nil || s.NeutralAngle == nil {
		return Uncalibrated
	}
	return Calibrated
}

// Reset returns the session to Uncalibrated.
func (s *Session) Reset() {
	*s = Session{}
}

func raise(slot **float64, v float64) {
	if *slot == nil || v > **slot {
		*slot = &v
	}
}

func value(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// Analyzer computes neck angles. All per-subject state lives in Session.
type Analyzer struct {
	cfg    Config
	poses  detector.PoseDetector
	logger *slog.Logger
}

// NewAnalyzer creates a neck mobility analyzer.
func NewAnalyzer(cfg Config, poses detector.PoseDetector, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{cfg: cfg, poses: poses, logger: logger}
}

// NeckAngle is the signed angle in degrees between the shoulder→ear vector
// and straight up, clamped to ±MaxAngle.
func (a *Analyzer) NeckAngle(pose *detector.PoseLandmarks) float64 {
	ears := geom.Midpoint(pose.Points[detector.PoseLeftEar], pose.Points[detector.PoseRightEar])
	shoulders := geom.Midpoint(pose.Points[detector.PoseLeftShoulder], pose.Points[detector.PoseRightShoulder])
	dx, dy := ears.X-shoulders.X, ears.Y-shoulders.Y
	angle := -math.Atan2(dx, -dy) * 180 / math.Pi
	return signal.Clamp(angle, -a.cfg.MaxAngle, a.cfg.MaxAngle)
}

// LateralAngle is the ear line's angle to horizontal in degrees.
func (a *Analyzer) LateralAngle(pose *detector.PoseLandmarks) float64 {
	l, r := pose.Points[detector.PoseLeftEar], pose.Points[detector.PoseRightEar]
	return math.Atan2(r.Y-l.Y, r.X-l.X) * 180 / math.Pi
}

// SetNeutral records the current neck angle as neutral. It returns false
// when there is no pose.
func (a *Analyzer) SetNeutral(s *Session, pose *detector.PoseLandmarks) bool {
	if pose == nil {
		return false
	}
	angle := a.NeckAngle(pose)
	s.NeutralAngle = &angle
	return true
}

// MeasureFlexion returns the forward tilt from neutral, clamped at zero.
func (a *Analyzer) MeasureFlexion(s *Session, pose *detector.PoseLandmarks) (float64, error) {
	return a.measureTilt(s, pose, func(neutral, cur float64) float64 { return neutral - cur }, &s.MaxFlexion)
}

// MeasureExtension returns the backward tilt from neutral, clamped at zero.
func (a *Analyzer) MeasureExtension(s *Session, pose *detector.PoseLandmarks) (float64, error) {
	return a.measureTilt(s, pose, func(neutral, cur float64) float64 { return cur - neutral }, &s.MaxExtension)
}

func (a *Analyzer) measureTilt(s *Session, pose *detector.PoseLandmarks, dev func(neutral, cur float64) float64, slot **float64) (float64, error) {
	if s.State() != Calibrated {
		return 0, ErrNotCalibrated
	}
	if pose == nil {
		return 0, ErrNoPose
	}
	d := math.Max(0, dev(*s.NeutralAngle, a.NeckAngle(pose)))
	raise(slot, d)
	return d, nil
}

// MeasureRotation returns the head turn in degrees, positive to the right.
// It is independent of calibration.
func (a *Analyzer) MeasureRotation(s *Session, pose *detector.PoseLandmarks) (float64, error) {
	if pose == nil {
		return 0, ErrNoPose
	}
	r := a.Rotation(pose)
	if r >= 0 {
		raise(&s.MaxRightRotation, r)
	} else {
		raise(&s.MaxLeftRotation, -r)
	}
	return r, nil
}

// Rotation measures the ear-midpoint→nose vector against the forward
// direction (0, 0, -1) in the x/z plane. Without depth it falls back to the
// relative nose-to-ear distances.
func (a *Analyzer) Rotation(pose *detector.PoseLandmarks) float64 {
	nose := pose.Points[detector.PoseNose]
	left, right := pose.Points[detector.PoseLeftEar], pose.Points[detector.PoseRightEar]
	mid := geom.Midpoint(left, right)
	vx, vz := nose.X-mid.X, nose.Z-mid.Z

	if math.Abs(vz) > signal.Epsilon {
		r := math.Atan2(vx, -vz) * 180 / math.Pi
		return signal.Clamp(r, -a.cfg.MaxAngle, a.cfg.MaxAngle)
	}

	ld := geom.Distance(nose.XY(), left.XY())
	rd := geom.Distance(nose.XY(), right.XY())
	if ld+rd < signal.Epsilon {
		return 0
	}
	n := a.cfg.NormalRotation
	return signal.Clamp((ld-rd)/(ld+rd)*n, -n, n)
}

// Measure dispatches on kind.
func (a *Analyzer) Measure(s *Session, kind Kind, pose *detector.PoseLandmarks) (float64, error) {
	switch kind {
	case Flexion:
		return a.MeasureFlexion(s, pose)
	case Extension:
		return a.MeasureExtension(s, pose)
	case Rotation:
		return a.MeasureRotation(s, pose)
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// Metrics is the mobility assessment.
type Metrics struct {
	FlexionDegrees       float64 `json:"flexion_degrees"`
	ExtensionDegrees     float64 `json:"extension_degrees"`
	LeftRotationDegrees  float64 `json:"left_rotation_degrees"`
	RightRotationDegrees float64 `json:"right_rotation_degrees"`
	FlexionPercent       float64 `json:"flexion_percent"`
	ExtensionPercent     float64 `json:"extension_percent"`
	LeftRotationPercent  float64 `json:"left_rotation_percent"`
	RightRotationPercent float64 `json:"right_rotation_percent"`
	MobilityScore        float64 `json:"mobility_score"`
	SymmetryScore        float64 `json:"symmetry_score"`
}

// Result wraps an assessment or a single measurement.
type Result struct {
	Success bool     `json:"success"`
	Error   string   `json:"error,omitempty"`
	Kind    Kind     `json:"type,omitempty"`
	Degrees *float64 `json:"degrees,omitempty"`
	Metrics *Metrics `json:"metrics,omitempty"`
}

func errorResult(err error) Result {
	return Result{Success: false, Error: err.Error()}
}

func percent(v, normal float64) float64 {
	if v <= 0 || normal <= 0 {
		return 0
	}
	return math.Min(100, v/normal*100)
}

// Assessment normalizes the maxima against the normal ranges and resets the
// session, so each calibration yields exactly one assessment.
func (a *Analyzer) Assessment(s *Session) Result {
	if s.State() != Calibrated {
		return errorResult(ErrNotCalibrated)
	}
	defer s.Reset()

	c := a.cfg
	m := Metrics{
		FlexionDegrees:       signal.Clamp(value(s.MaxFlexion), 0, c.NormalFlexion*c.ExcessFactor),
		ExtensionDegrees:     signal.Clamp(value(s.MaxExtension), 0, c.NormalExtension*c.ExcessFactor),
		LeftRotationDegrees:  signal.Clamp(math.Abs(value(s.MaxLeftRotation)), 0, c.NormalRotation),
		RightRotationDegrees: signal.Clamp(math.Abs(value(s.MaxRightRotation)), 0, c.NormalRotation),
	}
	m.FlexionPercent = percent(m.FlexionDegrees, c.NormalFlexion)
	m.ExtensionPercent = percent(m.ExtensionDegrees, c.NormalExtension)
	m.LeftRotationPercent = percent(m.LeftRotationDegrees, c.NormalRotation)
	m.RightRotationPercent = percent(m.RightRotationDegrees, c.NormalRotation)

	avgRot := (m.LeftRotationPercent + m.RightRotationPercent) / 2
	m.MobilityScore = 0.3*m.FlexionPercent + 0.3*m.ExtensionPercent + 0.4*avgRot

	m.SymmetryScore = 100
	if hi := math.Max(m.LeftRotationPercent, m.RightRotationPercent); hi > 0 {
		m.SymmetryScore = math.Min(m.LeftRotationPercent, m.RightRotationPercent) / hi * 100
	}
	return Result{Success: true, Metrics: &m}
}

// DetectPose runs the pose detector on a frame. Returns nil if no pose is found.
func (a *Analyzer) DetectPose(frame *gocv.Mat) (*detector.PoseLandmarks, error) {
	if a.poses == nil {
		return nil, fmt.Errorf("no pose detector configured")
	}
	pose, err := a.poses.DetectPose(frame)
	if err != nil {
		return nil, fmt.Errorf("detect pose: %w", err)
	}
	return pose, nil
}

// SetNeutralFrame calibrates s from a frame.
func (a *Analyzer) SetNeutralFrame(s *Session, frame *gocv.Mat) Result {
	pose, err := a.DetectPose(frame)
	if err != nil {
		a.logger.Error("neck calibration failed", "error", err)
		return errorResult(err)
	}
	if !a.SetNeutral(s, pose) {
		return errorResult(ErrNoPose)
	}
	d := *s.NeutralAngle
	return Result{Success: true, Degrees: &d}
}

// MeasureFrame measures kind on a frame and updates s.
func (a *Analyzer) MeasureFrame(s *Session, kind Kind, frame *gocv.Mat) Result {
	pose, err := a.DetectPose(frame)
	if err != nil {
		a.logger.Error("neck measurement failed", "kind", kind, "error", err)
		return errorResult(err)
	}
	d, err := a.Measure(s, kind, pose)
	if err != nil {
		return errorResult(err)
	}
	return Result{Success: true, Kind: kind, Degrees: &d}
}
