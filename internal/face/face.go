// Package face scores facial symmetry against a fitted midline and derives
// palsy, stroke and parkinsonian asymmetry patterns.
package face

import (
	"fmt"
	"log/slog"

	"gocv.io/x/gocv"

	"github.com/ayusman/samarth/internal/detector"
	"github.com/ayusman/samarth/internal/geom"
)

// NoFaceError is reported when the image contains no face.
const NoFaceError = "No face detected"

// Components are the four region scores in [0, 1].
type Components struct {
	Eye     float64 `json:"eye_symmetry"`
	Mouth   float64 `json:"mouth_symmetry"`
	Jaw     float64 `json:"jaw_symmetry"`
	Eyebrow float64 `json:"eyebrow_symmetry"`
}

// Metrics groups the per-region details.
type Metrics struct {
	Eye     EyeMetrics     `json:"eye"`
	Mouth   MouthMetrics   `json:"mouth"`
	Jaw     JawMetrics     `json:"jaw"`
	Eyebrow EyebrowMetrics `json:"eyebrow"`
}

// Result is the facial symmetry output.
type Result struct {
	Success       bool                                 `json:"success"`
	Error         string                               `json:"error,omitempty"`
	SymmetryScore float64                              `json:"symmetry_score"`
	Components    *Components                          `json:"components,omitempty"`
	Metrics       *Metrics                             `json:"metrics,omitempty"`
	Midline       *Line                                `json:"midline,omitempty"`
	Indicators    *Indicators                          `json:"neurological_indicators,omitempty"`
	Landmarks     map[detector.FaceRegion][]geom.Point2D `json:"landmarks,omitempty"`
}

// Analyzer scores single images. It keeps no state between calls.
type Analyzer struct {
	cfg    Config
	faces  detector.FaceDetector
	logger *slog.Logger
}

// NewAnalyzer creates a facial symmetry analyzer.
func NewAnalyzer(cfg Config, faces detector.FaceDetector, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{cfg: cfg, faces: faces, logger: logger}
}

// Analyze detects a face in img and scores it.
func (a *Analyzer) Analyze(img *gocv.Mat) Result {
	if a.faces == nil {
		return Result{Success: false, Error: "no face detector configured"}
	}
	face, err := a.faces.DetectFace(img)
	if err != nil {
		a.logger.Error("face detection failed", "error", err)
		return Result{Success: false, Error: fmt.Sprintf("Analysis failed: %v", err)}
	}
	return a.AnalyzeLandmarks(face)
}

// AnalyzeLandmarks scores a face mesh. A nil or incomplete mesh reports
// NoFaceError.
func (a *Analyzer) AnalyzeLandmarks(face *detector.FaceLandmarks) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("face analysis failed", "panic", r)
			res = Result{Success: false, Error: fmt.Sprintf("Analysis failed: %v", r)}
		}
	}()

	if !face.Valid() {
		a.logger.Warn("no face detected in the image")
		return Result{Success: false, Error: NoFaceError}
	}

	regions := make(map[detector.FaceRegion][]geom.Point2D, len(detector.SymmetryRegions))
	for _, r := range detector.SymmetryRegions {
		regions[r] = geom.Flatten(face.Region(r))
	}

	line := Midline(geom.Flatten(face.Region(detector.RegionMidline)))
	f := newFrame(line)

	var c Components
	var m Metrics
	c.Eye, m.Eye = a.eyeSymmetry(f, regions[detector.RegionLeftEye], regions[detector.RegionRightEye])
	c.Mouth, m.Mouth = a.mouthSymmetry(f, regions[detector.RegionMouth])
	c.Jaw, m.Jaw = a.jawSymmetry(f, regions[detector.RegionJawline])
	c.Eyebrow, m.Eyebrow = a.eyebrowSymmetry(f,
		regions[detector.RegionLeftEyebrow], regions[detector.RegionRightEyebrow],
		regions[detector.RegionLeftEye], regions[detector.RegionRightEye])

	score := a.Composite(c)
	ind := a.NeurologicalIndicators(score, m.Eye, m.Mouth, m.Eyebrow)

	return Result{
		Success:       true,
		SymmetryScore: score,
		Components:    &c,
		Metrics:       &m,
		Midline:       &line,
		Indicators:    &ind,
		Landmarks:     regions,
	}
}

// Composite is the weighted component sum scaled to 0-100.
func (a *Analyzer) Composite(c Components) float64 {
	w := a.cfg.Composite
	return 100 * (w.Eye*c.Eye + w.Mouth*c.Mouth + w.Jaw*c.Jaw + w.Eyebrow*c.Eyebrow)
}
