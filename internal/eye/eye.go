// Package eye derives blink, saccade, fixation and pursuit metrics from a
// sequence of face meshes.
package eye

import (
	"fmt"
	"log/slog"

	"gocv.io/x/gocv"

	"github.com/ayusman/samarth/internal/detector"
	"github.com/ayusman/samarth/internal/geom"
	"github.com/ayusman/samarth/internal/signal"
)

// NoFaceError is reported when no frame contained a face.
const NoFaceError = "No face detected"

// Points holds the two 16-point eye contours of one frame.
type Points struct {
	Left  []geom.Point2D `json:"left_eye"`
	Right []geom.Point2D `json:"right_eye"`
}

// all returns both contours as one slice, left first.
func (p *Points) all() []geom.Point2D {
	out := make([]geom.Point2D, 0, len(p.Left)+len(p.Right))
	out = append(out, p.Left...)
	return append(out, p.Right...)
}

// Center is the centroid of both contours.
func (p *Points) Center() geom.Point2D {
	return geom.Centroid(p.all())
}

// Temporal is the per-frame buffer built while folding over a sequence.
// Only frames with a face are recorded.
type Temporal struct {
	FrameRate  float64        `json:"frame_rate"`
	Velocities []float64      `json:"velocities"`
	LeftEARs   []float64      `json:"left_ears"`
	RightEARs  []float64      `json:"right_ears"`
	Centers    []geom.Point2D `json:"positions"`
	Blinks     []bool         `json:"blinks"`
	Timestamps []float64      `json:"timestamps"` // seconds from the first frame
}

// Len returns the number of recorded frames.
func (t *Temporal) Len() int {
	return len(t.Velocities)
}

// EAR returns the per-frame mean of both eyes' aspect ratios.
func (t *Temporal) EAR() []float64 {
	out := make([]float64, len(t.LeftEARs))
	for i := range out {
		out[i] = (t.LeftEARs[i] + t.RightEARs[i]) / 2
	}
	return out
}

// FrameMetrics is the single-image result.
type FrameMetrics struct {
	LeftEAR  float64 `json:"left_eye_ear"`
	RightEAR float64 `json:"right_eye_ear"`
	Symmetry float64 `json:"symmetry"`
	Blink    bool    `json:"blink"`
}

// Result is the sequence analysis output.
type Result struct {
	Success    bool          `json:"success"`
	Error      string        `json:"error,omitempty"`
	Frame      *FrameMetrics `json:"metrics,omitempty"`
	Summary    *Summary      `json:"summary,omitempty"`
	Indicators *Indicators   `json:"neurological_indicators,omitempty"`
	Temporal   *Temporal     `json:"temporal,omitempty"`
}

// Analyzer computes eye metrics. It is stateless across calls.
type Analyzer struct {
	cfg    Config
	faces  detector.FaceDetector
	logger *slog.Logger
}

// NewAnalyzer creates an eye analyzer. faces may be nil when only
// pre-extracted landmarks are analyzed.
func NewAnalyzer(cfg Config, faces detector.FaceDetector, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{cfg: cfg, faces: faces, logger: logger}
}

// Config returns the analyzer configuration.
func (a *Analyzer) Config() Config {
	return a.cfg
}

// Landmarks extracts both eye contours from frame. Returns nil if no face is found.
func (a *Analyzer) Landmarks(frame *gocv.Mat) (*Points, error) {
	if a.faces == nil {
		return nil, fmt.Errorf("no face detector configured")
	}
	face, err := a.faces.DetectFace(frame)
	if err != nil {
		return nil, fmt.Errorf("detect face: %w", err)
	}
	return FromFace(face), nil
}

// FromFace reads the eye contours out of a face mesh. Returns nil for an
// incomplete mesh.
func FromFace(face *detector.FaceLandmarks) *Points {
	if !face.Valid() {
		return nil
	}
	return &Points{
		Left:  geom.Flatten(face.Region(detector.RegionLeftEye)),
		Right: geom.Flatten(face.Region(detector.RegionRightEye)),
	}
}

// EyeAspectRatio is (|p3-p13| + |p5-p11|) / (2·|p0-p8|) over a 16-point
// contour. It returns 0 for a short contour or a zero-width eye.
func EyeAspectRatio(points []geom.Point2D) float64 {
	if len(points) < 16 {
		return 0
	}
	horizontal := geom.Distance(points[0], points[8])
	if horizontal == 0 {
		return 0
	}
	v1 := geom.Distance(points[3], points[13])
	v2 := geom.Distance(points[5], points[11])
	return (v1 + v2) / (2 * horizontal)
}

// AnalyzeFrame reports the aspect ratios of a single image.
func (a *Analyzer) AnalyzeFrame(frame *gocv.Mat) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("eye frame analysis failed", "panic", r)
			res = Result{Success: false, Error: fmt.Sprint(r)}
		}
	}()

	pts, err := a.Landmarks(frame)
	if err != nil {
		a.logger.Warn("eye landmarks failed", "error", err)
		return Result{Success: false, Error: err.Error()}
	}
	if pts == nil {
		return Result{Success: false, Error: NoFaceError}
	}
	return Result{Success: true, Frame: a.frameMetrics(pts)}
}

func (a *Analyzer) frameMetrics(pts *Points) *FrameMetrics {
	l, r := EyeAspectRatio(pts.Left), EyeAspectRatio(pts.Right)
	sym := l - r
	if sym < 0 {
		sym = -sym
	}
	return &FrameMetrics{
		LeftEAR:  l,
		RightEAR: r,
		Symmetry: sym,
		Blink:    (l+r)/2 < a.cfg.BlinkThreshold,
	}
}

// Sequence extracts landmarks frame by frame and folds them into a
// Temporal buffer. Frames where detection fails count as frames without a face.
func (a *Analyzer) Sequence(frames []*gocv.Mat, frameRate float64) *Temporal {
	seq := make([]*Points, len(frames))
	for i, frame := range frames {
		pts, err := a.Landmarks(frame)
		if err != nil {
			a.logger.Warn("eye frame skipped", "frame", i, "error", err)
			continue
		}
		seq[i] = pts
	}
	return a.SequenceFromLandmarks(seq, frameRate)
}

// SequenceFromLandmarks folds per-frame eye points into a Temporal buffer.
// A nil entry is a frame without a face. Both a missing face and a blink
// reset the previous landmarks, so the next frame reports velocity 0.
func (a *Analyzer) SequenceFromLandmarks(seq []*Points, frameRate float64) *Temporal {
	if frameRate <= 0 {
		frameRate = a.cfg.FrameRate
	}
	t := &Temporal{FrameRate: frameRate}

	var prev []geom.Point2D
	for i, pts := range seq {
		if pts == nil {
			prev = nil
			continue
		}
		fm := a.frameMetrics(pts)
		cur := pts.all()

		vel := 0.0
		if fm.Blink {
			prev = nil
		} else {
			vel = signal.Velocity(cur, prev, frameRate)
			prev = cur
		}

		t.Velocities = append(t.Velocities, vel)
		t.LeftEARs = append(t.LeftEARs, fm.LeftEAR)
		t.RightEARs = append(t.RightEARs, fm.RightEAR)
		t.Centers = append(t.Centers, pts.Center())
		t.Blinks = append(t.Blinks, fm.Blink)
		t.Timestamps = append(t.Timestamps, float64(i)/frameRate)
	}
	return t
}

// AnalyzeSequence runs the full pipeline over a clip.
func (a *Analyzer) AnalyzeSequence(frames []*gocv.Mat, frameRate float64) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("eye sequence analysis failed", "panic", r)
			res = Result{Success: false, Error: fmt.Sprint(r)}
		}
	}()
	return a.analyzeTemporal(a.Sequence(frames, frameRate))
}

// AnalyzeLandmarks runs the pipeline over pre-extracted eye points.
func (a *Analyzer) AnalyzeLandmarks(seq []*Points, frameRate float64) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("eye sequence analysis failed", "panic", r)
			res = Result{Success: false, Error: fmt.Sprint(r)}
		}
	}()
	return a.analyzeTemporal(a.SequenceFromLandmarks(seq, frameRate))
}

func (a *Analyzer) analyzeTemporal(t *Temporal) Result {
	if t.Len() == 0 {
		return Result{Success: false, Error: NoFaceError}
	}
	summary := a.Summarize(t)
	indicators := a.NeurologicalIndicators(t)
	if !summary.DataQuality.Valid {
		a.logger.Warn("eye data suspect", "issues", summary.DataQuality.Issues)
	}
	return Result{
		Success:    true,
		Summary:    &summary,
		Indicators: &indicators,
		Temporal:   t,
	}
}
