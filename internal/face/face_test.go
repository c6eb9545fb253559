package face

import (
	"errors"
	"math"
	"testing"

	"github.com/ayusman/samarth/internal/detector"
	"github.com/ayusman/samarth/internal/geom"
)

func rotated(f *detector.FaceLandmarks, deg float64) *detector.FaceLandmarks {
	out := f.Clone()
	th := deg * math.Pi / 180
	c, s := math.Cos(th), math.Sin(th)
	for i, p := range out.Points {
		dx, dy := p.X-320, p.Y-240
		out.Points[i] = geom.Point3D{X: 320 + dx*c - dy*s, Y: 240 + dx*s + dy*c}
	}
	return out
}

func TestAnalyzeLandmarks_Symmetric(t *testing.T) {
	a := NewAnalyzer(DefaultConfig(), nil, nil)

	res := a.AnalyzeLandmarks(detector.SymmetricFaceLandmarks())
	if !res.Success {
		t.Fatalf("expected success, got %q", res.Error)
	}
	if res.SymmetryScore < 95 {
		t.Errorf("expected symmetry score >= 95, got %f", res.SymmetryScore)
	}
	for name, v := range map[string]float64{
		"eye":     res.Components.Eye,
		"mouth":   res.Components.Mouth,
		"jaw":     res.Components.Jaw,
		"eyebrow": res.Components.Eyebrow,
	} {
		if v < 0.9 {
			t.Errorf("expected %s symmetry >= 0.9, got %f", name, v)
		}
	}
	if math.Abs(res.Midline.Slope) > 1e-9 || math.Abs(res.Midline.Intercept-detector.FaceCenterX) > 1e-9 {
		t.Errorf("expected vertical midline at x=%v, got %+v", detector.FaceCenterX, *res.Midline)
	}
	if res.Indicators.Overall.Risk != RiskLow {
		t.Errorf("expected low overall risk, got %+v", res.Indicators.Overall)
	}
	if len(res.Landmarks) != len(detector.SymmetryRegions) {
		t.Errorf("expected %d regions, got %d", len(detector.SymmetryRegions), len(res.Landmarks))
	}
}

func TestAnalyzeLandmarks_TiltedFace(t *testing.T) {
	a := NewAnalyzer(DefaultConfig(), nil, nil)

	res := a.AnalyzeLandmarks(rotated(detector.SymmetricFaceLandmarks(), 10))
	if !res.Success {
		t.Fatalf("expected success, got %q", res.Error)
	}
	if res.SymmetryScore < 99 {
		t.Errorf("expected tilt to leave symmetry intact, got %f (%+v)", res.SymmetryScore, *res.Components)
	}
	if math.Abs(res.Midline.Slope) < 0.1 {
		t.Errorf("expected a tilted midline, got slope %f", res.Midline.Slope)
	}
}

func TestAnalyzeLandmarks_MouthDroop(t *testing.T) {
	a := NewAnalyzer(DefaultConfig(), nil, nil)

	face := detector.SymmetricFaceLandmarks()
	for _, idx := range []int{291, 375, 321, 405, 314, 409, 270, 269, 267} {
		face.Points[idx].Y += 25
	}

	res := a.AnalyzeLandmarks(face)
	if !res.Success {
		t.Fatalf("expected success, got %q", res.Error)
	}
	if res.Components.Mouth >= 0.9 {
		t.Errorf("expected mouth symmetry to drop, got %f", res.Components.Mouth)
	}
	if res.Metrics.Mouth.DroopRatio <= 0.5 {
		t.Errorf("expected a large droop ratio, got %f", res.Metrics.Mouth.DroopRatio)
	}
	if res.Indicators.BellsPalsy.Risk != RiskHigh {
		t.Errorf("expected high palsy risk, got %+v", res.Indicators.BellsPalsy)
	}
	if res.Indicators.Overall.Score < res.Indicators.BellsPalsy.Score {
		t.Error("overall risk must be the maximum pattern score")
	}
}

func TestAnalyzeLandmarks_EnlargedEye(t *testing.T) {
	a := NewAnalyzer(DefaultConfig(), nil, nil)

	face := detector.SymmetricFaceLandmarks()
	left := detector.RegionIndices(detector.RegionLeftEye)
	c := geom.Centroid(geom.Flatten(face.Region(detector.RegionLeftEye)))
	for _, idx := range left {
		p := face.Points[idx]
		face.Points[idx] = geom.Point3D{X: c.X + (p.X-c.X)*1.5, Y: c.Y + (p.Y-c.Y)*1.5}
	}

	res := a.AnalyzeLandmarks(face)
	if res.Metrics.Eye.AreaRatio > 0.5 {
		t.Errorf("expected area ratio near 0.44, got %f", res.Metrics.Eye.AreaRatio)
	}
	if res.Components.Eye >= 0.9 {
		t.Errorf("expected eye symmetry to drop, got %f", res.Components.Eye)
	}
	if res.Indicators.Stroke.Score <= 0 {
		t.Errorf("expected a stroke pattern score, got %f", res.Indicators.Stroke.Score)
	}
}

func TestAnalyzeLandmarks_NoFace(t *testing.T) {
	a := NewAnalyzer(DefaultConfig(), nil, nil)

	for name, face := range map[string]*detector.FaceLandmarks{
		"nil":        nil,
		"incomplete": {Points: make([]geom.Point3D, 10)},
	} {
		t.Run(name, func(t *testing.T) {
			res := a.AnalyzeLandmarks(face)
			if res.Success || res.Error != NoFaceError {
				t.Errorf("expected %q, got %+v", NoFaceError, res)
			}
		})
	}
}

func TestAnalyze_WithDetector(t *testing.T) {
	mock := detector.NewMockProvider()
	a := NewAnalyzer(DefaultConfig(), mock, nil)

	if res := a.Analyze(nil); res.Error != NoFaceError {
		t.Errorf("expected %q, got %+v", NoFaceError, res)
	}

	mock.SetFace(detector.SymmetricFaceLandmarks())
	if res := a.Analyze(nil); !res.Success {
		t.Errorf("expected success, got %q", res.Error)
	}

	mock.SetError(errors.New("provider down"))
	if res := a.Analyze(nil); res.Success || res.Error == "" {
		t.Errorf("expected failure, got %+v", res)
	}
}

func TestMidline(t *testing.T) {
	t.Run("tilted line", func(t *testing.T) {
		var pts []geom.Point2D
		for y := 0.0; y < 100; y += 10 {
			pts = append(pts, geom.Point2D{X: 0.2*y + 100, Y: y})
		}
		l := Midline(pts)
		if math.Abs(l.Slope-0.2) > 1e-9 || math.Abs(l.Intercept-100) > 1e-9 {
			t.Errorf("unexpected fit %+v", l)
		}
	})

	t.Run("degenerate falls back to mean x", func(t *testing.T) {
		l := Midline([]geom.Point2D{{X: 10, Y: 5}, {X: 20, Y: 5}, {X: 30, Y: 5}})
		if l.Slope != 0 || l.Intercept != 20 {
			t.Errorf("unexpected fallback %+v", l)
		}
	})

	t.Run("empty", func(t *testing.T) {
		if l := Midline(nil); l != (Line{}) {
			t.Errorf("expected zero line, got %+v", l)
		}
	})
}

func TestFrame(t *testing.T) {
	f := newFrame(Line{Intercept: 100})
	if d := f.across(geom.Point2D{X: 90, Y: 50}); d != -10 {
		t.Errorf("expected -10, got %f", d)
	}
	if d := f.along(geom.Point2D{X: 90, Y: 50}); d != 50 {
		t.Errorf("expected 50, got %f", d)
	}
	left, right := f.split([]geom.Point2D{{X: 90}, {X: 100}, {X: 110}, {X: 120}})
	if len(left) != 1 || len(right) != 2 {
		t.Errorf("unexpected split %v %v", left, right)
	}
}

func TestTier(t *testing.T) {
	a := NewAnalyzer(DefaultConfig(), nil, nil)
	tests := []struct {
		score float64
		want  string
	}{
		{0, RiskLow},
		{0.249, RiskLow},
		{0.25, RiskModerate},
		{0.399, RiskModerate},
		{0.4, RiskHigh},
		{1, RiskHigh},
	}
	for _, tt := range tests {
		if got := a.Tier(tt.score); got != tt.want {
			t.Errorf("Tier(%v) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestNeurologicalIndicators_ParkinsonsCap(t *testing.T) {
	a := NewAnalyzer(DefaultConfig(), nil, nil)

	ind := a.NeurologicalIndicators(0, EyeMetrics{AreaRatio: 1}, MouthMetrics{}, EyebrowMetrics{HeightRatio: 1})
	if ind.Parkinsons.Score != 0.6 {
		t.Errorf("expected capped score 0.6, got %f", ind.Parkinsons.Score)
	}
	if ind.Overall.Score != 0.6 || ind.Overall.Risk != RiskHigh {
		t.Errorf("unexpected overall %+v", ind.Overall)
	}
}
