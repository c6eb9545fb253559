package neck

import (
	"errors"
	"math"
	"testing"

	"github.com/ayusman/samarth/internal/detector"
	"github.com/ayusman/samarth/internal/geom"
)

func near(t *testing.T, name string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: expected %.3f ± %.3f, got %.3f", name, want, tol, got)
	}
}

func TestNeckAngle(t *testing.T) {
	a := NewAnalyzer(DefaultConfig(), nil, nil)
	tests := []struct {
		tilt float64
		want float64
	}{
		{0, 0},
		{20, -20},
		{-30, 30},
		{100, -90},
	}
	for _, tt := range tests {
		near(t, "angle", a.NeckAngle(detector.PosePreset(tt.tilt, 0)), tt.want, 1e-9)
	}
}

func TestMeasure_BeforeCalibration(t *testing.T) {
	a := NewAnalyzer(DefaultConfig(), nil, nil)
	s := &Session{}

	if _, err := a.MeasureFlexion(s, detector.PosePreset(20, 0)); !errors.Is(err, ErrNotCalibrated) {
		t.Errorf("expected ErrNotCalibrated, got %v", err)
	}
	if _, err := a.MeasureExtension(s, detector.PosePreset(-20, 0)); !errors.Is(err, ErrNotCalibrated) {
		t.Errorf("expected ErrNotCalibrated, got %v", err)
	}
	if s.State() != Uncalibrated {
		t.Errorf("expected uncalibrated, got %s", s.State())
	}

	res := a.Assessment(s)
	if res.Success || res.Error != "Neutral position not set" {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestFlexionFlow(t *testing.T) {
	a := NewAnalyzer(DefaultConfig(), nil, nil)
	s := &Session{}

	if a.SetNeutral(s, nil) {
		t.Fatal("expected calibration without a pose to fail")
	}
	if !a.SetNeutral(s, detector.PosePreset(0, 0)) {
		t.Fatal("expected calibration to succeed")
	}
	if s.State() != Calibrated {
		t.Fatalf("expected calibrated, got %s", s.State())
	}

	flex, err := a.MeasureFlexion(s, detector.PosePreset(20, 0))
	if err != nil {
		t.Fatalf("MeasureFlexion: %v", err)
	}
	near(t, "flexion", flex, 20, 0.5)

	// Tilting the other way is not flexion.
	back, err := a.MeasureFlexion(s, detector.PosePreset(-10, 0))
	if err != nil || back != 0 {
		t.Errorf("expected 0 for the wrong direction, got %f (%v)", back, err)
	}

	res := a.Assessment(s)
	if !res.Success {
		t.Fatalf("expected success, got %q", res.Error)
	}
	near(t, "flexion_degrees", res.Metrics.FlexionDegrees, 20, 0.5)
	near(t, "flexion_percent", res.Metrics.FlexionPercent, 20.0/40*100, 1)

	if s.State() != Uncalibrated {
		t.Error("expected assessment to reset the session")
	}
	if again := a.Assessment(s); again.Success || again.Error != ErrNotCalibrated.Error() {
		t.Errorf("expected second assessment to fail, got %+v", again)
	}
}

func TestExtensionAndCaps(t *testing.T) {
	a := NewAnalyzer(DefaultConfig(), nil, nil)
	s := &Session{}
	a.SetNeutral(s, detector.PosePreset(0, 0))

	ext, err := a.MeasureExtension(s, detector.PosePreset(-25, 0))
	if err != nil {
		t.Fatal(err)
	}
	near(t, "extension", ext, 25, 1e-9)

	// 85° exceeds 1.5 × 40.
	if _, err := a.MeasureFlexion(s, detector.PosePreset(85, 0)); err != nil {
		t.Fatal(err)
	}

	res := a.Assessment(s)
	near(t, "extension_percent", res.Metrics.ExtensionPercent, 50, 1e-9)
	near(t, "flexion_degrees", res.Metrics.FlexionDegrees, 60, 1e-9)
	if res.Metrics.FlexionPercent != 100 {
		t.Errorf("expected percent capped at 100, got %f", res.Metrics.FlexionPercent)
	}
}

func TestRotation(t *testing.T) {
	a := NewAnalyzer(DefaultConfig(), nil, nil)

	t.Run("depth", func(t *testing.T) {
		near(t, "right", a.Rotation(detector.PosePreset(0, 30)), 30, 1e-9)
		near(t, "left", a.Rotation(detector.PosePreset(0, -45)), -45, 1e-9)
		near(t, "forward", a.Rotation(detector.PosePreset(0, 0)), 0, 1e-9)
	})

	t.Run("no depth falls back to ear distances", func(t *testing.T) {
		pose := detector.PosePreset(0, 0)
		for i := range pose.Points {
			pose.Points[i].Z = 0
		}
		near(t, "centred", a.Rotation(pose), 0, 1e-9)

		pose.Points[detector.PoseNose].X += 20
		if r := a.Rotation(pose); r <= 0 || r > 70 {
			t.Errorf("expected a right turn within 70°, got %f", r)
		}
	})

	t.Run("independent of calibration", func(t *testing.T) {
		s := &Session{}
		if _, err := a.MeasureRotation(s, detector.PosePreset(0, 40)); err != nil {
			t.Fatal(err)
		}
		if _, err := a.MeasureRotation(s, detector.PosePreset(0, -35)); err != nil {
			t.Fatal(err)
		}
		if _, err := a.MeasureRotation(s, detector.PosePreset(0, 20)); err != nil {
			t.Fatal(err)
		}
		near(t, "max right", *s.MaxRightRotation, 40, 1e-9)
		near(t, "max left", *s.MaxLeftRotation, 35, 1e-9)

		a.SetNeutral(s, detector.PosePreset(0, 0))
		res := a.Assessment(s)
		near(t, "left percent", res.Metrics.LeftRotationPercent, 50, 1e-9)
		near(t, "symmetry", res.Metrics.SymmetryScore, 35.0/40*100, 1e-9)
		wantMobility := 0.4 * (50 + 40.0/70*100) / 2
		near(t, "mobility", res.Metrics.MobilityScore, wantMobility, 1e-9)
	})
}

func TestMeasureDispatch(t *testing.T) {
	a := NewAnalyzer(DefaultConfig(), nil, nil)
	s := &Session{}
	a.SetNeutral(s, detector.PosePreset(0, 0))

	if _, err := a.Measure(s, "tilt", detector.PosePreset(0, 0)); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("expected ErrUnknownKind, got %v", err)
	}
	if _, err := a.Measure(s, Flexion, nil); !errors.Is(err, ErrNoPose) {
		t.Errorf("expected ErrNoPose, got %v", err)
	}
	d, err := a.Measure(s, Extension, detector.PosePreset(-10, 0))
	if err != nil {
		t.Fatal(err)
	}
	near(t, "extension", d, 10, 1e-9)
}

func TestFrameWrappers(t *testing.T) {
	mock := detector.NewMockProvider()
	a := NewAnalyzer(DefaultConfig(), mock, nil)
	s := &Session{}

	if res := a.SetNeutralFrame(s, nil); res.Success || res.Error != ErrNoPose.Error() {
		t.Errorf("expected %q, got %+v", ErrNoPose, res)
	}

	mock.QueuePoses(detector.PosePreset(0, 0), detector.PosePreset(15, 0))
	if res := a.SetNeutralFrame(s, nil); !res.Success {
		t.Fatalf("expected calibration, got %+v", res)
	}
	res := a.MeasureFrame(s, Flexion, nil)
	if !res.Success || res.Kind != Flexion {
		t.Fatalf("expected flexion result, got %+v", res)
	}
	near(t, "flexion", *res.Degrees, 15, 1e-9)

	mock.SetError(errors.New("camera gone"))
	if res := a.MeasureFrame(s, Flexion, nil); res.Success {
		t.Error("expected detector error to surface")
	}
}

func TestLateralAngle(t *testing.T) {
	a := NewAnalyzer(DefaultConfig(), nil, nil)
	pose := &detector.PoseLandmarks{}
	pose.Points[detector.PoseLeftEar] = geom.Point3D{X: 0, Y: 0}
	pose.Points[detector.PoseRightEar] = geom.Point3D{X: 10, Y: 10}
	near(t, "lateral", a.LateralAngle(pose), 45, 1e-9)
}
