package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gocv.io/x/gocv"

	"github.com/ayusman/samarth/internal/capture"
	"github.com/ayusman/samarth/internal/eye"
	"github.com/ayusman/samarth/internal/face"
	"github.com/ayusman/samarth/internal/neck"
	"github.com/ayusman/samarth/internal/store"
	"github.com/ayusman/samarth/internal/tremor"
)

// FaceReport is a face result and the ID it was stored under.
type FaceReport struct {
	face.Result
	AssessmentID string `json:"assessment_id,omitempty"`
}

// AnalyzeFace scores the symmetry of one image.
func (a *App) AnalyzeFace(ctx context.Context, subjectID string, img *gocv.Mat) FaceReport {
	res := a.face.Analyze(img)
	rep := FaceReport{Result: res}
	if res.Success {
		rep.AssessmentID = a.record(ctx, store.KindFace, subjectID, res.SymmetryScore, res)
	}
	return rep
}

// eyeSession keeps the summary of each completed task phase.
type eyeSession struct {
	Phases map[string]eye.Summary `json:"phases"`
}

// EyeReport is one phase result plus the composite over the phases seen so
// far in the session.
type EyeReport struct {
	eye.Result
	Phase        string            `json:"phase"`
	Overall      *eye.OverallScore `json:"overall,omitempty"`
	AssessmentID string            `json:"assessment_id,omitempty"`
}

// ParsePhase normalizes a task phase name. Empty selects calibration.
func ParsePhase(s string) (string, error) {
	p := strings.ToUpper(strings.TrimSpace(s))
	if p == "" {
		return eye.PhaseCalibration, nil
	}
	for _, known := range eye.Phases {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown eye phase %q", s)
}

// AnalyzeEyes analyzes a clip recorded during phase. With a session ID the
// phase summary is kept so later phases report the combined score.
func (a *App) AnalyzeEyes(ctx context.Context, subjectID, sessionID, phase string, clip *capture.Clip) (EyeReport, error) {
	phase, err := ParsePhase(phase)
	if err != nil {
		return EyeReport{}, err
	}
	res := a.eye.AnalyzeSequence(clip.Frames, clip.FPS)
	rep := EyeReport{Result: res, Phase: phase}
	if !res.Success || res.Summary == nil {
		return rep, nil
	}

	phases := map[string]eye.Summary{phase: *res.Summary}
	if sessionID != "" {
		s, err := a.eyes.Update(ctx, sessionID, func(s *eyeSession) error {
			if s.Phases == nil {
				s.Phases = make(map[string]eye.Summary)
			}
			s.Phases[phase] = *res.Summary
			return nil
		})
		if err != nil {
			return rep, fmt.Errorf("save eye session: %w", err)
		}
		phases = s.Phases
	}
	overall := a.eye.Overall(phases)
	rep.Overall = &overall
	rep.AssessmentID = a.record(ctx, store.KindEyes, subjectID, overall.CompositeScore, rep)
	return rep, nil
}

// TremorReport is a tremor result and the ID it was stored under.
type TremorReport struct {
	tremor.Result
	AssessmentID string `json:"assessment_id,omitempty"`
}

// AnalyzeTremor tracks the index fingertip through a clip and analyzes it.
func (a *App) AnalyzeTremor(ctx context.Context, subjectID string, clip *capture.Clip) TremorReport {
	res := a.tremor.AnalyzeFrames(clip.Frames, clip.FPS)
	return a.tremorReport(ctx, subjectID, res)
}

func (a *App) tremorReport(ctx context.Context, subjectID string, res tremor.Result) TremorReport {
	rep := TremorReport{Result: res}
	// Below MinFrames the metrics are placeholders and not worth keeping.
	if res.Success && res.Metrics != nil && res.Metrics.FrameCount >= a.cfg.Tremor.MinFrames {
		rep.AssessmentID = a.record(ctx, store.KindTremor, subjectID, res.Metrics.Score, res)
	}
	return rep
}

// NeckReport is a neck result and, for assessments, the stored ID.
type NeckReport struct {
	neck.Result
	AssessmentID string `json:"assessment_id,omitempty"`
}

// SetNeckNeutral calibrates the session from an upright image.
func (a *App) SetNeckNeutral(ctx context.Context, sessionID string, img *gocv.Mat) (NeckReport, error) {
	pose, err := a.neck.DetectPose(img)
	if err != nil {
		a.logger.Error("pose detection failed", "error", err)
		return NeckReport{Result: neck.Result{Success: false, Error: err.Error()}}, nil
	}
	var res neck.Result
	_, err = a.necks.Update(ctx, sessionID, func(s *neck.Session) error {
		if !a.neck.SetNeutral(s, pose) {
			res = neck.Result{Success: false, Error: neck.ErrNoPose.Error()}
			return errNoChange
		}
		d := *s.NeutralAngle
		res = neck.Result{Success: true, Degrees: &d}
		return nil
	})
	if err != nil && !errors.Is(err, errNoChange) {
		return NeckReport{}, fmt.Errorf("save neck session: %w", err)
	}
	return NeckReport{Result: res}, nil
}

// MeasureNeck records one measurement of kind in the session.
func (a *App) MeasureNeck(ctx context.Context, sessionID string, kind neck.Kind, img *gocv.Mat) (NeckReport, error) {
	pose, err := a.neck.DetectPose(img)
	if err != nil {
		a.logger.Error("pose detection failed", "kind", kind, "error", err)
		return NeckReport{Result: neck.Result{Success: false, Error: err.Error()}}, nil
	}
	var res neck.Result
	_, err = a.necks.Update(ctx, sessionID, func(s *neck.Session) error {
		d, err := a.neck.Measure(s, kind, pose)
		if err != nil {
			res = neck.Result{Success: false, Error: err.Error()}
			return errNoChange
		}
		res = neck.Result{Success: true, Kind: kind, Degrees: &d}
		return nil
	})
	if err != nil && !errors.Is(err, errNoChange) {
		return NeckReport{}, fmt.Errorf("save neck session: %w", err)
	}
	return NeckReport{Result: res}, nil
}

// NeckResults produces the mobility assessment and resets the session.
func (a *App) NeckResults(ctx context.Context, subjectID, sessionID string) (NeckReport, error) {
	var res neck.Result
	_, err := a.necks.Update(ctx, sessionID, func(s *neck.Session) error {
		res = a.neck.Assessment(s)
		if !res.Success {
			return errNoChange
		}
		return nil
	})
	switch {
	case errors.Is(err, errNoChange):
	case err != nil:
		return NeckReport{}, fmt.Errorf("save neck session: %w", err)
	}

	rep := NeckReport{Result: res}
	if res.Success && res.Metrics != nil {
		rep.AssessmentID = a.record(ctx, store.KindNeck, subjectID, res.Metrics.MobilityScore, res)
	}
	return rep, nil
}

// errNoChange aborts a session update without treating it as a failure.
var errNoChange = errors.New("no change")
