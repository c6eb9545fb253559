package app

import (
	"context"
	"errors"
	"fmt"

	"gocv.io/x/gocv"

	"github.com/ayusman/samarth/internal/session"
	"github.com/ayusman/samarth/internal/tremor"
)

// LiveStatus describes a tremor session after a frame was submitted.
type LiveStatus struct {
	Tracked   bool `json:"tracked"`
	Positions int  `json:"positions"`
	// Ready reports whether enough positions exist for a full analysis.
	Ready bool `json:"ready"`
}

// TrackTremor detects the hand in one frame and appends the fingertip to
// the session.
func (a *App) TrackTremor(ctx context.Context, sessionID string, frame *gocv.Mat) (LiveStatus, error) {
	pos, err := a.tremor.ProcessFrame(frame)
	if err != nil {
		return LiveStatus{}, err
	}

	var s tremor.Session
	if pos == nil {
		s, err = a.tremors.Get(ctx, sessionID)
		if err != nil && !errors.Is(err, session.ErrNotFound) {
			return LiveStatus{}, fmt.Errorf("load tremor session: %w", err)
		}
	} else {
		s, err = a.tremors.Update(ctx, sessionID, func(s *tremor.Session) error {
			if s.FrameRate <= 0 {
				s.FrameRate = a.cfg.Tremor.FrameRate
			}
			a.tremor.Record(s, pos.IndexTip)
			return nil
		})
		if err != nil {
			return LiveStatus{}, fmt.Errorf("save tremor session: %w", err)
		}
	}
	return LiveStatus{
		Tracked:   pos != nil,
		Positions: s.Len(),
		Ready:     s.Len() >= a.cfg.Tremor.MinFrames,
	}, nil
}

// AnalyzeTremorSession analyzes the positions collected in the session and
// clears it.
func (a *App) AnalyzeTremorSession(ctx context.Context, subjectID, sessionID string) (TremorReport, error) {
	s, err := a.tremors.Take(ctx, sessionID)
	if errors.Is(err, session.ErrNotFound) {
		return TremorReport{Result: tremor.Result{Success: false, Error: tremor.NoHandError}}, nil
	}
	if err != nil {
		return TremorReport{}, fmt.Errorf("take tremor session: %w", err)
	}
	return a.tremorReport(ctx, subjectID, a.tremor.AnalyzeSession(&s)), nil
}

// ResetTremor discards the session.
func (a *App) ResetTremor(ctx context.Context, sessionID string) error {
	return a.tremors.Delete(ctx, sessionID)
}
