package app

import (
	"context"

	"github.com/ayusman/samarth/internal/store"
)

// Comparison relates an assessment to the subject's baseline of the same
// kind. Change is the score difference, positive when the score rose.
type Comparison struct {
	Assessment *store.Assessment `json:"assessment"`
	Baseline   *store.Assessment `json:"baseline"`
	Change     float64           `json:"change"`
}

// History lists stored assessments, newest first.
func (a *App) History(ctx context.Context, f store.Filter) ([]store.Assessment, error) {
	if a.store == nil {
		return nil, ErrNoHistory
	}
	return a.store.Assessments().List(ctx, f)
}

// Assessment returns one stored assessment.
func (a *App) Assessment(ctx context.Context, id string) (*store.Assessment, error) {
	if a.store == nil {
		return nil, ErrNoHistory
	}
	return a.store.Assessments().Get(ctx, id)
}

// Baseline returns the subject's baseline for kind.
func (a *App) Baseline(ctx context.Context, subjectID string, kind store.Kind) (*store.Assessment, error) {
	if a.store == nil {
		return nil, ErrNoHistory
	}
	return a.store.Assessments().Baseline(ctx, subjectID, kind)
}

// SetBaseline marks an assessment as its subject's baseline.
func (a *App) SetBaseline(ctx context.Context, id string) error {
	if a.store == nil {
		return ErrNoHistory
	}
	return a.store.Assessments().SetBaseline(ctx, id)
}

// Compare relates assessment id to its subject's baseline.
func (a *App) Compare(ctx context.Context, id string) (*Comparison, error) {
	as, err := a.Assessment(ctx, id)
	if err != nil {
		return nil, err
	}
	c := &Comparison{Assessment: as}
	if as.SubjectID == "" {
		return c, nil
	}
	base, err := a.Baseline(ctx, as.SubjectID, as.Kind)
	if err != nil {
		return nil, err
	}
	c.Baseline = base
	c.Change = as.Score - base.Score
	return c, nil
}

// DeleteAssessment removes one stored assessment.
func (a *App) DeleteAssessment(ctx context.Context, id string) error {
	if a.store == nil {
		return ErrNoHistory
	}
	return a.store.Assessments().Delete(ctx, id)
}

// DeleteSubject removes a subject and all of its assessments.
func (a *App) DeleteSubject(ctx context.Context, subjectID string) error {
	if a.store == nil {
		return ErrNoHistory
	}
	return a.store.Assessments().DeleteSubject(ctx, subjectID)
}
