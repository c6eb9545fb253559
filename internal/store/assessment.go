package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrNoSubject is returned when a baseline is requested for an assessment
// recorded without a subject.
var ErrNoSubject = errors.New("assessment has no subject")

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Kind is the modality an assessment measured.
type Kind string

const (
	KindFace   Kind = "face"
	KindEyes   Kind = "eyes"
	KindTremor Kind = "tremor"
	KindNeck   Kind = "neck"
	KindSpeech Kind = "speech"
)

// ParseKind validates a modality name. An empty name is allowed and means
// any kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case "", KindFace, KindEyes, KindTremor, KindNeck, KindSpeech:
		return k, nil
	default:
		return "", fmt.Errorf("unknown assessment kind %q", s)
	}
}

// Assessment is one stored analysis result.
type Assessment struct {
	ID        string          `json:"id"`
	SubjectID string          `json:"subject_id,omitempty"`
	Kind      Kind            `json:"kind"`
	Score     float64         `json:"score"`
	Payload   json.RawMessage `json:"result"`
	Baseline  bool            `json:"baseline"`
	CreatedAt time.Time       `json:"created_at"`
}

// Filter narrows List. Zero fields match everything; Limit <= 0 means 50.
type Filter struct {
	SubjectID string
	Kind      Kind
	Limit     int
}

// AssessmentRepository provides CRUD operations for assessments.
type AssessmentRepository struct {
	db  *sql.DB
	now func() time.Time
}

// Assessments returns the assessment repository for this store.
func (s *Store) Assessments() *AssessmentRepository {
	return &AssessmentRepository{db: s.db, now: time.Now}
}

const assessmentColumns = `id, subject_id, kind, score, payload, is_baseline, created_at`

// Create inserts a, assigning an ID and timestamp when unset. The subject is
// registered on first use.
func (r *AssessmentRepository) Create(ctx context.Context, a *Assessment) error {
	if _, err := ParseKind(string(a.Kind)); err != nil || a.Kind == "" {
		return fmt.Errorf("create assessment: invalid kind %q", a.Kind)
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = r.now()
	}
	a.CreatedAt = a.CreatedAt.UTC()
	if len(a.Payload) == 0 {
		a.Payload = json.RawMessage("{}")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if a.SubjectID != "" {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO subjects (id, created_at) VALUES (?, ?) ON CONFLICT(id) DO NOTHING`,
			a.SubjectID, a.CreatedAt.Format(timeLayout),
		); err != nil {
			return fmt.Errorf("register subject: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO assessments (`+assessmentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, nullable(a.SubjectID), string(a.Kind), a.Score, string(a.Payload),
		a.Baseline, a.CreatedAt.Format(timeLayout),
	); err != nil {
		return fmt.Errorf("insert assessment: %w", err)
	}
	return tx.Commit()
}

// Get retrieves an assessment by its ID.
func (r *AssessmentRepository) Get(ctx context.Context, id string) (*Assessment, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+assessmentColumns+` FROM assessments WHERE id = ?`, id)
	a, err := scanAssessment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

// List returns matching assessments, newest first.
func (r *AssessmentRepository) List(ctx context.Context, f Filter) ([]Assessment, error) {
	var (
		where []string
		args  []any
	)
	if f.SubjectID != "" {
		where = append(where, "subject_id = ?")
		args = append(args, f.SubjectID)
	}
	if f.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(f.Kind))
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + assessmentColumns + ` FROM assessments`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list assessments: %w", err)
	}
	defer rows.Close()

	out := []Assessment{}
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// Baseline returns the subject's baseline for kind: the assessment marked as
// baseline, or else the earliest one.
func (r *AssessmentRepository) Baseline(ctx context.Context, subjectID string, kind Kind) (*Assessment, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+assessmentColumns+` FROM assessments
		 WHERE subject_id = ? AND kind = ?
		 ORDER BY is_baseline DESC, created_at ASC, rowid ASC LIMIT 1`,
		subjectID, string(kind),
	)
	a, err := scanAssessment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

// SetBaseline marks id as its subject's baseline for its kind and clears any
// previous mark.
func (r *AssessmentRepository) SetBaseline(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var subject sql.NullString
	var kind string
	err = tx.QueryRowContext(ctx, `SELECT subject_id, kind FROM assessments WHERE id = ?`, id).Scan(&subject, &kind)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load assessment: %w", err)
	}
	if !subject.Valid {
		return fmt.Errorf("%w: %s", ErrNoSubject, id)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE assessments SET is_baseline = (id = ?) WHERE subject_id = ? AND kind = ?`,
		id, subject.String, kind,
	); err != nil {
		return fmt.Errorf("mark baseline: %w", err)
	}
	return tx.Commit()
}

// Delete removes an assessment.
func (r *AssessmentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM assessments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete assessment: %w", err)
	}
	return requireAffected(res)
}

// DeleteSubject removes a subject and, by cascade, all of its assessments.
func (r *AssessmentRepository) DeleteSubject(ctx context.Context, subjectID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM subjects WHERE id = ?`, subjectID)
	if err != nil {
		return fmt.Errorf("delete subject: %w", err)
	}
	return requireAffected(res)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAssessment(row scanner) (*Assessment, error) {
	var (
		a       Assessment
		subject sql.NullString
		kind    string
		payload string
		created string
	)
	if err := row.Scan(&a.ID, &subject, &kind, &a.Score, &payload, &a.Baseline, &created); err != nil {
		return nil, err
	}
	a.SubjectID = subject.String
	a.Kind = Kind(kind)
	a.Payload = json.RawMessage(payload)
	t, err := time.Parse(timeLayout, created)
	if err != nil {
		return nil, fmt.Errorf("parse created_at %q: %w", created, err)
	}
	a.CreatedAt = t
	return &a, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
