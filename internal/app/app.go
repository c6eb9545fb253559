// Package app wires the analyzers to frame decoding, session state and the
// assessment history. The HTTP server and the CLI both drive it.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/ayusman/samarth/internal/audio"
	"github.com/ayusman/samarth/internal/capture"
	"github.com/ayusman/samarth/internal/config"
	"github.com/ayusman/samarth/internal/detector"
	"github.com/ayusman/samarth/internal/eye"
	"github.com/ayusman/samarth/internal/face"
	"github.com/ayusman/samarth/internal/neck"
	"github.com/ayusman/samarth/internal/session"
	"github.com/ayusman/samarth/internal/speech"
	"github.com/ayusman/samarth/internal/store"
	"github.com/ayusman/samarth/internal/tremor"
)

// ErrNoHistory is returned by history queries when no database is configured.
var ErrNoHistory = errors.New("assessment history is not configured")

// Options holds the collaborators of an App. Store may be nil, in which case
// results are not persisted. Sessions defaults to an in-memory store.
type Options struct {
	Config   config.Config
	Provider detector.Provider
	Store    *store.Store
	Sessions session.Store
	Logger   *slog.Logger
}

// App runs assessments end to end.
type App struct {
	cfg    config.Config
	logger *slog.Logger
	store  *store.Store

	face   *face.Analyzer
	eye    *eye.Analyzer
	tremor *tremor.Analyzer
	neck   *neck.Analyzer
	speech *speech.Analyzer

	tremors *session.Sessions[tremor.Session]
	necks   *session.Sessions[neck.Session]
	eyes    *session.Sessions[eyeSession]
}

// New creates an App.
func New(opts Options) *App {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	provider := opts.Provider
	if provider == nil {
		provider = detector.Unavailable{}
	}
	sessions := opts.Sessions
	if sessions == nil {
		sessions = session.NewMemoryStore(0)
	}
	cfg := opts.Config

	return &App{
		cfg:    cfg,
		logger: logger,
		store:  opts.Store,

		face:   face.NewAnalyzer(cfg.Face, provider, logger.With("modality", "face")),
		eye:    eye.NewAnalyzer(cfg.Eye, provider, logger.With("modality", "eyes")),
		tremor: tremor.NewAnalyzer(cfg.Tremor, provider, logger.With("modality", "tremor")),
		neck:   neck.NewAnalyzer(cfg.Neck, provider, logger.With("modality", "neck")),
		speech: speech.NewAnalyzer(cfg.Speech, logger.With("modality", "speech")),

		tremors: session.New[tremor.Session](sessions, "tremor"),
		necks:   session.New[neck.Session](sessions, "neck"),
		eyes:    session.New[eyeSession](sessions, "eyes"),
	}
}

// Config returns the configuration the App was built with.
func (a *App) Config() config.Config {
	return a.cfg
}

// OpenClip decodes a video file within the capture limits.
func (a *App) OpenClip(ctx context.Context, path string) (*capture.Clip, error) {
	meter := capture.NewChangeMeter(a.cfg.Capture.StallThreshold)
	defer meter.Close()

	clip, err := capture.ReadClip(ctx, capture.NewFileSource(path, a.cfg.Capture.DefaultFPS), a.cfg.Capture.MaxFrames, meter)
	if err != nil {
		return nil, err
	}
	if clip.Duplicates > 0 {
		a.logger.Info("clip has repeated frames", "frames", clip.Len(), "duplicates", clip.Duplicates, "fps", clip.FPS)
	}
	return clip, nil
}

// SpeechReport is a speech result and the ID it was stored under.
type SpeechReport struct {
	speech.Result
	AssessmentID string `json:"assessment_id,omitempty"`
}

// AnalyzeSpeech scores a recording.
func (a *App) AnalyzeSpeech(ctx context.Context, subjectID string, clip *audio.Clip) SpeechReport {
	res := a.speech.Analyze(ctx, clip)
	rep := SpeechReport{Result: res}
	if res.Success && res.Metrics != nil {
		rep.AssessmentID = a.record(ctx, store.KindSpeech, subjectID, res.Metrics.OverallScore, res)
	}
	return rep
}

// record stores a successful result. Persistence failures are logged and
// do not fail the analysis.
func (a *App) record(ctx context.Context, kind store.Kind, subjectID string, score float64, result any) string {
	if a.store == nil {
		return ""
	}
	payload, err := json.Marshal(result)
	if err != nil {
		a.logger.Error("encode assessment", "kind", kind, "error", err)
		return ""
	}
	as := &store.Assessment{SubjectID: subjectID, Kind: kind, Score: score, Payload: payload}
	if err := a.store.Assessments().Create(ctx, as); err != nil {
		a.logger.Error("store assessment", "kind", kind, "subject", subjectID, "error", err)
		return ""
	}
	a.logger.Debug("assessment stored", "kind", kind, "id", as.ID, "score", score)
	return as.ID
}
