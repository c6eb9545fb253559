package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ayusman/samarth/internal/app"
	"github.com/ayusman/samarth/internal/capture"
	"github.com/ayusman/samarth/internal/neck"
)

// AnalyzeHandler serves the /api/analyze endpoints. Failed analyses are
// reported with status 200 and success=false; malformed uploads get 400.
type AnalyzeHandler struct {
	app      *app.App
	maxBytes int64
	logger   *slog.Logger
}

// NewAnalyzeHandler creates an AnalyzeHandler. maxBytes bounds request
// bodies; zero disables the limit.
func NewAnalyzeHandler(a *app.App, maxBytes int64, logger *slog.Logger) *AnalyzeHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalyzeHandler{app: a, maxBytes: maxBytes, logger: logger}
}

// Register adds the routes to mux.
func (h *AnalyzeHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/analyze/face", h.face)
	mux.HandleFunc("POST /api/analyze/eyes", h.eyes)
	mux.HandleFunc("POST /api/analyze/tremor", h.tremor)
	mux.HandleFunc("POST /api/analyze/speech", h.speech)
	mux.HandleFunc("POST /api/analyze/neck/set-neutral", h.neckNeutral)
	mux.HandleFunc("POST /api/analyze/neck/measure", h.neckMeasure)
	mux.HandleFunc("GET /api/analyze/neck/results", h.neckResults)
}

func (h *AnalyzeHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var br badRequest
	switch {
	case errors.As(err, &br):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "analysis timed out")
	default:
		h.logger.Error("analysis request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// openClip decodes the uploaded video in "file".
func (h *AnalyzeHandler) openClip(r *http.Request) (*capture.Clip, error) {
	path, cleanup, err := spoolVideo(r, "file")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	clip, err := h.app.OpenClip(r.Context(), path)
	if err != nil {
		if ctxErr := r.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, badRequest{err}
	}
	return clip, nil
}

func subjectID(r *http.Request) string {
	return strings.TrimSpace(r.FormValue("subject_id"))
}

func sessionID(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.FormValue("session_id"))
	if id == "" {
		return "", badRequest{errors.New("session_id is required")}
	}
	return id, nil
}

// face handles POST /api/analyze/face with an image in "file".
func (h *AnalyzeHandler) face(w http.ResponseWriter, r *http.Request) {
	if err := parseUpload(w, r, h.maxBytes); err != nil {
		h.fail(w, r, err)
		return
	}
	img, err := readImage(r, "file")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer img.Close()

	writeJSON(w, http.StatusOK, h.app.AnalyzeFace(r.Context(), subjectID(r), img))
}

// eyes handles POST /api/analyze/eyes with a video in "file" and an
// optional phase and session_id.
func (h *AnalyzeHandler) eyes(w http.ResponseWriter, r *http.Request) {
	if err := parseUpload(w, r, h.maxBytes); err != nil {
		h.fail(w, r, err)
		return
	}
	phase, err := app.ParsePhase(r.FormValue("phase"))
	if err != nil {
		h.fail(w, r, badRequest{err})
		return
	}
	clip, err := h.openClip(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer clip.Close()

	rep, err := h.app.AnalyzeEyes(r.Context(), subjectID(r), strings.TrimSpace(r.FormValue("session_id")), phase, clip)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// tremor handles POST /api/analyze/tremor with a video in "file".
func (h *AnalyzeHandler) tremor(w http.ResponseWriter, r *http.Request) {
	if err := parseUpload(w, r, h.maxBytes); err != nil {
		h.fail(w, r, err)
		return
	}
	clip, err := h.openClip(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer clip.Close()

	writeJSON(w, http.StatusOK, h.app.AnalyzeTremor(r.Context(), subjectID(r), clip))
}

// speech handles POST /api/analyze/speech with a WAV in "file".
func (h *AnalyzeHandler) speech(w http.ResponseWriter, r *http.Request) {
	if err := parseUpload(w, r, h.maxBytes); err != nil {
		h.fail(w, r, err)
		return
	}
	clip, err := readAudio(r, "file")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rep := h.app.AnalyzeSpeech(r.Context(), subjectID(r), clip)
	if err := r.Context().Err(); err != nil && !rep.Success {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (h *AnalyzeHandler) neckNeutral(w http.ResponseWriter, r *http.Request) {
	if err := parseUpload(w, r, h.maxBytes); err != nil {
		h.fail(w, r, err)
		return
	}
	id, err := sessionID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	img, err := readImage(r, "file")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer img.Close()

	rep, err := h.app.SetNeckNeutral(r.Context(), id, img)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// neckMeasure handles POST /api/analyze/neck/measure. position is one of
// flexion, extension or rotation.
func (h *AnalyzeHandler) neckMeasure(w http.ResponseWriter, r *http.Request) {
	if err := parseUpload(w, r, h.maxBytes); err != nil {
		h.fail(w, r, err)
		return
	}
	id, err := sessionID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	kind := neck.Kind(strings.ToLower(strings.TrimSpace(r.FormValue("position"))))
	switch kind {
	case neck.Flexion, neck.Extension, neck.Rotation:
	default:
		h.fail(w, r, badRequest{fmt.Errorf("position %q must be flexion, extension or rotation", kind)})
		return
	}
	img, err := readImage(r, "file")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer img.Close()

	rep, err := h.app.MeasureNeck(r.Context(), id, kind, img)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (h *AnalyzeHandler) neckResults(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rep, err := h.app.NeckResults(r.Context(), subjectID(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}
