package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/ayusman/samarth/internal/app"
	"github.com/ayusman/samarth/internal/store"
)

// AssessmentHandler serves the stored assessment history.
type AssessmentHandler struct {
	app    *app.App
	logger *slog.Logger
}

// NewAssessmentHandler creates an AssessmentHandler.
func NewAssessmentHandler(a *app.App, logger *slog.Logger) *AssessmentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AssessmentHandler{app: a, logger: logger}
}

// Register adds the routes to mux.
func (h *AssessmentHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/assessments", h.list)
	mux.HandleFunc("GET /api/assessments/baseline", h.baseline)
	mux.HandleFunc("GET /api/assessments/{id}", h.get)
	mux.HandleFunc("DELETE /api/assessments/{id}", h.delete)
	mux.HandleFunc("GET /api/assessments/{id}/compare", h.compare)
	mux.HandleFunc("POST /api/assessments/{id}/baseline", h.setBaseline)
	mux.HandleFunc("DELETE /api/subjects/{id}", h.deleteSubject)
}

type listAssessmentsResponse struct {
	Assessments []store.Assessment `json:"assessments"`
}

func (h *AssessmentHandler) storeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, app.ErrNoHistory):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "assessment not found")
	case errors.Is(err, store.ErrNoSubject):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error("assessment request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load assessments")
	}
}

func queryKind(r *http.Request) (store.Kind, error) {
	return store.ParseKind(r.URL.Query().Get("kind"))
}

// list handles GET /api/assessments?subject_id=&kind=&limit=.
func (h *AssessmentHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	kind, err := queryKind(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	f := store.Filter{SubjectID: strings.TrimSpace(q.Get("subject_id")), Kind: kind}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		f.Limit = limit
	}

	list, err := h.app.History(r.Context(), f)
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listAssessmentsResponse{Assessments: list})
}

func (h *AssessmentHandler) get(w http.ResponseWriter, r *http.Request) {
	as, err := h.app.Assessment(r.Context(), r.PathValue("id"))
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, as)
}

func (h *AssessmentHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.app.DeleteAssessment(r.Context(), r.PathValue("id")); err != nil {
		h.storeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AssessmentHandler) deleteSubject(w http.ResponseWriter, r *http.Request) {
	if err := h.app.DeleteSubject(r.Context(), r.PathValue("id")); err != nil {
		h.storeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// baseline handles GET /api/assessments/baseline?subject_id=&kind=. Both
// parameters are required.
func (h *AssessmentHandler) baseline(w http.ResponseWriter, r *http.Request) {
	subject := strings.TrimSpace(r.URL.Query().Get("subject_id"))
	kind, err := queryKind(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if subject == "" || kind == "" {
		writeError(w, http.StatusBadRequest, "subject_id and kind are required")
		return
	}
	as, err := h.app.Baseline(r.Context(), subject, kind)
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, as)
}

func (h *AssessmentHandler) setBaseline(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.app.SetBaseline(r.Context(), id); err != nil {
		h.storeError(w, r, err)
		return
	}
	as, err := h.app.Assessment(r.Context(), id)
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, as)
}

func (h *AssessmentHandler) compare(w http.ResponseWriter, r *http.Request) {
	c, err := h.app.Compare(r.Context(), r.PathValue("id"))
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}
