package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/ayusman/samarth/internal/app"
	"github.com/ayusman/samarth/internal/config"
	"github.com/ayusman/samarth/internal/detector"
	"github.com/ayusman/samarth/internal/store"
)

// newTestApp creates an App backed by a temporary database.
func newTestApp(t *testing.T, provider detector.Provider) (*app.App, *store.Store) {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return app.New(app.Options{Config: config.Default(), Provider: provider, Store: s}), s
}

func newMux(a *app.App, maxBytes int64) *http.ServeMux {
	mux := http.NewServeMux()
	NewAnalyzeHandler(a, maxBytes, nil).Register(mux)
	NewAssessmentHandler(a, nil).Register(mux)
	return mux
}

// uploadRequest builds a multipart POST. data is omitted when nil.
func uploadRequest(t *testing.T, target string, fields map[string]string, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if data != nil {
		fw, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		fw.Write(data)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func skipWithoutOpenCV(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping OpenCV-backed test in short mode")
	}
}
