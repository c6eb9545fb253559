package server

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/ayusman/samarth/internal/app"
	"github.com/ayusman/samarth/internal/config"
	"github.com/ayusman/samarth/internal/store"
)

func TestRateLimiter_Allow(t *testing.T) {
	l := newRateLimiter(60, 2)
	now := time.Now()

	if !l.allow("a", now) || !l.allow("a", now) {
		t.Fatal("burst of 2 should be allowed")
	}
	if l.allow("a", now) {
		t.Error("third request in the same instant should be refused")
	}
	if !l.allow("b", now) {
		t.Error("another client has its own bucket")
	}
	if !l.allow("a", now.Add(time.Second)) {
		t.Error("one token refills per second at 60/min")
	}
}

func TestRateLimiter_SweepsIdleClients(t *testing.T) {
	l := newRateLimiter(60, 1)
	start := time.Now()
	for i := 0; i < limiterSweepLen; i++ {
		l.allow(string(rune('a'+i%26))+time.Duration(i).String(), start)
	}
	l.allow("late", start.Add(2*limiterIdle))
	if len(l.clients) != 1 {
		t.Errorf("clients = %d, want only the fresh one", len(l.clients))
	}
}

func TestServer_RateLimit(t *testing.T) {
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	a := app.New(app.Options{Config: config.Default(), Store: st})
	s := New(Config{App: a, MaxUploadMB: 8, RateLimitPerMinute: 1, RateLimitBurst: 2})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/assessments", nil))
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Fatalf("codes = %v, want the burst to pass", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("third status = %d, want %d", codes[2], http.StatusTooManyRequests)
	}

	// Health is outside the limited API tree.
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("health status = %d", rec.Code)
	}
}
