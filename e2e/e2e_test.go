package e2e

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ayusman/samarth/internal/app"
	"github.com/ayusman/samarth/internal/config"
	"github.com/ayusman/samarth/internal/detector"
	"github.com/ayusman/samarth/internal/server"
	"github.com/ayusman/samarth/internal/session"
	"github.com/ayusman/samarth/internal/store"
	"github.com/ayusman/samarth/internal/testsupport"
)

func postFile(t *testing.T, client *http.Client, url string, fields map[string]string, filename string, data []byte) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	fw, _ := mw.CreateFormFile("file", filename)
	fw.Write(data)
	mw.Close()

	resp, err := client.Post(url, mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("POST %s error = %v", url, err)
	}
	return resp
}

func TestE2E_SpeechHistoryWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	tmpDir := t.TempDir()
	s, err := store.New(filepath.Join(tmpDir, "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	application := app.New(app.Options{
		Config:   config.Default(),
		Store:    s,
		Sessions: session.NewMemoryStore(time.Minute),
	})
	ts := httptest.NewServer(server.New(server.Config{App: application, MaxUploadMB: 16, RequestTimeout: time.Minute}))
	defer ts.Close()
	client := ts.Client()

	wav, err := os.ReadFile(testsupport.WriteWAV(t, testsupport.Syllables(4, 3, 16000)))
	if err != nil {
		t.Fatal(err)
	}

	var ids []string
	t.Run("AnalyzeSpeechTwice", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			resp := postFile(t, client, ts.URL+"/api/analyze/speech", map[string]string{"subject_id": "p1"}, "voice.wav", wav)
			var rep app.SpeechReport
			json.NewDecoder(resp.Body).Decode(&rep)
			resp.Body.Close()

			if resp.StatusCode != http.StatusOK || !rep.Success || rep.AssessmentID == "" {
				t.Fatalf("status = %d, report = %+v", resp.StatusCode, rep)
			}
			ids = append(ids, rep.AssessmentID)
		}
	})
	if len(ids) != 2 {
		t.FailNow()
	}

	t.Run("ListHistory", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/assessments?subject_id=p1&kind=speech")
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		var list struct {
			Assessments []store.Assessment `json:"assessments"`
		}
		json.NewDecoder(resp.Body).Decode(&list)
		if len(list.Assessments) != 2 || list.Assessments[0].ID != ids[1] {
			t.Errorf("history = %+v", list.Assessments)
		}
	})

	t.Run("CompareWithBaseline", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/assessments/" + ids[1] + "/compare")
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		var cmp app.Comparison
		json.NewDecoder(resp.Body).Decode(&cmp)
		if cmp.Baseline == nil || cmp.Baseline.ID != ids[0] {
			t.Errorf("baseline = %+v, want %s", cmp.Baseline, ids[0])
		}
		// Same recording, same score.
		if cmp.Change != 0 {
			t.Errorf("change = %f, want 0", cmp.Change)
		}
	})

	t.Run("APIStillWorks", func(t *testing.T) {
		resp, _ := client.Get(ts.URL + "/api/health")
		if resp.StatusCode != http.StatusOK {
			t.Errorf("health check failed after analyses")
		}
		resp.Body.Close()
	})
}

func TestE2E_NeckSessionWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	s, err := store.New(filepath.Join(t.TempDir(), "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	mock := detector.NewMockProvider()
	mock.QueuePoses(
		detector.PosePreset(0, 0),
		detector.PosePreset(25, 0),
		detector.PosePreset(-20, 0),
		detector.PosePreset(0, -35),
		detector.PosePreset(0, 35),
	)
	application := app.New(app.Options{Config: config.Default(), Provider: mock, Store: s})
	ts := httptest.NewServer(server.New(server.Config{App: application}))
	defer ts.Close()
	client := ts.Client()
	img := testsupport.JPEG(t)
	fields := func(position string) map[string]string {
		return map[string]string{"session_id": "neck-1", "position": position}
	}

	resp := postFile(t, client, ts.URL+"/api/analyze/neck/set-neutral", fields(""), "pose.jpg", img)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("set-neutral status = %d", resp.StatusCode)
	}
	for _, position := range []string{"flexion", "extension", "rotation", "rotation"} {
		resp := postFile(t, client, ts.URL+"/api/analyze/neck/measure", fields(position), "pose.jpg", img)
		var rep app.NeckReport
		json.NewDecoder(resp.Body).Decode(&rep)
		resp.Body.Close()
		if !rep.Success {
			t.Fatalf("measure %s: %+v", position, rep)
		}
	}

	resp, err = client.Get(ts.URL + "/api/analyze/neck/results?session_id=neck-1&subject_id=p2")
	if err != nil {
		t.Fatal(err)
	}
	var res app.NeckReport
	json.NewDecoder(resp.Body).Decode(&res)
	resp.Body.Close()
	if !res.Success || res.Metrics == nil || res.AssessmentID == "" {
		t.Fatalf("results = %+v", res)
	}
	if res.Metrics.LeftRotationDegrees < 30 || res.Metrics.RightRotationDegrees < 30 {
		t.Errorf("rotation = %f / %f", res.Metrics.LeftRotationDegrees, res.Metrics.RightRotationDegrees)
	}
	if res.Metrics.SymmetryScore < 95 {
		t.Errorf("symmetry = %f, want near 100", res.Metrics.SymmetryScore)
	}
}
