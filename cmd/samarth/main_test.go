package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ayusman/samarth/internal/app"
	"github.com/ayusman/samarth/internal/store"
	"github.com/ayusman/samarth/internal/testsupport"
)

// run executes the CLI with args and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func isolatedHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func TestConfigInit(t *testing.T) {
	home := isolatedHome(t)
	path := filepath.Join(home, "samarth.toml")

	out, err := run(t, "config", "init", "--path", path)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, path) {
		t.Errorf("output %q does not mention %s", out, path)
	}
	if _, err := run(t, "config", "init", "--path", path); err == nil || !strings.Contains(err.Error(), "--overwrite") {
		t.Errorf("second init error = %v", err)
	}
	if _, err := run(t, "config", "init", "--path", path, "--overwrite"); err != nil {
		t.Errorf("init --overwrite: %v", err)
	}

	out, err = run(t, "--config", path, "config", "validate")
	if err != nil || !strings.Contains(out, "Configuration valid") {
		t.Errorf("validate = %q, %v", out, err)
	}

	out, err = run(t, "--config", path, "config", "show")
	if err != nil || !strings.Contains(out, "[server]") {
		t.Errorf("show = %q, %v", out, err)
	}
}

func TestInvalidConfig(t *testing.T) {
	home := isolatedHome(t)
	path := filepath.Join(home, "bad.toml")
	if err := os.WriteFile(path, []byte("[sessions]\nbackend = \"etcd\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, "--config", path, "history"); err == nil {
		t.Error("expected error for invalid config")
	}
	if _, err := run(t, "--log-level", "loud", "history"); err == nil {
		t.Error("expected error for invalid log level")
	}
}

func TestSpeechAndHistory(t *testing.T) {
	isolatedHome(t)
	wav := testsupport.WriteWAV(t, testsupport.Syllables(4, 2, 16000))

	out, err := run(t, "--json", "analyze", "speech", "--subject", "p1", wav)
	if err != nil {
		t.Fatalf("analyze speech: %v", err)
	}
	var rep app.SpeechReport
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out)
	}
	if !rep.Success || rep.AssessmentID == "" {
		t.Fatalf("report = %+v", rep)
	}

	out, err = run(t, "analyze", "speech", wav)
	if err != nil || !strings.Contains(out, "Overall score") {
		t.Errorf("table output = %q, %v", out, err)
	}

	out, err = run(t, "--json", "history", "--subject", "p1")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var list []store.Assessment
	if err := json.Unmarshal([]byte(out), &list); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(list) != 1 || list[0].ID != rep.AssessmentID || list[0].Kind != store.KindSpeech {
		t.Errorf("history = %+v", list)
	}

	out, err = run(t, "history")
	if err != nil || !strings.Contains(out, rep.AssessmentID) {
		t.Errorf("history table = %q, %v", out, err)
	}

	if out, err = run(t, "history", "show", rep.AssessmentID); err != nil || !strings.Contains(out, `"kind": "speech"`) {
		t.Errorf("show = %q, %v", out, err)
	}
	if _, err = run(t, "history", "baseline", rep.AssessmentID); err != nil {
		t.Errorf("baseline: %v", err)
	}
	out, err = run(t, "--json", "history", "compare", rep.AssessmentID)
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	var cmp app.Comparison
	if err := json.Unmarshal([]byte(out), &cmp); err != nil || cmp.Baseline == nil || cmp.Change != 0 {
		t.Errorf("compare = %+v, %v", cmp, err)
	}

	if _, err = run(t, "history", "delete", "--subject", "p1"); err != nil {
		t.Errorf("delete subject: %v", err)
	}
	if _, err = run(t, "history", "show", rep.AssessmentID); err == nil {
		t.Error("expected deleted assessment to be gone")
	}
}

func TestHistory_Empty(t *testing.T) {
	isolatedHome(t)
	out, err := run(t, "history", "--kind", "tremor")
	if err != nil || !strings.Contains(out, "No assessments recorded") {
		t.Errorf("history = %q, %v", out, err)
	}
	if _, err := run(t, "history", "--kind", "gait"); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestAnalyzeFace_WithoutLandmarkService(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping OpenCV-backed test in short mode")
	}
	home := isolatedHome(t)
	path := filepath.Join(home, "face.jpg")
	if err := os.WriteFile(path, testsupport.JPEG(t), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := run(t, "analyze", "face", path)
	if err == nil || !strings.Contains(err.Error(), "analysis failed") {
		t.Errorf("error = %v", err)
	}
}

func TestAnalyzeNeck_RequiresNeutral(t *testing.T) {
	isolatedHome(t)
	if _, err := run(t, "analyze", "neck"); err == nil {
		t.Error("expected error without --neutral")
	}
}

func TestLockDatabase_Exclusive(t *testing.T) {
	db := filepath.Join(t.TempDir(), "nested", "samarth.db")

	unlock, err := lockDatabase(db)
	if err != nil {
		t.Fatalf("first lock: %v", err)
	}
	if _, err := lockDatabase(db); err == nil || !strings.Contains(err.Error(), "already using") {
		t.Errorf("second lock error = %v", err)
	}
	unlock()

	again, err := lockDatabase(db)
	if err != nil {
		t.Fatalf("lock after release: %v", err)
	}
	again()
}
