package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"DEBUG", slog.LevelDebug, false},
		{" warn ", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"trace", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) err = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := New(Options{Level: "info", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer closer.Close()

	logger.Debug("hidden")
	logger.Info("analysis complete", "modality", "tremor", "frames", 90)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rec["level"] != "info" || rec["msg"] != "analysis complete" || rec["modality"] != "tremor" {
		t.Errorf("record = %v", rec)
	}
	if _, ok := rec["ts"]; !ok {
		t.Error("missing ts key")
	}
}

func TestNew_ConsoleWithoutTerminalHasNoColor(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := New(Options{Format: "console", Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Warn("detector restarted", "attempt", 2)

	out := buf.String()
	if !strings.Contains(out, "detector restarted") || !strings.Contains(out, "attempt=2") {
		t.Errorf("output = %q", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Errorf("unexpected ANSI escape in %q", out)
	}
}

func TestNew_Errors(t *testing.T) {
	if _, _, err := New(Options{Format: "xml"}); err == nil {
		t.Error("expected error for unsupported format")
	}
	if _, _, err := New(Options{Level: "loud"}); err == nil {
		t.Error("expected error for unsupported level")
	}
}

func TestNew_FileFanout(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "samarth.log")
	logger, closer, err := New(Options{
		Level:     "debug",
		Format:    "json",
		Output:    &buf,
		File:      path,
		MaxSizeMB: 1,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.With("session_id", "abc").Debug("frame tracked")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	for name, out := range map[string]string{"console": buf.String(), "file": string(data)} {
		if !strings.Contains(out, `"session_id":"abc"`) || !strings.Contains(out, "frame tracked") {
			t.Errorf("%s output = %q", name, out)
		}
	}
}

func TestFanoutHandler_RespectsLevels(t *testing.T) {
	var infoBuf, errBuf bytes.Buffer
	h := newFanoutHandler(
		slog.NewTextHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewTextHandler(&errBuf, &slog.HandlerOptions{Level: slog.LevelError}),
	)
	if !h.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatal("expected info enabled")
	}
	if h.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected debug disabled")
	}

	logger := slog.New(h).WithGroup("eye")
	logger.Info("phase", "name", "saccade")
	logger.Error("failed")

	if !strings.Contains(infoBuf.String(), "eye.name=saccade") {
		t.Errorf("info handler = %q", infoBuf.String())
	}
	if strings.Contains(errBuf.String(), "phase") || !strings.Contains(errBuf.String(), "failed") {
		t.Errorf("error handler = %q", errBuf.String())
	}
}
