package config

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewLogger_ProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "production")

	logger.Debug("hidden")
	logger.Info("recognition submitted", "status", "identified")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %d: %q", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("expected JSON log line: %v", err)
	}
	if entry["service"] != "recall" || entry["status"] != "identified" {
		t.Errorf("unexpected entry: %v", entry)
	}
	if _, ok := entry["source"]; ok {
		t.Error("production logs must not carry source")
	}
}

func TestNewLogger_DevelopmentIsVerbose(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "development")

	logger.Debug("cache miss", "sample_id", "abc")

	out := buf.String()
	if !strings.Contains(out, "level=DEBUG") || !strings.Contains(out, "sample_id=abc") {
		t.Errorf("unexpected text output: %q", out)
	}
	if !strings.Contains(out, "source=") {
		t.Error("development logs should carry source")
	}
}
