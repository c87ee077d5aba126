package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "info", Format: "json", Output: &buf})

	logger.Info("request complete", "path", "/health", "status", 200)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if entry["msg"] != "request complete" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["path"] != "/health" {
		t.Errorf("path = %v", entry["path"])
	}
}

func TestNew_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "info", Format: "text", Output: &buf})

	logger.Info("hello")

	if !strings.Contains(buf.String(), "msg=hello") {
		t.Errorf("unexpected text output: %q", buf.String())
	}
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "warn", Format: "text", Output: &buf})

	logger.Info("dropped")
	logger.Warn("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Error("info record not filtered at warn level")
	}
	if !strings.Contains(out, "kept") {
		t.Error("warn record missing")
	}
}

func TestLogger_RedactsSecretsInMessageAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "info", Format: "text", Output: &buf})

	key := "sk-" + strings.Repeat("a", 24)
	logger.Info("using key "+key, "auth", "Bearer "+strings.Repeat("b", 24))

	out := buf.String()
	if strings.Contains(out, key) {
		t.Error("api key leaked into log output")
	}
	if strings.Contains(out, strings.Repeat("b", 24)) {
		t.Error("bearer token leaked into log output")
	}
	if !strings.Contains(out, "[REDACTED]") {
		t.Error("redaction marker missing")
	}
}

func TestLogger_WithCarriesSanitizer(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "info", Format: "text", Output: &buf})

	key := "sk-" + strings.Repeat("c", 24)
	logger.WithSpecialist("Cardiologist").Info("key is " + key)

	out := buf.String()
	if strings.Contains(out, key) {
		t.Error("api key leaked through derived logger")
	}
	if !strings.Contains(out, "specialist=Cardiologist") {
		t.Errorf("derived attr missing: %q", out)
	}
}

func TestSanitize(t *testing.T) {
	s := NewSanitizer()

	tests := []struct {
		name string
		in   string
		leak string
	}{
		{"openai key", "key sk-" + strings.Repeat("x", 24), "sk-" + strings.Repeat("x", 24)},
		{"google key", "AIza" + strings.Repeat("y", 35), strings.Repeat("y", 35)},
		{"bearer", "Authorization: Bearer " + strings.Repeat("z", 30), strings.Repeat("z", 30)},
		{"api key assignment", "api_key=" + strings.Repeat("q", 24), strings.Repeat("q", 24)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Sanitize(tt.in)
			if strings.Contains(got, tt.leak) {
				t.Errorf("Sanitize(%q) = %q, secret survived", tt.in, got)
			}
		})
	}

	if got := s.Sanitize("plain message, no secrets"); got != "plain message, no secrets" {
		t.Errorf("benign input modified: %q", got)
	}
}
