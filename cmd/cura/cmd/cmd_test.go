package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	SetVersion("1.2.3", "abc123", "2026-01-01")

	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out, "cura 1.2.3") {
		t.Errorf("missing version in output: %q", out)
	}
	if !strings.Contains(out, "abc123") {
		t.Errorf("missing commit in output: %q", out)
	}
}

func TestSpecialistsCommand_Table(t *testing.T) {
	out, err := execute(t, "specialists")
	if err != nil {
		t.Fatalf("specialists: %v", err)
	}
	for _, name := range []string{"Cardiologist", "General Practitioner"} {
		if !strings.Contains(out, name) {
			t.Errorf("missing %q in output", name)
		}
	}
}

func TestSpecialistsCommand_YAML(t *testing.T) {
	out, err := execute(t, "specialists", "--format", "yaml")
	if err != nil {
		t.Fatalf("specialists --format yaml: %v", err)
	}
	if !strings.Contains(out, "name: Cardiologist") {
		t.Errorf("missing yaml entry in output: %q", out)
	}
}

func TestSpecialistsCommand_UnknownFormat(t *testing.T) {
	_, err := execute(t, "specialists", "--format", "xml")
	if err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestOpenLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "cura.log")

	f, err := openLogFile(path)
	if err != nil {
		t.Fatalf("openLogFile() error = %v", err)
	}
	if _, err := f.WriteString("first run\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Reopening appends rather than truncating.
	f, err = openLogFile(path)
	if err != nil {
		t.Fatalf("openLogFile() reopen error = %v", err)
	}
	if _, err := f.WriteString("second run\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got := string(data); got != "first run\nsecond run\n" {
		t.Errorf("log file contents = %q", got)
	}
}
