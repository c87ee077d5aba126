package service

import (
	"strings"
	"testing"
)

func TestEscapeForEmbedding(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text untouched", "no braces here", "no braces here"},
		{"single braces untouched", "json {\"a\": 1}", "json {\"a\": 1}"},
		{"open action", "before {{.Field}} after", "before { {.Field} } after"},
		{"bare double braces", "{{}}", "{ {} }"},
		{"triple open", "{{{", "{ { {"},
		{"quadruple open", "{{{{", "{ { { {"},
		{"triple close", "}}}", "} } }"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EscapeForEmbedding(tt.in)
			if got != tt.want {
				t.Errorf("EscapeForEmbedding(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if strings.Contains(got, "{{") || strings.Contains(got, "}}") {
				t.Errorf("EscapeForEmbedding(%q) = %q, action marker survived", tt.in, got)
			}
		})
	}
}

func TestSanitizeASCII(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain ascii untouched", "plain findings, no issue", "plain findings, no issue"},
		{"smart double quotes", "“acute” onset", `"acute" onset`},
		{"smart single quotes", "patient’s history", "patient's history"},
		{"en and em dashes", "dose–response — unclear", "dose-response -- unclear"},
		{"ellipsis", "symptoms persist…", "symptoms persist..."},
		{"bullet", "• first finding", "- first finding"},
		{"arrow", "stress → arrhythmia", "stress -> arrhythmia"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeASCII(tt.in); got != tt.want {
				t.Errorf("SanitizeASCII(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
