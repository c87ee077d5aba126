package service

import "strings"

// EscapeForEmbedding neutralizes characters in untrusted model output
// that a later text/template parse would read as template actions.
// Specialist reports are free text and may contain brace markup; every
// component that embeds one report inside another directive must pass
// it through here first. Odd-length brace runs leave a fresh pair
// behind after one pass, so the separation repeats until no action
// marker remains.
func EscapeForEmbedding(text string) string {
	for strings.Contains(text, "{{") || strings.Contains(text, "}}") {
		text = strings.ReplaceAll(text, "{{", "{ {")
		text = strings.ReplaceAll(text, "}}", "} }")
	}
	return text
}

// asciiReplacements maps common unicode punctuation to ASCII
// equivalents so the final report stays plain ASCII as the synthesis
// directive demands.
var asciiReplacements = []struct{ from, to string }{
	{"‘", "'"}, {"’", "'"},
	{"“", `"`}, {"”", `"`},
	{"–", "-"}, {"—", "--"},
	{"…", "..."}, {"•", "-"},
	{"·", "-"}, {"‣", "-"},
	{"●", "-"}, {"○", "-"},
	{"→", "->"},
}

// SanitizeASCII replaces common unicode characters with ASCII
// equivalents.
func SanitizeASCII(text string) string {
	for _, rep := range asciiReplacements {
		text = strings.ReplaceAll(text, rep.from, rep.to)
	}
	return text
}
