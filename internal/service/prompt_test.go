package service

import (
	"strings"
	"testing"
)

func TestNewPromptRenderer_LoadsAllTemplates(t *testing.T) {
	r, err := NewPromptRenderer()
	if err != nil {
		t.Fatalf("NewPromptRenderer() error = %v", err)
	}

	want := []string{
		"team-synthesis",
		"select-specialists",
		"chat-followup",
	}
	for _, def := range DefaultSpecialists() {
		want = append(want, def.Template)
	}

	for _, name := range want {
		if !r.HasTemplate(name) {
			t.Errorf("template %q not loaded", name)
		}
	}
	if got := len(r.ListTemplates()); got != len(want) {
		t.Errorf("ListTemplates() has %d entries, want %d", got, len(want))
	}
}

func TestRenderSpecialist_EmbedsReport(t *testing.T) {
	r, err := NewPromptRenderer()
	if err != nil {
		t.Fatalf("NewPromptRenderer() error = %v", err)
	}

	for _, def := range DefaultSpecialists() {
		directive, err := r.RenderSpecialist(def.Template, SpecialistParams{
			MedicalReport: "sentinel report body",
		})
		if err != nil {
			t.Fatalf("RenderSpecialist(%q) error = %v", def.Template, err)
		}
		if !strings.Contains(directive, "sentinel report body") {
			t.Errorf("%s directive missing report text", def.Template)
		}
		if !strings.Contains(directive, def.Name) {
			t.Errorf("%s directive missing role name %q", def.Template, def.Name)
		}
	}
}

func TestRenderSynthesis_SectionsInGivenOrder(t *testing.T) {
	r, err := NewPromptRenderer()
	if err != nil {
		t.Fatalf("NewPromptRenderer() error = %v", err)
	}

	directive, err := r.RenderSynthesis(SynthesisParams{
		Reports: []ReportSection{
			{Specialist: "Cardiologist", Content: "alpha"},
			{Specialist: "Neurologist", Content: "beta"},
		},
	})
	if err != nil {
		t.Fatalf("RenderSynthesis() error = %v", err)
	}

	first := strings.Index(directive, "Cardiologist Report:")
	second := strings.Index(directive, "Neurologist Report:")
	if first < 0 || second < 0 {
		t.Fatalf("section headers missing from directive")
	}
	if first > second {
		t.Error("sections not in given order")
	}
	if !strings.Contains(directive, "FINAL DIAGNOSIS REPORT") {
		t.Error("directive missing output layout")
	}
}

func TestRenderChat_OmitsHistoryBlockWhenEmpty(t *testing.T) {
	r, err := NewPromptRenderer()
	if err != nil {
		t.Fatalf("NewPromptRenderer() error = %v", err)
	}

	directive, err := r.RenderChat(ChatParams{
		Context:  "ctx",
		Question: "q",
	})
	if err != nil {
		t.Fatalf("RenderChat() error = %v", err)
	}
	if !strings.Contains(directive, "Patient: q") {
		t.Error("directive missing question")
	}
	if !strings.HasSuffix(strings.TrimSpace(directive), "Cura:") {
		t.Error("directive must end with the assistant cue")
	}
}

func TestRender_UnknownTemplate(t *testing.T) {
	r, err := NewPromptRenderer()
	if err != nil {
		t.Fatalf("NewPromptRenderer() error = %v", err)
	}

	if _, err := r.RenderSpecialist("no-such-template", SpecialistParams{}); err == nil {
		t.Error("expected error for unknown template")
	}
}

func TestRender_EscapedBracesSurviveExecution(t *testing.T) {
	r, err := NewPromptRenderer()
	if err != nil {
		t.Fatalf("NewPromptRenderer() error = %v", err)
	}

	escaped := EscapeForEmbedding("payload with {{.Secret}} inside")
	directive, err := r.RenderSynthesis(SynthesisParams{
		Reports: []ReportSection{{Specialist: "Cardiologist", Content: escaped}},
	})
	if err != nil {
		t.Fatalf("RenderSynthesis() error = %v", err)
	}
	if strings.Contains(directive, "{{.Secret}}") {
		t.Error("escaped braces reassembled in rendered directive")
	}
	if !strings.Contains(directive, "{ {.Secret} }") {
		t.Error("escaped payload not carried through verbatim")
	}
}
