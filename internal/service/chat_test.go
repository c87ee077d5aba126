package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/cura-ai/cura/internal/core"
)

func newTestChat(t *testing.T, respond func(req core.CompletionRequest) (string, error)) (*ChatService, *stubClient) {
	t.Helper()
	prompts, err := NewPromptRenderer()
	if err != nil {
		t.Fatalf("NewPromptRenderer() error = %v", err)
	}
	client := &stubClient{respond: respond}
	return NewChatService(client, prompts, nil), client
}

func sampleResult() *core.DiagnosisResult {
	return &core.DiagnosisResult{
		Reports: []core.SpecialistReport{
			{Specialist: "Cardiologist", Content: "cardiac findings", Status: core.ReportStatusOK},
			{Specialist: "Psychologist", Content: "psychological findings", Status: core.ReportStatusOK},
			{Specialist: "Pulmonologist", Content: "Error: Could not generate report. timeout", Status: core.ReportStatusFailed},
		},
		FinalReport: "the final synthesized report",
		Status:      core.DiagnosisStatusComplete,
		Specialists: []string{"Cardiologist", "Psychologist", "Pulmonologist"},
	}
}

func historyOf(n int) []*core.ChatMessage {
	msgs := make([]*core.ChatMessage, 0, n)
	for i := 0; i < n; i++ {
		role := core.ChatRoleUser
		if i%2 == 1 {
			role = core.ChatRoleAssistant
		}
		msgs = append(msgs, &core.ChatMessage{
			Role:      role,
			Content:   fmt.Sprintf("turn-%02d", i),
			Timestamp: time.Date(2026, 1, 1, 0, i, 0, 0, time.UTC),
		})
	}
	return msgs
}

func TestBuildContext_OrderAndCompleteness(t *testing.T) {
	svc, _ := newTestChat(t, nil)

	ctx := svc.BuildContext(sampleResult())

	// Every report, in stored order, then the final report.
	pos := -1
	for _, token := range []string{
		"Cardiologist Report:",
		"cardiac findings",
		"Psychologist Report:",
		"psychological findings",
		"Pulmonologist Report:",
		"Error: Could not generate report. timeout",
		"Final Diagnosis:",
		"the final synthesized report",
	} {
		idx := strings.Index(ctx, token)
		if idx < 0 {
			t.Fatalf("context missing %q", token)
		}
		if idx < pos {
			t.Errorf("%q out of order in context", token)
		}
		pos = idx
	}
}

func TestBuildContext_Deterministic(t *testing.T) {
	svc, _ := newTestChat(t, nil)

	if svc.BuildContext(sampleResult()) != svc.BuildContext(sampleResult()) {
		t.Error("BuildContext not deterministic for identical input")
	}
}

func TestAnswer_WindowsHistoryToLastTen(t *testing.T) {
	svc, client := newTestChat(t, respondWith("an answer"))

	history := historyOf(13)
	answer := svc.Answer(context.Background(), "diagnosis context", history, "what now?")
	if answer != "an answer" {
		t.Errorf("Answer() = %q", answer)
	}

	directive := client.lastCall().Prompt
	// The 3 oldest turns must never appear.
	for i := 0; i < 3; i++ {
		if strings.Contains(directive, fmt.Sprintf("turn-%02d", i)) {
			t.Errorf("directive contains excluded turn-%02d", i)
		}
	}
	// The last 10 all appear, in order.
	pos := -1
	for i := 3; i < 13; i++ {
		token := fmt.Sprintf("turn-%02d", i)
		idx := strings.Index(directive, token)
		if idx < 0 {
			t.Fatalf("directive missing %s", token)
		}
		if idx < pos {
			t.Errorf("%s out of order", token)
		}
		pos = idx
	}
}

func TestAnswer_ShortHistoryKeptWhole(t *testing.T) {
	svc, client := newTestChat(t, respondWith("ok"))

	svc.Answer(context.Background(), "diagnosis context", historyOf(4), "question")

	directive := client.lastCall().Prompt
	for i := 0; i < 4; i++ {
		if !strings.Contains(directive, fmt.Sprintf("turn-%02d", i)) {
			t.Errorf("directive missing turn-%02d", i)
		}
	}
}

func TestAnswer_DirectiveContainsContextAndQuestion(t *testing.T) {
	svc, client := newTestChat(t, respondWith("ok"))

	svc.Answer(context.Background(), "stored diagnosis context", nil, "is this serious?")

	directive := client.lastCall().Prompt
	if !strings.Contains(directive, "stored diagnosis context") {
		t.Error("directive missing diagnosis context")
	}
	if !strings.Contains(directive, "Patient: is this serious?") {
		t.Error("directive missing new question")
	}
}

func TestAnswer_RoleLabels(t *testing.T) {
	svc, client := newTestChat(t, respondWith("ok"))

	history := []*core.ChatMessage{
		{Role: core.ChatRoleUser, Content: "first question"},
		{Role: core.ChatRoleAssistant, Content: "first answer"},
	}
	svc.Answer(context.Background(), "ctx", history, "second question")

	directive := client.lastCall().Prompt
	if !strings.Contains(directive, "Patient: first question") {
		t.Error("user turn not labeled Patient")
	}
	if !strings.Contains(directive, "Cura: first answer") {
		t.Error("assistant turn not labeled Cura")
	}
}

func TestAnswer_FailureReturnsApology(t *testing.T) {
	svc, _ := newTestChat(t, func(core.CompletionRequest) (string, error) {
		return "", errors.New("backend down")
	})

	answer := svc.Answer(context.Background(), "ctx", nil, "question")
	if !strings.HasPrefix(answer, "I apologize") {
		t.Errorf("Answer() = %q, want apology", answer)
	}
	if !strings.Contains(answer, "backend down") {
		t.Errorf("apology should carry the cause, got %q", answer)
	}
}

func TestAnswer_ContextEscapedBeforeEmbedding(t *testing.T) {
	svc, client := newTestChat(t, respondWith("ok"))

	svc.Answer(context.Background(), "report with {{.Injection}} marker", nil, "question")

	directive := client.lastCall().Prompt
	if strings.Contains(directive, "{{.Injection}}") {
		t.Error("template-action braces embedded unescaped into chat directive")
	}
}

func TestAnswer_UsesConversationalTemperature(t *testing.T) {
	svc, client := newTestChat(t, respondWith("ok"))

	svc.Answer(context.Background(), "ctx", nil, "question")

	if temp := client.lastCall().Temperature; temp != chatTemperature {
		t.Errorf("Temperature = %v, want %v", temp, chatTemperature)
	}
}
