package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/cura-ai/cura/internal/core"
	"github.com/cura-ai/cura/internal/logging"
)

// historyWindow is the fixed sliding window of prior turns included in
// a follow-up exchange. Older turns are silently excluded.
const historyWindow = 10

// chatTemperature is slightly above zero for conversational replies.
const chatTemperature = 0.3

// ChatService answers follow-up questions about a previously produced
// diagnosis. Answers degrade gracefully: a failed completion call
// yields an apology string, never an error.
type ChatService struct {
	client  core.CompletionClient
	prompts *PromptRenderer
	logger  *logging.Logger
}

// NewChatService creates a new chat service.
func NewChatService(client core.CompletionClient, prompts *PromptRenderer, logger *logging.Logger) *ChatService {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ChatService{
		client:  client,
		prompts: prompts,
		logger:  logger,
	}
}

// BuildContext reconstructs the conversational context from a stored
// diagnosis result: every specialist report in stored order, then the
// final synthesized report.
func (s *ChatService) BuildContext(result *core.DiagnosisResult) string {
	var b strings.Builder
	for _, rep := range result.Reports {
		fmt.Fprintf(&b, "%s Report:\n%s\n\n", rep.Specialist, rep.Content)
	}
	b.WriteString("Final Diagnosis:\n")
	b.WriteString(result.FinalReport)
	return b.String()
}

// Answer builds one follow-up directive from the diagnosis context, at
// most the last 10 turns of history, and the new question, and issues
// a single completion call.
func (s *ChatService) Answer(ctx context.Context, diagnosisContext string, history []*core.ChatMessage, question string) string {
	turns := boundedHistory(history)

	prompt, err := s.prompts.RenderChat(ChatParams{
		Context:  EscapeForEmbedding(diagnosisContext),
		History:  turns,
		Question: question,
	})
	if err != nil {
		s.logger.Error("rendering chat directive failed", "error", err)
		return apology(err)
	}

	response, err := s.client.Complete(ctx, core.CompletionRequest{
		Prompt:      prompt,
		Temperature: chatTemperature,
	})
	if err != nil {
		s.logger.Warn("follow-up chat call failed", "error", err)
		return apology(err)
	}

	return strings.TrimSpace(response)
}

// boundedHistory converts the last historyWindow turns to template
// form, labeling each by author.
func boundedHistory(history []*core.ChatMessage) []ChatTurn {
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}

	turns := make([]ChatTurn, 0, len(history))
	for _, msg := range history {
		label := "Patient"
		if msg.Role == core.ChatRoleAssistant {
			label = "Cura"
		}
		turns = append(turns, ChatTurn{Label: label, Content: msg.Content})
	}
	return turns
}

func apology(err error) string {
	return fmt.Sprintf("I apologize, but I encountered an error processing your question. Please try again. (Error: %v)", err)
}
