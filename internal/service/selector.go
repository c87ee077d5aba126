package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/cura-ai/cura/internal/core"
	"github.com/cura-ai/cura/internal/logging"
)

const (
	// minSelection is the padding threshold: the default specialist is
	// appended only when fewer valid names than this survive.
	minSelection = 2
	// maxSelection caps how many specialists one run may consult.
	maxSelection = 5
)

// SpecialistSelector recommends which specialists should review a
// report when the caller does not choose. From the caller's point of
// view it always succeeds: parse and call failures collapse to a
// fixed default selection.
type SpecialistSelector struct {
	registry *core.Registry
	client   core.CompletionClient
	prompts  *PromptRenderer
	logger   *logging.Logger
}

// NewSpecialistSelector creates a new selector.
func NewSpecialistSelector(
	registry *core.Registry,
	client core.CompletionClient,
	prompts *PromptRenderer,
	logger *logging.Logger,
) *SpecialistSelector {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &SpecialistSelector{
		registry: registry,
		client:   client,
		prompts:  prompts,
		logger:   logger,
	}
}

// Select analyzes a medical report and returns 2-5 distinct registry
// names in the order the model produced them.
func (s *SpecialistSelector) Select(ctx context.Context, reportText string) []string {
	prompt, err := s.prompts.RenderSelector(SelectorParams{
		Specialists:   s.registry.Names(),
		MedicalReport: reportText,
	})
	if err != nil {
		s.logger.Error("rendering selection directive failed", "error", err)
		return DefaultSelection()
	}

	response, err := s.client.Complete(ctx, core.CompletionRequest{
		Prompt:      prompt,
		Temperature: 0,
	})
	if err != nil {
		s.logger.Warn("specialist selection call failed, using defaults", "error", err)
		return DefaultSelection()
	}

	selected, err := parseSelection(response)
	if err != nil {
		s.logger.Warn("specialist selection unparsable, using defaults",
			"error", err,
			"response_length", len(response),
		)
		return DefaultSelection()
	}

	return s.normalize(selected)
}

// normalize applies the post-processing policy in order: drop unknown
// names, pad with the default specialist below the minimum, cap at the
// maximum preserving model order.
func (s *SpecialistSelector) normalize(selected []string) []string {
	valid := make([]string, 0, len(selected))
	seen := make(map[string]bool, len(selected))
	for _, name := range selected {
		if !s.registry.Has(name) || seen[name] {
			continue
		}
		valid = append(valid, name)
		seen[name] = true
	}

	if len(valid) < minSelection && !seen[DefaultSpecialist] {
		valid = append(valid, DefaultSpecialist)
	}

	if len(valid) > maxSelection {
		valid = valid[:maxSelection]
	}
	return valid
}

// parseSelection parses the model response strictly as a JSON array of
// strings. Surrounding code-fence markup is the only tolerated
// deviation.
func parseSelection(response string) ([]string, error) {
	text := strings.TrimSpace(response)
	text = stripCodeFence(text)

	var names []string
	if err := json.Unmarshal([]byte(text), &names); err != nil {
		return nil, core.ErrExecution(core.CodeSelectionParse, "response is not a JSON string array").WithCause(err)
	}
	return names, nil
}

// stripCodeFence removes a surrounding markdown code fence, with or
// without a language tag.
func stripCodeFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	if idx := strings.Index(text, "\n"); idx >= 0 {
		text = text[idx+1:]
	}
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}
