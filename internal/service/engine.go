package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sahilm/fuzzy"

	"github.com/cura-ai/cura/internal/core"
	"github.com/cura-ai/cura/internal/logging"
)

// DiagnosisEngine fans a medical report out to the requested
// specialists, joins their reports, and synthesizes the final
// diagnosis through a single team call.
type DiagnosisEngine struct {
	registry    *core.Registry
	client      core.CompletionClient
	prompts     *PromptRenderer
	selector    *SpecialistSelector
	logger      *logging.Logger
	defaults    []string
	autoSelect  bool
	temperature float64
}

// EngineOption configures optional engine behavior.
type EngineOption func(*DiagnosisEngine)

// WithAutoSelect toggles automatic specialist selection for runs that
// name no panel. Enabled by default.
func WithAutoSelect(enabled bool) EngineOption {
	return func(e *DiagnosisEngine) { e.autoSelect = enabled }
}

// WithDefaultSpecialists sets the panel used when a run names none and
// automatic selection is off.
func WithDefaultSpecialists(names []string) EngineOption {
	return func(e *DiagnosisEngine) { e.defaults = append([]string(nil), names...) }
}

// WithTemperature sets the sampling temperature for specialist and
// synthesis calls.
func WithTemperature(temp float64) EngineOption {
	return func(e *DiagnosisEngine) { e.temperature = temp }
}

// NewDiagnosisEngine creates a new engine. The selector may be nil,
// in which case callers must supply an explicit specialist set or
// configure a default panel.
func NewDiagnosisEngine(
	registry *core.Registry,
	client core.CompletionClient,
	prompts *PromptRenderer,
	selector *SpecialistSelector,
	logger *logging.Logger,
	opts ...EngineOption,
) *DiagnosisEngine {
	if logger == nil {
		logger = logging.NewNop()
	}
	e := &DiagnosisEngine{
		registry:   registry,
		client:     client,
		prompts:    prompts,
		selector:   selector,
		logger:     logger,
		autoSelect: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Diagnose runs the full pipeline: specialist selection (when the
// caller supplies none), parallel consultation, and team synthesis.
func (e *DiagnosisEngine) Diagnose(ctx context.Context, reportText string, specialists []string) (*core.DiagnosisResult, error) {
	if strings.TrimSpace(reportText) == "" {
		return nil, core.ErrValidation(core.CodeEmptyReport, "report text is empty")
	}
	if len(reportText) > core.MaxReportLength {
		return nil, core.ErrValidation(core.CodeReportTooLarge, fmt.Sprintf("report text exceeds %d bytes", core.MaxReportLength))
	}

	// Absence of a subset triggers the configured fallback: automatic
	// selection when enabled, otherwise the default panel.
	if len(specialists) == 0 {
		switch {
		case e.autoSelect && e.selector != nil:
			specialists = e.selector.Select(ctx, reportText)
			e.logger.Info("specialists auto-selected",
				"specialists", strings.Join(specialists, ", "),
			)
		case len(e.defaults) > 0:
			specialists = append([]string(nil), e.defaults...)
			e.logger.Info("using default specialist panel",
				"specialists", strings.Join(specialists, ", "),
			)
		default:
			return nil, core.ErrValidation(core.CodeNoSpecialists, "no specialists requested and auto-selection is disabled")
		}
	}

	reports, err := e.Consult(ctx, reportText, specialists)
	if err != nil {
		return nil, err
	}

	result := &core.DiagnosisResult{
		Reports:     reports,
		Specialists: append([]string(nil), specialists...),
		Status:      core.DiagnosisStatusComplete,
	}

	final, err := e.synthesize(ctx, reports)
	if err != nil {
		// The collected specialist reports survive a synthesis
		// failure; only the final text degrades.
		e.logger.Error("team synthesis failed", "error", err)
		result.FinalReport = fmt.Sprintf("Error generating final diagnosis: %v", err)
		result.Status = core.DiagnosisStatusDegraded
		return result, nil
	}

	result.FinalReport = final
	return result, nil
}

// Consult runs one consultation worker per requested specialist and
// blocks until every worker reaches a terminal state. The returned
// slice matches the requested order, never completion order; a failed
// worker contributes a placeholder report and never disturbs its
// siblings.
func (e *DiagnosisEngine) Consult(ctx context.Context, reportText string, specialists []string) ([]core.SpecialistReport, error) {
	if len(specialists) == 0 {
		return nil, core.ErrValidation(core.CodeNoSpecialists, "no specialists requested")
	}

	// Validate the whole set before any worker starts.
	defs := make([]core.SpecialistDefinition, len(specialists))
	for i, name := range specialists {
		def, err := e.registry.Get(name)
		if err != nil {
			return nil, e.withSuggestion(err, name)
		}
		defs[i] = def
	}

	e.logger.Info("running specialist consultations",
		"specialists", strings.Join(specialists, ", "),
		"model", e.client.Identity(),
	)

	// One worker per specialist; each owns exclusively the result
	// slot matching its input position.
	reports := make([]core.SpecialistReport, len(specialists))

	var wg sync.WaitGroup
	for i, def := range defs {
		i, def := i, def
		wg.Add(1)
		go func() {
			defer wg.Done()
			reports[i] = e.consultOne(ctx, def, reportText)
		}()
	}
	wg.Wait()

	return reports, nil
}

// consultOne renders one specialist directive, issues the completion
// call, and converts any failure into that specialist's placeholder.
func (e *DiagnosisEngine) consultOne(ctx context.Context, def core.SpecialistDefinition, reportText string) core.SpecialistReport {
	started := time.Now()

	content, err := e.runConsultation(ctx, def, reportText)
	if err != nil {
		e.logger.Error("specialist consultation failed",
			"specialist", def.Name,
			"error", err,
		)
		return core.SpecialistReport{
			Specialist: def.Name,
			Content:    fmt.Sprintf("Error: Could not generate report. %v", err),
			Status:     core.ReportStatusFailed,
		}
	}

	e.logger.Debug("specialist consultation complete",
		"specialist", def.Name,
		"duration", time.Since(started),
	)
	return core.SpecialistReport{
		Specialist: def.Name,
		Content:    SanitizeASCII(content),
		Status:     core.ReportStatusOK,
	}
}

func (e *DiagnosisEngine) runConsultation(ctx context.Context, def core.SpecialistDefinition, reportText string) (string, error) {
	prompt, err := e.prompts.RenderSpecialist(def.Template, SpecialistParams{
		MedicalReport: reportText,
	})
	if err != nil {
		return "", fmt.Errorf("rendering directive: %w", err)
	}

	return e.client.Complete(ctx, core.CompletionRequest{
		Prompt:      prompt,
		Temperature: e.temperature,
	})
}

// synthesize issues the single team call over the ordered, complete
// report set. Invoked at most once per run, only after the join
// barrier.
func (e *DiagnosisEngine) synthesize(ctx context.Context, reports []core.SpecialistReport) (string, error) {
	sections := make([]ReportSection, len(reports))
	for i, rep := range reports {
		sections[i] = ReportSection{
			Specialist: rep.Specialist,
			Content:    EscapeForEmbedding(rep.Content),
		}
	}

	prompt, err := e.prompts.RenderSynthesis(SynthesisParams{Reports: sections})
	if err != nil {
		return "", core.ErrExecution(core.CodeSynthesisFailed, "rendering synthesis directive").WithCause(err)
	}

	content, err := e.client.Complete(ctx, core.CompletionRequest{
		Prompt:      prompt,
		Temperature: e.temperature,
	})
	if err != nil {
		return "", core.ErrExecution(core.CodeSynthesisFailed, "team synthesis call failed").WithCause(err)
	}

	return SanitizeASCII(content), nil
}

// withSuggestion augments an unknown-specialist error with the closest
// catalog name, when one is close enough to be useful.
func (e *DiagnosisEngine) withSuggestion(err error, name string) error {
	domErr, ok := err.(*core.DomainError)
	if !ok {
		return err
	}
	matches := fuzzy.Find(name, e.registry.Names())
	if len(matches) > 0 {
		domErr = domErr.WithDetail("did_you_mean", matches[0].Str)
	}
	return domErr
}
