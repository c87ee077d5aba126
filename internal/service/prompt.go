package service

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"sync"
	"text/template"
)

//go:embed prompts/*.md.tmpl
var promptsFS embed.FS

// PromptRenderer renders directives from embedded templates.
type PromptRenderer struct {
	templates map[string]*template.Template
	mu        sync.RWMutex
}

// NewPromptRenderer creates a new prompt renderer.
func NewPromptRenderer() (*PromptRenderer, error) {
	r := &PromptRenderer{
		templates: make(map[string]*template.Template),
	}

	if err := r.loadTemplates(); err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}

	return r, nil
}

// loadTemplates loads all templates from the embedded filesystem.
func (r *PromptRenderer) loadTemplates() error {
	return fs.WalkDir(promptsFS, "prompts", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() || !strings.HasSuffix(path, ".md.tmpl") {
			return nil
		}

		content, err := promptsFS.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}

		name := strings.TrimPrefix(path, "prompts/")
		name = strings.TrimSuffix(name, ".md.tmpl")

		tmpl, err := template.New(name).Funcs(templateFuncs()).Parse(string(content))
		if err != nil {
			return fmt.Errorf("parsing template %s: %w", name, err)
		}

		r.templates[name] = tmpl
		return nil
	})
}

// templateFuncs returns custom template functions.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"join":      strings.Join,
		"trimSpace": strings.TrimSpace,
		"add":       func(a, b int) int { return a + b },
	}
}

// SpecialistParams contains parameters for a specialist consultation
// template.
type SpecialistParams struct {
	MedicalReport string
}

// RenderSpecialist renders the directive for one specialist by its
// template name.
func (r *PromptRenderer) RenderSpecialist(templateName string, params SpecialistParams) (string, error) {
	return r.render(templateName, params)
}

// ReportSection is one specialist's contribution to the synthesis
// directive. Content must already be escaped for embedding.
type ReportSection struct {
	Specialist string
	Content    string
}

// SynthesisParams contains parameters for the team synthesis template.
type SynthesisParams struct {
	Reports []ReportSection
}

// RenderSynthesis renders the multidisciplinary team directive.
func (r *PromptRenderer) RenderSynthesis(params SynthesisParams) (string, error) {
	return r.render("team-synthesis", params)
}

// SelectorParams contains parameters for the specialist selection
// template.
type SelectorParams struct {
	Specialists   []string
	MedicalReport string
}

// RenderSelector renders the triage directive.
func (r *PromptRenderer) RenderSelector(params SelectorParams) (string, error) {
	return r.render("select-specialists", params)
}

// ChatTurn is one prior exchange turn for the follow-up template.
type ChatTurn struct {
	Label   string // "Patient" or assistant label
	Content string
}

// ChatParams contains parameters for the follow-up chat template.
type ChatParams struct {
	Context  string // Escaped diagnosis context
	History  []ChatTurn
	Question string
}

// RenderChat renders the follow-up chat directive.
func (r *PromptRenderer) RenderChat(params ChatParams) (string, error) {
	return r.render("chat-followup", params)
}

// render executes a template with the given data.
func (r *PromptRenderer) render(name string, data interface{}) (string, error) {
	r.mu.RLock()
	tmpl, ok := r.templates[name]
	r.mu.RUnlock()

	if !ok {
		return "", fmt.Errorf("template %q not found", name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing template %s: %w", name, err)
	}

	return buf.String(), nil
}

// ListTemplates returns available template names.
func (r *PromptRenderer) ListTemplates() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	return names
}

// HasTemplate checks if a template exists.
func (r *PromptRenderer) HasTemplate(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.templates[name]
	return ok
}
