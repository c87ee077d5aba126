// Package llm provides completion clients backed by OpenAI-compatible
// HTTP APIs. Retry for transient failures lives here, behind the
// CompletionClient port, so the diagnosis engine sees exactly one
// attempt per consultation.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cura-ai/cura/internal/core"
	"github.com/cura-ai/cura/internal/logging"
)

const (
	// DefaultBaseURL targets the OpenAI API; any compatible server
	// (Azure, Ollama, vLLM) can be substituted via config.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultModel is used when config names none.
	DefaultModel = "gpt-4o-mini"

	// defaultTimeout bounds one HTTP attempt, not the whole retry loop.
	defaultTimeout = 120 * time.Second

	// maxErrorBody caps how much of an error response is kept for
	// diagnostics.
	maxErrorBody = 2048
)

// Config holds the settings for an OpenAI-compatible client.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Timeout     time.Duration
	RetryPolicy *RetryPolicy
}

// OpenAIClient implements core.CompletionClient against any
// chat-completions endpoint.
type OpenAIClient struct {
	baseURL   string
	apiKey    string
	model     string
	maxTokens int
	http      *http.Client
	retry     *RetryPolicy
	logger    *logging.Logger
}

// NewOpenAIClient creates a client from config, applying defaults for
// unset fields.
func NewOpenAIClient(cfg Config, logger *logging.Logger) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, core.ErrValidation(core.CodeInvalidConfig, "llm api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RetryPolicy == nil {
		cfg.RetryPolicy = DefaultRetryPolicy()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &OpenAIClient{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		http:      &http.Client{Timeout: cfg.Timeout},
		retry:     cfg.RetryPolicy,
		logger:    logger,
	}, nil
}

// Identity returns a label for logs and result metadata.
func (c *OpenAIClient) Identity() string {
	return "openai:" + c.model
}

// Complete issues one chat completion, retrying transient failures
// internally. Callers observe a single attempt.
func (c *OpenAIClient) Complete(ctx context.Context, req core.CompletionRequest) (string, error) {
	var result string
	err := c.retry.Execute(ctx, func(ctx context.Context) error {
		text, err := c.complete(ctx, req)
		if err != nil {
			return err
		}
		result = text
		return nil
	})
	if err != nil {
		return "", err
	}
	return result, nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content contentField `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *apiError `json:"error"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code"`
}

// contentField accepts both the string form and the content-parts
// array form some compatible servers return.
type contentField string

func (c *contentField) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = contentField(s)
		return nil
	}

	var parts []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("unsupported content shape: %s", string(data))
	}

	var b strings.Builder
	for _, p := range parts {
		if p.Type == "" || p.Type == "text" {
			b.WriteString(p.Text)
		}
	}
	*c = contentField(b.String())
	return nil
}

func (c *OpenAIClient) complete(ctx context.Context, req core.CompletionRequest) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: req.Prompt}},
		Temperature: req.Temperature,
		MaxTokens:   firstNonZero(req.MaxTokens, c.maxTokens),
	})
	if err != nil {
		return "", core.ErrExecution(core.CodeCompletionFailed, "encoding completion request").WithCause(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", core.ErrExecution(core.CodeCompletionFailed, "building completion request").WithCause(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", core.ErrNetwork("completion request failed").WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", c.statusError(resp)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", core.ErrExecution(core.CodeCompletionFailed, "decoding completion response").WithCause(err)
	}
	if parsed.Error != nil {
		return "", core.ErrExecution(core.CodeCompletionFailed, parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", core.ErrExecution(core.CodeCompletionFailed, "response has no choices")
	}

	return string(parsed.Choices[0].Message.Content), nil
}

// statusError maps HTTP status codes onto domain errors. Rate limits
// and server errors are retryable, client errors are not.
func (c *OpenAIClient) statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	detail := apiErrorMessage(body)

	msg := fmt.Sprintf("completion endpoint returned %d", resp.StatusCode)
	if detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, detail)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return core.ErrNetwork(msg).WithDetail("status", resp.StatusCode)
	case resp.StatusCode >= 500:
		return core.ErrNetwork(msg).WithDetail("status", resp.StatusCode)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return core.ErrValidation(core.CodeInvalidConfig, msg).WithDetail("status", resp.StatusCode)
	default:
		// Remaining 4xx responses will not improve on retry.
		return core.ErrValidation(core.CodeCompletionFailed, msg).WithDetail("status", resp.StatusCode)
	}
}

func apiErrorMessage(body []byte) string {
	var wrapper struct {
		Error *apiError `json:"error"`
	}
	if err := json.Unmarshal(body, &wrapper); err == nil && wrapper.Error != nil {
		return wrapper.Error.Message
	}
	return strings.TrimSpace(string(body))
}

func firstNonZero(values ...int) int {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}
