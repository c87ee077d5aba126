package core

import "context"

// CompletionClient is the single outbound boundary for every analysis,
// synthesis, and selection call. Implementations may be slow (seconds)
// and may fail transiently; callers treat every failure as terminal for
// that one call. Retry policy, if any, belongs to the implementation.
type CompletionClient interface {
	// Complete submits one directive and returns the model's text.
	// Multi-part response shapes are normalized to plain text inside
	// the implementation; the core only ever sees text.
	Complete(ctx context.Context, req CompletionRequest) (string, error)

	// Identity returns a model/version label used for diagnostics
	// only, never for control flow.
	Identity() string
}

// CompletionRequest carries one directive and its sampling options.
type CompletionRequest struct {
	Prompt string
	// Temperature is the sampling-determinism hint. The engine always
	// requests the most deterministic setting (0); chat exchanges may
	// relax it slightly.
	Temperature float64
	MaxTokens   int
}

// DiagnosisStore persists diagnosis runs. Storage and retrieval are a
// collaborator concern; the engine itself performs no I/O.
type DiagnosisStore interface {
	SaveDiagnosis(ctx context.Context, rec *DiagnosisRecord) error

	// LoadDiagnosis retrieves a record by ID. Returns nil and no
	// error if the record does not exist.
	LoadDiagnosis(ctx context.Context, id string) (*DiagnosisRecord, error)

	ListDiagnoses(ctx context.Context) ([]*DiagnosisRecord, error)

	DeleteDiagnosis(ctx context.Context, id string) error
}

// ChatStore persists follow-up conversation turns for a diagnosis.
type ChatStore interface {
	AppendMessage(ctx context.Context, msg *ChatMessage) error

	// LoadMessages returns all turns for a diagnosis in append order.
	LoadMessages(ctx context.Context, diagnosisID string) ([]*ChatMessage, error)
}

// Store combines the persistence boundaries a backend implements.
type Store interface {
	DiagnosisStore
	ChatStore

	Close() error
}
