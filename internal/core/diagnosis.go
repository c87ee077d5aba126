package core

import "time"

// ReportStatus indicates whether a specialist produced a genuine report
// or a failure placeholder.
type ReportStatus string

const (
	ReportStatusOK     ReportStatus = "ok"
	ReportStatusFailed ReportStatus = "failed"
)

// SpecialistReport is the outcome of one specialist consultation.
// Exactly one is produced per requested specialist per diagnosis run,
// written atomically by the worker that owns it.
type SpecialistReport struct {
	Specialist string       `json:"specialist"`
	Content    string       `json:"content"`
	Status     ReportStatus `json:"status"`
}

// Failed reports whether the consultation ended in a placeholder.
func (r SpecialistReport) Failed() bool {
	return r.Status == ReportStatusFailed
}

// DiagnosisStatus is the overall outcome of a diagnosis run.
type DiagnosisStatus string

const (
	DiagnosisStatusComplete DiagnosisStatus = "complete"
	// DiagnosisStatusDegraded means the specialist reports were
	// collected but the synthesis call failed.
	DiagnosisStatusDegraded DiagnosisStatus = "degraded"
)

// DiagnosisResult is the output of one diagnosis run. The report order
// matches the caller's requested specialist order, never completion
// order. Immutable once returned.
type DiagnosisResult struct {
	Reports     []SpecialistReport `json:"reports"`
	FinalReport string             `json:"final_report"`
	Status      DiagnosisStatus    `json:"status"`
	Specialists []string           `json:"specialists"` // Requested order
}

// DiagnosisRecord is the persisted form of a diagnosis run, owned by
// the storage boundary rather than the engine.
type DiagnosisRecord struct {
	ID         string          `json:"id"`
	ReportText string          `json:"report_text"`
	Result     DiagnosisResult `json:"result"`
	CreatedAt  time.Time       `json:"created_at"`
}

// ChatRole identifies the author of a conversation turn.
type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// ChatMessage is one turn in a follow-up conversation about a
// diagnosis. The sequence is append-only; the engine reads a bounded
// suffix and the caller appends two turns per exchange.
type ChatMessage struct {
	ID          string    `json:"id"`
	DiagnosisID string    `json:"diagnosis_id"`
	Role        ChatRole  `json:"role"`
	Content     string    `json:"content"`
	Timestamp   time.Time `json:"timestamp"`
}
