// Package store provides persistence backends for diagnosis runs and
// their follow-up conversations.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cura-ai/cura/internal/core"
	_ "modernc.org/sqlite"
)

//go:embed migrations/001_initial_schema.sql
var migrationV1 string

// SQLiteStore implements core.Store with SQLite storage.
type SQLiteStore struct {
	dbPath string
	db     *sql.DB
	mu     sync.RWMutex
}

// NewSQLiteStore opens or creates the database at dbPath and applies
// pending migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	// WAL mode for concurrent readers alongside the writer.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &SQLiteStore{dbPath: dbPath, db: db}
	if err := s.migrate(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("running migrations: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) migrate() error {
	var version int
	err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		// Table doesn't exist yet, run initial migration.
		version = 0
	}

	if version < 1 {
		if _, err := s.db.Exec(migrationV1); err != nil {
			return fmt.Errorf("applying migration v1: %w", err)
		}
	}
	return nil
}

// SaveDiagnosis upserts one diagnosis record.
func (s *SQLiteStore) SaveDiagnosis(ctx context.Context, rec *core.DiagnosisRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	specialistsJSON, err := json.Marshal(rec.Result.Specialists)
	if err != nil {
		return fmt.Errorf("marshaling specialists: %w", err)
	}
	reportsJSON, err := json.Marshal(rec.Result.Reports)
	if err != nil {
		return fmt.Errorf("marshaling reports: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO diagnoses (
			id, report_text, final_report, status, specialists, reports, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			report_text = excluded.report_text,
			final_report = excluded.final_report,
			status = excluded.status,
			specialists = excluded.specialists,
			reports = excluded.reports
	`,
		rec.ID, rec.ReportText, rec.Result.FinalReport, string(rec.Result.Status),
		string(specialistsJSON), string(reportsJSON), rec.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("upserting diagnosis %s: %w", rec.ID, err)
	}
	return nil
}

// LoadDiagnosis retrieves one record, or nil when absent.
func (s *SQLiteStore) LoadDiagnosis(ctx context.Context, id string) (*core.DiagnosisRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, report_text, final_report, status, specialists, reports, created_at
		FROM diagnoses WHERE id = ?
	`, id)

	rec, err := scanDiagnosis(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading diagnosis %s: %w", id, err)
	}
	return rec, nil
}

// ListDiagnoses returns all records, newest first.
func (s *SQLiteStore) ListDiagnoses(ctx context.Context) ([]*core.DiagnosisRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, report_text, final_report, status, specialists, reports, created_at
		FROM diagnoses ORDER BY created_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("listing diagnoses: %w", err)
	}
	defer rows.Close()

	var recs []*core.DiagnosisRecord
	for rows.Next() {
		rec, err := scanDiagnosis(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning diagnosis: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// DeleteDiagnosis removes a record and its chat messages.
func (s *SQLiteStore) DeleteDiagnosis(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM diagnoses WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting diagnosis %s: %w", id, err)
	}
	return nil
}

// AppendMessage appends one chat turn, assigning the next sequence
// number for its diagnosis.
func (s *SQLiteStore) AppendMessage(ctx context.Context, msg *core.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_messages (id, diagnosis_id, role, content, created_at, seq)
		VALUES (?, ?, ?, ?, ?, (
			SELECT COALESCE(MAX(seq), 0) + 1 FROM chat_messages WHERE diagnosis_id = ?
		))
	`, msg.ID, msg.DiagnosisID, string(msg.Role), msg.Content, ts.UTC(), msg.DiagnosisID)
	if err != nil {
		return fmt.Errorf("appending chat message: %w", err)
	}
	return nil
}

// LoadMessages returns all turns for a diagnosis in append order.
func (s *SQLiteStore) LoadMessages(ctx context.Context, diagnosisID string) ([]*core.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, diagnosis_id, role, content, created_at
		FROM chat_messages WHERE diagnosis_id = ? ORDER BY seq
	`, diagnosisID)
	if err != nil {
		return nil, fmt.Errorf("loading chat messages: %w", err)
	}
	defer rows.Close()

	var msgs []*core.ChatMessage
	for rows.Next() {
		var msg core.ChatMessage
		var role string
		if err := rows.Scan(&msg.ID, &msg.DiagnosisID, &role, &msg.Content, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning chat message: %w", err)
		}
		msg.Role = core.ChatRole(role)
		msgs = append(msgs, &msg)
	}
	return msgs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDiagnosis(row rowScanner) (*core.DiagnosisRecord, error) {
	var rec core.DiagnosisRecord
	var status, specialistsJSON, reportsJSON string

	err := row.Scan(&rec.ID, &rec.ReportText, &rec.Result.FinalReport,
		&status, &specialistsJSON, &reportsJSON, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}

	rec.Result.Status = core.DiagnosisStatus(status)
	if err := json.Unmarshal([]byte(specialistsJSON), &rec.Result.Specialists); err != nil {
		return nil, core.ErrExecution(core.CodeStoreCorrupted, "specialists column is not valid JSON").WithCause(err)
	}
	if err := json.Unmarshal([]byte(reportsJSON), &rec.Result.Reports); err != nil {
		return nil, core.ErrExecution(core.CodeStoreCorrupted, "reports column is not valid JSON").WithCause(err)
	}
	return &rec, nil
}

// Verify that SQLiteStore implements core.Store.
var _ core.Store = (*SQLiteStore)(nil)
