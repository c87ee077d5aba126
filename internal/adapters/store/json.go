package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/cura-ai/cura/internal/core"
)

// JSONStore implements core.Store with a single JSON file. Suited to
// single-user CLI use; the whole store is rewritten atomically on each
// mutation.
type JSONStore struct {
	path string
	mu   sync.Mutex
}

// NewJSONStore creates a store backed by the file at path. The file is
// created on first save.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

// storeFile is the on-disk layout.
type storeFile struct {
	Version   int                     `json:"version"`
	UpdatedAt time.Time               `json:"updated_at"`
	Diagnoses []*core.DiagnosisRecord `json:"diagnoses"`
	Messages  []*core.ChatMessage     `json:"messages"`
}

// Close is a no-op; the file is not held open between operations.
func (s *JSONStore) Close() error { return nil }

// SaveDiagnosis upserts one diagnosis record.
func (s *JSONStore) SaveDiagnosis(_ context.Context, rec *core.DiagnosisRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		return err
	}

	replaced := false
	for i, existing := range f.Diagnoses {
		if existing.ID == rec.ID {
			f.Diagnoses[i] = rec
			replaced = true
			break
		}
	}
	if !replaced {
		f.Diagnoses = append(f.Diagnoses, rec)
	}

	return s.write(f)
}

// LoadDiagnosis retrieves one record, or nil when absent.
func (s *JSONStore) LoadDiagnosis(_ context.Context, id string) (*core.DiagnosisRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		return nil, err
	}
	for _, rec := range f.Diagnoses {
		if rec.ID == id {
			return rec, nil
		}
	}
	return nil, nil
}

// ListDiagnoses returns all records, newest first.
func (s *JSONStore) ListDiagnoses(_ context.Context) ([]*core.DiagnosisRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		return nil, err
	}

	recs := make([]*core.DiagnosisRecord, len(f.Diagnoses))
	copy(recs, f.Diagnoses)
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].CreatedAt.After(recs[j].CreatedAt)
	})
	return recs, nil
}

// DeleteDiagnosis removes a record and its chat messages.
func (s *JSONStore) DeleteDiagnosis(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		return err
	}

	kept := f.Diagnoses[:0]
	for _, rec := range f.Diagnoses {
		if rec.ID != id {
			kept = append(kept, rec)
		}
	}
	f.Diagnoses = kept

	msgs := f.Messages[:0]
	for _, msg := range f.Messages {
		if msg.DiagnosisID != id {
			msgs = append(msgs, msg)
		}
	}
	f.Messages = msgs

	return s.write(f)
}

// AppendMessage appends one chat turn.
func (s *JSONStore) AppendMessage(_ context.Context, msg *core.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		return err
	}

	stored := *msg
	if stored.Timestamp.IsZero() {
		stored.Timestamp = time.Now()
	}
	f.Messages = append(f.Messages, &stored)

	return s.write(f)
}

// LoadMessages returns all turns for a diagnosis in append order.
func (s *JSONStore) LoadMessages(_ context.Context, diagnosisID string) ([]*core.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		return nil, err
	}

	var msgs []*core.ChatMessage
	for _, msg := range f.Messages {
		if msg.DiagnosisID == diagnosisID {
			msgs = append(msgs, msg)
		}
	}
	return msgs, nil
}

func (s *JSONStore) load() (*storeFile, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return &storeFile{Version: 1}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading store file: %w", err)
	}

	var f storeFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, core.ErrExecution(core.CodeStoreCorrupted, "store file is not valid JSON").WithCause(err)
	}
	return &f, nil
}

func (s *JSONStore) write(f *storeFile) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating store directory: %w", err)
	}

	f.Version = 1
	f.UpdatedAt = time.Now()

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling store file: %w", err)
	}

	if err := atomicWriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("writing store file: %w", err)
	}
	return nil
}

// Verify that JSONStore implements core.Store.
var _ core.Store = (*JSONStore)(nil)
