package store

import (
	"fmt"
	"strings"

	"github.com/cura-ai/cura/internal/core"
)

// Backend names accepted by New.
const (
	BackendSQLite = "sqlite"
	BackendJSON   = "json"
)

// New creates a Store for the named backend at the given path.
func New(backend, path string) (core.Store, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case BackendSQLite, "":
		return NewSQLiteStore(path)
	case BackendJSON:
		return NewJSONStore(path), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q (want %q or %q)", backend, BackendSQLite, BackendJSON)
	}
}
