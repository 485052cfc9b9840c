// Package store persists the error history.
//
// The history is an append-only sequence of models.ErrorRecord. Each CLI
// invocation opens the store, loads it fully or appends one record, and
// closes it; the persisted file is the only source of truth and nothing is
// cached between invocations.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/dotcommander/cmdguard/internal/models"
)

// Backend names accepted by Open.
const (
	BackendJSONL  = "jsonl"
	BackendSQLite = "sqlite"
)

// Store is an append-only error history.
type Store interface {
	// Load returns every record in insertion order. A missing store is an
	// empty history. Undecodable content yields a *CorruptError.
	Load(ctx context.Context) ([]models.ErrorRecord, error)

	// Append durably adds one record and returns it as stored, with ID,
	// Normalized and Timestamp filled in when the caller left them empty.
	// Failures yield a *WriteError.
	Append(ctx context.Context, rec models.ErrorRecord) (models.ErrorRecord, error)

	// Path returns the backing file.
	Path() string

	Close() error
}

// Open returns the store for backend at path. An empty backend means JSONL.
func Open(backend, path string) (Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("store path is empty")
	}
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendJSONL:
		return NewJSONL(path), nil
	case BackendSQLite:
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("unknown store backend %q (want %s or %s)", backend, BackendJSONL, BackendSQLite)
	}
}

// ValidBackend reports whether name is a known backend.
func ValidBackend(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", BackendJSONL, BackendSQLite:
		return true
	}
	return false
}

// prepare fills the derived fields of rec before it is written.
func prepare(rec models.ErrorRecord) (models.ErrorRecord, error) {
	if !rec.Valid() {
		return rec, models.ErrInvalidCommand
	}
	if rec.ID == "" {
		rec.ID = newRecordID()
	}
	if rec.Normalized == "" {
		rec.Normalized = normalizeCommand(rec.Command)
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = now()
	}
	rec.Timestamp = rec.Timestamp.UTC()
	return rec, nil
}

// fill recomputes fields an older writer may have omitted.
func fill(rec *models.ErrorRecord) {
	if rec.Normalized == "" {
		rec.Normalized = normalizeCommand(rec.Command)
	}
}

// Broken returns a Store whose operations all fail with err. Callers use it
// when Open fails so that reads can still fail open.
func Broken(path string, err error) Store {
	return &brokenStore{path: path, err: err}
}

type brokenStore struct {
	path string
	err  error
}

func (b *brokenStore) Load(context.Context) ([]models.ErrorRecord, error) { return nil, b.err }
func (b *brokenStore) Append(_ context.Context, rec models.ErrorRecord) (models.ErrorRecord, error) {
	return rec, &WriteError{Path: b.path, Op: "open", Err: b.err}
}
func (b *brokenStore) Path() string { return b.path }
func (b *brokenStore) Close() error { return nil }
