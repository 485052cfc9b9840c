package store

import (
	"fmt"
	"strconv"

	"github.com/dotcommander/cmdguard/internal/models"
)

// RecoverableError is an alias for models.RecoverableError so callers can
// type-assert without importing models.
type RecoverableError = models.RecoverableError

// CorruptError means the store exists but part of it cannot be decoded.
// Line is 1-based for the JSONL backend and 0 when unknown.
type CorruptError struct {
	Path string
	Line int
	Err  error
}

func (e *CorruptError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("error store %s is corrupt at line %d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("error store %s is corrupt: %v", e.Path, e.Err)
}
func (e *CorruptError) Unwrap() error     { return e.Err }
func (e *CorruptError) ErrorCode() string { return "STORE_CORRUPT" }
func (e *CorruptError) Context() map[string]string {
	ctx := map[string]string{"path": e.Path}
	if e.Line > 0 {
		ctx["line"] = strconv.Itoa(e.Line)
	}
	return ctx
}
func (e *CorruptError) SuggestedAction() string {
	if e.Line > 0 {
		return fmt.Sprintf("inspect or remove line %d of %s; hooks keep running with an empty history until then", e.Line, e.Path)
	}
	return fmt.Sprintf("move %s aside; a fresh store is created on the next recorded failure", e.Path)
}
func (e *CorruptError) Is(target error) bool { return target == models.ErrStoreCorrupt }

// WriteError means a record could not be durably appended.
type WriteError struct {
	Path string
	Op   string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("error store %s: %s: %v", e.Path, e.Op, e.Err)
}
func (e *WriteError) Unwrap() error     { return e.Err }
func (e *WriteError) ErrorCode() string { return "STORE_WRITE_FAILED" }
func (e *WriteError) Context() map[string]string {
	return map[string]string{
		"path": e.Path,
		"op":   e.Op,
	}
}
func (e *WriteError) SuggestedAction() string {
	return "check permissions and free space for " + e.Path
}
func (e *WriteError) Is(target error) bool { return target == models.ErrStoreWriteFailed }
