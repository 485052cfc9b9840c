package store

import (
	"time"

	"github.com/google/uuid"

	"github.com/dotcommander/cmdguard/internal/normalize"
)

// Overridable in tests.
var (
	now              = func() time.Time { return time.Now().UTC() }
	normalizeCommand = normalize.Command
)

// newRecordID returns a random UUID for a new record. If the random source
// fails, it falls back to a timestamp-derived id, which is acceptable at CLI
// scale.
func newRecordID() string {
	id, err := uuid.NewRandom()
	if err != nil {
		return "err_" + now().Format("20060102T150405.000000000")
	}
	return id.String()
}
