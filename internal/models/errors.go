package models

import "errors"

// RecoverableError is implemented by enriched errors that carry structured
// context and remediation hints. Both the store and commands packages use this
// interface to avoid an import cycle.
type RecoverableError interface {
	error
	ErrorCode() string
	Context() map[string]string
	SuggestedAction() string
}

// Error taxonomy shared by the store, guard and command layers.
var (
	// ErrStoreCorrupt means the persisted store exists but cannot be parsed.
	// Callers degrade to an empty history.
	ErrStoreCorrupt = errors.New("error store is corrupt")

	// ErrStoreWriteFailed means a record could not be durably appended.
	ErrStoreWriteFailed = errors.New("error store write failed")

	// ErrInvalidCommand means the candidate command was empty or blank.
	ErrInvalidCommand = errors.New("invalid command input")
)
