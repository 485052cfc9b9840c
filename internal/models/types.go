package models

import (
	"strings"
	"time"
)

// Trigger records why a command outcome was judged a failure.
type Trigger string

// Failure triggers.
const (
	// TriggerExitStatus is set when the command exited non-zero.
	TriggerExitStatus Trigger = "exit_status"
	// TriggerOutputSignature is set when the command exited zero but printed
	// a known error signature.
	TriggerOutputSignature Trigger = "output_signature"
)

// Record sources.
const (
	SourceHook   = "hook"
	SourceCLI    = "cli"
	SourceManual = "manual"
)

// ErrorRecord is one observed command failure. Records are append-only:
// created once by the post-execution hook (or `cmdguard learn`) and never
// mutated afterwards.
//
// Decoding is tolerant: unknown fields are ignored and optional fields
// default to their zero value, so newer stores stay readable by older
// binaries and vice versa.
type ErrorRecord struct {
	ID          string    `json:"id,omitempty"`
	Command     string    `json:"command"`
	Normalized  string    `json:"normalized"`
	ExitCode    int       `json:"exit_code"`
	Trigger     Trigger   `json:"trigger,omitempty"`
	Signature   string    `json:"signature"`
	Project     string    `json:"project"`
	Timestamp   time.Time `json:"timestamp"`
	Remediation string    `json:"remediation,omitempty"`
	Source      string    `json:"source,omitempty"`
	SessionID   string    `json:"session_id,omitempty"`
}

// Valid reports whether the record satisfies the store invariant (non-empty command).
func (r *ErrorRecord) Valid() bool {
	return strings.TrimSpace(r.Command) != ""
}

// HasRemediation returns true if the record carries fix text.
func (r *ErrorRecord) HasRemediation() bool {
	return strings.TrimSpace(r.Remediation) != ""
}

// Decision is the outcome class of a pre-execution evaluation.
type Decision string

// Decisions, ordered from least to most restrictive.
const (
	DecisionAllow Decision = "allow"
	DecisionWarn  Decision = "warn"
	DecisionBlock Decision = "block"
)

// String returns the upper-case form used in human-readable output.
func (d Decision) String() string {
	return strings.ToUpper(string(d))
}
