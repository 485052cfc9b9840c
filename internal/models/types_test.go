package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecisionString(t *testing.T) {
	require.Equal(t, "ALLOW", DecisionAllow.String())
	require.Equal(t, "WARN", DecisionWarn.String())
	require.Equal(t, "BLOCK", DecisionBlock.String())
}

func TestErrorRecord_Valid(t *testing.T) {
	require.True(t, (&ErrorRecord{Command: "ls"}).Valid())
	require.False(t, (&ErrorRecord{Command: "  \t"}).Valid())
	require.False(t, (&ErrorRecord{}).Valid())
}

func TestErrorRecord_HasRemediation(t *testing.T) {
	require.True(t, (&ErrorRecord{Remediation: "pin the version"}).HasRemediation())
	require.False(t, (&ErrorRecord{Remediation: " \n"}).HasRemediation())
}

func TestErrorRecord_TolerantDecoding(t *testing.T) {
	var rec ErrorRecord
	err := json.Unmarshal([]byte(`{"command":"make","exit_code":2,"future_field":{"x":1}}`), &rec)
	require.NoError(t, err)
	require.Equal(t, "make", rec.Command)
	require.Equal(t, 2, rec.ExitCode)
	require.Empty(t, rec.Signature)
	require.True(t, rec.Timestamp.IsZero())
}

func TestSentinelsAreDistinct(t *testing.T) {
	require.False(t, errors.Is(ErrStoreCorrupt, ErrStoreWriteFailed))
	require.False(t, errors.Is(ErrInvalidCommand, ErrStoreCorrupt))
}
