package guard

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFindSignature(t *testing.T) {
	sigs, err := compileSignatures(nil)
	require.NoError(t, err)

	tests := []struct {
		name   string
		output string
		want   string
		ok     bool
	}{
		{"empty", "", "", false},
		{"clean output", "ok  \tgithub.com/x/y\t0.12s\nPASS", "", false},
		{"zero failures is not an error", "Tests: 0 failed, 12 passed\nno errors", "", false},
		{"go compiler", "# pkg\n./main.go:3:2: error: undefined x", "", false},
		{"rust", "error[E0308]: mismatched types\n --> src/main.rs:4:5", "error[E0308]: mismatched types", true},
		{"git fatal", "fatal: not a git repository (or any of the parent directories): .git", "fatal: not a git repository (or any of the parent directories): .git", true},
		{"shell", "bash: foo: command not found", "bash: foo: command not found", true},
		{"panic", "goroutine 1 [running]:\npanic: runtime error", "panic: runtime error", true},
		{"exception preferred over traceback", "Traceback (most recent call last):\nValueError: bad", "ValueError: bad", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := findSignature(tt.output, sigs)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestTruncateRunes(t *testing.T) {
	require.Equal(t, "short", truncateRunes("short", 10))
	require.Equal(t, "abcdefg...", truncateRunes("abcdefghijklmnop", 10))
	require.Equal(t, "ab", truncateRunes("abcdef", 2))
}

func TestFirstLine(t *testing.T) {
	require.Equal(t, "second", firstLine("\n   \nsecond\nthird"))
	require.Empty(t, firstLine(" \n "))
}
