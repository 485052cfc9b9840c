package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dotcommander/cmdguard/internal/app"
	"github.com/dotcommander/cmdguard/internal/models"
	"github.com/dotcommander/cmdguard/internal/store"
)

// isolate points HOME and the store at a temp dir and clears the env knobs.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	storePath := filepath.Join(home, "errors.jsonl")
	t.Setenv(app.EnvStorePath, storePath)
	t.Setenv(app.EnvStoreBackend, "")
	t.Setenv(app.EnvDisable, "")
	t.Setenv(app.EnvProject, "proj")
	return storePath
}

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd("test")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

type envelope[T any] struct {
	SchemaVersion string `json:"schema_version"`
	Success       bool   `json:"success"`
	Data          T      `json:"data"`
}

func decode[T any](t *testing.T, out string) T {
	t.Helper()
	var env envelope[T]
	require.NoError(t, json.Unmarshal([]byte(out), &env), out)
	require.True(t, env.Success, out)
	return env.Data
}

func loadStore(t *testing.T, path string) []models.ErrorRecord {
	t.Helper()
	recs, err := store.NewJSONL(path).Load(context.Background())
	require.NoError(t, err)
	return recs
}
