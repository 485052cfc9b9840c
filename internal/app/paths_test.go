package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dotcommander/cmdguard/internal/store"
)

func isolateForTest(t *testing.T) string {
	t.Helper()
	resetSettingsStateForTest()
	t.Cleanup(resetSettingsStateForTest)

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(EnvStorePath, "")
	t.Setenv(EnvStoreBackend, "")
	t.Setenv(EnvProject, "")
	t.Setenv(EnvLogLevel, "")
	t.Setenv(EnvLogFile, "")
	chdirForTest(t, t.TempDir())
	return home
}

func TestResolveStore_Default(t *testing.T) {
	home := isolateForTest(t)

	loc, err := ResolveStore()
	require.NoError(t, err)
	require.Equal(t, store.BackendJSONL, loc.Backend)
	require.Equal(t, "default", loc.BackendSource)
	require.Equal(t, filepath.Join(home, ".config", "cmdguard", "errors.jsonl"), loc.Path)
	require.Equal(t, "default(~/.config/cmdguard/errors.jsonl)", loc.PathSource)
}

func TestResolveStore_DefaultSQLiteFileName(t *testing.T) {
	home := isolateForTest(t)
	writeUserConfig(t, home, "store_backend: SQLite\n")

	loc, err := ResolveStore()
	require.NoError(t, err)
	require.Equal(t, store.BackendSQLite, loc.Backend)
	require.Equal(t, "config(store_backend)", loc.BackendSource)
	require.Equal(t, filepath.Join(home, ".config", "cmdguard", "cmdguard.db"), loc.Path)
}

func TestResolveStore_PrioritizesCLIOverride(t *testing.T) {
	home := isolateForTest(t)
	t.Setenv(EnvStorePath, filepath.Join(home, "env", "errors.jsonl"))
	writeUserConfig(t, home, "store_path: /tmp/from-config.jsonl\n")

	overridePath := filepath.Join(home, "cli", "errors.jsonl")
	SetStorePathOverride(overridePath)
	SetStoreBackendOverride("sqlite")

	loc, err := ResolveStore()
	require.NoError(t, err)
	require.Equal(t, overridePath, loc.Path)
	require.Equal(t, "cli(--store-path)", loc.PathSource)
	require.Equal(t, store.BackendSQLite, loc.Backend)
	require.Equal(t, "cli(--store-backend)", loc.BackendSource)
}

func TestResolveStore_EnvBeatsConfig(t *testing.T) {
	home := isolateForTest(t)
	envPath := filepath.Join(home, "env", "errors.jsonl")
	t.Setenv(EnvStorePath, envPath)
	writeUserConfig(t, home, "store_path: /tmp/from-config.jsonl\n")

	loc, err := ResolveStore()
	require.NoError(t, err)
	require.Equal(t, envPath, loc.Path)
	require.Equal(t, "env(CMDGUARD_STORE_PATH)", loc.PathSource)
}

func TestResolveStore_ConfigPathExpandsHome(t *testing.T) {
	home := isolateForTest(t)
	writeUserConfig(t, home, "store_path: ~/data/errors.jsonl\n")

	loc, err := ResolveStore()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, "data", "errors.jsonl"), loc.Path)
	require.Equal(t, "config(store_path)", loc.PathSource)
}

func TestResolveStore_BackendNames(t *testing.T) {
	isolateForTest(t)

	for value, want := range map[string]string{" SQLITE ": store.BackendSQLite, "Jsonl": store.BackendJSONL, "  ": store.BackendJSONL} {
		t.Setenv(EnvStoreBackend, value)
		loc, err := ResolveStore()
		require.NoError(t, err, value)
		require.Equal(t, want, loc.Backend, value)
		require.True(t, store.ValidBackend(loc.Backend))
	}
}

func TestResolveStore_Errors(t *testing.T) {
	home := isolateForTest(t)
	t.Setenv(EnvStoreBackend, "bolt")
	_, err := ResolveStore()
	require.ErrorContains(t, err, `unknown store backend "bolt"`)

	t.Setenv(EnvStoreBackend, "")
	writeUserConfig(t, home, "store_path: [")
	resetSettingsStateForTest()
	_, err = ResolveStore()
	require.ErrorContains(t, err, "failed to load config")

	// An explicit path does not need the broken config.
	SetStorePathOverride(filepath.Join(home, "x.jsonl"))
	loc, err := ResolveStore()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, "x.jsonl"), loc.Path)
}

func TestDisabled(t *testing.T) {
	for _, v := range []string{"1", "true", "YES", " on "} {
		t.Setenv(EnvDisable, v)
		require.True(t, Disabled(), v)
	}
	for _, v := range []string{"", "0", "false", "nope"} {
		t.Setenv(EnvDisable, v)
		require.False(t, Disabled(), v)
	}
}

func TestLogSettings(t *testing.T) {
	home := isolateForTest(t)

	level, file := LogSettings()
	require.Equal(t, "warn", level)
	require.Empty(t, file)

	writeUserConfig(t, home, "log_level: Info\nlog_file: ~/logs/cmdguard.log\n")
	resetSettingsStateForTest()
	level, file = LogSettings()
	require.Equal(t, "info", level)
	require.Equal(t, filepath.Join(home, "logs", "cmdguard.log"), file)

	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvLogFile, "/tmp/other.log")
	level, file = LogSettings()
	require.Equal(t, "debug", level)
	require.Equal(t, "/tmp/other.log", file)
}

func TestResolveProject(t *testing.T) {
	isolateForTest(t)
	wd, err := os.Getwd()
	require.NoError(t, err)

	require.Equal(t, "/from/host", ResolveProject("/from/host", "/from/flag"))
	require.Equal(t, "/from/flag", ResolveProject("  ", "/from/flag"))

	t.Setenv(EnvProject, "proj-env")
	require.Equal(t, "proj-env", ResolveProject("", ""))

	t.Setenv(EnvProject, "")
	require.Equal(t, wd, ResolveProject("", ""))
}

func TestInspectConfigFiles(t *testing.T) {
	home := isolateForTest(t)
	writeUserConfig(t, home, "store_path: [")

	statuses, err := InspectConfigFiles()
	require.NoError(t, err)
	require.Len(t, statuses, 3)
	require.True(t, statuses[0].Exists)
	require.NotEmpty(t, statuses[0].Error)
	require.False(t, statuses[2].Exists)
}
