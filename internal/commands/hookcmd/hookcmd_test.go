package hookcmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func fakeExecutable(t *testing.T, path string) {
	t.Helper()
	orig := executablePath
	executablePath = func() (string, error) { return path, nil }
	t.Cleanup(func() { executablePath = orig })
}

func TestHasCmdguardHook(t *testing.T) {
	require.False(t, HasCmdguardHook(nil))

	entries := []any{
		map[string]any{
			"hooks": []any{
				map[string]any{"command": "cmdguard hook pre-bash"},
			},
		},
	}
	require.True(t, HasCmdguardHook(entries))

	// Malformed entries should not panic.
	require.False(t, HasCmdguardHook([]any{"not-a-map"}))
	require.False(t, HasCmdguardHook([]any{map[string]any{"hooks": "not-a-slice"}}))
}

func TestIsCmdguardHookCommand(t *testing.T) {
	require.True(t, IsCmdguardHookCommand("cmdguard hook pre-bash"))
	require.True(t, IsCmdguardHookCommand("/usr/local/bin/cmdguard hook post-bash"))
	require.True(t, IsCmdguardHookCommand(`"/Users/someone/go/bin/cmdguard" hook pre-bash`))

	require.False(t, IsCmdguardHookCommand("echo cmdguard hook pre-bash"))
	require.False(t, IsCmdguardHookCommand("/usr/local/bin/not-cmdguard hook pre-bash"))
	require.False(t, IsCmdguardHookCommand("cmdguard doctor"))
	require.False(t, IsCmdguardHookCommand(""))
	require.False(t, IsCmdguardHookCommand("cmdguard hook install"))
	require.False(t, IsCmdguardHookCommand("cmdguard hook session-start"))
}

func TestCmdguardHookEventNames(t *testing.T) {
	require.Equal(t, []string{"PostToolUse", "PostToolUseFailure", "PreToolUse"}, cmdguardHookEventNames())

	for name, entry := range cmdguardHooks() {
		require.Equal(t, "Bash", entry.Matcher, name)
		require.Len(t, entry.Hooks, 1, name)
	}
}

func TestBuildHookCommand(t *testing.T) {
	fakeExecutable(t, "/opt/bin/cmdguard")
	require.Equal(t, `"/opt/bin/cmdguard" hook pre-bash`, buildHookCommand(SubcommandPreBash))
	require.True(t, IsCmdguardHookCommand(buildHookCommand(SubcommandPostBash)))

	executablePath = func() (string, error) { return "", os.ErrNotExist }
	require.Equal(t, "cmdguard hook post-bash", buildHookCommand(SubcommandPostBash))
}

func TestHookEntryEqual(t *testing.T) {
	a := map[string]any{
		"matcher": "Bash",
		"hooks": []any{
			map[string]any{"type": "command", "command": "cmdguard hook pre-bash", "timeout": float64(10)},
		},
	}
	b := map[string]any{
		"matcher": "Bash",
		"hooks": []any{
			map[string]any{"type": "command", "command": "cmdguard hook pre-bash", "timeout": float64(10)},
		},
	}
	require.True(t, hookEntryEqual(a, b))

	// Different timeout
	c := map[string]any{
		"matcher": "Bash",
		"hooks": []any{
			map[string]any{"type": "command", "command": "cmdguard hook pre-bash", "timeout": float64(30)},
		},
	}
	require.False(t, hookEntryEqual(a, c))

	// Different matcher
	d := map[string]any{
		"matcher": "",
		"hooks": []any{
			map[string]any{"type": "command", "command": "cmdguard hook pre-bash", "timeout": float64(10)},
		},
	}
	require.False(t, hookEntryEqual(a, d))
}

func TestUpsertHookEntry(t *testing.T) {
	newEntry := map[string]any{
		"matcher": "Bash",
		"hooks": []any{
			map[string]any{"type": "command", "command": "cmdguard hook pre-bash", "timeout": float64(10)},
		},
	}

	// Fresh install (nil existing)
	entries, outcome := upsertHookEntry(nil, newEntry)
	require.Equal(t, hookInstalled, outcome)
	require.Len(t, entries, 1)

	// Skip (identical entry already present)
	entries, outcome = upsertHookEntry(entries, newEntry)
	require.Equal(t, hookSkipped, outcome)
	require.Len(t, entries, 1)

	// Update (different timeout)
	updatedEntry := map[string]any{
		"matcher": "Bash",
		"hooks": []any{
			map[string]any{"type": "command", "command": "cmdguard hook pre-bash", "timeout": float64(30)},
		},
	}
	entries, outcome = upsertHookEntry(entries, updatedEntry)
	require.Equal(t, hookUpdated, outcome)
	require.Len(t, entries, 1)

	// Other tools' entries are preserved
	other := map[string]any{
		"matcher": "Bash",
		"hooks": []any{
			map[string]any{"type": "command", "command": "other-tool do-thing"},
		},
	}
	mixed := []any{other, entries[0]}
	entries, outcome = upsertHookEntry(mixed, updatedEntry)
	require.Equal(t, hookSkipped, outcome)
	require.Len(t, entries, 2)
	require.Equal(t, other, entries[0])
}

func TestReadSettings_AndWriteSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")

	settings, err := readSettings(path)
	require.NoError(t, err)
	require.Empty(t, settings)

	input := map[string]any{"hooks": map[string]any{"PreToolUse": []any{}}}
	require.NoError(t, writeSettings(path, input))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotEmpty(t, b)
	require.Equal(t, byte('\n'), b[len(b)-1])

	loaded, err := readSettings(path)
	require.NoError(t, err)
	require.Contains(t, loaded, "hooks")
}

func TestReadSettings_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := readSettings(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "parse")
}

func TestInstall_IdempotentAndPreservesOtherSettings(t *testing.T) {
	fakeExecutable(t, "/opt/bin/cmdguard")
	path := filepath.Join(t.TempDir(), ".claude", "settings.json")

	existing := map[string]any{
		"model": "opus",
		"hooks": map[string]any{
			"PreToolUse": []any{
				map[string]any{
					"matcher": "Edit",
					"hooks":   []any{map[string]any{"type": "command", "command": "fmt-check"}},
				},
			},
		},
	}
	require.NoError(t, writeSettings(path, existing))

	res, err := install(path)
	require.NoError(t, err)
	require.Equal(t, []string{"PostToolUse", "PostToolUseFailure", "PreToolUse"}, res.Installed)
	require.Empty(t, res.Skipped)

	res, err = install(path)
	require.NoError(t, err)
	require.Empty(t, res.Installed)
	require.Empty(t, res.Updated)
	require.Len(t, res.Skipped, 3)
	require.Contains(t, res.Message, "already installed")

	settings, err := readSettings(path)
	require.NoError(t, err)
	require.Equal(t, "opus", settings["model"])
	hooks := settings["hooks"].(map[string]any)
	pre := hooks["PreToolUse"].([]any)
	require.Len(t, pre, 2)
	require.False(t, entryHasCmdguardHook(pre[0]))
	require.True(t, entryHasCmdguardHook(pre[1]))
}

func TestInstall_UpdatesMovedBinary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")

	fakeExecutable(t, "/old/bin/cmdguard")
	_, err := install(path)
	require.NoError(t, err)

	fakeExecutable(t, "/new/bin/cmdguard")
	res, err := install(path)
	require.NoError(t, err)
	require.Len(t, res.Updated, 3)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotContains(t, string(b), "/old/bin/cmdguard")
	require.Contains(t, string(b), "/new/bin/cmdguard")
}

func TestUninstall_RemovesOnlyCmdguardEntries(t *testing.T) {
	fakeExecutable(t, "/opt/bin/cmdguard")
	path := filepath.Join(t.TempDir(), "settings.json")

	require.NoError(t, writeSettings(path, map[string]any{
		"hooks": map[string]any{
			"PostToolUse": []any{
				map[string]any{
					"matcher": "",
					"hooks":   []any{map[string]any{"type": "command", "command": "notify-done"}},
				},
			},
		},
	}))
	_, err := install(path)
	require.NoError(t, err)

	res, err := uninstall(path)
	require.NoError(t, err)
	require.Equal(t, []string{"PostToolUse", "PostToolUseFailure", "PreToolUse"}, res.Removed)

	settings, err := readSettings(path)
	require.NoError(t, err)
	hooks := settings["hooks"].(map[string]any)
	require.NotContains(t, hooks, "PreToolUse")
	require.NotContains(t, hooks, "PostToolUseFailure")
	require.Len(t, hooks["PostToolUse"].([]any), 1)

	res, err = uninstall(path)
	require.NoError(t, err)
	require.Empty(t, res.Removed)
}

func TestInstallCmd_ProjectScope(t *testing.T) {
	fakeExecutable(t, "/opt/bin/cmdguard")
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cmd := NewInstallCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--project"})
	require.NoError(t, cmd.Execute())

	var resp struct {
		Success bool          `json:"success"`
		Data    installResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Len(t, resp.Data.Installed, 3)

	_, err = os.Stat(filepath.Join(dir, ".claude", "settings.json"))
	require.NoError(t, err)
}
