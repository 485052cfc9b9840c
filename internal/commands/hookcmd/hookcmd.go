// Package hookcmd provides hook installation and uninstallation commands.
// This package is separate from the main commands package to allow independent
// evolution of hook lifecycle management.
package hookcmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dotcommander/cmdguard/internal/output"
)

const (
	cmdguardCommandFallback = "cmdguard"
	bashMatcher             = "Bash"

	// Claude Code hook timeouts are in seconds.
	preHookTimeout  = 10
	postHookTimeout = 10
)

// Hook subcommands handled by cmdguard.
const (
	SubcommandPreBash  = "pre-bash"
	SubcommandPostBash = "post-bash"
)

//nolint:gochecknoglobals // swapped in tests
var executablePath = os.Executable

type hookHandler struct {
	Type    string `json:"type"`
	Command string `json:"command"`
	Timeout int    `json:"timeout"`
}

type hookEntry struct {
	Matcher string        `json:"matcher"`
	Hooks   []hookHandler `json:"hooks"`
}

func claudeSettingsPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".claude", "settings.json")
}

func projectClaudeSettingsPath() string {
	wd, err := os.Getwd()
	if err != nil {
		return filepath.Join(".", ".claude", "settings.json")
	}
	return filepath.Join(wd, ".claude", "settings.json")
}

func resolveClaudeSettingsPath(projectScoped bool) string {
	if projectScoped {
		return projectClaudeSettingsPath()
	}
	return claudeSettingsPath()
}

func cmdguardExecutable() string {
	exe, err := executablePath()
	if err != nil || strings.TrimSpace(exe) == "" {
		return cmdguardCommandFallback
	}
	return exe
}

func buildHookCommand(subcommand string) string {
	exe := cmdguardExecutable()
	if exe == cmdguardCommandFallback {
		return fmt.Sprintf("cmdguard hook %s", subcommand)
	}
	return fmt.Sprintf("%q hook %s", exe, subcommand)
}

func bashHook(subcommand string, timeout int) hookEntry {
	return hookEntry{
		Matcher: bashMatcher,
		Hooks: []hookHandler{{
			Type:    "command",
			Command: buildHookCommand(subcommand),
			Timeout: timeout,
		}},
	}
}

// cmdguardHooks maps each Claude Code event to the entry cmdguard registers.
// Failed Bash calls arrive as PostToolUseFailure, successful ones (which may
// still print an error signature) as PostToolUse.
func cmdguardHooks() map[string]hookEntry {
	return map[string]hookEntry{
		"PreToolUse":         bashHook(SubcommandPreBash, preHookTimeout),
		"PostToolUse":        bashHook(SubcommandPostBash, postHookTimeout),
		"PostToolUseFailure": bashHook(SubcommandPostBash, postHookTimeout),
	}
}

func cmdguardHookEventNames() []string {
	hooks := cmdguardHooks()
	events := make([]string, 0, len(hooks))
	for name := range hooks {
		events = append(events, name)
	}
	sort.Strings(events)
	return events
}

func readSettings(path string) (map[string]any, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: settings path is resolved, not user input
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var settings map[string]any
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if settings == nil {
		settings = map[string]any{}
	}
	return settings, nil
}

func writeSettings(path string, settings map[string]any) error {
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	return os.WriteFile(path, data, 0o600)
}

// HasCmdguardHook checks if a hooks array already contains a cmdguard hook command.
func HasCmdguardHook(entries []any) bool {
	for _, entry := range entries {
		if entryHasCmdguardHook(entry) {
			return true
		}
	}
	return false
}

func entryHasCmdguardHook(entry any) bool {
	entryMap, ok := entry.(map[string]any)
	if !ok {
		return false
	}
	hooks, ok := entryMap["hooks"].([]any)
	if !ok {
		return false
	}
	for _, h := range hooks {
		hMap, ok := h.(map[string]any)
		if !ok {
			continue
		}
		cmd, _ := hMap["command"].(string)
		if IsCmdguardHookCommand(cmd) {
			return true
		}
	}
	return false
}

// IsCmdguardHookCommand checks if a command string is a cmdguard hook command.
func IsCmdguardHookCommand(command string) bool {
	parts := strings.Fields(strings.TrimSpace(command))
	if len(parts) < 3 {
		return false
	}

	execToken := strings.Trim(parts[0], "\"'")
	if filepath.Base(execToken) != "cmdguard" {
		return false
	}
	if parts[1] != "hook" {
		return false
	}

	switch parts[2] {
	case SubcommandPreBash, SubcommandPostBash:
		return true
	default:
		return false
	}
}

func hookEntryEqual(a, b map[string]any) bool {
	aj, _ := json.Marshal(a)
	bj, _ := json.Marshal(b)
	return string(aj) == string(bj)
}

type installOutcome int

const (
	hookInstalled installOutcome = iota
	hookUpdated
	hookSkipped
)

// upsertHookEntry replaces any cmdguard entries in existing with newEntry and
// keeps every other tool's entries in place.
func upsertHookEntry(existing []any, newEntry map[string]any) ([]any, installOutcome) {
	var kept []any
	hadOurs := false
	matching := false

	for _, currentEntry := range existing {
		if !entryHasCmdguardHook(currentEntry) {
			kept = append(kept, currentEntry)
			continue
		}
		hadOurs = true
		if entryObj, ok := currentEntry.(map[string]any); ok && hookEntryEqual(entryObj, newEntry) {
			matching = true
		}
	}

	kept = append(kept, newEntry)
	switch {
	case matching:
		return kept, hookSkipped
	case hadOurs:
		return kept, hookUpdated
	default:
		return kept, hookInstalled
	}
}

// removeHookEntries drops cmdguard entries and reports whether any were removed.
func removeHookEntries(entries []any) ([]any, bool) {
	var kept []any
	for _, entry := range entries {
		if !entryHasCmdguardHook(entry) {
			kept = append(kept, entry)
		}
	}
	return kept, len(kept) != len(entries)
}

type installResult struct {
	Message   string   `json:"message"`
	Path      string   `json:"path"`
	Installed []string `json:"installed"`
	Updated   []string `json:"updated,omitempty"`
	Skipped   []string `json:"skipped"`
}

func install(path string) (installResult, error) {
	res := installResult{Path: path, Installed: []string{}, Skipped: []string{}}

	settings, err := readSettings(path)
	if err != nil {
		return res, err
	}

	hooksObj, _ := settings["hooks"].(map[string]any)
	if hooksObj == nil {
		hooksObj = map[string]any{}
	}

	for eventName, entry := range cmdguardHooks() {
		existing, _ := hooksObj[eventName].([]any)

		entryJSON, _ := json.Marshal(entry)
		var entryMap map[string]any
		_ = json.Unmarshal(entryJSON, &entryMap)

		entries, outcome := upsertHookEntry(existing, entryMap)
		hooksObj[eventName] = entries

		switch outcome {
		case hookInstalled:
			res.Installed = append(res.Installed, eventName)
		case hookUpdated:
			res.Updated = append(res.Updated, eventName)
		case hookSkipped:
			res.Skipped = append(res.Skipped, eventName)
		}
	}

	settings["hooks"] = hooksObj
	if err := writeSettings(path, settings); err != nil {
		return res, err
	}

	sort.Strings(res.Installed)
	sort.Strings(res.Updated)
	sort.Strings(res.Skipped)

	var parts []string
	if len(res.Installed) > 0 {
		parts = append(parts, fmt.Sprintf("Claude Code hooks installed (%s)", strings.Join(res.Installed, ", ")))
	}
	if len(res.Updated) > 0 {
		parts = append(parts, fmt.Sprintf("Claude Code hooks updated (%s)", strings.Join(res.Updated, ", ")))
	}
	if len(parts) == 0 {
		parts = append(parts, "Claude Code hooks already installed")
	}
	res.Message = strings.Join(parts, "; ") + ". Run 'cmdguard doctor' to verify."
	return res, nil
}

type uninstallResult struct {
	Path    string   `json:"path"`
	Removed []string `json:"removed"`
}

func uninstall(path string) (uninstallResult, error) {
	res := uninstallResult{Path: path, Removed: []string{}}

	settings, err := readSettings(path)
	if err != nil {
		return res, err
	}
	hooksObj, _ := settings["hooks"].(map[string]any)
	if hooksObj == nil {
		return res, nil
	}

	for _, eventName := range cmdguardHookEventNames() {
		entries, ok := hooksObj[eventName].([]any)
		if !ok {
			continue
		}
		kept, removed := removeHookEntries(entries)
		if !removed {
			continue
		}
		res.Removed = append(res.Removed, eventName)
		if len(kept) == 0 {
			delete(hooksObj, eventName)
		} else {
			hooksObj[eventName] = kept
		}
	}

	if len(res.Removed) == 0 {
		return res, nil
	}
	settings["hooks"] = hooksObj
	return res, writeSettings(path, settings)
}

// NewInstallCmd creates the hook install command.
func NewInstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Register cmdguard hooks in Claude Code settings",
		Long: `Adds PreToolUse, PostToolUse and PostToolUseFailure entries (matcher Bash)
to ~/.claude/settings.json, or ./.claude/settings.json with --project.
Running it again updates stale entries and leaves other hooks untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			projectScoped, _ := cmd.Flags().GetBool("project")
			res, err := install(resolveClaudeSettingsPath(projectScoped))
			if err != nil {
				return err
			}
			return output.PrintTo(cmd.OutOrStdout(), output.Success(res))
		},
	}

	cmd.Flags().Bool("project", false, "Install hooks in ./.claude/settings.json")

	return cmd
}

// NewUninstallCmd creates the hook uninstall command.
func NewUninstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "uninstall",
		Short: "Remove cmdguard hooks from Claude Code settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			projectScoped, _ := cmd.Flags().GetBool("project")
			res, err := uninstall(resolveClaudeSettingsPath(projectScoped))
			if err != nil {
				return err
			}
			return output.PrintTo(cmd.OutOrStdout(), output.Success(res))
		},
	}

	cmd.Flags().Bool("project", false, "Uninstall hooks from ./.claude/settings.json")

	return cmd
}
