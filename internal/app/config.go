package app

import (
	"os"
	"path/filepath"
	"strings"
)

// ConfigDir returns ~/.config/cmdguard/ on all platforms.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "cmdguard"), nil
}

// EnsureConfigDir creates the config directory and default config.yaml if missing.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}

	configFile := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return os.WriteFile(configFile, []byte(defaultConfig), 0o600)
	}
	return nil
}

// expandHome replaces a leading ~/ with the user's home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

const defaultConfig = `# cmdguard configuration
# Run: cmdguard --help

# Error store backend: jsonl (default) or sqlite.
# Can also be set via CMDGUARD_STORE_BACKEND or --store-backend.
# store_backend: jsonl

# Optional: override the error store location.
# Can also be set via CMDGUARD_STORE_PATH or --store-path.
# store_path: ~/.config/cmdguard/errors.jsonl

# Matching. Records scoring below min_similarity are ignored; a best match at
# or above warn_threshold produces a warning.
# min_similarity: 0.6
# warn_threshold: 0.7
# max_matches: 3

# Only match failures recorded in the same project.
# project_only: false

# Set to "ask" to make Claude Code ask for confirmation on warnings instead
# of only showing them.
# warn_decision: ""

# Extra commands to block (case-insensitive regular expressions).
# blocked_patterns:
#   - id: terraform-destroy
#     description: Destroys managed infrastructure
#     pattern: '^terraform\s+destroy\b'

# Extra output lines that mark a command as failed even on exit status 0.
# error_signatures:
#   - '^BUILD FAILED'

# Logging (JSON on stderr). log_file additionally appends to a file.
# log_level: warn
# log_file: ~/.config/cmdguard/cmdguard.log
`
