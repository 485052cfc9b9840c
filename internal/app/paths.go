package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dotcommander/cmdguard/internal/store"
)

// Environment variables.
const (
	EnvStorePath    = "CMDGUARD_STORE_PATH"
	EnvStoreBackend = "CMDGUARD_STORE_BACKEND"
	EnvDisable      = "CMDGUARD_DISABLE"
	EnvLogLevel     = "CMDGUARD_LOG_LEVEL"
	EnvLogFile      = "CMDGUARD_LOG_FILE"
	EnvProject      = "CMDGUARD_PROJECT"
)

// Default store file names per backend.
const (
	defaultJSONLFile  = "errors.jsonl"
	defaultSQLiteFile = "cmdguard.db"
)

// StoreLocation is the resolved error store.
type StoreLocation struct {
	Backend       string `json:"backend"`
	BackendSource string `json:"backend_source"`
	Path          string `json:"path"`
	PathSource    string `json:"path_source"`
}

// ResolveStore resolves the store backend and path.
//
// Backend order: --store-backend, $CMDGUARD_STORE_BACKEND, config
// store_backend, jsonl.
// Path order: --store-path, $CMDGUARD_STORE_PATH, config store_path, then
// errors.jsonl or cmdguard.db under ~/.config/cmdguard/.
func ResolveStore() (StoreLocation, error) {
	pathOverride, backendOverride := getOverrides()

	// Config errors only matter when the config is actually consulted.
	cfg, cfgErr := LoadSettings()
	var loc StoreLocation

	switch {
	case backendOverride != "":
		loc.Backend, loc.BackendSource = backendOverride, "cli(--store-backend)"
	case os.Getenv(EnvStoreBackend) != "":
		loc.Backend, loc.BackendSource = os.Getenv(EnvStoreBackend), "env("+EnvStoreBackend+")"
	case cfgErr == nil && cfg.StoreBackend != "":
		loc.Backend, loc.BackendSource = cfg.StoreBackend, "config(store_backend)"
	default:
		loc.Backend, loc.BackendSource = store.BackendJSONL, "default"
	}
	if !store.ValidBackend(loc.Backend) {
		return loc, fmt.Errorf("unknown store backend %q from %s (want %s or %s)", loc.Backend, loc.BackendSource, store.BackendJSONL, store.BackendSQLite)
	}
	loc.Backend = strings.ToLower(strings.TrimSpace(loc.Backend))
	if loc.Backend == "" {
		loc.Backend = store.BackendJSONL
	}

	switch {
	case pathOverride != "":
		loc.Path, loc.PathSource = pathOverride, "cli(--store-path)"
	case os.Getenv(EnvStorePath) != "":
		loc.Path, loc.PathSource = os.Getenv(EnvStorePath), "env("+EnvStorePath+")"
	case cfgErr != nil:
		return loc, fmt.Errorf("failed to load config: %w", cfgErr)
	case cfg.StorePath != "":
		loc.Path, loc.PathSource = cfg.StorePath, "config(store_path)"
	default:
		dir, err := ConfigDir()
		if err != nil {
			return loc, fmt.Errorf("failed to determine config directory: %w", err)
		}
		name := defaultJSONLFile
		if loc.Backend == store.BackendSQLite {
			name = defaultSQLiteFile
		}
		loc.Path, loc.PathSource = filepath.Join(dir, name), "default(~/.config/cmdguard/"+name+")"
	}

	loc.Path = expandHome(loc.Path)
	if abs, err := filepath.Abs(loc.Path); err == nil {
		loc.Path = abs
	}
	return loc, nil
}

// Disabled reports whether $CMDGUARD_DISABLE turns the hooks off.
func Disabled() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(EnvDisable))) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// LogSettings returns the effective log level and optional log file.
// Environment variables win over config.
func LogSettings() (level, file string) {
	cfg, _ := LoadSettings()
	level, file = cfg.LogLevel, cfg.LogFile
	if v := os.Getenv(EnvLogLevel); v != "" {
		level = v
	}
	if v := os.Getenv(EnvLogFile); v != "" {
		file = v
	}
	if level == "" {
		level = "warn"
	}
	if file != "" {
		file = expandHome(file)
	}
	return strings.ToLower(strings.TrimSpace(level)), file
}

// ResolveProject picks the project identifier: the host-supplied value,
// then the --project flag, then $CMDGUARD_PROJECT, then the working
// directory. The result is opaque to the rest of the program.
func ResolveProject(hostValue, flagValue string) string {
	for _, v := range []string{hostValue, flagValue, os.Getenv(EnvProject)} {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	wd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return wd
}

// ConfigFileStatus reports, per lookup path, whether the file exists and
// parses. Used by doctor.
type ConfigFileStatus struct {
	Path   string `json:"path"`
	Exists bool   `json:"exists"`
	Error  string `json:"error,omitempty"`
}

// InspectConfigFiles checks each config lookup path.
func InspectConfigFiles() ([]ConfigFileStatus, error) {
	paths, err := configPaths()
	if err != nil {
		return nil, err
	}
	out := make([]ConfigFileStatus, 0, len(paths))
	for _, p := range paths {
		st := ConfigFileStatus{Path: p}
		_, loadErr := loadSettingsFile(p)
		switch {
		case loadErr == nil:
			st.Exists = true
		case errors.Is(loadErr, os.ErrNotExist):
		default:
			st.Exists = true
			st.Error = loadErr.Error()
		}
		out = append(out, st)
	}
	return out, nil
}
