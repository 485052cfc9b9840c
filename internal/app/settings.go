package app

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/dotcommander/cmdguard/internal/policy"
)

// Settings represents configuration loaded from config.yaml.
// Field names match snake_case YAML keys.
type Settings struct {
	StoreBackend    string        `yaml:"store_backend"`
	StorePath       string        `yaml:"store_path"`
	MinSimilarity   float64       `yaml:"min_similarity"`
	WarnThreshold   float64       `yaml:"warn_threshold"`
	MaxMatches      int           `yaml:"max_matches"`
	WarnDecision    string        `yaml:"warn_decision"`
	ProjectOnly     bool          `yaml:"project_only"`
	BlockedPatterns []policy.Spec `yaml:"blocked_patterns"`
	ErrorSignatures []string      `yaml:"error_signatures"`
	LogLevel        string        `yaml:"log_level"`
	LogFile         string        `yaml:"log_file"`
}

// MatchSettings are the effective runtime values used by the hooks.
type MatchSettings struct {
	MinSimilarity float64 `json:"min_similarity"`
	WarnThreshold float64 `json:"warn_threshold"`
	MaxMatches    int     `json:"max_matches"`
	ProjectOnly   bool    `json:"project_only"`
	WarnDecision  string  `json:"warn_decision"`
}

// WarnDecisionAsk turns a warning into a confirmation prompt.
const WarnDecisionAsk = "ask"

const (
	defaultMinSimilarity = 0.6
	defaultWarnThreshold = 0.7
	defaultMaxMatches    = 3
	maxMaxMatches        = 20
)

// EffectiveMatchSettings returns validated match settings with defaults.
// Invalid or missing config values fall back to safe defaults.
func EffectiveMatchSettings() MatchSettings {
	cfg := MatchSettings{
		MinSimilarity: defaultMinSimilarity,
		WarnThreshold: defaultWarnThreshold,
		MaxMatches:    defaultMaxMatches,
	}

	s, err := LoadSettings()
	if err != nil {
		return cfg
	}

	if s.MinSimilarity > 0 && s.MinSimilarity <= 1 {
		cfg.MinSimilarity = s.MinSimilarity
	}
	if s.WarnThreshold > 0 && s.WarnThreshold <= 1 {
		cfg.WarnThreshold = s.WarnThreshold
	}
	if s.MaxMatches > 0 {
		cfg.MaxMatches = min(s.MaxMatches, maxMaxMatches)
	}
	cfg.ProjectOnly = s.ProjectOnly
	if strings.EqualFold(strings.TrimSpace(s.WarnDecision), WarnDecisionAsk) {
		cfg.WarnDecision = WarnDecisionAsk
	}

	// A warning needs a match, so the warn threshold can never be below the
	// match floor.
	cfg.WarnThreshold = max(cfg.WarnThreshold, cfg.MinSimilarity)
	return cfg
}

// settingsOnce, settings, settingsErr implement the sync.Once lazy-load singleton for config.
// overrideMu guards the process-wide overrides set from CLI flags.
//
//nolint:gochecknoglobals // sync.Once singleton + RWMutex override are intentional process-wide state
var (
	settingsOnce sync.Once
	settings     Settings
	settingsErr  error

	overrideMu           sync.RWMutex
	storePathOverride    string
	storeBackendOverride string
)

// SetStorePathOverride sets a process-wide store path override (--store-path).
func SetStorePathOverride(path string) {
	overrideMu.Lock()
	storePathOverride = path
	overrideMu.Unlock()
}

// SetStoreBackendOverride sets a process-wide backend override (--store-backend).
func SetStoreBackendOverride(backend string) {
	overrideMu.Lock()
	storeBackendOverride = backend
	overrideMu.Unlock()
}

func getOverrides() (path, backend string) {
	overrideMu.RLock()
	defer overrideMu.RUnlock()
	return storePathOverride, storeBackendOverride
}

// LoadSettings loads configuration once using the documented lookup order.
// Lookup order (first found wins):
// 1) ~/.config/cmdguard/config.yaml
// 2) /etc/cmdguard/config.yaml
// 3) ./config.yaml (lowest priority; allows repo-local overrides if desired)
// Environment variables are handled separately.
func LoadSettings() (Settings, error) {
	settingsOnce.Do(func() {
		settings = Settings{}

		paths, err := configPaths()
		if err != nil {
			settingsErr = err
			return
		}
		for _, p := range paths {
			s, err := loadSettingsFile(p)
			if err == nil {
				settings = s
				return
			}
			if !errors.Is(err, os.ErrNotExist) {
				settingsErr = err
				return
			}
		}
	})

	return settings, settingsErr
}

// configPaths lists config files in lookup order.
func configPaths() ([]string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	return []string{
		filepath.Join(dir, "config.yaml"),
		filepath.Join(string(os.PathSeparator), "etc", "cmdguard", "config.yaml"),
		"config.yaml",
	}, nil
}

func loadSettingsFile(path string) (Settings, error) {
	b, err := os.ReadFile(path) //nolint:gosec // G304: fixed lookup paths
	if err != nil {
		return Settings{}, err
	}

	var s Settings
	if err := yaml.Unmarshal(b, &s); err != nil {
		return Settings{}, err
	}
	return s, nil
}
