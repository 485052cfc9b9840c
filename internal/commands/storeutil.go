package commands

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/dotcommander/cmdguard/internal/app"
	"github.com/dotcommander/cmdguard/internal/guard"
	"github.com/dotcommander/cmdguard/internal/output"
	"github.com/dotcommander/cmdguard/internal/policy"
	"github.com/dotcommander/cmdguard/internal/store"
)

type printedError struct {
	err error
}

func (e printedError) Error() string {
	// Intentionally hide the original error: the JSON error response is the output.
	return "error already printed"
}

// exitError carries a non-default process exit status. Its output has
// already been written.
type exitError struct {
	code int
}

func (e exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// ExitCode maps an Execute error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 1
}

// guardHandle is a Guard plus the resolved store it owns.
type guardHandle struct {
	*guard.Guard
	Store    store.Store
	Location app.StoreLocation
	Match    app.MatchSettings

	// Problems lists configuration errors that were worked around.
	Problems []string
}

func (h *guardHandle) Close() {
	if h.Store != nil {
		_ = h.Store.Close()
	}
}

// openGuard builds a Guard from the effective configuration. It never fails:
// an unusable store degrades to one whose reads and writes return the error,
// and invalid config entries are dropped so the built-in rules still apply.
func openGuard() *guardHandle {
	h := &guardHandle{Match: app.EffectiveMatchSettings()}

	settings, err := app.LoadSettings()
	if err != nil {
		h.problem("config", err)
	}

	loc, err := app.ResolveStore()
	h.Location = loc
	if err != nil {
		h.problem("store", err)
		h.Store = store.Broken(loc.Path, err)
	} else if st, err := store.Open(loc.Backend, loc.Path); err != nil {
		h.problem("store", err)
		h.Store = store.Broken(loc.Path, err)
	} else {
		h.Store = st
	}

	pol, err := policy.New(settings.BlockedPatterns)
	if err != nil {
		h.problem("blocked_patterns", err)
		pol = policy.Default()
	}

	cfg := guard.Config{
		MinSimilarity:   h.Match.MinSimilarity,
		WarnThreshold:   h.Match.WarnThreshold,
		MaxMatches:      h.Match.MaxMatches,
		ProjectOnly:     h.Match.ProjectOnly,
		ErrorSignatures: settings.ErrorSignatures,
	}
	g, err := guard.New(h.Store, pol, cfg)
	if err != nil {
		h.problem("error_signatures", err)
		cfg.ErrorSignatures = nil
		g, _ = guard.New(h.Store, pol, cfg)
	}
	h.Guard = g
	return h
}

func (h *guardHandle) problem(key string, err error) {
	slog.Default().Warn("configuration problem", "key", key, "error", err)
	h.Problems = append(h.Problems, fmt.Sprintf("%s: %v", key, err))
}

func withGuard(fn func(h *guardHandle) error) error {
	h := openGuard()
	defer h.Close()

	if err := fn(h); err != nil {
		return cmdErr(err)
	}
	return nil
}

func cmdErr(err error) error {
	if err == nil {
		return nil
	}
	var pe printedError
	if errors.As(err, &pe) {
		return err
	}
	attrs := []any{"error", err.Error()}
	var re store.RecoverableError
	if errors.As(err, &re) {
		attrs = append(attrs, "error_code", re.ErrorCode())
	}
	slog.Error("command error", attrs...)
	_ = output.PrintError(err)
	return printedError{err: err}
}
