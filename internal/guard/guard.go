// Package guard implements the pre- and post-execution hooks: Evaluate
// decides whether a proposed command runs, Record learns from the outcome of
// one that did.
package guard

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/dotcommander/cmdguard/internal/matcher"
	"github.com/dotcommander/cmdguard/internal/models"
	"github.com/dotcommander/cmdguard/internal/normalize"
	"github.com/dotcommander/cmdguard/internal/policy"
	"github.com/dotcommander/cmdguard/internal/store"
)

// Defaults for Config fields left at zero.
const (
	DefaultWarnThreshold = 0.7
	DefaultMaxMatches    = 3
)

// Config tunes matching and failure detection.
type Config struct {
	MinSimilarity   float64
	WarnThreshold   float64
	MaxMatches      int
	ProjectOnly     bool
	ErrorSignatures []string
}

// Guard evaluates and records commands against one store and one policy.
type Guard struct {
	store      store.Store
	policy     *policy.Policy
	cfg        Config
	signatures []*regexp.Regexp
	now        func() time.Time
}

// Verdict is the result of Evaluate.
type Verdict struct {
	Decision models.Decision `json:"decision"`
	Rule     *policy.Rule    `json:"rule,omitempty"`
	Matches  []matcher.Match `json:"matches,omitempty"`
	Score    float64         `json:"score"`
	Message  string          `json:"message,omitempty"`

	// StoreError is set when the history could not be read and matching ran
	// against an empty history.
	StoreError string `json:"store_error,omitempty"`
}

// Outcome is a finished command as reported by the host.
type Outcome struct {
	Command     string
	ExitCode    int
	Output      string
	Project     string
	SessionID   string
	Source      string
	Remediation string

	// Force records the outcome even when it does not look like a failure.
	Force bool
}

// New returns a Guard. A nil policy blocks nothing.
func New(st store.Store, pol *policy.Policy, cfg Config) (*Guard, error) {
	if cfg.MinSimilarity <= 0 {
		cfg.MinSimilarity = matcher.DefaultMinSimilarity
	}
	if cfg.WarnThreshold <= 0 {
		cfg.WarnThreshold = DefaultWarnThreshold
	}
	if cfg.MaxMatches <= 0 {
		cfg.MaxMatches = DefaultMaxMatches
	}

	sigs, err := compileSignatures(cfg.ErrorSignatures)
	if err != nil {
		return nil, err
	}
	return &Guard{
		store:      st,
		policy:     pol,
		cfg:        cfg,
		signatures: sigs,
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

// Config returns the effective configuration.
func (g *Guard) Config() Config { return g.cfg }

// Rules returns the prevention rules in evaluation order.
func (g *Guard) Rules() []policy.Rule { return g.policy.Rules() }

// Evaluate classifies command before it runs.
//
// Policy rules are checked first and never depend on the store. The history
// is consulted only when no rule matches; if it cannot be read the command
// is evaluated against an empty history.
func (g *Guard) Evaluate(ctx context.Context, command, project string) Verdict {
	if strings.TrimSpace(command) == "" {
		slog.Default().Debug("evaluate skipped", "error", models.ErrInvalidCommand)
		return Verdict{Decision: models.DecisionAllow}
	}

	if rule := g.policy.Check(command); rule != nil {
		return Verdict{
			Decision: models.DecisionBlock,
			Rule:     rule,
			Score:    1,
			Message:  blockMessage(rule, command),
		}
	}

	var verdict Verdict
	history, err := g.load(ctx)
	if err != nil {
		slog.Default().Warn("error store unavailable, continuing without history", "path", g.storePath(), "error", err)
		verdict.StoreError = err.Error()
	}

	matches := matcher.Find(command, history, matcher.Options{
		MinSimilarity: g.cfg.MinSimilarity,
		Project:       project,
		ProjectOnly:   g.cfg.ProjectOnly,
		Limit:         g.cfg.MaxMatches,
	})
	verdict.Matches = matches

	best, ok := matcher.Best(matches)
	if !ok {
		verdict.Decision = models.DecisionAllow
		return verdict
	}
	verdict.Score = best.Score
	if best.Score < g.cfg.WarnThreshold {
		verdict.Decision = models.DecisionAllow
		return verdict
	}

	verdict.Decision = models.DecisionWarn
	verdict.Message = warnMessage(matches, g.now())
	return verdict
}

// Record appends a record for o when it is a failure: a non-zero exit, or
// output matching a known error signature. Successful outcomes return
// (nil, nil) and touch nothing.
func (g *Guard) Record(ctx context.Context, o Outcome) (*models.ErrorRecord, error) {
	if strings.TrimSpace(o.Command) == "" {
		return nil, models.ErrInvalidCommand
	}

	sig, sigMatched := findSignature(o.Output, g.signatures)
	failed := o.ExitCode != 0 || sigMatched
	if !failed && !o.Force {
		return nil, nil
	}

	var trigger models.Trigger
	switch {
	case o.ExitCode != 0:
		trigger = models.TriggerExitStatus
	case sigMatched:
		trigger = models.TriggerOutputSignature
	}

	if !sigMatched {
		sig = firstLine(o.Output)
	}
	if sig == "" && o.ExitCode != 0 {
		sig = fmt.Sprintf("exit status %d", o.ExitCode)
	}

	source := o.Source
	if source == "" {
		source = models.SourceCLI
	}

	rec := models.ErrorRecord{
		Command:     o.Command,
		Normalized:  normalize.Command(o.Command),
		ExitCode:    o.ExitCode,
		Trigger:     trigger,
		Signature:   truncateRunes(sig, maxSignatureRunes),
		Project:     o.Project,
		Timestamp:   g.now(),
		Remediation: strings.TrimSpace(o.Remediation),
		Source:      source,
		SessionID:   o.SessionID,
	}
	if g.store == nil {
		return nil, &store.WriteError{Op: "open", Err: fmt.Errorf("no error store configured")}
	}
	stored, err := g.store.Append(ctx, rec)
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// History returns every stored record.
func (g *Guard) History(ctx context.Context) ([]models.ErrorRecord, error) {
	return g.load(ctx)
}

// Rank returns the stored records similar to command, ignoring the warn
// threshold.
func (g *Guard) Rank(ctx context.Context, command, project string, limit int) ([]matcher.Match, error) {
	history, err := g.load(ctx)
	if err != nil {
		return nil, err
	}
	return matcher.Find(command, history, matcher.Options{
		MinSimilarity: g.cfg.MinSimilarity,
		Project:       project,
		ProjectOnly:   g.cfg.ProjectOnly,
		Limit:         limit,
	}), nil
}

func (g *Guard) load(ctx context.Context) ([]models.ErrorRecord, error) {
	if g.store == nil {
		return nil, nil
	}
	return g.store.Load(ctx)
}

func (g *Guard) storePath() string {
	if g.store == nil {
		return ""
	}
	return g.store.Path()
}
