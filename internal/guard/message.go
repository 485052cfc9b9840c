package guard

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/dotcommander/cmdguard/internal/matcher"
	"github.com/dotcommander/cmdguard/internal/models"
	"github.com/dotcommander/cmdguard/internal/policy"
)

func blockMessage(rule *policy.Rule, command string) string {
	return fmt.Sprintf("cmdguard blocked this command (rule %s): %s\ncommand: %s",
		rule.ID, rule.Description, strings.TrimSpace(command))
}

// warnMessage describes the best match in full and lists the rest briefly.
// matches must be non-empty and sorted best first.
func warnMessage(matches []matcher.Match, now time.Time) string {
	best := matches[0]
	rec := best.Record

	var b strings.Builder
	fmt.Fprintf(&b, "cmdguard: this command resembles one that failed before (similarity %.2f).\n", best.Score)
	fmt.Fprintf(&b, "  previous: %s\n", strings.TrimSpace(rec.Command))
	fmt.Fprintf(&b, "  failed:   %s\n", describeFailure(rec, now))
	if rec.Signature != "" {
		fmt.Fprintf(&b, "  error:    %s\n", rec.Signature)
	}
	if rec.HasRemediation() {
		fmt.Fprintf(&b, "  fix:      %s\n", rec.Remediation)
	}

	if len(matches) > 1 {
		b.WriteString("  also similar:\n")
		for _, m := range matches[1:] {
			fmt.Fprintf(&b, "    - %s (%.2f, %s)\n", strings.TrimSpace(m.Record.Command), m.Score, describeFailure(m.Record, now))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func describeFailure(rec models.ErrorRecord, now time.Time) string {
	parts := []string{fmt.Sprintf("exit %d", rec.ExitCode)}
	if !rec.Timestamp.IsZero() {
		parts = append(parts, humanize.RelTime(rec.Timestamp, now, "ago", "from now"))
	}
	if rec.Project != "" {
		parts = append(parts, "project "+rec.Project)
	}
	return strings.Join(parts, ", ")
}
