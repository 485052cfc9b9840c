package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/dotcommander/cmdguard/internal/app"
	"github.com/dotcommander/cmdguard/internal/guard"
	"github.com/dotcommander/cmdguard/internal/models"
	"github.com/dotcommander/cmdguard/internal/output"
)

// exitBlocked is the exit status of `check` when the command is blocked.
const exitBlocked = 2

// NewCheckCmd creates the check command.
func NewCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [--project P] -- <command>",
		Short: "Evaluate a command before running it (exits 2 when blocked)",
		Example: `  cmdguard check -- rm -rf /
  cmdguard check --project api -- 'go test ./...'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, _ := cmd.Flags().GetString("project")
			command := strings.Join(args, " ")

			type resp struct {
				Command  string        `json:"command"`
				Project  string        `json:"project"`
				Verdict  guard.Verdict `json:"verdict"`
				Problems []string      `json:"problems,omitempty"`
			}

			var verdict guard.Verdict
			var out resp
			err := withGuard(func(h *guardHandle) error {
				out.Project = app.ResolveProject("", project)
				verdict = h.Evaluate(cmd.Context(), command, out.Project)
				out.Command = command
				out.Verdict = verdict
				out.Problems = h.Problems
				return output.PrintTo(cmd.OutOrStdout(), output.Success(out))
			})
			if err != nil {
				return err
			}
			if verdict.Decision == models.DecisionBlock {
				return exitError{code: exitBlocked}
			}
			return nil
		},
	}

	cmd.Flags().String("project", "", "Project identifier (default: $CMDGUARD_PROJECT or working directory)")

	return cmd
}
