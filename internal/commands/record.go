package commands

import (
	"errors"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dotcommander/cmdguard/internal/app"
	"github.com/dotcommander/cmdguard/internal/guard"
	"github.com/dotcommander/cmdguard/internal/models"
	"github.com/dotcommander/cmdguard/internal/output"
)

// recordResult is printed by record and learn.
type recordResult struct {
	Recorded bool                `json:"recorded"`
	Record   *models.ErrorRecord `json:"record,omitempty"`
}

// NewRecordCmd creates the record command.
func NewRecordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record the outcome of a command that already ran",
		Long: `Records a failure when --exit is non-zero or the output (read from stdin with
--output-stdin) contains a known error signature. Successful outcomes are not
stored.`,
		Example: `  make build 2>&1 | cmdguard record --command 'make build' --exit "${PIPESTATUS[0]}" --output-stdin`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			command, _ := cmd.Flags().GetString("command")
			exitCode, _ := cmd.Flags().GetInt("exit")
			fromStdin, _ := cmd.Flags().GetBool("output-stdin")
			project, _ := cmd.Flags().GetString("project")
			session, _ := cmd.Flags().GetString("session")

			if strings.TrimSpace(command) == "" {
				return cmdErr(errors.New("--command is required"))
			}

			var out string
			if fromStdin {
				data, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), maxHookStdinBytes))
				if err != nil {
					return cmdErr(err)
				}
				out, _ = truncateString(string(data), maxHookOutputRunes)
			}

			return withGuard(func(h *guardHandle) error {
				rec, err := h.Record(cmd.Context(), guard.Outcome{
					Command:   command,
					ExitCode:  exitCode,
					Output:    out,
					Project:   app.ResolveProject("", project),
					SessionID: session,
					Source:    models.SourceCLI,
				})
				if err != nil {
					return err
				}
				return output.PrintTo(cmd.OutOrStdout(), output.Success(recordResult{Recorded: rec != nil, Record: rec}))
			})
		},
	}

	cmd.Flags().String("command", "", "Command that ran (required)")
	cmd.Flags().Int("exit", 0, "Exit status of the command")
	cmd.Flags().Bool("output-stdin", false, "Read the command output from stdin")
	cmd.Flags().String("project", "", "Project identifier (default: $CMDGUARD_PROJECT or working directory)")
	cmd.Flags().String("session", "", "Session identifier")
	_ = cmd.MarkFlagRequired("command")

	return cmd
}

// NewLearnCmd creates the learn command.
func NewLearnCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "learn",
		Short: "Teach cmdguard a failing command and how to fix it",
		Long: `Appends a record regardless of exit status. The --fix text is shown
whenever a similar command is about to run.`,
		Example: `  cmdguard learn --command 'npm install left-pad@9' --fix 'left-pad only has 1.x releases'`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			command, _ := cmd.Flags().GetString("command")
			fix, _ := cmd.Flags().GetString("fix")
			exitCode, _ := cmd.Flags().GetInt("exit")
			signature, _ := cmd.Flags().GetString("signature")
			project, _ := cmd.Flags().GetString("project")

			if strings.TrimSpace(command) == "" {
				return cmdErr(errors.New("--command is required"))
			}

			return withGuard(func(h *guardHandle) error {
				rec, err := h.Record(cmd.Context(), guard.Outcome{
					Command:     command,
					ExitCode:    exitCode,
					Output:      signature,
					Project:     app.ResolveProject("", project),
					Source:      models.SourceManual,
					Remediation: fix,
					Force:       true,
				})
				if err != nil {
					return err
				}
				return output.PrintTo(cmd.OutOrStdout(), output.Success(recordResult{Recorded: rec != nil, Record: rec}))
			})
		},
	}

	cmd.Flags().String("command", "", "Command that fails (required)")
	cmd.Flags().String("fix", "", "Remediation shown with future warnings")
	cmd.Flags().Int("exit", 1, "Exit status to record")
	cmd.Flags().String("signature", "", "Error message the command prints")
	cmd.Flags().String("project", "", "Project identifier (default: $CMDGUARD_PROJECT or working directory)")
	_ = cmd.MarkFlagRequired("command")

	return cmd
}
