package commands

import (
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dotcommander/cmdguard/internal/app"
	"github.com/dotcommander/cmdguard/internal/matcher"
	"github.com/dotcommander/cmdguard/internal/models"
	"github.com/dotcommander/cmdguard/internal/output"
)

const defaultListLimit = 20

// NewErrorsCmd creates the errors namespace.
func NewErrorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "errors",
		Short: "Inspect the recorded failures",
		Args:  cobra.NoArgs,
	}

	cmd.AddCommand(newErrorsListCmd())
	cmd.AddCommand(newErrorsMatchCmd())

	namespaceIndex(cmd)
	return cmd
}

func newErrorsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded failures, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			project, _ := cmd.Flags().GetString("project")
			limit, _ := cmd.Flags().GetInt("limit")

			return withGuard(func(h *guardHandle) error {
				history, err := h.History(cmd.Context())
				if err != nil {
					return err
				}
				records := newestFirst(history, strings.TrimSpace(project), limit)

				type resp struct {
					Path    string               `json:"path"`
					Total   int                  `json:"total"`
					Count   int                  `json:"count"`
					Records []models.ErrorRecord `json:"records"`
				}
				return output.PrintTo(cmd.OutOrStdout(), output.Success(resp{
					Path:    h.Store.Path(),
					Total:   len(history),
					Count:   len(records),
					Records: records,
				}))
			})
		},
	}

	cmd.Flags().String("project", "", "Only records from this project")
	cmd.Flags().Int("limit", defaultListLimit, "Maximum records to return (0 for all)")

	return cmd
}

// newestFirst reverses insertion order, filters by project and caps at limit.
func newestFirst(history []models.ErrorRecord, project string, limit int) []models.ErrorRecord {
	out := make([]models.ErrorRecord, 0, len(history))
	for _, rec := range slices.Backward(history) {
		if project != "" && rec.Project != project {
			continue
		}
		out = append(out, rec)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func newErrorsMatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match <command>",
		Short: "Rank recorded failures by similarity to a command",
		Long: `Shows every record at or above min_similarity with its score, including
matches too weak to trigger a warning.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, _ := cmd.Flags().GetString("project")
			limit, _ := cmd.Flags().GetInt("limit")
			command := strings.Join(args, " ")

			return withGuard(func(h *guardHandle) error {
				project = app.ResolveProject("", project)
				matches, err := h.Rank(cmd.Context(), command, project, limit)
				if err != nil {
					return err
				}
				if matches == nil {
					matches = []matcher.Match{}
				}

				type resp struct {
					Command       string          `json:"command"`
					Project       string          `json:"project"`
					WarnThreshold float64         `json:"warn_threshold"`
					Matches       []matcher.Match `json:"matches"`
				}
				return output.PrintTo(cmd.OutOrStdout(), output.Success(resp{
					Command:       command,
					Project:       project,
					WarnThreshold: h.Config().WarnThreshold,
					Matches:       matches,
				}))
			})
		},
	}

	cmd.Flags().String("project", "", "Project identifier (only used with project_only)")
	cmd.Flags().Int("limit", 10, "Maximum matches to return (0 for all)")

	return cmd
}
