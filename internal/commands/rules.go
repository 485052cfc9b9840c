package commands

import (
	"github.com/spf13/cobra"

	"github.com/dotcommander/cmdguard/internal/output"
)

// NewRulesCmd creates the rules command.
func NewRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List the prevention rules in evaluation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			type rule struct {
				ID           string `json:"id"`
				Description  string `json:"description"`
				Pattern      string `json:"pattern"`
				WholeCommand bool   `json:"whole_command,omitempty"`
				Builtin      bool   `json:"builtin"`
			}
			type resp struct {
				Count    int      `json:"count"`
				Rules    []rule   `json:"rules"`
				Problems []string `json:"problems,omitempty"`
			}

			h := openGuard()
			defer h.Close()

			rules := h.Rules()
			out := resp{Count: len(rules), Rules: make([]rule, 0, len(rules)), Problems: h.Problems}
			for _, r := range rules {
				out.Rules = append(out.Rules, rule{
					ID:           r.ID,
					Description:  r.Description,
					Pattern:      r.Source(),
					WholeCommand: r.WholeCommand,
					Builtin:      r.Builtin,
				})
			}
			return output.PrintTo(cmd.OutOrStdout(), output.Success(out))
		},
	}
}
