package commands

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dotcommander/cmdguard/internal/app"
	"github.com/dotcommander/cmdguard/internal/commands/hookcmd"
	"github.com/dotcommander/cmdguard/internal/guard"
	"github.com/dotcommander/cmdguard/internal/models"
	"github.com/dotcommander/cmdguard/internal/output"
)

const (
	// maxHookStdinBytes caps stdin reads. Hook payloads are small JSON objects;
	// 1 MB is generous headroom that prevents unbounded allocation.
	maxHookStdinBytes = 1 << 20

	// maxHookOutputRunes caps the command output scanned for error signatures.
	maxHookOutputRunes = 64 << 10

	// hookDeadline stays under the hook timeout registered by hook install.
	hookDeadline = 8 * time.Second

	bashToolName = "Bash"

	eventPreToolUse         = "PreToolUse"
	eventPostToolUseFailure = "PostToolUseFailure"
)

// NewHookCmd creates the hook parent command.
func NewHookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hook",
		Short: "Claude Code hook handlers and installers",
		Args:  cobra.NoArgs,
	}

	cmd.AddCommand(hookcmd.NewInstallCmd())
	cmd.AddCommand(hookcmd.NewUninstallCmd())

	// Hook handler subcommands are called by Claude Code, not by people.
	for _, sub := range []*cobra.Command{
		newHookPreBashCmd(),
		newHookPostBashCmd(),
	} {
		sub.Hidden = true
		cmd.AddCommand(sub)
	}

	namespaceIndex(cmd)
	return cmd
}

// hookInput is the JSON Claude Code sends on stdin to hooks.
type hookInput struct {
	CWD           string          `json:"cwd"`
	SessionID     string          `json:"session_id"`
	HookEventName string          `json:"hook_event_name"`
	ToolName      string          `json:"tool_name"`
	ToolInput     json.RawMessage `json:"tool_input"`
	ToolResponse  json.RawMessage `json:"tool_response"`
	Error         string          `json:"error"`
}

type bashToolInput struct {
	Command string `json:"command"`
}

type bashToolResponse struct {
	Stdout        string `json:"stdout"`
	Stderr        string `json:"stderr"`
	ExitCode      *int   `json:"exit_code"`
	ExitCodeCamel *int   `json:"exitCode"`
	Interrupted   bool   `json:"interrupted"`
}

// preToolUseOutput is the JSON Claude Code reads from a PreToolUse hook.
type preToolUseOutput struct {
	SystemMessage      string             `json:"systemMessage,omitempty"`
	HookSpecificOutput *preToolUseSpecific `json:"hookSpecificOutput,omitempty"`
}

type preToolUseSpecific struct {
	HookEventName            string `json:"hookEventName"`
	PermissionDecision       string `json:"permissionDecision,omitempty"`
	PermissionDecisionReason string `json:"permissionDecisionReason,omitempty"`
	AdditionalContext        string `json:"additionalContext,omitempty"`
}

func readHookStdin(r io.Reader) hookInput {
	data, err := io.ReadAll(io.LimitReader(r, maxHookStdinBytes))
	if err != nil {
		slog.Default().Warn("hook stdin read failed", "error", err)
		return hookInput{}
	}
	var input hookInput
	if err := json.Unmarshal(data, &input); err != nil {
		slog.Default().Warn("hook stdin unmarshal failed", "error", err, "bytes", len(data))
		return hookInput{}
	}
	return input
}

// bashCommand returns tool_input.command, or "" for other tools.
func (in hookInput) bashCommand() string {
	if in.ToolName != "" && in.ToolName != bashToolName {
		return ""
	}
	var ti bashToolInput
	if len(in.ToolInput) == 0 || json.Unmarshal(in.ToolInput, &ti) != nil {
		return ""
	}
	return ti.Command
}

func truncateString(raw string, max int) (string, bool) {
	if max <= 0 {
		return raw, false
	}
	runes := []rune(raw)
	if len(runes) <= max {
		return raw, false
	}
	return string(runes[:max]), true
}

func hookContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), hookDeadline)
}

func newHookPreBashCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "pre-bash",
		Short:         "PreToolUse hook: block or warn before a Bash command runs",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Disabled() {
				return nil
			}
			input := readHookStdin(cmd.InOrStdin())
			command := input.bashCommand()
			if strings.TrimSpace(command) == "" {
				return nil
			}

			ctx, cancel := hookContext(cmd)
			defer cancel()

			h := openGuard()
			defer h.Close()

			verdict := h.Evaluate(ctx, command, app.ResolveProject(input.CWD, ""))
			resp, ok := preToolUseResponse(verdict, h.Match.WarnDecision)
			if !ok {
				return nil
			}
			// Hooks must never fail the tool call: log and exit clean.
			if err := output.PrintWith(output.Config{Writer: cmd.OutOrStdout()}, resp); err != nil {
				slog.Default().Error("pre-bash hook: write response failed", "error", err)
			}
			return nil
		},
	}
}

// preToolUseResponse maps a verdict to the hook response. ALLOW produces no
// output.
func preToolUseResponse(v guard.Verdict, warnDecision string) (preToolUseOutput, bool) {
	switch v.Decision {
	case models.DecisionBlock:
		return preToolUseOutput{
			HookSpecificOutput: &preToolUseSpecific{
				HookEventName:            eventPreToolUse,
				PermissionDecision:       "deny",
				PermissionDecisionReason: v.Message,
			},
		}, true
	case models.DecisionWarn:
		resp := preToolUseOutput{
			SystemMessage: v.Message,
			HookSpecificOutput: &preToolUseSpecific{
				HookEventName:     eventPreToolUse,
				AdditionalContext: v.Message,
			},
		}
		if warnDecision == app.WarnDecisionAsk {
			resp.HookSpecificOutput.PermissionDecision = "ask"
			resp.HookSpecificOutput.PermissionDecisionReason = v.Message
		}
		return resp, true
	default:
		return preToolUseOutput{}, false
	}
}

func newHookPostBashCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "post-bash",
		Short:         "PostToolUse/PostToolUseFailure hook: remember failed Bash commands",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Disabled() {
				return nil
			}
			input := readHookStdin(cmd.InOrStdin())
			command := input.bashCommand()
			if strings.TrimSpace(command) == "" {
				return nil
			}

			outcome, ok := bashOutcome(input)
			if !ok {
				return nil
			}
			outcome.Command = command
			outcome.Project = app.ResolveProject(input.CWD, "")
			outcome.SessionID = input.SessionID
			outcome.Source = models.SourceHook

			ctx, cancel := hookContext(cmd)
			defer cancel()

			h := openGuard()
			defer h.Close()

			rec, err := h.Record(ctx, outcome)
			switch {
			case err != nil:
				slog.Default().Warn("post-bash hook: record failed", "error", err, "command", command)
			case rec != nil:
				slog.Default().Debug("post-bash hook: failure recorded", "id", rec.ID, "exit_code", rec.ExitCode, "signature", rec.Signature)
			}
			return nil
		},
	}
}

var exitCodePattern = regexp.MustCompile(`(?i)exit(?:ed with)? (?:code|status)[:\s]+(\d+)`)

// bashOutcome extracts exit status and output from a post-tool payload.
// Interrupted commands are reported as not ok: the user stopped them, they
// did not fail.
func bashOutcome(in hookInput) (guard.Outcome, bool) {
	var resp bashToolResponse
	var plain string
	if len(in.ToolResponse) > 0 {
		if err := json.Unmarshal(in.ToolResponse, &resp); err != nil {
			_ = json.Unmarshal(in.ToolResponse, &plain)
		}
	}
	if resp.Interrupted {
		return guard.Outcome{}, false
	}

	var exit *int
	switch {
	case resp.ExitCode != nil:
		exit = resp.ExitCode
	case resp.ExitCodeCamel != nil:
		exit = resp.ExitCodeCamel
	}

	code := 0
	switch {
	case exit != nil:
		code = *exit
	case in.HookEventName == eventPostToolUseFailure || in.Error != "":
		code = 1
		if m := exitCodePattern.FindStringSubmatch(in.Error); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n != 0 {
				code = n
			}
		}
	}

	// On exit 0 stdout is command data; only stderr can carry a signature.
	streams := []string{resp.Stderr, in.Error}
	if code != 0 {
		streams = []string{resp.Stderr, resp.Stdout, plain, in.Error}
	}
	var parts []string
	for _, s := range streams {
		if strings.TrimSpace(s) != "" {
			parts = append(parts, s)
		}
	}
	out, _ := truncateString(strings.Join(parts, "\n"), maxHookOutputRunes)
	return guard.Outcome{ExitCode: code, Output: out}, true
}
