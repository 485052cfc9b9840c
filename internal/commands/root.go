package commands

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dotcommander/cmdguard/internal/app"
	"github.com/dotcommander/cmdguard/internal/output"
)

// Execute runs the CLI application.
func Execute(version string) error {
	closeLog := setupLogging()
	defer closeLog()

	err := newRootCmd(version).Execute()
	if err != nil {
		var pe printedError
		var ee exitError
		if !errors.As(err, &pe) && !errors.As(err, &ee) {
			slog.Error("command failed", "error", err.Error())
		}
	}
	return err
}

func newRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:           "cmdguard",
		Short:         "Learn from failed shell commands and block dangerous ones",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			showVersion, _ := cmd.Flags().GetBool("version")
			if showVersion {
				type resp struct {
					Version string `json:"version"`
				}
				return output.PrintTo(cmd.OutOrStdout(), output.Success(resp{Version: version}))
			}
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := app.EnsureConfigDir(); err != nil {
				// Hooks run without a writable home in some sandboxes.
				slog.Default().Warn("config dir unavailable", "error", err)
			}

			// Always set: an empty flag clears a previous override.
			storePath, _ := cmd.Flags().GetString("store-path")
			app.SetStorePathOverride(storePath)
			backend, _ := cmd.Flags().GetString("store-backend")
			app.SetStoreBackendOverride(backend)

			return nil
		},
	}

	root.PersistentFlags().String("store-path", "", "Override error store path")
	root.PersistentFlags().String("store-backend", "", "Override error store backend: jsonl|sqlite")
	root.Flags().BoolP("version", "v", false, "version for cmdguard")

	root.AddCommand(NewHookCmd())
	root.AddCommand(NewCheckCmd())
	root.AddCommand(NewRecordCmd())
	root.AddCommand(NewLearnCmd())
	root.AddCommand(NewErrorsCmd())
	root.AddCommand(NewRulesCmd())
	root.AddCommand(NewDoctorCmd())
	root.AddCommand(NewSchemaCmd(root))

	return root
}

// setupLogging installs the JSON stderr logger at the configured level,
// teeing into log_file when one is set. The returned func closes the file.
func setupLogging() func() {
	levelName, file := app.LogSettings()

	var level slog.Level
	if err := level.UnmarshalText([]byte(levelName)); err != nil {
		level = slog.LevelWarn
	}

	var w io.Writer = os.Stderr
	closeFn := func() {}
	if file != "" {
		f, err := openLogFile(file)
		if err == nil {
			w = io.MultiWriter(os.Stderr, f)
			closeFn = func() { _ = f.Close() }
		}
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})))
	return closeFn
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600) //nolint:gosec // G304: path from config
}
