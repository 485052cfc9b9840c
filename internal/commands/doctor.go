package commands

import (
	"errors"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dotcommander/cmdguard/internal/app"
	"github.com/dotcommander/cmdguard/internal/models"
	"github.com/dotcommander/cmdguard/internal/output"
	"github.com/dotcommander/cmdguard/internal/store"
)

type doctorReport struct {
	Backend       string                 `json:"backend"`
	BackendSource string                 `json:"backend_source"`
	StorePath     string                 `json:"store_path"`
	PathSource    string                 `json:"path_source"`
	StoreExists   bool                   `json:"store_exists"`
	StoreSize     string                 `json:"store_size,omitempty"`
	LoadOK        bool                   `json:"load_ok"`
	LoadError     string                 `json:"load_error,omitempty"`
	Records       int                    `json:"records"`
	SchemaVersion *int64                 `json:"schema_version,omitempty"`
	SchemaLatest  *int64                 `json:"schema_latest,omitempty"`
	Rules         int                    `json:"rules"`
	Match         app.MatchSettings      `json:"match"`
	Disabled      bool                   `json:"hooks_disabled"`
	ConfigFiles   []app.ConfigFileStatus `json:"config_files"`
	Problems      []string               `json:"problems,omitempty"`
	Hint          string                 `json:"hint,omitempty"`
}

// NewDoctorCmd creates the doctor command.
func NewDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration and error store health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h := openGuard()
			defer h.Close()

			report := doctorReport{
				Backend:       h.Location.Backend,
				BackendSource: h.Location.BackendSource,
				StorePath:     h.Location.Path,
				PathSource:    h.Location.PathSource,
				Rules:         len(h.Rules()),
				Match:         h.Match,
				Disabled:      app.Disabled(),
				Problems:      h.Problems,
			}

			if fi, err := os.Stat(h.Location.Path); err == nil {
				report.StoreExists = true
				report.StoreSize = humanize.Bytes(uint64(fi.Size())) //nolint:gosec // G115: file sizes are non-negative
			}

			history, err := h.History(cmd.Context())
			if err != nil {
				report.LoadError = err.Error()
				report.Hint = doctorHint(err)
			} else {
				report.LoadOK = true
				report.Records = len(history)
			}

			if sq, ok := h.Store.(*store.SQLiteStore); ok {
				if current, latest, err := store.SchemaVersion(sq.DB()); err == nil {
					report.SchemaVersion = &current
					report.SchemaLatest = &latest
				}
			}

			files, err := app.InspectConfigFiles()
			if err != nil {
				report.Problems = append(report.Problems, "config: "+err.Error())
			}
			report.ConfigFiles = files

			return output.PrintTo(cmd.OutOrStdout(), output.Success(report))
		},
	}
}

func doctorHint(err error) string {
	var re store.RecoverableError
	if errors.As(err, &re) && re.SuggestedAction() != "" {
		return re.SuggestedAction()
	}
	if errors.Is(err, models.ErrStoreWriteFailed) {
		return "If this is running in a sandboxed environment, set store_path to a writable location or use --store-path."
	}
	return ""
}
