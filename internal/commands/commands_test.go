package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dotcommander/cmdguard/internal/app"
	"github.com/dotcommander/cmdguard/internal/guard"
	"github.com/dotcommander/cmdguard/internal/matcher"
	"github.com/dotcommander/cmdguard/internal/models"
	"github.com/dotcommander/cmdguard/internal/store"
)

type checkData struct {
	Command string        `json:"command"`
	Project string        `json:"project"`
	Verdict guard.Verdict `json:"verdict"`
}

func TestExitCode(t *testing.T) {
	require.Equal(t, 0, ExitCode(nil))
	require.Equal(t, 2, ExitCode(exitError{code: 2}))
	require.Equal(t, 1, ExitCode(printedError{}))
}

func TestVersionFlag(t *testing.T) {
	isolate(t)

	out, err := runCLI(t, "", "--version")
	require.NoError(t, err)
	data := decode[struct {
		Version string `json:"version"`
	}](t, out)
	require.Equal(t, "test", data.Version)
}

func TestCheck_BlockExitsTwo(t *testing.T) {
	isolate(t)

	out, err := runCLI(t, "", "check", "--", "rm", "-rf", "/")
	require.Error(t, err)
	require.Equal(t, exitBlocked, ExitCode(err))

	data := decode[checkData](t, out)
	require.Equal(t, "rm -rf /", data.Command)
	require.Equal(t, models.DecisionBlock, data.Verdict.Decision)
	require.NotNil(t, data.Verdict.Rule)
	require.Equal(t, "rm-recursive-root", data.Verdict.Rule.ID)
}

func TestCheck_AllowOnEmptyStore(t *testing.T) {
	isolate(t)

	out, err := runCLI(t, "", "check", "--", "ls", "-la")
	require.NoError(t, err)

	data := decode[checkData](t, out)
	require.Equal(t, models.DecisionAllow, data.Verdict.Decision)
	require.Equal(t, "proj", data.Project)
	require.Empty(t, data.Verdict.Message)
}

func TestRecordThenCheck_Warns(t *testing.T) {
	storePath := isolate(t)

	out, err := runCLI(t, "./main.go:3:2: undefined: x\n", "record", "--command", "go build ./...", "--exit", "1", "--output-stdin")
	require.NoError(t, err)
	rec := decode[recordResult](t, out)
	require.True(t, rec.Recorded)
	require.Equal(t, "./main.go:3:2: undefined: x", rec.Record.Signature)
	require.Equal(t, models.SourceCLI, rec.Record.Source)
	require.Equal(t, "proj", rec.Record.Project)
	require.Len(t, loadStore(t, storePath), 1)

	out, err = runCLI(t, "", "check", "--", "go", "build", "./...")
	require.NoError(t, err)
	data := decode[checkData](t, out)
	require.Equal(t, models.DecisionWarn, data.Verdict.Decision)
	require.InDelta(t, 1.0, data.Verdict.Score, 1e-9)
	require.Contains(t, data.Verdict.Message, "undefined: x")
}

func TestRecord_SuccessIsNoop(t *testing.T) {
	storePath := isolate(t)

	out, err := runCLI(t, "all good\n", "record", "--command", "make", "--exit", "0", "--output-stdin")
	require.NoError(t, err)
	rec := decode[recordResult](t, out)
	require.False(t, rec.Recorded)
	require.Nil(t, rec.Record)

	_, statErr := os.Stat(storePath)
	require.True(t, os.IsNotExist(statErr))
}

func TestRecord_RequiresCommand(t *testing.T) {
	isolate(t)

	_, err := runCLI(t, "", "record", "--exit", "1")
	require.Error(t, err)
}

func TestLearn_ThenErrorsListAndMatch(t *testing.T) {
	isolate(t)

	out, err := runCLI(t, "", "learn", "--command", "npm install left-pad@9", "--fix", "left-pad only has 1.x releases")
	require.NoError(t, err)
	rec := decode[recordResult](t, out)
	require.True(t, rec.Recorded)
	require.Equal(t, models.SourceManual, rec.Record.Source)
	require.Equal(t, "left-pad only has 1.x releases", rec.Record.Remediation)
	require.Equal(t, "exit status 1", rec.Record.Signature)

	_, err = runCLI(t, "", "record", "--command", "cargo build", "--exit", "101", "--project", "other")
	require.NoError(t, err)

	out, err = runCLI(t, "", "errors", "list")
	require.NoError(t, err)
	list := decode[struct {
		Total   int                  `json:"total"`
		Count   int                  `json:"count"`
		Records []models.ErrorRecord `json:"records"`
	}](t, out)
	require.Equal(t, 2, list.Total)
	require.Equal(t, 2, list.Count)
	require.Equal(t, "cargo build", list.Records[0].Command)

	out, err = runCLI(t, "", "errors", "list", "--project", "proj", "--limit", "5")
	require.NoError(t, err)
	list = decode[struct {
		Total   int                  `json:"total"`
		Count   int                  `json:"count"`
		Records []models.ErrorRecord `json:"records"`
	}](t, out)
	require.Equal(t, 1, list.Count)
	require.Equal(t, "npm install left-pad@9", list.Records[0].Command)

	out, err = runCLI(t, "", "errors", "match", "npm install left-pad@9")
	require.NoError(t, err)
	match := decode[struct {
		Matches []matcher.Match `json:"matches"`
	}](t, out)
	require.Len(t, match.Matches, 1)
	require.InDelta(t, 1.0, match.Matches[0].Score, 1e-9)

	out, err = runCLI(t, "", "check", "--", "npm", "install", "left-pad@9")
	require.NoError(t, err)
	data := decode[checkData](t, out)
	require.Equal(t, models.DecisionWarn, data.Verdict.Decision)
	require.Contains(t, data.Verdict.Message, "fix:      left-pad only has 1.x releases")
}

func TestErrorsNamespaceIndex(t *testing.T) {
	isolate(t)

	out, err := runCLI(t, "", "errors")
	require.NoError(t, err)
	idx := decode[struct {
		Namespace   string `json:"namespace"`
		Subcommands []struct {
			Name string `json:"name"`
		} `json:"subcommands"`
	}](t, out)
	require.Equal(t, "cmdguard errors", idx.Namespace)
	require.Len(t, idx.Subcommands, 2)
}

func TestRules_ListsBuiltinsInOrder(t *testing.T) {
	isolate(t)

	out, err := runCLI(t, "", "rules")
	require.NoError(t, err)
	data := decode[struct {
		Count int `json:"count"`
		Rules []struct {
			ID      string `json:"id"`
			Pattern string `json:"pattern"`
			Builtin bool   `json:"builtin"`
		} `json:"rules"`
	}](t, out)
	require.Equal(t, 10, data.Count)
	require.Equal(t, "rm-recursive-root", data.Rules[0].ID)
	require.Equal(t, "git-history-purge", data.Rules[9].ID)
	for _, r := range data.Rules {
		require.True(t, r.Builtin)
		require.NotEmpty(t, r.Pattern)
	}
}

func TestDoctor_ReportsStore(t *testing.T) {
	storePath := isolate(t)

	_, err := runCLI(t, "", "record", "--command", "make", "--exit", "2")
	require.NoError(t, err)

	out, err := runCLI(t, "", "doctor")
	require.NoError(t, err)
	report := decode[doctorReport](t, out)
	require.Equal(t, store.BackendJSONL, report.Backend)
	require.Equal(t, storePath, report.StorePath)
	require.Equal(t, "env("+app.EnvStorePath+")", report.PathSource)
	require.True(t, report.StoreExists)
	require.NotEmpty(t, report.StoreSize)
	require.True(t, report.LoadOK)
	require.Equal(t, 1, report.Records)
	require.Equal(t, 10, report.Rules)
	require.Nil(t, report.SchemaVersion)
}

func TestDoctor_CorruptStore(t *testing.T) {
	storePath := isolate(t)
	require.NoError(t, os.WriteFile(storePath, []byte("{not json}\n{\"command\":\"ls\"}\n"), 0o600))

	out, err := runCLI(t, "", "doctor")
	require.NoError(t, err)
	report := decode[doctorReport](t, out)
	require.False(t, report.LoadOK)
	require.Contains(t, report.LoadError, "line 1")
	require.NotEmpty(t, report.Hint)
}

func TestStoreFlags_SQLiteBackend(t *testing.T) {
	isolate(t)
	dbPath := filepath.Join(t.TempDir(), "guard.db")

	_, err := runCLI(t, "", "--store-backend", "sqlite", "--store-path", dbPath,
		"record", "--command", "terraform apply", "--exit", "1")
	require.NoError(t, err)

	out, err := runCLI(t, "", "--store-backend", "sqlite", "--store-path", dbPath, "doctor")
	require.NoError(t, err)
	report := decode[doctorReport](t, out)
	require.Equal(t, store.BackendSQLite, report.Backend)
	require.Equal(t, "cli(--store-backend)", report.BackendSource)
	require.Equal(t, "cli(--store-path)", report.PathSource)
	require.Equal(t, 1, report.Records)
	require.NotNil(t, report.SchemaVersion)
	require.Equal(t, *report.SchemaLatest, *report.SchemaVersion)

	// Without the flags the env store is used again.
	out, err = runCLI(t, "", "doctor")
	require.NoError(t, err)
	report = decode[doctorReport](t, out)
	require.Equal(t, store.BackendJSONL, report.Backend)
	require.Equal(t, 0, report.Records)
}

func TestSchemaCommands_SkipsHiddenHooks(t *testing.T) {
	isolate(t)

	out, err := runCLI(t, "", "schema", "commands")
	require.NoError(t, err)
	data := decode[struct {
		Commands []commandArgSchema `json:"commands"`
	}](t, out)

	names := make([]string, 0, len(data.Commands))
	for _, c := range data.Commands {
		names = append(names, c.Command)
	}
	require.Contains(t, names, "cmdguard check")
	require.Contains(t, names, "cmdguard hook install")
	require.NotContains(t, names, "cmdguard hook pre-bash")
	require.NotContains(t, names, "cmdguard schema")
}
