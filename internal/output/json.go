package output

import (
	"encoding/json"
	"errors"
	"io"
	"os"
)

// EnvPrettyJSON enables indented output when set to 1 or true.
const EnvPrettyJSON = "CMDGUARD_PRETTY_JSON"

// Response represents a standard JSON response
type Response struct {
	SchemaVersion   string            `json:"schema_version"`
	Success         bool              `json:"success"`
	Data            any               `json:"data,omitempty"`
	Error           string            `json:"error,omitempty"`
	ErrorCode       string            `json:"error_code,omitempty"`
	ErrorContext    map[string]string `json:"error_context,omitempty"`
	SuggestedAction string            `json:"suggested_action,omitempty"`
}

// recoverableError mirrors models.RecoverableError without importing models.
type recoverableError interface {
	error
	ErrorCode() string
	Context() map[string]string
	SuggestedAction() string
}

// Config controls where and how JSON is written.
type Config struct {
	Writer io.Writer
	Pretty bool
}

// DefaultConfig writes to stdout, indented when CMDGUARD_PRETTY_JSON is set.
func DefaultConfig() Config {
	return Config{Writer: os.Stdout, Pretty: prettyFromEnv()}
}

func prettyFromEnv() bool {
	v := os.Getenv(EnvPrettyJSON)
	return v == "1" || v == "true"
}

// Success wraps a successful response with data
func Success(data any) Response {
	return Response{
		SchemaVersion: "v1",
		Success:       true,
		Data:          data,
	}
}

// Error wraps an error in a response. Structured errors also fill the
// error_code, error_context and suggested_action fields.
func Error(err error) Response {
	resp := Response{
		SchemaVersion: "v1",
		Success:       false,
		Error:         err.Error(),
	}
	var re recoverableError
	if errors.As(err, &re) {
		resp.ErrorCode = re.ErrorCode()
		resp.ErrorContext = re.Context()
		resp.SuggestedAction = re.SuggestedAction()
	}
	return resp
}

// PrintWith encodes v as one JSON document using cfg.
func PrintWith(cfg Config, v any) error {
	w := cfg.Writer
	if w == nil {
		w = os.Stdout
	}
	enc := json.NewEncoder(w)
	// Compact by default to keep agent-facing output small.
	if cfg.Pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

// Print prints a value as JSON to stdout
func Print(v any) error {
	return PrintWith(DefaultConfig(), v)
}

// PrintTo prints a value as JSON to w, honoring CMDGUARD_PRETTY_JSON.
func PrintTo(w io.Writer, v any) error {
	return PrintWith(Config{Writer: w, Pretty: prettyFromEnv()}, v)
}

// PrintSuccess prints a success response
func PrintSuccess(data any) error {
	return Print(Success(data))
}

// PrintError prints an error response
func PrintError(err error) error {
	return Print(Error(err))
}
