package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dotcommander/cmdguard/internal/models"
)

// JSONLStore keeps one JSON-encoded record per line.
//
// Appends take an exclusive flock on <path>.lock and write the whole line in
// a single O_APPEND write followed by fsync, so concurrent hook processes
// never interleave records. Loads do not lock: a reader that races a writer
// sees at worst a partial last line, which is skipped as a torn write.
type JSONLStore struct {
	path     string
	lockWait time.Duration
}

// NewJSONL returns a JSONL store at path. The file is created on first append.
func NewJSONL(path string) *JSONLStore {
	return &JSONLStore{path: path, lockWait: lockWait}
}

// Path returns the backing file.
func (s *JSONLStore) Path() string { return s.path }

// Close is a no-op; the file is only held open for the duration of a call.
func (s *JSONLStore) Close() error { return nil }

// Load reads every record in file order.
func (s *JSONLStore) Load(ctx context.Context) ([]models.ErrorRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read error store %s: %w", s.path, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lines := bytes.Split(data, []byte{'\n'})
	// A file that does not end in a newline has a torn (or in-flight) tail.
	tornTail := len(data) > 0 && data[len(data)-1] != '\n'

	records := make([]models.ErrorRecord, 0, len(lines))
	for i, line := range lines {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		lineNo := i + 1

		var rec models.ErrorRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			if tornTail && i == len(lines)-1 {
				slog.Default().Warn("skipping torn last line of error store", "path", s.path, "line", lineNo, "error", err)
				continue
			}
			return nil, &CorruptError{Path: s.path, Line: lineNo, Err: err}
		}
		if !rec.Valid() {
			slog.Default().Warn("skipping error record without command", "path", s.path, "line", lineNo)
			continue
		}
		fill(&rec)
		records = append(records, rec)
	}
	return records, nil
}

// Append writes rec as one line.
func (s *JSONLStore) Append(ctx context.Context, rec models.ErrorRecord) (models.ErrorRecord, error) {
	rec, err := prepare(rec)
	if err != nil {
		return rec, err
	}
	if err := ctx.Err(); err != nil {
		return rec, err
	}

	line, err := json.Marshal(rec)
	if err != nil {
		return rec, &WriteError{Path: s.path, Op: "encode", Err: err}
	}
	line = append(line, '\n')

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return rec, &WriteError{Path: s.path, Op: "mkdir", Err: err}
	}

	lockF, err := lockFile(s.path+".lock", s.lockWait)
	if err != nil {
		return rec, &WriteError{Path: s.path, Op: "lock", Err: err}
	}
	defer unlockFile(lockF)

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644) //nolint:gosec // G304: path is the configured store path
	if err != nil {
		return rec, &WriteError{Path: s.path, Op: "open", Err: err}
	}

	// Holding the lock, a torn tail can only be left by a crashed writer or
	// an editor that dropped the final newline.
	terminate, dropped, err := repairTail(f)
	if err != nil {
		_ = f.Close()
		return rec, &WriteError{Path: s.path, Op: "repair", Err: err}
	}
	if dropped > 0 {
		slog.Default().Warn("dropped torn tail of error store", "path", s.path, "bytes", dropped)
	}
	if terminate {
		line = append([]byte{'\n'}, line...)
	}

	if _, err := f.Write(line); err != nil {
		_ = f.Close()
		return rec, &WriteError{Path: s.path, Op: "write", Err: err}
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return rec, &WriteError{Path: s.path, Op: "sync", Err: err}
	}
	if err := f.Close(); err != nil {
		return rec, &WriteError{Path: s.path, Op: "close", Err: err}
	}
	return rec, nil
}

// repairTail inspects a file that does not end in a newline. A complete
// JSON object in the tail only needs terminating; anything else is cut back
// to the last complete line. Returns whether a newline must precede the next
// write and how many bytes were removed.
func repairTail(f *os.File) (terminate bool, dropped int64, err error) {
	info, err := f.Stat()
	if err != nil {
		return false, 0, err
	}
	size := info.Size()
	if size == 0 {
		return false, 0, nil
	}

	var last [1]byte
	if _, err := f.ReadAt(last[:], size-1); err != nil && !errors.Is(err, io.EOF) {
		return false, 0, err
	}
	if last[0] == '\n' {
		return false, 0, nil
	}

	// Scan backwards for the previous newline.
	const chunk = 4096
	buf := make([]byte, chunk)
	end := size
	keep := int64(0)
	for end > 0 {
		start := max(end-chunk, 0)
		n, err := f.ReadAt(buf[:end-start], start)
		if err != nil && !errors.Is(err, io.EOF) {
			return false, 0, err
		}
		if i := bytes.LastIndexByte(buf[:n], '\n'); i >= 0 {
			keep = start + int64(i) + 1
			break
		}
		end = start
	}

	tail := make([]byte, size-keep)
	if _, err := f.ReadAt(tail, keep); err != nil && !errors.Is(err, io.EOF) {
		return false, 0, err
	}
	var rec models.ErrorRecord
	if json.Unmarshal(bytes.TrimSpace(tail), &rec) == nil {
		return true, 0, nil
	}

	if err := f.Truncate(keep); err != nil {
		return false, 0, err
	}
	return false, size - keep, nil
}
