package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dotcommander/cmdguard/internal/models"
	_ "modernc.org/sqlite"
)

// defaultBusyTimeoutMS is the SQLite busy_timeout in milliseconds.
// Override with CMDGUARD_BUSY_TIMEOUT_MS for environments with high contention.
const defaultBusyTimeoutMS = 5000

// SQLiteStore keeps records in an error_records table ordered by an
// autoincrement sequence.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens (creating if needed) the database at path and runs
// migrations. A file that is not a SQLite database yields a *CorruptError.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := InitDBWithPath(path)
	if err != nil {
		if isNotADatabase(err) {
			return nil, &CorruptError{Path: path, Err: err}
		}
		return nil, err
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// InitDBWithPath opens the database with WAL pragmas and runs migrations.
func InitDBWithPath(dbPath string) (*sql.DB, error) {
	if !isMemoryPath(dbPath) {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite is strict about DSNs. Use a file: URI with mode=rwc
	// so the database can be created/written consistently across platforms.
	db, err := sql.Open("sqlite", normalizeSQLiteDSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One invocation, one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	busyTimeout := defaultBusyTimeoutMS
	if v := os.Getenv("CMDGUARD_BUSY_TIMEOUT_MS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			busyTimeout = parsed
		}
	}

	//   busy_timeout       blocks writers up to N ms instead of failing immediately.
	//   synchronous=FULL   fsync the WAL on every commit, so an acknowledged
	//                      append survives power loss like a JSONL append.
	//   journal_mode=WAL   concurrent readers plus one writer across hook processes.
	pragmas := []string{
		// First, so the remaining pragmas wait on locks.
		fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeout),
		"PRAGMA synchronous=FULL",
		"PRAGMA journal_mode=WAL",
	}

	for _, pragma := range pragmas {
		if err := RetryWithBackoff(func() error {
			_, err := db.ExecContext(context.Background(), pragma)
			return err
		}); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	if err := MigrateDB(db, dbPath); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

func normalizeSQLiteDSN(dbPath string) string {
	if strings.HasPrefix(dbPath, "file:") {
		return dbPath
	}
	if dbPath == ":memory:" {
		return "file::memory:?cache=shared"
	}
	// mode=rwc => read/write/create. Without this, some environments open read-only.
	return "file:" + dbPath + "?mode=rwc"
}

// Path returns the database file.
func (s *SQLiteStore) Path() string { return s.path }

// DB exposes the handle for diagnostics.
func (s *SQLiteStore) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Load returns every record in insertion order.
func (s *SQLiteStore) Load(ctx context.Context) ([]models.ErrorRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, command, normalized, exit_code, trigger_kind, signature,
		       project, recorded_at, remediation, source, session_id
		FROM error_records
		ORDER BY seq ASC
	`)
	if err != nil {
		if isNotADatabase(err) {
			return nil, &CorruptError{Path: s.path, Err: err}
		}
		return nil, fmt.Errorf("query error records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []models.ErrorRecord
	for rows.Next() {
		var (
			seq        int64
			rec        models.ErrorRecord
			trigger    string
			recordedAt string
		)
		if err := rows.Scan(&seq, &rec.ID, &rec.Command, &rec.Normalized, &rec.ExitCode, &trigger,
			&rec.Signature, &rec.Project, &recordedAt, &rec.Remediation, &rec.Source, &rec.SessionID); err != nil {
			return nil, fmt.Errorf("scan error record: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, recordedAt)
		if err != nil {
			return nil, &CorruptError{Path: s.path, Err: fmt.Errorf("row %d: recorded_at %q: %w", seq, recordedAt, err)}
		}
		rec.Trigger = models.Trigger(trigger)
		rec.Timestamp = ts
		fill(&rec)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate error records: %w", err)
	}
	return records, nil
}

// Append inserts rec in its own transaction, retried while the database is busy.
func (s *SQLiteStore) Append(ctx context.Context, rec models.ErrorRecord) (models.ErrorRecord, error) {
	rec, err := prepare(rec)
	if err != nil {
		return rec, err
	}

	err = Transact(ctx, s.db, func(tx *sql.Tx) error {
		_, execErr := tx.ExecContext(ctx, `
			INSERT INTO error_records (
				id, command, normalized, exit_code, trigger_kind, signature,
				project, recorded_at, remediation, source, session_id
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, rec.ID, rec.Command, rec.Normalized, rec.ExitCode, string(rec.Trigger), rec.Signature,
			rec.Project, rec.Timestamp.Format(time.RFC3339Nano), rec.Remediation, rec.Source, rec.SessionID)
		return execErr
	})
	if err != nil {
		return rec, &WriteError{Path: s.path, Op: "insert", Err: err}
	}
	return rec, nil
}
