package sink

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/dhcgn/msg-file-renamer/model"
)

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
	run_id     TEXT PRIMARY KEY,
	started_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS log_rows (
	run_id              TEXT NOT NULL,
	seq                 INTEGER NOT NULL,
	processed_at        TEXT NOT NULL DEFAULT '',
	dry_run             INTEGER NOT NULL DEFAULT 0,
	directory           TEXT NOT NULL DEFAULT '',
	original_filename   TEXT NOT NULL DEFAULT '',
	old_path            TEXT NOT NULL DEFAULT '',
	old_path_length     INTEGER NOT NULL DEFAULT 0,
	access              TEXT NOT NULL DEFAULT '',
	metadata_status     TEXT NOT NULL DEFAULT '',
	sent_at             TEXT NOT NULL DEFAULT '',
	formatted_timestamp TEXT NOT NULL DEFAULT '',
	sender_raw          TEXT NOT NULL DEFAULT '',
	sender_name         TEXT NOT NULL DEFAULT '',
	sender_email        TEXT NOT NULL DEFAULT '',
	has_sender_email    INTEGER NOT NULL DEFAULT 0,
	sender_source       TEXT NOT NULL DEFAULT '',
	subject             TEXT NOT NULL DEFAULT '',
	sanitized_subject   TEXT NOT NULL DEFAULT '',
	full_filename       TEXT NOT NULL DEFAULT '',
	new_filename        TEXT NOT NULL DEFAULT '',
	new_path            TEXT NOT NULL DEFAULT '',
	new_path_length     INTEGER NOT NULL DEFAULT 0,
	is_truncated        INTEGER NOT NULL DEFAULT 0,
	over_budget         INTEGER NOT NULL DEFAULT 0,
	outcome             TEXT NOT NULL,
	unchanged           INTEGER NOT NULL DEFAULT 0,
	duplicate           INTEGER NOT NULL DEFAULT 0,
	duplicate_deleted   INTEGER NOT NULL DEFAULT 0,
	attempts            INTEGER NOT NULL DEFAULT 0,
	dates               TEXT NOT NULL DEFAULT '',
	pdf                 TEXT NOT NULL DEFAULT '',
	error               TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_log_rows_outcome ON log_rows(outcome);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}

const insertRow = `
INSERT INTO log_rows (
	run_id, seq, processed_at, dry_run,
	directory, original_filename, old_path, old_path_length,
	access, metadata_status,
	sent_at, formatted_timestamp,
	sender_raw, sender_name, sender_email, has_sender_email, sender_source,
	subject, sanitized_subject,
	full_filename, new_filename, new_path, new_path_length,
	is_truncated, over_budget,
	outcome, unchanged, duplicate, duplicate_deleted, attempts,
	dates, pdf, error
) VALUES (
	:run_id, :seq, :processed_at, :dry_run,
	:directory, :original_filename, :old_path, :old_path_length,
	:access, :metadata_status,
	:sent_at, :formatted_timestamp,
	:sender_raw, :sender_name, :sender_email, :has_sender_email, :sender_source,
	:subject, :sanitized_subject,
	:full_filename, :new_filename, :new_path, :new_path_length,
	:is_truncated, :over_budget,
	:outcome, :unchanged, :duplicate, :duplicate_deleted, :attempts,
	:dates, :pdf, :error
)`

// sqliteSink stores rows in a SQLite database. Every insert commits on its
// own, so Flush has nothing to do.
type sqliteSink struct {
	path string
	db   *sqlx.DB
}

func newSQLiteSink(path, runID string, started time.Time) (*sqliteSink, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Enable WAL mode so the report can be read while the batch runs.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &sqliteSink{path: path, db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	if _, err := db.Exec("INSERT OR REPLACE INTO runs (run_id, started_at) VALUES (?, ?)", runID, started.UTC()); err != nil {
		db.Close()
		return nil, fmt.Errorf("recording run: %w", err)
	}
	return s, nil
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *sqliteSink) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}
	return nil
}

func (s *sqliteSink) Append(row model.LogRow) error {
	if _, err := s.db.NamedExec(insertRow, row); err != nil {
		return fmt.Errorf("inserting row %d: %w", row.Seq, err)
	}
	return nil
}

func (s *sqliteSink) Flush() error { return nil }

func (s *sqliteSink) Close() error { return s.db.Close() }

func (s *sqliteSink) Path() string { return s.path }

// CountRows returns the number of stored rows for runID.
func (s *sqliteSink) CountRows(runID string) (int, error) {
	var n int
	err := s.db.Get(&n, "SELECT COUNT(*) FROM log_rows WHERE run_id = ?", runID)
	return n, err
}
