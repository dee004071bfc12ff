// Package store exports the facts of an analysis run into SQLite so that
// tools can query declarations, resolved calls and diagnostics without
// re-running the analyzer.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite data access layer.
type Store struct {
	db *sql.DB
}

// Open opens a SQLite database at dbPath with WAL mode enabled.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	if _, err := s.db.Exec(schemaDDL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS runs (
  id              INTEGER PRIMARY KEY,
  module          TEXT NOT NULL,
  created_at      TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS files (
  id              INTEGER PRIMARY KEY,
  run_id          INTEGER NOT NULL REFERENCES runs(id),
  path            TEXT NOT NULL,
  hash            TEXT NOT NULL,
  UNIQUE (run_id, path)
);

CREATE TABLE IF NOT EXISTS declarations (
  id              INTEGER PRIMARY KEY,
  run_id          INTEGER NOT NULL REFERENCES runs(id),
  file_id         INTEGER REFERENCES files(id),
  kind            TEXT NOT NULL,
  name            TEXT NOT NULL,
  owner           TEXT,
  rendered        TEXT NOT NULL,
  start_line      INTEGER,
  start_col       INTEGER,
  end_line        INTEGER,
  end_col         INTEGER
);

CREATE TABLE IF NOT EXISTS resolved_calls (
  id              INTEGER PRIMARY KEY,
  run_id          INTEGER NOT NULL REFERENCES runs(id),
  file_id         INTEGER REFERENCES files(id),
  name            TEXT NOT NULL,
  callee          TEXT NOT NULL,
  callee_kind     TEXT NOT NULL,
  result_type     TEXT,
  type_arguments  TEXT,
  completed       BOOLEAN NOT NULL,
  start_line      INTEGER,
  start_col       INTEGER,
  end_line        INTEGER,
  end_col         INTEGER
);

CREATE TABLE IF NOT EXISTS diagnostics (
  id              INTEGER PRIMARY KEY,
  run_id          INTEGER NOT NULL REFERENCES runs(id),
  file_id         INTEGER REFERENCES files(id),
  code            TEXT NOT NULL,
  severity        TEXT NOT NULL,
  message         TEXT NOT NULL,
  start_line      INTEGER,
  start_col       INTEGER,
  end_line        INTEGER,
  end_col         INTEGER
);

CREATE INDEX IF NOT EXISTS idx_files_run ON files(run_id);
CREATE INDEX IF NOT EXISTS idx_declarations_run ON declarations(run_id);
CREATE INDEX IF NOT EXISTS idx_declarations_name ON declarations(name);
CREATE INDEX IF NOT EXISTS idx_resolved_calls_run ON resolved_calls(run_id);
CREATE INDEX IF NOT EXISTS idx_resolved_calls_callee ON resolved_calls(callee);
CREATE INDEX IF NOT EXISTS idx_diagnostics_run ON diagnostics(run_id);
CREATE INDEX IF NOT EXISTS idx_diagnostics_code ON diagnostics(code);
`
