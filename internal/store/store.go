package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite data access layer for the run database's 8 tables.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
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

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use in transactions.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS runs (
  id              INTEGER PRIMARY KEY,
  module          TEXT NOT NULL,
  digest          TEXT NOT NULL,
  items           INTEGER NOT NULL,
  accepted        INTEGER NOT NULL,
  excluded        INTEGER NOT NULL,
  shims           INTEGER NOT NULL,
  created_at      TIMESTAMP
);

CREATE TABLE IF NOT EXISTS items (
  id              INTEGER PRIMARY KEY,
  item_key        TEXT NOT NULL UNIQUE,
  kind            TEXT NOT NULL,
  name            TEXT NOT NULL,
  bridge_name     TEXT,
  header          TEXT,
  accepted        BOOLEAN NOT NULL,
  reason          TEXT
);

CREATE TABLE IF NOT EXISTS type_classes (
  id              INTEGER PRIMARY KEY,
  type_key        TEXT NOT NULL UNIQUE,
  class           TEXT NOT NULL,
  flags           TEXT,
  reason          TEXT,
  item_id         INTEGER REFERENCES items(id)
);

CREATE TABLE IF NOT EXISTS dependencies (
  id              INTEGER PRIMARY KEY,
  item_id         INTEGER NOT NULL REFERENCES items(id),
  depends_on_id   INTEGER NOT NULL REFERENCES items(id)
);

CREATE TABLE IF NOT EXISTS bases (
  id              INTEGER PRIMARY KEY,
  derived_id      INTEGER NOT NULL REFERENCES items(id),
  base_id         INTEGER NOT NULL REFERENCES items(id),
  ordinal         INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS diagnostics (
  id              INTEGER PRIMARY KEY,
  qualified_name  TEXT NOT NULL,
  reason_kind     TEXT NOT NULL,
  human_message   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS shims (
  id              INTEGER PRIMARY KEY,
  item_id         INTEGER NOT NULL REFERENCES items(id),
  name            TEXT NOT NULL UNIQUE,
  kind            TEXT NOT NULL,
  native          TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS renames (
  id              INTEGER PRIMARY KEY,
  generated       TEXT NOT NULL UNIQUE,
  original        TEXT NOT NULL,
  signature       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_items_name ON items(name);
CREATE INDEX IF NOT EXISTS idx_items_kind ON items(kind);
CREATE INDEX IF NOT EXISTS idx_type_classes_class ON type_classes(class);
CREATE INDEX IF NOT EXISTS idx_dependencies_item ON dependencies(item_id);
CREATE INDEX IF NOT EXISTS idx_dependencies_target ON dependencies(depends_on_id);
CREATE INDEX IF NOT EXISTS idx_bases_derived ON bases(derived_id);
CREATE INDEX IF NOT EXISTS idx_bases_base ON bases(base_id);
CREATE INDEX IF NOT EXISTS idx_diagnostics_reason ON diagnostics(reason_kind);
CREATE INDEX IF NOT EXISTS idx_renames_original ON renames(original);
`

// clearTables lists every table in reverse-dependency order.
var clearTables = []string{
	"renames", "shims", "diagnostics", "bases", "dependencies", "type_classes", "items", "runs",
}

// Reset removes the contents of every table in one transaction.
func (s *Store) Reset() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()
	if err := resetTx(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func resetTx(tx *sql.Tx) error {
	for _, table := range clearTables {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}
