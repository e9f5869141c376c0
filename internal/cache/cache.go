// Package cache persists per-file analysis results in SQLite so unchanged
// files can replay their diagnostics without re-parsing. Entries are keyed
// by path and content hash; a rules fingerprint stored in the metadata
// table invalidates the whole cache when the rule set changes.
package cache

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/jward/snag/internal/report"
)

// Cache is the SQLite data access layer for stored results.
type Cache struct {
	db *sql.DB
}

// Open opens a SQLite database at dbPath with WAL mode enabled and runs
// migrations.
func Open(dbPath string) (*Cache, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	c := &Cache{db: db}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// Close closes the underlying database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}

// DB returns the underlying *sql.DB for use in transactions.
func (c *Cache) DB() *sql.DB {
	return c.db
}

// migrate creates all tables and indexes. Idempotent.
func (c *Cache) migrate() error {
	_, err := c.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS files (
  id              INTEGER PRIMARY KEY,
  path            TEXT NOT NULL UNIQUE,
  hash            TEXT NOT NULL,
  last_checked    TIMESTAMP
);

CREATE TABLE IF NOT EXISTS diagnostics (
  id              INTEGER PRIMARY KEY,
  file_id         INTEGER NOT NULL REFERENCES files(id),
  ordinal         INTEGER NOT NULL,
  rule            TEXT NOT NULL,
  category        TEXT,
  severity        TEXT NOT NULL,
  message         TEXT NOT NULL,
  help            TEXT,
  span_start      INTEGER,
  span_end        INTEGER,
  start_line      INTEGER,
  start_col       INTEGER,
  end_line        INTEGER,
  end_col         INTEGER,
  labels          TEXT
);

CREATE TABLE IF NOT EXISTS metadata (
  key             TEXT PRIMARY KEY,
  value           TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_files_hash ON files(hash);
CREATE INDEX IF NOT EXISTS idx_diagnostics_file ON diagnostics(file_id, ordinal);
`

// GetMetadata returns the value for key, or "" when the key is absent.
func (c *Cache) GetMetadata(key string) (string, error) {
	var value string
	err := c.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get metadata %s: %w", key, err)
	}
	return value, nil
}

// SetMetadata upserts a metadata key.
func (c *Cache) SetMetadata(key, value string) error {
	_, err := c.db.Exec(
		"INSERT INTO metadata (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set metadata %s: %w", key, err)
	}
	return nil
}

// EnsureFingerprint compares fp against the stored rules fingerprint. On a
// mismatch it clears all stored results and records fp, so a rule change
// never replays stale diagnostics. Reports whether the cache was reset; a
// first run on an empty cache records fp without counting as a reset.
func (c *Cache) EnsureFingerprint(fp string) (bool, error) {
	stored, err := c.GetMetadata("rules_fingerprint")
	if err != nil {
		return false, err
	}
	if stored == fp {
		return false, nil
	}
	if stored == "" {
		return false, c.SetMetadata("rules_fingerprint", fp)
	}

	tx, err := c.db.Begin()
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		"DELETE FROM diagnostics",
		"DELETE FROM files",
	} {
		if _, err := tx.Exec(q); err != nil {
			return false, fmt.Errorf("reset cache: %w", err)
		}
	}
	if _, err := tx.Exec(
		"INSERT INTO metadata (key, value) VALUES ('rules_fingerprint', ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		fp,
	); err != nil {
		return false, fmt.Errorf("store fingerprint: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit reset: %w", err)
	}
	return true, nil
}

// Lookup returns the stored diagnostics for path when its recorded content
// hash matches hash. The second result is false on a miss (unknown path or
// changed content).
func (c *Cache) Lookup(path, hash string) ([]report.Diagnostic, bool, error) {
	var fileID int64
	var storedHash string
	err := c.db.QueryRow("SELECT id, hash FROM files WHERE path = ?", path).Scan(&fileID, &storedHash)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("lookup file: %w", err)
	}
	if storedHash != hash {
		return nil, false, nil
	}

	rows, err := c.db.Query(`
		SELECT rule, category, severity, message, help,
		       span_start, span_end, start_line, start_col, end_line, end_col, labels
		FROM diagnostics WHERE file_id = ? ORDER BY ordinal`, fileID)
	if err != nil {
		return nil, false, fmt.Errorf("query diagnostics: %w", err)
	}
	defer rows.Close()

	var diags []report.Diagnostic
	for rows.Next() {
		var d report.Diagnostic
		var severity, labels string
		var category, help sql.NullString
		err := rows.Scan(&d.Rule, &category, &severity, &d.Message, &help,
			&d.Span.Start, &d.Span.End,
			&d.Span.StartLine, &d.Span.StartCol, &d.Span.EndLine, &d.Span.EndCol,
			&labels)
		if err != nil {
			return nil, false, fmt.Errorf("scan diagnostic: %w", err)
		}
		d.Category = category.String
		d.Help = help.String
		if err := d.Severity.UnmarshalText([]byte(severity)); err != nil {
			return nil, false, fmt.Errorf("scan diagnostic severity: %w", err)
		}
		d.Labels = unmarshalLabels(labels)
		diags = append(diags, d)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate diagnostics: %w", err)
	}
	return diags, true, nil
}

// Store transactionally replaces the stored results for path: stale rows
// for a previous version of the file are deleted, then the new hash and
// diagnostics are written in ordinal order.
func (c *Cache) Store(path, hash string, diags []report.Diagnostic) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var existingID int64
	err = tx.QueryRow("SELECT id FROM files WHERE path = ?", path).Scan(&existingID)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return fmt.Errorf("lookup file: %w", err)
	default:
		if _, err := tx.Exec("DELETE FROM diagnostics WHERE file_id = ?", existingID); err != nil {
			return fmt.Errorf("delete stale diagnostics: %w", err)
		}
		if _, err := tx.Exec("DELETE FROM files WHERE id = ?", existingID); err != nil {
			return fmt.Errorf("delete stale file record: %w", err)
		}
	}

	res, err := tx.Exec(
		"INSERT INTO files (path, hash, last_checked) VALUES (?, ?, ?)",
		path, hash, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("insert file: %w", err)
	}
	fileID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("file id: %w", err)
	}

	for i, d := range diags {
		_, err := tx.Exec(`
			INSERT INTO diagnostics
			  (file_id, ordinal, rule, category, severity, message, help,
			   span_start, span_end, start_line, start_col, end_line, end_col, labels)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			fileID, i, d.Rule, d.Category, d.Severity.String(), d.Message, d.Help,
			d.Span.Start, d.Span.End,
			d.Span.StartLine, d.Span.StartCol, d.Span.EndLine, d.Span.EndCol,
			marshalLabels(d.Labels),
		)
		if err != nil {
			return fmt.Errorf("insert diagnostic: %w", err)
		}
	}

	return tx.Commit()
}
