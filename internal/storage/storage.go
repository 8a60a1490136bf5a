// Package storage persists tasks, task history, recurring rules and
// settings in a single sqlite database.
package storage

import (
	"database/sql"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

type Store struct {
	queries
	db *sql.DB
}

func Open(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, errors.New("db path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, err
	}
	dsn := sqliteDSN(dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, queries: queries{db: db}}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	notes TEXT,
	list TEXT NOT NULL CHECK (list IN ('TODAY','FUTURE')),
	sort_index INTEGER NOT NULL,
	has_time INTEGER NOT NULL DEFAULT 0,
	scheduled_at TEXT,
	completed INTEGER NOT NULL DEFAULT 0,
	completed_at TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS task_history (
	id TEXT PRIMARY KEY,
	source_list TEXT NOT NULL,
	title TEXT NOT NULL,
	completed_at TEXT,
	cleared_on TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS recurring_rules (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	notes TEXT,
	cadence_type TEXT NOT NULL CHECK (cadence_type IN ('WEEKLY','MONTHLY')),
	weekdays_mask INTEGER,
	monthly_day INTEGER,
	time_hhmm TEXT,
	enabled INTEGER NOT NULL DEFAULT 1,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tasks_list_sort ON tasks(list, sort_index);
CREATE INDEX IF NOT EXISTS idx_history_cleared ON task_history(cleared_on);
CREATE INDEX IF NOT EXISTS idx_recurring_enabled_cadence ON recurring_rules(enabled, cadence_type);
`
	_, err := s.db.Exec(ddl)
	return err
}

func sqliteDSN(path string) string {
	if strings.HasPrefix(path, "file:") {
		return path
	}
	abs, err := filepath.Abs(path)
	if err == nil {
		path = abs
	}
	u := url.URL{
		Scheme: "file",
		Path:   path,
	}
	q := u.Query()
	q.Set("mode", "rwc")
	q.Set("_pragma", "busy_timeout(5000)")
	u.RawQuery = q.Encode()
	return u.String()
}
