package history

import (
	"database/sql"
	"fmt"
	"sync"
	"time"
)

// Current schema version
const SchemaVersion = "1"

// SQLite is a SQLite-backed history store.
type SQLite struct {
	mu sync.Mutex
	db *sql.DB
}

// NewSQLite opens or creates a history database at the given path.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS invocations (
			id TEXT PRIMARY KEY,
			query_name TEXT NOT NULL,
			params TEXT NOT NULL,
			injected TEXT NOT NULL,
			format TEXT NOT NULL,
			exit_code INTEGER NOT NULL,
			duration_ns INTEGER NOT NULL,
			ts TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLite{db: db}

	// Check/set schema version (unlocked variants, we are still in init)
	version, err := s.getMetadataUnlocked("schema_version")
	if err != nil {
		db.Close()
		return nil, err
	}
	switch version {
	case "":
		if err := s.setMetadataUnlocked("schema_version", SchemaVersion); err != nil {
			db.Close()
			return nil, err
		}
	case SchemaVersion:
	default:
		db.Close()
		return nil, fmt.Errorf("unsupported schema version: %s (expected %s)", version, SchemaVersion)
	}

	return s, nil
}

// Record appends an invocation.
func (s *SQLite) Record(e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO invocations (id, query_name, params, injected, format, exit_code, duration_ns, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Query, e.Params, e.Injected, e.Format, e.ExitCode, int64(e.Duration), e.Ts.UTC().Format(time.RFC3339Nano))
	return err
}

// Recent returns up to limit invocations, newest first.
func (s *SQLite) Recent(limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := "SELECT id, query_name, params, injected, format, exit_code, duration_ns, ts FROM invocations ORDER BY ts DESC, rowid DESC"
	var args []any
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows.Scan)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Get retrieves an invocation by ID.
func (s *SQLite) Get(id string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRow(
		"SELECT id, query_name, params, injected, format, exit_code, duration_ns, ts FROM invocations WHERE id = ?", id)
	e, err := scanEntry(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func scanEntry(scan func(dest ...any) error) (Entry, error) {
	var (
		e  Entry
		ns int64
		ts string
	)
	if err := scan(&e.ID, &e.Query, &e.Params, &e.Injected, &e.Format, &e.ExitCode, &ns, &ts); err != nil {
		return Entry{}, err
	}
	e.Duration = time.Duration(ns)
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return Entry{}, fmt.Errorf("corrupt timestamp %q: %w", ts, err)
	}
	e.Ts = t
	return e, nil
}

func (s *SQLite) getMetadataUnlocked(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (s *SQLite) setMetadataUnlocked(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}
