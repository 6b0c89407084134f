// Package history keeps a local SQLite log of executed actions so past
// requests and downloads can be reviewed with `pgbuild history`.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

const dbFileName = "history.db"

type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

type Entry struct {
	ID         string        `json:"id" yaml:"id"`
	ActionID   int           `json:"action_id" yaml:"action_id"`
	ActionName string        `json:"action" yaml:"action"`
	Method     string        `json:"method" yaml:"method"`
	Path       string        `json:"path" yaml:"path"`
	Username   string        `json:"username" yaml:"username"`
	Status     Status        `json:"status" yaml:"status"`
	HTTPStatus int           `json:"http_status,omitempty" yaml:"http_status,omitempty"`
	Error      string        `json:"error,omitempty" yaml:"error,omitempty"`
	File       string        `json:"file,omitempty" yaml:"file,omitempty"`
	Bytes      int64         `json:"bytes,omitempty" yaml:"bytes,omitempty"`
	Duration   time.Duration `json:"duration" yaml:"duration"`
	StartedAt  time.Time     `json:"started_at" yaml:"started_at"`
}

// Recorder is the write side the dispatcher depends on.
type Recorder interface {
	Record(entry Entry) error
}

type Store struct {
	db *sql.DB
}

func GetDBPath() string {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		cacheDir = os.TempDir()
	}
	return filepath.Join(cacheDir, "pgbuild", dbFileName)
}

func NewStoreFromEnv() (*Store, error) {
	path := os.Getenv("PGBUILD_HISTORY_DB")
	if path == "" {
		path = GetDBPath()
	}
	return NewStore(path)
}

func NewStore(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return s, nil
}

func (s *Store) init() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS executions (
			id TEXT PRIMARY KEY,
			action_id INTEGER NOT NULL,
			action_name TEXT NOT NULL,
			method TEXT NOT NULL,
			path TEXT NOT NULL,
			username TEXT,
			status TEXT NOT NULL,
			http_status INTEGER,
			error TEXT,
			file TEXT,
			bytes INTEGER,
			duration_ms INTEGER NOT NULL,
			started_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_executions_started_at ON executions(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_executions_action_name ON executions(action_name)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts entry, assigning an id and start time when missing.
func (s *Store) Record(entry Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.StartedAt.IsZero() {
		entry.StartedAt = time.Now()
	}

	_, err := s.db.Exec(`
		INSERT INTO executions
		(id, action_id, action_name, method, path, username, status, http_status, error, file, bytes, duration_ms, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.ActionID,
		entry.ActionName,
		entry.Method,
		entry.Path,
		nullString(entry.Username),
		string(entry.Status),
		nullInt(int64(entry.HTTPStatus)),
		nullString(entry.Error),
		nullString(entry.File),
		nullInt(entry.Bytes),
		entry.Duration.Milliseconds(),
		entry.StartedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record execution: %w", err)
	}
	return nil
}

type Query struct {
	Action string
	Status Status
	Limit  int
}

// List returns matching entries, newest first.
func (s *Store) List(q Query) ([]Entry, error) {
	query := `SELECT id, action_id, action_name, method, path, username, status,
		http_status, error, file, bytes, duration_ms, started_at
		FROM executions WHERE 1=1`
	var args []any

	if q.Action != "" {
		query += ` AND lower(action_name) = lower(?)`
		args = append(args, q.Action)
	}
	if q.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(q.Status))
	}
	query += ` ORDER BY started_at DESC`
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var username, errText, file sql.NullString
		var httpStatus, bytes sql.NullInt64
		var status string
		var durationMS int64

		if err := rows.Scan(&e.ID, &e.ActionID, &e.ActionName, &e.Method, &e.Path, &username, &status,
			&httpStatus, &errText, &file, &bytes, &durationMS, &e.StartedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}

		e.Username = username.String
		e.Status = Status(status)
		e.HTTPStatus = int(httpStatus.Int64)
		e.Error = errText.String
		e.File = file.String
		e.Bytes = bytes.Int64
		e.Duration = time.Duration(durationMS) * time.Millisecond

		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// Clear deletes every entry and returns how many were removed.
func (s *Store) Clear() (int64, error) {
	res, err := s.db.Exec(`DELETE FROM executions`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear history: %w", err)
	}
	return res.RowsAffected()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(i int64) sql.NullInt64 {
	return sql.NullInt64{Int64: i, Valid: i != 0}
}
