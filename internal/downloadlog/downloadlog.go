// Package downloadlog implements the optional SQLite-backed audit log from
// SPEC_FULL.md's DOMAIN STACK (--audit-db): every completed upload and
// download is recorded with its window handle, filename, size and
// timestamp, for after-the-fact review. Disabled by default; nothing in the
// core's protocol handling depends on it. Grounded on the task-log SQLite
// store pattern used elsewhere in the pack (plain database/sql, driver
// imported for its side effect of registration).
package downloadlog

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS transfers (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	window_handle INTEGER NOT NULL,
	direction TEXT NOT NULL CHECK(direction IN ('upload', 'download')),
	filename TEXT NOT NULL,
	size_bytes INTEGER NOT NULL,
	occurred_at TEXT NOT NULL
);
`

// Direction distinguishes an upload (client to host) from a download (host
// to client) audit entry.
type Direction string

const (
	Upload   Direction = "upload"
	Download Direction = "download"
)

// Entry is one row of audit history.
type Entry struct {
	WindowHandle uint64
	Direction    Direction
	Filename     string
	SizeBytes    int64
	OccurredAt   time.Time
}

// Log records completed transfers to a SQLite database opened at path.
type Log struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database at path and
// ensures its schema exists.
func Open(path string) (*Log, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("downloadlog: failed to open %q: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("downloadlog: failed to create schema: %w", err)
	}
	return &Log{db: db}, nil
}

// OpenDB wraps an already-open *sql.DB, used by tests to inject a
// go-sqlmock-backed database without a real sqlite3 cgo dependency.
func OpenDB(db *sql.DB) *Log {
	return &Log{db: db}
}

// Record inserts one audit entry.
func (l *Log) Record(e Entry) error {
	_, err := l.db.Exec(
		`INSERT INTO transfers (window_handle, direction, filename, size_bytes, occurred_at) VALUES (?, ?, ?, ?, ?)`,
		e.WindowHandle, string(e.Direction), e.Filename, e.SizeBytes, e.OccurredAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("downloadlog: failed to record transfer: %w", err)
	}
	return nil
}

// ListForWindow returns every recorded transfer for handle, oldest first.
func (l *Log) ListForWindow(handle uint64) ([]Entry, error) {
	rows, err := l.db.Query(
		`SELECT direction, filename, size_bytes, occurred_at FROM transfers WHERE window_handle = ? ORDER BY id ASC`,
		handle,
	)
	if err != nil {
		return nil, fmt.Errorf("downloadlog: failed to query transfers for window %d: %w", handle, err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var direction, filename, occurredAt string
		var size int64
		if err := rows.Scan(&direction, &filename, &size, &occurredAt); err != nil {
			return nil, fmt.Errorf("downloadlog: failed to scan transfer row: %w", err)
		}
		ts, err := time.Parse(time.RFC3339, occurredAt)
		if err != nil {
			return nil, fmt.Errorf("downloadlog: failed to parse timestamp %q: %w", occurredAt, err)
		}
		entries = append(entries, Entry{
			WindowHandle: handle,
			Direction:    Direction(direction),
			Filename:     filename,
			SizeBytes:    size,
			OccurredAt:   ts,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("downloadlog: error iterating transfers for window %d: %w", handle, err)
	}
	return entries, nil
}

// Close releases the underlying database handle.
func (l *Log) Close() error {
	return l.db.Close()
}
