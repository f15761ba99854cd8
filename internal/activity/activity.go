// Package activity persists a capped log of recent pipeline actions in SQLite.
package activity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Levels stored with each entry.
const (
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

const (
	// DefaultMaxEntries caps the table when no limit is configured.
	DefaultMaxEntries = 100
	// DefaultRecent is how many entries Recent returns for a non-positive limit.
	DefaultRecent = 10
)

const schema = `CREATE TABLE IF NOT EXISTS activity (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	at      INTEGER NOT NULL,
	level   TEXT    NOT NULL,
	message TEXT    NOT NULL
)`

// ErrClosed is returned after Close.
var ErrClosed = errors.New("activity log closed")

// Entry is one recorded action.
type Entry struct {
	ID      int64     `json:"id"`
	At      time.Time `json:"at"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
}

// Log is a SQLite-backed action log keeping only the newest maxEntries rows.
type Log struct {
	db         *sql.DB
	maxEntries int
	now        func() time.Time

	mu       sync.Mutex
	closed   bool
	onRecord func(Entry)
}

// Open creates or opens the log database at path.
func Open(path string, maxEntries int) (*Log, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create activity dir: %w", err)
		}
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(10000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open activity db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create activity schema: %w", err)
	}
	return &Log{db: db, maxEntries: maxEntries, now: time.Now}, nil
}

// OnRecord registers fn to receive every entry after it is stored. fn runs on the
// recording goroutine and must not call back into the Log.
func (l *Log) OnRecord(fn func(Entry)) {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.onRecord = fn
	l.mu.Unlock()
}

// Record appends an entry and trims the oldest rows beyond the cap.
func (l *Log) Record(ctx context.Context, level, message string) error {
	if l == nil {
		return nil
	}
	entry, notify, err := l.insert(ctx, level, message)
	if err != nil {
		return err
	}
	if notify != nil {
		notify(entry)
	}
	return nil
}

func (l *Log) insert(ctx context.Context, level, message string) (Entry, func(Entry), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return Entry{}, nil, ErrClosed
	}

	level = strings.ToUpper(strings.TrimSpace(level))
	if level == "" {
		level = LevelInfo
	}
	at := l.now()

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return Entry{}, nil, fmt.Errorf("begin activity tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO activity (at, level, message) VALUES (?, ?, ?)`,
		at.UnixMilli(), level, message,
	)
	if err != nil {
		return Entry{}, nil, fmt.Errorf("insert activity: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Entry{}, nil, fmt.Errorf("insert activity id: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM activity WHERE id NOT IN (SELECT id FROM activity ORDER BY id DESC LIMIT ?)`,
		l.maxEntries,
	); err != nil {
		return Entry{}, nil, fmt.Errorf("trim activity: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Entry{}, nil, fmt.Errorf("commit activity: %w", err)
	}
	entry := Entry{ID: id, At: time.UnixMilli(at.UnixMilli()).UTC(), Level: level, Message: message}
	return entry, l.onRecord, nil
}

// Info records an info entry.
func (l *Log) Info(ctx context.Context, message string) error {
	return l.Record(ctx, LevelInfo, message)
}

// Warn records a warning entry.
func (l *Log) Warn(ctx context.Context, message string) error {
	return l.Record(ctx, LevelWarn, message)
}

// Error records an error entry.
func (l *Log) Error(ctx context.Context, message string) error {
	return l.Record(ctx, LevelError, message)
}

// Recent returns up to limit entries, newest first.
func (l *Log) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if l == nil {
		return []Entry{}, nil
	}
	if limit <= 0 {
		limit = DefaultRecent
	}
	l.mu.Lock()
	closed := l.closed
	l.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	rows, err := l.db.QueryContext(ctx,
		`SELECT id, at, level, message FROM activity ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query activity: %w", err)
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var (
			e  Entry
			at int64
		)
		if err := rows.Scan(&e.ID, &at, &e.Level, &e.Message); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		e.At = time.UnixMilli(at).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close releases the database.
func (l *Log) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.db.Close()
}
