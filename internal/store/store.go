// Package store persists users, topics, conversations, messages, pages,
// participants and subscriptions in SQLite.
//
// Every write is a single statement executed in autocommit mode, so it is
// durable once the call returns and leaves no partial rows behind on failure.
// Seed is the exception: it writes its whole dataset in one transaction.
// The connection pool holds one connection, which serializes writes in call
// order.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// timeLayout is fixed width so stored timestamps compare lexicographically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// querier is satisfied by *sql.DB and *sql.Tx, so inserts can run inside the
// seed transaction or on their own.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Config holds the storage settings.
type Config struct {
	Path string
}

// Store is the SQLite-backed implementation of the chat persistence layer.
type Store struct {
	mu     sync.RWMutex
	db     *sql.DB
	log    *slog.Logger
	now    func() time.Time
	closed bool
}

// Open opens (creating if needed) the database at cfg.Path and applies the
// schema.
func Open(ctx context.Context, cfg Config, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	path := cfg.Path
	if path == "" {
		path = MemoryPath
	}

	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// A single connection keeps ":memory:" databases alive and serializes
	// writers.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	for _, stmt := range schemaDDL {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}

	log.Debug("store opened", "path", path)
	return &Store{db: db, log: log, now: time.Now}, nil
}

func dsn(path string) string {
	pragmas := []string{
		"_pragma=foreign_keys(1)",
		"_pragma=busy_timeout(5000)",
	}
	if path == MemoryPath {
		return "file::memory:?" + strings.Join(pragmas, "&")
	}
	pragmas = append(pragmas, "_pragma=journal_mode(WAL)", "_pragma=synchronous(FULL)")
	return "file:" + url.PathEscape(path) + "?" + strings.Join(pragmas, "&")
}

// Close releases the database. Close is idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// conn returns the database handle, or ErrClosed after Close.
func (s *Store) conn() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}
	return s.db, nil
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(timeLayout)
}

// clampedNow is the created_at expression used by every insert: the larger of
// the supplied timestamp and the created_at of the highest id already in the
// table. Since every row was clamped the same way, that row holds the table's
// newest created_at, and reading it is a single primary key lookup.
func clampedNow(table string) string {
	return "MAX(?, COALESCE((SELECT created_at FROM " + table + " ORDER BY id DESC LIMIT 1), ''))"
}

func parseTime(v string) (time.Time, error) {
	t, err := time.Parse(timeLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse created_at %q: %w", v, err)
	}
	return t, nil
}
