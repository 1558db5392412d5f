package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS flows (
	id          TEXT PRIMARY KEY,
	business_id TEXT NOT NULL DEFAULT '',
	version     INTEGER NOT NULL,
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL,
	data        BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_flows_business_id ON flows(business_id);
CREATE INDEX IF NOT EXISTS idx_flows_updated_at ON flows(updated_at);
`

// SQLiteStore persists flows to SQLite.
// It is suitable for single-process production use.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteStore opens (creating if needed) a SQLite flow store.
// The path should be a file path (e.g., "./flows.db") or ":memory:" for testing.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite store: empty path")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// :memory: databases are per-connection.
	if path == ":memory:" || strings.Contains(path, "mode=memory") {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Save implements Store.
func (s *SQLiteStore) Save(ctx context.Context, rec Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Record{}, ErrStoreClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Record{}, fmt.Errorf("begin save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	if rec.ID == "" {
		rec.ID = newID()
	}

	var (
		version   int64
		createdAt string
		business  string
	)
	err = tx.QueryRowContext(ctx,
		`SELECT version, created_at, business_id FROM flows WHERE id = ?`, rec.ID,
	).Scan(&version, &createdAt, &business)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		rec.Version = 1
		rec.CreatedAt = now
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO flows (id, business_id, version, created_at, updated_at, data)
			VALUES (?, ?, ?, ?, ?, ?)
		`, rec.ID, rec.BusinessID, rec.Version, formatTime(now), formatTime(now), rec.Data); err != nil {
			return Record{}, fmt.Errorf("insert flow: %w", err)
		}
	case err != nil:
		return Record{}, fmt.Errorf("read flow version: %w", err)
	case rec.Version != 0 && rec.Version != version:
		return Record{}, conflictErr(rec.ID, rec.Version, version)
	default:
		rec.Version = version + 1
		rec.CreatedAt = parseTime(createdAt)
		if rec.BusinessID == "" {
			rec.BusinessID = business
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE flows SET business_id = ?, version = ?, updated_at = ?, data = ?
			WHERE id = ?
		`, rec.BusinessID, rec.Version, formatTime(now), rec.Data, rec.ID); err != nil {
			return Record{}, fmt.Errorf("update flow: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Record{}, fmt.Errorf("commit save: %w", err)
	}
	rec.UpdatedAt = now
	return copyRecord(rec), nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return Record{}, ErrStoreClosed
	}

	rec := Record{ID: id}
	var createdAt, updatedAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT business_id, version, created_at, updated_at, data
		FROM flows WHERE id = ?
	`, id).Scan(&rec.BusinessID, &rec.Version, &createdAt, &updatedAt, &rec.Data)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("get flow: %w", err)
	}
	rec.CreatedAt = parseTime(createdAt)
	rec.UpdatedAt = parseTime(updatedAt)
	return rec, nil
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context, opts ListOptions) ([]Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	query := `SELECT id, business_id, version, updated_at, LENGTH(data) FROM flows`
	var args []any
	if opts.BusinessID != "" {
		query += ` WHERE business_id = ?`
		args = append(args, opts.BusinessID)
	}
	query += ` ORDER BY updated_at DESC, id ASC`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list flows: %w", err)
	}
	defer rows.Close()

	infos := []Info{}
	for rows.Next() {
		var info Info
		var updatedAt string
		if err := rows.Scan(&info.ID, &info.BusinessID, &info.Version, &updatedAt, &info.Size); err != nil {
			return nil, fmt.Errorf("scan flow info: %w", err)
		}
		info.UpdatedAt = parseTime(updatedAt)
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate flows: %w", err)
	}
	return infos, nil
}

// Delete implements Store.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM flows WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete flow: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// Timestamps are fixed-width so lexical ORDER BY matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}
