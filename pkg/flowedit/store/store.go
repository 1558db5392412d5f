// Package store persists flow documents for the reference flow store.
package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/randalmurphal/flowedit/pkg/flowedit/registry"
)

// Store persists flow documents keyed by id.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save upserts rec. An empty rec.ID creates a new document with a
	// generated id. When rec.Version is non-zero it must equal the stored
	// version or ErrConflict is returned. The stored record, with its
	// version incremented, is returned.
	Save(ctx context.Context, rec Record) (Record, error)

	// Get retrieves a document. Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, id string) (Record, error)

	// List returns metadata for stored documents, most recently updated
	// first. Returns an empty slice (not error) when nothing matches.
	List(ctx context.Context, opts ListOptions) ([]Info, error)

	// Delete removes a document. Returns nil if it doesn't exist.
	Delete(ctx context.Context, id string) error

	// Close releases any resources (connections, files).
	Close() error
}

// Record is one stored flow document. Data is the opaque encoded
// {nodes, edges} payload.
type Record struct {
	ID         string
	BusinessID string
	Version    int64
	Data       []byte
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Created reports whether the record was written for the first time.
func (r Record) Created() bool {
	return r.Version == 1
}

// Info provides metadata without loading the document.
type Info struct {
	ID         string
	BusinessID string
	Version    int64
	UpdatedAt  time.Time
	Size       int64
}

// ListOptions filter List.
type ListOptions struct {
	// BusinessID restricts results to one owner when non-empty.
	BusinessID string
	// Limit caps the number of results; 0 means no limit.
	Limit int
}

// Sentinel errors for store operations.
var (
	// ErrNotFound indicates a document doesn't exist.
	ErrNotFound = errors.New("flow not found")

	// ErrConflict indicates the caller's version is not the stored one.
	ErrConflict = errors.New("flow version conflict")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("flow store closed")

	// ErrUnknownBackend is returned by Open for unregistered kinds.
	ErrUnknownBackend = errors.New("unknown store backend")
)

// Factory opens a backend from a data source name.
type Factory func(dsn string) (Store, error)

var backends = registry.New[string, Factory]()

func init() {
	_ = backends.Register("memory", func(string) (Store, error) {
		return NewMemoryStore(), nil
	})
	_ = backends.Register("sqlite", func(dsn string) (Store, error) {
		return NewSQLiteStore(dsn)
	})
}

// Register makes a backend available to Open under kind.
func Register(kind string, f Factory) error {
	return backends.Register(kind, f)
}

// Backends returns the registered backend names, sorted.
func Backends() []string {
	names := backends.Keys()
	slices.Sort(names)
	return names
}

// Open resolves kind through the backend registry and opens it.
func Open(kind, dsn string) (Store, error) {
	f, ok := backends.Get(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %q (have %v)", ErrUnknownBackend, kind, Backends())
	}
	return f(dsn)
}

func newID() string {
	return uuid.NewString()
}

// conflictErr reports the stored version alongside ErrConflict.
func conflictErr(id string, want, have int64) error {
	return fmt.Errorf("%w: %s at version %d, caller had %d", ErrConflict, id, have, want)
}
