package store

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"
)

// MemoryStore keeps flows in process memory. Data is lost when the
// process exits.
type MemoryStore struct {
	mu     sync.RWMutex
	flows  map[string]Record
	closed bool
}

// NewMemoryStore creates a new in-memory flow store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		flows: make(map[string]Record),
	}
}

// Save implements Store.
func (m *MemoryStore) Save(ctx context.Context, rec Record) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return Record{}, ErrStoreClosed
	}

	now := time.Now().UTC()
	if rec.ID == "" {
		rec.ID = newID()
	}
	existing, ok := m.flows[rec.ID]
	switch {
	case ok && rec.Version != 0 && rec.Version != existing.Version:
		return Record{}, conflictErr(rec.ID, rec.Version, existing.Version)
	case ok:
		rec.Version = existing.Version + 1
		rec.CreatedAt = existing.CreatedAt
		if rec.BusinessID == "" {
			rec.BusinessID = existing.BusinessID
		}
	default:
		rec.Version = 1
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	rec.Data = slices.Clone(rec.Data)

	m.flows[rec.ID] = rec
	return copyRecord(rec), nil
}

// Get implements Store.
func (m *MemoryStore) Get(ctx context.Context, id string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return Record{}, ErrStoreClosed
	}
	rec, ok := m.flows[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return copyRecord(rec), nil
}

// List implements Store.
func (m *MemoryStore) List(ctx context.Context, opts ListOptions) ([]Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	infos := make([]Info, 0, len(m.flows))
	for _, rec := range m.flows {
		if opts.BusinessID != "" && rec.BusinessID != opts.BusinessID {
			continue
		}
		infos = append(infos, Info{
			ID:         rec.ID,
			BusinessID: rec.BusinessID,
			Version:    rec.Version,
			UpdatedAt:  rec.UpdatedAt,
			Size:       int64(len(rec.Data)),
		})
	}
	slices.SortFunc(infos, func(a, b Info) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	if opts.Limit > 0 && len(infos) > opts.Limit {
		infos = infos[:opts.Limit]
	}
	return infos, nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	delete(m.flows, id)
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.flows = nil
	return nil
}

// Len returns the number of stored flows.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.flows)
}

func copyRecord(rec Record) Record {
	rec.Data = slices.Clone(rec.Data)
	return rec
}
