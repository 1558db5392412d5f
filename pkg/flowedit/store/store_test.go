package store_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/flowedit/pkg/flowedit/store"
)

// storeFactory creates a store instance for testing.
type storeFactory func(t *testing.T) store.Store

// storeContractTest runs contract tests against any Store implementation.
func storeContractTest(t *testing.T, name string, factory storeFactory) {
	ctx := context.Background()

	t.Run(name+"/Save_AssignsID", func(t *testing.T) {
		s := factory(t)
		defer s.Close()

		rec, err := s.Save(ctx, store.Record{Data: []byte(`{"nodes":[]}`)})
		require.NoError(t, err)
		assert.NotEmpty(t, rec.ID)
		assert.Equal(t, int64(1), rec.Version)
		assert.True(t, rec.Created())
		assert.False(t, rec.CreatedAt.IsZero())

		loaded, err := s.Get(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, rec.ID, loaded.ID)
		assert.Equal(t, []byte(`{"nodes":[]}`), loaded.Data)
	})

	t.Run(name+"/Save_ClientID", func(t *testing.T) {
		s := factory(t)
		defer s.Close()

		rec, err := s.Save(ctx, store.Record{ID: "flow-1", BusinessID: "biz", Data: []byte("a")})
		require.NoError(t, err)
		assert.Equal(t, "flow-1", rec.ID)
		assert.Equal(t, int64(1), rec.Version)
	})

	t.Run(name+"/Save_Update", func(t *testing.T) {
		s := factory(t)
		defer s.Close()

		first, err := s.Save(ctx, store.Record{BusinessID: "biz", Data: []byte("first")})
		require.NoError(t, err)

		second, err := s.Save(ctx, store.Record{ID: first.ID, Data: []byte("second")})
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, int64(2), second.Version)
		assert.False(t, second.Created())
		assert.Equal(t, "biz", second.BusinessID, "owner kept when omitted")

		loaded, err := s.Get(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, []byte("second"), loaded.Data)
		assert.Equal(t, int64(2), loaded.Version)
		assert.WithinDuration(t, first.CreatedAt, loaded.CreatedAt, time.Millisecond)
	})

	t.Run(name+"/Save_VersionConflict", func(t *testing.T) {
		s := factory(t)
		defer s.Close()

		rec, err := s.Save(ctx, store.Record{Data: []byte("v1")})
		require.NoError(t, err)
		_, err = s.Save(ctx, store.Record{ID: rec.ID, Version: 1, Data: []byte("v2")})
		require.NoError(t, err)

		_, err = s.Save(ctx, store.Record{ID: rec.ID, Version: 1, Data: []byte("stale")})
		assert.ErrorIs(t, err, store.ErrConflict)

		loaded, err := s.Get(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, []byte("v2"), loaded.Data, "conflicting save leaves document untouched")
	})

	t.Run(name+"/Get_NotFound", func(t *testing.T) {
		s := factory(t)
		defer s.Close()

		_, err := s.Get(ctx, "missing")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run(name+"/List", func(t *testing.T) {
		s := factory(t)
		defer s.Close()

		infos, err := s.List(ctx, store.ListOptions{})
		require.NoError(t, err)
		assert.Empty(t, infos)

		_, err = s.Save(ctx, store.Record{ID: "a", BusinessID: "biz-1", Data: []byte("a")})
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)
		_, err = s.Save(ctx, store.Record{ID: "b", BusinessID: "biz-2", Data: []byte("bb")})
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)
		_, err = s.Save(ctx, store.Record{ID: "c", BusinessID: "biz-1", Data: []byte("ccc")})
		require.NoError(t, err)

		infos, err = s.List(ctx, store.ListOptions{})
		require.NoError(t, err)
		require.Len(t, infos, 3)
		assert.Equal(t, "c", infos[0].ID, "most recent first")
		assert.Equal(t, int64(3), infos[0].Size)

		infos, err = s.List(ctx, store.ListOptions{BusinessID: "biz-1"})
		require.NoError(t, err)
		require.Len(t, infos, 2)
		assert.Equal(t, "c", infos[0].ID)
		assert.Equal(t, "a", infos[1].ID)

		infos, err = s.List(ctx, store.ListOptions{Limit: 1})
		require.NoError(t, err)
		assert.Len(t, infos, 1)
	})

	t.Run(name+"/Delete", func(t *testing.T) {
		s := factory(t)
		defer s.Close()

		rec, err := s.Save(ctx, store.Record{Data: []byte("data")})
		require.NoError(t, err)
		require.NoError(t, s.Delete(ctx, rec.ID))
		require.NoError(t, s.Delete(ctx, rec.ID))

		_, err = s.Get(ctx, rec.ID)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run(name+"/DataCopy", func(t *testing.T) {
		s := factory(t)
		defer s.Close()

		original := []byte("original data")
		rec, err := s.Save(ctx, store.Record{Data: original})
		require.NoError(t, err)
		original[0] = 'X'

		loaded, err := s.Get(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, []byte("original data"), loaded.Data)
	})

	t.Run(name+"/ConcurrentSaves", func(t *testing.T) {
		s := factory(t)
		defer s.Close()

		rec, err := s.Save(ctx, store.Record{ID: "shared", Data: []byte("0")})
		require.NoError(t, err)

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.Save(ctx, store.Record{ID: rec.ID, Data: []byte("x")})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		loaded, err := s.Get(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(11), loaded.Version)
	})

	t.Run(name+"/Close_ThenError", func(t *testing.T) {
		s := factory(t)
		require.NoError(t, s.Close())

		_, err := s.Save(ctx, store.Record{Data: []byte("data")})
		assert.ErrorIs(t, err, store.ErrStoreClosed)

		_, err = s.Get(ctx, "x")
		assert.ErrorIs(t, err, store.ErrStoreClosed)

		_, err = s.List(ctx, store.ListOptions{})
		assert.ErrorIs(t, err, store.ErrStoreClosed)

		assert.ErrorIs(t, s.Delete(ctx, "x"), store.ErrStoreClosed)
	})
}

// TestMemoryStore runs contract tests against MemoryStore.
func TestMemoryStore(t *testing.T) {
	storeContractTest(t, "MemoryStore", func(t *testing.T) store.Store {
		return store.NewMemoryStore()
	})
}

// TestSQLiteStore runs contract tests against SQLiteStore.
func TestSQLiteStore(t *testing.T) {
	storeContractTest(t, "SQLiteStore", func(t *testing.T) store.Store {
		s, err := store.NewSQLiteStore(":memory:")
		require.NoError(t, err)
		return s
	})
}

func TestSQLiteStore_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "flows.db")

	s, err := store.NewSQLiteStore(path)
	require.NoError(t, err)
	rec, err := s.Save(ctx, store.Record{BusinessID: "biz", Data: []byte(`{"nodes":[],"edges":[]}`)})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = store.NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()

	loaded, err := s.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.Data, loaded.Data)
	assert.Equal(t, "biz", loaded.BusinessID)
}

func TestOpen(t *testing.T) {
	assert.Equal(t, []string{"memory", "sqlite"}, store.Backends())

	s, err := store.Open("memory", "")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = store.Open("sqlite", ":memory:")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = store.Open("sqlite", "")
	assert.Error(t, err)

	_, err = store.Open("mongo", "")
	assert.ErrorIs(t, err, store.ErrUnknownBackend)
}
