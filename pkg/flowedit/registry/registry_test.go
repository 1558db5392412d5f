package registry

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndGet(t *testing.T) {
	r := New[string, int]()

	require.NoError(t, r.Register("one", 1))
	require.NoError(t, r.Register("two", 2))

	v, ok := r.Get("one")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	v, ok = r.Get("three")
	assert.False(t, ok)
	assert.Equal(t, 0, v)
	assert.Equal(t, 2, r.Len())
}

func TestRegisterDuplicate(t *testing.T) {
	r := New[string, string]()

	require.NoError(t, r.Register("key", "old"))
	err := r.Register("key", "new")
	assert.ErrorIs(t, err, ErrDuplicate)

	v, _ := r.Get("key")
	assert.Equal(t, "old", v)

	r.Replace("key", "new")
	v, _ = r.Get("key")
	assert.Equal(t, "new", v)
}

func TestDeleteAndKeys(t *testing.T) {
	r := New[string, int]()
	require.NoError(t, r.Register("a", 1))
	require.NoError(t, r.Register("b", 2))

	r.Delete("a")
	r.Delete("missing")

	assert.False(t, r.Has("a"))
	assert.True(t, r.Has("b"))
	assert.Equal(t, []string{"b"}, r.Keys())
}

func TestConcurrentRegister(t *testing.T) {
	r := New[string, int]()
	var wg sync.WaitGroup
	var dupes atomic.Int32

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := r.Register(fmt.Sprintf("k%d", i%10), i); err != nil {
				dupes.Add(1)
			}
			r.Get("k0")
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, r.Len())
	assert.Equal(t, int32(40), dupes.Load())
}
