package state

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/researchmesh/researchmesh/core"
)

func TestSetAndGet(t *testing.T) {
	store := NewInMemoryStore()

	_, ok := store.Get("s1", "topic")
	assert.False(t, ok)

	entry, err := store.Set("s1", "topic", "quantum error correction", "search", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, entry.Version)
	assert.Equal(t, "search", entry.Writer)

	got, ok := store.Get("s1", "topic")
	require.True(t, ok)
	assert.Equal(t, "quantum error correction", got.Value)
	assert.Equal(t, 1, got.Version)
}

func TestStaleWriteRejected(t *testing.T) {
	store := NewInMemoryStore()

	_, err := store.Set("s1", "k", "v1", "a", 0)
	require.NoError(t, err)

	// A second writer still holding version 0 loses.
	_, err = store.Set("s1", "k", "v2", "b", 0)
	require.ErrorIs(t, err, core.ErrStaleWrite)

	// The losing writer re-reads and retries with the current version.
	current, ok := store.Get("s1", "k")
	require.True(t, ok)
	entry, err := store.Set("s1", "k", "v2", "b", current.Version)
	require.NoError(t, err)
	assert.Equal(t, 2, entry.Version)
	assert.Equal(t, "b", entry.Writer)
}

func TestVersionsStrictlyIncrease(t *testing.T) {
	store := NewInMemoryStore()

	version := 0
	for i := 0; i < 5; i++ {
		entry, err := store.Set("s1", "counter", i, "agent", version)
		require.NoError(t, err)
		assert.Equal(t, version+1, entry.Version)
		version = entry.Version
	}
	assert.Equal(t, 5, version)
}

func TestSessionsAreIsolated(t *testing.T) {
	store := NewInMemoryStore()

	_, err := store.Set("s1", "k", "one", "a", 0)
	require.NoError(t, err)
	_, err = store.Set("s2", "k", "two", "a", 0)
	require.NoError(t, err)

	e1, _ := store.Get("s1", "k")
	e2, _ := store.Get("s2", "k")
	assert.Equal(t, "one", e1.Value)
	assert.Equal(t, "two", e2.Value)
}

func TestListSorted(t *testing.T) {
	store := NewInMemoryStore()

	_, err := store.Set("s1", "b", 2, "a", 0)
	require.NoError(t, err)
	_, err = store.Set("s1", "a", 1, "a", 0)
	require.NoError(t, err)

	entries := store.List("s1")
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].Key)
	assert.Equal(t, "b", entries[1].Key)

	assert.Empty(t, store.List("unknown"))
}

func TestConcurrentWritersExactlyOneWins(t *testing.T) {
	store := NewInMemoryStore()

	const writers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if _, err := store.Set("s1", "k", n, "agent", 0); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	entry, ok := store.Get("s1", "k")
	require.True(t, ok)
	assert.Equal(t, 1, entry.Version)
}
