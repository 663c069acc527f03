package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/researchmesh/researchmesh/core"
)

func TestSessionStoreCreateGetSave(t *testing.T) {
	s := NewInMemorySessionStore()

	sess := core.NewSession("s1", "query", "coordinator", 10)
	require.NoError(t, s.Create(sess))

	// Duplicate creation is rejected.
	assert.Error(t, s.Create(sess))

	got, err := s.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, "query", got.Query)
	assert.Equal(t, core.StatusCreated, got.CurrentStatus())

	_, err = s.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, sess.Activate("coordinator"))
	require.NoError(t, s.Save(sess))

	got, err = s.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, core.StatusActive, got.CurrentStatus())
}

func TestSessionStoreReturnsClones(t *testing.T) {
	s := NewInMemorySessionStore()

	sess := core.NewSession("s1", "query", "coordinator", 10)
	require.NoError(t, s.Create(sess))

	got, err := s.Get("s1")
	require.NoError(t, err)
	require.NoError(t, got.AppendTurn(core.Turn{Seq: 1, Agent: "coordinator"}))

	// Mutating the returned clone must not change the stored snapshot.
	again, err := s.Get("s1")
	require.NoError(t, err)
	assert.Empty(t, again.GetTurns())
}

func TestDocumentStoreRoundTrip(t *testing.T) {
	d := NewInMemoryDocumentStore()

	data := []byte("<html>page</html>")
	require.NoError(t, d.Save("s1", "doc1", data))

	// Mutating the caller's slice must not reach the store.
	data[0] = 'X'

	got, err := d.Get("s1", "doc1")
	require.NoError(t, err)
	assert.Equal(t, []byte("<html>page</html>"), got)

	_, err = d.Get("s1", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = d.Get("missing", "doc1")
	assert.ErrorIs(t, err, ErrNotFound)

	ids, err := d.List("s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"doc1"}, ids)

	ids, err = d.List("missing")
	require.NoError(t, err)
	assert.Empty(t, ids)
}
