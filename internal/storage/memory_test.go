package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gundb/gun-go/internal/gunerr"
	"github.com/gundb/gun-go/internal/graph"
)

func TestMemoryGetMissingReturnsNotFound(t *testing.T) {
	m := NewMemory()
	_, err := m.Get("missing")
	require.Error(t, err)
	assert.True(t, gunerr.Is(err, gunerr.KindNotFound))
}

func TestMemoryPutThenGetRoundTrips(t *testing.T) {
	m := NewMemory()
	n := graph.NewNode("soul1")
	n.Set("name", "Alice", 1.0)

	require.NoError(t, m.Put("soul1", n))

	got, err := m.Get("soul1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Data["name"])
}

func TestMemoryPutClonesInput(t *testing.T) {
	m := NewMemory()
	n := graph.NewNode("soul1")
	n.Set("name", "Alice", 1.0)
	require.NoError(t, m.Put("soul1", n))

	n.Set("name", "mutated-after-put", 2.0)

	got, err := m.Get("soul1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Data["name"])
}

func TestMemoryHasReflectsPresence(t *testing.T) {
	m := NewMemory()
	ok, err := m.Has("soul1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Put("soul1", graph.NewNode("soul1")))

	ok, err = m.Has("soul1")
	require.NoError(t, err)
	assert.True(t, ok)
}
