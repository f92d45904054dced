package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gundb/gun-go/internal/gunerr"
	"github.com/gundb/gun-go/internal/graph"
)

func openTestBolt(t *testing.T) *Bolt {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gun.bolt")
	b, err := NewBolt(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestBoltPutThenGetRoundTrips(t *testing.T) {
	b := openTestBolt(t)

	n := graph.NewNode("soul1")
	n.Set("name", "Alice", 1.0)
	require.NoError(t, b.Put("soul1", n))

	got, err := b.Get("soul1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Data["name"])
}

func TestBoltGetMissingReturnsNotFound(t *testing.T) {
	b := openTestBolt(t)

	_, err := b.Get("missing")
	require.Error(t, err)
	assert.True(t, gunerr.Is(err, gunerr.KindNotFound))
}

func TestBoltHasReflectsPresence(t *testing.T) {
	b := openTestBolt(t)

	ok, err := b.Has("soul1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, b.Put("soul1", graph.NewNode("soul1")))
	ok, err = b.Has("soul1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBoltPutOverwritesExisting(t *testing.T) {
	b := openTestBolt(t)

	first := graph.NewNode("soul1")
	first.Set("name", "Alice", 1.0)
	require.NoError(t, b.Put("soul1", first))

	second := graph.NewNode("soul1")
	second.Set("name", "Bob", 2.0)
	require.NoError(t, b.Put("soul1", second))

	got, err := b.Get("soul1")
	require.NoError(t, err)
	assert.Equal(t, "Bob", got.Data["name"])
}
