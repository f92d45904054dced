package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gundb/gun-go/internal/gunerr"
	"github.com/gundb/gun-go/internal/graph"
)

func TestFilePutThenGetRoundTrips(t *testing.T) {
	f, err := NewFile(t.TempDir())
	require.NoError(t, err)

	n := graph.NewNode("soul1")
	n.Set("name", "Alice", 1.0)
	require.NoError(t, f.Put("soul1", n))

	got, err := f.Get("soul1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Data["name"])
}

func TestFileGetMissingReturnsNotFound(t *testing.T) {
	f, err := NewFile(t.TempDir())
	require.NoError(t, err)

	_, err = f.Get("missing")
	require.Error(t, err)
	assert.True(t, gunerr.Is(err, gunerr.KindNotFound))
}

func TestFileHasReflectsPresence(t *testing.T) {
	f, err := NewFile(t.TempDir())
	require.NoError(t, err)

	ok, err := f.Has("soul1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, f.Put("soul1", graph.NewNode("soul1")))
	ok, err = f.Has("soul1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFileSoulsWithSpecialCharactersRoundTrip(t *testing.T) {
	f, err := NewFile(t.TempDir())
	require.NoError(t, err)

	soul := "soul/with?special&chars"
	n := graph.NewNode(soul)
	n.Set("x", "1", 1.0)
	require.NoError(t, f.Put(soul, n))

	got, err := f.Get(soul)
	require.NoError(t, err)
	assert.Equal(t, "1", got.Data["x"])
}

func TestNewFileLoadsExistingContentsOnReopen(t *testing.T) {
	dir := t.TempDir()

	f1, err := NewFile(dir)
	require.NoError(t, err)
	n := graph.NewNode("soul1")
	n.Set("name", "Alice", 1.0)
	require.NoError(t, f1.Put("soul1", n))

	f2, err := NewFile(dir)
	require.NoError(t, err)

	got, err := f2.Get("soul1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Data["name"])
}
