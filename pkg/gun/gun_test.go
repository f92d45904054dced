package gun

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gundb/gun-go/internal/storage"
)

func TestPutAndOnce(t *testing.T) {
	db := New(WithStorage(storage.NewMemory()))
	defer db.Close()

	profile, err := db.Get("profile").Put(map[string]any{"name": "Alice"})
	require.NoError(t, err)

	var got any
	profile.Get("name").Once(func(value any, key string) {
		got = value
	})
	assert.Equal(t, "Alice", got)
}

func TestOnFiresForSubsequentPut(t *testing.T) {
	db := New()
	defer db.Close()

	counter, err := db.Get("counter").Put(map[string]any{"value": 0.0})
	require.NoError(t, err)

	received := make(chan any, 2)
	counter.Get("value").On(func(value any, key string) {
		received <- value
	})

	// On fires immediately with the current value (spec §4.5).
	select {
	case v := <-received:
		assert.Equal(t, 0.0, v)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for initial On callback")
	}

	_, err = counter.Put(map[string]any{"value": 1.0})
	require.NoError(t, err)

	select {
	case v := <-received:
		assert.Equal(t, 1.0, v)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for On callback after put")
	}
}

func TestMeshStartsWithNoPeers(t *testing.T) {
	db := New()
	defer db.Close()
	assert.Equal(t, 0, db.Mesh().Near())
}
