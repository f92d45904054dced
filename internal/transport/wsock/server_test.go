package wsock

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gundb/gun-go/internal/graph"
	"github.com/gundb/gun-go/internal/mesh"
)

func newTestMesh() *mesh.Mesh {
	return mesh.New(graph.RandomID, nil, nil, mesh.DefaultOptions())
}

func TestHandlerUpgradesAndRegistersPeer(t *testing.T) {
	m := newTestMesh()
	srv := httptest.NewServer(Handler(m))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// The relay sends the new peer a DAM "?" handshake immediately on Hi.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"dam":"?"`)

	deadline := time.Now().Add(time.Second)
	for m.Near() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, 1, m.Near())
}

func TestHandlerDeregistersPeerOnClose(t *testing.T) {
	m := newTestMesh()
	srv := httptest.NewServer(Handler(m))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	deadline := time.Now().Add(time.Second)
	for m.Near() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	require.Equal(t, 1, m.Near())

	conn.Close()

	deadline = time.Now().Add(2 * time.Second)
	for m.Near() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, 0, m.Near())
}

func TestBuildCheckOriginAllowsAllOutsideProduction(t *testing.T) {
	t.Setenv("GUN_ENV", "development")
	t.Setenv("GUN_ALLOWED_ORIGINS", "")
	check := buildCheckOrigin()
	assert.True(t, check(httptest.NewRequest("GET", "/gun", nil)))
}
