package wsock

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffForGrowsAndCaps(t *testing.T) {
	assert.Equal(t, 2*time.Second, backoffFor(1))
	assert.Equal(t, 4*time.Second, backoffFor(2))
	assert.Equal(t, 60*time.Second, backoffFor(100))
}

func TestDialConnectsAndRegistersWithRemoteMesh(t *testing.T) {
	remote := newTestMesh()
	srv := httptest.NewServer(Handler(remote))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	local := newTestMesh()

	peer, err := Dial(wsURL, local, 1)
	require.NoError(t, err)
	require.NotNil(t, peer)

	deadline := time.Now().Add(2 * time.Second)
	for remote.Near() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, 1, remote.Near())
}
