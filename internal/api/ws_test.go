package api

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rusel95/whitenoise/internal/player"
)

func dialStateStream(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		defer resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestStateStreamSendsInitialSnapshot(t *testing.T) {
	router, _ := setupTestRouter(t)
	server := httptest.NewServer(router)
	defer server.Close()

	conn := dialStateStream(t, server)

	var snap player.Snapshot
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&snap))

	assert.Equal(t, "idle", snap.Phase)
	assert.Len(t, snap.Channels, 2)
}

func TestStateStreamPushesDispatches(t *testing.T) {
	router, engine := setupTestRouter(t)
	server := httptest.NewServer(router)
	defer server.Close()

	conn := dialStateStream(t, server)

	// Drain the initial snapshot.
	var snap player.Snapshot
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&snap))

	engine.Dispatch(player.TappedPlayPause{})

	// Every dispatch pushes a snapshot; keep reading until the mix settles.
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		require.NoError(t, conn.ReadJSON(&snap))
		if snap.Phase == "playing" {
			return
		}
	}
	t.Fatalf("stream never reported playing, last phase %q", snap.Phase)
}
