package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rusel95/whitenoise/internal/logger"
	"github.com/rusel95/whitenoise/internal/player"
)

const (
	wsWriteWait  = 5 * time.Second
	wsPongWait   = 30 * time.Second
	wsPingPeriod = 20 * time.Second
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// StateStreamHandler pushes a state snapshot over a websocket after every
// dispatch. Each connection holds its own engine subscription; a slow
// consumer skips intermediate snapshots instead of blocking the engine.
type StateStreamHandler struct {
	engine *player.Engine
}

// NewStateStreamHandler creates a new websocket state stream handler
func NewStateStreamHandler(engine *player.Engine) *StateStreamHandler {
	return &StateStreamHandler{engine: engine}
}

// Stream handles GET /api/ws
func (h *StateStreamHandler) Stream(c *gin.Context) {
	conn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Log.Warn().
			Err(err).
			Str("client_ip", c.ClientIP()).
			Msg("Websocket upgrade failed")
		return
	}

	subID, snapshots := h.engine.Subscribe()
	logger.Log.Info().
		Str("subscription", subID).
		Str("client_ip", c.ClientIP()).
		Msg("Websocket client connected")

	done := make(chan struct{})
	go h.readPump(conn, done)
	// The write pump owns the connection lifetime. It must not be tied to the
	// request context: gin cancels it when this handler returns, which would
	// tear the stream down immediately.
	h.writePump(conn, snapshots, done)

	h.engine.Unsubscribe(subID)
	_ = conn.Close()
	logger.Log.Info().
		Str("subscription", subID).
		Msg("Websocket client disconnected")
}

// writePump sends the initial snapshot, then every subscribed snapshot,
// interleaved with keepalive pings. Returns when the subscription closes,
// the peer disconnects or a write fails.
func (h *StateStreamHandler) writePump(conn *websocket.Conn, snapshots <-chan player.Snapshot, done <-chan struct{}) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := conn.WriteJSON(h.engine.Snapshot()); err != nil {
		return
	}

	for {
		select {
		case <-done:
			return
		case snap, ok := <-snapshots:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(snap); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains incoming frames to service control messages and detect
// disconnects. Clients do not send commands over the socket; mutations go
// through the REST surface.
func (h *StateStreamHandler) readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)

	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// SetupStreamRoutes registers the websocket state stream route
func SetupStreamRoutes(apiGroup *gin.RouterGroup, engine *player.Engine) {
	handler := NewStateStreamHandler(engine)
	apiGroup.GET("/ws", handler.Stream)
}
