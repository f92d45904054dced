// Package wsock implements Gun's WebSocket peer transport: an outbound
// dialer with retry/backoff and an inbound upgrade handler, both feeding
// raw DAM frames to internal/mesh.Mesh. Grounded on the teacher's
// internal/fabric/websocket.go (ping/pong keepalive discipline, origin
// checking) and original_source/src/network.rs WebSocketServer, adapted
// from OCX's Hub/Spoke registration to Gun peer registration.
package wsock

import (
	"log/slog"
	"math"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gundb/gun-go/internal/gunerr"
	"github.com/gundb/gun-go/internal/mesh"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	writeWait  = 10 * time.Second
)

// Conn adapts a gorilla/websocket connection to mesh.Sender.
type Conn struct {
	ws   *websocket.Conn
	done chan struct{}
}

// Send writes raw as a text frame, matching DAM's JSON-over-text wire
// format.
func (c *Conn) Send(raw []byte) error {
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.TextMessage, raw)
}

// Close shuts down the ping loop and underlying connection.
func (c *Conn) Close() error {
	select {
	case <-c.done:
	default:
		close(c.done)
	}
	return c.ws.Close()
}

// Dial connects to a peer's WebSocket URL with exponential backoff (spec
// §6: peers reconnect automatically), registers it with m via Hi, and
// starts the read/ping loops. Dial returns the peer at once; the attempts
// run in the background. Failed attempts are retried up to maxRetries
// times (without limit when maxRetries <= 0), and the count starts over
// after a connection that later drops. There is no call that stops them.
func Dial(url string, m *mesh.Mesh, maxRetries int) (*mesh.Peer, error) {
	p := mesh.NewPeer(url)
	go dialLoop(url, p, m, maxRetries)
	return p, nil
}

func dialLoop(url string, p *mesh.Peer, m *mesh.Mesh, maxRetries int) {
	attempt := 0
	for maxRetries <= 0 || attempt < maxRetries {
		attempt++
		p.MarkTried()
		ws, _, err := websocket.DefaultDialer.Dial(url, nil)
		if err != nil {
			backoff := backoffFor(attempt)
			slog.Warn("peer dial failed, retrying", "url", url, "attempt", attempt, "backoff", backoff)
			time.Sleep(backoff)
			continue
		}

		conn := &Conn{ws: ws, done: make(chan struct{})}
		p.SetSender(conn)
		m.Hi(p)
		slog.Info("peer connected", "url", url)

		runConnection(conn, p, m)

		p.ClearSender()
		m.Bye(p.ID)
		attempt = 0 // reset backoff after a successful, later-dropped connection
	}
}

// backoffFor grows ~exponentially, capped at 60s, matching Gun.js peer
// retry defaults (original_source dam.rs Peer.retry default of 60).
func backoffFor(attempt int) time.Duration {
	secs := math.Min(math.Pow(2, float64(attempt)), 60)
	return time.Duration(secs) * time.Second
}

func runConnection(conn *Conn, p *mesh.Peer, m *mesh.Mesh) {
	defer conn.Close()

	conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	conn.ws.SetPongHandler(func(string) error {
		conn.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				conn.ws.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			case <-conn.done:
				return
			}
		}
	}()

	for {
		_, payload, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("peer connection error", "peer", p.ID, "err", err)
			}
			return
		}
		if err := m.Hear(payload, p); err != nil {
			slog.Warn("mesh failed to process frame", "peer", p.ID, "err", gunerr.Wrap(gunerr.KindNetwork, "wsock.runConnection", err))
		}
	}
}
