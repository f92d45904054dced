package wsock

import (
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/gundb/gun-go/internal/mesh"
)

// upgrader mirrors the teacher's origin-validation discipline
// (internal/fabric/websocket.go buildCheckOrigin): when GUN_ENV is
// "production" and GUN_ALLOWED_ORIGINS is non-empty, only the origins it
// lists are accepted; otherwise every origin is accepted.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     buildCheckOrigin(),
}

func buildCheckOrigin() func(r *http.Request) bool {
	env := os.Getenv("GUN_ENV")
	allowedRaw := os.Getenv("GUN_ALLOWED_ORIGINS")

	if env == "production" && allowedRaw != "" {
		allowed := make(map[string]bool)
		for _, origin := range strings.Split(allowedRaw, ",") {
			allowed[strings.TrimSpace(origin)] = true
		}
		return func(r *http.Request) bool {
			return allowed[r.Header.Get("Origin")]
		}
	}
	return func(r *http.Request) bool { return true }
}

// Handler upgrades incoming HTTP connections to WebSocket and registers
// them as mesh peers (spec §6: the relay accepts inbound peer
// connections on its /gun endpoint).
func Handler(m *mesh.Mesh) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Error("websocket upgrade failed", "err", err)
			return
		}

		p := mesh.NewPeer(r.RemoteAddr)
		conn := &Conn{ws: ws, done: make(chan struct{})}
		p.SetSender(conn)
		m.Hi(p)
		slog.Info("inbound peer connected", "remote", r.RemoteAddr, "peer", p.ID)

		runConnection(conn, p, m)
		p.ClearSender()
		m.Bye(p.ID)
	}
}
