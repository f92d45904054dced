// Package relayhttp exposes the relay's HTTP surface: the WebSocket
// upgrade endpoint, a status page, and Prometheus metrics. Grounded on
// the teacher's internal/api/server.go gorilla/mux router with a CORS
// middleware, adapted from OCX's REST/JSON gateway to Gun's WS+status
// surface (spec §7 External Interfaces).
package relayhttp

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gundb/gun-go/internal/mesh"
	"github.com/gundb/gun-go/internal/transport/wsock"
)

// Server is the relay's HTTP surface.
type Server struct {
	router    *mux.Router
	mesh      *mesh.Mesh
	startedAt time.Time
}

// New builds a Server wired to m. It always mounts /gun (WS upgrade) and
// /status; /metrics is mounted separately via MountMetrics when the
// caller wants Prometheus exposed.
func New(m *mesh.Mesh) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		mesh:      m,
		startedAt: time.Now(),
	}

	s.router.Use(corsMiddleware)
	s.router.Use(requestIDMiddleware)
	s.router.HandleFunc("/gun", wsock.Handler(m)).Methods("GET")
	s.router.HandleFunc("/status", s.handleStatus).Methods("GET")

	return s
}

// MountMetrics adds a /metrics endpoint serving the default Prometheus
// registry (spec §5 Metrics).
func (s *Server) MountMetrics() {
	s.router.Handle("/metrics", promhttp.Handler()).Methods("GET")
}

// Handler returns the server's http.Handler for use with http.ListenAndServe.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe starts the HTTP server on addr, logging a startup banner
// in the teacher's style.
func (s *Server) ListenAndServe(addr string) error {
	slog.Info("relay HTTP server listening", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestIDMiddleware stamps every request with a correlation id (spec §5
// "IDs"): a uuid, not a soul, since it never touches the graph.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"peers":      s.mesh.Near(),
		"uptime_sec": time.Since(s.startedAt).Seconds(),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
