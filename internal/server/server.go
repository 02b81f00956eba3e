// Package server wires the store, hub and intake pipeline into the HTTP and
// WebSocket surface of the chat service.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Server owns the process-wide hub and pipeline and serves HTTP requests.
type Server struct {
	cfg      Config
	store    Store
	hub      *Hub
	pipeline *Pipeline
	upgrader websocket.Upgrader
	origins  originPolicy
	log      *slog.Logger
}

// New builds a Server on top of st.
func New(cfg Config, st Store, log *slog.Logger) *Server {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	cfg = cfg.Sanitize()
	hub := NewHub(log.With("component", "hub"))

	s := &Server{
		cfg:      cfg,
		store:    st,
		hub:      hub,
		pipeline: NewPipeline(st, hub, HTMLRenderer{}, log.With("component", "pipeline")),
		origins:  newOriginPolicy(cfg.AllowedOrigins, log),
		log:      log,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// Hub returns the connection registry.
func (s *Server) Hub() *Hub { return s.hub }

// Config returns the sanitized configuration.
func (s *Server) Config() Config { return s.cfg }

// Shutdown closes every live session and waits for their pumps.
func (s *Server) Shutdown(timeout time.Duration) error {
	return s.hub.Shutdown(timeout)
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if s.origins.allows(r) {
		return true
	}

	s.log.Warn("blocked websocket connection from disallowed origin", "origin", r.Header.Get("Origin"))
	return false
}
