// Package api provides the glyphmark HTTP API: one-shot annotation of
// uploaded documents and live annotation sessions over WebSocket.
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/FocuswithJustin/glyphmark/core/glyphs"
	"github.com/FocuswithJustin/glyphmark/internal/logging"
	"github.com/FocuswithJustin/glyphmark/internal/server"
)

// Version is reported by the root and health endpoints.
const Version = "0.3.0"

// Server serves the API for one configuration.
type Server struct {
	cfg      Config
	cors     server.CORSConfig
	sessions *SessionStore
	upgrader websocket.Upgrader
	started  time.Time
}

// New creates a server. A nil registry means the default target set.
func New(cfg Config) *Server {
	if cfg.Registry == nil {
		cfg.Registry = glyphs.Default()
	}
	s := &Server{
		cfg:      cfg,
		cors:     server.CORSConfig{AllowedOrigins: cfg.AllowedOrigins},
		sessions: NewSessionStore(cfg.Registry),
		started:  time.Now(),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// Sessions returns the live session store.
func (s *Server) Sessions() *SessionStore {
	return s.sessions
}

// Handler returns the routes wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	var handler http.Handler = s.routes()
	handler = server.BodyLimit(s.cfg.MaxBodyBytes, handler)
	handler = server.SecurityHeaders(server.APICSPConfig(), handler)
	handler = server.CORSMiddleware(s.cors, handler)
	return logging.CombinedMiddleware(handler)
}

// routes configures all HTTP routes.
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/annotate", s.handleAnnotate)
	mux.HandleFunc("/scan", s.handleScan)
	mux.HandleFunc("/sessions", s.handleSessions)
	mux.HandleFunc("/sessions/{id}", s.handleSessionByID)
	mux.HandleFunc("/history", s.handleHistory)
	mux.HandleFunc("/ws", s.handleWebSocket)

	return mux
}

// Start runs the API server until it fails.
func Start(cfg Config) error {
	s := New(cfg)

	if len(cfg.AllowedOrigins) > 0 {
		logging.SecurityEvent("cors_configured", "api",
			"mode", "restricted",
			"allowed_origins_count", len(cfg.AllowedOrigins))
	} else {
		logging.SecurityEvent("cors_configured", "api",
			"mode", "permissive",
			"note", "allowing all origins (*)")
	}
	logging.ServerStartup("rest_api", "http", cfg.Port,
		"websocket_protocol", "ws",
		"targets", s.cfg.Registry.Len(),
		"history", cfg.History != nil)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}
