// Package server provides the HTTP transport for the Toolgate gateway.
package server

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/rs/cors"

	"github.com/ayusman/toolgate/internal/gateway"
	"github.com/ayusman/toolgate/internal/server/api"
	"github.com/ayusman/toolgate/internal/store"
)

// maxMessageBytes bounds a /message request body.
const maxMessageBytes = 1 << 20

// Config holds the server configuration.
type Config struct {
	Gateway *gateway.Gateway
	// Store enables the history API when set.
	Store  *store.Store
	Logger hclog.Logger
}

// Server represents the HTTP server for the Toolgate gateway.
type Server struct {
	config  Config
	logger  hclog.Logger
	handler http.Handler
	start   time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	logger := config.Logger
	if logger == nil {
		logger = hclog.Default()
	}
	s := &Server{
		config: config,
		logger: logger.Named("server"),
		start:  time.Now(),
	}
	s.handler = cors.AllowAll().Handler(s.routes())
	return s
}

// routes configures all HTTP routes for the server.
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/sse", s.handleSSE)
	mux.HandleFunc("/message", s.handleMessage)
	mux.Handle("/ws", newWSHandler(s.config.Gateway, s.logger))

	pluginsHandler := api.NewPluginsHandler(s.config.Gateway)
	mux.Handle("/api/plugins", pluginsHandler)
	mux.Handle("/api/plugins/", pluginsHandler)

	if s.config.Store != nil {
		mux.Handle("/api/history", api.NewHistoryHandler(s.config.Store))
	}

	return mux
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	health := s.config.Gateway.Health()
	response := map[string]any{
		"status":   "ok",
		"plugins":  health.Plugins,
		"sessions": health.Sessions,
		"uptime":   time.Since(s.start).String(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// handleMessage handles POST requests to /message. Protocol errors ride in
// the JSON-RPC error field; the HTTP status is 200 for every well-delivered
// request.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxMessageBytes))
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	response := s.config.Gateway.OnMessage(r.Context(), body)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Warn("failed to write response", "error", err)
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}
