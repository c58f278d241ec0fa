package server

import (
	"fmt"
	"net/http"
	"time"
)

// keepaliveInterval is how often an idle SSE connection receives a comment
// frame. Writing is also how client disconnection is detected, so this
// bounds the time until a dead connection starts being reclaimed.
const keepaliveInterval = 500 * time.Millisecond

// handleSSE handles GET requests to /sse. It opens a session and streams its
// events as Server-Sent-Events frames; the first frame carries the tool
// manifest notification.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sess := s.config.Gateway.OpenSession()
	defer s.config.Gateway.CloseSession(sess.ID)
	s.logger.Debug("sse client connected", "session", sess.ID)

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("sse client disconnected", "session", sess.ID)
			return

		case event, open := <-sess.Events():
			if !open {
				return
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", event); err != nil {
				s.config.Gateway.CloseSession(sess.ID)
				return
			}
			flusher.Flush()

		case <-keepalive.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				s.config.Gateway.CloseSession(sess.ID)
				return
			}
			flusher.Flush()
		}
	}
}
