package server

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-hclog"

	"github.com/ayusman/toolgate/internal/gateway"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Cross-origin filtering is handled by the CORS layer
	},
}

// wsHandler serves the session event stream over WebSocket. A WS connection
// is an ordinary session: the manifest notification arrives as the first
// message, and the session is reclaimed when the socket closes.
type wsHandler struct {
	gateway *gateway.Gateway
	logger  hclog.Logger
}

func newWSHandler(g *gateway.Gateway, logger hclog.Logger) *wsHandler {
	return &wsHandler{gateway: g, logger: logger.Named("ws")}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *wsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sess := h.gateway.OpenSession()
	defer h.gateway.CloseSession(sess.ID)
	h.logger.Debug("ws client connected", "session", sess.ID)

	// Read loop: detects the client closing the socket.
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-readDone:
			h.logger.Debug("ws client disconnected", "session", sess.ID)
			return

		case event, open := <-sess.Events():
			if !open {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, event); err != nil {
				h.gateway.CloseSession(sess.ID)
				return
			}
		}
	}
}
