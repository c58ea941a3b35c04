package gateway

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Handler upgrades HTTP requests to WebSocket connections.
type Handler struct {
	manager *Manager
}

// NewHandler creates a WebSocket handler over the connection manager.
func NewHandler(manager *Manager) *Handler {
	return &Handler{manager: manager}
}

// ServeWS handles a WebSocket upgrade. The display name comes from the
// username query parameter, with a guest fallback.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	ws, err := h.manager.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	id := uuid.New().String()
	username := r.URL.Query().Get("username")
	if username == "" {
		username = fmt.Sprintf("Guest-%s", id[:4])
	}

	conn := &Connection{
		id:          id,
		username:    username,
		conn:        ws,
		send:        make(chan []byte, 256),
		manager:     h.manager,
		connectedAt: time.Now(),
	}
	h.manager.register(conn)

	go conn.writePump()
	go conn.readPump()

	log.Info().
		Str("connection_id", conn.id).
		Str("username", username).
		Msg("client connected")
}

// ServeStats reports live connection and room counts.
func (h *Handler) ServeStats(w http.ResponseWriter, r *http.Request) {
	connections, rooms := h.manager.Stats()
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"connections":%d,"rooms":%d}`, connections, rooms)
}

// RegisterRoutes registers the gateway's HTTP routes.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", h.ServeWS)
	mux.HandleFunc("/ws/stats", h.ServeStats)
}
