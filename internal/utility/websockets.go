package utility

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const writeWait = 5 * time.Second

var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow CORS for development
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Notice is the payload pushed to a user's open sockets.
type Notice struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Hub holds the active connections of each user. A user may have several
// tabs open at once.
type Hub struct {
	mu      sync.Mutex
	clients map[string]map[*websocket.Conn]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]map[*websocket.Conn]struct{})}
}

// Register a new client connection
func (h *Hub) Register(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.clients[userID]
	if !ok {
		conns = make(map[*websocket.Conn]struct{})
		h.clients[userID] = conns
	}
	conns[conn] = struct{}{}
	log.Info().Str("user_id", userID).Int("connections", len(conns)).Msg("WebSocket Client Connected")
}

// Unregister a client (when they close the tab)
func (h *Hub) Unregister(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(userID, conn)
}

func (h *Hub) removeLocked(userID string, conn *websocket.Conn) {
	conns, ok := h.clients[userID]
	if !ok {
		return
	}
	if _, ok := conns[conn]; !ok {
		return
	}
	delete(conns, conn)
	conn.Close()
	if len(conns) == 0 {
		delete(h.clients, userID)
	}
	log.Info().Str("user_id", userID).Msg("WebSocket Client Disconnected")
}

// Connections reports how many sockets userID has open.
func (h *Hub) Connections(userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients[userID])
}

// Notify sends n to every socket of userID and returns how many received it.
// Sockets that fail to write are dropped.
func (h *Hub) Notify(userID string, n Notice) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	sent := 0
	for conn := range h.clients[userID] {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(n); err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("Failed to send WS message, removing client")
			h.removeLocked(userID, conn)
			continue
		}
		sent++
	}
	return sent
}

// Close drops every connection.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for userID, conns := range h.clients {
		for conn := range conns {
			conn.Close()
		}
		delete(h.clients, userID)
	}
}
