package server

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 2 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// StatusHandler pushes every published Status to WebSocket clients as JSON.
type StatusHandler struct {
	hub *Hub
}

// NewStatusHandler creates a StatusHandler reading from hub.
func NewStatusHandler(hub *Hub) *StatusHandler {
	return &StatusHandler{hub: hub}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	updates, unsubscribe := h.hub.SubscribeStatus()
	defer unsubscribe()

	// The read loop only notices the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := h.write(conn, h.hub.Status()); err != nil {
		return
	}

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case status := <-updates:
			if err := h.write(conn, status); err != nil {
				return
			}
		}
	}
}

func (h *StatusHandler) write(conn *websocket.Conn, status Status) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(status)
}
