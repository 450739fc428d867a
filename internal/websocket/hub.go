// Package websocket streams notifications to toast viewers over WebSocket.
package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/princekumarofficial/portfolio-studio/internal/types"
)

var ErrBroadcastFull = errors.New("broadcast queue full")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Viewers run on the same machine as the shell.
		return true
	},
}

// Hub keeps the connected viewers and broadcasts every notification to all
// of them. It implements events.Publisher.
type Hub struct {
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{}

	mu     sync.RWMutex
	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 64),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run owns the client set until ctx is done, then disconnects everyone.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			h.mu.Unlock()
			h.logger.Info("Notification viewer connected", "remote_addr", client.remoteAddr)

		case client := <-h.unregister:
			h.drop(client)

		case message := <-h.broadcast:
			h.mu.RLock()
			var slow []*Client
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					slow = append(slow, client)
				}
			}
			h.mu.RUnlock()

			for _, client := range slow {
				h.logger.Warn("Dropping slow notification viewer", "remote_addr", client.remoteAddr)
				h.drop(client)
			}
		}
	}
}

func (h *Hub) drop(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
		h.logger.Info("Notification viewer disconnected", "remote_addr", client.remoteAddr)
	}
}

// Publish queues event for every connected viewer without blocking.
func (h *Hub) Publish(event *types.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	select {
	case h.broadcast <- data:
		return nil
	default:
		return ErrBroadcastFull
	}
}

// ServeHTTP upgrades the request and registers the connection as a viewer.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket connection", "error", err.Error())
		return
	}

	client := newClient(conn, h, r.RemoteAddr)
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	client.start()
}

// ClientCount returns the number of connected viewers
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
