package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/ekaty/ekaty-backend/internal/app/service"
	"github.com/ekaty/ekaty-backend/pkg/logger"
)

const sendBufferSize = 64

// Client is one dashboard connection following sync progress.
type Client struct {
	Hub   *ProgressHub
	Conn  *Conn
	Email string
	Send  chan []byte
}

// ProgressHub fans sync progress events out to every connected client.
type ProgressHub struct {
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte

	// last event, replayed to late joiners
	last []byte

	mu sync.RWMutex
}

func NewProgressHub() *ProgressHub {
	return &ProgressHub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		broadcast:  make(chan []byte, 1024),
	}
}

// Run dispatches hub traffic until ctx is cancelled.
func (h *ProgressHub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.Send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			if h.last != nil {
				client.Send <- h.last
			}
			total := len(h.clients)
			h.mu.Unlock()
			logger.Info("Progress client registered", map[string]interface{}{
				"email":   client.Email,
				"clients": total,
			})

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			logger.Info("Progress client unregistered", map[string]interface{}{
				"email":   client.Email,
				"clients": total,
			})

		case message := <-h.broadcast:
			h.mu.Lock()
			h.last = message
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					// slow reader
					delete(h.clients, client)
					close(client.Send)
					logger.Warn("Progress client send buffer full, disconnecting", map[string]interface{}{
						"email": client.Email,
					})
				}
			}
			h.mu.Unlock()
		}
	}
}

// Publish queues event for every client. Events are dropped when the hub is backed up.
func (h *ProgressHub) Publish(event service.ProgressEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		logger.Error("Failed to marshal progress event", err)
		return
	}

	select {
	case h.broadcast <- data:
	default:
		logger.Warn("Progress broadcast channel full, event dropped", map[string]interface{}{
			"run_id": event.RunID,
			"phase":  event.Phase,
		})
	}
}

func (h *ProgressHub) Register(client *Client) {
	h.register <- client
}

func (h *ProgressHub) Unregister(client *Client) {
	h.unregister <- client
}

// ClientCount returns the number of connected clients.
func (h *ProgressHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
