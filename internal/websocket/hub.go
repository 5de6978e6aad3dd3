// Package websocket feeds newly created tickets to connected technician
// dashboards in real time.
package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/stirosario/sti-ai-chat-sub006/internal/dto"
	"github.com/stirosario/sti-ai-chat-sub006/internal/pkg/logger"
)

const clusterChannel = "ticket_feed"

type Hub struct {
	// TechnicianID -> open connections (multi-device)
	clients map[string][]*Client

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	// Redis relays ticket events across instances
	rdb *redis.Client

	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[string][]*Client),
		rdb:        rdb,
		logger:     log,
	}
}

func (h *Hub) Run() {
	if h.rdb != nil {
		go h.subscribeToRedis()
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.TechnicianID] = append(h.clients[client.TechnicianID], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Technician connected", map[string]interface{}{"technician_id": client.TechnicianID})

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.TechnicianID]; ok {
				for i, c := range clients {
					if c == client {
						h.clients[client.TechnicianID] = append(clients[:i], clients[i+1:]...)
						close(client.Send)
						break
					}
				}
				if len(h.clients[client.TechnicianID]) == 0 {
					delete(h.clients, client.TechnicianID)
					h.logger.Info("Hub", "Technician disconnected", map[string]interface{}{"technician_id": client.TechnicianID})
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastTicket pushes a new ticket to every connected technician. With
// Redis available the fan-out goes through the cluster channel, which this
// instance also subscribes to, so each ticket is delivered exactly once
// whether there is one instance or many.
func (h *Hub) BroadcastTicket(summary dto.TicketSummary) {
	data, _ := json.Marshal(map[string]interface{}{
		"type": "ticket_created",
		"data": summary,
	})

	if h.rdb == nil {
		h.broadcastLocal(data)
		return
	}
	if err := h.rdb.Publish(context.Background(), clusterChannel, data).Err(); err != nil {
		h.logger.Warn("Hub", "Failed to relay ticket to cluster, delivering locally", map[string]interface{}{"error": err.Error()})
		h.broadcastLocal(data)
	}
}

func (h *Hub) broadcastLocal(data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, clients := range h.clients {
		for _, client := range clients {
			select {
			case client.Send <- data:
			default:
				// Slow consumer: drop the connection, not the feed.
				close(client.Send)
				go func(c *Client) { h.unregister <- c }(client)
			}
		}
	}
}

// subscribeToRedis delivers tickets created on other instances.
func (h *Hub) subscribeToRedis() {
	sub := h.rdb.Subscribe(context.Background(), clusterChannel)
	defer sub.Close()

	for msg := range sub.Channel() {
		h.broadcastLocal([]byte(msg.Payload))
	}
}
