// Package websocket pushes bulk job events to connected admin browsers.
package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"seopilot/pkg/contracts"
	"seopilot/pkg/contracts/domain"
	"seopilot/pkg/contracts/events"
)

// broadcastBuffer is the number of frames queued before broadcasts are dropped
const broadcastBuffer = 256

// Hub maintains the set of active clients and broadcasts messages to the clients
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu     sync.RWMutex
	logger *slog.Logger
	replay func() []domain.JobEvent

	totalConnections atomic.Int64
	messagesSent     atomic.Int64
	messagesDropped  atomic.Int64
}

// NewHub creates a new Hub. Call Run to start it.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger.With(slog.String("component", "websocket.hub")),
	}
}

// WithReplay makes the hub send the events returned by fn to every newly
// registered client
func (h *Hub) WithReplay(fn func() []domain.JobEvent) *Hub {
	h.replay = fn
	return h
}

// Run is the hub's main loop. It returns when ctx is done, after closing
// every client.
func (h *Hub) Run(ctx context.Context) error {
	defer h.shutdown()
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("Hub shutting down")
			return nil

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			h.totalConnections.Add(1)

			h.logger.Info("Client registered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id),
				slog.String("username", client.username),
				slog.String("remote_addr", client.remoteAddr))
			h.greet(client)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()

			h.logger.Info("Client unregistered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id),
				slog.Duration("connection_duration", time.Since(client.connectedAt)))

		case message := <-h.broadcast:
			h.fanOut(message)
		}
	}
}

// fanOut sends message to every client, dropping clients whose buffer is full
func (h *Hub) fanOut(message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		select {
		case client.send <- message:
			h.messagesSent.Add(1)
		default:
			close(client.send)
			delete(h.clients, client)
			h.logger.Warn("Client send buffer full, disconnecting",
				slog.String("client_id", client.id))
		}
	}
}

// greet sends the connect frame and the replayed job events to a new client
func (h *Hub) greet(client *Client) {
	frames := []events.Message{{
		Type:      events.MessageTypeConnect,
		Timestamp: time.Now().UTC(),
		Data: events.ConnectData{
			ClientID: client.id,
			Username: client.username,
			Version:  contracts.Version,
		},
	}}
	if h.replay != nil {
		for _, event := range h.replay() {
			frames = append(frames, jobMessage(event))
		}
	}

	for _, frame := range frames {
		data, err := json.Marshal(frame)
		if err != nil {
			h.logger.Error("Error marshaling message", slog.String("error", err.Error()))
			continue
		}
		select {
		case client.send <- data:
		default:
			h.logger.Warn("Failed to greet client, buffer full", slog.String("client_id", client.id))
			return
		}
	}
}

func (h *Hub) shutdown() {
	close(h.done)
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

// Register adds a client to the hub. It is a no-op once the hub stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// BroadcastUpdate queues a frame for every connected client. Frames are
// dropped rather than blocking the caller when the queue is full.
func (h *Hub) BroadcastUpdate(eventType, jobID, status string, data interface{}) {
	frame := events.Message{
		Type:      events.MessageType(eventType),
		JobID:     jobID,
		Status:    status,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
	payload, err := json.Marshal(frame)
	if err != nil {
		h.logger.Error("Error marshaling message",
			slog.String("error", err.Error()),
			slog.String("message_type", eventType))
		return
	}

	select {
	case h.broadcast <- payload:
	case <-h.done:
	default:
		h.messagesDropped.Add(1)
		h.logger.Warn("Broadcast queue full, dropping message", slog.String("message_type", eventType))
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// GetHubMetrics returns current hub counters
func (h *Hub) GetHubMetrics() map[string]int64 {
	return map[string]int64{
		"active_clients":    int64(h.ClientCount()),
		"total_connections": h.totalConnections.Load(),
		"messages_sent":     h.messagesSent.Load(),
		"messages_dropped":  h.messagesDropped.Load(),
	}
}

func jobMessage(event domain.JobEvent) events.Message {
	return events.Message{
		Type:      events.MessageType(event.Type),
		JobID:     event.JobID,
		Status:    string(event.State),
		Data:      event,
		Timestamp: event.Timestamp,
	}
}
