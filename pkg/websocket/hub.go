package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gocomet/ride-booking/pkg/logger"
)

// LocationHandler receives a position pushed by a connected client
type LocationHandler func(ctx context.Context, userID, userType string, lat, lng float64) error

// Hub maintains active client connections and routes messages to them
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
	logger     *logger.Logger

	onLocation LocationHandler
}

// Message represents a WebSocket message
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// NewHub creates a new WebSocket hub
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     log,
	}
}

// OnLocation sets the handler for client location pushes. Call before Run.
func (h *Hub) OnLocation(fn LocationHandler) {
	h.onLocation = fn
}

// Run starts the hub's main loop and returns after Stop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Info("Client registered",
				logger.String("client_id", client.ID),
				logger.String("user_id", client.UserID),
				logger.String("user_type", client.UserType),
			)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				h.logger.Info("Client unregistered",
					logger.String("client_id", client.ID),
				)
			}
			h.mu.Unlock()

		case <-h.done:
			// Closing the sockets ends both pumps; Send stays open so a
			// pump that is mid-reply cannot write to a closed channel.
			h.mu.Lock()
			for client := range h.clients {
				if client.Conn != nil {
					client.Conn.Close()
				}
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Stop closes every client and ends Run
func (h *Hub) Stop() {
	select {
	case <-h.done:
	default:
		close(h.done)
	}
}

// Register registers a new client
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

// Unregister unregisters a client
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// SendToUser sends a message to every connection of one user. It reports
// how many connections accepted the message.
func (h *Hub) SendToUser(userID, userType string, message Message) int {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("Failed to marshal message", logger.Err(err))
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for client := range h.clients {
		if client.UserID != userID || client.UserType != userType {
			continue
		}
		select {
		case client.Send <- data:
			sent++
		default:
			h.logger.Warn("Failed to send message to client",
				logger.String("user_id", userID),
				logger.String("client_id", client.ID),
			)
		}
	}
	return sent
}

// SendToBooking sends a message to clients subscribed to a booking
func (h *Hub) SendToBooking(bookingID string, message Message) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("Failed to marshal booking message", logger.Err(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if client.IsSubscribed(bookingID) {
			select {
			case client.Send <- data:
			default:
				h.logger.Warn("Failed to send booking message to client",
					logger.String("booking_id", bookingID),
					logger.String("client_id", client.ID),
				)
			}
		}
	}
}

// GetActiveConnections returns the number of active connections
func (h *Hub) GetActiveConnections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// GetClientsByUserType returns count of clients by user type
func (h *Hub) GetClientsByUserType(userType string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for client := range h.clients {
		if client.UserType == userType {
			count++
		}
	}
	return count
}

func (h *Hub) handleLocation(c *Client, lat, lng float64) error {
	if h.onLocation == nil {
		return nil
	}
	return h.onLocation(context.Background(), c.UserID, c.UserType, lat, lng)
}
