package broadcast

import (
	"context"
	"log/slog"
	"sync"
)

// Conn is the transport handle the hub writes to. *websocket.Conn from
// gofiber/contrib/websocket satisfies it; tests substitute a fake.
type Conn interface {
	WriteJSON(v any) error
	Close() error
}

// Client represents one connected transport. UserID is empty until the
// connection completes a register request and the gateway binds it.
type Client struct {
	ID     string // connection id
	UserID string
	Conn   Conn

	writeMu sync.Mutex
}

// Send writes a JSON frame to the client. Writes are serialized per
// connection; the websocket connection itself is not concurrency safe.
func (c *Client) Send(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.Conn.WriteJSON(v)
}

// Frame is the outbound envelope written to clients. Payload is omitted
// for signal-only events such as roomListUpdated.
type Frame struct {
	Type    string `json:"type"`
	Seq     int64  `json:"seq,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

// Hub tracks live connections and resolves user ids to them for event
// fan-out. It knows nothing about rooms: recipient sets are decided by
// the registry and arrive fully resolved.
type Hub struct {
	clients  map[string]*Client // connection id -> Client
	byUser   map[string]string  // user id -> connection id
	outbound chan *delivery
	done     chan struct{}
	mu       sync.RWMutex
	logger   *slog.Logger
}

// delivery is one queued fan-out. All=true targets every connection;
// otherwise Recipients holds the user ids to deliver to.
type delivery struct {
	All        bool
	Recipients []string
	Frame      Frame
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients:  make(map[string]*Client),
		byUser:   make(map[string]string),
		outbound: make(chan *delivery, 256),
		done:     make(chan struct{}),
		logger:   slog.Default(),
	}
}

// Run starts the hub's main loop. It accepts a context for graceful shutdown.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("hub shutting down")
			h.closeAllClients()
			close(h.done)
			return
		case d := <-h.outbound:
			h.handleDelivery(d)
		}
	}
}

// Wait blocks until the hub has stopped.
func (h *Hub) Wait() {
	<-h.done
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		_ = client.Conn.Close()
	}
	h.clients = make(map[string]*Client)
	h.byUser = make(map[string]string)
}

func (h *Hub) handleDelivery(d *delivery) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if d.All {
		for _, client := range h.clients {
			h.sendToClient(client, d.Frame)
		}
		return
	}
	for _, userID := range d.Recipients {
		if connID, ok := h.byUser[userID]; ok {
			if client, ok := h.clients[connID]; ok {
				h.sendToClient(client, d.Frame)
			}
		}
	}
}

func (h *Hub) sendToClient(client *Client, frame Frame) {
	if err := client.Send(frame); err != nil {
		h.logger.Warn("failed to send to client",
			"connID", client.ID, "type", frame.Type, "error", err)
	}
}

// Register adds a connection to the hub. It is synchronous so a Bind
// right after a register round-trip always sees the connection.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.ID] = client
	if client.UserID != "" {
		h.byUser[client.UserID] = client.ID
	}
	h.logger.Debug("connection registered", "connID", client.ID)
}

// Unregister removes a connection from the hub.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	delete(h.clients, client.ID)
	if client.UserID != "" && h.byUser[client.UserID] == client.ID {
		delete(h.byUser, client.UserID)
	}
	h.logger.Debug("connection unregistered", "connID", client.ID, "userID", client.UserID)
}

// Bind associates a registered identity with a connection. Later
// deliveries addressed to userID reach this connection.
func (h *Hub) Bind(connID, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.clients[connID]
	if !ok {
		return
	}
	client.UserID = userID
	h.byUser[userID] = connID
	h.logger.Debug("identity bound", "connID", connID, "userID", userID)
}

// SendToUsers queues a frame for the given user ids. An empty list is a
// no-op, never a broadcast.
func (h *Hub) SendToUsers(userIDs []string, frame Frame) {
	if len(userIDs) == 0 {
		return
	}
	h.outbound <- &delivery{Recipients: userIDs, Frame: frame}
}

// SendToAll queues a frame for every live connection.
func (h *Hub) SendToAll(frame Frame) {
	h.outbound <- &delivery{All: true, Frame: frame}
}

// GetClient returns a client by connection id.
func (h *Hub) GetClient(connID string) *Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clients[connID]
}

// ClientCount returns the total number of live connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
