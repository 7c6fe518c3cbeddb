// Package notifications delivers real-time events to connected users over
// WebSockets, with Redis pub/sub bridging between instances.
package notifications

import (
	"errors"
	"sync"

	"yatube/internal/observability"
)

const (
	// maxClientsPerUser bounds how many tabs/devices one account may hold open.
	maxClientsPerUser = 12
	// maxClientsTotal bounds total sockets per instance.
	maxClientsTotal = 4096
)

var (
	ErrTooManyClients     = errors.New("connection limit reached")
	ErrTooManyUserClients = errors.New("per-user connection limit reached")
)

// Hub tracks connected clients by user ID and fans events out to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[uint]map[*Client]struct{}
	total   int
	closed  bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[uint]map[*Client]struct{})}
}

// Register adds a client under its user ID, enforcing per-user and global
// connection caps.
func (h *Hub) Register(c *Client) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrTooManyClients
	}
	if h.total >= maxClientsTotal {
		return ErrTooManyClients
	}
	set := h.clients[c.userID]
	if len(set) >= maxClientsPerUser {
		return ErrTooManyUserClients
	}
	if set == nil {
		set = make(map[*Client]struct{})
		h.clients[c.userID] = set
	}
	set[c] = struct{}{}
	h.total++
	observability.WebSocketConnectionsTotal.Inc()
	return nil
}

// Unregister removes a client and closes its send channel. Safe to call
// more than once.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[c.userID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.userID)
	}
	h.total--
	observability.WebSocketConnectionsTotal.Dec()
	close(c.send)
}

// Send delivers payload to every connection of one user. Slow consumers are
// skipped, never waited on.
func (h *Hub) Send(userID uint, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients[userID] {
		c.TrySend(payload)
	}
}

// SendAll delivers payload to every connected client.
func (h *Hub) SendAll(payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, set := range h.clients {
		for c := range set {
			c.TrySend(payload)
		}
	}
}

// ConnectionCount reports the number of open sockets.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.total
}

// Shutdown disconnects everyone and rejects new registrations.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for _, set := range h.clients {
		for c := range set {
			close(c.send)
			h.total--
			observability.WebSocketConnectionsTotal.Dec()
		}
	}
	h.clients = make(map[uint]map[*Client]struct{})
}
