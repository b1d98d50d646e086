package notify

import (
	"context"
	"sync"

	"github.com/kbukum/easychat/logger"
)

// ClientBuffer is the number of frames queued per subscriber. A subscriber
// whose buffer is full misses the frame.
const ClientBuffer = 256

// Client is one event stream of a user. A user may hold several.
type Client struct {
	id     string
	userID int64
	events chan []byte
}

// NewClient creates a subscriber for userID.
func NewClient(id string, userID int64) *Client {
	return &Client{
		id:     id,
		userID: userID,
		events: make(chan []byte, ClientBuffer),
	}
}

// ID returns the client's unique identifier.
func (c *Client) ID() string { return c.id }

// UserID returns the user the stream belongs to.
func (c *Client) UserID() int64 { return c.userID }

// Events returns the channel of encoded frames. It is closed when the client
// is unregistered or the hub stops.
func (c *Client) Events() <-chan []byte { return c.events }

// send queues a frame without blocking and reports whether it was queued.
func (c *Client) send(frame []byte) bool {
	select {
	case c.events <- frame:
		return true
	default:
		return false
	}
}

// Hub fans chat events out to the streams of their recipients. All client
// bookkeeping happens on the Run goroutine.
type Hub struct {
	clients    map[string]*Client
	byUser     map[int64]map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan Event
	done       chan struct{}
	stopped    bool
	mu         sync.RWMutex
	log        *logger.Logger
}

// NewHub creates a hub. Run must be started before clients register.
func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Hub{
		clients:    make(map[string]*Client),
		byUser:     make(map[int64]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Event, ClientBuffer),
		done:       make(chan struct{}),
		log:        log.WithComponent("notify"),
	}
}

// Run is the hub's event loop. It blocks until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.closeAllClients()
			return

		case client := <-h.register:
			h.add(client)

		case client := <-h.unregister:
			h.remove(client)

		case evt := <-h.broadcast:
			h.deliver(evt)
		}
	}
}

// Stop shuts the hub down, closing every client stream. Safe to call more
// than once.
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.stopped {
		h.stopped = true
		close(h.done)
	}
}

// Register adds a client. It returns false if the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client and closes its stream.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish queues evt for delivery. It returns ctx.Err() if ctx ends first
// and is a no-op after Stop.
func (h *Hub) Publish(ctx context.Context, evt Event) error {
	if len(evt.Recipients) == 0 {
		return nil
	}
	select {
	case h.broadcast <- evt:
		return nil
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) add(client *Client) {
	h.mu.Lock()
	if prev, ok := h.clients[client.id]; ok && prev != client {
		h.detach(prev)
		h.log.Warn("Client id reused, closing previous stream", map[string]interface{}{
			"client_id":        client.id,
			logger.FieldUserID: prev.userID,
		})
	}
	h.clients[client.id] = client
	streams := h.byUser[client.userID]
	if streams == nil {
		streams = make(map[string]*Client)
		h.byUser[client.userID] = streams
	}
	streams[client.id] = client
	total := len(h.clients)
	h.mu.Unlock()

	h.log.Debug("Client registered", map[string]interface{}{
		"client_id":        client.id,
		logger.FieldUserID: client.userID,
		"total_clients":    total,
	})
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	if h.clients[client.id] == client {
		h.detach(client)
	}
	total := len(h.clients)
	h.mu.Unlock()

	h.log.Debug("Client unregistered", map[string]interface{}{
		"client_id":     client.id,
		"total_clients": total,
	})
}

// detach drops client from both indexes and closes its stream. h.mu must be held.
func (h *Hub) detach(client *Client) {
	delete(h.clients, client.id)
	if streams := h.byUser[client.userID]; streams != nil {
		if streams[client.id] == client {
			delete(streams, client.id)
		}
		if len(streams) == 0 {
			delete(h.byUser, client.userID)
		}
	}
	close(client.events)
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, client := range h.clients {
		close(client.events)
		delete(h.clients, id)
	}
	h.byUser = make(map[int64]map[string]*Client)
	h.log.Debug("All clients closed during shutdown")
}

// deliver sends evt to every stream of every recipient.
func (h *Hub) deliver(evt Event) {
	frame, err := Encode(evt.Type, evt.Data)
	if err != nil {
		h.log.Error("Dropping unencodable event", map[string]interface{}{
			"event":           evt.Type,
			logger.FieldError: err.Error(),
		})
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	sent, dropped := 0, 0
	for _, userID := range evt.Recipients {
		for _, client := range h.byUser[userID] {
			if client.send(frame) {
				sent++
				continue
			}
			dropped++
			h.log.Warn("Client buffer full, dropping event", map[string]interface{}{
				"client_id":        client.id,
				logger.FieldUserID: client.userID,
				"event":            evt.Type,
			})
		}
	}

	h.log.Debug("Event delivered", map[string]interface{}{
		"event":   evt.Type,
		"sent":    sent,
		"dropped": dropped,
	})
}

// ClientCount returns the number of connected streams.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// UserCount returns the number of users with at least one stream.
func (h *Hub) UserCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byUser)
}

var _ Publisher = (*Hub)(nil)
