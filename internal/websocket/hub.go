package websocket

import (
	"encoding/json"
	"sync"

	"github.com/dom/taskflow/internal/auth"
	"github.com/dom/taskflow/internal/domain"
	"github.com/sirupsen/logrus"
)

const broadcastBuffer = 256

// Hub fans task events out to connected clients. A client only receives
// events for tasks it is allowed to read.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan domain.TaskEvent
	stop       chan struct{}
	done       chan struct{} // closed when Run() exits
	stopped    bool
	log        logrus.FieldLogger
	mu         sync.RWMutex
}

func NewHub(log logrus.FieldLogger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan domain.TaskEvent, broadcastBuffer),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
		log:        log.WithField("component", "websocket"),
	}
}

func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.stop:
			h.mu.Lock()
			h.stopped = true
			for client := range h.clients {
				client.Close()
			}
			h.clients = make(map[*Client]bool)
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			if !h.stopped {
				h.clients[client] = true
			}
			h.mu.Unlock()
			h.log.WithField("user_id", client.claims.UserID).Debug("client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			h.deliver(event)
		}
	}
}

// Stop shuts the hub down and closes every client. It blocks until Run exits.
func (h *Hub) Stop() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.stopped = true
	h.mu.Unlock()

	close(h.stop)
	<-h.done
}

// Publish queues an event for delivery. Events published after Stop are dropped.
func (h *Hub) Publish(event domain.TaskEvent) {
	select {
	case h.broadcast <- event:
	case <-h.done:
	default:
		h.log.WithField("task_id", event.TaskID).Warn("broadcast queue full, dropping task event")
	}
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.Close()
	}
}

// Unregister safely unregisters a client, handling the case where the hub may be stopped.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) deliver(event domain.TaskEvent) {
	msg, err := newTaskEventMessage(event)
	if err != nil {
		h.log.WithError(err).Error("failed to build task event message")
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.WithError(err).Error("failed to marshal task event message")
		return
	}

	target := &domain.Task{ID: event.TaskID, OwnerID: event.OwnerID}

	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		if auth.AuthorizeTaskAccess(client.claims, target, auth.OpRead) != nil {
			continue
		}
		select {
		case client.send <- data:
		default:
			// Slow consumer; drop it rather than stall everyone else.
			delete(h.clients, client)
			client.Close()
		}
	}
}
