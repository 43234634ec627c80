package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/recall/internal/domain"
)

// ClientObserver is told the connected client count after every change.
type ClientObserver interface {
	SetWebsocketClients(n int)
}

// Hub fans recognition events out to the websocket clients of a subject.
type Hub struct {
	clients    map[*Client]bool
	subjects   map[uuid.UUID]map[*Client]bool
	broadcast  chan Event
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex

	observer ClientObserver
	logger   *slog.Logger
}

func NewHub(logger *slog.Logger, observer ClientObserver) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		subjects:   make(map[uuid.UUID]map[*Client]bool),
		broadcast:  make(chan Event, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		observer:   observer,
		logger:     logger.With("component", "ws_hub"),
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case event := <-h.broadcast:
			h.broadcastToSubject(event)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	if h.subjects[client.subjectID] == nil {
		h.subjects[client.subjectID] = make(map[*Client]bool)
	}
	h.subjects[client.subjectID][client] = true
	n := len(h.clients)
	h.mu.Unlock()

	h.observe(n)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	h.dropLocked(client)
	n := len(h.clients)
	h.mu.Unlock()

	h.observe(n)
}

// dropLocked forgets client and closes its send channel exactly once.
func (h *Hub) dropLocked(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	delete(h.subjects[client.subjectID], client)
	if len(h.subjects[client.subjectID]) == 0 {
		delete(h.subjects, client.subjectID)
	}
	close(client.send)
}

func (h *Hub) broadcastToSubject(event Event) {
	message, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to marshal ws event", "type", event.Type, "error", err)
		return
	}

	h.mu.Lock()
	for client := range h.subjects[event.SubjectID] {
		select {
		case client.send <- message:
		default:
			// slow consumer
			h.dropLocked(client)
		}
	}
	n := len(h.clients)
	h.mu.Unlock()

	h.observe(n)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	for client := range h.clients {
		h.dropLocked(client)
	}
	h.mu.Unlock()

	h.observe(0)
}

func (h *Hub) observe(n int) {
	if h.observer != nil {
		h.observer.SetWebsocketClients(n)
	}
}

func (h *Hub) BroadcastToSubject(subjectID uuid.UUID, eventType EventType, data interface{}) {
	event := Event{
		SubjectID: subjectID,
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now(),
	}

	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("ws broadcast queue full, dropping event", "type", eventType, "subject_id", subjectID)
	}
}

// Publish forwards a recognition event to the subject's clients.
func (h *Hub) Publish(_ context.Context, eventType string, event *domain.RecognitionEvent) {
	h.BroadcastToSubject(event.SubjectID, EventType(eventType), event)
}

func (h *Hub) GetConnectedClients(subjectID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.subjects[subjectID])
}
