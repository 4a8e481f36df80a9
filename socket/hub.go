package socket

import (
	"database/sql"
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"marginalia/pkg/logger"
)

const (
	EventEdit        = "EDIT"         // A new version was committed; refetch and reconcile
	EventComment     = "COMMENT"      // New comment posted
	EventCommentFlag = "COMMENT_FLAG" // Comment flagged/unflagged by moderation
	EventPresence    = "PRESENCE"     // Reader count for the document changed
)

// Event is one message on the read-only live feed. Readers never send
// document state over the socket; the feed only tells them to refetch.
type Event struct {
	Type    string          `json:"type"`
	DocID   string          `json:"document_id"`
	Payload json.RawMessage `json:"payload"`
}

type presencePayload struct {
	Readers int `json:"readers"`
}

// Hub fans events out to the readers currently viewing each document.
// It owns no document state; the version store does.
type Hub struct {
	Rooms      map[string]map[*Client]bool
	Broadcast  chan Event
	Register   chan *Client
	Unregister chan *Client
	db         *sql.DB
	mu         sync.Mutex
}

type Client struct {
	Hub   *Hub
	Conn  *websocket.Conn
	DocID string
	Send  chan []byte
}

func NewHub(db *sql.DB) *Hub {
	return &Hub{
		Rooms:      make(map[string]map[*Client]bool),
		Broadcast:  make(chan Event),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		db:         db,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			if h.Rooms[client.DocID] == nil {
				h.Rooms[client.DocID] = make(map[*Client]bool)
			}
			h.Rooms[client.DocID][client] = true
			h.mu.Unlock()

			h.broadcastPresence(client.DocID)

		case client := <-h.Unregister:
			h.mu.Lock()
			docID := client.DocID
			if _, ok := h.Rooms[docID][client]; ok {
				delete(h.Rooms[docID], client)
				close(client.Send)
				if len(h.Rooms[docID]) == 0 {
					delete(h.Rooms, docID)
					logger.Sugar.Infof("Closed empty room: %s", docID)
				}
			}
			remaining := len(h.Rooms[docID])
			h.mu.Unlock()

			if remaining > 0 {
				h.broadcastPresence(docID)
			}

		case evt := <-h.Broadcast:
			payload, err := json.Marshal(evt)
			if err != nil {
				logger.Sugar.Errorf("Error marshalling broadcast event: %v", err)
				continue
			}
			h.send(evt.DocID, payload)
		}
	}
}

// send delivers raw bytes to every reader in the room. The client list
// is copied so no I/O happens under the lock.
func (h *Hub) send(docID string, payload []byte) {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.Rooms[docID]))
	for client := range h.Rooms[docID] {
		clients = append(clients, client)
	}
	h.mu.Unlock()

	for _, client := range clients {
		select {
		case client.Send <- payload:
		default:
			// The send buffer is full: the reader is lagging.
			// Unregister it rather than block the hub. Must not feed
			// Unregister from the hub goroutine itself.
			logger.Sugar.Warnf("Reader on doc %s has a full send buffer. Unregistering.", docID)
			go func(c *Client) { h.Unregister <- c }(client)
		}
	}
}

// RemoveDocument disconnects all readers of a deleted document.
func (h *Hub) RemoveDocument(docID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.Rooms[docID]; ok {
		for client := range clients {
			client.Conn.Close() // readPump exits and unregisters safely
		}
		delete(h.Rooms, docID)
	}
}

func (h *Hub) broadcastPresence(docID string) {
	h.mu.Lock()
	readers := len(h.Rooms[docID])
	h.mu.Unlock()

	payload, _ := json.Marshal(presencePayload{Readers: readers})
	data, err := json.Marshal(Event{Type: EventPresence, DocID: docID, Payload: payload})
	if err != nil {
		logger.Sugar.Errorf("Error marshalling presence event: %v", err)
		return
	}
	h.send(docID, data)
}
