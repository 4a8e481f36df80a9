package socket

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"marginalia/pkg/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// CheckOrigin allows the browser frontend's dev server to connect.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWs upgrades an anonymous reader's connection and joins it to the
// room of the document it is viewing.
func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request) {
	docID := r.URL.Query().Get("docId")
	if docID == "" {
		http.Error(w, "Missing docId parameter", http.StatusBadRequest)
		return
	}

	// Reject rooms for documents that don't exist.
	var title string
	err := hub.db.QueryRowContext(r.Context(), "SELECT title FROM documents WHERE id = $1", docID).Scan(&title)
	if err == sql.ErrNoRows {
		logger.Sugar.Warnf("Connection rejected: Document %s not found", docID)
		http.Error(w, "Document not found", http.StatusNotFound)
		return
	} else if err != nil {
		logger.Sugar.Errorf("Database error checking document: %v", err)
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Sugar.Error(err)
		return
	}

	client := &Client{
		Hub:   hub,
		Conn:  conn,
		DocID: docID,
		Send:  make(chan []byte, 256),
	}

	client.Hub.Register <- client

	go client.writePump()
	go client.readPump()
}

// readPump drains the connection until it closes. Readers have nothing
// to say on this feed; inbound frames are discarded, but reading is
// still required to process control frames and detect disconnects.
func (c *Client) readPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Sugar.Errorf("error: %v", err)
			}
			break
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second) // Send ping every 30s
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-c.Send:
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			c.Conn.WriteMessage(websocket.TextMessage, message)
		// Pings keep the connection alive and detect drops.
		case <-ticker.C:
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return // Connection is dead
			}
		}
	}
}
