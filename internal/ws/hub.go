package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // origin policy is enforced by the CORS middleware layer
	},
}

// Client is one connected match watcher.
type Client struct {
	conn    *websocket.Conn
	matchID int
	send    chan []byte
}

// Hub maintains the set of watchers per match. Delivery is best-effort:
// polling GET /pvp/:id stays the authoritative read.
type Hub struct {
	rooms map[int]map[*Client]struct{}
	mu    sync.RWMutex
}

// MatchHub is the process-wide hub instance.
var MatchHub = NewHub()

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{rooms: make(map[int]map[*Client]struct{})}
}

// BroadcastToMatch sends a message to every watcher of a match.
func (h *Hub) BroadcastToMatch(matchID int, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("[WS] Error marshaling message: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.rooms[matchID] {
		select {
		case client.send <- data:
		default:
			// Client's buffer is full; drop rather than block the broadcast.
			log.Printf("[WS] Send buffer full for a watcher of match %d, dropping message", matchID)
		}
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[c.matchID] == nil {
		h.rooms[c.matchID] = make(map[*Client]struct{})
	}
	h.rooms[c.matchID][c] = struct{}{}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if room, ok := h.rooms[c.matchID]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, c.matchID)
		}
	}
	close(c.send)
}

// ServeMatchWatch upgrades the request and streams match updates until
// the client disconnects. The stream is watch-only; inbound frames are
// discarded.
func ServeMatchWatch(w http.ResponseWriter, r *http.Request, matchID int) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WS] Upgrade failed for match %d: %v", matchID, err)
		return
	}

	client := &Client{conn: conn, matchID: matchID, send: make(chan []byte, 16)}
	MatchHub.register(client)
	log.Printf("[WS] Watcher connected to match %d", matchID)

	go client.writePump()
	client.readPump()
}

// readPump drains the connection so pings are answered; any read error
// cleans the client up.
func (c *Client) readPump() {
	defer func() {
		MatchHub.unregister(c)
		c.conn.Close()
		log.Printf("[WS] Watcher disconnected from match %d", c.matchID)
	}()
	c.conn.SetReadLimit(512)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump writes queued messages and keepalive pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("[WS] Write error for match %d watcher: %v", c.matchID, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ParseMatchID parses the :id path segment for the watch endpoint.
func ParseMatchID(raw string) (int, bool) {
	id, err := strconv.Atoi(raw)
	return id, err == nil && id > 0
}
