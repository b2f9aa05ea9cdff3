package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/playpong/backend/internal/game"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Origin is enforced by middleware.WebSocketCORSCheck
	},
}

// Client represents a connected WebSocket client
type Client struct {
	conn        *websocket.Conn
	connID      string
	userID      int64
	displayName string
	roomID      int64
	hub         *Hub
	send        chan []byte
}

// Hub maintains the set of active clients and routes their events into the
// session registry. It is the game engine's Sender.
type Hub struct {
	clients    map[string]*Client           // connID -> Client
	rooms      map[int64]map[string]*Client // roomID -> connID -> Client
	register   chan *Client
	unregister chan *Client
	registry   *game.Registry
	mu         sync.RWMutex
}

// NewHub creates a new Hub. SetRegistry must be called before Run.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		rooms:      make(map[int64]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// SetRegistry wires the session registry. Split from NewHub because the
// registry needs the hub as its Sender.
func (h *Hub) SetRegistry(r *game.Registry) {
	h.registry = r
}

// Run processes connection arrivals and departures. One goroutine, started
// from main.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.connID] = client
			if _, exists := h.rooms[client.roomID]; !exists {
				h.rooms[client.roomID] = make(map[string]*Client)
			}
			h.rooms[client.roomID][client.connID] = client
			h.mu.Unlock()

			log.Printf("[WS] user %d connected to room %d (conn=%s)", client.userID, client.roomID, client.connID)

			session := h.registry.GetOrCreate(client.roomID)
			if _, err := session.Join(client.connID, client.userID, client.displayName); err != nil {
				// The session already told the client why; drop the
				// connection once the event has flushed.
				log.Printf("[WS] join rejected for user %d in room %d: %v", client.userID, client.roomID, err)
				h.drop(client)
			}

		case client := <-h.unregister:
			h.mu.RLock()
			cur, ok := h.clients[client.connID]
			h.mu.RUnlock()
			if !ok || cur != client {
				continue
			}

			log.Printf("[WS] user %d disconnected from room %d (conn=%s)", client.userID, client.roomID, client.connID)
			if session, ok := h.registry.Get(client.roomID); ok {
				session.Leave(client.connID)
			}
			h.drop(client)
		}
	}
}

// drop removes a client from the maps and closes its send channel.
func (h *Hub) drop(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if cur, ok := h.clients[client.connID]; !ok || cur != client {
		return
	}
	delete(h.clients, client.connID)
	if room, exists := h.rooms[client.roomID]; exists {
		delete(room, client.connID)
		if len(room) == 0 {
			delete(h.rooms, client.roomID)
		}
	}
	close(client.send)
}

// SendToConnection sends a message to one connection. Implements game.Sender.
func (h *Hub) SendToConnection(connID string, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("[WS] error marshaling message: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if client, exists := h.clients[connID]; exists {
		select {
		case client.send <- data:
		default:
			log.Printf("[WS] send buffer full for conn %s, dropping message", connID)
		}
	}
}

// BroadcastToRoom sends a message to every connection in a room.
func (h *Hub) BroadcastToRoom(roomID int64, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("[WS] error marshaling message: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.rooms[roomID] {
		select {
		case client.send <- data:
		default:
			log.Printf("[WS] send buffer full for conn %s in room %d, dropping message", client.connID, roomID)
		}
	}
}

// WSMessage is the envelope of every client->server message.
type WSMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// writePump writes messages to the WebSocket connection
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
				// Channel closed — connection is being cleaned up.
				// Best-effort close frame; conn may already be gone.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("[WS] write error for conn %s: %v", c.connID, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("[WS] ping error for conn %s: %v", c.connID, err)
				return
			}
		}
	}
}

// readPump reads client messages and routes them into the session.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[WS] unexpected close for conn %s: %v", c.connID, err)
			}
			break
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Printf("[WS] ignoring malformed frame from conn %s", c.connID)
			continue
		}

		c.handleMessage(msg)
	}
}

// movePaddleData carries the only client message with a payload.
type movePaddleData struct {
	Position float64 `json:"position"`
}

// handleMessage applies one inbound message to the session. Late or unknown
// messages are protocol noise, never errors surfaced to the user.
func (c *Client) handleMessage(msg WSMessage) {
	session, ok := c.hub.registry.Get(c.roomID)
	if !ok {
		log.Printf("[WS] ignoring %q from conn %s: room %d has no session", msg.Type, c.connID, c.roomID)
		return
	}

	switch msg.Type {
	case "ready":
		session.SetReady(c.connID)

	case "modifier-toggle":
		session.SetModifier(c.connID)

	case "move-paddle":
		var data movePaddleData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			log.Printf("[WS] ignoring malformed move-paddle from conn %s", c.connID)
			return
		}
		session.MovePaddle(c.connID, data.Position)

	default:
		log.Printf("[WS] ignoring unknown message type %q from conn %s", msg.Type, c.connID)
	}
}
