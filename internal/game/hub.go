package game

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
)

// Conn is the websocket connection surface the hub writes to.
type Conn interface {
	SetWriteDeadline(t time.Time) error
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type Client struct {
	id   string
	conn Conn
	mu   sync.Mutex
}

func (c *Client) ID() string {
	return c.id
}

// Notification is pushed to every client when a controller reports an outcome.
type Notification struct {
	Game    GameType  `json:"game"`
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Hub fans snapshots and notifications out to websocket clients.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan interface{}
	register   chan *Client
	unregister chan *Client
	stop       chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan interface{}, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stop:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case <-h.stop:
			h.mu.Lock()
			for client := range h.clients {
				client.conn.Close()
				delete(h.clients, client)
			}
			h.mu.Unlock()
			log.Println("[WS] Hub stopped")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			log.Printf("[WS] Client connected: %s (Total: %d)", client.id, total)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.conn.Close()
				log.Printf("[WS] Client disconnected: %s (Total: %d)", client.id, len(h.clients))
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			jsonMessage, err := json.Marshal(message)
			if err != nil {
				log.Printf("[WS] Marshal error: %v", err)
				continue
			}

			h.mu.RLock()
			for client := range h.clients {
				go client.send(jsonMessage)
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
}

// Broadcast queues message for every client, dropping it if the queue is full.
func (h *Hub) Broadcast(message interface{}) {
	select {
	case h.broadcast <- message:
	default:
		log.Println("[WS] Broadcast channel full, dropping message")
	}
}

// Notify implements Notifier.
func (h *Hub) Notify(game GameType, level Level, message string) {
	h.Broadcast(map[string]interface{}{
		"type": "notification",
		"data": Notification{Game: game, Level: level, Message: message, At: time.Now()},
	})
}

func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (c *Client) send(message interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var data []byte
	var err error

	switch v := message.(type) {
	case []byte:
		data = v
	default:
		data, err = json.Marshal(v)
		if err != nil {
			log.Printf("[WS] Send marshal error: %v", err)
			return
		}
	}

	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Printf("[WS] Write error for client %s: %v", c.id, err)
	}
}

// SendInitialState writes the current snapshots of all games to c.
func (c *Client) SendInitialState(states map[GameType]interface{}) {
	c.send(map[string]interface{}{
		"type": "initial_state",
		"data": states,
	})
}

// RegisterClient adds conn to the hub. The returned client must later be
// passed to UnregisterClient.
func (h *Hub) RegisterClient(conn Conn) *Client {
	client := &Client{
		id:   uuid.NewString(),
		conn: conn,
	}
	select {
	case h.register <- client:
	case <-h.stop:
	}
	return client
}

func (h *Hub) UnregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.stop:
	}
}
