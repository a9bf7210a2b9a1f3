// Package notify pushes auth state changes to a user's open browser tabs
// over websockets.
package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/raushankrgupta/fitly-tryon/utils"
)

// Auth state changes.
const (
	SignedIn         = "SIGNED_IN"
	SignedOut        = "SIGNED_OUT"
	UserUpdated      = "USER_UPDATED"
	PasswordRecovery = "PASSWORD_RECOVERY"
)

type AuthEvent struct {
	Event  string    `json:"event"`
	UserID string    `json:"user_id"`
	At     time.Time `json:"at"`
}

// Notifier is what the auth service needs from the hub.
type Notifier interface {
	Publish(userID, event string)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type client struct {
	conn   *websocket.Conn
	send   chan []byte
	userID string
}

type message struct {
	userID string
	data   []byte
}

// Hub tracks the sockets of each user and fans events out to them.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan message
	register   chan *client
	unregister chan *client
	done       chan struct{}
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan message, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
	}
}

// Run is the hub event loop. It returns when ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
			utils.WSConnections.Inc()

		case c := <-h.unregister:
			h.remove(c)

		case msg := <-h.broadcast:
			var slow []*client
			h.mu.RLock()
			for c := range h.clients {
				if c.userID != msg.userID {
					continue
				}
				select {
				case c.send <- msg.data:
				default:
					slow = append(slow, c)
				}
			}
			h.mu.RUnlock()
			for _, c := range slow {
				h.remove(c)
			}
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		utils.WSConnections.Dec()
	}
}

// Publish queues an auth event for every socket of userID. Events are
// dropped when the queue is full.
func (h *Hub) Publish(userID, event string) {
	data, err := json.Marshal(AuthEvent{Event: event, UserID: userID, At: time.Now().UTC()})
	if err != nil {
		utils.Log.Error("marshal auth event", zap.Error(err))
		return
	}
	select {
	case h.broadcast <- message{userID: userID, data: data}:
	default:
		utils.Log.Warn("auth event dropped", zap.String("event", event), zap.String("user_id", userID))
	}
}

// Connected returns how many sockets userID has open.
func (h *Hub) Connected(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for c := range h.clients {
		if c.userID == userID {
			n++
		}
	}
	return n
}

// ServeWS upgrades the request and subscribes the socket to userID's events.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		utils.Log.Error("ws upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		conn:   conn,
		send:   make(chan []byte, 16),
		userID: userID,
	}

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump(h)
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// readPump only watches for the socket closing; clients send nothing.
func (c *client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
