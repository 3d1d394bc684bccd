package newchat

import (
	"encoding/json"
	"sync"
	"time"

	"movment/metrics"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Client is one websocket connection subscribed to a room.
type Client struct {
	Send   chan []byte
	Room   string
	UserID string
}

type broadcastMsg struct {
	Room string
	Data []byte
}

// outboundPayload is the frame pushed to live clients.
type outboundPayload struct {
	Action    string `json:"action"`
	Data      any    `json:"data,omitempty"`
	Content   string `json:"content,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Hub fans messages out to rooms. The rooms map is owned by the Run goroutine.
type Hub struct {
	rooms      map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan broadcastMsg
	quit       chan struct{}
	stopOnce   sync.Once
	logger     *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan broadcastMsg, 64),
		quit:       make(chan struct{}),
		logger:     logger,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			if h.rooms[c.Room] == nil {
				h.rooms[c.Room] = make(map[*Client]bool)
			}
			h.rooms[c.Room][c] = true
			metrics.LiveConnections.Inc()

		case c := <-h.unregister:
			h.drop(c)

		case m := <-h.broadcast:
			for c := range h.rooms[m.Room] {
				select {
				case c.Send <- m.Data:
				default:
					h.drop(c)
				}
			}

		case <-h.quit:
			for _, conns := range h.rooms {
				for c := range conns {
					h.drop(c)
				}
			}
			return
		}
	}
}

func (h *Hub) drop(c *Client) {
	conns := h.rooms[c.Room]
	if conns == nil || !conns[c] {
		return
	}
	delete(conns, c)
	if len(conns) == 0 {
		delete(h.rooms, c.Room)
	}
	close(c.Send)
	metrics.LiveConnections.Dec()
}

// Stop terminates Run and closes every client.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.quit) })
}

// Register adds c unless the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.quit:
		return false
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.quit:
	}
}

// UserRoom is the room every connection of a user joins.
func UserRoom(userID primitive.ObjectID) string {
	return "user:" + userID.Hex()
}

// Push sends action with data to all live connections of userID.
// It never blocks the caller once the hub has stopped.
func (h *Hub) Push(userID primitive.ObjectID, action string, data any) {
	payload, err := json.Marshal(outboundPayload{Action: action, Data: data, Timestamp: time.Now().Unix()})
	if err != nil {
		h.logger.Warn("marshal live payload", zap.Error(err))
		return
	}
	select {
	case h.broadcast <- broadcastMsg{Room: UserRoom(userID), Data: payload}:
	case <-h.quit:
	}
}
