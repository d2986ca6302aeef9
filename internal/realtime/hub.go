// Package realtime implements the advisory websocket notification channel.
// Rooms are keyed by user id or "space:<id>"; delivery is unordered and
// best-effort, receivers re-load to get authoritative content.
package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = 45 * time.Second
	maxFrameBytes  = 1 << 16
	sendBufferSize = 32
)

// Hub tracks websocket clients and the rooms they joined.
type Hub struct {
	log      *zap.Logger
	upgrader websocket.Upgrader

	mu    sync.RWMutex
	rooms map[string]map[*client]struct{}
}

type client struct {
	conn  *websocket.Conn
	send  chan []byte
	rooms map[string]struct{}
}

// controlFrame is what clients send: join/leave requests.
type controlFrame struct {
	Join  string `json:"join,omitempty"`
	Leave string `json:"leave,omitempty"`
}

// NewHub constructs a hub.
func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		log:   log,
		rooms: map[string]map[*client]struct{}{},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the request and pumps frames until the peer goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	c := &client{
		conn:  conn,
		send:  make(chan []byte, sendBufferSize),
		rooms: map[string]struct{}{},
	}
	go h.writePump(c)
	h.readPump(c)
}

// Notify marshals the event and fans it out to every client in the room.
// Slow clients are skipped, not waited on.
func (h *Hub) Notify(room string, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.log.Warn("notify marshal failed", zap.Error(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[room] {
		select {
		case c.send <- payload:
		default:
			h.log.Debug("dropping notification for slow client", zap.String("room", room))
		}
	}
}

func (h *Hub) join(c *client, room string) {
	if room == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[room] == nil {
		h.rooms[room] = map[*client]struct{}{}
	}
	h.rooms[room][c] = struct{}{}
	c.rooms[room] = struct{}{}
}

func (h *Hub) leave(c *client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(c.rooms, room)
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	for room := range c.rooms {
		if members, ok := h.rooms[room]; ok {
			delete(members, c)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	h.mu.Unlock()
	close(c.send)
}

func (h *Hub) readPump(c *client) {
	defer func() {
		h.drop(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxFrameBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var f controlFrame
		if err := json.Unmarshal(data, &f); err != nil {
			continue
		}
		if f.Join != "" {
			h.join(c, f.Join)
		}
		if f.Leave != "" {
			h.leave(c, f.Leave)
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
