package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/distrubuted-game-mechanic/sgs-seats/internal/engine"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = 30 * time.Second
	sendBufferSize = 64

	// client frames allowed per second, with a small burst
	frameRate  = 1
	frameBurst = 5
)

// ErrNotConnected is returned when a user has no open connection here.
var ErrNotConnected = errors.New("user not connected")

// Event types pushed to clients.
const (
	EventCard  = "card"
	EventText  = "text"
	EventError = "error"
)

// Event is the JSON frame written to a websocket client.
type Event struct {
	Type   string         `json:"type"`
	Room   string         `json:"room,omitempty"`
	Text   string         `json:"text,omitempty"`
	Prompt *engine.Prompt `json:"prompt,omitempty"`
}

// ClientMessage is a frame sent by a client. The only action is a pick.
type ClientMessage struct {
	Type string `json:"type"`
	Room string `json:"room"`
	Hero string `json:"hero"`
}

// PickFunc forwards a pick received over a websocket.
type PickFunc func(ctx context.Context, roomID, userID, hero string) error

// Hub keeps the websocket connections of users and pushes prompts to
// them. A user may hold several connections; each gets every event.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]map[*client]struct{}
	upgrader websocket.Upgrader
	onPick   PickFunc
	log      zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[*client]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: log.With().Str("component", "hub").Logger(),
	}
}

// OnPick sets the handler for picks sent by clients.
func (h *Hub) OnPick(fn PickFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onPick = fn
}

// ServeHTTP upgrades /ws?user=<id> and serves the connection until it closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user := r.URL.Query().Get("user")
	if user == "" {
		http.Error(w, "user is required", http.StatusBadRequest)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("upgrade websocket")
		return
	}

	c := &client{
		user:    user,
		conn:    conn,
		hub:     h,
		limiter: rate.NewLimiter(frameRate, frameBurst),
		send:    make(chan Event, sendBufferSize),
	}
	h.attach(c)
	h.log.Debug().Str("user", user).Msg("client connected")

	go c.writeLoop()
	c.readLoop()
}

// Connected returns the number of open connections of a user.
func (h *Hub) Connected(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) SendCard(_ context.Context, userID string, p engine.Prompt) error {
	return h.deliver(userID, Event{Type: EventCard, Room: p.RoomID, Text: p.Text, Prompt: &p})
}

func (h *Hub) SendText(_ context.Context, userID, text string) error {
	return h.deliver(userID, Event{Type: EventText, Text: text})
}

func (h *Hub) deliver(userID string, ev Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.clients[userID]) == 0 {
		return ErrNotConnected
	}
	for c := range h.clients[userID] {
		c.push(ev)
	}
	return nil
}

func (h *Hub) attach(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c.user] == nil {
		h.clients[c.user] = make(map[*client]struct{})
	}
	h.clients[c.user][c] = struct{}{}
}

func (h *Hub) detach(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients[c.user], c)
	if len(h.clients[c.user]) == 0 {
		delete(h.clients, c.user)
	}
}

func (h *Hub) pickHandler() PickFunc {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.onPick
}

type client struct {
	user    string
	conn    *websocket.Conn
	hub     *Hub
	limiter *rate.Limiter

	mu     sync.Mutex
	send   chan Event
	closed bool
}

func (c *client) readLoop() {
	defer c.close()
	c.conn.SetReadLimit(1 << 16)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			c.hub.log.Debug().Err(err).Str("user", c.user).Msg("read message")
			return
		}
		if !c.limiter.Allow() {
			c.push(Event{Type: EventError, Text: "too many messages"})
			continue
		}
		var msg ClientMessage
		if err := json.Unmarshal(payload, &msg); err != nil || msg.Type != "pick" {
			c.push(Event{Type: EventError, Text: "malformed message"})
			continue
		}
		onPick := c.hub.pickHandler()
		if onPick == nil {
			c.push(Event{Type: EventError, Room: msg.Room, Text: "picks are not accepted here"})
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), writeWait)
		err = onPick(ctx, msg.Room, c.user, msg.Hero)
		cancel()
		if err != nil {
			c.push(Event{Type: EventError, Room: msg.Room, Text: err.Error()})
		}
	}
}

func (c *client) writeLoop() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.close()
	}()
	for {
		select {
		case ev, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(ev); err != nil {
				c.hub.log.Debug().Err(err).Str("user", c.user).Msg("write json")
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

// push queues ev, dropping the oldest queued event when the buffer is full.
func (c *client) push(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- ev:
	default:
		select {
		case <-c.send:
		default:
		}
		c.send <- ev
	}
}

func (c *client) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	c.mu.Unlock()

	c.hub.detach(c)
	_ = c.conn.Close()
}
