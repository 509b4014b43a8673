// Package push implements the best-effort live delivery channel from server
// to connected browsers over websockets.
//
// A Hub maintains an ephemeral map from authenticated user id to a live
// connection handle, populated by a token handshake immediately after the
// websocket upgrade and cleared on disconnect. Delivery has no queueing, no
// acknowledgment, and no retry: a user without a live connection simply
// polls their persisted notifications later.
//
// The map is guarded by a mutex. Connections also record the user's role so
// operational broadcasts can be scoped to administrators instead of leaking
// workflow details to every connected client.
package push

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Event names delivered over the push channel.
const (
	EventNotification = "notification"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 16
)

// TokenVerifier validates a handshake token and yields the user's identity.
// Satisfied by *auth.Manager.
type TokenVerifier interface {
	VerifyIdentity(token string) (userID uint, role string, err error)
}

// Envelope is the JSON frame written to clients.
type Envelope struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

// client is one live websocket connection.
type client struct {
	userID uint
	role   string
	send   chan []byte
	conn   *websocket.Conn
}

// Hub tracks connected users and delivers events to them.
type Hub struct {
	verifier TokenVerifier
	upgrader websocket.Upgrader

	mu    sync.RWMutex
	conns map[uint]*client
}

// NewHub returns a Hub using verifier for the connection handshake.
func NewHub(verifier TokenVerifier) *Hub {
	return &Hub{
		verifier: verifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The API already enforces CORS; the websocket endpoint accepts
			// any origin and relies on the token handshake instead.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		conns: make(map[uint]*client),
	}
}

// authFrame is the first message a client must send after the upgrade.
type authFrame struct {
	Token string `json:"token"`
}

// ServeWS upgrades the request and performs the authentication handshake.
// On a bad token the connection is closed immediately, mirroring the
// persisted-notification fallback: an unauthenticated socket gets nothing.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))

	var frame authFrame
	if err := conn.ReadJSON(&frame); err != nil {
		_ = conn.Close()
		return
	}
	userID, role, err := h.verifier.VerifyIdentity(frame.Token)
	if err != nil {
		log.Warn().Err(err).Msg("websocket authentication failed")
		_ = conn.Close()
		return
	}

	c := &client{
		userID: userID,
		role:   role,
		send:   make(chan []byte, sendBuffer),
		conn:   conn,
	}
	h.register(c)
	log.Info().Uint("user_id", userID).Str("role", role).Msg("websocket connected")

	go c.writePump()
	c.readPump(h)
}

// register installs c as the live connection for its user, replacing and
// closing any previous one.
func (h *Hub) register(c *client) {
	h.mu.Lock()
	prev := h.conns[c.userID]
	h.conns[c.userID] = c
	h.mu.Unlock()
	if prev != nil {
		close(prev.send)
	}
}

// unregister removes c if it is still the live connection for its user.
func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if h.conns[c.userID] == c {
		delete(h.conns, c.userID)
		close(c.send)
	}
	h.mu.Unlock()
}

// IsConnected reports whether userID currently has a live connection.
func (h *Hub) IsConnected(userID uint) bool {
	h.mu.RLock()
	_, ok := h.conns[userID]
	h.mu.RUnlock()
	return ok
}

// PushTo delivers an event to userID's live connection, if any. Delivery is
// best-effort: a full send buffer or absent connection drops the event.
func (h *Hub) PushTo(userID uint, event string, payload any) {
	h.mu.RLock()
	c := h.conns[userID]
	h.mu.RUnlock()
	if c == nil {
		return
	}
	c.enqueue(event, payload)
}

// BroadcastAdmins delivers an event to every connected administrator.
func (h *Hub) BroadcastAdmins(event string, payload any) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.conns))
	for _, c := range h.conns {
		if c.role == "admin" {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()
	for _, c := range targets {
		c.enqueue(event, payload)
	}
}

// ConnectedCount returns the number of live connections (ops endpoint).
func (h *Hub) ConnectedCount() int {
	h.mu.RLock()
	n := len(h.conns)
	h.mu.RUnlock()
	return n
}

// enqueue marshals and queues a frame without blocking the caller.
func (c *client) enqueue(event string, payload any) {
	b, err := json.Marshal(Envelope{Event: event, Payload: payload})
	if err != nil {
		return
	}
	select {
	case c.send <- b:
	default:
		// Slow consumer; drop rather than block the workflow.
	}
}

// readPump consumes (and discards) client frames until disconnect, keeping
// the read deadline fresh via pong handling.
func (c *client) readPump(h *Hub) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
	}()
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	}
}

// writePump drains the send channel to the socket and pings on an interval.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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
