package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// State is the lifecycle position of a connection.
type State int

const (
	StateAnonymous State = iota
	StateIdentified
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateIdentified:
		return "identified"
	default:
		return "closed"
	}
}

// Options tunes connection liveness and buffering.
type Options struct {
	WriteWait      time.Duration
	PongWait       time.Duration
	MaxMessageSize int64
	SendBuffer     int
	PersistTimeout time.Duration
	AuthzTimeout   time.Duration
	CheckOrigin    func(r *http.Request) bool
}

func (o Options) withDefaults() Options {
	if o.WriteWait <= 0 {
		o.WriteWait = 10 * time.Second
	}
	if o.PongWait <= 0 {
		o.PongWait = 60 * time.Second
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = 16 * 1024
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = 256
	}
	if o.PersistTimeout <= 0 {
		o.PersistTimeout = 5 * time.Second
	}
	if o.AuthzTimeout <= 0 {
		o.AuthzTimeout = 5 * time.Second
	}
	return o
}

// pingPeriod must stay below PongWait so the peer's pong lands in time.
func (o Options) pingPeriod() time.Duration {
	return (o.PongWait * 9) / 10
}

// Client is one websocket connection. authUser comes from the verified token
// and never changes; state and userID are owned by the hub goroutine.
type Client struct {
	ID          string
	authUser    string
	hub         *Hub
	conn        *websocket.Conn
	send        chan []byte
	connectedAt time.Time

	state  State
	userID string
	rooms  map[string]struct{}

	closeOnce sync.Once
}

func newClient(h *Hub, conn *websocket.Conn, authUser string) *Client {
	return &Client{
		ID:          uuid.NewString(),
		authUser:    authUser,
		hub:         h,
		conn:        conn,
		send:        make(chan []byte, h.opts.SendBuffer),
		connectedAt: h.now(),
		state:       StateAnonymous,
		rooms:       make(map[string]struct{}),
	}
}

func (c *Client) closeConn() {
	c.closeOnce.Do(func() {
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

// ServeWS upgrades the request and starts the pumps for a client
// authenticated as authUser.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, authUser string) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.opts.CheckOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error response.
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := newClient(h, conn, authUser)
	h.Register(c)

	go c.writePump()
	go c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.closeConn()
	}()

	opts := c.hub.opts
	c.conn.SetReadLimit(opts.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(opts.PongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Debug("websocket read error", "conn_id", c.ID, "error", err)
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.hub.SendError(c, CodeBadRequest, "malformed frame")
			continue
		}
		c.dispatch(env)
	}
}

func (c *Client) dispatch(env Envelope) {
	h := c.hub
	switch env.Event {
	case EventSetup:
		var userID string
		if err := json.Unmarshal(env.Data, &userID); err != nil || userID == "" {
			h.SendError(c, CodeBadRequest, "setup expects a user id")
			return
		}
		if userID != c.authUser {
			h.SendError(c, CodeUnauthenticated, "setup identity does not match token")
			return
		}
		h.Setup(c, userID)

	case EventJoinChat:
		var chatID string
		if err := json.Unmarshal(env.Data, &chatID); err != nil || strings.TrimSpace(chatID) == "" {
			h.SendError(c, CodeBadRequest, "joinChat expects a chat id")
			return
		}
		if !c.authorize(chatID) {
			return
		}
		h.Join(c, chatID)

	case EventNewMessage:
		var in IncomingMessage
		if err := json.Unmarshal(env.Data, &in); err != nil || in.Chat == "" || in.ID == "" {
			h.SendError(c, CodeBadRequest, "newMessage expects a persisted message")
			return
		}
		if in.Sender.ID != c.authUser {
			h.SendError(c, CodeUnauthenticated, "message sender does not match token")
			return
		}
		if !c.authorize(in.Chat) {
			return
		}
		msg, ok := c.storedMessage(in.Chat, in.ID)
		if !ok {
			return
		}
		_ = h.Deliver(msg)

	default:
		h.SendError(c, CodeBadRequest, "unknown event "+env.Event)
	}
}

// authorize checks chat membership off the hub goroutine, since it hits the
// store. It reports the failure to the client itself.
func (c *Client) authorize(chatID string) bool {
	h := c.hub
	if h.authz == nil {
		return true
	}
	ctx, cancel := context.WithTimeout(context.Background(), h.opts.AuthzTimeout)
	defer cancel()

	ok, err := h.authz.IsParticipant(ctx, chatID, c.authUser)
	switch {
	case err != nil && !errors.Is(err, context.Canceled):
		h.log.Error("chat authorization failed", "chat_id", chatID, "user_id", c.authUser, "error", err)
		h.SendError(c, CodeInternal, "could not verify chat membership")
		return false
	case err != nil || !ok:
		h.SendError(c, CodeNotFound, "chat not found")
		return false
	}
	return true
}

// storedMessage fetches the persisted copy of a relayed message. The room
// only ever sees what was stored, and only from its own sender.
func (c *Client) storedMessage(chatID, messageID string) (ReceivedMessage, bool) {
	h := c.hub
	if h.messages == nil {
		h.SendError(c, CodeNotFound, "message not found")
		return ReceivedMessage{}, false
	}
	ctx, cancel := context.WithTimeout(context.Background(), h.opts.AuthzTimeout)
	defer cancel()

	msg, found, err := h.messages.LookupMessage(ctx, chatID, messageID)
	switch {
	case err != nil:
		h.log.Error("message lookup failed", "chat_id", chatID, "message_id", messageID, "error", err)
		h.SendError(c, CodeInternal, "could not load message")
		return ReceivedMessage{}, false
	case !found || msg.ChatID != chatID:
		h.SendError(c, CodeNotFound, "message not found")
		return ReceivedMessage{}, false
	case msg.Sender.ID != c.authUser:
		h.SendError(c, CodeUnauthenticated, "message sender does not match token")
		return ReceivedMessage{}, false
	}
	return msg, true
}

func (c *Client) writePump() {
	opts := c.hub.opts
	ticker := time.NewTicker(opts.pingPeriod())
	defer func() {
		ticker.Stop()
		c.closeConn()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(opts.WriteWait))
			if !ok {
				// The hub closed the queue.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.hub.log.Debug("websocket write failed", "conn_id", c.ID, "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(opts.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
