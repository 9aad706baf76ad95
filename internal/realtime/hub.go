// Package realtime carries presence and chat events over websocket
// connections.
//
// A single Hub goroutine owns all connection state: the set of clients, the
// chat rooms and every write to a client's outbound queue. Connection events
// are therefore applied one at a time and in arrival order, and a presence
// change is always applied to the registry before it is broadcast.
package realtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/PaulBabatuyi/realtime-chat/internal/presence"
)

//go:generate mockgen -destination=mocks_test.go -package=realtime . LastSeenWriter,ChatAuthorizer,MessageLookup

// LastSeenWriter persists the time a user went offline.
type LastSeenWriter interface {
	SetLastSeen(ctx context.Context, userID string, at time.Time) error
}

// ChatAuthorizer decides whether a user may join or publish to a chat room.
type ChatAuthorizer interface {
	IsParticipant(ctx context.Context, chatID, userID string) (bool, error)
}

// MessageLookup resolves a message the client says it already stored.
// found is false when no such message exists in chatID.
type MessageLookup interface {
	LookupMessage(ctx context.Context, chatID, messageID string) (msg ReceivedMessage, found bool, err error)
}

type setupRequest struct {
	client *Client
	userID string
}

type joinRequest struct {
	client *Client
	chatID string
}

type delivery struct {
	chatID string
	frame  []byte
}

type directMessage struct {
	client *Client
	frame  []byte
}

// Hub manages connected clients, presence broadcasts and per-chat rooms.
type Hub struct {
	registry *presence.Registry
	lastSeen LastSeenWriter
	authz    ChatAuthorizer
	messages MessageLookup
	log      *slog.Logger
	opts     Options
	now      func() time.Time

	register   chan *Client
	unregister chan *Client
	setup      chan setupRequest
	join       chan joinRequest
	deliver    chan delivery
	direct     chan directMessage
	done       chan struct{}

	// owned by the Run goroutine
	clients map[*Client]struct{}
	rooms   map[string]map[*Client]struct{}

	// in-flight last-seen writes
	pending sync.WaitGroup
}

// NewHub creates a hub. Run must be started before clients connect. Without
// a MessageLookup no newMessage is relayed.
func NewHub(registry *presence.Registry, lastSeen LastSeenWriter, authz ChatAuthorizer, messages MessageLookup, log *slog.Logger, opts Options) *Hub {
	return &Hub{
		registry:   registry,
		lastSeen:   lastSeen,
		authz:      authz,
		messages:   messages,
		log:        log,
		opts:       opts.withDefaults(),
		now:        time.Now,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		setup:      make(chan setupRequest),
		join:       make(chan joinRequest),
		deliver:    make(chan delivery),
		direct:     make(chan directMessage),
		done:       make(chan struct{}),
		clients:    make(map[*Client]struct{}),
		rooms:      make(map[string]map[*Client]struct{}),
	}
}

// Run processes connection events until ctx is cancelled, then closes every
// client queue and waits for pending last-seen writes.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		for c := range h.clients {
			c.state = StateClosed
			close(c.send)
		}
		h.clients = map[*Client]struct{}{}
		h.rooms = map[string]map[*Client]struct{}{}
		h.pending.Wait()
	}()

	for {
		select {
		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.log.Debug("client connected", "conn_id", c.ID, "clients", len(h.clients))

		case c := <-h.unregister:
			h.handleDisconnect(c)

		case req := <-h.setup:
			h.handleSetup(req.client, req.userID)

		case req := <-h.join:
			h.handleJoin(req.client, req.chatID)

		case d := <-h.deliver:
			for c := range h.rooms[d.chatID] {
				h.enqueue(c, d.frame)
			}

		case m := <-h.direct:
			if _, ok := h.clients[m.client]; ok {
				h.enqueue(m.client, m.frame)
			}

		case <-ctx.Done():
			h.log.Info("hub stopping", "clients", len(h.clients))
			return
		}
	}
}

// Register adds a connection in the Anonymous state.
func (h *Hub) Register(c *Client) { h.submit(h.register, c) }

// Unregister runs the disconnect transition for c.
func (h *Hub) Unregister(c *Client) { h.submit(h.unregister, c) }

// Setup identifies c as userID and announces it.
func (h *Hub) Setup(c *Client, userID string) {
	select {
	case h.setup <- setupRequest{client: c, userID: userID}:
	case <-h.done:
	}
}

// Join adds c to chatID's room. Joining twice has no further effect.
func (h *Hub) Join(c *Client, chatID string) {
	select {
	case h.join <- joinRequest{client: c, chatID: chatID}:
	case <-h.done:
	}
}

// Deliver emits msg to every connection currently in the chat's room.
func (h *Hub) Deliver(msg ReceivedMessage) error {
	frame, err := Encode(EventMessageReceived, msg)
	if err != nil {
		return err
	}
	select {
	case h.deliver <- delivery{chatID: msg.ChatID, frame: frame}:
	case <-h.done:
	}
	return nil
}

// SendError reports a protocol failure to c alone; the connection stays open.
func (h *Hub) SendError(c *Client, code, message string) {
	frame, err := Encode(EventError, ErrorPayload{Code: code, Message: message})
	if err != nil {
		return
	}
	select {
	case h.direct <- directMessage{client: c, frame: frame}:
	case <-h.done:
	}
}

func (h *Hub) submit(ch chan *Client, c *Client) {
	select {
	case ch <- c:
	case <-h.done:
	}
}

// handleSetup is the Anonymous -> Identified transition.
func (h *Hub) handleSetup(c *Client, userID string) {
	if _, ok := h.clients[c]; !ok || c.state == StateClosed {
		return
	}

	h.registry.SetOnline(userID, c.ID)
	c.userID = userID
	c.state = StateIdentified
	h.log.Info("user online", "user_id", userID, "conn_id", c.ID)

	if frame, err := Encode(EventUserOnline, userID); err == nil {
		h.broadcast(frame, c)
	}

	// The snapshot lets a refreshed client learn who was already online.
	if frame, err := Encode(EventOnlineUsers, h.registry.ListOnline()); err == nil {
		h.enqueue(c, frame)
	}
}

func (h *Hub) handleJoin(c *Client, chatID string) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	room, ok := h.rooms[chatID]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[chatID] = room
	}
	room[c] = struct{}{}
	c.rooms[chatID] = struct{}{}
}

// handleDisconnect is the Identified -> Closed transition. Anonymous clients
// are dropped without any presence side effect.
func (h *Hub) handleDisconnect(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	for chatID := range c.rooms {
		if room, ok := h.rooms[chatID]; ok {
			delete(room, c)
			if len(room) == 0 {
				delete(h.rooms, chatID)
			}
		}
	}
	close(c.send)

	wasIdentified := c.state == StateIdentified
	c.state = StateClosed
	if !wasIdentified {
		h.log.Debug("anonymous client disconnected", "conn_id", c.ID)
		return
	}

	userID := c.userID
	if holder, ok := h.registry.Connection(userID); ok && holder != c.ID {
		// Last connection wins on setup, and any disconnect clears the entry.
		h.log.Debug("superseded connection closed", "user_id", userID, "conn_id", c.ID, "current_conn_id", holder)
	}
	h.registry.SetOffline(userID)
	lastSeen := h.now()
	if lastSeen.Before(c.connectedAt) {
		lastSeen = c.connectedAt
	}
	h.persistLastSeen(userID, lastSeen)

	h.log.Info("user offline", "user_id", userID, "conn_id", c.ID)
	if frame, err := Encode(EventUserOffline, OfflineNotice{UserID: userID, LastSeen: lastSeen}); err == nil {
		h.broadcast(frame, nil)
	}
}

// persistLastSeen writes in the background. Failures are logged and not
// retried; the offline broadcast never waits for the write.
func (h *Hub) persistLastSeen(userID string, at time.Time) {
	if h.lastSeen == nil {
		return
	}
	h.pending.Add(1)
	go func() {
		defer h.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), h.opts.PersistTimeout)
		defer cancel()
		if err := h.lastSeen.SetLastSeen(ctx, userID, at); err != nil {
			h.log.Warn("failed to persist last seen", "user_id", userID, "error", err)
		}
	}()
}

// broadcast sends frame to every identified client except skip. Presence
// events only go to identified clients: they have already received the
// snapshot, so they never see an offline for a user they never saw online.
func (h *Hub) broadcast(frame []byte, skip *Client) {
	for c := range h.clients {
		if c == skip || c.state != StateIdentified {
			continue
		}
		h.enqueue(c, frame)
	}
}

// enqueue never blocks the hub. A client whose queue is full is too slow to
// keep up; its connection is closed and the read pump unregisters it.
func (h *Hub) enqueue(c *Client, frame []byte) {
	select {
	case c.send <- frame:
	default:
		h.log.Warn("client send queue full, closing connection", "conn_id", c.ID, "user_id", c.userID)
		c.closeConn()
	}
}
