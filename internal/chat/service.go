// Package chat implements the chat accessor, the message delivery pipeline
// and the unread counter operations on top of the data stores. It performs
// no network delivery: callers fan returned messages out themselves.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PaulBabatuyi/realtime-chat/internal/data"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/v2/bson"
)

var (
	// ErrInvalidMessage is returned for empty or oversized message text.
	ErrInvalidMessage = errors.New("invalid message")

	// ErrSelfChat is returned when a user tries to open a chat with themselves.
	ErrSelfChat = errors.New("cannot open a chat with yourself")
)

// MaxMessageLength bounds the text of a single message, in bytes.
const MaxMessageLength = 4096

// ChatStore is the subset of the chats store the service needs.
type ChatStore interface {
	FindByPair(ctx context.Context, a, b bson.ObjectID) (*data.Chat, error)
	CreateChat(ctx context.Context, a, b bson.ObjectID) (*data.Chat, error)
	GetChat(ctx context.Context, id bson.ObjectID) (*data.Chat, error)
	ResetUnread(ctx context.Context, chatID, userID bson.ObjectID) error
	IncrementUnread(ctx context.Context, chatID bson.ObjectID, recipients []bson.ObjectID, lastMessage bson.ObjectID, at time.Time) error
	ListChatsForUser(ctx context.Context, userID bson.ObjectID) ([]*data.Chat, error)
}

// MessageStore is the subset of the messages store the service needs.
type MessageStore interface {
	CreateMessage(ctx context.Context, chatID, senderID bson.ObjectID, text string, createdAt time.Time) (*data.Message, error)
	GetMessage(ctx context.Context, id bson.ObjectID) (*data.Message, error)
	GetMessagesByIDs(ctx context.Context, ids []bson.ObjectID) ([]*data.Message, error)
	ListMessages(ctx context.Context, chatID bson.ObjectID) ([]*data.Message, error)
}

// UserStore is the subset of the users store the service needs.
type UserStore interface {
	GetUserByID(ctx context.Context, id bson.ObjectID) (*data.User, error)
	GetUsersByIDs(ctx context.Context, ids []bson.ObjectID) ([]*data.User, error)
	UserExists(ctx context.Context, id bson.ObjectID) (bool, error)
}

// Service is safe for concurrent use; it keeps no state between calls.
type Service struct {
	chats ChatStore
	msgs  MessageStore
	users UserStore
	log   *slog.Logger
	now   func() time.Time
}

func NewService(chats ChatStore, msgs MessageStore, users UserStore, log *slog.Logger) *Service {
	return &Service{chats: chats, msgs: msgs, users: users, log: log, now: time.Now}
}

// AccessChat finds or creates the chat between requester and other, then
// resets the requester's unread counter, since opening a chat reads it.
func (s *Service) AccessChat(ctx context.Context, requester, other bson.ObjectID) (*data.ChatView, error) {
	if requester == other {
		return nil, ErrSelfChat
	}
	exists, err := s.users.UserExists(ctx, other)
	if err != nil {
		return nil, fmt.Errorf("check user %s: %w", other.Hex(), err)
	}
	if !exists {
		return nil, fmt.Errorf("user %s: %w", other.Hex(), data.ErrNotFound)
	}

	chat, err := s.findOrCreate(ctx, requester, other)
	if err != nil {
		return nil, err
	}

	if err := s.chats.ResetUnread(ctx, chat.ID, requester); err != nil {
		return nil, fmt.Errorf("reset unread: %w", err)
	}

	// Re-read so the returned counters reflect the reset and any concurrent send.
	chat, err = s.chats.GetChat(ctx, chat.ID)
	if err != nil {
		return nil, err
	}
	views, err := s.populate(ctx, []*data.Chat{chat})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

func (s *Service) findOrCreate(ctx context.Context, a, b bson.ObjectID) (*data.Chat, error) {
	chat, err := s.chats.FindByPair(ctx, a, b)
	if err == nil {
		return chat, nil
	}
	if !errors.Is(err, data.ErrNotFound) {
		return nil, fmt.Errorf("find chat: %w", err)
	}

	chat, err = s.chats.CreateChat(ctx, a, b)
	if err == nil {
		s.log.Debug("chat created", "chat_id", chat.ID.Hex(), "pair", chat.PairKey)
		return chat, nil
	}
	if !errors.Is(err, data.ErrConflict) {
		return nil, fmt.Errorf("create chat: %w", err)
	}

	// Lost the race against a concurrent creator for the same pair.
	s.log.Debug("chat create conflict, re-fetching", "a", a.Hex(), "b", b.Hex())
	chat, err = s.chats.FindByPair(ctx, a, b)
	if err != nil {
		return nil, fmt.Errorf("re-fetch chat after conflict: %w", err)
	}
	return chat, nil
}

// Send persists a message from sender into chatID, increments the unread
// counter of every other participant and moves the chat's last message.
func (s *Service) Send(ctx context.Context, chatID, sender bson.ObjectID, text string) (*data.MessageView, error) {
	// Whitespace-only bodies are rejected, but the body is stored as sent.
	if strings.TrimSpace(text) == "" || len(text) > MaxMessageLength {
		return nil, ErrInvalidMessage
	}

	chat, err := s.chats.GetChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(sender) {
		// Outsiders get the same answer as for a missing chat.
		return nil, fmt.Errorf("chat %s: %w", chatID.Hex(), data.ErrNotFound)
	}

	msg, err := s.msgs.CreateMessage(ctx, chatID, sender, text, s.now())
	if err != nil {
		return nil, fmt.Errorf("save message: %w", err)
	}

	recipients := lo.Filter(chat.Users, func(u bson.ObjectID, _ int) bool { return u != sender })
	if err := s.chats.IncrementUnread(ctx, chatID, recipients, msg.ID, msg.CreatedAt); err != nil {
		// The message is stored but uncounted; there is no transaction to roll back.
		s.log.Warn("unread increment failed after message save",
			"chat_id", chatID.Hex(), "message_id", msg.ID.Hex(), "error", err)
		return nil, fmt.Errorf("update chat: %w", err)
	}

	user, err := s.users.GetUserByID(ctx, sender)
	if err != nil {
		return nil, err
	}
	return &data.MessageView{
		ID:        msg.ID,
		Chat:      msg.Chat,
		Sender:    user.Summary(),
		Text:      msg.Text,
		CreatedAt: msg.CreatedAt,
	}, nil
}

// ResetUnread marks chatID as read for userID.
func (s *Service) ResetUnread(ctx context.Context, chatID, userID bson.ObjectID) error {
	chat, err := s.chats.GetChat(ctx, chatID)
	if err != nil {
		return err
	}
	if !chat.HasParticipant(userID) {
		return fmt.Errorf("chat %s: %w", chatID.Hex(), data.ErrNotFound)
	}
	return s.chats.ResetUnread(ctx, chatID, userID)
}

// ListChats returns the user's chats by last activity, most recent first.
func (s *Service) ListChats(ctx context.Context, userID bson.ObjectID) ([]*data.ChatView, error) {
	chats, err := s.chats.ListChatsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	return s.populate(ctx, chats)
}

// ListMessages returns a chat's history, oldest first. Only participants may read it.
func (s *Service) ListMessages(ctx context.Context, chatID, userID bson.ObjectID) ([]*data.MessageView, error) {
	chat, err := s.chats.GetChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(userID) {
		return nil, fmt.Errorf("chat %s: %w", chatID.Hex(), data.ErrNotFound)
	}

	msgs, err := s.msgs.ListMessages(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	users, err := s.usersByID(ctx, chat.Users)
	if err != nil {
		return nil, err
	}

	return lo.Map(msgs, func(m *data.Message, _ int) *data.MessageView {
		return &data.MessageView{
			ID:        m.ID,
			Chat:      m.Chat,
			Sender:    summaryOf(users, m.Sender),
			Text:      m.Text,
			CreatedAt: m.CreatedAt,
		}
	}), nil
}

// GetMessage returns a stored message of chatID with its sender resolved.
// A message that belongs to another chat is reported as not found.
func (s *Service) GetMessage(ctx context.Context, chatID, messageID bson.ObjectID) (*data.MessageView, error) {
	msg, err := s.msgs.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.Chat != chatID {
		return nil, fmt.Errorf("message %s in chat %s: %w", messageID.Hex(), chatID.Hex(), data.ErrNotFound)
	}
	user, err := s.users.GetUserByID(ctx, msg.Sender)
	if err != nil && !errors.Is(err, data.ErrNotFound) {
		return nil, err
	}
	sender := data.UserSummary{ID: msg.Sender}
	if user != nil {
		sender = user.Summary()
	}
	return &data.MessageView{
		ID:        msg.ID,
		Chat:      msg.Chat,
		Sender:    sender,
		Text:      msg.Text,
		CreatedAt: msg.CreatedAt,
	}, nil
}

// IsParticipant reports whether userHex belongs to chatHex. Malformed or
// unknown ids are simply not participants.
func (s *Service) IsParticipant(ctx context.Context, chatHex, userHex string) (bool, error) {
	chatID, err := bson.ObjectIDFromHex(chatHex)
	if err != nil {
		return false, nil
	}
	userID, err := bson.ObjectIDFromHex(userHex)
	if err != nil {
		return false, nil
	}
	chat, err := s.chats.GetChat(ctx, chatID)
	if errors.Is(err, data.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return chat.HasParticipant(userID), nil
}

// populate resolves participants and last messages for a batch of chats with
// one users query and one messages query.
func (s *Service) populate(ctx context.Context, chats []*data.Chat) ([]*data.ChatView, error) {
	userIDs := lo.Uniq(lo.FlatMap(chats, func(c *data.Chat, _ int) []bson.ObjectID { return c.Users }))
	users, err := s.usersByID(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	lastIDs := lo.FilterMap(chats, func(c *data.Chat, _ int) (bson.ObjectID, bool) {
		if c.LastMessage == nil {
			return bson.ObjectID{}, false
		}
		return *c.LastMessage, true
	})
	lastMsgs, err := s.msgs.GetMessagesByIDs(ctx, lastIDs)
	if err != nil {
		return nil, fmt.Errorf("load last messages: %w", err)
	}
	byID := lo.KeyBy(lastMsgs, func(m *data.Message) bson.ObjectID { return m.ID })

	return lo.Map(chats, func(c *data.Chat, _ int) *data.ChatView {
		view := &data.ChatView{
			ID:           c.ID,
			Users:        lo.Map(c.Users, func(id bson.ObjectID, _ int) data.UserSummary { return summaryOf(users, id) }),
			UnreadCounts: c.UnreadCounts.Clone(),
			CreatedAt:    c.CreatedAt,
			UpdatedAt:    c.UpdatedAt,
		}
		if c.LastMessage != nil {
			view.LastMessage = byID[*c.LastMessage]
		}
		return view
	}), nil
}

func (s *Service) usersByID(ctx context.Context, ids []bson.ObjectID) (map[bson.ObjectID]*data.User, error) {
	users, err := s.users.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	return lo.KeyBy(users, func(u *data.User) bson.ObjectID { return u.ID }), nil
}

// summaryOf falls back to a bare id when the user record has gone away.
func summaryOf(users map[bson.ObjectID]*data.User, id bson.ObjectID) data.UserSummary {
	if u, ok := users[id]; ok {
		return u.Summary()
	}
	return data.UserSummary{ID: id}
}
