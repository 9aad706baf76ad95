package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/PaulBabatuyi/realtime-chat/internal/data"
	"github.com/PaulBabatuyi/realtime-chat/internal/normalize"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// ChatsStore mirrors data.ChatsStore, including the unique pair constraint.
type ChatsStore struct {
	mu     sync.RWMutex
	chats  map[bson.ObjectID]*data.Chat
	byPair map[string]bson.ObjectID
}

// NewChatsStore returns an empty ChatsStore.
func NewChatsStore() *ChatsStore {
	return &ChatsStore{
		chats:  make(map[bson.ObjectID]*data.Chat),
		byPair: make(map[string]bson.ObjectID),
	}
}

// FindByPair returns the chat between a and b in either order.
func (s *ChatsStore) FindByPair(_ context.Context, a, b bson.ObjectID) (*data.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byPair[normalize.Pair(a.Hex(), b.Hex())]
	if !ok {
		return nil, fmt.Errorf("chat %s/%s: %w", a.Hex(), b.Hex(), data.ErrNotFound)
	}
	return copyChat(s.chats[id]), nil
}

// CreateChat inserts a chat between a and b, or returns data.ErrConflict if
// the pair already has one.
func (s *ChatsStore) CreateChat(_ context.Context, a, b bson.ObjectID) (*data.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := normalize.Pair(a.Hex(), b.Hex())
	if _, ok := s.byPair[key]; ok {
		return nil, fmt.Errorf("chat %s: %w", key, data.ErrConflict)
	}
	now := time.Now()
	chat := &data.Chat{
		ID:           bson.NewObjectID(),
		Users:        []bson.ObjectID{a, b},
		PairKey:      key,
		UnreadCounts: data.UnreadCounts{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.chats[chat.ID] = chat
	s.byPair[key] = chat.ID
	return copyChat(chat), nil
}

// GetChat returns a chat by ID.
func (s *ChatsStore) GetChat(_ context.Context, id bson.ObjectID) (*data.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chat, ok := s.chats[id]
	if !ok {
		return nil, fmt.Errorf("chat %s: %w", id.Hex(), data.ErrNotFound)
	}
	return copyChat(chat), nil
}

// ResetUnread sets userID's unread count in chatID to zero.
func (s *ChatsStore) ResetUnread(_ context.Context, chatID, userID bson.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	chat, ok := s.chats[chatID]
	if !ok {
		return fmt.Errorf("chat %s: %w", chatID.Hex(), data.ErrNotFound)
	}
	chat.UnreadCounts.Reset(userID.Hex())
	return nil
}

// IncrementUnread bumps each recipient's unread count and records the last message.
func (s *ChatsStore) IncrementUnread(_ context.Context, chatID bson.ObjectID, recipients []bson.ObjectID, lastMessage bson.ObjectID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	chat, ok := s.chats[chatID]
	if !ok {
		return fmt.Errorf("chat %s: %w", chatID.Hex(), data.ErrNotFound)
	}
	for _, r := range recipients {
		chat.UnreadCounts.Increment(r.Hex())
	}
	last := lastMessage
	chat.LastMessage = &last
	chat.UpdatedAt = at
	return nil
}

// ListChatsForUser returns userID's chats, most recently updated first.
func (s *ChatsStore) ListChatsForUser(_ context.Context, userID bson.ObjectID) ([]*data.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*data.Chat
	for _, chat := range s.chats {
		if chat.HasParticipant(userID) {
			out = append(out, copyChat(chat))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func copyChat(c *data.Chat) *data.Chat {
	cp := *c
	cp.Users = append([]bson.ObjectID(nil), c.Users...)
	cp.UnreadCounts = c.UnreadCounts.Clone()
	if c.LastMessage != nil {
		last := *c.LastMessage
		cp.LastMessage = &last
	}
	return &cp
}
