package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/PaulBabatuyi/realtime-chat/internal/data"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// MessagesStore keeps messages per chat in insertion order, which is also
// creation order.
type MessagesStore struct {
	mu     sync.RWMutex
	byID   map[bson.ObjectID]*data.Message
	byChat map[bson.ObjectID][]*data.Message
}

// NewMessagesStore returns an empty MessagesStore.
func NewMessagesStore() *MessagesStore {
	return &MessagesStore{
		byID:   make(map[bson.ObjectID]*data.Message),
		byChat: make(map[bson.ObjectID][]*data.Message),
	}
}

// CreateMessage stores a message and assigns it a new ID.
func (s *MessagesStore) CreateMessage(_ context.Context, chatID, senderID bson.ObjectID, text string, createdAt time.Time) (*data.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := &data.Message{
		ID:        bson.NewObjectID(),
		Chat:      chatID,
		Sender:    senderID,
		Text:      text,
		CreatedAt: createdAt,
	}
	s.byID[msg.ID] = msg
	s.byChat[chatID] = append(s.byChat[chatID], msg)
	cp := *msg
	return &cp, nil
}

// GetMessage returns a message by ID.
func (s *MessagesStore) GetMessage(_ context.Context, id bson.ObjectID) (*data.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msg, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("message %s: %w", id.Hex(), data.ErrNotFound)
	}
	cp := *msg
	return &cp, nil
}

func (s *MessagesStore) GetMessagesByIDs(_ context.Context, ids []bson.ObjectID) ([]*data.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*data.Message
	for _, id := range ids {
		if msg, ok := s.byID[id]; ok {
			cp := *msg
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ListMessages returns chatID's messages oldest first.
func (s *MessagesStore) ListMessages(_ context.Context, chatID bson.ObjectID) ([]*data.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.byChat[chatID]
	out := make([]*data.Message, 0, len(msgs))
	for _, m := range msgs {
		cp := *m
		out = append(out, &cp)
	}
	return out, nil
}
