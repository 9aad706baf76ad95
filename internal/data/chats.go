package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PaulBabatuyi/realtime-chat/internal/normalize"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ChatsStore provides chat database operations. Unread counters live inside
// the chat document under unread_counts.<userHex>.
type ChatsStore struct {
	coll *mongo.Collection
}

// NewChatsStore returns a ChatsStore using given collection.
func NewChatsStore(coll *mongo.Collection) *ChatsStore {
	return &ChatsStore{coll: coll}
}

// FindByPair returns the chat whose participants are exactly {a, b}.
func (s *ChatsStore) FindByPair(ctx context.Context, a, b bson.ObjectID) (*Chat, error) {
	var chat Chat
	err := s.coll.FindOne(ctx, bson.M{"pair_key": normalize.Pair(a.Hex(), b.Hex())}).Decode(&chat)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("chat %s/%s: %w", a.Hex(), b.Hex(), ErrNotFound)
		}
		return nil, err
	}
	return &chat, nil
}

// CreateChat inserts a chat for {a, b} with empty unread counters. When the
// pair already has a chat the unique pair_key index rejects the insert and
// ErrConflict is returned; callers re-fetch the winning row.
func (s *ChatsStore) CreateChat(ctx context.Context, a, b bson.ObjectID) (*Chat, error) {
	now := time.Now()
	chat := &Chat{
		Users:        []bson.ObjectID{a, b},
		PairKey:      normalize.Pair(a.Hex(), b.Hex()),
		UnreadCounts: UnreadCounts{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	result, err := s.coll.InsertOne(ctx, chat)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("chat %s: %w", chat.PairKey, ErrConflict)
		}
		return nil, err
	}
	chat.ID = result.InsertedID.(bson.ObjectID)
	return chat, nil
}

// GetChat finds a chat by id.
func (s *ChatsStore) GetChat(ctx context.Context, id bson.ObjectID) (*Chat, error) {
	var chat Chat
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&chat); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("chat %s: %w", id.Hex(), ErrNotFound)
		}
		return nil, err
	}
	return &chat, nil
}

// ResetUnread sets userID's counter in the chat to 0.
func (s *ChatsStore) ResetUnread(ctx context.Context, chatID, userID bson.ObjectID) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": chatID},
		bson.M{"$set": bson.M{"unread_counts." + userID.Hex(): 0}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("chat %s: %w", chatID.Hex(), ErrNotFound)
	}
	return nil
}

// IncrementUnread adds one to each recipient's counter and moves the chat's
// last message pointer in a single update. $inc is applied server side, so
// two sends racing on the same chat cannot lose an increment.
func (s *ChatsStore) IncrementUnread(ctx context.Context, chatID bson.ObjectID, recipients []bson.ObjectID, lastMessage bson.ObjectID, at time.Time) error {
	inc := bson.M{}
	for _, r := range recipients {
		inc["unread_counts."+r.Hex()] = 1
	}
	update := bson.M{"$set": bson.M{"last_message": lastMessage, "updated_at": at}}
	if len(inc) > 0 {
		update["$inc"] = inc
	}

	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": chatID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("chat %s: %w", chatID.Hex(), ErrNotFound)
	}
	return nil
}

// ListChatsForUser returns every chat userID takes part in, most recently
// active first.
func (s *ChatsStore) ListChatsForUser(ctx context.Context, userID bson.ObjectID) ([]*Chat, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	cursor, err := s.coll.Find(ctx, bson.M{"users": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var chats []*Chat
	if err = cursor.All(ctx, &chats); err != nil {
		return nil, err
	}
	return chats, nil
}
