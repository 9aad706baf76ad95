package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MessagesStore provides message database operations.
type MessagesStore struct {
	// coll is reference to "messages" collection in MongoDB
	coll *mongo.Collection
}

// NewMessagesStore returns a MessagesStore using given collection.
func NewMessagesStore(coll *mongo.Collection) *MessagesStore {
	return &MessagesStore{coll: coll}
}

// CreateMessage inserts a message document and returns the saved record.
func (m *MessagesStore) CreateMessage(ctx context.Context, chatID, senderID bson.ObjectID, text string, createdAt time.Time) (*Message, error) {
	msg := &Message{
		Chat:      chatID,
		Sender:    senderID,
		Text:      text,
		CreatedAt: createdAt,
	}

	result, err := m.coll.InsertOne(ctx, msg)
	if err != nil {
		return nil, err
	}

	// Extract MongoDB's auto-generated _id; clients echo it back in newMessage
	msg.ID = result.InsertedID.(bson.ObjectID)
	return msg, nil
}

// GetMessage finds a message by id.
func (m *MessagesStore) GetMessage(ctx context.Context, id bson.ObjectID) (*Message, error) {
	var msg Message
	if err := m.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&msg); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("message %s: %w", id.Hex(), ErrNotFound)
		}
		return nil, err
	}
	return &msg, nil
}

// GetMessagesByIDs returns the messages with the given ids, in no particular order.
func (m *MessagesStore) GetMessagesByIDs(ctx context.Context, ids []bson.ObjectID) ([]*Message, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cursor, err := m.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var messages []*Message
	if err = cursor.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// ListMessages returns the full history of a chat ordered oldest→newest.
func (m *MessagesStore) ListMessages(ctx context.Context, chatID bson.ObjectID) ([]*Message, error) {
	// _id breaks ties between messages created in the same instant
	opts := options.Find().SetSort(bson.D{
		{Key: "created_at", Value: 1},
		{Key: "_id", Value: 1},
	})

	cursor, err := m.coll.Find(ctx, bson.M{"chat": chatID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var messages []*Message
	if err = cursor.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}
