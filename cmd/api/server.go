package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/PaulBabatuyi/realtime-chat/internal/auth"
	"github.com/PaulBabatuyi/realtime-chat/internal/chat"
	"github.com/PaulBabatuyi/realtime-chat/internal/data"
	"github.com/PaulBabatuyi/realtime-chat/internal/presence"
	"github.com/PaulBabatuyi/realtime-chat/internal/realtime"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// UserStore is what the HTTP layer needs from the users store on top of
// what the chat service reads.
type UserStore interface {
	chat.UserStore
	CreateUser(ctx context.Context, name, email, hashedPassword, avatar string) (*data.User, error)
	GetUserByEmail(ctx context.Context, email string) (*data.User, error)
	ListUsersExcept(ctx context.Context, id bson.ObjectID) ([]*data.User, error)
	SetLastSeen(ctx context.Context, id bson.ObjectID, at time.Time) error
}

// Server holds the stores, the chat service and the realtime hub behind the
// REST and websocket routes.
type Server struct {
	users    UserStore
	chats    *chat.Service
	auth     *auth.JWTManager
	presence *presence.Registry
	hub      *realtime.Hub
	validate *validator.Validate
	log      *slog.Logger
}

// newServer returns a ready-to-use Server.
func newServer(users UserStore, chats *chat.Service, authMgr *auth.JWTManager, registry *presence.Registry, hub *realtime.Hub, log *slog.Logger) *Server {
	return &Server{
		users:    users,
		chats:    chats,
		auth:     authMgr,
		presence: registry,
		hub:      hub,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      log,
	}
}

// lastSeenWriter adapts the users store to the hub, which knows users by
// their hex id only.
type lastSeenWriter struct {
	users UserStore
}

func (w lastSeenWriter) SetLastSeen(ctx context.Context, userID string, at time.Time) error {
	id, err := bson.ObjectIDFromHex(userID)
	if err != nil {
		return fmt.Errorf("last seen for %q: %w", userID, err)
	}
	return w.users.SetLastSeen(ctx, id, at)
}

// messageLookup lets the hub relay the stored copy of a message.
type messageLookup struct {
	chats *chat.Service
}

func (l messageLookup) LookupMessage(ctx context.Context, chatID, messageID string) (realtime.ReceivedMessage, bool, error) {
	cid, err := bson.ObjectIDFromHex(chatID)
	if err != nil {
		return realtime.ReceivedMessage{}, false, nil
	}
	mid, err := bson.ObjectIDFromHex(messageID)
	if err != nil {
		return realtime.ReceivedMessage{}, false, nil
	}

	view, err := l.chats.GetMessage(ctx, cid, mid)
	if errors.Is(err, data.ErrNotFound) {
		return realtime.ReceivedMessage{}, false, nil
	}
	if err != nil {
		return realtime.ReceivedMessage{}, false, err
	}
	return realtime.ReceivedMessage{
		ID:     view.ID.Hex(),
		Text:   view.Text,
		ChatID: view.Chat.Hex(),
		Sender: realtime.Sender{
			ID:     view.Sender.ID.Hex(),
			Name:   view.Sender.Name,
			Avatar: view.Sender.Avatar,
		},
		CreatedAt: view.CreatedAt,
	}, true, nil
}
