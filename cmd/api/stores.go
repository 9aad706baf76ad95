package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/PaulBabatuyi/realtime-chat/internal/chat"
	"github.com/PaulBabatuyi/realtime-chat/internal/config"
	"github.com/PaulBabatuyi/realtime-chat/internal/data"
	"github.com/PaulBabatuyi/realtime-chat/internal/data/memory"
	"github.com/PaulBabatuyi/realtime-chat/internal/db"
)

// stores is the selected persistence backend.
type stores struct {
	users UserStore
	chats chat.ChatStore
	msgs  chat.MessageStore
	ping  func(ctx context.Context) error
	close func(ctx context.Context) error
}

// openStores connects the backend named by STORE_DRIVER.
func openStores(ctx context.Context, cfg config.Config, log *slog.Logger) (*stores, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		log.Warn("using in-memory store, data is lost on restart")
		return memoryStores(), nil

	case config.DriverMongo:
		client, err := db.New(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to DB: %w", err)
		}
		if err := client.CreateIndexes(ctx); err != nil {
			_ = client.Close(ctx)
			return nil, fmt.Errorf("failed to create indexes: %w", err)
		}
		log.Info("connected to MongoDB", "database", cfg.MongoDatabase)
		return &stores{
			users: data.NewUsersStore(client.UsersCollection()),
			chats: data.NewChatsStore(client.ChatsCollection()),
			msgs:  data.NewMessagesStore(client.MessagesCollection()),
			ping:  client.Ping,
			close: client.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func memoryStores() *stores {
	return &stores{
		users: memory.NewUsersStore(),
		chats: memory.NewChatsStore(),
		msgs:  memory.NewMessagesStore(),
		ping:  func(context.Context) error { return nil },
		close: func(context.Context) error { return nil },
	}
}
