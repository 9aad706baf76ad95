package memory

import (
	"context"
	"testing"
	"time"

	"github.com/PaulBabatuyi/realtime-chat/internal/data"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestChatsStore_PairIsUnordered(t *testing.T) {
	ctx := context.Background()
	s := NewChatsStore()
	a, b := bson.NewObjectID(), bson.NewObjectID()

	chat, err := s.CreateChat(ctx, a, b)
	require.NoError(t, err)

	_, err = s.CreateChat(ctx, b, a)
	require.ErrorIs(t, err, data.ErrConflict)

	found, err := s.FindByPair(ctx, b, a)
	require.NoError(t, err)
	require.Equal(t, chat.ID, found.ID)
}

func TestChatsStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewChatsStore()
	a, b := bson.NewObjectID(), bson.NewObjectID()
	chat, err := s.CreateChat(ctx, a, b)
	require.NoError(t, err)

	chat.UnreadCounts.Increment(a.Hex())

	stored, err := s.GetChat(ctx, chat.ID)
	require.NoError(t, err)
	require.Equal(t, 0, stored.UnreadCounts.Get(a.Hex()))
}

func TestChatsStore_IncrementAndList(t *testing.T) {
	ctx := context.Background()
	s := NewChatsStore()
	a, b, c := bson.NewObjectID(), bson.NewObjectID(), bson.NewObjectID()
	older, err := s.CreateChat(ctx, a, b)
	require.NoError(t, err)
	newer, err := s.CreateChat(ctx, a, c)
	require.NoError(t, err)

	msgID := bson.NewObjectID()
	require.NoError(t, s.IncrementUnread(ctx, newer.ID, []bson.ObjectID{c}, msgID, time.Now().Add(time.Minute)))

	list, err := s.ListChatsForUser(ctx, a)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, newer.ID, list[0].ID)
	require.Equal(t, older.ID, list[1].ID)
	require.Equal(t, 1, list[0].UnreadCounts.Get(c.Hex()))
	require.Equal(t, msgID, *list[0].LastMessage)

	require.ErrorIs(t, s.ResetUnread(ctx, bson.NewObjectID(), a), data.ErrNotFound)
}

func TestUsersStore_LastSeenAndDuplicates(t *testing.T) {
	ctx := context.Background()
	s := NewUsersStore()
	u, err := s.CreateUser(ctx, "Alice", "alice@example.com", "hash", "")
	require.NoError(t, err)

	_, err = s.CreateUser(ctx, "Other", " ALICE@example.com ", "hash", "")
	require.ErrorIs(t, err, data.ErrDuplicateEmail)

	at := time.Now()
	require.NoError(t, s.SetLastSeen(ctx, u.ID, at))
	got, err := s.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, got.LastSeen)
	require.True(t, got.LastSeen.Equal(at))

	require.ErrorIs(t, s.SetLastSeen(ctx, bson.NewObjectID(), at), data.ErrNotFound)
}

func TestMessagesStore_GetMessage(t *testing.T) {
	ctx := context.Background()
	s := NewMessagesStore()
	chatID, sender := bson.NewObjectID(), bson.NewObjectID()
	text := "  <i>a</i> && it's\n"

	msg, err := s.CreateMessage(ctx, chatID, sender, text, time.Now())
	require.NoError(t, err)

	got, err := s.GetMessage(ctx, msg.ID)
	require.NoError(t, err)
	require.Equal(t, chatID, got.Chat)
	require.Equal(t, sender, got.Sender)
	require.Equal(t, text, got.Text)

	_, err = s.GetMessage(ctx, bson.NewObjectID())
	require.ErrorIs(t, err, data.ErrNotFound)
}
