package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/PaulBabatuyi/realtime-chat/internal/auth"
	"github.com/PaulBabatuyi/realtime-chat/internal/chat"
	"github.com/PaulBabatuyi/realtime-chat/internal/data"
	"github.com/PaulBabatuyi/realtime-chat/internal/middleware"
	"github.com/PaulBabatuyi/realtime-chat/internal/presence"
	"github.com/PaulBabatuyi/realtime-chat/internal/realtime"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type testEnv struct {
	srv      *Server
	stores   *stores
	registry *presence.Registry
	http     *httptest.Server
}

// newTestEnv wires the full HTTP stack over the in-memory stores.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	st := memoryStores()
	chatSvc := chat.NewService(st.chats, st.msgs, st.users, log)
	registry := presence.NewRegistry()
	hub := realtime.NewHub(registry, lastSeenWriter{users: st.users}, chatSvc, messageLookup{chats: chatSvc}, log, realtime.Options{})

	ctx, cancel := context.WithCancel(context.Background())
	hubDone := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(hubDone)
	}()

	limiter := middleware.NewLimiterStore(1000, 1000, time.Minute)
	srv := newServer(st.users, chatSvc, auth.NewJWTManager("test-secret", time.Hour), registry, hub, log)
	ts := httptest.NewServer(srv.routes(limiter, []string{"*"}))

	t.Cleanup(func() {
		ts.Close()
		cancel()
		<-hubDone
		limiter.Stop()
	})
	return &testEnv{srv: srv, stores: st, registry: registry, http: ts}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.http.URL+path, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.http.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

type session struct {
	token string
	id    string
}

func (e *testEnv) register(t *testing.T, name, email string) session {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": name, "email": email, "password": "testPass123",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	out := decodeBody[authResponse](t, resp)
	require.NotEmpty(t, out.Token)
	return session{token: out.Token, id: out.User.ID.Hex()}
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Alice", "Alice@Example.com")

	resp := env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Alice again", "email": "alice@example.com", "password": "testPass123",
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Bad", "email": "not-an-email", "password": "testPass123",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "wrong",
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "nobody@example.com", "password": "testPass123",
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "ALICE@example.com", "password": "testPass123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decodeBody[map[string]any](t, resp)
	require.NotEmpty(t, out["token"])
	user := out["user"].(map[string]any)
	require.Equal(t, "alice@example.com", user["email"])
	require.NotContains(t, user, "password")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/chats", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/chats", "garbage", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// query tokens are only honoured on websocket upgrades
	a := env.register(t, "Alice", "alice@example.com")
	resp = env.do(t, http.MethodGet, "/api/chats?token="+a.token, "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestChatFlow_UnreadCounters(t *testing.T) {
	env := newTestEnv(t)
	a := env.register(t, "Alice", "alice@example.com")
	b := env.register(t, "Bob", "bob@example.com")

	resp := env.do(t, http.MethodPost, "/api/chats", a.token, map[string]string{"userId": b.id})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	opened := decodeBody[data.ChatView](t, resp)
	require.Len(t, opened.Users, 2)
	require.Equal(t, 0, opened.UnreadCounts.Get(a.id))
	require.Nil(t, opened.LastMessage)

	chatID := opened.ID.Hex()
	for _, text := range []string{"hi", "are you there?"} {
		resp = env.do(t, http.MethodPost, "/api/chats/message", a.token, map[string]string{"chatId": chatID, "text": text})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		msg := decodeBody[data.MessageView](t, resp)
		require.Equal(t, "Alice", msg.Sender.Name)
		require.Equal(t, text, msg.Text)
	}

	resp = env.do(t, http.MethodGet, "/api/chats", b.token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	chats := decodeBody[[]data.ChatView](t, resp)
	require.Len(t, chats, 1)
	require.Equal(t, 2, chats[0].UnreadCounts.Get(b.id))
	require.Equal(t, 0, chats[0].UnreadCounts.Get(a.id))
	require.NotNil(t, chats[0].LastMessage)
	require.Equal(t, "are you there?", chats[0].LastMessage.Text)

	resp = env.do(t, http.MethodGet, "/api/chats/message/"+chatID, b.token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	history := decodeBody[[]data.MessageView](t, resp)
	require.Len(t, history, 2)
	require.Equal(t, "hi", history[0].Text)
	require.False(t, history[1].CreatedAt.Before(history[0].CreatedAt))

	// opening the chat reads it
	resp = env.do(t, http.MethodPost, "/api/chats", b.token, map[string]string{"userId": a.id})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	reopened := decodeBody[data.ChatView](t, resp)
	require.Equal(t, opened.ID, reopened.ID)
	require.Equal(t, 0, reopened.UnreadCounts.Get(b.id))

	resp = env.do(t, http.MethodPost, "/api/chats/message", b.token, map[string]string{"chatId": chatID, "text": "yes"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/chats/read", a.token, map[string]string{"chatId": chatID})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = env.do(t, http.MethodPost, "/api/chats/read", a.token, map[string]string{"chatId": chatID})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/chats", a.token, nil)
	chats = decodeBody[[]data.ChatView](t, resp)
	require.Equal(t, 0, chats[0].UnreadCounts.Get(a.id))
}

func TestChatFlow_Errors(t *testing.T) {
	env := newTestEnv(t)
	a := env.register(t, "Alice", "alice@example.com")
	b := env.register(t, "Bob", "bob@example.com")
	c := env.register(t, "Carol", "carol@example.com")

	resp := env.do(t, http.MethodPost, "/api/chats", a.token, map[string]string{"userId": a.id})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/chats", a.token, map[string]string{"userId": bson.NewObjectID().Hex()})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/chats", a.token, map[string]string{"userId": "nope"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/chats", a.token, map[string]string{"userId": b.id})
	chatID := decodeBody[data.ChatView](t, resp).ID.Hex()

	resp = env.do(t, http.MethodPost, "/api/chats/message", c.token, map[string]string{"chatId": chatID, "text": "intruder"})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/chats/message/"+chatID, c.token, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/chats/read", c.token, map[string]string{"chatId": chatID})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/chats/message", a.token, map[string]string{"chatId": chatID, "text": "   "})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/chats/message", a.token, map[string]string{"chatId": bson.NewObjectID().Hex(), "text": "hello"})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/chats/message/not-an-id", a.token, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListUsers_OnlineFlag(t *testing.T) {
	env := newTestEnv(t)
	a := env.register(t, "Alice", "alice@example.com")
	b := env.register(t, "Bob", "bob@example.com")
	c := env.register(t, "Carol", "carol@example.com")

	env.registry.SetOnline(b.id, "conn-b")

	resp := env.do(t, http.MethodGet, "/api/users", a.token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	users := decodeBody[[]map[string]any](t, resp)
	require.Len(t, users, 2)

	online := map[string]bool{}
	for _, u := range users {
		require.NotContains(t, u, "password")
		online[u["_id"].(string)] = u["online"].(bool)
	}
	require.Equal(t, map[string]bool{b.id: true, c.id: false}, online)
}

func TestLastSeenWriter(t *testing.T) {
	st := memoryStores()
	w := lastSeenWriter{users: st.users}
	ctx := context.Background()

	require.Error(t, w.SetLastSeen(ctx, "not-hex", time.Now()))

	u, err := st.users.CreateUser(ctx, "Alice", "alice@example.com", "hash", "")
	require.NoError(t, err)
	at := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, w.SetLastSeen(ctx, u.ID.Hex(), at))

	got, err := st.users.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastSeen)
	require.True(t, got.LastSeen.Equal(at))
}

func TestTokenFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/ws?token=q", nil)
	require.Equal(t, "", tokenFromRequest(req))

	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	require.Equal(t, "q", tokenFromRequest(req))

	req.Header.Set("Authorization", "Bearer h")
	require.Equal(t, "h", tokenFromRequest(req))

	req.Header.Set("Authorization", "Basic abc")
	require.Equal(t, "", tokenFromRequest(req))
}

func decodeHex(t *testing.T, hex string) bson.ObjectID {
	t.Helper()
	id, err := bson.ObjectIDFromHex(hex)
	require.NoError(t, err)
	return id
}

func TestMessageLookup(t *testing.T) {
	env := newTestEnv(t)
	a := env.register(t, "Alice", "alice@example.com")
	b := env.register(t, "Bob", "bob@example.com")

	resp := env.do(t, http.MethodPost, "/api/chats", a.token, map[string]string{"userId": b.id})
	chatID := decodeBody[data.ChatView](t, resp).ID.Hex()
	resp = env.do(t, http.MethodPost, "/api/chats/message", a.token, map[string]string{"chatId": chatID, "text": "hi"})
	sent := decodeBody[data.MessageView](t, resp)

	lookup := messageLookup{chats: env.srv.chats}
	ctx := context.Background()

	msg, found, err := lookup.LookupMessage(ctx, chatID, sent.ID.Hex())
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, chatID, msg.ChatID)
	require.Equal(t, a.id, msg.Sender.ID)
	require.Equal(t, "Alice", msg.Sender.Name)
	require.Equal(t, "hi", msg.Text)

	for _, ids := range [][2]string{
		{chatID, bson.NewObjectID().Hex()},
		{bson.NewObjectID().Hex(), sent.ID.Hex()},
		{"bad", sent.ID.Hex()},
		{chatID, "bad"},
	} {
		_, found, err := lookup.LookupMessage(ctx, ids[0], ids[1])
		require.NoError(t, err)
		require.False(t, found, "%v", ids)
	}
}
