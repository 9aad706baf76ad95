package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/PaulBabatuyi/realtime-chat/internal/auth"
	"github.com/PaulBabatuyi/realtime-chat/internal/chat"
	"github.com/PaulBabatuyi/realtime-chat/internal/data"
	"github.com/gorilla/mux"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const maxBodyBytes = 1 << 20

type registerRequest struct {
	Name     string `json:"name" validate:"required,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Avatar   string `json:"avatar" validate:"omitempty,url"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expiresAt"`
	User      *data.User `json:"user"`
}

type accessChatRequest struct {
	UserID string `json:"userId" validate:"required,mongodb"`
}

type sendMessageRequest struct {
	ChatID string `json:"chatId" validate:"required,mongodb"`
	Text   string `json:"text" validate:"required"`
}

type chatRequest struct {
	ChatID string `json:"chatId" validate:"required,mongodb"`
}

// userResponse is a directory entry with live presence.
type userResponse struct {
	*data.User
	Online bool `json:"online"`
}

// register handles user registration: hashes password, stores user, returns JWT token
func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !s.decode(w, r, &req) {
		return
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	user, err := s.users.CreateUser(r.Context(), req.Name, req.Email, hashed, req.Avatar)
	if errors.Is(err, data.ErrDuplicateEmail) {
		writeError(w, http.StatusConflict, "email already registered")
		return
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.log.Info("user registered", "user_id", user.ID.Hex())

	s.issueToken(w, r, http.StatusCreated, user)
}

// login authenticates a user and returns a JWT token
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decode(w, r, &req) {
		return
	}

	user, err := s.users.GetUserByEmail(r.Context(), req.Email)
	if errors.Is(err, data.ErrNotFound) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	if err := auth.CheckPassword(user.Password, req.Password); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	s.issueToken(w, r, http.StatusOK, user)
}

func (s *Server) issueToken(w http.ResponseWriter, r *http.Request, status int, user *data.User) {
	token, expiresAt, err := s.auth.GenerateToken(user.ID.Hex(), user.Email)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	writeJSON(w, status, authResponse{Token: token, ExpiresAt: expiresAt, User: user})
}

// listUsers returns everyone but the caller, flagged with whether they are
// connected right now.
func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	me, _ := userIDFromContext(r.Context())

	users, err := s.users.ListUsersExcept(r.Context(), me)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lo.Map(users, func(u *data.User, _ int) userResponse {
		return userResponse{User: u, Online: s.presence.IsOnline(u.ID.Hex())}
	}))
}

// accessChat opens (or creates) the chat with another user.
func (s *Server) accessChat(w http.ResponseWriter, r *http.Request) {
	var req accessChatRequest
	if !s.decode(w, r, &req) {
		return
	}
	me, _ := userIDFromContext(r.Context())
	other, _ := bson.ObjectIDFromHex(req.UserID)

	view, err := s.chats.AccessChat(r.Context(), me, other)
	if err != nil {
		s.chatError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// listChats returns the caller's chats, most recent activity first.
func (s *Server) listChats(w http.ResponseWriter, r *http.Request) {
	me, _ := userIDFromContext(r.Context())

	views, err := s.chats.ListChats(r.Context(), me)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// sendMessage persists a message and bumps the other participant's unread
// counter. The client relays it to the room with a newMessage event.
func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if !s.decode(w, r, &req) {
		return
	}
	me, _ := userIDFromContext(r.Context())
	chatID, _ := bson.ObjectIDFromHex(req.ChatID)

	msg, err := s.chats.Send(r.Context(), chatID, me, req.Text)
	if err != nil {
		s.chatError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

// listMessages returns a chat's history, oldest first.
func (s *Server) listMessages(w http.ResponseWriter, r *http.Request) {
	chatID, err := bson.ObjectIDFromHex(mux.Vars(r)["chatId"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid chat id")
		return
	}
	me, _ := userIDFromContext(r.Context())

	msgs, err := s.chats.ListMessages(r.Context(), chatID, me)
	if err != nil {
		s.chatError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

// markRead resets the caller's unread counter for a chat.
func (s *Server) markRead(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !s.decode(w, r, &req) {
		return
	}
	me, _ := userIDFromContext(r.Context())
	chatID, _ := bson.ObjectIDFromHex(req.ChatID)

	if err := s.chats.ResetUnread(r.Context(), chatID, me); err != nil {
		s.chatError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// serveWS upgrades to the realtime event channel for the token's user.
func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing auth claims")
		return
	}
	s.hub.ServeWS(w, r, claims.UserID)
}

// decode reads and validates a JSON body, answering 400 on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// chatError maps chat service failures onto status codes.
func (s *Server) chatError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, data.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, data.ErrConflict):
		writeError(w, http.StatusConflict, "conflict, retry the request")
	case errors.Is(err, chat.ErrInvalidMessage), errors.Is(err, chat.ErrSelfChat):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.serverError(w, r, err)
	}
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	s.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	writeError(w, http.StatusInternalServerError, "internal server error")
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
