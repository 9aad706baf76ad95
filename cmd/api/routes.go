package main

import (
	"net/http"

	"github.com/PaulBabatuyi/realtime-chat/internal/middleware"
	"github.com/gorilla/mux"
)

// routes builds the HTTP surface. Register and login are rate limited per
// client address; everything else requires a token.
func (s *Server) routes(limiter *middleware.LimiterStore, origins []string) http.Handler {
	r := mux.NewRouter()

	authRoutes := r.PathPrefix("/api/auth").Subrouter()
	authRoutes.Use(middleware.RateLimit(limiter, s.log))
	authRoutes.HandleFunc("/register", s.register).Methods(http.MethodPost)
	authRoutes.HandleFunc("/login", s.login).Methods(http.MethodPost)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.requireAuth)
	api.HandleFunc("/users", s.listUsers).Methods(http.MethodGet)
	api.HandleFunc("/chats", s.listChats).Methods(http.MethodGet)
	api.HandleFunc("/chats", s.accessChat).Methods(http.MethodPost)
	api.HandleFunc("/chats/message", s.sendMessage).Methods(http.MethodPost)
	api.HandleFunc("/chats/message/{chatId}", s.listMessages).Methods(http.MethodGet)
	api.HandleFunc("/chats/read", s.markRead).Methods(http.MethodPost)

	r.Handle("/ws", s.requireAuth(http.HandlerFunc(s.serveWS))).Methods(http.MethodGet)

	return middleware.CORS(origins)(r)
}
