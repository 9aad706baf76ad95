package middleware

import (
	"net/http"

	"github.com/samber/lo"
)

// CORS allows browser clients from origins to call the API. A "*" entry
// allows any origin.
func CORS(origins []string) func(http.Handler) http.Handler {
	anyOrigin := lo.Contains(origins, "*")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (anyOrigin || lo.Contains(origins, origin)) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Add("Vary", "Origin")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// OriginAllowed reports whether a websocket upgrade from r's Origin should be
// accepted. Requests without an Origin header are not from browsers.
func OriginAllowed(origins []string) func(r *http.Request) bool {
	anyOrigin := lo.Contains(origins, "*")
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || anyOrigin || lo.Contains(origins, origin)
	}
}
