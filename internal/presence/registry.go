// Package presence tracks which users currently hold a live connection.
//
// The registry is a lookup table, not an owner of connections: it maps a user
// id to the id of the connection that most recently completed setup. A user
// holds a single slot, so a second client takes the slot over and the first
// client's disconnect clears it (last connection wins). State lives only in
// memory and starts empty, so every user is offline after a restart until
// they reconnect.
package presence

import (
	"sort"
	"sync"

	"github.com/samber/lo"
)

// Registry maps each online user to the connection that currently holds it.
type Registry struct {
	mu     sync.RWMutex
	online map[string]string // user id -> connection id
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{online: make(map[string]string)}
}

// SetOnline records connID as userID's connection, replacing any previous one.
func (r *Registry) SetOnline(userID, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.online[userID] = connID
}

// SetOffline removes userID regardless of which connection holds the slot.
func (r *Registry) SetOffline(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.online, userID)
}

// IsOnline reports whether userID has a live connection.
func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.online[userID]
	return ok
}

// Connection returns the connection id currently holding userID's slot.
func (r *Registry) Connection(userID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	connID, ok := r.online[userID]
	return connID, ok
}

// ListOnline returns the online user ids in ascending order.
func (r *Registry) ListOnline() []string {
	r.mu.RLock()
	ids := lo.Keys(r.online)
	r.mu.RUnlock()
	sort.Strings(ids)
	return ids
}
