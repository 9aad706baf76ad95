// Package memory holds process-local implementations of the data stores.
// They back STORE_DRIVER=memory and the tests; nothing survives a restart.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/PaulBabatuyi/realtime-chat/internal/data"
	"github.com/PaulBabatuyi/realtime-chat/internal/normalize"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// UsersStore mirrors data.UsersStore, including the unique email constraint.
type UsersStore struct {
	mu      sync.RWMutex
	users   map[bson.ObjectID]*data.User
	byEmail map[string]bson.ObjectID
}

// NewUsersStore returns an empty UsersStore.
func NewUsersStore() *UsersStore {
	return &UsersStore{
		users:   make(map[bson.ObjectID]*data.User),
		byEmail: make(map[string]bson.ObjectID),
	}
}

// CreateUser inserts a user, or returns data.ErrDuplicateEmail for a taken email.
func (s *UsersStore) CreateUser(_ context.Context, name, email, hashedPassword, avatar string) (*data.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email = normalize.Email(email)
	if _, ok := s.byEmail[email]; ok {
		return nil, data.ErrDuplicateEmail
	}
	now := time.Now()
	u := &data.User{
		ID:        bson.NewObjectID(),
		Name:      name,
		Email:     email,
		Password:  hashedPassword,
		Avatar:    avatar,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.users[u.ID] = u
	s.byEmail[email] = u.ID
	return copyUser(u), nil
}

// GetUserByEmail looks a user up by normalized email.
func (s *UsersStore) GetUserByEmail(ctx context.Context, email string) (*data.User, error) {
	s.mu.RLock()
	id, ok := s.byEmail[normalize.Email(email)]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("user %s: %w", email, data.ErrNotFound)
	}
	return s.GetUserByID(ctx, id)
}

// GetUserByID returns a user by ID.
func (s *UsersStore) GetUserByID(_ context.Context, id bson.ObjectID) (*data.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id.Hex(), data.ErrNotFound)
	}
	return copyUser(u), nil
}

func (s *UsersStore) GetUsersByIDs(_ context.Context, ids []bson.ObjectID) ([]*data.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*data.User
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out = append(out, copyUser(u))
		}
	}
	return out, nil
}

// ListUsersExcept returns every user other than id, sorted by name and
// without password hashes.
func (s *UsersStore) ListUsersExcept(_ context.Context, id bson.ObjectID) ([]*data.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*data.User, 0, len(s.users))
	for uid, u := range s.users {
		if uid == id {
			continue
		}
		cp := copyUser(u)
		cp.Password = ""
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *UsersStore) UserExists(_ context.Context, id bson.ObjectID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[id]
	return ok, nil
}

// SetLastSeen records when the user was last online.
func (s *UsersStore) SetLastSeen(_ context.Context, id bson.ObjectID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return fmt.Errorf("user %s: %w", id.Hex(), data.ErrNotFound)
	}
	seen := at
	u.LastSeen = &seen
	u.UpdatedAt = time.Now()
	return nil
}

func copyUser(u *data.User) *data.User {
	cp := *u
	if u.LastSeen != nil {
		seen := *u.LastSeen
		cp.LastSeen = &seen
	}
	return &cp
}
