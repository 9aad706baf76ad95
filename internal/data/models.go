package data

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// User maps to the users collection. LastSeen is nil until the user's first
// disconnect.
type User struct {
	ID        bson.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name      string        `bson:"name" json:"name"`
	Email     string        `bson:"email" json:"email"`
	Password  string        `bson:"password" json:"-"`
	Avatar    string        `bson:"avatar" json:"avatar"`
	LastSeen  *time.Time    `bson:"last_seen,omitempty" json:"lastSeen"`
	CreatedAt time.Time     `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time     `bson:"updated_at" json:"updatedAt"`
}

// UserSummary is the public projection of a user embedded in chats and messages.
type UserSummary struct {
	ID       bson.ObjectID `json:"_id"`
	Name     string        `json:"name"`
	Avatar   string        `json:"avatar"`
	LastSeen *time.Time    `json:"lastSeen,omitempty"`
}

// Summary returns the public projection of u.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Avatar: u.Avatar, LastSeen: u.LastSeen}
}

// Chat maps to the chats collection. PairKey is the normalized participant
// pair and carries the unique index that makes find-or-create atomic.
type Chat struct {
	ID           bson.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Users        []bson.ObjectID `bson:"users" json:"users"`
	PairKey      string          `bson:"pair_key" json:"-"`
	LastMessage  *bson.ObjectID  `bson:"last_message,omitempty" json:"lastMessage"`
	UnreadCounts UnreadCounts    `bson:"unread_counts" json:"unreadCounts"`
	CreatedAt    time.Time       `bson:"created_at" json:"createdAt"`
	UpdatedAt    time.Time       `bson:"updated_at" json:"updatedAt"`
}

// HasParticipant reports whether id is one of the chat's users.
func (c *Chat) HasParticipant(id bson.ObjectID) bool {
	for _, u := range c.Users {
		if u == id {
			return true
		}
	}
	return false
}

// Message maps to the messages collection. Messages are never updated.
type Message struct {
	ID        bson.ObjectID `bson:"_id,omitempty" json:"_id"`
	Chat      bson.ObjectID `bson:"chat" json:"chat"`
	Sender    bson.ObjectID `bson:"sender" json:"sender"`
	Text      string        `bson:"text" json:"text"`
	CreatedAt time.Time     `bson:"created_at" json:"createdAt"`
}

// MessageView is a message with its sender resolved to display attributes.
type MessageView struct {
	ID        bson.ObjectID `json:"_id"`
	Chat      bson.ObjectID `json:"chat"`
	Sender    UserSummary   `json:"sender"`
	Text      string        `json:"text"`
	CreatedAt time.Time     `json:"createdAt"`
}

// ChatView is a chat with participants and last message populated, as shown
// in the chat list.
type ChatView struct {
	ID           bson.ObjectID `json:"_id"`
	Users        []UserSummary `json:"users"`
	LastMessage  *Message      `json:"lastMessage"`
	UnreadCounts UnreadCounts  `json:"unreadCounts"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}
