package realtime

import (
	"bytes"
	"encoding/json"
	"time"
)

// Client to server events.
const (
	EventSetup      = "setup"
	EventJoinChat   = "joinChat"
	EventNewMessage = "newMessage"
)

// Server to client events.
const (
	EventOnlineUsers     = "online-users"
	EventUserOnline      = "user-online"
	EventUserOffline     = "user-offline"
	EventMessageReceived = "messageReceived"
	EventError           = "error"
)

// Error codes carried by EventError.
const (
	CodeUnauthenticated = "unauthenticated"
	CodeNotFound        = "not_found"
	CodeBadRequest      = "bad_request"
	CodeInternal        = "internal"
)

// Envelope is the frame format in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// OfflineNotice is the payload of user-offline.
type OfflineNotice struct {
	UserID   string    `json:"userId"`
	LastSeen time.Time `json:"lastSeen"`
}

// Sender identifies the author of a relayed message. Clients may send either
// the populated object returned by the REST API or a bare id string.
type Sender struct {
	ID     string `json:"_id"`
	Name   string `json:"name,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

func (s *Sender) UnmarshalJSON(b []byte) error {
	if bytes.HasPrefix(bytes.TrimSpace(b), []byte(`"`)) {
		return json.Unmarshal(b, &s.ID)
	}
	type plain Sender
	return json.Unmarshal(b, (*plain)(s))
}

// IncomingMessage is the payload of newMessage: a message the client already
// persisted through the REST API.
type IncomingMessage struct {
	ID        string    `json:"_id"`
	Text      string    `json:"text"`
	Chat      string    `json:"chat"`
	Sender    Sender    `json:"sender"`
	CreatedAt time.Time `json:"createdAt"`
}

// ReceivedMessage is the payload of messageReceived.
type ReceivedMessage struct {
	ID        string    `json:"_id"`
	Text      string    `json:"text"`
	ChatID    string    `json:"chatId"`
	Sender    Sender    `json:"sender"`
	CreatedAt time.Time `json:"createdAt"`
}

// ErrorPayload is the payload of error.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Encode builds a frame for event with data marshalled as its payload.
func Encode(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}
