package models

import (
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("not found")
)

type EventType string

const (
	EventMessage    EventType = "message"
	EventTyping     EventType = "typing"
	EventUserJoined EventType = "user_joined"
	EventUserLeft   EventType = "user_left"
)

// Message is a single chat event as delivered by the server, either live over
// the socket or from the paginated history endpoint.
type Message struct {
	// ID is zero until the message has been acknowledged by the server.
	ID        int64     `json:"id,omitempty"`
	Type      EventType `json:"type"`
	Content   string    `json:"content"`
	RoomID    string    `json:"room_id"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	Avatar    string    `json:"avatar,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (m Message) HasID() bool {
	return m.ID != 0
}

// IsSystem reports whether the message is a join/leave announcement rather
// than user content.
func (m Message) IsSystem() bool {
	return m.Type == EventUserJoined || m.Type == EventUserLeft
}

// Same reports whether two messages are the same logical message. Messages
// with server-assigned IDs compare by ID; unacknowledged ones fall back to
// the (content, user, timestamp) triple. The triple can collapse two
// legitimate identical messages sent within the same timestamp granularity;
// that matches the server's own semantics, so it is kept as is.
func (m Message) Same(other Message) bool {
	if m.HasID() && other.HasID() {
		return m.ID == other.ID
	}
	return m.Content == other.Content &&
		m.UserID == other.UserID &&
		m.CreatedAt.Equal(other.CreatedAt)
}

// Outbound is the client-to-server event envelope.
type Outbound struct {
	Type    EventType `json:"type"`
	Content string    `json:"content"`
	RoomID  string    `json:"room_id"`
}

// User represents the authenticated identity as reported by the auth service.
type User struct {
	ID       int64      `json:"id"`
	Username string     `json:"username"`
	Email    string     `json:"email"`
	FullName string     `json:"full_name"`
	Avatar   string     `json:"avatar"`
	IsOnline bool       `json:"is_online"`
	LastSeen *time.Time `json:"last_seen"`
}

// AuthResponse is returned by the login and register endpoints.
type AuthResponse struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
