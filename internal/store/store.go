package store

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors surfaced by all store implementations.
var (
	ErrRoomNotFound = errors.New("room not found")
	ErrUserNotFound = errors.New("user not found")
)

// RoomStatus is the lifecycle flag of a room.
type RoomStatus string

const (
	RoomStatusOpen   RoomStatus = "open"
	RoomStatusClosed RoomStatus = "closed"
)

// Room is a chat channel identified by an opaque, externally issued token.
type Room struct {
	ID        int64
	Token     string
	Status    RoomStatus
	CreatedAt time.Time
}

// Message is a persisted chat message. Immutable once created.
type Message struct {
	ID        int64
	RoomID    int64
	Body      string
	SentBy    string // free-text display name
	CreatedBy *int64 // optional authenticated author
	CreatedAt time.Time
}

// User represents an account. Staff users are support agents.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	IsStaff      bool
	CreatedAt    time.Time
}

// RoomStore handles room persistence.
type RoomStore interface {
	// CreateRoom registers a room under the given token with status open.
	CreateRoom(ctx context.Context, token string) (*Room, error)

	// GetRoomByToken retrieves a room by its token.
	// Returns ErrRoomNotFound if no room carries the token.
	GetRoomByToken(ctx context.Context, token string) (*Room, error)

	// CloseRoom marks the room closed. The transition is one-way and
	// idempotent: closing an already closed room is not an error.
	CloseRoom(ctx context.Context, token string) error
}

// MessageStore handles message persistence.
type MessageStore interface {
	// CreateMessage appends a message to a room and returns the stored
	// row including its server-assigned creation timestamp.
	CreateMessage(ctx context.Context, roomID int64, body, sentBy string, createdBy *int64) (*Message, error)

	// ListMessages returns up to limit messages of a room in insertion
	// order. If beforeID is non-nil only older messages are returned.
	ListMessages(ctx context.Context, roomID int64, limit int, beforeID *int64) ([]*Message, error)
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, username, passwordHash string, isStaff bool) (*User, error)

	// GetUserByID retrieves a user by ID. Returns ErrUserNotFound if absent.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	RoomStore
	MessageStore
	UserStore

	// Close closes the underlying database connection.
	Close() error
}
