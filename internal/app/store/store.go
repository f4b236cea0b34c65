/*
Package store implements the persistence collaborator of the coordination layer.

It defines the domain records (users, rooms, messages), the Store interface consumed by
the live chat core, and a PostgreSQL implementation backed by pgx. The live registries in
the chat package are a rebuildable projection of this data; the store is the single source
of truth.
*/
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a query targets a row that does not exist, or a
// conditional write matched no row (e.g., an edit by someone other than the sender).
var ErrNotFound = errors.New("store: not found")

// User is the persisted account record.
type User struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	DisplayName string     `json:"displayName"`
	AvatarURL   string     `json:"avatar,omitempty"`
	IsOnline    bool       `json:"isOnline"`
	LastSeen    *time.Time `json:"lastSeen,omitempty"`
}

// Room is the persisted room record. Membership lives in its own table and is
// queried through IsRoomMember / MemberRoomIDs.
type Room struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsPrivate bool   `json:"isPrivate"`
	IsDirect  bool   `json:"isDirect"`
}

// LastMessage is the denormalized per-room summary of the most recent message,
// refreshed on every successful send.
type LastMessage struct {
	Content    string    `json:"content"`
	SenderName string    `json:"sender"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Message is the persisted message record, including the sender's display name
// resolved at read time so broadcasts carry a complete record.
type Message struct {
	ID         string     `json:"id"`
	RoomID     string     `json:"roomId"`
	SenderID   string     `json:"senderId"`
	SenderName string     `json:"senderName"`
	Content    string     `json:"content"`
	ReplyTo    *string    `json:"replyTo,omitempty"`
	Edited     bool       `json:"edited"`
	EditedAt   *time.Time `json:"editedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// CreateMessageParams holds the inputs for persisting a new message.
type CreateMessageParams struct {
	RoomID   string
	SenderID string
	Content  string
	ReplyTo  *string
}

// Store is the persistence surface consumed by the real-time coordination layer.
// Implementations must be safe for concurrent use.
type Store interface {
	// GetUserByID fetches a user record. Returns ErrNotFound for unknown IDs.
	GetUserByID(ctx context.Context, userID string) (User, error)

	// RoomExists reports whether the room is present in the store.
	RoomExists(ctx context.Context, roomID string) (bool, error)

	// IsRoomMember reports whether the user is a persisted member of the room.
	IsRoomMember(ctx context.Context, roomID, userID string) (bool, error)

	// MemberRoomIDs lists every room the user is a persisted member of.
	MemberRoomIDs(ctx context.Context, userID string) ([]string, error)

	// CreateMessage persists a new message and records the sender as having read it.
	// The returned record is complete, including the generated ID and timestamps.
	CreateMessage(ctx context.Context, params CreateMessageParams) (Message, error)

	// UpdateRoomLastMessage refreshes the room's last-message summary.
	UpdateRoomLastMessage(ctx context.Context, roomID string, last LastMessage) error

	// UpdateMessageContent replaces the content of a message and marks it edited,
	// conditioned on senderID matching the original sender. Returns ErrNotFound when
	// the message is missing or the caller is not the sender.
	UpdateMessageContent(ctx context.Context, messageID, senderID, content string) (Message, error)

	// DeleteMessage removes a message, conditioned on senderID matching the original
	// sender. The bool reports whether a row was actually deleted.
	DeleteMessage(ctx context.Context, messageID, senderID string) (bool, error)

	// MarkMessagesRead records the user as having read every message in the room
	// they had not read yet.
	MarkMessagesRead(ctx context.Context, roomID, userID string) error

	// SetUserOnline durably marks the user online.
	SetUserOnline(ctx context.Context, userID string) error

	// SetUserOffline durably marks the user offline with a last-seen timestamp.
	SetUserOffline(ctx context.Context, userID string, lastSeen time.Time) error
}
