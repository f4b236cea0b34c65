package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PG is the PostgreSQL-backed Store implementation.
type PG struct {
	pool *pgxpool.Pool
}

// NewPG wraps an existing connection pool in a Store implementation.
func NewPG(pool *pgxpool.Pool) *PG {
	return &PG{pool: pool}
}

var _ Store = (*PG)(nil)

// GetUserByID fetches a user record by its ID.
func (s *PG) GetUserByID(ctx context.Context, userID string) (User, error) {
	var u User

	err := s.pool.QueryRow(ctx,
		`SELECT id, username, display_name, avatar_url, is_online, last_seen
		 FROM users WHERE id = $1`,
		userID,
	).Scan(&u.ID, &u.Username, &u.DisplayName, &u.AvatarURL, &u.IsOnline, &u.LastSeen)

	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("get user by id: %w", err)
	}

	return u, nil
}

// RoomExists reports whether the room is present in the store.
func (s *PG) RoomExists(ctx context.Context, roomID string) (bool, error) {
	var exists bool

	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM rooms WHERE id = $1)`,
		roomID,
	).Scan(&exists)

	if err != nil {
		return false, fmt.Errorf("room exists: %w", err)
	}

	return exists, nil
}

// IsRoomMember reports whether the user is a persisted member of the room.
func (s *PG) IsRoomMember(ctx context.Context, roomID, userID string) (bool, error) {
	var member bool

	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM room_members WHERE room_id = $1 AND user_id = $2)`,
		roomID, userID,
	).Scan(&member)

	if err != nil {
		return false, fmt.Errorf("is room member: %w", err)
	}

	return member, nil
}

// MemberRoomIDs lists every room the user is a persisted member of.
func (s *PG) MemberRoomIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT room_id FROM room_members WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("member room ids: %w", err)
	}
	defer rows.Close()

	var roomIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("member room ids scan: %w", err)
		}
		roomIDs = append(roomIDs, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("member room ids rows: %w", err)
	}

	return roomIDs, nil
}

// CreateMessage persists a new message in a single transaction, recording the sender
// as having read it. The returned record carries the generated ID and timestamps plus
// the sender's display name.
func (s *PG) CreateMessage(ctx context.Context, params CreateMessageParams) (Message, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Message{}, fmt.Errorf("create message begin: %w", err)
	}
	defer tx.Rollback(ctx)

	msg := Message{
		RoomID:   params.RoomID,
		SenderID: params.SenderID,
		Content:  params.Content,
		ReplyTo:  params.ReplyTo,
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO messages (room_id, sender_id, content, reply_to)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		params.RoomID, params.SenderID, params.Content, params.ReplyTo,
	).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return Message{}, fmt.Errorf("create message insert: %w", err)
	}

	err = tx.QueryRow(ctx,
		`SELECT display_name FROM users WHERE id = $1`,
		params.SenderID,
	).Scan(&msg.SenderName)
	if err != nil {
		return Message{}, fmt.Errorf("create message sender lookup: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO message_reads (message_id, user_id) VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`,
		msg.ID, params.SenderID,
	)
	if err != nil {
		return Message{}, fmt.Errorf("create message read mark: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Message{}, fmt.Errorf("create message commit: %w", err)
	}

	return msg, nil
}

// UpdateRoomLastMessage refreshes the room's denormalized last-message summary.
func (s *PG) UpdateRoomLastMessage(ctx context.Context, roomID string, last LastMessage) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE rooms
		 SET last_message_content = $2, last_message_sender = $3, last_message_at = $4
		 WHERE id = $1`,
		roomID, last.Content, last.SenderName, last.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("update room last message: %w", err)
	}

	return nil
}

// UpdateMessageContent replaces the content of a message and marks it edited.
// The WHERE clause enforces the sender-only rule: a mismatched sender matches no row
// and surfaces as ErrNotFound, indistinguishable from a missing message.
func (s *PG) UpdateMessageContent(ctx context.Context, messageID, senderID, content string) (Message, error) {
	msg := Message{
		ID:       messageID,
		SenderID: senderID,
		Content:  content,
		Edited:   true,
	}

	err := s.pool.QueryRow(ctx,
		`UPDATE messages
		 SET content = $3, edited = TRUE, edited_at = now()
		 WHERE id = $1 AND sender_id = $2
		 RETURNING room_id, reply_to, edited_at, created_at`,
		messageID, senderID, content,
	).Scan(&msg.RoomID, &msg.ReplyTo, &msg.EditedAt, &msg.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return Message{}, ErrNotFound
	}
	if err != nil {
		return Message{}, fmt.Errorf("update message content: %w", err)
	}

	err = s.pool.QueryRow(ctx,
		`SELECT display_name FROM users WHERE id = $1`,
		senderID,
	).Scan(&msg.SenderName)
	if err != nil {
		return Message{}, fmt.Errorf("update message sender lookup: %w", err)
	}

	return msg, nil
}

// DeleteMessage removes a message if and only if senderID matches the original sender.
func (s *PG) DeleteMessage(ctx context.Context, messageID, senderID string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM messages WHERE id = $1 AND sender_id = $2`,
		messageID, senderID,
	)
	if err != nil {
		return false, fmt.Errorf("delete message: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// MarkMessagesRead records the user as having read every message in the room.
// Messages already read are left untouched.
func (s *PG) MarkMessagesRead(ctx context.Context, roomID, userID string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO message_reads (message_id, user_id)
		 SELECT m.id, $2 FROM messages m WHERE m.room_id = $1
		 ON CONFLICT DO NOTHING`,
		roomID, userID,
	)
	if err != nil {
		return fmt.Errorf("mark messages read: %w", err)
	}

	return nil
}

// SetUserOnline durably marks the user online.
func (s *PG) SetUserOnline(ctx context.Context, userID string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE users SET is_online = TRUE WHERE id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("set user online: %w", err)
	}

	return nil
}

// SetUserOffline durably marks the user offline with a last-seen timestamp.
func (s *PG) SetUserOffline(ctx context.Context, userID string, lastSeen time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE users SET is_online = FALSE, last_seen = $2 WHERE id = $1`,
		userID, lastSeen,
	)
	if err != nil {
		return fmt.Errorf("set user offline: %w", err)
	}

	return nil
}
