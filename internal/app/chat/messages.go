/*
Package chat contains the real-time coordination core: live connections, presence,
room subscriptions, typing state, message lifecycle, and event broadcast.

This file defines the MessageService, which coordinates create/edit/delete/read of
messages between the persisted store and the live broadcast. The hard invariant
throughout is persist-then-broadcast: an event whose underlying write did not succeed
is never fanned out.
*/
package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"ripple/internal/app/store"
	"ripple/internal/pkg/errs"
	"ripple/internal/pkg/logx"
)

// MaxContentChars is the maximum message length in characters.
const MaxContentChars = 2000

// MessageService coordinates the message lifecycle: created, optionally edited, then deleted.
type MessageService struct {
	store store.Store
	hub   *Hub

	// roomLocks serializes persist-then-broadcast per room so each room's event
	// stream is delivered in commit order. Unrelated rooms proceed in parallel.
	roomLocks keyedMutex

	logger zerolog.Logger
}

// NewMessageService wires the message lifecycle manager to its store and hub.
func NewMessageService(st store.Store, hub *Hub) *MessageService {
	return &MessageService{
		store:  st,
		hub:    hub,
		logger: logx.Logger().With().Str("component", "MessageService").Logger(),
	}
}

// SendInput holds the inbound fields of a message:send event.
type SendInput struct {
	RoomID  string
	Content string
	ReplyTo *string
}

// Send validates, persists, and broadcasts a new message. On any failure the sender
// receives an explicit error event and nothing is broadcast.
func (s *MessageService) Send(ctx context.Context, c *Client, in SendInput) {
	content, ok := s.validContent(c, in.Content)
	if !ok {
		return
	}

	unlock := s.roomLocks.lock(in.RoomID)
	defer unlock()

	exists, err := s.store.RoomExists(ctx, in.RoomID)
	if err != nil {
		s.logger.Error().Err(err).Str("room_id", in.RoomID).Msg("Room lookup failed on send.")
		c.SendError(errs.NewError(errs.ErrPersistence))
		return
	}
	if !exists {
		c.SendError(errs.NewError(errs.ErrRoomNotFound))
		return
	}

	member, err := s.store.IsRoomMember(ctx, in.RoomID, c.identity.ID)
	if err != nil {
		s.logger.Error().Err(err).Str("room_id", in.RoomID).Msg("Membership check failed on send.")
		c.SendError(errs.NewError(errs.ErrPersistence))
		return
	}
	if !member {
		c.SendError(errs.NewError(errs.ErrNotRoomMember))
		return
	}

	msg, err := s.store.CreateMessage(ctx, store.CreateMessageParams{
		RoomID:   in.RoomID,
		SenderID: c.identity.ID,
		Content:  content,
		ReplyTo:  in.ReplyTo,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("room_id", in.RoomID).Msg("Failed to persist message.")
		c.SendError(errs.NewError(errs.ErrPersistence))
		return
	}

	err = s.store.UpdateRoomLastMessage(ctx, in.RoomID, store.LastMessage{
		Content:    content,
		SenderName: c.identity.DisplayName,
		CreatedAt:  msg.CreatedAt,
	})
	if err != nil {
		// The summary write is part of the send operation; a failed write means no
		// broadcast, the same as any other persistence failure.
		s.logger.Error().Err(err).Str("room_id", in.RoomID).Msg("Failed to persist last-message summary.")
		c.SendError(errs.NewError(errs.ErrPersistence))
		return
	}

	s.hub.BroadcastToRoom(in.RoomID, NewEvent(EventMessageNew, msg))
}

// Edit replaces a message's content. Only the original sender may edit; anyone else
// gets an error event and the room sees nothing.
func (s *MessageService) Edit(ctx context.Context, c *Client, messageID, content string) {
	content, ok := s.validContent(c, content)
	if !ok {
		return
	}

	msg, err := s.store.UpdateMessageContent(ctx, messageID, c.identity.ID, content)
	if errors.Is(err, store.ErrNotFound) {
		c.SendError(errs.NewError(errs.ErrMessageNotFound))
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Str("message_id", messageID).Msg("Failed to persist message edit.")
		c.SendError(errs.NewError(errs.ErrPersistence))
		return
	}

	s.hub.BroadcastToRoom(msg.RoomID, NewEvent(EventMessageEdited, msg))
}

// Delete removes a message. Only the original sender may delete; anyone else gets an
// error event and the room sees nothing.
func (s *MessageService) Delete(ctx context.Context, c *Client, messageID, roomID string) {
	deleted, err := s.store.DeleteMessage(ctx, messageID, c.identity.ID)
	if err != nil {
		s.logger.Error().Err(err).Str("message_id", messageID).Msg("Failed to delete message.")
		c.SendError(errs.NewError(errs.ErrPersistence))
		return
	}
	if !deleted {
		c.SendError(errs.NewError(errs.ErrMessageNotFound))
		return
	}

	s.hub.BroadcastToRoom(roomID, NewEvent(EventMessageDeleted, MessageDeletedPayload{
		MessageID: messageID,
		RoomID:    roomID,
	}))
}

// MarkRead records the user as having read every message in the room, then tells the
// room so read-receipt UIs can update.
func (s *MessageService) MarkRead(ctx context.Context, c *Client, roomID string) {
	if err := s.store.MarkMessagesRead(ctx, roomID, c.identity.ID); err != nil {
		s.logger.Error().Err(err).Str("room_id", roomID).Msg("Failed to persist read marks.")
		c.SendError(errs.NewError(errs.ErrPersistence))
		return
	}

	s.hub.BroadcastToRoom(roomID, NewEvent(EventMessagesRead, RoomUserIDPayload{
		RoomID: roomID,
		UserID: c.identity.ID,
	}))
}

// validContent trims and bounds message content, reporting validation errors to the
// client. Returns the trimmed content and whether it is acceptable.
func (s *MessageService) validContent(c *Client, content string) (string, bool) {
	content = strings.TrimSpace(content)

	if content == "" {
		c.SendError(errs.NewError(errs.ErrMessageEmpty))
		return "", false
	}

	if utf8.RuneCountInString(content) > MaxContentChars {
		c.SendError(errs.NewError(errs.ErrMessageTooLong))
		return "", false
	}

	return content, true
}

// keyedMutex provides one mutex per key. Entries are never evicted; the key space is
// bounded by the number of rooms with live activity.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// lock acquires the mutex for key and returns its unlock function.
func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
