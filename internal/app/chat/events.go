/*
Package chat contains the real-time coordination core: live connections, presence,
room subscriptions, typing state, message lifecycle, and event broadcast.

This file defines the wire-level event model shared by both directions of the WebSocket
protocol: a small JSON envelope of {type, payload} plus the payload structures for every
server-emitted event.
*/
package chat

import "encoding/json"

// EventType identifies a protocol event on the WebSocket connection.
type EventType string

// Client-to-server events.
const (
	EventRoomJoin      EventType = "room:join"
	EventRoomLeave     EventType = "room:leave"
	EventMessageSend   EventType = "message:send"
	EventMessageEdit   EventType = "message:edit"
	EventMessageDelete EventType = "message:delete"
	EventMessagesRead  EventType = "messages:read"
)

// Server-to-client events. EventTypingStart/EventTypingStop and EventMessagesRead
// travel in both directions.
const (
	EventMessageNew     EventType = "message:new"
	EventMessageEdited  EventType = "message:edited"
	EventMessageDeleted EventType = "message:deleted"
	EventTypingStart    EventType = "typing:start"
	EventTypingStop     EventType = "typing:stop"
	EventUsersOnline    EventType = "users:online"
	EventUserOnline     EventType = "user:online"
	EventUserOffline    EventType = "user:offline"
	EventUserJoined     EventType = "user:joined"
	EventUserLeft       EventType = "user:left"
	EventError          EventType = "error"
)

// Event is the envelope carried on the wire in both directions.
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload,omitempty"`
}

// NewEvent builds an outbound event envelope.
func NewEvent(t EventType, payload any) Event {
	return Event{Type: t, Payload: payload}
}

// Encode serializes the event for delivery.
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// RoomUserPayload carries a full identity for room-scoped user events
// (user:joined, typing:start).
type RoomUserPayload struct {
	RoomID string `json:"roomId"`
	User   any    `json:"user"`
}

// RoomUserIDPayload carries a bare user ID for room-scoped user events
// (user:left, typing:stop, messages:read).
type RoomUserIDPayload struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
}

// MessageDeletedPayload references a deleted message without its content.
type MessageDeletedPayload struct {
	MessageID string `json:"messageId"`
	RoomID    string `json:"roomId"`
}

// ErrorPayload is the body of an error event sent to the triggering connection only.
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
