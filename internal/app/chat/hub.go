/*
Package chat contains the real-time coordination core: live connections, presence,
room subscriptions, typing state, message lifecycle, and event broadcast.

This file defines the Hub, the central coordinator. It owns the connection set, the
Presence registry, the RoomIndex, and the Typing coordinator, and fans events out to
rooms, users, or the whole server. Delivery is best effort per connection: a slow or
broken connection is skipped and never blocks the rest.
*/
package chat

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ripple/internal/app/store"
	"ripple/internal/pkg/errs"
	"ripple/internal/pkg/logx"
)

// persistTimeout bounds store calls made outside a request context,
// such as the offline mark written when a connection closes.
const persistTimeout = 5 * time.Second

// Hub coordinates all live connections of the process. The registries it owns are a
// rebuildable projection of the store; the store stays the single source of truth.
type Hub struct {
	store store.Store

	// mu guards conns and byUser, and serializes presence transitions together with
	// their broadcasts so no reader can observe them out of order.
	mu       sync.Mutex
	conns    map[string]*Client
	byUser   map[string]map[string]*Client
	presence *Presence

	rooms  *RoomIndex
	typing *Typing

	// messages is the message lifecycle manager, wired here so connection handlers
	// reach every operation through the Hub.
	messages *MessageService

	logger zerolog.Logger
}

// NewHub constructs the Hub and its registries. typingTimeout is how long a typing
// flag survives without a refresh before the server stops it on the client's behalf.
func NewHub(st store.Store, typingTimeout time.Duration) *Hub {
	h := &Hub{
		store:    st,
		conns:    make(map[string]*Client),
		byUser:   make(map[string]map[string]*Client),
		presence: NewPresence(),
		rooms:    NewRoomIndex(),
		logger:   logx.Logger().With().Str("component", "Hub").Logger(),
	}

	h.typing = NewTyping(typingTimeout, func(roomID, userID string) {
		h.logger.Debug().
			Str("room_id", roomID).
			Str("user_id", userID).
			Msg("Typing indicator expired without a stop signal.")

		h.broadcastToRoomExceptUser(roomID, userID, NewEvent(EventTypingStop, RoomUserIDPayload{
			RoomID: roomID,
			UserID: userID,
		}))
	})

	h.messages = NewMessageService(st, h)

	return h
}

// Messages returns the message lifecycle manager.
func (h *Hub) Messages() *MessageService {
	return h.messages
}

// Register admits an authenticated connection into the coordination graph: it joins
// the connection set, bumps presence (announcing the user online on the zero-to-one
// transition), durably marks the user online, and subscribes the connection to every
// room the user is a persisted member of.
func (h *Hub) Register(ctx context.Context, c *Client) {
	h.mu.Lock()

	h.conns[c.id] = c

	userConns, ok := h.byUser[c.identity.ID]
	if !ok {
		userConns = make(map[string]*Client)
		h.byUser[c.identity.ID] = userConns
	}
	userConns[c.id] = c

	first, online := h.presence.ConnectionOpened(c.identity.ID)
	if first {
		// Fan out while still holding the lock: enqueues never block, and this keeps
		// presence broadcasts in the same order as the transitions themselves.
		h.broadcastAllLocked(NewEvent(EventUserOnline, c.identity.ID))
		h.broadcastAllLocked(NewEvent(EventUsersOnline, online))
	}

	h.mu.Unlock()

	c.logger.Info().Bool("first_connection", first).Msg("Connection registered.")

	if first {
		if err := h.store.SetUserOnline(ctx, c.identity.ID); err != nil {
			h.logger.Error().Err(err).
				Str("user_id", c.identity.ID).
				Msg("Failed to persist online mark.")
		}
	}

	h.autoSubscribe(ctx, c)
}

// autoSubscribe joins the connection to every room its user is a persisted member of,
// mirroring the client expectation that all of a user's rooms are live immediately
// after connecting.
func (h *Hub) autoSubscribe(ctx context.Context, c *Client) {
	roomIDs, err := h.store.MemberRoomIDs(ctx, c.identity.ID)
	if err != nil {
		// The connection stays usable; the client can still join rooms explicitly.
		h.logger.Error().Err(err).
			Str("user_id", c.identity.ID).
			Msg("Failed to load room memberships for auto-subscribe.")
		return
	}

	for _, roomID := range roomIDs {
		h.rooms.Subscribe(roomID, c)
	}

	c.logger.Debug().Int("rooms", len(roomIDs)).Msg("Auto-subscribed to member rooms.")
}

// Unregister removes a closing connection from every registry. It runs synchronously
// with the transport close and is idempotent. On the user's one-to-zero presence transition
// it clears their typing state, announces them offline, and durably records last-seen.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()

	if _, ok := h.conns[c.id]; !ok {
		h.mu.Unlock()
		return
	}

	delete(h.conns, c.id)
	if userConns, ok := h.byUser[c.identity.ID]; ok {
		delete(userConns, c.id)
		if len(userConns) == 0 {
			delete(h.byUser, c.identity.ID)
		}
	}

	h.rooms.DropConnection(c)

	last, online := h.presence.ConnectionClosed(c.identity.ID)
	if last {
		for _, roomID := range h.typing.DropUser(c.identity.ID) {
			h.broadcastToRoomExceptUser(roomID, c.identity.ID, NewEvent(EventTypingStop, RoomUserIDPayload{
				RoomID: roomID,
				UserID: c.identity.ID,
			}))
		}

		h.broadcastAllLocked(NewEvent(EventUserOffline, c.identity.ID))
		h.broadcastAllLocked(NewEvent(EventUsersOnline, online))
	}

	h.mu.Unlock()

	c.closeSend()
	c.logger.Info().Bool("last_connection", last).Msg("Connection unregistered.")

	if last {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()

		if err := h.store.SetUserOffline(ctx, c.identity.ID, time.Now()); err != nil {
			h.logger.Error().Err(err).
				Str("user_id", c.identity.ID).
				Msg("Failed to persist offline mark and last-seen.")
		}
	}
}

// JoinRoom subscribes the connection to a room after validating persisted membership.
// Non-members receive an explicit error event and no registry state changes.
func (h *Hub) JoinRoom(ctx context.Context, c *Client, roomID string) {
	member, err := h.store.IsRoomMember(ctx, roomID, c.identity.ID)
	if err != nil {
		c.logger.Error().Err(err).Str("room_id", roomID).Msg("Membership check failed on join.")
		c.SendError(errs.NewError(errs.ErrPersistence))
		return
	}
	if !member {
		c.SendError(errs.NewError(errs.ErrNotRoomMember))
		return
	}

	h.rooms.Subscribe(roomID, c)

	h.BroadcastToRoomExcept(roomID, c.id, NewEvent(EventUserJoined, RoomUserPayload{
		RoomID: roomID,
		User:   c.identity,
	}))
}

// LeaveRoom unsubscribes the connection from a room. Leaving a room the connection
// never joined is a no-op and emits nothing.
func (h *Hub) LeaveRoom(c *Client, roomID string) {
	if !h.rooms.Unsubscribe(roomID, c) {
		return
	}

	h.BroadcastToRoom(roomID, NewEvent(EventUserLeft, RoomUserIDPayload{
		RoomID: roomID,
		UserID: c.identity.ID,
	}))
}

// StartTyping flags the connection's user as typing and relays the indicator to the
// room, excluding the typist's own connections.
func (h *Hub) StartTyping(c *Client, roomID string) {
	h.typing.Start(roomID, c.identity.ID)

	h.broadcastToRoomExceptUser(roomID, c.identity.ID, NewEvent(EventTypingStart, RoomUserPayload{
		RoomID: roomID,
		User:   c.identity,
	}))
}

// StopTyping clears the typing flag. A stop without a matching start is a no-op.
func (h *Hub) StopTyping(c *Client, roomID string) {
	if !h.typing.Stop(roomID, c.identity.ID) {
		return
	}

	h.broadcastToRoomExceptUser(roomID, c.identity.ID, NewEvent(EventTypingStop, RoomUserIDPayload{
		RoomID: roomID,
		UserID: c.identity.ID,
	}))
}

// OnlineUsers returns the users with at least one live connection.
func (h *Hub) OnlineUsers() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.presence.Online()
}

// BroadcastToRoom delivers the event to every connection subscribed to the room.
func (h *Hub) BroadcastToRoom(roomID string, ev Event) {
	data, err := ev.Encode()
	if err != nil {
		h.logger.Error().Err(err).Str("event", string(ev.Type)).Msg("Failed to encode event for room broadcast.")
		return
	}

	for _, c := range h.rooms.Subscribers(roomID) {
		c.enqueue(data)
	}
}

// BroadcastToRoomExcept delivers the event to the room, skipping one connection.
func (h *Hub) BroadcastToRoomExcept(roomID, exceptConnID string, ev Event) {
	data, err := ev.Encode()
	if err != nil {
		h.logger.Error().Err(err).Str("event", string(ev.Type)).Msg("Failed to encode event for room broadcast.")
		return
	}

	for _, c := range h.rooms.Subscribers(roomID) {
		if c.id == exceptConnID {
			continue
		}
		c.enqueue(data)
	}
}

// broadcastToRoomExceptUser delivers the event to the room, skipping every connection
// belonging to the given user.
func (h *Hub) broadcastToRoomExceptUser(roomID, userID string, ev Event) {
	data, err := ev.Encode()
	if err != nil {
		h.logger.Error().Err(err).Str("event", string(ev.Type)).Msg("Failed to encode event for room broadcast.")
		return
	}

	for _, c := range h.rooms.Subscribers(roomID) {
		if c.identity.ID == userID {
			continue
		}
		c.enqueue(data)
	}
}

// BroadcastToUser delivers the event to every live connection of one user.
func (h *Hub) BroadcastToUser(userID string, ev Event) {
	data, err := ev.Encode()
	if err != nil {
		h.logger.Error().Err(err).Str("event", string(ev.Type)).Msg("Failed to encode event for user broadcast.")
		return
	}

	h.mu.Lock()
	targets := make([]*Client, 0, len(h.byUser[userID]))
	for _, c := range h.byUser[userID] {
		targets = append(targets, c)
	}
	h.mu.Unlock()

	for _, c := range targets {
		c.enqueue(data)
	}
}

// BroadcastAll delivers the event to every live connection.
func (h *Hub) BroadcastAll(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.broadcastAllLocked(ev)
}

// broadcastAllLocked fans out to every connection. Caller holds h.mu; enqueues are
// non-blocking so holding the lock across the fan-out is safe.
func (h *Hub) broadcastAllLocked(ev Event) {
	data, err := ev.Encode()
	if err != nil {
		h.logger.Error().Err(err).Str("event", string(ev.Type)).Msg("Failed to encode event for broadcast.")
		return
	}

	for _, c := range h.conns {
		c.enqueue(data)
	}
}

// Shutdown closes the send queue of every live connection, letting write pumps drain
// and close their transports.
func (h *Hub) Shutdown() {
	h.logger.Info().Msg("Shutting down Hub...")

	h.mu.Lock()
	conns := make([]*Client, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		c.closeSend()
	}

	h.logger.Info().Int("connections", len(conns)).Msg("Hub shutdown complete.")
}
