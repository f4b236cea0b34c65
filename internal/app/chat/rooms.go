/*
Package chat contains the real-time coordination core: live connections, presence,
room subscriptions, typing state, message lifecycle, and event broadcast.

This file defines the RoomIndex: the live projection from room ID to the set of
connections currently listening to that room. It is distinct from persisted room
membership (who may join); callers validate membership against the store before
subscribing a connection here.
*/
package chat

import "sync"

// RoomIndex maps room IDs to their live subscriber connections. Safe for concurrent use.
type RoomIndex struct {
	mu sync.RWMutex

	// subscribers maps roomID -> connection ID -> client.
	subscribers map[string]map[string]*Client

	// byConn maps connection ID -> set of room IDs, so a closing connection can be
	// removed from every room without scanning the whole index.
	byConn map[string]map[string]struct{}
}

// NewRoomIndex returns an empty room index.
func NewRoomIndex() *RoomIndex {
	return &RoomIndex{
		subscribers: make(map[string]map[string]*Client),
		byConn:      make(map[string]map[string]struct{}),
	}
}

// Subscribe adds the connection to the room's live subscriber set. Subscribing twice
// is a no-op.
func (ri *RoomIndex) Subscribe(roomID string, c *Client) {
	ri.mu.Lock()
	defer ri.mu.Unlock()

	room, ok := ri.subscribers[roomID]
	if !ok {
		room = make(map[string]*Client)
		ri.subscribers[roomID] = room
	}
	room[c.id] = c

	conns, ok := ri.byConn[c.id]
	if !ok {
		conns = make(map[string]struct{})
		ri.byConn[c.id] = conns
	}
	conns[roomID] = struct{}{}
}

// Unsubscribe removes the connection from the room's live subscriber set.
// It reports whether the connection was actually subscribed; unsubscribing a room
// that was never joined is a no-op.
func (ri *RoomIndex) Unsubscribe(roomID string, c *Client) bool {
	ri.mu.Lock()
	defer ri.mu.Unlock()

	room, ok := ri.subscribers[roomID]
	if !ok {
		return false
	}

	if _, ok := room[c.id]; !ok {
		return false
	}

	delete(room, c.id)
	if len(room) == 0 {
		delete(ri.subscribers, roomID)
	}

	if conns, ok := ri.byConn[c.id]; ok {
		delete(conns, roomID)
		if len(conns) == 0 {
			delete(ri.byConn, c.id)
		}
	}

	return true
}

// DropConnection removes the connection from every room it had subscribed to and
// returns the affected room IDs. Dropping an unknown connection is a no-op.
func (ri *RoomIndex) DropConnection(c *Client) []string {
	ri.mu.Lock()
	defer ri.mu.Unlock()

	conns, ok := ri.byConn[c.id]
	if !ok {
		return nil
	}

	roomIDs := make([]string, 0, len(conns))
	for roomID := range conns {
		roomIDs = append(roomIDs, roomID)

		if room, ok := ri.subscribers[roomID]; ok {
			delete(room, c.id)
			if len(room) == 0 {
				delete(ri.subscribers, roomID)
			}
		}
	}

	delete(ri.byConn, c.id)

	return roomIDs
}

// Subscribers returns the room's current live subscriber connections.
func (ri *RoomIndex) Subscribers(roomID string) []*Client {
	ri.mu.RLock()
	defer ri.mu.RUnlock()

	room := ri.subscribers[roomID]
	clients := make([]*Client, 0, len(room))
	for _, c := range room {
		clients = append(clients, c)
	}
	return clients
}

// IsSubscribed reports whether the connection is currently listening to the room.
func (ri *RoomIndex) IsSubscribed(roomID string, c *Client) bool {
	ri.mu.RLock()
	defer ri.mu.RUnlock()

	_, ok := ri.subscribers[roomID][c.id]
	return ok
}
