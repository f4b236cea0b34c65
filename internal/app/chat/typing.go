/*
Package chat contains the real-time coordination core: live connections, presence,
room subscriptions, typing state, message lifecycle, and event broadcast.

This file defines the Typing coordinator: soft per-room, per-user "is typing" state.
Entries expire on an explicit stop signal or, because clients lose stop signals in
practice, on a server-side timeout that fires an implicit stop.
*/
package chat

import (
	"sync"
	"time"
)

// typist holds the expiry timer for one user typing in one room. The generation
// counter lets a fired timer recognize that it has since been replaced by a newer
// start signal.
type typist struct {
	timer *time.Timer
	gen   uint64
}

// Typing tracks which users are currently flagged as typing in which rooms.
// Safe for concurrent use.
type Typing struct {
	mu      sync.Mutex
	typists map[string]map[string]typist // roomID -> userID -> expiry state
	gen     uint64

	timeout time.Duration

	// expired is invoked outside the lock when a typing entry times out without an
	// explicit stop. The Hub uses it to broadcast the implicit typing:stop.
	expired func(roomID, userID string)
}

// NewTyping returns a typing coordinator whose entries auto-stop after timeout.
func NewTyping(timeout time.Duration, expired func(roomID, userID string)) *Typing {
	return &Typing{
		typists: make(map[string]map[string]typist),
		timeout: timeout,
		expired: expired,
	}
}

// Start flags the user as typing in the room and arms (or re-arms) the expiry timer.
func (t *Typing) Start(roomID, userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	room, ok := t.typists[roomID]
	if !ok {
		room = make(map[string]typist)
		t.typists[roomID] = room
	}

	if existing, ok := room[userID]; ok {
		existing.timer.Stop()
	}

	t.gen++
	gen := t.gen

	room[userID] = typist{
		timer: time.AfterFunc(t.timeout, func() { t.expire(roomID, userID, gen) }),
		gen:   gen,
	}
}

// Stop clears the user's typing flag in the room. It reports whether the user was
// actually flagged; stopping twice is a no-op.
func (t *Typing) Stop(roomID, userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.remove(roomID, userID, 0)
}

// DropUser clears the user's typing flag in every room and returns the affected room
// IDs. Called when the user's last connection closes.
func (t *Typing) DropUser(userID string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var roomIDs []string
	for roomID, room := range t.typists {
		if _, ok := room[userID]; ok {
			t.remove(roomID, userID, 0)
			roomIDs = append(roomIDs, roomID)
		}
	}
	return roomIDs
}

// Typists returns the users currently flagged as typing in the room.
func (t *Typing) Typists(roomID string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	room := t.typists[roomID]
	userIDs := make([]string, 0, len(room))
	for userID := range room {
		userIDs = append(userIDs, userID)
	}
	return userIDs
}

// expire is the timer callback. A stale generation means the entry was restarted or
// stopped after the timer was scheduled, and the callback must not fire a stop.
func (t *Typing) expire(roomID, userID string, gen uint64) {
	t.mu.Lock()
	removed := t.remove(roomID, userID, gen)
	t.mu.Unlock()

	if removed && t.expired != nil {
		t.expired(roomID, userID)
	}
}

// remove deletes the entry and stops its timer. A non-zero gen makes the removal
// conditional on the entry still being that generation. Caller holds t.mu.
func (t *Typing) remove(roomID, userID string, gen uint64) bool {
	room, ok := t.typists[roomID]
	if !ok {
		return false
	}

	entry, ok := room[userID]
	if !ok {
		return false
	}

	if gen != 0 && entry.gen != gen {
		return false
	}

	entry.timer.Stop()
	delete(room, userID)
	if len(room) == 0 {
		delete(t.typists, roomID)
	}

	return true
}
