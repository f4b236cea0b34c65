/*
Package chat contains the real-time coordination core: live connections, presence,
room subscriptions, typing state, message lifecycle, and event broadcast.

This file defines the Presence registry: a refcount of live connections per user.
A user is online iff their refcount is positive, so multiple tabs or devices never
evict each other's session.
*/
package chat

// Presence tracks how many live connections each user currently has.
// Not safe for unsynchronized concurrent use; the Hub serializes access under its
// own lock so that presence transitions and their broadcasts stay in order.
type Presence struct {
	refs map[string]int
}

// NewPresence returns an empty presence registry. Presence always starts empty:
// no connection survives a process restart.
func NewPresence() *Presence {
	return &Presence{refs: make(map[string]int)}
}

// ConnectionOpened increments the user's refcount. It reports whether this was the
// zero-to-one transition and returns the online snapshot taken at the same instant.
func (p *Presence) ConnectionOpened(userID string) (first bool, online []string) {
	p.refs[userID]++
	return p.refs[userID] == 1, p.snapshot()
}

// ConnectionClosed decrements the user's refcount and removes the entry at zero.
// It reports whether this was the one-to-zero transition and returns the online snapshot
// taken at the same instant. A close for a user with no open connections is ignored;
// the refcount never goes negative.
func (p *Presence) ConnectionClosed(userID string) (last bool, online []string) {
	n, ok := p.refs[userID]
	if !ok {
		return false, p.snapshot()
	}

	if n <= 1 {
		delete(p.refs, userID)
		return true, p.snapshot()
	}

	p.refs[userID] = n - 1
	return false, p.snapshot()
}

// IsOnline reports whether the user has at least one live connection.
func (p *Presence) IsOnline(userID string) bool {
	return p.refs[userID] > 0
}

// Online returns the set of users with at least one live connection.
func (p *Presence) Online() []string {
	return p.snapshot()
}

func (p *Presence) snapshot() []string {
	online := make([]string, 0, len(p.refs))
	for userID := range p.refs {
		online = append(online, userID)
	}
	return online
}
