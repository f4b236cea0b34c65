package chat

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// expiryRecorder collects expired-entry callbacks for assertions.
type expiryRecorder struct {
	mu      sync.Mutex
	expired []string
}

func (r *expiryRecorder) callback(roomID, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expired = append(r.expired, roomID+"/"+userID)
}

func (r *expiryRecorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.expired...)
}

func TestTypingStartStop(t *testing.T) {
	ty := NewTyping(time.Minute, nil)

	ty.Start("general", "alice")
	ty.Start("general", "bob")
	assert.ElementsMatch(t, []string{"alice", "bob"}, ty.Typists("general"))

	assert.True(t, ty.Stop("general", "alice"))
	assert.Equal(t, []string{"bob"}, ty.Typists("general"))

	// Stopping twice, or stopping a user who never started, is a no-op.
	assert.False(t, ty.Stop("general", "alice"))
	assert.False(t, ty.Stop("general", "carol"))
}

func TestTypingExpiresWithoutStop(t *testing.T) {
	rec := &expiryRecorder{}
	ty := NewTyping(20*time.Millisecond, rec.callback)

	ty.Start("general", "alice")

	require.Eventually(t, func() bool {
		return len(rec.snapshot()) == 1
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, []string{"general/alice"}, rec.snapshot())
	assert.Empty(t, ty.Typists("general"))
}

func TestTypingRestartRearmsTimer(t *testing.T) {
	rec := &expiryRecorder{}
	ty := NewTyping(40*time.Millisecond, rec.callback)

	ty.Start("general", "alice")
	time.Sleep(25 * time.Millisecond)
	ty.Start("general", "alice")
	time.Sleep(25 * time.Millisecond)

	// The refreshed timer has not elapsed yet, so nothing expired.
	assert.Empty(t, rec.snapshot())
	assert.Equal(t, []string{"alice"}, ty.Typists("general"))

	require.Eventually(t, func() bool {
		return len(rec.snapshot()) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestTypingExplicitStopSuppressesExpiry(t *testing.T) {
	rec := &expiryRecorder{}
	ty := NewTyping(20*time.Millisecond, rec.callback)

	ty.Start("general", "alice")
	require.True(t, ty.Stop("general", "alice"))

	time.Sleep(60 * time.Millisecond)
	assert.Empty(t, rec.snapshot())
}

func TestTypingDropUser(t *testing.T) {
	rec := &expiryRecorder{}
	ty := NewTyping(time.Minute, rec.callback)

	ty.Start("general", "alice")
	ty.Start("random", "alice")
	ty.Start("general", "bob")

	roomIDs := ty.DropUser("alice")
	assert.ElementsMatch(t, []string{"general", "random"}, roomIDs)
	assert.Equal(t, []string{"bob"}, ty.Typists("general"))
	assert.Empty(t, ty.Typists("random"))

	// Dropped entries never fire the expiry callback.
	time.Sleep(10 * time.Millisecond)
	assert.Empty(t, rec.snapshot())

	assert.Empty(t, ty.DropUser("alice"))
}
