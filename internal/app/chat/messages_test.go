package chat

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ripple/internal/app/store"
	"ripple/internal/app/user"
)

// messageFixture registers alice (two connections) and bob in a shared room and
// returns them with their queues drained.
func messageFixture(t *testing.T) (*fakeStore, *Hub, *Client, *Client, *Client) {
	t.Helper()

	st := newFakeStore()
	st.addUser("alice", "Alice")
	st.addUser("bob", "Bob")
	st.addRoom("general", "alice", "bob")

	h := NewHub(st, time.Minute)
	ctx := context.Background()

	alice1 := newTestClient(h, user.Identity{ID: "alice", DisplayName: "Alice"})
	alice2 := newTestClient(h, user.Identity{ID: "alice", DisplayName: "Alice"})
	bob := newTestClient(h, user.Identity{ID: "bob", DisplayName: "Bob"})

	h.Register(ctx, alice1)
	h.Register(ctx, alice2)
	h.Register(ctx, bob)
	drain(t, alice1)
	drain(t, alice2)
	drain(t, bob)

	return st, h, alice1, alice2, bob
}

func TestSendBroadcastsToAllRoomConnections(t *testing.T) {
	st, h, alice1, alice2, bob := messageFixture(t)

	h.Messages().Send(context.Background(), alice1, SendInput{RoomID: "general", Content: "hello"})

	// Every live subscriber receives the message, including the sender's own
	// other connections.
	for _, c := range []*Client{alice1, alice2, bob} {
		events := drain(t, c)
		require.Equal(t, []EventType{EventMessageNew}, eventTypes(events))

		var msg store.Message
		require.NoError(t, json.Unmarshal(events[0].Payload, &msg))
		assert.Equal(t, "hello", msg.Content)
		assert.Equal(t, "alice", msg.SenderID)
		assert.Equal(t, "Alice", msg.SenderName)
	}

	// The message and the room summary were persisted before the fan-out.
	assert.Equal(t, []string{"CreateMessage", "UpdateRoomLastMessage"}, st.calls)
}

func TestSendTrimsContent(t *testing.T) {
	st, h, alice1, _, _ := messageFixture(t)

	h.Messages().Send(context.Background(), alice1, SendInput{RoomID: "general", Content: "  hi  "})

	require.Len(t, st.message, 1)
	for _, msg := range st.message {
		assert.Equal(t, "hi", msg.Content)
	}
}

func TestSendRejectsEmptyContent(t *testing.T) {
	st, h, alice1, _, bob := messageFixture(t)

	h.Messages().Send(context.Background(), alice1, SendInput{RoomID: "general", Content: "   "})

	assert.Equal(t, 1, countType(drain(t, alice1), EventError))
	assert.Empty(t, drain(t, bob))
	assert.Empty(t, st.calls)
}

func TestSendRejectsOverlongContent(t *testing.T) {
	st, h, alice1, _, bob := messageFixture(t)

	h.Messages().Send(context.Background(), alice1, SendInput{
		RoomID:  "general",
		Content: strings.Repeat("a", MaxContentChars+1),
	})

	assert.Equal(t, 1, countType(drain(t, alice1), EventError))
	assert.Empty(t, drain(t, bob))
	assert.Empty(t, st.calls)
}

func TestSendRejectsUnknownRoom(t *testing.T) {
	_, h, alice1, _, _ := messageFixture(t)

	h.Messages().Send(context.Background(), alice1, SendInput{RoomID: "nowhere", Content: "hi"})

	assert.Equal(t, 1, countType(drain(t, alice1), EventError))
}

func TestSendRejectsNonMember(t *testing.T) {
	st, h, alice1, _, _ := messageFixture(t)
	st.addRoom("staff", "bob")

	h.Messages().Send(context.Background(), alice1, SendInput{RoomID: "staff", Content: "hi"})

	assert.Equal(t, 1, countType(drain(t, alice1), EventError))
	assert.Empty(t, st.calls)
}

func TestSendDoesNotBroadcastOnPersistFailure(t *testing.T) {
	st, h, alice1, _, bob := messageFixture(t)
	st.createErr = errors.New("connection reset")

	h.Messages().Send(context.Background(), alice1, SendInput{RoomID: "general", Content: "hello"})

	assert.Equal(t, 1, countType(drain(t, alice1), EventError))
	assert.Empty(t, drain(t, bob))
}

func TestSendDoesNotBroadcastOnSummaryFailure(t *testing.T) {
	st, h, alice1, _, bob := messageFixture(t)
	st.lastMsgErr = errors.New("connection reset")

	h.Messages().Send(context.Background(), alice1, SendInput{RoomID: "general", Content: "hello"})

	assert.Equal(t, 1, countType(drain(t, alice1), EventError))
	assert.Empty(t, drain(t, bob))
}

func TestEditBySenderBroadcasts(t *testing.T) {
	st, h, alice1, _, bob := messageFixture(t)
	ctx := context.Background()

	h.Messages().Send(ctx, alice1, SendInput{RoomID: "general", Content: "helo"})
	drain(t, alice1)
	drain(t, bob)

	h.Messages().Edit(ctx, alice1, "msg-helo", "hello")

	events := drain(t, bob)
	require.Equal(t, []EventType{EventMessageEdited}, eventTypes(events))

	var msg store.Message
	require.NoError(t, json.Unmarshal(events[0].Payload, &msg))
	assert.Equal(t, "hello", msg.Content)
	assert.True(t, msg.Edited)
	assert.NotNil(t, msg.EditedAt)

	assert.Equal(t, "hello", st.message["msg-helo"].Content)
}

func TestEditByNonSenderIsRejected(t *testing.T) {
	st, h, alice1, _, bob := messageFixture(t)
	ctx := context.Background()

	h.Messages().Send(ctx, alice1, SendInput{RoomID: "general", Content: "mine"})
	drain(t, alice1)
	drain(t, bob)

	h.Messages().Edit(ctx, bob, "msg-mine", "hijacked")

	// No broadcast reaches the room and the persisted content is untouched.
	assert.Empty(t, drain(t, alice1))
	assert.Equal(t, 1, countType(drain(t, bob), EventError))
	assert.Equal(t, "mine", st.message["msg-mine"].Content)
	assert.False(t, st.message["msg-mine"].Edited)
}

func TestEditMissingMessageIsRejected(t *testing.T) {
	_, h, alice1, _, bob := messageFixture(t)

	h.Messages().Edit(context.Background(), alice1, "msg-gone", "hello")

	assert.Equal(t, 1, countType(drain(t, alice1), EventError))
	assert.Empty(t, drain(t, bob))
}

func TestDeleteBySenderBroadcasts(t *testing.T) {
	st, h, alice1, _, bob := messageFixture(t)
	ctx := context.Background()

	h.Messages().Send(ctx, alice1, SendInput{RoomID: "general", Content: "oops"})
	drain(t, alice1)
	drain(t, bob)

	h.Messages().Delete(ctx, alice1, "msg-oops", "general")

	events := drain(t, bob)
	require.Equal(t, []EventType{EventMessageDeleted}, eventTypes(events))

	var payload MessageDeletedPayload
	require.NoError(t, json.Unmarshal(events[0].Payload, &payload))
	assert.Equal(t, "msg-oops", payload.MessageID)
	assert.Equal(t, "general", payload.RoomID)

	assert.NotContains(t, st.message, "msg-oops")
}

func TestDeleteByNonSenderIsRejected(t *testing.T) {
	st, h, alice1, _, bob := messageFixture(t)
	ctx := context.Background()

	h.Messages().Send(ctx, alice1, SendInput{RoomID: "general", Content: "mine"})
	drain(t, alice1)
	drain(t, bob)

	h.Messages().Delete(ctx, bob, "msg-mine", "general")

	assert.Empty(t, drain(t, alice1))
	assert.Equal(t, 1, countType(drain(t, bob), EventError))
	assert.Contains(t, st.message, "msg-mine")
}

func TestMarkReadBroadcastsReceipt(t *testing.T) {
	st, h, alice1, _, bob := messageFixture(t)

	h.Messages().MarkRead(context.Background(), bob, "general")

	events := drain(t, alice1)
	require.Equal(t, []EventType{EventMessagesRead}, eventTypes(events))

	var payload RoomUserIDPayload
	require.NoError(t, json.Unmarshal(events[0].Payload, &payload))
	assert.Equal(t, "general", payload.RoomID)
	assert.Equal(t, "bob", payload.UserID)

	assert.Equal(t, []string{"MarkMessagesRead"}, st.calls)
}

func TestMarkReadPersistFailureDoesNotBroadcast(t *testing.T) {
	st, h, alice1, _, bob := messageFixture(t)
	st.readErr = errors.New("connection reset")

	h.Messages().MarkRead(context.Background(), bob, "general")

	assert.Empty(t, drain(t, alice1))
	assert.Equal(t, 1, countType(drain(t, bob), EventError))
}
