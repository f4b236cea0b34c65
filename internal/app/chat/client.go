/*
Package chat contains the real-time coordination core: live connections, presence,
room subscriptions, typing state, message lifecycle, and event broadcast.

This file defines the Client struct, representing one live WebSocket connection and the
immutable identity attached to it at admission. It manages the connection's lifecycle,
the ReadPump/WritePump message loops, and dispatch of inbound protocol events to the Hub.
*/
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"ripple/internal/app/user"
	"ripple/internal/pkg/errs"
	"ripple/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client.
	maxMessageSize = 8192

	// opTimeout bounds the store round-trips made while handling one inbound event.
	opTimeout = 5 * time.Second
)

// Client represents an active WebSocket connection and the identity of its user.
type Client struct {
	// id uniquely identifies this connection; one user may hold several.
	id string

	// hub is the coordinator the connection is registered with.
	hub *Hub

	// underlying WebSocket connection object.
	conn *websocket.Conn

	// identity is resolved once by the Connection Gate and never re-derived.
	identity user.Identity

	// a buffered channel used to queue events waiting to be sent to the client.
	send chan []byte

	// closeOnce guarantees the send channel closes exactly once even when
	// unregister races with shutdown.
	closeOnce sync.Once

	// structured logger with connection context.
	logger zerolog.Logger
}

// NewClient constructs a Client around an upgraded WebSocket connection.
func NewClient(hub *Hub, wsConn *websocket.Conn, identity user.Identity) *Client {
	connID := uuid.NewString()

	clientLogger := logx.Logger().With().
		Str("conn_id", connID).
		Str("user_id", identity.ID).
		Logger()

	return &Client{
		id:       connID,
		hub:      hub,
		conn:     wsConn,
		identity: identity,
		send:     make(chan []byte, 256),
		logger:   clientLogger,
	}
}

// ID returns the connection identifier.
func (c *Client) ID() string {
	return c.id
}

// Identity returns the immutable identity attached at admission.
func (c *Client) Identity() user.Identity {
	return c.identity
}

// ReadPump reads frames from the WebSocket connection until it closes.
// It handles heartbeats (Pong), event parsing, and performs registry cleanup
// synchronously when the connection drops.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(maxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading message (Client close/going away)")
			}
			break
		}

		c.dispatch(messageBytes)
	}
}

// cleanupOnDisconnect unregisters the connection from every registry and closes the
// transport. It must run synchronously with the close, not on a deferred timer.
func (c *Client) cleanupOnDisconnect() {
	c.logger.Info().Msg("Connection cleanup starting.")

	c.hub.Unregister(c)

	if err := c.conn.Close(); err != nil {
		c.logger.Error().Err(err).Msg("Connection close error")
	}
}

// dispatch decodes one inbound event envelope and routes it to the matching handler.
func (c *Client) dispatch(messageBytes []byte) {
	var inbound struct {
		Type    EventType       `json:"type"`
		Payload json.RawMessage `json:"payload,omitempty"`
	}

	if err := json.Unmarshal(messageBytes, &inbound); err != nil {
		c.logger.Warn().Err(err).
			Bytes("message_bytes", messageBytes).
			Msg("Client sent invalid JSON")
		c.SendError(errs.NewError(errs.ErrInvalidPayload))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	switch inbound.Type {
	case EventRoomJoin:
		var p struct {
			RoomID string `json:"roomId"`
		}
		if !c.decodePayload(inbound.Payload, &p) || p.RoomID == "" {
			return
		}
		c.hub.JoinRoom(ctx, c, p.RoomID)

	case EventRoomLeave:
		var p struct {
			RoomID string `json:"roomId"`
		}
		if !c.decodePayload(inbound.Payload, &p) || p.RoomID == "" {
			return
		}
		c.hub.LeaveRoom(c, p.RoomID)

	case EventMessageSend:
		var p struct {
			RoomID  string  `json:"roomId"`
			Content string  `json:"content"`
			ReplyTo *string `json:"replyTo,omitempty"`
		}
		if !c.decodePayload(inbound.Payload, &p) || p.RoomID == "" {
			return
		}
		c.hub.Messages().Send(ctx, c, SendInput{
			RoomID:  p.RoomID,
			Content: p.Content,
			ReplyTo: p.ReplyTo,
		})

	case EventMessageEdit:
		var p struct {
			MessageID string `json:"messageId"`
			Content   string `json:"content"`
		}
		if !c.decodePayload(inbound.Payload, &p) || p.MessageID == "" {
			return
		}
		c.hub.Messages().Edit(ctx, c, p.MessageID, p.Content)

	case EventMessageDelete:
		var p struct {
			MessageID string `json:"messageId"`
			RoomID    string `json:"roomId"`
		}
		if !c.decodePayload(inbound.Payload, &p) || p.MessageID == "" || p.RoomID == "" {
			return
		}
		c.hub.Messages().Delete(ctx, c, p.MessageID, p.RoomID)

	case EventTypingStart:
		var p struct {
			RoomID string `json:"roomId"`
		}
		if !c.decodePayload(inbound.Payload, &p) || p.RoomID == "" {
			return
		}
		c.hub.StartTyping(c, p.RoomID)

	case EventTypingStop:
		var p struct {
			RoomID string `json:"roomId"`
		}
		if !c.decodePayload(inbound.Payload, &p) || p.RoomID == "" {
			return
		}
		c.hub.StopTyping(c, p.RoomID)

	case EventMessagesRead:
		var p struct {
			RoomID string `json:"roomId"`
		}
		if !c.decodePayload(inbound.Payload, &p) || p.RoomID == "" {
			return
		}
		c.hub.Messages().MarkRead(ctx, c, p.RoomID)

	default:
		c.logger.Warn().Str("event_type", string(inbound.Type)).Msg("Client sent unsupported event type")
	}
}

// decodePayload unmarshals an inbound payload, reporting a payload error to the
// client on failure.
func (c *Client) decodePayload(raw json.RawMessage, dst any) bool {
	if err := json.Unmarshal(raw, dst); err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid event payload")
		c.SendError(errs.NewError(errs.ErrInvalidPayload))
		return false
	}
	return true
}

// WritePump writes queued events from the send channel to the WebSocket connection
// and keeps the heartbeat alive. It exits when the send channel closes or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		// ensure the connection is closed on exit
		if err := c.conn.Close(); err != nil {
			c.logger.Error().Err(err).Msg("Connection close error in WritePump")
		}
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !c.writeQueuedMessage(message, ok) {
				return
			}

		case <-ticker.C:
			if !c.writePingMessage() {
				return
			}
		}
	}
}

// writeQueuedMessage writes one queued frame to the WebSocket.
// Returns true if the WritePump loop should continue, false if it should terminate.
func (c *Client) writeQueuedMessage(message []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
			c.logger.Error().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		c.logger.Error().Err(err).Msg("Error writing message")
		return false
	}

	return true
}

// writePingMessage sends a periodic WebSocket Ping to maintain the heartbeat.
// Returns false if the WritePump loop should terminate due to write failure.
func (c *Client) writePingMessage() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Error().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}

// enqueue queues an encoded event for delivery without blocking. A full or closed
// queue drops the event: one slow connection must never stall a broadcast.
func (c *Client) enqueue(data []byte) bool {
	defer func() {
		// A racing close of the send channel surfaces as a panic on send.
		if r := recover(); r != nil {
			c.logger.Warn().Msg("Dropped event for closed connection.")
		}
	}()

	select {
	case c.send <- data:
		return true
	default:
		c.logger.Warn().Int("queue_len", len(c.send)).Msg("Send queue full, dropping event")
		return false
	}
}

// SendEvent encodes and queues an event for this connection only.
func (c *Client) SendEvent(ev Event) error {
	data, err := ev.Encode()
	if err != nil {
		c.logger.Error().Err(err).Str("event", string(ev.Type)).Msg("Error encoding event for client")
		return err
	}

	if !c.enqueue(data) {
		return fmt.Errorf("client send queue full")
	}

	return nil
}

// SendError queues an error event describing a failed operation. Failures are local
// to this connection; they never tear it down.
func (c *Client) SendError(err error) {
	var code int
	var message string

	var customErr *errs.CustomError
	if errors.As(err, &customErr) {
		code = customErr.Code
		message = customErr.Message
	} else {
		code = errs.ErrUnknown
		message = fmt.Sprintf("Internal server error: %v", err)
	}

	errEvent := NewEvent(EventError, ErrorPayload{
		Code:    code,
		Message: message,
	})

	if sendErr := c.SendEvent(errEvent); sendErr != nil {
		c.logger.Error().Err(sendErr).Msg("Failed to queue error event")
	}
}

// closeSend closes the send channel exactly once, signaling WritePump to finish.
func (c *Client) closeSend() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}
