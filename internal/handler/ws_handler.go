/*
Package handler provides the HTTP handlers and routing setup for the Ripple server.

This file contains the Connection Gate: the handler that authenticates each incoming
persistent connection before it is allowed to join the coordination graph. Rejection
happens at the HTTP level, before the upgrade touches any registry state.
*/
package handler

import (
	"errors"
	"net"
	"net/http"

	"github.com/gorilla/websocket"

	"ripple/internal/app/chat"
	"ripple/internal/app/store"
	"ripple/internal/app/user"
	"ripple/internal/pkg/auth/jwt"
	"ripple/internal/pkg/errs"
	"ripple/internal/pkg/limiter"
	"ripple/internal/pkg/logx"
	"ripple/internal/pkg/resp"
)

// HandleWebSocket creates an HTTP HandlerFunc that admits WebSocket connections.
// The access token travels as a query parameter; a missing or invalid token, or a
// token whose user no longer exists, rejects the attempt terminally.
func HandleWebSocket(upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		if ip == "" {
			ip = "unknown_ip"
		}

		if !rateLimiter.GetLimiter(ip).Allow() {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", ip)
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		token := r.URL.Query().Get("token")
		if token == "" {
			logx.Warn("WebSocket connection rejected: Missing access token")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		payload, err := jwt.ParseToken(token, deps.Config.JWTSecret)
		if err != nil {
			logx.Warn("WebSocket connection rejected: Invalid or expired token", "error", err)
			resp.RespondError(w, r, errs.NewError(errs.ErrTokenInvalid))
			return
		}

		u, err := deps.Store.GetUserByID(r.Context(), payload.UserID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				logx.Warn("WebSocket connection rejected: Token user not found", "user_id", payload.UserID)
				resp.RespondError(w, r, errs.NewError(errs.ErrUserNotFound))
				return
			}

			logx.Error(err, "Failed to resolve token user", "user_id", payload.UserID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		identity := user.Identity{
			ID:          u.ID,
			Username:    u.Username,
			DisplayName: u.DisplayName,
			AvatarURL:   u.AvatarURL,
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		client := chat.NewClient(deps.Hub, conn, identity)

		go client.WritePump()

		deps.Hub.Register(r.Context(), client)

		logx.Info("WebSocket connection established", "user_id", identity.ID, "conn_id", client.ID())

		client.ReadPump()
	}
}
