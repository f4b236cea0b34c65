package handler

import (
	"ripple/internal/app/chat"
	"ripple/internal/app/store"
	"ripple/internal/configs"
)

// AppDeps bundles the shared dependencies handed to every handler.
type AppDeps struct {
	Hub    *chat.Hub
	Store  store.Store
	Config *configs.AppConfig
}
