package handler

import (
	"lklobby/internal/app/hub"
	"lklobby/internal/app/lobby"
	"lklobby/internal/app/presence"
	"lklobby/internal/configs"
)

// AppDeps bundles the core components the request handlers operate on.
type AppDeps struct {
	Registry *presence.Registry
	Lobbies  *lobby.Store
	Hub      *hub.Hub
	Config   *configs.AppConfig
}
