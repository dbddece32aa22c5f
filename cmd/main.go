/*
Package main is the entry point for the lobby presence server.

It is responsible for loading configuration, initializing the global logging
system, opening the durable store and its handle pool, loading the presence
registry, starting the reaper and the HTTP server, and gracefully handling
operating system interrupt signals (SIGINT, SIGTERM) for a smooth shutdown.
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lklobby/internal/app/db"
	"lklobby/internal/app/hub"
	"lklobby/internal/app/lobby"
	"lklobby/internal/app/presence"
	"lklobby/internal/app/store"
	"lklobby/internal/configs"
	"lklobby/internal/handler"
	"lklobby/internal/pkg/logx"
)

func main() {
	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.Environment == "development")
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Str("database_path", cfg.DatabasePath).
		Int("db_pool_size", cfg.DBPoolSize).
		Dur("reap_threshold", cfg.ReapThreshold).
		Dur("reap_interval", cfg.ReapInterval).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Open the durable store and run migrations
	sqlDB, err := db.Open(cfg.DatabasePath, cfg.DBPoolSize)
	if err != nil {
		logx.Fatal(err, "Failed to open durable store")
	}
	defer sqlDB.Close()

	pool, err := db.NewHandlePool(ctx, sqlDB, cfg.DBPoolSize, cfg.DBAcquireTimeout)
	if err != nil {
		logx.Fatal(err, "Failed to initialize handle pool")
	}
	defer pool.Close()

	userStore := store.New(pool)

	// Wire the broadcast hub and the in-memory state owners
	broadcastHub := hub.New()

	registry := presence.NewRegistry(userStore, broadcastHub, hub.GlobalTopic, presence.Options{
		InviteTTL:        cfg.InviteTTL,
		InviteInboxLimit: cfg.InviteInboxLimit,
	})

	loadCtx, cancelLoad := context.WithTimeout(ctx, 30*time.Second)
	if err := registry.Load(loadCtx); err != nil {
		cancelLoad()
		logx.Fatal(err, "Failed to load presence registry from durable store")
	}
	cancelLoad()

	lobbies := lobby.NewStore(broadcastHub, lobby.Options{})

	// Start the reaper for the lifetime of the process
	reaper := presence.NewReaper(registry, cfg.ReapInterval, cfg.ReapThreshold)
	go reaper.Run(ctx)

	// Setup HTTP server and routes
	deps := &handler.AppDeps{
		Registry: registry,
		Lobbies:  lobbies,
		Hub:      broadcastHub,
		Config:   cfg,
	}
	router := handler.Router(deps)

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("Lobby server starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 5 seconds.
	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Fatal(err, "Server forced to shutdown")
	}

	broadcastHub.Shutdown()

	logx.Info("Server gracefully stopped.")
}
