package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/soma-recovery/internal/config"
	"github.com/jwebster45206/soma-recovery/internal/handlers"
	"github.com/jwebster45206/soma-recovery/internal/logger"
	"github.com/jwebster45206/soma-recovery/internal/middleware"
	"github.com/jwebster45206/soma-recovery/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Soma Recovery API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"session_store", cfg.SessionStore,
		"data_dir", cfg.DataDir)

	var store storage.Storage
	switch cfg.SessionStore {
	case config.SessionStoreRedis:
		rs, err := storage.NewRedisStorage(cfg.RedisURL, cfg.DataDir, cfg.SessionTTL, log)
		if err != nil {
			log.Error("Failed to configure Redis storage", "error", err)
			os.Exit(1)
		}

		storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
		err = rs.WaitForConnection(storageCtx)
		storageCancel()
		if err != nil {
			log.Error("Failed to connect to storage", "error", err)
			os.Exit(1)
		}
		store = rs
	default:
		store = storage.NewMemoryStorage(cfg.DataDir, cfg.SessionTTL, log)
	}
	log.Info("Storage connection established successfully")

	mux := http.NewServeMux()

	mux.Handle("/api/ping", handlers.NewPingHandler(log))
	mux.Handle("/health", handlers.NewHealthHandler(store, log))

	sessionHandler := handlers.NewSessionHandler(store, log)
	mux.Handle("/v1/sessions", sessionHandler)
	mux.Handle("/v1/sessions/", sessionHandler)

	worldHandler := handlers.NewWorldHandler(log, store)
	mux.Handle("/v1/worlds", worldHandler)
	mux.Handle("/v1/worlds/", worldHandler)

	handler := middleware.Chain(mux,
		middleware.RequestID,
		middleware.Logger(log),
		middleware.Recover(log))
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	log.Info("Server exited")
}
