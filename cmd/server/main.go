package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"relay-gateway/internal/api/routes"
	"relay-gateway/internal/config"
	"relay-gateway/internal/database"
	"relay-gateway/internal/gateway"
	"relay-gateway/internal/services"
	"relay-gateway/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// Initialize logger
	logger.Setup(cfg.Env)
	slog.Info("Starting relay gateway", "env", cfg.Env)

	// Redis backs the websocket connection rate limiter only; without it the
	// gateway runs unlimited
	var redisService *services.RedisService
	if cfg.Redis.URL != "" {
		redisClient, err := database.NewRedisConnection(&cfg.Redis)
		if err != nil {
			slog.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		redisService = services.NewRedisService(redisClient)
	} else {
		slog.Info("REDIS_URL not set, websocket rate limiting disabled")
	}

	// Initialize gateway hub
	hub := gateway.NewHub()
	go hub.Run()

	// Initialize router
	router := routes.NewRouter(hub, redisService, cfg)
	router.SetupRoutes()

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.GetEngine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("Server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Stop gateway hub
	hub.Stop()

	// Shutdown HTTP server
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server stopped")
}
