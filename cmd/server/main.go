package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lilypad/internal/config"
	"lilypad/internal/database"
	"lilypad/internal/handlers"
	"lilypad/internal/middleware"
	"lilypad/internal/service"
	"lilypad/internal/utils"
	"lilypad/internal/websocket"

	"github.com/lmittmann/tint"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
	slog.SetDefault(logger)

	middleware.SetSecret(cfg.JWTSecret)

	db, err := database.NewPostgresDB(cfg.Database.URI)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.InitializeTables(ctx); err != nil {
		cancel()
		logger.Error("failed to initialize tables", "error", err)
		os.Exit(1)
	}
	cancel()
	logger.Info("database ready")

	hub := websocket.NewHub(logger)
	go hub.Run()

	conversations := service.NewConversationService(db, db, db, db, db)
	messages := service.NewMessageService(db, db, hub, logger)

	var metrics *utils.MetricsCollector
	if cfg.Server.MetricsEnabled {
		metrics = utils.NewMetricsCollector()
	}

	server := handlers.NewServer(conversations, messages, db, hub, metrics, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", server.HandleHealth())
	mux.HandleFunc("GET /ws", server.HandleWebSocket())

	mux.HandleFunc("POST /conversations", server.HandleCreateConversation())
	mux.HandleFunc("GET /conversations", server.HandleListConversations())
	mux.HandleFunc("GET /conversations/{id}", server.HandleGetConversation())
	mux.HandleFunc("PATCH /conversations/{id}", server.HandleUpdateConversation())
	mux.HandleFunc("DELETE /conversations/{id}", server.HandleRemoveConversation())
	mux.HandleFunc("POST /conversations/{id}/read", server.HandleMarkRead())
	mux.HandleFunc("POST /conversations/{id}/messages", server.HandleSendMessage())
	mux.HandleFunc("POST /conversations/with/{userId}", server.HandleGetOrCreateDirect())

	mux.HandleFunc("GET /users/{key}", server.HandleGetUser())

	corsConfig := middleware.DefaultCORSConfig(cfg.AllowedOrigins)
	handler := middleware.CORSMiddleware(corsConfig)(
		server.MetricsMiddleware(
			middleware.AuthMiddleware(
				server.TimeoutMiddleware(mux),
			),
		),
	)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("starting server", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", "error", err)
	}
	if err := db.Close(shutdownCtx); err != nil {
		logger.Error("failed to close database", "error", err)
	}
}
