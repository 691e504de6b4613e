package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"lilypad/internal/database"
	"lilypad/internal/service"
	"lilypad/internal/utils"
	"lilypad/internal/websocket"
)

// Server holds all server dependencies shared across HTTP handlers
type Server struct {
	Conversations  *service.ConversationService
	Messages       *service.MessageService
	Users          database.UserStore
	Hub            *websocket.Hub
	Metrics        *utils.MetricsCollector
	Logger         *slog.Logger
	RequestTimeout time.Duration
}

// NewServer creates a new Server instance with the given components
func NewServer(
	conversations *service.ConversationService,
	messages *service.MessageService,
	users database.UserStore,
	hub *websocket.Hub,
	metrics *utils.MetricsCollector,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		Conversations:  conversations,
		Messages:       messages,
		Users:          users,
		Hub:            hub,
		Metrics:        metrics,
		Logger:         logger,
		RequestTimeout: 5 * time.Second, // Default timeout for store-backed requests
	}
}

// respondJSON writes payload as a JSON response with the given status
func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.Logger.Error("failed to encode response", "error", err)
	}
}

// respondError maps application errors onto HTTP statuses. Unknown error
// types become a 500 without leaking internals to the client.
func (s *Server) respondError(w http.ResponseWriter, err error) {
	if s.Metrics != nil {
		s.Metrics.IncrementErrors()
	}

	var appErr *utils.AppError
	if errors.As(err, &appErr) {
		status := utils.AppErrorToHTTPStatus(appErr.Code)
		if status >= http.StatusInternalServerError {
			s.Logger.Error("request failed", "code", appErr.Code, "error", appErr)
		}
		s.respondJSON(w, status, map[string]string{
			"code":  appErr.Code,
			"error": appErr.Message,
		})
		return
	}

	s.Logger.Error("unexpected error", "error", err)
	s.respondJSON(w, http.StatusInternalServerError, map[string]string{
		"code":  utils.ErrDatabase,
		"error": "internal server error",
	})
}
