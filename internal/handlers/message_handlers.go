package handlers

import (
	"encoding/json"
	"net/http"

	"lilypad/internal/middleware"
)

// SendMessageRequest represents a request to post a message into a
// conversation
type SendMessageRequest struct {
	Content string `json:"content"`
}

// HandleSendMessage persists a message and fans it out to the other
// participants' live connections
func (s *Server) HandleSendMessage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		conversationID, err := parseIDParam(r, "id")
		if err != nil {
			http.Error(w, "Invalid conversation ID", http.StatusBadRequest)
			return
		}

		var req SendMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		msg, err := s.Messages.Send(r.Context(), userID, conversationID, req.Content)
		if err != nil {
			s.respondError(w, err)
			return
		}

		s.respondJSON(w, http.StatusCreated, msg)
	}
}
