package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"lilypad/internal/middleware"
	"lilypad/internal/service"
)

// CreateConversationRequest represents a request to open a new conversation
type CreateConversationRequest struct {
	UserIDs   []int64 `json:"userIds"`
	Name      *string `json:"name,omitempty"`
	AvatarURL *string `json:"avatarUrl,omitempty"`
}

// UpdateConversationRequest carries the mutable conversation fields.
// Absent fields are left untouched.
type UpdateConversationRequest struct {
	Name      *string `json:"name,omitempty"`
	AvatarURL *string `json:"avatarUrl,omitempty"`
}

// MarkReadRequest advances the caller's read position in a conversation.
// ReadAt is optional; the server clock is used when omitted.
type MarkReadRequest struct {
	MessageID int64      `json:"messageId"`
	ReadAt    *time.Time `json:"readAt,omitempty"`
}

// HandleCreateConversation creates a conversation with the caller plus the
// requested participants
func (s *Server) HandleCreateConversation() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		var req CreateConversationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		conv, err := s.Conversations.Create(r.Context(), userID, req.UserIDs, service.CreateConversationInput{
			Name:      req.Name,
			AvatarURL: req.AvatarURL,
		})
		if err != nil {
			s.respondError(w, err)
			return
		}

		s.respondJSON(w, http.StatusCreated, conv)
	}
}

// HandleListConversations returns the caller's conversations, most recently
// active first, each with participants, last message and unread count
func (s *Server) HandleListConversations() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		summaries, err := s.Conversations.GetAllByUser(r.Context(), userID)
		if err != nil {
			s.respondError(w, err)
			return
		}

		s.respondJSON(w, http.StatusOK, summaries)
	}
}

// HandleGetConversation returns one conversation with its full message
// history, newest first
func (s *Server) HandleGetConversation() http.HandlerFunc {
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

		detail, err := s.Conversations.GetByID(r.Context(), conversationID, userID)
		if err != nil {
			s.respondError(w, err)
			return
		}

		s.respondJSON(w, http.StatusOK, detail)
	}
}

// HandleUpdateConversation renames a conversation or changes its avatar
func (s *Server) HandleUpdateConversation() http.HandlerFunc {
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

		var req UpdateConversationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		detail, err := s.Conversations.Update(r.Context(), conversationID, userID, service.UpdateConversationInput{
			Name:      req.Name,
			AvatarURL: req.AvatarURL,
		})
		if err != nil {
			s.respondError(w, err)
			return
		}

		s.respondJSON(w, http.StatusOK, detail)
	}
}

// HandleRemoveConversation soft-deletes a conversation for everyone
func (s *Server) HandleRemoveConversation() http.HandlerFunc {
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

		if err := s.Conversations.Remove(r.Context(), conversationID, userID); err != nil {
			s.respondError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleMarkRead records how far the caller has read in a conversation
func (s *Server) HandleMarkRead() http.HandlerFunc {
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

		var req MarkReadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		readAt := time.Now()
		if req.ReadAt != nil {
			readAt = *req.ReadAt
		}
		if err := s.Conversations.MarkRead(r.Context(), userID, conversationID, req.MessageID, readAt); err != nil {
			s.respondError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleGetOrCreateDirect finds the caller's two-party conversation with
// another user, creating it on first contact
func (s *Server) HandleGetOrCreateDirect() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		otherID, err := parseIDParam(r, "userId")
		if err != nil {
			http.Error(w, "Invalid user ID", http.StatusBadRequest)
			return
		}

		conv, err := s.Conversations.GetOrCreateDirect(r.Context(), userID, otherID)
		if err != nil {
			s.respondError(w, err)
			return
		}

		s.respondJSON(w, http.StatusOK, conv)
	}
}

// parseIDParam reads a positive numeric path parameter
func parseIDParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, errors.New("id must be positive")
	}
	return id, nil
}
