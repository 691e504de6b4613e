package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"lilypad/internal/database"
	"lilypad/internal/models"
	"lilypad/internal/utils"
)

// Broadcaster is the fire-and-forget edge to the real-time push collaborator.
// Implementations must never block the caller for long and their failures are
// invisible to the write path.
type Broadcaster interface {
	SendToUsers(userIDs []int64, payload []byte)
}

// messageEvent is the payload fanned out after a message is persisted.
type messageEvent struct {
	Type    string          `json:"type"`
	Message *models.Message `json:"message"`
}

// MessageService owns the message write path: authorization, append, then
// optional fan-out to connected participants.
type MessageService struct {
	participants database.ParticipantStore
	messages     database.MessageStore
	broadcaster  Broadcaster
	logger       *slog.Logger
}

// NewMessageService creates a MessageService. broadcaster may be nil, in
// which case persisted messages simply are not pushed anywhere.
func NewMessageService(participants database.ParticipantStore, messages database.MessageStore, broadcaster Broadcaster, logger *slog.Logger) *MessageService {
	if logger == nil {
		logger = slog.Default()
	}
	return &MessageService{
		participants: participants,
		messages:     messages,
		broadcaster:  broadcaster,
		logger:       logger,
	}
}

// Send appends a message to the conversation on behalf of userID. The sender
// must be a participant. After the write commits, the message is pushed to
// every participant asynchronously; push failure never rolls anything back.
func (s *MessageService) Send(ctx context.Context, userID, conversationID int64, content string) (*models.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, utils.NewValidationError("message content must not be empty")
	}

	isMember, err := s.participants.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, utils.NewForbiddenError("caller is not a participant of this conversation")
	}

	msg := &models.Message{
		ConversationID: conversationID,
		SenderID:       userID,
		Content:        content,
		CreatedAt:      time.Now(),
	}
	if err := s.messages.SaveMessage(ctx, msg); err != nil {
		return nil, err
	}

	if s.broadcaster != nil {
		// Recipients resolved before detaching so the goroutine needs no
		// request context.
		recipients, err := s.participants.GetParticipantIDs(ctx, conversationID)
		if err != nil {
			s.logger.Warn("message persisted but recipient lookup failed",
				"conversationId", conversationID, "error", err)
			return msg, nil
		}
		payload, err := json.Marshal(messageEvent{Type: "message.created", Message: msg})
		if err != nil {
			s.logger.Warn("message persisted but event encoding failed",
				"messageId", msg.ID, "error", err)
			return msg, nil
		}
		go s.broadcaster.SendToUsers(recipients, payload)
	}

	return msg, nil
}
