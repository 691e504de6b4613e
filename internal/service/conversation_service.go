package service

import (
	"context"
	"fmt"
	"time"

	"lilypad/internal/database"
	"lilypad/internal/models"
	"lilypad/internal/utils"

	"github.com/google/uuid"
)

// CreateConversationInput carries optional caller-supplied metadata for a new
// conversation. Both fields may be overridden by derivation rules.
type CreateConversationInput struct {
	Name      *string
	AvatarURL *string
}

// UpdateConversationInput is a partial metadata update; nil means unchanged.
type UpdateConversationInput struct {
	Name      *string
	AvatarURL *string
}

// ConversationService orchestrates the conversation, participant, message and
// read-watermark stores. All dependencies are injected; the service holds no
// state of its own beyond them.
type ConversationService struct {
	users         database.UserStore
	conversations database.ConversationStore
	participants  database.ParticipantStore
	messages      database.MessageStore
	watermarks    database.ReadWatermarkStore
}

func NewConversationService(
	users database.UserStore,
	conversations database.ConversationStore,
	participants database.ParticipantStore,
	messages database.MessageStore,
	watermarks database.ReadWatermarkStore,
) *ConversationService {
	return &ConversationService{
		users:         users,
		conversations: conversations,
		participants:  participants,
		messages:      messages,
		watermarks:    watermarks,
	}
}

// Create starts a conversation among the creator and the given participants.
// The creator is always merged into the set and duplicates are dropped. At
// least two distinct users must resolve against the directory.
//
// For exactly two resolved users the name is forced to nil: two-party
// identity is always derived from the counterpart at read time. For larger
// groups a missing name is synthesized from the first resolved user
// (directory lookups are ordered by id, so this is deterministic) and a
// missing avatar gets a generated placeholder.
func (s *ConversationService) Create(ctx context.Context, creatorID int64, participantIDs []int64, input CreateConversationInput) (*models.Conversation, error) {
	ids := dedupeIDs(append(participantIDs, creatorID))

	users, err := s.users.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(users) < 2 {
		return nil, utils.NewValidationError("a conversation needs at least two resolvable participants")
	}

	conv := &models.Conversation{
		Name:      input.Name,
		AvatarURL: input.AvatarURL,
	}

	if len(users) == 2 {
		conv.Name = nil
	} else {
		if conv.Name == nil {
			name := fmt.Sprintf("%s và %d người khác", users[0].FullName, len(users)-1)
			conv.Name = &name
		}
		if conv.AvatarURL == nil {
			avatar := placeholderAvatarURL()
			conv.AvatarURL = &avatar
		}
	}

	resolvedIDs := make([]int64, len(users))
	for i, u := range users {
		resolvedIDs[i] = u.ID
	}

	if err := s.conversations.CreateConversation(ctx, conv, resolvedIDs); err != nil {
		return nil, err
	}
	return conv, nil
}

// GetOrCreateDirect finds the 1:1 conversation between the two users or
// creates it. Candidates are every conversation touching either user; a
// candidate matches only when its full participant set is exactly the pair,
// so the check is symmetric in the two arguments.
//
// There is no unique constraint on the pair: two concurrent calls can both
// miss and each create a thread. The window is accepted (see DESIGN.md).
func (s *ConversationService) GetOrCreateDirect(ctx context.Context, userID, targetUserID int64) (*models.Conversation, error) {
	candidateIDs, err := s.conversations.FindConversationsWithAny(ctx, []int64{userID, targetUserID})
	if err != nil {
		return nil, err
	}

	for _, convID := range candidateIDs {
		memberIDs, err := s.participants.GetParticipantIDs(ctx, convID)
		if err != nil {
			return nil, err
		}
		if isExactPair(memberIDs, userID, targetUserID) {
			return s.conversations.GetConversation(ctx, convID)
		}
	}

	return s.Create(ctx, userID, []int64{targetUserID}, CreateConversationInput{})
}

// GetAllByUser lists the caller's non-deleted conversations, most recently
// active first, each annotated with participants, the latest message and the
// caller's unread count.
func (s *ConversationService) GetAllByUser(ctx context.Context, userID int64) ([]*models.ConversationSummary, error) {
	convs, err := s.conversations.GetConversationsByParticipant(ctx, userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]*models.ConversationSummary, 0, len(convs))
	for _, conv := range convs {
		participants, err := s.participants.GetParticipants(ctx, conv.ID)
		if err != nil {
			return nil, err
		}

		summary := &models.ConversationSummary{
			Conversation: *conv,
			Users:        participants,
		}
		overrideTwoPartyIdentity(&summary.Conversation, participants, userID)

		summary.LastMessage, err = s.messages.GetLatestMessage(ctx, conv.ID)
		if err != nil {
			return nil, err
		}

		summary.UnreadCount, err = s.unreadCount(ctx, userID, conv.ID)
		if err != nil {
			return nil, err
		}

		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// GetByID returns the full thread view. The caller must be a participant;
// the membership check runs first, so a missing conversation without a
// membership row is reported as forbidden, not as not-found. Soft-deleted
// conversations remain readable by their participants.
func (s *ConversationService) GetByID(ctx context.Context, id, userID int64) (*models.ConversationDetail, error) {
	isMember, err := s.participants.IsParticipant(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, utils.NewForbiddenError("caller is not a participant of this conversation")
	}

	conv, err := s.conversations.GetConversation(ctx, id)
	if err != nil {
		return nil, err
	}

	participants, err := s.participants.GetParticipants(ctx, id)
	if err != nil {
		return nil, err
	}

	messages, err := s.messages.GetConversationMessages(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &models.ConversationDetail{
		Conversation: *conv,
		Users:        participants,
		Messages:     make([]*models.MessageView, 0, len(messages)),
	}
	overrideTwoPartyIdentity(&detail.Conversation, participants, userID)

	byID := make(map[int64]*models.Participant, len(participants))
	for _, p := range participants {
		byID[p.ID] = p
	}

	for _, msg := range messages {
		view := &models.MessageView{
			Message: *msg,
			Author:  models.AuthorOther,
			Sender:  byID[msg.SenderID],
		}
		if msg.SenderID == userID {
			view.Author = models.AuthorMe
		}
		detail.Messages = append(detail.Messages, view)
	}
	return detail, nil
}

// Update applies a partial metadata update and returns the refreshed detail
// view. Same membership rule as GetByID.
func (s *ConversationService) Update(ctx context.Context, id, userID int64, input UpdateConversationInput) (*models.ConversationDetail, error) {
	isMember, err := s.participants.IsParticipant(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, utils.NewForbiddenError("caller is not a participant of this conversation")
	}

	upd := database.ConversationUpdate{Name: input.Name, AvatarURL: input.AvatarURL}
	if err := s.conversations.UpdateConversation(ctx, id, upd); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id, userID)
}

// Remove soft-deletes the conversation. Idempotent: deleting twice is fine.
// Membership rows, messages and watermarks are untouched, so participants
// can still open the thread directly; it just drops out of listings.
func (s *ConversationService) Remove(ctx context.Context, id, userID int64) error {
	isMember, err := s.participants.IsParticipant(ctx, id, userID)
	if err != nil {
		return err
	}
	if !isMember {
		return utils.NewForbiddenError("caller is not a participant of this conversation")
	}
	return s.conversations.SoftDeleteConversation(ctx, id)
}

// MarkRead advances the caller's read watermark. The store-level conditional
// upsert guarantees the watermark never moves backward; stale calls are
// silent no-ops and the operation is fire-and-forget for callers.
func (s *ConversationService) MarkRead(ctx context.Context, userID, conversationID, messageID int64, readAt time.Time) error {
	if messageID <= 0 {
		return utils.NewValidationError("messageId must be a positive message identifier")
	}
	if readAt.IsZero() {
		readAt = time.Now()
	}
	return s.watermarks.AdvanceWatermark(ctx, userID, conversationID, messageID, readAt)
}

// unreadCount computes the caller's unread count from the watermark: all
// messages when no watermark exists (or it is empty), otherwise messages
// with id strictly greater than the watermark.
func (s *ConversationService) unreadCount(ctx context.Context, userID, conversationID int64) (int, error) {
	wm, err := s.watermarks.GetWatermark(ctx, userID, conversationID)
	if err != nil {
		return 0, err
	}

	var after int64
	if wm != nil && wm.MessageID != nil {
		after = *wm.MessageID
	}
	return s.messages.CountMessagesAfter(ctx, conversationID, after)
}

// overrideTwoPartyIdentity replaces stored name/avatar with the counterpart's
// identity for exactly-two-party conversations. This is the canonical rule
// for both list and detail views; the stored columns are never exposed.
func overrideTwoPartyIdentity(conv *models.Conversation, participants []*models.Participant, userID int64) {
	if len(participants) != 2 {
		return
	}
	for _, p := range participants {
		if p.ID != userID {
			name := p.FullName
			conv.Name = &name
			conv.AvatarURL = p.AvatarURL
			return
		}
	}
}

func dedupeIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func isExactPair(memberIDs []int64, a, b int64) bool {
	if len(memberIDs) != 2 {
		return false
	}
	hasA, hasB := false, false
	for _, id := range memberIDs {
		if id == a {
			hasA = true
		}
		if id == b {
			hasB = true
		}
	}
	return hasA && hasB
}

func placeholderAvatarURL() string {
	return "https://i.pravatar.cc/150?u=" + uuid.NewString()
}
