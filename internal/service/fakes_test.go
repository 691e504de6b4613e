package service

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"lilypad/internal/database"
	"lilypad/internal/models"
	"lilypad/internal/utils"
)

// fakeStore is an in-memory implementation of all five store interfaces,
// mirroring the ordering and not-found semantics of the Postgres layer.
type fakeStore struct {
	mu sync.Mutex

	users      map[int64]*models.User
	convs      map[int64]*models.Conversation
	members    map[int64][]int64
	messages   map[int64][]*models.Message
	watermarks map[[2]int64]*models.ReadWatermark

	nextConvID int64
	nextMsgID  int64
}

var (
	_ database.UserStore          = (*fakeStore)(nil)
	_ database.ConversationStore  = (*fakeStore)(nil)
	_ database.ParticipantStore   = (*fakeStore)(nil)
	_ database.MessageStore       = (*fakeStore)(nil)
	_ database.ReadWatermarkStore = (*fakeStore)(nil)
)

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:      make(map[int64]*models.User),
		convs:      make(map[int64]*models.Conversation),
		members:    make(map[int64][]int64),
		messages:   make(map[int64][]*models.Message),
		watermarks: make(map[[2]int64]*models.ReadWatermark),
	}
}

func (f *fakeStore) addUser(id int64, fullName string, avatarURL *string) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := &models.User{
		ID:        id,
		Username:  "user" + strconv.FormatInt(id, 10),
		FullName:  fullName,
		AvatarURL: avatarURL,
	}
	f.users[id] = u
	return u
}

func (f *fakeStore) GetUsersByIDs(ctx context.Context, ids []int64) ([]*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) GetUserByKey(ctx context.Context, key string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id, err := strconv.ParseInt(key, 10, 64); err == nil {
		if u, ok := f.users[id]; ok {
			return u, nil
		}
		return nil, utils.NewNotFoundError("user not found")
	}
	for _, u := range f.users {
		if u.Username == key {
			return u, nil
		}
	}
	return nil, utils.NewNotFoundError("user not found")
}

func (f *fakeStore) CreateConversation(ctx context.Context, conv *models.Conversation, participantIDs []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextConvID++
	conv.ID = f.nextConvID
	conv.CreatedAt = time.Now()
	conv.UpdatedAt = conv.CreatedAt
	stored := *conv
	f.convs[conv.ID] = &stored
	f.members[conv.ID] = appendUnique(f.members[conv.ID], participantIDs)
	return nil
}

func (f *fakeStore) GetConversation(ctx context.Context, id int64) (*models.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	conv, ok := f.convs[id]
	if !ok {
		return nil, utils.NewNotFoundError("conversation not found")
	}
	cp := *conv
	return &cp, nil
}

func (f *fakeStore) GetConversationsByParticipant(ctx context.Context, userID int64) ([]*models.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Conversation, 0)
	for id, conv := range f.convs {
		if conv.IsDeleted() {
			continue
		}
		if containsID(f.members[id], userID) {
			cp := *conv
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (f *fakeStore) FindConversationsWithAny(ctx context.Context, userIDs []int64) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int64, 0)
	for id := range f.convs {
		for _, userID := range userIDs {
			if containsID(f.members[id], userID) {
				out = append(out, id)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (f *fakeStore) UpdateConversation(ctx context.Context, id int64, upd database.ConversationUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	conv, ok := f.convs[id]
	if !ok {
		return utils.NewNotFoundError("conversation not found")
	}
	if upd.Name != nil {
		name := *upd.Name
		conv.Name = &name
	}
	if upd.AvatarURL != nil {
		avatar := *upd.AvatarURL
		conv.AvatarURL = &avatar
	}
	conv.UpdatedAt = time.Now()
	return nil
}

func (f *fakeStore) SoftDeleteConversation(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	conv, ok := f.convs[id]
	if !ok {
		return utils.NewNotFoundError("conversation not found")
	}
	now := time.Now()
	conv.DeletedAt = &now
	return nil
}

func (f *fakeStore) AddParticipants(ctx context.Context, conversationID int64, userIDs []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.members[conversationID] = appendUnique(f.members[conversationID], userIDs)
	return nil
}

func (f *fakeStore) IsParticipant(ctx context.Context, conversationID, userID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return containsID(f.members[conversationID], userID), nil
}

func (f *fakeStore) GetParticipantIDs(ctx context.Context, conversationID int64) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := append([]int64(nil), f.members[conversationID]...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (f *fakeStore) GetParticipants(ctx context.Context, conversationID int64) ([]*models.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := append([]int64(nil), f.members[conversationID]...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]*models.Participant, 0, len(ids))
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			out = append(out, u.AsParticipant())
		}
	}
	return out, nil
}

func (f *fakeStore) SaveMessage(ctx context.Context, msg *models.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextMsgID++
	msg.ID = f.nextMsgID
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	stored := *msg
	f.messages[msg.ConversationID] = append(f.messages[msg.ConversationID], &stored)
	if conv, ok := f.convs[msg.ConversationID]; ok {
		conv.UpdatedAt = time.Now()
	}
	return nil
}

func (f *fakeStore) GetConversationMessages(ctx context.Context, conversationID int64) ([]*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs := f.messages[conversationID]
	out := make([]*models.Message, 0, len(msgs))
	for i := len(msgs) - 1; i >= 0; i-- {
		cp := *msgs[i]
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeStore) GetLatestMessage(ctx context.Context, conversationID int64) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs := f.messages[conversationID]
	if len(msgs) == 0 {
		return nil, nil
	}
	cp := *msgs[len(msgs)-1]
	return &cp, nil
}

func (f *fakeStore) CountMessagesAfter(ctx context.Context, conversationID, afterID int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, msg := range f.messages[conversationID] {
		if msg.ID > afterID {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) GetWatermark(ctx context.Context, userID, conversationID int64) (*models.ReadWatermark, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	wm, ok := f.watermarks[[2]int64{userID, conversationID}]
	if !ok {
		return nil, nil
	}
	cp := *wm
	return &cp, nil
}

func (f *fakeStore) AdvanceWatermark(ctx context.Context, userID, conversationID, messageID int64, readAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := [2]int64{userID, conversationID}
	wm, ok := f.watermarks[key]
	if !ok {
		f.watermarks[key] = &models.ReadWatermark{
			UserID:         userID,
			ConversationID: conversationID,
			MessageID:      &messageID,
			ReadAt:         &readAt,
		}
		return nil
	}
	if wm.MessageID == nil || *wm.MessageID < messageID {
		wm.MessageID = &messageID
		wm.ReadAt = &readAt
	}
	return nil
}

func appendUnique(existing []int64, ids []int64) []int64 {
	for _, id := range ids {
		if !containsID(existing, id) {
			existing = append(existing, id)
		}
	}
	return existing
}

func containsID(ids []int64, id int64) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
