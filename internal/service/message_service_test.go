package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"lilypad/internal/models"
	"lilypad/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedBroadcast struct {
	userIDs []int64
	payload []byte
}

// channelBroadcaster records fan-outs so tests can wait for the detached
// send goroutine.
type channelBroadcaster struct {
	calls chan capturedBroadcast
}

func newChannelBroadcaster() *channelBroadcaster {
	return &channelBroadcaster{calls: make(chan capturedBroadcast, 8)}
}

func (b *channelBroadcaster) SendToUsers(userIDs []int64, payload []byte) {
	b.calls <- capturedBroadcast{userIDs: userIDs, payload: payload}
}

func (b *channelBroadcaster) wait(t *testing.T) capturedBroadcast {
	t.Helper()
	select {
	case call := <-b.calls:
		return call
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for broadcast")
		return capturedBroadcast{}
	}
}

func TestSendRejectsEmptyContent(t *testing.T) {
	store := newFakeStore()
	svc := NewMessageService(store, store, nil, nil)

	_, err := svc.Send(context.Background(), 1, 1, "   ")
	require.Error(t, err)
	assert.True(t, utils.IsErrorCode(err, utils.ErrInvalidInput))
}

func TestSendRejectsNonParticipants(t *testing.T) {
	store := newFakeStore()
	store.addUser(1, "Alice Nguyen", nil)
	store.addUser(2, "Bao Tran", nil)
	convs := newTestService(store)
	ctx := context.Background()

	conv, err := convs.Create(ctx, 1, []int64{2}, CreateConversationInput{})
	require.NoError(t, err)

	svc := NewMessageService(store, store, nil, nil)
	_, err = svc.Send(ctx, 42, conv.ID, "let me in")
	require.Error(t, err)
	assert.True(t, utils.IsErrorCode(err, utils.ErrForbidden))

	// Nothing was persisted.
	latest, err := store.GetLatestMessage(ctx, conv.ID)
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestSendPersistsAndBroadcasts(t *testing.T) {
	store := newFakeStore()
	store.addUser(1, "Alice Nguyen", nil)
	store.addUser(2, "Bao Tran", nil)
	convs := newTestService(store)
	ctx := context.Background()

	conv, err := convs.Create(ctx, 1, []int64{2}, CreateConversationInput{})
	require.NoError(t, err)

	broadcaster := newChannelBroadcaster()
	svc := NewMessageService(store, store, broadcaster, nil)

	msg, err := svc.Send(ctx, 1, conv.ID, "hello there")
	require.NoError(t, err)
	require.NotZero(t, msg.ID)
	assert.Equal(t, int64(1), msg.SenderID)

	call := broadcaster.wait(t)
	assert.Equal(t, []int64{1, 2}, call.userIDs)

	var event struct {
		Type    string          `json:"type"`
		Message *models.Message `json:"message"`
	}
	require.NoError(t, json.Unmarshal(call.payload, &event))
	assert.Equal(t, "message.created", event.Type)
	require.NotNil(t, event.Message)
	assert.Equal(t, msg.ID, event.Message.ID)
	assert.Equal(t, "hello there", event.Message.Content)
}

func TestSendBumpsConversationActivity(t *testing.T) {
	store := newFakeStore()
	store.addUser(1, "Alice Nguyen", nil)
	store.addUser(2, "Bao Tran", nil)
	convs := newTestService(store)
	svc := NewMessageService(store, store, nil, nil)
	ctx := context.Background()

	conv, err := convs.Create(ctx, 1, []int64{2}, CreateConversationInput{})
	require.NoError(t, err)
	created := conv.UpdatedAt

	time.Sleep(2 * time.Millisecond)
	_, err = svc.Send(ctx, 1, conv.ID, "bump")
	require.NoError(t, err)

	refreshed, err := store.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.True(t, refreshed.UpdatedAt.After(created))
}
