package storage

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmendezr/plantchat/internal/models"
)

func TestMemoryConversationLifecycle(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()

	conv, err := store.CreateConversation(ctx, 1, "hola...")
	require.NoError(t, err)
	assert.NotZero(t, conv.ID)
	assert.False(t, conv.CreatedAt.IsZero())

	loaded, err := store.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, conv.ID, loaded.ID)
	assert.Equal(t, "hola...", loaded.Title)

	_, err = store.GetConversation(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryAppendExchangeOrdering(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()

	conv, err := store.CreateConversation(ctx, 1, "t...")
	require.NoError(t, err)

	userMsg, botMsg, err := store.AppendExchange(ctx, conv.ID, "pregunta", "respuesta")
	require.NoError(t, err)
	assert.Equal(t, models.SenderUser, userMsg.Sender)
	assert.Equal(t, models.SenderBot, botMsg.Sender)
	assert.Less(t, userMsg.ID, botMsg.ID)
	assert.False(t, userMsg.CreatedAt.After(botMsg.CreatedAt))

	messages, err := store.ListMessages(ctx, 1, conv.ID, 50)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "pregunta", messages[0].Content)
	assert.Equal(t, "respuesta", messages[1].Content)
}

func TestMemoryAppendExchangeUnknownConversation(t *testing.T) {
	store := NewMemoryStorage()

	_, _, err := store.AppendExchange(context.Background(), 42, "a", "b")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryListMessagesFiltersOwnership(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()

	conv, err := store.CreateConversation(ctx, 1, "t...")
	require.NoError(t, err)
	_, _, err = store.AppendExchange(ctx, conv.ID, "a", "b")
	require.NoError(t, err)

	// another user's id on the same conversation returns nothing
	messages, err := store.ListMessages(ctx, 2, conv.ID, 50)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestMemoryListConversationsOrdering(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()

	first, err := store.CreateConversation(ctx, 1, "primera...")
	require.NoError(t, err)
	second, err := store.CreateConversation(ctx, 1, "segunda...")
	require.NoError(t, err)

	_, _, err = store.AppendExchange(ctx, first.ID, "a", "b")
	require.NoError(t, err)
	_, _, err = store.AppendExchange(ctx, second.ID, "c", "d")
	require.NoError(t, err)

	summaries, err := store.ListConversations(ctx, 1)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	// most recent activity first; equal timestamps fall back to id order
	assert.Equal(t, second.ID, summaries[0].ID)
	assert.Equal(t, int64(2), summaries[0].MessageCount)
	require.NotNil(t, summaries[0].LastMessageAt)
}

func TestMemoryPredictionsNewestFirstWithLimit(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 3; i++ {
		record, err := store.InsertPrediction(ctx, 5, json.RawMessage(`{"temperature":1}`), json.RawMessage(`{"result":"Sin Fallo"}`))
		require.NoError(t, err)
		ids = append(ids, record.ID)
	}

	records, err := store.ListPredictions(ctx, 5, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, ids[2], records[0].ID)
	assert.Equal(t, ids[1], records[1].ID)

	// other users see nothing
	records, err = store.ListPredictions(ctx, 6, 20)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestMemoryUsers(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()

	user, err := store.CreateUser(ctx, "ana", "ana@example.com", "hash")
	require.NoError(t, err)
	assert.NotZero(t, user.ID)

	loaded, err := store.GetUserByEmail(ctx, "ANA@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loaded.ID)

	exists, err := store.UserExists(ctx, "ana", "otro@example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = store.UserExists(ctx, "otro", "otro@example.com")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = store.GetUserByEmail(ctx, "nadie@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}
