package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dmendezr/plantchat/internal/apperrors"
	"github.com/dmendezr/plantchat/internal/models"
	"github.com/dmendezr/plantchat/internal/storage"
)

func newTestService(t *testing.T) (*Service, *storage.MemoryStorage) {
	t.Helper()
	store := storage.NewMemoryStorage()
	return NewService(store, zap.NewNop(), 0), store
}

func TestSendCreatesConversationWithDerivedTitle(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	exchange, err := svc.Send(ctx, 1, "¿Hay riesgo de fallo en la máquina 3?", 0)
	require.NoError(t, err)

	conv, err := store.GetConversation(ctx, exchange.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, "¿Hay riesgo de fallo en la máquina 3?...", conv.Title)
	assert.Equal(t, int64(1), conv.UserID)

	assert.Equal(t, models.SenderUser, exchange.UserMessage.Sender)
	assert.Equal(t, models.SenderBot, exchange.BotMessage.Sender)
	assert.Equal(t, exchange.ConversationID, exchange.UserMessage.ConversationID)
	assert.Equal(t, exchange.ConversationID, exchange.BotMessage.ConversationID)
	assert.Equal(t, MaintenanceReply, exchange.BotMessage.Content)
	assert.False(t, exchange.UserMessage.CreatedAt.After(exchange.BotMessage.CreatedAt))
}

func TestSendTruncatesLongTitles(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	long := strings.Repeat("ñ", 80)
	exchange, err := svc.Send(ctx, 1, long, 0)
	require.NoError(t, err)

	conv, err := store.GetConversation(ctx, exchange.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("ñ", 50)+"...", conv.Title)
}

func TestSendAppendsToExistingConversation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Send(ctx, 7, "hola", 0)
	require.NoError(t, err)

	second, err := svc.Send(ctx, 7, "sigo aquí", first.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, first.ConversationID, second.ConversationID)

	messages, err := svc.History(ctx, 7, first.ConversationID, 50)
	require.NoError(t, err)
	require.Len(t, messages, 4)

	// exchanges stay adjacent, user before bot
	assert.Equal(t, models.SenderUser, messages[0].Sender)
	assert.Equal(t, models.SenderBot, messages[1].Sender)
	assert.Equal(t, models.SenderUser, messages[2].Sender)
	assert.Equal(t, models.SenderBot, messages[3].Sender)

	conversations, err := svc.Conversations(ctx, 7)
	require.NoError(t, err)
	require.Len(t, conversations, 1)
	assert.Equal(t, int64(4), conversations[0].MessageCount)
}

func TestSendWithoutConversationIDCreatesDistinctConversations(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Send(ctx, 3, "primera consulta", 0)
	require.NoError(t, err)
	second, err := svc.Send(ctx, 3, "segunda consulta", 0)
	require.NoError(t, err)

	assert.NotEqual(t, first.ConversationID, second.ConversationID)

	conversations, err := svc.Conversations(ctx, 3)
	require.NoError(t, err)
	require.Len(t, conversations, 2)
	assert.Equal(t, "segunda consulta...", conversations[0].Title)
	assert.Equal(t, "primera consulta...", conversations[1].Title)
}

func TestSendRejectsEmptyMessage(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := svc.Send(ctx, 1, text, 0)
		assert.True(t, apperrors.IsKind(err, apperrors.KindValidation), "text %q", text)
	}

	// validation failures never touch the store
	conversations, err := store.ListConversations(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, conversations)
}

func TestSendRejectsForeignConversation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	exchange, err := svc.Send(ctx, 1, "mi conversación", 0)
	require.NoError(t, err)

	_, err = svc.Send(ctx, 2, "intruso", exchange.ConversationID)
	assert.True(t, apperrors.IsKind(err, apperrors.KindAuthorization))

	messages, err := svc.History(ctx, 1, exchange.ConversationID, 50)
	require.NoError(t, err)
	assert.Len(t, messages, 2)
}

func TestSendUnknownConversation(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Send(context.Background(), 1, "hola", 999)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

type failingExchangeStore struct {
	*storage.MemoryStorage
}

func (f *failingExchangeStore) AppendExchange(ctx context.Context, conversationID int64, userContent, botContent string) (*models.Message, *models.Message, error) {
	return nil, nil, errors.New("disk full")
}

func TestSendSurfacesStorageFailure(t *testing.T) {
	store := &failingExchangeStore{storage.NewMemoryStorage()}
	svc := NewService(store, zap.NewNop(), 0)
	ctx := context.Background()

	_, err := svc.Send(ctx, 1, "hola", 0)
	assert.True(t, apperrors.IsKind(err, apperrors.KindStorage))

	// the conversation was created, but no half-exchange exists
	conversations, listErr := store.ListConversations(ctx, 1)
	require.NoError(t, listErr)
	require.Len(t, conversations, 1)
	assert.Equal(t, int64(0), conversations[0].MessageCount)
}

func TestHistoryRejectsNonPositiveLimit(t *testing.T) {
	svc, _ := newTestService(t)

	for _, limit := range []int{0, -1, -50} {
		_, err := svc.History(context.Background(), 1, 1, limit)
		assert.True(t, apperrors.IsKind(err, apperrors.KindValidation), "limit %d", limit)
	}
}
