// Package chat implements the conversation orchestrator: it threads incoming
// user messages into conversations, synthesizes the bot reply and records the
// exchange through the injected storage dependency.
package chat

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/dmendezr/plantchat/internal/apperrors"
	"github.com/dmendezr/plantchat/internal/models"
	"github.com/dmendezr/plantchat/internal/storage"
)

const (
	// DefaultTitleRunes is how much of the first message becomes the
	// conversation title.
	DefaultTitleRunes = 50

	// DefaultHistoryLimit bounds a single history page of messages.
	DefaultHistoryLimit = 50
)

type Service struct {
	store      storage.ConversationStorage
	logger     *zap.Logger
	titleRunes int

	// Per-conversation serialization point: two rapid sends to the same
	// conversation must not interleave their exchanges. Entries are never
	// reclaimed; a mutex per active conversation is small enough.
	locksMu sync.Mutex
	locks   map[int64]*sync.Mutex
}

// NewService builds the orchestrator. titleRunes <= 0 selects the default.
func NewService(store storage.ConversationStorage, logger *zap.Logger, titleRunes int) *Service {
	if titleRunes <= 0 {
		titleRunes = DefaultTitleRunes
	}
	return &Service{
		store:      store,
		logger:     logger,
		titleRunes: titleRunes,
		locks:      make(map[int64]*sync.Mutex),
	}
}

func (s *Service) lockConversation(id int64) func() {
	s.locksMu.Lock()
	mu, exists := s.locks[id]
	if !exists {
		mu = &sync.Mutex{}
		s.locks[id] = mu
	}
	s.locksMu.Unlock()

	mu.Lock()
	return mu.Unlock
}

// Send handles one incoming message: it resolves or creates the target
// conversation, derives the bot reply and appends both messages as a single
// exchange. The returned rows are the ones read back from the store, so the
// caller sees server-assigned ids and timestamps.
func (s *Service) Send(ctx context.Context, userID int64, text string, conversationID int64) (*models.Exchange, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.Validation("mensaje es requerido")
	}

	if conversationID == 0 {
		conv, err := s.store.CreateConversation(ctx, userID, titleFor(text, s.titleRunes))
		if err != nil {
			s.logger.Error("Failed to create conversation",
				zap.Error(err),
				zap.Int64("user_id", userID))
			return nil, apperrors.Storage("no se pudo crear la conversación", err)
		}
		conversationID = conv.ID
	} else {
		conv, err := s.store.GetConversation(ctx, conversationID)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperrors.New(apperrors.KindNotFound, "conversación no encontrada")
		}
		if err != nil {
			s.logger.Error("Failed to load conversation",
				zap.Error(err),
				zap.Int64("conversation_id", conversationID))
			return nil, apperrors.Storage("no se pudo cargar la conversación", err)
		}
		if conv.UserID != userID {
			return nil, apperrors.New(apperrors.KindAuthorization, "la conversación pertenece a otro usuario")
		}
	}

	unlock := s.lockConversation(conversationID)
	defer unlock()

	reply := SynthesizeReply(text)

	userMsg, botMsg, err := s.store.AppendExchange(ctx, conversationID, text, reply)
	if err != nil {
		s.logger.Error("Failed to append exchange",
			zap.Error(err),
			zap.Int64("conversation_id", conversationID),
			zap.Int64("user_id", userID))
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperrors.New(apperrors.KindNotFound, "conversación no encontrada")
		}
		return nil, apperrors.Storage("no se pudo guardar el mensaje", err)
	}

	return &models.Exchange{
		ConversationID: conversationID,
		UserMessage:    userMsg,
		BotMessage:     botMsg,
	}, nil
}

// History returns the messages of one conversation owned by userID, oldest
// first. The limit must be positive; callers substitute their default before
// calling.
func (s *Service) History(ctx context.Context, userID, conversationID int64, limit int) ([]models.Message, error) {
	if limit <= 0 {
		return nil, apperrors.Validation("limit debe ser un entero positivo")
	}

	messages, err := s.store.ListMessages(ctx, userID, conversationID, limit)
	if err != nil {
		s.logger.Error("Failed to list messages",
			zap.Error(err),
			zap.Int64("conversation_id", conversationID),
			zap.Int64("user_id", userID))
		return nil, apperrors.Storage("no se pudo obtener el historial", err)
	}
	return messages, nil
}

// Conversations returns the user's conversation summaries ordered by most
// recent activity.
func (s *Service) Conversations(ctx context.Context, userID int64) ([]models.ConversationSummary, error) {
	conversations, err := s.store.ListConversations(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to list conversations",
			zap.Error(err),
			zap.Int64("user_id", userID))
		return nil, apperrors.Storage("no se pudo obtener el historial", err)
	}
	return conversations, nil
}

// titleFor derives the fixed conversation title from the first message:
// the leading maxRunes runes plus a trailing ellipsis, always appended.
func titleFor(text string, maxRunes int) string {
	runes := []rune(text)
	if len(runes) > maxRunes {
		runes = runes[:maxRunes]
	}
	return string(runes) + "..."
}
