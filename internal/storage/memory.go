package storage

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dmendezr/plantchat/internal/models"
)

// MemoryStorage is a mutex-guarded in-memory implementation used for tests
// and local development.
type MemoryStorage struct {
	mu            sync.RWMutex
	nextID        int64
	users         map[int64]*models.User
	conversations map[int64]*models.Conversation
	messages      map[int64]*models.Message
	predictions   map[int64]*models.PredictionRecord
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		users:         make(map[int64]*models.User),
		conversations: make(map[int64]*models.Conversation),
		messages:      make(map[int64]*models.Message),
		predictions:   make(map[int64]*models.PredictionRecord),
	}
}

// next must be called with mu held.
func (s *MemoryStorage) next() int64 {
	s.nextID++
	return s.nextID
}

func (s *MemoryStorage) CreateConversation(ctx context.Context, userID int64, title string) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := &models.Conversation{
		ID:        s.next(),
		UserID:    userID,
		Title:     title,
		CreatedAt: time.Now().UTC(),
	}
	s.conversations[conv.ID] = conv

	copied := *conv
	return &copied, nil
}

func (s *MemoryStorage) GetConversation(ctx context.Context, id int64) (*models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, exists := s.conversations[id]
	if !exists {
		return nil, ErrNotFound
	}

	copied := *conv
	return &copied, nil
}

func (s *MemoryStorage) AppendExchange(ctx context.Context, conversationID int64, userContent, botContent string) (*models.Message, *models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.conversations[conversationID]; !exists {
		return nil, nil, ErrNotFound
	}

	now := time.Now().UTC()
	userMsg := &models.Message{
		ID:             s.next(),
		ConversationID: conversationID,
		Content:        userContent,
		Sender:         models.SenderUser,
		CreatedAt:      now,
	}
	botMsg := &models.Message{
		ID:             s.next(),
		ConversationID: conversationID,
		Content:        botContent,
		Sender:         models.SenderBot,
		CreatedAt:      now,
	}
	s.messages[userMsg.ID] = userMsg
	s.messages[botMsg.ID] = botMsg

	userCopy, botCopy := *userMsg, *botMsg
	return &userCopy, &botCopy, nil
}

func (s *MemoryStorage) ListMessages(ctx context.Context, userID, conversationID int64, limit int) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, exists := s.conversations[conversationID]
	if !exists || conv.UserID != userID {
		return nil, nil
	}

	var messages []models.Message
	for _, msg := range s.messages {
		if msg.ConversationID == conversationID {
			messages = append(messages, *msg)
		}
	}

	sort.Slice(messages, func(i, j int) bool {
		if !messages[i].CreatedAt.Equal(messages[j].CreatedAt) {
			return messages[i].CreatedAt.Before(messages[j].CreatedAt)
		}
		return messages[i].ID < messages[j].ID
	})

	if len(messages) > limit {
		messages = messages[:limit]
	}
	return messages, nil
}

func (s *MemoryStorage) ListConversations(ctx context.Context, userID int64) ([]models.ConversationSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var summaries []models.ConversationSummary
	for _, conv := range s.conversations {
		if conv.UserID != userID {
			continue
		}
		summary := models.ConversationSummary{Conversation: *conv}
		for _, msg := range s.messages {
			if msg.ConversationID != conv.ID {
				continue
			}
			summary.MessageCount++
			if summary.LastMessageAt == nil || msg.CreatedAt.After(*summary.LastMessageAt) {
				t := msg.CreatedAt
				summary.LastMessageAt = &t
			}
		}
		summaries = append(summaries, summary)
	}

	sort.Slice(summaries, func(i, j int) bool {
		li, lj := summaries[i].LastMessageAt, summaries[j].LastMessageAt
		switch {
		case li == nil && lj == nil:
			return summaries[i].ID > summaries[j].ID
		case li == nil:
			return false
		case lj == nil:
			return true
		case !li.Equal(*lj):
			return li.After(*lj)
		default:
			return summaries[i].ID > summaries[j].ID
		}
	})

	return summaries, nil
}

func (s *MemoryStorage) InsertPrediction(ctx context.Context, userID int64, sensorData, result json.RawMessage) (*models.PredictionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := &models.PredictionRecord{
		ID:         s.next(),
		UserID:     userID,
		SensorData: append(json.RawMessage(nil), sensorData...),
		Result:     append(json.RawMessage(nil), result...),
		CreatedAt:  time.Now().UTC(),
	}
	s.predictions[record.ID] = record

	copied := *record
	return &copied, nil
}

func (s *MemoryStorage) ListPredictions(ctx context.Context, userID int64, limit int) ([]models.PredictionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []models.PredictionRecord
	for _, record := range s.predictions {
		if record.UserID == userID {
			records = append(records, *record)
		}
	}

	sort.Slice(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.After(records[j].CreatedAt)
		}
		return records[i].ID > records[j].ID
	})

	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (s *MemoryStorage) CreateUser(ctx context.Context, username, email, passwordHash string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user := &models.User{
		ID:           s.next(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	s.users[user.ID] = user

	copied := *user
	return &copied, nil
}

func (s *MemoryStorage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if strings.EqualFold(user.Email, email) {
			copied := *user
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStorage) UserExists(ctx context.Context, username, email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if strings.EqualFold(user.Email, email) || strings.EqualFold(user.Username, username) {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}
