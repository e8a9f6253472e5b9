package storage

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/dmendezr/plantchat/internal/models"
)

// ErrNotFound is returned when a keyed lookup matches nothing.
var ErrNotFound = errors.New("storage: not found")

// Storage is the persistence dependency injected into the chat, prediction
// and auth services. Implementations: Postgres, SQLite and an in-memory fake.
type Storage interface {
	ConversationStorage
	PredictionStorage
	UserStorage
	Close() error
}

type ConversationStorage interface {
	CreateConversation(ctx context.Context, userID int64, title string) (*models.Conversation, error)
	GetConversation(ctx context.Context, id int64) (*models.Conversation, error)

	// AppendExchange inserts the user message and the bot message of one
	// exchange, user first. SQL backends run both inserts in a single
	// transaction: either both rows land or neither does.
	AppendExchange(ctx context.Context, conversationID int64, userContent, botContent string) (*models.Message, *models.Message, error)

	// ListMessages returns up to limit messages of a conversation owned by
	// userID, ascending by creation time (ties by id).
	ListMessages(ctx context.Context, userID, conversationID int64, limit int) ([]models.Message, error)

	// ListConversations returns the user's conversations with message counts
	// and last-activity timestamps, most recent activity first.
	ListConversations(ctx context.Context, userID int64) ([]models.ConversationSummary, error)
}

type PredictionStorage interface {
	InsertPrediction(ctx context.Context, userID int64, sensorData, result json.RawMessage) (*models.PredictionRecord, error)

	// ListPredictions returns up to limit records, newest first.
	ListPredictions(ctx context.Context, userID int64, limit int) ([]models.PredictionRecord, error)
}

type UserStorage interface {
	CreateUser(ctx context.Context, username, email, passwordHash string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UserExists(ctx context.Context, username, email string) (bool, error)
}
