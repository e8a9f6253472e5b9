package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/dmendezr/plantchat/internal/models"
)

//go:embed migrations_postgres.sql
var pgMigrations embed.FS

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresStorage(config DatabaseConfig, logger *zap.Logger) (*PostgresStorage, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %v", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error connecting to the database: %v", err)
	}

	storage := &PostgresStorage{db: db, logger: logger}

	// Initialize database schema
	if err := storage.initializeSchema(); err != nil {
		return nil, fmt.Errorf("error initializing database schema: %v", err)
	}

	return storage, nil
}

func (s *PostgresStorage) initializeSchema() error {
	migrationSQL, err := pgMigrations.ReadFile("migrations_postgres.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %v", err)
	}

	_, err = s.db.Exec(string(migrationSQL))
	if err != nil {
		return fmt.Errorf("error executing migrations: %v", err)
	}

	return nil
}

func (s *PostgresStorage) CreateConversation(ctx context.Context, userID int64, title string) (*models.Conversation, error) {
	conv := &models.Conversation{UserID: userID, Title: title}

	query := `
		INSERT INTO conversations (user_id, title)
		VALUES ($1, $2)
		RETURNING id, created_at`

	err := s.db.QueryRowContext(ctx, query, userID, title).Scan(&conv.ID, &conv.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("error creating conversation: %v", err)
	}

	return conv, nil
}

func (s *PostgresStorage) GetConversation(ctx context.Context, id int64) (*models.Conversation, error) {
	conv := &models.Conversation{}

	query := `
		SELECT id, user_id, title, created_at
		FROM conversations
		WHERE id = $1`

	err := s.db.QueryRowContext(ctx, query, id).Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying conversation: %v", err)
	}

	return conv, nil
}

func (s *PostgresStorage) AppendExchange(ctx context.Context, conversationID int64, userContent, botContent string) (*models.Message, *models.Message, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("error starting transaction: %v", err)
	}
	defer tx.Rollback()

	insert := `
		INSERT INTO messages (conversation_id, content, sender_type)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	userMsg := &models.Message{ConversationID: conversationID, Content: userContent, Sender: models.SenderUser}
	if err := tx.QueryRowContext(ctx, insert, conversationID, userContent, models.SenderUser).
		Scan(&userMsg.ID, &userMsg.CreatedAt); err != nil {
		return nil, nil, fmt.Errorf("error inserting user message: %v", err)
	}

	botMsg := &models.Message{ConversationID: conversationID, Content: botContent, Sender: models.SenderBot}
	if err := tx.QueryRowContext(ctx, insert, conversationID, botContent, models.SenderBot).
		Scan(&botMsg.ID, &botMsg.CreatedAt); err != nil {
		return nil, nil, fmt.Errorf("error inserting bot message: %v", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("error committing exchange: %v", err)
	}

	return userMsg, botMsg, nil
}

func (s *PostgresStorage) ListMessages(ctx context.Context, userID, conversationID int64, limit int) ([]models.Message, error) {
	query := `
		SELECT m.id, m.conversation_id, m.content, m.sender_type, m.created_at
		FROM messages m
		JOIN conversations c ON m.conversation_id = c.id
		WHERE c.user_id = $1 AND m.conversation_id = $2
		ORDER BY m.created_at ASC, m.id ASC
		LIMIT $3`

	rows, err := s.db.QueryContext(ctx, query, userID, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying messages: %v", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Content, &msg.Sender, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning message: %v", err)
		}
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

func (s *PostgresStorage) ListConversations(ctx context.Context, userID int64) ([]models.ConversationSummary, error) {
	query := `
		SELECT c.id, c.user_id, c.title, c.created_at,
		       COUNT(m.id) AS message_count,
		       MAX(m.created_at) AS last_message_at
		FROM conversations c
		LEFT JOIN messages m ON c.id = m.conversation_id
		WHERE c.user_id = $1
		GROUP BY c.id
		ORDER BY last_message_at DESC NULLS LAST, c.id DESC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("error querying conversations: %v", err)
	}
	defer rows.Close()

	var conversations []models.ConversationSummary
	for rows.Next() {
		var summary models.ConversationSummary
		var lastMessageAt sql.NullTime
		if err := rows.Scan(&summary.ID, &summary.UserID, &summary.Title, &summary.CreatedAt,
			&summary.MessageCount, &lastMessageAt); err != nil {
			return nil, fmt.Errorf("error scanning conversation: %v", err)
		}
		if lastMessageAt.Valid {
			t := lastMessageAt.Time
			summary.LastMessageAt = &t
		}
		conversations = append(conversations, summary)
	}

	return conversations, rows.Err()
}

func (s *PostgresStorage) InsertPrediction(ctx context.Context, userID int64, sensorData, result json.RawMessage) (*models.PredictionRecord, error) {
	record := &models.PredictionRecord{UserID: userID, SensorData: sensorData, Result: result}

	query := `
		INSERT INTO predictions (user_id, sensor_data, prediction_result)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := s.db.QueryRowContext(ctx, query, userID, string(sensorData), string(result)).
		Scan(&record.ID, &record.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("error inserting prediction: %v", err)
	}

	return record, nil
}

func (s *PostgresStorage) ListPredictions(ctx context.Context, userID int64, limit int) ([]models.PredictionRecord, error) {
	query := `
		SELECT id, user_id, sensor_data, prediction_result, created_at
		FROM predictions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying predictions: %v", err)
	}
	defer rows.Close()

	var records []models.PredictionRecord
	for rows.Next() {
		var record models.PredictionRecord
		var sensorData, result string
		if err := rows.Scan(&record.ID, &record.UserID, &sensorData, &result, &record.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning prediction: %v", err)
		}
		record.SensorData = json.RawMessage(sensorData)
		record.Result = json.RawMessage(result)
		records = append(records, record)
	}

	return records, rows.Err()
}

func (s *PostgresStorage) CreateUser(ctx context.Context, username, email, passwordHash string) (*models.User, error) {
	user := &models.User{Username: username, Email: email, PasswordHash: passwordHash}

	query := `
		INSERT INTO users (username, email, password)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := s.db.QueryRowContext(ctx, query, username, email, passwordHash).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("error creating user: %v", err)
	}

	return user, nil
}

func (s *PostgresStorage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}

	query := `
		SELECT id, username, email, password, created_at
		FROM users
		WHERE email = $1`

	err := s.db.QueryRowContext(ctx, query, email).
		Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying user: %v", err)
	}

	return user, nil
}

func (s *PostgresStorage) UserExists(ctx context.Context, username, email string) (bool, error) {
	var id int64

	query := `SELECT id FROM users WHERE email = $1 OR username = $2`

	err := s.db.QueryRowContext(ctx, query, email, username).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("error checking user: %v", err)
	}

	return true, nil
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}
