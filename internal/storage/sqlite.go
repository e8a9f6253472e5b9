package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/dmendezr/plantchat/internal/models"
)

//go:embed migrations_sqlite.sql
var sqliteMigrations embed.FS

// SQLiteStorage keeps everything in a single SQLite file, the default backend.
// Timestamps are stored as unix milliseconds set on the Go side.
type SQLiteStorage struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

func NewSQLiteStorage(path string, logger *zap.Logger) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %v", err)
	}

	// A single writer avoids SQLITE_BUSY on concurrent exchanges.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error connecting to the database: %v", err)
	}

	storage := &SQLiteStorage{db: db, logger: logger, now: time.Now}

	if err := storage.initializeSchema(); err != nil {
		return nil, fmt.Errorf("error initializing database schema: %v", err)
	}

	return storage, nil
}

func (s *SQLiteStorage) initializeSchema() error {
	migrationSQL, err := sqliteMigrations.ReadFile("migrations_sqlite.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %v", err)
	}

	_, err = s.db.Exec(string(migrationSQL))
	if err != nil {
		return fmt.Errorf("error executing migrations: %v", err)
	}

	return nil
}

func millis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func (s *SQLiteStorage) CreateConversation(ctx context.Context, userID int64, title string) (*models.Conversation, error) {
	createdAt := s.now()
	conv := &models.Conversation{UserID: userID, Title: title, CreatedAt: createdAt.UTC()}

	query := `
		INSERT INTO conversations (user_id, title, created_at)
		VALUES (?, ?, ?)
		RETURNING id`

	err := s.db.QueryRowContext(ctx, query, userID, title, millis(createdAt)).Scan(&conv.ID)
	if err != nil {
		return nil, fmt.Errorf("error creating conversation: %v", err)
	}

	return conv, nil
}

func (s *SQLiteStorage) GetConversation(ctx context.Context, id int64) (*models.Conversation, error) {
	conv := &models.Conversation{}
	var createdAt int64

	query := `
		SELECT id, user_id, title, created_at
		FROM conversations
		WHERE id = ?`

	err := s.db.QueryRowContext(ctx, query, id).Scan(&conv.ID, &conv.UserID, &conv.Title, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying conversation: %v", err)
	}

	conv.CreatedAt = fromMillis(createdAt)
	return conv, nil
}

func (s *SQLiteStorage) AppendExchange(ctx context.Context, conversationID int64, userContent, botContent string) (*models.Message, *models.Message, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("error starting transaction: %v", err)
	}
	defer tx.Rollback()

	insert := `
		INSERT INTO messages (conversation_id, content, sender_type, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id`

	// Same timestamp for both rows; insertion order (id) breaks the tie so
	// the user message always sorts first.
	createdAt := s.now()

	userMsg := &models.Message{
		ConversationID: conversationID,
		Content:        userContent,
		Sender:         models.SenderUser,
		CreatedAt:      fromMillis(millis(createdAt)),
	}
	if err := tx.QueryRowContext(ctx, insert, conversationID, userContent, models.SenderUser, millis(createdAt)).
		Scan(&userMsg.ID); err != nil {
		return nil, nil, fmt.Errorf("error inserting user message: %v", err)
	}

	botMsg := &models.Message{
		ConversationID: conversationID,
		Content:        botContent,
		Sender:         models.SenderBot,
		CreatedAt:      fromMillis(millis(createdAt)),
	}
	if err := tx.QueryRowContext(ctx, insert, conversationID, botContent, models.SenderBot, millis(createdAt)).
		Scan(&botMsg.ID); err != nil {
		return nil, nil, fmt.Errorf("error inserting bot message: %v", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("error committing exchange: %v", err)
	}

	return userMsg, botMsg, nil
}

func (s *SQLiteStorage) ListMessages(ctx context.Context, userID, conversationID int64, limit int) ([]models.Message, error) {
	query := `
		SELECT m.id, m.conversation_id, m.content, m.sender_type, m.created_at
		FROM messages m
		JOIN conversations c ON m.conversation_id = c.id
		WHERE c.user_id = ? AND m.conversation_id = ?
		ORDER BY m.created_at ASC, m.id ASC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, userID, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying messages: %v", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var msg models.Message
		var createdAt int64
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Content, &msg.Sender, &createdAt); err != nil {
			return nil, fmt.Errorf("error scanning message: %v", err)
		}
		msg.CreatedAt = fromMillis(createdAt)
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

func (s *SQLiteStorage) ListConversations(ctx context.Context, userID int64) ([]models.ConversationSummary, error) {
	query := `
		SELECT c.id, c.user_id, c.title, c.created_at,
		       COUNT(m.id) AS message_count,
		       MAX(m.created_at) AS last_message_at
		FROM conversations c
		LEFT JOIN messages m ON c.id = m.conversation_id
		WHERE c.user_id = ?
		GROUP BY c.id
		ORDER BY last_message_at DESC, c.id DESC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("error querying conversations: %v", err)
	}
	defer rows.Close()

	var conversations []models.ConversationSummary
	for rows.Next() {
		var summary models.ConversationSummary
		var createdAt int64
		var lastMessageAt sql.NullInt64
		if err := rows.Scan(&summary.ID, &summary.UserID, &summary.Title, &createdAt,
			&summary.MessageCount, &lastMessageAt); err != nil {
			return nil, fmt.Errorf("error scanning conversation: %v", err)
		}
		summary.CreatedAt = fromMillis(createdAt)
		if lastMessageAt.Valid {
			t := fromMillis(lastMessageAt.Int64)
			summary.LastMessageAt = &t
		}
		conversations = append(conversations, summary)
	}

	return conversations, rows.Err()
}

func (s *SQLiteStorage) InsertPrediction(ctx context.Context, userID int64, sensorData, result json.RawMessage) (*models.PredictionRecord, error) {
	createdAt := s.now()
	record := &models.PredictionRecord{
		UserID:     userID,
		SensorData: sensorData,
		Result:     result,
		CreatedAt:  fromMillis(millis(createdAt)),
	}

	query := `
		INSERT INTO predictions (user_id, sensor_data, prediction_result, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id`

	err := s.db.QueryRowContext(ctx, query, userID, string(sensorData), string(result), millis(createdAt)).
		Scan(&record.ID)
	if err != nil {
		return nil, fmt.Errorf("error inserting prediction: %v", err)
	}

	return record, nil
}

func (s *SQLiteStorage) ListPredictions(ctx context.Context, userID int64, limit int) ([]models.PredictionRecord, error) {
	query := `
		SELECT id, user_id, sensor_data, prediction_result, created_at
		FROM predictions
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying predictions: %v", err)
	}
	defer rows.Close()

	var records []models.PredictionRecord
	for rows.Next() {
		var record models.PredictionRecord
		var sensorData, result string
		var createdAt int64
		if err := rows.Scan(&record.ID, &record.UserID, &sensorData, &result, &createdAt); err != nil {
			return nil, fmt.Errorf("error scanning prediction: %v", err)
		}
		record.SensorData = json.RawMessage(sensorData)
		record.Result = json.RawMessage(result)
		record.CreatedAt = fromMillis(createdAt)
		records = append(records, record)
	}

	return records, rows.Err()
}

func (s *SQLiteStorage) CreateUser(ctx context.Context, username, email, passwordHash string) (*models.User, error) {
	createdAt := s.now()
	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    fromMillis(millis(createdAt)),
	}

	query := `
		INSERT INTO users (username, email, password, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id`

	err := s.db.QueryRowContext(ctx, query, username, email, passwordHash, millis(createdAt)).Scan(&user.ID)
	if err != nil {
		return nil, fmt.Errorf("error creating user: %v", err)
	}

	return user, nil
}

func (s *SQLiteStorage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	var createdAt int64

	query := `
		SELECT id, username, email, password, created_at
		FROM users
		WHERE email = ?`

	err := s.db.QueryRowContext(ctx, query, email).
		Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying user: %v", err)
	}

	user.CreatedAt = fromMillis(createdAt)
	return user, nil
}

func (s *SQLiteStorage) UserExists(ctx context.Context, username, email string) (bool, error) {
	var id int64

	query := `SELECT id FROM users WHERE email = ? OR username = ?`

	err := s.db.QueryRowContext(ctx, query, email, username).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("error checking user: %v", err)
	}

	return true, nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
