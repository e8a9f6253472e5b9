package models

import (
	"encoding/json"
	"time"
)

type SenderKind string

const (
	SenderUser SenderKind = "user"
	SenderBot  SenderKind = "bot"
)

// Conversation is a thread of messages owned by a single user.
// The title is derived from the first message and never updated.
type Conversation struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// Message is immutable once created. Ordering within a conversation is
// by CreatedAt, ties broken by ID.
type Message struct {
	ID             int64      `json:"id"`
	ConversationID int64      `json:"conversation_id"`
	Content        string     `json:"content"`
	Sender         SenderKind `json:"sender_type"`
	CreatedAt      time.Time  `json:"created_at"`
}

// ConversationSummary is a conversation with its aggregate activity,
// as returned by the history listing.
type ConversationSummary struct {
	Conversation
	MessageCount  int64      `json:"message_count"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
}

// Exchange is the pair of rows written by one orchestrator invocation.
type Exchange struct {
	ConversationID int64    `json:"conversationId"`
	UserMessage    *Message `json:"userMessage"`
	BotMessage     *Message `json:"botMessage"`
}

// PredictionRecord stores one prediction round-trip. SensorData and Result
// keep the serialized payloads verbatim; they are never normalized.
type PredictionRecord struct {
	ID         int64           `json:"id"`
	UserID     int64           `json:"user_id"`
	SensorData json.RawMessage `json:"sensor_data"`
	Result     json.RawMessage `json:"prediction_result"`
	CreatedAt  time.Time       `json:"created_at"`
}

// PredictionResult is the prediction service response.
type PredictionResult struct {
	Result          string   `json:"result"`
	Confidence      float64  `json:"confidence"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// SensorReadingFields are the keys a reading must carry. A value of 0 is
// valid; only a missing key fails validation.
var SensorReadingFields = []string{
	"temperature",
	"vibration",
	"humidity",
	"cycle_time",
	"efficiency_percent",
	"energy_consumption",
}

// User is an authenticated account. PasswordHash never leaves the server.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
