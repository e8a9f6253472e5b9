package prediction

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dmendezr/plantchat/internal/apperrors"
	"github.com/dmendezr/plantchat/internal/models"
	"github.com/dmendezr/plantchat/internal/storage"
)

// DefaultHistoryLimit bounds a prediction history page.
const DefaultHistoryLimit = 20

// Outcome is what the caller gets back from a prediction request.
type Outcome struct {
	Label             string          `json:"label"`
	ConfidencePercent float64         `json:"confidence_percent"`
	Recommendations   []string        `json:"recommendations"`
	RequestedAt       time.Time       `json:"timestamp"`
	Raw               json.RawMessage `json:"raw,omitempty"`

	// Stored is false when the prediction succeeded but the record could not
	// be persisted; the accompanying error says so.
	Stored bool `json:"-"`
}

type Service struct {
	predictor Predictor
	store     storage.PredictionStorage
	logger    *zap.Logger
	now       func() time.Time
}

func NewService(predictor Predictor, store storage.PredictionStorage, logger *zap.Logger) *Service {
	return &Service{
		predictor: predictor,
		store:     store,
		logger:    logger,
		now:       time.Now,
	}
}

// Predict validates the reading, delegates to the collaborator and persists
// the round-trip. Validation and collaborator failures never touch the store.
// When persistence fails after a successful prediction the outcome is still
// returned, together with the storage error, so the result is never silently
// dropped.
func (s *Service) Predict(ctx context.Context, userID int64, reading json.RawMessage) (*Outcome, error) {
	if err := validateReading(reading); err != nil {
		return nil, err
	}

	result, raw, err := s.predictor.Predict(ctx, reading)
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{
		Label:             result.Result,
		ConfidencePercent: math.Round(result.Confidence*10000) / 100,
		Recommendations:   result.Recommendations,
		RequestedAt:       s.now().UTC(),
		Raw:               raw,
		Stored:            true,
	}
	if outcome.Recommendations == nil {
		outcome.Recommendations = []string{}
	}

	if _, err := s.store.InsertPrediction(ctx, userID, reading, raw); err != nil {
		s.logger.Error("Failed to persist prediction",
			zap.Error(err),
			zap.Int64("user_id", userID))
		outcome.Stored = false
		return outcome, apperrors.Storage("no se pudo guardar la predicción", err)
	}

	return outcome, nil
}

// History returns the user's prediction records, newest first. The limit must
// be positive; callers substitute their default before calling.
func (s *Service) History(ctx context.Context, userID int64, limit int) ([]models.PredictionRecord, error) {
	if limit <= 0 {
		return nil, apperrors.Validation("limit debe ser un entero positivo")
	}

	records, err := s.store.ListPredictions(ctx, userID, limit)
	if err != nil {
		s.logger.Error("Failed to list predictions",
			zap.Error(err),
			zap.Int64("user_id", userID))
		return nil, apperrors.Storage("no se pudo obtener el historial de predicciones", err)
	}
	return records, nil
}

// validateReading checks that every required sensor field is present and
// numeric. Presence means the key exists: a reading of 0 is valid.
func validateReading(reading json.RawMessage) error {
	if len(reading) == 0 {
		return apperrors.Validation("datos de sensores son requeridos")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(reading, &fields); err != nil {
		return apperrors.Validation("datos de sensores inválidos")
	}

	var missing []string
	for _, name := range models.SensorReadingFields {
		value, present := fields[name]
		if !present {
			missing = append(missing, name)
			continue
		}
		var n float64
		if err := json.Unmarshal(value, &n); err != nil {
			return apperrors.Validation(fmt.Sprintf("el campo %s debe ser numérico", name))
		}
	}

	if len(missing) > 0 {
		return apperrors.Validation(fmt.Sprintf("Campos faltantes: %s", strings.Join(missing, ", ")))
	}
	return nil
}
