// Package prediction talks to the external failure-prediction service and
// records every successful round-trip.
package prediction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/dmendezr/plantchat/internal/apperrors"
	"github.com/dmendezr/plantchat/internal/models"
)

// Predictor is the external collaborator: sensor reading in, prediction out.
// The raw response body is returned alongside the decoded result so it can be
// persisted verbatim.
type Predictor interface {
	Predict(ctx context.Context, reading json.RawMessage) (*models.PredictionResult, json.RawMessage, error)
}

// HTTPPredictor calls the ML service over HTTP. Transport-level failures
// (connection refused, DNS, timeout) are reported as unavailable, anything
// the service answered with is a prediction error.
type HTTPPredictor struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

func NewHTTPPredictor(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPPredictor {
	return &HTTPPredictor{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type predictRequest struct {
	Data json.RawMessage `json:"data"`
}

type predictError struct {
	Error string `json:"error"`
}

func (p *HTTPPredictor) Predict(ctx context.Context, reading json.RawMessage) (*models.PredictionResult, json.RawMessage, error) {
	body, err := json.Marshal(predictRequest{Data: reading})
	if err != nil {
		return nil, nil, apperrors.Prediction("no se pudo serializar la petición", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return nil, nil, apperrors.Prediction("petición inválida", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Warn("Prediction service unreachable",
			zap.Error(err),
			zap.String("url", p.baseURL))
		return nil, nil, apperrors.Unavailable("servicio de predicción no disponible", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, apperrors.Prediction("no se pudo leer la respuesta del servicio de predicción", err)
	}

	if resp.StatusCode != http.StatusOK {
		var svcErr predictError
		if json.Unmarshal(raw, &svcErr) == nil && svcErr.Error != "" {
			return nil, nil, apperrors.Prediction(svcErr.Error, fmt.Errorf("status %d", resp.StatusCode))
		}
		return nil, nil, apperrors.Prediction("error en el servicio de predicción", fmt.Errorf("status %d", resp.StatusCode))
	}

	var result models.PredictionResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, nil, apperrors.Prediction("respuesta del servicio de predicción inválida", err)
	}
	if result.Result == "" {
		return nil, nil, apperrors.Prediction("respuesta del servicio de predicción inválida", fmt.Errorf("missing result field"))
	}

	return &result, raw, nil
}

// Health probes the service's /health endpoint.
func (p *HTTPPredictor) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return apperrors.Unavailable("servicio de predicción no disponible", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apperrors.Prediction("servicio de predicción degradado", fmt.Errorf("status %d", resp.StatusCode))
	}
	return nil
}
