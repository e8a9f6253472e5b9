package prediction

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dmendezr/plantchat/internal/apperrors"
)

func TestHTTPPredictorSuccess(t *testing.T) {
	var gotBody predictRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/predict", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"result":"Fallo Detectado","confidence":0.83,"recommendations":["Inspeccionar rodamientos y alineación"]}`))
	}))
	defer ts.Close()

	p := NewHTTPPredictor(ts.URL, 2*time.Second, zap.NewNop())
	reading := json.RawMessage(`{"temperature":90}`)

	result, raw, err := p.Predict(context.Background(), reading)
	require.NoError(t, err)
	assert.JSONEq(t, string(reading), string(gotBody.Data))
	assert.Equal(t, "Fallo Detectado", result.Result)
	assert.Equal(t, 0.83, result.Confidence)
	assert.Equal(t, []string{"Inspeccionar rodamientos y alineación"}, result.Recommendations)
	assert.Contains(t, string(raw), "Fallo Detectado")
}

func TestHTTPPredictorUnreachable(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := ts.URL
	ts.Close() // guaranteed connection refused

	p := NewHTTPPredictor(url, time.Second, zap.NewNop())

	_, _, err := p.Predict(context.Background(), json.RawMessage(`{}`))
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindUnavailable))
}

func TestHTTPPredictorServiceError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"Campos faltantes: humidity"}`))
	}))
	defer ts.Close()

	p := NewHTTPPredictor(ts.URL, time.Second, zap.NewNop())

	_, _, err := p.Predict(context.Background(), json.RawMessage(`{}`))
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindPrediction))
	assert.Contains(t, err.Error(), "Campos faltantes: humidity")
}

func TestHTTPPredictorMalformedResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "<html>oops</html>"},
		{"missing result", `{"confidence":0.5}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer ts.Close()

			p := NewHTTPPredictor(ts.URL, time.Second, zap.NewNop())
			_, _, err := p.Predict(context.Background(), json.RawMessage(`{}`))
			require.Error(t, err)
			assert.True(t, apperrors.IsKind(err, apperrors.KindPrediction))
		})
	}
}

func TestHTTPPredictorHealth(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		w.Write([]byte(`{"status":"healthy"}`))
	}))
	defer ts.Close()

	p := NewHTTPPredictor(ts.URL, time.Second, zap.NewNop())
	assert.NoError(t, p.Health(context.Background()))

	ts.Close()
	err := p.Health(context.Background())
	assert.True(t, apperrors.IsKind(err, apperrors.KindUnavailable))
}
