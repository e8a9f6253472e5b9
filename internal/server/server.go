// Package server exposes the chat, prediction, auth and dataset operations
// over HTTP.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/dmendezr/plantchat/internal/apperrors"
	"github.com/dmendezr/plantchat/internal/auth"
	"github.com/dmendezr/plantchat/internal/chat"
	"github.com/dmendezr/plantchat/internal/dataset"
	"github.com/dmendezr/plantchat/internal/metrics"
	"github.com/dmendezr/plantchat/internal/prediction"
)

type Deps struct {
	Logger      *zap.Logger
	Chat        *chat.Service
	Predictions *prediction.Service
	Auth        *auth.Service
	Tokens      *auth.TokenManager
	Dataset     *dataset.Dataset
	Metrics     *metrics.Metrics

	HistoryLimit           int
	PredictionHistoryLimit int
	RateLimitPerSec        float64
	RateLimitBurst         int
}

type Server struct {
	router  *gin.Engine
	logger  *zap.Logger
	deps    Deps
	limiter *rate.Limiter
}

func New(deps Deps) *Server {
	if deps.HistoryLimit <= 0 {
		deps.HistoryLimit = chat.DefaultHistoryLimit
	}
	if deps.PredictionHistoryLimit <= 0 {
		deps.PredictionHistoryLimit = prediction.DefaultHistoryLimit
	}

	s := &Server{
		logger: deps.Logger,
		deps:   deps,
	}
	if deps.RateLimitPerSec > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(deps.RateLimitPerSec), deps.RateLimitBurst)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.requestLog())
	if deps.Metrics != nil {
		router.Use(s.observe())
	}

	router.GET("/healthz", s.handleHealth)
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Metrics.Registry(), promhttp.HandlerOpts{})))
	}

	api := router.Group("/api")
	if s.limiter != nil {
		api.Use(s.rateLimit())
	}

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", s.handleRegister)
		authGroup.POST("/login", s.handleLogin)
	}

	chatGroup := api.Group("/chat", s.authenticate())
	{
		chatGroup.POST("/send", s.handleSend)
		chatGroup.GET("/history", s.handleChatHistory)
	}

	predGroup := api.Group("/predictions")
	{
		predGroup.POST("/failure", s.authenticate(), s.handlePredictFailure)
		predGroup.GET("/history", s.authenticate(), s.handlePredictionHistory)

		// dataset endpoints mirror the original dashboard routes; read-only
		predGroup.GET("/historical-data", s.handleHistoricalData)
		predGroup.GET("/efficiency-stats", s.handleEfficiencyStats)
		predGroup.GET("/machine/:machineId", s.handleMachineData)
		predGroup.GET("/failures", s.handleFailureData)
		predGroup.GET("/machines", s.handleMachines)
		predGroup.GET("/operators", s.handleOperators)
	}

	s.router = router
	return s
}

// Handler returns the http handler, mainly for tests and the main wiring.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func statusFor(err error) int {
	switch apperrors.KindOf(err) {
	case apperrors.KindValidation:
		return http.StatusBadRequest
	case apperrors.KindUnauthenticated:
		return http.StatusUnauthorized
	case apperrors.KindAuthorization:
		return http.StatusForbidden
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindUnavailable:
		return http.StatusServiceUnavailable
	case apperrors.KindPrediction:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": apperrors.PublicMessage(err)})
}
