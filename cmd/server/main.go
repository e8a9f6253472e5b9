package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/dmendezr/plantchat/internal/auth"
	"github.com/dmendezr/plantchat/internal/chat"
	"github.com/dmendezr/plantchat/internal/dataset"
	"github.com/dmendezr/plantchat/internal/metrics"
	"github.com/dmendezr/plantchat/internal/prediction"
	"github.com/dmendezr/plantchat/internal/server"
	"github.com/dmendezr/plantchat/internal/storage"
	"github.com/dmendezr/plantchat/pkg/config"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err), zap.String("path", "config.yaml"))
	}

	// Initialize storage
	var store storage.Storage
	switch {
	case cfg.Database.UseInMemory || cfg.Database.Driver == "memory":
		logger.Info("Using in-memory storage")
		store = storage.NewMemoryStorage()
	case cfg.Database.Driver == "postgres":
		logger.Info("Using PostgreSQL storage")
		store, err = storage.NewPostgresStorage(storage.DatabaseConfig{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
		}, logger)
		if err != nil {
			logger.Fatal("Failed to initialize storage", zap.Error(err))
		}
	default:
		logger.Info("Using SQLite storage", zap.String("path", cfg.Database.Path))
		store, err = storage.NewSQLiteStorage(cfg.Database.Path, logger)
		if err != nil {
			logger.Fatal("Failed to initialize storage", zap.Error(err))
		}
	}
	defer store.Close()

	// Load the industrial dataset
	data, err := dataset.Load(cfg.Dataset.Path, logger)
	if err != nil {
		logger.Fatal("Failed to load dataset", zap.Error(err))
	}

	// Initialize services
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	authService := auth.NewService(store, tokens, logger)
	chatService := chat.NewService(store, logger, cfg.Chat.TitleMaxRunes)
	predictor := prediction.NewHTTPPredictor(cfg.Predictor.BaseURL, cfg.Predictor.Timeout, logger)
	predictionService := prediction.NewService(predictor, store, logger)

	srv := server.New(server.Deps{
		Logger:                 logger,
		Chat:                   chatService,
		Predictions:            predictionService,
		Auth:                   authService,
		Tokens:                 tokens,
		Dataset:                data,
		Metrics:                metrics.New(),
		HistoryLimit:           cfg.Chat.HistoryLimit,
		PredictionHistoryLimit: cfg.Chat.PredictionHistoryLimit,
		RateLimitPerSec:        cfg.Server.RateLimitPerSec,
		RateLimitBurst:         cfg.Server.RateLimitBurst,
	})

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: srv.Handler(),
	}

	go func() {
		logger.Info("Server listening", zap.Int("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("Forced shutdown", zap.Error(err))
	}
}
