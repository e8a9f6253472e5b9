// Package auth verifies credentials and turns them into an opaque user
// identity for the rest of the system.
package auth

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmendezr/plantchat/internal/apperrors"
	"github.com/dmendezr/plantchat/internal/models"
	"github.com/dmendezr/plantchat/internal/storage"
)

const bcryptCost = 10

type Service struct {
	store  storage.UserStorage
	tokens *TokenManager
	logger *zap.Logger
}

func NewService(store storage.UserStorage, tokens *TokenManager, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		tokens: tokens,
		logger: logger,
	}
}

// Register creates an account and returns it with a fresh token.
func (s *Service) Register(ctx context.Context, username, email, password string) (*models.User, string, error) {
	if username == "" || email == "" || password == "" {
		return nil, "", apperrors.Validation("todos los campos son requeridos")
	}

	exists, err := s.store.UserExists(ctx, username, email)
	if err != nil {
		s.logger.Error("Failed to check existing user", zap.Error(err), zap.String("email", email))
		return nil, "", apperrors.Storage("no se pudo verificar el usuario", err)
	}
	if exists {
		return nil, "", apperrors.Validation("usuario o email ya existe")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, "", apperrors.Wrap(apperrors.KindUnknown, "error interno del servidor", err)
	}

	user, err := s.store.CreateUser(ctx, username, email, string(hash))
	if err != nil {
		s.logger.Error("Failed to create user", zap.Error(err), zap.String("email", email))
		return nil, "", apperrors.Storage("no se pudo crear el usuario", err)
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		s.logger.Error("Failed to issue token", zap.Error(err), zap.Int64("user_id", user.ID))
		return nil, "", apperrors.Wrap(apperrors.KindUnknown, "error interno del servidor", err)
	}

	return user, token, nil
}

// Login verifies credentials and returns the user with a fresh token.
// Unknown email and wrong password produce the same message.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	if email == "" || password == "" {
		return nil, "", apperrors.Validation("email y contraseña son requeridos")
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, "", apperrors.New(apperrors.KindUnauthenticated, "credenciales inválidas")
	}
	if err != nil {
		s.logger.Error("Failed to look up user", zap.Error(err), zap.String("email", email))
		return nil, "", apperrors.Storage("no se pudo verificar el usuario", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", apperrors.New(apperrors.KindUnauthenticated, "credenciales inválidas")
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		s.logger.Error("Failed to issue token", zap.Error(err), zap.Int64("user_id", user.ID))
		return nil, "", apperrors.Wrap(apperrors.KindUnknown, "error interno del servidor", err)
	}

	return user, token, nil
}
