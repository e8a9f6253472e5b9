package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dmendezr/plantchat/internal/apperrors"
	"github.com/dmendezr/plantchat/internal/storage"
)

func newAuthService(t *testing.T) (*Service, *TokenManager) {
	t.Helper()
	tokens := NewTokenManager("test-secret", 24*time.Hour)
	return NewService(storage.NewMemoryStorage(), tokens, zap.NewNop()), tokens
}

func TestRegisterAndLogin(t *testing.T) {
	svc, tokens := newAuthService(t)
	ctx := context.Background()

	user, token, err := svc.Register(ctx, "ana", "ana@example.com", "s3creta")
	require.NoError(t, err)
	assert.Equal(t, "ana", user.Username)
	assert.NotEmpty(t, token)
	assert.NotEqual(t, "s3creta", user.PasswordHash)

	claims, err := tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "ana", claims.Username)

	loggedIn, loginToken, err := svc.Login(ctx, "ana@example.com", "s3creta")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)
	assert.NotEmpty(t, loginToken)
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	_, _, err := svc.Register(ctx, "", "a@example.com", "pw")
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	_, _, err = svc.Register(ctx, "ana", "ana@example.com", "pw")
	require.NoError(t, err)

	// duplicate email
	_, _, err = svc.Register(ctx, "ana2", "ana@example.com", "pw")
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	// duplicate username
	_, _, err = svc.Register(ctx, "ana", "otra@example.com", "pw")
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	_, _, err := svc.Register(ctx, "ana", "ana@example.com", "correcta")
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "ana@example.com", "incorrecta")
	assert.True(t, apperrors.IsKind(err, apperrors.KindUnauthenticated))

	_, _, err = svc.Login(ctx, "nadie@example.com", "correcta")
	assert.True(t, apperrors.IsKind(err, apperrors.KindUnauthenticated))

	_, _, err = svc.Login(ctx, "", "")
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestTokenExpiry(t *testing.T) {
	tokens := NewTokenManager("test-secret", time.Hour)
	base := time.Now()
	tokens.now = func() time.Time { return base }

	svc := NewService(storage.NewMemoryStorage(), tokens, zap.NewNop())
	_, token, err := svc.Register(context.Background(), "ana", "ana@example.com", "pw")
	require.NoError(t, err)

	_, err = tokens.Verify(token)
	require.NoError(t, err)

	tokens.now = func() time.Time { return base.Add(2 * time.Hour) }
	_, err = tokens.Verify(token)
	assert.True(t, apperrors.IsKind(err, apperrors.KindUnauthenticated))
}

func TestVerifyRejectsForgedToken(t *testing.T) {
	tokens := NewTokenManager("test-secret", time.Hour)
	other := NewTokenManager("other-secret", time.Hour)

	svc := NewService(storage.NewMemoryStorage(), other, zap.NewNop())
	_, forged, err := svc.Register(context.Background(), "eva", "eva@example.com", "pw")
	require.NoError(t, err)

	_, err = tokens.Verify(forged)
	assert.True(t, apperrors.IsKind(err, apperrors.KindUnauthenticated))
}
