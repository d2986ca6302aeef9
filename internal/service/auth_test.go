package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/yaxxsin/task-management-prod-sub001/internal/errs"
)

func newAuth(t *testing.T) (*AuthServiceImpl, *fakeUserRepo, *fakeLimiter) {
	t.Helper()
	users := &fakeUserRepo{}
	lim := &fakeLimiter{allowed: true}
	return NewAuthService(users, []byte("test-sign-key"), time.Hour, lim), users, lim
}

func TestAuth_RegisterAndLogin(t *testing.T) {
	svc, _, _ := newAuth(t)
	ctx := context.Background()

	uid, err := svc.Register(ctx, "a@example.com", "pass123", "Anna")
	require.NoError(t, err)
	require.NotEmpty(t, uid)

	tokens, user, err := svc.LoginWithIP(ctx, "a@example.com", "pass123", "10.0.0.1")
	require.NoError(t, err)
	require.Equal(t, "Anna", user.DisplayName)
	require.True(t, tokens.ExpiresAt.After(time.Now()))

	claims := &Claims{}
	_, err = jwt.ParseWithClaims(tokens.AccessToken, claims, func(*jwt.Token) (any, error) {
		return []byte("test-sign-key"), nil
	})
	require.NoError(t, err)
	require.Equal(t, uid, claims.Subject)
	require.Equal(t, "a@example.com", claims.Email)
}

func TestAuth_RegisterDuplicateEmail(t *testing.T) {
	svc, _, _ := newAuth(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "a@example.com", "pass123", "")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "a@example.com", "other", "")
	require.ErrorIs(t, err, errs.ErrAlreadyExists)
}

func TestAuth_RegisterEmptyCredentials(t *testing.T) {
	svc, _, _ := newAuth(t)
	_, err := svc.Register(context.Background(), "", "pass", "")
	require.Error(t, err)
	_, err = svc.Register(context.Background(), "a@example.com", "", "")
	require.Error(t, err)
}

func TestAuth_LoginWrongPassword(t *testing.T) {
	svc, _, lim := newAuth(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "a@example.com", "pass123", "")
	require.NoError(t, err)

	_, _, err = svc.LoginWithIP(ctx, "a@example.com", "wrong", "10.0.0.1")
	require.ErrorIs(t, err, errs.ErrUnauthorized)
	require.Equal(t, 1, lim.failures)
}

func TestAuth_LoginUnknownUserSameError(t *testing.T) {
	svc, _, _ := newAuth(t)
	_, _, err := svc.LoginWithIP(context.Background(), "ghost@example.com", "pass", "10.0.0.1")
	require.ErrorIs(t, err, errs.ErrUnauthorized)
}

func TestAuth_LoginRateLimited(t *testing.T) {
	svc, _, lim := newAuth(t)
	lim.allowed = false
	_, _, err := svc.LoginWithIP(context.Background(), "a@example.com", "pass123", "10.0.0.1")
	require.ErrorIs(t, err, errs.ErrRateLimited)
}
