package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/wecube/server/internal/domain"
)

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp, err := env.auth.Register(ctx, RegisterInput{Email: "cuber@example.com", Password: "Secret123"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)
	require.True(t, strings.HasPrefix(resp.User.Username, "user"))
	require.False(t, resp.User.HasCompletedProfileSetup)
	require.NotEqual(t, "Secret123", resp.User.PasswordHash)

	userID, err := env.auth.VerifyToken(resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, resp.User.ID, userID)

	login, err := env.auth.Login(ctx, LoginInput{Email: "CUBER@example.com", Password: "Secret123"})
	require.NoError(t, err)
	require.Equal(t, resp.User.ID, login.User.ID)

	_, err = env.auth.Login(ctx, LoginInput{Email: "cuber@example.com", Password: "Wrong1234"})
	require.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestRegisterRejectsDuplicatesAndWeakPasswords(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.auth.Register(ctx, RegisterInput{Email: "cuber@example.com", Password: "Secret123"})
	require.NoError(t, err)

	_, err = env.auth.Register(ctx, RegisterInput{Email: "cuber@example.com", Password: "Secret123"})
	require.True(t, errors.Is(err, domain.ErrConflict))

	_, err = env.auth.Register(ctx, RegisterInput{Email: "other@example.com", Password: "weak"})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Contains(t, verr.Fields, "password")
}

func TestRegisterBurstGetsDistinctUsernames(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	seen := map[string]bool{}
	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		resp, err := env.auth.Register(ctx, RegisterInput{Email: email, Password: "Secret123"})
		require.NoError(t, err)
		require.False(t, seen[resp.User.Username])
		seen[resp.User.Username] = true
	}
}

func TestVerifyTokenRejectsForeignAndExpiredTokens(t *testing.T) {
	env := newTestEnv(t)

	other := NewAuthService(env.store.Users(), "another-secret", time.Hour)
	token, err := other.generateToken("u1")
	require.NoError(t, err)
	_, err = env.auth.VerifyToken(token)
	require.True(t, errors.Is(err, domain.ErrUnauthorized))

	expired := NewAuthService(env.store.Users(), "test-secret", -time.Minute)
	token, err = expired.generateToken("u1")
	require.NoError(t, err)
	_, err = env.auth.VerifyToken(token)
	require.True(t, errors.Is(err, domain.ErrUnauthorized))

	_, err = env.auth.VerifyToken("garbage")
	require.True(t, errors.Is(err, domain.ErrUnauthorized))
}
