package service

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/wecube/server/internal/domain"
)

func strPtr(s string) *string { return &s }

func TestUpdateProfileCompletesSetup(t *testing.T) {
	env := newTestEnv(t)
	env.mustUser(t, "u1")
	ctx := context.Background()

	user, err := env.users.UpdateProfile(ctx, "u1", UpdateProfileInput{
		Username: strPtr("  SpeedCuber "),
		PhotoURL: strPtr("https://cdn.example.com/u1.png"),
	})
	require.NoError(t, err)
	require.Equal(t, "speedcuber", user.Username)
	require.True(t, user.HasCompletedProfileSetup)

	profile, err := env.users.GetProfile(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "speedcuber", profile.Username)
	require.Equal(t, "https://cdn.example.com/u1.png", *profile.PhotoURL)

	// Keeping your own username is allowed; an empty photo clears it.
	user, err = env.users.UpdateProfile(ctx, "u1", UpdateProfileInput{
		Username: strPtr("speedcuber"),
		PhotoURL: strPtr(""),
	})
	require.NoError(t, err)
	require.Nil(t, user.PhotoURL)
}

func TestUpdateProfileRejectsTakenAndReservedNames(t *testing.T) {
	env := newTestEnv(t)
	env.mustUser(t, "u1")
	env.mustUser(t, "u2")
	ctx := context.Background()

	_, err := env.users.UpdateProfile(ctx, "u1", UpdateProfileInput{Username: strPtr("cuberu2")})
	require.True(t, errors.Is(err, domain.ErrConflict))

	_, err = env.users.UpdateProfile(ctx, "u1", UpdateProfileInput{Username: strPtr("Admin")})
	require.True(t, errors.Is(err, domain.ErrValidation))

	_, err = env.users.UpdateProfile(ctx, "u1", UpdateProfileInput{Username: strPtr("_edge")})
	require.True(t, errors.Is(err, domain.ErrValidation))

	_, err = env.users.UpdateProfile(ctx, "nobody", UpdateProfileInput{Username: strPtr("valid_name")})
	require.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestGetMeIncludesBlockList(t *testing.T) {
	env := newTestEnv(t)
	env.mustUser(t, "u1")
	env.mustUser(t, "u2")
	ctx := context.Background()

	require.NoError(t, env.blocks.Block(ctx, "u1", "u2"))

	me, err := env.users.GetMe(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, []string{"u2"}, me.BlockedUsers)
	require.True(t, me.HasBlocked("u2"))
}

func TestPushTokenAndDeleteAccount(t *testing.T) {
	env := newTestEnv(t)
	env.mustUser(t, "u1")
	env.mustUser(t, "u2")
	conv := env.mustConversation(t, "u1", "u2")
	env.mustSend(t, conv.ID, "u1", "hi")
	ctx := context.Background()

	require.NoError(t, env.users.SetPushToken(ctx, "u1", "ExponentPushToken[x]"))
	stored, err := env.store.Users().GetByID(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "ExponentPushToken[x]", *stored.PushToken)

	require.NoError(t, env.users.SetPushToken(ctx, "u1", ""))
	stored, err = env.store.Users().GetByID(ctx, "u1")
	require.NoError(t, err)
	require.Nil(t, stored.PushToken)

	require.NoError(t, env.users.DeleteAccount(ctx, "u1"))
	_, err = env.users.GetProfile(ctx, "u1")
	require.True(t, errors.Is(err, domain.ErrNotFound))

	// The counterpart keeps the history.
	messages, err := env.messages.ListMessages(ctx, "u2", conv.ID)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	views, err := env.conversations.ListConversations(ctx, "u2")
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.Nil(t, views[0].OtherUser)
}
