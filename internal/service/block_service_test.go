package service

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/wecube/server/internal/domain"
)

func TestBlockStatusIsDirectional(t *testing.T) {
	env := newTestEnv(t)
	env.mustUser(t, "u1")
	env.mustUser(t, "u2")
	ctx := context.Background()

	require.NoError(t, env.blocks.Block(ctx, "u1", "u2"))
	require.NoError(t, env.blocks.Block(ctx, "u1", "u2"))

	mine, err := env.blocks.Status(ctx, "u1", "u2")
	require.NoError(t, err)
	require.Equal(t, &BlockStatus{BlockedByMe: true, BlockedEitherDirection: true}, mine)

	theirs, err := env.blocks.Status(ctx, "u2", "u1")
	require.NoError(t, err)
	require.Equal(t, &BlockStatus{BlockedByMe: false, BlockedEitherDirection: true}, theirs)

	// Unblocking from the other side does not lift u1's block.
	require.NoError(t, env.blocks.Unblock(ctx, "u2", "u1"))
	blocked, err := env.blocks.IsBlockedEitherDirection(ctx, "u1", "u2")
	require.NoError(t, err)
	require.True(t, blocked)

	require.NoError(t, env.blocks.Unblock(ctx, "u1", "u2"))
	blocked, err = env.blocks.IsBlockedEitherDirection(ctx, "u2", "u1")
	require.NoError(t, err)
	require.False(t, blocked)
}

func TestBlockRejectsSelfAndUnknownUsers(t *testing.T) {
	env := newTestEnv(t)
	env.mustUser(t, "u1")
	ctx := context.Background()

	require.True(t, errors.Is(env.blocks.Block(ctx, "u1", "u1"), domain.ErrValidation))
	require.True(t, errors.Is(env.blocks.Block(ctx, "u1", "ghost"), domain.ErrNotFound))
}
