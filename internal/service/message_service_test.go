package service

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/wecube/server/internal/domain"
	"github.com/wecube/server/internal/realtime"
)

func newChat(t *testing.T) (*testEnv, *domain.Conversation) {
	t.Helper()

	env := newTestEnv(t)
	env.mustUser(t, "u1")
	env.mustUser(t, "u2")
	return env, env.mustConversation(t, "u1", "u2")
}

func TestAppendMessageStoresAndNotifies(t *testing.T) {
	env, conv := newChat(t)
	ctx := context.Background()

	msg, err := env.messages.AppendMessage(ctx, conv.ID, "u1", "u2", "  is the GAN still available?  ")
	require.NoError(t, err)
	require.NotEmpty(t, msg.ID)
	require.Equal(t, "is the GAN still available?", msg.Message)
	require.False(t, msg.IsRead)
	require.Equal(t, 1, env.notifier.count())

	stored, err := env.store.Conversations().GetByID(ctx, conv.ID)
	require.NoError(t, err)
	require.Equal(t, msg.ID, stored.LastMessage.MessageID)
	require.Equal(t, "u1", stored.LastMessage.SenderID)
	require.Equal(t, "u2", stored.PendingReaderID)
}

func TestAppendMessageValidation(t *testing.T) {
	env, conv := newChat(t)
	env.mustUser(t, "u3")
	ctx := context.Background()

	_, err := env.messages.AppendMessage(ctx, conv.ID, "u1", "u2", "   ")
	require.True(t, errors.Is(err, domain.ErrValidation))

	_, err = env.messages.AppendMessage(ctx, conv.ID, "u1", "u2", strings.Repeat("x", 2001))
	require.True(t, errors.Is(err, domain.ErrValidation))

	_, err = env.messages.AppendMessage(ctx, "u1_u9", "u1", "u9", "hi")
	require.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = env.messages.AppendMessage(ctx, conv.ID, "u3", "u2", "hi")
	require.True(t, errors.Is(err, domain.ErrForbidden))

	_, err = env.messages.AppendMessage(ctx, conv.ID, "u1", "u3", "hi")
	require.True(t, errors.Is(err, domain.ErrValidation))

	messages, err := env.messages.ListMessages(ctx, "u1", conv.ID)
	require.NoError(t, err)
	require.Empty(t, messages)
	require.Zero(t, env.notifier.count())
}

func TestBlockedSendWritesNothing(t *testing.T) {
	for _, blocker := range []string{"u1", "u2"} {
		t.Run("blocked by "+blocker, func(t *testing.T) {
			env, conv := newChat(t)
			ctx := context.Background()
			env.mustSend(t, conv.ID, "u1", "before")

			other := "u2"
			if blocker == "u2" {
				other = "u1"
			}
			require.NoError(t, env.blocks.Block(ctx, blocker, other))

			_, err := env.messages.AppendMessage(ctx, conv.ID, "u1", "u2", "after")
			require.True(t, errors.Is(err, domain.ErrBlocked))

			messages, err := env.messages.ListMessages(ctx, "u1", conv.ID)
			require.NoError(t, err)
			require.Len(t, messages, 1)

			stored, err := env.store.Conversations().GetByID(ctx, conv.ID)
			require.NoError(t, err)
			require.Equal(t, "before", stored.LastMessage.Message)
			require.Equal(t, 1, env.notifier.count())

			require.NoError(t, env.blocks.Unblock(ctx, blocker, other))
			_, err = env.messages.AppendMessage(ctx, conv.ID, "u1", "u2", "after")
			require.NoError(t, err)
		})
	}
}

func TestMarkConversationRead(t *testing.T) {
	env, conv := newChat(t)
	ctx := context.Background()

	env.mustSend(t, conv.ID, "u1", "one")
	env.mustSend(t, conv.ID, "u1", "two")

	count, err := env.messages.UnreadCount(ctx, "u2")
	require.NoError(t, err)
	require.Equal(t, 2, count)

	// The sender opening the conversation changes nothing.
	n, err := env.messages.MarkConversationRead(ctx, conv.ID, "u1")
	require.NoError(t, err)
	require.Zero(t, n)

	n, err = env.messages.MarkConversationRead(ctx, conv.ID, "u2")
	require.NoError(t, err)
	require.Equal(t, 2, n)

	messages, err := env.messages.ListMessages(ctx, "u2", conv.ID)
	require.NoError(t, err)
	for _, m := range messages {
		require.True(t, m.IsRead)
	}

	view, err := env.conversations.GetConversation(ctx, "u2", conv.ID)
	require.NoError(t, err)
	require.True(t, view.LastMessage.IsRead)
	require.False(t, view.HasUnread)
	require.Empty(t, view.PendingReaderID)

	n, err = env.messages.MarkConversationRead(ctx, conv.ID, "u2")
	require.NoError(t, err)
	require.Zero(t, n)

	count, err = env.messages.UnreadCount(ctx, "u2")
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestMarkReadByOutsiderIsForbidden(t *testing.T) {
	env, conv := newChat(t)
	env.mustUser(t, "u3")

	_, err := env.messages.MarkConversationRead(context.Background(), conv.ID, "u3")
	require.True(t, errors.Is(err, domain.ErrForbidden))
}

func TestStreamMessagesDeliversOrderedSnapshots(t *testing.T) {
	env, conv := newChat(t)
	ctx := context.Background()
	env.mustSend(t, conv.ID, "u1", "a")

	sub, err := env.messages.StreamMessages(ctx, "u2", conv.ID)
	require.NoError(t, err)

	next(t, sub, func(v []domain.Message) bool { return len(v) == 1 })

	env.mustSend(t, conv.ID, "u2", "b")
	env.mustSend(t, conv.ID, "u1", "c")
	got := next(t, sub, func(v []domain.Message) bool { return len(v) == 3 })
	require.Equal(t, []string{"a", "b", "c"}, []string{got[0].Message, got[1].Message, got[2].Message})

	sub.Close()
	require.Zero(t, env.broker.SubscriberCount(realtime.ConversationTopic(conv.ID)))

	env.mustSend(t, conv.ID, "u1", "d")
	_, ok := <-sub.Updates()
	require.False(t, ok)
}

func TestStreamMessagesRepeatedOpenClose(t *testing.T) {
	env, conv := newChat(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		sub, err := env.messages.StreamMessages(ctx, "u1", conv.ID)
		require.NoError(t, err)
		next(t, sub, func(v []domain.Message) bool { return len(v) == i })
		env.mustSend(t, conv.ID, "u2", "ping")
		next(t, sub, func(v []domain.Message) bool { return len(v) == i+1 })
		sub.Close()
	}
	require.Zero(t, env.broker.SubscriberCount(realtime.ConversationTopic(conv.ID)))
}

func TestStreamMessagesRequiresParticipant(t *testing.T) {
	env, conv := newChat(t)
	env.mustUser(t, "u3")

	_, err := env.messages.StreamMessages(context.Background(), "u3", conv.ID)
	require.True(t, errors.Is(err, domain.ErrForbidden))
	require.Zero(t, env.broker.SubscriberCount(realtime.ConversationTopic(conv.ID)))
}

func TestStreamUnreadCount(t *testing.T) {
	env, conv := newChat(t)
	ctx := context.Background()

	sub := env.messages.StreamUnreadCount(ctx, "u2")
	defer sub.Close()
	next(t, sub, func(n int) bool { return n == 0 })

	env.mustSend(t, conv.ID, "u1", "one")
	env.mustSend(t, conv.ID, "u1", "two")
	next(t, sub, func(n int) bool { return n == 2 })

	_, err := env.messages.MarkConversationRead(ctx, conv.ID, "u2")
	require.NoError(t, err)
	next(t, sub, func(n int) bool { return n == 0 })
}
