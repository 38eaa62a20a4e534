package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wecube/server/internal/domain"
	"github.com/wecube/server/internal/realtime"
	"github.com/wecube/server/internal/repository/sqlite"
)

type recordingNotifier struct {
	mu       sync.Mutex
	messages []*domain.Message
}

func (n *recordingNotifier) NotifyNewMessage(msg *domain.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}

type testEnv struct {
	store    *sqlite.Store
	broker   *realtime.Broker
	notifier *recordingNotifier

	auth          *AuthService
	users         *UserService
	blocks        *BlockService
	conversations *ConversationService
	messages      *MessageService
	listings      *ListingService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, _, err := sqlite.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})

	broker := realtime.NewBroker()
	env := &testEnv{
		store:    store,
		broker:   broker,
		notifier: &recordingNotifier{},
	}
	env.auth = NewAuthService(store.Users(), "test-secret", time.Hour)
	env.users = NewUserService(store.Users(), store.Blocks())
	env.blocks = NewBlockService(store.Blocks(), store.Users(), broker)
	env.conversations = NewConversationService(store.Conversations(), store.Messages(), store.Users(), store.Blocks(), broker)
	env.messages = NewMessageService(store.Conversations(), store.Messages(), store.Blocks(), broker)
	env.messages.SetNotifier(env.notifier)
	env.listings = NewListingService(store.Listings(), store.Users(), env.conversations)
	return env
}

func (e *testEnv) mustUser(t *testing.T, id string) *domain.User {
	t.Helper()

	now := time.Now().UTC()
	user := &domain.User{
		ID:           id,
		Email:        id + "@example.com",
		Username:     "cuber" + id,
		PasswordHash: "unused",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, e.store.Users().Create(context.Background(), user))
	return user
}

func (e *testEnv) mustConversation(t *testing.T, a, b string) *domain.Conversation {
	t.Helper()

	conv, err := e.conversations.EnsureConversation(context.Background(), a, b)
	require.NoError(t, err)
	return conv
}

func (e *testEnv) mustSend(t *testing.T, convID, from, body string) *domain.Message {
	t.Helper()

	msg, err := e.messages.AppendMessage(context.Background(), convID, from, "", body)
	require.NoError(t, err)
	return msg
}

// next waits for a snapshot that satisfies want.
func next[T any](t *testing.T, sub *realtime.Subscription[T], want func(T) bool) T {
	t.Helper()

	timeout := time.After(3 * time.Second)
	for {
		select {
		case v, ok := <-sub.Updates():
			require.True(t, ok, "subscription closed")
			if want(v) {
				return v
			}
		case <-timeout:
			t.Fatal("timed out waiting for snapshot")
		}
	}
}
