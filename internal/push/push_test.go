package push

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/wecube/server/internal/config"
	"github.com/wecube/server/internal/domain"
	"github.com/wecube/server/internal/repository/sqlite"
)

type capturedPush struct {
	header http.Header
	body   map[string]any
}

func newPushServer(t *testing.T, status int) (*httptest.Server, func() []capturedPush) {
	t.Helper()

	var (
		mu   sync.Mutex
		seen []capturedPush
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		seen = append(seen, capturedPush{header: r.Header.Clone(), body: body})
		mu.Unlock()
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"data":{"status":"ok"}}`))
	}))
	t.Cleanup(srv.Close)

	return srv, func() []capturedPush {
		mu.Lock()
		defer mu.Unlock()
		return append([]capturedPush(nil), seen...)
	}
}

func newUsers(t *testing.T) *sqlite.Store {
	t.Helper()

	store, _, err := sqlite.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	now := time.Now()
	for _, id := range []string{"sender", "recipient", "silent"} {
		require.NoError(t, store.Users().Create(ctx, &domain.User{
			ID: id, Email: id + "@example.com", Username: id, PasswordHash: "x",
			CreatedAt: now, UpdatedAt: now,
		}))
	}
	token := "ExponentPushToken[recipient]"
	require.NoError(t, store.Users().SetPushToken(ctx, "recipient", &token))
	return store
}

func testMessage(recipient string) *domain.Message {
	return &domain.Message{
		ID:             "m1",
		ConversationID: "recipient_sender",
		SenderID:       "sender",
		RecipientID:    recipient,
		Message:        "still selling the 4x4?",
	}
}

func TestDispatcherSendsExpoPayload(t *testing.T) {
	srv, seen := newPushServer(t, http.StatusOK)
	d := NewDispatcher(newUsers(t).Users(), NewExpoClient(srv.URL, time.Second))

	require.NoError(t, d.Handle(context.Background(), testMessage("recipient")))

	pushes := seen()
	require.Len(t, pushes, 1)
	require.Equal(t, "application/json", pushes[0].header.Get("Content-Type"))
	require.Equal(t, "application/json", pushes[0].header.Get("Accept"))
	require.Equal(t, map[string]any{
		"to":    "ExponentPushToken[recipient]",
		"sound": "default",
		"title": "New Message",
		"body":  "still selling the 4x4?",
		"data": map[string]any{
			"messageId": "m1",
			"senderId":  "sender",
		},
	}, pushes[0].body)
}

func TestDispatcherSkipsMissingToken(t *testing.T) {
	srv, seen := newPushServer(t, http.StatusOK)
	d := NewDispatcher(newUsers(t).Users(), NewExpoClient(srv.URL, time.Second))

	require.NoError(t, d.Handle(context.Background(), testMessage("silent")))
	require.NoError(t, d.Handle(context.Background(), testMessage("deleted")))
	require.Empty(t, seen())
}

func TestDispatcherReportsEndpointFailure(t *testing.T) {
	srv, seen := newPushServer(t, http.StatusInternalServerError)
	d := NewDispatcher(newUsers(t).Users(), NewExpoClient(srv.URL, time.Second))

	err := d.Handle(context.Background(), testMessage("recipient"))
	require.Error(t, err)
	// One attempt, no retry.
	require.Len(t, seen(), 1)
}

func TestDuplicateDeliveryOnlyDuplicatesPush(t *testing.T) {
	srv, seen := newPushServer(t, http.StatusOK)
	d := NewDispatcher(newUsers(t).Users(), NewExpoClient(srv.URL, time.Second))

	msg := testMessage("recipient")
	require.NoError(t, d.Handle(context.Background(), msg))
	require.NoError(t, d.Handle(context.Background(), msg))
	require.Len(t, seen(), 2)
}

type countingHandler struct {
	mu      sync.Mutex
	handled []string
	err     error
}

func (h *countingHandler) Handle(_ context.Context, msg *domain.Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, msg.ID)
	return h.err
}

func (h *countingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

func TestPipelineDeliversQueuedMessages(t *testing.T) {
	h := &countingHandler{err: errors.New("push service down")}
	p := NewPipeline(h, config.PushConfig{Workers: 2, QueueSize: 16, Timeout: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	for i := 0; i < 5; i++ {
		p.NotifyNewMessage(&domain.Message{ID: string(rune('a' + i))})
	}
	require.Eventually(t, func() bool { return h.count() == 5 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestPipelineDropsWhenFull(t *testing.T) {
	h := &countingHandler{}
	p := NewPipeline(h, config.PushConfig{Workers: 1, QueueSize: 2})

	// Not running: the queue fills and further notifications are dropped.
	for i := 0; i < 5; i++ {
		p.NotifyNewMessage(&domain.Message{ID: "m"})
	}
	require.Len(t, p.queue, 2)
}
