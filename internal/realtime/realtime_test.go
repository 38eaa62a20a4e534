package realtime

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type counterSource struct {
	mu    sync.Mutex
	value int
	fail  int
}

func (c *counterSource) set(v int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = v
}

func (c *counterSource) fetch(context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail > 0 {
		c.fail--
		return 0, errors.New("store unavailable")
	}
	return c.value, nil
}

func waitFor[T any](t *testing.T, sub *Subscription[T], want func(T) bool) T {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case v, ok := <-sub.Updates():
			require.True(t, ok, "subscription closed early")
			if want(v) {
				return v
			}
		case <-timeout:
			t.Fatal("timed out waiting for snapshot")
		}
	}
}

func TestWatchDeliversInitialSnapshotAndChanges(t *testing.T) {
	b := NewBroker()
	src := &counterSource{value: 1}

	sub := Watch(context.Background(), b, "t", src.fetch)
	defer sub.Close()

	waitFor(t, sub, func(v int) bool { return v == 1 })

	src.set(2)
	b.Publish(context.Background(), "t")
	waitFor(t, sub, func(v int) bool { return v == 2 })

	src.set(3)
	b.Publish(context.Background(), "other", "t")
	waitFor(t, sub, func(v int) bool { return v == 3 })
}

func TestCloseStopsDeliveryAndDetaches(t *testing.T) {
	b := NewBroker()
	src := &counterSource{value: 1}

	for i := 0; i < 20; i++ {
		sub := Watch(context.Background(), b, "t", src.fetch)
		waitFor(t, sub, func(v int) bool { return true })
		sub.Close()
		sub.Close()

		b.Publish(context.Background(), "t")
		_, ok := <-sub.Updates()
		require.False(t, ok)
	}
	require.Zero(t, b.SubscriberCount("t"))
}

func TestContextCancelEndsSubscription(t *testing.T) {
	b := NewBroker()
	src := &counterSource{value: 1}

	ctx, cancel := context.WithCancel(context.Background())
	sub := Watch(ctx, b, "t", src.fetch)
	waitFor(t, sub, func(v int) bool { return v == 1 })

	cancel()
	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("subscription did not stop")
	}
	require.Zero(t, b.SubscriberCount("t"))
}

func TestFetchErrorsAreRetried(t *testing.T) {
	old := retryInterval
	retryInterval = 10 * time.Millisecond
	defer func() { retryInterval = old }()

	b := NewBroker()
	src := &counterSource{value: 7, fail: 3}

	sub := Watch(context.Background(), b, "t", src.fetch)
	defer sub.Close()

	waitFor(t, sub, func(v int) bool { return v == 7 })
}

type recordingRelay struct {
	forwarded atomic.Int32
}

func (r *recordingRelay) Forward(_ context.Context, topics ...string) error {
	r.forwarded.Add(int32(len(topics)))
	return nil
}

func TestPublishForwardsToRelayButDeliverDoesNot(t *testing.T) {
	b := NewBroker()
	relay := &recordingRelay{}
	b.SetRelay(relay)

	b.Publish(context.Background(), "a", "b")
	b.Deliver("c")

	require.EqualValues(t, 2, relay.forwarded.Load())
}

func TestTopicNames(t *testing.T) {
	require.Equal(t, "conversation:u1_u2", ConversationTopic("u1_u2"))
	require.Equal(t, "unread:u1", UnreadTopic("u1"))
	require.Equal(t, "inbox:u1", InboxTopic("u1"))
}
