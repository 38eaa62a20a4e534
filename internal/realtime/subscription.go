package realtime

import (
	"context"
	"sync"
	"time"

	jww "github.com/spf13/jwalterweatherman"
)

// retryInterval is how long a subscription waits before refetching after a
// failed fetch.
var retryInterval = 2 * time.Second

// FetchFunc loads the current full value behind a topic.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Subscription delivers the current value of a topic, then the full value
// again after every change. Only the newest undelivered value is kept.
type Subscription[T any] struct {
	updates chan T
	cancel  context.CancelFunc
	done    chan struct{}
	once    sync.Once
}

// Watch subscribes to topic and starts delivering fetch results. The
// subscription ends when ctx is cancelled or Close is called; Updates is
// closed afterwards.
func Watch[T any](ctx context.Context, b *Broker, topic string, fetch FetchFunc[T]) *Subscription[T] {
	ctx, cancel := context.WithCancel(ctx)
	s := &Subscription[T]{
		updates: make(chan T, 1),
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	// Register before the first fetch so a change racing with it is not lost.
	l := b.subscribe(topic)
	go s.run(ctx, b, topic, l, fetch)
	return s
}

// Updates returns the channel of snapshots.
func (s *Subscription[T]) Updates() <-chan T {
	return s.updates
}

// Close stops the subscription and waits until it has detached from the
// broker. No value is delivered after Close returns. Safe to call repeatedly.
func (s *Subscription[T]) Close() {
	s.once.Do(s.cancel)
	<-s.done
}

// Done is closed once the subscription has stopped.
func (s *Subscription[T]) Done() <-chan struct{} {
	return s.done
}

func (s *Subscription[T]) run(ctx context.Context, b *Broker, topic string, l *listener, fetch FetchFunc[T]) {
	defer func() {
		b.unsubscribe(topic, l)
		// Drop a value the consumer never took, then close.
		select {
		case <-s.updates:
		default:
		}
		close(s.updates)
		close(s.done)
	}()

	stale := true
	for {
		if stale {
			value, err := fetch(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				jww.WARN.Printf("realtime: refresh %s: %v", topic, err)
				select {
				case <-ctx.Done():
					return
				case <-time.After(retryInterval):
					continue
				case <-l.ch:
					continue
				}
			}
			stale = false
			if !s.offer(ctx, value) {
				return
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-l.ch:
			stale = true
		}
	}
}

// offer replaces any undelivered value with value.
func (s *Subscription[T]) offer(ctx context.Context, value T) bool {
	if ctx.Err() != nil {
		return false
	}
	select {
	case <-s.updates:
	default:
	}
	select {
	case s.updates <- value:
		return true
	case <-ctx.Done():
		return false
	}
}
