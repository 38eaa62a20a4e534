package realtime

import (
	"context"
	"sync"

	jww "github.com/spf13/jwalterweatherman"
)

// Topics a Broker understands. Each one names a value that can be refetched
// in full, so a signal carries no payload.
func ConversationTopic(conversationID string) string { return "conversation:" + conversationID }
func UnreadTopic(userID string) string               { return "unread:" + userID }
func InboxTopic(userID string) string                { return "inbox:" + userID }

// Relay forwards topics published here to other server instances.
type Relay interface {
	Forward(ctx context.Context, topics ...string) error
}

type listener struct {
	ch chan struct{}
}

// Broker fans change signals out to the subscriptions of this process.
// Signals to one listener coalesce: a listener that has not consumed its
// last signal does not queue another.
type Broker struct {
	mu        sync.RWMutex
	listeners map[string]map[*listener]struct{}
	relay     Relay
}

func NewBroker() *Broker {
	return &Broker{listeners: make(map[string]map[*listener]struct{})}
}

// SetRelay installs the cross-instance relay. Call before serving traffic.
func (b *Broker) SetRelay(r Relay) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.relay = r
}

// Publish signals local listeners of every topic and forwards the topics to
// the relay, if any. Relay failures are logged; local delivery already happened.
func (b *Broker) Publish(ctx context.Context, topics ...string) {
	for _, topic := range topics {
		b.Deliver(topic)
	}

	b.mu.RLock()
	relay := b.relay
	b.mu.RUnlock()
	if relay == nil || len(topics) == 0 {
		return
	}
	if err := relay.Forward(ctx, topics...); err != nil {
		jww.WARN.Printf("realtime: relay %v: %v", topics, err)
	}
}

// Deliver signals the local listeners of topic without relaying.
func (b *Broker) Deliver(topic string) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for l := range b.listeners[topic] {
		l.notify()
	}
}

// DeliverAll signals every local listener. Used after a relay reconnect,
// when signals from other instances may have been lost.
func (b *Broker) DeliverAll() {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, set := range b.listeners {
		for l := range set {
			l.notify()
		}
	}
}

// SubscriberCount returns the number of live listeners on topic.
func (b *Broker) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners[topic])
}

func (b *Broker) subscribe(topic string) *listener {
	l := &listener{ch: make(chan struct{}, 1)}

	b.mu.Lock()
	defer b.mu.Unlock()
	set, ok := b.listeners[topic]
	if !ok {
		set = make(map[*listener]struct{})
		b.listeners[topic] = set
	}
	set[l] = struct{}{}
	return l
}

func (b *Broker) unsubscribe(topic string, l *listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	set := b.listeners[topic]
	delete(set, l)
	if len(set) == 0 {
		delete(b.listeners, topic)
	}
}

func (l *listener) notify() {
	select {
	case l.ch <- struct{}{}:
	default:
	}
}
