package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
	"github.com/wecube/server/internal/domain"
	"github.com/wecube/server/internal/realtime"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	writeWait      = 10 * time.Second
	pingInterval   = 30 * time.Second
	maxMessageSize = 4096
	sendBufSize    = 256
)

const (
	unreadKey = "unread"
	inboxKey  = "inbox"
)

type closer interface {
	Close()
}

// Client represents a single WebSocket connection.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID string

	ctx    context.Context
	cancel context.CancelFunc

	// subs holds the live subscriptions of this socket, keyed by
	// "conversation:<id>", "unread" or "inbox".
	subs map[string]closer
	mu   sync.Mutex

	send chan []byte
}

func NewClient(ctx context.Context, hub *Hub, conn *websocket.Conn, userID string) *Client {
	ctx, cancel := context.WithCancel(ctx)
	conn.SetReadLimit(maxMessageSize)
	return &Client{
		hub:    hub,
		conn:   conn,
		userID: userID,
		ctx:    ctx,
		cancel: cancel,
		subs:   make(map[string]closer),
		send:   make(chan []byte, sendBufSize),
	}
}

// SubscriptionCount returns the number of live subscriptions on this socket.
func (c *Client) SubscriptionCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

// ReadPump reads messages from the WebSocket and routes them. It returns when
// the connection closes; every subscription of the socket is closed first.
func (c *Client) ReadPump() {
	defer func() {
		c.closeAll()
		c.hub.leave(c)
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		var event Event
		err := wsjson.Read(c.ctx, c.conn, &event)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || c.ctx.Err() != nil {
				jww.INFO.Printf("ws: client %s disconnected", c.userID)
			} else {
				jww.WARN.Printf("ws: read error from %s: %v", c.userID, err)
			}
			return
		}

		c.handleEvent(&event)
	}
}

// WritePump writes messages from the send channel to the WebSocket.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case message := <-c.send:
			ctx, cancel := context.WithTimeout(c.ctx, writeWait)
			err := c.conn.Write(ctx, websocket.MessageText, message)
			cancel()
			if err != nil {
				jww.WARN.Printf("ws: write error to %s: %v", c.userID, err)
				c.cancel()
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(c.ctx, writeWait)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				jww.WARN.Printf("ws: ping error to %s: %v", c.userID, err)
				c.cancel()
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// handleEvent routes an incoming client event.
func (c *Client) handleEvent(event *Event) {
	switch event.Type {
	case EventTypeConversationSubscribe:
		p, ok := c.conversationPayload(event)
		if !ok {
			return
		}
		c.subscribeConversation(p)

	case EventTypeConversationUnsubscribe:
		p, ok := c.conversationPayload(event)
		if !ok {
			return
		}
		c.unsubscribe(realtime.ConversationTopic(p.ConversationID))

	case EventTypeUnreadSubscribe:
		sub := c.hub.messages.StreamUnreadCount(c.ctx, c.userID)
		c.track(unreadKey, sub)
		go forward(sub, func(n int) {
			c.emit(EventTypeUnreadCount, "", UnreadCountPayload{Count: n})
		})

	case EventTypeUnreadUnsubscribe:
		c.unsubscribe(unreadKey)

	case EventTypeInboxSubscribe:
		sub := c.hub.conversations.StreamConversations(c.ctx, c.userID)
		c.track(inboxKey, sub)
		go forward(sub, func(views []domain.ConversationView) {
			c.emit(EventTypeInboxSnapshot, "", InboxPayload{Conversations: views})
		})

	case EventTypeInboxUnsubscribe:
		c.unsubscribe(inboxKey)

	case EventTypePing:
		c.emit(EventTypePong, "", struct{}{})

	default:
		c.sendError("UNKNOWN_EVENT", "unknown event type: "+event.Type)
	}
}

func (c *Client) subscribeConversation(p ConversationPayload) {
	sub, err := c.hub.messages.StreamMessages(c.ctx, c.userID, p.ConversationID)
	if err != nil {
		code, message := errorCode(err)
		if code == "INTERNAL" {
			jww.ERROR.Printf("ws: subscribe %s to %s: %v", c.userID, p.ConversationID, err)
		}
		c.sendError(code, message)
		return
	}
	c.track(realtime.ConversationTopic(p.ConversationID), sub)
	jww.DEBUG.Printf("ws: %s subscribed to conversation %s", c.userID, p.ConversationID)

	// Read state is settled once, on the first snapshot. Messages that arrive
	// while the subscription is open stay unread.
	marked := !p.MarkRead
	go forward(sub, func(messages []domain.Message) {
		c.emit(EventTypeMessagesSnapshot, p.ConversationID, MessagesPayload{Messages: messages})
		if marked {
			return
		}
		marked = true
		if hasUnreadFor(messages, c.userID) {
			if _, err := c.hub.messages.MarkConversationRead(c.ctx, p.ConversationID, c.userID); err != nil && c.ctx.Err() == nil {
				jww.WARN.Printf("ws: mark %s read for %s: %v", p.ConversationID, c.userID, err)
			}
		}
	})
}

func (c *Client) conversationPayload(event *Event) (ConversationPayload, bool) {
	var p ConversationPayload
	if len(event.Payload) > 0 {
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			c.sendError("INVALID_PAYLOAD", "invalid "+event.Type+" payload")
			return p, false
		}
	}
	if p.ConversationID == "" {
		p.ConversationID = event.ConversationID
	}
	if p.ConversationID == "" {
		c.sendError("INVALID_PAYLOAD", "conversation_id required for "+event.Type)
		return p, false
	}
	return p, true
}

// track stores sub under key, closing the subscription it replaces.
func (c *Client) track(key string, sub closer) {
	c.mu.Lock()
	old := c.subs[key]
	c.subs[key] = sub
	c.mu.Unlock()

	if old != nil {
		old.Close()
	}
}

func (c *Client) unsubscribe(key string) {
	c.mu.Lock()
	sub := c.subs[key]
	delete(c.subs, key)
	c.mu.Unlock()

	if sub != nil {
		sub.Close()
	}
}

func (c *Client) closeAll() {
	c.cancel()

	c.mu.Lock()
	subs := c.subs
	c.subs = make(map[string]closer)
	c.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
}

func (c *Client) emit(eventType, conversationID string, payload any) {
	evt, err := NewEvent(eventType, conversationID, payload)
	if err != nil {
		jww.ERROR.Printf("ws: marshal %s: %v", eventType, err)
		return
	}
	data, err := json.Marshal(evt)
	if err != nil {
		jww.ERROR.Printf("ws: marshal %s: %v", eventType, err)
		return
	}

	select {
	case c.send <- data:
	case <-c.ctx.Done():
	default:
		// Client buffer full - disconnect
		jww.WARN.Printf("ws: client %s too slow, closing", c.userID)
		c.cancel()
	}
}

func (c *Client) sendError(code, message string) {
	c.emit(EventTypeError, "", ErrorPayload{Code: code, Message: message})
}

func forward[T any](sub *realtime.Subscription[T], deliver func(T)) {
	for v := range sub.Updates() {
		deliver(v)
	}
}

func hasUnreadFor(messages []domain.Message, userID string) bool {
	for _, m := range messages {
		if m.RecipientID == userID && !m.IsRead {
			return true
		}
	}
	return false
}

func errorCode(err error) (string, string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return "VALIDATION_ERROR", err.Error()
	case errors.Is(err, domain.ErrNotFound):
		return "NOT_FOUND", err.Error()
	case errors.Is(err, domain.ErrForbidden):
		return "FORBIDDEN", err.Error()
	case errors.Is(err, domain.ErrTransient):
		return "UNAVAILABLE", "Service temporarily unavailable, please retry"
	}
	return "INTERNAL", "Something went wrong"
}
