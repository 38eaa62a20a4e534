package ws

import (
	"encoding/json"
	"time"

	"github.com/wecube/server/internal/domain"
)

// Event types - Client → Server
const (
	EventTypeConversationSubscribe   = "conversation.subscribe"
	EventTypeConversationUnsubscribe = "conversation.unsubscribe"
	EventTypeUnreadSubscribe         = "unread.subscribe"
	EventTypeUnreadUnsubscribe       = "unread.unsubscribe"
	EventTypeInboxSubscribe          = "inbox.subscribe"
	EventTypeInboxUnsubscribe        = "inbox.unsubscribe"
	EventTypePing                    = "ping"
)

// Event types - Server → Client
const (
	EventTypeMessagesSnapshot = "messages.snapshot"
	EventTypeUnreadCount      = "unread.count"
	EventTypeInboxSnapshot    = "inbox.snapshot"
	EventTypePong             = "pong"
	EventTypeError            = "error"
)

// Event is the base envelope for all WebSocket messages.
type Event struct {
	Type           string          `json:"type"`
	ConversationID string          `json:"conversation_id,omitempty"`
	Payload        json.RawMessage `json:"payload,omitempty"`
	Timestamp      int64           `json:"ts,omitempty"`
}

// --- Client → Server payloads ---

type ConversationPayload struct {
	ConversationID string `json:"conversation_id"`
	// MarkRead marks the conversation read once when the subscription opens,
	// the way opening the chat screen does.
	MarkRead bool `json:"mark_read,omitempty"`
}

// --- Server → Client payloads ---

type MessagesPayload struct {
	Messages []domain.Message `json:"messages"`
}

type UnreadCountPayload struct {
	Count int `json:"count"`
}

type InboxPayload struct {
	Conversations []domain.ConversationView `json:"conversations"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewEvent creates a server→client event with the current timestamp.
func NewEvent(eventType, conversationID string, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		Type:           eventType,
		ConversationID: conversationID,
		Payload:        data,
		Timestamp:      time.Now().Unix(),
	}, nil
}
