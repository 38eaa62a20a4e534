package domain

import (
	"sort"
	"strings"
	"time"
)

// ConversationKeySeparator joins the two sorted participant ids of a conversation key.
const ConversationKeySeparator = "_"

// ConversationKey returns the canonical conversation id for an unordered pair of users.
func ConversationKey(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return strings.Join(ids, ConversationKeySeparator)
}

type Conversation struct {
	ID           string          `json:"id"`
	Participants []string        `json:"participants"`
	CreatedAt    time.Time       `json:"created_at"`
	LastMessage  *MessageSummary `json:"last_message,omitempty"`
	// PendingReaderID is the participant whose unread state is pending, if any.
	PendingReaderID string `json:"pending_reader_id,omitempty"`
}

// MessageSummary is the denormalized copy of the latest message kept on the conversation.
type MessageSummary struct {
	MessageID string    `json:"message_id"`
	Message   string    `json:"message"`
	SenderID  string    `json:"sender_id"`
	Timestamp time.Time `json:"timestamp"`
	IsRead    bool      `json:"is_read"`
}

func (c *Conversation) HasParticipant(userID string) bool {
	for _, id := range c.Participants {
		if id == userID {
			return true
		}
	}
	return false
}

// OtherParticipant returns the participant that is not userID.
func (c *Conversation) OtherParticipant(userID string) string {
	for _, id := range c.Participants {
		if id != userID {
			return id
		}
	}
	return ""
}

// ConversationView is a conversation as seen by one of its participants.
type ConversationView struct {
	Conversation
	OtherUser *Profile `json:"other_user,omitempty"`
	HasUnread bool     `json:"has_unread"`
	// Block state between the viewer and the other participant.
	BlockedByViewer        bool `json:"blocked_by_viewer"`
	BlockedEitherDirection bool `json:"blocked_either_direction"`
}
