package domain

import "time"

type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	RecipientID    string    `json:"recipient_id"`
	Message        string    `json:"message"`
	Timestamp      time.Time `json:"timestamp"`
	// Seq is the store's insert sequence; it breaks timestamp ties.
	Seq    int64 `json:"seq"`
	IsRead bool  `json:"is_read"`
}

// Summary converts the message into the conversation's denormalized summary.
func (m *Message) Summary() *MessageSummary {
	return &MessageSummary{
		MessageID: m.ID,
		Message:   m.Message,
		SenderID:  m.SenderID,
		Timestamp: m.Timestamp,
		IsRead:    m.IsRead,
	}
}

// Before reports whether m sorts before other in conversation order.
func (m *Message) Before(other *Message) bool {
	if m.Timestamp.Equal(other.Timestamp) {
		return m.Seq < other.Seq
	}
	return m.Timestamp.Before(other.Timestamp)
}
