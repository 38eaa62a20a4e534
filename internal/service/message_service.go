package service

import (
	"context"
	"strings"

	jww "github.com/spf13/jwalterweatherman"
	"github.com/wecube/server/internal/domain"
	"github.com/wecube/server/internal/realtime"
	"github.com/wecube/server/internal/repository"
	"github.com/wecube/server/pkg/validator"
)

// Notifier is told about every stored message, after commit.
type Notifier interface {
	NotifyNewMessage(msg *domain.Message)
}

type MessageService struct {
	convRepo    repository.ConversationRepository
	messageRepo repository.MessageRepository
	blockRepo   repository.BlockRepository
	broker      *realtime.Broker
	notifier    Notifier
}

func NewMessageService(
	convRepo repository.ConversationRepository,
	messageRepo repository.MessageRepository,
	blockRepo repository.BlockRepository,
	broker *realtime.Broker,
) *MessageService {
	return &MessageService{
		convRepo:    convRepo,
		messageRepo: messageRepo,
		blockRepo:   blockRepo,
		broker:      broker,
	}
}

// SetNotifier sets the push notifier (optional dependency).
func (s *MessageService) SetNotifier(n Notifier) {
	s.notifier = n
}

// AppendMessage stores a message from senderID to recipientID. An empty
// recipientID means the other participant. Nothing is written when either
// user has blocked the other.
func (s *MessageService) AppendMessage(ctx context.Context, conversationID, senderID, recipientID, body string) (*domain.Message, error) {
	body = strings.TrimSpace(body)
	if err := invalid(validator.ValidateMessage(body)); err != nil {
		return nil, err
	}

	conv, err := authorizeConversation(ctx, s.convRepo, senderID, conversationID)
	if err != nil {
		return nil, err
	}

	other := conv.OtherParticipant(senderID)
	if recipientID == "" {
		recipientID = other
	}
	if recipientID != other {
		return nil, invalidField("recipient_id", "Recipient must be the other participant")
	}

	blocked, err := s.blockRepo.ExistsEitherDirection(ctx, senderID, recipientID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, ErrBlocked
	}

	msg := &domain.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		RecipientID:    recipientID,
		Message:        body,
	}
	if err := s.messageRepo.Append(ctx, msg); err != nil {
		return nil, err
	}

	s.publish(ctx,
		realtime.ConversationTopic(conversationID),
		realtime.UnreadTopic(recipientID),
		realtime.InboxTopic(senderID),
		realtime.InboxTopic(recipientID),
	)
	if s.notifier != nil {
		s.notifier.NotifyNewMessage(msg)
	}
	return msg, nil
}

// ListMessages returns the conversation's messages, oldest first.
func (s *MessageService) ListMessages(ctx context.Context, viewerID, conversationID string) ([]domain.Message, error) {
	if _, err := authorizeConversation(ctx, s.convRepo, viewerID, conversationID); err != nil {
		return nil, err
	}
	return s.messageRepo.ListByConversation(ctx, conversationID)
}

// StreamMessages delivers the full ordered message list now and after every
// change. The caller must Close the subscription.
func (s *MessageService) StreamMessages(ctx context.Context, viewerID, conversationID string) (*realtime.Subscription[[]domain.Message], error) {
	if _, err := authorizeConversation(ctx, s.convRepo, viewerID, conversationID); err != nil {
		return nil, err
	}
	return realtime.Watch(ctx, s.broker, realtime.ConversationTopic(conversationID), func(ctx context.Context) ([]domain.Message, error) {
		return s.messageRepo.ListByConversation(ctx, conversationID)
	}), nil
}

// MarkConversationRead marks the viewer's unread messages in the conversation
// as read and returns how many changed. Calling it again is a no-op.
func (s *MessageService) MarkConversationRead(ctx context.Context, conversationID, viewerID string) (int, error) {
	conv, err := authorizeConversation(ctx, s.convRepo, viewerID, conversationID)
	if err != nil {
		return 0, err
	}

	n, err := s.messageRepo.MarkRead(ctx, conversationID, viewerID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		jww.DEBUG.Printf("messages: %s read %d in %s", viewerID, n, conversationID)
		s.publish(ctx,
			realtime.ConversationTopic(conversationID),
			realtime.UnreadTopic(viewerID),
			realtime.InboxTopic(viewerID),
			realtime.InboxTopic(conv.OtherParticipant(viewerID)),
		)
	}
	return n, nil
}

// UnreadCount is the number of unread messages addressed to userID.
func (s *MessageService) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.messageRepo.CountUnread(ctx, userID)
}

func (s *MessageService) StreamUnreadCount(ctx context.Context, userID string) *realtime.Subscription[int] {
	return realtime.Watch(ctx, s.broker, realtime.UnreadTopic(userID), func(ctx context.Context) (int, error) {
		return s.messageRepo.CountUnread(ctx, userID)
	})
}

func (s *MessageService) publish(ctx context.Context, topics ...string) {
	if s.broker != nil {
		s.broker.Publish(ctx, topics...)
	}
}
