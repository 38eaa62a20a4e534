package service

import (
	"context"
	"sort"
	"strings"

	jww "github.com/spf13/jwalterweatherman"
	"github.com/wecube/server/internal/domain"
	"github.com/wecube/server/internal/realtime"
	"github.com/wecube/server/internal/repository"
)

type ConversationService struct {
	convRepo    repository.ConversationRepository
	messageRepo repository.MessageRepository
	userRepo    repository.UserRepository
	blockRepo   repository.BlockRepository
	broker      *realtime.Broker
}

func NewConversationService(
	convRepo repository.ConversationRepository,
	messageRepo repository.MessageRepository,
	userRepo repository.UserRepository,
	blockRepo repository.BlockRepository,
	broker *realtime.Broker,
) *ConversationService {
	return &ConversationService{
		convRepo:    convRepo,
		messageRepo: messageRepo,
		userRepo:    userRepo,
		blockRepo:   blockRepo,
		broker:      broker,
	}
}

// EnsureConversation returns the conversation between two users, creating it
// on first contact. Either user may call it and both get the same record.
func (s *ConversationService) EnsureConversation(ctx context.Context, initiatorID, otherID string) (*domain.Conversation, error) {
	if err := validateUserID("user_id", initiatorID); err != nil {
		return nil, err
	}
	if err := validateUserID("user_id", otherID); err != nil {
		return nil, err
	}
	if initiatorID == otherID {
		return nil, invalidField("user_id", "You cannot start a conversation with yourself")
	}

	for _, id := range []string{initiatorID, otherID} {
		user, err := s.userRepo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, ErrUserNotFound
		}
	}

	key := domain.ConversationKey(initiatorID, otherID)
	participants := strings.SplitN(key, domain.ConversationKeySeparator, 2)
	conv := &domain.Conversation{
		ID:              key,
		Participants:    participants,
		PendingReaderID: otherID,
	}

	created, err := s.convRepo.CreateIfAbsent(ctx, conv)
	if err != nil {
		return nil, err
	}
	if created {
		jww.DEBUG.Printf("conversations: created %s", key)
		return conv, nil
	}

	existing, err := s.convRepo.GetByID(ctx, key)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		// Deleted between the insert attempt and the read.
		return nil, ErrConversationNotFound
	}
	return existing, nil
}

// GetConversation returns the conversation as seen by viewerID.
func (s *ConversationService) GetConversation(ctx context.Context, viewerID, conversationID string) (*domain.ConversationView, error) {
	conv, err := s.authorize(ctx, viewerID, conversationID)
	if err != nil {
		return nil, err
	}
	blocked, err := s.blockRepo.ListBlocked(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	if conv.LastMessage == nil {
		if err := s.fillSummary(ctx, conv); err != nil {
			return nil, err
		}
	}
	return s.view(ctx, viewerID, blocked, conv)
}

// ListConversations returns the viewer's conversations that contain at least
// one message, latest activity first.
func (s *ConversationService) ListConversations(ctx context.Context, viewerID string) ([]domain.ConversationView, error) {
	convs, err := s.convRepo.ListByParticipant(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	blocked, err := s.blockRepo.ListBlocked(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	views := make([]domain.ConversationView, 0, len(convs))
	for i := range convs {
		conv := &convs[i]
		if conv.LastMessage == nil {
			if err := s.fillSummary(ctx, conv); err != nil {
				return nil, err
			}
			if conv.LastMessage == nil {
				continue
			}
		}
		view, err := s.view(ctx, viewerID, blocked, conv)
		if err != nil {
			return nil, err
		}
		views = append(views, *view)
	}

	sort.SliceStable(views, func(i, j int) bool {
		return views[i].LastMessage.Timestamp.After(views[j].LastMessage.Timestamp)
	})
	return views, nil
}

// StreamConversations delivers the conversation list now and after every
// change to it.
func (s *ConversationService) StreamConversations(ctx context.Context, viewerID string) *realtime.Subscription[[]domain.ConversationView] {
	return realtime.Watch(ctx, s.broker, realtime.InboxTopic(viewerID), func(ctx context.Context) ([]domain.ConversationView, error) {
		return s.ListConversations(ctx, viewerID)
	})
}

func (s *ConversationService) authorize(ctx context.Context, viewerID, conversationID string) (*domain.Conversation, error) {
	return authorizeConversation(ctx, s.convRepo, viewerID, conversationID)
}

// fillSummary derives the summary from the message log when the stored one
// is missing.
func (s *ConversationService) fillSummary(ctx context.Context, conv *domain.Conversation) error {
	latest, err := s.messageRepo.Latest(ctx, conv.ID)
	if err != nil {
		return err
	}
	if latest != nil {
		conv.LastMessage = latest.Summary()
	}
	return nil
}

func (s *ConversationService) view(ctx context.Context, viewerID string, blocked []string, conv *domain.Conversation) (*domain.ConversationView, error) {
	otherID := conv.OtherParticipant(viewerID)
	view := &domain.ConversationView{Conversation: *conv}

	other, err := s.userRepo.GetByID(ctx, otherID)
	if err != nil {
		return nil, err
	}
	if other != nil {
		profile := other.Profile()
		view.OtherUser = &profile
	}

	for _, id := range blocked {
		if id == otherID {
			view.BlockedByViewer = true
			break
		}
	}
	view.BlockedEitherDirection = view.BlockedByViewer
	if !view.BlockedEitherDirection {
		view.BlockedEitherDirection, err = s.blockRepo.ExistsEitherDirection(ctx, viewerID, otherID)
		if err != nil {
			return nil, err
		}
	}

	view.HasUnread = conv.LastMessage != nil && !conv.LastMessage.IsRead && conv.LastMessage.SenderID != viewerID
	return view, nil
}

func authorizeConversation(ctx context.Context, repo repository.ConversationRepository, viewerID, conversationID string) (*domain.Conversation, error) {
	conv, err := repo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, ErrConversationNotFound
	}
	if !conv.HasParticipant(viewerID) {
		return nil, ErrNotParticipant
	}
	return conv, nil
}

// validateUserID rejects ids that would make the conversation key ambiguous.
func validateUserID(field, id string) error {
	if strings.TrimSpace(id) == "" {
		return invalidField(field, "User id is required")
	}
	if strings.Contains(id, domain.ConversationKeySeparator) {
		return invalidField(field, "User id must not contain "+domain.ConversationKeySeparator)
	}
	return nil
}
