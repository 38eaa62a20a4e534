package repository

import (
	"context"

	"github.com/wecube/server/internal/domain"
)

// Lookups that find nothing return (nil, nil); implementations wrap
// connection-level failures with domain.Transient.

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	UpdateProfile(ctx context.Context, user *domain.User) error
	SetPushToken(ctx context.Context, id string, token *string) error
	Delete(ctx context.Context, id string) error
}

type BlockRepository interface {
	Add(ctx context.Context, blockerID, blockedID string) error
	Remove(ctx context.Context, blockerID, blockedID string) error
	ListBlocked(ctx context.Context, blockerID string) ([]string, error)
	ExistsEitherDirection(ctx context.Context, userA, userB string) (bool, error)
}

type ConversationRepository interface {
	// CreateIfAbsent inserts conv unless a conversation with the same id exists.
	// It reports whether this call created the record.
	CreateIfAbsent(ctx context.Context, conv *domain.Conversation) (bool, error)
	GetByID(ctx context.Context, id string) (*domain.Conversation, error)
	ListByParticipant(ctx context.Context, userID string) ([]domain.Conversation, error)
}

type MessageRepository interface {
	// Append stores msg and updates the parent conversation summary in one
	// transaction. It fills in msg.ID, msg.Timestamp and msg.Seq.
	Append(ctx context.Context, msg *domain.Message) error
	ListByConversation(ctx context.Context, conversationID string) ([]domain.Message, error)
	Latest(ctx context.Context, conversationID string) (*domain.Message, error)
	// MarkRead flips the unread messages addressed to recipientID that exist
	// when the call starts and returns how many changed.
	MarkRead(ctx context.Context, conversationID, recipientID string) (int, error)
	CountUnread(ctx context.Context, recipientID string) (int, error)
}

type ListingRepository interface {
	Create(ctx context.Context, listing *domain.Listing) error
	GetByID(ctx context.Context, id string) (*domain.Listing, error)
	ListByCompetition(ctx context.Context, competitionID string) ([]domain.Listing, error)
	Delete(ctx context.Context, id string) error
	CreateReport(ctx context.Context, report *domain.Report) error
}

// Store bundles the repositories of one backend.
type Store interface {
	Users() UserRepository
	Blocks() BlockRepository
	Conversations() ConversationRepository
	Messages() MessageRepository
	Listings() ListingRepository
	Close() error
}
