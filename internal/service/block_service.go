package service

import (
	"context"

	"github.com/wecube/server/internal/realtime"
	"github.com/wecube/server/internal/repository"
)

type BlockService struct {
	blockRepo repository.BlockRepository
	userRepo  repository.UserRepository
	broker    *realtime.Broker
}

func NewBlockService(blockRepo repository.BlockRepository, userRepo repository.UserRepository, broker *realtime.Broker) *BlockService {
	return &BlockService{blockRepo: blockRepo, userRepo: userRepo, broker: broker}
}

// BlockStatus is the block state between the caller and another user.
type BlockStatus struct {
	BlockedByMe            bool `json:"blocked_by_me"`
	BlockedEitherDirection bool `json:"blocked_either_direction"`
}

// Block adds other to self's block list. Blocking twice is a no-op.
func (s *BlockService) Block(ctx context.Context, selfID, otherID string) error {
	if selfID == otherID {
		return invalidField("user_id", "You cannot block yourself")
	}
	other, err := s.userRepo.GetByID(ctx, otherID)
	if err != nil {
		return err
	}
	if other == nil {
		return ErrUserNotFound
	}

	if err := s.blockRepo.Add(ctx, selfID, otherID); err != nil {
		return err
	}
	s.publish(ctx, selfID, otherID)
	return nil
}

// Unblock removes other from self's block list. Only self's list changes.
func (s *BlockService) Unblock(ctx context.Context, selfID, otherID string) error {
	if selfID == otherID {
		return invalidField("user_id", "You cannot unblock yourself")
	}
	if err := s.blockRepo.Remove(ctx, selfID, otherID); err != nil {
		return err
	}
	s.publish(ctx, selfID, otherID)
	return nil
}

func (s *BlockService) IsBlockedEitherDirection(ctx context.Context, a, b string) (bool, error) {
	return s.blockRepo.ExistsEitherDirection(ctx, a, b)
}

func (s *BlockService) Status(ctx context.Context, selfID, otherID string) (*BlockStatus, error) {
	blocked, err := s.blockRepo.ListBlocked(ctx, selfID)
	if err != nil {
		return nil, err
	}
	status := &BlockStatus{}
	for _, id := range blocked {
		if id == otherID {
			status.BlockedByMe = true
			break
		}
	}

	status.BlockedEitherDirection = status.BlockedByMe
	if !status.BlockedEitherDirection {
		status.BlockedEitherDirection, err = s.blockRepo.ExistsEitherDirection(ctx, selfID, otherID)
		if err != nil {
			return nil, err
		}
	}
	return status, nil
}

// Conversation views carry block state, so both inboxes refresh.
func (s *BlockService) publish(ctx context.Context, a, b string) {
	if s.broker == nil {
		return
	}
	s.broker.Publish(ctx, realtime.InboxTopic(a), realtime.InboxTopic(b))
}
