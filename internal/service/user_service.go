package service

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
	"github.com/wecube/server/internal/domain"
	"github.com/wecube/server/internal/repository"
	"github.com/wecube/server/pkg/validator"
)

type UserService struct {
	userRepo  repository.UserRepository
	blockRepo repository.BlockRepository
}

func NewUserService(userRepo repository.UserRepository, blockRepo repository.BlockRepository) *UserService {
	return &UserService{userRepo: userRepo, blockRepo: blockRepo}
}

// GetProfile returns the public profile of a user.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	user, err := s.mustGet(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile := user.Profile()
	return &profile, nil
}

// GetMe returns the caller's own record including their block list.
func (s *UserService) GetMe(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.mustGet(ctx, userID)
	if err != nil {
		return nil, err
	}
	blocked, err := s.blockRepo.ListBlocked(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.BlockedUsers = blocked
	return user, nil
}

type UpdateProfileInput struct {
	Username *string `json:"username"`
	PhotoURL *string `json:"photo_url"`
}

// UpdateProfile sets username and/or photo and marks profile setup complete.
// An empty photo_url clears the photo.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*domain.User, error) {
	user, err := s.mustGet(ctx, userID)
	if err != nil {
		return nil, err
	}

	username := user.Username
	if input.Username != nil {
		username = validator.NormalizeUsername(*input.Username)
	}
	photo := ""
	if input.PhotoURL != nil {
		photo = strings.TrimSpace(*input.PhotoURL)
	} else if user.PhotoURL != nil {
		photo = *user.PhotoURL
	}
	if err := invalid(validator.ValidateProfile(username, photo)); err != nil {
		return nil, err
	}

	if username != user.Username {
		holder, err := s.userRepo.GetByUsername(ctx, username)
		if err != nil {
			return nil, err
		}
		if holder != nil && holder.ID != userID {
			return nil, ErrUsernameTaken
		}
	}

	user.Username = username
	user.PhotoURL = nil
	if photo != "" {
		user.PhotoURL = &photo
	}
	user.HasCompletedProfileSetup = true
	user.UpdatedAt = time.Now().UTC()

	if err := s.userRepo.UpdateProfile(ctx, user); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}
	return user, nil
}

// SetPushToken stores the device push token; an empty token clears it.
func (s *UserService) SetPushToken(ctx context.Context, userID, token string) error {
	if _, err := s.mustGet(ctx, userID); err != nil {
		return err
	}

	var ptr *string
	if token = strings.TrimSpace(token); token != "" {
		ptr = &token
	}
	return s.userRepo.SetPushToken(ctx, userID, ptr)
}

// DeleteAccount removes the user and their block list. Conversations and
// messages stay so the counterpart keeps their history.
func (s *UserService) DeleteAccount(ctx context.Context, userID string) error {
	if _, err := s.mustGet(ctx, userID); err != nil {
		return err
	}
	if err := s.userRepo.Delete(ctx, userID); err != nil {
		return err
	}
	jww.INFO.Printf("users: deleted account %s", userID)
	return nil
}

func (s *UserService) mustGet(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}
