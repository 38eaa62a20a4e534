package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	jww "github.com/spf13/jwalterweatherman"
	"github.com/wecube/server/internal/domain"
	"github.com/wecube/server/internal/repository"
	"github.com/wecube/server/pkg/validator"
)

type ListingService struct {
	listingRepo   repository.ListingRepository
	userRepo      repository.UserRepository
	conversations *ConversationService
}

func NewListingService(
	listingRepo repository.ListingRepository,
	userRepo repository.UserRepository,
	conversations *ConversationService,
) *ListingService {
	return &ListingService{
		listingRepo:   listingRepo,
		userRepo:      userRepo,
		conversations: conversations,
	}
}

type CreateListingInput struct {
	Name        string  `json:"name"`
	PuzzleType  string  `json:"puzzle_type"`
	Price       float64 `json:"price"`
	Usage       string  `json:"usage"`
	Description string  `json:"description"`
	ImageURL    string  `json:"image_url"`
}

func (s *ListingService) CreateListing(ctx context.Context, sellerID, competitionID string, input CreateListingInput) (*domain.Listing, error) {
	if strings.TrimSpace(competitionID) == "" {
		return nil, invalidField("competition_id", "Competition id is required")
	}
	if err := invalid(validator.ValidateListing(
		input.Name, input.PuzzleType, input.Price, input.Usage, input.Description, input.ImageURL,
	)); err != nil {
		return nil, err
	}

	listing := &domain.Listing{
		ID:            uuid.NewString(),
		CompetitionID: competitionID,
		UserID:        sellerID,
		Name:          strings.TrimSpace(input.Name),
		PuzzleType:    strings.TrimSpace(input.PuzzleType),
		Price:         input.Price,
		Usage:         strings.TrimSpace(input.Usage),
		Description:   strings.TrimSpace(input.Description),
		ImageURL:      strings.TrimSpace(input.ImageURL),
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.listingRepo.Create(ctx, listing); err != nil {
		return nil, err
	}
	return listing, nil
}

// ListByCompetition returns a competition's listings, newest first.
func (s *ListingService) ListByCompetition(ctx context.Context, competitionID string) ([]domain.Listing, error) {
	listings, err := s.listingRepo.ListByCompetition(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	if listings == nil {
		listings = []domain.Listing{}
	}
	return listings, nil
}

// GetListing returns the listing with its seller's profile.
func (s *ListingService) GetListing(ctx context.Context, listingID string) (*domain.Listing, error) {
	listing, err := s.mustGet(ctx, listingID)
	if err != nil {
		return nil, err
	}
	seller, err := s.userRepo.GetByID(ctx, listing.UserID)
	if err != nil {
		return nil, err
	}
	if seller != nil {
		profile := seller.Profile()
		listing.Seller = &profile
	}
	return listing, nil
}

func (s *ListingService) DeleteListing(ctx context.Context, userID, listingID string) error {
	listing, err := s.mustGet(ctx, listingID)
	if err != nil {
		return err
	}
	if listing.UserID != userID {
		return ErrNotListingOwner
	}
	return s.listingRepo.Delete(ctx, listingID)
}

func (s *ListingService) ReportListing(ctx context.Context, reporterID, listingID, reason string) (*domain.Report, error) {
	if err := invalid(validator.ValidateReport(reason)); err != nil {
		return nil, err
	}
	if _, err := s.mustGet(ctx, listingID); err != nil {
		return nil, err
	}

	report := &domain.Report{
		ID:         uuid.NewString(),
		ListingID:  listingID,
		ReportedBy: reporterID,
		Reason:     strings.TrimSpace(reason),
		Type:       domain.ReportTypeListing,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.listingRepo.CreateReport(ctx, report); err != nil {
		return nil, err
	}
	jww.INFO.Printf("listings: %s reported listing %s", reporterID, listingID)
	return report, nil
}

// ContactSeller opens the buyer's conversation with the listing's seller.
func (s *ListingService) ContactSeller(ctx context.Context, buyerID, listingID string) (*domain.Conversation, error) {
	listing, err := s.mustGet(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.UserID == buyerID {
		return nil, invalidField("listing_id", "You cannot contact yourself about your own listing")
	}
	return s.conversations.EnsureConversation(ctx, buyerID, listing.UserID)
}

func (s *ListingService) mustGet(ctx context.Context, listingID string) (*domain.Listing, error) {
	listing, err := s.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing == nil {
		return nil, ErrListingNotFound
	}
	return listing, nil
}
