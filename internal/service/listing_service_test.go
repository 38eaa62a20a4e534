package service

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/wecube/server/internal/domain"
)

func TestListingLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.mustUser(t, "seller")
	env.mustUser(t, "buyer")
	ctx := context.Background()

	listing, err := env.listings.CreateListing(ctx, "seller", "worlds2025", CreateListingInput{
		Name: "MoYu RS3M", PuzzleType: "3x3", Price: 12.5, Usage: "used",
	})
	require.NoError(t, err)

	listings, err := env.listings.ListByCompetition(ctx, "worlds2025")
	require.NoError(t, err)
	require.Len(t, listings, 1)

	got, err := env.listings.GetListing(ctx, listing.ID)
	require.NoError(t, err)
	require.Equal(t, "seller", got.Seller.ID)

	conv, err := env.listings.ContactSeller(ctx, "buyer", listing.ID)
	require.NoError(t, err)
	require.Equal(t, domain.ConversationKey("buyer", "seller"), conv.ID)

	_, err = env.listings.ContactSeller(ctx, "seller", listing.ID)
	require.True(t, errors.Is(err, domain.ErrValidation))

	report, err := env.listings.ReportListing(ctx, "buyer", listing.ID, "counterfeit")
	require.NoError(t, err)
	require.Equal(t, domain.ReportTypeListing, report.Type)

	_, err = env.listings.ReportListing(ctx, "buyer", listing.ID, " ")
	require.True(t, errors.Is(err, domain.ErrValidation))

	require.True(t, errors.Is(env.listings.DeleteListing(ctx, "buyer", listing.ID), domain.ErrForbidden))
	require.NoError(t, env.listings.DeleteListing(ctx, "seller", listing.ID))

	_, err = env.listings.GetListing(ctx, listing.ID)
	require.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestCreateListingValidation(t *testing.T) {
	env := newTestEnv(t)
	env.mustUser(t, "seller")

	_, err := env.listings.CreateListing(context.Background(), "seller", "c1", CreateListingInput{
		Name: "Cube", PuzzleType: "3x3", Price: 0, Usage: "new",
	})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Contains(t, verr.Fields, "price")
}
