package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/wecube/server/internal/domain"
)

const listingColumns = `id, competition_id, user_id, name, puzzle_type, price, usage, description, image_url, created_at`

type ListingRepo struct {
	pool *pgxpool.Pool
}

func NewListingRepo(pool *pgxpool.Pool) *ListingRepo {
	return &ListingRepo{pool: pool}
}

func (r *ListingRepo) Create(ctx context.Context, l *domain.Listing) error {
	query := `
		INSERT INTO listings (` + listingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.pool.Exec(ctx, query,
		l.ID, l.CompetitionID, l.UserID, l.Name, l.PuzzleType,
		l.Price, l.Usage, l.Description, l.ImageURL, l.CreatedAt,
	)
	return wrapErr(err, "insert listing")
}

func (r *ListingRepo) GetByID(ctx context.Context, id string) (*domain.Listing, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = $1`, id)
	if err != nil {
		return nil, wrapErr(err, "get listing")
	}
	l, err := pgx.CollectOneRow(rows, scanListing)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr(err, "scan listing")
	}
	return &l, nil
}

func (r *ListingRepo) ListByCompetition(ctx context.Context, competitionID string) ([]domain.Listing, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+listingColumns+`
		FROM listings
		WHERE competition_id = $1
		ORDER BY created_at DESC`, competitionID)
	if err != nil {
		return nil, wrapErr(err, "list listings")
	}
	listings, err := pgx.CollectRows(rows, scanListing)
	return listings, wrapErr(err, "scan listings")
}

func (r *ListingRepo) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM listings WHERE id = $1`, id)
	return wrapErr(err, "delete listing")
}

func (r *ListingRepo) CreateReport(ctx context.Context, rep *domain.Report) error {
	query := `
		INSERT INTO reports (id, listing_id, reported_by, reason, type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.pool.Exec(ctx, query,
		rep.ID, rep.ListingID, rep.ReportedBy, rep.Reason, rep.Type, rep.CreatedAt,
	)
	return wrapErr(err, "insert report")
}

func scanListing(row pgx.CollectableRow) (domain.Listing, error) {
	var l domain.Listing
	err := row.Scan(
		&l.ID, &l.CompetitionID, &l.UserID, &l.Name, &l.PuzzleType,
		&l.Price, &l.Usage, &l.Description, &l.ImageURL, &l.CreatedAt,
	)
	return l, err
}
