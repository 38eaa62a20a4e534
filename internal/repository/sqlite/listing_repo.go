package sqlite

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	"github.com/wecube/server/internal/domain"
)

const listingColumns = `id, competition_id, user_id, name, puzzle_type, price, usage, description, image_url, created_at`

type ListingRepo struct {
	db *sql.DB
}

func (r *ListingRepo) Create(ctx context.Context, l *domain.Listing) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO listings (`+listingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.CompetitionID, l.UserID, l.Name, l.PuzzleType,
		l.Price, l.Usage, l.Description, l.ImageURL, toMillis(l.CreatedAt),
	)
	return wrapErr(err, "insert listing")
}

func (r *ListingRepo) GetByID(ctx context.Context, id string) (*domain.Listing, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = ?`, id)
	l, err := scanListing(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr(err, "get listing")
	}
	return &l, nil
}

func (r *ListingRepo) ListByCompetition(ctx context.Context, competitionID string) ([]domain.Listing, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+listingColumns+`
		FROM listings
		WHERE competition_id = ?
		ORDER BY created_at DESC`, competitionID)
	if err != nil {
		return nil, wrapErr(err, "list listings")
	}
	defer rows.Close()

	var listings []domain.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, wrapErr(err, "scan listing")
		}
		listings = append(listings, l)
	}
	return listings, wrapErr(rows.Err(), "list listings")
}

func (r *ListingRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM listings WHERE id = ?`, id)
	return wrapErr(err, "delete listing")
}

func (r *ListingRepo) CreateReport(ctx context.Context, rep *domain.Report) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reports (id, listing_id, reported_by, reason, type, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rep.ID, rep.ListingID, rep.ReportedBy, rep.Reason, rep.Type, toMillis(rep.CreatedAt),
	)
	return wrapErr(err, "insert report")
}

func scanListing(row scanner) (domain.Listing, error) {
	var (
		l         domain.Listing
		createdAt int64
	)
	err := row.Scan(
		&l.ID, &l.CompetitionID, &l.UserID, &l.Name, &l.PuzzleType,
		&l.Price, &l.Usage, &l.Description, &l.ImageURL, &createdAt,
	)
	l.CreatedAt = fromMillis(createdAt)
	return l, err
}
