package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BlockRepo struct {
	pool *pgxpool.Pool
}

func NewBlockRepo(pool *pgxpool.Pool) *BlockRepo {
	return &BlockRepo{pool: pool}
}

func (r *BlockRepo) Add(ctx context.Context, blockerID, blockedID string) error {
	query := `
		INSERT INTO user_blocks (blocker_id, blocked_id)
		VALUES ($1, $2)
		ON CONFLICT (blocker_id, blocked_id) DO NOTHING`
	_, err := r.pool.Exec(ctx, query, blockerID, blockedID)
	return wrapErr(err, "insert block")
}

func (r *BlockRepo) Remove(ctx context.Context, blockerID, blockedID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM user_blocks WHERE blocker_id = $1 AND blocked_id = $2`, blockerID, blockedID)
	return wrapErr(err, "delete block")
}

func (r *BlockRepo) ListBlocked(ctx context.Context, blockerID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT blocked_id FROM user_blocks
		WHERE blocker_id = $1
		ORDER BY created_at, blocked_id`, blockerID)
	if err != nil {
		return nil, wrapErr(err, "list blocked users")
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	return ids, wrapErr(err, "scan blocked users")
}

func (r *BlockRepo) ExistsEitherDirection(ctx context.Context, userA, userB string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM user_blocks
			WHERE (blocker_id = $1 AND blocked_id = $2)
			   OR (blocker_id = $2 AND blocked_id = $1)
		)`
	var exists bool
	err := r.pool.QueryRow(ctx, query, userA, userB).Scan(&exists)
	return exists, wrapErr(err, "check block")
}
