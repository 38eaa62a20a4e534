package sqlite

import (
	"context"
	"database/sql"
)

type BlockRepo struct {
	db *sql.DB
}

func (r *BlockRepo) Add(ctx context.Context, blockerID, blockedID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_blocks (blocker_id, blocked_id, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT (blocker_id, blocked_id) DO NOTHING`,
		blockerID, blockedID, nowMillis(),
	)
	return wrapErr(err, "insert block")
}

func (r *BlockRepo) Remove(ctx context.Context, blockerID, blockedID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM user_blocks WHERE blocker_id = ? AND blocked_id = ?`, blockerID, blockedID)
	return wrapErr(err, "delete block")
}

func (r *BlockRepo) ListBlocked(ctx context.Context, blockerID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT blocked_id FROM user_blocks
		WHERE blocker_id = ?
		ORDER BY created_at, blocked_id`, blockerID)
	if err != nil {
		return nil, wrapErr(err, "list blocked users")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, wrapErr(err, "scan blocked user")
		}
		ids = append(ids, id)
	}
	return ids, wrapErr(rows.Err(), "list blocked users")
}

func (r *BlockRepo) ExistsEitherDirection(ctx context.Context, userA, userB string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM user_blocks
			WHERE (blocker_id = ? AND blocked_id = ?)
			   OR (blocker_id = ? AND blocked_id = ?)
		)`, userA, userB, userB, userA,
	).Scan(&exists)
	return exists, wrapErr(err, "check block")
}
