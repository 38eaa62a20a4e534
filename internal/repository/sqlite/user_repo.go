package sqlite

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	"github.com/wecube/server/internal/domain"
)

const userColumns = `id, email, username, password_hash, photo_url, push_token, profile_complete, created_at, updated_at`

type UserRepo struct {
	db *sql.DB
}

func (r *UserRepo) Create(ctx context.Context, user *domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.Username, user.PasswordHash, user.PhotoURL,
		user.PushToken, user.HasCompletedProfileSetup, toMillis(user.CreatedAt), toMillis(user.UpdatedAt),
	)
	return wrapErr(err, "insert user")
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.scanUser(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.scanUser(ctx, "SELECT "+userColumns+" FROM users WHERE email = ? COLLATE NOCASE", email)
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.scanUser(ctx, "SELECT "+userColumns+" FROM users WHERE username = ?", username)
}

func (r *UserRepo) UpdateProfile(ctx context.Context, user *domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET username = ?, photo_url = ?, profile_complete = ?, updated_at = ?
		WHERE id = ?`,
		user.Username, user.PhotoURL, user.HasCompletedProfileSetup, toMillis(user.UpdatedAt), user.ID,
	)
	return wrapErr(err, "update user profile")
}

func (r *UserRepo) SetPushToken(ctx context.Context, id string, token *string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET push_token = ?, updated_at = ? WHERE id = ?`, token, nowMillis(), id)
	return wrapErr(err, "set push token")
}

func (r *UserRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	return wrapErr(err, "delete user")
}

func (r *UserRepo) scanUser(ctx context.Context, query string, arg any) (*domain.User, error) {
	var (
		u                    domain.User
		createdAt, updatedAt int64
	)
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.PhotoURL,
		&u.PushToken, &u.HasCompletedProfileSetup, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr(err, "get user")
	}
	u.CreatedAt = fromMillis(createdAt)
	u.UpdatedAt = fromMillis(updatedAt)
	return &u, nil
}
