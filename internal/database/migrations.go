package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

var migrations = []string{
	`
CREATE TABLE IF NOT EXISTS users (
  id               TEXT PRIMARY KEY,
  email            TEXT NOT NULL UNIQUE,
  username         TEXT NOT NULL UNIQUE,
  password_hash    TEXT NOT NULL,
  photo_url        TEXT,
  push_token       TEXT,
  profile_complete BOOLEAN NOT NULL DEFAULT false,
  created_at       TIMESTAMPTZ NOT NULL,
  updated_at       TIMESTAMPTZ NOT NULL
)`,
	`
CREATE TABLE IF NOT EXISTS user_blocks (
  blocker_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  blocked_id TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  PRIMARY KEY (blocker_id, blocked_id)
)`,
	`CREATE INDEX IF NOT EXISTS idx_user_blocks_blocked ON user_blocks (blocked_id)`,
	`
CREATE TABLE IF NOT EXISTS conversations (
  id                TEXT PRIMARY KEY,
  participant_a     TEXT NOT NULL,
  participant_b     TEXT NOT NULL,
  created_at        TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp(),
  pending_reader_id TEXT,
  last_message_id   TEXT,
  last_message      TEXT,
  last_sender_id    TEXT,
  last_message_at   TIMESTAMPTZ,
  last_is_read      BOOLEAN
)`,
	`CREATE INDEX IF NOT EXISTS idx_conversations_participant_a ON conversations (participant_a)`,
	`CREATE INDEX IF NOT EXISTS idx_conversations_participant_b ON conversations (participant_b)`,
	`
CREATE TABLE IF NOT EXISTS messages (
  seq             BIGSERIAL NOT NULL UNIQUE,
  id              TEXT PRIMARY KEY,
  conversation_id TEXT NOT NULL REFERENCES conversations(id),
  sender_id       TEXT NOT NULL,
  recipient_id    TEXT NOT NULL,
  message         TEXT NOT NULL,
  created_at      TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp(),
  is_read         BOOLEAN NOT NULL DEFAULT false
)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_conversation_time ON messages (conversation_id, created_at, seq)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_unread ON messages (recipient_id, conversation_id) WHERE NOT is_read`,
	`
CREATE TABLE IF NOT EXISTS listings (
  id             TEXT PRIMARY KEY,
  competition_id TEXT NOT NULL,
  user_id        TEXT NOT NULL,
  name           TEXT NOT NULL,
  puzzle_type    TEXT NOT NULL,
  price          DOUBLE PRECISION NOT NULL,
  usage          TEXT NOT NULL,
  description    TEXT NOT NULL DEFAULT '',
  image_url      TEXT NOT NULL DEFAULT '',
  created_at     TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_listings_competition ON listings (competition_id, created_at DESC)`,
	`
CREATE TABLE IF NOT EXISTS reports (
  id          TEXT PRIMARY KEY,
  listing_id  TEXT NOT NULL,
  reported_by TEXT NOT NULL,
  reason      TEXT NOT NULL,
  type        TEXT NOT NULL,
  created_at  TIMESTAMPTZ NOT NULL
)`,
}

// Migrate applies the schema. Every statement is idempotent, so running it on
// each start is safe; the advisory lock keeps concurrent instances from racing.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(727274)`); err != nil {
			return errors.Wrap(err, "acquire migration lock")
		}
		for i, stmt := range migrations {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return errors.Wrapf(err, "apply migration %d", i+1)
			}
		}
		return nil
	})
}
