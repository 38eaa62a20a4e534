package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/wecube/server/internal/domain"
)

const messageColumns = `id, conversation_id, sender_id, recipient_id, message, created_at, seq, is_read`

var errConversationMissing = domain.KindError(domain.ErrNotFound, "conversation not found")

type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

// Append inserts the message and rewrites the conversation summary in one
// transaction. The conversation row is locked before the insert, so appends to
// one conversation commit in timestamp order and the summary always names the
// newest message.
func (r *MessageRepo) Append(ctx context.Context, msg *domain.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var exists int
		err := tx.QueryRow(ctx, `SELECT 1 FROM conversations WHERE id = $1 FOR UPDATE`, msg.ConversationID).Scan(&exists)
		if errors.Is(err, pgx.ErrNoRows) {
			return errConversationMissing
		}
		if err != nil {
			return err
		}

		insert := `
			INSERT INTO messages (id, conversation_id, sender_id, recipient_id, message)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING created_at, seq, is_read`
		if err := tx.QueryRow(ctx, insert,
			msg.ID, msg.ConversationID, msg.SenderID, msg.RecipientID, msg.Message,
		).Scan(&msg.Timestamp, &msg.Seq, &msg.IsRead); err != nil {
			return err
		}

		summary := `
			UPDATE conversations
			SET last_message_id = $2, last_message = $3, last_sender_id = $4,
				last_message_at = $5, last_is_read = false, pending_reader_id = $6
			WHERE id = $1`
		tag, err := tx.Exec(ctx, summary,
			msg.ConversationID, msg.ID, msg.Message, msg.SenderID, msg.Timestamp, msg.RecipientID,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return errConversationMissing
		}
		return nil
	})
	return wrapErr(err, "append message")
}

func (r *MessageRepo) ListByConversation(ctx context.Context, conversationID string) ([]domain.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC, seq ASC`

	rows, err := r.pool.Query(ctx, query, conversationID)
	if err != nil {
		return nil, wrapErr(err, "list messages")
	}
	messages, err := pgx.CollectRows(rows, scanMessage)
	if err != nil {
		return nil, wrapErr(err, "scan messages")
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	return messages, nil
}

func (r *MessageRepo) Latest(ctx context.Context, conversationID string) (*domain.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at DESC, seq DESC
		LIMIT 1`

	rows, err := r.pool.Query(ctx, query, conversationID)
	if err != nil {
		return nil, wrapErr(err, "latest message")
	}
	msg, err := pgx.CollectOneRow(rows, scanMessage)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr(err, "scan latest message")
	}
	return &msg, nil
}

// MarkRead locks the unread rows it found, flips exactly those, and marks the
// summary read only when the summary points at one of them.
func (r *MessageRepo) MarkRead(ctx context.Context, conversationID, recipientID string) (int, error) {
	var updated int

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT id FROM messages
			WHERE conversation_id = $1 AND recipient_id = $2 AND NOT is_read
			FOR UPDATE`, conversationID, recipientID)
		if err != nil {
			return err
		}
		ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}

		tag, err := tx.Exec(ctx, `UPDATE messages SET is_read = true WHERE id = ANY($1) AND NOT is_read`, ids)
		if err != nil {
			return err
		}
		updated = int(tag.RowsAffected())
		if updated == 0 {
			return nil
		}

		_, err = tx.Exec(ctx, `
			UPDATE conversations
			SET last_is_read = true, pending_reader_id = NULL
			WHERE id = $1 AND last_message_id = ANY($2)`, conversationID, ids)
		return err
	})
	if err != nil {
		return 0, wrapErr(err, "mark conversation read")
	}
	return updated, nil
}

func (r *MessageRepo) CountUnread(ctx context.Context, recipientID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM messages WHERE recipient_id = $1 AND NOT is_read`, recipientID,
	).Scan(&count)
	return count, wrapErr(err, "count unread messages")
}

func scanMessage(row pgx.CollectableRow) (domain.Message, error) {
	var m domain.Message
	err := row.Scan(
		&m.ID, &m.ConversationID, &m.SenderID, &m.RecipientID,
		&m.Message, &m.Timestamp, &m.Seq, &m.IsRead,
	)
	return m, err
}
