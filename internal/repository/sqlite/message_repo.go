package sqlite

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/wecube/server/internal/domain"
)

const messageColumns = `id, conversation_id, sender_id, recipient_id, message, created_at, seq, is_read`

var errConversationMissing = domain.KindError(domain.ErrNotFound, "conversation not found")

type MessageRepo struct {
	db *sql.DB
}

// Append inserts the message and rewrites the conversation summary in one
// transaction.
func (r *MessageRepo) Append(ctx context.Context, msg *domain.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}

	err := r.inTx(ctx, func(tx *sql.Tx) error {
		now := nowMillis()
		res, err := tx.ExecContext(ctx, `
			INSERT INTO messages (id, conversation_id, sender_id, recipient_id, message, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			msg.ID, msg.ConversationID, msg.SenderID, msg.RecipientID, msg.Message, now,
		)
		if err != nil {
			return err
		}
		seq, err := res.LastInsertId()
		if err != nil {
			return err
		}

		res, err = tx.ExecContext(ctx, `
			UPDATE conversations
			SET last_message_id = ?, last_message = ?, last_sender_id = ?,
				last_message_at = ?, last_is_read = 0, pending_reader_id = ?
			WHERE id = ?`,
			msg.ID, msg.Message, msg.SenderID, now, msg.RecipientID, msg.ConversationID,
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return errConversationMissing
		}

		msg.Seq = seq
		msg.Timestamp = fromMillis(now)
		msg.IsRead = false
		return nil
	})
	return wrapErr(err, "append message")
}

func (r *MessageRepo) ListByConversation(ctx context.Context, conversationID string) ([]domain.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at ASC, seq ASC`, conversationID)
	if err != nil {
		return nil, wrapErr(err, "list messages")
	}
	defer rows.Close()

	messages := []domain.Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, wrapErr(err, "scan message")
		}
		messages = append(messages, m)
	}
	return messages, wrapErr(rows.Err(), "list messages")
}

func (r *MessageRepo) Latest(ctx context.Context, conversationID string) (*domain.Message, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at DESC, seq DESC
		LIMIT 1`, conversationID)
	m, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr(err, "latest message")
	}
	return &m, nil
}

// MarkRead flips the unread messages addressed to recipientID found at the
// start of the transaction, bounded by the highest seq among them. The summary
// is marked read only when it refers to one of them.
func (r *MessageRepo) MarkRead(ctx context.Context, conversationID, recipientID string) (int, error) {
	var updated int

	err := r.inTx(ctx, func(tx *sql.Tx) error {
		var maxSeq sql.NullInt64
		err := tx.QueryRowContext(ctx, `
			SELECT max(seq) FROM messages
			WHERE conversation_id = ? AND recipient_id = ? AND is_read = 0`,
			conversationID, recipientID).Scan(&maxSeq)
		if err != nil {
			return err
		}
		if !maxSeq.Valid {
			return nil
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE messages SET is_read = 1
			WHERE conversation_id = ? AND recipient_id = ? AND is_read = 0 AND seq <= ?`,
			conversationID, recipientID, maxSeq.Int64)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		updated = int(n)
		if updated == 0 {
			return nil
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE conversations
			SET last_is_read = 1, pending_reader_id = NULL
			WHERE id = ? AND last_message_id IN (
				SELECT id FROM messages
				WHERE conversation_id = ? AND recipient_id = ? AND seq <= ?)`,
			conversationID, conversationID, recipientID, maxSeq.Int64)
		return err
	})
	if err != nil {
		return 0, wrapErr(err, "mark conversation read")
	}
	return updated, nil
}

func (r *MessageRepo) CountUnread(ctx context.Context, recipientID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM messages WHERE recipient_id = ? AND is_read = 0`, recipientID,
	).Scan(&count)
	return count, wrapErr(err, "count unread messages")
}

func (r *MessageRepo) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func scanMessage(row scanner) (domain.Message, error) {
	var (
		m         domain.Message
		createdAt int64
	)
	err := row.Scan(
		&m.ID, &m.ConversationID, &m.SenderID, &m.RecipientID,
		&m.Message, &createdAt, &m.Seq, &m.IsRead,
	)
	m.Timestamp = fromMillis(createdAt)
	return m, err
}
