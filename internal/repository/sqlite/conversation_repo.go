package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/wecube/server/internal/domain"
)

const conversationColumns = `
	id, participant_a, participant_b, created_at, pending_reader_id,
	last_message_id, last_message, last_sender_id, last_message_at, last_is_read`

type ConversationRepo struct {
	db *sql.DB
}

// CreateIfAbsent relies on the primary key of the canonical id; a second
// insert for the same pair changes no rows.
func (r *ConversationRepo) CreateIfAbsent(ctx context.Context, conv *domain.Conversation) (bool, error) {
	var pending *string
	if conv.PendingReaderID != "" {
		pending = &conv.PendingReaderID
	}

	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO conversations (id, participant_a, participant_b, created_at, pending_reader_id)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`,
		conv.ID, conv.Participants[0], conv.Participants[1], toMillis(now), pending,
	)
	if err != nil {
		return false, wrapErr(err, "insert conversation")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, wrapErr(err, "insert conversation")
	}
	if n == 0 {
		return false, nil
	}
	conv.CreatedAt = fromMillis(toMillis(now))
	return true, nil
}

func (r *ConversationRepo) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+conversationColumns+` FROM conversations WHERE id = ?`, id)
	conv, err := scanConversation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr(err, "get conversation")
	}
	return conv, nil
}

func (r *ConversationRepo) ListByParticipant(ctx context.Context, userID string) ([]domain.Conversation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations
		WHERE participant_a = ? OR participant_b = ?
		ORDER BY last_message_at IS NULL, last_message_at DESC, created_at DESC`, userID, userID)
	if err != nil {
		return nil, wrapErr(err, "list conversations")
	}
	defer rows.Close()

	var convs []domain.Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, wrapErr(err, "scan conversation")
		}
		convs = append(convs, *conv)
	}
	return convs, wrapErr(rows.Err(), "list conversations")
}

type scanner interface {
	Scan(dest ...any) error
}

func scanConversation(row scanner) (*domain.Conversation, error) {
	var (
		conv        domain.Conversation
		a, b        string
		createdAt   int64
		pending     sql.NullString
		lastID      sql.NullString
		lastMessage sql.NullString
		lastSender  sql.NullString
		lastAt      sql.NullInt64
		lastIsRead  sql.NullBool
	)
	if err := row.Scan(
		&conv.ID, &a, &b, &createdAt, &pending,
		&lastID, &lastMessage, &lastSender, &lastAt, &lastIsRead,
	); err != nil {
		return nil, err
	}

	conv.Participants = []string{a, b}
	conv.CreatedAt = fromMillis(createdAt)
	conv.PendingReaderID = pending.String
	if lastID.Valid {
		conv.LastMessage = &domain.MessageSummary{
			MessageID: lastID.String,
			Message:   lastMessage.String,
			SenderID:  lastSender.String,
			IsRead:    lastIsRead.Bool,
		}
		if lastAt.Valid {
			conv.LastMessage.Timestamp = fromMillis(lastAt.Int64)
		}
	}
	return &conv, nil
}
