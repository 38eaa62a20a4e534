package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/wecube/server/internal/domain"
)

const conversationColumns = `
	id, participant_a, participant_b, created_at, pending_reader_id,
	last_message_id, last_message, last_sender_id, last_message_at, last_is_read`

type ConversationRepo struct {
	pool *pgxpool.Pool
}

func NewConversationRepo(pool *pgxpool.Pool) *ConversationRepo {
	return &ConversationRepo{pool: pool}
}

// CreateIfAbsent relies on the primary key of the canonical id: of two
// concurrent inserts for the same pair exactly one returns a row.
func (r *ConversationRepo) CreateIfAbsent(ctx context.Context, conv *domain.Conversation) (bool, error) {
	query := `
		INSERT INTO conversations (id, participant_a, participant_b, pending_reader_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING
		RETURNING created_at`

	var pending *string
	if conv.PendingReaderID != "" {
		pending = &conv.PendingReaderID
	}

	err := r.pool.QueryRow(ctx, query,
		conv.ID, conv.Participants[0], conv.Participants[1], pending,
	).Scan(&conv.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, wrapErr(err, "insert conversation")
	}
	return true, nil
}

func (r *ConversationRepo) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+conversationColumns+` FROM conversations WHERE id = $1`, id)
	conv, err := scanConversation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr(err, "get conversation")
	}
	return conv, nil
}

func (r *ConversationRepo) ListByParticipant(ctx context.Context, userID string) ([]domain.Conversation, error) {
	query := `
		SELECT ` + conversationColumns + `
		FROM conversations
		WHERE participant_a = $1 OR participant_b = $1
		ORDER BY last_message_at DESC NULLS LAST, created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
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

func scanConversation(row pgx.Row) (*domain.Conversation, error) {
	var (
		conv        domain.Conversation
		a, b        string
		pending     *string
		lastID      *string
		lastMessage *string
		lastSender  *string
		lastAt      *time.Time
		lastIsRead  *bool
	)
	if err := row.Scan(
		&conv.ID, &a, &b, &conv.CreatedAt, &pending,
		&lastID, &lastMessage, &lastSender, &lastAt, &lastIsRead,
	); err != nil {
		return nil, err
	}

	conv.Participants = []string{a, b}
	if pending != nil {
		conv.PendingReaderID = *pending
	}
	if lastID != nil {
		conv.LastMessage = &domain.MessageSummary{MessageID: *lastID}
		if lastMessage != nil {
			conv.LastMessage.Message = *lastMessage
		}
		if lastSender != nil {
			conv.LastMessage.SenderID = *lastSender
		}
		if lastAt != nil {
			conv.LastMessage.Timestamp = *lastAt
		}
		if lastIsRead != nil {
			conv.LastMessage.IsRead = *lastIsRead
		}
	}
	return &conv, nil
}
