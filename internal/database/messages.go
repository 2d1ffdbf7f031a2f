package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type CreateMessageParams struct {
	SenderID    int64
	ReceiverID  pgtype.Int8
	Content     string
	MessageType MessageType
	// CreatedAt defaults to the insert time when zero.
	CreatedAt time.Time
}

const createMessage = `
INSERT INTO messages (sender_id, receiver_id, content, message_type, created_at)
VALUES ($1, $2, $3, $4, COALESCE($5, NOW()))
RETURNING id, sender_id, receiver_id, content, message_type, created_at`

func (q *Queries) CreateMessage(ctx context.Context, arg CreateMessageParams) (Message, error) {
	createdAt := pgtype.Timestamptz{Time: arg.CreatedAt, Valid: !arg.CreatedAt.IsZero()}

	var m Message
	err := q.db.QueryRow(ctx, createMessage,
		arg.SenderID, arg.ReceiverID, arg.Content, string(arg.MessageType), createdAt,
	).Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Content, &m.MessageType, &m.CreatedAt)
	if err != nil {
		return Message{}, fmt.Errorf("database: create message: %w", err)
	}
	return m, nil
}

func scanHistory(row pgx.CollectableRow) (HistoryMessage, error) {
	var m HistoryMessage
	err := row.Scan(&m.ID, &m.Content, &m.MessageType, &m.SenderUsername, &m.ReceiverUsername, &m.CreatedAt)
	return m, err
}

// The inner queries pick the newest rows; the outer ORDER BY returns them
// oldest first for display.
const listGeneralMessages = `
SELECT * FROM (
    SELECT m.id, m.content, m.message_type, sender.username AS sender_username, receiver.username AS receiver_username, m.created_at
    FROM messages m
    JOIN users sender ON m.sender_id = sender.id
    LEFT JOIN users receiver ON m.receiver_id = receiver.id
    WHERE m.message_type = 'general'
    ORDER BY m.created_at DESC, m.id DESC
    LIMIT $1
) recent
ORDER BY created_at ASC, id ASC`

func (q *Queries) ListGeneralMessages(ctx context.Context, limit int32) ([]HistoryMessage, error) {
	rows, err := q.db.Query(ctx, listGeneralMessages, limit)
	if err != nil {
		return nil, fmt.Errorf("database: list general messages: %w", err)
	}
	return pgx.CollectRows(rows, scanHistory)
}

const listPrivateMessages = `
SELECT * FROM (
    SELECT m.id, m.content, m.message_type, sender.username AS sender_username, receiver.username AS receiver_username, m.created_at
    FROM messages m
    JOIN users sender ON m.sender_id = sender.id
    JOIN users receiver ON m.receiver_id = receiver.id
    WHERE m.message_type = 'private'
      AND ((sender.username = $1 AND receiver.username = $2)
        OR (sender.username = $2 AND receiver.username = $1))
    ORDER BY m.created_at DESC, m.id DESC
    LIMIT $3
) recent
ORDER BY created_at ASC, id ASC`

// ListPrivateMessages returns the conversation between a and b in either direction.
func (q *Queries) ListPrivateMessages(ctx context.Context, a, b string, limit int32) ([]HistoryMessage, error) {
	rows, err := q.db.Query(ctx, listPrivateMessages, a, b, limit)
	if err != nil {
		return nil, fmt.Errorf("database: list private messages: %w", err)
	}
	return pgx.CollectRows(rows, scanHistory)
}

const listRecentMessages = `
SELECT m.id, m.content, m.message_type, sender.username AS sender_username, receiver.username AS receiver_username, m.created_at
FROM messages m
JOIN users sender ON m.sender_id = sender.id
LEFT JOIN users receiver ON m.receiver_id = receiver.id
ORDER BY m.created_at DESC, m.id DESC
LIMIT $1`

// ListRecentMessages returns every kind of message, newest first.
func (q *Queries) ListRecentMessages(ctx context.Context, limit int32) ([]HistoryMessage, error) {
	rows, err := q.db.Query(ctx, listRecentMessages, limit)
	if err != nil {
		return nil, fmt.Errorf("database: list recent messages: %w", err)
	}
	return pgx.CollectRows(rows, scanHistory)
}
