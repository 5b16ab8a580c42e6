package postgres

import (
	"context"
	"slices"

	"github.com/vedran77/huddle/internal/domain"
)

type MessageRepo struct {
	db Querier
}

func NewMessageRepo(db Querier) *MessageRepo {
	return &MessageRepo{db: db}
}

func (r *MessageRepo) Create(ctx context.Context, msg *domain.ChatMessage) error {
	query := `
		INSERT INTO chat_messages (id, sender_id, sender_name, text, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.Exec(ctx, query, msg.ID, msg.SenderID, msg.SenderName, msg.Text, msg.CreatedAt)
	return err
}

// ListRecent returns the newest limit messages, oldest first.
func (r *MessageRepo) ListRecent(ctx context.Context, limit int) ([]domain.ChatMessage, error) {
	query := `
		SELECT id, sender_id, sender_name, text, created_at
		FROM chat_messages
		ORDER BY id DESC
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := []domain.ChatMessage{}
	for rows.Next() {
		var m domain.ChatMessage
		if err := rows.Scan(&m.ID, &m.SenderID, &m.SenderName, &m.Text, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	slices.Reverse(msgs)
	return msgs, nil
}
