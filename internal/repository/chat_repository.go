package repository

import (
	"context"
	"database/sql"
	"slices"

	"github.com/iliyamo/chatter-pad/internal/model"
)

// ChatRepo stores room chat messages.
type ChatRepo struct {
	db *sql.DB
}

func NewChatRepo(db *sql.DB) *ChatRepo { return &ChatRepo{db: db} }

// Append inserts msg.
func (r *ChatRepo) Append(ctx context.Context, msg model.ChatMessage) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO chat_messages (sender, text, created_at) VALUES (?,?,?)",
		msg.From, msg.Text, msg.Timestamp.UTC())
	return err
}

// List returns the most recent limit messages, oldest first.
func (r *ChatRepo) List(ctx context.Context, limit int) ([]model.ChatMessage, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, sender, text, created_at FROM chat_messages ORDER BY created_at DESC, id DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.ChatMessage
	for rows.Next() {
		var m model.ChatMessage
		if err := rows.Scan(&m.ID, &m.From, &m.Text, &m.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	slices.Reverse(out)
	return out, nil
}
