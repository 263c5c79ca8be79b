package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/chatter-pad/internal/model"
)

// ParticipantRepo provides access to the participants table, the durable
// per-user room state.
type ParticipantRepo struct {
	db *sql.DB
}

func NewParticipantRepo(db *sql.DB) *ParticipantRepo { return &ParticipantRepo{db: db} }

const participantColumns = "email, gold, color, pos_x, pos_y, logged_in, updated_at"

type scanner interface {
	Scan(dest ...any) error
}

func scanParticipant(s scanner) (model.Participant, error) {
	var p model.Participant
	err := s.Scan(&p.Email, &p.Gold, &p.Color, &p.Position.X, &p.Position.Y, &p.LoggedIn, &p.UpdatedAt)
	return p, err
}

// Get returns the participant stored for email.
func (r *ParticipantRepo) Get(ctx context.Context, email string) (model.Participant, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+participantColumns+" FROM participants WHERE email=? LIMIT 1", email)
	p, err := scanParticipant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Participant{}, ErrNotFound
	}
	return p, err
}

// Upsert writes the fields present in patch, creating the row with
// defaults when it does not exist yet. Absent fields keep their stored
// value.
func (r *ParticipantRepo) Upsert(ctx context.Context, email string, patch model.ParticipantPatch) error {
	if patch.Empty() {
		return nil
	}
	base := model.NewParticipant(email)
	row := patch.Apply(base)

	var sets []string
	if patch.Gold != nil {
		sets = append(sets, "gold=VALUES(gold)")
	}
	if patch.Color != nil {
		sets = append(sets, "color=VALUES(color)")
	}
	if patch.Position != nil {
		sets = append(sets, "pos_x=VALUES(pos_x)", "pos_y=VALUES(pos_y)")
	}
	if patch.LoggedIn != nil {
		sets = append(sets, "logged_in=VALUES(logged_in)")
	}
	q := "INSERT INTO participants (email, gold, color, pos_x, pos_y, logged_in) VALUES (?,?,?,?,?,?) " +
		"ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", ")
	_, err := r.db.ExecContext(ctx, q,
		email, row.Gold, row.Color, row.Position.X, row.Position.Y, row.LoggedIn)
	return err
}

// ListPresent returns participants whose presence flag is set.
func (r *ParticipantRepo) ListPresent(ctx context.Context) ([]model.Participant, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+participantColumns+" FROM participants WHERE logged_in=1 ORDER BY email")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// IncrementGold adds amount to each listed participant in one statement.
func (r *ParticipantRepo) IncrementGold(ctx context.Context, emails []string, amount int64) error {
	if len(emails) == 0 {
		return nil
	}
	args := make([]any, 0, len(emails)+1)
	args = append(args, amount)
	for _, e := range emails {
		args = append(args, e)
	}
	q := "UPDATE participants SET gold = gold + ? WHERE email IN (?" + strings.Repeat(",?", len(emails)-1) + ")"
	_, err := r.db.ExecContext(ctx, q, args...)
	return err
}

// ListGold returns every participant's email and balance.
func (r *ParticipantRepo) ListGold(ctx context.Context) ([]model.Participant, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT email, gold FROM participants")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Participant
	for rows.Next() {
		var p model.Participant
		if err := rows.Scan(&p.Email, &p.Gold); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// TopByGold returns the richest participants, richest first.
func (r *ParticipantRepo) TopByGold(ctx context.Context, limit int) ([]model.Participant, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+participantColumns+" FROM participants ORDER BY gold DESC, email ASC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
