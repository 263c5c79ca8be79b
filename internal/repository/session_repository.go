package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// SessionRepo persists login sessions. Only the hash of a session id is
// stored.
type SessionRepo struct{ DB *sql.DB }

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{DB: db} }

// Store inserts a session row.
func (r *SessionRepo) Store(ctx context.Context, email, idHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO sessions (email, id_hash, expires_at) VALUES (?,?,?)",
		email, idHash, exp.UTC())
	return err
}

// Validate returns the owner of a non-revoked, non-expired session.
func (r *SessionRepo) Validate(ctx context.Context, idHash string) (string, error) {
	var (
		email     string
		expiresAt time.Time
		revokedAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT email, expires_at, revoked_at FROM sessions WHERE id_hash=? LIMIT 1",
		idHash).Scan(&email, &expiresAt, &revokedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrSessionInvalid
	}
	if err != nil {
		return "", err
	}
	if revokedAt.Valid || time.Now().UTC().After(expiresAt) {
		return "", ErrSessionInvalid
	}
	return email, nil
}

// Revoke marks a session as logged out.
func (r *SessionRepo) Revoke(ctx context.Context, idHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE sessions SET revoked_at=UTC_TIMESTAMP() WHERE id_hash=? AND revoked_at IS NULL",
		idHash)
	return err
}

// RevokeAll revokes every active session of email.
func (r *SessionRepo) RevokeAll(ctx context.Context, email string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE sessions SET revoked_at=UTC_TIMESTAMP() WHERE email=? AND revoked_at IS NULL",
		email)
	return err
}
