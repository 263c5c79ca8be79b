package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRepo_Validate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewSessionRepo(db)
	cols := []string{"email", "expires_at", "revoked_at"}
	future := time.Now().UTC().Add(time.Hour)
	past := time.Now().UTC().Add(-time.Hour)

	mock.ExpectQuery("SELECT email, expires_at, revoked_at FROM sessions").WithArgs("ok").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("a@x.io", future, nil))
	mock.ExpectQuery("SELECT email, expires_at, revoked_at FROM sessions").WithArgs("revoked").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("a@x.io", future, past))
	mock.ExpectQuery("SELECT email, expires_at, revoked_at FROM sessions").WithArgs("expired").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("a@x.io", past, nil))
	mock.ExpectQuery("SELECT email, expires_at, revoked_at FROM sessions").WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	email, err := repo.Validate(context.Background(), "ok")
	require.NoError(t, err)
	assert.Equal(t, "a@x.io", email)
	for _, h := range []string{"revoked", "expired", "missing"} {
		_, err := repo.Validate(context.Background(), h)
		assert.ErrorIs(t, err, ErrSessionInvalid, h)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_CreateDuplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewUserRepo(db)

	mock.ExpectExec("INSERT INTO users").
		WithArgs("a@x.io", sqlmock.AnyArg()).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	_, err = repo.Create(context.Background(), "  A@x.io ", "secret123", 4)
	assert.ErrorIs(t, err, ErrEmailExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepo_RevokeAll(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewSessionRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE sessions SET revoked_at=UTC_TIMESTAMP() WHERE email=? AND revoked_at IS NULL")).
		WithArgs("a@x.io").
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, repo.RevokeAll(context.Background(), "a@x.io"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
