package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/chatter-pad/internal/model"
	"github.com/iliyamo/chatter-pad/internal/room"
)

var epochRow = time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)

func newMock(t *testing.T) (sqlmock.Sqlmock, *ParticipantRepo, *ChatRepo) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return mock, NewParticipantRepo(db), NewChatRepo(db)
}

func TestParticipantRepo_UpsertWritesOnlyPatchedFields(t *testing.T) {
	mock, repo, _ := newMock(t)
	color := "hsl(12, 100%, 50%)"

	mock.ExpectExec(regexp.QuoteMeta("ON DUPLICATE KEY UPDATE color=VALUES(color)")).
		WithArgs("a@x.io", int64(0), color, float64(750), float64(500), false).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Upsert(context.Background(), "a@x.io", model.ParticipantPatch{Color: &color}))
}

func TestParticipantRepo_UpsertPositionAndPresence(t *testing.T) {
	mock, repo, _ := newMock(t)
	pos := model.Position{X: 1, Y: 2}
	in := true

	mock.ExpectExec(regexp.QuoteMeta("ON DUPLICATE KEY UPDATE pos_x=VALUES(pos_x), pos_y=VALUES(pos_y), logged_in=VALUES(logged_in)")).
		WithArgs("a@x.io", int64(0), model.DefaultColor, float64(1), float64(2), true).
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.Upsert(context.Background(), "a@x.io", model.ParticipantPatch{Position: &pos, LoggedIn: &in}))
}

func TestParticipantRepo_EmptyPatchIsNoop(t *testing.T) {
	_, repo, _ := newMock(t)
	require.NoError(t, repo.Upsert(context.Background(), "a@x.io", model.ParticipantPatch{}))
}

func TestParticipantRepo_IncrementGold(t *testing.T) {
	mock, repo, _ := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE participants SET gold = gold + ? WHERE email IN (?,?)")).
		WithArgs(int64(10), "a@x.io", "b@x.io").
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.IncrementGold(context.Background(), []string{"a@x.io", "b@x.io"}, 10))
	require.NoError(t, repo.IncrementGold(context.Background(), nil, 10))
}

func TestRoomStore_UnknownParticipant(t *testing.T) {
	mock, repo, chat := newMock(t)
	store := NewRoomStore(repo, chat)

	mock.ExpectQuery("SELECT (.+) FROM participants WHERE email=").
		WithArgs("new@x.io").
		WillReturnRows(sqlmock.NewRows([]string{"email", "gold", "color", "pos_x", "pos_y", "logged_in", "updated_at"}))

	_, err := store.GetParticipant(context.Background(), "new@x.io")
	assert.ErrorIs(t, err, room.ErrUnknownParticipant)
}

func TestRoomStore_GetParticipant(t *testing.T) {
	mock, repo, chat := newMock(t)
	store := NewRoomStore(repo, chat)
	updated := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT (.+) FROM participants WHERE email=").
		WithArgs("a@x.io").
		WillReturnRows(sqlmock.NewRows([]string{"email", "gold", "color", "pos_x", "pos_y", "logged_in", "updated_at"}).
			AddRow("a@x.io", 120, "hsl(5, 100%, 50%)", 300.0, 250.0, true, updated))

	p, err := store.GetParticipant(context.Background(), "a@x.io")
	require.NoError(t, err)
	assert.Equal(t, model.Participant{
		Email:     "a@x.io",
		Gold:      120,
		Color:     "hsl(5, 100%, 50%)",
		Position:  model.Position{X: 300, Y: 250},
		LoggedIn:  true,
		UpdatedAt: updated,
	}, p)
}

func TestChatRepo_ListIsChronological(t *testing.T) {
	mock, _, chat := newMock(t)
	t1 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)

	mock.ExpectQuery("SELECT id, sender, text, created_at FROM chat_messages ORDER BY created_at DESC").
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "sender", "text", "created_at"}).
			AddRow(uint64(9), "b@x.io", "second", t2).
			AddRow(uint64(8), "a@x.io", "first", t1))

	msgs, err := chat.List(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "first", msgs[0].Text)
	assert.Equal(t, "second", msgs[1].Text)
}

func TestParticipantRepo_ListPresent(t *testing.T) {
	mock, repo, _ := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM participants WHERE logged_in=1 ORDER BY email")).
		WillReturnRows(sqlmock.NewRows([]string{"email", "gold", "color", "pos_x", "pos_y", "logged_in", "updated_at"}).
			AddRow("a@x.io", 10, model.DefaultColor, 750.0, 500.0, true, epochRow).
			AddRow("b@x.io", 0, model.DefaultColor, 750.0, 500.0, true, epochRow))

	ps, err := repo.ListPresent(context.Background())
	require.NoError(t, err)
	require.Len(t, ps, 2)
	assert.Equal(t, "a@x.io", ps[0].Email)
	assert.True(t, ps[1].LoggedIn)
}
