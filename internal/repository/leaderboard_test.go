package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/chatter-pad/internal/room"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func expectGold(mock sqlmock.Sqlmock, rows ...[2]any) {
	r := sqlmock.NewRows([]string{"email", "gold"})
	for _, row := range rows {
		r.AddRow(row[0], row[1])
	}
	mock.ExpectQuery(regexp.QuoteMeta("SELECT email, gold FROM participants")).WillReturnRows(r)
}

func TestLeaderboard_RedisRanking(t *testing.T) {
	_, rdb := newRedis(t)
	mock, repo, _ := newMock(t)
	lb := NewLeaderboard(rdb, repo)
	ctx := context.Background()

	expectGold(mock)
	require.NoError(t, lb.Rebuild(ctx))
	require.NoError(t, lb.SetGold(ctx, "a@x.io", 5))
	require.NoError(t, lb.SetGold(ctx, "b@x.io", 30))
	require.NoError(t, lb.SetGold(ctx, "c@x.io", 12))
	require.NoError(t, lb.AddGold(ctx, []string{"a@x.io", "c@x.io"}, 10))

	top, err := lb.Top(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []room.LeaderEntry{{Email: "b@x.io", Gold: 30}, {Email: "c@x.io", Gold: 22}}, top)
}

func TestLeaderboard_PartialSetReadsMySQL(t *testing.T) {
	_, rdb := newRedis(t)
	mock, repo, _ := newMock(t)
	lb := NewLeaderboard(rdb, repo)
	ctx := context.Background()

	// a join after a Redis flush writes only the newcomer
	require.NoError(t, lb.SetGold(ctx, "newbie@x.io", 0))

	mock.ExpectQuery("SELECT (.+) FROM participants ORDER BY gold DESC").
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"email", "gold", "color", "pos_x", "pos_y", "logged_in", "updated_at"}).
			AddRow("rich@x.io", 1000, "c", 0.0, 0.0, false, epochRow).
			AddRow("newbie@x.io", 0, "c", 0.0, 0.0, true, epochRow))

	top, err := lb.Top(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []room.LeaderEntry{{Email: "rich@x.io", Gold: 1000}, {Email: "newbie@x.io", Gold: 0}}, top)
}

func TestLeaderboard_RebuildReplacesSet(t *testing.T) {
	mr, rdb := newRedis(t)
	mock, repo, _ := newMock(t)
	lb := NewLeaderboard(rdb, repo)
	ctx := context.Background()

	require.NoError(t, lb.SetGold(ctx, "stale@x.io", 5000))
	expectGold(mock, [2]any{"rich@x.io", 1000}, [2]any{"newbie@x.io", 0})
	require.NoError(t, lb.Rebuild(ctx))
	assert.True(t, mr.Exists(LeaderboardReadyKey))

	// served from Redis: no further MySQL query is expected
	top, err := lb.Top(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []room.LeaderEntry{{Email: "rich@x.io", Gold: 1000}, {Email: "newbie@x.io", Gold: 0}}, top)
}

func TestLeaderboard_AddGoldSkipsUnknownMembers(t *testing.T) {
	mr, rdb := newRedis(t)
	mock, repo, _ := newMock(t)
	lb := NewLeaderboard(rdb, repo)
	ctx := context.Background()

	expectGold(mock, [2]any{"a@x.io", 20})
	require.NoError(t, lb.Rebuild(ctx))
	require.NoError(t, lb.AddGold(ctx, []string{"a@x.io", "ghost@x.io"}, 10))

	score, err := mr.ZScore(LeaderboardKey, "a@x.io")
	require.NoError(t, err)
	assert.Equal(t, float64(30), score)
	_, err = mr.ZScore(LeaderboardKey, "ghost@x.io")
	assert.Error(t, err)
}

func TestLeaderboard_WithoutRedis(t *testing.T) {
	lb := NewLeaderboard(nil, nil)
	assert.NoError(t, lb.SetGold(context.Background(), "a@x.io", 1))
	assert.NoError(t, lb.AddGold(context.Background(), []string{"a@x.io"}, 1))
	top, err := lb.Top(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, top)
}

func TestLeaderboard_RebuildWithoutRedis(t *testing.T) {
	assert.NoError(t, NewLeaderboard(nil, nil).Rebuild(context.Background()))
}
