package repository

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/chatter-pad/internal/model"
	"github.com/iliyamo/chatter-pad/internal/room"
)

// LeaderboardKey is the Redis sorted set holding balances by email.
// LeaderboardReadyKey marks the set as a complete copy of MySQL; it is
// written only by Rebuild, so a flushed or fresh Redis reads MySQL until
// the next rebuild.
const (
	LeaderboardKey      = "leaderboard:gold"
	LeaderboardReadyKey = "leaderboard:gold:ready"
)

// Leaderboard ranks participants by gold. Balances are mirrored into a Redis
// sorted set by the room's persister; reads fall back to MySQL when Redis
// is not configured, fails, or does not hold a complete copy.
type Leaderboard struct {
	rdb          *redis.Client
	participants *ParticipantRepo
	log          *logrus.Entry
}

// NewLeaderboard returns a leaderboard. rdb may be nil.
func NewLeaderboard(rdb *redis.Client, participants *ParticipantRepo) *Leaderboard {
	return &Leaderboard{
		rdb:          rdb,
		participants: participants,
		log:          logrus.WithField("component", "leaderboard"),
	}
}

// Rebuild replaces the sorted set with every balance stored in MySQL and
// marks it ready. Call it before balances start changing.
func (l *Leaderboard) Rebuild(ctx context.Context) error {
	if l.rdb == nil {
		return nil
	}
	ps, err := l.participants.ListGold(ctx)
	if err != nil {
		return err
	}
	zs := lo.Map(ps, func(p model.Participant, _ int) redis.Z {
		return redis.Z{Score: float64(p.Gold), Member: p.Email}
	})
	_, err = l.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, LeaderboardKey)
		if len(zs) > 0 {
			p.ZAdd(ctx, LeaderboardKey, zs...)
		}
		p.Set(ctx, LeaderboardReadyKey, "1", 0)
		return nil
	})
	if err == nil {
		l.log.WithField("participants", len(zs)).Info("leaderboard rebuilt")
	}
	return err
}

// SetGold records an absolute balance.
func (l *Leaderboard) SetGold(ctx context.Context, email string, gold int64) error {
	if l.rdb == nil {
		return nil
	}
	return l.rdb.ZAdd(ctx, LeaderboardKey, redis.Z{Score: float64(gold), Member: email}).Err()
}

// AddGold adds amount to each listed balance in one round trip. Members
// missing from the set are left out: an increment alone is not a balance.
func (l *Leaderboard) AddGold(ctx context.Context, emails []string, amount int64) error {
	if l.rdb == nil || len(emails) == 0 {
		return nil
	}
	cmds, err := l.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		for _, e := range emails {
			p.ZAddArgsIncr(ctx, LeaderboardKey, redis.ZAddArgs{
				XX:      true,
				Members: []redis.Z{{Score: float64(amount), Member: e}},
			})
		}
		return nil
	})
	if err == nil {
		return nil
	}
	for _, cmd := range cmds {
		if cerr := cmd.Err(); cerr != nil && !errors.Is(cerr, redis.Nil) {
			return cerr
		}
	}
	return nil
}

// Top returns up to limit entries, richest first.
func (l *Leaderboard) Top(ctx context.Context, limit int) ([]room.LeaderEntry, error) {
	if limit <= 0 {
		return []room.LeaderEntry{}, nil
	}
	if l.rdb != nil {
		var ready *redis.IntCmd
		var top *redis.ZSliceCmd
		_, err := l.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
			ready = p.Exists(ctx, LeaderboardReadyKey)
			top = p.ZRevRangeWithScores(ctx, LeaderboardKey, 0, int64(limit-1))
			return nil
		})
		switch {
		case err != nil:
			l.log.WithError(err).Warn("redis leaderboard unavailable, reading mysql")
		case ready.Val() == 1:
			return lo.Map(top.Val(), func(z redis.Z, _ int) room.LeaderEntry {
				email, _ := z.Member.(string)
				return room.LeaderEntry{Email: email, Gold: int64(z.Score)}
			}), nil
		}
	}
	ps, err := l.participants.TopByGold(ctx, limit)
	if err != nil {
		return nil, err
	}
	return lo.Map(ps, func(p model.Participant, _ int) room.LeaderEntry {
		return room.LeaderEntry{Email: p.Email, Gold: p.Gold}
	}), nil
}
