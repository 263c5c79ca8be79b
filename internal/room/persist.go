package room

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/chatter-pad/internal/model"
)

// Store is the durable side of the room. Every call may fail with a
// transient I/O error; the room logs such failures and keeps going.
type Store interface {
	GetParticipant(ctx context.Context, email string) (model.Participant, error)
	UpsertParticipant(ctx context.Context, email string, patch model.ParticipantPatch) error
	AppendChatMessage(ctx context.Context, msg model.ChatMessage) error
	ListChatMessages(ctx context.Context, limit int) ([]model.ChatMessage, error)
	ListPresentParticipants(ctx context.Context) ([]model.Participant, error)
	IncrementCurrency(ctx context.Context, emails []string, amount int64) error
}

// Scoreboard mirrors balances into the leaderboard.
type Scoreboard interface {
	SetGold(ctx context.Context, email string, gold int64) error
	AddGold(ctx context.Context, emails []string, amount int64) error
}

// ActivitySink receives notable room events for the activity feed.
type ActivitySink interface {
	Publish(ctx context.Context, a Activity) error
}

// WriteQueue accepts write-through operations without blocking.
type WriteQueue interface {
	Enqueue(w Write) bool
}

// Persister applies queued writes on a single worker so that writes for the
// same participant reach storage in the order the room produced them.
type Persister struct {
	store    Store
	board    Scoreboard
	activity ActivitySink
	queue    chan Write
	timeout  time.Duration
	log      *logrus.Entry
}

// NewPersister returns a persister with a queue of size entries. board and
// activity may be nil.
func NewPersister(store Store, board Scoreboard, activity ActivitySink, size int) *Persister {
	if size <= 0 {
		size = 1024
	}
	return &Persister{
		store:    store,
		board:    board,
		activity: activity,
		queue:    make(chan Write, size),
		timeout:  5 * time.Second,
		log:      logrus.WithField("component", "persister"),
	}
}

// Enqueue queues w. It never blocks: when the queue is full the write is
// dropped and a later write for the same fields supersedes it.
func (p *Persister) Enqueue(w Write) bool {
	select {
	case p.queue <- w:
		return true
	default:
		p.log.WithFields(logrus.Fields{"kind": w.Kind, "identity": w.Identity}).Warn("write queue full, dropping write")
		return false
	}
}

// Run drains the queue until ctx is cancelled, then flushes what is left.
func (p *Persister) Run(ctx context.Context) error {
	p.log.Info("persister running")
	for {
		select {
		case <-ctx.Done():
			p.drain()
			return ctx.Err()
		case w := <-p.queue:
			p.apply(w)
		}
	}
}

func (p *Persister) drain() {
	for {
		select {
		case w := <-p.queue:
			p.apply(w)
		default:
			return
		}
	}
}

func (p *Persister) apply(w Write) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	logCtx := p.log.WithFields(logrus.Fields{"kind": w.Kind, "identity": w.Identity})

	var err error
	switch w.Kind {
	case WriteParticipant:
		err = p.store.UpsertParticipant(ctx, w.Identity, w.Patch)
		if err == nil && w.Patch.Gold != nil && p.board != nil {
			if berr := p.board.SetGold(ctx, w.Identity, *w.Patch.Gold); berr != nil {
				logCtx.WithError(berr).Debug("leaderboard update failed")
			}
		}
	case WriteChat:
		err = p.store.AppendChatMessage(ctx, w.Chat)
	case WriteCurrency:
		err = p.store.IncrementCurrency(ctx, w.Identities, w.Amount)
		if err == nil && p.board != nil {
			if berr := p.board.AddGold(ctx, w.Identities, w.Amount); berr != nil {
				logCtx.WithError(berr).Debug("leaderboard update failed")
			}
		}
	case WriteActivity:
		if p.activity != nil {
			err = p.activity.Publish(ctx, w.Activity)
		}
	default:
		logCtx.Warn("unknown write kind")
		return
	}
	if err != nil {
		logCtx.WithError(err).Warn("write-through failed")
	}
}
