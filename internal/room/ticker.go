package room

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Granter is what the currency ticker pays through.
type Granter interface {
	Tick() int
}

// CurrencyTicker grants currency to present participants once per interval.
// A late wake-up still pays exactly one grant per whole interval elapsed
// since the last grant: ticks are delayed, never dropped or doubled.
type CurrencyTicker struct {
	room     Granter
	interval time.Duration
	now      func() time.Time
	last     time.Time
	log      *logrus.Entry
}

// NewCurrencyTicker returns a ticker paying through room every interval.
func NewCurrencyTicker(room Granter, interval time.Duration, now func() time.Time) *CurrencyTicker {
	if now == nil {
		now = time.Now
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &CurrencyTicker{
		room:     room,
		interval: interval,
		now:      now,
		last:     now(),
		log:      logrus.WithField("component", "currency_ticker"),
	}
}

// Run wakes every interval until ctx is cancelled.
func (t *CurrencyTicker) Run(ctx context.Context) error {
	t.log.WithField("interval", t.interval).Info("currency ticker running")
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n := t.CatchUp(); n > 1 {
				t.log.WithField("grants", n).Warn("currency tick was late, caught up")
			}
		}
	}
}

// CatchUp applies one grant per whole interval elapsed since the last grant
// and returns the number of grants applied.
func (t *CurrencyTicker) CatchUp() int {
	elapsed := t.now().Sub(t.last)
	n := int(elapsed / t.interval)
	for i := 0; i < n; i++ {
		paid := t.room.Tick()
		t.log.WithField("paid", paid).Debug("currency tick")
	}
	t.last = t.last.Add(time.Duration(n) * t.interval)
	return n
}
