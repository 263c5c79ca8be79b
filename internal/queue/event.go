// Package queue carries room activity over RabbitMQ: the persister publishes
// notable events and a background consumer appends them to a log file.
package queue

import (
	"fmt"
	"time"

	"github.com/iliyamo/chatter-pad/internal/room"
)

// ActivityQueueName is the durable queue activity events are routed to.
const ActivityQueueName = "room.activity"

// ActivityEvent is published for joins, departures, chat messages, drinks
// and seating. It carries enough for downstream consumers to log or feed
// analytics without querying the primary database.
type ActivityEvent struct {
	Kind       string `json:"kind"`
	Identity   string `json:"identity"`
	Text       string `json:"text,omitempty"`
	Gold       int64  `json:"gold,omitempty"`
	Place      string `json:"place,omitempty"`
	OccurredAt string `json:"occurred_at"`
}

// NewActivityEvent converts a room activity into its wire form.
func NewActivityEvent(a room.Activity) ActivityEvent {
	return ActivityEvent{
		Kind:       a.Kind,
		Identity:   a.Identity,
		Text:       a.Text,
		Gold:       a.Gold,
		Place:      string(a.Place),
		OccurredAt: a.At.UTC().Format(time.RFC3339),
	}
}

// Line renders the event as one human-friendly log line.
func (e ActivityEvent) Line() string {
	switch e.Kind {
	case room.ActivityJoined:
		return fmt.Sprintf("[%s] Joined | identity=%s | gold=%d\n", e.OccurredAt, e.Identity, e.Gold)
	case room.ActivityLeft:
		return fmt.Sprintf("[%s] Left | identity=%s\n", e.OccurredAt, e.Identity)
	case room.ActivityChat:
		return fmt.Sprintf("[%s] Chat | identity=%s | text=%q\n", e.OccurredAt, e.Identity, e.Text)
	case room.ActivityDrink:
		return fmt.Sprintf("[%s] Drink bought | identity=%s | gold=%d\n", e.OccurredAt, e.Identity, e.Gold)
	case room.ActivitySeated:
		return fmt.Sprintf("[%s] Seated | identity=%s | place=%s\n", e.OccurredAt, e.Identity, e.Place)
	default:
		return fmt.Sprintf("[%s] %s | identity=%s\n", e.OccurredAt, e.Kind, e.Identity)
	}
}
