package room

import (
	"time"

	"github.com/iliyamo/chatter-pad/internal/model"
)

// Recipient selects which connections receive an outbound event.
type Recipient int

const (
	ToOthers   Recipient = iota // every open connection except the sender's
	ToSender                    // the sending connection only
	ToAll                       // every open connection
	ToIdentity                  // every connection of Outbound.Identity
)

// Outbound is one event to deliver after a state change.
type Outbound struct {
	To       Recipient
	Identity string
	Event    Event
}

// WriteKind tags a write-through operation.
type WriteKind int

const (
	WriteParticipant WriteKind = iota + 1
	WriteChat
	WriteCurrency
	WriteActivity
)

// Write is a persistence side effect queued behind the realtime path.
type Write struct {
	Kind       WriteKind
	Identity   string
	Patch      model.ParticipantPatch
	Chat       model.ChatMessage
	Identities []string
	Amount     int64
	Activity   Activity
}

// Activity kinds published to the activity feed.
const (
	ActivityJoined = "joined"
	ActivityLeft   = "left"
	ActivityChat   = "chat"
	ActivityDrink  = "drink"
	ActivitySeated = "seated"
)

// Activity is a notable room event for the external activity feed.
type Activity struct {
	Kind     string    `json:"kind"`
	Identity string    `json:"identity"`
	Text     string    `json:"text,omitempty"`
	Gold     int64     `json:"gold,omitempty"`
	Place    Place     `json:"place,omitempty"`
	At       time.Time `json:"at"`
}

// Outcome is what a handler produced: events to deliver and writes to queue.
type Outcome struct {
	Out    []Outbound
	Writes []Write
}

func (o *Outcome) send(to Recipient, ev Event) {
	o.Out = append(o.Out, Outbound{To: to, Event: ev})
}

func (o *Outcome) sendTo(identity string, ev Event) {
	o.Out = append(o.Out, Outbound{To: ToIdentity, Identity: identity, Event: ev})
}

func (o *Outcome) patch(identity string, p model.ParticipantPatch) {
	o.Writes = append(o.Writes, Write{Kind: WriteParticipant, Identity: identity, Patch: p})
}

func (o *Outcome) activity(a Activity) {
	o.Writes = append(o.Writes, Write{Kind: WriteActivity, Identity: a.Identity, Activity: a})
}
