package room

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/chatter-pad/internal/model"
)

// Broadcaster delivers encoded events to open connections. Implementations
// must not block: Room calls them while holding its lock.
type Broadcaster interface {
	Send(connID string, msg []byte)
	Broadcast(msg []byte, exceptConnID string)
	SendToIdentity(identity string, msg []byte)
}

// Room owns the state of one room and the presence registry mapping open
// connections to identities. Every mutation happens under mu, and the
// resulting events are queued to connections before mu is released, so
// observers never see occupancy or balances out of order.
type Room struct {
	mu     sync.Mutex
	state  *State
	conns  map[string]string // connection id -> identity
	out    Broadcaster
	writes WriteQueue
	store  Store
	log    *logrus.Entry
}

// New returns a room around state. store is used for reads on admission;
// writes go through the queue.
func New(state *State, store Store, writes WriteQueue) *Room {
	return &Room{
		state:  state,
		conns:  make(map[string]string),
		writes: writes,
		store:  store,
		log:    logrus.WithField("component", "room"),
	}
}

// Attach sets the broadcaster. It must be called before connections are
// admitted.
func (r *Room) Attach(b Broadcaster) {
	r.mu.Lock()
	r.out = b
	r.mu.Unlock()
}

// Restore reloads recent chat history and clears presence flags left over
// from a previous process. Failures are returned for logging; the room is
// usable either way.
func (r *Room) Restore(ctx context.Context) error {
	msgs, err := r.store.ListChatMessages(ctx, r.state.opts.ChatHistory)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.state.loadChat(msgs)
	r.mu.Unlock()

	stale, err := r.store.ListPresentParticipants(ctx)
	if err != nil {
		return err
	}
	in := false
	for _, p := range stale {
		if err := r.store.UpsertParticipant(ctx, p.Email, model.ParticipantPatch{LoggedIn: &in}); err != nil {
			return err
		}
	}
	r.log.WithFields(logrus.Fields{"chat": len(msgs), "stale_presence": len(stale)}).Info("room restored")
	return nil
}

// load returns the stored record for identity, or defaults for a newcomer
// or when storage is unavailable.
func (r *Room) load(ctx context.Context, identity string) model.Participant {
	r.mu.Lock()
	p, ok := r.state.Participant(identity)
	r.mu.Unlock()
	if ok {
		return p
	}
	p, err := r.store.GetParticipant(ctx, identity)
	switch {
	case err == nil:
		p.Email = identity
		return p
	case errors.Is(err, ErrUnknownParticipant):
	default:
		r.log.WithError(err).WithField("identity", identity).Warn("load participant failed, using defaults")
	}
	return model.NewParticipant(identity)
}

// Admit registers connection connID for identity, marks the participant
// present and sends it an init snapshot.
func (r *Room) Admit(ctx context.Context, connID, identity string) {
	p := r.load(ctx, identity)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[connID] = identity
	r.commit(connID, r.state.join(p))
	r.log.WithFields(logrus.Fields{"conn_id": connID, "identity": identity}).Info("connection admitted")
}

// Remove unregisters connID. It is idempotent.
func (r *Room) Remove(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	identity, ok := r.conns[connID]
	if !ok {
		return
	}
	delete(r.conns, connID)
	r.commit(connID, r.state.leave(identity))
	r.log.WithFields(logrus.Fields{"conn_id": connID, "identity": identity}).Info("connection removed")
}

// Handle decodes and applies one inbound frame from connID. The returned
// error is informational: malformed frames are dropped and rejections have
// already been delivered to the sender.
func (r *Room) Handle(connID string, raw []byte) error {
	ev, err := DecodeEvent(raw)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	identity, ok := r.conns[connID]
	if !ok {
		return ErrNotPresent
	}
	out, err := r.state.Apply(identity, ev)
	r.commit(connID, out)
	return err
}

// Tick grants one currency increment to every present participant and
// returns how many were paid.
func (r *Room) Tick() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.state.tick()
	r.commit("", out)
	if len(out.Writes) == 0 {
		return 0
	}
	return len(out.Writes[0].Identities)
}

// PostChat appends a chat message sent over HTTP and relays it to every
// open connection.
func (r *Room) PostChat(identity, text string) (model.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg, out, err := r.state.postChat(identity, text)
	if err != nil {
		return model.ChatMessage{}, err
	}
	r.commit("", out)
	return msg, nil
}

// UpdateProfile merges color and position changes for identity.
func (r *Room) UpdateProfile(ctx context.Context, identity string, color *string, pos *model.Position) (model.Participant, error) {
	p := r.load(ctx, identity)
	r.mu.Lock()
	defer r.mu.Unlock()
	updated, out, err := r.state.updateProfile(p, color, pos)
	if err != nil {
		return model.Participant{}, err
	}
	r.commit("", out)
	return updated, nil
}

// Lookup returns the authoritative record for identity.
func (r *Room) Lookup(ctx context.Context, identity string) model.Participant {
	return r.load(ctx, identity)
}

// Logout returns the connections held by identity so the transport can
// close them. When none are open the stored presence flag is cleared here.
func (r *Room) Logout(identity string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for connID, who := range r.conns {
		if who == identity {
			ids = append(ids, connID)
		}
	}
	if len(ids) == 0 && r.writes != nil {
		in := false
		r.writes.Enqueue(Write{Kind: WriteParticipant, Identity: identity, Patch: model.ParticipantPatch{LoggedIn: &in}})
	}
	return ids
}

// Players returns present participants.
func (r *Room) Players() []PlayerView {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Players()
}

// ChatHistory returns buffered chat messages, oldest first.
func (r *Room) ChatHistory() []model.ChatMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.ChatHistory()
}

// Occupancy returns seat counts per place.
func (r *Room) Occupancy() OccupancyPayload {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.occupancy()
}

// commit delivers out and queues its writes. Callers hold mu.
func (r *Room) commit(senderConn string, out Outcome) {
	if r.out != nil {
		for _, o := range out.Out {
			msg, err := o.Event.Encode()
			if err != nil {
				r.log.WithError(err).WithField("type", o.Event.Type).Error("encode event failed")
				continue
			}
			switch o.To {
			case ToSender:
				if senderConn != "" {
					r.out.Send(senderConn, msg)
				}
			case ToOthers:
				r.out.Broadcast(msg, senderConn)
			case ToAll:
				r.out.Broadcast(msg, "")
			case ToIdentity:
				r.out.SendToIdentity(o.Identity, msg)
			}
		}
	}
	if r.writes != nil {
		for _, w := range out.Writes {
			r.writes.Enqueue(w)
		}
	}
}
