package room

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/chatter-pad/internal/model"
)

// recorder is an in-memory Broadcaster keyed by connection id.
type recorder struct {
	mu    sync.Mutex
	conns map[string]string
	got   map[string][]Event
}

func newRecorder() *recorder {
	return &recorder{conns: make(map[string]string), got: make(map[string][]Event)}
}

func (r *recorder) connect(connID, identity string) {
	r.mu.Lock()
	r.conns[connID] = identity
	r.mu.Unlock()
}

func (r *recorder) disconnect(connID string) {
	r.mu.Lock()
	delete(r.conns, connID)
	r.mu.Unlock()
}

func (r *recorder) push(connID string, msg []byte) {
	var ev Event
	if err := json.Unmarshal(msg, &ev); err != nil {
		panic(err)
	}
	r.got[connID] = append(r.got[connID], ev)
}

func (r *recorder) Send(connID string, msg []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[connID]; ok {
		r.push(connID, msg)
	}
}

func (r *recorder) Broadcast(msg []byte, except string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id := range r.conns {
		if id != except {
			r.push(id, msg)
		}
	}
}

func (r *recorder) SendToIdentity(identity string, msg []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, who := range r.conns {
		if who == identity {
			r.push(id, msg)
		}
	}
}

// events returns what connID received, optionally filtered by type.
func (r *recorder) events(connID string, types ...EventType) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(types) == 0 {
		return append([]Event(nil), r.got[connID]...)
	}
	var out []Event
	for _, ev := range r.got[connID] {
		for _, t := range types {
			if ev.Type == t {
				out = append(out, ev)
			}
		}
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	r.got = make(map[string][]Event)
	r.mu.Unlock()
}

// writeLog is a WriteQueue that keeps every write.
type writeLog struct {
	mu     sync.Mutex
	writes []Write
}

func (w *writeLog) Enqueue(wr Write) bool {
	w.mu.Lock()
	w.writes = append(w.writes, wr)
	w.mu.Unlock()
	return true
}

func (w *writeLog) kinds(k WriteKind) []Write {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []Write
	for _, wr := range w.writes {
		if wr.Kind == k {
			out = append(out, wr)
		}
	}
	return out
}

// memStore is a Store backed by maps.
type memStore struct {
	mu           sync.Mutex
	participants map[string]model.Participant
	chat         []model.ChatMessage
	err          error
}

func newMemStore() *memStore {
	return &memStore{participants: make(map[string]model.Participant)}
}

func (s *memStore) GetParticipant(_ context.Context, email string) (model.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return model.Participant{}, s.err
	}
	p, ok := s.participants[email]
	if !ok {
		return model.Participant{}, ErrUnknownParticipant
	}
	return p, nil
}

func (s *memStore) UpsertParticipant(_ context.Context, email string, patch model.ParticipantPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participants[email]
	if !ok {
		p = model.NewParticipant(email)
	}
	s.participants[email] = patch.Apply(p)
	return s.err
}

func (s *memStore) AppendChatMessage(_ context.Context, msg model.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chat = append(s.chat, msg)
	return s.err
}

func (s *memStore) ListChatMessages(_ context.Context, limit int) ([]model.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.chat
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return append([]model.ChatMessage(nil), msgs...), s.err
}

func (s *memStore) ListPresentParticipants(_ context.Context) ([]model.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Participant
	for _, p := range s.participants {
		if p.LoggedIn {
			out = append(out, p)
		}
	}
	return out, s.err
}

func (s *memStore) IncrementCurrency(_ context.Context, emails []string, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range emails {
		p := s.participants[e]
		p.Gold += amount
		s.participants[e] = p
	}
	return s.err
}

type fixture struct {
	room   *Room
	out    *recorder
	writes *writeLog
	store  *memStore
}

var epoch = time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{out: newRecorder(), writes: &writeLog{}, store: newMemStore()}
	clock := func() time.Time { return epoch }
	f.room = New(NewState(Options{}, clock), f.store, f.writes)
	f.room.Attach(f.out)
	return f
}

// join admits identity on connID the way the hub does: the connection is
// registered with the transport first, then with the room.
func (f *fixture) join(connID, identity string) {
	f.out.connect(connID, identity)
	f.room.Admit(context.Background(), connID, identity)
}

func (f *fixture) leave(connID string) {
	f.out.disconnect(connID)
	f.room.Remove(connID)
}

func (f *fixture) send(t *testing.T, connID string, typ EventType, payload any) error {
	t.Helper()
	ev, err := NewEvent("", typ, payload)
	require.NoError(t, err)
	raw, err := ev.Encode()
	require.NoError(t, err)
	return f.room.Handle(connID, raw)
}

func (f *fixture) participant(t *testing.T, identity string) model.Participant {
	t.Helper()
	f.room.mu.Lock()
	defer f.room.mu.Unlock()
	p, ok := f.room.state.Participant(identity)
	require.True(t, ok, "participant %s not loaded", identity)
	return p
}
