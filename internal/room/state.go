package room

import (
	"cmp"
	"slices"
	"time"

	"github.com/samber/lo"

	"github.com/iliyamo/chatter-pad/internal/model"
)

// Options tunes a room. Zero values fall back to the defaults below.
type Options struct {
	TickAmount      int64
	DrinkCost       int64
	ChatHistory     int
	MaxChatLength   int
	LeaderboardSize int
}

const (
	defaultTickAmount      = 10
	defaultDrinkCost       = 5
	defaultChatHistory     = 100
	defaultMaxChatLength   = 500
	defaultLeaderboardSize = 5
	maxColorLength         = 64
)

func (o Options) withDefaults() Options {
	if o.TickAmount <= 0 {
		o.TickAmount = defaultTickAmount
	}
	if o.DrinkCost <= 0 {
		o.DrinkCost = defaultDrinkCost
	}
	if o.ChatHistory <= 0 {
		o.ChatHistory = defaultChatHistory
	}
	if o.MaxChatLength <= 0 {
		o.MaxChatLength = defaultMaxChatLength
	}
	if o.LeaderboardSize <= 0 {
		o.LeaderboardSize = defaultLeaderboardSize
	}
	return o
}

type member struct {
	model.Participant
	conns int
}

func (m *member) present() bool { return m.conns > 0 }

// State is the authoritative in-memory view of one room. It has no lock of
// its own and performs no I/O; Room owns the mutex around it.
type State struct {
	opts     Options
	now      func() time.Time
	ledger   *Ledger
	members  map[string]*member
	chat     []model.ChatMessage
	lastChat time.Time
}

// NewState returns an empty room state. now supplies message timestamps.
func NewState(opts Options, now func() time.Time) *State {
	if now == nil {
		now = time.Now
	}
	return &State{
		opts:    opts.withDefaults(),
		now:     now,
		ledger:  NewLedger(),
		members: make(map[string]*member),
	}
}

// Ledger exposes the occupancy ledger.
func (s *State) Ledger() *Ledger { return s.ledger }

// Participant returns the in-memory record for identity.
func (s *State) Participant(identity string) (model.Participant, bool) {
	m, ok := s.members[identity]
	if !ok {
		return model.Participant{}, false
	}
	return m.Participant, true
}

// Present reports whether identity has an open connection.
func (s *State) Present(identity string) bool {
	m, ok := s.members[identity]
	return ok && m.present()
}

// PresentIdentities lists present identities in sorted order.
func (s *State) PresentIdentities() []string {
	ids := lo.FilterMap(lo.Values(s.members), func(m *member, _ int) (string, bool) {
		return m.Email, m.present()
	})
	slices.Sort(ids)
	return ids
}

// ensure loads p into the state unless a record is already held, which
// stays authoritative.
func (s *State) ensure(p model.Participant) *member {
	if m, ok := s.members[p.Email]; ok {
		return m
	}
	m := &member{Participant: p}
	s.members[p.Email] = m
	return m
}

// appendChat stores a message with a timestamp that never goes backwards.
func (s *State) appendChat(from, text string) model.ChatMessage {
	ts := s.now().UTC()
	if ts.Before(s.lastChat) {
		ts = s.lastChat
	}
	s.lastChat = ts
	msg := model.ChatMessage{From: from, Text: text, Timestamp: ts}
	s.chat = append(s.chat, msg)
	if over := len(s.chat) - s.opts.ChatHistory; over > 0 {
		s.chat = slices.Clone(s.chat[over:])
	}
	return msg
}

// loadChat seeds the history buffer from storage, oldest first. A stored
// timestamp earlier than its predecessor is raised to the predecessor's.
func (s *State) loadChat(msgs []model.ChatMessage) {
	if over := len(msgs) - s.opts.ChatHistory; over > 0 {
		msgs = msgs[over:]
	}
	s.chat = slices.Clone(msgs)
	for i := range s.chat {
		if s.chat[i].Timestamp.Before(s.lastChat) {
			s.chat[i].Timestamp = s.lastChat
		}
		s.lastChat = s.chat[i].Timestamp
	}
}

// ChatHistory returns the buffered messages in chronological order.
func (s *State) ChatHistory() []model.ChatMessage {
	return slices.Clone(s.chat)
}

func (s *State) occupancy() OccupancyPayload {
	counts := s.ledger.Counts()
	tables := make(map[Place]int, len(counts)-1)
	for p, n := range counts {
		if p != Bar {
			tables[p] = n
		}
	}
	return OccupancyPayload{Tables: tables, Bar: counts[Bar]}
}

// Players returns every present participant, sorted by identity.
func (s *State) Players() []PlayerView {
	return lo.Map(s.PresentIdentities(), func(id string, _ int) PlayerView {
		m := s.members[id]
		v := PlayerView{Email: m.Email, Position: m.Position, Color: m.Color, Gold: m.Gold}
		if seat, ok := s.ledger.Held(id); ok {
			v.Seat = &seat
		}
		return v
	})
}

// Leaderboard ranks present participants by balance.
func (s *State) Leaderboard() []LeaderEntry {
	entries := lo.Map(s.PresentIdentities(), func(id string, _ int) LeaderEntry {
		return LeaderEntry{Email: id, Gold: s.members[id].Gold}
	})
	slices.SortStableFunc(entries, func(a, b LeaderEntry) int {
		return cmp.Compare(b.Gold, a.Gold)
	})
	if len(entries) > s.opts.LeaderboardSize {
		entries = entries[:s.opts.LeaderboardSize]
	}
	return entries
}

// Snapshot builds the init payload for identity.
func (s *State) Snapshot(identity string) InitPayload {
	data := RoomData{
		Occupancy:   s.occupancy(),
		Leaderboard: s.Leaderboard(),
	}
	if m, ok := s.members[identity]; ok {
		data.Gold = m.Gold
		data.Color = m.Color
		data.Position = m.Position
		if seat, ok := s.ledger.Held(identity); ok {
			data.Seat = &seat
		}
	}
	return InitPayload{
		RoomData:     data,
		Players:      s.Players(),
		ChatMessages: s.ChatHistory(),
		ServerTime:   s.now().UTC(),
	}
}
