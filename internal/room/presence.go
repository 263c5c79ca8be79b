package room

import (
	"fmt"

	"github.com/iliyamo/chatter-pad/internal/model"
)

// join counts one more connection for p.Email. The first connection flips
// the participant to present and announces it; every connection gets its
// own init snapshot.
func (s *State) join(p model.Participant) Outcome {
	m := s.ensure(p)
	m.conns++
	var out Outcome
	if m.conns == 1 {
		m.LoggedIn = true
		gold, color, pos, in := m.Gold, m.Color, m.Position, true
		out.patch(m.Email, model.ParticipantPatch{Gold: &gold, Color: &color, Position: &pos, LoggedIn: &in})
		out.send(ToOthers, mustEvent(m.Email, EventMove, pos))
		out.send(ToOthers, mustEvent(m.Email, EventColorChange, color))
		out.send(ToOthers, mustEvent("", EventSystem, SystemPayload{Text: fmt.Sprintf("%s joined the room", m.Email)}))
		out.activity(Activity{Kind: ActivityJoined, Identity: m.Email, Gold: gold, At: s.now().UTC()})
	}
	out.send(ToSender, mustEvent(m.Email, EventInit, s.Snapshot(m.Email)))
	return out
}

// leave drops one connection of identity. When the last one closes the
// participant becomes absent: its seat is released and it stops earning.
func (s *State) leave(identity string) Outcome {
	var out Outcome
	m, ok := s.members[identity]
	if !ok || m.conns == 0 {
		return out
	}
	m.conns--
	if m.conns > 0 {
		return out
	}
	m.LoggedIn = false
	if _, ok := s.ledger.Vacate(identity); ok {
		out.send(ToAll, mustEvent("", EventOccupancy, s.occupancy()))
	}
	in := false
	out.patch(identity, model.ParticipantPatch{LoggedIn: &in})
	out.send(ToAll, mustEvent("", EventSystem, SystemPayload{Text: fmt.Sprintf("%s left the room", identity)}))
	out.activity(Activity{Kind: ActivityLeft, Identity: identity, At: s.now().UTC()})
	return out
}

// tick grants the configured amount to every present participant. Absent
// participants lingering in memory or storage earn nothing.
func (s *State) tick() Outcome {
	var out Outcome
	ids := s.PresentIdentities()
	if len(ids) == 0 {
		return out
	}
	for _, id := range ids {
		m := s.members[id]
		m.Gold += s.opts.TickAmount
		out.sendTo(id, mustEvent(id, EventGoldUpdate, m.Gold))
	}
	out.Writes = append(out.Writes, Write{Kind: WriteCurrency, Identities: ids, Amount: s.opts.TickAmount})
	return out
}

// postChat stores a message sent outside a realtime connection and relays
// it to every open connection.
func (s *State) postChat(from, text string) (model.ChatMessage, Outcome, error) {
	msg, err := s.chatMessage(from, text)
	if err != nil {
		return model.ChatMessage{}, Outcome{}, err
	}
	var out Outcome
	out.send(ToAll, mustEvent(from, EventChat, ChatPayload{Text: msg.Text}))
	out.Writes = append(out.Writes, Write{Kind: WriteChat, Identity: from, Chat: msg})
	out.activity(Activity{Kind: ActivityChat, Identity: from, Text: msg.Text, At: msg.Timestamp})
	return msg, out, nil
}

// updateProfile merges a color and/or position change made over HTTP.
func (s *State) updateProfile(p model.Participant, color *string, pos *model.Position) (model.Participant, Outcome, error) {
	m := s.ensure(p)
	var (
		out   Outcome
		patch model.ParticipantPatch
	)
	if color != nil {
		c, err := validColor(*color)
		if err != nil {
			return model.Participant{}, Outcome{}, err
		}
		m.Color = c
		patch.Color = &c
		out.send(ToAll, mustEvent(m.Email, EventColorChange, c))
	}
	if pos != nil {
		np := *pos
		m.Position = np
		patch.Position = &np
		out.send(ToAll, mustEvent(m.Email, EventMove, np))
		if _, ok := s.ledger.Vacate(m.Email); ok {
			out.send(ToAll, mustEvent("", EventOccupancy, s.occupancy()))
		}
	}
	if !patch.Empty() {
		out.patch(m.Email, patch)
	}
	return m.Participant, out, nil
}
