package room

import (
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/chatter-pad/internal/model"
)

// handlerFunc applies one client event to the state. It performs no I/O and
// returns the events to deliver and the writes to queue. A returned error
// may still come with an Outcome (a rejection notice for the sender).
type handlerFunc func(s *State, from string, ev Event) (Outcome, error)

// dispatch maps client-originated event types to their handlers. Server-only
// types (goldUpdate, system, occupancy, rejected) are absent and therefore
// dropped as malformed when a client sends them.
var dispatch = map[EventType]handlerFunc{
	EventInit:        handleInit,
	EventMove:        handleMove,
	EventChat:        handleChat,
	EventColorChange: handleColorChange,
	EventBuyDrink:    handleBuyDrink,
	EventSit:         handleSit,
	EventStand:       handleStand,
}

// Apply runs the handler registered for ev.Type on behalf of from. The
// event's From is overwritten with the admitted identity.
func (s *State) Apply(from string, ev Event) (Outcome, error) {
	h, ok := dispatch[ev.Type]
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %q is not a client event", ErrMalformedEvent, ev.Type)
	}
	if !s.Present(from) {
		return Outcome{}, ErrNotPresent
	}
	ev.From = from
	return h(s, from, ev)
}

func handleInit(s *State, from string, _ Event) (Outcome, error) {
	var out Outcome
	out.send(ToSender, mustEvent(from, EventInit, s.Snapshot(from)))
	return out, nil
}

func handleMove(s *State, from string, ev Event) (Outcome, error) {
	var pos model.Position
	if err := ev.decodePayload(&pos); err != nil {
		return Outcome{}, err
	}
	var out Outcome
	m := s.members[from]
	m.Position = pos
	out.send(ToOthers, mustEvent(from, EventMove, pos))
	if _, ok := s.ledger.Vacate(from); ok {
		out.send(ToAll, mustEvent("", EventOccupancy, s.occupancy()))
	}
	out.patch(from, model.ParticipantPatch{Position: &pos})
	return out, nil
}

func handleChat(s *State, from string, ev Event) (Outcome, error) {
	var p ChatPayload
	if err := ev.decodePayload(&p); err != nil {
		return Outcome{}, err
	}
	msg, err := s.chatMessage(from, p.Text)
	if err != nil {
		return Outcome{}, err
	}
	var out Outcome
	out.send(ToOthers, mustEvent(from, EventChat, ChatPayload{Text: msg.Text}))
	out.Writes = append(out.Writes, Write{Kind: WriteChat, Identity: from, Chat: msg})
	out.activity(Activity{Kind: ActivityChat, Identity: from, Text: msg.Text, At: msg.Timestamp})
	return out, nil
}

// chatMessage validates text and appends it to the history.
func (s *State) chatMessage(from, text string) (model.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.ChatMessage{}, fmt.Errorf("%w: empty chat text", ErrMalformedEvent)
	}
	if len([]rune(text)) > s.opts.MaxChatLength {
		return model.ChatMessage{}, fmt.Errorf("%w: chat text longer than %d", ErrMalformedEvent, s.opts.MaxChatLength)
	}
	return s.appendChat(from, text), nil
}

func handleColorChange(s *State, from string, ev Event) (Outcome, error) {
	var color string
	if err := ev.decodePayload(&color); err != nil {
		return Outcome{}, err
	}
	color, err := validColor(color)
	if err != nil {
		return Outcome{}, err
	}
	s.members[from].Color = color
	var out Outcome
	out.send(ToOthers, mustEvent(from, EventColorChange, color))
	out.patch(from, model.ParticipantPatch{Color: &color})
	return out, nil
}

func validColor(color string) (string, error) {
	color = strings.TrimSpace(color)
	if color == "" || len(color) > maxColorLength {
		return "", fmt.Errorf("%w: invalid color", ErrMalformedEvent)
	}
	return color, nil
}

func handleBuyDrink(s *State, from string, _ Event) (Outcome, error) {
	m := s.members[from]
	if m.Gold < s.opts.DrinkCost {
		return rejected(from, EventBuyDrink, ErrInsufficientFunds), ErrInsufficientFunds
	}
	m.Gold -= s.opts.DrinkCost
	gold := m.Gold
	var out Outcome
	out.sendTo(from, mustEvent(from, EventGoldUpdate, gold))
	out.patch(from, model.ParticipantPatch{Gold: &gold})
	out.activity(Activity{Kind: ActivityDrink, Identity: from, Gold: gold, At: s.now().UTC()})
	return out, nil
}

func handleSit(s *State, from string, ev Event) (Outcome, error) {
	var p SitPayload
	if err := ev.decodePayload(&p); err != nil {
		return Outcome{}, err
	}
	if cur, ok := s.ledger.Held(from); ok && cur.Place == p.Place {
		var out Outcome
		out.send(ToSender, mustEvent(from, EventSit, cur))
		return out, nil
	}
	var (
		seat Seat
		err  error
	)
	if p.Place == Bar {
		seat, err = s.ledger.SitAtBar(from)
	} else {
		seat, err = s.ledger.SitAtTable(from, p.Place)
	}
	switch {
	case errors.Is(err, ErrSeatFull):
		return rejected(from, EventSit, err), err
	case errors.Is(err, ErrUnknownTable):
		return Outcome{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	case err != nil:
		return Outcome{}, err
	}

	pos := seat.Position
	s.members[from].Position = pos
	var out Outcome
	out.send(ToAll, mustEvent(from, EventSit, seat))
	out.send(ToAll, mustEvent("", EventOccupancy, s.occupancy()))
	out.patch(from, model.ParticipantPatch{Position: &pos})
	out.activity(Activity{Kind: ActivitySeated, Identity: from, Place: seat.Place, At: s.now().UTC()})
	return out, nil
}

func handleStand(s *State, from string, _ Event) (Outcome, error) {
	var out Outcome
	if _, ok := s.ledger.Vacate(from); ok {
		out.send(ToAll, mustEvent(from, EventStand, nil))
		out.send(ToAll, mustEvent("", EventOccupancy, s.occupancy()))
	}
	return out, nil
}

func rejected(from string, action EventType, reason error) Outcome {
	var out Outcome
	out.send(ToSender, mustEvent(from, EventRejected, RejectedPayload{Action: action, Reason: reason.Error()}))
	return out
}
