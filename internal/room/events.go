package room

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/iliyamo/chatter-pad/internal/model"
)

// EventType tags a RoomEvent on the wire.
type EventType string

const (
	EventInit        EventType = "init"
	EventMove        EventType = "move"
	EventChat        EventType = "chat"
	EventColorChange EventType = "colorChange"
	EventGoldUpdate  EventType = "goldUpdate"
	EventBuyDrink    EventType = "buyDrink"
	EventSystem      EventType = "system"
	EventSit         EventType = "sit"
	EventStand       EventType = "stand"
	EventOccupancy   EventType = "occupancy"
	EventRejected    EventType = "rejected"
)

var knownTypes = map[EventType]bool{
	EventInit: true, EventMove: true, EventChat: true, EventColorChange: true,
	EventGoldUpdate: true, EventBuyDrink: true, EventSystem: true, EventSit: true,
	EventStand: true, EventOccupancy: true, EventRejected: true,
}

// Event is the unit of realtime communication, JSON encoded one per frame:
//
//	{"from": "a@b.c", "type": "move", "payload": {"x": 1, "y": 2}}
type Event struct {
	From    string          `json:"from"`
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// DecodeEvent parses one inbound frame. Any failure wraps ErrMalformedEvent.
func DecodeEvent(raw []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if !knownTypes[ev.Type] {
		return Event{}, fmt.Errorf("%w: unknown type %q", ErrMalformedEvent, ev.Type)
	}
	return ev, nil
}

// NewEvent builds an event with payload marshalled to JSON.
func NewEvent(from string, t EventType, payload any) (Event, error) {
	ev := Event{From: from, Type: t}
	if payload == nil {
		return ev, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	ev.Payload = b
	return ev, nil
}

func mustEvent(from string, t EventType, payload any) Event {
	ev, err := NewEvent(from, t, payload)
	if err != nil {
		// payload types below are plain structs, maps and scalars
		panic(fmt.Sprintf("room: encode %s payload: %v", t, err))
	}
	return ev
}

// Encode returns the wire form of ev.
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// decodePayload unmarshals the payload into v, wrapping ErrMalformedEvent.
func (e Event) decodePayload(v any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("%w: %s without payload", ErrMalformedEvent, e.Type)
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("%w: %s payload: %v", ErrMalformedEvent, e.Type, err)
	}
	return nil
}

// ChatPayload is the body of a chat event.
type ChatPayload struct {
	Text string `json:"text"`
}

// SitPayload asks for a seat at a table or the bar.
type SitPayload struct {
	Place Place `json:"place"`
}

// SystemPayload carries a server notice.
type SystemPayload struct {
	Text string `json:"text"`
}

// RejectedPayload tells a requester that its action changed nothing.
type RejectedPayload struct {
	Action EventType `json:"action"`
	Reason string    `json:"reason"`
}

// OccupancyPayload reports seat counts per place.
type OccupancyPayload struct {
	Tables map[Place]int `json:"tables"`
	Bar    int           `json:"bar"`
}

// PlayerView is one present participant as seen by other clients.
type PlayerView struct {
	Email    string         `json:"email"`
	Position model.Position `json:"position"`
	Color    string         `json:"color"`
	Gold     int64          `json:"gold"`
	Seat     *Seat          `json:"seat,omitempty"`
}

// RoomData is the requester's own state plus aggregate room figures.
type RoomData struct {
	Gold        int64            `json:"gold"`
	Color       string           `json:"color"`
	Position    model.Position   `json:"position"`
	Seat        *Seat            `json:"seat,omitempty"`
	Occupancy   OccupancyPayload `json:"occupancy"`
	Leaderboard []LeaderEntry    `json:"leaderboard"`
}

// LeaderEntry is one row of the currency leaderboard.
type LeaderEntry struct {
	Email string `json:"email"`
	Gold  int64  `json:"gold"`
}

// InitPayload is the snapshot sent to a newly admitted connection.
type InitPayload struct {
	RoomData     RoomData            `json:"roomData"`
	Players      []PlayerView        `json:"players"`
	ChatMessages []model.ChatMessage `json:"chatMessages"`
	ServerTime   time.Time           `json:"serverTime"`
}
