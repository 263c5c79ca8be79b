package model

import "time"

// Position is a point in room coordinates. The room is 1500x1200 and an
// avatar's position is its top-left corner.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Participant mirrors the `participants` table: the per-user room state that
// survives a disconnect.
//
// Fields:
//
//	Email    – identity of the owning user (primary key).
//	Gold     – currency balance, never negative.
//	Color    – hue-derived CSS color, e.g. "hsl(120, 100%, 50%)".
//	Position – last known avatar position.
//	LoggedIn – presence flag; true while at least one realtime connection is open.
type Participant struct {
	Email     string    `json:"email"`
	Gold      int64     `json:"gold"`
	Color     string    `json:"color"`
	Position  Position  `json:"position"`
	LoggedIn  bool      `json:"loggedIn"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// Defaults applied to a participant seen for the first time.
const (
	DefaultColor = "hsl(0, 100%, 50%)"
	DefaultX     = 750
	DefaultY     = 500
)

// NewParticipant returns the record created on a user's first join.
func NewParticipant(email string) Participant {
	return Participant{
		Email:    email,
		Color:    DefaultColor,
		Position: Position{X: DefaultX, Y: DefaultY},
	}
}

// ParticipantPatch is a shallow partial update. Nil fields are left untouched
// by the store (last write wins per field).
type ParticipantPatch struct {
	Gold     *int64
	Color    *string
	Position *Position
	LoggedIn *bool
}

// Empty reports whether the patch carries no field.
func (p ParticipantPatch) Empty() bool {
	return p.Gold == nil && p.Color == nil && p.Position == nil && p.LoggedIn == nil
}

// Apply overwrites the fields present in the patch on a copy of pt.
func (p ParticipantPatch) Apply(pt Participant) Participant {
	if p.Gold != nil {
		pt.Gold = *p.Gold
	}
	if p.Color != nil {
		pt.Color = *p.Color
	}
	if p.Position != nil {
		pt.Position = *p.Position
	}
	if p.LoggedIn != nil {
		pt.LoggedIn = *p.LoggedIn
	}
	return pt
}
