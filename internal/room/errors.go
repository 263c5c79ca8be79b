// Package room holds the realtime core of a single social room: seat
// occupancy, presence, event dispatch, state snapshots and currency ticks.
// All mutation of room state happens under one mutex owned by Room.
package room

import "errors"

var (
	// ErrSeatFull is returned when a table or the bar is at capacity. It is
	// reported to the requesting connection only.
	ErrSeatFull = errors.New("seat full")

	// ErrInsufficientFunds is returned when a purchase exceeds the balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrMalformedEvent marks an inbound message that does not decode into a
	// known client event. Such messages are dropped; the connection stays open.
	ErrMalformedEvent = errors.New("malformed event")

	// ErrUnknownTable is returned when a sit request names a place that does
	// not exist.
	ErrUnknownTable = errors.New("unknown table")

	// ErrNotPresent is returned when an event arrives for a connection or
	// identity that is not admitted to the room.
	ErrNotPresent = errors.New("participant not present")

	// ErrUnknownParticipant is returned by a Store when no record exists yet.
	ErrUnknownParticipant = errors.New("unknown participant")
)
