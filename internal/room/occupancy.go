package room

import "github.com/iliyamo/chatter-pad/internal/model"

// Seat is one held seat.
type Seat struct {
	Place    Place          `json:"place"`
	Index    int            `json:"seat"`
	Position model.Position `json:"position"`
}

// Ledger tracks seat occupancy for one room. A participant holds at most one
// seat system-wide. Ledger is not safe for concurrent use; Room serializes
// every call under its mutex.
type Ledger struct {
	occupants map[Place][]string // seat index -> identity, "" when free
	counts    map[Place]int
	held      map[string]Seat
}

// NewLedger returns an empty ledger with every place at zero occupancy.
func NewLedger() *Ledger {
	l := &Ledger{
		occupants: make(map[Place][]string),
		counts:    make(map[Place]int),
		held:      make(map[string]Seat),
	}
	for _, p := range Places() {
		capacity, _ := Capacity(p)
		l.occupants[p] = make([]string, capacity)
	}
	return l
}

// SitAtTable seats participant at table. Sitting again at the table already
// held is a no-op that returns the current seat.
func (l *Ledger) SitAtTable(participant string, table Place) (Seat, error) {
	if table == Bar {
		return Seat{}, ErrUnknownTable
	}
	if _, ok := Capacity(table); !ok {
		return Seat{}, ErrUnknownTable
	}
	return l.sit(participant, table)
}

// SitAtBar seats participant on the next bar stool.
func (l *Ledger) SitAtBar(participant string) (Seat, error) {
	return l.sit(participant, Bar)
}

func (l *Ledger) sit(participant string, p Place) (Seat, error) {
	if cur, ok := l.held[participant]; ok && cur.Place == p {
		return cur, nil
	}
	capacity, _ := Capacity(p)
	if l.counts[p] >= capacity {
		return Seat{}, ErrSeatFull
	}
	l.Vacate(participant)

	idx := l.nextIndex(p)
	pos, _ := SeatCoordinates(p, idx)
	seat := Seat{Place: p, Index: idx, Position: pos}
	l.occupants[p][idx] = participant
	l.counts[p]++
	l.held[participant] = seat
	return seat, nil
}

// nextIndex is the occupancy counter. When seats were vacated out of order
// the counter may point at a held seat; the lowest free index is used then.
func (l *Ledger) nextIndex(p Place) int {
	seats := l.occupants[p]
	idx := l.counts[p]
	if seats[idx] == "" {
		return idx
	}
	for i, who := range seats {
		if who == "" {
			return i
		}
	}
	return idx
}

// Vacate frees whatever seat participant holds. It reports the freed seat
// and whether there was one.
func (l *Ledger) Vacate(participant string) (Seat, bool) {
	seat, ok := l.held[participant]
	if !ok {
		return Seat{}, false
	}
	delete(l.held, participant)
	l.occupants[seat.Place][seat.Index] = ""
	l.counts[seat.Place]--
	return seat, true
}

// Held returns the seat participant currently holds.
func (l *Ledger) Held(participant string) (Seat, bool) {
	seat, ok := l.held[participant]
	return seat, ok
}

// Occupancy returns the number of occupied seats at p.
func (l *Ledger) Occupancy(p Place) int {
	return l.counts[p]
}

// Counts returns a copy of every place's occupancy.
func (l *Ledger) Counts() map[Place]int {
	out := make(map[Place]int, len(l.counts))
	for _, p := range Places() {
		out[p] = l.counts[p]
	}
	return out
}
