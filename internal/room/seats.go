package room

import "github.com/iliyamo/chatter-pad/internal/model"

// Place names a seating area: one of the four tables or the bar.
type Place string

const (
	Table1 Place = "table1"
	Table2 Place = "table2"
	Table3 Place = "table3"
	Table4 Place = "table4"
	Bar    Place = "bar"
)

const (
	TableCapacity = 4
	BarCapacity   = 10
)

var tableCenters = map[Place]model.Position{
	Table1: {X: 512.5, Y: 672.5},
	Table2: {X: 1112.5, Y: 672.5},
	Table3: {X: 512.5, Y: 1012.5},
	Table4: {X: 1112.5, Y: 1012.5},
}

// Seat order around a table: left, right, top, bottom.
var tableSeatOffsets = [TableCapacity]model.Position{
	{X: -130, Y: 0},
	{X: 130, Y: 0},
	{X: 0, Y: -115},
	{X: 0, Y: 130},
}

// Bar stools sit on one line in front of the bartender.
const (
	barOriginX = 300
	barStepX   = 100
	barY       = 250
)

// Places lists every seating area in a stable order.
func Places() []Place {
	return []Place{Table1, Table2, Table3, Table4, Bar}
}

// Capacity returns the number of seats at p.
func Capacity(p Place) (int, bool) {
	if p == Bar {
		return BarCapacity, true
	}
	if _, ok := tableCenters[p]; ok {
		return TableCapacity, true
	}
	return 0, false
}

// SeatCoordinates returns where an avatar is placed when it takes seat index
// at p. It is the single source of truth for seating geometry.
func SeatCoordinates(p Place, index int) (model.Position, bool) {
	capacity, ok := Capacity(p)
	if !ok || index < 0 || index >= capacity {
		return model.Position{}, false
	}
	if p == Bar {
		return model.Position{X: barOriginX + float64(index*barStepX), Y: barY}, true
	}
	c := tableCenters[p]
	o := tableSeatOffsets[index]
	return model.Position{X: c.X + o.X, Y: c.Y + o.Y}, true
}
