package models

// The two locations sharing the card inventory.
const (
	PoolEast = 0
	PoolWest = 1
)

// PoolCodes maps a card type to its location code. Types outside this map
// have no notification destination.
var PoolCodes = map[int]string{
	PoolEast: "east",
	PoolWest: "west",
}
