package game

import "github.com/lox/algopoker/poker"

// Player is one seat's mutable state for the duration of a single hand.
// Seat and Name are carried over from the tournament roster; the rest
// is reset by NewHand for every deal.
type Player struct {
	Seat      int
	Name      string
	Chips     int
	Folded    bool
	AllInFlag bool
	Bet       int       // amount committed to the pot this street, not yet collected
	TotalBet  int       // amount committed to the pot this hand, across all streets
	HoleCards poker.Hand
}
