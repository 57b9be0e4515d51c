package rules

import (
	"github.com/lox/algopoker/internal/protocol"
)

// Seating is the static per-hand information the view builder needs beyond
// what the Engine tracks: the tournament-stable name and seat of every pk
// dealt into this hand, plus the dealer/blind seats.
type Seating struct {
	Names      []string // indexed by pk
	Seats      []int    // indexed by pk: tournament seat_index
	DealerPk   int
	SBPk       int
	BBPk       int
	SBAmount   int
	BBAmount   int
	HandNumber int
}

// PlayerView builds the game_state seen by the player at hand-local index
// viewerPk: their own hole cards are revealed, everyone else's are "??"
// placeholders (or empty if this pk has none dealt — never true mid-hand,
// but kept symmetric with SpectatorView for pre-deal broadcasts).
func (e *Engine) PlayerView(s Seating, viewerPk int) protocol.GameState {
	return e.buildView(s, &viewerPk)
}

// SpectatorView builds the game_state seen by a spectator: every seat's
// hole cards are revealed.
func (e *Engine) SpectatorView(s Seating) protocol.GameState {
	return e.buildView(s, nil)
}

// buildView is the single renderer both PlayerView and SpectatorView funnel
// through, so a spectator-only or viewer-only branch can't accidentally
// leak a field meant for the other (spec §9).
func (e *Engine) buildView(s Seating, viewerPk *int) protocol.GameState {
	n := e.NumPlayers()
	stacks := e.Stacks()
	bets := e.CurrentBets()

	players := make([]protocol.PlayerView, n)
	for pk := 0; pk < n; pk++ {
		revealed := viewerPk == nil || *viewerPk == pk
		dealt := e.OriginalHoleCards(pk)

		var holeCards []string
		known := false
		if len(dealt) > 0 {
			known = revealed
			if revealed {
				holeCards = dealt
			} else {
				holeCards = []string{"??", "??"}
			}
		}

		players[pk] = protocol.PlayerView{
			Seat:           s.Seats[pk],
			Name:           s.Names[pk],
			Stack:          stacks[pk],
			CurrentBet:     bets[pk],
			IsActive:       !e.Folded(pk),
			IsAllIn:        e.AllIn(pk),
			IsDealer:       pk == s.DealerPk,
			IsSmallBlind:   pk == s.SBPk,
			IsBigBlind:     pk == s.BBPk,
			HoleCards:      holeCards,
			HoleCardsKnown: known,
		}
	}

	var actorSeat *int
	var validActions []protocol.ValidAction
	if pk, ok := e.ActorPk(); ok {
		seat := s.Seats[pk]
		actorSeat = &seat
		// valid_actions describes what the actor may legally do; it is
		// public information (not a hidden card), so every recipient's
		// game_state carries the same set.
		validActions = toWireActions(e.LegalActions())
	}

	pot := protocol.Pot{Total: e.TotalPot()}
	for _, p := range e.Pots() {
		eligibleSeats := make([]int, len(p.Eligible))
		for i, pk := range p.Eligible {
			eligibleSeats[i] = s.Seats[pk]
		}
		pot.Pots = append(pot.Pots, protocol.SidePot{Amount: p.Amount, EligibleSeats: eligibleSeats})
	}

	return protocol.GameState{
		Street:         e.Street(),
		HandNumber:     s.HandNumber,
		CommunityCards: e.BoardCards(),
		Pot:            pot,
		Players:        players,
		ActorSeat:      actorSeat,
		ValidActions:   validActions,
		DealerSeat:     s.Seats[s.DealerPk],
		SBSeat:         s.Seats[s.SBPk],
		BBSeat:         s.Seats[s.BBPk],
		SBAmount:       s.SBAmount,
		BBAmount:       s.BBAmount,
	}
}

func toWireActions(actions []LegalAction) []protocol.ValidAction {
	out := make([]protocol.ValidAction, len(actions))
	for i, a := range actions {
		out[i] = protocol.ValidAction{Type: a.Type, Amount: a.Amount, MinAmount: a.Min, MaxAmount: a.Max}
	}
	return out
}
