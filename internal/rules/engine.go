// Package rules adapts the black-box poker rules engine (package game) to
// the narrow interface the hand loop needs (spec §4.4): start a hand, list
// legal actions, apply an action, detect terminal, and reveal results. It
// also owns per-recipient view construction (view.go) so the
// information-hiding invariant has exactly one implementation.
package rules

import (
	"fmt"
	"math/rand"

	"github.com/lox/algopoker/internal/game"
)

// Engine wraps one game.HandState for the lifetime of a single hand. All
// indices are "pk" — a hand-local seat index 0..n-1 over the active
// players dealt into this hand, in the order the caller supplied their
// names. The caller (HandLoop/TournamentManager) is responsible for
// translating pk to the tournament's stable seat_index.
type Engine struct {
	hand           *game.HandState
	dealtHoleCards [][]string // captured once at deal time, indexed by pk
	sbAmount       int
	bbAmount       int
}

// New builds a rules state from (n, dealer_pk, sb_amount, bb_amount,
// starting_stacks[n]) per spec §4.4. dealerPk is the index, within names/
// stacks, of the button.
//
// This engine's heads-up convention already matches the spec's directly:
// game.HandState.postBlinds has the button post the small blind when
// numPlayers == 2, so no index-swap compensation is required here (see
// SPEC_FULL.md's Design Notes / heads-up blind convention).
func New(rng *rand.Rand, names []string, dealerPk, sbAmount, bbAmount int, stacks []int) *Engine {
	h := game.NewHand(rng, names, dealerPk, sbAmount, bbAmount, game.WithChips(stacks))

	dealt := make([][]string, len(names))
	for pk, p := range h.Players {
		dealt[pk] = p.HoleCards.Strings()
	}

	return &Engine{hand: h, dealtHoleCards: dealt, sbAmount: sbAmount, bbAmount: bbAmount}
}

// ActorPk returns whose turn it is, or ok=false if the street is
// transitioning or the hand is terminal.
func (e *Engine) ActorPk() (pk int, ok bool) {
	if e.hand.IsComplete() {
		return 0, false
	}
	if e.hand.ActivePlayer < 0 || e.hand.ActivePlayer >= len(e.hand.Players) {
		return 0, false
	}
	return e.hand.ActivePlayer, true
}

// Street returns the current betting street name.
func (e *Engine) Street() string {
	return e.hand.Street.String()
}

// DealerPk returns the button's pk.
func (e *Engine) DealerPk() int {
	return e.hand.Button
}

// SBPk and BBPk mirror game.HandState.postBlinds's own position convention
// (heads-up: button posts SB; 3+: button+1 posts SB, button+2 posts BB) so
// callers never have to re-derive or duplicate it.
func (e *Engine) SBPk() int {
	n := len(e.hand.Players)
	if n == 2 {
		return e.hand.Button
	}
	return (e.hand.Button + 1) % n
}

func (e *Engine) BBPk() int {
	n := len(e.hand.Players)
	if n == 2 {
		return (e.hand.Button + 1) % n
	}
	return (e.hand.Button + 2) % n
}

// LegalActions enumerates the tagged valid_actions records for the current
// actor, per spec §4.1. It collapses the underlying engine's distinct
// "all-in" action into "call" (when calling already exhausts the actor's
// stack) or "raise" (when shoving is a short all-in raise) so the wire
// protocol only ever sees fold/check/call/raise, matching spec exactly.
func (e *Engine) LegalActions() []LegalAction {
	pk, ok := e.ActorPk()
	if !ok {
		return nil
	}
	p := e.hand.Players[pk]
	toCall := e.hand.Betting.CurrentBet - p.Bet
	totalChips := p.Chips + p.Bet

	actions := []LegalAction{{Type: "fold"}}

	if toCall <= 0 {
		actions = append(actions, LegalAction{Type: "check"})
	} else {
		callAmount := toCall
		if callAmount > p.Chips {
			callAmount = p.Chips
		}
		actions = append(actions, LegalAction{Type: "call", Amount: &callAmount})
	}

	// Room to raise exists whenever calling (or checking) would not already
	// commit every remaining chip.
	remainingAfterCall := p.Chips - toCall
	if toCall <= 0 {
		remainingAfterCall = p.Chips
	}
	if remainingAfterCall > 0 {
		minTotal := e.hand.Betting.CurrentBet + e.hand.Betting.MinRaise
		if minTotal > totalChips {
			minTotal = totalChips // short all-in raise: min collapses to the shove amount
		}
		maxTotal := totalChips
		actions = append(actions, LegalAction{Type: "raise", Min: &minTotal, Max: &maxTotal})
	}

	return actions
}

type LegalAction struct {
	Type   string
	Amount *int
	Min    *int
	Max    *int
}

// Apply applies an already-validated-and-clamped action. amount is ignored
// for fold/check/call; it is required (and assumed pre-clamped to
// [min,max]) for raise.
func (e *Engine) Apply(actionType string, amount int) error {
	if _, ok := e.ActorPk(); !ok {
		return fmt.Errorf("rules: no actor to act")
	}

	switch actionType {
	case "fold":
		return e.hand.ProcessAction(game.Fold, 0)
	case "check":
		return e.hand.ProcessAction(game.Check, 0)
	case "call":
		return e.hand.ProcessAction(game.Call, 0)
	case "raise":
		return e.hand.ProcessAction(game.Raise, amount)
	default:
		return fmt.Errorf("rules: unknown action type %q", actionType)
	}
}

// ForceFold folds the given seat immediately, regardless of turn order.
// The hand loop calls it when Apply rejects an action, so the hand cannot
// stall; timeouts and disconnects are applied through Apply("fold", 0).
func (e *Engine) ForceFold(pk int) {
	e.hand.ForceFold(pk)
}

// IsTerminal reports whether the hand is complete.
func (e *Engine) IsTerminal() bool {
	return e.hand.IsComplete()
}

// BoardCards returns the community cards dealt so far.
func (e *Engine) BoardCards() []string {
	return e.hand.Board.Strings()
}

// OriginalHoleCards returns the two cards dealt to pk at the start of the
// hand, regardless of subsequent fold/showdown state.
func (e *Engine) OriginalHoleCards(pk int) []string {
	if pk < 0 || pk >= len(e.dealtHoleCards) {
		return nil
	}
	return e.dealtHoleCards[pk]
}

// NumPlayers returns the number of seats dealt into this hand.
func (e *Engine) NumPlayers() int {
	return len(e.hand.Players)
}

// Stacks returns each seat's current chip stack (excludes chips already
// committed to the pot this hand).
func (e *Engine) Stacks() []int {
	out := make([]int, len(e.hand.Players))
	for i, p := range e.hand.Players {
		out[i] = p.Chips
	}
	return out
}

// CurrentBets returns each seat's bet committed so far on the current
// street (not yet collected into the pot).
func (e *Engine) CurrentBets() []int {
	out := make([]int, len(e.hand.Players))
	for i, p := range e.hand.Players {
		out[i] = p.Bet
	}
	return out
}

// Folded reports whether pk has folded.
func (e *Engine) Folded(pk int) bool {
	return e.hand.Players[pk].Folded
}

// AllIn reports whether pk is all-in.
func (e *Engine) AllIn(pk int) bool {
	return e.hand.Players[pk].AllInFlag
}

// ActiveSeats returns the pks of every seat that has not folded.
func (e *Engine) ActiveSeats() []int {
	var out []int
	for i, p := range e.hand.Players {
		if !p.Folded {
			out = append(out, i)
		}
	}
	return out
}

// Pots returns the current pot breakdown, including uncollected bets from
// the street in progress.
func (e *Engine) Pots() []game.Pot {
	return e.hand.GetPots()
}

// TotalPot returns the sum of every pot, including uncollected bets.
func (e *Engine) TotalPot() int {
	total := 0
	for _, pot := range e.Pots() {
		total += pot.Amount
	}
	return total
}

// Results is the terminal summary of a completed hand.
type Results struct {
	ShowdownOccurred bool
	Winners          []WinnerPayoff
	FinalStacks      []int // indexed by pk
	CommunityCards   []string
}

// WinnerPayoff names a seat with a positive payoff from the hand.
type WinnerPayoff struct {
	Pk        int
	AmountWon int
}

// Results computes the terminal summary: winners per pot (split evenly,
// remainder to the lowest-pk winner), final stacks with winnings folded
// back in, and whether the hand reached showdown.
func (e *Engine) Results() Results {
	payoff := make([]int, len(e.hand.Players))

	// GetWinners is keyed by pot index into GetPots(); iterate both
	// together so the indices line up exactly.
	pots := e.Pots()
	winnersByPot := e.hand.GetWinners()
	for idx, pot := range pots {
		seats := winnersByPot[idx]
		if len(seats) == 0 {
			continue
		}
		share := pot.Amount / len(seats)
		remainder := pot.Amount % len(seats)
		sortedSeats := append([]int(nil), seats...)
		sortInts(sortedSeats)
		for i, seat := range sortedSeats {
			amt := share
			if i == 0 {
				amt += remainder
			}
			payoff[seat] += amt
		}
	}

	finalStacks := make([]int, len(e.hand.Players))
	for i, p := range e.hand.Players {
		finalStacks[i] = p.Chips + payoff[i]
	}

	activeCount := 0
	for _, p := range e.hand.Players {
		if !p.Folded {
			activeCount++
		}
	}

	var wp []WinnerPayoff
	for seat, amt := range payoff {
		if amt > 0 {
			wp = append(wp, WinnerPayoff{Pk: seat, AmountWon: amt})
		}
	}
	sortWinners(wp)

	return Results{
		ShowdownOccurred: activeCount >= 2,
		Winners:          wp,
		FinalStacks:      finalStacks,
		CommunityCards:   e.hand.Board.Strings(),
	}
}

func sortInts(s []int) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

func sortWinners(s []WinnerPayoff) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1].Pk > s[j].Pk; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
