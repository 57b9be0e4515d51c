// Package handloop drives a single hand from deal to showdown (spec §4.5):
// the betting loop, per-seat prompting with a timeout, action validation
// (§4.6), and the terminal hand_end broadcast.
package handloop

import (
	"math/rand"
	"time"

	"github.com/coder/quartz"
	"github.com/lox/algopoker/internal/broadcast"
	"github.com/lox/algopoker/internal/protocol"
	"github.com/lox/algopoker/internal/rules"
	"github.com/lox/algopoker/internal/session"
	"github.com/rs/zerolog"
)

// Seat is one hand-local participant, in pk order (index 0..n-1).
type Seat struct {
	Session   *session.Session
	Name      string
	SeatIndex int // tournament-stable seat_index
	Stack     int
}

// Config bounds one hand's pacing.
type Config struct {
	ActionTimeoutSeconds int
}

// Input names everything the hand needs beyond the seats themselves.
type Input struct {
	Seats      []Seat
	Spectators []*session.Session
	DealerPk   int
	HandNumber int
	SBAmount   int
	BBAmount   int
}

// Result is what the tournament manager needs to carry forward: each
// seat's post-hand stack, keyed by tournament seat_index.
type Result struct {
	FinalStacks map[int]int
}

// Run plays exactly one hand to completion and returns the resulting
// stacks. It takes no context and has no mid-hand cancellation path: it
// returns only once the hand is complete.
func Run(clock quartz.Clock, logger zerolog.Logger, cfg Config, rng *rand.Rand, in Input) Result {
	names := make([]string, len(in.Seats))
	stacks := make([]int, len(in.Seats))
	for i, s := range in.Seats {
		names[i] = s.Name
		stacks[i] = s.Stack
	}

	engine := rules.New(rng, names, in.DealerPk, in.SBAmount, in.BBAmount, stacks)

	seating := rules.Seating{
		Names:      names,
		Seats:      seatIndices(in.Seats),
		DealerPk:   engine.DealerPk(),
		SBPk:       engine.SBPk(),
		BBPk:       engine.BBPk(),
		SBAmount:   in.SBAmount,
		BBAmount:   in.BBAmount,
		HandNumber: in.HandNumber,
	}

	broadcastHandStart(in, engine, seating)

	// Seats still in the hand the last time an actor acted; used to decide
	// which hole cards to reveal when the hand ends in a showdown. An
	// uncontested hand reveals none (see finish).
	activeBeforeLastAction := engine.ActiveSeats()

	for !engine.IsTerminal() {
		pk, ok := engine.ActorPk()
		if !ok {
			break
		}
		activeBeforeLastAction = engine.ActiveSeats()
		playActorTurn(clock, logger, cfg, engine, in, seating, pk)
	}

	return finish(logger, engine, in, seating, activeBeforeLastAction)
}

func seatIndices(seats []Seat) []int {
	out := make([]int, len(seats))
	for i, s := range seats {
		out[i] = s.SeatIndex
	}
	return out
}

func broadcastHandStart(in Input, engine *rules.Engine, seating rules.Seating) {
	stacks := engine.Stacks()
	playerNames := seating.Names

	recipients := append([]*session.Session(nil), in.Spectators...)
	for _, s := range in.Seats {
		recipients = append(recipients, s.Session)
	}

	broadcast.To(recipients, func(sess *session.Session) any {
		holeCards := make([]string, 0, 2*len(in.Seats))
		if !sess.IsSpectator() {
			// A player's own hand_start carries only their own hole cards;
			// spectators see none at this point (first game_state reveals
			// per-viewer visibility, not hand_start).
			pk := pkForSeat(in.Seats, sess.Seat())
			if pk >= 0 {
				holeCards = engine.OriginalHoleCards(pk)
			}
		}
		return protocol.HandStart{
			Type:        protocol.TypeHandStart,
			HandNumber:  in.HandNumber,
			DealerSeat:  seating.Seats[seating.DealerPk],
			SBSeat:      seating.Seats[seating.SBPk],
			BBSeat:      seating.Seats[seating.BBPk],
			SBAmount:    in.SBAmount,
			BBAmount:    in.BBAmount,
			PlayerNames: playerNames,
			Stacks:      stacks,
			HoleCards:   holeCards,
		}
	})
}

func pkForSeat(seats []Seat, seatIndex int) int {
	for pk, s := range seats {
		if s.SeatIndex == seatIndex {
			return pk
		}
	}
	return -1
}

// playActorTurn prompts the actor, waits for their action (or a timeout),
// validates and applies it, and broadcasts the result. Implements spec
// §4.5 steps 3a-3e and §4.6 validation.
func playActorTurn(clock quartz.Clock, logger zerolog.Logger, cfg Config, engine *rules.Engine, in Input, seating rules.Seating, pk int) {
	actor := in.Seats[pk]
	timeoutSeconds := cfg.ActionTimeoutSeconds
	if timeoutSeconds <= 0 {
		timeoutSeconds = 30
	}

	// Drain any stale queued action before prompting, so a displaced
	// earlier send can never be mistaken for the response to this prompt
	// (spec §4.5 step 3c, §9).
	actor.Session.DrainStale()

	broadcastActionRequest(in, engine, seating, pk, timeoutSeconds)

	actionType, amount, timedOut := awaitAction(clock, logger, engine, actor, timeoutSeconds)

	logger.Debug().
		Int("seat", actor.SeatIndex).
		Str("action", actionType).
		Int("amount", amount).
		Bool("timed_out", timedOut).
		Msg("handloop: applying action")

	if err := engine.Apply(actionType, amount); err != nil {
		// Validation above should make this unreachable; fold defensively
		// rather than leave the hand stuck.
		logger.Error().Err(err).Str("action", actionType).Msg("handloop: apply failed, forcing fold")
		engine.ForceFold(pk)
		actionType, amount = protocol.ActionFold, 0
	}

	broadcastActionResult(in, engine, seating, actor, actionType, amount, timedOut)
}

func broadcastActionRequest(in Input, engine *rules.Engine, seating rules.Seating, pk, timeoutSeconds int) {
	recipients := append([]*session.Session(nil), in.Spectators...)
	for _, s := range in.Seats {
		recipients = append(recipients, s.Session)
	}
	actorSeat := seating.Seats[pk]

	broadcast.To(recipients, func(sess *session.Session) any {
		var gs protocol.GameState
		if sess.IsSpectator() {
			gs = engine.SpectatorView(seating)
		} else {
			viewerPk := pkForSeat(in.Seats, sess.Seat())
			gs = engine.PlayerView(seating, viewerPk)
		}
		return protocol.ActionRequest{
			Type:           protocol.TypeActionRequest,
			ActorSeat:      actorSeat,
			TimeoutSeconds: timeoutSeconds,
			GameState:      gs,
		}
	})
}

// awaitAction blocks until the actor's session delivers a record, the
// action timeout fires, or the actor disconnects, then validates the
// result per spec §4.6.
func awaitAction(clock quartz.Clock, logger zerolog.Logger, engine *rules.Engine, actor Seat, timeoutSeconds int) (actionType string, amount int, timedOut bool) {
	deadline := make(chan struct{})
	timer := clock.AfterFunc(time.Duration(timeoutSeconds)*time.Second, func() { close(deadline) })
	defer timer.Stop()

	select {
	case in := <-actor.Session.Mailbox():
		if in.Disconnected {
			return protocol.ActionFold, 0, true
		}
		return validate(logger, engine, actor.Session, in.Raw)
	case <-actor.Session.Disconnected():
		return protocol.ActionFold, 0, true
	case <-deadline:
		return protocol.ActionFold, 0, true
	}
}

// sendBadAction notifies the offending actor per spec §4.6/§7: the hand
// proceeds with the auto-fold, but the actor learns why.
func sendBadAction(sess *session.Session, message string) {
	sess.Send(protocol.Error{Type: protocol.TypeError, Code: protocol.ErrBadAction, Message: message})
}

// validate implements spec §4.6: malformed records, unknown types, and
// amount-less raises auto-fold with BAD_ACTION, which is also sent to the
// offending actor; out-of-range raise amounts are clamped rather than
// rejected. An inbound "call" is treated as "check" when nothing is owed
// (spec §9 open question: calling a zero-cost bet is not itself illegal).
func validate(logger zerolog.Logger, engine *rules.Engine, sess *session.Session, raw []byte) (actionType string, amount int, timedOut bool) {
	msg, err := protocol.UnmarshalAction(raw)
	if err != nil {
		logger.Debug().Err(err).Msg("handloop: malformed action, auto-folding")
		sendBadAction(sess, err.Error())
		return protocol.ActionFold, 0, false
	}

	requestedType := msg.Action.Type

	legal := engine.LegalActions()
	var match *rules.LegalAction
	for i := range legal {
		if legal[i].Type == requestedType {
			match = &legal[i]
			break
		}
	}
	if match == nil && requestedType == protocol.ActionCall {
		for i := range legal {
			if legal[i].Type == protocol.ActionCheck {
				match = &legal[i]
				break
			}
		}
	}
	if match == nil {
		logger.Debug().Str("type", requestedType).Msg("handloop: unknown or illegal action type, auto-folding")
		sendBadAction(sess, "unknown or illegal action type: "+requestedType)
		return protocol.ActionFold, 0, false
	}

	switch match.Type {
	case protocol.ActionFold, protocol.ActionCheck:
		return match.Type, 0, false
	case protocol.ActionCall:
		amt := 0
		if match.Amount != nil {
			amt = *match.Amount
		}
		return protocol.ActionCall, amt, false
	case protocol.ActionRaise:
		if msg.Action.Amount == nil {
			logger.Debug().Msg("handloop: raise without amount, auto-folding")
			sendBadAction(sess, "raise requires an amount")
			return protocol.ActionFold, 0, false
		}
		amt := *msg.Action.Amount
		if match.Min != nil && amt < *match.Min {
			amt = *match.Min
		}
		if match.Max != nil && amt > *match.Max {
			amt = *match.Max
		}
		return protocol.ActionRaise, amt, false
	default:
		return protocol.ActionFold, 0, false
	}
}

func broadcastActionResult(in Input, engine *rules.Engine, seating rules.Seating, actor Seat, actionType string, amount int, timedOut bool) {
	recipients := append([]*session.Session(nil), in.Spectators...)
	for _, s := range in.Seats {
		recipients = append(recipients, s.Session)
	}

	choice := protocol.ActionChoice{Type: actionType}
	if actionType == protocol.ActionRaise || actionType == protocol.ActionCall {
		choice.Amount = protocol.Amount(amount)
	}

	broadcast.To(recipients, func(sess *session.Session) any {
		var gs protocol.GameState
		if sess.IsSpectator() {
			gs = engine.SpectatorView(seating)
		} else {
			viewerPk := pkForSeat(in.Seats, sess.Seat())
			gs = engine.PlayerView(seating, viewerPk)
		}
		return protocol.ActionResult{
			Type:       protocol.TypeActionResult,
			ActorSeat:  actor.SeatIndex,
			PlayerName: actor.Name,
			Action:     choice,
			TimedOut:   timedOut,
			GameState:  gs,
		}
	})
}

// finish computes the terminal results and broadcasts hand_end.
func finish(logger zerolog.Logger, engine *rules.Engine, in Input, seating rules.Seating, activeBeforeLastAction []int) Result {
	results := engine.Results()

	var reveals []protocol.Reveal
	if results.ShowdownOccurred {
		// Uncontested hands (everyone but one folded) reveal nothing (spec
		// §4.5, testable invariant 4); only a real showdown reveals the
		// hole cards of every seat still active at the end.
		revealSet := make(map[int]bool, len(activeBeforeLastAction))
		for _, pk := range activeBeforeLastAction {
			if !engine.Folded(pk) {
				revealSet[pk] = true
			}
		}
		for pk := range revealSet {
			reveals = append(reveals, protocol.Reveal{
				Seat:      seating.Seats[pk],
				HoleCards: engine.OriginalHoleCards(pk),
			})
		}
	}

	winners := make([]protocol.Winner, len(results.Winners))
	for i, w := range results.Winners {
		winners[i] = protocol.Winner{Seat: seating.Seats[w.Pk], AmountWon: w.AmountWon}
	}

	finalStacks := make([]int, len(in.Seats))
	stacksBySeat := make(map[int]int, len(in.Seats))
	var eliminated []int
	for pk, stack := range results.FinalStacks {
		finalStacks[pk] = stack
		seatIdx := seating.Seats[pk]
		stacksBySeat[seatIdx] = stack
		if stack == 0 {
			eliminated = append(eliminated, seatIdx)
		}
	}

	msg := protocol.HandEnd{
		Type:              protocol.TypeHandEnd,
		HandNumber:        in.HandNumber,
		Winners:           winners,
		HoleCardsRevealed: reveals,
		CommunityCards:    results.CommunityCards,
		FinalStacks:       finalStacks,
		PlayerNames:       seating.Names,
		EliminatedSeats:   eliminated,
	}

	recipients := append([]*session.Session(nil), in.Spectators...)
	for _, s := range in.Seats {
		recipients = append(recipients, s.Session)
	}
	broadcast.To(recipients, func(*session.Session) any { return msg })

	logger.Info().
		Int("hand_number", in.HandNumber).
		Bool("showdown", results.ShowdownOccurred).
		Ints("eliminated", eliminated).
		Msg("handloop: hand complete")

	return Result{FinalStacks: stacksBySeat}
}
