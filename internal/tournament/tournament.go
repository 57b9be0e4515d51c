// Package tournament implements TournamentManager (spec §4.7): the player
// roster, blind schedule, dealer rotation, elimination bookkeeping, and the
// outer sequential hand loop.
package tournament

import (
	"math/rand"

	"github.com/coder/quartz"
	"github.com/lox/algopoker/internal/broadcast"
	"github.com/lox/algopoker/internal/handloop"
	"github.com/lox/algopoker/internal/lobby"
	"github.com/lox/algopoker/internal/protocol"
	"github.com/lox/algopoker/internal/session"
	"github.com/rs/zerolog"
)

// Config bounds one tournament run.
type Config struct {
	BlindSchedule        []BlindLevel
	ActionTimeoutSeconds int
}

type player struct {
	Session    *session.Session
	Name       string
	SeatIndex  int
	Stack      int
	Eliminated bool
}

// Manager runs one tournament to completion: a single survivor. The
// tournament roster and lobby flags are owned exclusively here; mutations
// only happen before start or between hands, never interleaved with a
// running HandLoop (spec §5).
type Manager struct {
	cfg    Config
	logger zerolog.Logger
	clock  quartz.Clock
	rng    *rand.Rand

	players    []*player
	spectators []*session.Session
	dealerSeat int
	handNumber int
}

// New builds a manager seated from the lobby's final roster.
func New(cfg Config, logger zerolog.Logger, clock quartz.Clock, rng *rand.Rand, lobbyPlayers []*lobby.Player, spectators []*session.Session) *Manager {
	players := make([]*player, len(lobbyPlayers))
	for i, lp := range lobbyPlayers {
		players[i] = &player{Session: lp.Session, Name: lp.Name, SeatIndex: lp.Seat, Stack: lp.Stack}
	}
	return &Manager{
		cfg:        cfg,
		logger:     logger,
		clock:      clock,
		rng:        rng,
		players:    players,
		spectators: append([]*session.Session(nil), spectators...),
		dealerSeat: 0,
		handNumber: 0,
	}
}

// Run plays hands sequentially until one player remains, then broadcasts
// game_end (spec §4.7 steps 1-3).
func (m *Manager) Run() {
	m.broadcastGameStart()

	for m.countActive() > 1 {
		m.dealerSeat = m.nextActiveSeat(m.dealerSeat)
		m.handNumber++
		sb, bb := BlindsForHand(m.cfg.BlindSchedule, m.handNumber)

		seats, dealerPk := m.activeSeatsForHand()

		result := handloop.Run(m.clock, m.logger, handloop.Config{ActionTimeoutSeconds: m.cfg.ActionTimeoutSeconds}, m.rng, handloop.Input{
			Seats:      seats,
			Spectators: m.spectators,
			DealerPk:   dealerPk,
			HandNumber: m.handNumber,
			SBAmount:   sb,
			BBAmount:   bb,
		})

		m.applyResult(result)
	}

	m.broadcastGameEnd()
}

// countActive returns the number of non-eliminated players.
func (m *Manager) countActive() int {
	n := 0
	for _, p := range m.players {
		if !p.Eliminated {
			n++
		}
	}
	return n
}

// nextActiveSeat advances from `from` to the next non-eliminated seat,
// wrapping over the current active set (spec §4.7 step 2).
func (m *Manager) nextActiveSeat(from int) int {
	n := len(m.players)
	for i := 1; i <= n; i++ {
		candidate := (from + i) % n
		if !m.players[candidate].Eliminated {
			return candidate
		}
	}
	return from
}

// activeSeatsForHand builds the pk-ordered seat list dealt into this hand
// (non-eliminated players, in seat_index order starting from the dealer)
// and returns the dealer's pk within that list.
func (m *Manager) activeSeatsForHand() ([]handloop.Seat, int) {
	var active []*player
	for _, p := range m.players {
		if !p.Eliminated {
			active = append(active, p)
		}
	}

	dealerIdx := 0
	for i, p := range active {
		if p.SeatIndex == m.dealerSeat {
			dealerIdx = i
			break
		}
	}

	// Rotate so pk 0 is the dealer; this only affects hand-local indexing,
	// not the tournament-stable seat_index carried alongside each pk.
	ordered := append(append([]*player(nil), active[dealerIdx:]...), active[:dealerIdx]...)

	seats := make([]handloop.Seat, len(ordered))
	for i, p := range ordered {
		seats[i] = handloop.Seat{Session: p.Session, Name: p.Name, SeatIndex: p.SeatIndex, Stack: p.Stack}
	}
	return seats, 0
}

// applyResult folds a completed hand's final stacks back into the roster
// and marks newly-busted seats eliminated.
func (m *Manager) applyResult(result handloop.Result) {
	for _, p := range m.players {
		if stack, ok := result.FinalStacks[p.SeatIndex]; ok {
			p.Stack = stack
			if stack == 0 {
				p.Eliminated = true
			}
		}
	}
}

func (m *Manager) broadcastGameStart() {
	names := make([]string, len(m.players))
	stacks := make([]int, len(m.players))
	for i, p := range m.players {
		names[i] = p.Name
		stacks[i] = p.Stack
	}
	sb, bb := BlindsForHand(m.cfg.BlindSchedule, 1)

	msg := protocol.GameStart{
		Type:           protocol.TypeGameStart,
		PlayerNames:    names,
		StartingStacks: stacks,
		SmallBlind:     sb,
		BigBlind:       bb,
	}

	broadcast.To(m.recipients(), func(*session.Session) any { return msg })
}

func (m *Manager) broadcastGameEnd() {
	var winner *player
	for _, p := range m.players {
		if !p.Eliminated {
			winner = p
			break
		}
	}

	names := make([]string, len(m.players))
	stacks := make([]int, len(m.players))
	for i, p := range m.players {
		names[i] = p.Name
		stacks[i] = p.Stack
	}

	msg := protocol.GameEnd{
		Type:        protocol.TypeGameEnd,
		FinalStacks: stacks,
		PlayerNames: names,
		TotalHands:  m.handNumber,
	}
	if winner != nil {
		msg.Winner = winner.Name
		msg.WinnerSeat = winner.SeatIndex
	}

	m.logger.Info().Str("winner", msg.Winner).Int("total_hands", m.handNumber).Msg("tournament: complete")

	broadcast.To(m.recipients(), func(*session.Session) any { return msg })
}

func (m *Manager) recipients() []*session.Session {
	out := make([]*session.Session, 0, len(m.players)+len(m.spectators))
	for _, p := range m.players {
		out = append(out, p.Session)
	}
	out = append(out, m.spectators...)
	return out
}
