package tournament

import (
	"math/rand"
	"testing"

	"github.com/coder/quartz"
	"github.com/lox/algopoker/internal/handloop"
	"github.com/lox/algopoker/internal/lobby"
	"github.com/lox/algopoker/internal/session"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fakeConn struct{}

func (fakeConn) WriteText([]byte) error { return nil }
func (fakeConn) Close() error           { return nil }

func newManager(t *testing.T, n int) *Manager {
	t.Helper()
	players := make([]*lobby.Player, n)
	for i := 0; i < n; i++ {
		players[i] = &lobby.Player{
			Session: session.New(fakeConn{}, zerolog.Nop()),
			Name:    string(rune('a' + i)),
			Seat:    i,
			Stack:   1000,
		}
	}
	return New(Config{BlindSchedule: DefaultSchedule(), ActionTimeoutSeconds: 30}, zerolog.Nop(), quartz.NewReal(), rand.New(rand.NewSource(1)), players, nil)
}

func TestNextActiveSeatSkipsEliminated(t *testing.T) {
	m := newManager(t, 4)
	m.players[1].Eliminated = true

	require.Equal(t, 2, m.nextActiveSeat(0))
	require.Equal(t, 0, m.nextActiveSeat(3))
}

func TestNextActiveSeatWrapsAround(t *testing.T) {
	m := newManager(t, 3)
	require.Equal(t, 0, m.nextActiveSeat(2))
}

func TestActiveSeatsForHandRotatesDealerToPkZero(t *testing.T) {
	m := newManager(t, 4)
	m.dealerSeat = 2

	seats, dealerPk := m.activeSeatsForHand()

	require.Equal(t, 0, dealerPk)
	require.Len(t, seats, 4)
	require.Equal(t, 2, seats[0].SeatIndex)
	require.Equal(t, 3, seats[1].SeatIndex)
	require.Equal(t, 0, seats[2].SeatIndex)
	require.Equal(t, 1, seats[3].SeatIndex)
}

func TestActiveSeatsForHandExcludesEliminated(t *testing.T) {
	m := newManager(t, 4)
	m.players[1].Eliminated = true
	m.dealerSeat = 0

	seats, dealerPk := m.activeSeatsForHand()

	require.Equal(t, 0, dealerPk)
	require.Len(t, seats, 3)
	for _, s := range seats {
		require.NotEqual(t, 1, s.SeatIndex)
	}
}

func TestCountActive(t *testing.T) {
	m := newManager(t, 3)
	require.Equal(t, 3, m.countActive())

	m.players[0].Eliminated = true
	require.Equal(t, 2, m.countActive())
}

func TestApplyResultMarksEliminationAtZeroStack(t *testing.T) {
	m := newManager(t, 2)

	m.applyResult(handloop.Result{FinalStacks: map[int]int{0: 0, 1: 2000}})

	require.True(t, m.players[0].Eliminated)
	require.Equal(t, 0, m.players[0].Stack)
	require.False(t, m.players[1].Eliminated)
	require.Equal(t, 2000, m.players[1].Stack)
}
