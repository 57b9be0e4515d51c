package lobby

import (
	"context"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/lox/algopoker/internal/protocol"
	"github.com/lox/algopoker/internal/session"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fakeConn struct{}

func (fakeConn) WriteText([]byte) error { return nil }
func (fakeConn) Close() error           { return nil }

func newTestSession() *session.Session {
	return session.New(fakeConn{}, zerolog.Nop())
}

func TestRegisterRejectsEmptyName(t *testing.T) {
	l := New(Config{MinPlayers: 2, MaxPlayers: 4, StartingStack: 1000}, zerolog.Nop(), quartz.NewReal(), nil)
	_, err := l.Register(newTestSession(), "   ")

	var ae *AdmissionError
	require.ErrorAs(t, err, &ae)
	require.Equal(t, protocol.ErrBadName, ae.Code)
}

func TestRegisterRejectsDuplicateName(t *testing.T) {
	l := New(Config{MinPlayers: 2, MaxPlayers: 4, StartingStack: 1000}, zerolog.Nop(), quartz.NewReal(), nil)
	_, err := l.Register(newTestSession(), "alice")
	require.NoError(t, err)

	_, err = l.Register(newTestSession(), "alice")
	var ae *AdmissionError
	require.ErrorAs(t, err, &ae)
	require.Equal(t, protocol.ErrBadName, ae.Code)
}

func TestRegisterAssignsSeatsInJoinOrder(t *testing.T) {
	l := New(Config{MinPlayers: 2, MaxPlayers: 4, StartingStack: 1000}, zerolog.Nop(), quartz.NewReal(), nil)
	p1, err := l.Register(newTestSession(), "alice")
	require.NoError(t, err)
	require.Equal(t, 0, p1.Seat)

	p2, err := l.Register(newTestSession(), "bob")
	require.NoError(t, err)
	require.Equal(t, 1, p2.Seat)
}

func TestRegisterRejectsWhenFull(t *testing.T) {
	l := New(Config{MinPlayers: 2, MaxPlayers: 1, StartingStack: 1000}, zerolog.Nop(), quartz.NewReal(), nil)
	_, err := l.Register(newTestSession(), "alice")
	require.NoError(t, err)

	_, err = l.Register(newTestSession(), "bob")
	var ae *AdmissionError
	require.ErrorAs(t, err, &ae)
	require.Equal(t, protocol.ErrTournamentFull, ae.Code)
}

func TestMaxPlayersStartsImmediately(t *testing.T) {
	started := make(chan struct{}, 1)
	l := New(Config{MinPlayers: 2, MaxPlayers: 2, StartingStack: 1000}, zerolog.Nop(), quartz.NewReal(), func(players []*Player, spectators []*session.Session) {
		started <- struct{}{}
	})

	_, err := l.Register(newTestSession(), "alice")
	require.NoError(t, err)
	_, err = l.Register(newTestSession(), "bob")
	require.NoError(t, err)

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("expected onStart to fire once max players reached")
	}

	require.True(t, l.Started())
}

func TestRegisterAfterStartedIsRejected(t *testing.T) {
	l := New(Config{MinPlayers: 2, MaxPlayers: 2, StartingStack: 1000}, zerolog.Nop(), quartz.NewReal(), func([]*Player, []*session.Session) {})
	_, _ = l.Register(newTestSession(), "alice")
	_, _ = l.Register(newTestSession(), "bob")

	require.Eventually(t, l.Started, 2*time.Second, 10*time.Millisecond)

	_, err := l.Register(newTestSession(), "carol")
	var ae *AdmissionError
	require.ErrorAs(t, err, &ae)
	require.Equal(t, protocol.ErrTournamentStarted, ae.Code)
}

func TestForceStartRequiresMinPlayers(t *testing.T) {
	l := New(Config{MinPlayers: 3, MaxPlayers: 9, StartingStack: 1000}, zerolog.Nop(), quartz.NewReal(), func([]*Player, []*session.Session) {})
	_, _ = l.Register(newTestSession(), "alice")
	_, _ = l.Register(newTestSession(), "bob")

	require.False(t, l.ForceStart())
	require.False(t, l.Started())
}

func TestForceStartBeginsOnceMinPlayersReached(t *testing.T) {
	l := New(Config{MinPlayers: 3, MaxPlayers: 9, StartingStack: 1000}, zerolog.Nop(), quartz.NewReal(), func([]*Player, []*session.Session) {})
	_, _ = l.Register(newTestSession(), "alice")
	_, _ = l.Register(newTestSession(), "bob")
	_, _ = l.Register(newTestSession(), "carol")

	require.True(t, l.ForceStart())
	require.True(t, l.Started())
}

func TestGraceTimerStartsAfterMinPlayersReached(t *testing.T) {
	mClock := quartz.NewMock(t)
	started := make(chan struct{}, 1)

	l := New(Config{MinPlayers: 2, MaxPlayers: 9, StartingStack: 1000, LobbyWaitSeconds: 5}, zerolog.Nop(), mClock, func([]*Player, []*session.Session) {
		started <- struct{}{}
	})

	_, _ = l.Register(newTestSession(), "alice")
	_, _ = l.Register(newTestSession(), "bob")

	require.False(t, l.Started())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	mClock.Advance(5 * time.Second).MustWait(ctx)

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("expected onStart to fire once the grace timer elapses")
	}
	require.True(t, l.Started())
}

func TestSimultaneousMaxAndForceStartFireOnlyOnce(t *testing.T) {
	var calls int
	done := make(chan struct{})
	l := New(Config{MinPlayers: 2, MaxPlayers: 2, StartingStack: 1000}, zerolog.Nop(), quartz.NewReal(), func([]*Player, []*session.Session) {
		calls++
		close(done)
	})

	_, _ = l.Register(newTestSession(), "alice")
	_, _ = l.Register(newTestSession(), "bob") // reaches max, begins automatically

	l.ForceStart() // racing the same idempotent transition

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected onStart to fire")
	}
	require.Equal(t, 1, calls)
}
