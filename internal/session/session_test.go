package session

import (
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu     sync.Mutex
	writes [][]byte
	closed bool
	failAt int // if > 0, the failAt-th WriteText call fails
	calls  int
}

func (f *fakeConn) WriteText(payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failAt > 0 && f.calls == f.failAt {
		return errFake
	}
	f.writes = append(f.writes, payload)
	return nil
}

func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

type fakeErr string

func (e fakeErr) Error() string { return string(e) }

var errFake = fakeErr("fake write failure")

func newTestSession() (*Session, *fakeConn) {
	conn := &fakeConn{}
	return New(conn, zerolog.Nop()), conn
}

func TestSendEncodesAndWrites(t *testing.T) {
	s, conn := newTestSession()
	s.Send(map[string]string{"type": "waiting"})

	require.Len(t, conn.writes, 1)
	require.Contains(t, string(conn.writes[0]), `"type":"waiting"`)
}

func TestSendSwallowsWriteError(t *testing.T) {
	s, conn := newTestSession()
	conn.failAt = 1
	require.NotPanics(t, func() {
		s.Send(map[string]string{"type": "waiting"})
	})
}

func TestEnqueueActionDeliversToMailbox(t *testing.T) {
	s, _ := newTestSession()
	s.EnqueueAction([]byte(`{"type":"action"}`))

	select {
	case in := <-s.Mailbox():
		require.False(t, in.Disconnected)
		require.Equal(t, []byte(`{"type":"action"}`), in.Raw)
	default:
		t.Fatal("expected mailbox entry")
	}
}

func TestEnqueueActionDisplacesStaleEntry(t *testing.T) {
	s, _ := newTestSession()
	s.EnqueueAction([]byte(`{"type":"action","action":{"type":"fold"}}`))
	s.EnqueueAction([]byte(`{"type":"action","action":{"type":"call"}}`))

	in := <-s.Mailbox()
	require.Equal(t, []byte(`{"type":"action","action":{"type":"call"}}`), in.Raw)

	select {
	case <-s.Mailbox():
		t.Fatal("expected only one entry after displacement")
	default:
	}
}

func TestDrainStaleRemovesPendingEntry(t *testing.T) {
	s, _ := newTestSession()
	s.EnqueueAction([]byte(`{"type":"action"}`))
	s.DrainStale()

	select {
	case <-s.Mailbox():
		t.Fatal("expected mailbox to be empty after drain")
	default:
	}
}

func TestSignalDisconnectIsIdempotentAndWakesMailbox(t *testing.T) {
	s, _ := newTestSession()
	s.SignalDisconnect()
	s.SignalDisconnect() // must not panic on double-close

	select {
	case <-s.Disconnected():
	default:
		t.Fatal("expected Disconnected channel closed")
	}

	in := <-s.Mailbox()
	require.True(t, in.Disconnected)
}

func TestSeatAndSpectatorState(t *testing.T) {
	s, _ := newTestSession()
	require.False(t, s.IsSpectator())

	s.SetPlayer("alice", 2)
	require.Equal(t, "alice", s.Name())
	require.Equal(t, 2, s.Seat())
	require.False(t, s.IsSpectator())

	s.SetSpectator()
	require.True(t, s.IsSpectator())
}
