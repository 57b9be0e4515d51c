// Package session implements PlayerSession (spec §4.2): one instance per
// connection, owning the transport, an outbound serialization lock, a
// bounded-1 inbound action mailbox with displacement semantics, and a
// disconnect signal.
package session

import (
	"sync"

	"github.com/lox/algopoker/internal/protocol"
	"github.com/rs/zerolog"
)

// Conn is the minimal transport contract PlayerSession needs. The gorilla
// websocket adapter in internal/transport implements it; tests can supply
// an in-memory fake.
type Conn interface {
	WriteText(payload []byte) error
	Close() error
}

// Inbound is one entry in a session's action mailbox: either a raw client
// record, or the disconnect sentinel.
type Inbound struct {
	Raw          []byte
	Disconnected bool
}

// Session is one connection's state: a player seat or a spectator.
type Session struct {
	conn   Conn
	logger zerolog.Logger

	sendMu sync.Mutex // serializes outbound sends; at most one in flight

	mailbox chan Inbound // capacity 1, displacement on overflow

	disconnectOnce sync.Once
	disconnected   chan struct{} // closed once, for Disconnected callers

	mu          sync.Mutex
	displayName string
	seat        int
	isSpectator bool
}

// New wraps conn as a fresh session. The seat set by SetPlayer is
// meaningless for spectators.
func New(conn Conn, logger zerolog.Logger) *Session {
	return &Session{
		conn:         conn,
		logger:       logger,
		mailbox:      make(chan Inbound, 1),
		disconnected: make(chan struct{}),
	}
}

// SetPlayer records the seat assigned to this session (once joined).
func (s *Session) SetPlayer(name string, seat int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.displayName = name
	s.seat = seat
	s.isSpectator = false
}

// SetSpectator marks this session as a spectator connection.
func (s *Session) SetSpectator() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isSpectator = true
}

// Seat returns the assigned seat_index. Meaningless if IsSpectator.
func (s *Session) Seat() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seat
}

// Name returns the player's display name.
func (s *Session) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.displayName
}

// IsSpectator reports whether this session is a spectator, not a seated
// player.
func (s *Session) IsSpectator() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isSpectator
}

// Send encodes and transmits record, serialized against any other
// concurrent send on this session. Transport-closed errors are swallowed —
// they will surface as a close on the next receive and trigger disconnect
// handling, per spec §7.
func (s *Session) Send(record any) {
	payload, err := protocol.Marshal(record)
	if err != nil {
		s.logger.Error().Err(err).Msg("session: failed to marshal outbound record")
		return
	}

	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	if err := s.conn.WriteText(payload); err != nil {
		s.logger.Debug().Err(err).Msg("session: send failed, likely closed connection")
	}
}

// EnqueueAction offers a raw inbound record to the mailbox. If the mailbox
// already holds an entry, it is displaced by the new one (spec §4.2: "newer
// in-turn actions displace older"); if a concurrent displacement races this
// one the new record is simply dropped, matching the
// at-most-one-in-flight-action invariant either way.
func (s *Session) EnqueueAction(raw []byte) {
	s.offer(Inbound{Raw: raw})
}

// SignalDisconnect idempotently places the disconnect sentinel in the
// mailbox so any blocked receiver wakes immediately, and closes the channel
// returned by Disconnected. Send and EnqueueAction do not consult it.
func (s *Session) SignalDisconnect() {
	s.disconnectOnce.Do(func() {
		close(s.disconnected)
		s.offer(Inbound{Disconnected: true})
	})
}

// Disconnected returns a channel that is closed once SignalDisconnect has
// been called.
func (s *Session) Disconnected() <-chan struct{} {
	return s.disconnected
}

// Mailbox exposes the inbound channel for the hand loop to select on
// alongside a timeout.
func (s *Session) Mailbox() <-chan Inbound {
	return s.mailbox
}

// DrainStale removes any pending mailbox entry without blocking. The hand
// loop calls this immediately before prompting an actor, per spec §4.5
// step 3c and §9 ("drain before prompt").
func (s *Session) DrainStale() {
	select {
	case <-s.mailbox:
	default:
	}
}

// offer performs the non-blocking-send-or-displace dance described on
// EnqueueAction/SignalDisconnect.
func (s *Session) offer(v Inbound) {
	select {
	case s.mailbox <- v:
		return
	default:
	}
	select {
	case <-s.mailbox:
	default:
	}
	select {
	case s.mailbox <- v:
	default:
	}
}

// Close closes the underlying transport.
func (s *Session) Close() error {
	return s.conn.Close()
}
