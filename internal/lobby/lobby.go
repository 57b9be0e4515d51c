// Package lobby implements admission and the waiting-room phase (spec
// §4.3): accepting join/spectate connections, validating names, assigning
// seat_index in join order, and deciding when the tournament starts.
package lobby

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/lox/algopoker/internal/broadcast"
	"github.com/lox/algopoker/internal/protocol"
	"github.com/lox/algopoker/internal/session"
	"github.com/rs/zerolog"
)

const maxNameLength = 32

// Config bounds the waiting room. Zero-value LobbyWaitSeconds disables the
// min-players grace timer (only max-reached or a spectator's explicit start
// will begin the tournament).
type Config struct {
	MinPlayers       int
	MaxPlayers       int
	StartingStack    int
	LobbyWaitSeconds int
}

// Player is a seated lobby entrant, promoted to a tournament seat once the
// lobby starts.
type Player struct {
	Session *session.Session
	Name    string
	Seat    int
	Stack   int
}

// AdmissionError is a rejected join/spectate, carrying the wire error code
// sent back to the rejected connection (spec §7).
type AdmissionError struct {
	Code    string
	Message string
}

func (e *AdmissionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func badName(msg string) error {
	return &AdmissionError{Code: protocol.ErrBadName, Message: msg}
}

// Lobby is the waiting room for one tournament: it collects players and
// spectators and transitions exactly once into the started state.
type Lobby struct {
	cfg    Config
	logger zerolog.Logger
	clock  quartz.Clock

	mu         sync.Mutex
	players    []*Player
	spectators []*session.Session
	started    bool
	startOnce  sync.Once
	graceTimer quartz.Timer

	// onStart is invoked exactly once, holding no lock, when the lobby
	// transitions to started. The tournament package supplies this to
	// kick off play with the final seating.
	onStart func(players []*Player, spectators []*session.Session)
}

// New builds an empty lobby. onStart is called at most once, when the
// tournament should begin.
func New(cfg Config, logger zerolog.Logger, clock quartz.Clock, onStart func([]*Player, []*session.Session)) *Lobby {
	return &Lobby{cfg: cfg, logger: logger, clock: clock, onStart: onStart}
}

// Register validates and seats a join{name} request, per spec §4.3's
// admission rules. Returns an *AdmissionError for every rejection case
// (BAD_NAME, TOURNAMENT_FULL, TOURNAMENT_STARTED); the caller is
// responsible for sending that error to the connection and closing it.
func (l *Lobby) Register(sess *session.Session, name string) (*Player, error) {
	trimmed := strings.TrimSpace(name)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.started {
		return nil, &AdmissionError{Code: protocol.ErrTournamentStarted, Message: "tournament already started"}
	}
	if trimmed == "" {
		return nil, badName("name must not be empty")
	}
	if len(trimmed) > maxNameLength {
		return nil, badName(fmt.Sprintf("name must be at most %d characters", maxNameLength))
	}
	for _, p := range l.players {
		if p.Name == trimmed {
			return nil, badName("name already taken")
		}
	}
	if len(l.players) >= l.cfg.MaxPlayers {
		return nil, &AdmissionError{Code: protocol.ErrTournamentFull, Message: "tournament is full"}
	}

	p := &Player{Session: sess, Name: trimmed, Seat: len(l.players), Stack: l.cfg.StartingStack}
	l.players = append(l.players, p)
	sess.SetPlayer(trimmed, p.Seat)

	l.logger.Info().Str("name", trimmed).Int("seat", p.Seat).Msg("lobby: player joined")

	atMax := len(l.players) >= l.cfg.MaxPlayers
	atMin := len(l.players) >= l.cfg.MinPlayers && l.cfg.MinPlayers > 0

	l.broadcastWaitingLocked()

	switch {
	case atMax:
		l.beginLocked()
	case atMin && l.graceTimer == nil && l.cfg.LobbyWaitSeconds > 0:
		l.armGraceTimerLocked()
	}

	return p, nil
}

// AddSpectator admits a spectate connection. Spectators may join before or
// after the tournament starts; they are never rejected by fullness or
// start state.
func (l *Lobby) AddSpectator(sess *session.Session) {
	sess.SetSpectator()

	l.mu.Lock()
	l.spectators = append(l.spectators, sess)
	started := l.started
	l.mu.Unlock()

	if !started {
		l.broadcastWaiting()
	}
}

// ForceStart begins the tournament immediately, as a spectator's explicit
// start command (spec §4.3). Returns false if fewer than MinPlayers are
// seated or the lobby has already started.
func (l *Lobby) ForceStart() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.started || len(l.players) < l.cfg.MinPlayers {
		return false
	}
	l.beginLocked()
	return true
}

// armGraceTimerLocked starts the min-players grace period. Must be called
// with l.mu held.
func (l *Lobby) armGraceTimerLocked() {
	wait := time.Duration(l.cfg.LobbyWaitSeconds) * time.Second
	l.graceTimer = l.clock.AfterFunc(wait, func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if !l.started && len(l.players) >= l.cfg.MinPlayers {
			l.beginLocked()
		}
	})
}

// beginLocked performs the one-time started transition. Must be called
// with l.mu held; idempotent via startOnce so a max-reached join racing a
// grace-timer fire or a spectator ForceStart can never double-start (§8
// invariant 7).
func (l *Lobby) beginLocked() {
	l.startOnce.Do(func() {
		l.started = true
		if l.graceTimer != nil {
			l.graceTimer.Stop()
		}
		players := append([]*Player(nil), l.players...)
		spectators := append([]*session.Session(nil), l.spectators...)
		l.logger.Info().Int("players", len(players)).Msg("lobby: starting tournament")
		if l.onStart != nil {
			go l.onStart(players, spectators)
		}
	})
}

// Started reports whether the lobby has transitioned out of the waiting
// room.
func (l *Lobby) Started() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.started
}

// broadcastWaiting sends the current waiting{} snapshot to every
// connected player and spectator.
func (l *Lobby) broadcastWaiting() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.broadcastWaitingLocked()
}

func (l *Lobby) broadcastWaitingLocked() {
	msg := protocol.Waiting{
		Type:           protocol.TypeWaiting,
		CurrentPlayers: len(l.players),
		MinPlayers:     l.cfg.MinPlayers,
		MaxPlayers:     l.cfg.MaxPlayers,
	}

	recipients := make([]*session.Session, 0, len(l.players)+len(l.spectators))
	for _, p := range l.players {
		recipients = append(recipients, p.Session)
	}
	recipients = append(recipients, l.spectators...)

	broadcast.To(recipients, func(*session.Session) any { return msg })
}
