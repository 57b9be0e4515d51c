package main

import (
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lox/algopoker/internal/lobby"
	"github.com/lox/algopoker/internal/protocol"
	"github.com/lox/algopoker/internal/session"
	"github.com/lox/algopoker/internal/transport"
	"github.com/rs/zerolog"
)

const joinDeadline = 10 * time.Second

// handleConnection owns one accepted websocket for its lifetime: enforces
// the join deadline, admits the connection as a player or spectator via
// the current lobby, then pumps inbound frames into the session's mailbox
// until the socket closes (spec §4.2, §4.3, §5).
func handleConnection(logger zerolog.Logger, conn *transport.WSConn, holder *lobbyHolder) {
	sess := session.New(conn, logger)
	stop := make(chan struct{})
	go conn.KeepAlive(stop)
	defer close(stop)
	defer sess.Close()

	conn.SetReadDeadline(time.Now().Add(joinDeadline))
	raw, err := conn.ReadText()
	if err != nil {
		sess.Send(protocol.Error{Type: protocol.TypeError, Code: protocol.ErrBadJoin, Message: "no join or spectate record received before deadline"})
		logger.Debug().Err(err).Msg("server: connection closed before join")
		return
	}
	conn.SetReadDeadline(time.Time{})

	msgType, err := protocol.PeekType(raw)
	if err != nil {
		sess.Send(protocol.Error{Type: protocol.TypeError, Code: protocol.ErrBadJSON, Message: err.Error()})
		return
	}

	room := holder.get()

	switch msgType {
	case protocol.TypeJoin:
		join, err := protocol.UnmarshalJoin(raw)
		if err != nil {
			sess.Send(protocol.Error{Type: protocol.TypeError, Code: protocol.ErrBadJSON, Message: err.Error()})
			return
		}
		if _, err := room.Register(sess, join.Name); err != nil {
			sendAdmissionError(sess, err)
			return
		}
	case protocol.TypeSpectate:
		room.AddSpectator(sess)
	default:
		sess.Send(protocol.Error{Type: protocol.TypeError, Code: protocol.ErrBadJoin, Message: "first record must be join or spectate"})
		return
	}

	pump(logger, conn, sess, room)
}

func sendAdmissionError(sess *session.Session, err error) {
	var ae *lobby.AdmissionError
	if errors.As(err, &ae) {
		sess.Send(protocol.Error{Type: protocol.TypeError, Code: ae.Code, Message: ae.Message})
		return
	}
	sess.Send(protocol.Error{Type: protocol.TypeError, Code: protocol.ErrBadJoin, Message: err.Error()})
}

// pump reads frames for the remaining lifetime of the connection,
// forwarding actions to the session mailbox and handling the spectator
// force-start command, until the socket closes.
func pump(logger zerolog.Logger, conn *transport.WSConn, sess *session.Session, room *lobby.Lobby) {
	defer sess.SignalDisconnect()

	for {
		raw, err := conn.ReadText()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug().Err(err).Msg("server: connection closed unexpectedly")
			}
			return
		}

		msgType, err := protocol.PeekType(raw)
		if err != nil {
			sess.Send(protocol.Error{Type: protocol.TypeError, Code: protocol.ErrBadJSON, Message: err.Error()})
			continue
		}

		switch msgType {
		case protocol.TypeAction:
			sess.EnqueueAction(raw)
		case protocol.TypeStart:
			if sess.IsSpectator() {
				room.ForceStart()
			}
		default:
			sess.Send(protocol.Error{Type: protocol.TypeError, Code: protocol.ErrUnknownType, Message: "unrecognized message type"})
		}
	}
}
