// Package transport implements the one message-transport the core consumes
// through a narrow interface (spec §1: "the message transport: delivers
// ordered text frames per connection and signals close; the core does not
// implement it"). This is the gorilla/websocket wiring; PlayerSession only
// depends on session.Conn.
package transport

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WSConn adapts a *websocket.Conn to session.Conn, plus exposes blocking
// ReadText for the connection's inbound pump goroutine.
type WSConn struct {
	conn *websocket.Conn
}

// Upgrade promotes an HTTP request to a WSConn.
func Upgrade(w http.ResponseWriter, r *http.Request) (*WSConn, error) {
	c, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	c.SetReadDeadline(time.Now().Add(pongWait))
	c.SetPongHandler(func(string) error {
		return c.SetReadDeadline(time.Now().Add(pongWait))
	})
	return &WSConn{conn: c}, nil
}

// ReadText blocks for the next text frame.
func (w *WSConn) ReadText() ([]byte, error) {
	_, payload, err := w.conn.ReadMessage()
	return payload, err
}

// SetReadDeadline overrides the read deadline Upgrade set, so callers can
// enforce a short first-message deadline (spec §5: "join deadline: 10s
// from connect to first record") before widening back to the steady-state
// pong-driven deadline.
func (w *WSConn) SetReadDeadline(t time.Time) error {
	return w.conn.SetReadDeadline(t)
}

// WriteText sends one text frame, satisfying session.Conn.
func (w *WSConn) WriteText(payload []byte) error {
	w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return w.conn.WriteMessage(websocket.TextMessage, payload)
}

// Close satisfies session.Conn.
func (w *WSConn) Close() error {
	return w.conn.Close()
}

// KeepAlive runs a ping ticker until stop is closed, so idle connections
// aren't dropped by intermediaries. It writes directly (pings bypass the
// session send lock, matching the teacher's bot.go WritePump idiom, since a
// ping frame is not a protocol record).
func (w *WSConn) KeepAlive(stop <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			w.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := w.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-stop:
			return
		}
	}
}
