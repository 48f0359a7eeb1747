package session

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sketchbox/sketchbox/protocol"
)

// closeEvent is the authoritative end of a connection: either a close
// frame with a server-assigned code or a transport error.
type closeEvent struct {
	code   int
	reason Reason
	detail string
}

// Conn owns the single persistent websocket for a session. Frames are
// delivered in network receipt order on Frames(); the terminal close
// arrives once on Closed(). All writes go through Send, which must be
// called from one goroutine (the session loop is the only writer).
type Conn struct {
	ws *websocket.Conn

	frames chan protocol.Frame
	closed chan closeEvent

	closeOnce sync.Once
}

// Dial opens the game connection, keyed by roomID and role as query
// parameters. A successful return corresponds to the open event.
func Dial(ctx context.Context, server, roomID, role string) (*Conn, error) {
	u, err := url.Parse(server)
	if err != nil {
		return nil, fmt.Errorf("session: invalid server url: %w", err)
	}
	q := u.Query()
	q.Set("roomId", roomID)
	q.Set("role", role)
	u.RawQuery = q.Encode()

	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("session: dial %s: %w (http %d)", u.Host, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("session: dial %s: %w", u.Host, err)
	}

	c := &Conn{
		ws:     ws,
		frames: make(chan protocol.Frame, 64),
		closed: make(chan closeEvent, 1),
	}
	go c.readPump()
	return c, nil
}

// Frames delivers inbound frames in receipt order.
func (c *Conn) Frames() <-chan protocol.Frame {
	return c.frames
}

// Closed delivers the single terminal close event.
func (c *Conn) Closed() <-chan closeEvent {
	return c.closed
}

// Send writes one frame to the wire.
func (c *Conn) Send(f protocol.Frame) error {
	msgType := websocket.TextMessage
	if f.Binary {
		msgType = websocket.BinaryMessage
	}
	return c.ws.WriteMessage(msgType, f.Data)
}

// Close tears the connection down. Idempotent; safe from any exit path.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		_ = c.ws.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			writeControlDeadline(),
		)
		_ = c.ws.Close()
	})
}

// readPump forwards frames until the wire ends, then reports how it
// ended. A transport error without a close frame maps to an unknown
// reason pending nothing better; the socket may or may not be gone.
func (c *Conn) readPump() {
	defer close(c.frames)

	for {
		msgType, data, err := c.ws.ReadMessage()
		if err != nil {
			c.closed <- interpretReadError(err)
			return
		}
		switch msgType {
		case websocket.TextMessage:
			c.frames <- protocol.Frame{Data: data}
		case websocket.BinaryMessage:
			c.frames <- protocol.Frame{Binary: true, Data: data}
		}
	}
}

func writeControlDeadline() time.Time {
	return time.Now().Add(time.Second)
}

func interpretReadError(err error) closeEvent {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return closeEvent{
			code:   ce.Code,
			reason: CloseReason(ce.Code),
			detail: ce.Text,
		}
	}
	return closeEvent{code: -1, reason: ReasonUnknown, detail: err.Error()}
}
