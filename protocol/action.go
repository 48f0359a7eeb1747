package protocol

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
)

// Kind discriminates the action variants carried on the wire.
type Kind string

const (
	KindNone        Kind = ""             // unrecognized inbound type, dropped upstream
	KindDrawStart   Kind = "draw-start"   // begin a stroke at a point
	KindDraw        Kind = "draw"         // extend the current stroke
	KindDrawStop    Kind = "draw-stop"    // terminate the current stroke
	KindRoundStart  Kind = "round-start"  // clear the canvas for a new round
	KindRoundFinish Kind = "round-finish" // round over, answer revealed
	KindReqSnapshot Kind = "req-snapshot" // peer asks for a full-frame snapshot
	KindRender      Kind = "render"       // repaint the canvas from a decoded image
	KindCorrect     Kind = "correct"      // a guesser got the answer
	KindChat        Kind = "chat"         // chat message
	KindPing        Kind = "ping"         // server keepalive probe
	KindPong        Kind = "pong"         // keepalive reply
	KindSnapshot    Kind = "snapshot"     // outbound compressed canvas image
)

// Point is a single drawing sample. Immutable once created.
type Point struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Color     string  `json:"color"`
	LineWidth float64 `json:"lineWidth"`
}

// Validate reports whether the point is safe to replay: finite
// coordinates, a well-formed hex color, and a positive line width.
func (p Point) Validate() error {
	for _, v := range []float64{p.X, p.Y} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite coordinate", ErrProtocolViolation)
		}
	}
	if _, err := ParseColor(p.Color); err != nil {
		return err
	}
	if p.LineWidth <= 0 || math.IsNaN(p.LineWidth) || math.IsInf(p.LineWidth, 0) {
		return fmt.Errorf("%w: line width %v", ErrProtocolViolation, p.LineWidth)
	}
	return nil
}

// ParseColor converts a "#RRGGBB" string into an RGBA color.
func ParseColor(s string) (color.RGBA, error) {
	if len(s) != 7 || s[0] != '#' {
		return color.RGBA{}, fmt.Errorf("%w: malformed color %q", ErrProtocolViolation, s)
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("%w: malformed color %q", ErrProtocolViolation, s)
	}
	return color.RGBA{
		R: uint8(v >> 16),
		G: uint8(v >> 8),
		B: uint8(v),
		A: 0xff,
	}, nil
}

// ChatMessage is one line of chat. The ID is assigned by the sender and
// used to suppress the server echo of a locally displayed message.
type ChatMessage struct {
	ID     string `json:"id,omitempty"`
	Sender string `json:"sender"`
	Text   string `json:"text"`
	Date   string `json:"date,omitempty"`
}
