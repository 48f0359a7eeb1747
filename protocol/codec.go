package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"

	_ "image/jpeg" // snapshot payloads
	_ "image/png"  // snapshot payloads
)

// ErrProtocolViolation marks a malformed inbound frame. Callers must
// treat it as non-fatal: drop the frame, keep the connection open.
var ErrProtocolViolation = errors.New("protocol: malformed frame")

// ErrNotEncodable marks an action that never goes out over the socket
// (round control is routed over the HTTP control plane instead).
var ErrNotEncodable = errors.New("protocol: action has no wire encoding")

// Frame is one discrete message unit on the wire: JSON text or a
// compressed image as binary.
type Frame struct {
	Binary bool
	Data   []byte
}

// Action is the tagged union carried through the queue and replay
// engine. Only the fields relevant to Kind are set.
type Action struct {
	Kind          Kind
	Point         *Point       // draw-start, draw
	Chat          *ChatMessage // chat
	Winner        string       // correct
	CorrectAnswer string       // correct, round-finish
	Image         image.Image  // render; write-once, read-once
	Data          []byte       // snapshot (compressed bytes, outbound only)
}

// wireMessage is the superset of every JSON shape on the wire.
type wireMessage struct {
	Type   string `json:"type"`
	Point  *Point `json:"point,omitempty"`
	ID     string `json:"id,omitempty"`
	Text   string `json:"text,omitempty"`
	Sender string `json:"sender,omitempty"`
	Date   string `json:"date,omitempty"`
	Winner string `json:"winner,omitempty"`

	// Some server revisions nest chat payloads under "message".
	Message *ChatMessage `json:"message,omitempty"`

	// correctAnswer is canonical; correctAnswers is accepted from
	// older servers and its first element wins.
	CorrectAnswer  string   `json:"correctAnswer,omitempty"`
	CorrectAnswers []string `json:"correctAnswers,omitempty"`
}

// Encode serializes an outbound action into a wire frame.
func Encode(a Action) (Frame, error) {
	switch a.Kind {
	case KindDrawStart, KindDraw:
		if a.Point == nil {
			return Frame{}, fmt.Errorf("%w: %s without point", ErrNotEncodable, a.Kind)
		}
		return marshalText(wireMessage{Type: string(a.Kind), Point: a.Point})
	case KindDrawStop:
		return marshalText(wireMessage{Type: string(a.Kind)})
	case KindChat:
		if a.Chat == nil {
			return Frame{}, fmt.Errorf("%w: chat without payload", ErrNotEncodable)
		}
		return marshalText(wireMessage{
			Type:   string(KindChat),
			ID:     a.Chat.ID,
			Text:   a.Chat.Text,
			Sender: a.Chat.Sender,
		})
	case KindPong:
		return marshalText(wireMessage{Type: string(KindPong)})
	case KindSnapshot:
		return Frame{Binary: true, Data: a.Data}, nil
	default:
		return Frame{}, fmt.Errorf("%w: %q", ErrNotEncodable, a.Kind)
	}
}

func marshalText(m wireMessage) (Frame, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Data: data}, nil
}

// Decode parses an inbound frame into a typed action.
//
// A binary frame is always a render action carrying the decoded image.
// A text frame is dispatched by its "type" field; an unrecognized type
// decodes to KindNone so newer servers cannot break older clients.
func Decode(f Frame) (Action, error) {
	if f.Binary {
		img, _, err := image.Decode(bytes.NewReader(f.Data))
		if err != nil {
			return Action{}, fmt.Errorf("%w: undecodable snapshot image: %v", ErrProtocolViolation, err)
		}
		return Action{Kind: KindRender, Image: img}, nil
	}

	var m wireMessage
	if err := json.Unmarshal(f.Data, &m); err != nil {
		return Action{}, fmt.Errorf("%w: %v", ErrProtocolViolation, err)
	}

	switch Kind(m.Type) {
	case KindDrawStart, KindDraw:
		if m.Point == nil {
			return Action{}, fmt.Errorf("%w: %s without point", ErrProtocolViolation, m.Type)
		}
		if err := m.Point.Validate(); err != nil {
			return Action{}, err
		}
		p := *m.Point
		return Action{Kind: Kind(m.Type), Point: &p}, nil
	case KindDrawStop, KindRoundStart, KindReqSnapshot, KindPing, KindPong:
		return Action{Kind: Kind(m.Type)}, nil
	case KindChat:
		msg := ChatMessage{ID: m.ID, Sender: m.Sender, Text: m.Text, Date: m.Date}
		if m.Message != nil {
			msg = *m.Message
		}
		return Action{Kind: KindChat, Chat: &msg}, nil
	case KindRoundFinish:
		return Action{Kind: KindRoundFinish, CorrectAnswer: m.answer()}, nil
	case KindCorrect:
		return Action{Kind: KindCorrect, Winner: m.Winner, CorrectAnswer: m.answer()}, nil
	default:
		return Action{Kind: KindNone}, nil
	}
}

func (m wireMessage) answer() string {
	if m.CorrectAnswer != "" {
		return m.CorrectAnswer
	}
	if len(m.CorrectAnswers) > 0 {
		return m.CorrectAnswers[0]
	}
	return ""
}
