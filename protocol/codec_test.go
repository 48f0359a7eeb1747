package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"testing"
)

func TestEncodeDrawActions(t *testing.T) {
	point := &Point{X: 10, Y: 10, Color: "#000000", LineWidth: 5}

	tests := []struct {
		name   string
		action Action
		want   string
	}{
		{
			name:   "draw start carries the point",
			action: Action{Kind: KindDrawStart, Point: point},
			want:   `{"type":"draw-start","point":{"x":10,"y":10,"color":"#000000","lineWidth":5}}`,
		},
		{
			name:   "draw carries the point",
			action: Action{Kind: KindDraw, Point: point},
			want:   `{"type":"draw","point":{"x":10,"y":10,"color":"#000000","lineWidth":5}}`,
		},
		{
			name:   "draw stop has no point",
			action: Action{Kind: KindDrawStop},
			want:   `{"type":"draw-stop"}`,
		},
		{
			name:   "pong is type only",
			action: Action{Kind: KindPong},
			want:   `{"type":"pong"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := Encode(tt.action)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			if frame.Binary {
				t.Fatal("expected a text frame")
			}
			if string(frame.Data) != tt.want {
				t.Errorf("got %s, want %s", frame.Data, tt.want)
			}
		})
	}
}

func TestEncodeChat(t *testing.T) {
	frame, err := Encode(Action{Kind: KindChat, Chat: &ChatMessage{
		ID:     "abc",
		Sender: "alice",
		Text:   "is it a cat?",
	}})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	var m map[string]any
	if err := json.Unmarshal(frame.Data, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["type"] != "chat" || m["text"] != "is it a cat?" || m["sender"] != "alice" || m["id"] != "abc" {
		t.Errorf("unexpected chat frame: %s", frame.Data)
	}
}

func TestEncodeSnapshotIsBinary(t *testing.T) {
	payload := []byte{0xff, 0xd8, 0xff}
	frame, err := Encode(Action{Kind: KindSnapshot, Data: payload})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !frame.Binary {
		t.Fatal("snapshot must be a binary frame")
	}
	if !bytes.Equal(frame.Data, payload) {
		t.Error("snapshot payload must pass through untouched")
	}
}

func TestEncodeRejectsControlActions(t *testing.T) {
	// Round control is routed over the HTTP control plane, never the socket.
	for _, kind := range []Kind{KindRoundStart, KindRoundFinish, KindReqSnapshot, KindPing, KindRender, KindCorrect, KindNone} {
		if _, err := Encode(Action{Kind: kind}); !errors.Is(err, ErrNotEncodable) {
			t.Errorf("Encode(%q): got %v, want ErrNotEncodable", kind, err)
		}
	}
}

func TestDecodeDispatchesByType(t *testing.T) {
	tests := []struct {
		name string
		data string
		want Kind
	}{
		{"draw start", `{"type":"draw-start","point":{"x":1,"y":2,"color":"#ff00aa","lineWidth":3}}`, KindDrawStart},
		{"draw", `{"type":"draw","point":{"x":1,"y":2,"color":"#ff00aa","lineWidth":3}}`, KindDraw},
		{"draw stop", `{"type":"draw-stop"}`, KindDrawStop},
		{"round start", `{"type":"round-start"}`, KindRoundStart},
		{"req snapshot", `{"type":"req-snapshot"}`, KindReqSnapshot},
		{"ping", `{"type":"ping"}`, KindPing},
		{"chat", `{"type":"chat","text":"hi","sender":"bob"}`, KindChat},
		{"round finish", `{"type":"round-finish","correctAnswer":"cat"}`, KindRoundFinish},
		{"correct", `{"type":"correct","winner":"alice","correctAnswer":"cat"}`, KindCorrect},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action, err := Decode(Frame{Data: []byte(tt.data)})
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if action.Kind != tt.want {
				t.Errorf("got kind %q, want %q", action.Kind, tt.want)
			}
		})
	}
}

func TestDecodeUnknownTypeIsNoOp(t *testing.T) {
	action, err := Decode(Frame{Data: []byte(`{"type":"next-big-feature","weight":12}`)})
	if err != nil {
		t.Fatalf("unknown types must not fail decode: %v", err)
	}
	if action.Kind != KindNone {
		t.Errorf("got kind %q, want KindNone", action.Kind)
	}
}

func TestDecodeViolations(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `this is not json`},
		{"draw without point", `{"type":"draw"}`},
		{"bad color", `{"type":"draw","point":{"x":1,"y":2,"color":"red","lineWidth":3}}`},
		{"short color", `{"type":"draw","point":{"x":1,"y":2,"color":"#fff","lineWidth":3}}`},
		{"zero width", `{"type":"draw","point":{"x":1,"y":2,"color":"#ffffff","lineWidth":0}}`},
		{"negative width", `{"type":"draw","point":{"x":1,"y":2,"color":"#ffffff","lineWidth":-4}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(Frame{Data: []byte(tt.data)})
			if !errors.Is(err, ErrProtocolViolation) {
				t.Errorf("got %v, want ErrProtocolViolation", err)
			}
		})
	}
}

func TestDecodeBinaryIsRender(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 32, 16))); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}

	action, err := Decode(Frame{Binary: true, Data: buf.Bytes()})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if action.Kind != KindRender {
		t.Fatalf("got kind %q, want render", action.Kind)
	}
	bounds := action.Image.Bounds()
	if bounds.Dx() != 32 || bounds.Dy() != 16 {
		t.Errorf("decoded image is %dx%d, want 32x16", bounds.Dx(), bounds.Dy())
	}
}

func TestDecodeBinaryGarbage(t *testing.T) {
	_, err := Decode(Frame{Binary: true, Data: []byte("definitely not an image")})
	if !errors.Is(err, ErrProtocolViolation) {
		t.Errorf("got %v, want ErrProtocolViolation", err)
	}
}

func TestDecodeLegacyAnswerField(t *testing.T) {
	action, err := Decode(Frame{Data: []byte(`{"type":"round-finish","correctAnswers":["dog","hound"]}`)})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if action.CorrectAnswer != "dog" {
		t.Errorf("got answer %q, want first legacy element", action.CorrectAnswer)
	}
}

func TestDecodeNestedChatPayload(t *testing.T) {
	action, err := Decode(Frame{Data: []byte(`{"type":"chat","message":{"sender":"carol","text":"hello","date":"12:01"}}`)})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if action.Chat == nil || action.Chat.Sender != "carol" || action.Chat.Text != "hello" {
		t.Errorf("nested chat payload not honored: %+v", action.Chat)
	}
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#1a2b3c")
	if err != nil {
		t.Fatalf("ParseColor: %v", err)
	}
	if c.R != 0x1a || c.G != 0x2b || c.B != 0x3c || c.A != 0xff {
		t.Errorf("unexpected channels: %+v", c)
	}
}
