package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sketchbox/sketchbox/protocol"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestDialSendsRoomAndRole(t *testing.T) {
	params := make(chan map[string]string, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		params <- map[string]string{
			"roomId": r.URL.Query().Get("roomId"),
			"role":   r.URL.Query().Get("role"),
		}
		ws, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ws.Close()
	}))
	defer srv.Close()

	conn, err := Dial(context.Background(), wsURL(srv), "r42", RoleAdmin)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	got := <-params
	if got["roomId"] != "r42" || got["role"] != "admin" {
		t.Errorf("connection parameters = %v", got)
	}
}

func TestConnDeliversFramesInOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"draw-stop"}`))
		_ = ws.WriteMessage(websocket.BinaryMessage, []byte{1, 2, 3})
		_ = ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`))
	}))
	defer srv.Close()

	conn, err := Dial(context.Background(), wsURL(srv), "r1", RoleUser)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	want := []protocol.Frame{
		{Data: []byte(`{"type":"draw-stop"}`)},
		{Binary: true, Data: []byte{1, 2, 3}},
		{Data: []byte(`{"type":"ping"}`)},
	}
	for i, w := range want {
		select {
		case got := <-conn.Frames():
			if got.Binary != w.Binary || string(got.Data) != string(w.Data) {
				t.Errorf("frame %d = %+v, want %+v", i, got, w)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for frame %d", i)
		}
	}
}

func TestConnReportsServerCloseCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		msg := websocket.FormatCloseMessage(4002, "admin capacity reached")
		_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		ws.Close()
	}))
	defer srv.Close()

	conn, err := Dial(context.Background(), wsURL(srv), "r1", RoleAdmin)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	select {
	case ev := <-conn.Closed():
		if ev.code != 4002 || ev.reason != ReasonAdminLimit {
			t.Errorf("close event = %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for close event")
	}
}

func TestConnSendReachesServer(t *testing.T) {
	received := make(chan []byte, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_, data, err := ws.ReadMessage()
		if err == nil {
			received <- data
		}
	}))
	defer srv.Close()

	conn, err := Dial(context.Background(), wsURL(srv), "r1", RoleAdmin)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	if err := conn.Send(protocol.Frame{Data: []byte(`{"type":"pong"}`)}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case data := <-received:
		if string(data) != `{"type":"pong"}` {
			t.Errorf("server received %s", data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("frame never reached the server")
	}
}

func TestDialRejectsBadURL(t *testing.T) {
	if _, err := Dial(context.Background(), "://nope", "r1", RoleUser); err == nil {
		t.Error("expected an error for an unparseable endpoint")
	}
}
