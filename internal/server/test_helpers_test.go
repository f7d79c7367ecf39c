package server

import (
	"bytes"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func newTestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping test; listen unavailable: %v", err)
	}
	ts := &httptest.Server{
		Listener: listener,
		Config:   &http.Server{Handler: handler},
	}
	ts.Start()
	return ts
}

type joinedMember struct {
	RoomCode string `json:"room_code"`
	MemberID int    `json:"member_id"`
	Token    string `json:"token"`
}

func createRoomT(t *testing.T, ts *httptest.Server, name string) joinedMember {
	t.Helper()
	body, _ := json.Marshal(map[string]any{"name": name})
	resp, err := http.Post(ts.URL+"/api/rooms", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create room status = %d", resp.StatusCode)
	}
	var member joinedMember
	if err := json.NewDecoder(resp.Body).Decode(&member); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	return member
}

func joinRoomT(t *testing.T, ts *httptest.Server, code, name string) joinedMember {
	t.Helper()
	body, _ := json.Marshal(map[string]any{"name": name})
	resp, err := http.Post(ts.URL+"/api/rooms/"+code+"/join", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("join room: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("join room status = %d", resp.StatusCode)
	}
	var member joinedMember
	if err := json.NewDecoder(resp.Body).Decode(&member); err != nil {
		t.Fatalf("decode join response: %v", err)
	}
	member.RoomCode = code
	return member
}

func dialWS(t *testing.T, ts *httptest.Server, member joinedMember) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") +
		"/ws/rooms/" + member.RoomCode +
		"?member_id=" + strconv.Itoa(member.MemberID) + "&token=" + member.Token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Skipf("skipping test; websocket dial unavailable: %v", err)
	}
	return conn
}

func sendWS(t *testing.T, conn *websocket.Conn, payload any) {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal ws message: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("write ws message: %v", err)
	}
}

func readEvent(t *testing.T, conn *websocket.Conn, timeout time.Duration) map[string]any {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read websocket message: %v", err)
	}
	var event map[string]any
	if err := json.Unmarshal(payload, &event); err != nil {
		t.Fatalf("decode websocket message: %v", err)
	}
	return event
}

// waitForEvent reads events until one of the wanted type arrives,
// discarding everything else.
func waitForEvent(t *testing.T, conn *websocket.Conn, eventType string, timeout time.Duration) map[string]any {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			t.Fatalf("timed out waiting for %s event", eventType)
		}
		event := readEvent(t, conn, remaining)
		if event["type"] == eventType {
			return event
		}
	}
}

func expectNoEvent(t *testing.T, conn *websocket.Conn, eventType string, timeout time.Duration) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			netErr, ok := err.(net.Error)
			if !ok || !netErr.Timeout() {
				t.Fatalf("expected websocket timeout, got %v", err)
			}
			return
		}
		var event map[string]any
		if err := json.Unmarshal(payload, &event); err != nil {
			continue
		}
		if event["type"] == eventType {
			t.Fatalf("unexpected %s event within %s", eventType, timeout)
		}
	}
}
