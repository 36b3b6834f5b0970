//go:build integration

package integration

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// BaseURL points at a running navald, e.g. NAVAL_URL=http://127.0.0.1:8080.
func BaseURL() string {
	if u := os.Getenv("NAVAL_URL"); u != "" {
		return strings.TrimRight(u, "/")
	}
	return "http://127.0.0.1:8080"
}

type CreatedMatch struct {
	MatchID string `json:"match_id"`
	Player1 string `json:"player1_ticket"`
	Player2 string `json:"player2_ticket"`
}

// Frame is a server message as received on the socket.
type Frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type TestClient struct {
	Conn *websocket.Conn
}

// CreateMatch asks the server for a new match and its two seat tickets.
func CreateMatch(t *testing.T) CreatedMatch {
	t.Helper()
	resp, err := http.Post(BaseURL()+"/api/matches", "application/json", nil)
	if err != nil {
		t.Fatalf("create match: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create match: status %d", resp.StatusCode)
	}
	var m CreatedMatch
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		t.Fatalf("decode created match: %v", err)
	}
	return m
}

func NewTestClient(t *testing.T, matchID, ticket string) *TestClient {
	t.Helper()
	url := "ws" + strings.TrimPrefix(BaseURL(), "http") + "/ws/" + matchID + "?ticket=" + ticket
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to connect socket: %v", err)
	}
	return &TestClient{Conn: conn}
}

func (tc *TestClient) Close() {
	if tc.Conn != nil {
		tc.Conn.Close()
	}
}

// Send writes one {type, data} request.
func (tc *TestClient) Send(t *testing.T, kind string, data any) {
	t.Helper()
	msg := map[string]any{"type": kind}
	if data != nil {
		msg["data"] = data
	}
	if err := tc.Conn.WriteJSON(msg); err != nil {
		t.Fatalf("send %s: %v", kind, err)
	}
}

// WaitFor reads frames until one of the given type arrives and match accepts it.
func (tc *TestClient) WaitFor(t *testing.T, kind string, timeout time.Duration, match func(json.RawMessage) bool) json.RawMessage {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		if err := tc.Conn.SetReadDeadline(deadline); err != nil {
			t.Fatal(err)
		}
		var f Frame
		if err := tc.Conn.ReadJSON(&f); err != nil {
			t.Fatalf("Timeout waiting for %s: %v", kind, err)
		}
		if f.Type == kind && (match == nil || match(f.Data)) {
			return f.Data
		}
	}
}
