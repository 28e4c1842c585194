package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"apextrader/internal/engine"
	"apextrader/internal/scanner"
)

func dialHub(t *testing.T, h *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(h.ServeWS))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

type wsEnvelope struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
	TS      string          `json:"ts"`
}

func readEnvelope(t *testing.T, conn *websocket.Conn) wsEnvelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var env wsEnvelope
	if err := json.Unmarshal(msg, &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return env
}

func waitForClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.ClientCount() < n {
		if time.Now().After(deadline) {
			t.Fatalf("client count = %d, want %d", h.ClientCount(), n)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHubBroadcastsStatus(t *testing.T) {
	h := NewHub(nil)
	conn := dialHub(t, h)
	waitForClients(t, h, 1)

	h.PublishStatus(context.Background(), engine.Status{State: engine.StateOpen})

	env := readEnvelope(t, conn)
	if env.Channel != "status" {
		t.Fatalf("channel = %q, want status", env.Channel)
	}
	var st engine.Status
	if err := json.Unmarshal(env.Data, &st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if st.State != engine.StateOpen {
		t.Fatalf("state = %s, want OPEN", st.State)
	}
}

func TestHubSendsLatestOnConnect(t *testing.T) {
	h := NewHub(nil)

	// Published before any client connects.
	h.PublishScan(context.Background(), &scanner.Result{Scanned: 42})

	conn := dialHub(t, h)
	env := readEnvelope(t, conn)
	if env.Channel != "scan" {
		t.Fatalf("channel = %q, want scan", env.Channel)
	}
	var res scanner.Result
	if err := json.Unmarshal(env.Data, &res); err != nil {
		t.Fatalf("decode scan: %v", err)
	}
	if res.Scanned != 42 {
		t.Fatalf("scanned = %d, want 42", res.Scanned)
	}
}

func TestHubDropsNilScan(t *testing.T) {
	h := NewHub(nil)
	h.PublishScan(context.Background(), nil)
	if len(h.latest) != 0 {
		t.Fatal("nil scan should not be stored")
	}
}
