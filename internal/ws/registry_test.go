package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/backgammon-arena/server/pkg/wire"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

func TestRegistryRoundTrip(t *testing.T) {
	r := NewRegistry()
	events := make(chan wire.Envelope, 1)
	r.OnEvent(func(connID string, env wire.Envelope) {
		events <- env
		r.Send(connID, "pong", map[string]any{"ok": true})
	})
	disconnected := make(chan string, 1)
	r.OnDisconnect(func(connID string) { disconnected <- connID })

	ts := httptest.NewServer(r)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	sock, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer sock.Close(websocket.StatusNormalClosure, "")

	if err := wsjson.Write(ctx, sock, map[string]any{"event": "ping", "data": map[string]any{}}); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case env := <-events:
		if env.Event != "ping" {
			t.Fatalf("event = %s, want ping", env.Event)
		}
	case <-ctx.Done():
		t.Fatal("inbound frame never reached the handler")
	}

	var out wire.OutEnvelope
	if err := wsjson.Read(ctx, sock, &out); err != nil {
		t.Fatalf("read: %v", err)
	}
	if out.Event != "pong" {
		t.Fatalf("event = %s, want pong", out.Event)
	}

	if r.Len() != 1 {
		t.Fatalf("registry len = %d, want 1", r.Len())
	}

	sock.Close(websocket.StatusNormalClosure, "")
	select {
	case <-disconnected:
	case <-ctx.Done():
		t.Fatal("disconnect hook never fired")
	}
	waitRegistry(t, r, 0)
}

func TestSendToUnknownConn(t *testing.T) {
	r := NewRegistry()
	if r.Send("nope", "event", nil) {
		t.Fatal("Send reported delivery to an unregistered connection")
	}
	if r.IsLive("nope") {
		t.Fatal("IsLive true for unregistered connection")
	}
}

func TestRegistryIgnoresEmptyEvent(t *testing.T) {
	r := NewRegistry()
	events := make(chan wire.Envelope, 1)
	r.OnEvent(func(_ string, env wire.Envelope) { events <- env })

	ts := httptest.NewServer(r)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	sock, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer sock.Close(websocket.StatusNormalClosure, "")

	if err := wsjson.Write(ctx, sock, map[string]any{"data": map[string]any{}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := wsjson.Write(ctx, sock, map[string]any{"event": "real"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case env := <-events:
		if env.Event != "real" {
			t.Fatalf("event = %s, the empty frame should be skipped", env.Event)
		}
	case <-ctx.Done():
		t.Fatal("frame never reached the handler")
	}
}

func waitRegistry(t *testing.T, r *Registry, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if r.Len() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("registry len = %d, want %d", r.Len(), want)
}
