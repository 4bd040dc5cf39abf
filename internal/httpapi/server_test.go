package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/backgammon-arena/server/internal/aiproxy"
	"github.com/backgammon-arena/server/internal/match"
	"github.com/backgammon-arena/server/internal/matchmaking"
	"github.com/backgammon-arena/server/internal/ws"
	"github.com/jonboulle/clockwork"
)

func newTestServer(t *testing.T, aiURL string) *httptest.Server {
	t.Helper()
	registry := ws.NewRegistry()
	store := match.NewStore()
	mm := matchmaking.NewManager(store, registry, clockwork.NewFakeClock(), matchmaking.Options{})
	ai := aiproxy.NewClient(aiURL, aiproxy.WithRetry(1))

	srv := New(":0", registry, ai, mm)
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t, "http://127.0.0.1:1")

	resp, err := http.Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET /api/health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if origin := resp.Header.Get("Access-Control-Allow-Origin"); origin != "*" {
		t.Fatalf("cors origin = %q", origin)
	}

	var body struct {
		Status      string `json:"status"`
		Message     string `json:"message"`
		GuestQueue  int    `json:"guestQueue"`
		RankedQueue int    `json:"rankedQueue"`
		Connections int    `json:"connections"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "ok" || body.Message == "" {
		t.Fatalf("body = %+v", body)
	}
	if body.GuestQueue != 0 || body.RankedQueue != 0 || body.Connections != 0 {
		t.Fatalf("counters = %+v", body)
	}
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t, "http://127.0.0.1:1")

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/cpu/move", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("OPTIONS: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}
	if methods := resp.Header.Get("Access-Control-Allow-Methods"); methods == "" {
		t.Fatal("missing Allow-Methods header")
	}
}

func TestAIProxyUnavailable(t *testing.T) {
	ts := newTestServer(t, "http://127.0.0.1:1")

	resp, err := http.Post(ts.URL+"/api/cpu/move", "application/json", nil)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != "AI service unavailable" {
		t.Fatalf("body = %v", body)
	}
}

func TestAIProxyPassthrough(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"equity":0.42}`))
	}))
	defer upstream.Close()
	ts := newTestServer(t, upstream.URL)

	resp, err := http.Post(ts.URL+"/api/evaluate", "application/json", nil)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["equity"] != 0.42 {
		t.Fatalf("body = %v", body)
	}
}
