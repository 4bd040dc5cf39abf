package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/backgammon-arena/server/internal/aiproxy"
	"github.com/backgammon-arena/server/internal/matchmaking"
	"github.com/backgammon-arena/server/internal/ws"
)

// New assembles the HTTP surface: health check, AI passthrough proxy
// and the WebSocket endpoint. CORS is wide open; this is a public
// matchmaking service without credentials.
func New(addr string, registry *ws.Registry, ai *aiproxy.Client, mm *matchmaking.Manager) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":      "ok",
			"message":     "Backgammon Arena API is running",
			"guestQueue":  mm.GuestQueueLen(),
			"rankedQueue": mm.RankedQueueLen(),
			"connections": registry.Len(),
		})
	})

	mux.Handle("/api/cpu/move", aiproxy.Handler("move", ai.ComputeMove))
	mux.Handle("/api/cpu/double", aiproxy.Handler("double", ai.ComputeDouble))
	mux.Handle("/api/evaluate", aiproxy.Handler("evaluate", ai.Evaluate))

	mux.Handle("/ws", registry)

	return &http.Server{Addr: addr, Handler: cors(mux)}
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
