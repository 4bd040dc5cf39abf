package aiproxy

import (
	"context"
	"io"
	"net/http"

	"github.com/backgammon-arena/server/internal/obslog"
	"go.uber.org/zap"
)

// unavailableBody is the error shape the frontend expects.
const unavailableBody = `{"error":"AI service unavailable"}`

// Handler adapts one passthrough operation to an http.HandlerFunc.
func Handler(name string, op func(context.Context, []byte) ([]byte, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		resp, err := op(r.Context(), body)
		if err != nil {
			obslog.L().Error("ai_proxy_error", zap.String("op", name), zap.Error(err))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(unavailableBody))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(resp)
	}
}
