package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/hyunwoo-jung/tripline/internal/api/response"
)

// Recovery turns a handler panic into a 500 with the standard error
// envelope, so a bad booking payload can never take the worker down
// mid-request.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				slog.Error("panic recovered",
					"error", err,
					"stack", string(debug.Stack()),
					"request_id", w.Header().Get(requestIDHeader),
					"method", r.Method,
					"path", r.URL.Path,
				)
				response.Error(w, http.StatusInternalServerError,
					"INTERNAL_ERROR", "An unexpected error occurred", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
