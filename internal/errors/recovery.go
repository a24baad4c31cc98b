package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/copyleftdev/gradfit/internal/logging"
)

// RecoveryMiddleware turns a handler panic into a logged 500 carrying a
// CodeInternal error body. http.ErrAbortHandler is re-panicked so the
// server can abort the connection.
func RecoveryMiddleware(logger *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.Error("Recovered from panic", map[string]interface{}{
					"panic":      fmt.Sprint(rec),
					"stack":      string(debug.Stack()),
					"request_id": middleware.GetReqID(r.Context()),
					"method":     r.Method,
					"path":       r.URL.Path,
					"query":      r.URL.RawQuery,
				})

				e := New(CodeInternal, http.StatusText(http.StatusInternalServerError))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(e.HTTPStatus())
				json.NewEncoder(w).Encode(map[string]interface{}{
					"error": e.PublicMessage(),
					"code":  e.Code,
				})
			}()

			next.ServeHTTP(w, r)
		})
	}
}
