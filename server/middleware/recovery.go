package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	apperrors "github.com/kbukum/chatstream/errors"
	"github.com/kbukum/chatstream/logger"
)

// Recovery converts a handler panic into a 500 INTERNAL_ERROR response and
// logs the stack. http.ErrAbortHandler is re-raised so net/http can abort
// the connection.
func Recovery(log *logger.Logger) Middleware {
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
				log.Error("Panic recovered", map[string]interface{}{
					"error":  fmt.Sprintf("%v", rec),
					"stack":  string(debug.Stack()),
					"path":   r.URL.Path,
					"method": r.Method,
				})
				status, body := apperrors.Resolve(apperrors.Internal(fmt.Errorf("panic: %v", rec)))
				writeJSON(w, status, body)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
