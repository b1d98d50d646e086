package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/kbukum/easychat/auth/authctx"
	apperrors "github.com/kbukum/easychat/errors"
	"github.com/kbukum/easychat/logger"
	"github.com/kbukum/easychat/observability"
)

// Recovery returns middleware that recovers from panics in inner stages,
// logs the stack and responds with INTERNAL_ERROR.
// http.ErrAbortHandler is re-raised so the server can abort the connection.
// A panic after the response has started cannot be turned into an error
// body, so the connection is aborted instead.
func Recovery(log *logger.Logger) Middleware {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := newStatusWriter(w)
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				err := fmt.Errorf("panic: %v", rec)
				log.WithContext(r.Context()).Error("Panic recovered", map[string]interface{}{
					logger.FieldError:     err.Error(),
					"stack":               string(debug.Stack()),
					"response_started":    sw.wroteHeader,
					logger.FieldPath:      r.URL.Path,
					logger.FieldMethod:    r.Method,
					logger.FieldRequestID: authctx.RequestIDFrom(r.Context()),
				})
				observability.SetSpanError(r.Context(), err)
				if sw.wroteHeader {
					panic(http.ErrAbortHandler)
				}
				writeError(w, apperrors.Internal(err))
			}()
			next.ServeHTTP(sw, r)
		})
	}
}
