package middleware

import (
	"net/http"
	"time"

	"github.com/kbukum/easychat/auth/authctx"
	"github.com/kbukum/easychat/logger"
)

// RequestLogger returns middleware that logs every request with method,
// path, status code, latency and correlation id. Health-check paths are
// silently skipped.
func RequestLogger(log *logger.Logger) Middleware {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isHealthEndpoint(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			sw := newStatusWriter(w)
			next.ServeHTTP(sw, r)
			latency := time.Since(start)

			fields := map[string]interface{}{
				logger.FieldMethod:    r.Method,
				logger.FieldPath:      r.URL.Path,
				logger.FieldStatus:    sw.Status(),
				logger.FieldLatencyUS: latency.Microseconds(),
			}
			if rc, ok := authctx.From(r.Context()); ok {
				fields[logger.FieldRequestID] = rc.RequestID
				if id, ok := rc.Identity(); ok {
					fields[logger.FieldUserID] = id.ID
				}
			}

			logByStatus(log.WithContext(r.Context()), fields, sw.Status())
		})
	}
}

func isHealthEndpoint(path string) bool {
	switch path {
	case "/health", "/health/live", "/health/ready":
		return true
	}
	return false
}

// logByStatus logs request fields at the appropriate level based on HTTP status code.
func logByStatus(log *logger.Logger, fields map[string]interface{}, status int) {
	switch {
	case status >= 500:
		log.Error("Request completed", fields)
	case status >= 400:
		log.Warn("Request completed", fields)
	default:
		log.Info("Request completed", fields)
	}
}
