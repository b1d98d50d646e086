package middleware

import (
	"net/http"
	"strconv"
	"time"

	"golang.org/x/net/http/httpguts"

	"github.com/kbukum/easychat/auth/authctx"
	"github.com/kbukum/easychat/logger"
)

// HeaderServerTime carries the time spent in the router, formatted "<n> ms".
const HeaderServerTime = "x-server-time"

// ServerTime measures the router and stamps x-server-time on the response.
// Headers are final once the router writes, so the elapsed time is taken at
// the first write, or when the router returns without writing. A value that
// is not a valid header is logged at WARN and omitted; the request never fails
// because of it.
func ServerTime(log *logger.Logger) Middleware {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tw := &timingWriter{ResponseWriter: w, start: time.Now(), log: log, r: r}
			next.ServeHTTP(tw, r)
			tw.stamp()
		})
	}
}

// formatServerTime renders d as whole milliseconds.
func formatServerTime(d time.Duration) string {
	return strconv.FormatInt(d.Milliseconds(), 10) + " ms"
}

type timingWriter struct {
	http.ResponseWriter
	start   time.Time
	log     *logger.Logger
	r       *http.Request
	stamped bool
}

func (tw *timingWriter) stamp() {
	if tw.stamped {
		return
	}
	tw.stamped = true

	value := formatServerTime(time.Since(tw.start))
	if !httpguts.ValidHeaderFieldValue(value) {
		tw.log.WithContext(tw.r.Context()).Warn("Invalid server time header value", map[string]interface{}{
			logger.FieldRequestID: authctx.RequestIDFrom(tw.r.Context()),
			"value":               value,
		})
		return
	}
	tw.Header().Set(HeaderServerTime, value)
}

func (tw *timingWriter) WriteHeader(code int) {
	if code >= http.StatusOK {
		tw.stamp()
	}
	tw.ResponseWriter.WriteHeader(code)
}

func (tw *timingWriter) Write(b []byte) (int, error) {
	tw.stamp()
	return tw.ResponseWriter.Write(b)
}

func (tw *timingWriter) Flush() {
	tw.stamp()
	if f, ok := tw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (tw *timingWriter) Unwrap() http.ResponseWriter {
	return tw.ResponseWriter
}
