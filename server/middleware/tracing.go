package middleware

import (
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/easychat/auth/authctx"
	"github.com/kbukum/easychat/observability"
)

// TracingConfig configures the tracing stage.
type TracingConfig struct {
	// Tracer opens the request spans. Nil uses observability.Tracer().
	Tracer trace.Tracer
	// Metrics is optional.
	Metrics *observability.HTTPMetrics
}

// redactedHeaders are recorded on the span with their values masked.
var redactedHeaders = map[string]bool{
	"authorization": true,
	"cookie":        true,
	"set-cookie":    true,
}

// Tracing opens one server span per request, recording the method, path and
// request headers. The span is closed with the response status and latency on
// every exit path, including short-circuits by inner stages.
func Tracing(cfg TracingConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tracer := cfg.Tracer
			if tracer == nil {
				tracer = observability.Tracer()
			}

			ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(requestAttributes(r)...),
			)

			start := time.Now()
			if cfg.Metrics != nil {
				cfg.Metrics.RecordRequestStart(ctx)
			}
			sw := newStatusWriter(w)

			defer func() {
				latency := time.Since(start)
				status := sw.Status()

				span.SetAttributes(
					attribute.Int("http.status_code", status),
					attribute.Int64(observability.AttrLatencyUS, latency.Microseconds()),
				)
				if rc, ok := authctx.From(ctx); ok {
					if id, ok := rc.Identity(); ok {
						span.SetAttributes(attribute.Int64(observability.AttrUserID, id.ID))
					}
				}
				if status >= http.StatusInternalServerError {
					span.SetStatus(codes.Error, http.StatusText(status))
				}
				if cfg.Metrics != nil {
					cfg.Metrics.RecordRequestEnd(ctx, r.Method, status, latency)
				}
				span.End()
			}()

			next.ServeHTTP(sw, r.WithContext(ctx))
		})
	}
}

func requestAttributes(r *http.Request) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("http.method", r.Method),
		attribute.String("http.target", r.URL.Path),
		attribute.String("http.scheme", scheme(r)),
		attribute.String("net.host.name", r.Host),
		attribute.String("http.user_agent", r.UserAgent()),
	}
	for name, values := range r.Header {
		key := strings.ToLower(name)
		if redactedHeaders[key] {
			values = []string{"[REDACTED]"}
		}
		attrs = append(attrs, attribute.StringSlice("http.request.header."+key, values))
	}
	return attrs
}

func scheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	return "http"
}
