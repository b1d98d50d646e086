package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/easychat/auth"
	"github.com/kbukum/easychat/auth/authctx"
	"github.com/kbukum/easychat/logger"
	"github.com/kbukum/easychat/observability"
)

// Middleware wraps an http.Handler with additional behavior.
// Every pipeline stage has this signature, so the whole chain is plain
// function composition around the router.
type Middleware func(http.Handler) http.Handler

// Chain composes multiple middleware. The first in the list is the outermost
// (runs first on a request, last on a response).
func Chain(middlewares ...Middleware) Middleware {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

// GinWrap adapts a standard Middleware for use in a Gin middleware chain.
// Use this when you need to apply a Middleware directly on the Gin engine
// instead of at the server handler level.
//
// Note: middleware that wraps http.ResponseWriter (e.g. RequestLogger) may not
// fully integrate with gin.Context.Writer. Prefer wrapping the engine with
// Pipeline.
func GinWrap(mw Middleware) gin.HandlerFunc {
	return func(c *gin.Context) {
		next := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			// Propagate any request modifications (e.g. added headers) back to Gin.
			c.Request = r
			c.Next()
		})
		mw(next).ServeHTTP(c.Writer, c.Request)
	}
}

// Scope attaches a fresh authctx.RequestContext to every request. It must be
// the outermost stage so the scope exists before any other stage runs.
func Scope() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rc := authctx.New(time.Now())
			next.ServeHTTP(w, r.WithContext(authctx.Attach(r.Context(), rc)))
		})
	}
}

// PipelineConfig wires the collaborators of the request pipeline.
type PipelineConfig struct {
	// Logger receives request and diagnostic records. Nil uses the global logger.
	Logger *logger.Logger
	// Verifier checks tokens in the authentication stage.
	Verifier auth.TokenVerifier
	// PublicPaths bypass the authentication stage.
	PublicPaths []string
	// CORS configures cross-origin handling. Nil disables it.
	CORS *CORSConfig
	// Tracer overrides the tracer of the tracing stage. Nil uses the global provider.
	Tracer trace.Tracer
	// Metrics records request counters. Nil disables request metrics.
	Metrics *observability.HTTPMetrics
}

// Pipeline builds the fixed request pipeline around a router:
//
//	scope -> tracing -> recovery -> compression -> request id ->
//	request logger -> cors -> authentication -> server time -> router
//
// Short-circuiting stages write their response and return; every outer stage
// still runs its response path.
func Pipeline(cfg PipelineConfig) Middleware {
	log := cfg.Logger
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	stages := []Middleware{
		Scope(),
		Tracing(TracingConfig{Tracer: cfg.Tracer, Metrics: cfg.Metrics}),
		Recovery(log),
		Compression(),
		RequestID(),
		RequestLogger(log),
	}
	if cfg.CORS != nil {
		stages = append(stages, CORS(cfg.CORS))
	}
	stages = append(stages,
		Authenticate(AuthConfig{
			Verifier:  cfg.Verifier,
			SkipPaths: cfg.PublicPaths,
			Logger:    log,
		}),
		ServerTime(log),
	)
	return Chain(stages...)
}
