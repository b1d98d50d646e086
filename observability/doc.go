// Package observability wires OpenTelemetry tracing and metrics.
//
// Both providers are optional: when disabled the global no-op providers stay
// in place and the HTTP pipeline still runs its tracing stage against them.
//
//	shutdown, err := observability.Init(ctx, cfg)
//	defer shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, "chat.send")
//	defer span.End()
package observability
