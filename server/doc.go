// Package server provides the chat HTTP server: a Gin engine wrapped in the
// request pipeline of server/middleware and served over HTTP/1.1 and h2c.
//
// # Pipeline
//
// Every request passes through, outermost first:
//
//   - tracing: one OpenTelemetry server span per request
//   - recovery: panics become INTERNAL_ERROR responses
//   - compression: zstd, gzip or deflate per Accept-Encoding
//   - request id: x-request-id read or generated
//   - request logger
//   - cors: /api only, answers preflight
//   - authentication: Bearer header, then the token query parameter
//   - server time: x-server-time "<n> ms"
//
// # Endpoints
//
// Built-in endpoints (server/endpoint):
//
//   - /health: component health aggregation
//   - /health/live: liveness probe
//   - /health/ready: readiness probe
package server
