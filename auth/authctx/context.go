// Package authctx carries the per-request scope through context.Context.
//
// The scope is a single *RequestContext created when the request enters the
// pipeline. Pipeline stages fill it in (request id, then identity) and
// handlers read it back:
//
//	// in a handler
//	identity, err := authctx.RequireIdentity(r.Context())
//
// A RequestContext belongs to exactly one request and is never shared.
package authctx

import (
	"context"
	"time"

	"github.com/kbukum/easychat/auth/session"
	apperrors "github.com/kbukum/easychat/errors"
)

// RequestContext is the mutable per-request scope.
type RequestContext struct {
	// RequestID is the correlation id echoed in the x-request-id header.
	RequestID string
	// StartedAt is when the request entered the pipeline.
	StartedAt time.Time

	identity *session.Identity
}

// New creates an empty scope that started at startedAt.
func New(startedAt time.Time) *RequestContext {
	return &RequestContext{StartedAt: startedAt}
}

// SetIdentity records the verified identity.
func (rc *RequestContext) SetIdentity(identity session.Identity) {
	rc.identity = &identity
}

// Identity returns the verified identity, if the request has one.
func (rc *RequestContext) Identity() (session.Identity, bool) {
	if rc == nil || rc.identity == nil {
		return session.Identity{}, false
	}
	return *rc.identity, true
}

// scopeKey is an unexported type to prevent collisions with other packages.
type scopeKey struct{}

// Attach returns a child context carrying rc.
func Attach(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, scopeKey{}, rc)
}

// From returns the scope attached to ctx.
func From(ctx context.Context) (*RequestContext, bool) {
	rc, ok := ctx.Value(scopeKey{}).(*RequestContext)
	return rc, ok && rc != nil
}

// Ensure returns the scope attached to ctx, attaching a new one started now
// when there is none.
func Ensure(ctx context.Context) (context.Context, *RequestContext) {
	if rc, ok := From(ctx); ok {
		return ctx, rc
	}
	rc := New(time.Now())
	return Attach(ctx, rc), rc
}

// IdentityFrom returns the verified identity carried by ctx.
func IdentityFrom(ctx context.Context) (session.Identity, bool) {
	rc, _ := From(ctx)
	return rc.Identity()
}

// RequireIdentity returns the verified identity or a MISSING_CREDENTIALS error.
// Handlers mounted behind the authentication stage use it to enforce that an
// identity is present.
func RequireIdentity(ctx context.Context) (session.Identity, error) {
	identity, ok := IdentityFrom(ctx)
	if !ok {
		return session.Identity{}, apperrors.MissingCredentials()
	}
	return identity, nil
}

// RequestIDFrom returns the correlation id carried by ctx, or "".
func RequestIDFrom(ctx context.Context) string {
	if rc, ok := From(ctx); ok {
		return rc.RequestID
	}
	return ""
}
