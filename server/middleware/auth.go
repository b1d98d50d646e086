package middleware

import (
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/easychat/auth"
	"github.com/kbukum/easychat/auth/authctx"
	"github.com/kbukum/easychat/auth/session"
	apperrors "github.com/kbukum/easychat/errors"
	"github.com/kbukum/easychat/logger"
	"github.com/kbukum/easychat/observability"
)

// TokenQueryParam is the query parameter consulted when the request carries
// no Authorization header. EventSource clients cannot set headers and use it.
const TokenQueryParam = "token"

// AuthConfig configures the authentication stage.
type AuthConfig struct {
	// Verifier turns the candidate token into an identity.
	Verifier auth.TokenVerifier
	// SkipPaths are exact URL paths that bypass authentication.
	SkipPaths []string
	// Logger receives a WARN record for every rejected request.
	Logger *logger.Logger
}

// Authenticate extracts a token from the request, verifies it and records the
// identity on the request scope. Any failure short-circuits with a 401 JSON
// error; the router never runs for an unauthenticated request.
// CORS preflight requests carry no credentials and are passed through.
func Authenticate(cfg AuthConfig) Middleware {
	log := cfg.Logger
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	skip := make(map[string]bool, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skip[r.URL.Path] || isPreflight(r) {
				next.ServeHTTP(w, r)
				return
			}

			ctx, rc := authctx.Ensure(r.Context())

			identity, err := authenticate(cfg.Verifier, r)
			if err != nil {
				appErr := apperrors.From(err)
				fields := map[string]interface{}{
					logger.FieldRequestID: rc.RequestID,
					logger.FieldPath:      r.URL.Path,
					logger.FieldErrorCode: string(appErr.Code),
					logger.FieldError:     err.Error(),
				}
				log.WithContext(ctx).Warn("Request authentication failed", fields)
				trace.SpanFromContext(ctx).SetAttributes(attribute.String(observability.AttrErrorCode, string(appErr.Code)))
				writeError(w, appErr)
				return
			}

			rc.SetIdentity(identity)
			trace.SpanFromContext(ctx).SetAttributes(attribute.Int64(observability.AttrUserID, identity.ID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(verifier auth.TokenVerifier, r *http.Request) (session.Identity, error) {
	token, err := ExtractToken(r)
	if err != nil {
		return session.Identity{}, err
	}
	return verifier.Verify(token)
}

// ExtractToken locates the candidate token of a request:
//
//  1. The Authorization header. If it is present it must be "Bearer <token>";
//     anything else fails with MALFORMED_CREDENTIALS and the query is not read.
//  2. When the header is absent, the "token" query parameter.
//  3. Otherwise MISSING_CREDENTIALS.
func ExtractToken(r *http.Request) (string, error) {
	if values, present := r.Header["Authorization"]; present {
		if len(values) != 1 {
			return "", apperrors.MalformedCredentials("Multiple Authorization headers.")
		}
		scheme, token, ok := strings.Cut(strings.TrimSpace(values[0]), " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return "", apperrors.MalformedCredentials("Authorization header must use the Bearer scheme.")
		}
		token = strings.TrimSpace(token)
		if token == "" {
			return "", apperrors.MalformedCredentials("Bearer token is empty.")
		}
		return token, nil
	}

	if token := r.URL.Query().Get(TokenQueryParam); token != "" {
		return token, nil
	}
	return "", apperrors.MissingCredentials()
}

func isPreflight(r *http.Request) bool {
	return r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""
}
