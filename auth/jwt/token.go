// Package jwt issues and verifies EdDSA-signed session tokens.
//
// Signing needs the Ed25519 private key; verification only needs the public
// key, so any replica holding the public key can authenticate requests.
//
// Usage:
//
//	signer, verifier, err := jwt.Load(cfg.Auth.JWT)
//	token, err := signer.Sign(session.Identity{ID: 1, Username: "foo", Email: "foo@acme.com"})
//	identity, err := verifier.Verify(token)
package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/kbukum/easychat/auth/session"
	apperrors "github.com/kbukum/easychat/errors"
)

// Claims is the token payload. The subject claim carries the numeric user id.
type Claims struct {
	gojwt.RegisteredClaims
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Option configures a Signer or Verifier.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now. Tests use it to move past expiry.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// --- Signer ---

// Signer issues tokens. The key is read-only after construction, so a Signer
// may be shared across goroutines.
type Signer struct {
	key ed25519.PrivateKey
	now func() time.Time
}

// NewSigner creates a Signer for key.
func NewSigner(key ed25519.PrivateKey, opts ...Option) *Signer {
	o := buildOptions(opts)
	return &Signer{key: key, now: o.now}
}

// Sign builds fresh claims for identity, expiring TTL from now, and signs them.
func (s *Signer) Sign(identity session.Identity) (string, error) {
	now := s.now()
	claims := &Claims{
		RegisteredClaims: gojwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   identity.Subject(),
			Issuer:    Issuer,
			Audience:  gojwt.ClaimStrings{Audience},
			IssuedAt:  gojwt.NewNumericDate(now),
			ExpiresAt: gojwt.NewNumericDate(now.Add(TTL)),
		},
		Username: identity.Username,
		Email:    identity.Email,
	}

	signed, err := gojwt.NewWithClaims(gojwt.SigningMethodEdDSA, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("jwt: sign token: %w", err)
	}
	return signed, nil
}

// --- Verifier ---

// Verifier validates tokens against the public key. Verification is a pure
// function of the token, the key and the clock.
type Verifier struct {
	key    ed25519.PublicKey
	parser *gojwt.Parser
}

// NewVerifier creates a Verifier for key.
func NewVerifier(key ed25519.PublicKey, opts ...Option) *Verifier {
	o := buildOptions(opts)
	return &Verifier{
		key: key,
		parser: gojwt.NewParser(
			gojwt.WithValidMethods([]string{gojwt.SigningMethodEdDSA.Alg()}),
			gojwt.WithIssuer(Issuer),
			gojwt.WithAudience(Audience),
			gojwt.WithExpirationRequired(),
			gojwt.WithTimeFunc(o.now),
		),
	}
}

// Verify checks the token and returns the identity carried by its claims.
// Failures are *errors.AppError values with a token verification code.
func (v *Verifier) Verify(tokenString string) (session.Identity, error) {
	claims := &Claims{}
	if _, err := v.parser.ParseWithClaims(tokenString, claims, v.keyFunc); err != nil {
		return session.Identity{}, classify(err)
	}

	id, err := session.ParseSubject(claims.Subject)
	if err != nil {
		return session.Identity{}, apperrors.InvalidToken(fmt.Errorf("jwt: bad subject %q: %w", claims.Subject, err))
	}

	return session.Identity{
		ID:       id,
		Username: claims.Username,
		Email:    claims.Email,
	}, nil
}

func (v *Verifier) keyFunc(token *gojwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*gojwt.SigningMethodEd25519); !ok {
		return nil, fmt.Errorf("jwt: unexpected signing method: %s", token.Method.Alg())
	}
	return v.key, nil
}

// classify maps parser errors to the token verification error kinds.
// Signature problems win over claim problems, and expiry wins over
// issuer or audience mismatches.
func classify(err error) *apperrors.AppError {
	switch {
	case errors.Is(err, gojwt.ErrTokenMalformed):
		return apperrors.InvalidToken(err)
	case errors.Is(err, gojwt.ErrTokenSignatureInvalid), errors.Is(err, gojwt.ErrTokenUnverifiable):
		return apperrors.InvalidSignature(err)
	case errors.Is(err, gojwt.ErrTokenExpired):
		return apperrors.TokenExpired(err)
	case errors.Is(err, gojwt.ErrTokenInvalidIssuer), errors.Is(err, gojwt.ErrTokenInvalidAudience):
		return apperrors.IssuerAudienceMismatch(err)
	default:
		return apperrors.InvalidToken(err)
	}
}
