package auth

import (
	"github.com/kbukum/easychat/auth/jwt"
	"github.com/kbukum/easychat/auth/session"
)

var (
	_ TokenVerifier = (*jwt.Verifier)(nil)
	_ TokenIssuer   = (*jwt.Signer)(nil)
)

// TokenVerifier turns a token string into the identity it asserts.
// The authentication middleware depends on this interface rather than on
// the jwt package.
type TokenVerifier interface {
	Verify(token string) (session.Identity, error)
}

// TokenVerifierFunc adapts an ordinary function to the TokenVerifier interface.
type TokenVerifierFunc func(token string) (session.Identity, error)

// Verify implements TokenVerifier.
func (f TokenVerifierFunc) Verify(token string) (session.Identity, error) {
	return f(token)
}

// TokenIssuer signs a token for an identity.
type TokenIssuer interface {
	Sign(identity session.Identity) (string, error)
}
