package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// LoadSigningKey parses a PKCS#8 PEM-encoded Ed25519 private key.
// Callers treat the error as fatal at startup.
func LoadSigningKey(pemData []byte) (ed25519.PrivateKey, error) {
	key, err := gojwt.ParseEdPrivateKeyFromPEM(pemData)
	if err != nil {
		return nil, fmt.Errorf("jwt: load signing key: %w", err)
	}
	priv, ok := key.(ed25519.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("jwt: load signing key: %w", gojwt.ErrNotEdPrivateKey)
	}
	return priv, nil
}

// LoadVerificationKey parses a PKIX PEM-encoded Ed25519 public key.
// Callers treat the error as fatal at startup.
func LoadVerificationKey(pemData []byte) (ed25519.PublicKey, error) {
	key, err := gojwt.ParseEdPublicKeyFromPEM(pemData)
	if err != nil {
		return nil, fmt.Errorf("jwt: load verification key: %w", err)
	}
	pub, ok := key.(ed25519.PublicKey)
	if !ok {
		return nil, fmt.Errorf("jwt: load verification key: %w", gojwt.ErrNotEdPublicKey)
	}
	return pub, nil
}

// Load parses both keys from cfg and returns a ready Signer and Verifier.
func Load(cfg Config, opts ...Option) (*Signer, *Verifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("jwt: %w", err)
	}
	priv, err := LoadSigningKey([]byte(cfg.PrivateKey))
	if err != nil {
		return nil, nil, err
	}
	pub, err := LoadVerificationKey([]byte(cfg.PublicKey))
	if err != nil {
		return nil, nil, err
	}
	return NewSigner(priv, opts...), NewVerifier(pub, opts...), nil
}

// LoadVerifier parses only the public key from cfg. PrivateKey is ignored.
func LoadVerifier(cfg Config, opts ...Option) (*Verifier, error) {
	if cfg.PublicKey == "" {
		return nil, errors.New("jwt: public_key is required")
	}
	pub, err := LoadVerificationKey([]byte(cfg.PublicKey))
	if err != nil {
		return nil, err
	}
	return NewVerifier(pub, opts...), nil
}
