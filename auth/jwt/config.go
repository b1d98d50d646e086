package jwt

import (
	"errors"
	"time"
)

// Fixed token parameters shared by issuer and verifier.
const (
	Issuer   = "easy-chat"
	Audience = "chat-client"
	TTL      = 1800 * time.Second
)

// Config carries the PEM-encoded Ed25519 key material.
type Config struct {
	// PrivateKey is the PKCS#8 PEM signing key. Load and Validate require it;
	// a verify-only process uses LoadVerifier and may leave it empty.
	PrivateKey string `mapstructure:"private_key" yaml:"private_key"`

	// PublicKey is the PKIX PEM verification key.
	PublicKey string `mapstructure:"public_key" yaml:"public_key"`
}

// Validate checks that both keys are present, as required for a process that
// signs and verifies.
func (c *Config) Validate() error {
	if c.PrivateKey == "" {
		return errors.New("private_key is required")
	}
	if c.PublicKey == "" {
		return errors.New("public_key is required")
	}
	return nil
}
