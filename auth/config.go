package auth

import (
	"fmt"

	"github.com/kbukum/easychat/auth/jwt"
	"github.com/kbukum/easychat/auth/password"
)

// Config holds all authentication configuration. The key material is
// inlined at the top level to match the auth.private_key / auth.public_key
// layout of the configuration file.
type Config struct {
	jwt.Config `mapstructure:",squash" yaml:",inline"`

	// Password configures argon2id hashing of new passwords.
	Password password.Config `mapstructure:"password" yaml:"password"`
}

// ApplyDefaults sets defaults for the sub-configurations.
func (c *Config) ApplyDefaults() {
	c.Password.ApplyDefaults()
}

// Validate checks all sub-configurations.
func (c *Config) Validate() error {
	if err := c.Config.Validate(); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if err := c.Password.Validate(); err != nil {
		return fmt.Errorf("auth.password: %w", err)
	}
	return nil
}

// Describe returns a human-readable one-liner for the startup summary.
func (c *Config) Describe() string {
	return fmt.Sprintf("JWT(EdDSA) TTL=%s iss=%s aud=%s password=argon2id(m=%d,t=%d,p=%d)",
		jwt.TTL, jwt.Issuer, jwt.Audience,
		c.Password.Memory, c.Password.Time, c.Password.Threads)
}
