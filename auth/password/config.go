package password

import "fmt"

// Config configures argon2id password hashing.
// The defaults match the argon2 crate defaults (m=19456, t=2, p=1) so hashes
// written by earlier deployments keep verifying.
type Config struct {
	// Time is the number of argon2id iterations (default: 2).
	Time uint32 `mapstructure:"time" yaml:"time"`

	// Memory is the memory usage in KiB (default: 19456 = 19MiB).
	Memory uint32 `mapstructure:"memory" yaml:"memory"`

	// Threads is the parallelism (default: 1).
	Threads uint8 `mapstructure:"threads" yaml:"threads"`
}

// ApplyDefaults sets defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Time == 0 {
		c.Time = DefaultTime
	}
	if c.Memory == 0 {
		c.Memory = DefaultMemory
	}
	if c.Threads == 0 {
		c.Threads = DefaultThreads
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Time < 1 {
		return fmt.Errorf("time must be >= 1 (got: %d)", c.Time)
	}
	if c.Memory < 8*uint32(c.Threads) {
		return fmt.Errorf("memory must be >= 8*threads KiB (got: %d)", c.Memory)
	}
	if c.Memory > maxMemory {
		return fmt.Errorf("memory must be <= %d KiB (got: %d)", maxMemory, c.Memory)
	}
	if c.Threads < 1 {
		return fmt.Errorf("threads must be >= 1 (got: %d)", c.Threads)
	}
	return nil
}

// NewHasher creates a Hasher from configuration.
func NewHasher(cfg Config) *Argon2Hasher {
	cfg.ApplyDefaults()
	return NewArgon2Hasher(
		WithTime(cfg.Time),
		WithMemory(cfg.Memory),
		WithThreads(cfg.Threads),
	)
}
