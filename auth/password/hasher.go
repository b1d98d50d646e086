// Package password hashes and verifies user passwords with argon2id.
//
// Hashes are PHC strings that carry their own parameters and salt:
//
//	$argon2id$v=19$m=19456,t=2,p=1$<salt>$<hash>
//
// Usage:
//
//	hasher := password.NewArgon2Hasher()
//	hash, err := hasher.Hash("my-password")
//	ok, err := hasher.Verify("my-password", hash)
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Defaults for new hashes.
const (
	DefaultTime    uint32 = 2
	DefaultMemory  uint32 = 19 * 1024
	DefaultThreads uint8  = 1

	keyLen  = 32
	saltLen = 16

	// maxMemory bounds the cost a stored hash may ask for (1 GiB).
	maxMemory   = 1 << 20
	minSaltLen  = 8
	minHashLen  = 4
	algorithmID = "argon2id"
)

// ErrMalformedHash is returned by Verify when the stored hash cannot be
// parsed, so that corrupt data is distinguishable from a wrong password.
var ErrMalformedHash = errors.New("password: malformed argon2id hash")

// Hasher hashes passwords and verifies them against stored hashes.
type Hasher interface {
	// Hash returns a self-describing hash of the password under a fresh salt.
	Hash(password string) (string, error)

	// Verify reports whether password matches hash. A hash that cannot be
	// parsed yields ErrMalformedHash.
	Verify(password, hash string) (bool, error)
}

// Argon2Hasher implements Hasher using argon2id. It holds no mutable state
// and is safe for concurrent use.
type Argon2Hasher struct {
	time    uint32
	memory  uint32
	threads uint8
}

var _ Hasher = (*Argon2Hasher)(nil)

// Argon2Option configures the argon2id hasher.
type Argon2Option func(*Argon2Hasher)

// WithTime sets the number of iterations.
func WithTime(t uint32) Argon2Option {
	return func(h *Argon2Hasher) { h.time = t }
}

// WithMemory sets the memory usage in KiB.
func WithMemory(m uint32) Argon2Option {
	return func(h *Argon2Hasher) { h.memory = m }
}

// WithThreads sets the parallelism.
func WithThreads(t uint8) Argon2Option {
	return func(h *Argon2Hasher) { h.threads = t }
}

// NewArgon2Hasher creates an argon2id-based password hasher.
func NewArgon2Hasher(opts ...Argon2Option) *Argon2Hasher {
	h := &Argon2Hasher{
		time:    DefaultTime,
		memory:  DefaultMemory,
		threads: DefaultThreads,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Hash hashes password under a fresh random salt.
func (h *Argon2Hasher) Hash(password string) (string, error) {
	salt, err := generateRandomBytes(saltLen)
	if err != nil {
		return "", fmt.Errorf("password: generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, h.time, h.memory, h.threads, keyLen)

	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		h.memory, h.time, h.threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify recomputes the hash with the parameters embedded in encodedHash and
// compares in constant time. The receiver's own parameters are not used.
func (h *Argon2Hasher) Verify(password, encodedHash string) (bool, error) {
	p, err := decodeHash(encodedHash)
	if err != nil {
		return false, err
	}

	key := argon2.IDKey([]byte(password), p.salt, p.time, p.memory, p.threads, uint32(len(p.key)))
	return subtle.ConstantTimeCompare(key, p.key) == 1, nil
}

type phcHash struct {
	memory  uint32
	time    uint32
	threads uint8
	salt    []byte
	key     []byte
}

func decodeHash(encoded string) (*phcHash, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, fmt.Errorf("%w: expected 5 fields", ErrMalformedHash)
	}
	if parts[1] != algorithmID {
		return nil, fmt.Errorf("%w: unsupported algorithm %q", ErrMalformedHash, parts[1])
	}
	if parts[2] != fmt.Sprintf("v=%d", argon2.Version) {
		return nil, fmt.Errorf("%w: unsupported version %q", ErrMalformedHash, parts[2])
	}

	p := &phcHash{}
	if err := p.parseParams(parts[3]); err != nil {
		return nil, err
	}

	var err error
	if p.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil || len(p.salt) < minSaltLen {
		return nil, fmt.Errorf("%w: bad salt", ErrMalformedHash)
	}
	if p.key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil || len(p.key) < minHashLen {
		return nil, fmt.Errorf("%w: bad hash", ErrMalformedHash)
	}
	return p, nil
}

// parseParams reads "m=<kib>,t=<iterations>,p=<threads>".
func (p *phcHash) parseParams(s string) error {
	fields := strings.Split(s, ",")
	if len(fields) != 3 {
		return fmt.Errorf("%w: bad params %q", ErrMalformedHash, s)
	}

	values := make(map[string]uint64, 3)
	for _, f := range fields {
		k, v, ok := strings.Cut(f, "=")
		if !ok {
			return fmt.Errorf("%w: bad param %q", ErrMalformedHash, f)
		}
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fmt.Errorf("%w: bad param %q", ErrMalformedHash, f)
		}
		values[k] = n
	}

	m, okM := values["m"]
	t, okT := values["t"]
	par, okP := values["p"]
	switch {
	case !okM || !okT || !okP:
		return fmt.Errorf("%w: missing param in %q", ErrMalformedHash, s)
	case t < 1, par < 1, par > 255:
		return fmt.Errorf("%w: params out of range %q", ErrMalformedHash, s)
	case m < 8*par, m > maxMemory:
		return fmt.Errorf("%w: memory out of range %q", ErrMalformedHash, s)
	}

	p.memory, p.time, p.threads = uint32(m), uint32(t), uint8(par)
	return nil
}

func generateRandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, err
	}
	return b, nil
}
