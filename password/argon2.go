package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	phcAlgorithm = "argon2id"

	floorMemoryKB   uint32 = 8 * 1024
	floorSaltLength uint32 = 16
	floorKeyLength  uint32 = 16

	// DefaultMinPasswordBytes applies when Config.MinLength is zero.
	DefaultMinPasswordBytes = 6
	// DefaultMaxPasswordBytes applies when Config.MaxPasswordBytes is zero.
	DefaultMaxPasswordBytes = 1024
)

var (
	// ErrPasswordTooShort is returned by Hash for passwords under the minimum length.
	ErrPasswordTooShort = errors.New("password too short")
	// ErrPasswordTooLong is returned by Hash and Verify for oversized input.
	ErrPasswordTooLong = errors.New("password too long")
	// ErrMalformedHash is returned when a stored hash is not an argon2id PHC string.
	ErrMalformedHash = errors.New("malformed password hash")
)

// Config holds the Argon2id cost parameters and length bounds in bytes.
type Config struct {
	Memory           uint32
	Time             uint32
	Parallelism      uint8
	SaltLength       uint32
	KeyLength        uint32
	MinLength        int
	MaxPasswordBytes int
}

func (c Config) check() error {
	switch {
	case c.Memory < floorMemoryKB:
		return fmt.Errorf("password memory must be >= %d KB", floorMemoryKB)
	case c.Time < 1:
		return errors.New("password time must be >= 1")
	case c.Parallelism < 1:
		return errors.New("password parallelism must be >= 1")
	case c.SaltLength < floorSaltLength:
		return fmt.Errorf("password salt length must be >= %d", floorSaltLength)
	case c.KeyLength < floorKeyLength:
		return fmt.Errorf("password key length must be >= %d", floorKeyLength)
	case c.MinLength < 0 || c.MaxPasswordBytes < 0:
		return errors.New("password length bounds must be >= 0")
	case c.MaxPasswordBytes > 0 && c.MinLength > c.MaxPasswordBytes:
		return errors.New("password MinLength must be <= MaxPasswordBytes")
	}
	return nil
}

// Argon2 hashes and verifies passwords in PHC string format. It is safe for
// concurrent use.
type Argon2 struct {
	config Config
}

// NewArgon2 validates cfg and fills the length defaults.
func NewArgon2(cfg Config) (*Argon2, error) {
	if err := cfg.check(); err != nil {
		return nil, err
	}
	if cfg.MinLength == 0 {
		cfg.MinLength = DefaultMinPasswordBytes
	}
	if cfg.MaxPasswordBytes == 0 {
		cfg.MaxPasswordBytes = DefaultMaxPasswordBytes
	}
	return &Argon2{config: cfg}, nil
}

// Hash returns the PHC encoding of password under a fresh random salt. The
// password bytes are used as given, without Unicode normalization.
func (a *Argon2) Hash(password string) (string, error) {
	if len(password) < a.config.MinLength {
		return "", fmt.Errorf("%w: minimum %d bytes", ErrPasswordTooShort, a.config.MinLength)
	}
	if len(password) > a.config.MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	salt := make([]byte, a.config.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	h := phc{
		memory:      a.config.Memory,
		time:        a.config.Time,
		parallelism: a.config.Parallelism,
		salt:        salt,
	}
	h.key = h.derive(password, a.config.KeyLength)
	return h.String(), nil
}

// Verify reports whether password matches encoded. A malformed hash is an
// error; a mismatch is not.
func (a *Argon2) Verify(password, encoded string) (bool, error) {
	if len(password) > a.config.MaxPasswordBytes {
		return false, ErrPasswordTooLong
	}
	h, err := decodePHC(encoded)
	if err != nil {
		return false, err
	}
	got := h.derive(password, uint32(len(h.key)))
	return subtle.ConstantTimeCompare(got, h.key) == 1, nil
}

// NeedsUpgrade reports whether encoded was produced with weaker cost
// parameters, or a different key length, than the current configuration.
func (a *Argon2) NeedsUpgrade(encoded string) (bool, error) {
	h, err := decodePHC(encoded)
	if err != nil {
		return false, err
	}
	weaker := h.memory < a.config.Memory ||
		h.time < a.config.Time ||
		h.parallelism < a.config.Parallelism
	return weaker || uint32(len(h.key)) != a.config.KeyLength, nil
}

// phc is a decoded $argon2id$v=19$m=..,t=..,p=..$salt$key string.
type phc struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

func (h phc) derive(password string, keyLen uint32) []byte {
	return argon2.IDKey([]byte(password), h.salt, h.time, h.memory, h.parallelism, keyLen)
}

func (h phc) String() string {
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		phcAlgorithm, argon2.Version,
		h.memory, h.time, h.parallelism,
		base64.StdEncoding.EncodeToString(h.salt),
		base64.StdEncoding.EncodeToString(h.key))
}

func malformed(reason string) error {
	return fmt.Errorf("%w: %s", ErrMalformedHash, reason)
}

func decodePHC(encoded string) (phc, error) {
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" {
		return phc{}, malformed("expected 5 sections")
	}
	if fields[1] != phcAlgorithm {
		return phc{}, malformed("unsupported algorithm " + fields[1])
	}

	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil {
		return phc{}, malformed("missing version")
	}
	if version != argon2.Version {
		return phc{}, malformed(fmt.Sprintf("unsupported version %d", version))
	}

	var h phc
	var memory, time, parallelism uint64
	n, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &memory, &time, &parallelism)
	if err != nil || n != 3 || fmt.Sprintf("m=%d,t=%d,p=%d", memory, time, parallelism) != fields[3] {
		return phc{}, malformed("bad parameters")
	}
	if memory < uint64(floorMemoryKB) || memory > 1<<32-1 {
		return phc{}, malformed("memory out of range")
	}
	if time < 1 || time > 1<<32-1 {
		return phc{}, malformed("time out of range")
	}
	if parallelism < 1 || parallelism > 255 {
		return phc{}, malformed("parallelism out of range")
	}
	h.memory, h.time, h.parallelism = uint32(memory), uint32(time), uint8(parallelism)

	if h.salt, err = base64.StdEncoding.DecodeString(fields[4]); err != nil || len(h.salt) < int(floorSaltLength) {
		return phc{}, malformed("bad salt")
	}
	if h.key, err = base64.StdEncoding.DecodeString(fields[5]); err != nil || len(h.key) == 0 {
		return phc{}, malformed("bad key")
	}
	return h, nil
}
