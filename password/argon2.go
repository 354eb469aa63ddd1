package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/argon2"
)

// DefaultMaxPasswordBytes caps plaintext length when Config.MaxPasswordBytes is zero.
const DefaultMaxPasswordBytes = 1024

const (
	variant        = "argon2id"
	minPassBytes   = 10
	minMemoryKiB   = 8 * 1024
	minStoredSalt  = 16
	paramsTemplate = "m=%d,t=%d,p=%d"
)

var (
	ErrPasswordTooShort = errors.New("password must be at least 10 bytes")
	ErrPasswordTooLong  = errors.New("password exceeds maximum length")
	// ErrMalformedHash wraps every PHC parsing failure.
	ErrMalformedHash = errors.New("malformed password hash")
)

var validate = validator.New()

// Config holds argon2id cost parameters. Memory is in KiB.
type Config struct {
	Memory      uint32 `validate:"gte=8192"`
	Time        uint32 `validate:"gte=1"`
	Parallelism uint8  `validate:"gte=1"`
	SaltLength  uint32 `validate:"gte=16"`
	KeyLength   uint32 `validate:"gte=16"`

	// MaxPasswordBytes bounds the work an attacker can force per attempt.
	MaxPasswordBytes int `validate:"eq=0|gte=10"`
}

// DefaultConfig returns the parameters used by `tokenguard hash-password`.
func DefaultConfig() Config {
	return Config{
		Memory:           64 * 1024,
		Time:             3,
		Parallelism:      2,
		SaltLength:       16,
		KeyLength:        32,
		MaxPasswordBytes: DefaultMaxPasswordBytes,
	}
}

// Argon2 hashes and verifies passwords. It is immutable and safe for concurrent use.
type Argon2 struct {
	config Config
}

// NewArgon2 validates cfg. A zero MaxPasswordBytes becomes DefaultMaxPasswordBytes.
func NewArgon2(cfg Config) (*Argon2, error) {
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("password config: %w", err)
	}
	if cfg.MaxPasswordBytes == 0 {
		cfg.MaxPasswordBytes = DefaultMaxPasswordBytes
	}
	return &Argon2{config: cfg}, nil
}

// Hash returns a PHC-encoded argon2id hash of pw with a fresh salt.
// The bytes of pw are hashed as given, without Unicode normalization.
func (a *Argon2) Hash(pw string) (string, error) {
	if len(pw) < minPassBytes {
		return "", ErrPasswordTooShort
	}
	if len(pw) > a.config.MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	h := phc{
		memory:  a.config.Memory,
		time:    a.config.Time,
		threads: a.config.Parallelism,
		salt:    make([]byte, a.config.SaltLength),
	}
	if _, err := rand.Read(h.salt); err != nil {
		return "", err
	}
	h.key = h.derive(pw, a.config.KeyLength)
	return h.String(), nil
}

// Verify reports whether pw matches encoded in constant time.
// An error means the input could not be checked, never a mismatch.
func (a *Argon2) Verify(pw, encoded string) (bool, error) {
	if len(pw) > a.config.MaxPasswordBytes {
		return false, ErrPasswordTooLong
	}
	h, err := parsePHC(encoded)
	if err != nil {
		return false, err
	}
	got := h.derive(pw, uint32(len(h.key)))
	return subtle.ConstantTimeCompare(got, h.key) == 1, nil
}

// NeedsUpgrade reports whether encoded was produced with weaker parameters
// than a's, or with a different key length.
func (a *Argon2) NeedsUpgrade(encoded string) (bool, error) {
	h, err := parsePHC(encoded)
	if err != nil {
		return false, err
	}
	weaker := h.memory < a.config.Memory ||
		h.time < a.config.Time ||
		h.threads < a.config.Parallelism ||
		uint32(len(h.key)) != a.config.KeyLength
	return weaker, nil
}

// phc is a decoded $argon2id$v=19$m=..,t=..,p=..$salt$key string.
type phc struct {
	memory  uint32
	time    uint32
	threads uint8
	salt    []byte
	key     []byte
}

func (h phc) derive(pw string, keyLen uint32) []byte {
	return argon2.IDKey([]byte(pw), h.salt, h.time, h.memory, h.threads, keyLen)
}

func (h phc) params() string {
	return fmt.Sprintf(paramsTemplate, h.memory, h.time, h.threads)
}

func (h phc) String() string {
	return strings.Join([]string{
		"",
		variant,
		fmt.Sprintf("v=%d", argon2.Version),
		h.params(),
		base64.RawStdEncoding.EncodeToString(h.salt),
		base64.RawStdEncoding.EncodeToString(h.key),
	}, "$")
}

func parsePHC(encoded string) (phc, error) {
	var h phc
	malformed := func(reason string) (phc, error) {
		return phc{}, fmt.Errorf("%w: %s", ErrMalformedHash, reason)
	}

	f := strings.Split(encoded, "$")
	if len(f) != 6 || f[0] != "" {
		return malformed("not a PHC string")
	}
	if f[1] != variant {
		return malformed("unsupported algorithm " + f[1])
	}
	if f[2] != fmt.Sprintf("v=%d", argon2.Version) {
		return malformed("unsupported argon2 version " + f[2])
	}

	// Scan, then re-render: only the canonical parameter form is accepted.
	if _, err := fmt.Sscanf(f[3], paramsTemplate, &h.memory, &h.time, &h.threads); err != nil || h.params() != f[3] {
		return malformed("invalid parameters " + f[3])
	}
	if h.memory < minMemoryKiB || h.time < 1 || h.threads < 1 {
		return malformed("parameters below minimum")
	}

	var err error
	if h.salt, err = decodeB64(f[4]); err != nil || len(h.salt) < minStoredSalt {
		return malformed("invalid salt")
	}
	if h.key, err = decodeB64(f[5]); err != nil || len(h.key) == 0 {
		return malformed("invalid key")
	}
	return h, nil
}

// decodeB64 accepts PHC's unpadded base64 as well as padded input.
func decodeB64(s string) ([]byte, error) {
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}
