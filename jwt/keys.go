package jwt

import (
	"encoding/base64"
	"errors"

	"github.com/sirupsen/logrus"
)

// MinHS512KeySize is the smallest key HMAC-SHA-512 signing accepts (512 bits).
const MinHS512KeySize = 64

// ErrMissingSigningKey is returned when the configured secret yields no key bytes.
var ErrMissingSigningKey = errors.New("signing secret is empty")

// KeyMaterial holds the HMAC signing key for the lifetime of the process.
//
// KeyMaterial is immutable after construction and safe to share between goroutines.
type KeyMaterial struct {
	key    []byte
	padded bool
}

// NewKeyMaterial derives signing key bytes from a configured secret.
//
// The secret is first decoded as standard base64; if that fails, the raw UTF-8
// bytes are used instead. Keys shorter than [MinHS512KeySize] are zero-padded
// so the same secret always produces the same effective key. Padding is logged
// as a warning on logger (nil falls back to the logrus standard logger).
func NewKeyMaterial(secret string, logger logrus.FieldLogger) (*KeyMaterial, error) {
	if secret == "" {
		return nil, ErrMissingSigningKey
	}

	raw, err := base64.StdEncoding.DecodeString(secret)
	if err != nil || len(raw) == 0 {
		raw = []byte(secret)
	}

	km := &KeyMaterial{}
	if len(raw) < MinHS512KeySize {
		if logger == nil {
			logger = logrus.StandardLogger()
		}
		logger.WithFields(logrus.Fields{
			"configured_bytes": len(raw),
			"required_bytes":   MinHS512KeySize,
		}).Warn("jwt signing secret is shorter than 64 bytes; padding deterministically, configure a longer base64 secret for production")

		padded := make([]byte, MinHS512KeySize)
		copy(padded, raw)
		km.key = padded
		km.padded = true
		return km, nil
	}

	km.key = make([]byte, len(raw))
	copy(km.key, raw)
	return km, nil
}

// Bytes returns a copy of the effective key.
func (k *KeyMaterial) Bytes() []byte {
	if k == nil {
		return nil
	}
	out := make([]byte, len(k.key))
	copy(out, k.key)
	return out
}

// Len reports the effective key length in bytes.
func (k *KeyMaterial) Len() int {
	if k == nil {
		return 0
	}
	return len(k.key)
}

// Padded reports whether the configured secret had to be padded.
func (k *KeyMaterial) Padded() bool {
	return k != nil && k.padded
}

// signingKey exposes the internal slice to the signer without copying.
func (k *KeyMaterial) signingKey() []byte {
	return k.key
}
