package internal

import (
	"crypto/rand"
	"encoding/base64"
	"io"
)

// TokenID is the 128-bit random identifier carried in the jti claim.
type TokenID [16]byte

// NewTokenID reads a fresh id from r (crypto/rand when nil).
func NewTokenID(r io.Reader) (TokenID, error) {
	var id TokenID
	if r == nil {
		r = rand.Reader
	}
	_, err := io.ReadFull(r, id[:])
	return id, err
}

func (t TokenID) String() string {
	// base64url, no padding, compact
	return base64.RawURLEncoding.EncodeToString(t[:])
}
