package jwt

import "errors"

var errMissingTokenID = errors.New("token does not carry a jti")

// Status classifies the outcome of Verify.
type Status uint8

const (
	// StatusValid means the signature verified and the token is unexpired.
	StatusValid Status = iota
	// StatusExpired means the signature verified but now >= exp.
	StatusExpired
	// StatusMalformed covers bad encoding, bad signature, wrong algorithm and missing required claims.
	StatusMalformed
	// StatusMissingTokenID means the token is authentic but cannot be revoked.
	StatusMissingTokenID
)

func (s Status) String() string {
	switch s {
	case StatusValid:
		return "valid"
	case StatusExpired:
		return "expired"
	case StatusMalformed:
		return "malformed"
	case StatusMissingTokenID:
		return "missing_token_id"
	default:
		return "unknown"
	}
}

// Verification is the tagged result of Verify. Claims is set for Valid,
// Expired and MissingTokenID; Err carries the parser detail otherwise.
type Verification struct {
	Status Status
	Claims *Claims
	Err    error
}

// Valid reports whether the token may proceed to the revocation check.
func (v Verification) Valid() bool {
	return v.Status == StatusValid && v.Claims != nil
}
