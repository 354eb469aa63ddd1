package tokenguard

import (
	"errors"

	"github.com/MrEthical07/tokenguard/jwt"
)

var (
	// ErrUnauthorized is the umbrella error every guard rejection wraps.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrMissingToken is returned when no bearer credential was presented.
	ErrMissingToken = errors.New("missing or invalid authorization header")
	// ErrTokenMalformed covers bad encoding, bad signature and missing required claims.
	ErrTokenMalformed = errors.New("invalid token")
	// ErrTokenExpired is returned for authentic tokens whose lifetime has passed.
	ErrTokenExpired = errors.New("token has expired")
	// ErrTokenMissingID is returned for authentic tokens without a jti.
	ErrTokenMissingID = errors.New("token does not have a jti")
	// ErrTokenRevoked is returned for tokens present on the revocation list.
	ErrTokenRevoked = errors.New("token has been revoked")
	// ErrRevocationUnavailable is returned when the revocation list can't be read and policy is fail-closed.
	ErrRevocationUnavailable = errors.New("revocation store unavailable")
	// ErrInvalidSubject is returned by Issue for an empty principal id.
	ErrInvalidSubject = jwt.ErrInvalidSubject
	// ErrEngineNotReady is returned by a zero or closed Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrInvalidCredentials is returned by credential directories on a failed login.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type guardError struct {
	kind error
	err  error
}

func (e *guardError) Error() string {
	if e.err == nil {
		return e.kind.Error()
	}
	return e.kind.Error() + ": " + e.err.Error()
}

func (e *guardError) Is(target error) bool {
	return target == ErrUnauthorized || target == e.kind
}

func (e *guardError) Unwrap() error {
	return e.err
}

// rejection builds an error matching both ErrUnauthorized and kind, and
// wrapping cause for logging.
func rejection(kind, cause error) error {
	return &guardError{kind: kind, err: cause}
}

// Client-facing reason strings. They never carry parser or backend detail.
const (
	MessageMissingToken = "Unauthorized: Missing or invalid Authorization header."
	MessageExpired      = "Token has expired"
	MessageMalformed    = "Invalid token"
	MessageMissingID    = "Token does not have a JTI (JWT ID)."
	MessageRevoked      = "Token has been blacklisted and cannot be used."
	MessageUnavailable  = "Authentication temporarily unavailable"
	MessageUnauthorized = "Unauthorized"
)

// RejectionMessage maps a guard error to the single reason string sent to clients.
func RejectionMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingToken):
		return MessageMissingToken
	case errors.Is(err, ErrTokenExpired):
		return MessageExpired
	case errors.Is(err, ErrTokenMissingID):
		return MessageMissingID
	case errors.Is(err, ErrTokenRevoked):
		return MessageRevoked
	case errors.Is(err, ErrRevocationUnavailable):
		return MessageUnavailable
	case errors.Is(err, ErrTokenMalformed):
		return MessageMalformed
	default:
		return MessageUnauthorized
	}
}
