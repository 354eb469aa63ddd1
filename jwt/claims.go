package jwt

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var errInvalidTimestamp = errors.New("invalid numeric date")

// Timestamp is a JWT NumericDate carried with millisecond precision.
//
// It is encoded as decimal seconds with three fractional digits so that
// sub-second token lifetimes survive the round trip.
type Timestamp struct {
	time.Time
}

// NewTimestamp truncates t to millisecond precision.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.Truncate(time.Millisecond)}
}

// MarshalJSON encodes the timestamp as seconds with millisecond fraction.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	ms := t.UnixMilli()
	sec := ms / 1000
	frac := ms % 1000
	if frac < 0 {
		sec--
		frac += 1000
	}
	out := strconv.FormatInt(sec, 10)
	if frac != 0 {
		f := strconv.FormatInt(1000+frac, 10)[1:]
		out += "." + strings.TrimRight(f, "0")
	}
	return []byte(out), nil
}

// UnmarshalJSON accepts integer or decimal seconds. Exponent notation is rejected.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	s := n.String()
	if strings.ContainsAny(s, "eE-") {
		return errInvalidTimestamp
	}

	secPart, fracPart, _ := strings.Cut(s, ".")
	sec, err := strconv.ParseInt(secPart, 10, 64)
	if err != nil {
		return errInvalidTimestamp
	}

	var ms int64
	if fracPart != "" {
		if len(fracPart) > 3 {
			fracPart = fracPart[:3]
		}
		for len(fracPart) < 3 {
			fracPart += "0"
		}
		ms, err = strconv.ParseInt(fracPart, 10, 64)
		if err != nil {
			return errInvalidTimestamp
		}
	}

	t.Time = time.UnixMilli(sec*1000 + ms)
	return nil
}

func (t Timestamp) numericDate() *jwt.NumericDate {
	if t.IsZero() {
		return nil
	}
	// Built directly: jwt.NewNumericDate would truncate to whole seconds.
	return &jwt.NumericDate{Time: t.Time}
}

// Claims is the payload carried by every session token.
//
// Subject, ID, IssuedAt and ExpiresAt are authoritative. Username and Email are
// display-only and must not drive authorization decisions.
type Claims struct {
	Subject   string    `json:"sub"`
	ID        string    `json:"jti,omitempty"`
	IssuedAt  Timestamp `json:"iat"`
	ExpiresAt Timestamp `json:"exp"`
	Issuer    string    `json:"iss,omitempty"`
	Username  string    `json:"username,omitempty"`
	Email     string    `json:"email,omitempty"`
}

// GetExpirationTime implements jwt.Claims.
func (c *Claims) GetExpirationTime() (*jwt.NumericDate, error) {
	return c.ExpiresAt.numericDate(), nil
}

// GetIssuedAt implements jwt.Claims.
func (c *Claims) GetIssuedAt() (*jwt.NumericDate, error) {
	return c.IssuedAt.numericDate(), nil
}

// GetNotBefore implements jwt.Claims. Session tokens carry no nbf.
func (c *Claims) GetNotBefore() (*jwt.NumericDate, error) {
	return nil, nil
}

// GetIssuer implements jwt.Claims.
func (c *Claims) GetIssuer() (string, error) {
	return c.Issuer, nil
}

// GetSubject implements jwt.Claims.
func (c *Claims) GetSubject() (string, error) {
	return c.Subject, nil
}

// GetAudience implements jwt.Claims.
func (c *Claims) GetAudience() (jwt.ClaimStrings, error) {
	return nil, nil
}

// Remaining returns the validity left at now; zero or negative once expired.
func (c *Claims) Remaining(now time.Time) time.Duration {
	if c == nil {
		return 0
	}
	return c.ExpiresAt.Sub(now)
}
