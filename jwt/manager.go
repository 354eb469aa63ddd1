package jwt

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/MrEthical07/tokenguard/internal"
	"github.com/golang-jwt/jwt/v5"
)

// TokenType is the authorization scheme issued tokens are presented with.
const TokenType = "Bearer"

var (
	// ErrInvalidSubject is returned by Issue when the principal has no subject.
	ErrInvalidSubject = errors.New("token subject is required")

	errMissingSubject = errors.New("token has no subject")
)

// Config controls token lifetime, signing key and verification strictness.
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	TTL    time.Duration
	Keys   *KeyMaterial
	Issuer string
	Leeway time.Duration

	// Now and Random default to time.Now and crypto/rand. Tests inject fixed sources.
	Now    func() time.Time
	Random io.Reader
}

// Principal identifies an authenticated subject at issuance time.
type Principal struct {
	Subject  string
	Username string
	Email    string
}

// IssuedToken is the result of a successful Issue call.
type IssuedToken struct {
	Token     string
	TokenType string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
	ExpiresIn time.Duration
}

// Manager issues and verifies HS512 session tokens.
//
// Manager is safe for concurrent use; it holds no mutable state.
type Manager struct {
	config Config
}

// NewManager validates cfg and returns a ready Manager.
//
// A missing key or non-positive TTL is a startup error, never a per-call one.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.TTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Keys == nil || cfg.Keys.Len() == 0 {
		return nil, ErrMissingSigningKey
	}
	if cfg.Keys.Len() < MinHS512KeySize {
		return nil, fmt.Errorf("hs512 key must be at least %d bytes", MinHS512KeySize)
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	cfg.Issuer = strings.TrimSpace(cfg.Issuer)
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Random == nil {
		cfg.Random = rand.Reader
	}

	return &Manager{config: cfg}, nil
}

// TTL returns the configured token lifetime.
func (m *Manager) TTL() time.Duration {
	return m.config.TTL
}

// Leeway returns the clock skew tolerated past exp.
func (m *Manager) Leeway() time.Duration {
	return m.config.Leeway
}

// Now returns the manager clock reading.
func (m *Manager) Now() time.Time {
	return m.config.Now()
}

// Issue builds and signs a fresh token for p.
//
// Every call draws a new 128-bit token id. Signatures are deterministic for
// identical claims and key.
func (m *Manager) Issue(p Principal) (*IssuedToken, error) {
	subject := strings.TrimSpace(p.Subject)
	if subject == "" {
		return nil, ErrInvalidSubject
	}

	tokenID, err := internal.NewTokenID(m.config.Random)
	if err != nil {
		return nil, fmt.Errorf("generate token id: %w", err)
	}

	issuedAt := NewTimestamp(m.config.Now())
	expiresAt := NewTimestamp(issuedAt.Add(m.config.TTL))

	claims := &Claims{
		Subject:   subject,
		ID:        tokenID.String(),
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
		Issuer:    m.config.Issuer,
		Username:  p.Username,
		Email:     p.Email,
	}

	signed, err := m.Sign(claims)
	if err != nil {
		return nil, err
	}

	return &IssuedToken{
		Token:     signed,
		TokenType: TokenType,
		TokenID:   claims.ID,
		IssuedAt:  issuedAt.Time,
		ExpiresAt: expiresAt.Time,
		ExpiresIn: m.config.TTL,
	}, nil
}

// Sign encodes and signs arbitrary claims with the manager key.
func (m *Manager) Sign(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	return token.SignedString(m.config.Keys.signingKey())
}

// Verify parses tokenStr and classifies it.
//
// The signature is the only trust boundary: a token that does not verify under
// the current key is Malformed regardless of its claims. Verify has no side
// effects and depends only on the token, the key and the clock.
func (m *Manager) Verify(tokenStr string) Verification {
	if tokenStr == "" {
		return Verification{Status: StatusMalformed, Err: jwt.ErrTokenMalformed}
	}

	claims := &Claims{}
	token, err := jwt.NewParser(m.parserOptions()...).ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS512.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return m.config.Keys.signingKey(), nil
	})
	if err != nil {
		// golang-jwt checks the signature before claims, so an expired result
		// always carries authentic claims.
		if errors.Is(err, jwt.ErrTokenExpired) && !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return Verification{Status: StatusExpired, Claims: claims, Err: err}
		}
		return Verification{Status: StatusMalformed, Err: err}
	}
	if token == nil || !token.Valid {
		return Verification{Status: StatusMalformed, Err: jwt.ErrTokenInvalidClaims}
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return Verification{Status: StatusMalformed, Err: errMissingSubject}
	}
	if claims.ID == "" {
		return Verification{Status: StatusMissingTokenID, Claims: claims, Err: errMissingTokenID}
	}

	return Verification{Status: StatusValid, Claims: claims}
}

func (m *Manager) parserOptions() []jwt.ParserOption {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.config.Now),
		// Rejects non-canonical base64 so no two signature encodings share a MAC.
		jwt.WithStrictDecoding(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}
	return options
}
