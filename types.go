package tokenguard

import (
	"context"
	"io"
	"time"

	internalaudit "github.com/MrEthical07/tokenguard/internal/audit"
	"github.com/MrEthical07/tokenguard/jwt"
	"github.com/sirupsen/logrus"
)

// Principal is an authenticated subject about to receive a token.
type Principal struct {
	ID       string
	Username string
	Email    string
}

// IssuedToken is the result of Issue.
type IssuedToken = jwt.IssuedToken

// AuthResult is the admitted principal attached to a request.
//
// Username and Email are display-only claims; authorization must key on Subject.
type AuthResult struct {
	Subject   string
	TokenID   string
	Username  string
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

func authResultFromClaims(c *jwt.Claims) *AuthResult {
	return &AuthResult{
		Subject:   c.Subject,
		TokenID:   c.ID,
		Username:  c.Username,
		Email:     c.Email,
		IssuedAt:  c.IssuedAt.Time,
		ExpiresAt: c.ExpiresAt.Time,
	}
}

// CredentialDirectory resolves a login identifier (username or email) and
// password to a Principal. It returns ErrInvalidCredentials on mismatch.
type CredentialDirectory interface {
	Authenticate(ctx context.Context, identifier, password string) (Principal, error)
}

// SecurityReport summarizes the effective security posture of an Engine.
type SecurityReport struct {
	SigningAlgorithm   string
	KeyBytes           int
	KeyPadded          bool
	TokenTTL           time.Duration
	IssuerPinned       bool
	Leeway             time.Duration
	RevocationBackend  string
	RevocationFailOpen bool
	RevocationTimeout  time.Duration
	PositiveCache      bool
	AuditEnabled       bool
	MetricsEnabled     bool
}

// AuditEvent is the canonical audit record.
type AuditEvent = internalaudit.Event

// AuditSink receives dispatched audit events.
type AuditSink = internalaudit.Sink

// NoOpSink discards audit events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink forwards audit events to a buffered channel.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes audit events as JSON lines.
type JSONWriterSink = internalaudit.JSONWriterSink

// LogrusSink writes audit events as structured log entries.
type LogrusSink = internalaudit.LogrusSink

func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

func NewLogrusSink(logger logrus.FieldLogger) *LogrusSink {
	return internalaudit.NewLogrusSink(logger)
}
