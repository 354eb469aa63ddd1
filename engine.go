package tokenguard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync/atomic"
	"time"

	internalaudit "github.com/MrEthical07/tokenguard/internal/audit"
	internalflows "github.com/MrEthical07/tokenguard/internal/flows"
	"github.com/MrEthical07/tokenguard/jwt"
	"github.com/MrEthical07/tokenguard/revocation"
	"github.com/sirupsen/logrus"
)

// Engine issues, validates and revokes session tokens.
//
// Engine instances are built once by [Builder.Build] and are read-only
// afterwards; every method is safe for concurrent use.
type Engine struct {
	config      Config
	logger      logrus.FieldLogger
	keys        *jwt.KeyMaterial
	jwtManager  *jwt.Manager
	store       revocation.Store
	backend     string
	credentials CredentialDirectory
	flows       internalflows.Service
	audit       *internalaudit.Dispatcher
	metrics     *Metrics
	closed      atomic.Bool
}

// Close stops the audit dispatcher after draining buffered events. Further
// calls return ErrEngineNotReady.
func (e *Engine) Close() {
	if e == nil || !e.closed.CompareAndSwap(false, true) {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were discarded on overflow.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of all counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:      map[MetricID]uint64{},
			Histograms:    map[MetricID][]uint64{},
			HistogramSums: map[MetricID]float64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) ready() bool {
	return e != nil && e.jwtManager != nil && e.flows.Initialized() && !e.closed.Load()
}

// TTL returns the configured token lifetime.
func (e *Engine) TTL() time.Duration {
	if e == nil {
		return 0
	}
	return e.config.Token.TTL
}

// Issue signs a fresh token for an already authenticated principal.
func (e *Engine) Issue(ctx context.Context, p Principal) (*IssuedToken, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	issued, err := e.jwtManager.Issue(jwt.Principal{
		Subject:  p.ID,
		Username: p.Username,
		Email:    p.Email,
	})
	if err != nil {
		e.metricInc(MetricTokenIssueFailure)
		e.emitAudit(ctx, auditEventTokenIssueFailure, false, p.ID, "", err, nil)
		if errors.Is(err, jwt.ErrInvalidSubject) {
			return nil, ErrInvalidSubject
		}
		return nil, fmt.Errorf("issue token: %w", err)
	}

	e.metricInc(MetricTokenIssued)
	e.emitAudit(ctx, auditEventTokenIssued, true, p.ID, issued.TokenID, nil, func() map[string]string {
		return map[string]string{
			"expires_at": issued.ExpiresAt.UTC().Format(time.RFC3339Nano),
		}
	})
	return issued, nil
}

// Login authenticates identifier (username or email) and password against the
// configured credential directory and issues a token on success.
//
// Login returns ErrInvalidCredentials for an unknown identifier or a wrong
// password; the two are indistinguishable to the caller.
func (e *Engine) Login(ctx context.Context, identifier, password string) (*IssuedToken, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if e.credentials == nil {
		return nil, fmt.Errorf("%w: no credential directory configured", ErrEngineNotReady)
	}

	p, err := e.credentials.Authenticate(ctx, identifier, password)
	if err != nil {
		e.emitAudit(ctx, auditEventLoginFailure, false, "", "", err, nil)
		if errors.Is(err, ErrInvalidCredentials) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	return e.Issue(ctx, p)
}

// Authenticate extracts the bearer token from an Authorization header value
// and validates it.
func (e *Engine) Authenticate(ctx context.Context, authorization string) (*AuthResult, error) {
	token, ok := BearerToken(authorization)
	if !ok {
		if e.ready() {
			e.metricInc(MetricValidateMissingToken)
		}
		return nil, rejection(ErrMissingToken, nil)
	}
	return e.Validate(ctx, token)
}

// Validate admits or rejects a presented token.
//
// Every rejection matches ErrUnauthorized and exactly one of ErrMissingToken,
// ErrTokenMalformed, ErrTokenExpired, ErrTokenMissingID, ErrTokenRevoked or
// ErrRevocationUnavailable. Use RejectionMessage for the client-facing reason.
func (e *Engine) Validate(ctx context.Context, token string) (*AuthResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if token == "" {
		e.metricInc(MetricValidateMissingToken)
		return nil, rejection(ErrMissingToken, nil)
	}

	var start time.Time
	if e.metrics.LatencyEnabled() {
		start = time.Now()
		defer func() {
			e.metrics.Observe(MetricValidateLatency, time.Since(start))
		}()
	}

	res := e.flows.Validate(ctx, token)
	switch res.Failure {
	case internalflows.ValidateFailureNone:
	case internalflows.ValidateFailureExpired:
		e.metricInc(MetricValidateExpired)
		return nil, rejection(ErrTokenExpired, res.Err)
	case internalflows.ValidateFailureMissingTokenID:
		e.metricInc(MetricValidateMissingTokenID)
		return nil, rejection(ErrTokenMissingID, res.Err)
	case internalflows.ValidateFailureRevoked:
		e.metricInc(MetricValidateRevoked)
		e.emitAudit(ctx, auditEventTokenRejected, false, "", "", ErrTokenRevoked, nil)
		return nil, rejection(ErrTokenRevoked, nil)
	case internalflows.ValidateFailureStoreUnavailable:
		e.metricInc(MetricValidateStoreUnavailable)
		e.logger.WithFields(logrus.Fields{
			"request_id": RequestIDFromContext(ctx),
			"error":      res.Err,
		}).Error("revocation check failed; rejecting token")
		e.emitAudit(ctx, auditEventTokenRejected, false, "", "", ErrRevocationUnavailable, nil)
		return nil, rejection(ErrRevocationUnavailable, res.Err)
	default:
		e.metricInc(MetricValidateMalformed)
		return nil, rejection(ErrTokenMalformed, res.Err)
	}

	if res.FailOpen {
		e.metricInc(MetricValidateFailOpen)
		e.logger.WithFields(logrus.Fields{
			"subject":    res.Claims.Subject,
			"token_id":   res.Claims.ID,
			"request_id": RequestIDFromContext(ctx),
			"error":      res.Err,
		}).Warn("revocation check failed; admitting token under fail-open policy")
		e.emitAudit(ctx, auditEventTokenFailOpen, true, res.Claims.Subject, res.Claims.ID, ErrRevocationUnavailable, nil)
	}

	e.metricInc(MetricValidateSuccess)
	return authResultFromClaims(res.Claims), nil
}

// Logout revokes token for the remainder of its lifetime.
//
// An already expired token is a successful no-op. A revocation store failure
// is logged, audited and counted but not returned: the client's logout still
// succeeds. Only an unusable credential is reported, as a rejection.
func (e *Engine) Logout(ctx context.Context, token string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if token == "" {
		e.metricInc(MetricLogoutRejected)
		return rejection(ErrMissingToken, nil)
	}

	res := e.flows.Logout(ctx, token)
	switch res.Failure {
	case internalflows.LogoutFailureNone:
	case internalflows.LogoutFailureMissingTokenID:
		e.metricInc(MetricLogoutRejected)
		e.emitAudit(ctx, auditEventLogoutRejected, false, res.Subject, "", ErrTokenMissingID, nil)
		return rejection(ErrTokenMissingID, res.Err)
	case internalflows.LogoutFailureStoreUnavailable:
		e.metricInc(MetricLogoutStoreFailure)
		e.logger.WithFields(logrus.Fields{
			"subject":    res.Subject,
			"token_id":   res.TokenID,
			"ttl_ms":     res.TTL.Milliseconds(),
			"request_id": RequestIDFromContext(ctx),
			"error":      res.Err,
		}).Error("failed to revoke token on logout")
		e.emitAudit(ctx, auditEventLogoutStoreFailure, false, res.Subject, res.TokenID, ErrRevocationUnavailable, nil)
		return nil
	default:
		e.metricInc(MetricLogoutRejected)
		e.emitAudit(ctx, auditEventLogoutRejected, false, "", "", ErrTokenMalformed, nil)
		return rejection(ErrTokenMalformed, res.Err)
	}

	if res.Skipped {
		e.metricInc(MetricLogoutSkipped)
		return nil
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventTokenRevoked, true, res.Subject, res.TokenID, nil, func() map[string]string {
		return map[string]string{
			"ttl_ms": strconv.FormatInt(res.TTL.Milliseconds(), 10),
		}
	})
	return nil
}

// Ping measures a round trip to the revocation backend. Backends without a
// health probe report zero latency.
func (e *Engine) Ping(ctx context.Context) (time.Duration, error) {
	if !e.ready() {
		return 0, ErrEngineNotReady
	}
	p, ok := e.store.(revocation.Pinger)
	if !ok {
		return 0, nil
	}
	d, err := p.Ping(ctx)
	if err != nil {
		return d, fmt.Errorf("%w: %v", ErrRevocationUnavailable, err)
	}
	return d, nil
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
